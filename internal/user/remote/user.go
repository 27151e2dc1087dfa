package remote

import (
	"context"
	"net/http"
	"net/url"

	"github.com/frahmantamala/service-desk/internal/apiclient"
	userDatamodel "github.com/frahmantamala/service-desk/internal/core/datamodel/user"
	"github.com/frahmantamala/service-desk/internal/session"
)

type Client interface {
	Do(ctx context.Context, sess *session.Session, req apiclient.Request, out interface{}) error
}

type UserRepository struct {
	client Client
}

func NewUserRepository(client Client) *UserRepository {
	return &UserRepository{client: client}
}

func (r *UserRepository) List(ctx context.Context, sess *session.Session) ([]userDatamodel.User, error) {
	var users []userDatamodel.User
	if err := r.client.Do(ctx, sess, apiclient.Request{Method: http.MethodGet, Path: "/users"}, &users); err != nil {
		return nil, err
	}
	if users == nil {
		users = []userDatamodel.User{}
	}
	return users, nil
}

func (r *UserRepository) Update(ctx context.Context, sess *session.Session, id string, req userDatamodel.UpdateRequest) (*userDatamodel.User, error) {
	var u userDatamodel.User
	err := r.client.Do(ctx, sess, apiclient.Request{
		Method: http.MethodPatch,
		Path:   "/users/" + url.PathEscape(id),
		Route:  "/users/{id}",
		Body:   req,
	}, &u)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *UserRepository) Delete(ctx context.Context, sess *session.Session, id string) error {
	return r.client.Do(ctx, sess, apiclient.Request{
		Method: http.MethodDelete,
		Path:   "/users/" + url.PathEscape(id),
		Route:  "/users/{id}",
	}, nil)
}
