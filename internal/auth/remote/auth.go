package remote

import (
	"context"
	"net/http"

	"github.com/frahmantamala/service-desk/internal/apiclient"
	authDatamodel "github.com/frahmantamala/service-desk/internal/core/datamodel/auth"
	"github.com/frahmantamala/service-desk/internal/session"
)

type Client interface {
	Do(ctx context.Context, sess *session.Session, req apiclient.Request, out interface{}) error
}

type AuthRepository struct {
	client Client
}

func NewAuthRepository(client Client) *AuthRepository {
	return &AuthRepository{client: client}
}

func (r *AuthRepository) Login(ctx context.Context, sess *session.Session, req authDatamodel.LoginRequest) (*authDatamodel.LoginResponse, error) {
	var resp authDatamodel.LoginResponse
	err := r.client.Do(ctx, sess, apiclient.Request{
		Method:      http.MethodPost,
		Path:        "/auth/login",
		Body:        req,
		Credentials: true,
	}, &resp)
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

func (r *AuthRepository) Register(ctx context.Context, sess *session.Session, req authDatamodel.RegisterRequest) error {
	return r.client.Do(ctx, sess, apiclient.Request{
		Method: http.MethodPost,
		Path:   "/auth/register",
		Body:   req,
	}, nil)
}
