package remote

import (
	"context"
	"net/http"
	"net/url"

	"github.com/frahmantamala/service-desk/internal/apiclient"
	commentDatamodel "github.com/frahmantamala/service-desk/internal/core/datamodel/comment"
	"github.com/frahmantamala/service-desk/internal/session"
)

type Client interface {
	Do(ctx context.Context, sess *session.Session, req apiclient.Request, out interface{}) error
}

type CommentRepository struct {
	client Client
}

func NewCommentRepository(client Client) *CommentRepository {
	return &CommentRepository{client: client}
}

func commentsPath(ticketID string) string {
	return "/tickets/" + url.PathEscape(ticketID) + "/comments"
}

func (r *CommentRepository) ListByTicket(ctx context.Context, sess *session.Session, ticketID string) ([]commentDatamodel.Comment, error) {
	var comments []commentDatamodel.Comment
	err := r.client.Do(ctx, sess, apiclient.Request{
		Method: http.MethodGet,
		Path:   commentsPath(ticketID),
		Route:  "/tickets/{id}/comments",
	}, &comments)
	if err != nil {
		return nil, err
	}
	if comments == nil {
		comments = []commentDatamodel.Comment{}
	}
	return comments, nil
}

func (r *CommentRepository) Create(ctx context.Context, sess *session.Session, ticketID string, req commentDatamodel.CreateRequest) (*commentDatamodel.Comment, error) {
	var c commentDatamodel.Comment
	err := r.client.Do(ctx, sess, apiclient.Request{
		Method: http.MethodPost,
		Path:   commentsPath(ticketID),
		Route:  "/tickets/{id}/comments",
		Body:   req,
	}, &c)
	if err != nil {
		return nil, err
	}
	return &c, nil
}
