package comment

import (
	"context"
	"log/slog"

	commentDatamodel "github.com/frahmantamala/service-desk/internal/core/datamodel/comment"
	"github.com/frahmantamala/service-desk/internal/core/events"
	"github.com/frahmantamala/service-desk/internal/querycache"
	"github.com/frahmantamala/service-desk/internal/session"
)

type RepositoryAPI interface {
	ListByTicket(ctx context.Context, sess *session.Session, ticketID string) ([]commentDatamodel.Comment, error)
	Create(ctx context.Context, sess *session.Session, ticketID string, req commentDatamodel.CreateRequest) (*commentDatamodel.Comment, error)
}

type Service struct {
	repo      RepositoryAPI
	cache     *querycache.Cache
	publisher events.Publisher
	logger    *slog.Logger
}

func NewService(repo RepositoryAPI, cache *querycache.Cache, publisher events.Publisher, logger *slog.Logger) *Service {
	return &Service{
		repo:      repo,
		cache:     cache,
		publisher: publisher,
		logger:    logger,
	}
}

func (s *Service) ListForTicket(ctx context.Context, sess *session.Session, ticketID string) ([]*Comment, error) {
	key := querycache.ItemKey(querycache.TicketComments, ticketID)
	data, err := querycache.Fetch(ctx, s.cache, querycache.Namespace(sess.Token()), key,
		func(ctx context.Context) ([]commentDatamodel.Comment, error) {
			return s.repo.ListByTicket(ctx, sess, ticketID)
		})
	if err != nil {
		s.logger.Error("failed to list comments", "error", err, "ticket_id", ticketID)
		return nil, err
	}

	comments := make([]*Comment, 0, len(data))
	for i := range data {
		comments = append(comments, FromDataModel(&data[i]))
	}
	return comments, nil
}

func (s *Service) Add(ctx context.Context, sess *session.Session, ticketID string, dto CreateCommentDTO) (*Comment, error) {
	if err := dto.Validate(); err != nil {
		return nil, err
	}

	created, err := s.repo.Create(ctx, sess, ticketID, dto.ToDataModel())
	if err != nil {
		s.logger.Error("failed to add comment", "error", err, "ticket_id", ticketID)
		return nil, err
	}

	actor, _ := sess.User()
	if err := s.publisher.PublishSync(ctx, events.NewResourceMutatedEvent(events.CommentCreated, ticketID, actor.ID)); err != nil {
		s.logger.Error("failed to invalidate cache after write", "mutation", events.CommentCreated, "ticket_id", ticketID, "error", err)
	}

	if created == nil {
		return &Comment{TicketID: ticketID, Message: dto.ToDataModel().Message}, nil
	}
	return FromDataModel(created), nil
}
