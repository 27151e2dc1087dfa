package user

import (
	"context"
	"log/slog"

	userDatamodel "github.com/frahmantamala/service-desk/internal/core/datamodel/user"
	"github.com/frahmantamala/service-desk/internal/core/events"
	"github.com/frahmantamala/service-desk/internal/querycache"
	"github.com/frahmantamala/service-desk/internal/session"
)

type RepositoryAPI interface {
	List(ctx context.Context, sess *session.Session) ([]userDatamodel.User, error)
	Update(ctx context.Context, sess *session.Session, id string, req userDatamodel.UpdateRequest) (*userDatamodel.User, error)
	Delete(ctx context.Context, sess *session.Session, id string) error
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

func (s *Service) List(ctx context.Context, sess *session.Session) ([]*User, error) {
	data, err := querycache.Fetch(ctx, s.cache, querycache.Namespace(sess.Token()), querycache.FamilyKey(querycache.Users),
		func(ctx context.Context) ([]userDatamodel.User, error) {
			return s.repo.List(ctx, sess)
		})
	if err != nil {
		s.logger.Error("failed to list users", "error", err)
		return nil, err
	}

	users := make([]*User, 0, len(data))
	for i := range data {
		users = append(users, FromDataModel(&data[i]))
	}
	return users, nil
}

// SetActive sends the target state as is. The backend decides whether an
// unchanged value is a no-op.
func (s *Service) SetActive(ctx context.Context, sess *session.Session, id string, dto SetActiveDTO) error {
	if _, err := s.repo.Update(ctx, sess, id, dto.ToDataModel()); err != nil {
		s.logger.Error("failed to update user", "error", err, "user_id", id, "active", dto.Active)
		return err
	}
	s.announce(ctx, sess, events.UserUpdated, id)
	s.logger.Info("user active flag set", "user_id", id, "active", dto.Active)
	return nil
}

func (s *Service) Delete(ctx context.Context, sess *session.Session, id string) error {
	if err := s.repo.Delete(ctx, sess, id); err != nil {
		s.logger.Error("failed to delete user", "error", err, "user_id", id)
		return err
	}
	s.announce(ctx, sess, events.UserDeleted, id)
	s.logger.Info("user deleted", "user_id", id)
	return nil
}

func (s *Service) announce(ctx context.Context, sess *session.Session, m events.Mutation, id string) {
	actor, _ := sess.User()
	if err := s.publisher.PublishSync(ctx, events.NewResourceMutatedEvent(m, id, actor.ID)); err != nil {
		s.logger.Error("failed to invalidate cache after write", "mutation", m, "resource_id", id, "error", err)
	}
}
