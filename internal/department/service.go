package department

import (
	"context"
	"log/slog"

	departmentDatamodel "github.com/frahmantamala/service-desk/internal/core/datamodel/department"
	"github.com/frahmantamala/service-desk/internal/core/events"
	"github.com/frahmantamala/service-desk/internal/querycache"
	"github.com/frahmantamala/service-desk/internal/session"
)

type RepositoryAPI interface {
	List(ctx context.Context, sess *session.Session) ([]departmentDatamodel.Department, error)
	Create(ctx context.Context, sess *session.Session, req departmentDatamodel.WriteRequest) (*departmentDatamodel.Department, error)
	Update(ctx context.Context, sess *session.Session, id string, req departmentDatamodel.WriteRequest) (*departmentDatamodel.Department, error)
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

func (s *Service) List(ctx context.Context, sess *session.Session) ([]*Department, error) {
	data, err := querycache.Fetch(ctx, s.cache, querycache.Namespace(sess.Token()), querycache.FamilyKey(querycache.Departments),
		func(ctx context.Context) ([]departmentDatamodel.Department, error) {
			return s.repo.List(ctx, sess)
		})
	if err != nil {
		s.logger.Error("failed to list departments", "error", err)
		return nil, err
	}

	departments := make([]*Department, 0, len(data))
	for i := range data {
		departments = append(departments, FromDataModel(&data[i]))
	}
	return departments, nil
}

func (s *Service) Create(ctx context.Context, sess *session.Session, dto DepartmentDTO) (*Department, error) {
	dto.Normalize()
	if err := dto.Validate(); err != nil {
		return nil, err
	}

	created, err := s.repo.Create(ctx, sess, dto.ToDataModel())
	if err != nil {
		s.logger.Error("failed to create department", "error", err, "name", dto.Name)
		return nil, err
	}

	s.announce(ctx, sess, events.DepartmentCreated, created.ID)
	s.logger.Info("department created", "department_id", created.ID, "name", dto.Name)
	return FromDataModel(created), nil
}

func (s *Service) Update(ctx context.Context, sess *session.Session, id string, dto DepartmentDTO) (*Department, error) {
	dto.Normalize()
	if err := dto.Validate(); err != nil {
		return nil, err
	}

	updated, err := s.repo.Update(ctx, sess, id, dto.ToDataModel())
	if err != nil {
		s.logger.Error("failed to update department", "error", err, "department_id", id)
		return nil, err
	}

	s.announce(ctx, sess, events.DepartmentUpdated, id)
	if updated == nil || updated.ID == "" {
		return &Department{ID: id, Name: dto.Name, Description: dto.Description}, nil
	}
	return FromDataModel(updated), nil
}

func (s *Service) Delete(ctx context.Context, sess *session.Session, id string) error {
	if err := s.repo.Delete(ctx, sess, id); err != nil {
		s.logger.Error("failed to delete department", "error", err, "department_id", id)
		return err
	}
	s.announce(ctx, sess, events.DepartmentDeleted, id)
	s.logger.Info("department deleted", "department_id", id)
	return nil
}

func (s *Service) announce(ctx context.Context, sess *session.Session, m events.Mutation, id string) {
	actor, _ := sess.User()
	if err := s.publisher.PublishSync(ctx, events.NewResourceMutatedEvent(m, id, actor.ID)); err != nil {
		s.logger.Error("failed to invalidate cache after write", "mutation", m, "resource_id", id, "error", err)
	}
}
