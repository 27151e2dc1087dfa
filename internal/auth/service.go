package auth

import (
	"context"
	"log/slog"

	"github.com/frahmantamala/service-desk/internal"
	authDatamodel "github.com/frahmantamala/service-desk/internal/core/datamodel/auth"
	"github.com/frahmantamala/service-desk/internal/core/events"
	"github.com/frahmantamala/service-desk/internal/session"
)

type RepositoryAPI interface {
	Login(ctx context.Context, sess *session.Session, req authDatamodel.LoginRequest) (*authDatamodel.LoginResponse, error)
	Register(ctx context.Context, sess *session.Session, req authDatamodel.RegisterRequest) error
}

// Service is the auth store: the only code that moves a session between
// anonymous and authenticated.
type Service struct {
	repo      RepositoryAPI
	publisher events.Publisher
	logger    *slog.Logger
}

func NewService(repo RepositoryAPI, publisher events.Publisher, logger *slog.Logger) *Service {
	return &Service{
		repo:      repo,
		publisher: publisher,
		logger:    logger,
	}
}

// Login exchanges credentials for a token and stores both the token and the
// user in sess. On any failure sess ends anonymous.
func (s *Service) Login(ctx context.Context, sess *session.Session, dto LoginDTO) (session.User, error) {
	dto.Normalize()
	if err := dto.Validate(); err != nil {
		return session.User{}, err
	}

	sess.Begin()
	resp, err := s.repo.Login(ctx, sess, dto.ToDataModel())
	if err != nil {
		sess.Logout()
		if internal.IsUnauthorized(err) {
			s.logger.Info("login rejected", "email", dto.Email)
			return session.User{}, ErrInvalidCredentials
		}
		s.logger.Error("login failed", "email", dto.Email, "error", err)
		return session.User{}, err
	}
	if resp == nil || resp.Token == "" {
		sess.Logout()
		return session.User{}, internal.NewContractError("Login response carried no token", nil)
	}

	user := SessionUser(resp, dto.Email)
	sess.Login(user, resp.Token)

	s.logger.Info("user signed in", "user_id", user.ID, "role", user.Role)
	return user, nil
}

func (s *Service) Register(ctx context.Context, sess *session.Session, dto RegisterDTO) error {
	dto.Normalize()
	if err := dto.Validate(); err != nil {
		return err
	}

	if err := s.repo.Register(ctx, sess, dto.ToDataModel()); err != nil {
		s.logger.Error("registration failed", "email", dto.Email, "error", err)
		return err
	}

	actor, _ := sess.User()
	if err := s.publisher.PublishSync(ctx, events.NewResourceMutatedEvent(events.UserRegistered, "", actor.ID)); err != nil {
		s.logger.Error("failed to invalidate cache after write", "mutation", events.UserRegistered, "error", err)
	}

	s.logger.Info("account registered", "email", dto.Email, "role", dto.Role)
	return nil
}

func (s *Service) Logout(sess *session.Session) {
	if u, ok := sess.User(); ok {
		s.logger.Info("user signed out", "user_id", u.ID)
	}
	sess.Logout()
}
