package dashboard

import (
	"context"
	"log/slog"
	"time"

	"github.com/frahmantamala/service-desk/internal/department"
	"github.com/frahmantamala/service-desk/internal/session"
	"github.com/frahmantamala/service-desk/internal/ticket"
	"github.com/frahmantamala/service-desk/internal/user"
	"golang.org/x/sync/errgroup"
)

const recentTickets = 5

type TicketLister interface {
	List(ctx context.Context, sess *session.Session, q ticket.ListQuery) (*ticket.List, error)
}

type UserLister interface {
	List(ctx context.Context, sess *session.Session) ([]*user.User, error)
}

type DepartmentLister interface {
	List(ctx context.Context, sess *session.Session) ([]*department.Department, error)
}

type Service struct {
	tickets     TicketLister
	users       UserLister
	departments DepartmentLister
	logger      *slog.Logger
	now         func() time.Time
}

func NewService(tickets TicketLister, users UserLister, departments DepartmentLister, logger *slog.Logger) *Service {
	return &Service{
		tickets:     tickets,
		users:       users,
		departments: departments,
		logger:      logger,
		now:         time.Now,
	}
}

// Stats loads the home page reads concurrently; any failure fails the page.
func (s *Service) Stats(ctx context.Context, sess *session.Session) (*Stats, error) {
	stats := &Stats{AdminView: sess.IsAdmin(), Today: s.now()}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		list, err := s.tickets.List(gctx, sess, ticket.ListQuery{Page: 1, Limit: recentTickets})
		if err != nil {
			return err
		}
		stats.Tickets = list.Counts
		stats.Total, stats.TotalKnown = list.Pagination.Total, list.Pagination.Known
		if sum := list.Counts.Total(); list.Counts.Known && (!stats.TotalKnown || sum > stats.Total) {
			stats.Total, stats.TotalKnown = sum, true
		}
		stats.Recent = list.Tickets
		return nil
	})

	if stats.AdminView {
		g.Go(func() error {
			users, err := s.users.List(gctx, sess)
			if err != nil {
				return err
			}
			stats.Users = len(users)
			return nil
		})
		g.Go(func() error {
			departments, err := s.departments.List(gctx, sess)
			if err != nil {
				return err
			}
			stats.Departments = len(departments)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		s.logger.Error("failed to load dashboard", "error", err)
		return nil, err
	}
	return stats, nil
}
