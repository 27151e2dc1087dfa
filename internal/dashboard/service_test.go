package dashboard_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	ticketDatamodel "github.com/frahmantamala/service-desk/internal/core/datamodel/ticket"
	"github.com/frahmantamala/service-desk/internal/core/events"
	"github.com/frahmantamala/service-desk/internal/dashboard"
	"github.com/frahmantamala/service-desk/internal/department"
	"github.com/frahmantamala/service-desk/internal/querycache"
	"github.com/frahmantamala/service-desk/internal/session"
	"github.com/frahmantamala/service-desk/internal/ticket"
	"github.com/frahmantamala/service-desk/internal/user"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

type stubTickets struct {
	list  *ticket.List
	err   error
	query ticket.ListQuery
}

func (s *stubTickets) List(_ context.Context, _ *session.Session, q ticket.ListQuery) (*ticket.List, error) {
	s.query = q
	return s.list, s.err
}

type stubUsers struct {
	calls int32
	err   error
}

func (s *stubUsers) List(context.Context, *session.Session) ([]*user.User, error) {
	atomic.AddInt32(&s.calls, 1)
	return []*user.User{{ID: "u1"}, {ID: "u2"}, {ID: "u3"}}, s.err
}

type stubDepartments struct {
	calls int32
}

func (s *stubDepartments) List(context.Context, *session.Session) ([]*department.Department, error) {
	atomic.AddInt32(&s.calls, 1)
	return []*department.Department{{ID: "d1"}, {ID: "d2"}}, nil
}

// pagedRepository serves tickets one page at a time and, like some backend
// versions, leaves out the status summary.
type pagedRepository struct {
	ticket.RepositoryAPI
	statuses []string
	omitMeta bool

	mu      sync.Mutex
	queries []ticketDatamodel.ListQuery
}

func (r *pagedRepository) List(_ context.Context, _ *session.Session, q ticketDatamodel.ListQuery) (*ticketDatamodel.ListEnvelope, error) {
	r.mu.Lock()
	r.queries = append(r.queries, q)
	r.mu.Unlock()

	var matched []ticketDatamodel.Ticket
	for i, st := range r.statuses {
		if q.Status == "" || q.Status == st {
			matched = append(matched, ticketDatamodel.Ticket{ID: "t" + string(rune('a'+i)), Status: st})
		}
	}

	env := &ticketDatamodel.ListEnvelope{}
	start := (q.Page - 1) * q.Limit
	for i := start; i < len(matched) && i < start+q.Limit; i++ {
		env.Data = append(env.Data, matched[i])
	}
	if !r.omitMeta {
		env.Meta.Pagination = ticketDatamodel.Pagination{
			Page: q.Page, Limit: q.Limit, Total: len(matched),
			Pages: (len(matched) + q.Limit - 1) / q.Limit,
		}
	}
	return env, nil
}

var _ = Describe("Dashboard Service", func() {
	var (
		tickets     *stubTickets
		users       *stubUsers
		departments *stubDepartments
		service     *dashboard.Service
	)

	login := func(role string) *session.Session {
		sess := session.New()
		sess.Login(session.User{ID: "x", Name: "X", Role: role}, "tok")
		return sess
	}

	BeforeEach(func() {
		tickets = &stubTickets{list: &ticket.List{
			Tickets:    []*ticket.Ticket{{ID: "t1"}, {ID: "t2"}},
			Pagination: ticket.Pagination{Page: 1, Limit: 5, Total: 9, Pages: 2, Known: true},
			Counts:     ticket.StatusCounts{Pending: 4, InProgress: 3, Resolved: 2, Known: true},
		}}
		users = &stubUsers{}
		departments = &stubDepartments{}
		service = dashboard.NewService(tickets, users, departments, slog.New(slog.NewTextHandler(io.Discard, nil)))
	})

	It("should show ticket totals to staff without admin counts", func() {
		stats, err := service.Stats(context.Background(), login(session.RoleStaff))
		Expect(err).NotTo(HaveOccurred())

		Expect(stats.AdminView).To(BeFalse())
		Expect(stats.Total).To(Equal(9))
		Expect(stats.Tickets.Pending).To(Equal(4))
		Expect(stats.Recent).To(HaveLen(2))
		Expect(tickets.query.Limit).To(Equal(5))
		Expect(atomic.LoadInt32(&users.calls)).To(BeZero())
		Expect(atomic.LoadInt32(&departments.calls)).To(BeZero())
	})

	It("should add user and department counts for admins", func() {
		stats, err := service.Stats(context.Background(), login(session.RoleAdmin))
		Expect(err).NotTo(HaveOccurred())

		Expect(stats.AdminView).To(BeTrue())
		Expect(stats.Users).To(Equal(3))
		Expect(stats.Departments).To(Equal(2))
	})

	It("should fail the page when any read fails", func() {
		users.err = errors.New("users down")
		_, err := service.Stats(context.Background(), login(session.RoleAdmin))
		Expect(err).To(MatchError("users down"))
	})

	It("should fail when the ticket read fails", func() {
		tickets.err = errors.New("tickets down")
		_, err := service.Stats(context.Background(), login(session.RoleStaff))
		Expect(err).To(MatchError("tickets down"))
	})

	Describe("with a backend that omits the status summary", func() {
		var repo *pagedRepository

		BeforeEach(func() {
			repo = &pagedRepository{statuses: []string{
				"pending", "pending", "pending", "pending", "pending",
				"pending", "in-progress", "resolved",
			}}
			logger := slog.New(slog.NewTextHandler(io.Discard, nil))
			cache := querycache.New(querycache.NewMemoryStore(), time.Minute, logger)
			tickets := ticket.NewService(repo, nil, cache, events.NewEventBus(logger), logger)
			service = dashboard.NewService(tickets, users, departments, logger)
		})

		It("should count every status over the whole set, not the recent page", func() {
			stats, err := service.Stats(context.Background(), login(session.RoleStaff))
			Expect(err).NotTo(HaveOccurred())

			Expect(stats.Recent).To(HaveLen(5))
			Expect(stats.Total).To(Equal(8))
			Expect(stats.TotalKnown).To(BeTrue())
			Expect(stats.Tickets.Known).To(BeTrue())
			Expect(stats.Tickets.Pending).To(Equal(6))
			Expect(stats.Tickets.InProgress).To(Equal(1))
			Expect(stats.Tickets.Resolved).To(Equal(1))
			Expect(stats.Tickets.Total()).To(Equal(stats.Total))

			var filtered []string
			for _, q := range repo.queries {
				if q.Status != "" {
					Expect(q.Limit).To(Equal(1))
					filtered = append(filtered, q.Status)
				}
			}
			Expect(filtered).To(ConsistOf("pending", "in-progress", "resolved"))
		})

		It("should leave the counts unknown when no totals are reported at all", func() {
			repo.omitMeta = true

			stats, err := service.Stats(context.Background(), login(session.RoleStaff))
			Expect(err).NotTo(HaveOccurred())

			Expect(stats.Recent).To(HaveLen(5))
			Expect(stats.Tickets.Known).To(BeFalse())
			Expect(stats.Tickets.Pending).To(BeZero())
			Expect(stats.TotalKnown).To(BeFalse())
		})
	})
})
