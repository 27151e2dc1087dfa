package ticket_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/frahmantamala/service-desk/internal"
	ticketDatamodel "github.com/frahmantamala/service-desk/internal/core/datamodel/ticket"
	uploadDatamodel "github.com/frahmantamala/service-desk/internal/core/datamodel/upload"
	"github.com/frahmantamala/service-desk/internal/core/events"
	"github.com/frahmantamala/service-desk/internal/core/invalidation"
	"github.com/frahmantamala/service-desk/internal/querycache"
	"github.com/frahmantamala/service-desk/internal/session"
	"github.com/frahmantamala/service-desk/internal/ticket"
	"github.com/frahmantamala/service-desk/internal/upload"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

// MockRepository implements ticket.RepositoryAPI for testing
type MockRepository struct {
	mu         sync.Mutex
	tickets    map[string]*ticketDatamodel.Ticket
	calls      map[string]int
	created    []ticketDatamodel.CreateRequest
	updates    []ticketDatamodel.UpdateRequest
	shouldFail bool
	failError  error

	// omitSummary drops the status summary from list envelopes.
	omitSummary bool
}

func NewMockRepository() *MockRepository {
	return &MockRepository{
		tickets: make(map[string]*ticketDatamodel.Ticket),
		calls:   make(map[string]int),
	}
}

func (m *MockRepository) SetShouldFail(shouldFail bool, err error) {
	m.shouldFail = shouldFail
	m.failError = err
}

func (m *MockRepository) AddTicket(t *ticketDatamodel.Ticket) {
	m.tickets[t.ID] = t
}

func (m *MockRepository) List(_ context.Context, _ *session.Session, q ticketDatamodel.ListQuery) (*ticketDatamodel.ListEnvelope, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls["list"]++
	if m.shouldFail {
		return nil, m.failError
	}
	env := &ticketDatamodel.ListEnvelope{Summary: ticketDatamodel.Summary{Status: map[string]int{}}}
	for _, t := range m.tickets {
		env.Summary.Status[t.Status]++
		if q.Status == "" || q.Status == t.Status {
			env.Data = append(env.Data, *t)
		}
	}
	env.Meta.Pagination = ticketDatamodel.Pagination{Page: q.Page, Limit: q.Limit, Total: len(env.Data), Pages: 1}
	if m.omitSummary {
		env.Summary.Status = nil
	}
	return env, nil
}

func (m *MockRepository) Get(_ context.Context, _ *session.Session, id string) (*ticketDatamodel.Ticket, error) {
	m.calls["get"]++
	if m.shouldFail {
		return nil, m.failError
	}
	t, ok := m.tickets[id]
	if !ok {
		return nil, internal.NewExternalError("Ticket not found", 404, nil)
	}
	cp := *t
	return &cp, nil
}

func (m *MockRepository) Create(_ context.Context, _ *session.Session, req ticketDatamodel.CreateRequest) (*ticketDatamodel.Ticket, error) {
	m.calls["create"]++
	if m.shouldFail {
		return nil, m.failError
	}
	m.created = append(m.created, req)
	t := &ticketDatamodel.Ticket{
		ID:          "t" + string(rune('0'+len(m.tickets)+1)),
		Title:       req.Title,
		Description: req.Description,
		Status:      "pending",
		Priority:    req.Priority,
		Department:  ticketDatamodel.DepartmentRef{ID: req.DepartmentID},
		CreatedAt:   time.Now(),
	}
	for _, u := range req.Attachments {
		t.Attachments = append(t.Attachments, ticketDatamodel.Attachment{URL: u})
	}
	m.tickets[t.ID] = t
	return t, nil
}

func (m *MockRepository) Update(_ context.Context, _ *session.Session, id string, req ticketDatamodel.UpdateRequest) (*ticketDatamodel.Ticket, error) {
	m.calls["update"]++
	if m.shouldFail {
		return nil, m.failError
	}
	m.updates = append(m.updates, req)
	t, ok := m.tickets[id]
	if !ok {
		return nil, internal.NewExternalError("Ticket not found", 404, nil)
	}
	if req.Title != nil {
		t.Title = *req.Title
	}
	if req.Description != nil {
		t.Description = *req.Description
	}
	if req.Status != nil {
		t.Status = *req.Status
	}
	return t, nil
}

func (m *MockRepository) Delete(_ context.Context, _ *session.Session, id string) error {
	m.calls["delete"]++
	if m.shouldFail {
		return m.failError
	}
	delete(m.tickets, id)
	return nil
}

type MockUploader struct {
	calls int
	err   error
}

func (m *MockUploader) UploadAll(_ context.Context, _ *session.Session, files []upload.File) ([]uploadDatamodel.Result, error) {
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	results := make([]uploadDatamodel.Result, len(files))
	for i, f := range files {
		results[i] = uploadDatamodel.Result{URL: "https://files.test/" + f.Name, OriginalName: f.Name}
	}
	return results, nil
}

func textFile(name string) upload.File {
	return upload.File{
		Name:        name,
		ContentType: "text/plain",
		Open: func() (io.ReadCloser, error) {
			return io.NopCloser(strings.NewReader("x")), nil
		},
	}
}

func loggedIn(token string) *session.Session {
	sess := session.New()
	sess.Login(session.User{ID: "u1", Name: "Sam", Email: "sam@example.com", Role: session.RoleStaff}, token)
	return sess
}

var _ = Describe("Ticket Service", func() {
	var (
		mockRepo *MockRepository
		uploader *MockUploader
		service  *ticket.Service
		sess     *session.Session
		ctx      context.Context
	)

	BeforeEach(func() {
		logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
		cache := querycache.New(querycache.NewMemoryStore(), time.Minute, logger)
		bus := events.NewEventBus(logger)
		invalidation.NewSubscriber(invalidation.Dependencies, cache, logger).Register(bus)

		mockRepo = NewMockRepository()
		uploader = &MockUploader{}
		service = ticket.NewService(mockRepo, uploader, cache, bus, logger)
		sess = loggedIn("token-1")
		ctx = context.Background()

		mockRepo.AddTicket(&ticketDatamodel.Ticket{ID: "t1", Title: "Printer jam", Status: "pending", Priority: "high"})
		mockRepo.AddTicket(&ticketDatamodel.Ticket{ID: "t2", Title: "VPN down", Status: "resolved", Priority: "low"})
	})

	Describe("List", func() {
		It("maps the envelope and status summary", func() {
			list, err := service.List(ctx, sess, ticket.ListQuery{})
			Expect(err).NotTo(HaveOccurred())
			Expect(list.Tickets).To(HaveLen(2))
			Expect(list.Counts.Pending).To(Equal(1))
			Expect(list.Counts.Resolved).To(Equal(1))
			Expect(list.Counts.Total()).To(Equal(2))
			Expect(list.Pagination.Limit).To(Equal(10))
		})

		It("serves repeated reads from the cache", func() {
			_, err := service.List(ctx, sess, ticket.ListQuery{})
			Expect(err).NotTo(HaveOccurred())
			_, err = service.List(ctx, sess, ticket.ListQuery{})
			Expect(err).NotTo(HaveOccurred())
			Expect(mockRepo.calls["list"]).To(Equal(1))
		})

		It("does not share cached reads across tokens", func() {
			_, _ = service.List(ctx, sess, ticket.ListQuery{})
			_, _ = service.List(ctx, loggedIn("token-2"), ticket.ListQuery{})
			Expect(mockRepo.calls["list"]).To(Equal(2))
		})

		It("refetches after a successful write", func() {
			_, _ = service.List(ctx, sess, ticket.ListQuery{})

			_, err := service.Create(ctx, sess, ticket.CreateTicketDTO{
				Title: "New", Description: "Body", DepartmentID: "d1",
			}, nil)
			Expect(err).NotTo(HaveOccurred())

			list, err := service.List(ctx, sess, ticket.ListQuery{})
			Expect(err).NotTo(HaveOccurred())
			Expect(mockRepo.calls["list"]).To(Equal(2))
			Expect(list.Tickets).To(HaveLen(3))
		})

		It("counts each status with its own list when the summary is missing", func() {
			mockRepo.omitSummary = true
			mockRepo.AddTicket(&ticketDatamodel.Ticket{ID: "t3", Title: "Screen", Status: "pending"})

			list, err := service.List(ctx, sess, ticket.ListQuery{Status: ticket.StatusResolved})
			Expect(err).NotTo(HaveOccurred())

			Expect(list.Tickets).To(HaveLen(1))
			Expect(list.Counts.Known).To(BeTrue())
			Expect(list.Counts.Pending).To(Equal(2))
			Expect(list.Counts.InProgress).To(BeZero())
			Expect(list.Counts.Resolved).To(Equal(1))
			Expect(mockRepo.calls["list"]).To(Equal(4))
		})

		It("keeps the next page reachable when the backend reports no totals", func() {
			env := &ticketDatamodel.ListEnvelope{}
			for i := 0; i < 10; i++ {
				env.Data = append(env.Data, ticketDatamodel.Ticket{Status: "pending"})
			}

			list := ticket.ListFromDataModel(env, ticket.ListQuery{Page: 2, Limit: 10})

			Expect(list.Pagination.Known).To(BeFalse())
			Expect(list.Pagination.Total).To(Equal(20))
			Expect(list.Pagination.HasNext()).To(BeTrue())
			Expect(list.Counts.Known).To(BeFalse())
		})

		It("ends pagination on a short page without totals", func() {
			env := &ticketDatamodel.ListEnvelope{Data: []ticketDatamodel.Ticket{{Status: "pending"}}}

			list := ticket.ListFromDataModel(env, ticket.ListQuery{Page: 3, Limit: 10})

			Expect(list.Pagination.HasNext()).To(BeFalse())
			Expect(list.Pagination.Pages).To(Equal(3))
		})

		It("does not cache failures", func() {
			mockRepo.SetShouldFail(true, internal.NewExternalError("Could not reach the server", 0, errors.New("dial")))
			_, err := service.List(ctx, sess, ticket.ListQuery{})
			Expect(err).To(HaveOccurred())

			mockRepo.SetShouldFail(false, nil)
			_, err = service.List(ctx, sess, ticket.ListQuery{})
			Expect(err).NotTo(HaveOccurred())
			Expect(mockRepo.calls["list"]).To(Equal(2))
		})
	})

	Describe("Get", func() {
		It("returns a not found error for an empty id", func() {
			_, err := service.Get(ctx, sess, "")
			appErr, ok := internal.IsAppError(err)
			Expect(ok).To(BeTrue())
			Expect(appErr.Type).To(Equal(internal.ErrorTypeNotFound))
			Expect(mockRepo.calls["get"]).To(BeZero())
		})

		It("sees a status change made through the service", func() {
			t, err := service.Get(ctx, sess, "t1")
			Expect(err).NotTo(HaveOccurred())
			Expect(t.Status).To(Equal(ticket.StatusPending))

			_, err = service.ChangeStatus(ctx, sess, "t1", ticket.ChangeStatusDTO{Status: "resolved"})
			Expect(err).NotTo(HaveOccurred())

			t, err = service.Get(ctx, sess, "t1")
			Expect(err).NotTo(HaveOccurred())
			Expect(t.Status).To(Equal(ticket.StatusResolved))
			Expect(mockRepo.calls["get"]).To(Equal(2))
		})
	})

	Describe("Create", func() {
		It("rejects an invalid form without touching the backend", func() {
			_, err := service.Create(ctx, sess, ticket.CreateTicketDTO{Title: "  "}, []upload.File{textFile("a.txt")})

			Expect(internal.IsValidation(err)).To(BeTrue())
			appErr, _ := internal.IsAppError(err)
			Expect(appErr.FieldErrors()).To(HaveKey("title"))
			Expect(appErr.FieldErrors()).To(HaveKey("description"))
			Expect(appErr.FieldErrors()["departmentId"]).To(Equal("Department is required"))
			Expect(uploader.calls).To(BeZero())
			Expect(mockRepo.calls["create"]).To(BeZero())
		})

		It("defaults the priority to medium", func() {
			_, err := service.Create(ctx, sess, ticket.CreateTicketDTO{Title: "T", Description: "D", DepartmentID: "d1"}, nil)
			Expect(err).NotTo(HaveOccurred())
			Expect(mockRepo.created[0].Priority).To(Equal("medium"))
			Expect(uploader.calls).To(BeZero())
		})

		It("sends uploaded urls with the ticket", func() {
			created, err := service.Create(ctx, sess, ticket.CreateTicketDTO{
				Title: "T", Description: "D", DepartmentID: "d1", Priority: "high",
			}, []upload.File{textFile("a.txt"), textFile("b.txt")})

			Expect(err).NotTo(HaveOccurred())
			Expect(mockRepo.created[0].Attachments).To(Equal([]string{
				"https://files.test/a.txt",
				"https://files.test/b.txt",
			}))
			Expect(created.Attachments).To(HaveLen(2))
		})

		It("does not create the ticket when an upload fails", func() {
			uploader.err = internal.NewExternalError("Failed to upload attachments", 500, nil)
			_, err := service.Create(ctx, sess, ticket.CreateTicketDTO{
				Title: "T", Description: "D", DepartmentID: "d1",
			}, []upload.File{textFile("a.txt")})

			Expect(err).To(HaveOccurred())
			Expect(mockRepo.calls["create"]).To(BeZero())
		})
	})

	Describe("Update", func() {
		It("sends only title and description", func() {
			_, err := service.Update(ctx, sess, "t1", ticket.UpdateTicketDTO{Title: " Renamed ", Description: "Body"})
			Expect(err).NotTo(HaveOccurred())
			Expect(*mockRepo.updates[0].Title).To(Equal("Renamed"))
			Expect(mockRepo.updates[0].Status).To(BeNil())
		})

		It("rejects an unknown status", func() {
			_, err := service.ChangeStatus(ctx, sess, "t1", ticket.ChangeStatusDTO{Status: "closed"})
			Expect(internal.IsValidation(err)).To(BeTrue())
			Expect(mockRepo.calls["update"]).To(BeZero())
		})

		It("passes an expired session through", func() {
			mockRepo.SetShouldFail(true, internal.ErrSessionExpired)
			_, err := service.Update(ctx, sess, "t1", ticket.UpdateTicketDTO{Title: "T", Description: "D"})
			Expect(internal.IsUnauthorized(err)).To(BeTrue())
		})
	})

	Describe("Delete", func() {
		It("drops the ticket from the next list", func() {
			_, _ = service.List(ctx, sess, ticket.ListQuery{})
			Expect(service.Delete(ctx, sess, "t2")).To(Succeed())

			list, err := service.List(ctx, sess, ticket.ListQuery{})
			Expect(err).NotTo(HaveOccurred())
			Expect(list.Tickets).To(HaveLen(1))
		})
	})
})
