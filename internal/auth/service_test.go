package auth_test

import (
	"context"
	"errors"
	"io"
	"log/slog"

	"github.com/frahmantamala/service-desk/internal"
	"github.com/frahmantamala/service-desk/internal/auth"
	authDatamodel "github.com/frahmantamala/service-desk/internal/core/datamodel/auth"
	userDatamodel "github.com/frahmantamala/service-desk/internal/core/datamodel/user"
	"github.com/frahmantamala/service-desk/internal/core/events"
	"github.com/frahmantamala/service-desk/internal/session"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

type MockRepository struct {
	response   *authDatamodel.LoginResponse
	logins     []authDatamodel.LoginRequest
	registered []authDatamodel.RegisterRequest
	stateSeen  session.State
	shouldFail bool
	failError  error
}

func (m *MockRepository) SetShouldFail(shouldFail bool, err error) {
	m.shouldFail = shouldFail
	m.failError = err
}

func (m *MockRepository) Login(_ context.Context, sess *session.Session, req authDatamodel.LoginRequest) (*authDatamodel.LoginResponse, error) {
	m.stateSeen = sess.State()
	m.logins = append(m.logins, req)
	if m.shouldFail {
		return nil, m.failError
	}
	return m.response, nil
}

func (m *MockRepository) Register(_ context.Context, _ *session.Session, req authDatamodel.RegisterRequest) error {
	if m.shouldFail {
		return m.failError
	}
	m.registered = append(m.registered, req)
	return nil
}

type recordingPublisher struct {
	events []events.Event
}

func (p *recordingPublisher) PublishSync(_ context.Context, e events.Event) error {
	p.events = append(p.events, e)
	return nil
}

var _ = Describe("Auth Service", func() {
	var (
		mockRepo  *MockRepository
		publisher *recordingPublisher
		service   *auth.Service
		sess      *session.Session
		ctx       context.Context
	)

	BeforeEach(func() {
		mockRepo = &MockRepository{response: &authDatamodel.LoginResponse{
			Token: "tok-1",
			User:  &userDatamodel.User{ID: "u1", Name: "Alice", Email: "a@b.com", Role: "admin"},
		}}
		publisher = &recordingPublisher{}
		service = auth.NewService(mockRepo, publisher, slog.New(slog.NewTextHandler(io.Discard, nil)))
		sess = session.New()
		ctx = context.Background()
	})

	Describe("Login", func() {
		It("should authenticate the session", func() {
			u, err := service.Login(ctx, sess, auth.LoginDTO{Email: " a@b.com ", Password: "secret1"})
			Expect(err).NotTo(HaveOccurred())
			Expect(u.Role).To(Equal(session.RoleAdmin))
			Expect(sess.IsAuthenticated()).To(BeTrue())
			Expect(sess.IsAdmin()).To(BeTrue())
			Expect(sess.Token()).To(Equal("tok-1"))
			Expect(mockRepo.logins[0].Email).To(Equal("a@b.com"))
			Expect(mockRepo.stateSeen).To(Equal(session.Authenticating))
		})

		It("should derive a user when the response has none", func() {
			mockRepo.response = &authDatamodel.LoginResponse{Token: "tok-2"}
			u, err := service.Login(ctx, sess, auth.LoginDTO{Email: "jane.doe@example.com", Password: "secret1"})
			Expect(err).NotTo(HaveOccurred())
			Expect(u.Name).To(Equal("jane.doe"))
			Expect(u.Role).To(Equal(session.RoleStaff))
			Expect(sess.IsAuthenticated()).To(BeTrue())
		})

		It("should map a rejected login to invalid credentials", func() {
			mockRepo.SetShouldFail(true, internal.NewUnauthorizedError("Invalid credentials", internal.ErrCodeSessionExpired))
			_, err := service.Login(ctx, sess, auth.LoginDTO{Email: "a@b.com", Password: "wrong"})

			Expect(err).To(Equal(error(auth.ErrInvalidCredentials)))
			Expect(internal.IsValidation(err)).To(BeTrue())
			Expect(sess.State()).To(Equal(session.Anonymous))
		})

		It("should map rejected credentials without passing through an expired session", func() {
			mockRepo.SetShouldFail(true, internal.NewUnauthorizedError("Invalid credentials", internal.ErrCodeInvalidCredentials))
			_, err := service.Login(ctx, sess, auth.LoginDTO{Email: "a@b.com", Password: "wrong"})

			Expect(err).To(Equal(error(auth.ErrInvalidCredentials)))
			Expect(mockRepo.stateSeen).To(Equal(session.Authenticating))
			Expect(sess.State()).To(Equal(session.Anonymous))
		})

		It("should end anonymous on a transport failure", func() {
			mockRepo.SetShouldFail(true, internal.NewExternalError("Could not reach the server", 0, errors.New("refused")))
			_, err := service.Login(ctx, sess, auth.LoginDTO{Email: "a@b.com", Password: "secret1"})
			Expect(err).To(HaveOccurred())
			Expect(sess.IsAuthenticated()).To(BeFalse())
			Expect(sess.State()).To(Equal(session.Anonymous))
		})

		It("should reject a response without a token", func() {
			mockRepo.response = &authDatamodel.LoginResponse{}
			_, err := service.Login(ctx, sess, auth.LoginDTO{Email: "a@b.com", Password: "secret1"})
			appErr, ok := internal.IsAppError(err)
			Expect(ok).To(BeTrue())
			Expect(appErr.Type).To(Equal(internal.ErrorTypeContract))
			Expect(sess.IsAuthenticated()).To(BeFalse())
		})

		It("should validate before calling the backend", func() {
			_, err := service.Login(ctx, sess, auth.LoginDTO{Email: "not-an-email"})
			appErr, _ := internal.IsAppError(err)
			Expect(appErr.FieldErrors()).To(HaveKeyWithValue("email", "Please enter a valid email address"))
			Expect(appErr.FieldErrors()).To(HaveKeyWithValue("password", "Password is required"))
			Expect(mockRepo.logins).To(BeEmpty())
		})
	})

	Describe("Register", func() {
		It("should default the role to staff and announce the new user", func() {
			err := service.Register(ctx, sess, auth.RegisterDTO{Name: "Alice", Email: "a@b.com", Password: "secret1"})
			Expect(err).NotTo(HaveOccurred())
			Expect(mockRepo.registered[0].Role).To(Equal(session.RoleStaff))
			Expect(publisher.events).To(HaveLen(1))
			Expect(publisher.events[0].(*events.ResourceMutatedEvent).Mutation).To(Equal(events.UserRegistered))
		})

		DescribeTable("should reject invalid registrations",
			func(dto auth.RegisterDTO, field string) {
				err := service.Register(ctx, sess, dto)
				appErr, ok := internal.IsAppError(err)
				Expect(ok).To(BeTrue())
				Expect(appErr.FieldErrors()).To(HaveKey(field))
				Expect(mockRepo.registered).To(BeEmpty())
			},
			Entry("short name", auth.RegisterDTO{Name: "Al", Email: "a@b.com", Password: "secret1"}, "name"),
			Entry("bad email", auth.RegisterDTO{Name: "Alice", Email: "a@b", Password: "secret1"}, "email"),
			Entry("short password", auth.RegisterDTO{Name: "Alice", Email: "a@b.com", Password: "12345"}, "password"),
			Entry("unknown role", auth.RegisterDTO{Name: "Alice", Email: "a@b.com", Password: "secret1", Role: "root"}, "role"),
		)
	})

	It("should clear the session on logout", func() {
		sess.Login(session.User{ID: "u1"}, "tok")
		service.Logout(sess)
		Expect(sess.IsAuthenticated()).To(BeFalse())
		Expect(sess.Token()).To(BeEmpty())
	})
})

var _ = Describe("SessionUser", func() {
	It("should treat unknown roles as staff", func() {
		u := auth.SessionUser(&authDatamodel.LoginResponse{
			User: &userDatamodel.User{ID: "u1", Name: "Root", Email: "r@x.io", Role: "superuser"},
		}, "r@x.io")
		Expect(u.Role).To(Equal(session.RoleStaff))
	})

	It("should fill a missing email from the form", func() {
		u := auth.SessionUser(&authDatamodel.LoginResponse{
			User: &userDatamodel.User{ID: "u1", Name: "Alice"},
		}, "alice@x.io")
		Expect(u.Email).To(Equal("alice@x.io"))
	})

	It("should prefer the email from the response when the user is missing", func() {
		u := auth.SessionUser(&authDatamodel.LoginResponse{Email: "bob@x.io"}, "typed@x.io")
		Expect(u.Email).To(Equal("bob@x.io"))
		Expect(u.Name).To(Equal("bob"))
	})
})
