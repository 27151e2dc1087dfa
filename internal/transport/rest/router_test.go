package rest_test

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"strings"
	"time"

	"github.com/frahmantamala/service-desk/internal/apiclient"
	"github.com/frahmantamala/service-desk/internal/apiclient/apiclienttest"
	"github.com/frahmantamala/service-desk/internal/auth"
	authRemote "github.com/frahmantamala/service-desk/internal/auth/remote"
	"github.com/frahmantamala/service-desk/internal/comment"
	commentRemote "github.com/frahmantamala/service-desk/internal/comment/remote"
	"github.com/frahmantamala/service-desk/internal/core/events"
	"github.com/frahmantamala/service-desk/internal/core/invalidation"
	"github.com/frahmantamala/service-desk/internal/dashboard"
	"github.com/frahmantamala/service-desk/internal/department"
	departmentRemote "github.com/frahmantamala/service-desk/internal/department/remote"
	"github.com/frahmantamala/service-desk/internal/metrics"
	"github.com/frahmantamala/service-desk/internal/querycache"
	"github.com/frahmantamala/service-desk/internal/session"
	"github.com/frahmantamala/service-desk/internal/ticket"
	ticketRemote "github.com/frahmantamala/service-desk/internal/ticket/remote"
	"github.com/frahmantamala/service-desk/internal/transport"
	"github.com/frahmantamala/service-desk/internal/transport/rest"
	"github.com/frahmantamala/service-desk/internal/transport/web"
	"github.com/frahmantamala/service-desk/internal/upload"
	"github.com/frahmantamala/service-desk/internal/user"
	userRemote "github.com/frahmantamala/service-desk/internal/user/remote"
	"github.com/go-chi/chi"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Dashboard Router", func() {
	var (
		backend  *apiclienttest.Backend
		server   *httptest.Server
		store    *session.Store
		recorder *metrics.Recorder
		browser  *http.Client
	)

	BeforeEach(func() {
		logger := slog.New(slog.NewTextHandler(io.Discard, nil))
		backend = apiclienttest.NewBackend()
		DeferCleanup(backend.Close)
		backend.AddUser("Alice Admin", "admin@b.com", "secret1", "admin")
		backend.AddUser("Ann", "a@b.com", "secret1", "staff")
		dept := backend.AddDepartment("IT").ID
		backend.AddTicket("Printer jam", "pending", dept)

		recorder = metrics.NewRecorder()
		client, err := apiclient.NewClient(apiclient.Config{BaseURL: backend.URL, Timeout: 5 * time.Second}, logger,
			apiclient.WithObserver(recorder))
		Expect(err).NotTo(HaveOccurred())

		store, err = session.NewStore(session.StoreConfig{Secret: "0123456789abcdef0123456789abcdef"})
		Expect(err).NotTo(HaveOccurred())

		cache := querycache.New(querycache.NewMemoryStore(), time.Minute, logger, querycache.WithObserver(recorder))
		bus := events.NewEventBus(logger)
		invalidation.NewSubscriber(invalidation.Dependencies, cache, logger).Register(bus)

		uploads := upload.NewService(client, 2, recorder, logger)
		departments := department.NewService(departmentRemote.NewDepartmentRepository(client), cache, bus, logger)
		users := user.NewService(userRemote.NewUserRepository(client), cache, bus, logger)
		comments := comment.NewService(commentRemote.NewCommentRepository(client), cache, bus, logger)
		tickets := ticket.NewService(ticketRemote.NewTicketRepository(client), uploads, cache, bus, logger)

		view, err := web.NewRenderer()
		Expect(err).NotTo(HaveOccurred())
		base := transport.NewBaseHandler(logger, view)

		router := chi.NewRouter()
		rest.RegisterAllRoutes(router, rest.Handlers{
			Auth:       auth.NewHandler(base, auth.NewService(authRemote.NewAuthRepository(client), bus, logger)),
			Dashboard:  dashboard.NewHandler(base, dashboard.NewService(tickets, users, departments, logger)),
			Ticket:     ticket.NewHandler(base, tickets, departments, comments),
			Comment:    comment.NewHandler(base, comments),
			Department: department.NewHandler(base, departments),
			User:       user.NewHandler(base, users),
		}, rest.RouterOptions{
			Store:                 store,
			Static:                web.Static(),
			Metrics:               recorder,
			MetricsPath:           "/metrics",
			AuthRequestsPerMinute: 3,
			Checkers: []rest.Checker{
				{Name: "backend", Check: client.Ping},
				{Name: "cache", Check: cache.Ping},
			},
			Logger: logger,
		})

		server = httptest.NewServer(router)
		DeferCleanup(server.Close)

		jar, err := cookiejar.New(nil)
		Expect(err).NotTo(HaveOccurred())
		browser = &http.Client{
			Jar: jar,
			CheckRedirect: func(*http.Request, []*http.Request) error {
				return http.ErrUseLastResponse
			},
		}
	})

	get := func(path string) *http.Response {
		resp, err := browser.Get(server.URL + path)
		Expect(err).NotTo(HaveOccurred())
		DeferCleanup(resp.Body.Close)
		return resp
	}

	post := func(path string, form url.Values) *http.Response {
		resp, err := browser.PostForm(server.URL+path, form)
		Expect(err).NotTo(HaveOccurred())
		DeferCleanup(resp.Body.Close)
		return resp
	}

	body := func(resp *http.Response) string {
		raw, err := io.ReadAll(resp.Body)
		Expect(err).NotTo(HaveOccurred())
		return string(raw)
	}

	login := func(email string) {
		resp := post("/login", url.Values{"email": {email}, "password": {"secret1"}})
		Expect(resp.StatusCode).To(Equal(http.StatusSeeOther))
		Expect(resp.Header.Get("Location")).To(Equal("/dashboard"))
	}

	sessionCookie := func(resp *http.Response) *http.Cookie {
		for _, c := range resp.Cookies() {
			if c.Name == store.CookieName() {
				return c
			}
		}
		return nil
	}

	Describe("session flow", func() {
		It("should send the login token as a bearer header on later backend reads", func() {
			login("a@b.com")
			token := backend.TokenFor("a@b.com")
			Expect(token).NotTo(BeEmpty())

			resp := get("/dashboard/tickets")
			Expect(resp.StatusCode).To(Equal(http.StatusOK))
			Expect(body(resp)).To(ContainSubstring("Printer jam"))

			var listed []apiclienttest.Recorded
			for _, rec := range backend.Requests() {
				if rec.Method == http.MethodGet && rec.Path == "/tickets/" {
					listed = append(listed, rec)
				}
			}
			Expect(listed).NotTo(BeEmpty())
			Expect(listed[len(listed)-1].Authorization).To(Equal("Bearer " + token))
		})

		It("should send anonymous visitors to the login page", func() {
			resp := get("/dashboard/tickets")

			Expect(resp.StatusCode).To(Equal(http.StatusSeeOther))
			Expect(resp.Header.Get("Location")).To(Equal("/login"))
			Expect(backend.Count(http.MethodGet, "/tickets/")).To(BeZero())
		})

		It("should clear the cookie and redirect to login when the backend answers 401", func() {
			login("a@b.com")
			backend.RevokeAll()

			resp := get("/dashboard/tickets")

			Expect(resp.StatusCode).To(Equal(http.StatusSeeOther))
			Expect(resp.Header.Get("Location")).To(Equal("/login"))
			cleared := sessionCookie(resp)
			Expect(cleared).NotTo(BeNil())
			Expect(cleared.MaxAge).To(BeNumerically("<", 0))

			again := get("/dashboard")
			Expect(again.StatusCode).To(Equal(http.StatusSeeOther))
			Expect(again.Header.Get("Location")).To(Equal("/login"))
		})

		It("should keep signed-in users away from the login page", func() {
			login("a@b.com")

			resp := get("/login")

			Expect(resp.StatusCode).To(Equal(http.StatusSeeOther))
			Expect(resp.Header.Get("Location")).To(Equal("/dashboard"))
		})

		It("should end the session on logout", func() {
			login("a@b.com")

			resp := post("/logout", url.Values{})
			Expect(resp.StatusCode).To(Equal(http.StatusSeeOther))
			Expect(resp.Header.Get("Location")).To(Equal("/login"))

			Expect(get("/dashboard").StatusCode).To(Equal(http.StatusSeeOther))
		})

		It("should rate limit repeated sign-in attempts per client", func() {
			form := url.Values{"email": {"a@b.com"}, "password": {"wrong"}}
			for i := 0; i < 3; i++ {
				Expect(post("/login", form).StatusCode).To(Equal(http.StatusUnprocessableEntity))
			}

			Expect(post("/login", form).StatusCode).To(Equal(http.StatusTooManyRequests))
		})
	})

	Describe("role gates", func() {
		It("should turn staff away from admin pages without calling the backend", func() {
			login("a@b.com")

			resp := get("/dashboard/users")

			Expect(resp.StatusCode).To(Equal(http.StatusSeeOther))
			Expect(resp.Header.Get("Location")).To(Equal("/dashboard"))
			Expect(backend.Count(http.MethodGet, "/users")).To(BeZero())
		})

		It("should let admins manage users and departments", func() {
			login("admin@b.com")

			users := get("/dashboard/users")
			Expect(users.StatusCode).To(Equal(http.StatusOK))
			Expect(body(users)).To(ContainSubstring("Ann"))

			departments := get("/dashboard/departments")
			Expect(departments.StatusCode).To(Equal(http.StatusOK))
			Expect(body(departments)).To(ContainSubstring("IT"))
		})

		It("should show admin counts on the admin home page", func() {
			login("admin@b.com")

			resp := get("/dashboard")

			Expect(resp.StatusCode).To(Equal(http.StatusOK))
			Expect(backend.Count(http.MethodGet, "/users")).To(Equal(1))
			Expect(backend.Count(http.MethodGet, "/departments")).To(Equal(1))
		})
	})

	Describe("service endpoints", func() {
		It("should report liveness", func() {
			resp := get("/healthz")

			Expect(resp.StatusCode).To(Equal(http.StatusOK))
			Expect(body(resp)).To(MatchJSON(`{"status":"OK"}`))
		})

		It("should report readiness for the backend and cache", func() {
			resp := get("/readyz")
			Expect(resp.StatusCode).To(Equal(http.StatusOK))

			var health rest.HealthResponse
			Expect(json.NewDecoder(resp.Body).Decode(&health)).To(Succeed())
			Expect(health.Status).To(Equal(rest.HealthHealthy))
			Expect(health.Components).To(HaveKey("backend"))
			Expect(health.Components).To(HaveKey("cache"))
		})

		It("should report not ready once the backend is gone", func() {
			backend.Close()

			resp := get("/readyz")
			Expect(resp.StatusCode).To(Equal(http.StatusServiceUnavailable))

			var health rest.HealthResponse
			Expect(json.NewDecoder(resp.Body).Decode(&health)).To(Succeed())
			Expect(health.Components["backend"].Status).To(Equal(rest.HealthUnhealthy))
			Expect(health.Components["cache"].Status).To(Equal(rest.HealthHealthy))
		})

		It("should serve the backend contract", func() {
			resp := get("/contract/openapi.yml")

			Expect(resp.StatusCode).To(Equal(http.StatusOK))
			Expect(body(resp)).To(HavePrefix("openapi: 3.0.3"))
		})

		It("should expose page and backend metrics", func() {
			login("a@b.com")
			get("/dashboard/tickets")

			resp := get("/metrics")
			Expect(resp.StatusCode).To(Equal(http.StatusOK))
			text := body(resp)
			Expect(text).To(ContainSubstring(`service_desk_http_requests_total{method="GET",route="/dashboard/tickets`))
			Expect(text).To(ContainSubstring("service_desk_backend_requests_total"))
		})

		It("should serve static assets", func() {
			resp := get("/static/app.css")

			Expect(resp.StatusCode).To(Equal(http.StatusOK))
			Expect(strings.HasPrefix(resp.Header.Get("Content-Type"), "text/css")).To(BeTrue())
		})
	})

})
