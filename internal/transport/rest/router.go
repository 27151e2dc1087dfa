package rest

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/frahmantamala/service-desk/internal/auth"
	"github.com/frahmantamala/service-desk/internal/comment"
	"github.com/frahmantamala/service-desk/internal/contract"
	"github.com/frahmantamala/service-desk/internal/dashboard"
	"github.com/frahmantamala/service-desk/internal/department"
	"github.com/frahmantamala/service-desk/internal/metrics"
	"github.com/frahmantamala/service-desk/internal/session"
	"github.com/frahmantamala/service-desk/internal/ticket"
	"github.com/frahmantamala/service-desk/internal/transport"
	"github.com/frahmantamala/service-desk/internal/transport/middleware"
	"github.com/frahmantamala/service-desk/internal/transport/swagger"
	"github.com/frahmantamala/service-desk/internal/user"
	"github.com/go-chi/chi"
	"github.com/go-chi/httprate"
)

type Handlers struct {
	Auth       *auth.Handler
	Dashboard  *dashboard.Handler
	Ticket     *ticket.Handler
	Comment    *comment.Handler
	Department *department.Handler
	User       *user.Handler
}

type RouterOptions struct {
	Store  *session.Store
	Static http.Handler

	// Metrics is nil when metrics are disabled.
	Metrics     *metrics.Recorder
	MetricsPath string

	// AuthRequestsPerMinute limits login and register posts per client IP; 0 disables it.
	AuthRequestsPerMinute int

	Checkers []Checker
	Logger   *slog.Logger
}

func RegisterAllRoutes(router *chi.Mux, h Handlers, opts RouterOptions) {
	healthHandler := NewHealthHandler(opts.Checkers...)

	router.Use(middleware.RequestID)
	router.Use(middleware.RecoveryMiddleware(opts.Logger))
	router.Use(middleware.LoggingMiddleware(opts.Logger))
	if opts.Metrics != nil {
		router.Use(opts.Metrics.Middleware)
	}

	router.Get("/healthz", healthHandler.pingHandler)
	router.Get("/readyz", healthHandler.readyHandler)
	if opts.Metrics != nil {
		router.Handle(opts.MetricsPath, opts.Metrics.Handler())
	}

	// backend contract and its UI
	router.Get(swagger.SpecPath, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/yaml")
		_, _ = w.Write(contract.Spec())
	})
	router.Handle("/swagger/*", swagger.Handler())

	if opts.Static != nil {
		router.Handle("/static/*", opts.Static)
	}

	router.Group(func(r chi.Router) {
		r.Use(transport.FlashMiddleware)
		r.Use(middleware.LoadSession(opts.Store, opts.Logger))

		r.Get("/", h.Auth.Landing)
		r.Post("/logout", h.Auth.Logout)

		r.Group(func(gr chi.Router) {
			gr.Use(middleware.GuestOnly)

			gr.Get("/login", h.Auth.LoginPage)
			gr.Get("/register", h.Auth.RegisterPage)

			gr.Group(func(lr chi.Router) {
				if opts.AuthRequestsPerMinute > 0 {
					lr.Use(httprate.LimitByIP(opts.AuthRequestsPerMinute, time.Minute))
				}
				lr.Post("/login", h.Auth.Login)
				lr.Post("/register", h.Auth.Register)
			})
		})

		r.Route("/dashboard", func(dr chi.Router) {
			dr.Use(middleware.RequireSession)

			dr.Get("/", h.Dashboard.Home)

			dr.Route("/tickets", func(tr chi.Router) {
				tr.Get("/", h.Ticket.List)
				tr.Get("/new", h.Ticket.NewForm)
				tr.Post("/new", h.Ticket.Create)
				tr.Get("/{id}", h.Ticket.Detail)
				tr.Post("/{id}", h.Ticket.Update)
				tr.Post("/{id}/status", h.Ticket.ChangeStatus)
				tr.Post("/{id}/delete", h.Ticket.Delete)
				tr.Post("/{id}/comments", h.Comment.Create)
			})

			dr.Group(func(ar chi.Router) {
				ar.Use(middleware.RequireAdmin)

				ar.Route("/departments", func(sr chi.Router) {
					sr.Get("/", h.Department.List)
					sr.Post("/", h.Department.Create)
					sr.Post("/{id}", h.Department.Update)
					sr.Post("/{id}/delete", h.Department.Delete)
				})

				ar.Route("/users", func(sr chi.Router) {
					sr.Get("/", h.User.List)
					sr.Post("/{id}/active", h.User.SetActive)
					sr.Post("/{id}/delete", h.User.Delete)
				})
			})
		})
	})
}
