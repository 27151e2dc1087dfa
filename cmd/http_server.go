package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/frahmantamala/service-desk/internal"
	"github.com/frahmantamala/service-desk/internal/apiclient"
	"github.com/frahmantamala/service-desk/internal/auth"
	authRemote "github.com/frahmantamala/service-desk/internal/auth/remote"
	"github.com/frahmantamala/service-desk/internal/comment"
	commentRemote "github.com/frahmantamala/service-desk/internal/comment/remote"
	"github.com/frahmantamala/service-desk/internal/contract"
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
	"github.com/frahmantamala/service-desk/pkg/logger"

	"github.com/go-chi/chi"
	"github.com/spf13/cobra"
)

var httpServerCmd = &cobra.Command{
	Use:   "server",
	Short: "Start HTTP server",
	Long:  `Start the dashboard HTTP server in front of the helpdesk API`,
	Run: func(cmd *cobra.Command, args []string) {
		startHTTPServer()
	},
}

type Dependencies struct {
	Config  *internal.Config
	Router  *chi.Mux
	Cache   *querycache.Cache
	Metrics *metrics.Recorder
	Logger  *slog.Logger
}

func startHTTPServer() {
	deps, err := initializeDependencies(context.Background())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize dependencies: %v\n", err)
		os.Exit(1)
	}

	addr := fmt.Sprintf(":%d", deps.Config.Server.Port)
	deps.Logger.Info("Starting HTTP server",
		"address", addr,
		"backend", deps.Config.Backend.BaseURL,
		"cache", deps.Config.Cache.Driver)

	server := &http.Server{
		Addr:              addr,
		Handler:           deps.Router,
		ReadHeaderTimeout: deps.Config.Server.ReadHeaderTimeout,
		ReadTimeout:       deps.Config.Server.ReadTimeout,
		WriteTimeout:      deps.Config.Server.WriteTimeout,
		IdleTimeout:       deps.Config.Server.IdleTimeout,
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	serverErrChan := make(chan error, 1)
	go func() {
		serverErrChan <- server.ListenAndServe()
	}()

	select {
	case sig := <-sigChan:
		deps.Logger.Info("Received signal, shutting down...", "signal", sig)
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := server.Shutdown(ctx); err != nil {
			deps.Logger.Error("Server shutdown error", "error", err)
		}
	case err := <-serverErrChan:
		if err != nil && err != http.ErrServerClosed {
			deps.Logger.Error("Server failed to start", "error", err)
			os.Exit(1)
		}
	}

	if err := deps.Cache.Close(); err != nil {
		deps.Logger.Error("Cache close error", "error", err)
	}
	deps.Logger.Info("Server stopped")
}

func initializeDependencies(ctx context.Context) (*Dependencies, error) {
	config, err := loadConfig(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	logger.Configure(config.Observability.Logging.Level, config.Observability.Logging.Format)
	lg := logger.LoggerWrapper()

	var recorder *metrics.Recorder
	if config.Observability.Metrics.Enabled {
		recorder = metrics.NewRecorder()
	}

	client, err := initAPIClient(ctx, config.Backend, recorder, lg)
	if err != nil {
		return nil, err
	}

	cache, err := initCache(ctx, config.Cache, recorder, lg)
	if err != nil {
		return nil, err
	}

	store, err := session.NewStore(session.StoreConfig{
		CookieName: config.Session.CookieName,
		Secret:     config.Session.Secret,
		MaxAge:     config.Session.MaxAge,
		Secure:     config.Session.Secure,
	})
	if err != nil {
		_ = cache.Close()
		return nil, fmt.Errorf("failed to create session store: %w", err)
	}

	bus := events.NewEventBus(lg)
	invalidation.NewSubscriber(invalidation.Dependencies, cache, lg).Register(bus)

	var uploadObserver upload.Observer
	if recorder != nil {
		uploadObserver = recorder
	}
	uploads := upload.NewService(client, config.Backend.UploadConcurrency, uploadObserver, lg)

	authService := auth.NewService(authRemote.NewAuthRepository(client), bus, lg)
	departmentService := department.NewService(departmentRemote.NewDepartmentRepository(client), cache, bus, lg)
	userService := user.NewService(userRemote.NewUserRepository(client), cache, bus, lg)
	commentService := comment.NewService(commentRemote.NewCommentRepository(client), cache, bus, lg)
	ticketService := ticket.NewService(ticketRemote.NewTicketRepository(client), uploads, cache, bus, lg)
	dashboardService := dashboard.NewService(ticketService, userService, departmentService, lg)

	view, err := web.NewRenderer()
	if err != nil {
		_ = cache.Close()
		return nil, fmt.Errorf("failed to parse templates: %w", err)
	}
	base := transport.NewBaseHandler(lg, view)

	router := chi.NewRouter()
	rest.RegisterAllRoutes(router, rest.Handlers{
		Auth:       auth.NewHandler(base, authService),
		Dashboard:  dashboard.NewHandler(base, dashboardService),
		Ticket:     ticket.NewHandler(base, ticketService, departmentService, commentService),
		Comment:    comment.NewHandler(base, commentService),
		Department: department.NewHandler(base, departmentService),
		User:       user.NewHandler(base, userService),
	}, rest.RouterOptions{
		Store:                 store,
		Static:                web.Static(),
		Metrics:               recorder,
		MetricsPath:           config.Observability.Metrics.Path,
		AuthRequestsPerMinute: config.RateLimit.AuthRequestsPerMinute,
		Checkers: []rest.Checker{
			{Name: "backend", Check: client.Ping},
			{Name: "cache", Check: cache.Ping},
		},
		Logger: lg,
	})

	return &Dependencies{
		Config:  config,
		Router:  router,
		Cache:   cache,
		Metrics: recorder,
		Logger:  lg,
	}, nil
}

func initAPIClient(ctx context.Context, cfg internal.BackendConfig, recorder *metrics.Recorder, lg *slog.Logger) (*apiclient.Client, error) {
	var opts []apiclient.Option
	if recorder != nil {
		opts = append(opts, apiclient.WithObserver(recorder))
	}

	if cfg.ValidateResponses {
		validator, err := contract.Load(ctx, cfg.BaseURL)
		if err != nil {
			return nil, fmt.Errorf("failed to load backend contract: %w", err)
		}
		opts = append(opts, apiclient.WithValidator(validator))
	}

	client, err := apiclient.NewClient(apiclient.Config{
		BaseURL:       cfg.BaseURL,
		Timeout:       cfg.Timeout,
		UploadTimeout: cfg.UploadTimeout,
	}, lg, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create backend client: %w", err)
	}
	return client, nil
}

func initCache(ctx context.Context, cfg internal.CacheConfig, recorder *metrics.Recorder, lg *slog.Logger) (*querycache.Cache, error) {
	var store querycache.Store
	switch cfg.Driver {
	case "redis":
		redisStore, err := querycache.NewRedisStore(ctx, querycache.RedisOptions{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to connect to redis: %w", err)
		}
		store = redisStore
	default:
		store = querycache.NewMemoryStore()
	}

	var opts []querycache.Option
	if recorder != nil {
		opts = append(opts, querycache.WithObserver(recorder))
	}
	return querycache.New(store, cfg.TTL, lg, opts...), nil
}
