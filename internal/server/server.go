package server

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"github.com/tasklist/apiserver/config"
	"github.com/tasklist/apiserver/internal/db"
	"github.com/tasklist/apiserver/internal/handlers"
	"github.com/tasklist/apiserver/internal/mq"
	"github.com/tasklist/apiserver/internal/observability"
	"github.com/tasklist/apiserver/internal/ratelimit"
	"github.com/tasklist/apiserver/internal/services"
	"github.com/tasklist/apiserver/internal/storage"
	"github.com/tasklist/apiserver/internal/store"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"
)

const requestTimeout = 60 * time.Second

// Server wraps the HTTP server and router.
type Server struct {
	httpServer *http.Server
	router     chi.Router
	logger     *zap.Logger
	db         *sql.DB
	queue      *mq.MQ
	redis      *redis.Client
	tracerStop func(context.Context) error
}

// Dependencies are the collaborators the router is built from.
type Dependencies struct {
	Logger      *zap.Logger
	Metrics     *observability.Metrics
	UserService *services.UserService
	TaskService *services.TaskService
	Assets      *storage.Storage
	Limiter     ratelimit.Limiter
	Ping        func(ctx context.Context) error

	// TrustProxyHeaders takes the client address from X-Forwarded-For and
	// X-Real-IP. Enable it only behind a proxy that overwrites them.
	TrustProxyHeaders bool
}

// NewRouter wires middleware and routes. A nil Limiter disables rate
// limiting; a nil Metrics disables /metrics.
func NewRouter(deps Dependencies) (chi.Router, error) {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	pages, err := handlers.NewPageHandler(deps.Assets, logger)
	if err != nil {
		return nil, fmt.Errorf("load templates: %w", err)
	}
	auth := handlers.NewAuthHandler(deps.UserService, logger)

	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	if deps.TrustProxyHeaders {
		router.Use(middleware.RealIP)
	}
	router.Use(
		middleware.Recoverer,
		observability.RequestLogger(logger),
	)
	if deps.Metrics != nil {
		router.Use(deps.Metrics.Middleware)
		router.Method(http.MethodGet, "/metrics", deps.Metrics.Handler())
	}
	router.Get("/healthz", handlers.Healthz(deps.Ping))

	router.Group(func(r chi.Router) {
		if deps.Limiter != nil {
			r.Use(ratelimit.Middleware(deps.Limiter, logger))
		}
		r.Use(middleware.Timeout(requestTimeout))

		handlers.AuthRouter(r, auth)
		handlers.PageRouter(r, pages, auth.RequireAuth)
		r.Route("/tasks", func(r chi.Router) {
			handlers.TaskRouter(r, deps.TaskService, auth.RequireAuth, logger)
		})
	})

	return router, nil
}

// New constructs a Server and every backing client selected by cfg.
func New(ctx context.Context, cfg config.Config) (*Server, error) {
	logger, err := observability.NewLogger(cfg.Env, cfg.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	s := &Server{logger: logger}
	ok := false
	defer func() {
		if !ok {
			_ = s.Shutdown(context.Background())
		}
	}()

	s.tracerStop, err = observability.InitTracer(ctx, cfg.Telemetry.ServiceName, cfg.Telemetry.OTLPEndpoint)
	if err != nil {
		return nil, fmt.Errorf("init tracer: %w", err)
	}

	s.db, err = db.Open(ctx, cfg)
	if err != nil {
		return nil, err
	}
	if cfg.Database.AutoMigrate {
		if err := db.MigrateUp(db.URL(cfg.Database)); err != nil {
			return nil, err
		}
		logger.Info("database migrations applied")
	}

	scheme, err := services.NewCredentialScheme(cfg.Auth.CredentialScheme, cfg.Auth.BcryptCost)
	if err != nil {
		return nil, err
	}
	userService, err := services.NewUserService(store.NewUserRepository(s.db), scheme)
	if err != nil {
		return nil, err
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	metrics := observability.NewMetrics(registry)

	taskOpts := []services.TaskServiceOption{services.WithLogger(logger)}
	s.queue, err = mq.Open(ctx, cfg.MQ)
	if err != nil {
		return nil, err
	}
	if s.queue != nil {
		publisher := services.NewMQEventPublisher(s.queue, cfg.MQ.TaskEventsChannel, metrics.TaskEventsPublished)
		taskOpts = append(taskOpts, services.WithEventPublisher(publisher))
		logger.Info("publishing task events",
			zap.String("backend", cfg.MQ.Backend),
			zap.String("channel", cfg.MQ.TaskEventsChannel))
	}
	taskService := services.NewTaskService(store.NewTaskRepository(s.db), taskOpts...)

	assets, err := storage.Open(ctx, cfg.Assets)
	if err != nil {
		return nil, err
	}

	var limiter ratelimit.Limiter
	if cfg.RateLimit.Requests > 0 {
		if cfg.RateLimit.RedisURL != "" {
			s.redis, err = ratelimit.NewRedisClient(ctx, cfg.RateLimit.RedisURL)
			if err != nil {
				return nil, err
			}
			limiter = ratelimit.NewRedisLimiter(s.redis, cfg.RateLimit.Requests, cfg.RateLimit.Window)
		} else {
			limiter = ratelimit.NewMemoryLimiter(cfg.RateLimit.Requests, cfg.RateLimit.Window)
		}
	}

	s.router, err = NewRouter(Dependencies{
		Logger:      logger,
		Metrics:     metrics,
		UserService: userService,
		TaskService: taskService,
		Assets:      assets,
		Limiter:     limiter,
		Ping:        s.db.PingContext,

		TrustProxyHeaders: cfg.TrustProxyHeaders,
	})
	if err != nil {
		return nil, err
	}

	port := cfg.ServerPort
	if port == 0 {
		port = 8000
	}

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      otelhttp.NewHandler(s.router, "todo-apiserver"),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	ok = true
	return s, nil
}

// Start runs the HTTP server. It returns nil after a graceful shutdown.
func (s *Server) Start() error {
	s.logger.Info("server listening", zap.String("addr", s.httpServer.Addr))
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown drains in-flight requests and closes every backing client.
func (s *Server) Shutdown(ctx context.Context) error {
	var errs []error
	if s.httpServer != nil {
		if err := s.httpServer.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("http shutdown: %w", err))
		}
	}
	if s.queue != nil {
		if err := s.queue.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close mq: %w", err))
		}
	}
	if s.redis != nil {
		if err := s.redis.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close redis: %w", err))
		}
	}
	if s.db != nil {
		if err := s.db.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close db: %w", err))
		}
	}
	if s.tracerStop != nil {
		if err := s.tracerStop(ctx); err != nil {
			errs = append(errs, fmt.Errorf("stop tracer: %w", err))
		}
	}
	_ = s.logger.Sync()
	return errors.Join(errs...)
}
