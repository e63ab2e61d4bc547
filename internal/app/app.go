package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	commonmetrics "admissions-service/common/metrics"
	"admissions-service/common/telemetry"
	"admissions-service/internal/application"
	"admissions-service/internal/auth"
	"admissions-service/internal/config"
	"admissions-service/internal/db"
	"admissions-service/internal/filestore"
	"admissions-service/internal/health"
	"admissions-service/internal/kafka"
	"admissions-service/internal/messaging"
	appmetrics "admissions-service/internal/metrics"
	"admissions-service/internal/middleware"
	"admissions-service/internal/user"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/uptrace/bun"
	"go.opentelemetry.io/otel"
)

type App struct {
	config    *config.Config
	router    chi.Router
	server    *http.Server
	logger    *slog.Logger
	database  *bun.DB
	telemetry *telemetry.Telemetry
	closers   []io.Closer
}

// New wires every component from cfg. Resources opened before a failure are
// released before returning the error.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	logger.Info("initializing application", "env", cfg.Env, "version", Version)

	a := &App{
		config: cfg,
		router: chi.NewRouter(),
		logger: logger,
	}
	if err := a.init(ctx); err != nil {
		a.release(ctx)
		return nil, err
	}

	logger.Info("application initialized successfully")
	return a, nil
}

func (a *App) init(ctx context.Context) error {
	cfg := a.config

	commonMetrics := commonmetrics.NewMock()
	domainMetrics := appmetrics.NewMock()
	if cfg.Telemetry.Enabled {
		tel, err := telemetry.Init(ctx, telemetry.Options{
			ServiceName:    ServiceName,
			ServiceVersion: Version,
			Env:            cfg.Env,
			Endpoint:       cfg.Telemetry.Endpoint,
		}, a.logger)
		if err != nil {
			return fmt.Errorf("init telemetry: %w", err)
		}
		a.telemetry = tel
		commonMetrics = tel.Metrics

		domainMetrics, err = appmetrics.New(otel.Meter(ServiceName))
		if err != nil {
			return fmt.Errorf("init domain metrics: %w", err)
		}
	}

	healthHandler := health.NewHandler(commonMetrics, a.logger)

	userRepo, appRepo, err := a.repositories(ctx, commonMetrics, healthHandler)
	if err != nil {
		return err
	}

	created, err := user.SeedAdmin(ctx, userRepo, cfg.Admin.Username, cfg.Admin.Email, cfg.Admin.Password)
	if err != nil {
		return err
	}
	if created {
		a.logger.Info("admin user seeded", "username", cfg.Admin.Username)
	}

	files, err := a.fileStore(ctx)
	if err != nil {
		return err
	}

	events := a.eventPublisher(commonMetrics, healthHandler)

	if cfg.Telemetry.Enabled {
		meter := otel.Meter(ServiceName)
		if err := commonMetrics.Health.RegisterDependencies(ctx, meter, healthHandler.Dependencies()); err != nil {
			a.logger.Warn("failed to register dependency metrics", "error", err)
		}
	}

	tokens := auth.NewTokenService(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL())
	authHandler := auth.NewHandler(auth.NewService(userRepo, tokens, cfg.Auth.AllowAdminRegistration), a.logger)
	userHandler := user.NewHandler(user.NewService(userRepo), a.logger)

	maxFileSize := cfg.Upload.MaxFileSize()
	intake := application.NewIntakeService(appRepo, files, events, domainMetrics, maxFileSize, a.logger)
	review := application.NewReviewService(appRepo, events, domainMetrics, a.logger)
	applicationHandler := application.NewHandler(intake, review, maxFileSize, a.logger)

	limiter := middleware.NewRateLimiter(cfg.Server.RateLimitPerSecond, cfg.Server.RateLimitBurst, a.logger)

	a.router.Use(chimw.RequestID)
	a.router.Use(chimw.RealIP)
	a.router.Use(chimw.Recoverer)
	a.router.Use(middleware.CORS(cfg.Server.CORSOrigins))

	// Health endpoints (no auth required)
	healthHandler.RegisterRoutes(a.router)
	filestore.NewHandler(files, a.logger).RegisterRoutes(a.router)

	a.router.Route("/api", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(limiter.Middleware)
			authHandler.RegisterRoutes(r)

			r.Group(func(r chi.Router) {
				r.Use(auth.OptionalAuth(tokens))
				applicationHandler.RegisterPublicRoutes(r)
			})
		})

		r.Group(func(r chi.Router) {
			r.Use(auth.RequireAuth(tokens, a.logger))
			r.Use(auth.RequireAdmin(a.logger))
			applicationHandler.RegisterAdminRoutes(r)
			userHandler.RegisterRoutes(r)
		})
	})

	return nil
}

func (a *App) repositories(ctx context.Context, m *commonmetrics.Metrics, healthHandler *health.Handler) (user.Repository, application.Repository, error) {
	if a.config.Database.Driver == "memory" {
		a.logger.Warn("using in-memory storage; data is lost on restart")
		return user.NewMemoryRepository(), application.NewMemoryRepository(), nil
	}

	database, err := db.New(ctx, a.config.Database)
	if err != nil {
		return nil, nil, fmt.Errorf("connect database: %w", err)
	}
	a.database = database

	if err := db.RunMigrations(ctx, database, (*user.User)(nil), (*application.Application)(nil)); err != nil {
		return nil, nil, err
	}

	if a.config.Telemetry.Enabled {
		if err := m.Database.RegisterDB(database.DB, otel.Meter(ServiceName)); err != nil {
			a.logger.Warn("failed to register database pool metrics", "error", err)
		}
	}

	healthHandler.AddCheck("postgres", func(ctx context.Context) error {
		return database.PingContext(ctx)
	})

	return user.NewRepository(database, m), application.NewRepository(database, m), nil
}

func (a *App) fileStore(ctx context.Context) (filestore.Store, error) {
	storage := a.config.Storage
	if storage.Driver == "s3" {
		store, err := filestore.NewS3Store(ctx, storage.S3)
		if err != nil {
			return nil, fmt.Errorf("init s3 store: %w", err)
		}
		a.logger.Info("attachments stored in S3", "bucket", storage.S3.Bucket, "endpoint", storage.S3.BaseEndpoint)
		return store, nil
	}

	store, err := filestore.NewLocalStore(storage.LocalDir)
	if err != nil {
		return nil, err
	}
	a.logger.Info("attachments stored on local disk", "dir", storage.LocalDir)
	return store, nil
}

// eventPublisher connects to the configured broker. A broker that cannot be
// reached disables publishing instead of failing startup.
func (a *App) eventPublisher(m *commonmetrics.Metrics, healthHandler *health.Handler) application.EventPublisher {
	events := a.config.Events

	switch events.Driver {
	case "nats":
		producer, err := messaging.NewProducer(events.NATS.URL, events.NATS.SubjectPrefix, m, a.logger)
		if err != nil {
			a.logger.Warn("failed to initialize NATS producer, events disabled", "error", err)
			return application.NopPublisher()
		}
		a.closers = append(a.closers, producer)
		healthHandler.AddCheck("nats", producer.Ping)
		return producer
	case "kafka":
		producer, err := kafka.NewProducer(events.Kafka.Brokers, events.Kafka.Topic, m, a.logger)
		if err != nil {
			a.logger.Warn("failed to initialize kafka producer, events disabled", "error", err)
			return application.NopPublisher()
		}
		a.closers = append(a.closers, producer)
		return producer
	default:
		return application.NopPublisher()
	}
}

// Handler exposes the router, mainly for tests.
func (a *App) Handler() http.Handler {
	return a.router
}

func (a *App) Run() error {
	srv := a.config.Server
	a.server = &http.Server{
		Addr:         fmt.Sprintf(":%s", srv.Port),
		Handler:      a.router,
		ReadTimeout:  time.Duration(srv.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(srv.WriteTimeout) * time.Second,
		IdleTimeout:  time.Duration(srv.IdleTimeout) * time.Second,
	}

	a.logger.Info("server starting", "port", srv.Port)
	if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (a *App) Shutdown(ctx context.Context) error {
	a.logger.Info("shutting down server")

	var err error
	if a.server != nil {
		err = a.server.Shutdown(ctx)
	}
	a.release(ctx)
	return err
}

func (a *App) release(ctx context.Context) {
	for _, c := range a.closers {
		if err := c.Close(); err != nil {
			a.logger.Warn("failed to close resource", "error", err)
		}
	}
	a.closers = nil

	db.Close(a.database)
	a.database = nil

	if err := a.telemetry.Shutdown(ctx, a.logger); err != nil {
		a.logger.Warn("telemetry shutdown failed", "error", err)
	}
	a.telemetry = nil
}
