package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/potrail/identity/internal/auth"
	"github.com/potrail/identity/internal/config"
	"github.com/potrail/identity/internal/email"
	"github.com/potrail/identity/internal/event"
	handler "github.com/potrail/identity/internal/handler/http"
	"github.com/potrail/identity/internal/mfa"
	"github.com/potrail/identity/internal/password"
	"github.com/potrail/identity/internal/repository/postgres"
	"github.com/potrail/identity/internal/scheduler"
	"github.com/potrail/identity/internal/service"
	"github.com/potrail/identity/migrations"
	"github.com/potrail/identity/pkg/database"
	"github.com/potrail/identity/pkg/health"
	pkgkafka "github.com/potrail/identity/pkg/kafka"
	"github.com/potrail/identity/pkg/middleware"
)

// App wires together all dependencies and runs the identity service.
type App struct {
	cfg        *config.Config
	logger     *slog.Logger
	pool       *pgxpool.Pool
	producer   *pkgkafka.Producer
	scheduler  *scheduler.Scheduler
	httpServer *http.Server
}

// NewApp creates a new application instance, initializing all dependencies.
func NewApp(cfg *config.Config, logger *slog.Logger) (*App, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// Initialize PostgreSQL connection pool.
	pgCfg := database.DefaultPostgresConfig()
	pgCfg.Host = cfg.PostgresHost
	pgCfg.Port = cfg.PostgresPort
	pgCfg.User = cfg.PostgresUser
	pgCfg.Password = cfg.PostgresPass
	pgCfg.DBName = cfg.PostgresDB
	pgCfg.SSLMode = cfg.PostgresSSL

	pool, err := database.NewPostgresPoolWithLogger(ctx, &pgCfg, logger)
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}
	logger.Info("connected to PostgreSQL",
		slog.String("host", cfg.PostgresHost),
		slog.Int("port", cfg.PostgresPort),
		slog.String("database", cfg.PostgresDB),
	)
	database.RegisterPoolMetrics(pool, "identity")

	// Run database migrations.
	if err := database.RunMigrations(ctx, pool, migrations.FS, logger); err != nil {
		pool.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	logger.Info("database migrations completed")

	// Initialize Kafka producer.
	kafkaCfg := pkgkafka.DefaultProducerConfig(cfg.KafkaBrokers)
	producer := pkgkafka.NewProducer(kafkaCfg, logger)
	logger.Info("kafka producer initialized", slog.Any("brokers", cfg.KafkaBrokers))

	// Email delivery.
	mailer, err := email.NewSender(email.Config{
		Provider:      cfg.EmailProvider,
		SMTPHost:      cfg.SMTPHost,
		SMTPPort:      strconv.Itoa(cfg.SMTPPort),
		Username:      cfg.SMTPUsername,
		Password:      cfg.SMTPPassword,
		From:          cfg.EmailFrom,
		MailgunDomain: cfg.MailgunDomain,
		MailgunKey:    cfg.MailgunAPIKey,
		BaseURL:       cfg.ExternalURL,
	})
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("init email sender: %w", err)
	}

	// Signing secrets are generated at startup; outstanding tokens do
	// not survive a restart.
	secrets := auth.NewSecretStore()
	tokens := auth.NewTokenManager(secrets, cfg.JWTExpiry, cfg.JWTIssuer)

	sched := scheduler.New(logger)
	sched.Schedule(cfg.RotateInterval, func(ctx context.Context, _ *scheduler.Handle) error {
		secrets.Rotate()
		logger.InfoContext(ctx, "signing secret rotated")
		return nil
	})

	// Build the dependency graph.
	store := postgres.NewStore(pool)
	eventProducer := event.NewProducer(producer, logger)
	identityService := service.NewIdentityService(
		store,
		password.NewHasher(),
		tokens,
		mfa.NewEngine(cfg.MFAIssuer),
		mailer,
		eventProducer,
		sched,
		cfg.RequestTTL,
		logger,
	)

	// Health checks.
	healthHandler := health.NewHandler()
	healthHandler.Register("postgres", func(ctx context.Context) error {
		return pool.Ping(ctx)
	})
	healthHandler.Register("kafka", func(ctx context.Context) error {
		return producer.Ping(ctx)
	})

	// HTTP router.
	router := handler.NewRouter(identityService, tokens, healthHandler, logger, middleware.CORSConfig{
		AllowedOrigins: cfg.CORSAllowedOrigins,
		Environment:    cfg.Environment,
	})

	httpServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:           router,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
		ReadHeaderTimeout: 10 * time.Second,
	}

	return &App{
		cfg:        cfg,
		logger:     logger,
		pool:       pool,
		producer:   producer,
		scheduler:  sched,
		httpServer: httpServer,
	}, nil
}

// Run starts the HTTP server and blocks until the context is canceled.
func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, 1)

	go func() {
		a.logger.Info("starting HTTP server",
			slog.String("addr", a.httpServer.Addr),
		)
		if err := a.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- fmt.Errorf("http server: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		a.logger.Info("shutdown signal received")
	case err := <-errCh:
		return err
	}

	return a.Shutdown()
}

// Shutdown gracefully stops all components in the correct order:
// 1. HTTP server (drain in-flight requests)
// 2. Scheduler (wait for an in-flight sweep; pending timers are abandoned)
// 3. Kafka producer
// 4. PostgreSQL pool
func (a *App) Shutdown() error {
	a.logger.Info("shutting down application...")

	var errs []error

	// 1. Drain in-flight HTTP requests (5s budget).
	httpCtx, httpCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer httpCancel()
	if err := a.httpServer.Shutdown(httpCtx); err != nil {
		a.logger.Error("http server shutdown error", slog.String("error", err.Error()))
		errs = append(errs, err)
	}

	// 2. Stop the scheduler (3s budget).
	schedCtx, schedCancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer schedCancel()
	if err := a.scheduler.Shutdown(schedCtx); err != nil {
		a.logger.Error("scheduler shutdown error", slog.String("error", err.Error()))
		errs = append(errs, err)
	}

	// 3. Close Kafka producer.
	if err := a.producer.Close(); err != nil {
		a.logger.Error("kafka producer close error", slog.String("error", err.Error()))
		errs = append(errs, err)
	}

	// 4. Close PostgreSQL pool.
	a.pool.Close()

	a.logger.Info("application shutdown complete")
	return errors.Join(errs...)
}
