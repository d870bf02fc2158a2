package app

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/Bigalan09/PlayShelf-sub000/internal/core/port"
	"github.com/Bigalan09/PlayShelf-sub000/internal/infra/config"
	"github.com/Bigalan09/PlayShelf-sub000/internal/infra/database"
	kafkainfra "github.com/Bigalan09/PlayShelf-sub000/internal/infra/kafka"
	"github.com/Bigalan09/PlayShelf-sub000/internal/infra/logger"
	redisinfra "github.com/Bigalan09/PlayShelf-sub000/internal/infra/redis"
	"github.com/Bigalan09/PlayShelf-sub000/internal/infra/security"
	postgresrepo "github.com/Bigalan09/PlayShelf-sub000/internal/repository/postgres"
	redisrepo "github.com/Bigalan09/PlayShelf-sub000/internal/repository/redis"
	"github.com/Bigalan09/PlayShelf-sub000/internal/transport/http/handlers"
	"github.com/Bigalan09/PlayShelf-sub000/internal/transport/http/middleware"
	"github.com/Bigalan09/PlayShelf-sub000/internal/transport/http/routes"
	"github.com/Bigalan09/PlayShelf-sub000/internal/usecase"
)

type Application struct {
	cfg     *config.AppConfig
	engine  *gin.Engine
	logger  *zap.Logger
	pool    *pgxpool.Pool
	redis   *redisinfra.Client
	janitor *usecase.SessionJanitor
}

func New(ctx context.Context, cfg *config.AppConfig) (*Application, error) {
	log, err := logger.New(cfg.App.Env)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	pool, err := database.NewPostgresPool(ctx, cfg.Postgres, log)
	if err != nil {
		return nil, fmt.Errorf("init postgres: %w", err)
	}

	redisClient, err := redisinfra.NewClient(cfg.Redis, log)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("init redis: %w", err)
	}

	hasher := security.NewPasswordHasher(security.Argon2Config{
		Memory:      cfg.Argon2.Memory,
		Iterations:  cfg.Argon2.Iterations,
		Parallelism: cfg.Argon2.Parallelism,
		SaltLength:  cfg.Argon2.SaltLength,
		KeyLength:   cfg.Argon2.KeyLength,
	})

	tokenIssuer, err := security.NewTokenIssuer(cfg.JWT.Secret, cfg.JWT.Issuer, cfg.JWT.AccessTokenTTL, cfg.JWT.RefreshTokenTTL)
	if err != nil {
		_ = redisClient.Close()
		pool.Close()
		return nil, fmt.Errorf("init token issuer: %w", err)
	}

	repos := postgresrepo.NewRepositories(pool)
	guardStore := redisrepo.NewAbuseGuardStore(redisClient.Client(), cfg.Redis.GuardKeyPrefix)

	var eventPublisher port.EventPublisher
	if len(cfg.Kafka.Brokers) > 0 {
		kafkaProducer, err := kafkainfra.NewProducer(cfg.Kafka, log)
		if err != nil {
			log.Warn("failed to init kafka producer, using stub publisher", zap.Error(err))
			eventPublisher = kafkainfra.NewStubPublisher(log)
		} else {
			eventPublisher = kafkainfra.NewEventPublisher(kafkaProducer, cfg.App, log)
			log.Info("kafka event publisher initialized", zap.Strings("brokers", cfg.Kafka.Brokers))
		}
	} else {
		log.Info("kafka brokers not configured, using stub publisher")
		eventPublisher = kafkainfra.NewStubPublisher(log)
	}

	passwordValidator := security.DefaultPasswordValidator()
	guard := usecase.NewAbuseGuard(guardStore, cfg.AbuseGuard, log)

	authService := usecase.NewAuthService(
		repos.Identities,
		repos.Sessions,
		repos.Attempts,
		hasher,
		tokenIssuer,
		passwordValidator,
		guard,
		eventPublisher,
		log,
	)

	passwordService := usecase.NewPasswordService(
		repos.Identities,
		repos.Sessions,
		repos.ResetTokens,
		hasher,
		passwordValidator,
		guard,
		eventPublisher,
		cfg.Sessions.ResetTokenTTL,
		log,
	)

	janitor := usecase.NewSessionJanitor(repos.Sessions, cfg.Sessions.CleanupInterval, log)

	var metrics *middleware.HTTPMetrics
	if cfg.Telemetry.MetricsEnabled {
		metrics, err = middleware.NewHTTPMetrics(middleware.HTTPMetricsOptions{Namespace: "auth"})
		if err != nil {
			_ = redisClient.Close()
			pool.Close()
			return nil, fmt.Errorf("init metrics: %w", err)
		}

		issuerMetrics, err := usecase.NewIssuerMetrics(nil)
		if err != nil {
			_ = redisClient.Close()
			pool.Close()
			return nil, fmt.Errorf("init issuer metrics: %w", err)
		}
		authService.WithMetrics(issuerMetrics)
		guard.WithMetrics(issuerMetrics)
	}

	engine := routes.Register(routes.Dependencies{
		Config:      cfg,
		Logger:      log,
		RateLimiter: middleware.NewRateLimiter(guardStore, log),
		Metrics:     metrics,
		Readiness: map[string]handlers.Pinger{
			"postgres": pool,
			"redis":    redisPinger{redisClient},
		},
		Services: routes.ServiceSet{
			Auth:      authService,
			Passwords: passwordService,
		},
	})

	return &Application{
		cfg:     cfg,
		engine:  engine,
		logger:  log,
		pool:    pool,
		redis:   redisClient,
		janitor: janitor,
	}, nil
}

// redisPinger adapts the redis client's health check to the handlers.Pinger
// shape.
type redisPinger struct {
	client *redisinfra.Client
}

func (p redisPinger) Ping(ctx context.Context) error {
	return p.client.HealthCheck(ctx)
}

func (a *Application) Run(ctx context.Context) error {
	defer func() {
		_ = a.logger.Sync()
	}()
	defer func() {
		if a.pool != nil {
			a.pool.Close()
		}
	}()
	defer func() {
		if a.redis != nil {
			_ = a.redis.Close()
		}
	}()

	janitorCtx, cancelJanitor := context.WithCancel(ctx)
	defer cancelJanitor()
	go a.janitor.Run(janitorCtx)

	srv := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", a.cfg.App.Host, a.cfg.App.Port),
		Handler:           a.engine,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	a.logger.Info("starting auth API",
		zap.String("env", a.cfg.App.Env),
		zap.String("address", srv.Addr),
	)

	serverErrCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErrCh <- fmt.Errorf("run server: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown server: %w", err)
		}
		return nil
	case err := <-serverErrCh:
		return err
	}
}
