package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/StoryTeller-v2/back-end/internal/core/port"
	"github.com/StoryTeller-v2/back-end/internal/infra/config"
	"github.com/StoryTeller-v2/back-end/internal/infra/database"
	kafkainfra "github.com/StoryTeller-v2/back-end/internal/infra/kafka"
	"github.com/StoryTeller-v2/back-end/internal/infra/logger"
	"github.com/StoryTeller-v2/back-end/internal/infra/mail"
	redisinfra "github.com/StoryTeller-v2/back-end/internal/infra/redis"
	"github.com/StoryTeller-v2/back-end/internal/infra/security"
	"github.com/StoryTeller-v2/back-end/internal/infra/social"
	"github.com/StoryTeller-v2/back-end/internal/infra/telemetry"
	postgresrepo "github.com/StoryTeller-v2/back-end/internal/repository/postgres"
	redisrepo "github.com/StoryTeller-v2/back-end/internal/repository/redis"
	"github.com/StoryTeller-v2/back-end/internal/transport/http/middleware"
	"github.com/StoryTeller-v2/back-end/internal/transport/http/routes"
	"github.com/StoryTeller-v2/back-end/internal/usecase"
)

type Application struct {
	cfg      *config.AppConfig
	engine   *gin.Engine
	logger   *zap.Logger
	pool     *pgxpool.Pool
	redis    *redisinfra.Client
	producer *kafkainfra.Producer
	tracer   *telemetry.TracerProvider
}

// New wires every dependency. Resources opened before a failure are released.
func New(ctx context.Context, cfg *config.AppConfig) (_ *Application, err error) {
	log, err := logger.New(cfg.App.Env)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	a := &Application{cfg: cfg, logger: log}
	defer func() {
		if err != nil {
			a.close(context.Background())
		}
	}()

	if cfg.Telemetry.TracingEnabled {
		a.tracer, err = telemetry.NewTracerProvider(ctx, cfg.Telemetry, cfg.App.Env, log)
		if err != nil {
			return nil, fmt.Errorf("init tracing: %w", err)
		}
	}

	if cfg.Postgres.MigrateOnStart {
		if err := database.RunMigrations(cfg.Postgres.URL(), log); err != nil {
			return nil, fmt.Errorf("run migrations: %w", err)
		}
	}

	a.pool, err = database.NewPostgresPool(ctx, cfg.Postgres, log)
	if err != nil {
		return nil, fmt.Errorf("init postgres: %w", err)
	}

	a.redis, err = redisinfra.NewClient(ctx, cfg.Redis, log)
	if err != nil {
		return nil, fmt.Errorf("init redis: %w", err)
	}

	codec, err := security.NewTokenCodec([]byte(cfg.JWT.Secret))
	if err != nil {
		return nil, fmt.Errorf("init token codec: %w", err)
	}

	hasher, err := security.NewArgon2Hasher(port.Argon2Params{
		Memory:      cfg.Argon2.Memory,
		Iterations:  cfg.Argon2.Iterations,
		Parallelism: cfg.Argon2.Parallelism,
		SaltLength:  cfg.Argon2.SaltLength,
		KeyLength:   cfg.Argon2.KeyLength,
	})
	if err != nil {
		return nil, fmt.Errorf("init password hasher: %w", err)
	}

	var events port.EventPublisher
	if cfg.Kafka.Enabled {
		a.producer, err = kafkainfra.NewProducer(cfg.Kafka, log)
		if err != nil {
			log.Warn("failed to init kafka producer, using stub publisher", zap.Error(err))
			events = kafkainfra.NewStubPublisher(log)
		} else {
			events = kafkainfra.NewEventPublisher(a.producer, cfg.App, log)
		}
	} else {
		log.Info("kafka disabled, using stub publisher")
		events = kafkainfra.NewStubPublisher(log)
	}

	authMetrics, err := telemetry.NewAuthMetrics(prometheus.DefaultRegisterer)
	if err != nil {
		return nil, fmt.Errorf("init auth metrics: %w", err)
	}
	httpMetrics, err := middleware.NewHTTPMetrics(middleware.HTTPMetricsOptions{})
	if err != nil {
		return nil, fmt.Errorf("init http metrics: %w", err)
	}

	httpClient := &http.Client{Timeout: cfg.Social.HTTPTimeout}
	providers := social.NewRegistry(log,
		social.NewGoogleVerifier(social.GoogleConfig{
			ClientID:     cfg.Social.GoogleClientID,
			TokenInfoURL: cfg.Social.GoogleTokenInfoURL,
			HTTPClient:   httpClient,
		}),
		social.NewKakaoVerifier(social.KakaoConfig{
			UserInfoURL: cfg.Social.KakaoUserInfoURL,
			HTTPClient:  httpClient,
		}),
	)

	repos := postgresrepo.NewRepositories(a.pool)
	redisClient := a.redis.Client()

	authService, err := usecase.NewAuthService(usecase.AuthDependencies{
		Credentials: usecase.NewCredentialVerifier(repos.LocalUsers, hasher),
		LocalUsers:  repos.LocalUsers,
		SocialUsers: repos.SocialUsers,
		Social:      providers,
		Sessions:    redisrepo.NewSessionStore(redisClient, cfg.JWT.RefreshTokenTTL),
		Codec:       codec,
		Events:      events,
		Metrics:     authMetrics,
		Logger:      log,
		AccessTTL:   cfg.JWT.AccessTokenTTL,
		RefreshTTL:  cfg.JWT.RefreshTokenTTL,
	})
	if err != nil {
		return nil, fmt.Errorf("init auth service: %w", err)
	}

	registrationService := usecase.NewRegistrationService(
		repos.LocalUsers, repos.SocialUsers, hasher, security.DefaultStrengthPolicy(), events, authMetrics, log,
	)
	emailService := usecase.NewEmailVerificationService(
		repos.LocalUsers, repos.SocialUsers, redisrepo.NewVerificationCodeStore(redisClient), mail.New(cfg.Mail, log), cfg.Mail.CodeTTL, log,
	)

	gate, err := usecase.NewAccessGate(codec)
	if err != nil {
		return nil, fmt.Errorf("init access gate: %w", err)
	}

	a.engine, err = routes.Register(routes.Dependencies{
		Config:   cfg,
		Logger:   log,
		Gate:     gate,
		Metrics:  httpMetrics,
		Database: a.pool,
		Cache:    a.redis,
		Services: routes.ServiceSet{
			Auth:         authService,
			Registration: registrationService,
			Emails:       emailService,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("init routes: %w", err)
	}

	return a, nil
}

// Run serves HTTP until ctx is canceled or the server fails, then shuts down
// and releases every backing connection.
func (a *Application) Run(ctx context.Context) error {
	defer func() {
		_ = a.logger.Sync()
	}()

	srv := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", a.cfg.App.Host, a.cfg.App.Port),
		Handler:           a.engine,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       a.cfg.App.ReadTimeout,
		WriteTimeout:      a.cfg.App.WriteTimeout,
		IdleTimeout:       60 * time.Second,
	}

	a.logger.Info("starting StoryTeller API",
		zap.String("env", a.cfg.App.Env),
		zap.String("address", srv.Addr),
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("run server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), a.shutdownTimeout())
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown server: %w", err)
		}
		a.logger.Info("http server stopped")
		return nil
	})

	err := g.Wait()

	closeCtx, cancel := context.WithTimeout(context.Background(), a.shutdownTimeout())
	defer cancel()
	a.close(closeCtx)

	return err
}

func (a *Application) shutdownTimeout() time.Duration {
	if a.cfg.App.ShutdownTimeout > 0 {
		return a.cfg.App.ShutdownTimeout
	}
	return 10 * time.Second
}

// close releases resources in reverse order of acquisition. Nil members are skipped.
func (a *Application) close(ctx context.Context) {
	if a.producer != nil {
		if err := a.producer.Close(); err != nil {
			a.logger.Warn("close kafka producer", zap.Error(err))
		}
	}
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			a.logger.Warn("close redis", zap.Error(err))
		}
	}
	if a.pool != nil {
		a.pool.Close()
	}
	if err := a.tracer.Shutdown(ctx); err != nil {
		a.logger.Warn("shutdown tracer", zap.Error(err))
	}
}
