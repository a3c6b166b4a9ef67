package routes

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/StoryTeller-v2/back-end/internal/infra/config"
	"github.com/StoryTeller-v2/back-end/internal/transport/http/handlers"
	"github.com/StoryTeller-v2/back-end/internal/transport/http/middleware"
	"github.com/StoryTeller-v2/back-end/internal/usecase"
)

// ServiceSet groups the services the HTTP layer depends on.
type ServiceSet struct {
	Auth         *usecase.AuthService
	Registration *usecase.RegistrationService
	Emails       *usecase.EmailVerificationService
}

// Dependencies encapsulates the objects required to register routes.
type Dependencies struct {
	Config   *config.AppConfig
	Logger   *zap.Logger
	Services ServiceSet
	Gate     *usecase.AccessGate
	Metrics  *middleware.HTTPMetrics
	// MetricsHandler serves /metrics. Defaults to promhttp.Handler().
	MetricsHandler http.Handler
	Database       DatabaseChecker
	Cache          CacheChecker
}

// DatabaseChecker exposes readiness behaviour for database connections.
type DatabaseChecker interface {
	Ping(ctx context.Context) error
}

// CacheChecker exposes readiness behaviour for cache backends.
type CacheChecker interface {
	HealthCheck(ctx context.Context) error
}

// Register configures the Gin engine with routes and middleware.
func Register(deps Dependencies) (*gin.Engine, error) {
	if deps.Config == nil {
		return nil, errors.New("routes: config is required")
	}
	if deps.Gate == nil || deps.Services.Auth == nil {
		return nil, errors.New("routes: access gate and auth service are required")
	}
	if deps.Config.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	if err := handlers.RegisterValidators(); err != nil {
		return nil, fmt.Errorf("routes: register validators: %w", err)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.EnrichContext())
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(deps.Logger))
	r.Use(middleware.CORS(deps.Config.App.CORSOrigins))
	r.Use(deps.Metrics.Handler())
	// Logout is decided by the refresh token alone, so it runs ahead of the
	// access gate and a stale access header cannot block it.
	r.Use(middleware.LogoutFilter(deps.Services.Auth))
	r.Use(middleware.Authenticate(deps.Gate))

	healthOptions := make([]handlers.HealthOption, 0, 2)
	if deps.Database != nil {
		healthOptions = append(healthOptions, handlers.WithHealthCheck("postgres", deps.Database.Ping))
	}
	if deps.Cache != nil {
		healthOptions = append(healthOptions, handlers.WithHealthCheck("redis", deps.Cache.HealthCheck))
	}
	app := deps.Config.App
	r.GET("/healthCheck", handlers.NewHealthHandler(app.Env, app.Host, app.Port, healthOptions...).Status)

	metricsHandler := deps.MetricsHandler
	if metricsHandler == nil {
		metricsHandler = promhttp.Handler()
	}
	r.GET("/metrics", gin.WrapH(metricsHandler))

	handlers.NewAuthHandler(deps.Services.Auth).RegisterRoutes(r)

	if deps.Services.Registration != nil && deps.Services.Emails != nil {
		handlers.NewRegistrationHandler(deps.Services.Registration, deps.Services.Emails).RegisterRoutes(r)
	}

	r.GET("/test", handlers.WhoAmI)

	return r, nil
}
