package routes

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/Bigalan09/PlayShelf-sub000/internal/infra/config"
	"github.com/Bigalan09/PlayShelf-sub000/internal/transport/http/handlers"
	"github.com/Bigalan09/PlayShelf-sub000/internal/transport/http/middleware"
	"github.com/Bigalan09/PlayShelf-sub000/internal/usecase"
)

// ServiceSet groups the services the HTTP layer depends on.
type ServiceSet struct {
	Auth      *usecase.AuthService
	Passwords *usecase.PasswordService
}

// Dependencies encapsulates the objects required to register routes.
type Dependencies struct {
	Config      *config.AppConfig
	Logger      *zap.Logger
	RateLimiter *middleware.RateLimiter
	Metrics     *middleware.HTTPMetrics
	Services    ServiceSet
	Readiness   map[string]handlers.Pinger
}

// Register configures the Gin engine with routes and middleware.
func Register(deps Dependencies) *gin.Engine {
	if deps.Config.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(deps.Logger))
	if deps.Metrics != nil {
		r.Use(deps.Metrics.Handler())
	}

	authMiddleware := middleware.RequireAuth(deps.Services.Auth)

	healthHandler := handlers.NewHealthHandler(deps.Readiness)
	r.GET("/healthz", healthHandler.Status)
	r.GET("/readyz", healthHandler.Ready)

	if deps.Config.Telemetry.MetricsEnabled {
		r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	}

	api := r.Group("/api/v1")
	{
		authHandler := handlers.NewAuthHandler(deps.Services.Auth)
		passwordHandler := handlers.NewPasswordHandler(deps.Services.Passwords, deps.Logger)

		authGroup := api.Group("/auth")
		authGroup.POST("/register", withRules(deps, usecase.ScopeRegister, registerLimit(deps), authHandler.Register)...)
		authGroup.POST("/login", withRules(deps, usecase.ScopeLoginByIP, loginLimit(deps), authHandler.Login)...)
		authGroup.POST("/refresh", authHandler.Refresh)
		authGroup.POST("/logout", authHandler.Logout)
		authGroup.POST("/logout-all", authMiddleware, authHandler.LogoutAll)

		passwordGroup := authGroup.Group("/password")
		passwordGroup.POST("/forgot", withRules(deps, usecase.ScopeForgotPassword, forgotLimit(deps), passwordHandler.Forgot)...)
		passwordGroup.POST("/reset", passwordHandler.Reset)
		passwordGroup.POST("/change", authMiddleware, passwordHandler.Change)
	}

	return r
}

// withRules prepends an IP-keyed rate limit to the handler when configured.
// Email- and user-keyed limits live in the usecase layer where the key is
// known after parsing the payload.
func withRules(deps Dependencies, scope string, limit int, handler gin.HandlerFunc) []gin.HandlerFunc {
	if deps.RateLimiter == nil || limit <= 0 {
		return []gin.HandlerFunc{handler}
	}

	window := deps.Config.AbuseGuard.WindowDuration
	if window <= 0 {
		window = time.Minute
	}

	rule := middleware.RateLimitRule{
		Scope:      scope,
		Limit:      limit,
		Window:     window,
		BlockFor:   deps.Config.AbuseGuard.BlockDuration,
		Identifier: middleware.ClientIPIdentifier(),
	}

	return []gin.HandlerFunc{deps.RateLimiter.Limit(rule), handler}
}

func loginLimit(deps Dependencies) int {
	return deps.Config.AbuseGuard.LoginIPMaxAttempts
}

func registerLimit(deps Dependencies) int {
	return deps.Config.AbuseGuard.RegisterMaxAttempts
}

func forgotLimit(deps Dependencies) int {
	return deps.Config.AbuseGuard.ForgotMaxAttempts
}
