package router // package router defines how HTTP routes are registered for the API

import (
	"log/slog" // request log lines go through the application logger

	"github.com/labstack/echo/v4"                   // import the Echo web framework to handle routing
	echomw "github.com/labstack/echo/v4/middleware" // Echo's stock middleware (recover, request logger)
	"github.com/prometheus/client_golang/prometheus" // registry exposed on /metrics
	"github.com/redis/go-redis/v9"                   // rate limiter backend

	"github.com/iliyamo/salon-management/internal/config"
	"github.com/iliyamo/salon-management/internal/handler"    // import the handlers that implement business logic
	"github.com/iliyamo/salon-management/internal/metrics"    // Prometheus exposition
	"github.com/iliyamo/salon-management/internal/middleware" // authentication, roles and rate limiting
	"github.com/iliyamo/salon-management/internal/model"
)

// Deps carries everything the routes need.  Redis may be nil, in which case
// rate limiting is a pass-through.
type Deps struct {
	Auth      *handler.AuthHandler
	Salons    *handler.SalonHandler
	Guard     middleware.Authorizer
	Health    echo.HandlerFunc
	Gatherer  prometheus.Gatherer
	Metrics   *metrics.Metrics
	Redis     redis.Scripter
	RateLimit config.RateLimitConfig
	Logger    *slog.Logger
}

// New builds the Echo instance with the shared middleware and every route.
func New(d Deps) *echo.Echo {
	if d.Logger == nil {
		d.Logger = slog.Default()
	}
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(echomw.Recover())
	e.Use(requestLogger(d.Logger))

	RegisterRoutes(e, d)
	RegisterAuth(e, d)
	RegisterSalons(e, d)
	return e
}

// requestLogger writes one structured line per request.
func requestLogger(logger *slog.Logger) echo.MiddlewareFunc {
	logger = logger.With("component", "http")
	return echomw.RequestLoggerWithConfig(echomw.RequestLoggerConfig{
		LogMethod:   true,
		LogURI:      true,
		LogStatus:   true,
		LogLatency:  true,
		LogRemoteIP: true,
		LogError:    true,
		HandleError: true,
		LogValuesFunc: func(c echo.Context, v echomw.RequestLoggerValues) error {
			attrs := []slog.Attr{
				slog.String("method", v.Method),
				slog.String("uri", v.URI),
				slog.Int("status", v.Status),
				slog.Duration("latency", v.Latency),
				slog.String("remote_ip", v.RemoteIP),
			}
			level := slog.LevelInfo
			if v.Error != nil {
				level = slog.LevelError
				attrs = append(attrs, slog.Any("error", v.Error))
			}
			logger.LogAttrs(c.Request().Context(), level, "request", attrs...)
			return nil
		},
	})
}

// RegisterRoutes registers the unauthenticated operational endpoints.
func RegisterRoutes(e *echo.Echo, d Deps) {
	if d.Health != nil {
		e.GET("/healthz", d.Health)
	}
	if d.Gatherer != nil {
		e.GET("/metrics", echo.WrapHandler(metrics.Handler(d.Gatherer)))
	}
}

// RegisterAuth registers the credential endpoints of both principal types.
// Everything that accepts a secret or a refresh token is rate limited;
// logout requires a live access token of the matching role.
func RegisterAuth(e *echo.Echo, d Deps) {
	limit := middleware.NewTokenBucket(d.RateLimit, d.Redis, d.Logger, d.Metrics)

	admin := e.Group("/iam/auth/admin")
	admin.POST("/register", d.Auth.RegisterAdmin, limit)
	admin.POST("/login", d.Auth.LoginAdmin, limit)
	admin.POST("/refresh", d.Auth.Refresh, limit)
	admin.POST("/logout", d.Auth.Logout, middleware.Authenticate(d.Guard, d.Logger, model.RolePlatformAdmin))

	owners := e.Group("/iam/auth/salon-owners")
	owners.POST("/login", d.Auth.LoginOwner, limit)
	owners.POST("/refresh", d.Auth.Refresh, limit)
	owners.POST("/logout", d.Auth.Logout, middleware.Authenticate(d.Guard, d.Logger, model.RoleSalonOwner))

	e.GET("/iam/auth/me", d.Auth.Me, middleware.Authenticate(d.Guard, d.Logger))

	// The invitation link is opened by an owner who has no session yet.
	e.PATCH("/iam/admin/salons/owner/:ownerId/set-password", d.Auth.SetOwnerPassword, limit)
}

// RegisterSalons registers the salon directory.  Any signed-in principal may
// read a single salon; every other operation is for platform admins.
func RegisterSalons(e *echo.Echo, d Deps) {
	g := e.Group("/iam/admin/salons")
	auth := middleware.Authenticate(d.Guard, d.Logger)
	adminOnly := middleware.RequireRole(model.RolePlatformAdmin)

	g.POST("/create", d.Salons.Create, auth, adminOnly)
	g.GET("", d.Salons.List, auth, adminOnly)
	g.GET("/:id", d.Salons.Get, auth)
	g.PATCH("/update/:id", d.Salons.Update, auth, adminOnly)
	g.DELETE("/delete/:id", d.Salons.Delete, auth, adminOnly)
	g.DELETE("/hard-delete/:id", d.Salons.HardDelete, auth, adminOnly)
}
