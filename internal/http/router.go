package http

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/tingyu91/snsjf/internal/config"
	"github.com/tingyu91/snsjf/internal/http/handlers"
	"github.com/tingyu91/snsjf/internal/http/middlewares"
	"github.com/tingyu91/snsjf/internal/observability"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
)

const maxBodyBytes = 1 << 20

// Deps is everything the router needs. Stores and services are built once
// by the caller and shared across requests.
type Deps struct {
	Cfg        config.Config
	Auth       handlers.AuthService
	Sessions   SessionService
	Strategies handlers.StrategyRegistry
	Roles      handlers.RoleStore
	Authz      AuthzService
	Prom       *observability.Prom
	// Gatherer serves /metrics; nil skips the route.
	Gatherer prometheus.Gatherer
	// Ping backs /readyz; nil means always ready.
	Ping func() error
}

type SessionService interface {
	handlers.SessionManager
	middlewares.SessionReader
}

type AuthzService interface {
	handlers.PermissionLister
	handlers.Invalidator
	middlewares.PermissionChecker
}

func NewRouter(deps Deps) *gin.Engine {
	cfg := deps.Cfg

	if cfg.Env != "dev" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()

	// middleware

	r.Use(gin.Recovery())
	r.Use(otelgin.Middleware(cfg.AppName))
	r.Use(middlewares.RequestID())
	r.Use(middlewares.SecurityHeaders(cfg.IsProd()))
	r.Use(middlewares.CORSMiddleware(cfg.CORSOrigins))
	if deps.Prom != nil {
		r.Use(deps.Prom.GinHandleMiddleware())
	}
	r.Use(middlewares.LoadSession(deps.Sessions, cfg.Session.Key))
	r.Use(middlewares.RequestLogger())

	// health
	h := handlers.NewHealthHandler(deps.Ping)
	r.GET("/healthz", h.Healthz)
	r.GET("/readyz", h.Readyz)

	if deps.Gatherer != nil {
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(deps.Gatherer, promhttp.HandlerOpts{})))
	}

	cookies := handlers.CookieConfig{
		SessionName: cfg.Session.Key,
		Secure:      cfg.Session.Secure || cfg.IsProd(),
		StateTTL:    cfg.OAuth.StateTTL,
	}

	authHandler := handlers.NewAuthHandler(deps.Auth, deps.Sessions, deps.Strategies, cookies)
	usersHandler := handlers.NewUsersHandler(deps.Auth, deps.Sessions, deps.Authz)
	rolesHandler := handlers.NewRolesHandler(deps.Roles, deps.Authz)

	limiter := middlewares.NewRateLimiter(cfg.RateLimitRequests, cfg.RateLimitWindow)
	limited := limiter.RateLimiterMiddleware(middlewares.KeyByIP)

	api := r.Group("/api")
	api.Use(middlewares.MaxBodyBytes(maxBodyBytes))
	api.Use(middlewares.RequireJSON())

	auth := api.Group("/auth")
	{
		auth.POST("/validate", authHandler.Validate)
		auth.POST("/signup", limited, authHandler.SignUp)
		auth.POST("/signin", limited, authHandler.SignIn)
		auth.POST("/signout", authHandler.SignOut)
		auth.POST("/forgot", limited, authHandler.ForgotPassword)
		auth.POST("/reset", limited, authHandler.ResetPassword)
		auth.GET("/:provider", authHandler.OAuthStart)
		auth.GET("/:provider/callback", authHandler.OAuthCallback)
	}

	users := api.Group("/users", middlewares.RequireSession())
	{
		users.GET("/me", usersHandler.Me)
		users.POST("/accounts", usersHandler.RemoveAccount)
		users.DELETE("/accounts", usersHandler.RemoveAccount)
	}

	roles := api.Group("/roles", middlewares.RequirePermission(deps.Authz, cfg.RolesAdminPermission))
	{
		roles.GET("", rolesHandler.List)
		roles.POST("", rolesHandler.Create)
		roles.GET("/:id", rolesHandler.Get)
		roles.PUT("/:id", rolesHandler.Update)
		roles.DELETE("/:id", rolesHandler.Delete)
		roles.POST("/:id/permissions/:permId", rolesHandler.ConnectPermission)
		roles.DELETE("/:id/permissions/:permId", rolesHandler.DisconnectPermission)
		roles.POST("/:id/users/:userId", rolesHandler.AddUser)
		roles.DELETE("/:id/users/:userId", rolesHandler.RemoveUser)
	}

	return r
}
