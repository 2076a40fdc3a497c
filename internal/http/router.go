package http

import (
	"log/slog"
	nethttp "net/http"

	"github.com/geocoder89/familytree/internal/auth"
	"github.com/geocoder89/familytree/internal/config"
	"github.com/geocoder89/familytree/internal/http/handlers"
	"github.com/geocoder89/familytree/internal/http/middlewares"
	"github.com/geocoder89/familytree/internal/observability"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
)

const maxBodyBytes = 1 << 20

// UserStore is every user operation the auth and OAuth handlers need.
type UserStore interface {
	handlers.UserReader
	handlers.UserWriter
	handlers.OAuthUserStore
}

// Deps is everything the HTTP layer needs, built once in main.
type Deps struct {
	Log     *slog.Logger
	Cfg     config.Config
	Users   UserStore
	Graph   handlers.PersonStore
	Tokens  *auth.Manager
	OAuth   handlers.OAuthProvider
	Prom    *observability.Prom
	Pingers map[string]handlers.Pinger
}

func NewRouter(d Deps) *gin.Engine {
	if d.Cfg.Env != "dev" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()

	r.Use(gin.Recovery())
	r.Use(otelgin.Middleware("familytree-api"))
	r.Use(middlewares.RequestID())
	r.Use(middlewares.RequestLogger())
	r.Use(middlewares.SecurityHeaders())
	r.Use(middlewares.CORSMiddleware(d.Cfg.AllowedOrigins))
	if d.Prom != nil {
		r.Use(d.Prom.GinHandleMiddleware())
		r.GET("/metrics", gin.WrapH(d.Prom.Handler()))
	}

	health := handlers.NewHealthHandler(d.Pingers)
	r.GET("/healthz", health.Healthz)
	r.GET("/readyz", health.Readyz)

	authMW := middlewares.NewAuthMiddleware(d.Tokens)
	authLimiter := middlewares.NewRateLimiter(d.Cfg.AuthRatePerMinute)

	authHandler := handlers.NewAuthHandler(d.Users, d.Users, d.Tokens, d.Cfg, d.Prom)
	oauthHandler := handlers.NewOAuthHandler(d.OAuth, d.Users, d.Tokens, d.Cfg, d.Prom)
	personsHandler := handlers.NewPersonsHandler(d.Graph)

	api := r.Group("/api")
	api.Use(middlewares.MaxBodyBytes(maxBodyBytes))

	api.GET("/healthchecker", health.HealthChecker)
	if d.Cfg.ImagesDir != "" {
		api.StaticFS("/images", gin.Dir(d.Cfg.ImagesDir, false))
	}

	authGroup := api.Group("/auth")
	authGroup.POST("/register", middlewares.RequireJSON(), authLimiter.RateLimiterMiddleware(middlewares.KeyByIP), authHandler.Register)
	authGroup.POST("/login", middlewares.RequireJSON(), authLimiter.RateLimiterMiddleware(middlewares.KeyByIP), authHandler.Login)
	authGroup.GET("/logout", authMW.RequireAuth(), authHandler.Logout)

	api.GET("/sessions/oauth/google", oauthHandler.Callback)
	api.GET("/sessions/oauth/google/start", oauthHandler.Start)

	api.GET("/users/me", authMW.RequireAuth(), authHandler.Me)

	protected := api.Group("", authMW.RequireAuth())
	protected.POST("/persons", middlewares.RequireJSON(), personsHandler.Create)
	protected.GET("/persons", personsHandler.List)
	protected.GET("/persons/:id", personsHandler.Get)
	protected.GET("/persons/:id/relatives", personsHandler.Relatives)
	protected.POST("/relationships/parent", middlewares.RequireJSON(), personsHandler.LinkParent)
	protected.POST("/relationships/marriage", middlewares.RequireJSON(), personsHandler.LinkMarriage)
	protected.POST("/relationships/siblings", middlewares.RequireJSON(), personsHandler.LinkSiblings)

	r.NoRoute(func(ctx *gin.Context) {
		ctx.JSON(nethttp.StatusNotFound, gin.H{
			"status": "fail",
			"error": gin.H{
				"code":    "not_found",
				"message": "Route not found",
			},
		})
	})

	return r
}
