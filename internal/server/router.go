package server

import (
	"log/slog"
	"time"

	"deepfake-guard/internal/auth"
	"deepfake-guard/internal/detection"
	"deepfake-guard/internal/handler"
	"deepfake-guard/internal/hub"
	"deepfake-guard/internal/middleware"
	"github.com/gin-gonic/gin"
)

type Deps struct {
	Auth      *auth.Service
	Detection *detection.Service
	Hub       *hub.Hub
	Logger    *slog.Logger
	Version   string
	// AuthLimiter throttles the public auth endpoints per client IP. Nil
	// gets 10 requests per minute.
	AuthLimiter *middleware.RateLimiter
}

func NewRouter(deps Deps) *gin.Engine {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "http")

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(gin.Logger())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"ok": true})
	})

	versionHandler := &handler.VersionHandler{Version: deps.Version}
	r.GET("/v1/version", versionHandler.Check)

	limiter := deps.AuthLimiter
	if limiter == nil {
		limiter = middleware.NewRateLimiter(10, time.Minute)
	}
	authHandler := &handler.AuthHandler{Auth: deps.Auth, Logger: logger}

	public := r.Group("/v1/auth")
	public.Use(middleware.RateLimitMiddleware(limiter))
	public.POST("/register", authHandler.Register)
	public.POST("/login", authHandler.Login)
	public.POST("/federated", authHandler.Federated)
	public.POST("/logout", authHandler.Logout)

	protected := r.Group("/v1")
	protected.Use(middleware.RequireAuth(deps.Auth))
	protected.GET("/auth/verify", authHandler.Verify)

	accountHandler := &handler.AccountHandler{}
	protected.GET("/account/profile", accountHandler.Profile)

	scanHandler := &handler.ScanHandler{Detection: deps.Detection, Logger: logger}
	protected.POST("/scans", scanHandler.Create)
	protected.GET("/scans", scanHandler.List)
	protected.GET("/scans/stats", scanHandler.Stats)
	protected.GET("/scans/:id", scanHandler.Get)

	wsHub := deps.Hub
	if wsHub == nil {
		wsHub = hub.New(logger)
	}
	wsHandler := &handler.WebSocketHandler{Hub: wsHub, Verifier: deps.Auth, Logger: logger}
	r.GET("/ws", wsHandler.Serve)

	return r
}
