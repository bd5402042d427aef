package http

import (
	"github.com/SINTT/TODO/internal/config"
	"github.com/SINTT/TODO/internal/http/handlers"
	"github.com/SINTT/TODO/internal/http/middleware"

	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func RegisterRoutes(r *gin.Engine, h *handlers.Handler, health *handlers.HealthHandler, cfg *config.Config) {
	r.Use(middleware.RequestID())
	r.Use(middleware.Metrics())
	r.Use(gzip.Gzip(
		gzip.DefaultCompression,
		gzip.WithExcludedPaths([]string{"/metrics", "/health", "/healthz", "/readyz"}),
	))

	// Health checks (no rate limiting)
	r.GET("/health", health.Health)
	r.GET("/healthz", health.Liveness)
	r.GET("/readyz", health.Readiness)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// API v1 routes
	v1 := r.Group("/api/v1")
	v1.Use(middleware.RedisRateLimit(cfg.APIRateLimit.Max, cfg.APIRateLimit.Window))
	registerAPIRoutes(v1, h, cfg)

	// Legacy /api routes: the mobile client predates versioning
	api := r.Group("/api")
	api.Use(middleware.RedisRateLimit(cfg.APIRateLimit.Max, cfg.APIRateLimit.Window))
	api.GET("/health", health.Health)
	registerAPIRoutes(api, h, cfg)
}

func registerAPIRoutes(api *gin.RouterGroup, h *handlers.Handler, cfg *config.Config) {
	authRL := middleware.RedisRateLimit(cfg.AuthRateLimit.Max, cfg.AuthRateLimit.Window)

	// Auth
	api.POST("/register", authRL, h.Register)
	api.POST("/login", authRL, h.Login)
	api.GET("/login", authRL, h.Login)

	authed := api.Group("")
	authed.Use(middleware.Auth(h.Tokens, h.Identity))

	// per-account limiter for everything that writes
	mutRL := middleware.ActorRateLimit(cfg.MutationRateLimit.Max, cfg.MutationRateLimit.Window)

	// Users
	authed.GET("/me", h.Me)
	authed.GET("/users", h.ListUsers)
	authed.POST("/update-role", mutRL, h.UpdateRole)
	authed.DELETE("/delete-user", mutRL, h.DeleteUser)

	// Tasks
	authed.GET("/tasks", h.ListTasks)
	authed.POST("/tasks", mutRL, h.CreateTask)
	authed.POST("/create-task", mutRL, h.CreateTask)
	authed.GET("/tasks/:id", h.GetTask)
	authed.PUT("/tasks/:id", mutRL, h.ChangeStatus)
	authed.PUT("/tasks/:id/assignee", mutRL, h.AssignTask)
	authed.DELETE("/tasks/:id", mutRL, h.DeleteTask)

	// Admin
	authed.GET("/stats", h.Stats)
}
