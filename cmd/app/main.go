package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/SINTT/TODO/internal/config"
	"github.com/SINTT/TODO/internal/db"
	httpServer "github.com/SINTT/TODO/internal/http"
	"github.com/SINTT/TODO/internal/http/handlers"
	"github.com/SINTT/TODO/internal/http/middleware"
	"github.com/SINTT/TODO/internal/logger"
	"github.com/SINTT/TODO/internal/repository"
	"github.com/SINTT/TODO/internal/service"

	"github.com/gin-gonic/gin"
)

func main() {
	cfg := config.Load()
	logger.Init(cfg.LogLevel, cfg.LogJSON)

	if cfg.GinMode != "" {
		gin.SetMode(cfg.GinMode)
	}

	tokens, err := service.NewTokenService(cfg.JWTSecret, cfg.JWTTTL)
	if err != nil {
		logger.Fatal("invalid JWT_SECRET", "error", err)
	}

	users, tasks, checks, closeStore := openStorage(cfg)
	defer closeStore()

	if err := middleware.InitRedisRateLimiter(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB); err != nil {
		logger.Warn("redis unavailable, using in-process rate limiter", "addr", cfg.RedisAddr, "error", err)
	} else if cfg.RedisAddr != "" {
		checks["redis"] = middleware.RedisPinger{}
	}
	defer middleware.CloseRedisRateLimiter()

	identity := service.NewIdentityService(users, cfg.OpTimeout, cfg.BcryptCost)
	taskService := service.NewTaskService(tasks, cfg.OpTimeout, cfg.Location)
	adminService := service.NewAdminService(users, tasks, cfg.OpTimeout)

	r := gin.New()
	r.Use(gin.Recovery(), middleware.RequestLogger())

	// CORS for the mobile/web client
	r.Use(func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")
		if origin != "" {
			c.Writer.Header().Set("Access-Control-Allow-Origin", origin)
			c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
			c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Request-ID")
			c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		}
		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}
		c.Next()
	})

	httpServer.RegisterRoutes(r,
		handlers.NewHandler(identity, taskService, tokens, adminService),
		handlers.NewHealthHandler(cfg.AppVersion, checks),
		cfg,
	)

	srv := &http.Server{
		Addr:              ":" + cfg.AppPort,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("server started", "port", cfg.AppPort, "storage", cfg.StorageDriver, "version", cfg.AppVersion)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("listen failed", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
	}

	logger.Info("server exited")
}

// openStorage picks the repositories for STORAGE_DRIVER.
func openStorage(cfg *config.Config) (service.UserStore, service.TaskStore, map[string]handlers.Pinger, func()) {
	checks := map[string]handlers.Pinger{}

	switch cfg.StorageDriver {
	case config.DriverPostgres:
		pool := db.Connect(cfg.DatabaseURL, cfg.OpTimeout)
		checks["database"] = pool
		return repository.NewUserRepository(pool), repository.NewTaskRepository(pool), checks, pool.Close

	case config.DriverSQLite:
		gdb, err := repository.NewSQLiteDB(cfg.SQLitePath)
		if err != nil {
			logger.Fatal("failed to open sqlite", "path", cfg.SQLitePath, "error", err)
		}
		checks["database"] = repository.SQLitePinger{DB: gdb}
		closeDB := func() {
			if sqlDB, err := gdb.DB(); err == nil {
				_ = sqlDB.Close()
			}
		}
		logger.Info("sqlite opened", "path", cfg.SQLitePath)
		return repository.NewSQLiteUserRepository(gdb), repository.NewSQLiteTaskRepository(gdb), checks, closeDB

	default:
		logger.Warn("using in-memory storage, data is lost on restart")
		return repository.NewMemoryUserRepository(), repository.NewMemoryTaskRepository(), checks, func() {}
	}
}
