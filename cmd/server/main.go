// Package main runs the multi-tenant notes API server with graceful shutdown.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/notevault/backend/config"
	"github.com/notevault/backend/internal/auth"
	"github.com/notevault/backend/internal/middleware"
	"github.com/notevault/backend/internal/notes"
	"github.com/notevault/backend/internal/realtime"
	"github.com/notevault/backend/internal/subscription"
	"github.com/notevault/backend/internal/tenants"
	"github.com/notevault/backend/pkg/database"
	"github.com/notevault/backend/pkg/redis"
	"github.com/notevault/backend/pkg/response"
)

func main() {
	logger := newLogger()
	defer logger.Sync()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("load config", zap.Error(err))
	}

	ctx := context.Background()
	pool, err := database.NewPostgresPool(ctx, cfg.Database.DSN(), cfg.Database.MaxConns, logger)
	if err != nil {
		logger.Fatal("database", zap.Error(err))
	}
	defer pool.Close()

	if err := database.Migrate(ctx, pool); err != nil {
		logger.Fatal("migrate", zap.Error(err))
	}

	rdb, err := redis.NewClient(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, logger)
	if err != nil {
		logger.Fatal("redis", zap.Error(err))
	}
	defer rdb.Close()

	jwtService := auth.NewJWTService(cfg.JWT.Secret, cfg.JWT.ExpireHours)
	denylist := auth.NewDenylist(rdb.Client)

	// Repositories
	userRepo := auth.NewRepository(pool)
	tenantRepo := tenants.NewRepository(pool)
	noteRepo := notes.NewRepository(pool)

	// Identity resolution
	resolver := auth.NewResolver(jwtService, userRepo, tenantRepo, denylist)
	authHandler := auth.NewHandler(userRepo, tenantRepo, jwtService, denylist, logger)

	// Realtime note events
	redisPubSub := realtime.NewRedisPubSub(rdb.Client, logger)
	hub := realtime.NewHub(logger, redisPubSub, redisPubSub)

	// Notes
	limiter := subscription.NewLimiter(tenantRepo, noteRepo)
	noteService := notes.NewService(noteRepo, limiter, tenantRepo)
	noteHandler := notes.NewHandler(noteService, hub, logger)

	// Tenant management
	tenantHandler := tenants.NewHandler(tenantRepo, userRepo, logger)

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.CORS(cfg.Server.CORSAllowedOrigins))
	router.Use(middleware.Logger(logger))

	// Health
	router.GET("/health", func(c *gin.Context) { response.OK(c, gin.H{"status": "ok"}) })

	// Auth (public)
	router.POST("/auth/login", authHandler.Login)

	// Public tenant directory (optional auth enriches the response)
	router.GET("/tenants/:slug", middleware.OptionalAuthenticate(resolver), tenantHandler.Lookup)

	// Protected API (verified identity required)
	api := router.Group("")
	api.Use(middleware.Authenticate(resolver))
	{
		api.POST("/auth/logout", authHandler.Logout)
		api.GET("/auth/me", authHandler.Me)

		api.POST("/notes", noteHandler.Create)
		api.GET("/notes", noteHandler.List)
		api.GET("/notes/stats", noteHandler.Stats)
		api.GET("/notes/:id", noteHandler.Get)
		api.PATCH("/notes/:id", noteHandler.Update)
		api.DELETE("/notes/:id", noteHandler.Delete)

		api.GET("/tenant", tenantHandler.Get)
		api.PATCH("/tenant", tenantHandler.Update)
		api.POST("/tenant/upgrade", tenantHandler.Upgrade)
		api.GET("/tenant/members", tenantHandler.ListMembers)
		api.PATCH("/tenant/members/:id/deactivate", tenantHandler.DeactivateMember)
	}

	// WebSocket (token in query; room is the identity's tenant)
	router.GET("/ws", realtime.ServeWs(hub, resolver, logger))

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	go func() {
		logger.Info("server listening", zap.String("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown", zap.Error(err))
	}
	logger.Info("server stopped")
}

func newLogger() *zap.Logger {
	config := zap.NewProductionConfig()
	config.EncoderConfig.TimeKey = "timestamp"
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	logger, _ := config.Build()
	return logger
}
