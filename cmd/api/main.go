package main

import (
	"context"
	"fmt"
	stdlog "log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/PierluigiRizzuExagon/framework-gestionali/internal/api/handlers"
	"github.com/PierluigiRizzuExagon/framework-gestionali/internal/api/middleware"
	"github.com/PierluigiRizzuExagon/framework-gestionali/internal/api/routes"
	"github.com/PierluigiRizzuExagon/framework-gestionali/internal/domain/notification"
	"github.com/PierluigiRizzuExagon/framework-gestionali/internal/domain/roles"
	"github.com/PierluigiRizzuExagon/framework-gestionali/internal/domain/user"
	"github.com/PierluigiRizzuExagon/framework-gestionali/internal/infrastructure/cache"
	"github.com/PierluigiRizzuExagon/framework-gestionali/internal/infrastructure/persistence/postgres/connection"
	"github.com/PierluigiRizzuExagon/framework-gestionali/internal/infrastructure/persistence/postgres/migrations"
	"github.com/PierluigiRizzuExagon/framework-gestionali/pkg/config"
	"github.com/PierluigiRizzuExagon/framework-gestionali/pkg/logger"
	"github.com/PierluigiRizzuExagon/framework-gestionali/pkg/security/auth"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
	"go.uber.org/zap"
)

// RequestLoggerMiddleware logs all incoming HTTP requests
func RequestLoggerMiddleware(log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		method := c.Request.Method

		c.Next()

		log.Info("Request completed",
			zap.String("path", path),
			zap.String("method", method),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
		)
	}
}

func main() {
	// Load configuration
	cfg, err := config.LoadConfig("") // Empty string will make it search in default locations
	if err != nil {
		stdlog.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize logger
	log := logger.NewLogger(cfg.Logging.Level)
	defer log.Sync()

	log.Info("Configuration loaded successfully")
	log.Info("Server mode: " + cfg.Server.Mode)

	// Set up Gin
	if cfg.Server.Mode == "production" {
		gin.SetMode(gin.ReleaseMode)
	} else {
		gin.SetMode(gin.DebugMode)
	}

	// Connect to the database
	db, err := connection.NewDatabase(cfg)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}

	// Run migrations
	if err := migrations.AutoMigrate(db, log.Logger); err != nil {
		log.Fatal("Failed to run database migrations", zap.Error(err))
	}

	// Repository-layer logger
	repoLogger := logrus.New()
	repoLogger.SetFormatter(&logrus.JSONFormatter{})

	// Unread-count cache; the engine runs fine without it
	var unreadCache notification.UnreadCache
	if redisCache, err := cache.NewUnreadCountCache(cfg, log); err != nil {
		log.Warn("Redis unavailable, unread counts will not be cached", zap.Error(err))
	} else {
		unreadCache = redisCache
		defer redisCache.Close()
	}

	// Wire domains
	roleRepo := roles.NewRepository(db.DB)
	userRepo := user.NewRepository(db.DB)
	userService := user.NewService(userRepo)

	signalRepo := notification.NewSignalRepository(16)
	notificationRepo := notification.NewRepository(db, repoLogger)
	notificationService := notification.NewService(notification.ServiceConfig{
		Repository: notificationRepo,
		Roles:      roleRepo,
		Users:      userRepo,
		SignalRepo: signalRepo,
		Cache:      unreadCache,
		Logger:     repoLogger,
	})

	jwtService := auth.NewJWTService(cfg.Auth.JWTSecret, cfg.Auth.JWTIssuer, cfg.Auth.JWTExpiryHours)

	// Router
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(RequestLoggerMiddleware(log))
	router.Use(middleware.NewMetricsMiddleware().CollectMetrics())
	router.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.CORS.AllowedOrigins,
		AllowMethods:     cfg.CORS.AllowedMethods,
		AllowHeaders:     cfg.CORS.AllowedHeaders,
		AllowCredentials: cfg.CORS.AllowCredentials,
		MaxAge:           12 * time.Hour,
	}))

	// Routes
	routes.NewHealthRoutes(db).RegisterRoutes(router)
	routes.NewAuthRoutes(handlers.NewAuthHandler(userService, jwtService, log)).RegisterRoutes(router)
	routes.NewNotificationRoutes(handlers.NewNotificationHandler(notificationService, log), jwtService).RegisterRoutes(router)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// HTTP server with graceful shutdown
	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: router,
	}

	go func() {
		log.Info("Starting server", zap.Int("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
	}

	log.Info("Server exited")
}
