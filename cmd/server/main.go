package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/minhngodev/campus-api/internal/config"
	"github.com/minhngodev/campus-api/internal/handler"
	"github.com/minhngodev/campus-api/internal/middleware"
	"github.com/minhngodev/campus-api/internal/model"
	"github.com/minhngodev/campus-api/internal/repository"
	"github.com/minhngodev/campus-api/internal/service"
	"github.com/minhngodev/campus-api/internal/ws"
	"github.com/minhngodev/campus-api/migrations"
	"github.com/minhngodev/campus-api/pkg/auth"
	"github.com/minhngodev/campus-api/pkg/push"
	"github.com/minhngodev/campus-api/pkg/storage"
	"github.com/redis/go-redis/v9"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// @title           Campus Admin API
// @version         1.0
// @description     Campus administration backend: push notification fan-out, delivery tracking, audit history and stats.

// @contact.name   API Support
// @contact.email  support@campus.local

// @license.name  MIT
// @license.url   https://opensource.org/licenses/MIT

// @host      api.localhost
// @BasePath  /api/v1

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

func main() {
	// ==================== Load Config ====================
	cfg := config.Load()
	log.Printf("🚀 Starting Campus Admin API Server [env=%s]", cfg.App.Env)

	// ==================== Database (PostgreSQL) ====================
	gormLogger := logger.Default.LogMode(logger.Info)
	if cfg.App.Env == "production" {
		gormLogger = logger.Default.LogMode(logger.Warn)
	}

	db, err := gorm.Open(postgres.Open(cfg.DB.DSN()), &gorm.Config{
		Logger: gormLogger,
	})
	if err != nil {
		log.Fatalf("❌ Failed to connect to database: %v", err)
	}
	log.Println("✅ Connected to PostgreSQL")

	// ==================== Run Migrations ====================
	if err := migrations.Run(cfg.DB.URL()); err != nil {
		log.Printf("⚠️  Migration warning: %v", err)
		log.Println("📦 Falling back to GORM AutoMigrate...")
		// Fallback to AutoMigrate if migration files fail
		if err := db.AutoMigrate(
			&model.User{},
			&model.DeviceToken{},
			&model.Notification{},
			&model.DeliveryStatus{},
		); err != nil {
			log.Fatalf("❌ Failed to migrate database: %v", err)
		}
	}
	log.Println("✅ Database migrated successfully")

	// ==================== Redis ====================
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr(),
		Password: cfg.Redis.Password,
		DB:       0,
	})

	ctx := context.Background()
	if _, err := rdb.Ping(ctx).Result(); err != nil {
		log.Fatalf("❌ Failed to connect to Redis: %v", err)
	}
	log.Println("✅ Connected to Redis")

	// ==================== Push Gateway (Firebase FCM) ====================
	var gateway push.Gateway
	gateway, err = push.NewFCMGateway(ctx, cfg.Firebase.CredentialsFile)
	if err != nil {
		log.Printf("⚠️  Firebase not available: %v (dispatches will fail as transient)", err)
		gateway = push.DisabledGateway{}
	}

	dispatcher := push.NewDispatcher(gateway, push.Config{
		ChunkSize: cfg.Push.ChunkSize,
		Workers:   cfg.Push.Workers,
		Timeout:   cfg.Push.ChunkTimeout,
	})

	// ==================== Initialize Layers ====================
	// JWT Manager
	jwtManager := auth.NewJWTManager(cfg.JWT.Secret, cfg.JWT.Expiry)

	// Repositories
	userRepo := repository.NewUserRepository(db)
	deviceRepo := repository.NewDeviceRepository(db)
	notifRepo := repository.NewNotificationRepository(db)

	// Dispatch event hub (Redis Pub/Sub for horizontal scaling)
	hub := ws.NewHub(rdb)

	hubCtx, hubCancel := context.WithCancel(context.Background())
	defer hubCancel()
	go hub.Run(hubCtx)

	// Services
	notifService := service.NewNotificationService(userRepo, deviceRepo, notifRepo, dispatcher, hub)

	// MinIO Storage (notification images)
	minioStorage, err := storage.NewMinIO(storage.Config{
		Endpoint:  cfg.MinIO.Endpoint,
		PublicURL: cfg.MinIO.PublicURL,
		AccessKey: cfg.MinIO.AccessKey,
		SecretKey: cfg.MinIO.SecretKey,
		Bucket:    cfg.MinIO.Bucket,
		UseSSL:    cfg.MinIO.UseSSL,
	})
	if err != nil {
		log.Printf("⚠️  MinIO not available: %v (image upload disabled)", err)
	}
	if minioStorage != nil {
		log.Println("✅ Connected to MinIO")
	}

	// Handlers
	notifHandler := handler.NewNotificationHandler(notifService)
	wsHandler := handler.NewWSHandler(hub, jwtManager)
	uploadHandler := handler.NewUploadHandler(minioStorage)

	// ==================== Gin Router ====================
	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.Default()

	// Swagger configuration
	// Serve swagger.json at /docs/swagger.json to avoid conflict with /swagger/* wildcard
	router.StaticFile("/docs/swagger.json", "./docs/swagger.json")

	url := ginSwagger.URL("/docs/swagger.json")
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler, url))

	// Global middleware
	router.Use(middleware.CORSMiddleware(cfg.CORS.Origins))

	// Health check
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "ok",
			"service": "campus-api",
			"time":    time.Now().Format(time.RFC3339),
		})
	})

	// ==================== API Routes ====================
	api := router.Group("/api/v1")
	{
		protected := api.Group("")
		protected.Use(middleware.AuthMiddleware(jwtManager, rdb))
		{
			// Devices
			protected.POST("/devices", notifHandler.RegisterDevice)
			protected.DELETE("/devices", notifHandler.UnregisterDevice)

			// Notifications (dispatch restricted to staff/admin)
			protected.POST("/notifications",
				middleware.RequireRoles(model.RoleAdmin, model.RoleStaff),
				notifHandler.Dispatch)
			protected.GET("/notifications", notifHandler.ListHistory)
			protected.GET("/notifications/stats", notifHandler.GetStats)
			protected.GET("/notifications/:id", notifHandler.GetDetail)

			// Upload (notification images)
			protected.POST("/upload",
				middleware.RequireRoles(model.RoleAdmin, model.RoleStaff),
				uploadHandler.UploadImage)
		}
	}

	// WebSocket dispatch-event feed (auth via query parameter)
	router.GET("/ws", wsHandler.HandleWebSocket)

	// ==================== Start Server ====================
	srv := &http.Server{
		Addr:    ":" + cfg.App.Port,
		Handler: router,
	}

	// Graceful shutdown
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("❌ Server failed: %v", err)
		}
	}()

	log.Printf("🌐 Campus Admin API running on http://0.0.0.0:%s", cfg.App.Port)
	log.Printf("📋 API docs: http://0.0.0.0:%s/swagger/index.html", cfg.App.Port)
	log.Printf("🔌 Dispatch feed: ws://0.0.0.0:%s/ws?token=<jwt>", cfg.App.Port)

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("🛑 Shutting down server...")

	// Give ongoing requests 5 seconds to complete
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("❌ Server forced to shutdown: %v", err)
	}

	hubCancel()
	log.Println("✅ Server exited gracefully")
}
