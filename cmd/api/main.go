// ==============================================================================
// API SERVER - cmd/api/main.go
// ==============================================================================
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"

	"taskhub/internal/auth"
	"taskhub/internal/catalog"
	"taskhub/internal/creatorkyc"
	"taskhub/internal/delivery"
	"taskhub/internal/fileupload"
	"taskhub/internal/handler"
	"taskhub/internal/kvstore"
	"taskhub/internal/kyc"
	"taskhub/internal/middleware"
	"taskhub/internal/mockdata"
	"taskhub/internal/notification"
	"taskhub/internal/repository/postgres"
	"taskhub/internal/scheduler"
	"taskhub/internal/security"
	"taskhub/internal/task"
	"taskhub/internal/taskdraft"
	"taskhub/internal/virusscan"
	"taskhub/pkg/cache"
	"taskhub/pkg/config"
	"taskhub/pkg/logger"
	"taskhub/pkg/mailer"
)

const idempotencyTTL = 24 * time.Hour

func main() {
	log := logger.New("taskhub-api")

	if err := godotenv.Load(); err != nil {
		log.Info("No .env file found, relying on environment variables", nil)
	}

	cfg := config.Load()
	if err := cfg.ValidateCore(); err != nil {
		log.Fatal("Invalid configuration", map[string]interface{}{"error": err.Error()})
	}
	if err := cfg.ValidateKYC(); err != nil {
		log.Fatal("Invalid KYC configuration", map[string]interface{}{"error": err.Error()})
	}

	// Connect to database
	db, err := sqlx.Connect("postgres", cfg.Database.URL)
	if err != nil {
		log.Fatal("Failed to connect to database", map[string]interface{}{"error": err.Error()})
	}
	defer db.Close()

	db.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	db.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.Database.ConnMaxLifetime)

	// Key/value store: Redis when configured, memory otherwise
	var (
		store       kvstore.Store = kvstore.NewMemory()
		redisClient redis.Cmdable
	)
	if cfg.Redis.URL != "" {
		rc, err := cache.NewRedisCache(cfg.Redis.URL, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			log.Fatal("Failed to connect to Redis", map[string]interface{}{"error": err.Error()})
		}
		defer rc.Close()
		store = kvstore.NewRedis(rc)
		redisClient = rc.Client()
	} else {
		log.Warn("REDIS_URL not set; using in-memory store without rate limiting", nil)
	}

	// Document storage
	var storage fileupload.StorageProvider = fileupload.NewMemoryProvider()
	if cfg.Minio.Endpoint != "" {
		mp, err := fileupload.NewMinioProvider(cfg.Minio)
		if err != nil {
			log.Fatal("Failed to create MinIO client", map[string]interface{}{"error": err.Error()})
		}
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		err = mp.EnsureBucket(ctx)
		cancel()
		if err != nil {
			log.Fatal("Failed to prepare document bucket", map[string]interface{}{
				"bucket": cfg.Minio.Bucket,
				"error":  err.Error(),
			})
		}
		storage = mp
	}
	uploadCfg := fileupload.DefaultConfig()
	uploadCfg.MaxFileSize = cfg.KYC.MaxDocumentSize
	uploadCfg.AccessURLExpires = cfg.Minio.URLExpiry
	files := fileupload.NewService(storage, log, uploadCfg).WithScanner(virusscan.NewSignatureScanner(log))

	// Outgoing mail
	var sender mailer.Sender = mailer.Noop{}
	if cfg.Email.SMTPUsername != "" {
		sender = mailer.New(mailer.Config{
			Host:     cfg.Email.SMTPHost,
			Port:     cfg.Email.SMTPPort,
			Username: cfg.Email.SMTPUsername,
			Password: cfg.Email.SMTPPassword,
			From:     cfg.Email.SMTPFrom,
			UseTLS:   cfg.Email.SMTPUseTLS,
		})
	} else {
		log.Warn("SMTP not configured; verification emails are discarded", nil)
	}

	cat, err := catalog.Load()
	if err != nil {
		log.Fatal("Failed to load catalog", map[string]interface{}{"error": err.Error()})
	}
	var genOpts []mockdata.Option
	if cfg.Mock.Seed != 0 {
		genOpts = append(genOpts, mockdata.WithSeed(cfg.Mock.Seed))
	}
	gen := mockdata.New(cat, genOpts...)

	// Initialize repositories
	userRepo := postgres.NewUserRepository(db)
	taskRepo := postgres.NewTaskRepository(db)
	deliveryRepo := postgres.NewDeliveryRepository(db)

	if cfg.Security.EncryptionKey == "" {
		log.Warn("ENCRYPTION_KEY not set, verification secrets will not survive a restart", nil)
	}
	secrets, err := security.NewCipher(cfg.Security.EncryptionKey)
	if err != nil {
		log.Fatal("Invalid encryption key", map[string]interface{}{"error": err.Error()})
	}

	// Initialize services
	sched := scheduler.NewScheduler(log)
	hub := notification.NewHub(log)
	notifications := notification.NewService(store, cat, hub, log)
	authService := auth.NewService(userRepo, sender, cfg.JWT, cfg.Verification, log).
		WithSecretCipher(secrets)
	kycService := kyc.NewService(store, files, notifications, sched, cfg.KYC, log)
	creatorKYCService := creatorkyc.NewService(store, files, cfg.KYC.CreatorReviewDelay, log)
	taskService := task.NewService(taskRepo, userRepo, gen, cfg.Mock.TaskCount, log)
	draftService := taskdraft.NewService(store, cat, taskService, log)
	deliveryService := delivery.NewService(deliveryRepo, userRepo, notifications, gen, cfg.Mock.DeliveryCount, log)

	handlers := &handler.Handlers{
		Health:       handler.NewHealthHandler(db, redisClient),
		Auth:         handler.NewAuthHandler(authService, log),
		KYC:          handler.NewKYCHandler(kycService, log),
		CreatorKYC:   handler.NewCreatorKYCHandler(creatorKYCService, log),
		Tasks:        handler.NewTaskHandler(taskService, log),
		TaskDraft:    handler.NewTaskDraftHandler(draftService, log),
		Deliveries:   handler.NewDeliveryHandler(deliveryService, log),
		Notification: handler.NewNotificationHandler(notifications, hub, log),
	}

	// Setup router
	r := mux.NewRouter()

	// Middleware
	r.Use(middleware.CORS(cfg.Server.AllowedOrigins))
	r.Use(middleware.CorrelationID)
	r.Use(middleware.NewLoggingMiddleware(log).Log)
	if redisClient != nil {
		r.Use(middleware.NewRateLimiter(redisClient, cfg.Server.RateLimit, time.Minute, log).Limit)
	}
	r.Use(middleware.SecurityHeaders)
	r.Use(middleware.Recovery(log))
	r.Use(middleware.BodyLimit(cfg.Server.MaxBodyBytes))

	var idempotent mux.MiddlewareFunc
	if redisClient != nil {
		idempotent = middleware.NewIdempotencyMiddleware(redisClient, idempotencyTTL, log).Handle
	}
	handlers.Register(r, middleware.NewAuthMiddleware(cfg.JWT.Secret).Authenticate, idempotent)

	// Start server
	srv := &http.Server{
		Addr:         fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port),
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// Graceful shutdown
	go func() {
		log.Info("TaskHub API starting", map[string]interface{}{"port": cfg.Server.Port})
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Server failed", map[string]interface{}{"error": err.Error()})
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down server...", nil)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error("Server forced to shutdown", map[string]interface{}{"error": err.Error()})
	}
	if err := hub.Shutdown(ctx); err != nil {
		log.Error("Notification hub did not drain", map[string]interface{}{"error": err.Error()})
	}
	if err := sched.Shutdown(ctx); err != nil {
		log.Error("Scheduler did not drain", map[string]interface{}{"error": err.Error()})
	}

	log.Info("Server stopped", nil)
}
