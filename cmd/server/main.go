// Package main runs the marketplace HTTP server with graceful shutdown.
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

	"github.com/skillforge/marketplace/config"
	"github.com/skillforge/marketplace/internal/auth"
	"github.com/skillforge/marketplace/internal/cart"
	"github.com/skillforge/marketplace/internal/catalog"
	"github.com/skillforge/marketplace/internal/coupons"
	"github.com/skillforge/marketplace/internal/credentials"
	"github.com/skillforge/marketplace/internal/dashboard"
	"github.com/skillforge/marketplace/internal/emaillogs"
	"github.com/skillforge/marketplace/internal/exams"
	"github.com/skillforge/marketplace/internal/middleware"
	"github.com/skillforge/marketplace/internal/models"
	"github.com/skillforge/marketplace/internal/notifications"
	"github.com/skillforge/marketplace/internal/orders"
	"github.com/skillforge/marketplace/internal/payments"
	"github.com/skillforge/marketplace/internal/progress"
	"github.com/skillforge/marketplace/internal/store"
	"github.com/skillforge/marketplace/internal/worker"
	"github.com/skillforge/marketplace/pkg/database"
	"github.com/skillforge/marketplace/pkg/queue"
	"github.com/skillforge/marketplace/pkg/redis"
	"github.com/skillforge/marketplace/pkg/response"
	"github.com/skillforge/marketplace/pkg/storage"
)

func main() {
	logger := newLogger()
	defer logger.Sync()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("load config", zap.Error(err))
	}

	ctx := context.Background()
	pool, err := database.NewPostgresPool(ctx, cfg.Database.DSN(), int32(cfg.Database.MaxConns), logger)
	if err != nil {
		logger.Fatal("database", zap.Error(err))
	}
	defer pool.Close()

	if err := database.Migrate(ctx, pool, logger); err != nil {
		logger.Fatal("migrate", zap.Error(err))
	}

	rdb, err := redis.NewClient(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, logger)
	if err != nil {
		logger.Fatal("redis", zap.Error(err))
	}
	defer rdb.Close()

	// Archive is optional; PDFs are still rendered on demand without it.
	var archive credentials.Archive
	if cfg.AWS.Region != "" && cfg.AWS.CertificatesBucket != "" {
		s3Client, err := storage.NewS3(ctx, storage.S3Config{
			Region:               cfg.AWS.Region,
			AccessKeyID:          cfg.AWS.AccessKeyID,
			SecretAccessKey:      cfg.AWS.SecretAccessKey,
			CertificatesBucket:   cfg.AWS.CertificatesBucket,
			PresignExpireMinutes: cfg.AWS.PresignExpireMinutes,
		}, logger)
		if err != nil {
			logger.Warn("s3 disabled", zap.Error(err))
		} else {
			archive = s3Client
		}
	}

	st := store.NewPostgres(pool)
	jobQueue := queue.NewQueue(rdb.Client, cfg.Worker.QueueName, logger)
	notifier := notifications.NewNotifier(st, jobQueue, logger)

	// Auth
	jwtService := auth.NewJWTService(cfg.JWT.Secret, cfg.JWT.ExpireHours)
	authRepo := auth.NewRepository(pool)
	authHandler := auth.NewHandler(authRepo, jwtService, logger)

	// Catalog and ratings
	catalogSvc := catalog.NewService(st, time.Now, logger)
	catalogHandler := catalog.NewHandler(catalogSvc, logger)

	// Credentials
	issuer := credentials.NewIssuer(st, notifier, time.Now, logger)
	documents := credentials.NewDocuments(st, archive, logger)
	credentialsHandler := credentials.NewHandler(issuer, documents, logger)

	// Learning
	tracker := progress.NewTracker(st, issuer, time.Now, logger)
	progressHandler := progress.NewHandler(tracker, logger)
	engine := exams.NewEngine(st, issuer, cfg.Exam.DefaultPassingPercent, logger)
	examHandler := exams.NewHandler(engine, logger)

	// Cart, coupons and checkout
	cartSvc := cart.NewService(st, logger)
	cartHandler := cart.NewHandler(cartSvc, logger)
	couponTTL := time.Duration(cfg.Coupon.SessionTTLHours) * time.Hour
	validator := coupons.NewValidator(st, coupons.NewRedisSession(rdb.Client), couponTTL, time.Now, logger)
	couponHandler := coupons.NewHandler(validator, logger)
	tokens := payments.NewTokenService(cfg.Payment.TokenSecret, time.Duration(cfg.Payment.TokenTTLMinutes)*time.Minute, time.Now)
	orderSvc := orders.NewService(st, tokens, notifier, time.Now, logger)
	orderHandler := orders.NewHandler(orderSvc, validator, cfg.Payment.GatewayEnabled, logger)

	// Dashboard and admin
	dashboardHandler := dashboard.NewHandler(dashboard.NewService(st, logger), logger)
	emailLogsRepo := emaillogs.NewRepository(pool)
	emailLogsHandler := emaillogs.NewHandler(emailLogsRepo, logger)

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.CORS(cfg.Server.CORSAllowedOrigins))
	router.Use(middleware.Logger(logger))

	// Health
	router.GET("/health", func(c *gin.Context) { response.OK(c, gin.H{"status": "ok"}) })

	// Auth (public)
	authGroup := router.Group("/auth")
	{
		authGroup.POST("/login", authHandler.Login)
		authGroup.POST("/register", authHandler.Register)
	}

	// Public catalog and verification
	router.GET("/courses", catalogHandler.ListCourses)
	router.GET("/courses/:id", middleware.OptionalJWT(jwtService), catalogHandler.GetCourse)
	router.GET("/certifications", catalogHandler.ListCertifications)
	router.GET("/certifications/:slug", catalogHandler.GetCertification)
	router.GET("/verify/:code", credentialsHandler.Verify)

	// Protected API (JWT required)
	api := router.Group("")
	api.Use(middleware.JWT(jwtService))
	{
		// Cart
		api.GET("/cart", cartHandler.Get)
		api.POST("/cart/courses/:id", cartHandler.AddCourse)
		api.DELETE("/cart/courses/:id", cartHandler.RemoveCourse)
		api.POST("/cart/certifications/:slug", cartHandler.AddCertification)
		api.DELETE("/cart/certifications/:slug", cartHandler.RemoveCertification)

		// Checkout
		api.POST("/checkout/coupon", couponHandler.Apply)
		api.DELETE("/checkout/coupon", couponHandler.Remove)
		api.GET("/checkout", orderHandler.Preview)
		api.POST("/checkout",
			middleware.RateLimit(rdb.Client, "checkout", cfg.Server.CheckoutRateLimit, time.Minute, logger),
			orderHandler.Checkout)
		api.GET("/checkout/gateway", orderHandler.Gateway)
		api.POST("/checkout/return", orderHandler.Return)

		// Orders
		api.GET("/orders", orderHandler.List)
		api.GET("/orders/:number", orderHandler.Get)
		api.POST("/orders/:number/continue", orderHandler.Continue)
		api.POST("/orders/:number/cancel", orderHandler.CancelOwn)

		// Learning
		api.GET("/courses/:id/progress", progressHandler.Get)
		api.POST("/lessons/:id/complete", progressHandler.CompleteLesson)
		api.POST("/courses/:id/rating", catalogHandler.Rate)

		// Credentials
		api.GET("/certificates/:courseId/pdf", credentialsHandler.CertificatePDF)
		api.GET("/certificates/:courseId/download-url", credentialsHandler.CertificateDownloadURL)
		api.GET("/diplomas/:slug/pdf", credentialsHandler.DiplomaPDF)

		// Exams (access = paid certification)
		api.GET("/certifications/:slug/exam", exams.RequireCertificationAccess(engine), examHandler.View)
		api.POST("/certifications/:slug/exam", exams.RequireCertificationAccess(engine), examHandler.Submit)

		api.GET("/dashboard", dashboardHandler.Get)

		// Instructor course management
		instructor := api.Group("/instructor", middleware.RequireRole(models.RoleInstructor, models.RoleAdmin))
		{
			instructor.GET("/courses", catalogHandler.InstructorCourses)
			instructor.POST("/courses", catalogHandler.CreateCourse)
			instructor.POST("/courses/:id/publish", catalogHandler.Publish)
			instructor.POST("/courses/:id/modules", catalogHandler.AddModule)
			instructor.POST("/modules/:id/lessons", catalogHandler.AddLesson)
		}

		// Admin
		admin := api.Group("/admin", middleware.RequireRole(models.RoleAdmin))
		{
			admin.GET("/users", authHandler.List)
			admin.POST("/orders/:number/cancel", orderHandler.Cancel)
			admin.GET("/email-logs", emailLogsHandler.List)
		}
	}

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	// Background worker (email delivery) when not run as cmd/worker
	workerCtx, workerCancel := context.WithCancel(context.Background())
	defer workerCancel()
	if cfg.Worker.InProcess {
		processor := worker.NewEmailProcessor(jobQueue, notifications.NewSender(smtpConfig(cfg.Email), logger), emailLogsRepo,
			time.Duration(cfg.Worker.RetryBackoffSeconds)*time.Second, logger)
		go processor.Run(workerCtx)
		logger.Info("email worker started", zap.String("queue", jobQueue.Name()))
	}

	go func() {
		logger.Info("server listening", zap.String("port", cfg.Server.Port), zap.Bool("gateway", cfg.Payment.GatewayEnabled))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	workerCancel()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown", zap.Error(err))
	}
	logger.Info("server stopped")
}

func smtpConfig(e config.EmailConfig) notifications.SMTPConfig {
	return notifications.SMTPConfig{
		Host:        e.SMTPHost,
		Port:        e.SMTPPort,
		Username:    e.SMTPUser,
		Password:    e.SMTPPass,
		FromAddress: e.FromAddress,
		FromName:    e.FromName,
	}
}

func newLogger() *zap.Logger {
	config := zap.NewProductionConfig()
	config.EncoderConfig.TimeKey = "timestamp"
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	logger, _ := config.Build()
	return logger
}
