package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/harborlaw/immigration-crm-api/api/swagger"
	"github.com/harborlaw/immigration-crm-api/internal/handler"
	"github.com/harborlaw/immigration-crm-api/internal/middleware"
	"github.com/harborlaw/immigration-crm-api/internal/models"
	"github.com/harborlaw/immigration-crm-api/internal/repository"
	"github.com/harborlaw/immigration-crm-api/internal/service"
	"github.com/harborlaw/immigration-crm-api/pkg/cache"
	"github.com/harborlaw/immigration-crm-api/pkg/config"
	"github.com/harborlaw/immigration-crm-api/pkg/database"
	"github.com/harborlaw/immigration-crm-api/pkg/export"
	"github.com/harborlaw/immigration-crm-api/pkg/logger"
	corsmiddleware "github.com/harborlaw/immigration-crm-api/pkg/middleware/cors"
	reqidmiddleware "github.com/harborlaw/immigration-crm-api/pkg/middleware/requestid"
	"github.com/harborlaw/immigration-crm-api/pkg/notify"
	"github.com/harborlaw/immigration-crm-api/pkg/storage"
)

// @title Harbor Law Immigration CRM API
// @version 1.0.0
// @description Case management backend for an immigration law practice
// @BasePath /api/v1
// @schemes http

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to postgres", "error", err)
	}
	defer db.Close() //nolint:errcheck

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to redis", "error", err)
	}
	defer redisClient.Close() //nolint:errcheck

	documentStorage, err := storage.NewLocalStorage(cfg.Documents.StorageDir)
	if err != nil {
		logr.Sugar().Fatalw("failed to init document storage", "error", err)
	}
	exportStorage, err := storage.NewLocalStorage(cfg.Exports.StorageDir)
	if err != nil {
		logr.Sugar().Fatalw("failed to init export storage", "error", err)
	}
	documentSigner := storage.NewSignedURLSigner(cfg.Documents.SignedURLSecret, cfg.Documents.SignedURLTTL)
	exportSigner := storage.NewSignedURLSigner(cfg.Exports.SignedURLSecret, cfg.Exports.SignedURLTTL)

	userRepo := repository.NewUserRepository(db)
	leadRepo := repository.NewLeadRepository(db)
	caseRepo := repository.NewCaseRepository(db)
	documentRepo := repository.NewDocumentRepository(db)
	appointmentRepo := repository.NewAppointmentRepository(db)
	communicationRepo := repository.NewCommunicationRepository(db)
	reminderRepo := repository.NewReminderRuleRepository(db)
	activityRepo := repository.NewActivityRepository(db)
	cacheRepo := repository.NewCacheRepository(redisClient, logr)
	dedupeRepo := repository.NewDedupeRepository(redisClient, cfg.Reminders.DedupeTTL)

	validate := validator.New()
	metricsSvc := service.NewMetricsService()

	senders := map[notify.Channel]notify.Sender{}
	if cfg.Email.Enabled {
		senders[notify.ChannelEmail] = notify.NewEmailSender(cfg.Email)
	}
	if cfg.SMS.Enabled {
		senders[notify.ChannelSMS] = notify.NewSMSSender(cfg.SMS)
	}

	notificationSvc := service.NewNotificationService(communicationRepo, senders, service.NotificationConfig{
		Workers:    cfg.Notify.Workers,
		BufferSize: cfg.Notify.BufferSize,
		MaxRetries: cfg.Notify.MaxRetries,
		RetryDelay: cfg.Notify.RetryDelay,
	}, metricsSvc, validate, logr)

	authSvc := service.NewAuthService(userRepo, validate, logr, service.AuthConfig{
		AccessTokenSecret:  cfg.JWT.Secret,
		AccessTokenExpiry:  cfg.JWT.Expiration,
		RefreshTokenExpiry: cfg.JWT.RefreshExpiration,
		Issuer:             "immigration-crm-api",
	})
	caseSvc := service.NewCaseService(caseRepo, activityRepo, notificationSvc, metricsSvc, validate, logr)
	leadSvc := service.NewLeadService(leadRepo, caseSvc, activityRepo, metricsSvc, validate, logr)
	documentSvc := service.NewDocumentService(documentRepo, caseRepo, documentStorage, documentSigner, activityRepo, notificationSvc, service.DocumentConfig{
		MaxFileSizeBytes: cfg.Documents.MaxFileSizeBytes,
		AllowedMIMEs:     cfg.Documents.AllowedMIMEs,
	}, validate, logr)
	appointmentSvc := service.NewAppointmentService(appointmentRepo, activityRepo, notificationSvc, validate, logr)
	reminderSvc := service.NewReminderService(reminderRepo, dedupeRepo, caseRepo, documentRepo, appointmentRepo, notificationSvc, metricsSvc, service.ReminderConfig{
		Interval: cfg.Reminders.Interval,
		BatchMax: cfg.Reminders.BatchMax,
	}, validate, logr)
	analyticsSvc := service.NewAnalyticsService(leadRepo, caseRepo, documentRepo, appointmentRepo, cacheRepo, metricsSvc, cfg.Analytics.CacheTTL, logr)
	exportSvc := service.NewExportService(caseRepo, exportStorage, exportSigner, service.ExportConfig{
		APIPrefix: cfg.APIPrefix,
		ResultTTL: cfg.Exports.SignedURLTTL,
	}, logr, export.NewCSVExporter(), export.NewPDFExporter())

	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	notificationSvc.Start(rootCtx)
	defer notificationSvc.Stop()
	if cfg.Reminders.Enabled {
		go reminderSvc.Run(rootCtx)
	}
	go exportSvc.RunCleanup(rootCtx, cfg.Exports.CleanupInterval)

	authHandler := handler.NewAuthHandler(authSvc)
	leadHandler := handler.NewLeadHandler(leadSvc)
	caseHandler := handler.NewCaseHandler(caseSvc)
	documentHandler := handler.NewDocumentHandler(documentSvc)
	appointmentHandler := handler.NewAppointmentHandler(appointmentSvc)
	reminderHandler := handler.NewReminderHandler(reminderSvc)
	communicationHandler := handler.NewCommunicationHandler(notificationSvc)
	analyticsHandler := handler.NewAnalyticsHandler(analyticsSvc)
	exportHandler := handler.NewExportHandler(exportSvc)
	activityHandler := handler.NewActivityHandler(activityRepo)
	metricsHandler := handler.NewMetricsHandler(metricsSvc)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsSvc))

	r.GET("/healthz", metricsHandler.Health)
	r.GET("/metrics", metricsHandler.Prometheus)
	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)

	api.POST("/auth/login", authHandler.Login)
	api.POST("/auth/refresh", authHandler.Refresh)
	api.GET("/portal/documents/:token", documentHandler.PortalDownload)
	api.GET("/exports/download/:token", exportHandler.Download)

	auth := api.Group("", middleware.JWT(authSvc))
	{
		auth.POST("/auth/logout", authHandler.Logout)
		auth.POST("/auth/change-password", authHandler.ChangePassword)
		auth.GET("/auth/me", authHandler.Me)

		auth.GET("/leads", leadHandler.List)
		auth.POST("/leads", leadHandler.Create)
		auth.GET("/leads/:id", leadHandler.Get)
		auth.PUT("/leads/:id", leadHandler.Update)
		auth.POST("/leads/:id/notes", leadHandler.AddNote)
		auth.GET("/leads/:id/notes", leadHandler.ListNotes)
		auth.POST("/leads/:id/convert", middleware.RequireRoles(models.RoleAdmin, models.RoleAttorney), leadHandler.Convert)

		auth.GET("/cases", caseHandler.List)
		auth.POST("/cases", caseHandler.Create)
		auth.GET("/cases/:id", caseHandler.Get)
		auth.PUT("/cases/:id", caseHandler.Update)
		auth.GET("/case-numbers/:number", caseHandler.GetByNumber)
		auth.GET("/cases/:id/transitions", caseHandler.Successors)
		auth.POST("/cases/:id/transition", middleware.RequireRoles(models.RoleAdmin, models.RoleAttorney), caseHandler.Transition)

		auth.POST("/documents", documentHandler.Upload)
		auth.GET("/documents", documentHandler.List)
		auth.GET("/documents/:id", documentHandler.Get)
		auth.POST("/documents/:id/review", middleware.RequireRoles(models.RoleAdmin, models.RoleAttorney), documentHandler.Review)
		auth.POST("/documents/:id/download-link", documentHandler.SignedDownload)
		auth.POST("/documents/:id/comments", documentHandler.AddComment)
		auth.GET("/documents/:id/comments", documentHandler.ListComments)

		auth.GET("/appointments", appointmentHandler.List)
		auth.POST("/appointments", appointmentHandler.Create)
		auth.GET("/appointments/:id", appointmentHandler.Get)
		auth.POST("/appointments/:id/decision", appointmentHandler.Decide)

		auth.GET("/communications", communicationHandler.List)
		auth.POST("/communications/send", communicationHandler.Send)
		auth.POST("/communications/log", communicationHandler.Log)

		auth.GET("/analytics/dashboard", analyticsHandler.Dashboard)
		auth.DELETE("/analytics/cache", middleware.RequireRoles(models.RoleAdmin), analyticsHandler.Invalidate)

		auth.POST("/exports/cases", exportHandler.GenerateCases)

		auth.GET("/activities", activityHandler.List)

		admin := auth.Group("/reminders", middleware.RequireRoles(models.RoleAdmin))
		{
			admin.GET("/rules", reminderHandler.ListRules)
			admin.POST("/rules", reminderHandler.CreateRule)
			admin.GET("/rules/:id", reminderHandler.GetRule)
			admin.PUT("/rules/:id", reminderHandler.UpdateRule)
			admin.POST("/evaluate", reminderHandler.Evaluate)
		}
	}

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Port),
		Handler: r,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-rootCtx.Done()
	logr.Sugar().Infow("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Sugar().Errorw("forced shutdown", "error", err)
	}
}
