package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/redis/go-redis/v9"
	"github.com/trioscs/avail/internal/config"
	crmentity "github.com/trioscs/avail/internal/crm/entity"
	crmhandler "github.com/trioscs/avail/internal/crm/handler"
	crmrepo "github.com/trioscs/avail/internal/crm/repository"
	crmsvc "github.com/trioscs/avail/internal/crm/service"
	"github.com/trioscs/avail/internal/middleware"
	"github.com/trioscs/avail/internal/shared/mailgw"
	"github.com/trioscs/avail/internal/sourcing/entity"
	"github.com/trioscs/avail/internal/sourcing/handler"
	"github.com/trioscs/avail/internal/sourcing/repository"
	"github.com/trioscs/avail/internal/sourcing/service"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var (
	Version   = "dev"
	BuildTime = "unknown"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Printf("Warning: .env file not found, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	zapLogger, err := initLogger(cfg.Log)
	if err != nil {
		log.Fatalf("Failed to init logger: %v", err)
	}
	defer zapLogger.Sync()

	zapLogger.Info("Starting avail service",
		zap.String("version", Version),
		zap.String("build_time", BuildTime),
	)

	db, err := initDatabase(cfg.Database)
	if err != nil {
		zapLogger.Fatal("Failed to connect to database", zap.Error(err))
	}

	if err := db.AutoMigrate(
		&entity.Requisition{},
		&entity.Requirement{},
		&entity.Sighting{},
		&entity.Offer{},
		&entity.Quote{},
		&entity.QuoteItem{},
		&entity.BuyPlan{},
		&entity.BuyPlanItem{},
		&entity.RFQBatch{},
		&entity.RFQVendorSend{},
		&entity.RFQAsk{},
		&entity.Source{},
		&entity.ScoringWeights{},
		&entity.ActivityLog{},
		&entity.ErrorReport{},
	); err != nil {
		zapLogger.Warn("AutoMigrate sourcing tables warning", zap.Error(err))
	}

	if err := db.AutoMigrate(
		&crmentity.Company{},
		&crmentity.Site{},
		&crmentity.Contact{},
		&crmentity.VendorCard{},
		&crmentity.MaterialCard{},
		&crmentity.MaterialListing{},
	); err != nil {
		zapLogger.Warn("AutoMigrate crm tables warning", zap.Error(err))
	}

	// Hot query paths not covered by the gorm tags.
	migrationSQL := []string{
		"CREATE INDEX IF NOT EXISTS idx_sightings_req_vendor ON sightings(requirement_id, vendor_name)",
		"CREATE INDEX IF NOT EXISTS idx_activity_logs_req_time ON activity_logs(requisition_id, created_at DESC)",
		"CREATE INDEX IF NOT EXISTS idx_buy_plans_status ON buy_plans(status)",
		"CREATE INDEX IF NOT EXISTS idx_rfq_vendor_sends_batch_status ON rfq_vendor_sends(batch_id, status)",
	}
	for _, sql := range migrationSQL {
		if err := db.Exec(sql).Error; err != nil {
			zapLogger.Warn("Index migration warning", zap.String("sql", sql), zap.Error(err))
		}
	}

	rdb := initRedis(cfg.Redis)

	var mailClient *mailgw.Client
	if cfg.MailGW.BaseURL != "" {
		mailClient = mailgw.NewClient(cfg.MailGW.BaseURL, cfg.MailGW.ClientID, cfg.MailGW.ClientSecret, cfg.MailGW.Sender)
		zapLogger.Info("Mail gateway client initialized")
	}

	var minioClient *minio.Client
	if cfg.MinIO.Endpoint != "" {
		minioClient, err = minio.New(cfg.MinIO.Endpoint, &minio.Options{
			Creds:  credentials.NewStaticV4(cfg.MinIO.AccessKey, cfg.MinIO.SecretKey, ""),
			Secure: cfg.MinIO.UseSSL,
		})
		if err != nil {
			zapLogger.Warn("MinIO init failed, attachments disabled", zap.Error(err))
			minioClient = nil
		}
	}

	repos := repository.NewRepositories(db)
	crmRepos := crmrepo.NewRepositories(db)

	crmService := crmsvc.NewCRMService(crmRepos, zapLogger)

	activity := service.NewActivityRecorder(repos.ActivityLog, zapLogger)
	reqSvc := service.NewRequisitionService(repos, activity, zapLogger)

	searchSvc := service.NewSearchService(repos, activity, zapLogger)
	searchSvc.SetHistoryProvider(crmsvc.NewHistoryProvider(crmService))
	searchSvc.RegisterConnector(crmsvc.NewListingConnector("vendor_listings", crmService))

	rfqSvc := service.NewRFQService(repos, crmService, activity, zapLogger)
	rfqSvc.SetRedis(rdb)
	rfqSvc.SetRFQCountBumper(crmService)
	if mailClient != nil {
		rfqSvc.SetMailSender(mailClient)
	}

	offerSvc := service.NewOfferService(repos, activity, zapLogger)
	if minioClient != nil {
		offerSvc.SetObjectStore(minioClient, cfg.MinIO.Bucket)
	}
	quoteSvc := service.NewQuoteService(repos, reqSvc, activity, zapLogger)

	planSvc := service.NewBuyPlanService(repos, reqSvc, activity, zapLogger,
		cfg.JWT.Secret, cfg.JWT.ApprovalLinkExpire)
	if mailClient != nil {
		planSvc.SetPOScanner(mailClient)
		planSvc.SetMailSender(mailClient)
	}

	settingsSvc := service.NewSettingsService(repos, zapLogger)
	enrichSvc := service.NewEnrichmentService(
		crmsvc.NewEnrichmentStore(crmService),
		&crmsvc.DeterministicEnricher{},
		zapLogger,
	)
	dashSvc := service.NewDashboardService(repos, zapLogger)

	handlers := handler.NewHandlers(reqSvc, searchSvc, rfqSvc, offerSvc, quoteSvc,
		planSvc, settingsSvc, enrichSvc, dashSvc)
	crmHandler := crmhandler.NewCRMHandler(crmService)

	if cfg.Server.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.Logger(zapLogger))
	router.Use(middleware.CORS())
	router.Use(middleware.RequestID())
	router.Use(middleware.CSRFGuard())
	router.Use(gzip.Gzip(gzip.DefaultCompression))

	registerRoutes(router, handlers, crmHandler, cfg)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		zapLogger.Info("Server starting", zap.Int("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			zapLogger.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	zapLogger.Info("Shutting down server...")

	enrichSvc.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		zapLogger.Error("Server forced to shutdown", zap.Error(err))
	}

	zapLogger.Info("Server exited")
}

func initLogger(cfg config.LogConfig) (*zap.Logger, error) {
	var zapCfg zap.Config

	if cfg.Format == "json" {
		zapCfg = zap.NewProductionConfig()
	} else {
		zapCfg = zap.NewDevelopmentConfig()
	}

	switch cfg.Level {
	case "debug":
		zapCfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	case "info":
		zapCfg.Level = zap.NewAtomicLevelAt(zap.InfoLevel)
	case "warn":
		zapCfg.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
	case "error":
		zapCfg.Level = zap.NewAtomicLevelAt(zap.ErrorLevel)
	}

	return zapCfg.Build()
}

func initDatabase(cfg config.DatabaseConfig) (*gorm.DB, error) {
	dsn := fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.DBName, cfg.SSLMode,
	)

	gormConfig := &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	}

	db, err := gorm.Open(postgres.Open(dsn), gormConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database instance: %w", err)
	}

	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	sqlDB.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	return db, nil
}

func initRedis(cfg config.RedisConfig) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Password: cfg.Password,
		DB:       cfg.DB,
		PoolSize: cfg.PoolSize,
	})
}

func registerRoutes(r *gin.Engine, h *handler.Handlers, crmH *crmhandler.CRMHandler, cfg *config.Config) {
	r.GET("/health/live", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/health/ready", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	r.GET("/version", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"version":    Version,
			"build_time": BuildTime,
		})
	})

	// SPA: hashed asset filenames get an immutable cache; everything else
	// falls back to index.html.
	r.Use(func(c *gin.Context) {
		if len(c.Request.URL.Path) > 8 && c.Request.URL.Path[:8] == "/assets/" {
			c.Header("Cache-Control", "public, max-age=31536000, immutable")
		}
		c.Next()
	})
	r.Static("/assets", "./web/avail/assets")
	r.NoRoute(func(c *gin.Context) {
		if len(c.Request.URL.Path) > 4 && c.Request.URL.Path[:5] == "/api/" {
			c.JSON(http.StatusNotFound, gin.H{"code": 40400, "message": "Not found"})
			return
		}
		indexData, err := os.ReadFile("./web/avail/index.html")
		if err != nil {
			c.String(http.StatusInternalServerError, "index.html not found")
			return
		}
		c.Header("Cache-Control", "no-cache, no-store, must-revalidate")
		c.Data(http.StatusOK, "text/html; charset=utf-8", indexData)
	})

	v1 := r.Group("/api/v1")
	v1.Use(middleware.JWTAuth(cfg.JWT.Secret))

	manager := middleware.RequireAnyRole("manager", "admin")
	admin := middleware.RequireRole("admin")

	{
		requisitions := v1.Group("/requisitions")
		{
			requisitions.GET("", h.Requisition.List)
			requisitions.POST("", h.Requisition.Create)
			requisitions.GET("/:id", h.Requisition.Get)
			requisitions.PUT("/:id", h.Requisition.Update)
			requisitions.PUT("/:id/archive", h.Requisition.Archive)
			requisitions.POST("/:id/clone", h.Requisition.Clone)
			requisitions.GET("/:id/activity", h.Requisition.ListActivity)

			requisitions.GET("/:id/requirements", h.Requisition.ListRequirements)
			requisitions.POST("/:id/requirements", h.Requisition.AddRequirement)

			requisitions.POST("/:id/search", h.Search.Run)
			requisitions.GET("/:id/results", h.Search.FilterResults)
			requisitions.POST("/:id/selection/group", h.Search.GroupSelection)

			requisitions.POST("/:id/rfq/compose", h.RFQ.Compose)
			requisitions.GET("/:id/rfq/batches", h.RFQ.ListBatches)

			requisitions.GET("/:id/offers", h.Offer.ListByRequisition)
			requisitions.GET("/:id/quotes", h.Quote.ListByRequisition)
		}

		requirements := v1.Group("/requirements")
		{
			requirements.PUT("/:id", h.Requisition.UpdateRequirement)
			requirements.DELETE("/:id", h.Requisition.DeleteRequirement)
			requirements.GET("/:id/sightings", h.Search.ListSightings)
		}

		v1.PUT("/sightings/:id/unavailable", h.Search.MarkUnavailable)
		v1.POST("/rfq/dispatch", h.RFQ.Dispatch)

		offers := v1.Group("/offers")
		{
			offers.POST("", h.Offer.Create)
			offers.GET("/:id", h.Offer.Get)
			offers.PUT("/:id", h.Offer.Update)
			offers.POST("/:id/attachments", h.Offer.UploadAttachment)
			offers.GET("/:id/attachments/:index", h.Offer.DownloadAttachment)
		}

		quotes := v1.Group("/quotes")
		{
			quotes.POST("", h.Quote.Create)
			quotes.GET("/:id", h.Quote.Get)
			quotes.PUT("/:id/send", h.Quote.Send)
			quotes.PUT("/:id/revise", h.Quote.Revise)
			quotes.PUT("/:id/won", h.Quote.MarkWon)
			quotes.PUT("/:id/lost", h.Quote.MarkLost)
			quotes.GET("/:id/export", h.Quote.Export)
		}
		v1.PUT("/quote-items/:id/prices", h.Quote.UpdateItemPrices)

		buyPlans := v1.Group("/buy-plans")
		{
			buyPlans.GET("", h.BuyPlan.List)
			buyPlans.POST("", h.BuyPlan.Submit)
			buyPlans.POST("/approve-token", h.BuyPlan.ApproveByToken)
			buyPlans.GET("/:id", h.BuyPlan.Get)
			buyPlans.PUT("/:id/approve", manager, h.BuyPlan.Approve)
			buyPlans.PUT("/:id/reject", manager, h.BuyPlan.Reject)
			buyPlans.PUT("/:id/cancel", h.BuyPlan.Cancel)
			buyPlans.PUT("/:id/pos", h.BuyPlan.SavePOs)
			buyPlans.POST("/:id/verify-pos", h.BuyPlan.VerifyPOs)
			buyPlans.PUT("/:id/complete", manager, h.BuyPlan.Complete)
			buyPlans.POST("/:id/resubmit", h.BuyPlan.Resubmit)
		}

		sources := v1.Group("/sources")
		{
			sources.GET("", h.Settings.ListSources)
			sources.POST("", admin, h.Settings.CreateSource)
			sources.PUT("/:id", admin, h.Settings.UpdateSource)
			sources.DELETE("/:id", admin, h.Settings.DeleteSource)
		}

		v1.GET("/scoring-weights", h.Settings.GetWeights)
		v1.PUT("/scoring-weights", admin, h.Settings.UpdateWeights)

		errorReports := v1.Group("/error-reports")
		{
			errorReports.GET("", h.Settings.ListErrorReports)
			errorReports.POST("", h.Settings.CreateErrorReport)
			errorReports.PUT("/:id/status", admin, h.Settings.UpdateErrorReportStatus)
		}

		enrichment := v1.Group("/enrichment")
		{
			enrichment.POST("/start", admin, h.Settings.StartEnrichment)
			enrichment.POST("/stop", admin, h.Settings.StopEnrichment)
			enrichment.GET("/progress", h.Settings.EnrichmentProgress)
		}

		v1.GET("/dashboard", h.Dashboard.Snapshot)
		v1.POST("/dashboard/refresh", h.Dashboard.Refresh)

		companies := v1.Group("/companies")
		{
			companies.GET("", crmH.ListCompanies)
			companies.POST("", crmH.CreateCompany)
			companies.GET("/:id", crmH.GetCompany)
			companies.PUT("/:id", crmH.UpdateCompany)
			companies.POST("/:id/sites", crmH.CreateSite)
		}
		v1.POST("/sites/:id/contacts", crmH.CreateContact)
		v1.DELETE("/contacts/:id", crmH.DeleteContact)

		vendorCards := v1.Group("/vendor-cards")
		{
			vendorCards.GET("", crmH.ListVendorCards)
			vendorCards.POST("", crmH.UpsertVendorCard)
			vendorCards.GET("/:id", crmH.GetVendorCard)
		}

		materialCards := v1.Group("/material-cards")
		{
			materialCards.GET("", crmH.ListMaterialCards)
			materialCards.POST("", crmH.UpsertMaterialCard)
			materialCards.GET("/history", crmH.ListMaterialHistory)
			materialCards.GET("/:id", crmH.GetMaterialCard)
		}
	}
}
