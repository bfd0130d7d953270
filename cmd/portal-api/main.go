package main

import (
	"context"
	"fmt"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/studiklab/portal-api/api/swagger"
	"github.com/studiklab/portal-api/internal/handler"
	"github.com/studiklab/portal-api/internal/middleware"
	"github.com/studiklab/portal-api/internal/models"
	"github.com/studiklab/portal-api/internal/repository"
	"github.com/studiklab/portal-api/internal/service"
	"github.com/studiklab/portal-api/pkg/cache"
	"github.com/studiklab/portal-api/pkg/config"
	"github.com/studiklab/portal-api/pkg/database"
	"github.com/studiklab/portal-api/pkg/logger"
	corsmiddleware "github.com/studiklab/portal-api/pkg/middleware/cors"
	reqidmiddleware "github.com/studiklab/portal-api/pkg/middleware/requestid"
	"github.com/studiklab/portal-api/pkg/storage"
)

// @title Bootcamp Portal API
// @version 1.0.0
// @description Learning portal backend: calendar invitations, documents, progress and technical tests
// @BasePath /api/v1
// @schemes http
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

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

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to postgres", "error", err)
	}
	defer db.Close()

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to redis", "error", err)
	}
	defer redisClient.Close()

	validate := validator.New()

	userRepo := repository.NewUserRepository(db)
	eventRepo := repository.NewEventRepository(db)
	invitationRepo := repository.NewInvitationRepository(db)
	documentRepo := repository.NewDocumentRepository(db)
	programRepo := repository.NewProgramRepository(db)
	techTestRepo := repository.NewTechTestRepository(db)
	cacheRepo := repository.NewCacheRepository(redisClient)

	authSvc := service.NewAuthService(userRepo, validate, logr, service.AuthConfig{
		AccessTokenSecret:  cfg.JWT.Secret,
		AccessTokenExpiry:  cfg.JWT.Expiration,
		RefreshTokenExpiry: cfg.JWT.RefreshExpiration,
		Issuer:             "portal-api",
	})
	userSvc := service.NewUserService(userRepo, validate, logr)
	invitationSvc := service.NewInvitationService(eventRepo, invitationRepo, cacheRepo, userRepo, cfg.Calendar, logr)
	eventSvc := service.NewEventService(eventRepo, invitationRepo, cacheRepo, logr)
	documentSvc := service.NewDocumentService(documentRepo, cfg.Documents, logr)
	techTestSvc := service.NewTechTestService(techTestRepo, cfg.TechTests, logr)
	dashboardSvc := service.NewDashboardService(programRepo, techTestRepo, invitationSvc, cacheRepo, cfg.Dashboard, logr)
	metricsSvc := service.NewMetricsService()

	var reportSvc *service.ReportService
	if cfg.Reports.Enabled {
		store, err := storage.NewLocalStorage(cfg.Reports.StorageDir)
		if err != nil {
			logr.Sugar().Fatalw("failed to init report storage", "error", err)
		}
		signer := storage.NewSignedURLSigner(cfg.Reports.SignedURLSecret, cfg.Reports.SignedURLTTL)
		reportSvc = service.NewReportService(programRepo, store, signer, metricsSvc, cfg.Reports, logr)
		reportSvc.Start(context.Background())
		defer reportSvc.Stop()
	}

	authHandler := handler.NewAuthHandler(authSvc)
	userHandler := handler.NewUserHandler(userSvc)
	invitationHandler := handler.NewInvitationHandler(invitationSvc, dashboardSvc, metricsSvc)
	eventHandler := handler.NewEventHandler(eventSvc)
	documentHandler := handler.NewDocumentHandler(documentSvc)
	dashboardHandler := handler.NewDashboardHandler(dashboardSvc)
	techTestHandler := handler.NewTechTestHandler(techTestSvc)
	metricsHandler := handler.NewMetricsHandler(metricsSvc)

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsSvc))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/ready", func(c *gin.Context) {
		if err := db.PingContext(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "db unavailable"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})
	r.GET("/metrics", metricsHandler.Scrape)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group("/api/v1")
	{
		auth := api.Group("/auth")
		{
			auth.POST("/login", authHandler.Login)
			auth.POST("/refresh", authHandler.Refresh)
			auth.POST("/logout", middleware.JWT(authSvc), authHandler.Logout)
			auth.PUT("/password", middleware.JWT(authSvc), authHandler.ChangePassword)
		}

		users := api.Group("/users", middleware.JWT(authSvc))
		{
			users.GET("/me", userHandler.Me)
			users.PATCH("/me", userHandler.UpdateMe)
			users.GET("", middleware.RequireRoles(models.RoleAdmin), userHandler.List)
			users.POST("", middleware.RequireRoles(models.RoleAdmin), userHandler.Create)
			users.GET("/:id", middleware.RBAC("SELF", string(models.RoleAdmin), string(models.RoleMentor)), userHandler.Get)
		}

		calendar := api.Group("/calendar")
		{
			calendar.GET("/invitations/feed.ics", middleware.TokenQueryAuth(authSvc), invitationHandler.Feed)

			authed := calendar.Group("", middleware.JWT(authSvc))
			{
				authed.GET("/invitations", invitationHandler.List)
				authed.POST("/invitations/bulk-response", invitationHandler.BulkRespond)
				authed.PATCH("/events/:id/response", invitationHandler.Respond)

				authed.GET("/events", eventHandler.ListOwn)
				authed.POST("/events", middleware.RequireRoles(models.RoleAdmin, models.RoleMentor), eventHandler.Create)
				authed.PATCH("/events/:id", middleware.RequireRoles(models.RoleAdmin, models.RoleMentor), eventHandler.Update)
				authed.DELETE("/events/:id", middleware.RequireRoles(models.RoleAdmin, models.RoleMentor), eventHandler.Delete)
				authed.GET("/events/:id/attendees", middleware.RequireRoles(models.RoleAdmin, models.RoleMentor), eventHandler.Attendees)
			}
		}

		documents := api.Group("/documents", middleware.JWT(authSvc))
		{
			documents.GET("", documentHandler.List)
			documents.GET("/:slug", documentHandler.Get)
			documents.POST("", middleware.RequireRoles(models.RoleAdmin, models.RoleMentor), documentHandler.Create)
			documents.PUT("/:slug", middleware.RequireRoles(models.RoleAdmin, models.RoleMentor), documentHandler.Update)
		}

		if cfg.Dashboard.Enabled {
			api.GET("/dashboard", middleware.JWT(authSvc), dashboardHandler.Get)
		}

		if cfg.TechTests.Enabled {
			tests := api.Group("/tech-tests", middleware.JWT(authSvc))
			{
				tests.GET("", techTestHandler.List)
				tests.POST("/:id/attempts", techTestHandler.Start)
				tests.GET("/attempts", techTestHandler.Attempts)
				tests.POST("/attempts/:id", techTestHandler.Submit)
			}
		}

		if reportSvc != nil {
			reportHandler := handler.NewReportHandler(reportSvc)
			reports := api.Group("/reports")
			{
				reports.GET("/download", reportHandler.Download)
				reports.POST("", middleware.JWT(authSvc), middleware.RequireRoles(models.RoleAdmin, models.RoleMentor), reportHandler.Generate)
				reports.GET("/:id", middleware.JWT(authSvc), reportHandler.Status)
			}
		}
	}

	addr := fmt.Sprintf(":%d", cfg.Port)
	logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
	if err := r.Run(addr); err != nil {
		logr.Sugar().Fatalw("server failed", "error", err)
	}
}
