package main

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	"github.com/noah-isme/gov-portal-api/internal/handler"
	"github.com/noah-isme/gov-portal-api/internal/middleware"
	"github.com/noah-isme/gov-portal-api/internal/models"
	"github.com/noah-isme/gov-portal-api/internal/repository"
	"github.com/noah-isme/gov-portal-api/pkg/config"
	"github.com/noah-isme/gov-portal-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/gov-portal-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/gov-portal-api/pkg/middleware/requestid"
)

type repositories struct {
	users      *repository.UserRepository
	appeals    *repository.AppealRepository
	activities *repository.ActivityRepository
	catalog    *repository.CatalogRepository
	resources  *repository.ResourceRepository
	payments   *repository.PaymentRepository
}

type app struct {
	router *gin.Engine
}

func buildApp(ctx context.Context, cfg *config.Config, logr *zap.Logger, db *sqlx.DB, redisClient *redis.Client) *app {
	repos := repositories{
		users:      repository.NewUserRepository(db),
		appeals:    repository.NewAppealRepository(db),
		activities: repository.NewActivityRepository(db),
		catalog:    repository.NewCatalogRepository(db),
		resources:  repository.NewResourceRepository(db),
		payments:   repository.NewPaymentRepository(db),
	}
	svcs := buildServices(cfg, logr, repos, redisClient)

	limiter := middleware.NewRateLimiter(cfg.Appeals.SubmitInterval, cfg.Appeals.SubmitBurst, logr)
	limiter.StartCleanup(ctx, time.Minute)

	checks := map[string]handler.ReadinessCheck{
		"database": db.PingContext,
	}
	if redisClient != nil {
		checks["redis"] = func(ctx context.Context) error { return redisClient.Ping(ctx).Err() }
	}

	authHandler := handler.NewAuthHandler(svcs.auth)
	userHandler := handler.NewUserHandler(svcs.users)
	appealHandler := handler.NewAppealHandler(svcs.appeals, nil, svcs.refresh)
	if svcs.exporter != nil {
		appealHandler = handler.NewAppealHandler(svcs.appeals, svcs.exporter, svcs.refresh)
	}
	catalogHandler := handler.NewCatalogHandler(svcs.catalog)
	resourceHandler := handler.NewResourceHandler(svcs.resources)
	paymentHandler := handler.NewPaymentHandler(svcs.payments)
	dashboardHandler := handler.NewDashboardHandler(svcs.dashboard, svcs.activity)
	metricsHandler := handler.NewMetricsHandler(svcs.metrics, checks)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(svcs.metrics))
	r.Use(middleware.WithResponseMeta())

	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", metricsHandler.Ready)
	r.GET("/metrics", metricsHandler.Prometheus)
	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)
	requireAuth := middleware.JWT(svcs.auth)
	staff := middleware.RequireStaff()
	admins := middleware.RequireRoles(models.RoleSuperAdmin, models.RoleAdmin)

	auth := api.Group("/auth")
	auth.POST("/login", authHandler.Login)
	auth.POST("/register", authHandler.Register)
	auth.POST("/refresh", authHandler.Refresh)
	auth.POST("/logout", requireAuth, authHandler.Logout)
	auth.POST("/change-password", requireAuth, authHandler.ChangePassword)
	auth.GET("/me", requireAuth, authHandler.Me)

	users := api.Group("/users", requireAuth, admins)
	users.GET("", userHandler.List)
	users.GET("/:id", userHandler.Get)
	users.POST("", userHandler.Create)
	users.PUT("/:id", userHandler.Update)
	users.DELETE("/:id", userHandler.Delete)

	appeals := api.Group("/appeals", requireAuth)
	appeals.POST("", middleware.RequireRoles(models.RoleResident), limiter.Handler(), appealHandler.Submit)
	appeals.GET("/mine", middleware.RequireRoles(models.RoleResident), appealHandler.Mine)
	appeals.GET("", staff, appealHandler.List)
	appeals.GET("/stats", staff, appealHandler.Stats)
	appeals.GET("/export", staff, middleware.Audit(repos.users, logr, models.AuditActionAppealExport, "appeals"), appealHandler.Export)
	appeals.GET("/:id", appealHandler.Get)
	appeals.GET("/:id/history", staff, appealHandler.History)
	appeals.PUT("/:id/review", staff, appealHandler.Review)

	catalog := api.Group("/services")
	catalog.GET("", middleware.OptionalJWT(svcs.auth), catalogHandler.List)
	catalog.GET("/:id", catalogHandler.Get)
	catalog.POST("", requireAuth, admins, catalogHandler.Create)
	catalog.PUT("/:id", requireAuth, admins, catalogHandler.Update)
	catalog.DELETE("/:id", requireAuth, admins, catalogHandler.Delete)

	resources := api.Group("/resources", requireAuth, staff)
	resources.GET("", resourceHandler.List)
	resources.GET("/:id", resourceHandler.Get)
	resources.POST("", resourceHandler.Create)
	resources.PUT("/:id", resourceHandler.Update)
	resources.DELETE("/:id", resourceHandler.Delete)

	payments := api.Group("/payments", requireAuth)
	payments.GET("", paymentHandler.List)
	payments.GET("/:id", paymentHandler.Get)
	payments.POST("", staff, paymentHandler.Create)
	payments.PUT("/:id/status", staff, paymentHandler.UpdateStatus)

	api.GET("/activities", requireAuth, staff, dashboardHandler.Activities)
	if cfg.Dashboard.Enabled {
		api.GET("/dashboard", requireAuth, staff, dashboardHandler.Console)
	}
	api.GET("/metrics/summary", requireAuth, admins, metricsHandler.Summary)

	return &app{router: r}
}
