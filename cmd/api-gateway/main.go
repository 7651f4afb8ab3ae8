package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	_ "github.com/noah-isme/gov-portal-api/api/swagger"
	"github.com/noah-isme/gov-portal-api/internal/repository"
	"github.com/noah-isme/gov-portal-api/internal/service"
	"github.com/noah-isme/gov-portal-api/pkg/cache"
	"github.com/noah-isme/gov-portal-api/pkg/config"
	"github.com/noah-isme/gov-portal-api/pkg/database"
	"github.com/noah-isme/gov-portal-api/pkg/export"
	"github.com/noah-isme/gov-portal-api/pkg/logger"
)

// @title Gov Portal API
// @version 1.0.0
// @description Municipal resident portal: appeals, service catalog, payments and the employee console.
// @BasePath /api/v1
// @schemes http https
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

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.NewPostgres(ctx, cfg.Database)
	if err != nil {
		logr.Fatal("failed to connect to database", zap.Error(err))
	}
	defer db.Close() //nolint:errcheck

	if cfg.Migrations.AutoApply {
		if err := database.MigrateUp(db); err != nil {
			logr.Fatal("failed to apply migrations", zap.Error(err))
		}
		logr.Info("migrations applied")
	}

	redisClient, err := cache.NewRedis(ctx, cfg.Redis)
	if err != nil {
		logr.Warn("redis unavailable, caching disabled", zap.Error(err))
		redisClient = nil
	}
	if redisClient != nil {
		defer redisClient.Close() //nolint:errcheck
	}

	app := buildApp(ctx, cfg, logr, db, redisClient)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           app.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logr.Info("server starting", zap.String("addr", srv.Addr), zap.String("env", cfg.Env))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Fatal("server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logr.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Error("graceful shutdown failed", zap.Error(err))
	}
}

type services struct {
	auth      *service.AuthService
	users     *service.UserService
	appeals   *service.AppealService
	exporter  *service.ExportService
	catalog   *service.CatalogService
	resources *service.ResourceService
	payments  *service.PaymentService
	activity  *service.ActivityService
	dashboard *service.DashboardService
	metrics   *service.MetricsService
	refresh   service.RefreshFunc
}

func buildServices(cfg *config.Config, logr *zap.Logger, repos repositories, redisClient *redis.Client) services {
	validate := validator.New()
	metrics := service.NewMetricsService()

	var cacheRepo service.CacheRepository
	if redisClient != nil {
		cacheRepo = repository.NewCacheRepository(redisClient, logr)
	}
	cacheSvc := service.NewCacheService(cacheRepo, metrics, cfg.Dashboard.CacheTTL, logr, redisClient != nil)

	appeals := service.NewAppealService(service.AppealServiceParams{
		Store:      repos.appeals,
		Activities: repos.activities,
		Audit:      repos.users,
		Metrics:    metrics,
		Validator:  validate,
		Logger:     logr,
	})
	activity := service.NewActivityService(repos.activities)

	// payments and resources feed the dashboard, which is built after them.
	var dashboard *service.DashboardService
	invalidateDashboard := func(ctx context.Context) error { return dashboard.Invalidate(ctx) }

	payments := service.NewPaymentService(service.PaymentServiceParams{
		Repo:       repos.payments,
		Activities: repos.activities,
		Audit:      repos.users,
		Validator:  validate,
		Logger:     logr,
		OnChange:   invalidateDashboard,
	})
	resources := service.NewResourceService(service.ResourceServiceParams{
		Repo:      repos.resources,
		Audit:     repos.users,
		Validator: validate,
		Logger:    logr,
		OnChange:  invalidateDashboard,
	})

	dashboard = service.NewDashboardService(service.DashboardServiceParams{
		Appeals:    appeals,
		Activities: activity,
		Payments:   payments,
		Resources:  resources,
		Cache:      cacheSvc,
		Logger:     logr,
		Config: service.DashboardServiceConfig{
			CacheTTL:         cfg.Dashboard.CacheTTL,
			RecentActivities: cfg.Dashboard.RecentActivities,
		},
	})

	catalog := service.NewCatalogService(service.CatalogServiceParams{
		Repo:      repos.catalog,
		Audit:     repos.users,
		Validator: validate,
		Logger:    logr,
	})

	var exporter *service.ExportService
	if cfg.Appeals.ExportEnabled {
		exporter = service.NewExportService(appeals, logr, export.NewCSVExporter(export.WithBOM()), export.NewPDFExporter())
	}

	return services{
		auth: service.NewAuthService(service.AuthServiceParams{
			Repo:      repos.users,
			Validator: validate,
			Logger:    logr,
			Config: service.AuthConfig{
				AccessTokenSecret:  cfg.JWT.Secret,
				AccessTokenExpiry:  cfg.JWT.Expiration,
				RefreshTokenExpiry: cfg.JWT.RefreshExpiration,
				Issuer:             cfg.JWT.Issuer,
			},
		}),
		users:     service.NewUserService(service.UserServiceParams{Repo: repos.users, Validator: validate, Logger: logr}),
		appeals:   appeals,
		exporter:  exporter,
		catalog:   catalog,
		resources: resources,
		payments:  payments,
		activity:  activity,
		dashboard: dashboard,
		metrics:   metrics,
		refresh:   dashboard.Invalidate,
	}
}
