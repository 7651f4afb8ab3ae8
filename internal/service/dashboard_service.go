package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/gov-portal-api/internal/dto"
	"github.com/noah-isme/gov-portal-api/internal/models"
)

// DashboardCacheKey is the single cache slot holding the console summary.
const DashboardCacheKey = "dash:console"

type appealStatsProvider interface {
	Stats(ctx context.Context) (models.AppealStats, error)
}

type recentActivityProvider interface {
	Recent(ctx context.Context, limit int) ([]models.Activity, error)
}

type paymentSummaryProvider interface {
	Summary(ctx context.Context) (dto.DashboardPayments, error)
}

type resourceSummaryProvider interface {
	Summary(ctx context.Context) (dto.DashboardResources, error)
}

// DashboardServiceConfig tunes dashboard behaviour.
type DashboardServiceConfig struct {
	CacheTTL         time.Duration
	RecentActivities int
}

// DashboardService composes the employee console summary.
type DashboardService struct {
	appeals    appealStatsProvider
	activities recentActivityProvider
	payments   paymentSummaryProvider
	resources  resourceSummaryProvider
	cache      *CacheService
	logger     *zap.Logger
	now        func() time.Time
	cfg        DashboardServiceConfig
}

// DashboardServiceParams groups constructor dependencies.
type DashboardServiceParams struct {
	Appeals    appealStatsProvider
	Activities recentActivityProvider
	Payments   paymentSummaryProvider
	Resources  resourceSummaryProvider
	Cache      *CacheService
	Logger     *zap.Logger
	Config     DashboardServiceConfig
}

// NewDashboardService constructs a DashboardService with sane defaults.
func NewDashboardService(params DashboardServiceParams) *DashboardService {
	cfg := params.Config
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = 5 * time.Minute
	}
	if cfg.RecentActivities <= 0 {
		cfg.RecentActivities = 10
	}
	logger := params.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DashboardService{
		appeals:    params.Appeals,
		activities: params.Activities,
		payments:   params.Payments,
		resources:  params.Resources,
		cache:      params.Cache,
		logger:     logger,
		now:        time.Now,
		cfg:        cfg,
	}
}

// Console returns the console summary and whether it was served from cache.
func (s *DashboardService) Console(ctx context.Context) (*dto.DashboardResponse, bool, error) {
	summary, hit, err := CachedLoad(ctx, s.cache, DashboardCacheKey, s.cfg.CacheTTL, s.compose)
	if err != nil {
		return nil, false, err
	}
	return &summary, hit, nil
}

// Invalidate drops the cached summary. Its signature matches RefreshFunc.
func (s *DashboardService) Invalidate(ctx context.Context) error {
	return s.cache.Invalidate(ctx, DashboardCacheKey)
}

func (s *DashboardService) compose(ctx context.Context) (dto.DashboardResponse, error) {
	summary := dto.DashboardResponse{
		RecentActivities: []models.Activity{},
		GeneratedAt:      s.now().UTC(),
	}

	stats, err := s.appeals.Stats(ctx)
	if err != nil {
		return dto.DashboardResponse{}, err
	}
	summary.Appeals = stats

	if s.activities != nil {
		recent, err := s.activities.Recent(ctx, s.cfg.RecentActivities)
		if err != nil {
			return dto.DashboardResponse{}, err
		}
		summary.RecentActivities = recent
	}

	// Payment and asset counts are secondary; a failure leaves them zeroed.
	if s.payments != nil {
		if payments, err := s.payments.Summary(ctx); err != nil {
			s.logger.Warn("dashboard payment summary failed", zap.Error(err))
		} else {
			summary.Payments = payments
		}
	}
	if s.resources != nil {
		if resources, err := s.resources.Summary(ctx); err != nil {
			s.logger.Warn("dashboard resource summary failed", zap.Error(err))
		} else {
			summary.Resources = resources
		}
	}
	return summary, nil
}
