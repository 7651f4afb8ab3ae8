package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/gov-portal-api/internal/dto"
	"github.com/noah-isme/gov-portal-api/internal/models"
	appErrors "github.com/noah-isme/gov-portal-api/pkg/errors"
)

type resourceRepository interface {
	List(ctx context.Context, filter models.ResourceFilter) ([]models.Resource, int, error)
	CountByStatus(ctx context.Context) (map[models.ResourceStatus]int, error)
	FindByID(ctx context.Context, id string) (*models.Resource, error)
	Create(ctx context.Context, item *models.Resource) error
	Update(ctx context.Context, item *models.Resource) error
	Delete(ctx context.Context, id string) error
}

// ResourceService manages the infrastructure asset register.
type ResourceService struct {
	repo      resourceRepository
	audit     auditLogger
	validator *validator.Validate
	logger    *zap.Logger
	onChange  RefreshFunc
}

// ResourceServiceParams groups constructor dependencies.
type ResourceServiceParams struct {
	Repo      resourceRepository
	Audit     auditLogger
	Validator *validator.Validate
	Logger    *zap.Logger
	OnChange  RefreshFunc
}

// NewResourceService constructs a ResourceService and registers the resource_status validator.
func NewResourceService(params ResourceServiceParams) *ResourceService {
	validate := params.Validator
	if validate == nil {
		validate = validator.New()
	}
	logger := params.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	_ = validate.RegisterValidation("resource_status", func(fl validator.FieldLevel) bool {
		return models.ResourceStatus(fl.Field().String()).Valid()
	})
	return &ResourceService{
		repo:      params.Repo,
		audit:     params.Audit,
		validator: validate,
		logger:    logger,
		onChange:  params.OnChange,
	}
}

// List returns assets matching the filter.
func (s *ResourceService) List(ctx context.Context, filter models.ResourceFilter) ([]models.Resource, *models.Pagination, error) {
	if filter.Status != "" && !filter.Status.Valid() {
		return nil, nil, appErrors.Clone(appErrors.ErrValidation, "unknown resource status")
	}
	filter.Type = strings.TrimSpace(filter.Type)
	items, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Persistence(err, "failed to list resources")
	}
	return items, buildPagination(filter.Page, filter.PageSize, total), nil
}

// Summary counts assets per status.
func (s *ResourceService) Summary(ctx context.Context) (dto.DashboardResources, error) {
	counts, err := s.repo.CountByStatus(ctx)
	if err != nil {
		return dto.DashboardResources{}, appErrors.Persistence(err, "failed to count resources")
	}
	return dto.DashboardResources{
		Operational:  counts[models.ResourceOperational],
		Maintenance:  counts[models.ResourceMaintenance],
		OutOfService: counts[models.ResourceOutOfService],
	}, nil
}

// Get returns a single asset.
func (s *ResourceService) Get(ctx context.Context, id string) (*models.Resource, error) {
	item, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "resource not found")
		}
		return nil, appErrors.Persistence(err, "failed to load resource")
	}
	return item, nil
}

// Create registers a new asset.
func (s *ResourceService) Create(ctx context.Context, req dto.UpsertResourceRequest, actor *models.JWTClaims) (*models.Resource, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, validationFailure(err, "invalid resource payload")
	}
	item := &models.Resource{ID: uuid.NewString()}
	applyResourceRequest(item, req)
	if err := s.repo.Create(ctx, item); err != nil {
		return nil, appErrors.Persistence(err, "failed to create resource")
	}
	s.afterChange(ctx, actor, item.ID, nil, item)
	return item, nil
}

// Update replaces an asset record.
func (s *ResourceService) Update(ctx context.Context, id string, req dto.UpsertResourceRequest, actor *models.JWTClaims) (*models.Resource, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, validationFailure(err, "invalid resource payload")
	}
	item, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	previous := *item
	applyResourceRequest(item, req)
	if err := s.repo.Update(ctx, item); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "resource not found")
		}
		return nil, appErrors.Persistence(err, "failed to update resource")
	}
	s.afterChange(ctx, actor, item.ID, &previous, item)
	return item, nil
}

// Delete removes an asset.
func (s *ResourceService) Delete(ctx context.Context, id string, actor *models.JWTClaims) error {
	item, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "resource not found")
		}
		return appErrors.Persistence(err, "failed to delete resource")
	}
	s.afterChange(ctx, actor, id, item, nil)
	return nil
}

func (s *ResourceService) afterChange(ctx context.Context, actor *models.JWTClaims, id string, before, after interface{}) {
	recordChange(ctx, s.audit, s.logger, actor, models.AuditActionResourceChange, "resources", id, before, after)
	if s.onChange != nil {
		if err := s.onChange(ctx); err != nil {
			s.logger.Warn("resource change hook failed", zap.Error(err))
		}
	}
}

func applyResourceRequest(item *models.Resource, req dto.UpsertResourceRequest) {
	item.Name = strings.TrimSpace(req.Name)
	item.Type = strings.ToLower(strings.TrimSpace(req.Type))
	item.Location = strings.TrimSpace(req.Location)
	item.Status = req.Status
	item.Responsible = req.Responsible
	item.LastInspectedAt = req.LastInspectedAt
}
