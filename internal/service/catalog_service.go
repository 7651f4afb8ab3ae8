package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/gov-portal-api/internal/dto"
	"github.com/noah-isme/gov-portal-api/internal/models"
	appErrors "github.com/noah-isme/gov-portal-api/pkg/errors"
)

type catalogRepository interface {
	List(ctx context.Context, filter models.CatalogFilter) ([]models.CatalogService, int, error)
	FindByID(ctx context.Context, id string) (*models.CatalogService, error)
	Create(ctx context.Context, item *models.CatalogService) error
	Update(ctx context.Context, item *models.CatalogService) error
	Delete(ctx context.Context, id string) error
}

// CatalogService manages the public service catalog.
type CatalogService struct {
	repo      catalogRepository
	audit     auditLogger
	validator *validator.Validate
	logger    *zap.Logger
	onChange  RefreshFunc
}

// CatalogServiceParams groups constructor dependencies.
type CatalogServiceParams struct {
	Repo      catalogRepository
	Audit     auditLogger
	Validator *validator.Validate
	Logger    *zap.Logger
	OnChange  RefreshFunc
}

// NewCatalogService constructs a CatalogService.
func NewCatalogService(params CatalogServiceParams) *CatalogService {
	validate := params.Validator
	if validate == nil {
		validate = validator.New()
	}
	logger := params.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CatalogService{
		repo:      params.Repo,
		audit:     params.Audit,
		validator: validate,
		logger:    logger,
		onChange:  params.OnChange,
	}
}

// List returns catalog entries. Residents only ever see active entries.
func (s *CatalogService) List(ctx context.Context, filter models.CatalogFilter, actor *models.JWTClaims) ([]models.CatalogService, *models.Pagination, error) {
	if actor == nil || !actor.Role.Staff() {
		filter.ActiveOnly = true
	}
	filter.Category = strings.TrimSpace(filter.Category)
	filter.Search = strings.TrimSpace(filter.Search)
	items, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Persistence(err, "failed to list catalog services")
	}
	return items, buildPagination(filter.Page, filter.PageSize, total), nil
}

// Get returns a single catalog entry.
func (s *CatalogService) Get(ctx context.Context, id string) (*models.CatalogService, error) {
	item, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "catalog service not found")
		}
		return nil, appErrors.Persistence(err, "failed to load catalog service")
	}
	return item, nil
}

// Create adds a catalog entry.
func (s *CatalogService) Create(ctx context.Context, req dto.UpsertCatalogServiceRequest, actor *models.JWTClaims) (*models.CatalogService, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, validationFailure(err, "invalid catalog payload")
	}
	item := &models.CatalogService{ID: uuid.NewString(), Active: true}
	applyCatalogRequest(item, req)
	if err := s.repo.Create(ctx, item); err != nil {
		return nil, appErrors.Persistence(err, "failed to create catalog service")
	}
	s.afterChange(ctx, actor, item.ID, nil, item)
	return item, nil
}

// Update replaces a catalog entry.
func (s *CatalogService) Update(ctx context.Context, id string, req dto.UpsertCatalogServiceRequest, actor *models.JWTClaims) (*models.CatalogService, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, validationFailure(err, "invalid catalog payload")
	}
	item, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	previous := *item
	applyCatalogRequest(item, req)
	if err := s.repo.Update(ctx, item); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "catalog service not found")
		}
		return nil, appErrors.Persistence(err, "failed to update catalog service")
	}
	s.afterChange(ctx, actor, item.ID, &previous, item)
	return item, nil
}

// Delete removes a catalog entry.
func (s *CatalogService) Delete(ctx context.Context, id string, actor *models.JWTClaims) error {
	item, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "catalog service not found")
		}
		return appErrors.Persistence(err, "failed to delete catalog service")
	}
	s.afterChange(ctx, actor, id, item, nil)
	return nil
}

func (s *CatalogService) afterChange(ctx context.Context, actor *models.JWTClaims, id string, before, after interface{}) {
	recordChange(ctx, s.audit, s.logger, actor, models.AuditActionCatalogChange, "catalog_services", id, before, after)
	if s.onChange != nil {
		if err := s.onChange(ctx); err != nil {
			s.logger.Warn("catalog change hook failed", zap.Error(err))
		}
	}
}

func applyCatalogRequest(item *models.CatalogService, req dto.UpsertCatalogServiceRequest) {
	item.Name = strings.TrimSpace(req.Name)
	item.Description = strings.TrimSpace(req.Description)
	item.Category = strings.ToLower(strings.TrimSpace(req.Category))
	item.Department = strings.TrimSpace(req.Department)
	item.Fee = req.Fee
	item.ProcessingDays = req.ProcessingDays
	if req.Active != nil {
		item.Active = *req.Active
	}
}

func buildPagination(page, pageSize, total int) *models.Pagination {
	if page < 1 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = 20
	}
	if pageSize > 100 {
		pageSize = 100
	}
	return &models.Pagination{Page: page, PageSize: pageSize, TotalCount: total}
}

// recordChange writes a before/after audit entry. Failures are only logged.
func recordChange(ctx context.Context, audit auditLogger, logger *zap.Logger, actor *models.JWTClaims, action, resource, id string, before, after interface{}) {
	if audit == nil {
		return
	}
	entry := &models.AuditLog{
		Action:     action,
		Resource:   resource,
		ResourceID: &id,
		IPAddress:  "system",
		UserAgent:  resource + "-service",
	}
	if actor != nil {
		entry.UserID = optionalString(actor.UserID)
	}
	if before != nil {
		entry.OldValues, _ = json.Marshal(before)
	}
	if after != nil {
		entry.NewValues, _ = json.Marshal(after)
	}
	if err := audit.CreateAuditLog(ctx, entry); err != nil {
		logger.Warn("failed to persist audit log", zap.String("action", action), zap.Error(err))
	}
}
