package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/gov-portal-api/internal/dto"
	"github.com/noah-isme/gov-portal-api/internal/models"
	"github.com/noah-isme/gov-portal-api/internal/repository"
	appErrors "github.com/noah-isme/gov-portal-api/pkg/errors"
)

const activitySummaryLength = 100

type appealStore interface {
	ListAll(ctx context.Context) ([]models.Appeal, error)
	GetByID(ctx context.Context, id string) (*models.Appeal, error)
	Create(ctx context.Context, appeal *models.Appeal) error
	UpdateReview(ctx context.Context, params repository.UpdateAppealReviewParams) error
}

type activityRecorder interface {
	Create(ctx context.Context, activity *models.Activity) error
}

type auditLogger interface {
	CreateAuditLog(ctx context.Context, log *models.AuditLog) error
}

type auditReader interface {
	ListAuditLogs(ctx context.Context, resource, resourceID string, limit int) ([]models.AuditLog, error)
}

// RefreshFunc is invoked after a successful mutation so callers can reload their derived state.
type RefreshFunc func(ctx context.Context) error

// ChainRefresh runs every non-nil refresh in order and returns the first error.
func ChainRefresh(fns ...RefreshFunc) RefreshFunc {
	return func(ctx context.Context) error {
		var first error
		for _, fn := range fns {
			if fn == nil {
				continue
			}
			if err := fn(ctx); err != nil && first == nil {
				first = err
			}
		}
		return first
	}
}

// AppealServiceParams groups constructor dependencies.
type AppealServiceParams struct {
	Store      appealStore
	Activities activityRecorder
	Audit      auditLogger
	Metrics    *MetricsService
	Validator  *validator.Validate
	Logger     *zap.Logger
}

// AppealService implements the appeal submission, review and read workflows.
type AppealService struct {
	store      appealStore
	activities activityRecorder
	audit      auditLogger
	metrics    *MetricsService
	validator  *validator.Validate
	logger     *zap.Logger
	now        func() time.Time
}

// NewAppealService constructs the service and registers appeal enum validators.
func NewAppealService(params AppealServiceParams) *AppealService {
	validate := params.Validator
	if validate == nil {
		validate = validator.New()
	}
	logger := params.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	registerAppealValidators(validate)
	return &AppealService{
		store:      params.Store,
		activities: params.Activities,
		audit:      params.Audit,
		metrics:    params.Metrics,
		validator:  validate,
		logger:     logger,
		now:        time.Now,
	}
}

func registerAppealValidators(validate *validator.Validate) {
	_ = validate.RegisterValidation("appeal_status", func(fl validator.FieldLevel) bool {
		return models.AppealStatus(fl.Field().String()).Valid()
	})
	_ = validate.RegisterValidation("appeal_priority", func(fl validator.FieldLevel) bool {
		return models.AppealPriority(fl.Field().String()).Valid()
	})
	_ = validate.RegisterValidation("appeal_category", func(fl validator.FieldLevel) bool {
		return models.AppealCategory(fl.Field().String()).Valid()
	})
}

// List refetches the full collection and returns the filtered view with stats over everything.
func (s *AppealService) List(ctx context.Context, spec models.AppealFilterSpec) (*dto.AppealListResponse, error) {
	appeals, err := s.store.ListAll(ctx)
	if err != nil {
		return nil, s.persistenceFailure("list", err, "failed to load appeals")
	}
	return &dto.AppealListResponse{
		Appeals: FilterAppeals(appeals, spec, s.now()),
		Stats:   ComputeStats(appeals),
		Filter:  spec,
	}, nil
}

// ListMine returns the submitter's own appeals, filtered, with stats over their full list.
func (s *AppealService) ListMine(ctx context.Context, submitter *models.JWTClaims, spec models.AppealFilterSpec) (*dto.AppealListResponse, error) {
	if submitter == nil {
		return nil, appErrors.ErrUnauthorized
	}
	appeals, err := s.store.ListAll(ctx)
	if err != nil {
		return nil, s.persistenceFailure("list", err, "failed to load appeals")
	}
	own := make([]models.Appeal, 0)
	for _, appeal := range appeals {
		if ownedBy(appeal, submitter) {
			own = append(own, appeal)
		}
	}
	return &dto.AppealListResponse{
		Appeals: FilterAppeals(own, spec, s.now()),
		Stats:   ComputeStats(own),
		Filter:  spec,
	}, nil
}

// Stats returns counts over the full collection.
func (s *AppealService) Stats(ctx context.Context) (models.AppealStats, error) {
	appeals, err := s.store.ListAll(ctx)
	if err != nil {
		return models.AppealStats{}, s.persistenceFailure("stats", err, "failed to load appeals")
	}
	return ComputeStats(appeals), nil
}

// Get returns one appeal. Residents may only read their own.
func (s *AppealService) Get(ctx context.Context, id string, actor *models.JWTClaims) (*models.Appeal, error) {
	appeal, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if actor != nil && actor.Role == models.RoleResident && !ownedBy(*appeal, actor) {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "appeal not found")
	}
	return appeal, nil
}

// History returns the audit trail recorded for an appeal.
func (s *AppealService) History(ctx context.Context, id string) ([]models.AuditLog, error) {
	if _, err := s.load(ctx, id); err != nil {
		return nil, err
	}
	reader, ok := s.audit.(auditReader)
	if !ok {
		return []models.AuditLog{}, nil
	}
	logs, err := reader.ListAuditLogs(ctx, "appeals", id, 0)
	if err != nil {
		return nil, s.persistenceFailure("history", err, "failed to load appeal history")
	}
	return logs, nil
}

// Submit validates and stores a resident appeal with status Under Review and priority Medium.
func (s *AppealService) Submit(ctx context.Context, req dto.CreateAppealRequest, submitter *models.JWTClaims, refresh RefreshFunc) (*models.Appeal, error) {
	req.Title = strings.TrimSpace(req.Title)
	req.Content = strings.TrimSpace(req.Content)
	req.Category = models.AppealCategory(strings.TrimSpace(string(req.Category)))
	if err := s.validator.Struct(req); err != nil {
		return nil, validationFailure(err, "invalid appeal payload")
	}
	identity := submitter.Identity()
	if identity == "" {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "session identity is required")
	}

	now := s.now().UTC()
	content := req.Content
	appeal := &models.Appeal{
		ID:          uuid.NewString(),
		Title:       req.Title,
		Content:     &content,
		Category:    req.Category,
		SubmittedBy: identity,
		Status:      models.AppealStatusUnderReview,
		Priority:    models.AppealPriorityMedium,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.store.Create(ctx, appeal); err != nil {
		return nil, s.persistenceFailure("submit", err, "failed to store appeal")
	}
	s.metrics.RecordAppealSubmission(string(appeal.Category))

	s.emitActivity(ctx, &models.Activity{
		Title:       "New appeal: " + appeal.Title,
		Description: summarize(content),
		Type:        models.ActivityTypeAppeal,
		Priority:    strings.ToLower(string(models.AppealPriorityMedium)),
		Status:      models.ActivityStatusPending,
	})
	newValues, _ := json.Marshal(map[string]interface{}{"title": appeal.Title, "category": appeal.Category, "status": appeal.Status})
	s.emitAudit(ctx, &models.AuditLog{
		UserID:     optionalString(submitter.UserID),
		Action:     models.AuditActionAppealSubmit,
		Resource:   "appeals",
		ResourceID: &appeal.ID,
		NewValues:  newValues,
	})
	s.runRefresh(ctx, refresh)
	return appeal, nil
}

// Review applies a moderator decision. Validation happens before any store call and a store
// failure leaves the appeal untouched.
func (s *AppealService) Review(ctx context.Context, id string, req dto.ReviewAppealRequest, reviewer *models.JWTClaims, refresh RefreshFunc) (*models.Appeal, error) {
	req.Response = strings.TrimSpace(req.Response)
	if err := s.validator.Struct(req); err != nil {
		return nil, validationFailure(err, "invalid review payload")
	}

	current, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	if now.Before(current.CreatedAt) {
		now = current.CreatedAt
	}
	params := repository.UpdateAppealReviewParams{
		ID:        current.ID,
		Status:    req.Status,
		Priority:  req.Priority,
		UpdatedAt: now,
	}
	if err := s.store.UpdateReview(ctx, params); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "appeal not found")
		}
		return nil, s.persistenceFailure("review", err, "failed to update appeal")
	}

	updated := *current
	updated.Status = req.Status
	updated.Priority = req.Priority
	updated.UpdatedAt = now
	s.metrics.RecordAppealReview(string(updated.Status))

	activityStatus := models.ActivityStatusPending
	if updated.Status == models.AppealStatusCompleted {
		activityStatus = models.ActivityStatusCompleted
	}
	s.emitActivity(ctx, &models.Activity{
		Title:       "Appeal reviewed: " + updated.Title,
		Description: summarize(req.Response),
		Type:        models.ActivityTypeAppeal,
		Priority:    strings.ToLower(string(updated.Priority)),
		Status:      activityStatus,
	})

	var reviewerID *string
	if reviewer != nil {
		reviewerID = optionalString(reviewer.UserID)
	}
	oldValues, _ := json.Marshal(map[string]interface{}{"status": current.Status, "priority": current.Priority})
	newValues, _ := json.Marshal(map[string]interface{}{"status": updated.Status, "priority": updated.Priority, "response": req.Response})
	s.emitAudit(ctx, &models.AuditLog{
		UserID:     reviewerID,
		Action:     models.AuditActionAppealReview,
		Resource:   "appeals",
		ResourceID: &updated.ID,
		OldValues:  oldValues,
		NewValues:  newValues,
	})
	s.runRefresh(ctx, refresh)
	return &updated, nil
}

func (s *AppealService) load(ctx context.Context, id string) (*models.Appeal, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "appeal id is required")
	}
	appeal, err := s.store.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "appeal not found")
		}
		return nil, s.persistenceFailure("get", err, "failed to load appeal")
	}
	return appeal, nil
}

func (s *AppealService) persistenceFailure(operation string, err error, message string) error {
	s.metrics.RecordAppealStoreFailure(operation)
	s.logger.Error("appeal store call failed", zap.String("operation", operation), zap.Error(err))
	return appErrors.Persistence(err, message)
}

func (s *AppealService) emitActivity(ctx context.Context, activity *models.Activity) {
	if s.activities == nil {
		return
	}
	if err := s.activities.Create(ctx, activity); err != nil {
		s.logger.Warn("failed to record appeal activity", zap.String("title", activity.Title), zap.Error(err))
	}
}

func (s *AppealService) emitAudit(ctx context.Context, log *models.AuditLog) {
	if s.audit == nil || log == nil {
		return
	}
	log.IPAddress = "system"
	log.UserAgent = "appeal-service"
	if err := s.audit.CreateAuditLog(ctx, log); err != nil {
		s.logger.Warn("failed to persist audit log", zap.String("action", log.Action), zap.Error(err))
	}
}

func (s *AppealService) runRefresh(ctx context.Context, refresh RefreshFunc) {
	if refresh == nil {
		return
	}
	if err := refresh(ctx); err != nil {
		s.logger.Warn("post-mutation refresh failed", zap.Error(err))
	}
}

func ownedBy(appeal models.Appeal, claims *models.JWTClaims) bool {
	if claims == nil {
		return false
	}
	if claims.Email != "" && strings.EqualFold(appeal.SubmittedBy, claims.Email) {
		return true
	}
	return claims.UserID != "" && appeal.SubmittedBy == claims.UserID
}

// summarize keeps the first 100 runes of text, marking truncation with "...".
func summarize(text string) string {
	runes := []rune(text)
	if len(runes) <= activitySummaryLength {
		return text
	}
	return string(runes[:activitySummaryLength]) + "..."
}

func optionalString(value string) *string {
	v := strings.TrimSpace(value)
	if v == "" {
		return nil
	}
	return &v
}

// validationFailure turns validator errors into a VALIDATION_ERROR naming the first bad field.
func validationFailure(err error, fallback string) error {
	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
		fe := fieldErrs[0]
		field := strings.ToLower(fe.Field())
		message := field + " is invalid"
		if fe.Tag() == "required" {
			message = field + " is required"
		}
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, message)
	}
	return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, fallback)
}
