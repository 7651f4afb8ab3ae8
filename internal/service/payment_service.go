package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/gov-portal-api/internal/dto"
	"github.com/noah-isme/gov-portal-api/internal/models"
	appErrors "github.com/noah-isme/gov-portal-api/pkg/errors"
)

const defaultCurrency = "UAH"

type paymentRepository interface {
	List(ctx context.Context, filter models.PaymentFilter) ([]models.Payment, int, error)
	CountByStatus(ctx context.Context) (map[models.PaymentStatus]int, error)
	FindByID(ctx context.Context, id string) (*models.Payment, error)
	Create(ctx context.Context, item *models.Payment) error
	UpdateStatus(ctx context.Context, id string, status models.PaymentStatus, paidAt *time.Time) error
}

// PaymentService manages resident payment records.
type PaymentService struct {
	repo       paymentRepository
	activities activityRecorder
	audit      auditLogger
	validator  *validator.Validate
	logger     *zap.Logger
	onChange   RefreshFunc
	now        func() time.Time
}

// PaymentServiceParams groups constructor dependencies.
type PaymentServiceParams struct {
	Repo       paymentRepository
	Activities activityRecorder
	Audit      auditLogger
	Validator  *validator.Validate
	Logger     *zap.Logger
	OnChange   RefreshFunc
}

// NewPaymentService constructs a PaymentService.
func NewPaymentService(params PaymentServiceParams) *PaymentService {
	validate := params.Validator
	if validate == nil {
		validate = validator.New()
	}
	logger := params.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PaymentService{
		repo:       params.Repo,
		activities: params.Activities,
		audit:      params.Audit,
		validator:  validate,
		logger:     logger,
		onChange:   params.OnChange,
		now:        time.Now,
	}
}

// List returns payments. Residents are always scoped to their own records.
func (s *PaymentService) List(ctx context.Context, filter models.PaymentFilter, actor *models.JWTClaims) ([]models.Payment, *models.Pagination, error) {
	if actor == nil {
		return nil, nil, appErrors.ErrUnauthorized
	}
	if !actor.Role.Staff() {
		filter.UserID = actor.UserID
	}
	if filter.Status != "" && !filter.Status.Valid() {
		return nil, nil, appErrors.Clone(appErrors.ErrValidation, "unknown payment status")
	}
	items, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Persistence(err, "failed to list payments")
	}
	return items, buildPagination(filter.Page, filter.PageSize, total), nil
}

// Summary counts payments per status.
func (s *PaymentService) Summary(ctx context.Context) (dto.DashboardPayments, error) {
	counts, err := s.repo.CountByStatus(ctx)
	if err != nil {
		return dto.DashboardPayments{}, appErrors.Persistence(err, "failed to count payments")
	}
	return dto.DashboardPayments{
		Pending: counts[models.PaymentPending],
		Paid:    counts[models.PaymentPaid],
		Failed:  counts[models.PaymentFailed],
	}, nil
}

// Get returns one payment. Residents may only read their own.
func (s *PaymentService) Get(ctx context.Context, id string, actor *models.JWTClaims) (*models.Payment, error) {
	item, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "payment not found")
		}
		return nil, appErrors.Persistence(err, "failed to load payment")
	}
	if actor != nil && !actor.Role.Staff() && item.UserID != actor.UserID {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "payment not found")
	}
	return item, nil
}

// Create raises a pending charge against a resident.
func (s *PaymentService) Create(ctx context.Context, req dto.CreatePaymentRequest, actor *models.JWTClaims) (*models.Payment, error) {
	req.Purpose = strings.TrimSpace(req.Purpose)
	if err := s.validator.Struct(req); err != nil {
		return nil, validationFailure(err, "invalid payment payload")
	}
	currency := strings.ToUpper(strings.TrimSpace(req.Currency))
	if currency == "" {
		currency = defaultCurrency
	}
	item := &models.Payment{
		ID:        uuid.NewString(),
		UserID:    req.UserID,
		ServiceID: req.ServiceID,
		Amount:    req.Amount,
		Currency:  currency,
		Purpose:   req.Purpose,
		Status:    models.PaymentPending,
	}
	if err := s.repo.Create(ctx, item); err != nil {
		return nil, appErrors.Persistence(err, "failed to create payment")
	}
	s.emitActivity(ctx, &models.Activity{
		Title:       "Payment requested: " + item.Purpose,
		Description: fmt.Sprintf("%.2f %s", item.Amount, item.Currency),
		Type:        models.ActivityTypePayment,
		Priority:    "low",
		Status:      models.ActivityStatusPending,
	})
	s.afterChange(ctx, actor, item.ID, nil, item)
	return item, nil
}

// UpdateStatus settles or fails a payment. A paid payment is final.
func (s *PaymentService) UpdateStatus(ctx context.Context, id string, req dto.UpdatePaymentStatusRequest, actor *models.JWTClaims) (*models.Payment, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, validationFailure(err, "invalid payment status payload")
	}
	item, err := s.Get(ctx, id, nil)
	if err != nil {
		return nil, err
	}
	if item.Status == models.PaymentPaid && req.Status != models.PaymentPaid {
		return nil, appErrors.Clone(appErrors.ErrConflict, "payment is already settled")
	}
	if item.Status == req.Status {
		return item, nil
	}

	previous := *item
	var paidAt *time.Time
	if req.Status == models.PaymentPaid {
		ts := s.now().UTC()
		paidAt = &ts
	}
	if err := s.repo.UpdateStatus(ctx, id, req.Status, paidAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "payment not found")
		}
		return nil, appErrors.Persistence(err, "failed to update payment")
	}
	item.Status = req.Status
	item.PaidAt = paidAt

	activity := &models.Activity{
		Description: fmt.Sprintf("%.2f %s", item.Amount, item.Currency),
		Type:        models.ActivityTypePayment,
		Priority:    "low",
		Status:      models.ActivityStatusPending,
	}
	switch req.Status {
	case models.PaymentPaid:
		activity.Title = "Payment received: " + item.Purpose
		activity.Status = models.ActivityStatusCompleted
	case models.PaymentFailed:
		activity.Title = "Payment failed: " + item.Purpose
		activity.Priority = "high"
	default:
		activity.Title = "Payment reopened: " + item.Purpose
	}
	s.emitActivity(ctx, activity)
	s.afterChange(ctx, actor, item.ID, &previous, item)
	return item, nil
}

func (s *PaymentService) emitActivity(ctx context.Context, activity *models.Activity) {
	if s.activities == nil {
		return
	}
	if err := s.activities.Create(ctx, activity); err != nil {
		s.logger.Warn("failed to record payment activity", zap.String("title", activity.Title), zap.Error(err))
	}
}

func (s *PaymentService) afterChange(ctx context.Context, actor *models.JWTClaims, id string, before, after interface{}) {
	recordChange(ctx, s.audit, s.logger, actor, models.AuditActionPaymentChange, "payments", id, before, after)
	if s.onChange != nil {
		if err := s.onChange(ctx); err != nil {
			s.logger.Warn("payment change hook failed", zap.Error(err))
		}
	}
}
