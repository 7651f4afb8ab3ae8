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
	"golang.org/x/crypto/bcrypt"

	"github.com/noah-isme/gov-portal-api/internal/dto"
	"github.com/noah-isme/gov-portal-api/internal/models"
	appErrors "github.com/noah-isme/gov-portal-api/pkg/errors"
)

type userRepository interface {
	List(ctx context.Context, filter models.UserFilter) ([]models.User, int, error)
	FindByID(ctx context.Context, id string) (*models.User, error)
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	Create(ctx context.Context, user *models.User) error
	Update(ctx context.Context, user *models.User) error
	Delete(ctx context.Context, id string) error
	CreateAuditLog(ctx context.Context, log *models.AuditLog) error
}

// UserServiceParams groups the dependencies of UserService.
type UserServiceParams struct {
	Repo      userRepository
	Validator *validator.Validate
	Logger    *zap.Logger
}

// UserService manages portal accounts for the admin console.
type UserService struct {
	repo      userRepository
	validator *validator.Validate
	logger    *zap.Logger
	now       func() time.Time
}

// NewUserService constructs a UserService.
func NewUserService(params UserServiceParams) *UserService {
	logger := params.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	validate := params.Validator
	if validate == nil {
		validate = validator.New()
	}
	return &UserService{repo: params.Repo, validator: validate, logger: logger, now: time.Now}
}

// List returns one page of accounts.
func (s *UserService) List(ctx context.Context, filter models.UserFilter) ([]models.User, *models.Pagination, error) {
	filter.Search = strings.TrimSpace(filter.Search)
	if filter.Role != nil && !filter.Role.Valid() {
		return nil, nil, appErrors.Clone(appErrors.ErrValidation, "unknown role filter")
	}
	users, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Persistence(err, "failed to list users")
	}
	return users, buildPagination(filter.Page, filter.PageSize, total), nil
}

// Get returns a single account.
func (s *UserService) Get(ctx context.Context, id string) (*models.User, error) {
	return s.load(ctx, id)
}

// Create provisions an account. Only a SUPERADMIN may create another SUPERADMIN.
func (s *UserService) Create(ctx context.Context, req dto.CreateUserRequest, actor *models.JWTClaims, meta models.LoginRequest) (*models.User, error) {
	req.Email = normalizeEmail(req.Email)
	req.FullName = strings.TrimSpace(req.FullName)
	if err := s.validator.Struct(req); err != nil {
		return nil, validationFailure(err, "invalid create user payload")
	}
	if err := ensureCanGrant(actor, req.Role); err != nil {
		return nil, err
	}

	if _, err := s.repo.FindByEmail(ctx, req.Email); err == nil {
		return nil, appErrors.Clone(appErrors.ErrConflict, "email already registered")
	} else if !errors.Is(err, sql.ErrNoRows) {
		return nil, appErrors.Persistence(err, "failed to check email")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to hash password")
	}
	now := s.now().UTC()
	user := &models.User{
		ID:           uuid.NewString(),
		Email:        req.Email,
		FullName:     req.FullName,
		Phone:        req.Phone,
		Role:         req.Role,
		Active:       req.Active,
		PasswordHash: string(hash),
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.repo.Create(ctx, user); err != nil {
		return nil, appErrors.Persistence(err, "failed to create user")
	}

	s.audit(ctx, actor.UserID, models.AuditActionUserCreate, user.ID, nil, accountSnapshot(user), meta)
	return user, nil
}

// Update replaces the profile fields of an account. Staff cannot change their own
// role or deactivate themselves, and SUPERADMIN accounts are editable by SUPERADMIN only.
func (s *UserService) Update(ctx context.Context, id string, req dto.UpdateUserRequest, actor *models.JWTClaims, meta models.LoginRequest) (*models.User, error) {
	req.FullName = strings.TrimSpace(req.FullName)
	if err := s.validator.Struct(req); err != nil {
		return nil, validationFailure(err, "invalid update user payload")
	}
	if err := ensureCanGrant(actor, req.Role); err != nil {
		return nil, err
	}

	user, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := ensureCanGrant(actor, user.Role); err != nil {
		return nil, err
	}
	if user.ID == actor.UserID {
		if req.Role != user.Role {
			return nil, appErrors.Clone(appErrors.ErrForbidden, "cannot change your own role")
		}
		if req.Active != nil && !*req.Active {
			return nil, appErrors.Clone(appErrors.ErrValidation, "cannot deactivate your own account")
		}
	}

	before := accountSnapshot(user)
	user.FullName = req.FullName
	user.Phone = req.Phone
	user.Role = req.Role
	if req.Active != nil {
		user.Active = *req.Active
	}
	user.UpdatedAt = s.now().UTC()

	if err := s.repo.Update(ctx, user); err != nil {
		return nil, appErrors.Persistence(err, "failed to update user")
	}

	s.audit(ctx, actor.UserID, models.AuditActionUserUpdate, user.ID, before, accountSnapshot(user), meta)
	return user, nil
}

// Delete deactivates an account. Rows are kept so audit entries stay resolvable.
func (s *UserService) Delete(ctx context.Context, id string, actorID string, meta models.LoginRequest) error {
	if id == actorID {
		return appErrors.Clone(appErrors.ErrValidation, "cannot deactivate your own account")
	}
	user, err := s.load(ctx, id)
	if err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "user not found")
		}
		return appErrors.Persistence(err, "failed to deactivate user")
	}

	after := accountSnapshot(user)
	after["active"] = false
	s.audit(ctx, actorID, models.AuditActionUserDelete, user.ID, accountSnapshot(user), after, meta)
	return nil
}

func (s *UserService) load(ctx context.Context, id string) (*models.User, error) {
	user, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "user not found")
		}
		return nil, appErrors.Persistence(err, "failed to load user")
	}
	return user, nil
}

func (s *UserService) audit(ctx context.Context, actorID, action, userID string, before, after map[string]interface{}, meta models.LoginRequest) {
	entry := &models.AuditLog{
		UserID:     optionalString(actorID),
		Action:     action,
		Resource:   "users",
		ResourceID: &userID,
		IPAddress:  meta.IP,
		UserAgent:  meta.UserAgent,
	}
	if before != nil {
		entry.OldValues, _ = json.Marshal(before)
	}
	if after != nil {
		entry.NewValues, _ = json.Marshal(after)
	}
	if err := s.repo.CreateAuditLog(ctx, entry); err != nil {
		s.logger.Warn("failed to persist user audit log", zap.String("action", action), zap.String("user_id", userID), zap.Error(err))
	}
}

func accountSnapshot(user *models.User) map[string]interface{} {
	return map[string]interface{}{"email": user.Email, "role": user.Role, "active": user.Active}
}

func ensureCanGrant(actor *models.JWTClaims, role models.UserRole) error {
	if actor == nil {
		return appErrors.ErrUnauthorized
	}
	if role == models.RoleSuperAdmin && actor.Role != models.RoleSuperAdmin {
		return appErrors.Clone(appErrors.ErrForbidden, "only a superadmin can manage SUPERADMIN accounts")
	}
	return nil
}
