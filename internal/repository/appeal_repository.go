package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/gov-portal-api/internal/models"
)

const appealColumns = `id, title, content, description, category, submitted_by, status, priority, created_at, updated_at`

// AppealRepository persists citizen appeals. Appeals are never deleted.
type AppealRepository struct {
	db *sqlx.DB
}

// NewAppealRepository constructs the repository.
func NewAppealRepository(db *sqlx.DB) *AppealRepository {
	return &AppealRepository{db: db}
}

// ListAll returns every appeal, newest first.
func (r *AppealRepository) ListAll(ctx context.Context) ([]models.Appeal, error) {
	query := fmt.Sprintf(`SELECT %s FROM appeals ORDER BY created_at DESC`, appealColumns)
	appeals := make([]models.Appeal, 0)
	if err := r.db.SelectContext(ctx, &appeals, query); err != nil {
		return nil, fmt.Errorf("list appeals: %w", err)
	}
	return appeals, nil
}

// GetByID fetches one appeal. sql.ErrNoRows is returned unwrapped when absent.
func (r *AppealRepository) GetByID(ctx context.Context, id string) (*models.Appeal, error) {
	query := fmt.Sprintf(`SELECT %s FROM appeals WHERE id = $1`, appealColumns)
	var appeal models.Appeal
	if err := r.db.GetContext(ctx, &appeal, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("get appeal: %w", err)
	}
	return &appeal, nil
}

// Create inserts a new appeal row.
func (r *AppealRepository) Create(ctx context.Context, appeal *models.Appeal) error {
	if appeal.ID == "" {
		appeal.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if appeal.CreatedAt.IsZero() {
		appeal.CreatedAt = now
	}
	if appeal.UpdatedAt.IsZero() {
		appeal.UpdatedAt = appeal.CreatedAt
	}
	const query = `INSERT INTO appeals (id, title, content, description, category, submitted_by, status, priority, created_at, updated_at)
	VALUES (:id, :title, :content, :description, :category, :submitted_by, :status, :priority, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, appeal); err != nil {
		return fmt.Errorf("create appeal: %w", err)
	}
	return nil
}

// UpdateAppealReviewParams groups the columns a review may change.
type UpdateAppealReviewParams struct {
	ID        string                `db:"id"`
	Status    models.AppealStatus   `db:"status"`
	Priority  models.AppealPriority `db:"priority"`
	UpdatedAt time.Time             `db:"updated_at"`
}

// UpdateReview writes status, priority and updated_at. Last write wins.
func (r *AppealRepository) UpdateReview(ctx context.Context, params UpdateAppealReviewParams) error {
	const query = `UPDATE appeals SET status = :status, priority = :priority, updated_at = :updated_at WHERE id = :id`
	result, err := r.db.NamedExecContext(ctx, query, params)
	if err != nil {
		return fmt.Errorf("update appeal review: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check appeal update rows: %w", err)
	}
	if rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}
