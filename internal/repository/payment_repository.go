package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/gov-portal-api/internal/models"
)

const paymentColumns = `id, user_id, service_id, amount, currency, purpose, status, paid_at, created_at, updated_at`

// PaymentRepository stores resident payment records.
type PaymentRepository struct {
	db *sqlx.DB
}

// NewPaymentRepository constructs the repository.
func NewPaymentRepository(db *sqlx.DB) *PaymentRepository {
	return &PaymentRepository{db: db}
}

// List returns payments matching the filter, newest first.
func (r *PaymentRepository) List(ctx context.Context, filter models.PaymentFilter) ([]models.Payment, int, error) {
	var conditions []string
	var args []interface{}
	if filter.UserID != "" {
		args = append(args, filter.UserID)
		conditions = append(conditions, fmt.Sprintf("user_id = $%d", len(args)))
	}
	if filter.Status != "" {
		args = append(args, filter.Status)
		conditions = append(conditions, fmt.Sprintf("status = $%d", len(args)))
	}
	where := ""
	if len(conditions) > 0 {
		where = " WHERE " + strings.Join(conditions, " AND ")
	}

	page, pageSize := normalisePage(filter.Page, filter.PageSize)
	listQuery := fmt.Sprintf("SELECT %s FROM payments%s ORDER BY created_at DESC LIMIT %d OFFSET %d", paymentColumns, where, pageSize, (page-1)*pageSize)
	items := make([]models.Payment, 0)
	if err := r.db.SelectContext(ctx, &items, listQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("list payments: %w", err)
	}

	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) FROM payments"+where, args...); err != nil {
		return nil, 0, fmt.Errorf("count payments: %w", err)
	}
	return items, total, nil
}

// CountByStatus groups payments by settlement status.
func (r *PaymentRepository) CountByStatus(ctx context.Context) (map[models.PaymentStatus]int, error) {
	var rows []struct {
		Status models.PaymentStatus `db:"status"`
		Total  int                  `db:"total"`
	}
	if err := r.db.SelectContext(ctx, &rows, `SELECT status, COUNT(*) AS total FROM payments GROUP BY status`); err != nil {
		return nil, fmt.Errorf("count payments by status: %w", err)
	}
	counts := make(map[models.PaymentStatus]int, len(rows))
	for _, row := range rows {
		counts[row.Status] = row.Total
	}
	return counts, nil
}

// FindByID returns a payment; sql.ErrNoRows when absent.
func (r *PaymentRepository) FindByID(ctx context.Context, id string) (*models.Payment, error) {
	var item models.Payment
	query := fmt.Sprintf("SELECT %s FROM payments WHERE id = $1", paymentColumns)
	if err := r.db.GetContext(ctx, &item, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find payment: %w", err)
	}
	return &item, nil
}

// Create inserts a payment.
func (r *PaymentRepository) Create(ctx context.Context, item *models.Payment) error {
	if item.ID == "" {
		item.ID = uuid.NewString()
	}
	if item.Status == "" {
		item.Status = models.PaymentPending
	}
	now := time.Now().UTC()
	item.CreatedAt = now
	item.UpdatedAt = now
	const query = `INSERT INTO payments (id, user_id, service_id, amount, currency, purpose, status, paid_at, created_at, updated_at)
	VALUES (:id, :user_id, :service_id, :amount, :currency, :purpose, :status, :paid_at, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, item); err != nil {
		return fmt.Errorf("create payment: %w", err)
	}
	return nil
}

// UpdateStatus changes the settlement status and paid_at timestamp.
func (r *PaymentRepository) UpdateStatus(ctx context.Context, id string, status models.PaymentStatus, paidAt *time.Time) error {
	const query = `UPDATE payments SET status = $2, paid_at = $3, updated_at = $4 WHERE id = $1`
	result, err := r.db.ExecContext(ctx, query, id, status, paidAt, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("update payment status: %w", err)
	}
	if rows, err := result.RowsAffected(); err == nil && rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}
