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

const resourceColumns = `id, name, type, location, status, responsible, last_inspected_at, created_at, updated_at`

// ResourceRepository manages the infrastructure asset register.
type ResourceRepository struct {
	db *sqlx.DB
}

// NewResourceRepository constructs the repository.
func NewResourceRepository(db *sqlx.DB) *ResourceRepository {
	return &ResourceRepository{db: db}
}

// List returns assets matching the filter and the total count.
func (r *ResourceRepository) List(ctx context.Context, filter models.ResourceFilter) ([]models.Resource, int, error) {
	var conditions []string
	var args []interface{}
	if filter.Type != "" {
		args = append(args, filter.Type)
		conditions = append(conditions, fmt.Sprintf("type = $%d", len(args)))
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
	listQuery := fmt.Sprintf("SELECT %s FROM resources%s ORDER BY name ASC LIMIT %d OFFSET %d", resourceColumns, where, pageSize, (page-1)*pageSize)
	items := make([]models.Resource, 0)
	if err := r.db.SelectContext(ctx, &items, listQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("list resources: %w", err)
	}

	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) FROM resources"+where, args...); err != nil {
		return nil, 0, fmt.Errorf("count resources: %w", err)
	}
	return items, total, nil
}

// CountByStatus groups the register by operational status.
func (r *ResourceRepository) CountByStatus(ctx context.Context) (map[models.ResourceStatus]int, error) {
	var rows []struct {
		Status models.ResourceStatus `db:"status"`
		Total  int                   `db:"total"`
	}
	if err := r.db.SelectContext(ctx, &rows, `SELECT status, COUNT(*) AS total FROM resources GROUP BY status`); err != nil {
		return nil, fmt.Errorf("count resources by status: %w", err)
	}
	counts := make(map[models.ResourceStatus]int, len(rows))
	for _, row := range rows {
		counts[row.Status] = row.Total
	}
	return counts, nil
}

// FindByID returns an asset; sql.ErrNoRows when absent.
func (r *ResourceRepository) FindByID(ctx context.Context, id string) (*models.Resource, error) {
	var item models.Resource
	query := fmt.Sprintf("SELECT %s FROM resources WHERE id = $1", resourceColumns)
	if err := r.db.GetContext(ctx, &item, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find resource: %w", err)
	}
	return &item, nil
}

// Create inserts an asset.
func (r *ResourceRepository) Create(ctx context.Context, item *models.Resource) error {
	if item.ID == "" {
		item.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	item.CreatedAt = now
	item.UpdatedAt = now
	const query = `INSERT INTO resources (id, name, type, location, status, responsible, last_inspected_at, created_at, updated_at)
	VALUES (:id, :name, :type, :location, :status, :responsible, :last_inspected_at, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, item); err != nil {
		return fmt.Errorf("create resource: %w", err)
	}
	return nil
}

// Update replaces the mutable columns of an asset.
func (r *ResourceRepository) Update(ctx context.Context, item *models.Resource) error {
	item.UpdatedAt = time.Now().UTC()
	const query = `UPDATE resources SET name = :name, type = :type, location = :location, status = :status,
	responsible = :responsible, last_inspected_at = :last_inspected_at, updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, item); err != nil {
		return fmt.Errorf("update resource: %w", err)
	}
	return nil
}

// Delete removes an asset.
func (r *ResourceRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM resources WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete resource: %w", err)
	}
	if rows, err := result.RowsAffected(); err == nil && rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}
