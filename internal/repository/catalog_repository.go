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

const catalogColumns = `id, name, description, category, department, fee, processing_days, active, created_at, updated_at`

// CatalogRepository manages the municipal service catalog.
type CatalogRepository struct {
	db *sqlx.DB
}

// NewCatalogRepository constructs the repository.
func NewCatalogRepository(db *sqlx.DB) *CatalogRepository {
	return &CatalogRepository{db: db}
}

// List returns catalog entries with the total count for the filter.
func (r *CatalogRepository) List(ctx context.Context, filter models.CatalogFilter) ([]models.CatalogService, int, error) {
	var conditions []string
	var args []interface{}
	if filter.ActiveOnly {
		conditions = append(conditions, "active = TRUE")
	}
	if filter.Category != "" {
		args = append(args, filter.Category)
		conditions = append(conditions, fmt.Sprintf("category = $%d", len(args)))
	}
	if filter.Search != "" {
		args = append(args, "%"+strings.ToLower(filter.Search)+"%")
		conditions = append(conditions, fmt.Sprintf("(LOWER(name) LIKE $%d OR LOWER(description) LIKE $%d)", len(args), len(args)))
	}
	where := ""
	if len(conditions) > 0 {
		where = " WHERE " + strings.Join(conditions, " AND ")
	}

	page, pageSize := normalisePage(filter.Page, filter.PageSize)
	listQuery := fmt.Sprintf("SELECT %s FROM services%s ORDER BY name ASC LIMIT %d OFFSET %d", catalogColumns, where, pageSize, (page-1)*pageSize)
	items := make([]models.CatalogService, 0)
	if err := r.db.SelectContext(ctx, &items, listQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("list services: %w", err)
	}

	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) FROM services"+where, args...); err != nil {
		return nil, 0, fmt.Errorf("count services: %w", err)
	}
	return items, total, nil
}

// FindByID returns a catalog entry; sql.ErrNoRows when absent.
func (r *CatalogRepository) FindByID(ctx context.Context, id string) (*models.CatalogService, error) {
	var item models.CatalogService
	query := fmt.Sprintf("SELECT %s FROM services WHERE id = $1", catalogColumns)
	if err := r.db.GetContext(ctx, &item, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find service: %w", err)
	}
	return &item, nil
}

// Create inserts a catalog entry.
func (r *CatalogRepository) Create(ctx context.Context, item *models.CatalogService) error {
	if item.ID == "" {
		item.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	item.CreatedAt = now
	item.UpdatedAt = now
	const query = `INSERT INTO services (id, name, description, category, department, fee, processing_days, active, created_at, updated_at)
	VALUES (:id, :name, :description, :category, :department, :fee, :processing_days, :active, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, item); err != nil {
		return fmt.Errorf("create service: %w", err)
	}
	return nil
}

// Update replaces the mutable columns of a catalog entry.
func (r *CatalogRepository) Update(ctx context.Context, item *models.CatalogService) error {
	item.UpdatedAt = time.Now().UTC()
	const query = `UPDATE services SET name = :name, description = :description, category = :category, department = :department,
	fee = :fee, processing_days = :processing_days, active = :active, updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, item); err != nil {
		return fmt.Errorf("update service: %w", err)
	}
	return nil
}

// Delete removes a catalog entry.
func (r *CatalogRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM services WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete service: %w", err)
	}
	if rows, err := result.RowsAffected(); err == nil && rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}

func normalisePage(page, pageSize int) (int, int) {
	if page < 1 {
		page = 1
	}
	if pageSize <= 0 || pageSize > 100 {
		pageSize = 20
	}
	return page, pageSize
}
