package models

import "time"

// CatalogService is a municipal service offered to residents.
type CatalogService struct {
	ID             string    `db:"id" json:"id"`
	Name           string    `db:"name" json:"name"`
	Description    string    `db:"description" json:"description"`
	Category       string    `db:"category" json:"category"`
	Department     string    `db:"department" json:"department"`
	Fee            float64   `db:"fee" json:"fee"`
	ProcessingDays int       `db:"processing_days" json:"processing_days"`
	Active         bool      `db:"active" json:"active"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time `db:"updated_at" json:"updated_at"`
}

// CatalogFilter constrains service catalog listings.
type CatalogFilter struct {
	Category   string
	Search     string
	ActiveOnly bool
	Page       int
	PageSize   int
}
