package dto

import "github.com/noah-isme/gov-portal-api/internal/models"

// CreateAppealRequest is the resident submission payload.
type CreateAppealRequest struct {
	Title    string                `json:"title" validate:"required"`
	Category models.AppealCategory `json:"category" validate:"required,appeal_category"`
	Content  string                `json:"content" validate:"required"`
}

// ReviewAppealRequest carries a moderator decision for one appeal.
type ReviewAppealRequest struct {
	Status   models.AppealStatus   `json:"status" validate:"required,appeal_status"`
	Priority models.AppealPriority `json:"priority" validate:"required,appeal_priority"`
	Response string                `json:"response" validate:"required"`
}

// AppealQuery mirrors the list filter query parameters.
type AppealQuery struct {
	Search   string `form:"search"`
	Status   string `form:"status"`
	Category string `form:"category"`
	Date     string `form:"date"`
}

// AppealListResponse returns the visible appeals and stats computed over the full collection.
type AppealListResponse struct {
	Appeals []models.Appeal         `json:"appeals"`
	Stats   models.AppealStats      `json:"stats"`
	Filter  models.AppealFilterSpec `json:"filter"`
}
