package dto

import (
	"time"

	"github.com/noah-isme/gov-portal-api/internal/models"
)

// UpsertCatalogServiceRequest creates or replaces a catalog entry.
type UpsertCatalogServiceRequest struct {
	Name           string  `json:"name" validate:"required,max=200"`
	Description    string  `json:"description"`
	Category       string  `json:"category" validate:"required"`
	Department     string  `json:"department" validate:"required"`
	Fee            float64 `json:"fee" validate:"gte=0"`
	ProcessingDays int     `json:"processing_days" validate:"gte=0"`
	Active         *bool   `json:"active"`
}

// UpsertResourceRequest creates or replaces an infrastructure asset.
type UpsertResourceRequest struct {
	Name            string                `json:"name" validate:"required,max=200"`
	Type            string                `json:"type" validate:"required"`
	Location        string                `json:"location" validate:"required"`
	Status          models.ResourceStatus `json:"status" validate:"required,resource_status"`
	Responsible     *string               `json:"responsible"`
	LastInspectedAt *time.Time            `json:"last_inspected_at"`
}

// CreatePaymentRequest raises a charge against a resident.
type CreatePaymentRequest struct {
	UserID    string  `json:"user_id" validate:"required"`
	ServiceID *string `json:"service_id"`
	Amount    float64 `json:"amount" validate:"gt=0"`
	Currency  string  `json:"currency" validate:"omitempty,len=3"`
	Purpose   string  `json:"purpose" validate:"required"`
}

// UpdatePaymentStatusRequest settles or fails a payment.
type UpdatePaymentStatusRequest struct {
	Status models.PaymentStatus `json:"status" validate:"required,oneof=pending paid failed"`
}
