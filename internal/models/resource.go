package models

import "time"

// ResourceStatus is the operational state of an infrastructure asset.
type ResourceStatus string

const (
	ResourceOperational  ResourceStatus = "operational"
	ResourceMaintenance  ResourceStatus = "maintenance"
	ResourceOutOfService ResourceStatus = "out_of_service"
)

// Valid reports whether s is a known asset status.
func (s ResourceStatus) Valid() bool {
	switch s {
	case ResourceOperational, ResourceMaintenance, ResourceOutOfService:
		return true
	}
	return false
}

// Resource is an infrastructure asset tracked by the municipality.
type Resource struct {
	ID              string         `db:"id" json:"id"`
	Name            string         `db:"name" json:"name"`
	Type            string         `db:"type" json:"type"`
	Location        string         `db:"location" json:"location"`
	Status          ResourceStatus `db:"status" json:"status"`
	Responsible     *string        `db:"responsible" json:"responsible,omitempty"`
	LastInspectedAt *time.Time     `db:"last_inspected_at" json:"last_inspected_at,omitempty"`
	CreatedAt       time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time      `db:"updated_at" json:"updated_at"`
}

// ResourceFilter constrains asset listings.
type ResourceFilter struct {
	Type     string
	Status   ResourceStatus
	Page     int
	PageSize int
}
