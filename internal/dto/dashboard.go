package dto

import (
	"time"

	"github.com/noah-isme/gov-portal-api/internal/models"
)

// DashboardResponse is the employee console landing payload.
type DashboardResponse struct {
	Appeals          models.AppealStats `json:"appeals"`
	RecentActivities []models.Activity  `json:"recentActivities"`
	Payments         DashboardPayments  `json:"payments"`
	Resources        DashboardResources `json:"resources"`
	GeneratedAt      time.Time          `json:"generatedAt"`
}

// DashboardPayments summarises payment settlement.
type DashboardPayments struct {
	Pending int `json:"pending"`
	Paid    int `json:"paid"`
	Failed  int `json:"failed"`
}

// DashboardResources summarises the asset register.
type DashboardResources struct {
	Operational  int `json:"operational"`
	Maintenance  int `json:"maintenance"`
	OutOfService int `json:"outOfService"`
}
