package models

import (
	"strings"
	"time"
)

// AppealStatus captures the review state of a citizen appeal.
type AppealStatus string

const (
	AppealStatusUnderReview AppealStatus = "Under Review"
	AppealStatusInProgress  AppealStatus = "In Progress"
	AppealStatusCompleted   AppealStatus = "Completed"
	AppealStatusRejected    AppealStatus = "Rejected"
)

// AppealStatuses lists every accepted status in display order.
var AppealStatuses = []AppealStatus{
	AppealStatusUnderReview,
	AppealStatusInProgress,
	AppealStatusCompleted,
	AppealStatusRejected,
}

// Valid reports whether s is one of the enumerated statuses.
func (s AppealStatus) Valid() bool {
	for _, candidate := range AppealStatuses {
		if s == candidate {
			return true
		}
	}
	return false
}

// AppealPriority ranks appeals for moderators.
type AppealPriority string

const (
	AppealPriorityLow    AppealPriority = "Low"
	AppealPriorityMedium AppealPriority = "Medium"
	AppealPriorityHigh   AppealPriority = "High"
)

// Valid reports whether p is Low, Medium or High.
func (p AppealPriority) Valid() bool {
	switch p {
	case AppealPriorityLow, AppealPriorityMedium, AppealPriorityHigh:
		return true
	default:
		return false
	}
}

// AppealCategory classifies the subject of an appeal.
type AppealCategory string

const (
	AppealCategoryTechnical      AppealCategory = "technical"
	AppealCategoryAdministrative AppealCategory = "administrative"
	AppealCategoryComplaint      AppealCategory = "complaint"
	AppealCategorySuggestion     AppealCategory = "suggestion"
	AppealCategoryOther          AppealCategory = "other"
)

// Valid reports whether c is a known category.
func (c AppealCategory) Valid() bool {
	switch c {
	case AppealCategoryTechnical, AppealCategoryAdministrative, AppealCategoryComplaint,
		AppealCategorySuggestion, AppealCategoryOther:
		return true
	default:
		return false
	}
}

// Appeal is a citizen-submitted request tracked through review.
// Only Status, Priority and UpdatedAt change after creation.
type Appeal struct {
	ID          string         `db:"id" json:"id"`
	Title       string         `db:"title" json:"title"`
	Content     *string        `db:"content" json:"content,omitempty"`
	Description *string        `db:"description" json:"description,omitempty"`
	Category    AppealCategory `db:"category" json:"category"`
	SubmittedBy string         `db:"submitted_by" json:"submitted_by"`
	Status      AppealStatus   `db:"status" json:"status"`
	Priority    AppealPriority `db:"priority" json:"priority"`
	CreatedAt   time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time      `db:"updated_at" json:"updated_at"`
}

// Body returns the appeal text: content first, then description. The bool is false when neither is set.
func (a Appeal) Body() (string, bool) {
	if a.Content != nil && strings.TrimSpace(*a.Content) != "" {
		return *a.Content, true
	}
	if a.Description != nil {
		return *a.Description, true
	}
	return "", false
}

// AppealDateBucket restricts appeals by creation time relative to now.
type AppealDateBucket string

const (
	AppealDateAll     AppealDateBucket = "all"
	AppealDateToday   AppealDateBucket = "today"
	AppealDateWeek    AppealDateBucket = "week"
	AppealDateMonth   AppealDateBucket = "month"
	AppealDateQuarter AppealDateBucket = "quarter"
)

// FilterAll marks an unconstrained status or category dimension.
const FilterAll = "all"

// AppealFilterSpec is the transient search/status/category/date selection of an appeal list.
// Empty values behave like "all".
type AppealFilterSpec struct {
	SearchTerm string           `json:"search_term"`
	Status     string           `json:"status"`
	Category   string           `json:"category"`
	DateBucket AppealDateBucket `json:"date"`
}

// AppealStats are counts derived from the current appeal list.
type AppealStats struct {
	Total      int `json:"total"`
	New        int `json:"new"`
	InProgress int `json:"inProgress"`
	Completed  int `json:"completed"`
}
