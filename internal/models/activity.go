package models

import "time"

// Activity types emitted by state-changing operations.
const (
	ActivityTypeAppeal  = "appeal"
	ActivityTypePayment = "payment"
)

// Activity statuses.
const (
	ActivityStatusPending   = "pending"
	ActivityStatusCompleted = "completed"
)

// Activity is an audit-feed entry shown on the employee console.
type Activity struct {
	ID          string    `db:"id" json:"id"`
	Title       string    `db:"title" json:"title"`
	Description string    `db:"description" json:"description"`
	Type        string    `db:"type" json:"type"`
	Priority    string    `db:"priority" json:"priority"`
	Status      string    `db:"status" json:"status"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}
