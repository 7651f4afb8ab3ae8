package models

import "time"

// PaymentStatus tracks settlement of a resident payment.
type PaymentStatus string

const (
	PaymentPending PaymentStatus = "pending"
	PaymentPaid    PaymentStatus = "paid"
	PaymentFailed  PaymentStatus = "failed"
)

func (s PaymentStatus) Valid() bool {
	return s == PaymentPending || s == PaymentPaid || s == PaymentFailed
}

// Payment is a charge raised against a resident.
type Payment struct {
	ID        string        `db:"id" json:"id"`
	UserID    string        `db:"user_id" json:"user_id"`
	ServiceID *string       `db:"service_id" json:"service_id,omitempty"`
	Amount    float64       `db:"amount" json:"amount"`
	Currency  string        `db:"currency" json:"currency"`
	Purpose   string        `db:"purpose" json:"purpose"`
	Status    PaymentStatus `db:"status" json:"status"`
	PaidAt    *time.Time    `db:"paid_at" json:"paid_at,omitempty"`
	CreatedAt time.Time     `db:"created_at" json:"created_at"`
	UpdatedAt time.Time     `db:"updated_at" json:"updated_at"`
}

// PaymentFilter constrains payment listings.
type PaymentFilter struct {
	UserID   string
	Status   PaymentStatus
	Page     int
	PageSize int
}
