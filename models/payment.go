package models

import "time"

type PaymentStatus string

const (
	PaymentStatusPending  PaymentStatus = "pending"
	PaymentStatusApproved PaymentStatus = "approved"
	PaymentStatusRejected PaymentStatus = "rejected"
)

// Valid reports whether s is a known status.
func (s PaymentStatus) Valid() bool {
	switch s {
	case PaymentStatusPending, PaymentStatusApproved, PaymentStatusRejected:
		return true
	}
	return false
}

// Payment is a coin purchase request reviewed by an admin. Approval credits
// Coins to the requester; Amount counts toward platform revenue.
type Payment struct {
	ID         string        `gorm:"primaryKey" json:"id"`
	UserID     string        `gorm:"index;not null" json:"user_id"`
	Amount     float64       `gorm:"not null" json:"amount"`
	Coins      int64         `gorm:"not null" json:"coins"`
	Method     string        `gorm:"not null;default:''" json:"method"`
	Reference  string        `gorm:"not null;default:''" json:"reference"`
	Status     PaymentStatus `gorm:"type:varchar(16);index;not null;default:'pending'" json:"status"`
	Timestamp  time.Time     `gorm:"index;not null" json:"timestamp"`
	ReviewedAt *time.Time    `json:"reviewed_at,omitempty"`
}

// PaymentListing is a payment joined with the requester's name and email.
type PaymentListing struct {
	Payment
	UserName  string `json:"user_name"`
	UserEmail string `json:"user_email"`
}

// PlatformStats is the admin dashboard summary.
type PlatformStats struct {
	TotalUsers      int64   `json:"total_users"`
	TotalCampaigns  int64   `json:"total_campaigns"`
	ActiveCampaigns int64   `json:"active_campaigns"`
	TotalRevenue    float64 `json:"total_revenue"`
}
