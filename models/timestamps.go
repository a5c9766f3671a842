package models

import "time"

// Timestamps adds GORM auto-times. Ledger records are never soft-deleted, so
// unlike a typical CRUD model there is no DeletedAt column here.
type Timestamps struct {
	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}
