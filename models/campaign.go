package models

import "time"

type CampaignStatus string

const (
	CampaignStatusActive    CampaignStatus = "active"
	CampaignStatusCompleted CampaignStatus = "completed"
)

// Campaign is a promoted video that watchers earn coins on. Progress only
// moves forward and Status only moves active -> completed.
type Campaign struct {
	ID                        string         `gorm:"primaryKey" json:"id"`
	UserID                    string         `gorm:"index;not null" json:"user_id"`
	Title                     string         `gorm:"not null" json:"title"`
	Slug                      string         `gorm:"uniqueIndex;not null" json:"slug"`
	VideoURL                  string         `gorm:"not null" json:"video_url"`
	VideoLengthSec            int            `gorm:"not null;default:0" json:"video_length_sec"`
	Status                    CampaignStatus `gorm:"type:varchar(16);index;not null;default:'active'" json:"status"`
	TotalIntervals            int64          `gorm:"not null" json:"total_intervals"`
	CurrentIntervalsCompleted int64          `gorm:"not null;default:0" json:"current_intervals_completed"`
	CompletedAt               *time.Time     `json:"completed_at,omitempty"`

	Timestamps
}

// IsCompleted reports whether the campaign reached its terminal state.
func (c *Campaign) IsCompleted() bool {
	return c.Status == CampaignStatusCompleted
}

// CampaignListing is a campaign joined with its owner's display name.
type CampaignListing struct {
	Campaign
	OwnerName  string `json:"owner_name"`
	OwnerEmail string `json:"owner_email,omitempty"` // admin listings only
}
