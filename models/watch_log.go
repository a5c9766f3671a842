package models

import "time"

// WatchLog is the append-only audit row for one watch event.
type WatchLog struct {
	ID                string    `gorm:"primaryKey" json:"id"`
	UserID            string    `gorm:"index;not null" json:"user_id"`
	CampaignID        string    `gorm:"index;not null" json:"campaign_id"`
	Timestamp         time.Time `gorm:"index;not null" json:"timestamp"`
	IntervalsRecorded int64     `gorm:"not null" json:"intervals_recorded"`
	CoinsAwarded      int64     `gorm:"not null;default:0" json:"coins_awarded"`
}

// WatchLogListing adds the watched campaign's video details.
type WatchLogListing struct {
	WatchLog
	VideoURL       string `json:"video_url"`
	VideoLengthSec int    `json:"video_length_sec"`
}
