package models

import "time"

// ReferralBonusCoins is paid once to the inviter per referred signup.
const ReferralBonusCoins int64 = 50

// Referral records a bonus issued to InviterID because InviteeID signed up
// with the inviter's code. An invitee has exactly one inviter.
type Referral struct {
	ID         string    `gorm:"primaryKey" json:"id"`
	InviterID  string    `gorm:"index;not null" json:"inviter_id"`
	InviteeID  string    `gorm:"uniqueIndex;not null" json:"invitee_id"`
	BonusCoins int64     `gorm:"not null" json:"bonus_coins"`
	CreatedAt  time.Time `gorm:"autoCreateTime" json:"created_at"`
}

// ReferralSummary is what an inviter sees about each person they referred.
type ReferralSummary struct {
	ID              string    `json:"id"`
	InviteeID       string    `json:"invitee_id"`
	InviteeName     string    `json:"invitee_name"`
	InviteeJoinedAt time.Time `json:"invitee_joined_at"`
	BonusCoins      int64     `json:"bonus_coins"`
	CreatedAt       time.Time `json:"created_at"`
}
