package models

// Role gates the admin surface.
type Role string

const (
	RoleMember Role = "member"
	RoleAdmin  Role = "admin"
)

// User is the profile paired 1:1 with an identity at the auth provider.
// ID is assigned by the provider and never changes.
type User struct {
	ID           string  `gorm:"primaryKey" json:"id"`
	Name         string  `gorm:"not null;default:''" json:"name"`
	Email        string  `gorm:"uniqueIndex;not null" json:"email"`
	Coins        int64   `gorm:"not null;default:0" json:"coins"`
	ReferralCode string  `gorm:"uniqueIndex;not null" json:"referral_code"`
	ReferredBy   *string `gorm:"index" json:"referred_by,omitempty"` // inviter's referral_code, immutable
	Role         Role    `gorm:"type:varchar(16);not null;default:'member'" json:"role"`

	Timestamps
}

// IsAdmin reports whether the profile may use the admin surface.
func (u *User) IsAdmin() bool {
	return u != nil && u.Role == RoleAdmin
}
