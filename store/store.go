// Package store persists the ledger records. Both implementations enforce the
// same unique constraints and expose balance and progress changes as atomic
// operations rather than read-then-write pairs.
package store

import (
	"context"

	"watch-rewards-system/models"
)

// Store is the ledger's persistence boundary. Errors are reported as the kinds
// in models (ErrRecordNotFound, ErrDuplicateKey, ErrStoreUnavailable) wrapped
// around the driver error.
type Store interface {
	GetUser(ctx context.Context, id string) (*models.User, error)
	GetUserByReferralCode(ctx context.Context, code string) (*models.User, error)
	InsertUser(ctx context.Context, u *models.User) error
	ListUsers(ctx context.Context, page Page) ([]models.User, error)
	// ApplyCoinDelta sets coins to max(0, coins+delta) in one atomic step and
	// returns the new balance.
	ApplyCoinDelta(ctx context.Context, userID string, delta int64) (int64, error)

	GetCampaign(ctx context.Context, id string) (*models.Campaign, error)
	InsertCampaign(ctx context.Context, c *models.Campaign) error
	ListCampaigns(ctx context.Context, f CampaignFilter) ([]models.CampaignListing, error)
	// AddCampaignProgress adds intervals to the campaign's counter and marks it
	// completed once the counter reaches its total. completed is true only for
	// the call that performed the transition.
	AddCampaignProgress(ctx context.Context, id string, intervals int64) (c *models.Campaign, completed bool, err error)

	InsertReferral(ctx context.Context, r *models.Referral) error
	ListReferrals(ctx context.Context, inviterID string) ([]models.ReferralSummary, error)

	InsertWatchLog(ctx context.Context, w *models.WatchLog) error
	ListWatchLogs(ctx context.Context, userID string) ([]models.WatchLogListing, error)

	InsertPayment(ctx context.Context, p *models.Payment) error
	GetPayment(ctx context.Context, id string) (*models.Payment, error)
	ListPayments(ctx context.Context, status models.PaymentStatus) ([]models.PaymentListing, error)
	// TransitionPayment moves a payment from one status to another. It reports
	// false when the payment was not in the expected status.
	TransitionPayment(ctx context.Context, id string, from, to models.PaymentStatus) (bool, error)

	Stats(ctx context.Context) (*models.PlatformStats, error)

	// Transaction runs fn against a transactional view of the store. Any error
	// returned by fn rolls back every write made through tx.
	Transaction(ctx context.Context, fn func(tx Store) error) error
}

// Page bounds a listing. A zero Limit means DefaultPageLimit.
type Page struct {
	Limit  int
	Offset int
}

const (
	DefaultPageLimit = 50
	MaxPageLimit     = 500
)

func (p Page) normalize() Page {
	if p.Limit <= 0 {
		p.Limit = DefaultPageLimit
	}
	if p.Limit > MaxPageLimit {
		p.Limit = MaxPageLimit
	}
	if p.Offset < 0 {
		p.Offset = 0
	}
	return p
}

// CampaignFilter narrows ListCampaigns. Empty fields do not filter.
type CampaignFilter struct {
	OwnerID        string
	ExcludeOwnerID string
	Status         models.CampaignStatus
	// WithOwnerEmail fills CampaignListing.OwnerEmail.
	WithOwnerEmail bool
}

var (
	_ Store = (*GormStore)(nil)
	_ Store = (*MemoryStore)(nil)
)
