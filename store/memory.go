package store

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"watch-rewards-system/models"
)

// MemoryStore keeps the ledger in process memory. It serves local runs with
// LEDGER_STORE=memory and the service tests. A transaction works on a private
// copy that replaces the shared data on commit; every other caller waits
// until it ends.
type MemoryStore struct {
	mu   sync.Mutex
	data *memoryData
}

type memoryData struct {
	users     []*models.User
	campaigns []*models.Campaign
	referrals []*models.Referral
	watchLogs []*models.WatchLog
	payments  []*models.Payment
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{data: &memoryData{}}
}

func (d *memoryData) clone() *memoryData {
	out := &memoryData{
		users:     make([]*models.User, len(d.users)),
		campaigns: make([]*models.Campaign, len(d.campaigns)),
		referrals: make([]*models.Referral, len(d.referrals)),
		watchLogs: make([]*models.WatchLog, len(d.watchLogs)),
		payments:  make([]*models.Payment, len(d.payments)),
	}
	for i, u := range d.users {
		c := *u
		out.users[i] = &c
	}
	for i, c := range d.campaigns {
		cc := *c
		out.campaigns[i] = &cc
	}
	for i, r := range d.referrals {
		rc := *r
		out.referrals[i] = &rc
	}
	for i, w := range d.watchLogs {
		wc := *w
		out.watchLogs[i] = &wc
	}
	for i, p := range d.payments {
		pc := *p
		out.payments[i] = &pc
	}
	return out
}

func notFound(kind, id string) error {
	return fmt.Errorf("%s %s: %w", kind, id, models.ErrRecordNotFound)
}

func duplicate(kind, field, value string) error {
	return fmt.Errorf("%s.%s %q: %w", kind, field, value, models.ErrDuplicateKey)
}

func (m *MemoryStore) findUser(id string) *models.User {
	for _, u := range m.data.users {
		if u.ID == id {
			return u
		}
	}
	return nil
}

func (m *MemoryStore) findCampaign(id string) *models.Campaign {
	for _, c := range m.data.campaigns {
		if c.ID == id {
			return c
		}
	}
	return nil
}

func (m *MemoryStore) findPayment(id string) *models.Payment {
	for _, p := range m.data.payments {
		if p.ID == id {
			return p
		}
	}
	return nil
}

func (m *MemoryStore) GetUser(_ context.Context, id string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u := m.findUser(id)
	if u == nil {
		return nil, notFound("user", id)
	}
	out := *u
	return &out, nil
}

func (m *MemoryStore) GetUserByReferralCode(_ context.Context, code string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.data.users {
		if u.ReferralCode == code {
			out := *u
			return &out, nil
		}
	}
	return nil, notFound("user with referral code", code)
}

func (m *MemoryStore) InsertUser(_ context.Context, u *models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.data.users {
		switch {
		case existing.ID == u.ID:
			return duplicate("users", "id", u.ID)
		case existing.Email == u.Email:
			return duplicate("users", "email", u.Email)
		case existing.ReferralCode == u.ReferralCode:
			return duplicate("users", "referral_code", u.ReferralCode)
		}
	}
	now := time.Now().UTC()
	if u.CreatedAt.IsZero() {
		u.CreatedAt = now
	}
	u.UpdatedAt = now
	if u.Role == "" {
		u.Role = models.RoleMember
	}
	stored := *u
	m.data.users = append(m.data.users, &stored)
	return nil
}

func (m *MemoryStore) ListUsers(_ context.Context, page Page) ([]models.User, error) {
	page = page.normalize()
	m.mu.Lock()
	defer m.mu.Unlock()
	all := make([]models.User, 0, len(m.data.users))
	for i := len(m.data.users) - 1; i >= 0; i-- {
		all = append(all, *m.data.users[i])
	}
	sort.SliceStable(all, func(i, j int) bool { return all[i].CreatedAt.After(all[j].CreatedAt) })
	if page.Offset >= len(all) {
		return []models.User{}, nil
	}
	end := page.Offset + page.Limit
	if end > len(all) {
		end = len(all)
	}
	return all[page.Offset:end], nil
}

func (m *MemoryStore) ApplyCoinDelta(_ context.Context, userID string, delta int64) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u := m.findUser(userID)
	if u == nil {
		return 0, notFound("user", userID)
	}
	u.Coins += delta
	if u.Coins < 0 {
		u.Coins = 0
	}
	u.UpdatedAt = time.Now().UTC()
	return u.Coins, nil
}

func (m *MemoryStore) GetCampaign(_ context.Context, id string) (*models.Campaign, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c := m.findCampaign(id)
	if c == nil {
		return nil, notFound("campaign", id)
	}
	out := *c
	return &out, nil
}

func (m *MemoryStore) InsertCampaign(_ context.Context, c *models.Campaign) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.data.campaigns {
		switch {
		case existing.ID == c.ID:
			return duplicate("campaigns", "id", c.ID)
		case existing.Slug == c.Slug:
			return duplicate("campaigns", "slug", c.Slug)
		}
	}
	now := time.Now().UTC()
	if c.CreatedAt.IsZero() {
		c.CreatedAt = now
	}
	c.UpdatedAt = now
	if c.Status == "" {
		c.Status = models.CampaignStatusActive
	}
	stored := *c
	m.data.campaigns = append(m.data.campaigns, &stored)
	return nil
}

func (m *MemoryStore) ListCampaigns(_ context.Context, f CampaignFilter) ([]models.CampaignListing, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []models.CampaignListing{}
	for i := len(m.data.campaigns) - 1; i >= 0; i-- {
		c := m.data.campaigns[i]
		if f.OwnerID != "" && c.UserID != f.OwnerID {
			continue
		}
		if f.ExcludeOwnerID != "" && c.UserID == f.ExcludeOwnerID {
			continue
		}
		if f.Status != "" && c.Status != f.Status {
			continue
		}
		listing := models.CampaignListing{Campaign: *c}
		if owner := m.findUser(c.UserID); owner != nil {
			listing.OwnerName = owner.Name
			if f.WithOwnerEmail {
				listing.OwnerEmail = owner.Email
			}
		}
		out = append(out, listing)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (m *MemoryStore) AddCampaignProgress(_ context.Context, id string, intervals int64) (*models.Campaign, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c := m.findCampaign(id)
	if c == nil {
		return nil, false, notFound("campaign", id)
	}
	now := time.Now().UTC()
	c.CurrentIntervalsCompleted += intervals
	c.UpdatedAt = now
	completed := false
	if c.Status == models.CampaignStatusActive && c.CurrentIntervalsCompleted >= c.TotalIntervals {
		c.Status = models.CampaignStatusCompleted
		c.CompletedAt = &now
		completed = true
	}
	out := *c
	return &out, completed, nil
}

func (m *MemoryStore) InsertReferral(_ context.Context, r *models.Referral) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.data.referrals {
		switch {
		case existing.ID == r.ID:
			return duplicate("referrals", "id", r.ID)
		case existing.InviteeID == r.InviteeID:
			return duplicate("referrals", "invitee_id", r.InviteeID)
		}
	}
	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now().UTC()
	}
	stored := *r
	m.data.referrals = append(m.data.referrals, &stored)
	return nil
}

func (m *MemoryStore) ListReferrals(_ context.Context, inviterID string) ([]models.ReferralSummary, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []models.ReferralSummary{}
	for i := len(m.data.referrals) - 1; i >= 0; i-- {
		r := m.data.referrals[i]
		if r.InviterID != inviterID {
			continue
		}
		invitee := m.findUser(r.InviteeID)
		if invitee == nil {
			continue
		}
		out = append(out, models.ReferralSummary{
			ID:              r.ID,
			InviteeID:       r.InviteeID,
			InviteeName:     invitee.Name,
			InviteeJoinedAt: invitee.CreatedAt,
			BonusCoins:      r.BonusCoins,
			CreatedAt:       r.CreatedAt,
		})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (m *MemoryStore) InsertWatchLog(_ context.Context, w *models.WatchLog) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.data.watchLogs {
		if existing.ID == w.ID {
			return duplicate("watch_logs", "id", w.ID)
		}
	}
	if w.Timestamp.IsZero() {
		w.Timestamp = time.Now().UTC()
	}
	stored := *w
	m.data.watchLogs = append(m.data.watchLogs, &stored)
	return nil
}

func (m *MemoryStore) ListWatchLogs(_ context.Context, userID string) ([]models.WatchLogListing, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []models.WatchLogListing{}
	for i := len(m.data.watchLogs) - 1; i >= 0; i-- {
		w := m.data.watchLogs[i]
		if w.UserID != userID {
			continue
		}
		listing := models.WatchLogListing{WatchLog: *w}
		if c := m.findCampaign(w.CampaignID); c != nil {
			listing.VideoURL = c.VideoURL
			listing.VideoLengthSec = c.VideoLengthSec
		}
		out = append(out, listing)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Timestamp.After(out[j].Timestamp) })
	return out, nil
}

func (m *MemoryStore) InsertPayment(_ context.Context, p *models.Payment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.findPayment(p.ID) != nil {
		return duplicate("payments", "id", p.ID)
	}
	if p.Timestamp.IsZero() {
		p.Timestamp = time.Now().UTC()
	}
	if p.Status == "" {
		p.Status = models.PaymentStatusPending
	}
	stored := *p
	m.data.payments = append(m.data.payments, &stored)
	return nil
}

func (m *MemoryStore) GetPayment(_ context.Context, id string) (*models.Payment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p := m.findPayment(id)
	if p == nil {
		return nil, notFound("payment", id)
	}
	out := *p
	return &out, nil
}

func (m *MemoryStore) ListPayments(_ context.Context, status models.PaymentStatus) ([]models.PaymentListing, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []models.PaymentListing{}
	for i := len(m.data.payments) - 1; i >= 0; i-- {
		p := m.data.payments[i]
		if status != "" && p.Status != status {
			continue
		}
		listing := models.PaymentListing{Payment: *p}
		if u := m.findUser(p.UserID); u != nil {
			listing.UserName = u.Name
			listing.UserEmail = u.Email
		}
		out = append(out, listing)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Timestamp.After(out[j].Timestamp) })
	return out, nil
}

func (m *MemoryStore) TransitionPayment(_ context.Context, id string, from, to models.PaymentStatus) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p := m.findPayment(id)
	if p == nil {
		return false, notFound("payment", id)
	}
	if p.Status != from {
		return false, nil
	}
	now := time.Now().UTC()
	p.Status = to
	p.ReviewedAt = &now
	return true, nil
}

func (m *MemoryStore) Stats(_ context.Context) (*models.PlatformStats, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	st := &models.PlatformStats{
		TotalUsers:     int64(len(m.data.users)),
		TotalCampaigns: int64(len(m.data.campaigns)),
	}
	for _, c := range m.data.campaigns {
		if c.Status == models.CampaignStatusActive {
			st.ActiveCampaigns++
		}
	}
	for _, p := range m.data.payments {
		if p.Status == models.PaymentStatusApproved {
			st.TotalRevenue += p.Amount
		}
	}
	return st, nil
}

func (m *MemoryStore) Transaction(_ context.Context, fn func(tx Store) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	work := &MemoryStore{data: m.data.clone()}
	if err := fn(memoryTx{work}); err != nil {
		return err
	}
	m.data = work.data
	return nil
}

// memoryTx is the view handed to Transaction callbacks. Nested transactions
// join the outer one.
type memoryTx struct {
	*MemoryStore
}

func (t memoryTx) Transaction(_ context.Context, fn func(tx Store) error) error {
	return fn(t)
}
