package services

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"watch-rewards-system/models"
	"watch-rewards-system/redisstore"
	"watch-rewards-system/store"
)

// fakeIdentities is an in-process IdentityProvider.
type fakeIdentities struct {
	mu        sync.Mutex
	order     []string
	byID      map[string]*Identity
	passwords map[string]string

	createErr error
	deleteErr error

	deleted   []string
	signedOut []string
}

func newFakeIdentities() *fakeIdentities {
	return &fakeIdentities{
		byID:      make(map[string]*Identity),
		passwords: make(map[string]string),
	}
}

func (f *fakeIdentities) CreateIdentity(_ context.Context, email, password string, _ map[string]any) (*Identity, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return nil, f.createErr
	}
	for _, id := range f.byID {
		if id.Email == email {
			return nil, fmt.Errorf("%w: %w", models.ErrIdentityCreationFailed, models.ErrDuplicateKey)
		}
	}
	identity := &Identity{ID: uuid.NewString(), Email: email, CreatedAt: time.Now().UTC()}
	f.add(identity, password)
	return identity, nil
}

func (f *fakeIdentities) add(identity *Identity, password string) {
	f.byID[identity.ID] = identity
	f.order = append(f.order, identity.ID)
	f.passwords[identity.ID] = password
}

func (f *fakeIdentities) DeleteIdentity(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.deleteErr != nil {
		return f.deleteErr
	}
	if _, ok := f.byID[id]; !ok {
		return fmt.Errorf("identity %s: %w", id, models.ErrRecordNotFound)
	}
	delete(f.byID, id)
	for i, o := range f.order {
		if o == id {
			f.order = append(f.order[:i], f.order[i+1:]...)
			break
		}
	}
	f.deleted = append(f.deleted, id)
	return nil
}

func (f *fakeIdentities) ListIdentities(_ context.Context, page, perPage int) ([]Identity, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	start := (page - 1) * perPage
	if start >= len(f.order) {
		return nil, nil
	}
	end := min(start+perPage, len(f.order))
	out := make([]Identity, 0, end-start)
	for _, id := range f.order[start:end] {
		out = append(out, *f.byID[id])
	}
	return out, nil
}

func (f *fakeIdentities) SignIn(_ context.Context, email, password string) (*Tokens, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for id, identity := range f.byID {
		if identity.Email == email && f.passwords[id] == password {
			return &Tokens{AccessToken: "access-" + id, TokenType: "bearer", ExpiresIn: 3600, Identity: *identity}, nil
		}
	}
	return nil, models.ErrInvalidCredentials
}

func (f *fakeIdentities) SignOut(_ context.Context, accessToken string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.signedOut = append(f.signedOut, accessToken)
	return nil
}

func (f *fakeIdentities) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.byID)
}

// flakyStore fails selected writes, including inside transactions.
type flakyStore struct {
	store.Store
	insertUserErr     error
	insertReferralErr error
}

func (f *flakyStore) InsertUser(ctx context.Context, u *models.User) error {
	if f.insertUserErr != nil {
		return f.insertUserErr
	}
	return f.Store.InsertUser(ctx, u)
}

func (f *flakyStore) InsertReferral(ctx context.Context, r *models.Referral) error {
	if f.insertReferralErr != nil {
		return f.insertReferralErr
	}
	return f.Store.InsertReferral(ctx, r)
}

func (f *flakyStore) Transaction(ctx context.Context, fn func(tx store.Store) error) error {
	return f.Store.Transaction(ctx, func(tx store.Store) error {
		return fn(&flakyStore{Store: tx, insertUserErr: f.insertUserErr, insertReferralErr: f.insertReferralErr})
	})
}

type balanceChange struct {
	userID  string
	balance int64
}

type fixture struct {
	store      store.Store
	identities *fakeIdentities
	hub        *EventHub
	ledger     *CoinLedger
	referrals  *ReferralEngine
	signup     *SignupService
	profiles   *ProfileService
	auth       *AuthService
	campaigns  *CampaignService
	payments   *PaymentService

	mu       sync.Mutex
	balances []balanceChange
}

func newFixture(t *testing.T) *fixture {
	return newFixtureWith(t, store.NewMemoryStore())
}

func newFixtureWith(t *testing.T, s store.Store) *fixture {
	t.Helper()
	f := &fixture{
		store:      s,
		identities: newFakeIdentities(),
		hub:        NewEventHub(),
	}
	f.ledger = NewCoinLedger(s)
	f.ledger.OnBalanceChanged(func(_ context.Context, userID string, balance int64) {
		f.mu.Lock()
		defer f.mu.Unlock()
		f.balances = append(f.balances, balanceChange{userID, balance})
	})
	f.referrals = NewReferralEngine(s, f.ledger)
	f.referrals.intn = counter()
	f.signup = NewSignupService(f.identities, s, f.referrals, redisstore.NewLocalLocker())
	f.profiles = NewProfileService(s, nil, 0)
	f.auth = NewAuthService(f.identities, f.profiles, f.hub)
	f.campaigns = NewCampaignService(s, f.ledger, f.hub, 1)
	f.payments = NewPaymentService(s, f.ledger)
	return f
}

func (f *fixture) observed() []balanceChange {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]balanceChange(nil), f.balances...)
}

func (f *fixture) signUp(t *testing.T, name string) *models.User {
	t.Helper()
	email := strings.ToLower(strings.ReplaceAll(name, " ", ".")) + "-" + uuid.NewString()[:6] + "@example.com"
	u, err := f.signup.SignUp(context.Background(), SignUpInput{Email: email, Password: "hunter22", Name: name})
	require.NoError(t, err)
	return u
}

func (f *fixture) coins(t *testing.T, userID string) int64 {
	t.Helper()
	u, err := f.store.GetUser(context.Background(), userID)
	require.NoError(t, err)
	return u.Coins
}

// counter yields 0, 1, 2, ... modulo n.
func counter() func(n int) int {
	var mu sync.Mutex
	next := 0
	return func(n int) int {
		mu.Lock()
		defer mu.Unlock()
		v := next % n
		next++
		return v
	}
}

func constant(v int) func(n int) int {
	return func(int) int { return v }
}
