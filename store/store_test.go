package store_test

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"watch-rewards-system/models"
	"watch-rewards-system/store"
)

func newSQLiteStore(t *testing.T) *store.GormStore {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "ledger.db")), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, store.Migrate(context.Background(), db))
	return store.NewGormStore(db)
}

// eachStore runs the same contract against every Store implementation.
func eachStore(t *testing.T, fn func(t *testing.T, s store.Store)) {
	t.Run("memory", func(t *testing.T) { fn(t, store.NewMemoryStore()) })
	t.Run("sqlite", func(t *testing.T) { fn(t, newSQLiteStore(t)) })
}

func seedUser(t *testing.T, s store.Store, name string, coins int64) *models.User {
	t.Helper()
	id := uuid.NewString()
	u := &models.User{
		ID:           id,
		Name:         name,
		Email:        id + "@example.com",
		Coins:        coins,
		ReferralCode: "SG-" + id[:8],
		Role:         models.RoleMember,
	}
	require.NoError(t, s.InsertUser(context.Background(), u))
	return u
}

func seedCampaign(t *testing.T, s store.Store, owner *models.User, total int64, createdAt time.Time) *models.Campaign {
	t.Helper()
	id := uuid.NewString()
	c := &models.Campaign{
		ID:             id,
		UserID:         owner.ID,
		Title:          "clip",
		Slug:           "clip-" + id[:8],
		VideoURL:       "https://cdn.example.com/" + id + ".mp4",
		VideoLengthSec: 90,
		Status:         models.CampaignStatusActive,
		TotalIntervals: total,
	}
	c.CreatedAt = createdAt
	require.NoError(t, s.InsertCampaign(context.Background(), c))
	return c
}

func TestApplyCoinDeltaClampsAtZero(t *testing.T) {
	eachStore(t, func(t *testing.T, s store.Store) {
		ctx := context.Background()
		u := seedUser(t, s, "Ada", 30)

		bal, err := s.ApplyCoinDelta(ctx, u.ID, -1000)
		require.NoError(t, err)
		assert.Equal(t, int64(0), bal)

		bal, err = s.ApplyCoinDelta(ctx, u.ID, 50)
		require.NoError(t, err)
		assert.Equal(t, int64(50), bal)

		got, err := s.GetUser(ctx, u.ID)
		require.NoError(t, err)
		assert.Equal(t, int64(50), got.Coins)

		_, err = s.ApplyCoinDelta(ctx, uuid.NewString(), 10)
		assert.ErrorIs(t, err, models.ErrRecordNotFound)
	})
}

func TestApplyCoinDeltaConcurrent(t *testing.T) {
	eachStore(t, func(t *testing.T, s store.Store) {
		ctx := context.Background()
		u := seedUser(t, s, "Ada", 0)

		var wg sync.WaitGroup
		for i := 0; i < 20; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, err := s.ApplyCoinDelta(ctx, u.ID, 5)
				assert.NoError(t, err)
			}()
		}
		wg.Wait()

		got, err := s.GetUser(ctx, u.ID)
		require.NoError(t, err)
		assert.Equal(t, int64(100), got.Coins)
	})
}

func TestInsertUserDuplicates(t *testing.T) {
	eachStore(t, func(t *testing.T, s store.Store) {
		ctx := context.Background()
		u := seedUser(t, s, "Ada", 30)

		sameCode := &models.User{ID: uuid.NewString(), Email: "other@example.com", ReferralCode: u.ReferralCode, Role: models.RoleMember}
		assert.ErrorIs(t, s.InsertUser(ctx, sameCode), models.ErrDuplicateKey)

		sameEmail := &models.User{ID: uuid.NewString(), Email: u.Email, ReferralCode: "SG-NEW-1234", Role: models.RoleMember}
		assert.ErrorIs(t, s.InsertUser(ctx, sameEmail), models.ErrDuplicateKey)

		byCode, err := s.GetUserByReferralCode(ctx, u.ReferralCode)
		require.NoError(t, err)
		assert.Equal(t, u.ID, byCode.ID)

		_, err = s.GetUserByReferralCode(ctx, "SG-NOPE-0000")
		assert.ErrorIs(t, err, models.ErrRecordNotFound)
	})
}

func TestAddCampaignProgress(t *testing.T) {
	eachStore(t, func(t *testing.T, s store.Store) {
		ctx := context.Background()
		owner := seedUser(t, s, "Owner", 0)
		c := seedCampaign(t, s, owner, 3, time.Now().UTC())

		steps := []struct {
			add           int64
			wantCurrent   int64
			wantStatus    models.CampaignStatus
			wantCompleted bool
		}{
			{1, 1, models.CampaignStatusActive, false},
			{2, 3, models.CampaignStatusCompleted, true},
			{0, 3, models.CampaignStatusCompleted, false},
			{4, 7, models.CampaignStatusCompleted, false},
		}
		for _, step := range steps {
			got, completed, err := s.AddCampaignProgress(ctx, c.ID, step.add)
			require.NoError(t, err)
			assert.Equal(t, step.wantCurrent, got.CurrentIntervalsCompleted)
			assert.Equal(t, step.wantStatus, got.Status)
			assert.Equal(t, step.wantCompleted, completed)
		}

		got, err := s.GetCampaign(ctx, c.ID)
		require.NoError(t, err)
		assert.NotNil(t, got.CompletedAt)

		_, _, err = s.AddCampaignProgress(ctx, uuid.NewString(), 1)
		assert.ErrorIs(t, err, models.ErrRecordNotFound)
	})
}

func TestReferralUniquePerInvitee(t *testing.T) {
	eachStore(t, func(t *testing.T, s store.Store) {
		ctx := context.Background()
		inviter := seedUser(t, s, "Inviter", 0)
		invitee := seedUser(t, s, "Invitee", 30)

		r := &models.Referral{ID: uuid.NewString(), InviterID: inviter.ID, InviteeID: invitee.ID, BonusCoins: models.ReferralBonusCoins}
		require.NoError(t, s.InsertReferral(ctx, r))

		again := &models.Referral{ID: uuid.NewString(), InviterID: inviter.ID, InviteeID: invitee.ID, BonusCoins: models.ReferralBonusCoins}
		assert.ErrorIs(t, s.InsertReferral(ctx, again), models.ErrDuplicateKey)

		list, err := s.ListReferrals(ctx, inviter.ID)
		require.NoError(t, err)
		require.Len(t, list, 1)
		assert.Equal(t, "Invitee", list[0].InviteeName)
		assert.Equal(t, models.ReferralBonusCoins, list[0].BonusCoins)
	})
}

func TestTransactionRollsBack(t *testing.T) {
	eachStore(t, func(t *testing.T, s store.Store) {
		ctx := context.Background()
		inviter := seedUser(t, s, "Inviter", 10)
		invitee := seedUser(t, s, "Invitee", 30)
		boom := errors.New("boom")

		err := s.Transaction(ctx, func(tx store.Store) error {
			if err := tx.InsertReferral(ctx, &models.Referral{
				ID: uuid.NewString(), InviterID: inviter.ID, InviteeID: invitee.ID, BonusCoins: 50,
			}); err != nil {
				return err
			}
			if _, err := tx.ApplyCoinDelta(ctx, inviter.ID, 50); err != nil {
				return err
			}
			return boom
		})
		assert.ErrorIs(t, err, boom)

		got, err := s.GetUser(ctx, inviter.ID)
		require.NoError(t, err)
		assert.Equal(t, int64(10), got.Coins)

		list, err := s.ListReferrals(ctx, inviter.ID)
		require.NoError(t, err)
		assert.Empty(t, list)
	})
}

func TestListCampaignsFilters(t *testing.T) {
	eachStore(t, func(t *testing.T, s store.Store) {
		ctx := context.Background()
		alice := seedUser(t, s, "Alice", 0)
		bob := seedUser(t, s, "Bob", 0)
		base := time.Now().UTC().Add(-time.Hour)
		older := seedCampaign(t, s, alice, 5, base)
		newer := seedCampaign(t, s, alice, 5, base.Add(time.Minute))
		bobs := seedCampaign(t, s, bob, 1, base.Add(2*time.Minute))
		_, _, err := s.AddCampaignProgress(ctx, bobs.ID, 1)
		require.NoError(t, err)

		mine, err := s.ListCampaigns(ctx, store.CampaignFilter{OwnerID: alice.ID})
		require.NoError(t, err)
		require.Len(t, mine, 2)
		assert.Equal(t, newer.ID, mine[0].ID)
		assert.Equal(t, older.ID, mine[1].ID)
		assert.Equal(t, "Alice", mine[0].OwnerName)
		assert.Empty(t, mine[0].OwnerEmail)

		all, err := s.ListCampaigns(ctx, store.CampaignFilter{WithOwnerEmail: true})
		require.NoError(t, err)
		require.Len(t, all, 3)
		assert.Equal(t, bob.Email, all[0].OwnerEmail)
		assert.Equal(t, alice.Email, all[1].OwnerEmail)

		forBob, err := s.ListCampaigns(ctx, store.CampaignFilter{ExcludeOwnerID: bob.ID, Status: models.CampaignStatusActive})
		require.NoError(t, err)
		assert.Len(t, forBob, 2)

		forAlice, err := s.ListCampaigns(ctx, store.CampaignFilter{ExcludeOwnerID: alice.ID, Status: models.CampaignStatusActive})
		require.NoError(t, err)
		assert.Empty(t, forAlice)
	})
}

func TestWatchLogsListing(t *testing.T) {
	eachStore(t, func(t *testing.T, s store.Store) {
		ctx := context.Background()
		owner := seedUser(t, s, "Owner", 0)
		viewer := seedUser(t, s, "Viewer", 0)
		c := seedCampaign(t, s, owner, 10, time.Now().UTC())

		base := time.Now().UTC().Add(-time.Minute)
		for i := 0; i < 3; i++ {
			require.NoError(t, s.InsertWatchLog(ctx, &models.WatchLog{
				ID:                uuid.NewString(),
				UserID:            viewer.ID,
				CampaignID:        c.ID,
				Timestamp:         base.Add(time.Duration(i) * time.Second),
				IntervalsRecorded: int64(i + 1),
			}))
		}

		logs, err := s.ListWatchLogs(ctx, viewer.ID)
		require.NoError(t, err)
		require.Len(t, logs, 3)
		assert.Equal(t, int64(3), logs[0].IntervalsRecorded)
		assert.Equal(t, c.VideoURL, logs[0].VideoURL)
		assert.Equal(t, 90, logs[0].VideoLengthSec)
	})
}

func TestPaymentsAndStats(t *testing.T) {
	eachStore(t, func(t *testing.T, s store.Store) {
		ctx := context.Background()
		buyer := seedUser(t, s, "Buyer", 0)
		owner := seedUser(t, s, "Owner", 0)
		seedCampaign(t, s, owner, 10, time.Now().UTC())

		approved := &models.Payment{ID: uuid.NewString(), UserID: buyer.ID, Amount: 9.5, Coins: 100, Status: models.PaymentStatusPending, Timestamp: time.Now().UTC()}
		pending := &models.Payment{ID: uuid.NewString(), UserID: buyer.ID, Amount: 4, Coins: 40, Status: models.PaymentStatusPending, Timestamp: time.Now().UTC()}
		require.NoError(t, s.InsertPayment(ctx, approved))
		require.NoError(t, s.InsertPayment(ctx, pending))

		ok, err := s.TransitionPayment(ctx, approved.ID, models.PaymentStatusPending, models.PaymentStatusApproved)
		require.NoError(t, err)
		assert.True(t, ok)

		ok, err = s.TransitionPayment(ctx, approved.ID, models.PaymentStatusPending, models.PaymentStatusApproved)
		require.NoError(t, err)
		assert.False(t, ok)

		_, err = s.TransitionPayment(ctx, uuid.NewString(), models.PaymentStatusPending, models.PaymentStatusApproved)
		assert.ErrorIs(t, err, models.ErrRecordNotFound)

		list, err := s.ListPayments(ctx, models.PaymentStatusPending)
		require.NoError(t, err)
		require.Len(t, list, 1)
		assert.Equal(t, pending.ID, list[0].ID)
		assert.Equal(t, "Buyer", list[0].UserName)

		st, err := s.Stats(ctx)
		require.NoError(t, err)
		assert.Equal(t, int64(2), st.TotalUsers)
		assert.Equal(t, int64(1), st.TotalCampaigns)
		assert.Equal(t, int64(1), st.ActiveCampaigns)
		assert.InDelta(t, 9.5, st.TotalRevenue, 0.001)
	})
}

func TestListUsersPaging(t *testing.T) {
	eachStore(t, func(t *testing.T, s store.Store) {
		ctx := context.Background()
		for i := 0; i < 3; i++ {
			seedUser(t, s, "User", 0)
		}
		first, err := s.ListUsers(ctx, store.Page{Limit: 2})
		require.NoError(t, err)
		assert.Len(t, first, 2)

		rest, err := s.ListUsers(ctx, store.Page{Limit: 2, Offset: 2})
		require.NoError(t, err)
		assert.Len(t, rest, 1)
	})
}

func TestTransactionRollbackKeepsOtherWrites(t *testing.T) {
	eachStore(t, func(t *testing.T, s store.Store) {
		ctx := context.Background()
		u := seedUser(t, s, "Ada", 30)
		errAbort := errors.New("abort")

		var wg sync.WaitGroup
		err := s.Transaction(ctx, func(tx store.Store) error {
			_, err := tx.ApplyCoinDelta(ctx, u.ID, 5)
			require.NoError(t, err)
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, err := s.ApplyCoinDelta(ctx, u.ID, 100)
				assert.NoError(t, err)
			}()
			return errAbort
		})
		require.ErrorIs(t, err, errAbort)
		wg.Wait()

		got, err := s.GetUser(ctx, u.ID)
		require.NoError(t, err)
		assert.Equal(t, int64(130), got.Coins)
	})
}

func TestTransactionWritesHiddenUntilCommit(t *testing.T) {
	s := store.NewMemoryStore()
	ctx := context.Background()
	u := seedUser(t, s, "Ada", 30)

	seen := make(chan int64, 1)
	err := s.Transaction(ctx, func(tx store.Store) error {
		_, err := tx.ApplyCoinDelta(ctx, u.ID, 5)
		require.NoError(t, err)
		go func() {
			got, err := s.GetUser(ctx, u.ID)
			assert.NoError(t, err)
			seen <- got.Coins
		}()
		select {
		case c := <-seen:
			t.Errorf("read %d coins while the transaction was open", c)
		case <-time.After(20 * time.Millisecond):
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, int64(35), <-seen)
}
