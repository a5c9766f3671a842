package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"watch-rewards-system/models"
)

// Connect opens the Postgres ledger with pooled connections. TranslateError is
// required: duplicate detection relies on gorm.ErrDuplicatedKey.
func Connect(ctx context.Context, databaseURL string, maxConns int) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(databaseURL), &gorm.Config{
		PrepareStmt:    true,
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("gorm sql db: %w", err)
	}
	if maxConns > 0 {
		sqlDB.SetMaxOpenConns(maxConns)
		sqlDB.SetMaxIdleConns(maxConns / 2)
	}
	sqlDB.SetConnMaxIdleTime(15 * time.Minute)
	sqlDB.SetConnMaxLifetime(time.Hour)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := sqlDB.PingContext(pingCtx); err != nil {
		return nil, fmt.Errorf("ping postgres: %w", translate(err))
	}
	return db, nil
}

// Migrate creates or updates the ledger tables.
func Migrate(ctx context.Context, db *gorm.DB) error {
	return db.WithContext(ctx).AutoMigrate(
		&models.User{},
		&models.Campaign{},
		&models.Referral{},
		&models.WatchLog{},
		&models.Payment{},
	)
}

// GormStore is the relational Store.
type GormStore struct {
	DB *gorm.DB
}

func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{DB: db}
}

func (s *GormStore) db(ctx context.Context) *gorm.DB {
	return s.DB.WithContext(ctx)
}

func (s *GormStore) GetUser(ctx context.Context, id string) (*models.User, error) {
	var u models.User
	if err := s.db(ctx).First(&u, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return &u, nil
}

func (s *GormStore) GetUserByReferralCode(ctx context.Context, code string) (*models.User, error) {
	var u models.User
	if err := s.db(ctx).Where("referral_code = ?", code).First(&u).Error; err != nil {
		return nil, translate(err)
	}
	return &u, nil
}

func (s *GormStore) InsertUser(ctx context.Context, u *models.User) error {
	err := s.db(ctx).Create(u).Error
	return s.insertError(ctx, err, &models.User{},
		"id = ? OR email = ? OR referral_code = ?", u.ID, u.Email, u.ReferralCode)
}

// insertError translates a failed Create. Drivers without an error translator
// report constraint violations as plain errors, so the conflict is confirmed
// by looking for a row holding one of the unique values.
func (s *GormStore) insertError(ctx context.Context, err error, model any, query string, args ...any) error {
	if err == nil {
		return nil
	}
	err = translate(err)
	if errors.Is(err, models.ErrDuplicateKey) || errors.Is(err, models.ErrStoreUnavailable) {
		return err
	}
	var n int64
	if cerr := s.db(ctx).Model(model).Where(query, args...).Count(&n).Error; cerr == nil && n > 0 {
		return fmt.Errorf("%w: %w", models.ErrDuplicateKey, err)
	}
	return err
}

func (s *GormStore) ListUsers(ctx context.Context, page Page) ([]models.User, error) {
	page = page.normalize()
	var users []models.User
	err := s.db(ctx).
		Order("created_at DESC").
		Limit(page.Limit).
		Offset(page.Offset).
		Find(&users).Error
	return users, translate(err)
}

func (s *GormStore) ApplyCoinDelta(ctx context.Context, userID string, delta int64) (int64, error) {
	var balance int64
	err := s.db(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.User{}).
			Where("id = ?", userID).
			Update("coins", gorm.Expr("CASE WHEN coins + ? < 0 THEN 0 ELSE coins + ? END", delta, delta))
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return fmt.Errorf("user %s: %w", userID, models.ErrRecordNotFound)
		}
		var u models.User
		if err := tx.Select("coins").First(&u, "id = ?", userID).Error; err != nil {
			return err
		}
		balance = u.Coins
		return nil
	})
	if err != nil {
		return 0, translate(err)
	}
	return balance, nil
}

func (s *GormStore) GetCampaign(ctx context.Context, id string) (*models.Campaign, error) {
	var c models.Campaign
	if err := s.db(ctx).First(&c, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return &c, nil
}

func (s *GormStore) InsertCampaign(ctx context.Context, c *models.Campaign) error {
	return translate(s.db(ctx).Create(c).Error)
}

func (s *GormStore) ListCampaigns(ctx context.Context, f CampaignFilter) ([]models.CampaignListing, error) {
	cols := "campaigns.*, COALESCE(users.name, '') AS owner_name"
	if f.WithOwnerEmail {
		cols += ", COALESCE(users.email, '') AS owner_email"
	}
	q := s.db(ctx).
		Table("campaigns").
		Select(cols).
		Joins("LEFT JOIN users ON users.id = campaigns.user_id")
	if f.OwnerID != "" {
		q = q.Where("campaigns.user_id = ?", f.OwnerID)
	}
	if f.ExcludeOwnerID != "" {
		q = q.Where("campaigns.user_id <> ?", f.ExcludeOwnerID)
	}
	if f.Status != "" {
		q = q.Where("campaigns.status = ?", f.Status)
	}
	var out []models.CampaignListing
	err := q.Order("campaigns.created_at DESC").Scan(&out).Error
	return out, translate(err)
}

func (s *GormStore) AddCampaignProgress(ctx context.Context, id string, intervals int64) (*models.Campaign, bool, error) {
	var (
		campaign  models.Campaign
		completed bool
	)
	err := s.db(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.Campaign{}).
			Where("id = ?", id).
			Update("current_intervals_completed", gorm.Expr("current_intervals_completed + ?", intervals))
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return fmt.Errorf("campaign %s: %w", id, models.ErrRecordNotFound)
		}

		// Only the update that observes status = active performs the transition.
		res = tx.Model(&models.Campaign{}).
			Where("id = ? AND status = ? AND current_intervals_completed >= total_intervals", id, models.CampaignStatusActive).
			Updates(map[string]any{
				"status":       models.CampaignStatusCompleted,
				"completed_at": time.Now().UTC(),
			})
		if res.Error != nil {
			return res.Error
		}
		completed = res.RowsAffected == 1

		return tx.First(&campaign, "id = ?", id).Error
	})
	if err != nil {
		return nil, false, translate(err)
	}
	return &campaign, completed, nil
}

func (s *GormStore) InsertReferral(ctx context.Context, r *models.Referral) error {
	err := s.db(ctx).Create(r).Error
	return s.insertError(ctx, err, &models.Referral{}, "id = ? OR invitee_id = ?", r.ID, r.InviteeID)
}

func (s *GormStore) ListReferrals(ctx context.Context, inviterID string) ([]models.ReferralSummary, error) {
	var out []models.ReferralSummary
	err := s.db(ctx).
		Table("referrals").
		Select("referrals.id, referrals.invitee_id, users.name AS invitee_name, users.created_at AS invitee_joined_at, referrals.bonus_coins, referrals.created_at").
		Joins("JOIN users ON users.id = referrals.invitee_id").
		Where("referrals.inviter_id = ?", inviterID).
		Order("referrals.created_at DESC").
		Scan(&out).Error
	return out, translate(err)
}

func (s *GormStore) InsertWatchLog(ctx context.Context, w *models.WatchLog) error {
	return translate(s.db(ctx).Create(w).Error)
}

func (s *GormStore) ListWatchLogs(ctx context.Context, userID string) ([]models.WatchLogListing, error) {
	var out []models.WatchLogListing
	err := s.db(ctx).
		Table("watch_logs").
		Select("watch_logs.*, COALESCE(campaigns.video_url, '') AS video_url, COALESCE(campaigns.video_length_sec, 0) AS video_length_sec").
		Joins("LEFT JOIN campaigns ON campaigns.id = watch_logs.campaign_id").
		Where("watch_logs.user_id = ?", userID).
		Order("watch_logs.timestamp DESC").
		Scan(&out).Error
	return out, translate(err)
}

func (s *GormStore) InsertPayment(ctx context.Context, p *models.Payment) error {
	return translate(s.db(ctx).Create(p).Error)
}

func (s *GormStore) GetPayment(ctx context.Context, id string) (*models.Payment, error) {
	var p models.Payment
	if err := s.db(ctx).First(&p, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return &p, nil
}

func (s *GormStore) ListPayments(ctx context.Context, status models.PaymentStatus) ([]models.PaymentListing, error) {
	q := s.db(ctx).
		Table("payments").
		Select("payments.*, COALESCE(users.name, '') AS user_name, COALESCE(users.email, '') AS user_email").
		Joins("LEFT JOIN users ON users.id = payments.user_id")
	if status != "" {
		q = q.Where("payments.status = ?", status)
	}
	var out []models.PaymentListing
	err := q.Order("payments.timestamp DESC").Scan(&out).Error
	return out, translate(err)
}

func (s *GormStore) TransitionPayment(ctx context.Context, id string, from, to models.PaymentStatus) (bool, error) {
	res := s.db(ctx).Model(&models.Payment{}).
		Where("id = ? AND status = ?", id, from).
		Updates(map[string]any{
			"status":      to,
			"reviewed_at": time.Now().UTC(),
		})
	if res.Error != nil {
		return false, translate(res.Error)
	}
	if res.RowsAffected == 1 {
		return true, nil
	}
	if _, err := s.GetPayment(ctx, id); err != nil {
		return false, err
	}
	return false, nil
}

func (s *GormStore) Stats(ctx context.Context) (*models.PlatformStats, error) {
	var st models.PlatformStats
	db := s.db(ctx)
	if err := db.Model(&models.User{}).Count(&st.TotalUsers).Error; err != nil {
		return nil, translate(err)
	}
	if err := db.Model(&models.Campaign{}).Count(&st.TotalCampaigns).Error; err != nil {
		return nil, translate(err)
	}
	if err := db.Model(&models.Campaign{}).
		Where("status = ?", models.CampaignStatusActive).
		Count(&st.ActiveCampaigns).Error; err != nil {
		return nil, translate(err)
	}
	if err := db.Model(&models.Payment{}).
		Select("COALESCE(SUM(amount), 0)").
		Where("status = ?", models.PaymentStatusApproved).
		Scan(&st.TotalRevenue).Error; err != nil {
		return nil, translate(err)
	}
	return &st, nil
}

func (s *GormStore) Transaction(ctx context.Context, fn func(tx Store) error) error {
	return translate(s.db(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&GormStore{DB: tx})
	}))
}
