package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/mail"
	"strings"
	"time"

	"watch-rewards-system/models"
	"watch-rewards-system/redisstore"
	"watch-rewards-system/store"
)

const (
	SignupBonusCoins int64 = 30

	maxReferralCodeAttempts = 5
	compensationTimeout     = 10 * time.Second
)

type SignUpInput struct {
	Email        string
	Password     string
	Name         string
	ReferralCode string
}

// SignupService creates an identity and its profile as one unit: when the
// profile cannot be stored the identity is deleted again.
type SignupService struct {
	identities IdentityProvider
	store      store.Store
	referrals  *ReferralEngine
	locker     redisstore.Locker
}

func NewSignupService(identities IdentityProvider, s store.Store, referrals *ReferralEngine, locker redisstore.Locker) *SignupService {
	if locker == nil {
		locker = redisstore.NewLocalLocker()
	}
	return &SignupService{identities: identities, store: s, referrals: referrals, locker: locker}
}

// SignUp registers a new user with the signup bonus and, when ReferralCode
// names an existing user, pays that user the referral bonus.
//
// If the referral step fails the account already exists: the new user is
// returned together with the error.
func (s *SignupService) SignUp(ctx context.Context, in SignUpInput) (*models.User, error) {
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	in.Name = strings.TrimSpace(in.Name)
	in.ReferralCode = strings.TrimSpace(in.ReferralCode)

	if in.Email == "" || in.Password == "" {
		return nil, fmt.Errorf("%w: email and password are required", models.ErrInvalidInput)
	}
	if _, err := mail.ParseAddress(in.Email); err != nil {
		return nil, fmt.Errorf("%w: malformed email", models.ErrInvalidInput)
	}

	release, err := s.locker.Obtain(ctx, "lock:signup:"+in.Email)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", models.ErrStoreUnavailable, err)
	}
	defer release()

	identity, err := s.identities.CreateIdentity(ctx, in.Email, in.Password, map[string]any{"name": in.Name})
	if err != nil {
		signupsTotal.WithLabelValues("identity_failed").Inc()
		if errors.Is(err, models.ErrIdentityCreationFailed) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %w", models.ErrIdentityCreationFailed, err)
	}

	user, err := s.insertProfile(ctx, identity, in)
	if err != nil {
		signupsTotal.WithLabelValues("profile_failed").Inc()
		log.Printf("❌ [SIGNUP] profile insert for %s failed: %v", identity.ID, err)
		s.compensate(ctx, identity)
		return nil, fmt.Errorf("%w: %w", models.ErrProfileInsertFailed, err)
	}

	signupsTotal.WithLabelValues("created").Inc()
	coinsIssuedTotal.WithLabelValues("signup_bonus").Add(float64(SignupBonusCoins))
	log.Printf("✅ [SIGNUP] user %s created with %d coins, code %s", user.ID, user.Coins, user.ReferralCode)

	if in.ReferralCode == "" {
		return user, nil
	}
	if _, err := s.referrals.issueBonus(ctx, user, in.ReferralCode); err != nil {
		log.Printf("❌ [SIGNUP] referral bonus for %s (code %s) failed: %v", user.ID, in.ReferralCode, err)
		return user, fmt.Errorf("referral bonus: %w", err)
	}
	return user, nil
}

// insertProfile stores the User, regenerating the referral code when it
// collides with an existing one.
func (s *SignupService) insertProfile(ctx context.Context, identity *Identity, in SignUpInput) (*models.User, error) {
	var referredBy *string
	if in.ReferralCode != "" {
		code := in.ReferralCode
		referredBy = &code
	}

	var lastErr error
	for attempt := 1; attempt <= maxReferralCodeAttempts; attempt++ {
		code := s.referrals.GenerateReferralCode(in.Name)
		if code == in.ReferralCode {
			lastErr = fmt.Errorf("referral code %s: %w", code, models.ErrDuplicateKey)
			continue
		}

		user := &models.User{
			ID:           identity.ID,
			Name:         in.Name,
			Email:        in.Email,
			Coins:        SignupBonusCoins,
			ReferralCode: code,
			ReferredBy:   referredBy,
			Role:         models.RoleMember,
		}
		err := s.store.InsertUser(ctx, user)
		if err == nil {
			return user, nil
		}
		if !errors.Is(err, models.ErrDuplicateKey) || !s.codeTaken(ctx, code) {
			return nil, err
		}
		log.Printf("🔁 [SIGNUP] referral code %s taken, regenerating (attempt %d/%d)", code, attempt, maxReferralCodeAttempts)
		lastErr = err
	}
	return nil, fmt.Errorf("no free referral code after %d attempts: %w", maxReferralCodeAttempts, lastErr)
}

func (s *SignupService) codeTaken(ctx context.Context, code string) bool {
	_, err := s.store.GetUserByReferralCode(ctx, code)
	return err == nil
}

// compensate deletes an identity whose profile could not be stored. It runs
// even if the caller has gone away; anything it misses is left to the orphan
// sweep.
func (s *SignupService) compensate(ctx context.Context, identity *Identity) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), compensationTimeout)
	defer cancel()

	if err := s.identities.DeleteIdentity(ctx, identity.ID); err != nil {
		compensationsTotal.WithLabelValues("failed").Inc()
		log.Printf("❌ [SIGNUP] could not delete identity %s after failed profile insert: %v", identity.ID, err)
		return
	}
	compensationsTotal.WithLabelValues("deleted").Inc()
	log.Printf("↩️ [SIGNUP] identity %s deleted after failed profile insert", identity.ID)
}
