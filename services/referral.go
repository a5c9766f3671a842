package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math/rand/v2"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"watch-rewards-system/models"
	"watch-rewards-system/store"
)

const (
	referralCodePrefix     = "SG"
	referralFallbackPrefix = "USER"
	referralPrefixRunes    = 3
)

// ReferralEngine generates referral codes and pays inviters.
type ReferralEngine struct {
	store  store.Store
	ledger *CoinLedger
	intn   func(n int) int
}

func NewReferralEngine(s store.Store, ledger *CoinLedger) *ReferralEngine {
	return &ReferralEngine{store: s, ledger: ledger, intn: rand.IntN}
}

// GenerateReferralCode returns SG-<PFX>-<NNNN>, where PFX is the first three
// letters of name in upper case (USER when name is blank) and NNNN is in
// [1000, 9999]. Codes are not unique by construction; the store's unique
// index on referral_code is what enforces it.
func (e *ReferralEngine) GenerateReferralCode(name string) string {
	prefix := referralFallbackPrefix
	if trimmed := strings.TrimSpace(name); trimmed != "" {
		runes := []rune(trimmed)
		if len(runes) > referralPrefixRunes {
			runes = runes[:referralPrefixRunes]
		}
		prefix = cases.Upper(language.Und).String(string(runes))
	}
	return fmt.Sprintf("%s-%s-%d", referralCodePrefix, prefix, 1000+e.intn(9000))
}

// issueBonus records that invitee joined with code and pays the code's owner.
// It returns nil, nil when no user owns code.
func (e *ReferralEngine) issueBonus(ctx context.Context, invitee *models.User, code string) (*models.Referral, error) {
	inviter, err := e.store.GetUserByReferralCode(ctx, code)
	if errors.Is(err, models.ErrRecordNotFound) {
		log.Printf("ℹ️ [REFERRAL] unknown code %q used by %s, ignoring", code, invitee.ID)
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if inviter.ID == invitee.ID {
		log.Printf("ℹ️ [REFERRAL] self-referral by %s ignored", invitee.ID)
		return nil, nil
	}

	ref := &models.Referral{
		ID:         uuid.NewString(),
		InviterID:  inviter.ID,
		InviteeID:  invitee.ID,
		BonusCoins: models.ReferralBonusCoins,
	}
	var entry ledgerEntry
	err = e.store.Transaction(ctx, func(tx store.Store) error {
		if err := tx.InsertReferral(ctx, ref); err != nil {
			return err
		}
		var err error
		entry, err = e.ledger.apply(ctx, tx, inviter.ID, ref.BonusCoins, ReasonReferralBonus)
		return err
	})
	if err != nil {
		return nil, err
	}

	e.ledger.commit(ctx, entry)
	referralBonusesTotal.Inc()
	log.Printf("🎁 [REFERRAL] %s referred %s, +%d coins", inviter.ID, invitee.ID, ref.BonusCoins)
	return ref, nil
}
