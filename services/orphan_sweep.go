package services

import (
	"context"
	"errors"
	"log"
	"time"

	"watch-rewards-system/models"
	"watch-rewards-system/store"
)

const (
	DefaultOrphanGrace = 30 * time.Minute

	sweepPageSize = 100
	sweepMaxPages = 50
)

// OrphanSweeper deletes identities that never got a profile, which happens
// when a signup is abandoned or its compensation fails. Identities younger
// than the grace period are skipped so in-flight signups are left alone.
type OrphanSweeper struct {
	identities IdentityProvider
	store      store.Store
	grace      time.Duration
	now        func() time.Time
}

func NewOrphanSweeper(identities IdentityProvider, s store.Store, grace time.Duration) *OrphanSweeper {
	if grace <= 0 {
		grace = DefaultOrphanGrace
	}
	return &OrphanSweeper{identities: identities, store: s, grace: grace, now: time.Now}
}

// Sweep walks the identity provider's accounts and returns how many orphans
// it deleted. Deleting shifts later pages, so a few orphans may only be
// caught by the next run.
func (o *OrphanSweeper) Sweep(ctx context.Context) (int, error) {
	cutoff := o.now().Add(-o.grace)
	deleted := 0
	for page := 1; page <= sweepMaxPages; page++ {
		identities, err := o.identities.ListIdentities(ctx, page, sweepPageSize)
		if err != nil {
			return deleted, err
		}
		for _, identity := range identities {
			if identity.CreatedAt.IsZero() || identity.CreatedAt.After(cutoff) {
				continue
			}
			_, err := o.store.GetUser(ctx, identity.ID)
			if err == nil {
				continue
			}
			if !errors.Is(err, models.ErrRecordNotFound) {
				return deleted, err
			}
			if err := o.identities.DeleteIdentity(ctx, identity.ID); err != nil {
				log.Printf("⚠️ [SWEEP] could not delete orphan identity %s: %v", identity.ID, err)
				continue
			}
			deleted++
			orphansSweptTotal.Inc()
			log.Printf("🧹 [SWEEP] deleted orphan identity %s (%s)", identity.ID, identity.Email)
		}
		if len(identities) < sweepPageSize {
			break
		}
	}
	return deleted, nil
}
