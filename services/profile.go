package services

import (
	"context"
	"errors"
	"log"
	"time"

	"watch-rewards-system/models"
	"watch-rewards-system/redisstore"
	"watch-rewards-system/store"
)

const DefaultProfileTTL = 5 * time.Minute

// ProfileService serves User profiles through a read-through cache. Any
// balance change must call Invalidate.
type ProfileService struct {
	store store.Store
	cache redisstore.Cache
	ttl   time.Duration
}

func NewProfileService(s store.Store, c redisstore.Cache, ttl time.Duration) *ProfileService {
	if c == nil {
		c = redisstore.NopCache{}
	}
	if ttl <= 0 {
		ttl = DefaultProfileTTL
	}
	return &ProfileService{store: s, cache: c, ttl: ttl}
}

func profileKey(userID string) string {
	return "profile:" + userID
}

// GetProfile returns the profile for userID. A cache outage degrades to a
// store read.
func (p *ProfileService) GetProfile(ctx context.Context, userID string) (*models.User, error) {
	var cached models.User
	err := p.cache.Get(ctx, profileKey(userID), &cached)
	if err == nil {
		return &cached, nil
	}
	if !errors.Is(err, redisstore.ErrCacheMiss) {
		log.Printf("⚠️ [PROFILE] cache read for %s failed: %v", userID, err)
	}

	u, err := p.store.GetUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if err := p.cache.Set(ctx, profileKey(userID), u, p.ttl); err != nil {
		log.Printf("⚠️ [PROFILE] cache write for %s failed: %v", userID, err)
	}
	return u, nil
}

func (p *ProfileService) Invalidate(ctx context.Context, userID string) {
	if err := p.cache.Delete(ctx, profileKey(userID)); err != nil {
		log.Printf("⚠️ [PROFILE] cache invalidate for %s failed: %v", userID, err)
	}
}

// IsAdmin reports whether userID's profile carries the admin role.
func (p *ProfileService) IsAdmin(ctx context.Context, userID string) (bool, error) {
	u, err := p.GetProfile(ctx, userID)
	if err != nil {
		return false, err
	}
	return u.IsAdmin(), nil
}

// Referrals lists who userID has referred, newest first.
func (p *ProfileService) Referrals(ctx context.Context, userID string) ([]models.ReferralSummary, error) {
	return p.store.ListReferrals(ctx, userID)
}

// WatchLogs lists userID's watch history, newest first.
func (p *ProfileService) WatchLogs(ctx context.Context, userID string) ([]models.WatchLogListing, error) {
	return p.store.ListWatchLogs(ctx, userID)
}
