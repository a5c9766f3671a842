package services

import (
	"context"
	"time"

	"watch-rewards-system/models"
	"watch-rewards-system/redisstore"
	"watch-rewards-system/store"
)

const statsTTL = 30 * time.Second

type AdminService struct {
	store store.Store
	cache redisstore.Cache
}

func NewAdminService(s store.Store, c redisstore.Cache) *AdminService {
	if c == nil {
		c = redisstore.NopCache{}
	}
	return &AdminService{store: s, cache: c}
}

func (a *AdminService) ListUsers(ctx context.Context, page store.Page) ([]models.User, error) {
	return a.store.ListUsers(ctx, page)
}

// PlatformStats summarizes users, campaigns and approved revenue. Results are
// cached for statsTTL.
func (a *AdminService) PlatformStats(ctx context.Context) (*models.PlatformStats, error) {
	return redisstore.UseCache(ctx, a.cache, "stats:platform", statsTTL, func() (*models.PlatformStats, error) {
		return a.store.Stats(ctx)
	})
}
