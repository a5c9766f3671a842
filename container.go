package main

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/samber/do"
	"gorm.io/gorm"

	"watch-rewards-system/config"
	"watch-rewards-system/handlers"
	"watch-rewards-system/middleware"
	"watch-rewards-system/redisstore"
	"watch-rewards-system/services"
	"watch-rewards-system/store"
	"watch-rewards-system/utils"
	"watch-rewards-system/workers"
)

const signupLockExpiry = 30 * time.Second

// resources collects close funcs for connections opened by providers.
type resources struct {
	mu      sync.Mutex
	closers []namedCloser
}

type namedCloser struct {
	name  string
	close func() error
}

func (r *resources) add(name string, close func() error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closers = append(r.closers, namedCloser{name, close})
}

func (r *resources) closeAll() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := len(r.closers) - 1; i >= 0; i-- {
		if err := r.closers[i].close(); err != nil {
			log.Printf("⚠️ close %s: %v", r.closers[i].name, err)
		}
	}
	r.closers = nil
}

// NewContainer registers every component lazily; nothing connects until a
// command asks for it.
func NewContainer(cfg *config.Config) *do.Injector {
	injector := do.New()
	res := &resources{}
	do.ProvideValue(injector, cfg)
	do.ProvideValue(injector, res)

	do.Provide(injector, func(i *do.Injector) (*gorm.DB, error) {
		db, err := store.Connect(context.Background(), cfg.DatabaseURL, cfg.DBMaxConns)
		if err != nil {
			return nil, err
		}
		sqlDB, err := db.DB()
		if err != nil {
			return nil, err
		}
		res.add("postgres", sqlDB.Close)
		return db, nil
	})

	do.Provide(injector, func(i *do.Injector) (store.Store, error) {
		if cfg.LedgerStore == config.StoreMemory {
			return store.NewMemoryStore(), nil
		}
		db, err := do.Invoke[*gorm.DB](i)
		if err != nil {
			return nil, err
		}
		return store.NewGormStore(db), nil
	})

	// A nil client means Redis is not configured.
	do.Provide(injector, func(i *do.Injector) (*redis.Client, error) {
		if cfg.RedisURL == "" {
			log.Println("⚠️ [REDIS] REDIS_URL not set, using in-process cache and locks")
			return nil, nil
		}
		client, err := redisstore.NewClient(context.Background(), cfg.RedisURL)
		if err != nil {
			return nil, err
		}
		res.add("redis", client.Close)
		return client, nil
	})

	do.Provide(injector, func(i *do.Injector) (redisstore.Cache, error) {
		client := do.MustInvoke[*redis.Client](i)
		if client == nil {
			return redisstore.NopCache{}, nil
		}
		// No local layer: an Invalidate on one replica must reach every other.
		return redisstore.NewCacheRedis(client, false), nil
	})

	do.Provide(injector, func(i *do.Injector) (redisstore.Locker, error) {
		client := do.MustInvoke[*redis.Client](i)
		if client == nil {
			return redisstore.NewLocalLocker(), nil
		}
		return redisstore.NewRedisLocker(client, signupLockExpiry), nil
	})

	do.Provide(injector, func(i *do.Injector) (redisstore.Limiter, error) {
		client := do.MustInvoke[*redis.Client](i)
		if client == nil {
			return nil, nil
		}
		return redisstore.NewRedisLimiter(client), nil
	})

	do.Provide(injector, func(i *do.Injector) (services.IdentityProvider, error) {
		return services.NewAuthServiceClient(cfg.AuthAPIURL, cfg.AuthServiceKey, services.AuthClientOptions{
			Timeout:    cfg.AuthTimeout,
			RetryCount: cfg.AuthRetryCount,
		}), nil
	})

	do.Provide(injector, func(i *do.Injector) (*middleware.TokenVerifier, error) {
		return middleware.NewTokenVerifier(cfg.AuthJWTSecret), nil
	})

	do.Provide(injector, func(i *do.Injector) (*services.EventHub, error) {
		return services.NewEventHub(), nil
	})

	do.Provide(injector, func(i *do.Injector) (*services.ProfileService, error) {
		return services.NewProfileService(
			do.MustInvoke[store.Store](i),
			do.MustInvoke[redisstore.Cache](i),
			cfg.ProfileCacheTTL,
		), nil
	})

	// Observers run in order: the cached profile is dropped before open
	// streams are told to reload it.
	do.Provide(injector, func(i *do.Injector) (*services.CoinLedger, error) {
		profiles := do.MustInvoke[*services.ProfileService](i)
		hub := do.MustInvoke[*services.EventHub](i)
		ledger := services.NewCoinLedger(do.MustInvoke[store.Store](i))
		ledger.OnBalanceChanged(func(ctx context.Context, userID string, balance int64) {
			profiles.Invalidate(ctx, userID)
		})
		ledger.OnBalanceChanged(func(_ context.Context, userID string, balance int64) {
			hub.Publish(services.Event{Kind: services.EventBalanceChanged, UserID: userID, Balance: balance})
		})
		return ledger, nil
	})

	do.Provide(injector, func(i *do.Injector) (*services.ReferralEngine, error) {
		return services.NewReferralEngine(do.MustInvoke[store.Store](i), do.MustInvoke[*services.CoinLedger](i)), nil
	})

	do.Provide(injector, func(i *do.Injector) (*services.SignupService, error) {
		return services.NewSignupService(
			do.MustInvoke[services.IdentityProvider](i),
			do.MustInvoke[store.Store](i),
			do.MustInvoke[*services.ReferralEngine](i),
			do.MustInvoke[redisstore.Locker](i),
		), nil
	})

	do.Provide(injector, func(i *do.Injector) (*services.AuthService, error) {
		return services.NewAuthService(
			do.MustInvoke[services.IdentityProvider](i),
			do.MustInvoke[*services.ProfileService](i),
			do.MustInvoke[*services.EventHub](i),
		), nil
	})

	do.Provide(injector, func(i *do.Injector) (*services.CampaignService, error) {
		return services.NewCampaignService(
			do.MustInvoke[store.Store](i),
			do.MustInvoke[*services.CoinLedger](i),
			do.MustInvoke[*services.EventHub](i),
			cfg.WatchCoinsPerInterval,
		), nil
	})

	do.Provide(injector, func(i *do.Injector) (*services.PaymentService, error) {
		return services.NewPaymentService(do.MustInvoke[store.Store](i), do.MustInvoke[*services.CoinLedger](i)), nil
	})

	do.Provide(injector, func(i *do.Injector) (*services.AdminService, error) {
		return services.NewAdminService(do.MustInvoke[store.Store](i), do.MustInvoke[redisstore.Cache](i)), nil
	})

	do.Provide(injector, func(i *do.Injector) (*services.OrphanSweeper, error) {
		return services.NewOrphanSweeper(
			do.MustInvoke[services.IdentityProvider](i),
			do.MustInvoke[store.Store](i),
			cfg.OrphanGracePeriod,
		), nil
	})

	do.Provide(injector, func(i *do.Injector) (handlers.VideoStorage, error) {
		if !cfg.R2Enabled() {
			return utils.NewDiskStorage(cfg.UploadDir, "/uploads")
		}
		return utils.NewR2Storage(context.Background(), utils.R2Config{
			AccountID:       cfg.R2AccountID,
			AccessKeyID:     cfg.R2AccessKeyID,
			AccessKeySecret: cfg.R2AccessKeySecret,
			Bucket:          cfg.R2Bucket,
			CDNBaseURL:      cfg.CDNBaseURL,
		})
	})

	do.Provide(injector, func(i *do.Injector) (*workers.Scheduler, error) {
		return workers.NewScheduler(do.MustInvoke[*services.OrphanSweeper](i), cfg.OrphanSweepInterval)
	})

	return injector
}
