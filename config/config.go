// config/config.go
package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	StorePostgres = "postgres"
	StoreMemory   = "memory"
)

type Config struct {
	Addr           string
	AllowedOrigins []string

	LedgerStore string
	DatabaseURL string
	DBMaxConns  int

	AuthAPIURL     string
	AuthServiceKey string
	AuthJWTSecret  string
	AuthTimeout    time.Duration
	AuthRetryCount int

	RedisURL               string
	ProfileCacheTTL        time.Duration
	AuthRateLimitPerMinute int

	R2AccountID       string
	R2AccessKeyID     string
	R2AccessKeySecret string
	R2Bucket          string
	CDNBaseURL        string
	UploadDir         string

	WatchCoinsPerInterval int64
	OrphanSweepInterval   time.Duration
	OrphanGracePeriod     time.Duration

	InternalServiceToken string
}

// R2Enabled reports whether every R2 key is set.
func (c *Config) R2Enabled() bool {
	return c.R2AccountID != "" && c.R2AccessKeyID != "" && c.R2AccessKeySecret != "" && c.R2Bucket != ""
}

// Load reads .env files when present, then the process environment.
func Load(files ...string) (*Config, error) {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err == nil {
			log.Printf("⚙️ [CONFIG] loaded %s", f)
		}
	}
	return FromEnv(os.Getenv)
}

// FromEnv builds a Config from getenv, applying defaults and validating.
func FromEnv(getenv func(string) string) (*Config, error) {
	r := reader{getenv: getenv}
	c := &Config{
		Addr:           r.str("APP_ADDR", ":5200"),
		AllowedOrigins: r.list("ALLOWED_ORIGINS", "http://localhost:3000"),

		LedgerStore: strings.ToLower(r.str("LEDGER_STORE", StorePostgres)),
		DatabaseURL: r.str("DATABASE_URL", ""),
		DBMaxConns:  r.int("DB_MAX_CONNS", 10),

		AuthAPIURL:     r.str("AUTH_API_URL", ""),
		AuthServiceKey: r.str("AUTH_SERVICE_KEY", ""),
		AuthJWTSecret:  r.str("AUTH_JWT_SECRET", ""),
		AuthTimeout:    r.duration("AUTH_TIMEOUT", 10*time.Second),
		AuthRetryCount: r.int("AUTH_RETRY_COUNT", 2),

		RedisURL:               r.str("REDIS_URL", ""),
		ProfileCacheTTL:        r.duration("PROFILE_CACHE_TTL", time.Minute),
		AuthRateLimitPerMinute: r.int("AUTH_RATE_LIMIT_PER_MINUTE", 20),

		R2AccountID:       r.str("CLOUDFLARE_ACCOUNT_ID", ""),
		R2AccessKeyID:     r.str("R2_ACCESS_KEY_ID", ""),
		R2AccessKeySecret: r.str("R2_ACCESS_KEY_SECRET", ""),
		R2Bucket:          r.str("R2_BUCKET_NAME", ""),
		CDNBaseURL:        r.str("CDN_BASE_URL", ""),
		UploadDir:         r.str("UPLOAD_DIR", "./uploads"),

		WatchCoinsPerInterval: int64(r.int("WATCH_COINS_PER_INTERVAL", 1)),
		OrphanSweepInterval:   r.duration("ORPHAN_SWEEP_INTERVAL", 15*time.Minute),
		OrphanGracePeriod:     r.duration("ORPHAN_GRACE_PERIOD", 30*time.Minute),

		InternalServiceToken: r.str("INTERNAL_SERVICE_TOKEN", ""),
	}
	if err := errors.Join(r.errs...); err != nil {
		return nil, err
	}
	return c, c.validate()
}

func (c *Config) validate() error {
	var errs []error
	required := func(key, v string) {
		if v == "" {
			errs = append(errs, fmt.Errorf("%s environment variable not set", key))
		}
	}

	switch c.LedgerStore {
	case StorePostgres:
		required("DATABASE_URL", c.DatabaseURL)
	case StoreMemory:
		log.Println("⚠️ [CONFIG] LEDGER_STORE=memory, data is lost on restart")
	default:
		errs = append(errs, fmt.Errorf("LEDGER_STORE must be %q or %q, got %q", StorePostgres, StoreMemory, c.LedgerStore))
	}
	required("AUTH_API_URL", c.AuthAPIURL)
	required("AUTH_SERVICE_KEY", c.AuthServiceKey)
	required("AUTH_JWT_SECRET", c.AuthJWTSecret)

	if c.WatchCoinsPerInterval < 0 {
		errs = append(errs, errors.New("WATCH_COINS_PER_INTERVAL must not be negative"))
	}
	if c.OrphanSweepInterval <= 0 {
		errs = append(errs, errors.New("ORPHAN_SWEEP_INTERVAL must be positive"))
	}
	if c.AuthRetryCount < 0 || c.DBMaxConns <= 0 {
		errs = append(errs, errors.New("AUTH_RETRY_COUNT and DB_MAX_CONNS must be positive"))
	}
	if c.InternalServiceToken == "" {
		log.Println("⚠️ [CONFIG] INTERNAL_SERVICE_TOKEN not set, /internal routes are closed")
	}
	if !c.R2Enabled() {
		log.Printf("⚠️ [CONFIG] R2 not configured, videos are stored under %s", c.UploadDir)
	}
	return errors.Join(errs...)
}

type reader struct {
	getenv func(string) string
	errs   []error
}

func (r *reader) str(key, def string) string {
	if v := strings.TrimSpace(r.getenv(key)); v != "" {
		return v
	}
	return def
}

func (r *reader) list(key, def string) []string {
	var out []string
	for _, v := range strings.Split(r.str(key, def), ",") {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}

func (r *reader) int(key string, def int) int {
	v := r.str(key, "")
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		r.errs = append(r.errs, fmt.Errorf("%s: %q is not an integer", key, v))
		return def
	}
	return n
}

func (r *reader) duration(key string, def time.Duration) time.Duration {
	v := r.str(key, "")
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		r.errs = append(r.errs, fmt.Errorf("%s: %q is not a duration", key, v))
		return def
	}
	return d
}
