package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/samber/do"
	"github.com/urfave/cli/v2"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	"watch-rewards-system/config"
	"watch-rewards-system/handlers"
	"watch-rewards-system/middleware"
	"watch-rewards-system/redisstore"
	"watch-rewards-system/services"
	"watch-rewards-system/store"
	"watch-rewards-system/workers"
)

const shutdownTimeout = 15 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal("❌ invalid configuration: ", err)
	}
	container := NewContainer(cfg)

	app := &cli.App{
		Name:  "watch-rewards",
		Usage: "watch videos, earn coins, refer friends",
		Commands: []*cli.Command{
			commandServer(container),
			commandMigrate(container),
			commandSweepOrphans(container),
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func commandServer(container *do.Injector) *cli.Command {
	return &cli.Command{
		Name:  "server",
		Usage: "start the HTTP API and the scheduled jobs",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "addr",
				Usage: "listen address (overrides APP_ADDR)",
			},
			&cli.BoolFlag{
				Name:  "migrate",
				Usage: "run migrations before serving",
			},
		},
		Action: func(c *cli.Context) error {
			cfg := do.MustInvoke[*config.Config](container)
			addr := cfg.Addr
			if c.String("addr") != "" {
				addr = c.String("addr")
			}
			if c.Bool("migrate") {
				if err := migrate(c.Context, container); err != nil {
					return err
				}
			}

			app, err := newHTTPApp(container)
			if err != nil {
				return err
			}
			scheduler, err := do.Invoke[*workers.Scheduler](container)
			if err != nil {
				return fmt.Errorf("scheduler: %w", err)
			}

			ctx, stop := signal.NotifyContext(c.Context, syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			errWg, errCtx := errgroup.WithContext(ctx)

			errWg.Go(func() error {
				log.Printf("🚀 Server running on %s (store=%s)", addr, cfg.LedgerStore)
				return app.Listen(addr)
			})

			errWg.Go(func() error {
				scheduler.Start()
				<-errCtx.Done()
				log.Println("🛑 Shutting down…")
				if err := scheduler.Stop(); err != nil {
					log.Printf("⚠️ scheduler shutdown: %v", err)
				}
				err := app.ShutdownWithTimeout(shutdownTimeout)
				closeResources(container)
				return err
			})

			return errWg.Wait()
		},
	}
}

func commandMigrate(container *do.Injector) *cli.Command {
	return &cli.Command{
		Name:  "migrate",
		Usage: "create or update the ledger tables",
		Action: func(c *cli.Context) error {
			defer closeResources(container)
			return migrate(c.Context, container)
		},
	}
}

func commandSweepOrphans(container *do.Injector) *cli.Command {
	return &cli.Command{
		Name:  "sweep-orphans",
		Usage: "delete auth identities that never got a profile",
		Action: func(c *cli.Context) error {
			defer closeResources(container)
			sweeper, err := do.Invoke[*services.OrphanSweeper](container)
			if err != nil {
				return err
			}
			deleted, err := sweeper.Sweep(c.Context)
			log.Printf("🧹 removed %d orphan identities", deleted)
			return err
		},
	}
}

func migrate(ctx context.Context, container *do.Injector) error {
	cfg := do.MustInvoke[*config.Config](container)
	if cfg.LedgerStore != config.StorePostgres {
		log.Printf("⚠️ nothing to migrate for LEDGER_STORE=%s", cfg.LedgerStore)
		return nil
	}
	db, err := do.Invoke[*gorm.DB](container)
	if err != nil {
		return err
	}
	if err := store.Migrate(ctx, db); err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}
	log.Println("✅ Database migrated")
	return nil
}

func newHTTPApp(container *do.Injector) (*fiber.App, error) {
	cfg := do.MustInvoke[*config.Config](container)

	verifier := do.MustInvoke[*middleware.TokenVerifier](container)
	profiles, err := do.Invoke[*services.ProfileService](container)
	if err != nil {
		return nil, err
	}
	limiter, err := do.Invoke[redisstore.Limiter](container)
	if err != nil {
		return nil, err
	}
	videos, err := do.Invoke[handlers.VideoStorage](container)
	if err != nil {
		log.Printf("⚠️ video storage unavailable, uploads are disabled: %v", err)
		videos = nil
	}

	app := fiber.New(fiber.Config{
		BodyLimit: handlers.MaxVideoUploadBytes + 1<<20,
		AppName:   "watch-rewards",
	})
	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins:     strings.Join(cfg.AllowedOrigins, ","),
		AllowMethods:     "GET,POST,PUT,DELETE,OPTIONS,PATCH,HEAD",
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization, X-Requested-With, X-Request-ID, Cache-Control",
		ExposeHeaders:    "Content-Length, Content-Type, Retry-After",
		AllowCredentials: true,
		MaxAge:           86400,
	}))

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	hub := do.MustInvoke[*services.EventHub](container)
	handlers.SetupAuthRoutes(app, handlers.AuthRoutesConfig{
		Signup:    do.MustInvoke[*services.SignupService](container),
		Auth:      do.MustInvoke[*services.AuthService](container),
		Verifier:  verifier,
		Limiter:   limiter,
		PerMinute: cfg.AuthRateLimitPerMinute,
	})
	campaigns := do.MustInvoke[*services.CampaignService](container)
	payments := do.MustInvoke[*services.PaymentService](container)
	handlers.SetupProfileRoutes(app, verifier, profiles, campaigns, handlers.NewEventStreamer(profiles, hub))
	handlers.SetupCampaignRoutes(app, verifier, campaigns, videos)
	handlers.SetupPaymentRoutes(app, verifier, payments)
	handlers.SetupAdminRoutes(app, handlers.AdminRoutesConfig{
		Verifier:  verifier,
		Profiles:  profiles,
		Admin:     do.MustInvoke[*services.AdminService](container),
		Ledger:    do.MustInvoke[*services.CoinLedger](container),
		Campaigns: campaigns,
		Payments:  payments,
	})
	handlers.SetupInternalRoutes(app, cfg.InternalServiceToken, do.MustInvoke[*services.OrphanSweeper](container))

	if !cfg.R2Enabled() {
		app.Static("/uploads", cfg.UploadDir)
	}
	return app, nil
}

// closeResources releases whatever connections the container opened.
func closeResources(container *do.Injector) {
	do.MustInvoke[*resources](container).closeAll()
}
