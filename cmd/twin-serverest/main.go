// twin-serverest is a local twin of the ServeRest e-commerce API. It serves
// the same routes, messages, and status codes as https://serverest.dev, plus
// the /admin control plane for resetting, seeding, and fault injection.
//
// Default port: 3000
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/wondertwin-ai/twin-serverest/internal/persist"
	"github.com/wondertwin-ai/twin-serverest/internal/twin/api"
	"github.com/wondertwin-ai/twin-serverest/internal/twin/store"
	"github.com/wondertwin-ai/twin-serverest/pkg/admin"
	"github.com/wondertwin-ai/twin-serverest/pkg/twincore"
)

func main() {
	cfg, err := twincore.ParseFlags("twin-serverest", os.Args[1:])
	if err != nil {
		log.Fatalf("invalid flags: %v", err)
	}
	if cfg.Port == 0 {
		cfg.Port = 3000
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		log.Fatalf("twin-serverest: %v", err)
	}
}

func run(ctx context.Context, cfg *twincore.Config) error {
	twin := twincore.New(cfg)
	memStore := store.New()
	tokens := api.NewTokenManager(cfg.JWTSecret, cfg.TokenTTL, memStore.Clock.Now)

	apiHandler := api.NewHandler(memStore, twin.Middleware(), tokens)
	apiHandler.Routes(twin.Router)

	adminHandler := admin.NewHandler(memStore, twin.Middleware(), memStore.Clock)
	adminHandler.SetConfigProvider(twin)
	adminHandler.Routes(twin.Router)

	var binding *persist.Binding
	if cfg.DataFile != "" {
		db, err := persist.Open(ctx, cfg.DataFile)
		if err != nil {
			return err
		}
		defer db.Close()
		binding = db.Bind(cfg.Name, memStore)
		adminHandler.SetPersister(binding)
		restored, err := binding.Restore(ctx)
		if err != nil {
			return err
		}
		if restored {
			twin.Logger.Info("restored state", "file", cfg.DataFile)
		}
	}

	if cfg.SeedFile != "" {
		data, err := store.ReadSeed(cfg.SeedFile)
		if err != nil {
			return err
		}
		if err := memStore.LoadState(data); err != nil {
			return fmt.Errorf("failed to load seed data: %w", err)
		}
		twin.Logger.Info("loaded seed data", "file", cfg.SeedFile)
	}

	twin.Logger.Info("twin-serverest ready",
		"port", cfg.Port,
		"token_ttl", cfg.TokenTTL,
		"users", memStore.Users.Count(),
		"products", memStore.Products.Count(),
	)

	serveErr := twin.Serve(ctx)
	if binding != nil {
		if err := binding.Persist(); err != nil {
			twin.Logger.Error("failed to persist state", "error", err)
		} else {
			twin.Logger.Info("persisted state", "file", cfg.DataFile)
		}
	}
	return serveErr
}
