package main

import (
	"context"
	"fmt"

	"github.com/charmbracelet/log"

	"node.town/autolingo/config"
	"node.town/autolingo/store"
)

// openStore opens the configured backend and loads persisted settings into
// viper. The returned store owns the backend.
func openStore(ctx context.Context, app config.App, logger *log.Logger) (*store.Store, *config.Config, error) {
	backend, err := store.Open(ctx, app.StoreDriver, app.StoreDSN())
	if err != nil {
		return nil, nil, fmt.Errorf("open %s store: %w", app.StoreDriver, err)
	}

	cfg := config.New(backend)
	if err := cfg.Load(ctx); err != nil {
		logger.Warn("could not load saved settings", "error", err)
	}

	return store.New(backend, logger), cfg, nil
}
