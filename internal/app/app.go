// Package app wires configuration to a store and the session service.
package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/ivanoskov/wallet_sessions/internal/config"
	"github.com/ivanoskov/wallet_sessions/internal/logging"
	"github.com/ivanoskov/wallet_sessions/internal/repository"
	"github.com/ivanoskov/wallet_sessions/internal/service"
)

// OpenStore connects the backend selected by cfg. The returned cleanup
// releases its connections and is never nil.
func OpenStore(ctx context.Context, cfg *config.Config) (repository.Store, func(), error) {
	switch cfg.StoreBackend {
	case config.BackendSupabase:
		store, err := repository.NewSupabaseStore(cfg.SupabaseURL, cfg.SupabaseKey)
		if err != nil {
			return nil, func() {}, err
		}
		return store, func() {}, nil

	case config.BackendPostgres:
		store, err := repository.NewPostgresStore(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, func() {}, err
		}
		return store, store.Close, nil

	case config.BackendMemory:
		slog.Warn("Using in-memory store, data is lost on exit")
		return repository.NewMemoryStore(), func() {}, nil

	default:
		return nil, func() {}, fmt.Errorf("unknown store backend %q", cfg.StoreBackend)
	}
}

// Bootstrap loads configuration, sets up logging and opens the session service.
func Bootstrap(ctx context.Context) (*config.Config, *service.SessionService, func(), error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, nil, func() {}, err
	}
	logging.Setup(cfg.LogLevel)

	store, cleanup, err := OpenStore(ctx, cfg)
	if err != nil {
		return nil, nil, cleanup, err
	}

	slog.Info("Store opened", "backend", cfg.StoreBackend)
	return cfg, service.NewSessionService(store), cleanup, nil
}
