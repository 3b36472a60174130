package roster

import (
	"context"
	"fmt"

	"fleet-tracker/internal/common/log"
	"fleet-tracker/internal/general/config"
	"fleet-tracker/internal/general/postgres"
)

// Open returns the provider selected by cfg.Roster.Source and a release
// func for whatever it holds.
func Open(ctx context.Context, cfg *config.Config, logger *log.Logger) (Provider, func(), error) {
	if cfg.Roster.Source != config.RosterPostgres {
		logger.Info(ctx, "roster_selected", "Using built-in demo roster", map[string]any{"source": config.RosterStatic})
		return DemoFleet(), func() {}, nil
	}

	pool, err := postgres.NewPool(ctx, cfg.Database, logger)
	if err != nil {
		return nil, nil, fmt.Errorf("open roster: %w", err)
	}
	repo := postgres.NewUnitRepo(pool)
	if err := repo.EnsureSchema(ctx); err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("open roster: %w", err)
	}
	logger.Info(ctx, "roster_selected", "Using PostgreSQL roster", map[string]any{"source": config.RosterPostgres})
	return repo, pool.Close, nil
}
