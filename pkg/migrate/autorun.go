package migrate

import (
	"context"
	"fmt"

	"github.com/angelmondragon/marketcart/pkg/config"
	"github.com/angelmondragon/marketcart/pkg/db"
	"github.com/angelmondragon/marketcart/pkg/db/models"
	"github.com/angelmondragon/marketcart/pkg/logger"
)

// MaybeRunDev applies the embedded migrations in dev when AutoMigrate is set.
// sqlite databases are built from the models instead.
func MaybeRunDev(ctx context.Context, cfg *config.Config, logg *logger.Logger, client *db.Client) error {
	if cfg.FeatureFlags.UseSQLite {
		logg.Info(ctx, "auto-migrating sqlite schema from models")
		if err := client.AutoMigrate(ctx, models.All()...); err != nil {
			return fmt.Errorf("sqlite auto-migrate: %w", err)
		}
		return nil
	}
	if !cfg.App.IsDev() || !cfg.FeatureFlags.AutoMigrate {
		return nil
	}

	sqlDB, err := client.DB().DB()
	if err != nil {
		return fmt.Errorf("extracting sql.DB: %w", err)
	}

	runner, err := NewRunner(sqlDB, nil)
	if err != nil {
		return err
	}
	defer runner.Close()

	ctx = logg.WithFields(ctx, map[string]any{"env": cfg.App.Env})
	applied, err := runner.Up(ctx)
	if err != nil {
		return err
	}
	for _, a := range applied {
		logg.Info(logg.WithFields(ctx, map[string]any{"version": a.Version, "took_ms": a.Took.Milliseconds()}), "migration applied")
	}
	logg.Info(logg.WithField(ctx, "applied", len(applied)), "schema up to date")
	return nil
}
