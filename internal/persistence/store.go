package persistence

import (
	"context"
	"fmt"

	"github.com/lewisedginton/attendance_bot/internal/attendance"
	"github.com/lewisedginton/attendance_bot/internal/persistence/sqlite"
	"github.com/lewisedginton/attendance_bot/pkg/config"
	"github.com/lewisedginton/attendance_bot/pkg/logger"
)

// Open returns the store selected by cfg.Driver. With migrate set, pending
// PostgreSQL migrations are applied before returning; the SQLite schema is
// always applied on open.
func Open(ctx context.Context, cfg config.DatabaseConfig, log logger.Logger, migrate bool) (attendance.TxStore, error) {
	switch cfg.Driver {
	case config.DriverSQLite:
		store, err := sqlite.Open(ctx, cfg.SQLitePath, log)
		if err != nil {
			return nil, err
		}
		return store, nil
	case config.DriverPostgres, "":
		store, err := NewPostgresStore(ctx, cfg, log)
		if err != nil {
			return nil, err
		}
		if migrate {
			if err := Migrate(store, log); err != nil {
				_ = store.Close()
				return nil, err
			}
		}
		return store, nil
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}
}

// Migrate applies pending migrations through store's pool.
func Migrate(store *PostgresStore, log logger.Logger) error {
	mm := NewMigrationManager(store.Pool(), log)
	defer func() {
		_ = mm.Close()
	}()
	return mm.RunMigrations()
}
