package cli

import (
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/lewisedginton/attendance_bot/internal/persistence"
	"github.com/lewisedginton/attendance_bot/pkg/logger"
)

// MigrateCommand applies pending schema migrations and exits.
func MigrateCommand() *cli.Command {
	return &cli.Command{
		Name:   "migrate",
		Usage:  "Apply pending database migrations",
		Action: migrateAction,
	}
}

func migrateAction(ctx *cli.Context) error {
	log := getLogger(ctx)
	cfg, err := getConfig(ctx)
	if err != nil {
		return err
	}

	store, err := persistence.Open(ctx.Context, cfg.Database, log, true)
	if err != nil {
		log.Error("Migration failed", logger.ErrorField(err))
		return fmt.Errorf("migration failed: %w", err)
	}
	if err := store.Close(); err != nil {
		log.Warn("Failed to close attendance store", logger.ErrorField(err))
	}

	log.Info("Database schema is up to date", logger.StringField("driver", cfg.Database.Driver))
	fmt.Fprintln(ctx.App.Writer, "Database schema is up to date")
	return nil
}
