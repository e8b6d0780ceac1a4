package cli

import (
	"fmt"

	"github.com/urfave/cli/v2"

	appconfig "github.com/lewisedginton/attendance_bot/internal/config"
	"github.com/lewisedginton/attendance_bot/internal/server"
	"github.com/lewisedginton/attendance_bot/pkg/logger"
)

func loadConfig(ctx *cli.Context) (*appconfig.AppConfig, error) {
	cfg, err := appconfig.Load(ctx.String("config-file"))
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	if ctx.IsSet("log-level") {
		cfg.Common.LogLevel = ctx.String("log-level")
	}
	return cfg, nil
}

// getLogger retrieves the logger from the CLI context metadata
func getLogger(ctx *cli.Context) logger.Logger {
	if ctx.App.Metadata != nil {
		if log, ok := ctx.App.Metadata["logger"].(logger.Logger); ok {
			return log
		}
	}
	return logger.NewLogger(logger.Config{
		Level:   logger.InfoLevel,
		Format:  "json",
		Service: appName,
	})
}

func getConfig(ctx *cli.Context) (*appconfig.AppConfig, error) {
	if ctx.App.Metadata != nil {
		if cfg, ok := ctx.App.Metadata["config"].(*appconfig.AppConfig); ok {
			return cfg, nil
		}
	}
	return loadConfig(ctx)
}

// withApp builds the pipeline for a one-shot command and closes it afterwards.
func withApp(ctx *cli.Context, fn func(app *server.App) error) error {
	cfg, err := getConfig(ctx)
	if err != nil {
		return err
	}
	log := getLogger(ctx)

	app, err := server.NewApp(ctx.Context, cfg, log, server.AppOptions{})
	if err != nil {
		return err
	}
	defer func() {
		if err := app.Close(); err != nil {
			log.Warn("Failed to close attendance store", logger.ErrorField(err))
		}
	}()
	return fn(app)
}
