// Package cli defines the attendance-bot command line.
package cli

import (
	"io"

	"github.com/urfave/cli/v2"
)

const appName = "attendance-bot"

// NewApp returns the command line application. Output from one-shot commands
// goes to out.
func NewApp(version string, out io.Writer) *cli.App {
	return &cli.App{
		Name:      appName,
		Usage:     "Track team attendance from Slack messages",
		Version:   version,
		Writer:    out,
		ErrWriter: out,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "Log level (debug, info, warn, error); overrides the config file",
				EnvVars: []string{"LOG_LEVEL"},
			},
			&cli.StringFlag{
				Name:    "config-file",
				Value:   "",
				Usage:   "Path to configuration file",
				EnvVars: []string{"CONFIG_FILE"},
			},
		},
		// A broken config is reported by the command that needs it, so help
		// and version keep working.
		Before: func(ctx *cli.Context) error {
			cfg, err := loadConfig(ctx)
			if err != nil {
				return nil
			}
			ctx.App.Metadata = map[string]interface{}{
				"config": cfg,
				"logger": cfg.NewLogger(),
			}
			return nil
		},
		Commands: []*cli.Command{
			ServeCommand(),
			MigrateCommand(),
			ConfigCommand(),
			ClassifyCommand(),
			QueryCommand(),
			ExportCommand(),
		},
	}
}
