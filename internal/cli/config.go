package cli

import (
	"fmt"

	"github.com/urfave/cli/v2"
	"gopkg.in/yaml.v3"
)

// ConfigCommand returns a command for configuration operations
func ConfigCommand() *cli.Command {
	return &cli.Command{
		Name:    "config",
		Aliases: []string{"c"},
		Usage:   "Configuration operations",
		Subcommands: []*cli.Command{
			{
				Name:   "validate",
				Usage:  "Validate configuration",
				Action: configValidateAction,
			},
			{
				Name:   "show",
				Usage:  "Print the effective configuration with secrets masked",
				Action: configShowAction,
			},
		},
	}
}

// Loading already validates, so reaching the action means the config is good.
func configValidateAction(ctx *cli.Context) error {
	if _, err := getConfig(ctx); err != nil {
		return err
	}
	getLogger(ctx).Info("Configuration validation passed")
	fmt.Fprintln(ctx.App.Writer, "Configuration is valid")
	return nil
}

func configShowAction(ctx *cli.Context) error {
	cfg, err := getConfig(ctx)
	if err != nil {
		return err
	}
	out, err := yaml.Marshal(cfg.Masked())
	if err != nil {
		return fmt.Errorf("failed to encode configuration: %w", err)
	}
	_, err = ctx.App.Writer.Write(out)
	return err
}
