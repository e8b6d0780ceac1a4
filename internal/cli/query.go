package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/urfave/cli/v2"

	"github.com/lewisedginton/attendance_bot/internal/server"
)

// QueryCommand answers a question the same way the slash command does.
func QueryCommand() *cli.Command {
	return &cli.Command{
		Name:      "query",
		Aliases:   []string{"q"},
		Usage:     "Ask a question about attendance records",
		ArgsUsage: "<question>",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "params",
				Usage: "Print the parsed query parameters before the answer",
			},
		},
		Action: queryAction,
	}
}

func queryAction(ctx *cli.Context) error {
	text := strings.TrimSpace(strings.Join(ctx.Args().Slice(), " "))
	if text == "" {
		return errors.New("a question is required")
	}

	return withApp(ctx, func(app *server.App) error {
		params, answer, err := app.Queries.Run(ctx.Context, text)
		if err != nil {
			return fmt.Errorf("query failed: %w", err)
		}
		if ctx.Bool("params") {
			enc := json.NewEncoder(ctx.App.Writer)
			enc.SetIndent("", "  ")
			if err := enc.Encode(params); err != nil {
				return err
			}
		}
		_, err = fmt.Fprintln(ctx.App.Writer, answer)
		return err
	})
}
