package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/urfave/cli/v2"
	"golang.org/x/sync/errgroup"

	"github.com/lewisedginton/attendance_bot/internal/attendance"
	"github.com/lewisedginton/attendance_bot/internal/server"
)

// ClassifyCommand runs a message through classification and extraction
// without storing anything.
func ClassifyCommand() *cli.Command {
	return &cli.Command{
		Name:      "classify",
		Usage:     "Classify and extract an attendance message",
		ArgsUsage: "<message>",
		Action:    classifyAction,
	}
}

type classifyOutput struct {
	Classification attendance.Classification `json:"classification"`
	Details        attendance.Details        `json:"details"`
}

func classifyAction(ctx *cli.Context) error {
	text := strings.TrimSpace(strings.Join(ctx.Args().Slice(), " "))
	if text == "" {
		return errors.New("a message is required")
	}

	return withApp(ctx, func(app *server.App) error {
		var out classifyOutput
		g, gctx := errgroup.WithContext(ctx.Context)
		g.Go(func() error {
			var err error
			out.Classification, err = app.Classifier.Classify(gctx, text)
			return err
		})
		g.Go(func() error {
			var err error
			out.Details, err = app.Extractor.Extract(gctx, text)
			return err
		})
		if err := g.Wait(); err != nil {
			return fmt.Errorf("analyse message: %w", err)
		}

		enc := json.NewEncoder(ctx.App.Writer)
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	})
}
