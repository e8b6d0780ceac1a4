package cli

import (
	"fmt"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/lewisedginton/attendance_bot/internal/attendance"
	"github.com/lewisedginton/attendance_bot/internal/server"
)

// ExportCommand writes the records overlapping a date range as CSV to the
// configured storage backend.
func ExportCommand() *cli.Command {
	return &cli.Command{
		Name:  "export",
		Usage: "Export attendance records to CSV",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "from",
				Usage: "First day to include (YYYY-MM-DD); defaults to today",
			},
			&cli.StringFlag{
				Name:  "to",
				Usage: "Last day to include (YYYY-MM-DD); defaults to --from",
			},
		},
		Action: exportAction,
	}
}

func exportAction(ctx *cli.Context) error {
	return withApp(ctx, func(app *server.App) error {
		from, to, err := exportRange(ctx.String("from"), ctx.String("to"), time.Now(), app.Location)
		if err != nil {
			return err
		}

		res, err := app.Exporter.Export(ctx.Context, from, to)
		if err != nil {
			return fmt.Errorf("export failed: %w", err)
		}
		_, err = fmt.Fprintf(ctx.App.Writer, "Exported %d records to %s\n", res.Rows, res.Key)
		return err
	})
}

func exportRange(fromArg, toArg string, now time.Time, loc *time.Location) (time.Time, time.Time, error) {
	from := attendance.DateOf(now, loc)
	if fromArg != "" {
		d, err := attendance.ParseDate(fromArg)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("invalid --from: %w", err)
		}
		from = d
	}
	to := from
	if toArg != "" {
		d, err := attendance.ParseDate(toArg)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("invalid --to: %w", err)
		}
		to = d
	}
	return from, to, nil
}
