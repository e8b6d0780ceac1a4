// Package export writes attendance records as CSV to a storage backend.
package export

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gocarina/gocsv"

	"github.com/lewisedginton/attendance_bot/internal/attendance"
	"github.com/lewisedginton/attendance_bot/internal/storage"
	"github.com/lewisedginton/attendance_bot/pkg/logger"
)

// KeyPrefix is the directory exports are written under.
const KeyPrefix = "attendance"

var ErrInvalidRange = errors.New("export range end is before start")

// Row is one CSV line.
type Row struct {
	ID                int64   `csv:"id"`
	UserID            string  `csv:"user_id"`
	UserName          string  `csv:"user_name"`
	FirstName         string  `csv:"first_name"`
	LastName          string  `csv:"last_name"`
	Email             string  `csv:"email"`
	Timestamp         string  `csv:"timestamp"`
	Category          string  `csv:"category"`
	StartDate         string  `csv:"start_date"`
	EndDate           string  `csv:"end_date"`
	DurationDays      float64 `csv:"duration_days"`
	IsWorkingFromHome bool    `csv:"is_working_from_home"`
	IsLeaveRequested  bool    `csv:"is_leave_requested"`
	IsComingLate      bool    `csv:"is_coming_late"`
	IsLeavingEarly    bool    `csv:"is_leaving_early"`
	Reason            string  `csv:"reason"`
	Confidence        float64 `csv:"confidence"`
	ChannelID         string  `csv:"channel_id"`
	Message           string  `csv:"message"`
}

func toRow(r attendance.Record) Row {
	row := Row{
		ID:                r.ID,
		UserID:            r.UserID,
		UserName:          r.DisplayName(),
		FirstName:         r.FirstName,
		LastName:          r.LastName,
		Email:             r.Email,
		Timestamp:         r.Timestamp.UTC().Format(time.RFC3339),
		Category:          string(r.Category),
		StartDate:         r.StartDate.Format(attendance.DateLayout),
		EndDate:           r.EndDate.Format(attendance.DateLayout),
		DurationDays:      r.DurationDays,
		IsWorkingFromHome: r.IsWorkingFromHome,
		IsLeaveRequested:  r.IsLeaveRequested,
		IsComingLate:      r.IsComingLate,
		IsLeavingEarly:    r.IsLeavingEarly,
		Confidence:        r.Confidence,
		ChannelID:         r.ChannelID,
		Message:           r.Message,
	}
	if r.Reason != nil {
		row.Reason = *r.Reason
	}
	return row
}

// Key is the object path of the export covering [from, to].
func Key(from, to time.Time) string {
	return fmt.Sprintf("%s/%s_%s.csv", KeyPrefix, from.Format(attendance.DateLayout), to.Format(attendance.DateLayout))
}

// Result describes a written export.
type Result struct {
	Key  string
	Rows int
}

type Exporter struct {
	store attendance.Store
	files storage.FileProvider
	log   logger.Logger
}

func New(store attendance.Store, files storage.FileProvider, log logger.Logger) *Exporter {
	return &Exporter{store: store, files: files, log: log}
}

// Export writes every record whose dates overlap [from, to]. An existing
// export for the same range is replaced.
func (e *Exporter) Export(ctx context.Context, from, to time.Time) (Result, error) {
	from, to = attendance.DateOf(from, nil), attendance.DateOf(to, nil)
	if to.Before(from) {
		return Result{}, ErrInvalidRange
	}

	records, err := e.store.Search(ctx, attendance.Filter{
		Overlap: &attendance.DateRange{Start: from, End: to},
	})
	if err != nil {
		return Result{}, fmt.Errorf("load records: %w", err)
	}

	rows := make([]Row, 0, len(records))
	for _, r := range records {
		rows = append(rows, toRow(r))
	}

	data, err := gocsv.MarshalBytes(&rows)
	if err != nil {
		return Result{}, fmt.Errorf("encode csv: %w", err)
	}

	key := Key(from, to)
	if err := e.files.Write(ctx, key, data); err != nil {
		return Result{}, fmt.Errorf("write %s: %w", key, err)
	}

	e.log.Info("Exported attendance records",
		logger.StringField("key", key),
		logger.IntField("rows", len(rows)))
	return Result{Key: key, Rows: len(rows)}, nil
}
