// Package sqlite is a file-backed attendance store for local runs and tests.
package sqlite

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/lewisedginton/attendance_bot/internal/attendance"
	"github.com/lewisedginton/attendance_bot/internal/persistence/sqlfilter"
	"github.com/lewisedginton/attendance_bot/pkg/logger"
)

// TimestampLayout keeps timestamps sortable as text.
const TimestampLayout = "2006-01-02T15:04:05.000000Z"

//go:embed schema.sql
var schema string

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Store is an attendance.TxStore over modernc.org/sqlite.
type Store struct {
	db     *sql.DB
	q      execer
	logger logger.Logger
}

var _ attendance.TxStore = (*Store)(nil)

// Dialect binds ? parameters and stores times as text.
var Dialect = sqlfilter.Dialect{
	Placeholder: func(int) string { return "?" },
	Like:        "LIKE",
	Value: func(column string, t time.Time) any {
		if column == attendance.ColTimestamp {
			return formatTimestamp(t)
		}
		return formatDate(t)
	},
}

// Open opens (creating if needed) the database at path and applies the
// schema. Use ":memory:" for a throwaway database.
func Open(ctx context.Context, path string, log logger.Logger) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// a single connection keeps ":memory:" databases shared and serialises writers
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, "PRAGMA busy_timeout = 5000"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("configure database: %w", err)
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}

	log.Info("Opened SQLite attendance store", logger.StringField("path", path))
	return &Store{db: db, q: db, logger: log}, nil
}

func formatTimestamp(t time.Time) string { return t.UTC().Format(TimestampLayout) }

func formatDate(t time.Time) string { return t.Format(attendance.DateLayout) }

// WithTx runs fn in a transaction, committing when it returns nil.
func (s *Store) WithTx(ctx context.Context, fn func(tx attendance.Store) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	if err := fn(&Store{db: s.db, q: tx, logger: s.logger}); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

func recordArgs(r attendance.Record) []any {
	var reason any
	if r.Reason != nil {
		reason = *r.Reason
	}
	return []any{
		r.UserID, r.UserName, r.FirstName, r.LastName, r.Email,
		formatTimestamp(r.Timestamp), r.Message, string(r.Category),
		r.IsWorkingFromHome, r.IsLeaveRequested, r.IsComingLate, r.IsLeavingEarly,
		formatDate(r.StartDate), formatDate(r.EndDate), reason,
		r.DurationDays, r.Confidence, r.ChannelID, r.MessageTS,
	}
}

const insertSQL = `INSERT INTO attendance_records (
    user_id, user_name, first_name, last_name, email, timestamp, message, category,
    is_working_from_home, is_leave_requested, is_coming_late, is_leaving_early,
    start_date, end_date, reason, duration_days, confidence, channel_id, message_ts
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

const updateSQL = `UPDATE attendance_records SET
    user_id = ?, user_name = ?, first_name = ?, last_name = ?, email = ?,
    timestamp = ?, message = ?, category = ?,
    is_working_from_home = ?, is_leave_requested = ?, is_coming_late = ?, is_leaving_early = ?,
    start_date = ?, end_date = ?, reason = ?, duration_days = ?, confidence = ?,
    channel_id = ?, message_ts = ?, updated_at = strftime('%Y-%m-%dT%H:%M:%fZ', 'now')
WHERE id = ?`

var selectSQL = "SELECT " + sqlfilter.Columns + " FROM " + sqlfilter.Table

func (s *Store) Insert(ctx context.Context, r *attendance.Record) error {
	res, err := s.q.ExecContext(ctx, insertSQL, recordArgs(*r)...)
	if err != nil {
		return fmt.Errorf("insert attendance record: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("read inserted id: %w", err)
	}
	r.ID = id
	return nil
}

func (s *Store) Update(ctx context.Context, id int64, r attendance.Record) error {
	res, err := s.q.ExecContext(ctx, updateSQL, append(recordArgs(r), id)...)
	if err != nil {
		return fmt.Errorf("update attendance record %d: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update attendance record %d: %w", id, err)
	}
	if n == 0 {
		return fmt.Errorf("update attendance record %d: %w", id, attendance.ErrNotFound)
	}
	return nil
}

func (s *Store) FindByTimestamp(ctx context.Context, userID string, ts time.Time) (*attendance.Record, error) {
	row := s.q.QueryRowContext(ctx,
		selectSQL+" WHERE user_id = ? AND timestamp = ? ORDER BY id DESC LIMIT 1",
		userID, formatTimestamp(ts))
	r, err := scan(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, attendance.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get record by timestamp: %w", err)
	}
	return &r, nil
}

func (s *Store) FindOverlapping(ctx context.Context, userID string, start, end time.Time) ([]attendance.Record, error) {
	return s.list(ctx,
		selectSQL+" WHERE user_id = ? AND start_date <= ? AND end_date >= ? ORDER BY timestamp DESC, id DESC",
		userID, formatDate(end), formatDate(start))
}

func (s *Store) DeleteByIDs(ctx context.Context, ids []int64) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	marks := strings.TrimSuffix(strings.Repeat("?, ", len(ids)), ", ")
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	res, err := s.q.ExecContext(ctx, "DELETE FROM attendance_records WHERE id IN ("+marks+")", args...)
	if err != nil {
		return 0, fmt.Errorf("delete records: %w", err)
	}
	return res.RowsAffected()
}

func (s *Store) Search(ctx context.Context, f attendance.Filter) ([]attendance.Record, error) {
	q, args := sqlfilter.Build(f, Dialect)
	s.logger.Debug("Searching attendance records", logger.StringField("sql", q))
	return s.list(ctx, q, args...)
}

func (s *Store) list(ctx context.Context, q string, args ...any) ([]attendance.Record, error) {
	rows, err := s.q.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("query records: %w", err)
	}
	defer rows.Close()

	var out []attendance.Record
	for rows.Next() {
		r, err := scan(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("query records: %w", err)
	}
	return out, nil
}

func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *Store) Close() error {
	return s.db.Close()
}

type scanner interface {
	Scan(dest ...any) error
}

func scan(row scanner) (attendance.Record, error) {
	var (
		r                   attendance.Record
		ts, start, end, cat string
		reason              sql.NullString
	)
	err := row.Scan(
		&r.ID, &r.UserID, &r.UserName, &r.FirstName, &r.LastName, &r.Email,
		&ts, &r.Message, &cat,
		&r.IsWorkingFromHome, &r.IsLeaveRequested, &r.IsComingLate, &r.IsLeavingEarly,
		&start, &end, &reason, &r.DurationDays, &r.Confidence, &r.ChannelID, &r.MessageTS,
	)
	if err != nil {
		return attendance.Record{}, err
	}

	r.Category = attendance.Category(cat)
	if r.Timestamp, err = time.Parse(TimestampLayout, ts); err != nil {
		return attendance.Record{}, fmt.Errorf("parse timestamp %q: %w", ts, err)
	}
	if r.StartDate, err = attendance.ParseDate(start); err != nil {
		return attendance.Record{}, fmt.Errorf("parse start_date %q: %w", start, err)
	}
	if r.EndDate, err = attendance.ParseDate(end); err != nil {
		return attendance.Record{}, fmt.Errorf("parse end_date %q: %w", end, err)
	}
	if reason.Valid {
		r.Reason = &reason.String
	}
	return r, nil
}
