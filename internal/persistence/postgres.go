// Package persistence stores attendance records in PostgreSQL or SQLite.
package persistence

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/lewisedginton/attendance_bot/internal/attendance"
	"github.com/lewisedginton/attendance_bot/internal/persistence/queries"
	"github.com/lewisedginton/attendance_bot/internal/persistence/sqlfilter"
	"github.com/lewisedginton/attendance_bot/pkg/config"
	"github.com/lewisedginton/attendance_bot/pkg/logger"
)

// PostgresStore is an attendance.TxStore over a pgx pool.
type PostgresStore struct {
	pool    *pgxpool.Pool
	db      queries.DBTX
	queries *queries.Queries
	logger  logger.Logger
}

var (
	_ attendance.TxStore    = (*PostgresStore)(nil)
	_ attendance.UserLocker = (*PostgresStore)(nil)
)

// NewPostgresStore connects to the database described by cfg.
func NewPostgresStore(ctx context.Context, cfg config.DatabaseConfig, log logger.Logger) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, cfg.GetConnectionConfig())
	if err != nil {
		return nil, fmt.Errorf("create connection pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	log.Info("Connected to PostgreSQL",
		logger.StringField("host", cfg.Host),
		logger.StringField("database", cfg.Database))
	return NewPostgresStoreFromPool(pool, log), nil
}

func NewPostgresStoreFromPool(pool *pgxpool.Pool, log logger.Logger) *PostgresStore {
	return &PostgresStore{
		pool:    pool,
		db:      pool,
		queries: queries.New(pool),
		logger:  log,
	}
}

// Pool exposes the underlying pool for migrations and health checks.
func (s *PostgresStore) Pool() *pgxpool.Pool { return s.pool }

func (s *PostgresStore) withTx(tx pgx.Tx) *PostgresStore {
	return &PostgresStore{
		pool:    s.pool,
		db:      tx,
		queries: s.queries.WithTx(tx),
		logger:  s.logger,
	}
}

// WithTx runs fn in a transaction, committing when it returns nil.
func (s *PostgresStore) WithTx(ctx context.Context, fn func(tx attendance.Store) error) error {
	return pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		return fn(s.withTx(tx))
	})
}

// LockUser takes a transaction-scoped advisory lock on userID. Outside
// WithTx the lock is released as soon as the statement finishes.
func (s *PostgresStore) LockUser(ctx context.Context, userID string) error {
	if err := s.queries.LockUser(ctx, userID); err != nil {
		return fmt.Errorf("advisory lock: %w", err)
	}
	return nil
}

func pgDate(t time.Time) pgtype.Date {
	return pgtype.Date{Time: t, Valid: true}
}

func pgTimestamp(t time.Time) pgtype.Timestamptz {
	return pgtype.Timestamptz{Time: t, Valid: true}
}

func pgText(s *string) pgtype.Text {
	if s == nil {
		return pgtype.Text{}
	}
	return pgtype.Text{String: *s, Valid: true}
}

func insertParams(r attendance.Record) queries.InsertRecordParams {
	return queries.InsertRecordParams{
		UserID:            r.UserID,
		UserName:          r.UserName,
		FirstName:         r.FirstName,
		LastName:          r.LastName,
		Email:             r.Email,
		Timestamp:         pgTimestamp(r.Timestamp),
		Message:           r.Message,
		Category:          string(r.Category),
		IsWorkingFromHome: r.IsWorkingFromHome,
		IsLeaveRequested:  r.IsLeaveRequested,
		IsComingLate:      r.IsComingLate,
		IsLeavingEarly:    r.IsLeavingEarly,
		StartDate:         pgDate(r.StartDate),
		EndDate:           pgDate(r.EndDate),
		Reason:            pgText(r.Reason),
		DurationDays:      r.DurationDays,
		Confidence:        r.Confidence,
		ChannelID:         r.ChannelID,
		MessageTs:         r.MessageTS,
	}
}

func toRecord(row queries.AttendanceRecord) attendance.Record {
	r := attendance.Record{
		ID:                row.ID,
		UserID:            row.UserID,
		UserName:          row.UserName,
		FirstName:         row.FirstName,
		LastName:          row.LastName,
		Email:             row.Email,
		Timestamp:         row.Timestamp.Time.UTC(),
		Message:           row.Message,
		Category:          attendance.Category(row.Category),
		IsWorkingFromHome: row.IsWorkingFromHome,
		IsLeaveRequested:  row.IsLeaveRequested,
		IsComingLate:      row.IsComingLate,
		IsLeavingEarly:    row.IsLeavingEarly,
		StartDate:         attendance.DateOf(row.StartDate.Time, nil),
		EndDate:           attendance.DateOf(row.EndDate.Time, nil),
		DurationDays:      row.DurationDays,
		Confidence:        row.Confidence,
		ChannelID:         row.ChannelID,
		MessageTS:         row.MessageTs,
	}
	if row.Reason.Valid {
		reason := row.Reason.String
		r.Reason = &reason
	}
	return r
}

func (s *PostgresStore) Insert(ctx context.Context, r *attendance.Record) error {
	id, err := s.queries.InsertRecord(ctx, insertParams(*r))
	if err != nil {
		s.logger.Error("Failed to insert attendance record",
			logger.UserIDField(r.UserID), logger.ErrorField(err))
		return fmt.Errorf("insert attendance record: %w", err)
	}
	r.ID = id
	return nil
}

func (s *PostgresStore) Update(ctx context.Context, id int64, r attendance.Record) error {
	p := insertParams(r)
	n, err := s.queries.UpdateRecord(ctx, queries.UpdateRecordParams{
		ID:                id,
		UserID:            p.UserID,
		UserName:          p.UserName,
		FirstName:         p.FirstName,
		LastName:          p.LastName,
		Email:             p.Email,
		Timestamp:         p.Timestamp,
		Message:           p.Message,
		Category:          p.Category,
		IsWorkingFromHome: p.IsWorkingFromHome,
		IsLeaveRequested:  p.IsLeaveRequested,
		IsComingLate:      p.IsComingLate,
		IsLeavingEarly:    p.IsLeavingEarly,
		StartDate:         p.StartDate,
		EndDate:           p.EndDate,
		Reason:            p.Reason,
		DurationDays:      p.DurationDays,
		Confidence:        p.Confidence,
		ChannelID:         p.ChannelID,
		MessageTs:         p.MessageTs,
	})
	if err != nil {
		s.logger.Error("Failed to update attendance record",
			logger.RecordIDField(id), logger.ErrorField(err))
		return fmt.Errorf("update attendance record %d: %w", id, err)
	}
	if n == 0 {
		return fmt.Errorf("update attendance record %d: %w", id, attendance.ErrNotFound)
	}
	return nil
}

func (s *PostgresStore) FindByTimestamp(ctx context.Context, userID string, ts time.Time) (*attendance.Record, error) {
	row, err := s.queries.GetRecordByTimestamp(ctx, queries.GetRecordByTimestampParams{
		UserID:    userID,
		Timestamp: pgTimestamp(ts),
	})
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, attendance.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get record by timestamp: %w", err)
	}
	r := toRecord(row)
	return &r, nil
}

func (s *PostgresStore) FindOverlapping(ctx context.Context, userID string, start, end time.Time) ([]attendance.Record, error) {
	rows, err := s.queries.ListOverlappingRecords(ctx, queries.ListOverlappingRecordsParams{
		UserID:    userID,
		StartDate: pgDate(start),
		EndDate:   pgDate(end),
	})
	if err != nil {
		return nil, fmt.Errorf("list overlapping records: %w", err)
	}
	out := make([]attendance.Record, 0, len(rows))
	for _, row := range rows {
		out = append(out, toRecord(row))
	}
	return out, nil
}

func (s *PostgresStore) DeleteByIDs(ctx context.Context, ids []int64) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	n, err := s.queries.DeleteRecords(ctx, ids)
	if err != nil {
		return 0, fmt.Errorf("delete records: %w", err)
	}
	return n, nil
}

func (s *PostgresStore) Search(ctx context.Context, f attendance.Filter) ([]attendance.Record, error) {
	q, args := sqlfilter.Build(f, sqlfilter.Postgres)
	s.logger.Debug("Searching attendance records", logger.StringField("sql", q))

	rows, err := s.db.Query(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("search records: %w", err)
	}
	defer rows.Close()

	var out []attendance.Record
	for rows.Next() {
		row, err := queries.ScanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scan record: %w", err)
		}
		out = append(out, toRecord(row))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("search records: %w", err)
	}
	return out, nil
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}
