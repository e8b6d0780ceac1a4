// source: query.sql

package queries

import (
	"context"

	"github.com/jackc/pgx/v5/pgtype"
)

const insertRecord = `-- name: InsertRecord :one
INSERT INTO attendance_records (
    user_id, user_name, first_name, last_name, email, timestamp, message, category,
    is_working_from_home, is_leave_requested, is_coming_late, is_leaving_early,
    start_date, end_date, reason, duration_days, confidence, channel_id, message_ts
) VALUES (
    $1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19
)
RETURNING id
`

type InsertRecordParams struct {
	UserID            string             `json:"user_id"`
	UserName          string             `json:"user_name"`
	FirstName         string             `json:"first_name"`
	LastName          string             `json:"last_name"`
	Email             string             `json:"email"`
	Timestamp         pgtype.Timestamptz `json:"timestamp"`
	Message           string             `json:"message"`
	Category          string             `json:"category"`
	IsWorkingFromHome bool               `json:"is_working_from_home"`
	IsLeaveRequested  bool               `json:"is_leave_requested"`
	IsComingLate      bool               `json:"is_coming_late"`
	IsLeavingEarly    bool               `json:"is_leaving_early"`
	StartDate         pgtype.Date        `json:"start_date"`
	EndDate           pgtype.Date        `json:"end_date"`
	Reason            pgtype.Text        `json:"reason"`
	DurationDays      float64            `json:"duration_days"`
	Confidence        float64            `json:"confidence"`
	ChannelID         string             `json:"channel_id"`
	MessageTs         string             `json:"message_ts"`
}

func (q *Queries) InsertRecord(ctx context.Context, arg InsertRecordParams) (int64, error) {
	row := q.db.QueryRow(ctx, insertRecord,
		arg.UserID,
		arg.UserName,
		arg.FirstName,
		arg.LastName,
		arg.Email,
		arg.Timestamp,
		arg.Message,
		arg.Category,
		arg.IsWorkingFromHome,
		arg.IsLeaveRequested,
		arg.IsComingLate,
		arg.IsLeavingEarly,
		arg.StartDate,
		arg.EndDate,
		arg.Reason,
		arg.DurationDays,
		arg.Confidence,
		arg.ChannelID,
		arg.MessageTs,
	)
	var id int64
	err := row.Scan(&id)
	return id, err
}

const updateRecord = `-- name: UpdateRecord :execrows
UPDATE attendance_records SET
    user_id = $2, user_name = $3, first_name = $4, last_name = $5, email = $6,
    timestamp = $7, message = $8, category = $9,
    is_working_from_home = $10, is_leave_requested = $11, is_coming_late = $12, is_leaving_early = $13,
    start_date = $14, end_date = $15, reason = $16, duration_days = $17, confidence = $18,
    channel_id = $19, message_ts = $20, updated_at = NOW()
WHERE id = $1
`

type UpdateRecordParams struct {
	ID                int64              `json:"id"`
	UserID            string             `json:"user_id"`
	UserName          string             `json:"user_name"`
	FirstName         string             `json:"first_name"`
	LastName          string             `json:"last_name"`
	Email             string             `json:"email"`
	Timestamp         pgtype.Timestamptz `json:"timestamp"`
	Message           string             `json:"message"`
	Category          string             `json:"category"`
	IsWorkingFromHome bool               `json:"is_working_from_home"`
	IsLeaveRequested  bool               `json:"is_leave_requested"`
	IsComingLate      bool               `json:"is_coming_late"`
	IsLeavingEarly    bool               `json:"is_leaving_early"`
	StartDate         pgtype.Date        `json:"start_date"`
	EndDate           pgtype.Date        `json:"end_date"`
	Reason            pgtype.Text        `json:"reason"`
	DurationDays      float64            `json:"duration_days"`
	Confidence        float64            `json:"confidence"`
	ChannelID         string             `json:"channel_id"`
	MessageTs         string             `json:"message_ts"`
}

func (q *Queries) UpdateRecord(ctx context.Context, arg UpdateRecordParams) (int64, error) {
	result, err := q.db.Exec(ctx, updateRecord,
		arg.ID,
		arg.UserID,
		arg.UserName,
		arg.FirstName,
		arg.LastName,
		arg.Email,
		arg.Timestamp,
		arg.Message,
		arg.Category,
		arg.IsWorkingFromHome,
		arg.IsLeaveRequested,
		arg.IsComingLate,
		arg.IsLeavingEarly,
		arg.StartDate,
		arg.EndDate,
		arg.Reason,
		arg.DurationDays,
		arg.Confidence,
		arg.ChannelID,
		arg.MessageTs,
	)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected(), nil
}

const getRecordByTimestamp = `-- name: GetRecordByTimestamp :one
SELECT id, user_id, user_name, first_name, last_name, email, timestamp, message, category, is_working_from_home, is_leave_requested, is_coming_late, is_leaving_early, start_date, end_date, reason, duration_days, confidence, channel_id, message_ts
FROM attendance_records
WHERE user_id = $1 AND timestamp = $2
ORDER BY id DESC
LIMIT 1
`

type GetRecordByTimestampParams struct {
	UserID    string             `json:"user_id"`
	Timestamp pgtype.Timestamptz `json:"timestamp"`
}

func (q *Queries) GetRecordByTimestamp(ctx context.Context, arg GetRecordByTimestampParams) (AttendanceRecord, error) {
	row := q.db.QueryRow(ctx, getRecordByTimestamp, arg.UserID, arg.Timestamp)
	return ScanRecord(row)
}

const listOverlappingRecords = `-- name: ListOverlappingRecords :many
SELECT id, user_id, user_name, first_name, last_name, email, timestamp, message, category, is_working_from_home, is_leave_requested, is_coming_late, is_leaving_early, start_date, end_date, reason, duration_days, confidence, channel_id, message_ts
FROM attendance_records
WHERE user_id = $1 AND start_date <= $2 AND end_date >= $3
ORDER BY timestamp DESC, id DESC
`

type ListOverlappingRecordsParams struct {
	UserID    string      `json:"user_id"`
	EndDate   pgtype.Date `json:"end_date"`
	StartDate pgtype.Date `json:"start_date"`
}

func (q *Queries) ListOverlappingRecords(ctx context.Context, arg ListOverlappingRecordsParams) ([]AttendanceRecord, error) {
	rows, err := q.db.Query(ctx, listOverlappingRecords, arg.UserID, arg.EndDate, arg.StartDate)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []AttendanceRecord
	for rows.Next() {
		i, err := ScanRecord(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const deleteRecords = `-- name: DeleteRecords :execrows
DELETE FROM attendance_records WHERE id = ANY($1::bigint[])
`

func (q *Queries) DeleteRecords(ctx context.Context, ids []int64) (int64, error) {
	result, err := q.db.Exec(ctx, deleteRecords, ids)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected(), nil
}

const lockUser = `-- name: LockUser :exec
SELECT pg_advisory_xact_lock(hashtext($1))
`

func (q *Queries) LockUser(ctx context.Context, userID string) error {
	_, err := q.db.Exec(ctx, lockUser, userID)
	return err
}
