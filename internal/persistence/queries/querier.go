package queries

import (
	"context"
)

type Querier interface {
	InsertRecord(ctx context.Context, arg InsertRecordParams) (int64, error)
	UpdateRecord(ctx context.Context, arg UpdateRecordParams) (int64, error)
	GetRecordByTimestamp(ctx context.Context, arg GetRecordByTimestampParams) (AttendanceRecord, error)
	ListOverlappingRecords(ctx context.Context, arg ListOverlappingRecordsParams) ([]AttendanceRecord, error)
	DeleteRecords(ctx context.Context, ids []int64) (int64, error)
	LockUser(ctx context.Context, userID string) error
}

var _ Querier = (*Queries)(nil)
