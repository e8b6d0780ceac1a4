package attendance

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned by lookups that match no record.
var ErrNotFound = errors.New("attendance record not found")

// Column names of the attendance table that may appear in a Filter.
const (
	ColUserID            = "user_id"
	ColUserName          = "user_name"
	ColCategory          = "category"
	ColTimestamp         = "timestamp"
	ColStartDate         = "start_date"
	ColEndDate           = "end_date"
	ColIsWorkingFromHome = "is_working_from_home"
	ColIsLeaveRequested  = "is_leave_requested"
	ColIsComingLate      = "is_coming_late"
	ColIsLeavingEarly    = "is_leaving_early"
)

// BoolColumns are the flag columns that accept equality filters.
var BoolColumns = map[string]bool{
	ColIsWorkingFromHome: true,
	ColIsLeaveRequested:  true,
	ColIsComingLate:      true,
	ColIsLeavingEarly:    true,
}

// RangeColumns accept gte/lte/eq predicates.
var RangeColumns = map[string]bool{
	ColStartDate: true,
	ColEndDate:   true,
	ColTimestamp: true,
}

// RangeOp is a comparison used by RangePredicate.
type RangeOp string

const (
	OpGTE RangeOp = "gte"
	OpLTE RangeOp = "lte"
	OpEQ  RangeOp = "eq"
)

// RangePredicate compares a date or timestamp column with a value.
type RangePredicate struct {
	Column string
	Op     RangeOp
	Value  time.Time
}

// DateRange is an inclusive span of calendar dates.
type DateRange struct {
	Start time.Time
	End   time.Time
}

// Filter describes a Search. Zero values mean "no constraint". Results are
// always ordered by timestamp, newest first.
type Filter struct {
	UserID   string
	Category Category
	// Bools holds equality filters keyed by a BoolColumns name.
	Bools map[string]bool
	// UserNameLike is a case-insensitive substring match on user_name.
	UserNameLike string
	Ranges       []RangePredicate
	// Overlap keeps records whose [start_date, end_date] intersects the range.
	Overlap *DateRange
	Limit   int
}

// Store persists attendance records.
type Store interface {
	// Insert stores r and sets r.ID.
	Insert(ctx context.Context, r *Record) error
	// Update overwrites every column of the record with the given id.
	Update(ctx context.Context, id int64, r Record) error
	// FindByTimestamp returns userID's record created by the message at ts.
	FindByTimestamp(ctx context.Context, userID string, ts time.Time) (*Record, error)
	// FindOverlapping returns userID's records whose date span intersects
	// [start, end], most recent first.
	FindOverlapping(ctx context.Context, userID string, start, end time.Time) ([]Record, error)
	DeleteByIDs(ctx context.Context, ids []int64) (int64, error)
	Search(ctx context.Context, f Filter) ([]Record, error)
	Ping(ctx context.Context) error
	Close() error
}

// TxStore is a Store able to run a unit of work atomically.
type TxStore interface {
	Store
	WithTx(ctx context.Context, fn func(tx Store) error) error
}
