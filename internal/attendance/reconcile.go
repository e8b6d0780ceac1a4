package attendance

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/lewisedginton/attendance_bot/pkg/logger"
	"github.com/lewisedginton/attendance_bot/pkg/metrics"
)

// Action describes what Reconcile did with a record.
type Action string

const (
	ActionInserted       Action = "inserted"
	ActionUpdatedEdit    Action = "updated_edit"
	ActionUpdatedOverlap Action = "updated_overlap"
	// ActionDuplicate means a row for the message already exists, e.g. its
	// edit was handled first or the event was redelivered. The row is kept.
	ActionDuplicate Action = "duplicate"
)

// Outcome reports the effect of a Reconcile call.
type Outcome struct {
	Action   Action
	RecordID int64
	// Deleted holds ids of overlapping records pruned in favour of RecordID.
	Deleted []int64
}

// UserLocker is implemented by stores that can hold a per-user lock until
// the surrounding transaction ends, serialising writers across processes.
type UserLocker interface {
	LockUser(ctx context.Context, userID string) error
}

// Reconciler keeps at most one record per user covering any given day.
// Calls for the same user are serialised.
type Reconciler struct {
	store   Store
	log     logger.Logger
	metrics *metrics.Metrics
	locks   userLocks
}

func NewReconciler(store Store, log logger.Logger, m *metrics.Metrics) *Reconciler {
	return &Reconciler{store: store, log: log, metrics: m}
}

type userLock struct {
	mu   sync.Mutex
	refs int
}

// userLocks is a keyed mutex; entries are dropped once nobody holds or waits on them.
type userLocks struct {
	mu    sync.Mutex
	users map[string]*userLock
}

func (l *userLocks) lock(userID string) (unlock func()) {
	l.mu.Lock()
	if l.users == nil {
		l.users = make(map[string]*userLock)
	}
	ul, ok := l.users[userID]
	if !ok {
		ul = &userLock{}
		l.users[userID] = ul
	}
	ul.refs++
	l.mu.Unlock()

	ul.mu.Lock()
	return func() {
		ul.mu.Unlock()
		l.mu.Lock()
		ul.refs--
		if ul.refs == 0 {
			delete(l.users, userID)
		}
		l.mu.Unlock()
	}
}

// Reconcile stores rec for msg.
//
// An edit updates the record created by the original message when one
// exists. Otherwise the newest record overlapping rec's dates is overwritten
// and the remaining overlaps are deleted. With no overlap rec is inserted.
// A non-edit whose message already has a row leaves that row untouched.
// Failing to delete redundant overlaps is logged, not returned.
func (r *Reconciler) Reconcile(ctx context.Context, rec Record, msg Message) (Outcome, error) {
	unlock := r.locks.lock(rec.UserID)
	defer unlock()

	var (
		out   Outcome
		prune []int64
	)

	write := func(s Store) error {
		var err error
		out, prune, err = r.write(ctx, s, rec, msg)
		return err
	}

	var err error
	if tx, ok := r.store.(TxStore); ok {
		err = tx.WithTx(ctx, write)
	} else {
		err = write(r.store)
	}
	if err != nil {
		return Outcome{}, err
	}

	if len(prune) > 0 {
		if _, err := r.store.DeleteByIDs(ctx, prune); err != nil {
			r.log.Error("Failed to delete overlapping records",
				logger.UserIDField(rec.UserID),
				logger.Field("ids", prune),
				logger.ErrorField(err),
			)
		} else {
			out.Deleted = prune
		}
	}

	r.metrics.ObserveReconcile(string(out.Action))
	return out, nil
}

func (r *Reconciler) write(ctx context.Context, s Store, rec Record, msg Message) (Outcome, []int64, error) {
	if l, ok := s.(UserLocker); ok {
		if err := l.LockUser(ctx, rec.UserID); err != nil {
			return Outcome{}, nil, fmt.Errorf("lock user %s: %w", rec.UserID, err)
		}
	}

	if msg.IsEdit && msg.OriginalTS != "" {
		out, found, err := r.updateEdited(ctx, s, rec, msg)
		if err != nil || found {
			return out, nil, err
		}
		r.log.Debug("Edited message has no stored record, reconciling as new",
			logger.UserIDField(rec.UserID), logger.MessageTSField(msg.OriginalTS))
	} else {
		existing, err := s.FindByTimestamp(ctx, rec.UserID, rec.Timestamp)
		switch {
		case err == nil:
			r.log.Debug("Message already stored, keeping existing record",
				logger.UserIDField(rec.UserID), logger.MessageTSField(msg.TS))
			return Outcome{Action: ActionDuplicate, RecordID: existing.ID}, nil, nil
		case !errors.Is(err, ErrNotFound):
			return Outcome{}, nil, fmt.Errorf("find record by timestamp: %w", err)
		}
	}

	overlaps, err := s.FindOverlapping(ctx, rec.UserID, rec.StartDate, rec.EndDate)
	if err != nil {
		return Outcome{}, nil, fmt.Errorf("find overlapping records: %w", err)
	}

	if len(overlaps) > 0 {
		keep := overlaps[0]
		if err := s.Update(ctx, keep.ID, rec); err != nil {
			return Outcome{}, nil, fmt.Errorf("update overlapping record %d: %w", keep.ID, err)
		}
		prune := make([]int64, 0, len(overlaps)-1)
		for _, o := range overlaps[1:] {
			prune = append(prune, o.ID)
		}
		return Outcome{Action: ActionUpdatedOverlap, RecordID: keep.ID}, prune, nil
	}

	if err := s.Insert(ctx, &rec); err != nil {
		return Outcome{}, nil, fmt.Errorf("insert record: %w", err)
	}
	return Outcome{Action: ActionInserted, RecordID: rec.ID}, nil, nil
}

func (r *Reconciler) updateEdited(ctx context.Context, s Store, rec Record, msg Message) (Outcome, bool, error) {
	origTS, err := ParseSlackTS(msg.OriginalTS)
	if err != nil {
		return Outcome{}, false, err
	}
	existing, err := s.FindByTimestamp(ctx, rec.UserID, origTS)
	if errors.Is(err, ErrNotFound) {
		return Outcome{}, false, nil
	}
	if err != nil {
		return Outcome{}, false, fmt.Errorf("find edited record: %w", err)
	}

	// the row keeps the timestamp of the message it was created from so
	// that later edits of the same message still find it
	rec.Timestamp = existing.Timestamp
	rec.MessageTS = existing.MessageTS
	if err := s.Update(ctx, existing.ID, rec); err != nil {
		return Outcome{}, false, fmt.Errorf("update edited record %d: %w", existing.ID, err)
	}
	return Outcome{Action: ActionUpdatedEdit, RecordID: existing.ID}, true, nil
}

// Overlaps reports whether [aStart, aEnd] and [bStart, bEnd] share a day.
func Overlaps(aStart, aEnd, bStart, bEnd time.Time) bool {
	return !aStart.After(bEnd) && !aEnd.Before(bStart)
}
