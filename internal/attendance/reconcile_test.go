package attendance

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/lewisedginton/attendance_bot/pkg/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memStore is a minimal Store used to exercise the reconciliation rules.
type memStore struct {
	rows      map[int64]Record
	nextID    int64
	deleteErr error
}

func newMemStore() *memStore { return &memStore{rows: map[int64]Record{}} }

func (m *memStore) Insert(_ context.Context, r *Record) error {
	m.nextID++
	r.ID = m.nextID
	m.rows[r.ID] = *r
	return nil
}

func (m *memStore) Update(_ context.Context, id int64, r Record) error {
	if _, ok := m.rows[id]; !ok {
		return ErrNotFound
	}
	r.ID = id
	m.rows[id] = r
	return nil
}

func (m *memStore) FindByTimestamp(_ context.Context, userID string, ts time.Time) (*Record, error) {
	for _, r := range m.rows {
		if r.UserID == userID && r.Timestamp.Equal(ts) {
			r := r
			return &r, nil
		}
	}
	return nil, ErrNotFound
}

func (m *memStore) FindOverlapping(_ context.Context, userID string, start, end time.Time) ([]Record, error) {
	var out []Record
	for _, r := range m.rows {
		if r.UserID == userID && Overlaps(r.StartDate, r.EndDate, start, end) {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Timestamp.Equal(out[j].Timestamp) {
			return out[i].Timestamp.After(out[j].Timestamp)
		}
		return out[i].ID > out[j].ID
	})
	return out, nil
}

func (m *memStore) DeleteByIDs(_ context.Context, ids []int64) (int64, error) {
	if m.deleteErr != nil {
		return 0, m.deleteErr
	}
	for _, id := range ids {
		delete(m.rows, id)
	}
	return int64(len(ids)), nil
}

func (m *memStore) Search(context.Context, Filter) ([]Record, error) { return nil, nil }
func (m *memStore) Ping(context.Context) error                       { return nil }
func (m *memStore) Close() error                                     { return nil }

func day(d int) time.Time { return time.Date(2024, 3, d, 0, 0, 0, 0, time.UTC) }

func rec(user string, ts int64, start, end time.Time, cat Category) Record {
	return Record{
		UserID:    user,
		UserName:  user,
		Timestamp: time.Unix(ts, 0).UTC(),
		MessageTS: fmt.Sprintf("%d.000000", ts),
		StartDate: start,
		EndDate:   end,
		Category:  cat,
	}
}

func TestReconcileInsertsWhenNoOverlap(t *testing.T) {
	store := newMemStore()
	r := NewReconciler(store, logger.NewNopLogger(), nil)

	out, err := r.Reconcile(context.Background(), rec("U1", 100, day(4), day(4), CategoryWFH), Message{TS: "100.000000"})
	require.NoError(t, err)
	assert.Equal(t, ActionInserted, out.Action)
	assert.Equal(t, int64(1), out.RecordID)

	// a different user on the same day does not overlap
	out, err = r.Reconcile(context.Background(), rec("U2", 101, day(4), day(4), CategoryWFH), Message{TS: "101.000000"})
	require.NoError(t, err)
	assert.Equal(t, ActionInserted, out.Action)
	assert.Len(t, store.rows, 2)
}

func TestReconcileUpdatesMostRecentOverlapAndPrunesRest(t *testing.T) {
	store := newMemStore()
	ctx := context.Background()
	old := rec("U1", 100, day(4), day(5), CategoryFullLeave)
	newer := rec("U1", 200, day(6), day(8), CategoryFullLeave)
	unrelated := rec("U1", 300, day(20), day(20), CategoryWFH)
	for _, r := range []*Record{&old, &newer, &unrelated} {
		require.NoError(t, store.Insert(ctx, r))
	}

	r := NewReconciler(store, logger.NewNopLogger(), nil)
	incoming := rec("U1", 400, day(5), day(6), CategoryWFH)
	out, err := r.Reconcile(ctx, incoming, Message{TS: "400.000000"})
	require.NoError(t, err)

	assert.Equal(t, ActionUpdatedOverlap, out.Action)
	assert.Equal(t, newer.ID, out.RecordID)
	assert.Equal(t, []int64{old.ID}, out.Deleted)

	require.Len(t, store.rows, 2)
	assert.Equal(t, CategoryWFH, store.rows[newer.ID].Category)
	assert.Equal(t, day(5), store.rows[newer.ID].StartDate)
	assert.Contains(t, store.rows, unrelated.ID)
}

func TestReconcileEditUpdatesOriginal(t *testing.T) {
	store := newMemStore()
	ctx := context.Background()
	original := rec("U1", 100, day(4), day(4), CategoryWFH)
	require.NoError(t, store.Insert(ctx, &original))

	r := NewReconciler(store, logger.NewNopLogger(), nil)
	edited := rec("U1", 150, day(10), day(11), CategoryFullLeave)
	out, err := r.Reconcile(ctx, edited, Message{TS: "150.000000", OriginalTS: "100.000000", IsEdit: true})
	require.NoError(t, err)

	assert.Equal(t, ActionUpdatedEdit, out.Action)
	assert.Equal(t, original.ID, out.RecordID)
	require.Len(t, store.rows, 1)
	got := store.rows[original.ID]
	assert.Equal(t, CategoryFullLeave, got.Category)
	assert.Equal(t, day(10), got.StartDate)
	assert.True(t, got.Timestamp.Equal(original.Timestamp), "edited row keeps the original message time")
}

func TestReconcileEditWithoutOriginalFallsBackToOverlap(t *testing.T) {
	store := newMemStore()
	ctx := context.Background()
	existing := rec("U1", 100, day(4), day(4), CategoryWFH)
	require.NoError(t, store.Insert(ctx, &existing))

	r := NewReconciler(store, logger.NewNopLogger(), nil)
	out, err := r.Reconcile(ctx, rec("U1", 300, day(4), day(4), CategoryComeLate),
		Message{TS: "300.000000", OriginalTS: "250.000000", IsEdit: true})
	require.NoError(t, err)
	assert.Equal(t, ActionUpdatedOverlap, out.Action)
	assert.Equal(t, CategoryComeLate, store.rows[existing.ID].Category)
}

func TestReconcileDeleteFailureIsNotFatal(t *testing.T) {
	store := newMemStore()
	ctx := context.Background()
	a := rec("U1", 100, day(4), day(4), CategoryWFH)
	b := rec("U1", 200, day(5), day(5), CategoryWFH)
	require.NoError(t, store.Insert(ctx, &a))
	require.NoError(t, store.Insert(ctx, &b))
	store.deleteErr = errors.New("connection reset")

	r := NewReconciler(store, logger.NewNopLogger(), nil)
	out, err := r.Reconcile(ctx, rec("U1", 300, day(4), day(5), CategoryFullLeave), Message{TS: "300.000000"})
	require.NoError(t, err)
	assert.Equal(t, ActionUpdatedOverlap, out.Action)
	assert.Empty(t, out.Deleted)
	assert.Len(t, store.rows, 2)
}

func TestReconcileInvalidEditTS(t *testing.T) {
	r := NewReconciler(newMemStore(), logger.NewNopLogger(), nil)
	_, err := r.Reconcile(context.Background(), rec("U1", 1, day(1), day(1), CategoryWFH),
		Message{TS: "1.0", OriginalTS: "garbage", IsEdit: true})
	assert.Error(t, err)
}

func TestReconcileOriginalAfterItsEditKeepsEdit(t *testing.T) {
	store := newMemStore()
	ctx := context.Background()
	r := NewReconciler(store, logger.NewNopLogger(), nil)

	// the edit arrives first; Slack keeps the original ts on edited messages
	edit := rec("U1", 100, day(3), day(3), CategoryFullLeave)
	out, err := r.Reconcile(ctx, edit, Message{TS: "100.000000", OriginalTS: "100.000000", IsEdit: true})
	require.NoError(t, err)
	require.Equal(t, ActionInserted, out.Action)
	editID := out.RecordID

	original := rec("U1", 100, day(1), day(1), CategoryWFH)
	out, err = r.Reconcile(ctx, original, Message{TS: "100.000000"})
	require.NoError(t, err)
	assert.Equal(t, ActionDuplicate, out.Action)
	assert.Equal(t, editID, out.RecordID)

	require.Len(t, store.rows, 1)
	assert.Equal(t, CategoryFullLeave, store.rows[editID].Category)
	assert.Equal(t, day(3), store.rows[editID].StartDate)
}

func TestReconcileRedeliveredMessageIsDuplicate(t *testing.T) {
	store := newMemStore()
	ctx := context.Background()
	r := NewReconciler(store, logger.NewNopLogger(), nil)

	msg := rec("U1", 100, day(4), day(4), CategoryWFH)
	_, err := r.Reconcile(ctx, msg, Message{TS: "100.000000"})
	require.NoError(t, err)
	out, err := r.Reconcile(ctx, msg, Message{TS: "100.000000"})
	require.NoError(t, err)
	assert.Equal(t, ActionDuplicate, out.Action)
	assert.Len(t, store.rows, 1)
}

// lockingStore counts LockUser calls and fails them on request.
type lockingStore struct {
	*memStore
	locked []string
	err    error
}

func (l *lockingStore) LockUser(_ context.Context, userID string) error {
	l.locked = append(l.locked, userID)
	return l.err
}

func TestReconcileTakesStoreUserLock(t *testing.T) {
	store := &lockingStore{memStore: newMemStore()}
	r := NewReconciler(store, logger.NewNopLogger(), nil)

	_, err := r.Reconcile(context.Background(), rec("U7", 100, day(4), day(4), CategoryWFH), Message{TS: "100.000000"})
	require.NoError(t, err)
	assert.Equal(t, []string{"U7"}, store.locked)

	store.err = errors.New("lock timeout")
	_, err = r.Reconcile(context.Background(), rec("U7", 200, day(5), day(5), CategoryWFH), Message{TS: "200.000000"})
	assert.ErrorContains(t, err, "lock user U7")
	assert.Len(t, store.rows, 1)
}

func TestReconcileSerialisesSameUser(t *testing.T) {
	store := newMemStore()
	r := NewReconciler(store, logger.NewNopLogger(), nil)

	// memStore is not safe for concurrent use, so this also fails under -race
	// if two calls for the user ever interleave
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(ts int64) {
			defer wg.Done()
			_, err := r.Reconcile(context.Background(), rec("U1", ts, day(4), day(4), CategoryWFH),
				Message{TS: fmt.Sprintf("%d.000000", ts)})
			assert.NoError(t, err)
		}(int64(100 + i))
	}
	wg.Wait()

	assert.Len(t, store.rows, 1, "one record per user per day")
	assert.Empty(t, r.locks.users, "lock entries are released")
}
