package service

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/skilltree/internal/apperror"
	"github.com/sakif/skilltree/internal/repository"
)

// fakeResetStore records ResetIfStale calls and behaves like the real marker.
type fakeResetStore struct {
	mu     sync.Mutex
	marker string
	calls  []string
	delay  time.Duration
	err    error
	called chan string
}

func newFakeResetStore() *fakeResetStore {
	return &fakeResetStore{marker: repository.NeverReset, called: make(chan string, 100)}
}

func (f *fakeResetStore) LastResetDate(context.Context) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.marker, nil
}

func (f *fakeResetStore) ResetIfStale(_ context.Context, today string) (bool, error) {
	time.Sleep(f.delay)
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, today)
	select {
	case f.called <- today:
	default:
	}
	if f.err != nil {
		return false, f.err
	}
	if f.marker >= today {
		return false, nil
	}
	f.marker = today
	return true, nil
}

func (f *fakeResetStore) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func newTestScheduler(store repository.ResetRepository, now time.Time) *ResetScheduler {
	s := NewResetScheduler(store, time.UTC, time.Hour, newTestLogger())
	s.now = func() time.Time { return now }
	return s
}

func TestRunIfDue_ClearsOnlyOncePerDate(t *testing.T) {
	c := newTestCatalog(t)
	db := newTestStore(t)
	userID := newTestUser(t, db, c, "alice")
	challenges := NewChallengeService(db, c, newTestLogger())
	s := NewResetScheduler(db, time.UTC, time.Hour, newTestLogger())
	ctx := context.Background()

	require.NoError(t, challenges.Complete(ctx, userID, "Gym"))

	reset, err := s.RunIfDue(ctx, "2026-05-01")
	require.NoError(t, err)
	assert.True(t, reset)

	require.NoError(t, challenges.Complete(ctx, userID, "Gym"))
	reset, err = s.RunIfDue(ctx, "2026-05-01")
	require.NoError(t, err)
	assert.False(t, reset, "second run on the same date is a no-op")

	list, err := challenges.List(ctx, userID)
	require.NoError(t, err)
	assert.True(t, list[0].Completed, "completion made after the reset survives")
}

func TestRunIfDue_EarlierDateLeavesMarker(t *testing.T) {
	c := newTestCatalog(t)
	db := newTestStore(t)
	userID := newTestUser(t, db, c, "alice")
	challenges := NewChallengeService(db, c, newTestLogger())
	s := NewResetScheduler(db, time.UTC, time.Hour, newTestLogger())
	ctx := context.Background()

	reset, err := s.RunIfDue(ctx, "2026-05-02")
	require.NoError(t, err)
	require.True(t, reset)

	require.NoError(t, challenges.Complete(ctx, userID, "Gym"))
	reset, err = s.RunIfDue(ctx, "2026-05-01")
	require.NoError(t, err)
	assert.False(t, reset, "a date before the marker does not clear")

	marker, err := db.LastResetDate(ctx)
	require.NoError(t, err)
	assert.Equal(t, "2026-05-02", marker)

	list, err := challenges.List(ctx, userID)
	require.NoError(t, err)
	assert.True(t, list[0].Completed)

	reset, err = s.RunIfDue(ctx, "2026-05-02")
	require.NoError(t, err)
	assert.False(t, reset, "today's check is still a no-op")
}

func TestRunIfDue_RejectsBadDate(t *testing.T) {
	s := newTestScheduler(newFakeResetStore(), time.Now())

	_, err := s.RunIfDue(context.Background(), "May 1st")
	assert.ErrorIs(t, err, apperror.ErrValidation)
}

func TestRunIfDue_StorageFailure(t *testing.T) {
	store := newFakeResetStore()
	store.err = apperror.Unavailable("sqlite: daily reset", errors.New("disk I/O error"))
	s := newTestScheduler(store, time.Now())

	_, err := s.RunIfDue(context.Background(), "2026-05-01")
	assert.ErrorIs(t, err, apperror.ErrUnavailable)
}

func TestCheck_UsesLocalDate(t *testing.T) {
	store := newFakeResetStore()
	dhaka, err := time.LoadLocation("Asia/Dhaka")
	require.NoError(t, err)

	// 20:00 UTC on May 1st is already May 2nd in Dhaka (UTC+6).
	s := NewResetScheduler(store, dhaka, time.Hour, newTestLogger())
	s.now = func() time.Time { return time.Date(2026, 5, 1, 20, 0, 0, 0, time.UTC) }

	reset, err := s.Check(context.Background())
	require.NoError(t, err)
	assert.True(t, reset)
	assert.Equal(t, []string{"2026-05-02"}, store.calls)
}

func TestCheck_SkipsStoreOnceCurrent(t *testing.T) {
	store := newFakeResetStore()
	s := newTestScheduler(store, time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC))
	ctx := context.Background()

	for range 5 {
		_, err := s.Check(ctx)
		require.NoError(t, err)
	}
	assert.Equal(t, 1, store.callCount())
}

func TestCheck_ConcurrentCallersShareOneReset(t *testing.T) {
	store := newFakeResetStore()
	store.delay = 20 * time.Millisecond
	s := newTestScheduler(store, time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC))

	var resets atomic.Int32
	var wg sync.WaitGroup
	for range 20 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			reset, err := s.Check(context.Background())
			assert.NoError(t, err)
			if reset {
				resets.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, store.callCount())
	assert.LessOrEqual(t, resets.Load(), int32(20))
	assert.GreaterOrEqual(t, resets.Load(), int32(1))
}

func TestNextWait(t *testing.T) {
	s := NewResetScheduler(newFakeResetStore(), time.UTC, time.Hour, newTestLogger())

	tests := []struct {
		name string
		now  time.Time
		want time.Duration
	}{
		{"half an hour before midnight", time.Date(2026, 5, 1, 23, 30, 0, 0, time.UTC), 30 * time.Minute},
		{"morning is capped by interval", time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC), time.Hour},
		{"exactly midnight waits a full interval", time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC), time.Hour},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, s.nextWait(tt.now))
		})
	}
}

func TestRun_ChecksAtStartupAndAfterDayChange(t *testing.T) {
	store := newFakeResetStore()
	s := NewResetScheduler(store, time.UTC, 5*time.Millisecond, newTestLogger())

	var day atomic.Int64
	day.Store(1)
	s.now = func() time.Time { return time.Date(2026, 5, int(day.Load()), 12, 0, 0, 0, time.UTC) }

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	select {
	case got := <-store.called:
		assert.Equal(t, "2026-05-01", got)
	case <-time.After(2 * time.Second):
		t.Fatal("no reset check at startup")
	}

	day.Store(2)
	select {
	case got := <-store.called:
		assert.Equal(t, "2026-05-02", got)
	case <-time.After(2 * time.Second):
		t.Fatal("no reset check after the day changed")
	}

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not stop after cancel")
	}
}
