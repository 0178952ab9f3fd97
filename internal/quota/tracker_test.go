package quota

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"
)

type memStore struct {
	mu      sync.Mutex
	records map[string]Record
	saves   int
	loadErr error
	saveErr error
}

func newMemStore() *memStore {
	return &memStore{records: make(map[string]Record)}
}

func (m *memStore) Load(_ context.Context, userID string) (*Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.loadErr != nil {
		return nil, m.loadErr
	}
	rec, ok := m.records[userID]
	if !ok {
		return nil, nil
	}
	return &rec, nil
}

func (m *memStore) Save(_ context.Context, userID string, rec Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.saveErr != nil {
		return m.saveErr
	}
	m.records[userID] = rec
	m.saves++
	return nil
}

// atomicMemStore: 한도 검사와 증가를 잠금 하나로 처리하는 테스트용 AtomicStore
type atomicMemStore struct {
	*memStore
	atomicCalls int
}

func (a *atomicMemStore) IncrementWithin(_ context.Context, userID, today string, limit int) (Record, bool, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.atomicCalls++
	rec := a.records[userID]
	count := effectiveCount(&rec, today)
	if count >= limit {
		return Record{Count: count, Date: today, UserID: userID}, false, nil
	}
	next := Record{Count: count + 1, Date: today, UserID: userID}
	a.records[userID] = next
	return next, true, nil
}

func fixedClock(date string) func() time.Time {
	ts, err := time.ParseInLocation(DateLayout, date, time.UTC)
	if err != nil {
		panic(err)
	}
	return func() time.Time { return ts.Add(10 * time.Hour) }
}

func newTestTracker(store Store, date string, opts ...Option) *Tracker {
	base := []Option{
		WithLimit(50),
		WithClock(fixedClock(date)),
		WithLocation(time.UTC),
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
	}
	return NewTracker(store, append(base, opts...)...)
}

func TestTracker_StatusWithoutRecord(t *testing.T) {
	tracker := newTestTracker(newMemStore(), "2024-01-01")

	st, err := tracker.Status(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if st.Count != 0 || st.Remaining != 50 || st.HasExceeded {
		t.Fatalf("unexpected status: %+v", st)
	}
	if st.Date != "2024-01-01" || st.UserID != "user-1" || st.Limit != 50 {
		t.Fatalf("unexpected status identity fields: %+v", st)
	}
}

func TestTracker_IncrementSequence(t *testing.T) {
	store := newMemStore()
	tracker := newTestTracker(store, "2024-01-01")
	ctx := context.Background()

	for n := 1; n <= 50; n++ {
		res, err := tracker.Increment(ctx, "user-1")
		if err != nil {
			t.Fatalf("increment %d: %v", n, err)
		}
		if !res.Success || res.Count != n || res.Remaining != 50-n {
			t.Fatalf("increment %d: unexpected result %+v", n, res)
		}
	}

	st, err := tracker.Status(ctx, "user-1")
	if err != nil {
		t.Fatal(err)
	}
	if st.Count != 50 || st.Remaining != 0 || !st.HasExceeded {
		t.Fatalf("unexpected status at limit: %+v", st)
	}
}

func TestTracker_RejectsBeyondLimitWithoutWrite(t *testing.T) {
	store := newMemStore()
	store.records["user-1"] = Record{Count: 50, Date: "2024-01-01", UserID: "user-1"}
	tracker := newTestTracker(store, "2024-01-01")
	ctx := context.Background()

	res, err := tracker.Increment(ctx, "user-1")
	if !errors.Is(err, ErrLimitExceeded) {
		t.Fatalf("expected ErrLimitExceeded, got %v", err)
	}
	if res.Success || res.Count != 50 || res.Remaining != 0 || !res.HasExceeded {
		t.Fatalf("unexpected rejection payload: %+v", res)
	}
	if store.saves != 0 {
		t.Fatalf("rejected increment must not write, saves=%d", store.saves)
	}

	st, err := tracker.Status(ctx, "user-1")
	if err != nil {
		t.Fatal(err)
	}
	if st.Count != 50 {
		t.Fatalf("expected count to stay at 50, got %d", st.Count)
	}
}

func TestTracker_StaleDateReadsAsZero(t *testing.T) {
	store := newMemStore()
	store.records["user-1"] = Record{Count: 50, Date: "2024-01-01", UserID: "user-1"}
	tracker := newTestTracker(store, "2024-01-02")
	ctx := context.Background()

	st, err := tracker.Status(ctx, "user-1")
	if err != nil {
		t.Fatal(err)
	}
	want := Status{UserID: "user-1", Count: 0, Limit: 50, Remaining: 50, HasExceeded: false, Date: "2024-01-02"}
	if st != want {
		t.Fatalf("got %+v, want %+v", st, want)
	}
	if store.saves != 0 {
		t.Fatalf("status must be read-only, saves=%d", store.saves)
	}
	if store.records["user-1"].Date != "2024-01-01" {
		t.Fatalf("status must not persist the logical reset")
	}

	res, err := tracker.Increment(ctx, "user-1")
	if err != nil {
		t.Fatal(err)
	}
	if !res.Success || res.Count != 1 || res.Remaining != 49 {
		t.Fatalf("unexpected increment after rollover: %+v", res)
	}
	if got := store.records["user-1"]; got != (Record{Count: 1, Date: "2024-01-02", UserID: "user-1"}) {
		t.Fatalf("unexpected persisted record: %+v", got)
	}
}

func TestTracker_Reset(t *testing.T) {
	store := newMemStore()
	store.records["user-1"] = Record{Count: 37, Date: "2024-03-05", UserID: "user-1"}
	tracker := newTestTracker(store, "2024-03-05")
	ctx := context.Background()

	st, err := tracker.Reset(ctx, "user-1")
	if err != nil {
		t.Fatal(err)
	}
	if st.Count != 0 || st.Remaining != 50 || st.Date != "2024-03-05" {
		t.Fatalf("unexpected reset status: %+v", st)
	}

	after, err := tracker.Status(ctx, "user-1")
	if err != nil {
		t.Fatal(err)
	}
	if after.Count != 0 {
		t.Fatalf("expected count 0 after reset, got %d", after.Count)
	}
}

func TestTracker_Unauthenticated(t *testing.T) {
	tracker := newTestTracker(newMemStore(), "2024-01-01")
	ctx := context.Background()

	if _, err := tracker.Status(ctx, ""); !errors.Is(err, ErrUnauthenticated) {
		t.Errorf("Status: expected ErrUnauthenticated, got %v", err)
	}
	if _, err := tracker.Increment(ctx, ""); !errors.Is(err, ErrUnauthenticated) {
		t.Errorf("Increment: expected ErrUnauthenticated, got %v", err)
	}
	if _, err := tracker.Reset(ctx, ""); !errors.Is(err, ErrUnauthenticated) {
		t.Errorf("Reset: expected ErrUnauthenticated, got %v", err)
	}
}

func TestTracker_StoreErrors(t *testing.T) {
	boom := errors.New("backend down")
	ctx := context.Background()

	t.Run("load", func(t *testing.T) {
		store := newMemStore()
		store.loadErr = boom
		tracker := newTestTracker(store, "2024-01-01")
		if _, err := tracker.Increment(ctx, "user-1"); !errors.Is(err, boom) {
			t.Fatalf("expected wrapped load error, got %v", err)
		}
	})

	t.Run("save", func(t *testing.T) {
		store := newMemStore()
		store.saveErr = boom
		tracker := newTestTracker(store, "2024-01-01")
		res, err := tracker.Increment(ctx, "user-1")
		if !errors.Is(err, boom) {
			t.Fatalf("expected wrapped save error, got %v", err)
		}
		if res.Success {
			t.Fatalf("failed save must not report success")
		}
	})
}

func TestTracker_StrictMode(t *testing.T) {
	store := &atomicMemStore{memStore: newMemStore()}
	store.records["user-1"] = Record{Count: 49, Date: "2024-01-01", UserID: "user-1"}
	tracker := newTestTracker(store, "2024-01-01", WithStrict(true))
	ctx := context.Background()

	if !tracker.Strict() {
		t.Fatal("expected strict mode when store supports atomic increments")
	}

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		accepted int
	)
	for range 10 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := tracker.Increment(ctx, "user-1")
			if err == nil && res.Success {
				mu.Lock()
				accepted++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if accepted != 1 {
		t.Fatalf("expected exactly one accepted increment, got %d", accepted)
	}
	if store.records["user-1"].Count != 50 {
		t.Fatalf("expected count 50, got %d", store.records["user-1"].Count)
	}
	if store.saves != 0 || store.atomicCalls != 10 {
		t.Fatalf("strict path must only use IncrementWithin (saves=%d atomic=%d)", store.saves, store.atomicCalls)
	}
}

func TestTracker_StrictFallsBackWithoutAtomicStore(t *testing.T) {
	tracker := newTestTracker(newMemStore(), "2024-01-01", WithStrict(true))
	if tracker.Strict() {
		t.Fatal("plain Store must not enable strict mode")
	}
}
