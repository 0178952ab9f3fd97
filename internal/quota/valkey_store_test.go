package quota

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/valkey-io/valkey-go"
)

func newTestValkeyStore(t *testing.T) (*ValkeyStore, *miniredis.Miniredis) {
	t.Helper()
	mini := miniredis.RunT(t)
	client, err := valkey.NewClient(valkey.ClientOption{
		InitAddress:  []string{mini.Addr()},
		DisableCache: true,
	})
	if err != nil {
		t.Fatalf("valkey client: %v", err)
	}
	t.Cleanup(client.Close)
	return NewValkeyStore(client), mini
}

func TestValkeyStore_LoadMissing(t *testing.T) {
	store, _ := newTestValkeyStore(t)

	rec, err := store.Load(context.Background(), "nobody")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec != nil {
		t.Fatalf("expected nil record, got %+v", rec)
	}
}

func TestValkeyStore_SaveAndLoad(t *testing.T) {
	store, mini := newTestValkeyStore(t)
	ctx := context.Background()

	want := Record{Count: 7, Date: "2024-05-01", UserID: "user-1"}
	if err := store.Save(ctx, "user-1", want); err != nil {
		t.Fatalf("save: %v", err)
	}

	got, err := store.Load(ctx, "user-1")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got == nil || *got != want {
		t.Fatalf("got %+v, want %+v", got, want)
	}
	if ttl := mini.TTL(valkeyKeyPrefix + "user-1"); ttl != valkeyRecordTTL {
		t.Fatalf("unexpected ttl: %v", ttl)
	}
}

func TestValkeyStore_CorruptValueReadsAsAbsent(t *testing.T) {
	store, mini := newTestValkeyStore(t)
	if err := mini.Set(valkeyKeyPrefix+"user-1", "{not json"); err != nil {
		t.Fatal(err)
	}

	rec, err := store.Load(context.Background(), "user-1")
	if err != nil || rec != nil {
		t.Fatalf("expected (nil, nil), got (%+v, %v)", rec, err)
	}
}

func TestValkeyStore_IncrementWithin(t *testing.T) {
	store, _ := newTestValkeyStore(t)
	ctx := context.Background()

	for n := 1; n <= 3; n++ {
		rec, ok, err := store.IncrementWithin(ctx, "user-1", "2024-05-01", 3)
		if err != nil {
			t.Fatalf("increment %d: %v", n, err)
		}
		if !ok || rec.Count != n {
			t.Fatalf("increment %d: ok=%v rec=%+v", n, ok, rec)
		}
	}

	rec, ok, err := store.IncrementWithin(ctx, "user-1", "2024-05-01", 3)
	if err != nil {
		t.Fatal(err)
	}
	if ok || rec.Count != 3 {
		t.Fatalf("expected rejection at 3, got ok=%v rec=%+v", ok, rec)
	}

	stored, err := store.Load(ctx, "user-1")
	if err != nil {
		t.Fatal(err)
	}
	if stored == nil || stored.Count != 3 || stored.Date != "2024-05-01" || stored.UserID != "user-1" {
		t.Fatalf("unexpected stored record: %+v", stored)
	}

	// 날짜가 바뀌면 1부터 다시 시작
	rec, ok, err = store.IncrementWithin(ctx, "user-1", "2024-05-02", 3)
	if err != nil {
		t.Fatal(err)
	}
	if !ok || rec.Count != 1 || rec.Date != "2024-05-02" {
		t.Fatalf("expected rollover to count 1, got ok=%v rec=%+v", ok, rec)
	}
}

func TestValkeyStore_WithTracker(t *testing.T) {
	store, _ := newTestValkeyStore(t)
	tracker := newTestTracker(store, "2024-01-02", WithStrict(true))
	ctx := context.Background()

	if err := store.Save(ctx, "user-1", Record{Count: 50, Date: "2024-01-01", UserID: "user-1"}); err != nil {
		t.Fatal(err)
	}

	st, err := tracker.Status(ctx, "user-1")
	if err != nil {
		t.Fatal(err)
	}
	if st.Count != 0 || st.Remaining != 50 {
		t.Fatalf("unexpected status: %+v", st)
	}

	res, err := tracker.Increment(ctx, "user-1")
	if err != nil {
		t.Fatal(err)
	}
	if !res.Success || res.Count != 1 || res.Remaining != 49 {
		t.Fatalf("unexpected increment: %+v", res)
	}
}
