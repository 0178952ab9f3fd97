package quota

import (
	"context"
	"errors"
	"testing"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newTestSQLStore(t *testing.T) *SQLStore {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{Logger: logger.Discard})
	if err != nil {
		t.Fatal(err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatal(err)
	}
	sqlDB.SetMaxOpenConns(1)
	sqlDB.SetMaxIdleConns(1)
	t.Cleanup(func() {
		_ = sqlDB.Close()
	})

	store := NewSQLStore(db)
	if err := store.EnsureSchema(context.Background()); err != nil {
		t.Fatal(err)
	}
	return store
}

func TestSQLStore_SaveOverwrites(t *testing.T) {
	store := newTestSQLStore(t)
	ctx := context.Background()

	if rec, err := store.Load(ctx, "user-1"); err != nil || rec != nil {
		t.Fatalf("expected empty load, got (%+v, %v)", rec, err)
	}

	if err := store.Save(ctx, "user-1", Record{Count: 4, Date: "2024-01-01", UserID: "user-1"}); err != nil {
		t.Fatal(err)
	}
	if err := store.Save(ctx, "user-1", Record{Count: 0, Date: "2024-01-02", UserID: "user-1"}); err != nil {
		t.Fatal(err)
	}

	rec, err := store.Load(ctx, "user-1")
	if err != nil {
		t.Fatal(err)
	}
	if rec == nil || rec.Count != 0 || rec.Date != "2024-01-02" {
		t.Fatalf("expected overwritten record, got %+v", rec)
	}

	var rows int64
	if err := store.db.Model(&quotaRow{}).Count(&rows).Error; err != nil {
		t.Fatal(err)
	}
	if rows != 1 {
		t.Fatalf("expected a single live row per user, got %d", rows)
	}
}

func TestSQLStore_IncrementWithin(t *testing.T) {
	store := newTestSQLStore(t)
	ctx := context.Background()

	for n := 1; n <= 2; n++ {
		rec, ok, err := store.IncrementWithin(ctx, "user-1", "2024-01-01", 2)
		if err != nil {
			t.Fatalf("increment %d: %v", n, err)
		}
		if !ok || rec.Count != n {
			t.Fatalf("increment %d: ok=%v rec=%+v", n, ok, rec)
		}
	}

	rec, ok, err := store.IncrementWithin(ctx, "user-1", "2024-01-01", 2)
	if err != nil {
		t.Fatal(err)
	}
	if ok || rec.Count != 2 {
		t.Fatalf("expected rejection, got ok=%v rec=%+v", ok, rec)
	}

	rec, ok, err = store.IncrementWithin(ctx, "user-1", "2024-01-02", 2)
	if err != nil {
		t.Fatal(err)
	}
	if !ok || rec.Count != 1 || rec.Date != "2024-01-02" {
		t.Fatalf("expected rollover, got ok=%v rec=%+v", ok, rec)
	}
}

func TestSQLStore_IncrementWithinReportsOwnCount(t *testing.T) {
	store := newTestSQLStore(t)
	ctx := context.Background()
	if err := store.Save(ctx, "user-1", Record{Count: 1, Date: "2024-01-01", UserID: "user-1"}); err != nil {
		t.Fatal(err)
	}

	// 조건부 UPDATE 직후, 다른 요청의 증가가 끼어든 상황을 재현합니다.
	interleaved := false
	err := store.db.Callback().Update().After("gorm:update").Register("test:interleave", func(tx *gorm.DB) {
		if interleaved || tx.Statement.Table != "contact_view_quotas" {
			return
		}
		interleaved = true
		_ = tx.Session(&gorm.Session{NewDB: true}).
			Exec("UPDATE contact_view_quotas SET view_count = view_count + 1 WHERE user_id = ?", "user-1").Error
	})
	if err != nil {
		t.Fatal(err)
	}

	rec, ok, err := store.IncrementWithin(ctx, "user-1", "2024-01-01", 10)
	if err != nil {
		t.Fatal(err)
	}
	if !interleaved {
		t.Fatal("concurrent increment was not injected")
	}
	if !ok || rec.Count != 2 || rec.Date != "2024-01-01" || rec.UserID != "user-1" {
		t.Fatalf("expected this call's own count 2, got ok=%v rec=%+v", ok, rec)
	}

	stored, err := store.Load(ctx, "user-1")
	if err != nil {
		t.Fatal(err)
	}
	if stored.Count != 3 {
		t.Fatalf("both increments must be persisted, got %+v", stored)
	}
}

func TestSQLStore_WithTrackerRejection(t *testing.T) {
	store := newTestSQLStore(t)
	ctx := context.Background()
	if err := store.Save(ctx, "user-1", Record{Count: 50, Date: "2024-01-01", UserID: "user-1"}); err != nil {
		t.Fatal(err)
	}

	for _, strict := range []bool{false, true} {
		tracker := newTestTracker(store, "2024-01-01", WithStrict(strict))
		res, err := tracker.Increment(ctx, "user-1")
		if !errors.Is(err, ErrLimitExceeded) {
			t.Fatalf("strict=%v: expected ErrLimitExceeded, got %v", strict, err)
		}
		if res.Count != 50 || res.Success {
			t.Fatalf("strict=%v: unexpected result %+v", strict, res)
		}
	}
}
