package quota

import (
	"context"
	"errors"
	"testing"
)

type fakeMetadataSource struct {
	users    map[string]map[string]any
	replaced int
}

var errFakeUserMissing = errors.New("fake: user missing")

func (f *fakeMetadataSource) PrivateMetadata(_ context.Context, userID string) (map[string]any, error) {
	md, ok := f.users[userID]
	if !ok {
		return nil, errFakeUserMissing
	}
	return md, nil
}

func (f *fakeMetadataSource) ReplacePrivateMetadata(_ context.Context, userID string, md map[string]any) error {
	if _, ok := f.users[userID]; !ok {
		return errFakeUserMissing
	}
	f.users[userID] = md
	f.replaced++
	return nil
}

func TestMetadataStore_PreservesOtherKeys(t *testing.T) {
	source := &fakeMetadataSource{users: map[string]map[string]any{
		"user-1": {"plan": "free", "onboarded": true},
	}}
	store := NewMetadataStore(source)
	tracker := newTestTracker(store, "2024-01-01")
	ctx := context.Background()

	res, err := tracker.Increment(ctx, "user-1")
	if err != nil {
		t.Fatal(err)
	}
	if !res.Success || res.Count != 1 {
		t.Fatalf("unexpected result: %+v", res)
	}

	md := source.users["user-1"]
	if md["plan"] != "free" || md["onboarded"] != true {
		t.Fatalf("other metadata keys were dropped: %+v", md)
	}
	entry, ok := md[MetadataKey].(map[string]any)
	if !ok {
		t.Fatalf("missing %s entry: %+v", MetadataKey, md)
	}
	if entry["count"] != 1 || entry["date"] != "2024-01-01" || entry["userId"] != "user-1" {
		t.Fatalf("unexpected entry: %+v", entry)
	}
}

func TestMetadataStore_DecodesJSONNumbers(t *testing.T) {
	source := &fakeMetadataSource{users: map[string]map[string]any{
		"user-1": {MetadataKey: map[string]any{"count": float64(12), "date": "2024-01-01", "userId": "user-1"}},
	}}
	store := NewMetadataStore(source)

	rec, err := store.Load(context.Background(), "user-1")
	if err != nil {
		t.Fatal(err)
	}
	if rec == nil || rec.Count != 12 || rec.Date != "2024-01-01" {
		t.Fatalf("unexpected record: %+v", rec)
	}
}

func TestMetadataStore_MalformedEntryReadsAsAbsent(t *testing.T) {
	source := &fakeMetadataSource{users: map[string]map[string]any{
		"user-1": {MetadataKey: "garbage"},
	}}
	tracker := newTestTracker(NewMetadataStore(source), "2024-01-01")

	st, err := tracker.Status(context.Background(), "user-1")
	if err != nil {
		t.Fatal(err)
	}
	if st.Count != 0 {
		t.Fatalf("expected zero count, got %d", st.Count)
	}
}

func TestMetadataStore_SourceErrorPropagates(t *testing.T) {
	source := &fakeMetadataSource{users: map[string]map[string]any{}}
	tracker := newTestTracker(NewMetadataStore(source), "2024-01-01")

	if _, err := tracker.Status(context.Background(), "ghost"); !errors.Is(err, errFakeUserMissing) {
		t.Fatalf("expected source error, got %v", err)
	}
	if source.replaced != 0 {
		t.Fatal("no write expected")
	}
}
