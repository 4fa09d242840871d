package kvstore

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/zap"
)

type sampleRecord struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

type failingStore struct {
	err error
}

func (f failingStore) Load(context.Context, string) (string, bool, error) { return "", false, f.err }
func (f failingStore) Save(context.Context, string, string) error { return f.err }
func (f failingStore) Delete(context.Context, string) error { return f.err }

func newTestSubstrate(t *testing.T, store Store) *Substrate {
	t.Helper()
	substrate, err := NewSubstrate(store, zap.NewNop())
	if err != nil {
		t.Fatalf("unexpected substrate error: %v", err)
	}
	return substrate
}

func TestGetMissingNamespaceReturnsEmpty(t *testing.T) {
	substrate := newTestSubstrate(t, NewMemoryStore())

	values, err := Get[sampleRecord](context.Background(), substrate, NamespaceCollections)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if values == nil || len(values) != 0 {
		t.Fatalf("expected empty non-nil sequence, got %#v", values)
	}
}

func TestGetMalformedNamespaceReturnsEmpty(t *testing.T) {
	store := NewMemoryStore()
	if err := store.Save(context.Background(), NamespaceEntries.String(), "{not json"); err != nil {
		t.Fatalf("seed failed: %v", err)
	}
	substrate := newTestSubstrate(t, store)

	values, err := Get[sampleRecord](context.Background(), substrate, NamespaceEntries)
	if err != nil {
		t.Fatalf("malformed data must not raise, got %v", err)
	}
	if len(values) != 0 {
		t.Fatalf("expected empty sequence, got %d values", len(values))
	}
}

func TestSetThenGetRoundTrip(t *testing.T) {
	ctx := context.Background()
	substrate := newTestSubstrate(t, NewMemoryStore())
	want := []sampleRecord{{ID: "a", Title: "first"}, {ID: "b", Title: "second"}}

	if err := Set(ctx, substrate, NamespaceCollections, want); err != nil {
		t.Fatalf("set failed: %v", err)
	}
	got, err := Get[sampleRecord](ctx, substrate, NamespaceCollections)
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if len(got) != 2 || got[0] != want[0] || got[1] != want[1] {
		t.Fatalf("unexpected round trip result %#v", got)
	}
}

func TestRecordHelpers(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	substrate := newTestSubstrate(t, store)

	if _, found, err := GetRecord[sampleRecord](ctx, substrate, NamespaceDraft); err != nil || found {
		t.Fatalf("expected absent record, found=%v err=%v", found, err)
	}
	if err := SetRecord(ctx, substrate, NamespaceDraft, sampleRecord{ID: "draft"}); err != nil {
		t.Fatalf("set record failed: %v", err)
	}
	record, found, err := GetRecord[sampleRecord](ctx, substrate, NamespaceDraft)
	if err != nil || !found || record.ID != "draft" {
		t.Fatalf("unexpected record %#v found=%v err=%v", record, found, err)
	}
	if err := Remove(ctx, substrate, NamespaceDraft); err != nil {
		t.Fatalf("remove failed: %v", err)
	}
	if _, found, _ := GetRecord[sampleRecord](ctx, substrate, NamespaceDraft); found {
		t.Fatalf("expected record to be removed")
	}

	if err := store.Save(ctx, NamespaceDraft.String(), "]]"); err != nil {
		t.Fatalf("seed failed: %v", err)
	}
	if _, found, err := GetRecord[sampleRecord](ctx, substrate, NamespaceDraft); err != nil || found {
		t.Fatalf("corrupt record must read as absent, found=%v err=%v", found, err)
	}
	corrupt, err := IsCorrupt[sampleRecord](ctx, substrate, NamespaceDraft)
	if err != nil || !corrupt {
		t.Fatalf("expected corrupt detection, corrupt=%v err=%v", corrupt, err)
	}

	if err := store.Save(ctx, NamespaceDraft.String(), `["not","a","record"]`); err != nil {
		t.Fatalf("seed failed: %v", err)
	}
	corrupt, err = IsCorrupt[sampleRecord](ctx, substrate, NamespaceDraft)
	if err != nil || !corrupt {
		t.Fatalf("a value of the wrong shape must count as corrupt, corrupt=%v err=%v", corrupt, err)
	}
}

func TestBackendFailuresPropagate(t *testing.T) {
	backendErr := errors.New("disk on fire")
	substrate := newTestSubstrate(t, failingStore{err: backendErr})

	if _, err := Get[sampleRecord](context.Background(), substrate, NamespaceImages); !errors.Is(err, backendErr) {
		t.Fatalf("expected backend error, got %v", err)
	}
	if err := Set(context.Background(), substrate, NamespaceImages, []sampleRecord{}); !errors.Is(err, backendErr) {
		t.Fatalf("expected backend error, got %v", err)
	}
}

func TestNewSubstrateRequiresStore(t *testing.T) {
	if _, err := NewSubstrate(nil, nil); err == nil {
		t.Fatalf("expected error for missing store")
	}
}
