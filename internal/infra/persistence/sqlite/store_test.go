package sqlite

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"

	"stablecore/pkg/domain"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := NewStore(filepath.Join(t.TempDir(), "state.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func sampleSnapshot(t *testing.T) []byte {
	t.Helper()
	state := domain.PersistedState{
		Stables: []domain.Stable{{Base: domain.Base{ID: "s1"}, Name: "Testgården"}},
		Users:   []domain.UserProfile{{Base: domain.Base{ID: "u1"}, Name: "Admin"}},
	}
	data, err := domain.EncodePersistedState(state)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	return data
}

func TestLoadEmpty(t *testing.T) {
	store := newTestStore(t)
	data, ok, err := store.Load(context.Background())
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if ok || data != nil {
		t.Fatalf("fresh database must report no snapshot, got ok=%v", ok)
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	snapshot := sampleSnapshot(t)

	if err := store.Save(ctx, snapshot); err != nil {
		t.Fatalf("save: %v", err)
	}
	got, ok, err := store.Load(ctx)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if !ok {
		t.Fatalf("saved snapshot must load")
	}

	state, err := domain.DecodePersistedState(got)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(state.Stables) != 1 || state.Stables[0].Name != "Testgården" {
		t.Fatalf("stable lost in round trip: %+v", state.Stables)
	}
	if len(state.Users) != 1 || state.Users[0].ID != "u1" {
		t.Fatalf("user lost in round trip: %+v", state.Users)
	}
}

func TestSaveUpsertsBucketRows(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	if err := store.Save(ctx, sampleSnapshot(t)); err != nil {
		t.Fatalf("first save: %v", err)
	}
	if err := store.Save(ctx, sampleSnapshot(t)); err != nil {
		t.Fatalf("second save: %v", err)
	}

	var count int
	if err := store.DB().QueryRow(`SELECT COUNT(*) FROM state`).Scan(&count); err != nil {
		t.Fatalf("count rows: %v", err)
	}
	if count != len(domain.BucketOrder) {
		t.Fatalf("want one row per bucket (%d), got %d", len(domain.BucketOrder), count)
	}

	var payload []byte
	if err := store.DB().QueryRow(`SELECT payload FROM state WHERE bucket = ?`, "stables").Scan(&payload); err != nil {
		t.Fatalf("read stables bucket: %v", err)
	}
	if !bytes.Contains(payload, []byte("Testgården")) {
		t.Fatalf("stables bucket payload unexpected: %s", payload)
	}
}

func TestReopenSeesSnapshot(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "state.db")
	ctx := context.Background()

	first, err := NewStore(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if err := first.Save(ctx, sampleSnapshot(t)); err != nil {
		t.Fatalf("save: %v", err)
	}
	if err := first.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	second, err := NewStore(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer func() { _ = second.Close() }()
	_, ok, err := second.Load(ctx)
	if err != nil {
		t.Fatalf("load after reopen: %v", err)
	}
	if !ok {
		t.Fatalf("snapshot must survive reopen")
	}
}
