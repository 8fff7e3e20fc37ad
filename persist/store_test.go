package persist

import (
	"context"
	"encoding/json"
	"testing"
	"time"
)

func TestMemory_SaveLoadRoundTrip(t *testing.T) {
	store := NewMemory()
	ctx := context.Background()

	saved := Entry{
		Key:     "user_profile",
		Value:   json.RawMessage(`{"username":"priya"}`),
		SavedAt: time.Now(),
	}
	if err := store.Save(ctx, saved); err != nil {
		t.Fatalf("Save: %v", err)
	}

	entries, err := store.LoadAll(ctx)
	if err != nil {
		t.Fatalf("LoadAll: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}
	if entries[0].Key != "user_profile" {
		t.Errorf("key = %q", entries[0].Key)
	}
	if string(entries[0].Value) != `{"username":"priya"}` {
		t.Errorf("value = %s", entries[0].Value)
	}
}

func TestMemory_LoadAllDropsExpired(t *testing.T) {
	store := NewMemory()
	ctx := context.Background()

	now := time.Now()
	store.now = func() time.Time { return now }

	entries := []Entry{
		{Key: "live", Value: json.RawMessage(`1`), SavedAt: now, ExpiresAt: now.Add(time.Hour)},
		{Key: "dead", Value: json.RawMessage(`2`), SavedAt: now.Add(-2 * time.Hour), ExpiresAt: now.Add(-time.Hour)},
		{Key: "forever", Value: json.RawMessage(`3`), SavedAt: now},
	}
	for _, e := range entries {
		if err := store.Save(ctx, e); err != nil {
			t.Fatalf("Save %s: %v", e.Key, err)
		}
	}

	loaded, err := store.LoadAll(ctx)
	if err != nil {
		t.Fatalf("LoadAll: %v", err)
	}
	if len(loaded) != 2 {
		t.Fatalf("expected 2 live entries, got %d", len(loaded))
	}
	for _, e := range loaded {
		if e.Key == "dead" {
			t.Error("expired entry survived LoadAll")
		}
	}

	// The expired row is removed from storage, not just filtered.
	if store.Has("dead") {
		t.Error("expired entry still in backing store")
	}
}

func TestMemory_DeleteAndWipe(t *testing.T) {
	store := NewMemory()
	ctx := context.Background()

	for _, key := range []string{"a", "b", "c"} {
		if err := store.Save(ctx, Entry{Key: key, Value: json.RawMessage(`0`), SavedAt: time.Now()}); err != nil {
			t.Fatalf("Save: %v", err)
		}
	}

	if err := store.Delete(ctx, "b"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if store.Has("b") {
		t.Error("deleted key still present")
	}
	if err := store.Delete(ctx, "missing"); err != nil {
		t.Errorf("deleting absent key should not error: %v", err)
	}

	if err := store.Wipe(ctx); err != nil {
		t.Fatalf("Wipe: %v", err)
	}
	if store.Len() != 0 {
		t.Errorf("expected empty store after wipe, got %d entries", store.Len())
	}
}

func TestEntry_Expired(t *testing.T) {
	now := time.Now()

	tests := []struct {
		name  string
		entry Entry
		want  bool
	}{
		{name: "no TTL", entry: Entry{}, want: false},
		{name: "future expiry", entry: Entry{ExpiresAt: now.Add(time.Minute)}, want: false},
		{name: "past expiry", entry: Entry{ExpiresAt: now.Add(-time.Minute)}, want: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.entry.Expired(now); got != tt.want {
				t.Errorf("Expired() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestMemory_Load(t *testing.T) {
	store := NewMemory()
	ctx := context.Background()
	now := time.Now()

	if err := store.Save(ctx, Entry{Key: "live", Value: json.RawMessage(`1`), SavedAt: now, ExpiresAt: now.Add(time.Minute)}); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if err := store.Save(ctx, Entry{Key: "dead", Value: json.RawMessage(`2`), SavedAt: now.Add(-time.Hour), ExpiresAt: now.Add(-time.Minute)}); err != nil {
		t.Fatalf("Save: %v", err)
	}

	entry, ok, err := store.Load(ctx, "live")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !ok || string(entry.Value) != `1` {
		t.Fatalf("Load(live) = %v, %v", entry, ok)
	}

	if _, ok, err := store.Load(ctx, "missing"); err != nil || ok {
		t.Fatalf("Load(missing) = %v, %v", ok, err)
	}

	// An expired entry reads as absent and is evicted from the store.
	if _, ok, err := store.Load(ctx, "dead"); err != nil || ok {
		t.Fatalf("Load(dead) = %v, %v", ok, err)
	}
	if store.Has("dead") {
		t.Error("expired entry survived Load")
	}
}
