package client

import (
	"testing"
)

func TestStatementCachePutGet(t *testing.T) {
	cache := NewStatementCache(3)

	key := Fingerprint("SELECT 1")
	cache.Put(key, 7)

	id, ok := cache.Get(key)
	if !ok || id != 7 {
		t.Fatalf("expected (7, true), got (%d, %v)", id, ok)
	}
	if _, ok := cache.Get(Fingerprint("SELECT 2")); ok {
		t.Error("unexpected hit for an unknown statement")
	}
}

func TestStatementCacheEvictsLeastRecentlyUsed(t *testing.T) {
	cache := NewStatementCache(2)

	first := Fingerprint("SELECT 1")
	second := Fingerprint("SELECT 2")
	third := Fingerprint("SELECT 3")

	cache.Put(first, 1)
	cache.Put(second, 2)

	// Touch the first entry so the second becomes the eviction victim.
	if _, ok := cache.Get(first); !ok {
		t.Fatal("expected a hit for the first entry")
	}

	cache.Put(third, 3)

	if _, ok := cache.Get(second); ok {
		t.Error("the least recently used entry should have been evicted")
	}
	if _, ok := cache.Get(first); !ok {
		t.Error("the recently used entry should survive")
	}
	if _, ok := cache.Get(third); !ok {
		t.Error("the new entry should be present")
	}
	if got := cache.Len(); got != 2 {
		t.Errorf("expected 2 entries, got %d", got)
	}
}

func TestStatementCacheUpdateExisting(t *testing.T) {
	cache := NewStatementCache(2)

	key := Fingerprint("SELECT 1")
	cache.Put(key, 1)
	cache.Put(key, 9)

	if id, _ := cache.Get(key); id != 9 {
		t.Errorf("expected updated id 9, got %d", id)
	}
	if got := cache.Len(); got != 1 {
		t.Errorf("expected 1 entry, got %d", got)
	}
}

func TestFingerprintIsStable(t *testing.T) {
	if Fingerprint("SELECT 1") != Fingerprint("SELECT 1") {
		t.Error("identical texts must hash identically")
	}
	if Fingerprint("SELECT 1") == Fingerprint("SELECT 2") {
		t.Error("distinct texts should not collide")
	}
}
