package ttlcache

import (
	"context"
	"errors"
	"testing"
	"time"

	"danmu/internal/kvstore"
	"danmu/internal/logging"
)

type fakeClock struct{ now time.Time }

func (f *fakeClock) Now() time.Time { return f.now }

func (f *fakeClock) Advance(d time.Duration) { f.now = f.now.Add(d) }

func TestGetExpiresStrictlyAfterTTL(t *testing.T) {
	clock := &fakeClock{now: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	ttl := 5 * time.Minute
	cache := New[string](ttl, WithClock[string](clock.Now))
	cache.Set("k", "v")

	clock.Advance(ttl - time.Millisecond)
	if v, ok := cache.Get("k"); !ok || v != "v" {
		t.Fatalf("expected hit before TTL, got %q %v", v, ok)
	}
	clock.Advance(time.Millisecond)
	if _, ok := cache.Get("k"); !ok {
		t.Fatal("expected hit exactly at TTL")
	}
	clock.Advance(time.Millisecond)
	if _, ok := cache.Get("k"); ok {
		t.Fatal("expected miss after TTL")
	}
	if cache.Len() != 0 {
		t.Fatalf("expected expired entry deleted, len=%d", cache.Len())
	}
}

func TestZeroTTLDisablesCaching(t *testing.T) {
	cache := New[int](0)
	cache.Set("k", 1)
	if _, ok := cache.Get("k"); ok {
		t.Fatal("expected miss with zero TTL")
	}
	if cache.Len() != 0 {
		t.Fatal("expected nothing stored")
	}
}

func TestDeleteAndPurge(t *testing.T) {
	cache := New[int](time.Minute)
	cache.Set("a", 1)
	cache.Set("b", 2)
	cache.Delete("a")
	if _, ok := cache.Get("a"); ok {
		t.Fatal("expected deleted key to miss")
	}
	cache.Purge()
	if cache.Len() != 0 {
		t.Fatal("expected purge to clear entries")
	}
}

func TestBackendRoundTrip(t *testing.T) {
	clock := &fakeClock{now: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	store := kvstore.NewMemory()
	first := New[[]string](time.Minute,
		WithClock[[]string](clock.Now),
		WithBackend[[]string](store, "search:"),
		WithLogger[[]string](logging.NewNop()))
	first.Set("show", []string{"a", "b"})

	second := New[[]string](time.Minute,
		WithClock[[]string](clock.Now),
		WithBackend[[]string](store, "search:"))
	got, ok := second.Get("show")
	if !ok || len(got) != 2 || got[1] != "b" {
		t.Fatalf("expected value from backend, got %v %v", got, ok)
	}

	clock.Advance(2 * time.Minute)
	third := New[[]string](time.Minute,
		WithClock[[]string](clock.Now),
		WithBackend[[]string](store, "search:"))
	if _, ok := third.Get("show"); ok {
		t.Fatal("expected backend entry to expire")
	}
	if count, _ := store.Count(context.Background()); count != 0 {
		t.Fatalf("expected expired backend entry removed, count=%d", count)
	}
}

func TestBackendCorruptionIsMiss(t *testing.T) {
	store := kvstore.NewMemory()
	if _, err := store.Put(context.Background(), "c:k", []byte("{broken")); err != nil {
		t.Fatalf("Put: %v", err)
	}
	cache := New[int](time.Minute, WithBackend[int](store, "c:"), WithLogger[int](logging.NewNop()))
	if _, ok := cache.Get("k"); ok {
		t.Fatal("expected corrupt entry to be a miss")
	}
}

type failingStore struct{ kvstore.Store }

func (failingStore) Put(context.Context, string, []byte) (bool, error) {
	return false, errors.New("disk full")
}

func (failingStore) Get(context.Context, string) (kvstore.Record, bool, error) {
	return kvstore.Record{}, false, errors.New("io error")
}

func (failingStore) Delete(context.Context, string) error {
	return errors.New("io error")
}

func TestBackendFailuresAreIgnored(t *testing.T) {
	cache := New[int](time.Minute, WithBackend[int](failingStore{}, ""), WithLogger[int](logging.NewNop()))
	cache.Set("k", 3)
	if v, ok := cache.Get("k"); !ok || v != 3 {
		t.Fatalf("expected in-memory hit despite backend failure, got %d %v", v, ok)
	}
	if _, ok := cache.Get("other"); ok {
		t.Fatal("expected miss when backend read fails")
	}
}
