package pdfrelay

import (
	"net/http"
	"testing"
	"time"
)

func fixedTTLCache(ttl time.Duration) *InMemoryCache {
	return NewInMemoryCache(func() time.Duration { return ttl })
}

func testEnvelope(status int) *Envelope {
	return &Envelope{
		Success:    status >= 200 && status < 300,
		Data:       "body",
		Status:     status,
		StatusText: http.StatusText(status),
		Headers:    http.Header{"Content-Type": []string{"text/plain"}},
	}
}

func TestCacheStoreAndLookup(t *testing.T) {
	cache := fixedTTLCache(time.Minute)
	key := DefaultCacheKeyFunc("GET", "https://api.test/status")

	cache.Store(key, testEnvelope(200), 0)

	entry, found := cache.Lookup(key)
	if !found {
		t.Fatal("expected cache hit")
	}
	if entry.Envelope.Status != 200 {
		t.Errorf("Expected status 200, got %d", entry.Envelope.Status)
	}
}

func TestCacheLookupMissWhenNeverStored(t *testing.T) {
	cache := fixedTTLCache(time.Minute)

	if _, found := cache.Lookup("GET:https://api.test/none"); found {
		t.Error("expected miss for unknown key")
	}
}

func TestCacheStaleEntrySkippedNotDeleted(t *testing.T) {
	cache := fixedTTLCache(10 * time.Millisecond)
	cache.Store("key", testEnvelope(200), 0)

	time.Sleep(25 * time.Millisecond)

	if _, found := cache.Lookup("key"); found {
		t.Error("stale entry must not be served")
	}
	// Lookup has no write side effects; removal is the sweep's job.
	if cache.Len() != 1 {
		t.Errorf("stale entry should remain until sweep, len=%d", cache.Len())
	}
}

func TestCacheSweepRemovesStaleOnly(t *testing.T) {
	cache := fixedTTLCache(30 * time.Millisecond)
	cache.Store("old", testEnvelope(200), 0)

	time.Sleep(40 * time.Millisecond)
	cache.Store("fresh", testEnvelope(200), 0)

	cache.Sweep()

	if cache.Len() != 1 {
		t.Fatalf("Expected 1 entry after sweep, got %d", cache.Len())
	}
	if _, found := cache.Lookup("fresh"); !found {
		t.Error("fresh entry removed by sweep")
	}
}

func TestCacheStoreOverwrites(t *testing.T) {
	cache := fixedTTLCache(time.Minute)
	cache.Store("key", testEnvelope(200), 0)
	cache.Store("key", testEnvelope(201), 0)

	entry, found := cache.Lookup("key")
	if !found {
		t.Fatal("expected cache hit")
	}
	if entry.Envelope.Status != 201 {
		t.Errorf("Expected overwritten status 201, got %d", entry.Envelope.Status)
	}
}

func TestCacheClearPattern(t *testing.T) {
	cache := fixedTTLCache(time.Minute)
	cache.Store("GET:https://api.test/jobs/1/status", testEnvelope(200), 0)
	cache.Store("GET:https://api.test/jobs/2/status", testEnvelope(200), 0)
	cache.Store("GET:https://api.test/me", testEnvelope(200), 0)

	cache.Clear("/jobs/")

	if cache.Len() != 1 {
		t.Fatalf("Expected 1 entry after pattern clear, got %d", cache.Len())
	}
	if _, found := cache.Lookup("GET:https://api.test/me"); !found {
		t.Error("unmatched entry removed by pattern clear")
	}
}

func TestCacheClearAll(t *testing.T) {
	cache := fixedTTLCache(time.Minute)
	cache.Store("a", testEnvelope(200), 0)
	cache.Store("b", testEnvelope(200), 0)

	cache.Clear("")

	if cache.Len() != 0 {
		t.Errorf("Expected empty cache, got %d entries", cache.Len())
	}
}

func TestCacheEntryTTLOverride(t *testing.T) {
	cache := fixedTTLCache(time.Hour)
	cache.Store("short", testEnvelope(200), 10*time.Millisecond)

	time.Sleep(25 * time.Millisecond)

	if _, found := cache.Lookup("short"); found {
		t.Error("entry with a short per-request TTL must expire independently")
	}
}

func TestDefaultCacheCondition(t *testing.T) {
	if !DefaultCacheCondition("GET", "https://api.test/x") {
		t.Error("GET should be cache-eligible")
	}
	if DefaultCacheCondition("POST", "https://api.test/x") {
		t.Error("POST must not be cache-eligible")
	}
}
