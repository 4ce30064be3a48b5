package pdfrelay

import (
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Timeout != 30*time.Second {
		t.Errorf("Expected timeout=30s, got %v", cfg.Timeout)
	}
	if cfg.MaxRetries != 2 {
		t.Errorf("Expected maxRetries=2, got %d", cfg.MaxRetries)
	}
	if cfg.BaseRetryDelay != time.Second {
		t.Errorf("Expected baseRetryDelay=1s, got %v", cfg.BaseRetryDelay)
	}
	if cfg.CacheTTL != time.Minute {
		t.Errorf("Expected cacheTTL=1m, got %v", cfg.CacheTTL)
	}
	if cfg.DefaultHeaders["Accept"] != "application/json" {
		t.Errorf("Expected Accept header default, got %v", cfg.DefaultHeaders)
	}
}

func TestMergeConfigPartial(t *testing.T) {
	base := DefaultConfig()
	timeout := 5 * time.Second

	merged := mergeConfig(base, ConfigPatch{Timeout: &timeout})

	if merged.Timeout != timeout {
		t.Errorf("Expected merged timeout=5s, got %v", merged.Timeout)
	}
	if merged.MaxRetries != base.MaxRetries {
		t.Errorf("Unspecified field changed: maxRetries=%d", merged.MaxRetries)
	}
	if merged.CacheTTL != base.CacheTTL {
		t.Errorf("Unspecified field changed: cacheTTL=%v", merged.CacheTTL)
	}
}

func TestMergeConfigDoesNotMutateBase(t *testing.T) {
	base := DefaultConfig()
	headers := map[string]string{"X-Custom": "1"}

	merged := mergeConfig(base, ConfigPatch{DefaultHeaders: headers})
	merged.DefaultHeaders["X-Custom"] = "2"

	if headers["X-Custom"] != "1" {
		t.Error("merge mutated the patch headers")
	}
	if _, ok := base.DefaultHeaders["X-Custom"]; ok {
		t.Error("merge mutated the base headers")
	}
}

func TestConfigStoreSnapshotIsCopy(t *testing.T) {
	store := newConfigStore(DefaultConfig())

	snap := store.Snapshot()
	snap.DefaultHeaders["Accept"] = "text/html"
	snap.MaxRetries = 99

	fresh := store.Snapshot()
	if fresh.DefaultHeaders["Accept"] != "application/json" {
		t.Error("mutating a snapshot leaked into the store")
	}
	if fresh.MaxRetries == 99 {
		t.Error("mutating a snapshot leaked into the store")
	}
}

func TestConfigStoreApplyVisibleToNextSnapshot(t *testing.T) {
	store := newConfigStore(DefaultConfig())
	before := store.Snapshot()

	retries := 7
	store.Apply(ConfigPatch{MaxRetries: &retries})

	if before.MaxRetries == 7 {
		t.Error("apply retroactively changed an existing snapshot")
	}
	if got := store.Snapshot().MaxRetries; got != 7 {
		t.Errorf("Expected maxRetries=7 after apply, got %d", got)
	}
}
