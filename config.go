package pdfrelay

import (
	"sync"
	"time"
)

// Config holds the mutable operating parameters shared by every component.
// All fields are runtime-mutable through Client.Configure; requests already
// in flight keep the snapshot they captured at submission and are unaffected
// by later changes.
type Config struct {
	// Timeout bounds a single attempt. Each retry gets a fresh timer.
	Timeout time.Duration

	// MaxRetries is the number of retries after the first attempt, so the
	// total attempt count is MaxRetries+1.
	MaxRetries int

	// BaseRetryDelay is the delay before the first retry; it doubles on
	// every subsequent retry.
	BaseRetryDelay time.Duration

	// CacheTTL is the maximum servable age of a cached envelope and the
	// period of the background sweep.
	CacheTTL time.Duration

	// DefaultHeaders are attached to every request unless overridden.
	DefaultHeaders map[string]string
}

// ConfigPatch is a partial Config. Nil fields leave the current value
// untouched; there is no way to smuggle unknown keys in.
type ConfigPatch struct {
	Timeout        *time.Duration
	MaxRetries     *int
	BaseRetryDelay *time.Duration
	CacheTTL       *time.Duration
	DefaultHeaders map[string]string
}

// DefaultConfig returns the startup configuration.
func DefaultConfig() Config {
	return Config{
		Timeout:        30 * time.Second,
		MaxRetries:     2,
		BaseRetryDelay: time.Second,
		CacheTTL:       time.Minute,
		DefaultHeaders: map[string]string{
			"Accept": "application/json",
		},
	}
}

// mergeConfig applies the provided fields of patch onto base and returns the
// result. It is a pure function; neither argument is mutated.
func mergeConfig(base Config, patch ConfigPatch) Config {
	out := base
	out.DefaultHeaders = cloneHeaderMap(base.DefaultHeaders)
	if patch.Timeout != nil {
		out.Timeout = *patch.Timeout
	}
	if patch.MaxRetries != nil {
		out.MaxRetries = *patch.MaxRetries
	}
	if patch.BaseRetryDelay != nil {
		out.BaseRetryDelay = *patch.BaseRetryDelay
	}
	if patch.CacheTTL != nil {
		out.CacheTTL = *patch.CacheTTL
	}
	if patch.DefaultHeaders != nil {
		out.DefaultHeaders = cloneHeaderMap(patch.DefaultHeaders)
	}
	return out
}

func cloneHeaderMap(m map[string]string) map[string]string {
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// configStore guards the shared configuration. Components never hold a
// direct reference to the Config; they take a snapshot per request.
type configStore struct {
	mu  sync.RWMutex
	cfg Config
}

func newConfigStore(cfg Config) *configStore {
	cfg.DefaultHeaders = cloneHeaderMap(cfg.DefaultHeaders)
	return &configStore{cfg: cfg}
}

// Snapshot returns a defensive copy of the current configuration.
func (s *configStore) Snapshot() Config {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := s.cfg
	out.DefaultHeaders = cloneHeaderMap(s.cfg.DefaultHeaders)
	return out
}

// Apply shallow-merges the provided fields into the current configuration.
// The change is visible to all subsequently issued requests.
func (s *configStore) Apply(patch ConfigPatch) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cfg = mergeConfig(s.cfg, patch)
}
