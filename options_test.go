package pdfrelay

import (
	"errors"
	"strings"
	"testing"
	"time"
)

func TestValidateConfigurationDefaultsAreValid(t *testing.T) {
	client := New()
	defer client.Close()

	if !client.IsValid() {
		t.Errorf("default configuration must validate, got %v", client.ValidationError())
	}
}

func TestValidateConfigurationRejectsBadValues(t *testing.T) {
	tests := []struct {
		name    string
		options []Option
		want    string
	}{
		{"empty base URL", []Option{WithBaseURL("")}, "baseURL must not be empty"},
		{"relative base URL", []Option{WithBaseURL("not-a-url")}, "absolute URL"},
		{"negative retries", []Option{WithMaxRetries(-1)}, "maxRetries must be non-negative"},
		{"zero base delay", []Option{WithBaseRetryDelay(0)}, "baseRetryDelay must be positive"},
		{"zero timeout", []Option{WithTimeout(0)}, "timeout must be positive"},
		{"zero cache TTL", []Option{WithCacheTTL(0)}, "cacheTTL must be positive"},
		{"negative queue gap", []Option{WithQueueGap(-time.Second)}, "queueGap must be non-negative"},
		{"excessive retries", []Option{WithMaxRetries(101)}, "maxRetries > 100"},
		{"excessive timeout", []Option{WithTimeout(11 * time.Minute)}, "timeout > 10m"},
		{"debug without logger", []Option{WithDebug()}, "logger must be set"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := New(tt.options...)
			defer client.Close()

			if client.IsValid() {
				t.Fatal("expected validation to fail")
			}
			err := client.ValidationError()
			if !errors.Is(err, ErrInvalidConfig) {
				t.Errorf("Expected ErrInvalidConfig in chain, got %v", err)
			}
			var ce *ClientError
			if !errors.As(err, &ce) || ce.Type != ErrorTypeValidation {
				t.Fatalf("Expected validation ClientError, got %v", err)
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("Expected message containing %q, got %q", tt.want, err.Error())
			}
		})
	}
}

func TestValidateConfigurationAccumulatesErrors(t *testing.T) {
	client := New(WithBaseURL(""), WithMaxRetries(-1))
	defer client.Close()

	err := client.ValidationError()
	if err == nil {
		t.Fatal("expected validation failure")
	}
	msg := err.Error()
	if !strings.Contains(msg, "baseURL") || !strings.Contains(msg, "maxRetries") {
		t.Errorf("Expected both problems reported, got %q", msg)
	}
}

func TestOptionsApplyToConfig(t *testing.T) {
	client := New(
		WithTimeout(5*time.Second),
		WithMaxRetries(4),
		WithBaseRetryDelay(250*time.Millisecond),
		WithCacheTTL(10*time.Second),
		WithDefaultHeaders(map[string]string{"Accept": "application/pdf"}),
	)
	defer client.Close()

	cfg := client.Config()
	if cfg.Timeout != 5*time.Second {
		t.Errorf("Expected timeout 5s, got %v", cfg.Timeout)
	}
	if cfg.MaxRetries != 4 {
		t.Errorf("Expected maxRetries 4, got %d", cfg.MaxRetries)
	}
	if cfg.BaseRetryDelay != 250*time.Millisecond {
		t.Errorf("Expected baseRetryDelay 250ms, got %v", cfg.BaseRetryDelay)
	}
	if cfg.CacheTTL != 10*time.Second {
		t.Errorf("Expected cacheTTL 10s, got %v", cfg.CacheTTL)
	}
	if cfg.DefaultHeaders["Accept"] != "application/pdf" {
		t.Errorf("Expected replaced default headers, got %v", cfg.DefaultHeaders)
	}
}

func TestWithRequestIDGenerator(t *testing.T) {
	client := New(
		WithSimpleLogger(),
		WithRequestIDGenerator(func() string { return "fixed-id" }),
	)
	defer client.Close()

	if got := client.debug.RequestIDGen(); got != "fixed-id" {
		t.Errorf("Expected custom request ID generator, got %q", got)
	}
}

func TestWithDeduplicationGuardsCreation(t *testing.T) {
	keyFunc := func(method, url string) string { return "k" }

	client := New(WithDeduplicationKeyFunc(keyFunc), WithDeduplication())
	defer client.Close()

	if client.dedup == nil {
		t.Fatal("expected deduplicator")
	}
	if got := client.dedup.keyFunc("GET", "u"); got != "k" {
		t.Error("WithDeduplication must not clobber a previously set key func")
	}
	if client.dedup.condition == nil {
		t.Error("unset condition must fall back to the default")
	}
}

func TestWithCustomCache(t *testing.T) {
	cache := NewInMemoryCache(func() time.Duration { return time.Minute })
	client := New(WithCustomCache(cache))
	defer client.Close()

	if client.cache != Cache(cache) {
		t.Error("custom cache not installed")
	}
}
