package pdfrelay

import (
	"fmt"
	"net/http"
	"net/url"
	"time"
)

// WithBaseURL sets the server base URL endpoints are resolved against.
func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		c.baseURL = baseURL
	}
}

// WithHTTPClient sets a custom HTTP transport. The client never sets a
// transport-level timeout; each attempt carries its own cancellation scope.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		c.httpClient = client
	}
}

// WithConfig replaces the startup configuration wholesale.
func WithConfig(cfg Config) Option {
	return func(c *Client) {
		c.config = newConfigStore(cfg)
	}
}

// WithTimeout sets the per-attempt timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.config.Apply(ConfigPatch{Timeout: &d})
	}
}

// WithMaxRetries sets the maximum number of retry attempts.
func WithMaxRetries(n int) Option {
	return func(c *Client) {
		c.config.Apply(ConfigPatch{MaxRetries: &n})
	}
}

// WithBaseRetryDelay sets the delay before the first retry; it doubles on
// each subsequent retry.
func WithBaseRetryDelay(d time.Duration) Option {
	return func(c *Client) {
		c.config.Apply(ConfigPatch{BaseRetryDelay: &d})
	}
}

// WithCacheTTL sets the servable age of cached envelopes and the sweep
// period.
func WithCacheTTL(d time.Duration) Option {
	return func(c *Client) {
		c.config.Apply(ConfigPatch{CacheTTL: &d})
	}
}

// WithDefaultHeaders replaces the headers attached to every request.
func WithDefaultHeaders(headers map[string]string) Option {
	return func(c *Client) {
		c.config.Apply(ConfigPatch{DefaultHeaders: headers})
	}
}

// WithQueueGap sets the minimum delay between consecutive serial queue
// items.
func WithQueueGap(d time.Duration) Option {
	return func(c *Client) {
		c.queueGap = d
	}
}

// WithCSRFToken seeds the credential provider with the page-embedded token.
// Subsequent refreshes come from response headers only.
func WithCSRFToken(token string) Option {
	return func(c *Client) {
		c.seedToken = token
	}
}

// WithAPIKeyFunc sets the read-only lookup resolving the API key from the
// external session object on every outgoing request.
func WithAPIKeyFunc(fn APIKeyFunc) Option {
	return func(c *Client) {
		c.apiKeyFunc = fn
	}
}

// WithCustomCache sets a custom cache implementation.
func WithCustomCache(cache Cache) Option {
	return func(c *Client) {
		c.cache = cache
	}
}

// WithCacheKeyFunc sets a custom cache key function.
func WithCacheKeyFunc(fn func(method, url string) string) Option {
	return func(c *Client) {
		c.cacheKeyFunc = fn
	}
}

// WithCacheCondition sets a custom cache eligibility gate.
func WithCacheCondition(fn CacheCondition) Option {
	return func(c *Client) {
		c.cacheCondition = fn
	}
}

// WithRetryClassifier overrides the canonical failure classification. The
// default retries timeouts, opaque network failures and 5xx only.
func WithRetryClassifier(fn RetryClassifier) Option {
	return func(c *Client) {
		c.classify = fn
	}
}

// WithCircuitBreaker enables the circuit breaker.
func WithCircuitBreaker(config CircuitBreakerConfig) Option {
	return func(c *Client) {
		c.breaker = NewCircuitBreaker(config)
	}
}

// WithDeduplication enables coalescing of identical in-flight reads.
func WithDeduplication() Option {
	return func(c *Client) {
		if c.dedup == nil {
			c.dedup = newDeduplicator(nil, nil)
		}
	}
}

// WithDeduplicationKeyFunc sets a custom deduplication key function.
func WithDeduplicationKeyFunc(fn DedupKeyFunc) Option {
	return func(c *Client) {
		if c.dedup == nil {
			c.dedup = newDeduplicator(fn, nil)
			return
		}
		c.dedup.keyFunc = fn
	}
}

// WithDeduplicationCondition sets a custom deduplication eligibility gate.
func WithDeduplicationCondition(fn DedupCondition) Option {
	return func(c *Client) {
		if c.dedup == nil {
			c.dedup = newDeduplicator(nil, fn)
			return
		}
		c.dedup.condition = fn
	}
}

// WithMetrics enables Prometheus metrics collection on the default
// registerer.
func WithMetrics() Option {
	return func(c *Client) {
		c.metrics = NewMetricsCollector()
	}
}

// WithMetricsCollector sets a custom metrics collector.
func WithMetricsCollector(collector *MetricsCollector) Option {
	return func(c *Client) {
		c.metrics = collector
	}
}

// WithDebug enables debug logging with the default configuration.
func WithDebug() Option {
	return func(c *Client) {
		if c.debug == nil {
			c.debug = DefaultDebugConfig()
		}
		c.debug.Enabled = true
	}
}

// WithDebugConfig sets a custom debug configuration.
func WithDebugConfig(config *DebugConfig) Option {
	return func(c *Client) {
		c.debug = config
	}
}

// WithLogger sets a custom logger for debug output.
func WithLogger(logger Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithSimpleLogger enables debug logging with a console logger.
func WithSimpleLogger() Option {
	return func(c *Client) {
		if c.debug == nil {
			c.debug = DefaultDebugConfig()
		}
		c.debug.Enabled = true
		c.logger = NewSimpleLogger()
	}
}

// WithRequestIDGenerator sets a custom function for generating request IDs.
func WithRequestIDGenerator(gen func() string) Option {
	return func(c *Client) {
		if c.debug == nil {
			c.debug = DefaultDebugConfig()
		}
		c.debug.RequestIDGen = gen
	}
}

// ValidateConfiguration validates the client configuration and returns an
// error if invalid.
func (c *Client) ValidateConfiguration() error {
	var errors []string

	errors = append(errors, c.validateBaseURL()...)
	errors = append(errors, c.validateRetryConfig()...)
	errors = append(errors, c.validateQueueConfig()...)
	errors = append(errors, c.validateDebugConfig()...)
	errors = append(errors, c.validateExtremeValues()...)

	if len(errors) > 0 {
		return &ClientError{
			Type:    ErrorTypeValidation,
			Message: "configuration validation failed",
			Cause:   fmt.Errorf("%w: %v", ErrInvalidConfig, errors),
		}
	}
	return nil
}

func (c *Client) validateBaseURL() []string {
	var errors []string

	if c.baseURL == "" {
		errors = append(errors, "baseURL must not be empty")
		return errors
	}
	if u, err := url.Parse(c.baseURL); err != nil || !u.IsAbs() {
		errors = append(errors, "baseURL must be an absolute URL")
	}
	if c.httpClient == nil {
		errors = append(errors, "HTTP client cannot be nil")
	}
	return errors
}

func (c *Client) validateRetryConfig() []string {
	var errors []string
	cfg := c.config.Snapshot()

	if cfg.MaxRetries < 0 {
		errors = append(errors, "maxRetries must be non-negative")
	}
	if cfg.BaseRetryDelay <= 0 {
		errors = append(errors, "baseRetryDelay must be positive")
	}
	if cfg.Timeout <= 0 {
		errors = append(errors, "timeout must be positive")
	}
	if cfg.CacheTTL <= 0 {
		errors = append(errors, "cacheTTL must be positive")
	}
	return errors
}

func (c *Client) validateQueueConfig() []string {
	var errors []string

	if c.queueGap < 0 {
		errors = append(errors, "queueGap must be non-negative")
	}
	return errors
}

func (c *Client) validateDebugConfig() []string {
	var errors []string

	if c.debug != nil && c.debug.Enabled {
		if c.debug.RequestIDGen == nil {
			errors = append(errors, "debug RequestIDGen must be set when debug is enabled")
		}
		if c.logger == nil {
			errors = append(errors, "logger must be set when debug is enabled")
		}
	}
	return errors
}

func (c *Client) validateExtremeValues() []string {
	var errors []string
	cfg := c.config.Snapshot()

	if cfg.MaxRetries > 100 {
		errors = append(errors, "maxRetries > 100 may cause excessive resource usage")
	}
	if cfg.Timeout > 10*time.Minute {
		errors = append(errors, "timeout > 10m may cause requests to hang for too long")
	}
	if cfg.BaseRetryDelay > 10*time.Minute {
		errors = append(errors, "baseRetryDelay > 10m may cause very long delays")
	}
	if cfg.CacheTTL > 24*time.Hour {
		errors = append(errors, "cacheTTL > 24h may cause stale data issues")
	}
	return errors
}
