package pdfrelay

import (
	"context"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"
)

// Client is the orchestrated API client. Every request flows through the
// same pipeline: cache lookup for opted-in reads, the request executor
// wrapped by the retry controller, optional routing through the serial
// queue, credential injection before send and token refresh after receive.
// All mutable state (cache, queue, token) lives on the instance, so
// independent clients never share state. It is safe for concurrent use.
type Client struct {
	baseURL     string
	httpClient  *http.Client
	config      *configStore
	credentials *CredentialProvider
	executor    *executor
	retry       *retryController
	queue       *serialQueue
	queueGap    time.Duration

	cache          Cache
	cacheKeyFunc   func(method, url string) string
	cacheCondition CacheCondition

	dedup   *deduplicator
	breaker *CircuitBreaker

	metrics *MetricsCollector
	debug   *DebugConfig
	logger  Logger

	classify RetryClassifier

	seedToken  string
	apiKeyFunc APIKeyFunc

	stopSweep chan struct{}
	closeOnce sync.Once

	validationError error
}

// New constructs a Client using the provided functional options. A best
// effort validation is performed; call IsValid / ValidationError for
// errors. Close must be called to stop the cache sweeper and drain the
// queue.
func New(options ...Option) *Client {
	client := &Client{
		baseURL:        "http://localhost:8080",
		httpClient:     &http.Client{},
		config:         newConfigStore(DefaultConfig()),
		queueGap:       500 * time.Millisecond,
		cacheKeyFunc:   DefaultCacheKeyFunc,
		cacheCondition: DefaultCacheCondition,
		classify:       DefaultRetryClassifier,
		debug:          DefaultDebugConfig(),
		stopSweep:      make(chan struct{}),
	}

	for _, option := range options {
		option(client)
	}

	if client.credentials == nil {
		client.credentials = NewCredentialProvider(client.seedToken, client.apiKeyFunc)
	}
	if client.cache == nil {
		client.cache = NewInMemoryCache(func() time.Duration {
			return client.config.Snapshot().CacheTTL
		})
	}
	client.executor = newExecutor(client.httpClient, client.credentials)
	client.retry = newRetryController(client.classify)
	client.queue = newSerialQueue(
		func() time.Duration { return client.queueGap },
		func(depth int) { client.metrics.RecordQueueDepth("default", depth) },
	)

	if err := client.ValidateConfiguration(); err != nil {
		client.validationError = err
	}

	go client.sweeper(client.stopSweep)

	return client
}

// Close stops the background sweep and rejects further queue submissions.
// The queued item currently executing runs to settlement.
func (c *Client) Close() {
	c.closeOnce.Do(func() {
		close(c.stopSweep)
		c.queue.Close()
	})
}

// Configure shallow-merges the provided fields into the live configuration.
// The change applies to all subsequently issued requests; in-flight
// requests keep the snapshot they captured.
func (c *Client) Configure(patch ConfigPatch) {
	c.config.Apply(patch)
}

// Config returns a defensive copy of the current configuration.
func (c *Client) Config() Config {
	return c.config.Snapshot()
}

// ClearCache drops cached envelopes whose key contains pattern, or all of
// them when pattern is empty.
func (c *Client) ClearCache(pattern string) {
	c.cache.Clear(pattern)
}

// Get performs a GET request.
func (c *Client) Get(ctx context.Context, endpoint string) (*Envelope, error) {
	return c.Request(ctx, http.MethodGet, endpoint, NoBody(), nil)
}

// Post performs a POST request.
func (c *Client) Post(ctx context.Context, endpoint string, body Body) (*Envelope, error) {
	return c.Request(ctx, http.MethodPost, endpoint, body, nil)
}

// Put performs a PUT request.
func (c *Client) Put(ctx context.Context, endpoint string, body Body) (*Envelope, error) {
	return c.Request(ctx, http.MethodPut, endpoint, body, nil)
}

// Patch performs a PATCH request.
func (c *Client) Patch(ctx context.Context, endpoint string, body Body) (*Envelope, error) {
	return c.Request(ctx, http.MethodPatch, endpoint, body, nil)
}

// Delete performs a DELETE request.
func (c *Client) Delete(ctx context.Context, endpoint string) (*Envelope, error) {
	return c.Request(ctx, http.MethodDelete, endpoint, NoBody(), nil)
}

// UploadFile wraps the payload into a multipart form body, merging the
// supplementary field values into the form. The payload's progress callback
// is passed through to the transport opaquely.
func (c *Client) UploadFile(ctx context.Context, endpoint string, file *FilePayload, fields map[string]string) (*Envelope, error) {
	return c.Request(ctx, http.MethodPost, endpoint, MultipartBody(file, fields), nil)
}

// DownloadFile performs a read and returns the raw decoded body. A non-ok
// envelope becomes an error carrying the user-facing message derived from
// the body and status.
func (c *Client) DownloadFile(ctx context.Context, endpoint string) ([]byte, error) {
	env, err := c.Request(ctx, http.MethodGet, endpoint, NoBody(), nil)
	if err != nil {
		return nil, err
	}
	if !env.Success {
		errType := ErrorTypeClient
		if env.Status >= 500 {
			errType = ErrorTypeServer
		}
		return nil, &ClientError{
			Type:       errType,
			Message:    UserMessage(env, nil),
			Method:     http.MethodGet,
			URL:        c.absoluteURL(endpoint),
			StatusCode: env.Status,
		}
	}
	switch data := env.Data.(type) {
	case []byte:
		return data, nil
	case string:
		return []byte(data), nil
	case nil:
		return nil, nil
	default:
		return nil, &ClientError{
			Type:       ErrorTypeDecode,
			Message:    "download returned a structured body, expected raw content",
			Method:     http.MethodGet,
			URL:        c.absoluteURL(endpoint),
			StatusCode: env.Status,
		}
	}
}

// Request executes a request with custom headers through the full pipeline.
// Custom headers may override any auto-injected value.
func (c *Client) Request(ctx context.Context, method, endpoint string, body Body, headers map[string]string) (*Envelope, error) {
	start := time.Now()
	cfg := c.config.Snapshot()
	absURL := c.absoluteURL(endpoint)

	var requestID string
	if c.debug != nil && c.debug.Enabled && c.debug.RequestIDGen != nil {
		requestID = c.debug.RequestIDGen()
	}
	c.logRequests("starting request", requestID, "method", method, "url", absURL)

	c.metrics.RecordRequestStart(method, endpoint)
	defer c.metrics.RecordRequestEnd(method, endpoint)

	cacheEnabled, cacheTTL := c.cacheControl(ctx, method, absURL)
	cacheKey := c.cacheKeyFunc(method, absURL)

	if cacheEnabled {
		if entry, found := c.cache.Lookup(cacheKey); found {
			c.logCache("cache hit", requestID, "cacheKey", cacheKey)
			c.metrics.RecordCacheHit(method, endpoint)
			c.metrics.RecordRequest(method, endpoint, entry.Envelope.Status, time.Since(start))
			return entry.Envelope.Clone(), nil
		}
		c.logCache("cache miss", requestID, "cacheKey", cacheKey)
		c.metrics.RecordCacheMiss(method, endpoint)
	}

	governed := func() (*Envelope, error) {
		return c.runWithRetry(ctx, method, endpoint, absURL, body, headers, cfg, requestID)
	}

	var env *Envelope
	var err error
	switch {
	case queuedFrom(ctx):
		enqueuedAt := time.Now()
		env, err = c.queue.Enqueue(ctx, func() (*Envelope, error) {
			c.metrics.RecordQueueWait("default", time.Since(enqueuedAt))
			c.logQueue("dequeued", requestID, "waited", time.Since(enqueuedAt))
			return governed()
		})
	case c.dedup != nil && c.dedup.condition(method, absURL):
		key := c.dedup.keyFunc(method, absURL)
		var v interface{}
		var shared bool
		v, err, shared = c.dedup.group.Do(ctx, key, func() (interface{}, error) {
			return governed()
		})
		env, _ = v.(*Envelope)
		if shared {
			c.metrics.RecordDeduplicationHit(method, endpoint)
		}
	default:
		env, err = governed()
	}

	statusCode := 0
	if env != nil {
		statusCode = env.Status
	}
	c.metrics.RecordRequest(method, endpoint, statusCode, time.Since(start))

	if cacheEnabled && err == nil && env != nil && env.Success {
		c.cache.Store(cacheKey, env.Clone(), cacheTTL)
		c.logCache("response cached", requestID, "cacheKey", cacheKey)
		if mc, ok := c.cache.(*InMemoryCache); ok {
			c.metrics.RecordCacheSize("default", mc.Len())
		}
	}

	if err != nil {
		c.decorateError(err, requestID, method, absURL, cfg, time.Since(start))
	}

	return env, err
}

// runWithRetry wraps a single attempt with the circuit breaker and the
// retry controller. Each attempt builds fresh headers so a token refreshed
// by one attempt is visible to the next.
func (c *Client) runWithRetry(ctx context.Context, method, endpoint, absURL string, body Body, headers map[string]string, cfg Config, requestID string) (*Envelope, error) {
	attempt := func(ctx context.Context) (*Envelope, error) {
		if c.breaker != nil && !c.breaker.Allow() {
			c.logCircuit("circuit breaker open", requestID, "url", absURL)
			c.metrics.RecordError(ErrorTypeCircuitOpen, method, endpoint)
			return nil, &ClientError{
				Type:    ErrorTypeCircuitOpen,
				Message: "circuit breaker is open",
				Cause:   ErrCircuitOpen,
				Method:  method,
				URL:     absURL,
			}
		}

		hdrs := c.credentials.HeadersFor(cfg.DefaultHeaders, headers)
		env, err := c.executor.execute(ctx, method, absURL, body, hdrs, cfg.Timeout)

		if c.breaker != nil {
			if err != nil || (env != nil && env.Status >= 500) {
				c.breaker.RecordFailure()
			} else {
				c.breaker.RecordSuccess()
			}
			c.metrics.RecordCircuitBreakerState("default", c.breaker.State())
		}
		if err != nil {
			c.metrics.RecordError(ErrorTypeTransport, method, endpoint)
		} else if env.Status >= 500 {
			c.metrics.RecordError(ErrorTypeServer, method, endpoint)
		}
		return env, err
	}

	onRetry := func(retry int, delay time.Duration) {
		c.logRetries("scheduling retry", requestID, "retry", retry, "backoff", delay, "url", absURL)
		c.metrics.RecordRetry(method, endpoint, retry)
	}

	return c.retry.run(ctx, attempt, cfg.MaxRetries, cfg.BaseRetryDelay, onRetry)
}

// cacheControl resolves per-request cache opt-in: only idempotent reads the
// caller explicitly marked for caching are eligible.
func (c *Client) cacheControl(ctx context.Context, method, absURL string) (bool, time.Duration) {
	cc, ok := cacheControlFrom(ctx)
	if !ok || !cc.Enabled {
		return false, 0
	}
	if !c.cacheCondition(method, absURL) {
		return false, 0
	}
	return true, cc.TTL
}

func (c *Client) decorateError(err error, requestID, method, absURL string, cfg Config, duration time.Duration) {
	clientErr, ok := err.(*ClientError)
	if !ok {
		return
	}
	if clientErr.RequestID == "" {
		clientErr.RequestID = requestID
	}
	clientErr.MaxRetries = cfg.MaxRetries
	clientErr.Timestamp = time.Now()
	clientErr.Duration = duration
}

// absoluteURL resolves an endpoint against the base URL; endpoints that are
// already absolute pass through untouched.
func (c *Client) absoluteURL(endpoint string) string {
	if u, err := url.Parse(endpoint); err == nil && u.IsAbs() {
		return endpoint
	}
	return strings.TrimSuffix(c.baseURL, "/") + "/" + strings.TrimPrefix(endpoint, "/")
}

// IsValid reports whether configuration validation passed at construction.
func (c *Client) IsValid() bool {
	return c.validationError == nil
}

// ValidationError returns the configuration validation error, if any.
func (c *Client) ValidationError() error {
	return c.validationError
}

func (c *Client) logRequests(msg, requestID string, kv ...interface{}) {
	if c.debug != nil && c.debug.Enabled && c.debug.LogRequests && c.logger != nil {
		c.logger.Debug(msg, append([]interface{}{"requestID", requestID}, kv...)...)
	}
}

func (c *Client) logRetries(msg, requestID string, kv ...interface{}) {
	if c.debug != nil && c.debug.Enabled && c.debug.LogRetries && c.logger != nil {
		c.logger.Info(msg, append([]interface{}{"requestID", requestID}, kv...)...)
	}
}

func (c *Client) logCache(msg, requestID string, kv ...interface{}) {
	if c.debug != nil && c.debug.Enabled && c.debug.LogCache && c.logger != nil {
		c.logger.Debug(msg, append([]interface{}{"requestID", requestID}, kv...)...)
	}
}

func (c *Client) logQueue(msg, requestID string, kv ...interface{}) {
	if c.debug != nil && c.debug.Enabled && c.debug.LogQueue && c.logger != nil {
		c.logger.Debug(msg, append([]interface{}{"requestID", requestID}, kv...)...)
	}
}

func (c *Client) logCircuit(msg, requestID string, kv ...interface{}) {
	if c.debug != nil && c.debug.Enabled && c.debug.LogCircuit && c.logger != nil {
		c.logger.Warn(msg, append([]interface{}{"requestID", requestID}, kv...)...)
	}
}
