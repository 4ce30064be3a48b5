package pdfrelay

import (
	"net/http"
	"time"
)

// Envelope is the uniform response shape returned for every completed
// attempt, regardless of transport outcome. Success is true iff the HTTP
// status was in the 2xx range; non-2xx responses still produce a populated
// envelope rather than an error.
type Envelope struct {
	Success    bool
	Data       interface{}
	Status     int
	StatusText string
	Headers    http.Header
}

// Clone returns a shallow copy of the envelope with its own header map so a
// cached envelope can be handed to multiple callers.
func (e *Envelope) Clone() *Envelope {
	if e == nil {
		return nil
	}
	clone := *e
	clone.Headers = e.Headers.Clone()
	return &clone
}

// BodyKind tags the request body union. The caller decides the kind
// explicitly; the executor never infers it from runtime types.
type BodyKind int

const (
	// BodyNone marks a request without a body.
	BodyNone BodyKind = iota
	// BodyJSON marks a JSON-serialized structured body.
	BodyJSON
	// BodyMultipart marks a multipart form body carrying a file payload.
	BodyMultipart
	// BodyRaw marks a pre-encoded body passed through unmodified.
	BodyRaw
)

// Body is a tagged union over request body kinds. Payloads are held as
// values (not readers) so every retry attempt can re-encode a fresh body.
type Body struct {
	Kind        BodyKind
	JSON        interface{}
	Raw         []byte
	ContentType string
	File        *FilePayload
	Fields      map[string]string
}

// NoBody returns an empty body.
func NoBody() Body { return Body{Kind: BodyNone} }

// JSONBody returns a body that will be JSON-encoded with an
// application/json content type.
func JSONBody(v interface{}) Body { return Body{Kind: BodyJSON, JSON: v} }

// RawBody returns a body passed through unmodified with the given content
// type.
func RawBody(data []byte, contentType string) Body {
	return Body{Kind: BodyRaw, Raw: data, ContentType: contentType}
}

// MultipartBody returns a multipart form body wrapping the payload plus any
// supplementary field values. The multipart writer sets the boundary content
// type itself; any caller-supplied Content-Type header is dropped.
func MultipartBody(file *FilePayload, fields map[string]string) Body {
	return Body{Kind: BodyMultipart, File: file, Fields: fields}
}

// ProgressFunc observes upload progress. It is passed through to the
// transport opaquely; the client never interprets it.
type ProgressFunc func(sent, total int64)

// FilePayload is the file part of a multipart upload.
type FilePayload struct {
	FieldName string
	FileName  string
	Content   []byte
	Progress  ProgressFunc
}

// CacheEntry is a stored envelope with its storage timestamp. An entry is
// servable iff now - StoredAt < TTL, where a zero TTL defers to the
// configured cache TTL at lookup time.
type CacheEntry struct {
	Envelope *Envelope
	StoredAt time.Time
	TTL      time.Duration
}

// Cache is the interface for envelope caching. Lookup must not delete stale
// entries; removal is Sweep's job so lookups stay free of write side
// effects. A ttl of zero stores the entry under the configured default.
type Cache interface {
	Lookup(key string) (*CacheEntry, bool)
	Store(key string, env *Envelope, ttl time.Duration)
	Clear(pattern string)
	Sweep()
}

// CacheCondition determines whether a request is eligible for caching.
type CacheCondition func(method, url string) bool

// RetryClassifier reports whether a completed attempt should be retried.
type RetryClassifier func(env *Envelope, err error) bool

// Option configures a Client at construction time.
type Option func(*Client)

// Context keys for per-request control.
type contextKey string

const (
	cacheControlKey contextKey = "pdfrelay_cache_control"
	queueControlKey contextKey = "pdfrelay_queue_control"
)

// CacheControl holds per-request cache options carried on the context.
type CacheControl struct {
	Enabled bool
	TTL     time.Duration
}
