package pdfrelay

import (
	"errors"
	"fmt"
	"net/http"
	"time"
)

// Error type constants used in ClientError.Type.
const (
	// ErrorTypeTransport covers failures with no response at all: timeouts,
	// cancellations and opaque network-layer failures (status 0). Offline,
	// CORS-blocked and DNS failures are indistinguishable at this layer and
	// deliberately share one type.
	ErrorTypeTransport = "Transport"
	// ErrorTypeServer covers responses with status >= 500.
	ErrorTypeServer = "Server"
	// ErrorTypeClient covers responses with a 4xx status. Never retried.
	ErrorTypeClient = "Client"
	// ErrorTypeDecode covers bodies that could not be interpreted per their
	// declared content type. Never retried.
	ErrorTypeDecode = "Decode"
	// ErrorTypeValidation covers invalid client configuration.
	ErrorTypeValidation = "Validation"
	// ErrorTypeCircuitOpen covers requests refused by an open breaker.
	ErrorTypeCircuitOpen = "CircuitOpen"
	// ErrorTypeQueueClosed covers submissions to a disposed queue.
	ErrorTypeQueueClosed = "QueueClosed"
)

// Sentinel errors for common failure scenarios.
var (
	// ErrTimeout is returned when an attempt's cancellation scope fires.
	ErrTimeout = errors.New("pdfrelay: request timeout")

	// ErrCircuitOpen is returned when the circuit breaker is in open state.
	ErrCircuitOpen = errors.New("pdfrelay: circuit open")

	// ErrQueueClosed is returned when enqueueing after Close.
	ErrQueueClosed = errors.New("pdfrelay: queue closed")

	// ErrInvalidConfig is returned for configuration validation failures.
	ErrInvalidConfig = errors.New("pdfrelay: invalid configuration")
)

// ClientError is the structured error produced at the client boundary.
type ClientError struct {
	Type       string
	Message    string
	Cause      error
	RequestID  string
	Method     string
	URL        string
	StatusCode int
	Attempt    int
	MaxRetries int
	Timestamp  time.Time
	Duration   time.Duration
}

// Error implements the error interface.
func (e *ClientError) Error() string {
	if e == nil {
		return "<nil>"
	}
	msg := fmt.Sprintf("%s: %s", e.Type, e.Message)
	if e.Cause != nil {
		msg = fmt.Sprintf("%s: %s (%v)", e.Type, e.Message, e.Cause)
	}
	if e.RequestID != "" {
		msg = fmt.Sprintf("[%s] %s", e.RequestID, msg)
	}
	if e.Attempt > 0 {
		msg = fmt.Sprintf("%s (attempt %d/%d)", msg, e.Attempt, e.MaxRetries)
	}
	return msg
}

// Unwrap returns the underlying cause.
func (e *ClientError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

// Is compares error types for errors.Is.
func (e *ClientError) Is(target error) bool {
	if e == nil {
		return false
	}
	if targetErr, ok := target.(*ClientError); ok {
		return e.Type == targetErr.Type
	}
	return false
}

// IsTransient reports whether an error represents a failure that might
// succeed on retry: transport failures (timeout, cancellation, status 0) and
// server failures. Client and decode failures are terminal.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrTimeout) {
		return true
	}
	var clientErr *ClientError
	if errors.As(err, &clientErr) {
		switch clientErr.Type {
		case ErrorTypeTransport, ErrorTypeServer:
			return true
		default:
			return false
		}
	}
	return false
}

// Fixed user-facing messages for well-known status codes. The host UI
// renders these transiently; this package only produces the text.
var statusMessages = map[int]string{
	http.StatusBadRequest:          "Invalid request. Please check your input and try again.",
	http.StatusUnauthorized:        "Authentication required. Please log in.",
	http.StatusForbidden:           "You do not have permission to perform this action.",
	http.StatusNotFound:            "The requested resource was not found.",
	http.StatusTooManyRequests:     "Too many requests. Please slow down and try again.",
	http.StatusInternalServerError: "Server error. Please try again later.",
}

const genericFailureMessage = "Something went wrong. Please try again."

// UserMessage translates a surfaced failure into a short human-readable
// string. A message embedded in the response body takes precedence over the
// fixed status mapping, which in turn beats the generic fallback.
func UserMessage(env *Envelope, err error) string {
	if env != nil {
		if msg := embeddedMessage(env.Data); msg != "" {
			return msg
		}
		if msg, ok := statusMessages[env.Status]; ok {
			return msg
		}
		if env.Success {
			return ""
		}
		return genericFailureMessage
	}
	if err != nil {
		var clientErr *ClientError
		if errors.As(err, &clientErr) {
			if msg, ok := statusMessages[clientErr.StatusCode]; ok {
				return msg
			}
		}
		return genericFailureMessage
	}
	return ""
}

// embeddedMessage digs a server-provided message out of a decoded JSON body.
func embeddedMessage(data interface{}) string {
	obj, ok := data.(map[string]interface{})
	if !ok {
		return ""
	}
	for _, key := range []string{"message", "error"} {
		if v, ok := obj[key].(string); ok && v != "" {
			return v
		}
	}
	return ""
}
