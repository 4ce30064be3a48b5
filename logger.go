package pdfrelay

import (
	"io"
	"os"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Logger is the minimal structured logging interface used for debug output.
// keysAndValues are alternating key/value pairs.
type Logger interface {
	Debug(msg string, keysAndValues ...interface{})
	Info(msg string, keysAndValues ...interface{})
	Warn(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
}

// DebugConfig controls which areas emit debug logs and how request IDs are
// generated.
type DebugConfig struct {
	Enabled     bool
	LogRequests bool
	LogRetries  bool
	LogCache    bool
	LogQueue    bool
	LogCircuit  bool

	// RequestIDGen produces a correlation ID per logical request.
	RequestIDGen func() string
}

// DefaultDebugConfig enables all areas with UUID request IDs; Enabled still
// gates everything.
func DefaultDebugConfig() *DebugConfig {
	return &DebugConfig{
		Enabled:      false,
		LogRequests:  true,
		LogRetries:   true,
		LogCache:     true,
		LogQueue:     true,
		LogCircuit:   true,
		RequestIDGen: uuid.NewString,
	}
}

// zerologLogger adapts zerolog to the Logger interface.
type zerologLogger struct {
	l zerolog.Logger
}

// NewSimpleLogger returns a console logger writing to stderr.
func NewSimpleLogger() Logger {
	return NewZerologLogger(zerolog.ConsoleWriter{Out: os.Stderr})
}

// NewZerologLogger returns a Logger backed by zerolog writing to w.
func NewZerologLogger(w io.Writer) Logger {
	return &zerologLogger{
		l: zerolog.New(w).With().Timestamp().Str("component", "pdfrelay").Logger(),
	}
}

func (z *zerologLogger) Debug(msg string, keysAndValues ...interface{}) {
	z.emit(z.l.Debug(), msg, keysAndValues)
}

func (z *zerologLogger) Info(msg string, keysAndValues ...interface{}) {
	z.emit(z.l.Info(), msg, keysAndValues)
}

func (z *zerologLogger) Warn(msg string, keysAndValues ...interface{}) {
	z.emit(z.l.Warn(), msg, keysAndValues)
}

func (z *zerologLogger) Error(msg string, keysAndValues ...interface{}) {
	z.emit(z.l.Error(), msg, keysAndValues)
}

func (z *zerologLogger) emit(ev *zerolog.Event, msg string, keysAndValues []interface{}) {
	for i := 0; i+1 < len(keysAndValues); i += 2 {
		key, ok := keysAndValues[i].(string)
		if !ok {
			continue
		}
		ev = ev.Interface(key, keysAndValues[i+1])
	}
	ev.Msg(msg)
}
