package logging

import (
	"context"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Config selects the logger output.
type Config struct {
	Level       string
	Development bool
	Output      io.Writer
}

// NewLogger builds a zerolog logger. Development mode writes human readable
// lines; otherwise JSON.
func NewLogger(cfg Config) zerolog.Logger {
	out := cfg.Output
	if out == nil {
		out = os.Stdout
	}
	level, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(cfg.Level)))
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
		if cfg.Development {
			level = zerolog.DebugLevel
		}
	}
	if cfg.Development {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339}
	}
	return zerolog.New(out).Level(level).With().Timestamp().Logger()
}

// Nop returns a logger that discards everything.
func Nop() zerolog.Logger { return zerolog.Nop() }

// Telemetry adapts a zerolog logger to the console Telemetry interface.
type Telemetry struct {
	Logger zerolog.Logger
}

// NewTelemetry wraps logger.
func NewTelemetry(logger zerolog.Logger) Telemetry {
	return Telemetry{Logger: logger}
}

// Record logs event with payload as structured fields. Events ending in
// ".failed" or ".error" are logged at warn level.
func (t Telemetry) Record(_ context.Context, event string, payload map[string]any) {
	evt := t.Logger.Info()
	if strings.HasSuffix(event, ".failed") || strings.HasSuffix(event, ".error") {
		evt = t.Logger.Warn()
	}
	evt.Fields(payload).Str("event", event).Msg(event)
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

func (w *statusWriter) Flush() {
	if f, ok := w.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func (w *statusWriter) Unwrap() http.ResponseWriter { return w.ResponseWriter }

// RequestLogger logs one line per request.
func RequestLogger(l zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(sw, r)
			l.Info().
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Int("status", sw.status).
				Dur("elapsed", time.Since(start)).
				Msg("request")
		})
	}
}
