package logger

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	stimerrors "github.com/stimkit/stimkit/pkg/stimkit/v1/errors"
	stimlog "github.com/stimkit/stimkit/pkg/stimkit/v1/log"
	"go.opentelemetry.io/otel/trace"
)

const defaultLevel = slog.LevelInfo

// ParseLevel converts a level name (case-insensitive) to a slog.Level.
// Unknown names map to INFO.
func ParseLevel(levelStr string) slog.Level {
	switch strings.ToUpper(strings.TrimSpace(levelStr)) {
	case "DEBUG":
		return slog.LevelDebug
	case "INFO":
		return slog.LevelInfo
	case "WARN", "WARNING":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return defaultLevel
	}
}

// slogLogger implements stimlog.Logger on top of log/slog.
type slogLogger struct {
	*slog.Logger
}

var _ stimlog.Logger = (*slogLogger)(nil)

// NewLogger creates a logger writing text or JSON records to writer
// (os.Stderr when nil). Records carry trace and span IDs when logged with a
// context holding a valid span.
func NewLogger(levelStr string, formatStr string, writer io.Writer) stimlog.Logger {
	if writer == nil {
		writer = os.Stderr
	}
	opts := &slog.HandlerOptions{
		Level:       ParseLevel(levelStr),
		ReplaceAttr: replaceLevelAttribute,
	}

	var base slog.Handler
	if strings.EqualFold(formatStr, "json") {
		base = slog.NewJSONHandler(writer, opts)
	} else {
		base = slog.NewTextHandler(writer, opts)
	}
	return &slogLogger{Logger: slog.New(NewOtelHandler(base))}
}

// NewDefaultLogger returns a text logger on os.Stderr.
func NewDefaultLogger(levelStr string) stimlog.Logger {
	return NewLogger(levelStr, "text", os.Stderr)
}

// NewDiscardLogger returns a logger that drops everything.
func NewDiscardLogger() stimlog.Logger {
	return NewLogger("error", "text", io.Discard)
}

var levelNames = map[slog.Level]string{
	slog.LevelDebug: "DEBUG",
	slog.LevelInfo:  "INFO",
	slog.LevelWarn:  "WARN",
	slog.LevelError: "ERROR",
}

func replaceLevelAttribute(_ []string, a slog.Attr) slog.Attr {
	if a.Key != slog.LevelKey {
		return a
	}
	level, ok := a.Value.Any().(slog.Level)
	if !ok {
		return a
	}
	name, exists := levelNames[level]
	if !exists {
		name = level.String()
	}
	a.Value = slog.StringValue(name)
	return a
}

func (l *slogLogger) logf(level slog.Level, format string, args ...interface{}) {
	ctx := context.Background()
	if !l.Logger.Enabled(ctx, level) {
		return
	}
	l.Logger.Log(ctx, level, fmt.Sprintf(format, args...), errorAttrs(args)...)
}

func (l *slogLogger) Debugf(format string, args ...interface{}) { l.logf(slog.LevelDebug, format, args...) }
func (l *slogLogger) Infof(format string, args ...interface{})  { l.logf(slog.LevelInfo, format, args...) }
func (l *slogLogger) Warnf(format string, args ...interface{})  { l.logf(slog.LevelWarn, format, args...) }
func (l *slogLogger) Errorf(format string, args ...interface{}) { l.logf(slog.LevelError, format, args...) }

// errorAttrs turns a trailing error argument into structured attributes.
// Presentation failures and timing interruptions get their fields spelled out.
func errorAttrs(args []interface{}) []any {
	if len(args) == 0 {
		return nil
	}
	err, ok := args[len(args)-1].(error)
	if !ok || err == nil {
		return nil
	}

	var pe *stimerrors.PresentationError
	var ti *stimerrors.TimingInterruption
	switch {
	case errors.As(err, &pe):
		attrs := []any{
			slog.String("error_type", "PresentationError"),
			slog.Int("stimulus_index", pe.Index),
		}
		if pe.Sequence != "" {
			attrs = append(attrs, slog.String("sequence", pe.Sequence))
		}
		cause := err
		if pe.Cause != nil {
			cause = pe.Cause
		}
		return append(attrs, slog.String("error", cause.Error()))
	case errors.As(err, &ti):
		attrs := []any{
			slog.String("error_type", "TimingInterruption"),
			slog.Duration("requested", ti.Requested),
		}
		if ti.Cause != nil {
			attrs = append(attrs, slog.String("error", ti.Cause.Error()))
		}
		return attrs
	default:
		return []any{slog.String("error", err.Error())}
	}
}

func (l *slogLogger) Log(level slog.Level, msg string, args ...interface{}) {
	l.Logger.Log(context.Background(), level, msg, args...)
}

func (l *slogLogger) LogCtx(ctx context.Context, level slog.Level, msg string, args ...interface{}) {
	l.Logger.Log(ctx, level, msg, args...)
}

func (l *slogLogger) With(args ...interface{}) stimlog.Logger {
	return &slogLogger{Logger: l.Logger.With(args...)}
}

func (l *slogLogger) IsEnabled(level slog.Level) bool {
	return l.Logger.Enabled(context.Background(), level)
}

// OtelHandler is a slog.Handler middleware that adds trace_id and span_id
// from the span found in the record's context.
type OtelHandler struct {
	next slog.Handler
}

func NewOtelHandler(next slog.Handler) *OtelHandler {
	return &OtelHandler{next: next}
}

func (h *OtelHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.next.Enabled(ctx, level)
}

func (h *OtelHandler) Handle(ctx context.Context, record slog.Record) error {
	if sc := trace.SpanContextFromContext(ctx); sc.IsValid() {
		record.AddAttrs(
			slog.String("trace_id", sc.TraceID().String()),
			slog.String("span_id", sc.SpanID().String()),
		)
	}
	return h.next.Handle(ctx, record)
}

func (h *OtelHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return NewOtelHandler(h.next.WithAttrs(attrs))
}

func (h *OtelHandler) WithGroup(name string) slog.Handler {
	return NewOtelHandler(h.next.WithGroup(name))
}
