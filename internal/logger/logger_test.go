package logger

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	stimerrors "github.com/stimkit/stimkit/pkg/stimkit/v1/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace"
)

func TestParseLevel(t *testing.T) {
	cases := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		" INFO ":  slog.LevelInfo,
		"warning": slog.LevelWarn,
		"Error":   slog.LevelError,
		"bogus":   slog.LevelInfo,
		"":        slog.LevelInfo,
	}
	for in, want := range cases {
		assert.Equal(t, want, ParseLevel(in), "input %q", in)
	}
}

func TestNewLogger_LevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	log := NewLogger("warn", "text", &buf)

	log.Infof("hidden %d", 1)
	log.Warnf("shown %d", 2)

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "shown 2")
	assert.Contains(t, out, "level=WARN")
	assert.False(t, log.IsEnabled(slog.LevelDebug))
	assert.True(t, log.IsEnabled(slog.LevelError))
}

func TestNewLogger_JSONWithAttributes(t *testing.T) {
	var buf bytes.Buffer
	log := NewLogger("debug", "json", &buf).With("sequence", "fix")

	log.Debugf("waiting")

	out := buf.String()
	assert.Contains(t, out, `"level":"DEBUG"`)
	assert.Contains(t, out, `"sequence":"fix"`)
	assert.Contains(t, out, `"msg":"waiting"`)
}

func TestErrorf_PresentationErrorFields(t *testing.T) {
	var buf bytes.Buffer
	log := NewLogger("info", "text", &buf)

	err := stimerrors.NewPresentationError("flicker", 3, errors.New("swap failed"))
	log.Errorf("run aborted: %v", err)

	out := buf.String()
	assert.Contains(t, out, "error_type=PresentationError")
	assert.Contains(t, out, "stimulus_index=3")
	assert.Contains(t, out, "sequence=flicker")
	assert.Contains(t, out, `error="swap failed"`)
}

func TestWarnf_TimingInterruptionFields(t *testing.T) {
	var buf bytes.Buffer
	log := NewLogger("info", "text", &buf)

	err := stimerrors.NewTimingInterruption(250*time.Millisecond, context.Canceled)
	log.Warnf("sleep cut short: %v", err)

	out := buf.String()
	assert.Contains(t, out, "error_type=TimingInterruption")
	assert.Contains(t, out, "requested=250ms")
}

func TestOtelHandler_InjectsSpanIDs(t *testing.T) {
	var buf bytes.Buffer
	log := NewLogger("info", "text", &buf)

	traceID, err := trace.TraceIDFromHex("0102030405060708090a0b0c0d0e0f10")
	require.NoError(t, err)
	spanID, err := trace.SpanIDFromHex("0102030405060708")
	require.NoError(t, err)
	sc := trace.NewSpanContext(trace.SpanContextConfig{TraceID: traceID, SpanID: spanID, TraceFlags: trace.FlagsSampled})
	ctx := trace.ContextWithSpanContext(context.Background(), sc)

	log.LogCtx(ctx, slog.LevelInfo, "presented")
	log.Log(slog.LevelInfo, "untraced")

	lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
	require.Len(t, lines, 2)
	assert.Contains(t, string(lines[0]), "trace_id=0102030405060708090a0b0c0d0e0f10")
	assert.Contains(t, string(lines[0]), "span_id=0102030405060708")
	assert.NotContains(t, string(lines[1]), "trace_id")
}
