package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"testing"

	"github.com/samber/oops"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace"
)

func capture(t *testing.T, level slog.Level) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	prev := current.Load()
	current.Store(Setup("test-service", "1.2.3", "json", level, &buf))
	t.Cleanup(func() { current.Store(prev) })
	return &buf
}

func decode(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	return entry
}

func TestInfoWritesFieldsAndService(t *testing.T) {
	buf := capture(t, slog.LevelInfo)

	Info("user registered", map[string]any{"user_id": "u-1"})

	entry := decode(t, buf)
	assert.Equal(t, "INFO", entry["level"])
	assert.Equal(t, "user registered", entry["msg"])
	assert.Equal(t, "u-1", entry["user_id"])
	assert.Equal(t, "test-service", entry["service"])
	assert.Equal(t, "1.2.3", entry["version"])
}

func TestLevelFiltering(t *testing.T) {
	buf := capture(t, slog.LevelWarn)

	Debug("hidden", nil)
	Info("hidden", nil)
	assert.Zero(t, buf.Len())

	Warn("shown", nil)
	assert.Equal(t, "WARN", decode(t, buf)["level"])
}

func TestLogErrorWithOopsError(t *testing.T) {
	buf := capture(t, slog.LevelInfo)

	err := oops.Code("SESSION_STORE_ERROR").With("operation", "session get").Errorf("connection refused")
	LogError(context.Background(), "resolve failed", err, nil)

	entry := decode(t, buf)
	assert.Equal(t, "ERROR", entry["level"])
	assert.Equal(t, "SESSION_STORE_ERROR", entry["code"])
	require.IsType(t, map[string]any{}, entry["context"])
	assert.Equal(t, "session get", entry["context"].(map[string]any)["operation"])
}

func TestLogErrorWithStandardError(t *testing.T) {
	buf := capture(t, slog.LevelInfo)

	LogError(context.Background(), "failed", errors.New("plain"), map[string]any{"k": "v"})

	entry := decode(t, buf)
	assert.Equal(t, "plain", entry["error"])
	assert.Equal(t, "v", entry["k"])
}

func TestTraceIDsAttached(t *testing.T) {
	buf := capture(t, slog.LevelInfo)

	traceID, err := trace.TraceIDFromHex("4bf92f3577b34da6a3ce929d0e0e4736")
	require.NoError(t, err)
	spanID, err := trace.SpanIDFromHex("00f067aa0ba902b7")
	require.NoError(t, err)
	ctx := trace.ContextWithSpanContext(context.Background(), trace.NewSpanContext(trace.SpanContextConfig{
		TraceID: traceID,
		SpanID:  spanID,
	}))

	InfoContext(ctx, "traced", nil)

	entry := decode(t, buf)
	assert.Equal(t, "4bf92f3577b34da6a3ce929d0e0e4736", entry["trace_id"])
	assert.Equal(t, "00f067aa0ba902b7", entry["span_id"])
}

func TestFatalExits(t *testing.T) {
	capture(t, slog.LevelInfo)
	var code int
	exit = func(c int) { code = c }
	t.Cleanup(func() { exit = defaultExit })

	Fatal("boom", nil)
	assert.Equal(t, 1, code)
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, ParseLevel("DEBUG"))
	assert.Equal(t, slog.LevelWarn, ParseLevel("warning"))
	assert.Equal(t, slog.LevelError, ParseLevel("error"))
	assert.Equal(t, slog.LevelInfo, ParseLevel("bogus"))
}
