// Package logger is the process-wide structured logger. Call sites pass a
// message and a field map; records go through log/slog with service,
// version and trace context attached.
package logger

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync/atomic"

	"github.com/samber/oops"
	"go.opentelemetry.io/otel/trace"
)

var (
	current atomic.Pointer[slog.Logger]
	exit    = defaultExit
)

func defaultExit(code int) { os.Exit(code) }

func init() {
	current.Store(Setup("account-service", "dev", "json", slog.LevelInfo, os.Stdout))
}

// Configure replaces the process logger. It is also installed as the slog default.
func Configure(service, version, format, level string) {
	l := Setup(service, version, format, ParseLevel(level), os.Stdout)
	current.Store(l)
	slog.SetDefault(l)
}

// L returns the process logger.
func L() *slog.Logger {
	return current.Load()
}

// Setup builds a logger writing to w. format is "json" or "text";
// anything else means json.
func Setup(service, version, format string, level slog.Level, w io.Writer) *slog.Logger {
	if w == nil {
		w = os.Stderr
	}

	opts := &slog.HandlerOptions{Level: level}

	var base slog.Handler
	if format == "text" {
		base = slog.NewTextHandler(w, opts)
	} else {
		base = slog.NewJSONHandler(w, opts)
	}

	return slog.New(&traceHandler{handler: base, service: service, version: version})
}

// ParseLevel maps debug, info, warn and error onto slog levels. Unknown
// values mean info.
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func Debug(msg string, fields map[string]any) {
	log(context.Background(), slog.LevelDebug, msg, fields)
}

func Info(msg string, fields map[string]any) {
	log(context.Background(), slog.LevelInfo, msg, fields)
}

func Warn(msg string, fields map[string]any) {
	log(context.Background(), slog.LevelWarn, msg, fields)
}

func Error(msg string, fields map[string]any) {
	log(context.Background(), slog.LevelError, msg, fields)
}

func Fatal(msg string, fields map[string]any) {
	log(context.Background(), slog.LevelError, msg, fields)
	exit(1)
}

// InfoContext logs with the trace context carried by ctx.
func InfoContext(ctx context.Context, msg string, fields map[string]any) {
	log(ctx, slog.LevelInfo, msg, fields)
}

// LogError logs err at error level. For oops errors the code and context
// are logged as separate attributes.
func LogError(ctx context.Context, msg string, err error, fields map[string]any) {
	attrs := attrsOf(fields)
	if oopsErr, ok := oops.AsOops(err); ok {
		attrs = append(attrs, slog.String("error", oopsErr.Error()))
		if code := oopsErr.Code(); code != nil {
			attrs = append(attrs, slog.Any("code", code))
		}
		if errCtx := oopsErr.Context(); len(errCtx) > 0 {
			attrs = append(attrs, slog.Any("context", errCtx))
		}
	} else if err != nil {
		attrs = append(attrs, slog.String("error", err.Error()))
	}
	L().LogAttrs(ctx, slog.LevelError, msg, attrs...)
}

func log(ctx context.Context, level slog.Level, msg string, fields map[string]any) {
	l := L()
	if !l.Enabled(ctx, level) {
		return
	}
	l.LogAttrs(ctx, level, msg, attrsOf(fields)...)
}

func attrsOf(fields map[string]any) []slog.Attr {
	attrs := make([]slog.Attr, 0, len(fields)+3)
	for k, v := range fields {
		attrs = append(attrs, slog.Any(k, v))
	}
	return attrs
}

// traceHandler stamps service, version and the active span onto records.
type traceHandler struct {
	handler slog.Handler
	service string
	version string
}

func (h *traceHandler) Handle(ctx context.Context, r slog.Record) error {
	r.AddAttrs(
		slog.String("service", h.service),
		slog.String("version", h.version),
	)

	spanCtx := trace.SpanContextFromContext(ctx)
	if spanCtx.HasTraceID() {
		r.AddAttrs(slog.String("trace_id", spanCtx.TraceID().String()))
	}
	if spanCtx.HasSpanID() {
		r.AddAttrs(slog.String("span_id", spanCtx.SpanID().String()))
	}

	return h.handler.Handle(ctx, r)
}

func (h *traceHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.handler.Enabled(ctx, level)
}

func (h *traceHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &traceHandler{handler: h.handler.WithAttrs(attrs), service: h.service, version: h.version}
}

func (h *traceHandler) WithGroup(name string) slog.Handler {
	return &traceHandler{handler: h.handler.WithGroup(name), service: h.service, version: h.version}
}
