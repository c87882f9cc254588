// Package logging wraps log/slog with trace-correlation, in ariadne's
// style (engine/telemetry/logging): every context-taking (*Ctx) call
// through this facade injects trace_id/span_id when the context carries a
// valid span context, so a fault can be localised without reading payloads (§7).
package logging

import (
	"context"
	"log/slog"

	"github.com/globalbusinessadvisors/llm-sentinel-sub002/internal/telemetry/tracing"
)

// Logger is the facade every engine/detector/dispatcher component logs
// through instead of slog directly.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
	DebugCtx(ctx context.Context, msg string, args ...any)
	InfoCtx(ctx context.Context, msg string, args ...any)
	WarnCtx(ctx context.Context, msg string, args ...any)
	ErrorCtx(ctx context.Context, msg string, args ...any)
	With(args ...any) Logger
}

type correlatedLogger struct{ base *slog.Logger }

// New wraps base (slog.Default() if nil) in a correlation-aware Logger.
func New(base *slog.Logger) Logger {
	if base == nil {
		base = slog.Default()
	}
	return &correlatedLogger{base: base}
}

func (l *correlatedLogger) Debug(msg string, args ...any) { l.base.Debug(msg, args...) }
func (l *correlatedLogger) Info(msg string, args ...any)  { l.base.Info(msg, args...) }
func (l *correlatedLogger) Warn(msg string, args ...any)  { l.base.Warn(msg, args...) }
func (l *correlatedLogger) Error(msg string, args ...any) { l.base.Error(msg, args...) }

func (l *correlatedLogger) With(args ...any) Logger {
	return &correlatedLogger{base: l.base.With(args...)}
}

func (l *correlatedLogger) DebugCtx(ctx context.Context, msg string, args ...any) {
	l.base.DebugContext(ctx, msg, l.withCorrelation(ctx, args)...)
}

func (l *correlatedLogger) InfoCtx(ctx context.Context, msg string, args ...any) {
	l.base.InfoContext(ctx, msg, l.withCorrelation(ctx, args)...)
}

func (l *correlatedLogger) WarnCtx(ctx context.Context, msg string, args ...any) {
	l.base.WarnContext(ctx, msg, l.withCorrelation(ctx, args)...)
}

func (l *correlatedLogger) ErrorCtx(ctx context.Context, msg string, args ...any) {
	l.base.ErrorContext(ctx, msg, l.withCorrelation(ctx, args)...)
}

func (l *correlatedLogger) withCorrelation(ctx context.Context, args []any) []any {
	traceID, spanID := tracing.ExtractIDs(ctx)
	if traceID == "" && spanID == "" {
		return args
	}
	return append(append([]any{}, args...), slog.String("trace_id", traceID), slog.String("span_id", spanID))
}
