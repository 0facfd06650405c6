package logging

import (
	"context"

	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

type runCtxKey struct{}
type requestCtxKey struct{}
type loggerCtxKey struct{}

// runInfo identifies the run a log line belongs to.
type runInfo struct {
	id       string
	workflow string
}

// ContextFields extracts correlation fields from ctx.
func ContextFields(ctx context.Context) []zap.Field {
	fields := make([]zap.Field, 0, 6)

	if sc := trace.SpanFromContext(ctx).SpanContext(); sc.IsValid() {
		fields = append(fields,
			zap.String("trace_id", sc.TraceID().String()),
			zap.String("span_id", sc.SpanID().String()),
		)
	}

	if run, ok := ctx.Value(runCtxKey{}).(runInfo); ok {
		fields = append(fields,
			zap.String("run.id", run.id),
			zap.String("workflow.type", run.workflow),
		)
	}

	if requestID := RequestIDFromContext(ctx); requestID != "" {
		fields = append(fields, zap.String("request.id", requestID))
	}

	return fields
}

// WithRun tags ctx with the run and workflow being executed.
func WithRun(ctx context.Context, runID, workflowType string) context.Context {
	return context.WithValue(ctx, runCtxKey{}, runInfo{id: runID, workflow: workflowType})
}

// RunIDFromContext returns the run ID set by WithRun.
func RunIDFromContext(ctx context.Context) string {
	if run, ok := ctx.Value(runCtxKey{}).(runInfo); ok {
		return run.id
	}
	return ""
}

// WithRequestID tags ctx with an inbound request ID. Empty IDs are ignored.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	if requestID == "" {
		return ctx
	}
	return context.WithValue(ctx, requestCtxKey{}, requestID)
}

// RequestIDFromContext returns the request ID set by WithRequestID.
func RequestIDFromContext(ctx context.Context) string {
	if r, ok := ctx.Value(requestCtxKey{}).(string); ok {
		return r
	}
	return ""
}

// WithLogger stores logger in ctx.
func WithLogger(ctx context.Context, logger *Logger) context.Context {
	return context.WithValue(ctx, loggerCtxKey{}, logger)
}

// FromContext returns the logger stored in ctx, or a nop logger.
func FromContext(ctx context.Context) *Logger {
	if l, ok := ctx.Value(loggerCtxKey{}).(*Logger); ok {
		return l
	}
	return NewNop()
}
