// internal/logging/context.go
package logging

import (
	"context"

	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

type repoCtxKey struct{}
type operationCtxKey struct{}

// ContextFields extracts correlation data from context.
func ContextFields(ctx context.Context) []zap.Field {
	fields := make([]zap.Field, 0, 4)

	if span := trace.SpanFromContext(ctx); span.SpanContext().IsValid() {
		sc := span.SpanContext()
		fields = append(fields,
			zap.String("trace_id", sc.TraceID().String()),
			zap.String("span_id", sc.SpanID().String()),
		)
	}

	if repo := RepoFromContext(ctx); repo != "" {
		fields = append(fields, zap.String("repo", repo))
	}
	if op := OperationFromContext(ctx); op != "" {
		fields = append(fields, zap.String("operation", op))
	}

	return fields
}

// WithRepo tags ctx with the repository being processed.
func WithRepo(ctx context.Context, repo string) context.Context {
	return context.WithValue(ctx, repoCtxKey{}, repo)
}

// RepoFromContext returns the repository set by WithRepo.
func RepoFromContext(ctx context.Context) string {
	if s, ok := ctx.Value(repoCtxKey{}).(string); ok {
		return s
	}
	return ""
}

// WithOperation tags ctx with the user-facing operation (index, search, grep).
func WithOperation(ctx context.Context, op string) context.Context {
	return context.WithValue(ctx, operationCtxKey{}, op)
}

// OperationFromContext returns the operation set by WithOperation.
func OperationFromContext(ctx context.Context) string {
	if s, ok := ctx.Value(operationCtxKey{}).(string); ok {
		return s
	}
	return ""
}
