package types

import "context"

// contextKey is used for storing values in context.Context.
type contextKey string

const (
	keyTraceID contextKey = "trace_id"
	keyRunID   contextKey = "run_id"
	keyGoal    contextKey = "goal"
	keyStep    contextKey = "step"
)

// WithTraceID adds trace ID to context.
func WithTraceID(ctx context.Context, traceID string) context.Context {
	return context.WithValue(ctx, keyTraceID, traceID)
}

// TraceID extracts trace ID from context.
func TraceID(ctx context.Context) (string, bool) {
	v, ok := ctx.Value(keyTraceID).(string)
	return v, ok && v != ""
}

// WithRunID adds the workflow run ID to context.
func WithRunID(ctx context.Context, runID string) context.Context {
	return context.WithValue(ctx, keyRunID, runID)
}

// RunID extracts the workflow run ID from context.
func RunID(ctx context.Context) (string, bool) {
	v, ok := ctx.Value(keyRunID).(string)
	return v, ok && v != ""
}

// WithGoal adds the goal name of the running workflow to context.
func WithGoal(ctx context.Context, goal string) context.Context {
	return context.WithValue(ctx, keyGoal, goal)
}

// Goal extracts the goal name from context.
func Goal(ctx context.Context) (string, bool) {
	v, ok := ctx.Value(keyGoal).(string)
	return v, ok && v != ""
}

// WithStep adds the composite id of the executing step to context.
func WithStep(ctx context.Context, step string) context.Context {
	return context.WithValue(ctx, keyStep, step)
}

// Step extracts the composite id of the executing step from context.
func Step(ctx context.Context) (string, bool) {
	v, ok := ctx.Value(keyStep).(string)
	return v, ok && v != ""
}
