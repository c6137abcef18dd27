package workflow

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

const instrumentationName = "github.com/BaSui01/stepflow/workflow"

// 步骤所在段
const (
	SectionTry     = "try"
	SectionFinally = "finally"
)

// 记录的状态值
const (
	StatusSuccess    = "success"
	StatusFailure    = "failure"
	StatusRolledBack = "rolled_back"
)

// MetricsRecorder 执行指标接口，由 internal/metrics.Collector 实现
type MetricsRecorder interface {
	RecordRun(goal, status string, duration time.Duration)
	RecordStep(goal, step, section, status string, duration time.Duration)
	RecordRollback(goal, step, handler, status string)
}

type nopRecorder struct{}

func (nopRecorder) RecordRun(string, string, time.Duration)                 {}
func (nopRecorder) RecordStep(string, string, string, string, time.Duration) {}
func (nopRecorder) RecordRollback(string, string, string, string)           {}

// instrumentation 执行器的追踪与 OTel 指标
type instrumentation struct {
	tracer       trace.Tracer
	stepDuration metric.Float64Histogram
	rollbacks    metric.Int64Counter
}

func newInstrumentation(tp trace.TracerProvider) *instrumentation {
	if tp == nil {
		tp = otel.GetTracerProvider()
	}
	meter := otel.Meter(instrumentationName)

	inst := &instrumentation{tracer: tp.Tracer(instrumentationName)}

	// 指标创建失败时退化为 noop，不影响执行
	if h, err := meter.Float64Histogram("stepflow.step.duration",
		metric.WithDescription("Processing step duration in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.01, 0.05, 0.1, 0.5, 1, 5, 15, 60, 300)); err == nil {
		inst.stepDuration = h
	}
	if c, err := meter.Int64Counter("stepflow.rollback.invocations",
		metric.WithDescription("Rollback handler invocations"),
		metric.WithUnit("{invocation}")); err == nil {
		inst.rollbacks = c
	}
	return inst
}

func (i *instrumentation) startRun(ctx context.Context, goal, runID string) (context.Context, trace.Span) {
	return i.tracer.Start(ctx, "workflow.run",
		trace.WithAttributes(
			attribute.String("workflow.goal", goal),
			attribute.String("workflow.run_id", runID),
		))
}

func (i *instrumentation) startStep(ctx context.Context, key StepKey, section string) (context.Context, trace.Span) {
	return i.tracer.Start(ctx, "workflow.step",
		trace.WithAttributes(
			attribute.String("step.id", key.ID),
			attribute.String("step.key", key.String()),
			attribute.String("step.section", section),
		))
}

func (i *instrumentation) endStep(ctx context.Context, span trace.Span, goal, section string, d time.Duration, err error) {
	defer span.End()

	status := StatusSuccess
	if err != nil {
		status = StatusFailure
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	if i.stepDuration != nil {
		i.stepDuration.Record(ctx, d.Seconds(), metric.WithAttributes(
			attribute.String("goal", goal),
			attribute.String("section", section),
			attribute.String("status", status)))
	}
}

func (i *instrumentation) recordRollback(ctx context.Context, key StepKey, handler string, err error) {
	_, span := i.tracer.Start(ctx, "workflow.rollback",
		trace.WithAttributes(
			attribute.String("step.key", key.String()),
			attribute.String("rollback.handler", handler),
		))
	defer span.End()

	status := StatusSuccess
	if err != nil {
		status = StatusFailure
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	if i.rollbacks != nil {
		i.rollbacks.Add(ctx, 1, metric.WithAttributes(attribute.String("status", status)))
	}
}
