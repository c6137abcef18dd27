// Package stepflow provides a top-level convenience entry point that loads a
// workflow descriptor for a goal and executes it against a step registry.
//
// Usage:
//
//	registry := workflow.NewRegistry()
//	registry.MustRegister(workflow.StepInfo{ID: "init"}, initStep)
//
//	report, err := stepflow.Run(ctx, "deploy", registry,
//	    stepflow.WithDescriptorDir("workflows"),
//	    stepflow.WithOverrides(map[string]string{"upload[snapshot]": "repo=>snapshots"}),
//	)
//
// The pipeline is dsl.Source → dsl.Compile → workflow.ContextBuilder →
// workflow.Executor (Validate, Execute). Use those packages directly when
// finer control is needed.
package stepflow

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/BaSui01/stepflow/workflow"
	"github.com/BaSui01/stepflow/workflow/dsl"
)

// Option configures [Prepare] and [Run].
type Option func(*options)

type options struct {
	descriptorDir  string
	descriptorFile string
	offline        bool
	overrides      map[string]string
	project        workflow.ProjectIdentity
	logger         *zap.Logger
	metrics        workflow.MetricsRecorder
	tracerProvider trace.TracerProvider
	runID          string
}

// WithDescriptorDir sets the directory holding one descriptor per goal.
func WithDescriptorDir(dir string) Option {
	return func(o *options) { o.descriptorDir = dir }
}

// WithDescriptorFile uses a custom descriptor file regardless of goal.
func WithDescriptorFile(path string) Option {
	return func(o *options) { o.descriptorFile = path }
}

// WithOffline rejects steps that require online connectivity.
func WithOffline(offline bool) Option {
	return func(o *options) { o.offline = offline }
}

// WithOverrides sets data overrides keyed by "id", "id[qualifier]" or "<key>-rollback".
func WithOverrides(overrides map[string]string) Option {
	return func(o *options) { o.overrides = overrides }
}

// WithProject sets the identity used for @{project.*} expansion.
func WithProject(project workflow.ProjectIdentity) Option {
	return func(o *options) { o.project = project }
}

// WithLogger sets a custom zap logger.
func WithLogger(logger *zap.Logger) Option {
	return func(o *options) { o.logger = logger }
}

// WithMetrics reports run, step and rollback metrics to recorder.
func WithMetrics(recorder workflow.MetricsRecorder) Option {
	return func(o *options) { o.metrics = recorder }
}

// WithTracerProvider sets the provider for workflow spans.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(o *options) { o.tracerProvider = tp }
}

// WithRunID overrides the generated run id.
func WithRunID(runID string) Option {
	return func(o *options) { o.runID = runID }
}

func buildOptions(opts []Option) *options {
	o := &options{descriptorDir: dsl.DefaultDescriptorDir}
	for _, opt := range opts {
		opt(o)
	}
	if o.logger == nil {
		o.logger = zap.NewNop()
	}
	return o
}

// Load reads and compiles the descriptor for goal and attaches execution
// contexts built from the descriptor data and the configured overrides.
func Load(goal string, opts ...Option) (*workflow.ProcessingWorkflow, error) {
	return buildOptions(opts).load(goal)
}

func (o *options) load(goal string) (*workflow.ProcessingWorkflow, error) {
	overrides, err := workflow.ParseOverrides(o.overrides)
	if err != nil {
		return nil, err
	}

	wf, err := dsl.NewSource(o.descriptorDir, o.descriptorFile).Load(goal)
	if err != nil {
		return nil, err
	}

	workflow.NewContextBuilder(overrides).Attach(wf)
	return wf, nil
}

// Prepare loads the workflow for goal and returns a validated executor.
func Prepare(goal string, registry *workflow.Registry, opts ...Option) (*workflow.Executor, error) {
	o := buildOptions(opts)

	wf, err := o.load(goal)
	if err != nil {
		return nil, err
	}

	execOpts := []workflow.ExecutorOption{
		workflow.WithMetrics(o.metrics),
		workflow.WithRunID(o.runID),
	}
	if o.tracerProvider != nil {
		execOpts = append(execOpts, workflow.WithTracerProvider(o.tracerProvider))
	}

	exec := workflow.NewExecutor(wf, registry, o.project, o.logger, execOpts...)
	if err := exec.Validate(!o.offline); err != nil {
		return nil, err
	}
	return exec, nil
}

// Run prepares and executes the workflow for goal.
// The report is populated whenever execution started, also on failure.
func Run(ctx context.Context, goal string, registry *workflow.Registry, opts ...Option) (workflow.RunReport, error) {
	if registry == nil {
		return workflow.RunReport{}, fmt.Errorf("stepflow: registry is required")
	}
	exec, err := Prepare(goal, registry, opts...)
	if err != nil {
		return workflow.RunReport{Goal: goal}, err
	}
	err = exec.Execute(ctx)
	return exec.Report(), err
}
