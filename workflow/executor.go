package workflow

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/go-multierror"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/BaSui01/stepflow/internal/pool"
	"github.com/BaSui01/stepflow/types"
)

// ExecutorState 执行器状态
type ExecutorState int32

const (
	StateIdle ExecutorState = iota
	StateValidatingReferences
	StateValidated
	StateRunningTry
	StateRollingBack
	StateRunningFinally
	StateDone
)

func (s ExecutorState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateValidatingReferences:
		return "validating_references"
	case StateValidated:
		return "validated"
	case StateRunningTry:
		return "running_try"
	case StateRollingBack:
		return "rolling_back"
	case StateRunningFinally:
		return "running_finally"
	case StateDone:
		return "done"
	default:
		return fmt.Sprintf("ExecutorState(%d)", int32(s))
	}
}

// RunReport 单次执行的结果摘要
type RunReport struct {
	RunID string
	Goal  string
	// Failure try 段中驱动回滚的失败
	Failure error
	// RollbackRequested 失败为 ErrRollbackRequested
	RollbackRequested bool
	// RolledBack 按出栈顺序记录的步骤
	RolledBack []StepKey
	// DiscardedFailures 并行组中除首个失败外的其他失败
	DiscardedFailures []error
	// FinallyFailures finally 段中的失败
	FinallyFailures []error
	// DispatchErrors 回滚处理器调用失败
	DispatchErrors []error
	Duration       time.Duration
}

// ExecutorOption 执行器选项
type ExecutorOption func(*Executor)

// WithMetrics 设置指标记录器
func WithMetrics(recorder MetricsRecorder) ExecutorOption {
	return func(e *Executor) {
		if recorder != nil {
			e.metrics = recorder
		}
	}
}

// WithTracerProvider 设置 TracerProvider，默认使用全局 provider
func WithTracerProvider(tp trace.TracerProvider) ExecutorOption {
	return func(e *Executor) { e.tracerProvider = tp }
}

// WithRunID 指定运行 ID，默认生成 UUID
func WithRunID(runID string) ExecutorOption {
	return func(e *Executor) {
		if runID != "" {
			e.runID = runID
		}
	}
}

// Executor 工作流执行器，每个实例只执行一次
type Executor struct {
	workflow *ProcessingWorkflow
	registry *Registry
	project  ProjectIdentity
	logger   *zap.Logger

	metrics        MetricsRecorder
	tracerProvider trace.TracerProvider
	inst           *instrumentation
	runID          string

	state    atomic.Int32
	invalid  error
	resolved map[string]Entry
	contexts map[StepKey]*ExecutionContext
	stack    rollbackStack

	mu       sync.Mutex
	report   RunReport
	dispatch *multierror.Error
}

// NewExecutor 创建执行器
func NewExecutor(wf *ProcessingWorkflow, registry *Registry, project ProjectIdentity, logger *zap.Logger, opts ...ExecutorOption) *Executor {
	if logger == nil {
		logger = zap.NewNop()
	}
	if registry == nil {
		registry = NewRegistry()
	}

	e := &Executor{
		workflow: wf,
		registry: registry,
		project:  project,
		metrics:  nopRecorder{},
		runID:    uuid.NewString(),
	}
	for _, opt := range opts {
		opt(e)
	}

	e.logger = logger.With(
		zap.String("component", "workflow_executor"),
		zap.String("goal", wf.Goal()),
		zap.String("run_id", e.runID),
	)
	e.inst = newInstrumentation(e.tracerProvider)
	e.report = RunReport{RunID: e.runID, Goal: wf.Goal()}
	return e
}

// State 返回当前状态
func (e *Executor) State() ExecutorState {
	return ExecutorState(e.state.Load())
}

// RunID 返回运行 ID
func (e *Executor) RunID() string { return e.runID }

// Report 返回执行结果摘要
func (e *Executor) Report() RunReport {
	e.mu.Lock()
	defer e.mu.Unlock()

	r := e.report
	r.RolledBack = slices.Clone(r.RolledBack)
	r.DiscardedFailures = slices.Clone(r.DiscardedFailures)
	r.FinallyFailures = slices.Clone(r.FinallyFailures)
	r.DispatchErrors = slices.Clone(e.dispatch.WrappedErrors())
	return r
}

// DispatchError 返回聚合后的回滚处理器错误，没有时为 nil
func (e *Executor) DispatchError() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.dispatch.ErrorOrNil()
}

func (e *Executor) setState(s ExecutorState) {
	e.state.Store(int32(s))
}

// Validate 校验所有步骤引用
// 缺失的 ID 聚合为一个 UnknownStepError；离线时第一个需要网络的步骤返回 OfflineError
func (e *Executor) Validate(onlineAllowed bool) error {
	if !e.state.CompareAndSwap(int32(StateIdle), int32(StateValidatingReferences)) {
		return types.NewError(types.ErrExecutorState,
			fmt.Sprintf("cannot validate executor in state %s", e.State()))
	}

	if err := e.validateReferences(onlineAllowed); err != nil {
		e.mu.Lock()
		e.invalid = err
		e.mu.Unlock()
		e.setState(StateDone)
		e.logger.Error("workflow validation failed", zap.Error(err))
		return err
	}

	e.setState(StateValidated)
	e.logger.Debug("workflow references validated",
		zap.Int("steps", len(e.resolved)),
		zap.Bool("online_allowed", onlineAllowed),
	)
	return nil
}

func (e *Executor) validateReferences(onlineAllowed bool) error {
	resolved := make(map[string]Entry)
	var missing []string

	for _, step := range e.workflow.AllSteps() {
		id := step.Key.ID
		if _, ok := resolved[id]; ok || slices.Contains(missing, id) {
			continue
		}
		entry, ok := e.registry.Lookup(id)
		if !ok {
			missing = append(missing, id)
			continue
		}
		resolved[id] = entry
	}

	if len(missing) > 0 {
		slices.Sort(missing)
		return &UnknownStepError{Goal: e.workflow.Goal(), IDs: missing}
	}

	if !onlineAllowed {
		for _, id := range e.workflow.StepIDs() {
			if resolved[id].Info.RequiresOnline {
				return &OfflineError{Goal: e.workflow.Goal(), StepID: id}
			}
		}
	}

	e.resolved = resolved
	return nil
}

// Execute 执行工作流：try 段 → (失败时回滚) → finally 段
// try 段失败时原样返回该失败；否则返回 finally 段的第一个失败
func (e *Executor) Execute(ctx context.Context) error {
	if e.State() == StateIdle {
		if err := e.Validate(true); err != nil {
			return err
		}
	}
	if !e.state.CompareAndSwap(int32(StateValidated), int32(StateRunningTry)) {
		// 校验失败的执行器从未运行，返回原校验错误
		e.mu.Lock()
		invalid := e.invalid
		e.mu.Unlock()
		if invalid != nil {
			return invalid
		}
		return ErrExecutorReused
	}

	start := time.Now()
	goal := e.workflow.Goal()
	e.prepareContexts()

	ctx = types.WithRunID(types.WithGoal(ctx, goal), e.runID)
	ctx, span := e.inst.startRun(ctx, goal, e.runID)
	defer span.End()

	e.logger.Info("workflow started",
		zap.Int("try_steps", len(e.workflow.try)),
		zap.Int("finally_steps", len(e.workflow.finally)),
	)

	failure := e.runTry(ctx)

	// 回滚与 finally 不受调用方取消影响
	cleanupCtx := context.WithoutCancel(ctx)

	requested := failure != nil && errors.Is(failure, ErrRollbackRequested)
	if failure != nil {
		e.setState(StateRollingBack)
		e.mu.Lock()
		e.report.Failure = failure
		e.report.RollbackRequested = requested
		e.mu.Unlock()
		e.rollback(cleanupCtx, failure)
	}

	e.setState(StateRunningFinally)
	finallyErr := e.runFinally(cleanupCtx)
	e.setState(StateDone)

	result := failure
	if requested {
		result = nil
	}
	if result == nil {
		result = finallyErr
	}

	duration := time.Since(start)
	e.mu.Lock()
	e.report.Duration = duration
	e.mu.Unlock()

	status := StatusSuccess
	switch {
	case result != nil:
		status = StatusFailure
		span.RecordError(result)
		span.SetStatus(codes.Error, result.Error())
	case requested:
		status = StatusRolledBack
	}
	e.metrics.RecordRun(goal, status, duration)

	if result != nil {
		e.logger.Error("workflow failed", zap.Duration("duration", duration), zap.Error(result))
	} else {
		e.logger.Info("workflow completed",
			zap.String("status", status),
			zap.Duration("duration", duration),
		)
	}
	return result
}

// prepareContexts 在执行前补齐缺失的上下文，避免并行阶段写 map
func (e *Executor) prepareContexts() {
	e.contexts = make(map[StepKey]*ExecutionContext)
	for _, step := range e.workflow.AllSteps() {
		if _, ok := e.contexts[step.Key]; ok {
			continue
		}
		ec, ok := e.workflow.Context(step.Key)
		if !ok {
			ec = NewExecutionContextBuilder(step.Key).Build()
		}
		e.contexts[step.Key] = ec
	}
}

func (e *Executor) runTry(ctx context.Context) error {
	for _, ws := range e.workflow.try {
		var err error
		switch s := ws.(type) {
		case *ParallelStep:
			err = e.runParallel(ctx, s)
		case *SimpleStep:
			err = e.runTryStep(ctx, s)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

func (e *Executor) runTryStep(ctx context.Context, step *SimpleStep) error {
	entry := e.resolved[step.Key.ID]
	ec := e.contexts[step.Key]
	e.stack.push(stackEntry{step: step, entry: entry, ec: ec})
	return e.invoke(ctx, step, entry, ec, SectionTry)
}

// runParallel 每个并行组使用独立的 worker pool；全部成员结束后才返回
func (e *Executor) runParallel(ctx context.Context, group *ParallelStep) error {
	members := group.Steps()
	tasks := make([]pool.Task, len(members))
	for i, member := range members {
		tasks[i] = func(ctx context.Context) error {
			return e.runTryStep(ctx, member)
		}
	}

	e.logger.Debug("executing parallel group", zap.Int("members", len(members)))

	errs := pool.RunGroup(ctx, tasks, nil)

	var first error
	for i, err := range errs {
		if err == nil {
			continue
		}
		if first == nil {
			first = err
			continue
		}
		e.logger.Warn("discarding failure of parallel sibling",
			zap.String("step", members[i].Key.String()),
			zap.Error(err),
		)
		e.mu.Lock()
		e.report.DiscardedFailures = append(e.report.DiscardedFailures, err)
		e.mu.Unlock()
	}
	return first
}

func (e *Executor) invoke(ctx context.Context, step *SimpleStep, entry Entry, ec *ExecutionContext, section string) error {
	goal := e.workflow.Goal()
	ctx = types.WithStep(ctx, step.Key.String())
	ctx, span := e.inst.startStep(ctx, step.Key, section)

	e.logger.Info("executing processing step",
		zap.String("step", step.Key.String()),
		zap.String("section", section),
	)

	start := time.Now()
	ec.ExpandProjectVariables(e.project)
	err := safeExecute(ctx, step, entry.Step, ec)
	duration := time.Since(start)

	e.inst.endStep(ctx, span, goal, section, duration, err)

	status := StatusSuccess
	if err != nil {
		status = StatusFailure
		e.logger.Error("processing step failed",
			zap.String("step", step.Key.String()),
			zap.String("section", section),
			zap.Duration("duration", duration),
			zap.Error(err),
		)
	} else {
		e.logger.Debug("processing step completed",
			zap.String("step", step.Key.String()),
			zap.Duration("duration", duration),
		)
	}
	e.metrics.RecordStep(goal, step.Key.ID, section, status, duration)
	return err
}

func safeExecute(ctx context.Context, step *SimpleStep, impl Step, ec *ExecutionContext) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &StepPanicError{Step: step.Key, Value: r, Stack: debug.Stack()}
		}
	}()
	if impl == nil {
		return fmt.Errorf("processing step %q has no implementation", step.Key.ID)
	}
	return impl.Execute(ctx, ec)
}

// rollback 清空回滚栈；处理器失败只记录，不中断
func (e *Executor) rollback(ctx context.Context, failure error) {
	goal := e.workflow.Goal()
	e.logger.Info("rolling back executed processing steps",
		zap.Int("steps", e.stack.len()),
		zap.NamedError("cause", failure),
	)

	for {
		se, ok := e.stack.pop()
		if !ok {
			break
		}

		e.mu.Lock()
		e.report.RolledBack = append(e.report.RolledBack, se.step.Key)
		e.mu.Unlock()

		handlers := selectHandlers(se.entry.RollbackHandlers(), failure)
		if len(handlers) == 0 {
			e.logger.Debug("no rollback handler matched", zap.String("step", se.step.Key.String()))
			continue
		}

		stepCtx := types.WithStep(ctx, se.step.Key.String())
		for _, h := range handlers {
			e.logger.Info("invoking rollback handler",
				zap.String("step", se.step.Key.String()),
				zap.String("handler", h.Name),
				zap.Stringer("shape", h.Shape),
			)

			err := h.invoke(stepCtx, se.ec, failure)
			e.inst.recordRollback(stepCtx, se.step.Key, h.Name, err)

			if err == nil {
				e.metrics.RecordRollback(goal, se.step.Key.ID, h.Name, StatusSuccess)
				continue
			}

			e.metrics.RecordRollback(goal, se.step.Key.ID, h.Name, StatusFailure)
			dispatchErr := &RollbackDispatchError{Step: se.step.Key, Handler: h.Name, Err: err}
			e.logger.Error("rollback handler failed",
				zap.String("step", se.step.Key.String()),
				zap.String("handler", h.Name),
				zap.Error(err),
			)
			e.mu.Lock()
			e.dispatch = multierror.Append(e.dispatch, dispatchErr)
			e.mu.Unlock()
		}
	}
}

// runFinally 顺序执行 finally 段；单个失败不阻止后续步骤
func (e *Executor) runFinally(ctx context.Context) error {
	var first error
	for _, step := range e.workflow.finally {
		err := e.invoke(ctx, step, e.resolved[step.Key.ID], e.contexts[step.Key], SectionFinally)
		if err == nil {
			continue
		}
		e.mu.Lock()
		e.report.FinallyFailures = append(e.report.FinallyFailures, err)
		e.mu.Unlock()
		if first == nil {
			first = err
		}
	}
	return first
}
