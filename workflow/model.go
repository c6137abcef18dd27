package workflow

import (
	"slices"
)

// WorkflowStep 工作流步骤（SimpleStep 或 ParallelStep）
type WorkflowStep interface {
	// IsParallel 是否为并行组
	IsParallel() bool
	// Steps 返回包含的简单步骤（简单步骤返回自身）
	Steps() []*SimpleStep

	workflowStep()
}

// SimpleStep 单个步骤引用
type SimpleStep struct {
	Key                 StepKey
	DefaultData         string
	DefaultRollbackData string
}

// NewSimpleStep 创建简单步骤
func NewSimpleStep(key StepKey) *SimpleStep {
	return &SimpleStep{Key: key}
}

// ID 返回步骤 ID
func (s *SimpleStep) ID() string { return s.Key.ID }

// Qualifier 返回限定符
func (s *SimpleStep) Qualifier() (string, bool) { return s.Key.Qualifier, s.Key.Qualified }

func (s *SimpleStep) IsParallel() bool      { return false }
func (s *SimpleStep) Steps() []*SimpleStep { return []*SimpleStep{s} }
func (s *SimpleStep) String() string        { return s.Key.String() }
func (*SimpleStep) workflowStep()           {}

// ParallelStep 并行组，成员按 key 去重并保持声明顺序
type ParallelStep struct {
	members []*SimpleStep
}

// NewParallelStep 创建并行组
func NewParallelStep(members ...*SimpleStep) *ParallelStep {
	p := &ParallelStep{}
	for _, m := range members {
		p.Add(m)
	}
	return p
}

// Add 添加成员，已存在相同 key 时返回 false
func (p *ParallelStep) Add(step *SimpleStep) bool {
	if slices.ContainsFunc(p.members, func(m *SimpleStep) bool { return m.Key == step.Key }) {
		return false
	}
	p.members = append(p.members, step)
	return true
}

// Len 返回成员数
func (p *ParallelStep) Len() int { return len(p.members) }

func (p *ParallelStep) IsParallel() bool { return true }

func (p *ParallelStep) Steps() []*SimpleStep {
	return slices.Clone(p.members)
}

func (*ParallelStep) workflowStep() {}

// ProcessingWorkflow 解析后的工作流（try 段 + finally 段）
type ProcessingWorkflow struct {
	goal     string
	try      []WorkflowStep
	finally  []*SimpleStep
	contexts map[StepKey]*ExecutionContext
}

// NewProcessingWorkflow 创建空工作流
func NewProcessingWorkflow(goal string) *ProcessingWorkflow {
	return &ProcessingWorkflow{
		goal:     goal,
		contexts: make(map[StepKey]*ExecutionContext),
	}
}

// Goal 返回目标名称
func (w *ProcessingWorkflow) Goal() string { return w.goal }

// AddStep 追加 try 段步骤，仅在解析阶段调用
func (w *ProcessingWorkflow) AddStep(step WorkflowStep) {
	w.try = append(w.try, step)
}

// AddFinallyStep 追加 finally 段步骤，仅在解析阶段调用
func (w *ProcessingWorkflow) AddFinallyStep(step *SimpleStep) {
	w.finally = append(w.finally, step)
}

// TrySteps 返回 try 段步骤
func (w *ProcessingWorkflow) TrySteps() []WorkflowStep {
	return slices.Clone(w.try)
}

// FinallySteps 返回 finally 段步骤
func (w *ProcessingWorkflow) FinallySteps() []*SimpleStep {
	return slices.Clone(w.finally)
}

// HasFinally 是否存在 finally 段步骤
func (w *ProcessingWorkflow) HasFinally() bool { return len(w.finally) > 0 }

// SetContext 绑定执行上下文
func (w *ProcessingWorkflow) SetContext(key StepKey, ec *ExecutionContext) {
	w.contexts[key] = ec
}

// Context 返回步骤的执行上下文
func (w *ProcessingWorkflow) Context(key StepKey) (*ExecutionContext, bool) {
	ec, ok := w.contexts[key]
	return ec, ok
}

// AllSteps 返回所有简单步骤（try 段展开并行组，随后 finally 段）
func (w *ProcessingWorkflow) AllSteps() []*SimpleStep {
	var out []*SimpleStep
	for _, s := range w.try {
		out = append(out, s.Steps()...)
	}
	return append(out, w.finally...)
}

// ContainsStep 是否引用了给定的步骤 ID
func (w *ProcessingWorkflow) ContainsStep(id string) bool {
	return slices.ContainsFunc(w.AllSteps(), func(s *SimpleStep) bool { return s.Key.ID == id })
}

// StepIDs 返回去重后的步骤 ID，按首次出现排序
func (w *ProcessingWorkflow) StepIDs() []string {
	seen := make(map[string]bool)
	var ids []string
	for _, s := range w.AllSteps() {
		if !seen[s.Key.ID] {
			seen[s.Key.ID] = true
			ids = append(ids, s.Key.ID)
		}
	}
	return ids
}
