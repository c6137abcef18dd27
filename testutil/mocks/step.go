// MockStep 的处理步骤测试模拟实现。
//
// 支持失败注入、panic、延迟、回滚处理器与调用记录。
package mocks

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/BaSui01/stepflow/testutil"
	"github.com/BaSui01/stepflow/workflow"
)

// --- MockStep 结构 ---

// MockStep 是 workflow.Step 的模拟实现
// 执行时记录 "exec:<key>"，回滚处理器记录 "rollback:<key>:<handler>"
type MockStep struct {
	mu sync.Mutex

	id       string
	recorder *testutil.Recorder

	// 行为注入
	errs       map[string]error
	defaultErr error
	panicValue any
	delay      time.Duration
	handlers   []workflow.RollbackHandler

	// 调用记录
	contexts []*workflow.ExecutionContext
	failures []error
}

// --- 构造函数和 Builder 方法 ---

// NewMockStep 创建新的 MockStep，recorder 为 nil 时自动创建
func NewMockStep(id string, recorder *testutil.Recorder) *MockStep {
	if recorder == nil {
		recorder = testutil.NewRecorder()
	}
	return &MockStep{
		id:       id,
		recorder: recorder,
		errs:     make(map[string]error),
	}
}

// WithError 设置所有执行返回的错误
func (m *MockStep) WithError(err error) *MockStep {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.defaultErr = err
	return m
}

// WithErrorFor 仅对指定 key（如 "upload[b]"）返回错误
func (m *MockStep) WithErrorFor(key string, err error) *MockStep {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errs[key] = err
	return m
}

// WithPanic 执行时 panic
func (m *MockStep) WithPanic(v any) *MockStep {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.panicValue = v
	return m
}

// WithDelay 执行前等待
func (m *MockStep) WithDelay(d time.Duration) *MockStep {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.delay = d
	return m
}

// WithRollback 声明 (context, failure) 形态的回滚处理器，返回 err
func (m *MockStep) WithRollback(name string, err error, filters ...workflow.ErrorMatcher) *MockStep {
	return m.WithHandler(workflow.OnRollbackWithContextAndError(name,
		func(_ context.Context, ec *workflow.ExecutionContext, failure error) error {
			m.recordRollback(ec.Key().String(), name, failure)
			return err
		}, filters...))
}

// WithHandler 追加任意回滚处理器
func (m *MockStep) WithHandler(h workflow.RollbackHandler) *MockStep {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handlers = append(m.handlers, h)
	return m
}

// --- workflow.Step 实现 ---

// Execute 实现 workflow.Step
func (m *MockStep) Execute(ctx context.Context, ec *workflow.ExecutionContext) error {
	m.mu.Lock()
	delay := m.delay
	panicValue := m.panicValue
	err, ok := m.errs[ec.Key().String()]
	if !ok {
		err = m.defaultErr
	}
	m.contexts = append(m.contexts, ec)
	m.mu.Unlock()

	m.recorder.Record("exec:" + ec.Key().String())

	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	if panicValue != nil {
		panic(panicValue)
	}
	return err
}

// RollbackHandlers 实现 workflow.RollbackProvider
func (m *MockStep) RollbackHandlers() []workflow.RollbackHandler {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]workflow.RollbackHandler, len(m.handlers))
	copy(out, m.handlers)
	return out
}

func (m *MockStep) recordRollback(key, handler string, failure error) {
	m.mu.Lock()
	m.failures = append(m.failures, failure)
	m.mu.Unlock()
	m.recorder.Record(fmt.Sprintf("rollback:%s:%s", key, handler))
}

// --- 查询方法 ---

// ID 返回步骤 ID
func (m *MockStep) ID() string { return m.id }

// Calls 返回执行次数
func (m *MockStep) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.contexts)
}

// Contexts 返回每次执行收到的上下文
func (m *MockStep) Contexts() []*workflow.ExecutionContext {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*workflow.ExecutionContext, len(m.contexts))
	copy(out, m.contexts)
	return out
}

// RollbackFailures 返回回滚处理器收到的失败
func (m *MockStep) RollbackFailures() []error {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]error, len(m.failures))
	copy(out, m.failures)
	return out
}

// Info 返回默认注册元数据
func (m *MockStep) Info() workflow.StepInfo {
	return workflow.StepInfo{ID: m.id, Description: "Mock step: " + m.id}
}
