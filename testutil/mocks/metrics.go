package mocks

import (
	"fmt"
	"sync"
	"time"
)

// MockMetrics 记录执行器上报的指标，实现 workflow.MetricsRecorder
type MockMetrics struct {
	mu        sync.Mutex
	runs      []string
	steps     []string
	rollbacks []string
}

// NewMockMetrics 创建 MockMetrics
func NewMockMetrics() *MockMetrics {
	return &MockMetrics{}
}

// RecordRun 记录 "goal/status"
func (m *MockMetrics) RecordRun(goal, status string, _ time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.runs = append(m.runs, fmt.Sprintf("%s/%s", goal, status))
}

// RecordStep 记录 "step/section/status"
func (m *MockMetrics) RecordStep(_, step, section, status string, _ time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.steps = append(m.steps, fmt.Sprintf("%s/%s/%s", step, section, status))
}

// RecordRollback 记录 "step/handler/status"
func (m *MockMetrics) RecordRollback(_, step, handler, status string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rollbacks = append(m.rollbacks, fmt.Sprintf("%s/%s/%s", step, handler, status))
}

// Runs 返回运行记录
func (m *MockMetrics) Runs() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.runs...)
}

// Steps 返回步骤记录
func (m *MockMetrics) Steps() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.steps...)
}

// Rollbacks 返回回滚记录
func (m *MockMetrics) Rollbacks() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.rollbacks...)
}
