package workflow

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/BaSui01/stepflow/types"
)

// Step 处理步骤接口，由宿主实现
type Step interface {
	// Execute 执行步骤
	Execute(ctx context.Context, ec *ExecutionContext) error
}

// RollbackProvider 声明回滚处理器的步骤实现此接口
type RollbackProvider interface {
	RollbackHandlers() []RollbackHandler
}

// StepFunc 函数适配器
type StepFunc func(ctx context.Context, ec *ExecutionContext) error

func (f StepFunc) Execute(ctx context.Context, ec *ExecutionContext) error {
	return f(ctx, ec)
}

// StepInfo 步骤元数据
type StepInfo struct {
	ID             string `json:"id"`
	Description    string `json:"description,omitempty"`
	RequiresOnline bool   `json:"requires_online"`
}

// Entry 注册表条目
type Entry struct {
	Info StepInfo
	Step Step
}

// RollbackHandlers 返回步骤声明的回滚处理器
func (e Entry) RollbackHandlers() []RollbackHandler {
	if rp, ok := e.Step.(RollbackProvider); ok {
		return rp.RollbackHandlers()
	}
	return nil
}

// Registry 步骤注册表（step id -> 实现）
type Registry struct {
	mu      sync.RWMutex
	entries map[string]Entry
}

// NewRegistry 创建步骤注册表
func NewRegistry() *Registry {
	return &Registry{entries: make(map[string]Entry)}
}

// Register 注册步骤，ID 必须唯一
func (r *Registry) Register(info StepInfo, step Step) error {
	info.ID = strings.TrimSpace(info.ID)
	if info.ID == "" {
		return fmt.Errorf("step id is required")
	}
	if step == nil {
		return fmt.Errorf("step %q: implementation is nil", info.ID)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.entries[info.ID]; exists {
		return types.NewError(types.ErrDuplicateStep,
			fmt.Sprintf("the processing step id '%s' is not unique", info.ID))
	}
	r.entries[info.ID] = Entry{Info: info, Step: step}
	return nil
}

// MustRegister 注册步骤，失败时 panic
func (r *Registry) MustRegister(info StepInfo, step Step) {
	if err := r.Register(info, step); err != nil {
		panic(err)
	}
}

// Lookup 查找步骤
func (r *Registry) Lookup(id string) (Entry, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.entries[id]
	return e, ok
}

// Infos 返回按 ID 排序的步骤元数据
func (r *Registry) Infos() []StepInfo {
	r.mu.RLock()
	defer r.mu.RUnlock()

	infos := make([]StepInfo, 0, len(r.entries))
	for _, e := range r.entries {
		infos = append(infos, e.Info)
	}
	slices.SortFunc(infos, func(a, b StepInfo) int { return strings.Compare(a.ID, b.ID) })
	return infos
}

// Len 返回注册的步骤数
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}
