package workflow

import (
	"errors"
	"fmt"
	"strings"

	"github.com/BaSui01/stepflow/types"
)

var (
	// ErrRollbackRequested 步骤返回此错误（或包装它）时执行完整回滚与 finally，
	// 但工作流以成功结束
	ErrRollbackRequested = errors.New("rollback requested without failure")

	// ErrExecutorReused 执行器只能运行一次
	ErrExecutorReused = types.NewError(types.ErrExecutorState, "executor has already been used")
)

// UnknownStepError 工作流引用了注册表中不存在的步骤
type UnknownStepError struct {
	Goal string
	IDs  []string
}

func (e *UnknownStepError) Error() string {
	return fmt.Sprintf("workflow %q references unknown processing steps: %s",
		e.Goal, strings.Join(e.IDs, ", "))
}

func (e *UnknownStepError) Code() types.ErrorCode { return types.ErrUnknownStepReference }

// OfflineError 离线模式下引用了需要网络的步骤
type OfflineError struct {
	Goal   string
	StepID string
}

func (e *OfflineError) Error() string {
	return fmt.Sprintf("processing step %q of workflow %q requires online connectivity but execution is offline",
		e.StepID, e.Goal)
}

func (e *OfflineError) Code() types.ErrorCode { return types.ErrOfflineCapabilityViolated }

// RollbackDispatchError 回滚处理器调用失败，只记录不中断回滚
type RollbackDispatchError struct {
	Step    StepKey
	Handler string
	Err     error
}

func (e *RollbackDispatchError) Error() string {
	return fmt.Sprintf("rollback handler %q of step %s failed: %v", e.Handler, e.Step, e.Err)
}

func (e *RollbackDispatchError) Unwrap() error { return e.Err }

func (e *RollbackDispatchError) Code() types.ErrorCode { return types.ErrRollbackDispatch }

// StepPanicError 步骤或回滚处理器 panic
type StepPanicError struct {
	Step  StepKey
	Value any
	Stack []byte
}

func (e *StepPanicError) Error() string {
	return fmt.Sprintf("step %s panicked: %v", e.Step, e.Value)
}

func (e *StepPanicError) Code() types.ErrorCode { return types.ErrStepPanic }
