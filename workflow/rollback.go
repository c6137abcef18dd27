package workflow

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"slices"
	"strings"
	"sync"
)

// RollbackShape 回滚处理器的参数形态
type RollbackShape int

const (
	// ShapeNoArgs ()
	ShapeNoArgs RollbackShape = iota
	// ShapeContext (context)
	ShapeContext
	// ShapeError (failure)
	ShapeError
	// ShapeContextError (context, failure)
	ShapeContextError
	// ShapeErrorContext (failure, context)
	ShapeErrorContext
)

func (s RollbackShape) String() string {
	switch s {
	case ShapeNoArgs:
		return "()"
	case ShapeContext:
		return "(context)"
	case ShapeError:
		return "(failure)"
	case ShapeContextError:
		return "(context, failure)"
	case ShapeErrorContext:
		return "(failure, context)"
	default:
		return fmt.Sprintf("RollbackShape(%d)", int(s))
	}
}

// ErrorMatcher 失败类型过滤器
type ErrorMatcher func(err error) bool

// MatchError 匹配错误链中包含 target 的失败（errors.Is）
func MatchError(target error) ErrorMatcher {
	return func(err error) bool { return errors.Is(err, target) }
}

// MatchErrorType 匹配错误链中存在 T 类型的失败（errors.As）
func MatchErrorType[T error]() ErrorMatcher {
	return func(err error) bool {
		var target T
		return errors.As(err, &target)
	}
}

// RollbackHandler 回滚处理器（名称 + 失败过滤器 + 形态 + 回调）
type RollbackHandler struct {
	Name    string
	Shape   RollbackShape
	Filters []ErrorMatcher

	noArgs       func(ctx context.Context) error
	withContext  func(ctx context.Context, ec *ExecutionContext) error
	withError    func(ctx context.Context, failure error) error
	contextError func(ctx context.Context, ec *ExecutionContext, failure error) error
	errorContext func(ctx context.Context, failure error, ec *ExecutionContext) error
}

// OnRollback 注册无参回滚处理器
func OnRollback(name string, fn func(ctx context.Context) error, filters ...ErrorMatcher) RollbackHandler {
	return RollbackHandler{Name: name, Shape: ShapeNoArgs, Filters: filters, noArgs: fn}
}

// OnRollbackWithContext 注册接收执行上下文的回滚处理器
func OnRollbackWithContext(name string, fn func(ctx context.Context, ec *ExecutionContext) error, filters ...ErrorMatcher) RollbackHandler {
	return RollbackHandler{Name: name, Shape: ShapeContext, Filters: filters, withContext: fn}
}

// OnRollbackWithError 注册接收失败原因的回滚处理器
func OnRollbackWithError(name string, fn func(ctx context.Context, failure error) error, filters ...ErrorMatcher) RollbackHandler {
	return RollbackHandler{Name: name, Shape: ShapeError, Filters: filters, withError: fn}
}

// OnRollbackWithContextAndError 注册 (context, failure) 形态的回滚处理器
func OnRollbackWithContextAndError(name string, fn func(ctx context.Context, ec *ExecutionContext, failure error) error, filters ...ErrorMatcher) RollbackHandler {
	return RollbackHandler{Name: name, Shape: ShapeContextError, Filters: filters, contextError: fn}
}

// OnRollbackWithErrorAndContext 注册 (failure, context) 形态的回滚处理器
func OnRollbackWithErrorAndContext(name string, fn func(ctx context.Context, failure error, ec *ExecutionContext) error, filters ...ErrorMatcher) RollbackHandler {
	return RollbackHandler{Name: name, Shape: ShapeErrorContext, Filters: filters, errorContext: fn}
}

// Matches 过滤器为空或任一过滤器命中
func (h RollbackHandler) Matches(failure error) bool {
	if len(h.Filters) == 0 {
		return true
	}
	for _, f := range h.Filters {
		if f != nil && f(failure) {
			return true
		}
	}
	return false
}

// invoke 按形态分派，panic 被转换为错误
func (h RollbackHandler) invoke(ctx context.Context, ec *ExecutionContext, failure error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &StepPanicError{Step: ec.Key(), Value: r, Stack: debug.Stack()}
		}
	}()

	switch h.Shape {
	case ShapeNoArgs:
		if h.noArgs != nil {
			return h.noArgs(ctx)
		}
	case ShapeContext:
		if h.withContext != nil {
			return h.withContext(ctx, ec)
		}
	case ShapeError:
		if h.withError != nil {
			return h.withError(ctx, failure)
		}
	case ShapeContextError:
		if h.contextError != nil {
			return h.contextError(ctx, ec, failure)
		}
	case ShapeErrorContext:
		if h.errorContext != nil {
			return h.errorContext(ctx, failure, ec)
		}
	default:
		return fmt.Errorf("unsupported rollback shape %s", h.Shape)
	}
	return fmt.Errorf("rollback handler %q has no callable for shape %s", h.Name, h.Shape)
}

// selectHandlers 选出匹配失败的处理器并按名称升序排列
func selectHandlers(handlers []RollbackHandler, failure error) []RollbackHandler {
	matched := make([]RollbackHandler, 0, len(handlers))
	for _, h := range handlers {
		if h.Matches(failure) {
			matched = append(matched, h)
		}
	}
	slices.SortStableFunc(matched, func(a, b RollbackHandler) int {
		return strings.Compare(a.Name, b.Name)
	})
	return matched
}

// =============================================================================
// 回滚栈
// =============================================================================

type stackEntry struct {
	step  *SimpleStep
	entry Entry
	ec    *ExecutionContext
}

// rollbackStack 已执行步骤的 LIFO 记录，并行组成员并发压栈
type rollbackStack struct {
	mu      sync.Mutex
	entries []stackEntry
}

func (s *rollbackStack) push(e stackEntry) {
	s.mu.Lock()
	s.entries = append(s.entries, e)
	s.mu.Unlock()
}

func (s *rollbackStack) pop() (stackEntry, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := len(s.entries)
	if n == 0 {
		return stackEntry{}, false
	}
	e := s.entries[n-1]
	s.entries[n-1] = stackEntry{}
	s.entries = s.entries[:n-1]
	return e, true
}

func (s *rollbackStack) len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}
