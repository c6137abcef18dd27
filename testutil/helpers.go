// =============================================================================
// 🧪 测试辅助函数
// =============================================================================
// 提供通用的测试辅助函数和断言
//
// 使用方法:
//
//	rec := testutil.NewRecorder()
//	path := testutil.WriteDescriptor(t, dir, "deploy", "try {", "init", "}")
//	testutil.AssertEventuallyTrue(t, func() bool { return rec.Len() == 3 }, 5*time.Second)
// =============================================================================
package testutil

import (
	"context"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"testing"
	"time"
)

// =============================================================================
// 🎯 上下文辅助
// =============================================================================

// TestContext 返回带超时的测试上下文
func TestContext(t *testing.T) context.Context {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	t.Cleanup(cancel)
	return ctx
}

// TestContextWithTimeout 返回带自定义超时的测试上下文
func TestContextWithTimeout(t *testing.T, timeout time.Duration) context.Context {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	t.Cleanup(cancel)
	return ctx
}

// CancelledContext 返回已取消的上下文
func CancelledContext() context.Context {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	return ctx
}

// =============================================================================
// 🔍 断言辅助
// =============================================================================

// AssertEventuallyTrue 断言条件最终为真
func AssertEventuallyTrue(t *testing.T, condition func() bool, timeout time.Duration) {
	t.Helper()

	if !WaitFor(condition, timeout) {
		t.Errorf("condition was not satisfied within %v", timeout)
	}
}

// AssertBefore 断言事件 a 在 b 之前被记录
func AssertBefore(t *testing.T, rec *Recorder, a, b string) {
	t.Helper()

	ia, ib := rec.Index(a), rec.Index(b)
	switch {
	case ia < 0:
		t.Errorf("event %q was not recorded; events: %v", a, rec.Events())
	case ib < 0:
		t.Errorf("event %q was not recorded; events: %v", b, rec.Events())
	case ia > ib:
		t.Errorf("expected %q before %q; events: %v", a, b, rec.Events())
	}
}

// WaitFor 轮询等待条件满足
func WaitFor(condition func() bool, timeout time.Duration) bool {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if condition() {
			return true
		}
		time.Sleep(5 * time.Millisecond)
	}
	return condition()
}

// =============================================================================
// 📝 事件记录器
// =============================================================================

// Recorder 并发安全的有序事件记录器
type Recorder struct {
	mu     sync.Mutex
	events []string
}

// NewRecorder 创建事件记录器
func NewRecorder() *Recorder {
	return &Recorder{}
}

// Record 追加一条事件
func (r *Recorder) Record(event string) {
	r.mu.Lock()
	r.events = append(r.events, event)
	r.mu.Unlock()
}

// Events 返回事件副本
func (r *Recorder) Events() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.events)
}

// Filter 返回带指定前缀的事件
func (r *Recorder) Filter(prefix string) []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []string
	for _, e := range r.events {
		if strings.HasPrefix(e, prefix) {
			out = append(out, e)
		}
	}
	return out
}

// Count 返回与 event 完全相同的记录数
func (r *Recorder) Count(event string) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	n := 0
	for _, e := range r.events {
		if e == event {
			n++
		}
	}
	return n
}

// Index 返回事件首次出现的位置，未出现时为 -1
func (r *Recorder) Index(event string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Index(r.events, event)
}

// Len 返回事件数
func (r *Recorder) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.events)
}

// Reset 清空记录
func (r *Recorder) Reset() {
	r.mu.Lock()
	r.events = nil
	r.mu.Unlock()
}

// =============================================================================
// 📄 描述符辅助
// =============================================================================

// WriteDescriptor 将描述符行写入 dir/goal 并返回文件路径
func WriteDescriptor(t *testing.T, dir, goal string, lines ...string) string {
	t.Helper()

	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("failed to create descriptor dir: %v", err)
	}
	path := filepath.Join(dir, goal)
	content := strings.Join(lines, "\n") + "\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write descriptor: %v", err)
	}
	return path
}
