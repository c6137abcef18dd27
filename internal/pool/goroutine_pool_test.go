package pool

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewGoroutinePool_SanitizesConfig(t *testing.T) {
	p := NewGoroutinePool(GoroutinePoolConfig{MaxWorkers: -1, QueueSize: -5})
	defer p.Close()

	assert.Equal(t, 1, p.maxWorkers)
	assert.Equal(t, 0, cap(p.taskQueue))
	assert.Equal(t, DefaultGoroutinePoolConfig().IdleTimeout, p.idleTimeout)
}

func TestGoroutinePool_SubmitWait(t *testing.T) {
	p := NewGoroutinePool(DefaultGoroutinePoolConfig())
	defer p.Close()

	errTask := errors.New("task failed")
	require.NoError(t, p.SubmitWait(context.Background(), func(context.Context) error { return nil }))
	assert.ErrorIs(t, p.SubmitWait(context.Background(), func(context.Context) error { return errTask }), errTask)

	stats := p.Stats()
	assert.Equal(t, int64(2), stats.Submitted)
	assert.Equal(t, int64(1), stats.Completed)
	assert.Equal(t, int64(1), stats.Failed)
}

func TestGoroutinePool_PanicRecovered(t *testing.T) {
	var handled atomic.Value
	p := NewGoroutinePool(GoroutinePoolConfig{
		MaxWorkers:   1,
		QueueSize:    1,
		PanicHandler: func(v any) { handled.Store(v) },
	})
	defer p.Close()

	err := p.SubmitWait(context.Background(), func(context.Context) error { panic("bad task") })
	var panicErr *PanicError
	require.ErrorAs(t, err, &panicErr)
	assert.Equal(t, "bad task", panicErr.Value)
	assert.Equal(t, "bad task", handled.Load())
}

func TestGoroutinePool_SubmitAfterClose(t *testing.T) {
	p := NewGoroutinePool(DefaultGoroutinePoolConfig())
	p.Close()
	p.Close()

	_, err := p.Submit(context.Background(), func(context.Context) error { return nil })
	assert.ErrorIs(t, err, ErrPoolClosed)
}

func TestGoroutinePool_CloseDrainsQueue(t *testing.T) {
	p := NewGoroutinePool(GoroutinePoolConfig{MaxWorkers: 2, QueueSize: 8})

	var ran atomic.Int32
	for i := 0; i < 8; i++ {
		_, err := p.Submit(context.Background(), func(context.Context) error {
			time.Sleep(5 * time.Millisecond)
			ran.Add(1)
			return nil
		})
		require.NoError(t, err)
	}

	p.Close()
	assert.Equal(t, int32(8), ran.Load())
}

func TestRunGroup_Empty(t *testing.T) {
	assert.Empty(t, RunGroup(context.Background(), nil, nil))
}

func TestRunGroup_RunsConcurrentlyAndWaits(t *testing.T) {
	const n = 4
	var running, peak atomic.Int32
	release := make(chan struct{})

	tasks := make([]Task, n)
	for i := range tasks {
		tasks[i] = func(context.Context) error {
			cur := running.Add(1)
			for {
				old := peak.Load()
				if cur <= old || peak.CompareAndSwap(old, cur) {
					break
				}
			}
			<-release
			running.Add(-1)
			return nil
		}
	}

	done := make(chan []error)
	go func() { done <- RunGroup(context.Background(), tasks, nil) }()

	require.Eventually(t, func() bool { return peak.Load() == n }, 2*time.Second, 5*time.Millisecond)
	select {
	case <-done:
		t.Fatal("RunGroup returned before its tasks finished")
	default:
	}

	close(release)
	errs := <-done
	assert.Equal(t, make([]error, n), errs)
	assert.Equal(t, int32(0), running.Load())
}

func TestRunGroup_ErrorsByIndex(t *testing.T) {
	errA := errors.New("a")
	errC := errors.New("c")

	errs := RunGroup(context.Background(), []Task{
		func(context.Context) error { return errA },
		func(context.Context) error { return nil },
		func(context.Context) error { time.Sleep(10 * time.Millisecond); return errC },
		func(context.Context) error { panic("d") },
	}, nil)

	require.Len(t, errs, 4)
	assert.Same(t, errA, errs[0])
	assert.NoError(t, errs[1])
	assert.Same(t, errC, errs[2])
	var panicErr *PanicError
	assert.ErrorAs(t, errs[3], &panicErr)
}
