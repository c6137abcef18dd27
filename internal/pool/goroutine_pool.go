// Package pool provides the bounded goroutine pool used for parallel step groups.
package pool

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"
)

var (
	ErrPoolClosed = errors.New("pool is closed")
	ErrPoolFull   = errors.New("pool is full")
)

// Task represents a unit of work.
type Task func(ctx context.Context) error

// PanicError is returned for a task that panicked.
type PanicError struct {
	Value any
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("task panicked: %v", e.Value)
}

// GoroutinePool manages a pool of worker goroutines.
type GoroutinePool struct {
	maxWorkers  int
	taskQueue   chan taskWrapper
	workerCount atomic.Int32
	activeCount atomic.Int32
	closed      atomic.Bool
	submitMu    sync.RWMutex
	wg          sync.WaitGroup

	// Metrics
	submitted atomic.Int64
	completed atomic.Int64
	failed    atomic.Int64
	rejected  atomic.Int64

	// Config
	idleTimeout  time.Duration
	panicHandler func(any)
}

type taskWrapper struct {
	task   Task
	ctx    context.Context
	result chan error
}

// GoroutinePoolConfig configures the pool.
type GoroutinePoolConfig struct {
	MaxWorkers   int           `json:"max_workers"`
	QueueSize    int           `json:"queue_size"`
	IdleTimeout  time.Duration `json:"idle_timeout"`
	PanicHandler func(any)     `json:"-"`
}

// DefaultGoroutinePoolConfig returns sensible defaults.
func DefaultGoroutinePoolConfig() GoroutinePoolConfig {
	return GoroutinePoolConfig{
		MaxWorkers:  16,
		QueueSize:   64,
		IdleTimeout: 60 * time.Second,
	}
}

// NewGoroutinePool creates a new goroutine pool.
func NewGoroutinePool(config GoroutinePoolConfig) *GoroutinePool {
	if config.MaxWorkers <= 0 {
		config.MaxWorkers = 1
	}
	if config.QueueSize < 0 {
		config.QueueSize = 0
	}
	if config.IdleTimeout <= 0 {
		config.IdleTimeout = DefaultGoroutinePoolConfig().IdleTimeout
	}
	return &GoroutinePool{
		maxWorkers:   config.MaxWorkers,
		taskQueue:    make(chan taskWrapper, config.QueueSize),
		idleTimeout:  config.IdleTimeout,
		panicHandler: config.PanicHandler,
	}
}

// Submit submits a task to the pool. The returned channel receives the
// task's error once it has run.
func (p *GoroutinePool) Submit(ctx context.Context, task Task) (<-chan error, error) {
	p.submitMu.RLock()
	defer p.submitMu.RUnlock()

	if p.closed.Load() {
		return nil, ErrPoolClosed
	}

	p.submitted.Add(1)

	wrapper := taskWrapper{
		task:   task,
		ctx:    ctx,
		result: make(chan error, 1),
	}

	select {
	case p.taskQueue <- wrapper:
		p.ensureWorker()
		return wrapper.result, nil
	default:
		// Queue full, try to spawn new worker
		if p.trySpawnWorker() {
			select {
			case p.taskQueue <- wrapper:
				return wrapper.result, nil
			default:
			}
		}
		p.rejected.Add(1)
		return nil, ErrPoolFull
	}
}

// SubmitWait submits a task and waits for completion.
func (p *GoroutinePool) SubmitWait(ctx context.Context, task Task) error {
	result, err := p.Submit(ctx, task)
	if err != nil {
		return err
	}
	select {
	case err := <-result:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (p *GoroutinePool) ensureWorker() {
	if p.workerCount.Load() < int32(p.maxWorkers) {
		p.trySpawnWorker()
	}
}

func (p *GoroutinePool) trySpawnWorker() bool {
	for {
		current := p.workerCount.Load()
		if current >= int32(p.maxWorkers) {
			return false
		}
		if p.workerCount.CompareAndSwap(current, current+1) {
			p.wg.Add(1)
			go p.worker()
			return true
		}
	}
}

func (p *GoroutinePool) worker() {
	defer p.wg.Done()
	defer p.workerCount.Add(-1)

	timer := time.NewTimer(p.idleTimeout)
	defer timer.Stop()

	for {
		select {
		case wrapper, ok := <-p.taskQueue:
			if !ok {
				return
			}

			p.activeCount.Add(1)
			err := p.executeTask(wrapper)
			p.activeCount.Add(-1)

			if err != nil {
				p.failed.Add(1)
			} else {
				p.completed.Add(1)
			}

			wrapper.result <- err
			close(wrapper.result)

			timer.Reset(p.idleTimeout)

		case <-timer.C:
			// Idle timeout, exit if we have more than minimum workers
			if p.workerCount.Load() > 1 {
				return
			}
			timer.Reset(p.idleTimeout)
		}
	}
}

func (p *GoroutinePool) executeTask(wrapper taskWrapper) (err error) {
	defer func() {
		if r := recover(); r != nil {
			if p.panicHandler != nil {
				p.panicHandler(r)
			}
			err = &PanicError{Value: r}
		}
	}()

	return wrapper.task(wrapper.ctx)
}

// Close stops accepting tasks and blocks until every queued task has run.
func (p *GoroutinePool) Close() {
	p.submitMu.Lock()
	if p.closed.Swap(true) {
		p.submitMu.Unlock()
		return
	}
	close(p.taskQueue)
	p.submitMu.Unlock()
	p.wg.Wait()
}

// Stats returns pool statistics.
func (p *GoroutinePool) Stats() GoroutinePoolStats {
	return GoroutinePoolStats{
		Workers:   int(p.workerCount.Load()),
		Active:    int(p.activeCount.Load()),
		Queued:    len(p.taskQueue),
		Submitted: p.submitted.Load(),
		Completed: p.completed.Load(),
		Failed:    p.failed.Load(),
		Rejected:  p.rejected.Load(),
	}
}

// GoroutinePoolStats contains pool statistics.
type GoroutinePoolStats struct {
	Workers   int   `json:"workers"`
	Active    int   `json:"active"`
	Queued    int   `json:"queued"`
	Submitted int64 `json:"submitted"`
	Completed int64 `json:"completed"`
	Failed    int64 `json:"failed"`
	Rejected  int64 `json:"rejected"`
}

// RunGroup runs every task on a dedicated pool sized to len(tasks), waits for
// all of them and returns their errors in submission order. A failing task
// does not stop its siblings.
func RunGroup(ctx context.Context, tasks []Task, panicHandler func(any)) []error {
	errs := make([]error, len(tasks))
	if len(tasks) == 0 {
		return errs
	}

	p := NewGoroutinePool(GoroutinePoolConfig{
		MaxWorkers:   len(tasks),
		QueueSize:    len(tasks),
		PanicHandler: panicHandler,
	})

	results := make([]<-chan error, len(tasks))
	for i, task := range tasks {
		ch, err := p.Submit(ctx, task)
		if err != nil {
			errs[i] = err
			continue
		}
		results[i] = ch
	}

	p.Close()

	for i, ch := range results {
		if ch != nil {
			errs[i] = <-ch
		}
	}
	return errs
}
