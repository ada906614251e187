package task

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Task is a named unit of background work. The name only appears in logs.
type Task struct {
	Name string
	Run  func(ctx context.Context) error
}

// Pool runs submitted tasks on a fixed set of workers. Failures are logged
// through the pool's sink and never reach the request that submitted them;
// callers have typically already answered their client by the time the task
// runs.
type Pool struct {
	logger  *slog.Logger
	queue   chan Task
	wg      sync.WaitGroup
	timeout time.Duration

	closeOnce sync.Once
}

// NewPool starts workers draining a bounded queue.
func NewPool(logger *slog.Logger, workers, queueSize int, taskTimeout time.Duration) *Pool {
	if workers <= 0 {
		workers = 4
	}
	if queueSize <= 0 {
		queueSize = 64
	}
	if taskTimeout <= 0 {
		taskTimeout = 30 * time.Second
	}

	p := &Pool{
		logger:  logger,
		queue:   make(chan Task, queueSize),
		timeout: taskTimeout,
	}

	p.wg.Add(workers)
	for i := 0; i < workers; i++ {
		go p.worker()
	}
	return p
}

// Submit enqueues the task without blocking. A full queue drops the task and
// logs it; background delivery is best-effort and a resend path exists.
func (p *Pool) Submit(t Task) {
	select {
	case p.queue <- t:
	default:
		p.logger.Warn("task queue full, dropping task", "task", t.Name)
	}
}

// Close stops accepting tasks and waits for in-flight ones to finish.
func (p *Pool) Close() {
	p.closeOnce.Do(func() {
		close(p.queue)
	})
	p.wg.Wait()
}

func (p *Pool) worker() {
	defer p.wg.Done()
	for t := range p.queue {
		ctx, cancel := context.WithTimeout(context.Background(), p.timeout)
		if err := t.Run(ctx); err != nil {
			p.logger.Error("background task failed", "task", t.Name, "error", err)
		}
		cancel()
	}
}
