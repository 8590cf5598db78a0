// Package activity records activity entries and delivers notifications off
// the request path. Failures are logged and never reach the caller.
package activity

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	"go.uber.org/zap"

	"vortexboard/pkg/logger"
)

var (
	ErrDispatcherClosed = errors.New("dispatcher closed")
	ErrQueueFull        = errors.New("dispatcher queue full")
)

// Job is a unit of best-effort background work.
type Job struct {
	Name string
	Run  func(ctx context.Context) error
}

type DispatcherConfig struct {
	// Workers defaults to 1 when not positive.
	Workers int
	// Buffer is the queue capacity; jobs submitted to a full queue are dropped.
	Buffer int
	// JobTimeout bounds a single job. Defaults to 10s.
	JobTimeout time.Duration
}

// Dispatcher is a fixed pool of workers draining a buffered queue.
type Dispatcher struct {
	queue   chan Job
	timeout time.Duration
	wg      sync.WaitGroup

	mu     sync.RWMutex
	closed bool
}

func NewDispatcher(cfg DispatcherConfig) *Dispatcher {
	workers := cfg.Workers
	if workers <= 0 {
		logger.SystemLogger.Warn("Invalid dispatcher worker count, using 1", zap.Int("workers", cfg.Workers))
		workers = 1
	}
	if cfg.Buffer < 0 {
		cfg.Buffer = 0
	}
	if cfg.JobTimeout <= 0 {
		cfg.JobTimeout = 10 * time.Second
	}

	d := &Dispatcher{
		queue:   make(chan Job, cfg.Buffer),
		timeout: cfg.JobTimeout,
	}
	for i := 0; i < workers; i++ {
		d.wg.Add(1)
		go d.work(i)
	}
	return d
}

// Submit enqueues job without blocking. A dropped job is logged and reported
// as ErrDispatcherClosed or ErrQueueFull; callers on the request path may
// ignore the error.
func (d *Dispatcher) Submit(job Job) error {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		logger.SystemLogger.Warn("Dispatcher closed, dropping job", zap.String("job", job.Name))
		return ErrDispatcherClosed
	}
	select {
	case d.queue <- job:
		return nil
	default:
		logger.SystemLogger.Warn("Dispatcher queue full, dropping job", zap.String("job", job.Name))
		return ErrQueueFull
	}
}

// Close stops accepting jobs and waits for queued jobs to finish or ctx to
// expire.
func (d *Dispatcher) Close(ctx context.Context) error {
	d.mu.Lock()
	if !d.closed {
		d.closed = true
		close(d.queue)
	}
	d.mu.Unlock()

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("drain dispatcher: %w", ctx.Err())
	}
}

func (d *Dispatcher) work(id int) {
	defer d.wg.Done()
	for job := range d.queue {
		d.run(id, job)
	}
}

func (d *Dispatcher) run(worker int, job Job) {
	ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
	defer cancel()
	defer func() {
		if r := recover(); r != nil {
			logger.ErrorLogger.Error("Recovered from panic in background job",
				zap.String("job", job.Name),
				zap.Any("panic", r),
				zap.String("stack", string(debug.Stack())),
			)
		}
	}()

	err := job.Run(ctx)
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		logger.ContextLogger.Warn("Background job ran past its deadline",
			zap.String("job", job.Name),
			zap.Duration("timeout", d.timeout),
			zap.NamedError("job_error", err),
		)
		return
	}
	if err != nil {
		logger.ErrorLogger.Error("Background job failed",
			zap.String("job", job.Name),
			zap.Int("worker", worker),
			zap.Error(err),
		)
	}
}
