package jobs

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Task is a unit of background work. Attempt counts completed tries and
// starts at zero.
type Task struct {
	ID         string
	Kind       string
	Attempt    int
	EnqueuedAt time.Time
}

// Handler executes a task. A non-nil error schedules a retry until the
// attempt budget runs out.
type Handler func(ctx context.Context, task Task) error

// QueueConfig tunes the worker pool. Zero values fall back to sane
// defaults.
type QueueConfig struct {
	Workers    int
	BufferSize int
	MaxRetries int
	RetryDelay time.Duration
	Logger     *zap.Logger
}

func (c *QueueConfig) applyDefaults() {
	if c.Workers <= 0 {
		c.Workers = 1
	}
	if c.BufferSize <= 0 {
		c.BufferSize = c.Workers * 4
	}
	if c.MaxRetries <= 0 {
		c.MaxRetries = 3
	}
	if c.RetryDelay <= 0 {
		c.RetryDelay = time.Second
	}
	if c.Logger == nil {
		c.Logger = zap.NewNop()
	}
}

// Queue dispatches tasks to a fixed pool of goroutine workers. Failed
// tasks are retried with exponential backoff until MaxRetries is spent.
type Queue struct {
	name    string
	handler Handler
	cfg     QueueConfig

	tasks   chan Task
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	mu      sync.Mutex
	running bool
}

// NewQueue builds a queue that feeds tasks to handler.
func NewQueue(name string, handler Handler, cfg QueueConfig) *Queue {
	cfg.applyDefaults()
	return &Queue{
		name:    name,
		handler: handler,
		cfg:     cfg,
		tasks:   make(chan Task, cfg.BufferSize),
	}
}

// Start launches the workers. Calling Start on a running queue is a no-op.
func (q *Queue) Start(ctx context.Context) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.running {
		return
	}
	q.ctx, q.cancel = context.WithCancel(ctx)
	for i := 0; i < q.cfg.Workers; i++ {
		q.wg.Add(1)
		go q.work()
	}
	q.running = true
	q.cfg.Logger.Sugar().Infow("queue started", "queue", q.name, "workers", q.cfg.Workers)
}

// Stop cancels the workers and blocks until they exit.
func (q *Queue) Stop() {
	q.mu.Lock()
	if !q.running {
		q.mu.Unlock()
		return
	}
	q.running = false
	q.cancel()
	q.mu.Unlock()
	q.wg.Wait()
	q.cfg.Logger.Sugar().Infow("queue stopped", "queue", q.name)
}

// Enqueue submits a task. It blocks while the buffer is full and fails
// once the queue has been stopped.
func (q *Queue) Enqueue(task Task) error {
	q.mu.Lock()
	ctx := q.ctx
	running := q.running
	q.mu.Unlock()

	if !running {
		return fmt.Errorf("queue %s is not running", q.name)
	}
	if task.EnqueuedAt.IsZero() {
		task.EnqueuedAt = time.Now().UTC()
	}

	select {
	case <-ctx.Done():
		return fmt.Errorf("queue %s shut down: %w", q.name, ctx.Err())
	case q.tasks <- task:
		return nil
	}
}

func (q *Queue) work() {
	defer q.wg.Done()
	for {
		select {
		case <-q.ctx.Done():
			return
		case task := <-q.tasks:
			if err := q.handler(q.ctx, task); err != nil {
				q.retry(task, err)
			}
		}
	}
}

func (q *Queue) retry(task Task, cause error) {
	task.Attempt++
	log := q.cfg.Logger.Sugar()
	if task.Attempt > q.cfg.MaxRetries {
		log.Errorw("task abandoned after retries",
			"queue", q.name, "task_id", task.ID, "kind", task.Kind, "error", cause)
		return
	}

	delay := q.cfg.RetryDelay << (task.Attempt - 1)
	log.Warnw("task failed, scheduling retry",
		"queue", q.name, "task_id", task.ID, "kind", task.Kind,
		"attempt", task.Attempt, "delay", delay, "error", cause)

	// The backoff sleeper joins the WaitGroup so Stop does not return while
	// a retry is still pending.
	q.wg.Add(1)
	go func() {
		defer q.wg.Done()
		timer := time.NewTimer(delay)
		defer timer.Stop()
		select {
		case <-q.ctx.Done():
		case <-timer.C:
			if err := q.Enqueue(task); err != nil {
				log.Errorw("failed to requeue task", "queue", q.name, "task_id", task.ID, "error", err)
			}
		}
	}()
}
