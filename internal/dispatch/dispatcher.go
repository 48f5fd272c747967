// Package dispatch runs outbound-channel sends on a small fixed pool of
// background workers, so webhook handlers can acknowledge immediately.
//
// The queue is unbounded FIFO and enqueue never blocks. Task failures
// and panics are logged and discarded; the pool keeps serving subsequent
// tasks. No cancellation or timeout is propagated into queued tasks.
package dispatch

import (
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// DefaultWorkers is the pool size when none is configured.
const DefaultWorkers = 2

// Task is one unit of background work.
type Task func() error

// queuedTask pairs a task with an id so enqueue and completion log
// lines can be correlated.
type queuedTask struct {
	id   string
	task Task
}

// Dispatcher owns the queue and its workers.
type Dispatcher struct {
	logger *zap.Logger

	mu     sync.Mutex
	cond   *sync.Cond
	queue  []queuedTask
	closed bool
	wg     sync.WaitGroup
}

// New starts a dispatcher with the given number of workers.
// workers <= 0 uses DefaultWorkers.
func New(workers int, logger *zap.Logger) *Dispatcher {
	if workers <= 0 {
		workers = DefaultWorkers
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	d := &Dispatcher{logger: logger}
	d.cond = sync.NewCond(&d.mu)

	d.wg.Add(workers)
	for i := 0; i < workers; i++ {
		go d.worker(i)
	}
	return d
}

// Enqueue adds a task to the queue. It never blocks. Tasks enqueued
// after Close are dropped with a warning.
func (d *Dispatcher) Enqueue(task Task) {
	if task == nil {
		return
	}

	id := uuid.NewString()

	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		d.logger.Warn("task dropped, dispatcher closed", zap.String("task_id", id))
		tasksDropped.Inc()
		return
	}
	d.queue = append(d.queue, queuedTask{id: id, task: task})
	pendingTasks.Set(float64(len(d.queue)))
	d.mu.Unlock()

	d.logger.Debug("task enqueued", zap.String("task_id", id))
	d.cond.Signal()
}

// Pending returns the number of queued, not yet started tasks.
func (d *Dispatcher) Pending() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.queue)
}

// Close stops accepting new tasks and waits until the queue drains and
// all workers exit.
func (d *Dispatcher) Close() {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	d.closed = true
	d.mu.Unlock()

	d.cond.Broadcast()
	d.wg.Wait()
}

func (d *Dispatcher) worker(id int) {
	defer d.wg.Done()
	logger := d.logger.With(zap.Int("worker", id))

	for {
		d.mu.Lock()
		for len(d.queue) == 0 && !d.closed {
			d.cond.Wait()
		}
		if len(d.queue) == 0 {
			d.mu.Unlock()
			return
		}
		qt := d.queue[0]
		d.queue = d.queue[1:]
		pendingTasks.Set(float64(len(d.queue)))
		d.mu.Unlock()

		d.run(logger.With(zap.String("task_id", qt.id)), qt.task)
	}
}

// run executes one task, containing panics so a bad task cannot take a
// worker down.
func (d *Dispatcher) run(logger *zap.Logger, task Task) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("task panicked", zap.Any("panic", r))
			tasksTotal.WithLabelValues("panic").Inc()
		}
	}()

	if err := task(); err != nil {
		logger.Warn("task failed", zap.Error(err))
		tasksTotal.WithLabelValues("error").Inc()
		return
	}
	tasksTotal.WithLabelValues("success").Inc()
}
