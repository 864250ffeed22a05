package dispatcher

import (
	"context"
	"errors"
	"sync"

	"github.com/ClipToZip/hackaton-soat11-videoprc/internal/domain/entity"
	"github.com/ClipToZip/hackaton-soat11-videoprc/internal/infra/metrics"
	"go.uber.org/zap"
)

// ErrStopped is returned by Submit once the dispatcher no longer accepts work.
var ErrStopped = errors.New("dispatcher stopped")

// Handler executes the workflow for one decoded work item.
type Handler func(ctx context.Context, item entity.VideoProcessingMessage) error

// Task is one unit of admitted work. OnDone, when set, runs on the worker
// goroutine after the handler returns, with the handler's error.
type Task struct {
	Item   entity.VideoProcessingMessage
	OnDone func(err error)
}

// Dispatcher runs tasks on a fixed set of workers. Admission never blocks:
// tasks queue unboundedly in memory and the queue depth is surfaced for
// observability. Stop drains: intake closes, queued and in-flight work
// finishes naturally, nothing is cancelled.
type Dispatcher struct {
	handler Handler
	workers int
	logger  *zap.Logger

	mu       sync.Mutex
	cond     *sync.Cond
	queue    []Task
	inFlight int
	stopped  bool

	wg sync.WaitGroup
}

func New(workers int, handler Handler, logger *zap.Logger) *Dispatcher {
	if workers < 1 {
		workers = 1
	}
	d := &Dispatcher{
		handler: handler,
		workers: workers,
		logger:  logger,
	}
	d.cond = sync.NewCond(&d.mu)
	return d
}

// Start launches the worker set. Task contexts are detached from ctx so
// that cancelling intake never cancels work already admitted.
func (d *Dispatcher) Start(ctx context.Context) {
	taskCtx := context.WithoutCancel(ctx)
	d.logger.Info("starting worker pool", zap.Int("workers", d.workers))
	for i := 0; i < d.workers; i++ {
		d.wg.Add(1)
		go d.worker(taskCtx, i)
	}
}

// Submit queues a task for execution. It fails only after Stop.
func (d *Dispatcher) Submit(t Task) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.stopped {
		return ErrStopped
	}
	d.queue = append(d.queue, t)
	metrics.QueuedTasks.Set(float64(len(d.queue)))
	d.cond.Signal()
	return nil
}

// Stop closes intake and blocks until queued and in-flight work finishes.
func (d *Dispatcher) Stop() {
	d.mu.Lock()
	if d.stopped {
		d.mu.Unlock()
		d.wg.Wait()
		return
	}
	d.stopped = true
	d.cond.Broadcast()
	d.mu.Unlock()

	d.logger.Info("dispatcher draining", zap.Int("queued", d.Queued()), zap.Int("in_flight", d.InFlight()))
	d.wg.Wait()
	d.logger.Info("dispatcher drained")
}

// InFlight reports how many tasks are currently executing.
func (d *Dispatcher) InFlight() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.inFlight
}

// Queued reports how many tasks are waiting for a worker.
func (d *Dispatcher) Queued() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.queue)
}

func (d *Dispatcher) worker(ctx context.Context, id int) {
	defer d.wg.Done()
	log := d.logger.With(zap.Int("worker_id", id))
	log.Debug("worker started")

	for {
		d.mu.Lock()
		for len(d.queue) == 0 && !d.stopped {
			d.cond.Wait()
		}
		if len(d.queue) == 0 && d.stopped {
			d.mu.Unlock()
			log.Debug("worker shutting down")
			return
		}
		task := d.queue[0]
		d.queue = d.queue[1:]
		d.inFlight++
		metrics.QueuedTasks.Set(float64(len(d.queue)))
		metrics.InFlightWorkers.Set(float64(d.inFlight))
		d.mu.Unlock()

		err := d.handler(ctx, task.Item)
		if task.OnDone != nil {
			task.OnDone(err)
		}

		d.mu.Lock()
		d.inFlight--
		metrics.InFlightWorkers.Set(float64(d.inFlight))
		d.mu.Unlock()
	}
}
