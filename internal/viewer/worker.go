package viewer

import (
	"context"
	"sync"
)

// Result is the outcome of one job.
type Result[T any] struct {
	Tag   string
	Value T
	Err   error
}

type job[T any] struct {
	seq uint64
	tag string
	run func(context.Context) (T, error)
}

// Worker runs jobs one at a time off the frame loop. Only the latest
// submission matters: a pending job is replaced by a newer one, and results
// of superseded jobs are dropped.
type Worker[T any] struct {
	ctx    context.Context
	cancel context.CancelFunc

	jobs chan job[T]
	done chan Result[T]
	wg   sync.WaitGroup

	mu     sync.Mutex
	latest uint64
	busy   bool
	stop   context.CancelFunc // cancels the running job
}

// NewWorker starts a worker bound to parent.
func NewWorker[T any](parent context.Context) *Worker[T] {
	ctx, cancel := context.WithCancel(parent)
	w := &Worker[T]{
		ctx:    ctx,
		cancel: cancel,
		jobs:   make(chan job[T], 1),
		done:   make(chan Result[T], 1),
	}
	w.wg.Add(1)
	go w.loop()
	return w
}

func (w *Worker[T]) loop() {
	defer w.wg.Done()
	for {
		select {
		case <-w.ctx.Done():
			return
		case j := <-w.jobs:
			w.mu.Lock()
			if j.seq != w.latest {
				w.mu.Unlock()
				continue
			}
			ctx, stop := context.WithCancel(w.ctx)
			w.stop = stop
			w.mu.Unlock()

			v, err := j.run(ctx)

			w.mu.Lock()
			stop()
			w.stop = nil
			if j.seq == w.latest && w.ctx.Err() == nil {
				w.busy = false
				// The buffer holds at most one undelivered result; a newer one replaces it.
				select {
				case <-w.done:
				default:
				}
				w.done <- Result[T]{Tag: j.tag, Value: v, Err: err}
			}
			w.mu.Unlock()
		}
	}
}

// Submit queues run, replacing any job that has not started yet.
func (w *Worker[T]) Submit(tag string, run func(context.Context) (T, error)) {
	w.mu.Lock()
	w.latest++
	w.busy = true
	j := job[T]{seq: w.latest, tag: tag, run: run}
	w.mu.Unlock()

	select {
	case <-w.jobs:
	default:
	}
	select {
	case w.jobs <- j:
	case <-w.ctx.Done():
	}
}

// Busy reports whether the latest submission has not finished.
func (w *Worker[T]) Busy() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.busy
}

// Poll returns a finished result without blocking.
func (w *Worker[T]) Poll() (Result[T], bool) {
	select {
	case r := <-w.done:
		return r, true
	default:
		return Result[T]{}, false
	}
}

// Cancel drops the pending job and any undelivered result and cancels the
// running job. Nothing submitted before Cancel is delivered afterwards.
func (w *Worker[T]) Cancel() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.latest++
	w.busy = false
	if w.stop != nil {
		w.stop()
	}
	select {
	case <-w.jobs:
	default:
	}
	select {
	case <-w.done:
	default:
	}
}

// Close cancels the running job and waits for the worker to exit.
func (w *Worker[T]) Close() {
	w.cancel()
	w.wg.Wait()
}
