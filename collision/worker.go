package collision

import (
	"context"
	"fmt"
	"runtime"
	"sync"
)

// Workers runs narrow-phase detection on a pool of goroutines isolated from
// the simulation loop. The only communication across the boundary is the
// task channel in and the result channel out; workers never touch live
// entity state.
type Workers struct {
	count   int
	tasks   chan *Task
	results chan Result
	wg      sync.WaitGroup
}

// NewWorkers creates a worker pool. count <= 0 defaults to GOMAXPROCS,
// queue <= 0 to a reasonable task backlog.
func NewWorkers(count, queue int) *Workers {
	if count <= 0 {
		count = runtime.GOMAXPROCS(0)
	}
	if queue <= 0 {
		queue = 64
	}
	return &Workers{
		count:   count,
		tasks:   make(chan *Task, queue),
		results: make(chan Result, queue),
	}
}

// Start launches the workers. They run until the context is cancelled.
func (w *Workers) Start(ctx context.Context) {
	for i := 0; i < w.count; i++ {
		w.wg.Add(1)
		go w.run(ctx)
	}
}

func (w *Workers) run(ctx context.Context) {
	defer w.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case t := <-w.tasks:
			select {
			case w.results <- process(t):
			case <-ctx.Done():
				return
			}
		}
	}
}

// process runs one task, converting a narrow-phase panic into a failed
// result so a bad pair never takes the pool down.
func process(t *Task) (res Result) {
	res.TaskID = t.ID
	defer func() {
		if r := recover(); r != nil {
			res.Contacts = nil
			res.Err = fmt.Errorf("narrow phase: %v", r)
		}
	}()
	res.Contacts = Detect(t)
	return res
}

// Submit enqueues a task without blocking. It reports false when the queue
// is full; the caller decides whether to drop or retry next frame.
func (w *Workers) Submit(t *Task) bool {
	select {
	case w.tasks <- t:
		return true
	default:
		return false
	}
}

// Results returns the channel completed tasks arrive on. Results are tagged
// with their task id and may arrive in any order, one or more frames after
// dispatch.
func (w *Workers) Results() <-chan Result {
	return w.results
}

// Wait blocks until all workers have observed cancellation and exited.
func (w *Workers) Wait() {
	w.wg.Wait()
}
