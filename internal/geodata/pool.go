package geodata

import (
	"context"
	"errors"
	"sync"
)

// ErrPoolClosed indicates work was submitted after Close.
var ErrPoolClosed = errors.New("geodata: worker pool closed")

type poolTask struct {
	ctx  context.Context
	run  func(context.Context)
	done chan struct{}
}

// WorkerPool runs submitted tasks with a fixed number of workers. Tasks are
// dispatched in FIFO order so queued geocode requests preserve arrival order
// under provider rate limits.
type WorkerPool struct {
	tasks chan poolTask

	closeOnce sync.Once
	closed    chan struct{}
	wg        sync.WaitGroup
}

// NewWorkerPool starts size workers. A non-positive size falls back to 3.
func NewWorkerPool(size int) *WorkerPool {
	if size <= 0 {
		size = 3
	}
	pool := &WorkerPool{
		tasks:  make(chan poolTask),
		closed: make(chan struct{}),
	}
	pool.wg.Add(size)
	for i := 0; i < size; i++ {
		go pool.worker()
	}
	return pool
}

func (p *WorkerPool) worker() {
	defer p.wg.Done()
	for {
		select {
		case <-p.closed:
			return
		case task := <-p.tasks:
			if task.ctx.Err() == nil {
				task.run(task.ctx)
			}
			close(task.done)
		}
	}
}

// Do runs fn on a pool worker and waits for it to finish. Context cancellation
// while the task is still queued abandons the wait; the task itself checks the
// context before running.
func (p *WorkerPool) Do(ctx context.Context, fn func(context.Context)) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	task := poolTask{ctx: ctx, run: fn, done: make(chan struct{})}

	select {
	case <-p.closed:
		return ErrPoolClosed
	case <-ctx.Done():
		return ctx.Err()
	case p.tasks <- task:
	}

	select {
	case <-task.done:
		return nil
	case <-p.closed:
		return ErrPoolClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close stops accepting work and waits for running tasks to finish.
func (p *WorkerPool) Close() {
	p.closeOnce.Do(func() {
		close(p.closed)
	})
	p.wg.Wait()
}
