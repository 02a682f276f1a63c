package core

import (
	"context"
	"errors"
	"sync"
)

var ErrDispatcherClosed = errors.New("dispatcher closed")

type executor interface {
	Execute(ctx context.Context, req ExecutionRequest) (*ExecutionResult, error)
}

type job struct {
	ctx   context.Context
	req   ExecutionRequest
	reply chan jobResult
}

type jobResult struct {
	res *ExecutionResult
	err error
}

// Dispatcher runs executions one at a time per market, in arrival order.
// Each market gets its own worker goroutine on first use. Queues are never
// closed: Close signals workers through quit, and d.mu is never held while a
// caller waits for queue space.
type Dispatcher struct {
	exec      executor
	queueSize int

	mu      sync.RWMutex
	workers map[string]chan job
	closed  bool
	wg      sync.WaitGroup

	quit    chan struct{}
	stopped chan struct{}
	once    sync.Once
}

func NewDispatcher(exec executor, queueSize int) *Dispatcher {
	if queueSize <= 0 {
		queueSize = 1024
	}
	return &Dispatcher{
		exec:      exec,
		queueSize: queueSize,
		workers:   make(map[string]chan job),
		quit:      make(chan struct{}),
		stopped:   make(chan struct{}),
	}
}

// Submit queues req on its market's worker and waits for the outcome. ctx
// bounds the wait only: once queued, the execution runs to completion even
// if ctx is cancelled.
func (d *Dispatcher) Submit(ctx context.Context, req ExecutionRequest) (*ExecutionResult, error) {
	j := job{ctx: ctx, req: req, reply: make(chan jobResult, 1)}

	ch, err := d.queue(req.MarketID)
	if err != nil {
		return nil, err
	}

	select {
	case <-d.quit:
		return nil, ErrDispatcherClosed
	default:
	}
	select {
	case ch <- j:
	case <-d.quit:
		return nil, ErrDispatcherClosed
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	select {
	case r := <-j.reply:
		return r.res, r.err
	case <-d.stopped:
		// The job may have landed after its worker drained the queue.
		select {
		case r := <-j.reply:
			return r.res, r.err
		default:
			return nil, ErrDispatcherClosed
		}
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (d *Dispatcher) queue(marketID string) (chan job, error) {
	d.mu.RLock()
	ch, ok := d.workers[marketID]
	closed := d.closed
	d.mu.RUnlock()
	if closed {
		return nil, ErrDispatcherClosed
	}
	if ok {
		return ch, nil
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return nil, ErrDispatcherClosed
	}
	if ch, ok = d.workers[marketID]; !ok {
		ch = make(chan job, d.queueSize)
		d.workers[marketID] = ch
		d.wg.Add(1)
		go d.run(ch)
	}
	return ch, nil
}

func (d *Dispatcher) run(ch chan job) {
	defer d.wg.Done()
	for {
		select {
		case j := <-ch:
			d.execute(j)
		case <-d.quit:
			for {
				select {
				case j := <-ch:
					d.execute(j)
				default:
					return
				}
			}
		}
	}
}

func (d *Dispatcher) execute(j job) {
	res, err := d.exec.Execute(context.WithoutCancel(j.ctx), j.req)
	j.reply <- jobResult{res: res, err: err}
}

// Close stops accepting work, drains queued executions and waits for the
// workers to exit.
func (d *Dispatcher) Close() {
	d.once.Do(func() {
		d.mu.Lock()
		d.closed = true
		d.mu.Unlock()
		close(d.quit)
		d.wg.Wait()
		close(d.stopped)
	})
}
