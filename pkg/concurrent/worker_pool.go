package concurrent

import (
	"errors"
	"sync"
	"time"
)

var (
	ErrScheduleTimeout = errors.New("schedule error: timed out")
	ErrPoolClosed      = errors.New("schedule error: pool closed")
)

// WorkerPool. bounded goroutine pool. At most size goroutines run tasks, each one picks the
// next queued task when it is done with the previous one.
type WorkerPool struct {
	sem  chan struct{}
	work chan func()

	mu     sync.RWMutex
	closed bool
	done   chan struct{}
	wg     sync.WaitGroup
}

func NewWorkerPool(size, queue int) *WorkerPool {
	if size <= 0 {
		size = 1
	}
	return &WorkerPool{
		sem:  make(chan struct{}, size),
		work: make(chan func(), queue),
		done: make(chan struct{}),
	}
}

// Spawn starts n workers up front, n is capped at the pool size.
func (p *WorkerPool) Spawn(n int) {
	for i := 0; i < n; i++ {
		select {
		case p.sem <- struct{}{}:
			if !p.startOrRelease(nil) {
				return
			}
		default:
			return
		}
	}
}

// Schedule blocks until task is queued or taken by a worker.
func (p *WorkerPool) Schedule(task func()) error {
	return p.schedule(task, nil)
}

// ScheduleTimeout. like Schedule but gives up after timeout with ErrScheduleTimeout.
func (p *WorkerPool) ScheduleTimeout(timeout time.Duration, task func()) error {
	t := time.NewTimer(timeout)
	defer t.Stop()
	return p.schedule(task, t.C)
}

// TrySchedule. queue task only when it can be done without waiting.
func (p *WorkerPool) TrySchedule(task func()) bool {
	select {
	case <-p.done:
		return false
	default:
	}
	// a free slot always gets a worker so no task waits in the queue without one
	select {
	case p.sem <- struct{}{}:
		return p.startOrRelease(task)
	default:
	}
	select {
	case p.work <- task:
		return true
	default:
		return false
	}
}

func (p *WorkerPool) schedule(task func(), timeout <-chan time.Time) error {
	select {
	case <-p.done:
		return ErrPoolClosed
	case p.sem <- struct{}{}:
		if !p.startOrRelease(task) {
			return ErrPoolClosed
		}
		return nil
	default:
	}
	select {
	case <-timeout:
		return ErrScheduleTimeout
	case <-p.done:
		return ErrPoolClosed
	case p.work <- task:
		return nil
	case p.sem <- struct{}{}:
		if !p.startOrRelease(task) {
			return ErrPoolClosed
		}
		return nil
	}
}

// startOrRelease starts a worker for an acquired slot, or gives the slot back once closed.
func (p *WorkerPool) startOrRelease(task func()) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		<-p.sem
		return false
	}
	p.wg.Add(1)
	go p.worker(task)
	return true
}

func (p *WorkerPool) worker(task func()) {
	defer func() {
		<-p.sem
		p.wg.Done()
	}()

	if task != nil {
		task()
	}
	for {
		select {
		case task := <-p.work:
			task()
		case <-p.done:
			return
		}
	}
}

// Close stops accepting tasks and waits for running tasks. Queued tasks not yet picked up are
// dropped.
func (p *WorkerPool) Close() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	close(p.done)
	p.mu.Unlock()

	p.wg.Wait()
}
