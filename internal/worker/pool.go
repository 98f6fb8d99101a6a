package worker

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
)

// Job is a unit of work producing a T
type Job[T any] interface {
	Execute(ctx context.Context) T
}

// JobFunc adapts a function to Job
type JobFunc[T any] func(ctx context.Context) T

// Execute calls f
func (f JobFunc[T]) Execute(ctx context.Context) T { return f(ctx) }

type indexedJob[T any] struct {
	index int
	job   Job[T]
}

// Pool runs jobs on a fixed number of workers and returns results in submission order.
// Jobs do not cancel each other; ctx is only for shutdown.
type Pool[T any] struct {
	workers    int
	jobQueue   chan indexedJob[T]
	results    map[int]T
	submitted  int
	mu         sync.Mutex
	wg         sync.WaitGroup
	ctx        context.Context
	cancelFunc context.CancelFunc
	closeOnce  sync.Once
	recoverFn  func(index int, r any) T
}

// Option configures a Pool
type Option[T any] func(*Pool[T])

// WithRecover turns a panicking job into the value returned by fn
func WithRecover[T any](fn func(index int, r any) T) Option[T] {
	return func(p *Pool[T]) { p.recoverFn = fn }
}

// NewPool creates a new worker pool with the specified number of workers
func NewPool[T any](ctx context.Context, workers int, opts ...Option[T]) *Pool[T] {
	if workers <= 0 {
		workers = 1
	}

	ctx, cancel := context.WithCancel(ctx)

	p := &Pool[T]{
		workers:    workers,
		jobQueue:   make(chan indexedJob[T], workers),
		results:    make(map[int]T),
		ctx:        ctx,
		cancelFunc: cancel,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Workers returns the pool's capacity
func (p *Pool[T]) Workers() int {
	return p.workers
}

// Start starts the worker goroutines
func (p *Pool[T]) Start() {
	for i := 0; i < p.workers; i++ {
		p.wg.Add(1)
		go p.worker()
	}
}

func (p *Pool[T]) worker() {
	defer p.wg.Done()

	for {
		select {
		case <-p.ctx.Done():
			return
		case ij, ok := <-p.jobQueue:
			if !ok {
				return
			}
			result := p.run(ij)
			p.mu.Lock()
			p.results[ij.index] = result
			p.mu.Unlock()
		}
	}
}

func (p *Pool[T]) run(ij indexedJob[T]) (result T) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("[Worker] job panicked", "index", ij.index, "panic", fmt.Sprint(r))
			if p.recoverFn != nil {
				result = p.recoverFn(ij.index, r)
			}
		}
	}()
	return ij.job.Execute(p.ctx)
}

// Submit queues a job. It blocks while every worker is busy and the queue is full.
// Submitting after Shutdown is a no-op.
func (p *Pool[T]) Submit(job Job[T]) {
	p.mu.Lock()
	index := p.submitted
	p.submitted++
	p.mu.Unlock()

	select {
	case <-p.ctx.Done():
		return
	case p.jobQueue <- indexedJob[T]{index: index, job: job}:
	}
}

// Wait closes the queue, waits for the workers and returns one result per submitted job,
// ordered by submission. Jobs skipped by Shutdown yield the zero value.
func (p *Pool[T]) Wait() []T {
	p.closeQueue()
	p.wg.Wait()

	p.mu.Lock()
	defer p.mu.Unlock()

	out := make([]T, p.submitted)
	for i := range out {
		out[i] = p.results[i]
	}
	return out
}

// Shutdown stops the workers without running queued jobs
func (p *Pool[T]) Shutdown() {
	p.cancelFunc()
	p.wg.Wait()
}

func (p *Pool[T]) closeQueue() {
	p.closeOnce.Do(func() {
		close(p.jobQueue)
	})
}

// Run executes jobs on a pool of the given size and returns ordered results.
// The context handed to jobs is canceled once Run returns.
func Run[T any](ctx context.Context, workers int, jobs []Job[T], opts ...Option[T]) []T {
	if len(jobs) == 0 {
		return []T{}
	}
	pool := NewPool[T](ctx, workers, opts...)
	defer pool.cancelFunc()
	pool.Start()
	for _, job := range jobs {
		pool.Submit(job)
	}
	return pool.Wait()
}
