package worker

import (
	"runtime"
	"sync"

	"go.uber.org/zap"
)

// Job is one unit of background work, typically an enrichment fetch that
// posts its result back onto the event loop when done.
type Job func()

// Pool is a fixed-size worker pool with a 1-slot input queue (strict back-pressure).
type Pool struct {
	jobs chan Job
	wg   sync.WaitGroup
	log  *zap.SugaredLogger

	mu     sync.Mutex
	closed bool
}

// New creates a worker pool. Size defaults to NumCPU when size<=0. Queue is 1 slot.
func New(size int, log *zap.SugaredLogger) *Pool {
	if size <= 0 {
		size = runtime.NumCPU()
	}
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	p := &Pool{jobs: make(chan Job, 1), log: log}
	p.start(size)
	return p
}

func (p *Pool) start(n int) {
	for i := 0; i < n; i++ {
		p.wg.Add(1)
		go func() {
			defer p.wg.Done()
			for j := range p.jobs {
				p.run(j)
			}
		}()
	}
}

func (p *Pool) run(j Job) {
	defer func() {
		if r := recover(); r != nil {
			p.log.Errorw("Worker: job panicked", "panic", r)
		}
	}()
	j()
}

// Submit enqueues a job if the single-slot queue is free. Returns false if dropped.
func (p *Pool) Submit(j Job) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return false
	}
	select {
	case p.jobs <- j:
		return true
	default:
		return false
	}
}

// Close stops the pool after draining current work.
func (p *Pool) Close() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	close(p.jobs)
	p.mu.Unlock()
	p.wg.Wait()
}
