// Package pool provides a bounded worker pool for parallelizing curve
// operations across protocol sessions.
package pool

import (
	"runtime"
	"sync"
)

// Pool schedules independent units of work over a fixed number of workers.
// The zero number of workers means one per available CPU.
type Pool struct {
	work chan func()
	wg   sync.WaitGroup
}

// NewPool creates a pool with the given number of workers.
func NewPool(workers int) *Pool {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	p := &Pool{work: make(chan func())}
	p.wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer p.wg.Done()
			for f := range p.work {
				f()
			}
		}()
	}
	return p
}

// Parallelize runs f for every index in [0, n) and waits for completion.
// A nil pool runs the work inline.
func (p *Pool) Parallelize(n int, f func(i int)) {
	if p == nil {
		for i := 0; i < n; i++ {
			f(i)
		}
		return
	}
	var wg sync.WaitGroup
	wg.Add(n)
	for i := 0; i < n; i++ {
		i := i
		p.work <- func() {
			defer wg.Done()
			f(i)
		}
	}
	wg.Wait()
}

// TearDown stops the workers. The pool must not be used afterwards.
func (p *Pool) TearDown() {
	if p == nil {
		return
	}
	close(p.work)
	p.wg.Wait()
}
