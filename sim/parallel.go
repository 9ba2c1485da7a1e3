package sim

import (
	"runtime"
	"sync"

	"github.com/flock2go/starling/grid"
)

// parallelThreshold is the minimum number of agents before a phase is
// dispatched to the worker pool. Below this the goroutine handoff costs
// more than the work itself, so the phase runs inline on the caller.
const parallelThreshold = 64

// span is one contiguous slice of the agent range, dispatched to a
// single worker together with the phase body to run over it.
type span struct {
	lo, hi int
	fn     func(lo, hi int)
}

// pool runs pipeline phases across a set of persistent worker
// goroutines. Workers are started once and fed spans through a channel,
// avoiding per-step goroutine churn. The pool is not safe for
// concurrent use by multiple dispatchers; the simulation owns it and
// calls run from a single goroutine.
type pool struct {
	workers  int
	workChan chan span
	doneChan chan struct{}
	stopChan chan struct{}
	wg       sync.WaitGroup
	running  bool
}

// newPool creates a pool with the given worker count. A count of zero
// or less selects GOMAXPROCS.
func newPool(workers int) *pool {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	return &pool{workers: workers}
}

// start launches the worker goroutines. Safe to call when already
// running.
func (p *pool) start() {
	if p.running {
		return
	}
	// Buffer workChan to the worker count so run never blocks on
	// dispatch: it submits at most one span per worker.
	p.workChan = make(chan span, p.workers)
	p.doneChan = make(chan struct{}, p.workers)
	p.stopChan = make(chan struct{})
	p.running = true

	for i := 0; i < p.workers; i++ {
		p.wg.Add(1)
		go p.worker()
	}
}

// stop shuts the workers down and waits for them to exit. Safe to call
// when not running.
func (p *pool) stop() {
	if !p.running {
		return
	}
	close(p.stopChan)
	p.wg.Wait()
	p.running = false
}

func (p *pool) worker() {
	defer p.wg.Done()
	for {
		select {
		case <-p.stopChan:
			return
		case s, ok := <-p.workChan:
			if !ok {
				return
			}
			s.fn(s.lo, s.hi)
			p.doneChan <- struct{}{}
		}
	}
}

// run splits [0, n) into one span per worker and blocks until every
// span has been processed. Small ranges, or a pool that was never
// started, run inline.
func (p *pool) run(n int, fn func(lo, hi int)) {
	if n <= 0 {
		return
	}
	if !p.running || n < parallelThreshold {
		fn(0, n)
		return
	}

	chunk := (n + p.workers - 1) / p.workers
	dispatched := 0
	for lo := 0; lo < n; lo += chunk {
		hi := lo + chunk
		if hi > n {
			hi = n
		}
		p.workChan <- span{lo: lo, hi: hi, fn: fn}
		dispatched++
	}
	for i := 0; i < dispatched; i++ {
		<-p.doneChan
	}
}

// runner adapts the pool to the per-index contract of the blocked
// prefix sum.
func (p *pool) runner() grid.Runner {
	return func(n int, fn func(i int)) {
		p.run(n, func(lo, hi int) {
			for i := lo; i < hi; i++ {
				fn(i)
			}
		})
	}
}
