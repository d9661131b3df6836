package worker

import (
	"sync"

	"github.com/ehrlich-b/go-eyot/internal/gc"
	"github.com/ehrlich-b/go-eyot/internal/vector"
)

// Pipeline composes two workers in series: everything sent to the
// pipeline goes through lhs, then rhs, and results come back in order.
//
// The bridge is naive on purpose: one goroutine performs a single
// drain-and-forward rather than streaming items across. The observable
// ordering is identical, and pipelines are used for one batch wave at a
// time.
type Pipeline struct {
	r        *gc.Region
	lhs, rhs Worker

	mu       sync.Mutex
	underway int

	// the bridge waits for the first send so it cannot drain an upstream
	// that has not been fed yet
	started   chan struct{}
	startOnce sync.Once
}

// NewPipeline composes lhs (upstream) and rhs (downstream). The upstream
// output element size must match the downstream input size; the layout
// oracle guarantees that for generated programs.
func NewPipeline(r *gc.Region, lhs, rhs Worker) *Pipeline {
	p := &Pipeline{
		r:       r,
		lhs:     lhs,
		rhs:     rhs,
		started: make(chan struct{}),
	}

	go func() {
		<-p.started
		results := lhs.Drain()
		rhs.Send(results)
	}()

	return p
}

// OutputSize returns the downstream worker's result element size
func (p *Pipeline) OutputSize() int {
	return p.rhs.OutputSize()
}

// Send forwards a batch to the upstream worker
func (p *Pipeline) Send(values vector.Vector) {
	p.mu.Lock()
	p.underway += values.Len()
	p.mu.Unlock()

	p.lhs.Send(values)
	p.startOnce.Do(func() { close(p.started) })
}

// Receive blocks for one downstream result
func (p *Pipeline) Receive(out []byte) {
	p.rhs.Receive(out)

	p.mu.Lock()
	p.underway--
	p.mu.Unlock()
}

// Drain receives every result still underway into a vector, in order
func (p *Pipeline) Drain() vector.Vector {
	p.mu.Lock()
	required := p.underway
	p.mu.Unlock()

	var results vector.Vector
	if p.OutputSize() > 0 {
		results = vector.New(p.r, p.OutputSize())
		results.Resize(required)
	}

	for i := 0; i < required; i++ {
		if !results.IsNil() {
			p.Receive(results.Access(i))
		} else {
			p.Receive(nil)
		}
	}

	return results
}
