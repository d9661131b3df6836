// Package pipe provides the runtime's bounded thread-safe FIFO.
//
// A pipe carries fixed-size elements between any number of senders and
// receivers. Receives block until a value or end-of-stream is available;
// closing wakes every blocked receiver so all of them observe
// end-of-stream once the backlog drains.
package pipe

import (
	"sync"

	"github.com/ehrlich-b/go-eyot/internal/constants"
	"github.com/ehrlich-b/go-eyot/internal/fault"
	"github.com/ehrlich-b/go-eyot/internal/gc"
	"github.com/ehrlich-b/go-eyot/internal/interfaces"
	"github.com/ehrlich-b/go-eyot/internal/vector"
)

// Pipe is a multi-producer multi-consumer FIFO of fixed-size values
type Pipe struct {
	mu   sync.Mutex
	cond *sync.Cond

	closed    bool
	elemSize  int
	used      int
	allocated int
	values    []byte

	r   *gc.Region
	obs interfaces.Observer
}

// New creates a pipe with a small initial capacity
func New(r *gc.Region, elemSize int) *Pipe {
	if elemSize <= 0 {
		fault.Panicf("pipe.create", fault.CodeInvariant, "bad element size %d", elemSize)
	}
	p := &Pipe{
		elemSize:  elemSize,
		allocated: constants.InitialPipeCapacity,
		values:    make([]byte, elemSize*constants.InitialPipeCapacity),
		r:         r,
	}
	p.cond = sync.NewCond(&p.mu)
	return p
}

// SetObserver installs a metrics observer. Pass nil to disable.
func (p *Pipe) SetObserver(o interfaces.Observer) {
	p.mu.Lock()
	p.obs = o
	p.mu.Unlock()
}

// ElemSize returns the fixed element size in bytes
func (p *Pipe) ElemSize() int {
	return p.elemSize
}

func (p *Pipe) at(i int) []byte {
	return p.values[i*p.elemSize : (i+1)*p.elemSize]
}

// Send appends a copy of value. Sending on a closed pipe is fatal; a full
// pipe grows by one element.
func (p *Pipe) Send(value []byte) {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		fault.Panic("pipe.send", fault.CodeInvariant, "sending on a closed pipe")
	}

	if p.allocated == p.used {
		p.allocated++
		grown := make([]byte, p.allocated*p.elemSize)
		copy(grown, p.values)
		p.values = grown
	}

	copy(p.at(p.used), value)
	p.used++
	if p.obs != nil {
		p.obs.ObserveSend()
	}
	p.mu.Unlock()

	p.cond.Signal()
}

// Receive copies the head element into out, blocking until a value
// arrives. It returns false when the pipe is closed and empty.
func (p *Pipe) Receive(out []byte) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	for p.used == 0 && !p.closed {
		p.cond.Wait()
	}

	if p.closed && p.used == 0 {
		return false
	}

	copy(out, p.at(0))
	p.used--
	if p.used > 0 {
		copy(p.values, p.values[p.elemSize:(p.used+1)*p.elemSize])
	}
	if p.obs != nil {
		p.obs.ObserveReceive()
	}
	return true
}

// ReceiveMultiple receives count values into a new vector. End-of-stream
// before count values arrive yields the nil vector.
func (p *Pipe) ReceiveMultiple(count int) vector.Vector {
	v := vector.New(p.r, p.elemSize)

	for i := 0; i < count; i++ {
		v.Append(nil)
		if !p.Receive(v.Access(i)) {
			return vector.Vector{}
		}
	}

	return v
}

// Close marks the pipe closed and wakes every blocked receiver. Values
// already queued are still delivered in order.
func (p *Pipe) Close() {
	p.mu.Lock()
	p.closed = true
	p.mu.Unlock()

	p.cond.Broadcast()
}

// Closed reports whether Close has been called
func (p *Pipe) Closed() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.closed
}
