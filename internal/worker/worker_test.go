package worker

import (
	"encoding/binary"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ehrlich-b/go-eyot/internal/gc"
	"github.com/ehrlich-b/go-eyot/internal/vector"
)

func intVec(r *gc.Region, vals ...int64) vector.Vector {
	v := vector.New(r, 8)
	for _, val := range vals {
		v.AppendInt(val)
	}
	return v
}

func getInt(b []byte) int64 {
	return int64(binary.LittleEndian.Uint64(b))
}

func putInt(b []byte, v int64) {
	binary.LittleEndian.PutUint64(b, uint64(v))
}

// increment is the simplest returning worker function
func increment(ctx any, in, out, userCtx []byte) {
	putInt(out, getInt(in)+1)
}

func TestReturningWorker(t *testing.T) {
	r := gc.New()
	w := NewCPU(r, increment, 8, 8, nil, Config{})
	defer w.Close()

	w.Send(intVec(r, 1, 2, 3))

	out := make([]byte, 8)
	w.Receive(out)
	assert.Equal(t, int64(2), getInt(out))

	results := w.Drain()
	require.Equal(t, 2, results.Len())
	assert.Equal(t, int64(3), results.IntAt(0))
	assert.Equal(t, int64(4), results.IntAt(1))
}

func TestWorkerOrderPreserved(t *testing.T) {
	r := gc.New()
	w := NewCPU(r, increment, 8, 8, nil, Config{})
	defer w.Close()

	w.Send(intVec(r, 10, 20, 30, 40, 50))

	results := w.Drain()
	require.Equal(t, 5, results.Len())
	for i, want := range []int64{11, 21, 31, 41, 51} {
		assert.Equal(t, want, results.IntAt(i))
	}
}

// The worker context is copied into collector memory: mutating the
// worker's copy must leave the caller's original untouched.
func TestWorkerContextCopySemantics(t *testing.T) {
	r := gc.New()

	var observed atomic.Int64

	// reads its private counter, adds the input to it, reports the sum
	fn := func(ctx any, in, out, userCtx []byte) {
		count := getInt(userCtx) + getInt(in)
		putInt(userCtx, count)
		observed.Store(count)
	}

	callerCtx := make([]byte, 8)
	putInt(callerCtx, 1234)

	w := NewCPU(r, fn, 8, 0, callerCtx, Config{})
	defer w.Close()

	// scribble on the caller's buffer after construction; the worker keeps
	// its own copy taken at create time
	putInt(callerCtx, 9999)

	w.Send(intVec(r, 1, 2))
	results := w.Drain()

	assert.True(t, results.IsNil(), "void worker drains to the nil vector")
	assert.Equal(t, int64(1234+1+2), observed.Load(), "worker computed from its own copy")
	assert.Equal(t, int64(9999), getInt(callerCtx), "worker never writes the caller's buffer")
}

func TestVoidWorkerAccounting(t *testing.T) {
	r := gc.New()

	var processed atomic.Int64
	fn := func(ctx any, in, out, userCtx []byte) {
		processed.Add(1)
	}

	w := NewCPU(r, fn, 8, 0, nil, Config{})
	defer w.Close()

	w.Send(intVec(r, 1, 2, 3))
	results := w.Drain()

	assert.True(t, results.IsNil())
	assert.Equal(t, int64(3), processed.Load())
}

func TestSendDrainRepeats(t *testing.T) {
	r := gc.New()
	w := NewCPU(r, increment, 8, 8, nil, Config{})
	defer w.Close()

	for round := int64(0); round < 3; round++ {
		w.Send(intVec(r, round))
		results := w.Drain()
		require.Equal(t, 1, results.Len())
		assert.Equal(t, round+1, results.IntAt(0))
	}
}

// Finalising the handle page closes the input pipe, which winds the
// worker goroutine down.
func TestCollectingUnpinnedWorkerStopsIt(t *testing.T) {
	r := gc.New()
	w := NewCPU(r, increment, 8, 8, nil, Config{})

	// the worker owes nothing; drop it entirely
	r.Collect()

	deadline := time.After(2 * time.Second)
	for !w.input.Closed() {
		select {
		case <-deadline:
			t.Fatal("input pipe not closed by handle finaliser")
		default:
			time.Sleep(5 * time.Millisecond)
		}
	}
}

func TestPinnedWorkerSurvivesCollect(t *testing.T) {
	r := gc.New()
	w := NewCPU(r, increment, 8, 8, nil, Config{})

	h := w.Handle()
	r.RememberRootObject(h)
	r.Collect()

	assert.False(t, w.input.Closed())

	w.Send(intVec(r, 5))
	results := w.Drain()
	require.Equal(t, 1, results.Len())
	assert.Equal(t, int64(6), results.IntAt(0))

	r.ForgetRootObject(h)
	w.Close()
}
