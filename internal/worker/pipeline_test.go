package worker

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ehrlich-b/go-eyot/internal/gc"
)

func double(ctx any, in, out, userCtx []byte) {
	putInt(out, getInt(in)*2)
}

func TestPipelineComposesInOrder(t *testing.T) {
	r := gc.New()

	a := NewCPU(r, increment, 8, 8, nil, Config{})
	b := NewCPU(r, double, 8, 8, nil, Config{})
	p := NewPipeline(r, a, b)

	p.Send(intVec(r, 1, 2, 3))

	results := p.Drain()
	require.Equal(t, 3, results.Len())

	// double(increment(x)) = (x+1)*2
	for i, want := range []int64{4, 6, 8} {
		assert.Equal(t, want, results.IntAt(i))
	}

	assert.Equal(t, 8, p.OutputSize())
	a.Close()
	b.Close()
}

func TestPipelineSingleReceive(t *testing.T) {
	r := gc.New()

	a := NewCPU(r, increment, 8, 8, nil, Config{})
	b := NewCPU(r, increment, 8, 8, nil, Config{})
	p := NewPipeline(r, a, b)

	p.Send(intVec(r, 40))

	out := make([]byte, 8)
	p.Receive(out)
	assert.Equal(t, int64(42), getInt(out))

	a.Close()
	b.Close()
}
