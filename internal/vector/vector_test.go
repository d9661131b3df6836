package vector

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ehrlich-b/go-eyot/internal/gc"
)

func ints(v Vector) []int64 {
	out := make([]int64, v.Len())
	for i := range out {
		out[i] = v.IntAt(i)
	}
	return out
}

func TestAppendAndAccess(t *testing.T) {
	r := gc.New()
	v := New(r, 8)

	require.Equal(t, 0, v.Len())
	require.Zero(t, v.Ptr(), "empty vector has no payload")

	v.AppendInt(10)
	v.AppendInt(20)
	v.AppendInt(30)

	assert.Equal(t, 3, v.Len())
	assert.Equal(t, []int64{10, 20, 30}, ints(v))
}

func TestReserveOnlyAppend(t *testing.T) {
	r := gc.New()
	v := New(r, 4)

	v.Append(nil)
	assert.Equal(t, 1, v.Len())
	assert.Equal(t, []byte{0, 0, 0, 0}, v.Access(0), "reserved slot is zero filled")
}

func TestResizeShrinkToZeroReleasesPayload(t *testing.T) {
	r := gc.New()
	v := New(r, 8)
	v.AppendInt(1)

	v.Resize(0)
	assert.Equal(t, 0, v.Len())
	assert.Zero(t, v.Ptr())
}

func TestAccessOutOfRangeIsFatal(t *testing.T) {
	r := gc.New()
	v := New(r, 8)
	v.AppendInt(1)

	assert.Panics(t, func() { v.Access(-1) })
	assert.Panics(t, func() { v.Access(1) })
}

func TestAppendVector(t *testing.T) {
	r := gc.New()
	a := New(r, 8)
	b := New(r, 8)

	a.AppendInt(1)
	a.AppendInt(2)
	b.AppendInt(3)

	a.AppendVector(b)
	assert.Equal(t, []int64{1, 2, 3}, ints(a))

	empty := New(r, 8)
	a.AppendVector(empty)
	assert.Equal(t, 3, a.Len())
}

func TestAppendVectorPitchMismatchIsFatal(t *testing.T) {
	r := gc.New()
	a := New(r, 8)
	b := New(r, 4)

	assert.Panics(t, func() { a.AppendVector(b) })
}

func TestErase(t *testing.T) {
	r := gc.New()
	v := New(r, 8)
	for i := int64(0); i < 5; i++ {
		v.AppendInt(i)
	}

	v.Erase(1, 2)
	assert.Equal(t, []int64{0, 3, 4}, ints(v))

	v.Erase(0, 0)
	assert.Equal(t, 3, v.Len())

	assert.Panics(t, func() { v.Erase(2, 2) })
}

func TestRangeSemantics(t *testing.T) {
	r := gc.New()

	assert.Empty(t, ints(Range(r, 0, 0, 1)))
	assert.Equal(t, []int64{0, 1, 2, 3, 4}, ints(Range(r, 0, 5, 1)))
	assert.Equal(t, []int64{5, 4, 3, 2, 1}, ints(Range(r, 5, 0, -1)))
	assert.Empty(t, ints(Range(r, 0, 5, 0)))
	assert.Empty(t, ints(Range(r, 0, -5, 1)))
	assert.Empty(t, ints(Range(r, 0, 5, -1)))
	assert.Equal(t, []int64{0, 2, 4}, ints(Range(r, 0, 5, 2)))
}

func TestContinueIterating(t *testing.T) {
	assert.False(t, ContinueIterating(0, 0, 10))
	assert.True(t, ContinueIterating(1, 0, 10))
	assert.False(t, ContinueIterating(1, 10, 10))
	assert.True(t, ContinueIterating(-1, 10, 0))
	assert.False(t, ContinueIterating(-1, 0, 0))
}

// The header page references the payload through an aligned word, so a
// pinned vector must keep its payload across a collection.
func TestPayloadSurvivesCollect(t *testing.T) {
	r := gc.New()
	v := New(r, 8)
	v.AppendInt(42)

	r.RememberRootObject(v.Handle())
	r.Collect()

	require.Equal(t, int64(42), v.IntAt(0))

	r.ForgetRootObject(v.Handle())
	r.Collect()
	assert.Equal(t, 0, r.Stats().PagesAllocated)
}
