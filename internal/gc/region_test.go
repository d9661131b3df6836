package gc

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ehrlich-b/go-eyot/internal/alloc"
)

func TestCollectWithNoRootsFreesEverything(t *testing.T) {
	r := New()

	for i := 0; i < 8; i++ {
		r.Alloc(32, nil)
	}
	require.Equal(t, 8, r.Stats().PagesAllocated)
	require.Equal(t, 256, r.Stats().BytesAllocated)

	r.Collect()

	assert.Equal(t, 0, r.Stats().PagesAllocated)
	assert.Equal(t, 0, r.Stats().BytesAllocated)
}

func TestRootObjectSurvivesCollect(t *testing.T) {
	r := New()

	finalised := false
	ptr := r.Alloc(16, func(uintptr) { finalised = true })
	r.RememberRootObject(ptr)

	r.Collect()
	assert.False(t, finalised)
	assert.Equal(t, 1, r.Stats().PagesAllocated)

	r.ForgetRootObject(ptr)
	r.Collect()
	assert.True(t, finalised)
	assert.Equal(t, 0, r.Stats().PagesAllocated)
}

// Allocate a record holding a pointer to a second page, pin only the
// record, and check the reference keeps the second page alive through a
// collection. Mirrors a struct with a pointer field.
func TestRecursiveMarking(t *testing.T) {
	r := New()

	var bitmap int
	inner := r.Alloc(8, func(uintptr) { bitmap |= 2 })
	outer := r.Alloc(16, func(uintptr) { bitmap |= 1 })

	// outer = {a: 1, b: &inner}
	alloc.PutWord(outer, 1)
	alloc.PutWord(outer+8, inner)

	r.RememberRootObject(outer)
	r.Collect()
	assert.Zero(t, bitmap, "no page should be finalised while pinned")
	assert.Equal(t, 2, r.Stats().PagesAllocated)

	r.ForgetRootObject(outer)
	r.Collect()
	assert.Equal(t, 3, bitmap, "both finalisers fire exactly once")
	assert.Equal(t, 0, r.Stats().BytesAllocated)

	// a further collect must not re-run finalisers
	r.Collect()
	assert.Equal(t, 3, bitmap)
}

func TestStackRootPointer(t *testing.T) {
	r := New()

	fired := 0
	a := r.Alloc(8, func(uintptr) { fired++ })
	b := r.Alloc(8, func(uintptr) { fired++ })

	pa, pb := a, b
	r.RememberRootPointer(&pa)
	r.RememberRootPointer(&pb)

	r.Collect()
	require.Zero(t, fired)

	// null out one variable, then forget the other registration entirely
	pa = 0
	r.ForgetRootPointer(&pb)

	r.Collect()
	assert.Equal(t, 2, fired, "nulled variable and forgotten registration both unpin")

	r.ForgetRootPointer(&pa)
}

func TestStackRootTableGrows(t *testing.T) {
	r := New()

	ptrs := make([]uintptr, 40)
	for i := range ptrs {
		ptrs[i] = r.Alloc(8, nil)
		r.RememberRootPointer(&ptrs[i])
	}

	r.Collect()
	assert.Equal(t, 40, r.Stats().PagesAllocated)

	for i := range ptrs {
		r.ForgetRootPointer(&ptrs[i])
	}
	r.Collect()
	assert.Equal(t, 0, r.Stats().PagesAllocated)
}

func TestForgetUnknownPointerIsFatal(t *testing.T) {
	r := New()
	var p uintptr

	assert.Panics(t, func() {
		r.ForgetRootPointer(&p)
	})
}

func TestReallocPreservesLinkageAndContents(t *testing.T) {
	r := New()

	a := r.Alloc(16, nil)
	b := r.Alloc(8, nil)
	c := r.Alloc(24, nil)
	_ = a
	_ = c

	buf := r.Bytes(b)
	buf[0] = 0x5A

	b = r.Realloc(b, 64)
	grown := r.Bytes(b)
	assert.Equal(t, byte(0x5A), grown[0])
	for i := 8; i < 64; i++ {
		require.Zerof(t, grown[i], "grown byte %d not zeroed", i)
	}

	assert.Equal(t, 3, r.Stats().PagesAllocated)
	assert.Equal(t, 16+64+24, r.Stats().BytesAllocated)

	r.Collect()
	assert.Equal(t, 0, r.Stats().PagesAllocated)
}

func TestReallocZeroGrowsFromNothing(t *testing.T) {
	r := New()
	p := r.Realloc(0, 32)
	require.True(t, r.Owns(p))
	assert.Equal(t, 32, r.Stats().BytesAllocated)
}

// Chains a -> b -> c through payload words; pinning a must keep the whole
// chain, and a garbage bit pattern in a payload must never be followed.
func TestMarkChainAndGarbageWords(t *testing.T) {
	r := New()

	c := r.Alloc(8, nil)
	b := r.Alloc(16, nil)
	a := r.Alloc(16, nil)

	alloc.PutWord(a, b)
	alloc.PutWord(a+8, 0xFFFFFFFFFFF1) // not a page address
	alloc.PutWord(b, c)

	r.RememberRootObject(a)
	r.Collect()
	assert.Equal(t, 3, r.Stats().PagesAllocated)

	// cycles must not loop the marker
	alloc.PutWord(c, a)
	r.Collect()
	assert.Equal(t, 3, r.Stats().PagesAllocated)

	r.ForgetRootObject(a)
	r.Collect()
	assert.Equal(t, 0, r.Stats().PagesAllocated)
}

func TestFinaliserRunsBeforeFree(t *testing.T) {
	r := New()

	var seen byte
	p := r.Alloc(8, func(ptr uintptr) {
		seen = alloc.Bytes(ptr, 8)[0]
	})
	r.Bytes(p)[0] = 0x77

	r.Collect()
	assert.Equal(t, byte(0x77), seen, "finaliser observes the payload before release")
}

func TestFreeRunsFinalCollection(t *testing.T) {
	r := New()

	fired := 0
	r.Alloc(8, func(uintptr) { fired++ })
	r.Alloc(8, func(uintptr) { fired++ })

	r.Free()
	assert.Equal(t, 2, fired)
}
