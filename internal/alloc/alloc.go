// Package alloc is the manual allocation façade underneath the collector.
//
// Blocks are carved from anonymous mmap regions, so they live outside the
// Go heap at stable addresses. That property is what makes conservative
// scanning well defined: an arbitrary 8-byte word can be compared against
// block addresses without ever being dereferenced, and no Go object is
// kept alive (or moved) by the comparison.
package alloc

import (
	"sync"

	"golang.org/x/sys/unix"

	"github.com/ehrlich-b/go-eyot/internal/fault"
)

// blocks tracks every live mapping by its base address. The mapping slice
// is retained so the memory stays reachable from Go's point of view.
var blocks = struct {
	sync.Mutex
	m map[uintptr][]byte
}{
	m: make(map[uintptr][]byte),
}

// Alloc returns a zero-filled block of at least size bytes. The base
// address is page aligned, which satisfies the collector's 8-byte
// alignment requirement. Allocation failure is fatal.
func Alloc(size int) uintptr {
	if size < 0 {
		fault.Panicf("alloc", fault.CodeInvariant, "negative allocation size %d", size)
	}
	length := size
	if length == 0 {
		length = 1
	}

	data, err := unix.Mmap(-1, 0, length,
		unix.PROT_READ|unix.PROT_WRITE,
		unix.MAP_PRIVATE|unix.MAP_ANON)
	if err != nil {
		fault.Panicf("alloc", fault.CodeAllocationFailure, "mmap of %d bytes failed: %v", length, err)
	}

	base := base(data)
	blocks.Lock()
	blocks.m[base] = data
	blocks.Unlock()

	return base
}

// Free releases a block previously returned by Alloc. Freeing address zero
// is a no-op; freeing an unknown address is fatal.
func Free(ptr uintptr) {
	if ptr == 0 {
		return
	}

	blocks.Lock()
	data, ok := blocks.m[ptr]
	if ok {
		delete(blocks.m, ptr)
	}
	blocks.Unlock()

	if !ok {
		fault.Panicf("alloc", fault.CodeNotFound, "free of unknown block %#x", ptr)
	}
	if err := unix.Munmap(data); err != nil {
		fault.Panicf("alloc", fault.CodeAllocationFailure, "munmap failed: %v", err)
	}
}

// Realloc grows or shrinks a block, preserving contents up to the smaller
// of the two sizes. New bytes are zero filled. A zero ptr is a plain
// allocation. The block may move.
func Realloc(ptr uintptr, newSize int) uintptr {
	if ptr == 0 {
		return Alloc(newSize)
	}

	blocks.Lock()
	old, ok := blocks.m[ptr]
	blocks.Unlock()
	if !ok {
		fault.Panicf("alloc", fault.CodeNotFound, "realloc of unknown block %#x", ptr)
	}

	next := Alloc(newSize)
	n := len(old)
	if newSize < n {
		n = newSize
	}
	copy(Bytes(next, n), old[:n])
	Free(ptr)
	return next
}

// Size reports the usable length recorded for a block, which may exceed
// the requested size because mappings are page granular.
func Size(ptr uintptr) int {
	blocks.Lock()
	defer blocks.Unlock()
	data, ok := blocks.m[ptr]
	if !ok {
		fault.Panicf("alloc", fault.CodeNotFound, "size of unknown block %#x", ptr)
	}
	return len(data)
}
