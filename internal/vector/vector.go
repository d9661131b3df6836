// Package vector provides the runtime's dynamic contiguous buffer.
//
// A Vector is a handle to a header page inside a collector region. The
// header stores the element size, the length and the payload address as an
// 8-byte word, so a rooted vector keeps its payload alive through the
// conservative scan.
package vector

import (
	"unsafe"

	"github.com/ehrlich-b/go-eyot/internal/alloc"
	"github.com/ehrlich-b/go-eyot/internal/fault"
	"github.com/ehrlich-b/go-eyot/internal/gc"
)

// header is the in-page layout of a vector. All fields are word sized so
// the payload address sits at an aligned scan offset.
type header struct {
	length   int64
	elemSize int64
	data     uintptr
}

const headerSize = int(unsafe.Sizeof(header{}))

// Vector is a handle to a region-allocated vector. The zero value is the
// nil vector.
type Vector struct {
	r   *gc.Region
	ptr uintptr
}

// New creates an empty vector of fixed-size elements
func New(r *gc.Region, elemSize int) Vector {
	if elemSize <= 0 {
		fault.Panicf("vector.create", fault.CodeInvariant, "bad element size %d", elemSize)
	}
	ptr := r.Alloc(headerSize, nil)
	v := Vector{r: r, ptr: ptr}
	v.hdr().elemSize = int64(elemSize)
	return v
}

// FromHandle reconstructs a vector handle from a header page address
func FromHandle(r *gc.Region, ptr uintptr) Vector {
	return Vector{r: r, ptr: ptr}
}

// IsNil reports whether this is the nil vector
func (v Vector) IsNil() bool {
	return v.ptr == 0
}

// Handle returns the header page address, suitable for pinning
func (v Vector) Handle() uintptr {
	return v.ptr
}

func (v Vector) hdr() *header {
	return (*header)(unsafe.Pointer(v.ptr))
}

// Len returns the element count
func (v Vector) Len() int {
	return int(v.hdr().length)
}

// ElemSize returns the fixed element size in bytes
func (v Vector) ElemSize() int {
	return int(v.hdr().elemSize)
}

// Ptr returns the raw payload address, zero when empty
func (v Vector) Ptr() uintptr {
	return v.hdr().data
}

// Bytes returns the full payload as a byte slice, nil when empty
func (v Vector) Bytes() []byte {
	h := v.hdr()
	if h.data == 0 {
		return nil
	}
	return alloc.Bytes(h.data, int(h.length*h.elemSize))
}

// Resize sets the length. Growth is zero filled, shrinking truncates, and
// a zero length releases the payload to the collector.
func (v Vector) Resize(n int) {
	h := v.hdr()
	h.length = int64(n)
	if n == 0 {
		h.data = 0
		return
	}
	h.data = v.r.Realloc(h.data, n*int(h.elemSize))
}

// Access returns the element at index i. Out of range on either side is
// fatal.
func (v Vector) Access(i int) []byte {
	h := v.hdr()
	if i < 0 {
		fault.Panic("vector.access", fault.CodeInvariant, "index out of range (-ve)")
	}
	if int64(i) >= h.length {
		fault.Panic("vector.access", fault.CodeInvariant, "index out of range (+ve)")
	}
	return alloc.Bytes(h.data+uintptr(i)*uintptr(h.elemSize), int(h.elemSize))
}

// Append adds one element, copying from elem. A nil elem reserves the slot
// without writing it.
func (v Vector) Append(elem []byte) {
	n := v.Len() + 1
	v.Resize(n)
	if elem != nil {
		copy(v.Access(n-1), elem)
	}
}

// AppendVector appends every element of other. Element sizes must match.
func (v Vector) AppendVector(other Vector) {
	h, oh := v.hdr(), other.hdr()
	if h.elemSize != oh.elemSize {
		fault.Panic("vector.append_vector", fault.CodeInvariant,
			"cannot append a vector of different pitch size")
	}

	oldLen, incoming := v.Len(), other.Len()
	if incoming == 0 {
		return
	}

	v.Resize(oldLen + incoming)
	copy(alloc.Bytes(h.data+uintptr(oldLen)*uintptr(h.elemSize), incoming*int(h.elemSize)),
		other.Bytes())
}

// Erase removes count elements starting at start, shifting the tail down.
// Ranges that leave the vector are fatal.
func (v Vector) Erase(start, count int) {
	if count == 0 {
		return
	}
	length := v.Len()
	if start < 0 || count < 0 || start+count > length {
		fault.Panic("vector.erase", fault.CodeInvariant, "deleting out of range of vector")
	}

	es := v.ElemSize()
	for i := start; i < length-count; i++ {
		copy(v.Access(i), alloc.Bytes(v.hdr().data+uintptr(i+count)*uintptr(es), es))
	}
	v.Resize(length - count)
}

// IntAt reads element i as a runtime integer
func (v Vector) IntAt(i int) int64 {
	return *(*int64)(unsafe.Pointer(&v.Access(i)[0]))
}

// AppendInt appends a runtime integer element
func (v Vector) AppendInt(val int64) {
	v.Append(alloc.Bytes(uintptr(unsafe.Pointer(&val)), 8))
}

// ContinueIterating is the loop guard used by expanded for loops. A zero
// step never iterates further.
func ContinueIterating(step, lhs, rhs int64) bool {
	if step == 0 {
		return false
	}
	if step > 0 {
		return lhs < rhs
	}
	return lhs > rhs
}

// Range builds the enumerable [start, end) with the given stride. A zero
// step or a direction that disagrees with the bounds yields an empty
// vector; a negative step iterates while val > end.
func Range(r *gc.Region, start, end, step int64) Vector {
	v := New(r, 8)

	if step == 0 {
		return v
	}

	val := start
	if step < 0 {
		if end > start {
			return v
		}
		for val > end {
			v.AppendInt(val)
			val += step
		}
	} else {
		if end < start {
			return v
		}
		for val < end {
			v.AppendInt(val)
			val += step
		}
	}

	return v
}
