// Package closure implements the runtime's partially-applied callables.
//
// A closure is a single collector page laid out as
//
//	[fid:int32 padded to 8][present flag × argc][slot × argc]
//
// Present flags are booleans widened to 8 bytes and every slot body is
// padded up to the next multiple of 8, so the blob can be copied to a
// compute device verbatim. Layout is driven entirely by the host's oracle;
// slot sizes arrive unpadded.
package closure

import (
	"unsafe"

	"github.com/ehrlich-b/go-eyot/internal/alloc"
	"github.com/ehrlich-b/go-eyot/internal/fault"
	"github.com/ehrlich-b/go-eyot/internal/gc"
	"github.com/ehrlich-b/go-eyot/internal/interfaces"
)

const (
	fidSpan  = 8
	flagSpan = 8
)

// stepSize rounds a raw slot size up to the 8-byte stride
func stepSize(raw int) int {
	for raw%8 != 0 {
		raw++
	}
	return raw
}

// BlobSize computes the full byte size of a closure for a function id
func BlobSize(o interfaces.Oracle, fid int) int {
	argc := o.ArgCount(fid)
	size := fidSpan
	for i := 0; i < argc; i++ {
		size += flagSpan
		size += stepSize(o.SlotSize(fid, i))
	}
	return size
}

// Closure is a handle to a closure blob. The zero value is the nil
// closure.
type Closure struct {
	r   *gc.Region
	o   interfaces.Oracle
	ptr uintptr
}

// New builds a closure for fid. args holds one entry per argument slot: a
// non-nil entry is captured into the blob now, a nil entry is deferred to
// invocation.
func New(r *gc.Region, o interfaces.Oracle, fid int, args [][]byte) Closure {
	argc := o.ArgCount(fid)
	if len(args) != argc {
		fault.Panicf("closure.create", fault.CodeInvariant,
			"function %d takes %d arguments, got %d", fid, argc, len(args))
	}

	ptr := r.Alloc(BlobSize(o, fid), nil)
	c := Closure{r: r, o: o, ptr: ptr}
	*(*int32)(unsafe.Pointer(ptr)) = int32(fid)

	for i := 0; i < argc; i++ {
		if args[i] != nil {
			c.setArgExists(i, true)
			copy(c.argSlot(i), args[i])
		} else {
			c.setArgExists(i, false)
		}
	}

	return c
}

// FromHandle reconstructs a closure handle from a blob address
func FromHandle(r *gc.Region, o interfaces.Oracle, ptr uintptr) Closure {
	return Closure{r: r, o: o, ptr: ptr}
}

// IsNil reports whether this is the nil closure
func (c Closure) IsNil() bool {
	return c.ptr == 0
}

// Handle returns the blob address, suitable for pinning
func (c Closure) Handle() uintptr {
	return c.ptr
}

// FID extracts the function id
func (c Closure) FID() int {
	return int(*(*int32)(unsafe.Pointer(c.ptr)))
}

// Size returns the overall blob size
func (c Closure) Size() int {
	return BlobSize(c.o, c.FID())
}

// Bytes returns the whole blob, for copying to a device
func (c Closure) Bytes() []byte {
	return alloc.Bytes(c.ptr, c.Size())
}

func (c Closure) argExistsOffset(arg int) uintptr {
	return uintptr(fidSpan + flagSpan*arg)
}

// ArgExists reports whether slot arg was captured at construction
func (c Closure) ArgExists(arg int) bool {
	return alloc.Word(c.ptr+c.argExistsOffset(arg)) != 0
}

func (c Closure) setArgExists(arg int, val bool) {
	var word uintptr
	if val {
		word = 1
	}
	alloc.PutWord(c.ptr+c.argExistsOffset(arg), word)
}

// argSlot returns the body of slot arg at its unpadded size
func (c Closure) argSlot(arg int) []byte {
	fid := c.FID()
	off := uintptr(fidSpan + flagSpan*c.o.ArgCount(fid))
	for i := 0; i < arg; i++ {
		off += uintptr(stepSize(c.o.SlotSize(fid, i)))
	}
	return alloc.Bytes(c.ptr+off, c.o.SlotSize(fid, arg))
}

// Call reconstructs the full argument list and dispatches through the
// host's function caller. Captured slots come from the blob; deferred
// slots consume supplied values in order.
func (c Closure) Call(ctx any, result []byte, supplied [][]byte, caller interfaces.FunctionCaller) {
	fid := c.FID()
	argc := c.o.ArgCount(fid)

	resolved := make([][]byte, argc)
	passed := 0
	for i := 0; i < argc; i++ {
		if c.ArgExists(i) {
			resolved[i] = c.argSlot(i)
		} else {
			if passed >= len(supplied) {
				fault.Panicf("closure.call", fault.CodeInvariant,
					"function %d: not enough supplied arguments", fid)
			}
			resolved[i] = supplied[passed]
			passed++
		}
	}

	caller(ctx, fid, result, resolved)
}
