// Package text provides the runtime's Unicode string type.
//
// Storage is one 32-bit scalar value per character, so the byte length is
// always four times the character count. The header lives in a collector
// page; the payload is manually allocated and released by the header's
// finaliser unless the string has static lifetime.
package text

import (
	"unsafe"

	"github.com/ehrlich-b/go-eyot/internal/alloc"
	"github.com/ehrlich-b/go-eyot/internal/gc"
)

// header is the in-page layout of a string
type header struct {
	length int64   // payload size in bytes, always a multiple of 4
	data   uintptr // manually allocated scalar array
	static int64   // nonzero payloads must never be freed
}

const headerSize = int(unsafe.Sizeof(header{}))

// String is a handle to a region-allocated string. The zero value is the
// nil string.
type String struct {
	r   *gc.Region
	ptr uintptr
}

// finalise frees a heap string's payload. Static payloads are left alone.
func finalise(ptr uintptr) {
	h := (*header)(unsafe.Pointer(ptr))
	if h.static == 0 && h.data != 0 {
		alloc.Free(h.data)
	}
}

func newBlank(r *gc.Region) String {
	ptr := r.Alloc(headerSize, finalise)
	return String{r: r, ptr: ptr}
}

func (s String) hdr() *header {
	return (*header)(unsafe.Pointer(s.ptr))
}

// IsNil reports whether this is the nil string
func (s String) IsNil() bool {
	return s.ptr == 0
}

// Handle returns the header page address, suitable for pinning
func (s String) Handle() uintptr {
	return s.ptr
}

// FromHandle reconstructs a string handle from a header page address
func FromHandle(r *gc.Region, ptr uintptr) String {
	return String{r: r, ptr: ptr}
}

// ByteLength returns the payload size in bytes
func (s String) ByteLength() int {
	return int(s.hdr().length)
}

// CharacterLength returns the number of scalar values
func (s String) CharacterLength() int {
	return int(s.hdr().length) / 4
}

// Static reports whether the payload has static lifetime
func (s String) Static() bool {
	return s.hdr().static != 0
}

func (s String) scalars() []uint32 {
	h := s.hdr()
	if h.data == 0 {
		return nil
	}
	return unsafe.Slice((*uint32)(unsafe.Pointer(h.data)), h.length/4)
}

// GetCharacter returns the scalar at position. Positions are not bounds
// checked beyond the caller's discipline.
func (s String) GetCharacter(position int) uint32 {
	return s.scalars()[position]
}

// SetCharacter stores a scalar at position
func (s String) SetCharacter(position int, c uint32) {
	s.scalars()[position] = c
}

// decodeCodePoint decodes one UTF-8 sequence starting at data[i],
// returning the scalar and the next index. The leading-ones count of the
// first byte gives the sequence length; continuation bytes contribute six
// bits each.
func decodeCodePoint(data []byte, i int) (uint32, int) {
	lead := data[i]
	k := 0
	for b := lead; b&0x80 != 0; b <<= 1 {
		k++
	}

	if k == 0 {
		return uint32(lead), i + 1
	}

	val := uint32(lead & (0xFF >> (k + 1)))
	i++
	for k--; k > 0 && i < len(data) && data[i] != 0; k-- {
		val = val<<6 | uint32(data[i]&0x3F)
		i++
	}
	return val, i
}

// characterCount counts scalars in a UTF-8 sequence by skipping
// continuation bytes
func characterCount(data []byte) int {
	n := 0
	for _, b := range data {
		if b >= 0x80 && b < 0xC0 {
			continue
		}
		n++
	}
	return n
}

// CreateLiteral decodes a UTF-8 byte sequence into a new string. Decoding
// stops at a NUL byte.
func CreateLiteral(r *gc.Region, literal []byte) String {
	if i := indexByte(literal, 0); i >= 0 {
		literal = literal[:i]
	}

	count := characterCount(literal)
	s := newBlank(r)
	h := s.hdr()
	h.length = int64(count * 4)
	if count > 0 {
		h.data = alloc.Alloc(count * 4)
	}

	out := s.scalars()
	for i, pos := 0, 0; i < count; i++ {
		out[i], pos = decodeCodePoint(literal, pos)
	}
	return s
}

// CreateLiteralString is CreateLiteral over a Go string
func CreateLiteralString(r *gc.Region, literal string) String {
	return CreateLiteral(r, []byte(literal))
}

// CreateStatic builds a string whose payload is never freed. It backs the
// program's literal pool.
func CreateStatic(r *gc.Region, literal string) String {
	s := CreateLiteralString(r, literal)
	s.hdr().static = 1
	return s
}

// Copy deep-copies a string into a freshly allocated payload. The copy
// never has static lifetime.
func Copy(r *gc.Region, s String) String {
	ns := newBlank(r)
	h, sh := ns.hdr(), s.hdr()
	h.length = sh.length
	if sh.length > 0 {
		h.data = alloc.Alloc(int(sh.length))
		copy(alloc.Bytes(h.data, int(h.length)), alloc.Bytes(sh.data, int(sh.length)))
	}
	return ns
}

// Assign prepares a string for storage: static-lifetime strings are
// copied, anything else is aliased
func Assign(r *gc.Region, s String) String {
	if s.Static() {
		return Copy(r, s)
	}
	return s
}

// UseLiteral is how generated code consumes a literal; it matches Assign
// on the CPU path
func UseLiteral(r *gc.Region, s String) String {
	return Assign(r, s)
}

// Join concatenates two strings into a new one
func Join(r *gc.Region, lhs, rhs String) String {
	length := lhs.hdr().length + rhs.hdr().length
	s := newBlank(r)
	h := s.hdr()
	h.length = length
	if length > 0 {
		h.data = alloc.Alloc(int(length))
		buf := alloc.Bytes(h.data, int(length))
		n := copy(buf, lhs.payloadBytes())
		copy(buf[n:], rhs.payloadBytes())
	}
	return s
}

func (s String) payloadBytes() []byte {
	h := s.hdr()
	if h.data == 0 {
		return nil
	}
	return alloc.Bytes(h.data, int(h.length))
}

// Resize sets the character length. The string is assigned first so a
// static literal is never mutated; new characters are filled with spaces,
// shrinking truncates.
func Resize(r *gc.Region, s String, l int) String {
	s = Assign(r, s)

	h := s.hdr()
	if int64(l*4) == h.length {
		return s
	}

	oldChars := int(h.length) / 4
	h.data = alloc.Realloc(h.data, l*4)
	h.length = int64(l * 4)

	cs := s.scalars()
	for i := oldChars; i < l; i++ {
		cs[i] = ' '
	}
	return s
}

// Equality compares two strings: identity short-circuit, then character
// length parity, then byte-wise payload comparison
func Equality(lhs, rhs String) bool {
	if lhs.ptr == rhs.ptr {
		return true
	}
	if lhs.CharacterLength() != rhs.CharacterLength() {
		return false
	}

	lp, rp := lhs.payloadBytes(), rhs.payloadBytes()
	for i := range lp {
		if lp[i] != rp[i] {
			return false
		}
	}
	return true
}

// encodeUTF8 appends the UTF-8 encoding of one scalar
func encodeUTF8(dst []byte, code uint32) []byte {
	var tmp [4]byte
	leadByteMax := uint32(0x7F)
	n := 0

	for code > leadByteMax {
		tmp[n] = byte(code&0x3F) | 0x80
		n++
		code >>= 6
		if n == 1 {
			leadByteMax >>= 2
		} else {
			leadByteMax >>= 1
		}
	}
	tmp[n] = byte(code&leadByteMax) | byte(^leadByteMax<<1)
	n++

	for i := n - 1; i >= 0; i-- {
		dst = append(dst, tmp[i])
	}
	return dst
}

// CreateCString re-encodes the payload as NUL-terminated UTF-8 in a
// manually allocated buffer. The caller owns the buffer and must free it.
func CreateCString(s String) uintptr {
	encoded := encodeAll(s)

	blk := alloc.Alloc(len(encoded) + 1)
	buf := alloc.Bytes(blk, len(encoded)+1)
	copy(buf, encoded)
	buf[len(encoded)] = 0
	return blk
}

func encodeAll(s String) []byte {
	var out []byte
	for _, code := range s.scalars() {
		out = encodeUTF8(out, code)
	}
	return out
}

// GoString re-encodes the payload as a Go string. A convenience for hosts
// and tests; the runtime itself prints scalar by scalar.
func (s String) GoString() string {
	if s.IsNil() {
		return ""
	}
	return string(encodeAll(s))
}

func indexByte(data []byte, c byte) int {
	for i, b := range data {
		if b == c {
			return i
		}
	}
	return -1
}
