package alloc

import "unsafe"

// base returns the address of a mapping's first byte.
//
//go:noinline
func base(data []byte) uintptr {
	return uintptr(unsafe.Pointer(&data[0]))
}

// Bytes returns a byte view over size bytes at ptr. The caller is
// responsible for ptr naming a live block and size not exceeding it.
func Bytes(ptr uintptr, size int) []byte {
	return unsafe.Slice((*byte)(unsafe.Pointer(ptr)), size)
}

// Word reads the 8-byte word at ptr in native order
func Word(ptr uintptr) uintptr {
	return *(*uintptr)(unsafe.Pointer(ptr))
}

// PutWord stores an 8-byte word at ptr in native order
func PutWord(ptr uintptr, val uintptr) {
	*(*uintptr)(unsafe.Pointer(ptr)) = val
}

// Pointer converts a block address to an unsafe.Pointer for handing to
// foreign APIs. Blocks never move, so the conversion is stable.
func Pointer(ptr uintptr) unsafe.Pointer {
	return unsafe.Pointer(ptr)
}
