// Package gpu provides the kernel-backed batch worker. Device interaction
// is compiled behind the opencl build tag; this file is the host half of
// the per-lane log plumbing and carries no device dependency.
package gpu

import (
	"encoding/binary"

	"github.com/ehrlich-b/go-eyot/internal/constants"
	"github.com/ehrlich-b/go-eyot/internal/printio"
)

// LogState is the host mirror of the device's shared log blocks. Each
// workgroup lane owns one block: a 32-bit used counter followed by a byte
// buffer. Kernels append raw bytes; the host pumps complete lines out and
// periodically clears the blocks when the worker goes idle.
type LogState struct {
	lanes   int
	host    []byte
	cursors []int
}

// NewLogState creates the mirror for the given lane count
func NewLogState(lanes int) *LogState {
	return &LogState{
		lanes:   lanes,
		host:    make([]byte, lanes*constants.SharedStride),
		cursors: make([]int, lanes),
	}
}

// Size returns the mirror's byte size, which equals the device buffer size
func (l *LogState) Size() int {
	return len(l.host)
}

// Host returns the raw mirror for device reads and writes
func (l *LogState) Host() []byte {
	return l.host
}

// Used returns the device-reported used count of one lane's buffer,
// clamped to the buffer capacity
func (l *LogState) Used(lane int) int {
	used := int(binary.NativeEndian.Uint32(l.host[lane*constants.SharedStride:]))
	if used > constants.SharedBufferSize {
		used = constants.SharedBufferSize
	}
	return used
}

// SetUsed stores a lane's used count in the mirror
func (l *LogState) SetUsed(lane int, used int) {
	binary.NativeEndian.PutUint32(l.host[lane*constants.SharedStride:], uint32(used))
}

// Buffer returns one lane's log bytes
func (l *LogState) Buffer(lane int) []byte {
	start := lane*constants.SharedStride + 4
	return l.host[start : start+constants.SharedBufferSize]
}

// Pump pushes every newly completed line to the sink, prefixed with the
// emitting lane. Bytes after the last newline stay deferred until more of
// the line arrives.
func (l *LogState) Pump(sink printio.Sink) {
	for lane := 0; lane < l.lanes; lane++ {
		used := l.Used(lane)
		buf := l.Buffer(lane)

		lastNewline := -1
		for j := l.cursors[lane]; j < used; j++ {
			if buf[j] == 10 {
				lastNewline = j + 1
			}
		}
		if lastNewline < 0 {
			continue
		}

		atLineStart := true
		for j := l.cursors[lane]; j < lastNewline; j++ {
			if atLineStart {
				printio.Block(sink, []byte("(gpu "))
				printio.Int(sink, int64(lane))
				printio.Block(sink, []byte(") "))
				atLineStart = false
			}
			sink.PrintByte(buf[j])
			if buf[j] == 10 {
				atLineStart = true
			}
		}
		l.cursors[lane] = lastNewline
	}
}

// AnyEmitted reports whether any lane has pumped output since the last
// reset, which is the signal that the buffers want clearing
func (l *LogState) AnyEmitted() bool {
	for _, c := range l.cursors {
		if c != 0 {
			return true
		}
	}
	return false
}

// Reset zeroes the mirror and every lane cursor. The caller is
// responsible for pushing the zeroed mirror back to the device.
func (l *LogState) Reset() {
	for i := range l.host {
		l.host[i] = 0
	}
	for i := range l.cursors {
		l.cursors[i] = 0
	}
}

// roundUp rounds value up to the next multiple of divisor
func roundUp(value, divisor int) int {
	div, rem := value/divisor, value%divisor
	if rem == 0 {
		return div * divisor
	}
	return (div + 1) * divisor
}
