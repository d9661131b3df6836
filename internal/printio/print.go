// Package printio holds the byte-level output formatters. Every printer
// drills down to a single-byte sink, which is what lets the same
// formatting drive process stdout and pumped device logs.
//
// The formats are deliberate: integers print with optional leading zeros,
// floats print the fractional part scaled by a million with six leading
// zeros and no rounding. Generated programs depend on the exact digit
// stream.
package printio

import "github.com/ehrlich-b/go-eyot/internal/text"

// Sink consumes output one byte at a time
type Sink interface {
	PrintByte(c byte)
}

// Block prints a run of raw bytes
func Block(s Sink, data []byte) {
	for _, b := range data {
		s.PrintByte(b)
	}
}

// IntZeros prints val in base 10, left padded with leading zeros up to the
// given count. A zero value prints "0", or only the requested zeros when
// padding was asked for.
func IntZeros(s Sink, val int64, leadingZeros int) {
	var buf [40]byte

	if val < 0 {
		s.PrintByte('-')
		val = -val
	}

	i := 0
	for val > 0 {
		buf[i] = byte(val%10) + '0'
		val /= 10
		i++
	}

	if i == 0 {
		if leadingZeros == 0 {
			s.PrintByte('0')
		} else {
			for j := 0; j < leadingZeros; j++ {
				s.PrintByte('0')
			}
		}
		return
	}

	for j := i; j < leadingZeros; j++ {
		s.PrintByte('0')
	}
	for i > 0 {
		i--
		s.PrintByte(buf[i])
	}
}

// Int prints val in base 10
func Int(s Sink, val int64) {
	IntZeros(s, val, 0)
}

// Float64 prints sign, integer part, '.', then the fraction times a
// million with six leading zeros. The fraction is truncated, not rounded.
func Float64(s Sink, val float64) {
	if val < 0 {
		s.PrintByte('-')
		val = -val
	}

	integral := int64(val)
	fractional := val - float64(integral)

	IntZeros(s, integral, 0)
	s.PrintByte('.')
	IntZeros(s, int64(fractional*1000000.0), 6)
}

// Float32 is Float64 at single precision
func Float32(s Sink, val float32) {
	if val < 0 {
		s.PrintByte('-')
		val = -val
	}

	integral := int64(val)
	fractional := val - float32(integral)

	IntZeros(s, integral, 0)
	s.PrintByte('.')
	IntZeros(s, int64(fractional*1000000.0), 6)
}

// Bool prints "true" or "false"
func Bool(s Sink, val bool) {
	if val {
		Block(s, []byte{'t', 'r', 'u', 'e'})
	} else {
		Block(s, []byte{'f', 'a', 'l', 's', 'e'})
	}
}

// Character prints one Unicode scalar as UTF-8
func Character(s Sink, code uint32) {
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
		s.PrintByte(tmp[i])
	}
}

// String prints every scalar of a runtime string
func String(s Sink, val text.String) {
	if val.IsNil() {
		return
	}
	for i := 0; i < val.CharacterLength(); i++ {
		Character(s, val.GetCharacter(i))
	}
}

// Newline prints byte 10
func Newline(s Sink) {
	s.PrintByte(10)
}
