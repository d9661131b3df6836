package printio

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ehrlich-b/go-eyot/internal/gc"
	"github.com/ehrlich-b/go-eyot/internal/text"
)

type sink struct {
	out []byte
}

func (s *sink) PrintByte(c byte) {
	s.out = append(s.out, c)
}

func render(f func(Sink)) string {
	s := &sink{}
	f(s)
	return string(s.out)
}

func TestInt(t *testing.T) {
	cases := []struct {
		val  int64
		want string
	}{
		{0, "0"},
		{7, "7"},
		{42, "42"},
		{-42, "-42"},
		{1000000, "1000000"},
	}

	for _, tc := range cases {
		got := render(func(s Sink) { Int(s, tc.val) })
		assert.Equal(t, tc.want, got)
	}
}

func TestIntZeros(t *testing.T) {
	assert.Equal(t, "007", render(func(s Sink) { IntZeros(s, 7, 3) }))
	assert.Equal(t, "000000", render(func(s Sink) { IntZeros(s, 0, 6) }))
	assert.Equal(t, "123", render(func(s Sink) { IntZeros(s, 123, 2) }))
}

func TestFloat64(t *testing.T) {
	assert.Equal(t, "1.500000", render(func(s Sink) { Float64(s, 1.5) }))
	assert.Equal(t, "-2.250000", render(func(s Sink) { Float64(s, -2.25) }))
	assert.Equal(t, "0.000000", render(func(s Sink) { Float64(s, 0) }))
	assert.Equal(t, "3.000001", render(func(s Sink) { Float64(s, 3.0000015) }))
}

func TestFloat32(t *testing.T) {
	assert.Equal(t, "0.500000", render(func(s Sink) { Float32(s, 0.5) }))
	assert.Equal(t, "-1.750000", render(func(s Sink) { Float32(s, -1.75) }))
}

func TestBool(t *testing.T) {
	assert.Equal(t, "true", render(func(s Sink) { Bool(s, true) }))
	assert.Equal(t, "false", render(func(s Sink) { Bool(s, false) }))
}

func TestCharacter(t *testing.T) {
	assert.Equal(t, "A", render(func(s Sink) { Character(s, 'A') }))
	assert.Equal(t, "é", render(func(s Sink) { Character(s, 0xE9) }))
	assert.Equal(t, "€", render(func(s Sink) { Character(s, 0x20AC) }))
	assert.Equal(t, "🙂", render(func(s Sink) { Character(s, 0x1F642) }))
}

func TestString(t *testing.T) {
	r := gc.New()
	str := text.CreateLiteralString(r, "héllo")
	assert.Equal(t, "héllo", render(func(s Sink) { String(s, str) }))
}

func TestNewline(t *testing.T) {
	assert.Equal(t, "\n", render(func(s Sink) { Newline(s) }))
}
