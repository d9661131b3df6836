package text

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ehrlich-b/go-eyot/internal/alloc"
	"github.com/ehrlich-b/go-eyot/internal/gc"
)

func TestCreateLiteralDecodesUTF8(t *testing.T) {
	r := gc.New()

	s := CreateLiteralString(r, "aé€🙂")
	require.Equal(t, 4, s.CharacterLength())
	assert.Equal(t, 16, s.ByteLength())

	assert.Equal(t, uint32('a'), s.GetCharacter(0))
	assert.Equal(t, uint32(0xE9), s.GetCharacter(1))
	assert.Equal(t, uint32(0x20AC), s.GetCharacter(2))
	assert.Equal(t, uint32(0x1F642), s.GetCharacter(3))
}

func TestCreateLiteralStopsAtNul(t *testing.T) {
	r := gc.New()

	s := CreateLiteral(r, []byte{'a', 'b', 0, 'c'})
	assert.Equal(t, 2, s.CharacterLength())
	assert.Equal(t, "ab", s.GoString())
}

func TestEmptyLiteral(t *testing.T) {
	r := gc.New()
	s := CreateLiteralString(r, "")
	assert.Equal(t, 0, s.CharacterLength())
	assert.Equal(t, "", s.GoString())
}

func TestSetAndGetCharacter(t *testing.T) {
	r := gc.New()
	s := CreateLiteralString(r, "hello")

	s.SetCharacter(0, 'H')
	s.SetCharacter(4, 0x14D) // ō

	assert.Equal(t, uint32('H'), s.GetCharacter(0))
	assert.Equal(t, uint32(0x14D), s.GetCharacter(4))
	assert.Equal(t, "Hellō", s.GoString())
}

func TestCopyIsDeepAndClearsStatic(t *testing.T) {
	r := gc.New()
	s := CreateStatic(r, "static text")
	require.True(t, s.Static())

	c := Copy(r, s)
	assert.False(t, c.Static(), "copy clears static lifetime")
	assert.True(t, Equality(s, c))

	c.SetCharacter(0, 'X')
	assert.Equal(t, uint32('s'), s.GetCharacter(0), "copies do not share storage")

	cc := Copy(r, c)
	assert.True(t, Equality(c, cc))
}

func TestAssignAliasesHeapCopiesStatic(t *testing.T) {
	r := gc.New()

	heap := CreateLiteralString(r, "heap")
	assert.Equal(t, heap.Handle(), Assign(r, heap).Handle(), "heap strings alias")

	static := CreateStatic(r, "static")
	assigned := Assign(r, static)
	assert.NotEqual(t, static.Handle(), assigned.Handle(), "static strings copy")
	assert.False(t, assigned.Static())

	assert.Equal(t, heap.Handle(), UseLiteral(r, heap).Handle())
}

func TestJoin(t *testing.T) {
	r := gc.New()

	a := CreateLiteralString(r, "foo")
	b := CreateLiteralString(r, "bär")
	j := Join(r, a, b)

	assert.Equal(t, 6, j.CharacterLength())
	assert.Equal(t, "foobär", j.GoString())

	empty := CreateLiteralString(r, "")
	assert.True(t, Equality(Join(r, empty, a), a))
}

func TestResize(t *testing.T) {
	r := gc.New()

	s := CreateLiteralString(r, "ab")
	s = Resize(r, s, 4)
	assert.Equal(t, 4, s.CharacterLength())
	assert.Equal(t, "ab  ", s.GoString(), "new characters are spaces")

	s = Resize(r, s, 1)
	assert.Equal(t, "a", s.GoString(), "shrinking truncates")

	// resizing a static literal must not mutate it
	static := CreateStatic(r, "xyz")
	grown := Resize(r, static, 5)
	assert.Equal(t, "xyz", static.GoString())
	assert.Equal(t, "xyz  ", grown.GoString())
}

func TestEquality(t *testing.T) {
	r := gc.New()

	a := CreateLiteralString(r, "same")
	b := CreateLiteralString(r, "same")
	c := CreateLiteralString(r, "diff")
	d := CreateLiteralString(r, "longer")

	assert.True(t, Equality(a, a), "identity short-circuit")
	assert.True(t, Equality(a, b))
	assert.False(t, Equality(a, c))
	assert.False(t, Equality(a, d), "length parity")
}

func TestCreateCString(t *testing.T) {
	r := gc.New()
	s := CreateLiteralString(r, "né")

	blk := CreateCString(s)
	defer alloc.Free(blk)

	// 'n' + 2-byte é + NUL
	buf := alloc.Bytes(blk, 4)
	assert.Equal(t, []byte{'n', 0xC3, 0xA9, 0x00}, buf)
}

func TestByteLengthInvariant(t *testing.T) {
	r := gc.New()
	for _, str := range []string{"", "a", "héllo wörld", "🙂🙂"} {
		s := CreateLiteralString(r, str)
		assert.Equal(t, s.ByteLength(), s.CharacterLength()*4)
	}
}

// A collected string must free its payload exactly once, and a static
// string must never free it.
func TestFinaliserBehaviour(t *testing.T) {
	r := gc.New()

	CreateLiteralString(r, "transient")
	static := CreateStatic(r, "persistent")
	staticPayload := static.hdr().data

	r.Collect()
	assert.Equal(t, 0, r.Stats().PagesAllocated)

	// the static payload is still usable memory
	assert.Equal(t, uint32('p'), *(*uint32)(alloc.Pointer(staticPayload)))
}
