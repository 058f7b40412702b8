package hpack

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type capturingListener struct {
	headers [][2]string
}

func (c *capturingListener) EmitHeader(name, value []byte) {
	c.headers = append(c.headers, [2]string{string(name), string(value)})
}

func TestDecoder_IndexedFromStaticOnly(t *testing.T) {
	d := NewDecoder(true, 4096)
	l := &capturingListener{}

	err := d.Decode(NewByteStream([]byte{0x82}), l)
	require.NoError(t, err)

	require.Len(t, l.headers, 1)
	assert.Equal(t, [2]string{":method", "GET"}, l.headers[0])
	assert.Equal(t, 1, d.dynamic.Length())

	entry, err := d.dynamic.GetEntry(1)
	require.NoError(t, err)
	assert.True(t, entry.inReferenceSet)

	truncated := d.EndHeaderBlock(l)
	assert.False(t, truncated)
	assert.Len(t, l.headers, 1)
}

func TestDecoder_LiteralIncrementalIndexedName(t *testing.T) {
	d := NewDecoder(true, 4096)
	l := &capturingListener{}

	// indexType=INCREMENTAL (top two bits clear), indexed name = static #4 (":path").
	// count=0 so dynamic+static index 4 resolves to static entry 4 (":path","/").
	value := "/sample/path"
	wire := []byte{0x04, byte(len(value))}
	wire = append(wire, []byte(value)...)

	err := d.Decode(NewByteStream(wire), l)
	require.NoError(t, err)

	require.Len(t, l.headers, 1)
	assert.Equal(t, [2]string{":path", value}, l.headers[0])
	assert.Equal(t, len(":path")+len(value)+OVERHEAD, d.dynamic.Size())
}

func TestDecoder_OversizedValueIndexTypeNone(t *testing.T) {
	d := NewDecoder(true, 16)
	l := &capturingListener{}

	name := "x"
	value := make([]byte, 1000)
	for i := range value {
		value[i] = 'a'
	}

	wire := []byte{0x40, byte(len(name))}
	wire = append(wire, []byte(name)...)
	wire = append(wire, 0x7F, 0xE9, 0x06) // 1000 as ULE128 with 7-bit prefix
	wire = append(wire, value...)

	err := d.Decode(NewByteStream(wire), l)
	require.NoError(t, err)
	assert.Len(t, l.headers, 0)

	truncated := d.EndHeaderBlock(l)
	assert.True(t, truncated)
}

func TestDecoder_ReferenceSetClear(t *testing.T) {
	d := NewDecoder(true, 4096)
	l := &capturingListener{}

	require.NoError(t, d.Decode(NewByteStream([]byte{0x82}), l))
	require.Equal(t, 1, d.dynamic.Length())

	l.headers = nil
	require.NoError(t, d.Decode(NewByteStream([]byte{0x80}), l))

	entry, err := d.dynamic.GetEntry(1)
	require.NoError(t, err)
	assert.False(t, entry.inReferenceSet)

	truncated := d.EndHeaderBlock(l)
	assert.False(t, truncated)
	assert.Len(t, l.headers, 0)
}

func TestDecoder_ChunkedULE128(t *testing.T) {
	// Literal without indexing, new name (0x40), name length 255
	// encoded as 7F 80 01 (127 + 0 + 1<<7), fed one byte at a time.
	name := make([]byte, 255)
	for i := range name {
		name[i] = 'n'
	}
	value := "v"

	var whole []byte
	whole = append(whole, 0x40, 0x7F, 0x80, 0x01)
	whole = append(whole, name...)
	whole = append(whole, byte(len(value)))
	whole = append(whole, []byte(value)...)

	dWhole := NewDecoder(true, 1<<20)
	lWhole := &capturingListener{}
	require.NoError(t, dWhole.Decode(NewByteStream(whole), lWhole))

	dChunked := NewDecoder(true, 1<<20)
	lChunked := &capturingListener{}
	stream := NewByteStream(nil)
	for _, b := range whole {
		stream.Append([]byte{b})
		require.NoError(t, dChunked.Decode(stream, lChunked))
	}

	assert.Equal(t, lWhole.headers, lChunked.headers)
}

func TestDecoder_EvictionCascade(t *testing.T) {
	d := NewDecoder(true, 4096, WithMaxHeaderTableSize(100))
	l := &capturingListener{}

	for i := 0; i < 3; i++ {
		name := "aaaaaa" // 6 bytes
		value := "bbbbbbbbbbbbbbbb"
		// ensure entry cost (6+16+32=54)... adjust to hit ~40 bytes total.
		name = "ab"
		value = "cdef"
		wire := []byte{0x00, byte(len(name))}
		wire = append(wire, []byte(name)...)
		wire = append(wire, byte(len(value)))
		wire = append(wire, []byte(value)...)
		require.NoError(t, d.Decode(NewByteStream(wire), l))
	}

	assert.LessOrEqual(t, d.dynamic.Length(), 2)
	assert.LessOrEqual(t, d.dynamic.Size(), 100)
}

func TestDecoder_Reset(t *testing.T) {
	d := NewDecoder(true, 4096)
	l := &capturingListener{}
	require.NoError(t, d.Decode(NewByteStream([]byte{0x82}), l))
	require.Equal(t, 1, d.dynamic.Length())

	d.Reset()
	assert.Equal(t, 0, d.dynamic.Length())
	assert.Equal(t, 0, d.Stats().HeaderSize)
}
