package swarm

import (
	"strings"
	"testing"

	"github.com/oneconcern/swarmtrie/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddress(t *testing.T) {
	hexAddr := strings.Repeat("ab", HashSize)
	a, err := ParseHexAddress(hexAddr)
	require.NoError(t, err)
	assert.Equal(t, hexAddr, a.String())
	assert.False(t, a.IsZero())
	assert.True(t, ZeroAddress.IsZero())

	_, err = NewAddress([]byte{1, 2, 3})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalidAddress))

	_, err = ParseHexAddress("zz")
	require.Error(t, err)
	assert.Panics(t, func() { _ = MustParseHexAddress("ab") })
}

func TestReference(t *testing.T) {
	a := MustNewAddress(make([]byte, HashSize))
	key := []byte(strings.Repeat("k", KeyLength))

	plain := NewReference(a, nil)
	require.NoError(t, plain.Validate())
	assert.False(t, plain.IsEncrypted())
	assert.Nil(t, plain.Key())

	enc := NewReference(a, key)
	require.NoError(t, enc.Validate())
	assert.True(t, enc.IsEncrypted())
	assert.Equal(t, key, enc.Key())
	assert.Equal(t, a, enc.Address())

	parsed, err := ParseHexReference(enc.String())
	require.NoError(t, err)
	assert.True(t, parsed.Equal(enc))

	require.Error(t, Reference(make([]byte, 40)).Validate())
}

func TestSpanAndChunk(t *testing.T) {
	span := NewSpan(10000)
	assert.Equal(t, []byte{0x10, 0x27, 0, 0, 0, 0, 0, 0}, span)
	assert.Equal(t, uint64(10000), SpanLength(span))

	ch := NewChunk(ZeroAddress, append(span, []byte("payload")...))
	require.NoError(t, ch.Validate())
	assert.Equal(t, span, ch.Span())
	assert.Equal(t, []byte("payload"), ch.Payload())

	stamped := ch.WithStamp([]byte{1})
	assert.Nil(t, ch.Stamp())
	assert.Equal(t, []byte{1}, stamped.Stamp())

	require.Error(t, NewChunk(ZeroAddress, []byte{1}).Validate())
	require.Error(t, NewChunk(ZeroAddress, make([]byte, ChunkWithSpanSize+1)).Validate())
}
