package encryption

import (
	"bytes"
	"testing"

	"github.com/oneconcern/swarmtrie/internal/rand"
	"github.com/oneconcern/swarmtrie/pkg/errors"
	"github.com/oneconcern/swarmtrie/pkg/redundancy"
	"github.com/oneconcern/swarmtrie/pkg/swarm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func countingPadder(calls *int) Padder {
	return func(b []byte) error {
		*calls++
		for i := range b {
			b[i] = 0xff
		}
		return nil
	}
}

func TestEncryptDecrypt(t *testing.T) {
	key := GenerateRandomKey(KeyLength)
	data := rand.Bytes(1000)

	var pads int
	enc := New(key, swarm.ChunkSize, 0, NewKeccak256, WithPadder(countingPadder(&pads)))
	encrypted, err := enc.Encrypt(data)
	require.NoError(t, err)
	require.Len(t, encrypted, swarm.ChunkSize)
	assert.Equal(t, 1, pads)
	assert.NotEqual(t, data, encrypted[:len(data)])

	dec := New(key, swarm.ChunkSize, 0, NewKeccak256, WithPadder(countingPadder(&pads)))
	decrypted, err := dec.Decrypt(encrypted)
	require.NoError(t, err)
	assert.Equal(t, data, decrypted[:len(data)])

	// decryption never pads
	assert.Equal(t, 1, pads)

	_, err = dec.Decrypt(encrypted[:100])
	assert.True(t, errors.Is(err, ErrInvalidLength))

	_, err = enc.Encrypt(rand.Bytes(swarm.ChunkSize + 1))
	assert.True(t, errors.Is(err, ErrDataTooLong))
}

func TestTranscryptIsDeterministic(t *testing.T) {
	key := GenerateRandomKey(KeyLength)
	data := rand.Bytes(100)

	a, err := New(key, 0, 0, NewKeccak256).Encrypt(data)
	require.NoError(t, err)
	b, err := New(key, 0, 0, NewKeccak256).Encrypt(data)
	require.NoError(t, err)
	assert.Equal(t, a, b)

	// another counter offset yields other segment keys
	c, err := New(key, 0, 128, NewKeccak256).Encrypt(data)
	require.NoError(t, err)
	assert.NotEqual(t, a, c)

	// without reset, the counter keeps increasing
	enc := New(key, 0, 0, NewKeccak256)
	_, err = enc.Encrypt(data)
	require.NoError(t, err)
	d, err := enc.Encrypt(data)
	require.NoError(t, err)
	assert.NotEqual(t, a, d)

	enc.Reset()
	e, err := enc.Encrypt(data)
	require.NoError(t, err)
	assert.Equal(t, a, e)
}

func TestChunkEncryption(t *testing.T) {
	payload := rand.Bytes(3000)
	chunkData := append(swarm.NewSpan(uint64(len(payload))), payload...)

	key, encryptedSpan, encryptedData, err := EncryptChunk(chunkData)
	require.NoError(t, err)
	require.Len(t, key, KeyLength)
	require.Len(t, encryptedSpan, swarm.SpanSize)
	require.Len(t, encryptedData, swarm.ChunkSize)

	decrypted, err := DecryptChunkData(append(encryptedSpan, encryptedData...), key)
	require.NoError(t, err)
	assert.Equal(t, chunkData, decrypted)

	_, err = DecryptChunkData(append(encryptedSpan, encryptedData...), key[:10])
	assert.True(t, errors.Is(err, ErrInvalidKey))
}

func TestIntermediateChunkEncryption(t *testing.T) {
	// 3 encrypted data references and their MEDIUM parities
	span := redundancy.EncodeSpanLevel(10000, redundancy.MEDIUM)
	parities := redundancy.MEDIUM.GetEncParities(3)
	refs := rand.Bytes(3*swarm.EncryptedReferenceSize + parities*swarm.HashSize)
	chunkData := append(span, refs...)

	key, encryptedSpan, encryptedData, err := NewChunkEncrypter().EncryptChunk(chunkData)
	require.NoError(t, err)

	decrypted, err := DecryptChunkData(append(encryptedSpan, encryptedData...), key)
	require.NoError(t, err)
	assert.Equal(t, chunkData, decrypted)
}

func TestTransform(t *testing.T) {
	key := GenerateKey()
	data := rand.Bytes(70)

	out := make([]byte, len(data))
	require.NoError(t, Transform(data, key, 0, out, NewKeccak256))

	expected, err := New(key, 0, 0, NewKeccak256).Encrypt(data)
	require.NoError(t, err)
	assert.Equal(t, expected, out)

	back := make([]byte, len(data))
	require.NoError(t, Transform(out, key, 0, back, NewKeccak256))
	assert.Equal(t, data, back)

	t.Run("surplus output is padded", func(t *testing.T) {
		data := rand.Bytes(64)
		out := make([]byte, 256)
		require.NoError(t, Transform(data, key, 0, out, NewKeccak256))

		back := make([]byte, len(data))
		require.NoError(t, Transform(out[:len(data)], key, 0, back, NewKeccak256))
		assert.Equal(t, data, back)
		assert.NotEqual(t, make([]byte, 192), out[len(data):])

		var pads int
		out = make([]byte, 256)
		require.NoError(t, Transform(data, key, 0, out, NewKeccak256, WithPadder(countingPadder(&pads))))
		assert.Equal(t, 1, pads)
		assert.Equal(t, bytes.Repeat([]byte{0xff}, 192), out[len(data):])
	})

	t.Run("invalid arguments", func(t *testing.T) {
		err := Transform(data, nil, 0, make([]byte, len(data)), NewKeccak256)
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrInvalidKey))

		err = Transform(data, key, 0, make([]byte, 10), NewKeccak256)
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrInvalidLength))
	})
}

func TestXorEncrypt(t *testing.T) {
	key := rand.Bytes(32)
	data := rand.Bytes(100)

	obfuscated := XorEncrypt(data, key)
	assert.NotEqual(t, data, obfuscated)
	assert.Equal(t, data, XorEncrypt(obfuscated, key))
	assert.Equal(t, data, XorEncrypt(data, nil))
}
