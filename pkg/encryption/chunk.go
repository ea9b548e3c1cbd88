package encryption

import (
	"github.com/oneconcern/swarmtrie/pkg/redundancy"
	"github.com/oneconcern/swarmtrie/pkg/swarm"
)

// ChunkEncrypter encrypts chunk data (span + payload)
type ChunkEncrypter interface {
	EncryptChunk([]byte) (key Key, encryptedSpan, encryptedData []byte, err error)
}

type chunkEncrypter struct {
	opts []Option
}

// NewChunkEncrypter builds a chunk encrypter, generating a new random key for every chunk
func NewChunkEncrypter(opts ...Option) ChunkEncrypter {
	return &chunkEncrypter{opts: opts}
}

// NewSpanEncryption builds the cipher of chunk spans
func NewSpanEncryption(key Key, opts ...Option) Interface {
	return New(key, 0, uint32(swarm.ChunkSize/KeyLength), NewKeccak256, opts...)
}

// NewDataEncryption builds the cipher of chunk payloads, padded to the chunk size
func NewDataEncryption(key Key, opts ...Option) Interface {
	return New(key, swarm.ChunkSize, 0, NewKeccak256, opts...)
}

func (c *chunkEncrypter) EncryptChunk(chunkData []byte) (Key, []byte, []byte, error) {
	if len(chunkData) < swarm.SpanSize || len(chunkData) > swarm.ChunkWithSpanSize {
		return nil, nil, nil, swarm.ErrInvalidChunk.WrapMessage("%d bytes", len(chunkData))
	}
	key := GenerateKey()

	encryptedSpan, err := NewSpanEncryption(key, c.opts...).Encrypt(chunkData[:swarm.SpanSize])
	if err != nil {
		return nil, nil, nil, err
	}
	encryptedData, err := NewDataEncryption(key, c.opts...).Encrypt(chunkData[swarm.SpanSize:])
	if err != nil {
		return nil, nil, nil, err
	}
	return key, encryptedSpan, encryptedData, nil
}

// EncryptChunk encrypts chunk data with a new random key
func EncryptChunk(chunkData []byte) (Key, []byte, []byte, error) {
	return NewChunkEncrypter().EncryptChunk(chunkData)
}

// DecryptChunkData decrypts chunk data (span + payload) and removes the payload padding.
//
// The plain length of the payload is deduced from the decrypted span: content
// for leaves, data and parity references for intermediate chunks.
func DecryptChunkData(chunkData []byte, key Key) ([]byte, error) {
	if len(key) != KeyLength {
		return nil, ErrInvalidKey.WrapMessage("expected %d bytes, got %d", KeyLength, len(key))
	}
	if len(chunkData) != swarm.ChunkWithSpanSize {
		return nil, ErrInvalidLength.WrapMessage("encrypted chunk of %d bytes", len(chunkData))
	}

	decryptedSpan, err := NewSpanEncryption(key).Decrypt(chunkData[:swarm.SpanSize])
	if err != nil {
		return nil, err
	}
	decryptedData, err := NewDataEncryption(key).Decrypt(chunkData[swarm.SpanSize:])
	if err != nil {
		return nil, err
	}

	length, level := redundancy.DecodeSpanLevel(decryptedSpan)
	size := length
	if length > swarm.ChunkSize {
		shards, parities := redundancy.ReferenceCount(length, level, true)
		size = uint64(shards*swarm.EncryptedReferenceSize + parities*swarm.HashSize)
	}
	if size > uint64(len(decryptedData)) {
		return nil, ErrInvalidLength.WrapMessage("span announces %d bytes", size)
	}

	out := make([]byte, swarm.SpanSize+int(size))
	copy(out, decryptedSpan)
	copy(out[swarm.SpanSize:], decryptedData[:size])
	return out, nil
}
