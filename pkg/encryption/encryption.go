// Package encryption implements the symmetric stream cipher applied to chunks.
//
// Content is split into 32-byte segments. Each segment is XORed with the
// double hash of the key and of the segment counter, so that segments can be
// processed in parallel and chunks can be decrypted independently.
package encryption

import (
	"crypto/rand"
	"encoding/binary"
	"hash"
	"sync"

	"github.com/oneconcern/swarmtrie/pkg/errors"
	"golang.org/x/crypto/sha3"
)

// KeyLength is the length of an encryption key
const KeyLength = 32

var (
	// ErrDataTooLong is returned when the input exceeds the fixed padding length
	ErrDataTooLong = errors.New("data length exceeds padding length")

	// ErrInvalidLength is returned when decrypting data of unexpected length
	ErrInvalidLength = errors.New("data length differs from padding length")

	// ErrInvalidKey is returned for keys of the wrong size
	ErrInvalidKey = errors.New("invalid encryption key")
)

// Key to encrypt and decrypt content
type Key []byte

// Interface of a symmetric cipher
type Interface interface {
	Key() Key
	Encrypt(data []byte) ([]byte, error)
	Decrypt(data []byte) ([]byte, error)
	Reset()
}

// Padder fills the tail of encrypted content beyond the input length
type Padder func([]byte) error

// Option configures a cipher
type Option func(*Encryption)

// WithPadder overrides the random padding function
func WithPadder(p Padder) Option {
	return func(e *Encryption) {
		if p != nil {
			e.padder = p
		}
	}
}

var _ Interface = &Encryption{}

// Encryption is a segment-wise XOR stream cipher
type Encryption struct {
	key      Key
	keyLen   int
	padding  int
	index    int
	initCtr  uint32
	hashFunc func() hash.Hash
	padder   Padder
}

// New builds a cipher.
//
// With padding > 0, encrypted content is always padding bytes long.
// initCtr offsets the segment counter, so that different parts of a chunk use different segment keys.
func New(key Key, padding int, initCtr uint32, hashFunc func() hash.Hash, opts ...Option) *Encryption {
	e := &Encryption{
		key:      key,
		keyLen:   len(key),
		padding:  padding,
		initCtr:  initCtr,
		hashFunc: hashFunc,
		padder:   randomPadding,
	}
	for _, apply := range opts {
		apply(e)
	}
	return e
}

// Key returns the encryption key
func (e *Encryption) Key() Key {
	return e.key
}

// Encrypt data, padded to the fixed padding length if any
func (e *Encryption) Encrypt(data []byte) ([]byte, error) {
	length := len(data)
	outLength := length
	if e.padding > 0 {
		if length > e.padding {
			return nil, ErrDataTooLong.WrapMessage("%d > %d", length, e.padding)
		}
		outLength = e.padding
	}
	out := make([]byte, outLength)
	if err := e.transform(data, out); err != nil {
		return nil, err
	}
	return out, nil
}

// Decrypt data. The output has the same length as the input.
func (e *Encryption) Decrypt(data []byte) ([]byte, error) {
	length := len(data)
	if e.padding > 0 && length != e.padding {
		return nil, ErrInvalidLength.WrapMessage("%d != %d", length, e.padding)
	}
	out := make([]byte, length)
	if err := e.transform(data, out); err != nil {
		return nil, err
	}
	return out, nil
}

// Reset the segment counter
func (e *Encryption) Reset() {
	e.index = 0
}

func (e *Encryption) transform(in, out []byte) error {
	if e.keyLen == 0 {
		return ErrInvalidKey
	}
	inLength := len(in)
	var wg sync.WaitGroup
	for i := 0; i < inLength; i += e.keyLen {
		l := e.keyLen
		if i+l > inLength {
			l = inLength - i
		}
		wg.Add(1)
		go func(index int, x, y []byte) {
			defer wg.Done()
			e.Transcrypt(index, x, y)
		}(e.index, in[i:i+l], out[i:i+l])
		e.index++
	}

	var err error
	if pad := out[inLength:]; len(pad) > 0 {
		err = e.padder(pad)
	}
	wg.Wait()

	return err
}

// Transcrypt XORs a segment with the segment key at some index
func (e *Encryption) Transcrypt(i int, in, out []byte) {
	hasher := e.hashFunc()

	ctrBytes := make([]byte, 4)
	binary.LittleEndian.PutUint32(ctrBytes, uint32(i)+e.initCtr)
	_, _ = hasher.Write(e.key)
	_, _ = hasher.Write(ctrBytes)
	ctrHash := hasher.Sum(nil)

	hasher.Reset()
	_, _ = hasher.Write(ctrHash)
	segmentKey := hasher.Sum(nil)

	for j := 0; j < len(in); j++ {
		out[j] = in[j] ^ segmentKey[j]
	}
}

// GenerateRandomKey returns a random key of some length
func GenerateRandomKey(l int) Key {
	key := make([]byte, l)
	if err := randomPadding(key); err != nil {
		panic(err)
	}
	return key
}

func randomPadding(b []byte) error {
	_, err := rand.Read(b)
	return err
}

// NewKeccak256 is the hash function of chunk encryption
func NewKeccak256() hash.Hash {
	return sha3.NewLegacyKeccak256()
}

// Transform XORs input with the keystream derived from key, starting at segment initCtr.
//
// output must be at least as long as input: the rest of output is padded,
// with random bytes unless some padder is specified.
func Transform(input []byte, key Key, initCtr uint32, output []byte, hashFunc func() hash.Hash, opts ...Option) error {
	if len(output) < len(input) {
		return ErrInvalidLength.WrapMessage("output %d < input %d", len(output), len(input))
	}
	e := New(key, 0, initCtr, hashFunc, opts...)
	return e.transform(input, output)
}

// GenerateKey returns a new random chunk encryption key
func GenerateKey() Key {
	return GenerateRandomKey(KeyLength)
}

// XorEncrypt XORs data with a repeated key. Applying it twice restores the data.
func XorEncrypt(data, key []byte) []byte {
	out := make([]byte, len(data))
	if len(key) == 0 {
		copy(out, data)
		return out
	}
	for i := range data {
		out[i] = data[i] ^ key[i%len(key)]
	}
	return out
}
