// Package swarm declares the basic building blocks of the chunk store:
// addresses, references and chunks.
//
// A chunk is at most ChunkWithSpanSize bytes long: an 8-byte little-endian span
// followed by up to ChunkSize bytes of payload. The span holds the length of the
// content represented by the subtree rooted at this chunk.
package swarm

import (
	"bytes"
	"encoding/binary"
	"encoding/hex"

	"github.com/oneconcern/swarmtrie/pkg/errors"
)

const (
	// SpanSize is the size of the span header prefixing each chunk
	SpanSize = 8

	// SectionSize is the size of a BMT segment
	SectionSize = 32

	// HashSize is the size of a chunk address
	HashSize = SectionSize

	// Branches is the number of 32-byte sections in a chunk payload
	Branches = 128

	// ChunkSize is the maximum payload size of a chunk
	ChunkSize = SectionSize * Branches

	// ChunkWithSpanSize is the maximum size of a chunk, including its span
	ChunkWithSpanSize = ChunkSize + SpanSize

	// KeyLength is the size of a chunk encryption key
	KeyLength = 32

	// EncryptedReferenceSize is the size of a reference to an encrypted chunk (address + key)
	EncryptedReferenceSize = HashSize + KeyLength
)

var (
	// ErrInvalidAddress is returned when some bytes cannot make an address
	ErrInvalidAddress = errors.New("invalid chunk address")

	// ErrInvalidReference is returned when some bytes are neither a plain nor an encrypted reference
	ErrInvalidReference = errors.New("invalid reference")

	// ErrInvalidChunk is returned when a chunk is too short or too long
	ErrInvalidChunk = errors.New("invalid chunk size")
)

// Address of a chunk: its BMT hash
type Address [HashSize]byte

// ZeroAddress is the empty address
var ZeroAddress Address

// NewAddress builds an address from a 32-byte slice
func NewAddress(b []byte) (Address, error) {
	var a Address
	if len(b) != HashSize {
		return a, ErrInvalidAddress.WrapMessage("expected %d bytes, got %d", HashSize, len(b))
	}
	copy(a[:], b)
	return a, nil
}

// MustNewAddress builds an address or panics
func MustNewAddress(b []byte) Address {
	a, err := NewAddress(b)
	if err != nil {
		panic(err)
	}
	return a
}

// ParseHexAddress parses the hex representation of an address
func ParseHexAddress(s string) (Address, error) {
	b, err := hex.DecodeString(s)
	if err != nil {
		return Address{}, ErrInvalidAddress.Wrap(err)
	}
	return NewAddress(b)
}

// MustParseHexAddress parses an address or panics
func MustParseHexAddress(s string) Address {
	a, err := ParseHexAddress(s)
	if err != nil {
		panic(err)
	}
	return a
}

func (a Address) String() string {
	return hex.EncodeToString(a[:])
}

// Bytes returns a copy of the address bytes
func (a Address) Bytes() []byte {
	b := make([]byte, HashSize)
	copy(b, a[:])
	return b
}

// IsZero tells if this is the empty address
func (a Address) IsZero() bool {
	return a == ZeroAddress
}

// Reference to some content: a chunk address, optionally followed by its decryption key
type Reference []byte

// NewReference builds a reference from an address and an optional key
func NewReference(addr Address, key []byte) Reference {
	ref := make(Reference, HashSize, HashSize+len(key))
	copy(ref, addr[:])
	return append(ref, key...)
}

// ParseHexReference parses the hex representation of a plain or encrypted reference
func ParseHexReference(s string) (Reference, error) {
	b, err := hex.DecodeString(s)
	if err != nil {
		return nil, ErrInvalidReference.Wrap(err)
	}
	ref := Reference(b)
	return ref, ref.Validate()
}

// Validate the size of a reference
func (r Reference) Validate() error {
	if len(r) != HashSize && len(r) != EncryptedReferenceSize {
		return ErrInvalidReference.WrapMessage("unexpected size %d", len(r))
	}
	return nil
}

// Address part of the reference
func (r Reference) Address() Address {
	var a Address
	copy(a[:], r)
	return a
}

// Key part of the reference, if any
func (r Reference) Key() []byte {
	if len(r) <= HashSize {
		return nil
	}
	return r[HashSize:]
}

// IsEncrypted tells if the reference carries a decryption key
func (r Reference) IsEncrypted() bool {
	return len(r) == EncryptedReferenceSize
}

// Equal compares two references
func (r Reference) Equal(o Reference) bool {
	return bytes.Equal(r, o)
}

func (r Reference) String() string {
	return hex.EncodeToString(r)
}

// NewSpan returns a little-endian span for some content length
func NewSpan(length uint64) []byte {
	span := make([]byte, SpanSize)
	binary.LittleEndian.PutUint64(span, length)
	return span
}

// SpanLength decodes a raw span, without interpreting any redundancy level
func SpanLength(span []byte) uint64 {
	return binary.LittleEndian.Uint64(span[:SpanSize])
}
