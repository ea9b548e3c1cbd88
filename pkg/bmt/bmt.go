// Package bmt computes chunk addresses with the binary Merkle tree hash.
//
// The payload is zero-padded to swarm.ChunkSize, split into 32-byte sections
// and reduced pairwise with keccak256 up to a single root. The chunk address
// is keccak256(span || root).
package bmt

import (
	"hash"

	"github.com/oneconcern/swarmtrie/pkg/errors"
	"github.com/oneconcern/swarmtrie/pkg/swarm"
	"golang.org/x/crypto/sha3"
)

// ErrPayloadTooLarge is returned when more than swarm.ChunkSize bytes are written to a hasher
var ErrPayloadTooLarge = errors.New("bmt payload exceeds chunk size")

// Hasher computes BMT hashes. It is not safe for concurrent use:
// acquire one from a Pool for each goroutine.
type Hasher struct {
	keccak hash.Hash
	span   [swarm.SpanSize]byte
	buf    [swarm.ChunkSize]byte
	size   int
	tree   [swarm.ChunkSize / 2]byte
}

// NewHasher builds a standalone hasher
func NewHasher() *Hasher {
	return &Hasher{keccak: sha3.NewLegacyKeccak256()}
}

// SetSpan sets the span header from a length
func (h *Hasher) SetSpan(length uint64) {
	copy(h.span[:], swarm.NewSpan(length))
}

// SetHeader sets the span header from raw bytes
func (h *Hasher) SetHeader(span []byte) {
	copy(h.span[:], span[:swarm.SpanSize])
}

// Write appends payload bytes
func (h *Hasher) Write(p []byte) (int, error) {
	if h.size+len(p) > swarm.ChunkSize {
		return 0, ErrPayloadTooLarge
	}
	copy(h.buf[h.size:], p)
	h.size += len(p)
	return len(p), nil
}

// Reset clears the span and the payload
func (h *Hasher) Reset() {
	h.size = 0
	h.span = [swarm.SpanSize]byte{}
}

// Size of a digest
func (h *Hasher) Size() int {
	return swarm.HashSize
}

// BlockSize of the underlying hash
func (h *Hasher) BlockSize() int {
	return swarm.SectionSize * 2
}

// Sum appends the BMT hash of span and payload to b
func (h *Hasher) Sum(b []byte) []byte {
	root := h.root()
	h.keccak.Reset()
	_, _ = h.keccak.Write(h.span[:])
	_, _ = h.keccak.Write(root)
	return h.keccak.Sum(b)
}

// root reduces the padded payload to a single section
func (h *Hasher) root() []byte {
	for i := h.size; i < swarm.ChunkSize; i++ {
		h.buf[i] = 0
	}

	in := h.buf[:]
	for len(in) > swarm.SectionSize {
		out := h.tree[:len(in)/2]
		for i := 0; i < len(in); i += 2 * swarm.SectionSize {
			h.keccak.Reset()
			_, _ = h.keccak.Write(in[i : i+2*swarm.SectionSize])
			h.keccak.Sum(out[i/2 : i/2])
		}
		in = out
	}

	root := make([]byte, swarm.SectionSize)
	copy(root, in)
	return root
}

// Hash computes the address of a chunk built from span and payload
func (h *Hasher) Hash(span, payload []byte) (swarm.Address, error) {
	h.Reset()
	h.SetHeader(span)
	if _, err := h.Write(payload); err != nil {
		return swarm.ZeroAddress, err
	}
	return swarm.MustNewAddress(h.Sum(nil)), nil
}

var _ hash.Hash = &Hasher{}

// Keccak256 is the general purpose hash function
func Keccak256(data ...[]byte) []byte {
	h := sha3.NewLegacyKeccak256()
	for _, b := range data {
		_, _ = h.Write(b)
	}
	return h.Sum(nil)
}
