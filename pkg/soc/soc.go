// Package soc implements single-owner chunks.
//
// A single-owner chunk wraps a content-addressed chunk, under an address derived from an
// identifier and the owner's account:
//
//	address = keccak256(id || owner)
//	data    = id (32) || signature (65) || span || payload
//
// The owner signs keccak256(id || wrapped chunk address).
package soc

import (
	"bytes"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/oneconcern/swarmtrie/pkg/bmt"
	"github.com/oneconcern/swarmtrie/pkg/cac"
	"github.com/oneconcern/swarmtrie/pkg/errors"
	"github.com/oneconcern/swarmtrie/pkg/swarm"
)

const (
	// IDSize is the size of a single-owner chunk identifier
	IDSize = 32

	// SignatureSize is the size of a recoverable secp256k1 signature
	SignatureSize = 65

	// OwnerSize is the size of an owner account
	OwnerSize = 20

	minChunkSize = IDSize + SignatureSize + swarm.SpanSize
)

var (
	// ErrInvalidSOC is returned when some chunk data does not parse as a single-owner chunk
	ErrInvalidSOC = errors.New("invalid single-owner chunk")

	// ErrInvalidID is returned when the identifier is not 32 bytes long
	ErrInvalidID = errors.New("invalid single-owner chunk id")
)

// SOC is a single-owner chunk
type SOC struct {
	id        []byte
	owner     []byte
	signature []byte
	chunk     *swarm.Chunk
}

// New wraps a content-addressed chunk with some id
func New(id []byte, ch *swarm.Chunk) *SOC {
	return &SOC{id: id, chunk: ch}
}

// ID of the single-owner chunk
func (s *SOC) ID() []byte {
	return s.id
}

// Owner account
func (s *SOC) Owner() []byte {
	return s.owner
}

// WrappedChunk returns the content-addressed chunk
func (s *SOC) WrappedChunk() *swarm.Chunk {
	return s.chunk
}

// Sign the chunk and return it as a swarm.Chunk
func (s *SOC) Sign(signer Signer) (*swarm.Chunk, error) {
	if len(s.id) != IDSize {
		return nil, ErrInvalidID
	}
	owner, err := signer.PublicAddress()
	if err != nil {
		return nil, err
	}
	wrapped := s.chunk.Address()
	signature, err := signer.Sign(bmt.Keccak256(s.id, wrapped[:]))
	if err != nil {
		return nil, err
	}
	s.owner = owner
	s.signature = signature

	addr, err := CreateAddress(s.id, owner)
	if err != nil {
		return nil, err
	}

	data := make([]byte, 0, IDSize+SignatureSize+len(s.chunk.Data()))
	data = append(data, s.id...)
	data = append(data, signature...)
	data = append(data, s.chunk.Data()...)

	return swarm.NewChunk(addr, data), nil
}

// CreateAddress computes the address of a single-owner chunk
func CreateAddress(id, owner []byte) (swarm.Address, error) {
	if len(id) != IDSize {
		return swarm.ZeroAddress, ErrInvalidID
	}
	return swarm.NewAddress(bmt.Keccak256(id, owner))
}

// FromChunk parses a single-owner chunk and recovers its owner
func FromChunk(ch *swarm.Chunk) (*SOC, error) {
	data := ch.Data()
	if len(data) < minChunkSize || len(data) > IDSize+SignatureSize+swarm.ChunkWithSpanSize {
		return nil, ErrInvalidSOC.WrapMessage("unexpected size %d", len(data))
	}
	id := data[:IDSize]
	signature := data[IDSize : IDSize+SignatureSize]
	wrapped, err := cac.NewWithDataSpan(data[IDSize+SignatureSize:])
	if err != nil {
		return nil, ErrInvalidSOC.Wrap(err)
	}

	wrappedAddr := wrapped.Address()
	pub, err := crypto.SigToPub(bmt.Keccak256(id, wrappedAddr[:]), signature)
	if err != nil {
		return nil, ErrInvalidSOC.Wrap(err)
	}
	owner := crypto.PubkeyToAddress(*pub)

	return &SOC{
		id:        id,
		owner:     owner.Bytes(),
		signature: signature,
		chunk:     wrapped,
	}, nil
}

// Valid checks that the chunk is a properly signed single-owner chunk
func Valid(ch *swarm.Chunk) bool {
	s, err := FromChunk(ch)
	if err != nil {
		return false
	}
	addr, err := CreateAddress(s.id, s.owner)
	if err != nil {
		return false
	}
	return bytes.Equal(addr[:], ch.Address().Bytes())
}
