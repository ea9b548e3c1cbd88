// Package postage stamps chunks against a batch.
//
// A batch of depth d allows 2^d chunks, spread over 2^bucketDepth buckets
// keyed by the leading bits of chunk addresses. Stamping a chunk into a full
// bucket fails: callers such as manifest compaction look for addresses that
// fall into less crowded buckets.
package postage

import (
	"encoding/binary"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/oneconcern/swarmtrie/pkg/bmt"
	"github.com/oneconcern/swarmtrie/pkg/errors"
	"github.com/oneconcern/swarmtrie/pkg/swarm"
)

const (
	// BatchIDSize is the size of a batch identifier
	BatchIDSize = 32
	// IndexSize is the size of a stamp index: bucket and position in the bucket
	IndexSize = 8
	// TimestampSize is the size of a stamp timestamp
	TimestampSize = 8
	// SignatureSize is the size of a stamp signature
	SignatureSize = 65
	// StampSize is the size of a marshaled stamp
	StampSize = BatchIDSize + IndexSize + TimestampSize + SignatureSize
)

var (
	// ErrInvalidStamp is returned when unmarshaling a stamp of the wrong size
	ErrInvalidStamp = errors.New("invalid postage stamp")

	// ErrBucketFull is returned when a chunk falls into a bucket with no remaining slot
	ErrBucketFull = errors.New("bucket full")
)

// Stamp proves that a chunk is paid for by a batch
type Stamp struct {
	batchID   []byte
	index     []byte
	timestamp []byte
	sig       []byte
}

// NewStamp builds a stamp
func NewStamp(batchID, index, timestamp, sig []byte) *Stamp {
	return &Stamp{batchID: batchID, index: index, timestamp: timestamp, sig: sig}
}

// BatchID of the stamp
func (s *Stamp) BatchID() []byte {
	return s.batchID
}

// Index of the stamp, as bucket and position in the bucket
func (s *Stamp) Index() []byte {
	return s.index
}

// Bucket and position of the stamp
func (s *Stamp) Bucket() (bucket, position uint32) {
	return binary.BigEndian.Uint32(s.index[:4]), binary.BigEndian.Uint32(s.index[4:])
}

// Timestamp of the stamp, in nanoseconds
func (s *Stamp) Timestamp() uint64 {
	return binary.BigEndian.Uint64(s.timestamp)
}

// Sig is the signature of the stamp by the batch owner
func (s *Stamp) Sig() []byte {
	return s.sig
}

// MarshalBinary serializes a stamp
func (s *Stamp) MarshalBinary() ([]byte, error) {
	buf := make([]byte, 0, StampSize)
	buf = append(buf, pad(s.batchID, BatchIDSize)...)
	buf = append(buf, pad(s.index, IndexSize)...)
	buf = append(buf, pad(s.timestamp, TimestampSize)...)
	buf = append(buf, pad(s.sig, SignatureSize)...)
	return buf, nil
}

// UnmarshalBinary deserializes a stamp
func (s *Stamp) UnmarshalBinary(buf []byte) error {
	if len(buf) != StampSize {
		return ErrInvalidStamp.WrapMessage("expected %d bytes, got %d", StampSize, len(buf))
	}
	s.batchID = buf[:BatchIDSize]
	s.index = buf[BatchIDSize : BatchIDSize+IndexSize]
	s.timestamp = buf[BatchIDSize+IndexSize : BatchIDSize+IndexSize+TimestampSize]
	s.sig = buf[BatchIDSize+IndexSize+TimestampSize:]
	return nil
}

// RecoverOwner returns the account that signed the stamp for some chunk
func (s *Stamp) RecoverOwner(addr swarm.Address) ([]byte, error) {
	pub, err := crypto.SigToPub(digest(addr, s.batchID, s.index, s.timestamp), s.sig)
	if err != nil {
		return nil, ErrInvalidStamp.Wrap(err)
	}
	return crypto.PubkeyToAddress(*pub).Bytes(), nil
}

func digest(addr swarm.Address, batchID, index, timestamp []byte) []byte {
	return bmt.Keccak256(addr[:], batchID, index, timestamp)
}

func pad(b []byte, size int) []byte {
	if len(b) == size {
		return b
	}
	padded := make([]byte, size)
	copy(padded, b)
	return padded
}
