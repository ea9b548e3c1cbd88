package redundancy

import (
	"github.com/oneconcern/swarmtrie/pkg/errors"
	"github.com/oneconcern/swarmtrie/pkg/swarm"
)

var (
	// ErrNotEnoughShards is returned when too few shards could be retrieved to recover the data
	ErrNotEnoughShards = errors.New("not enough shards to recover data")

	// ErrInconsistentParent is returned when an intermediate chunk does not hold the references its span announces
	ErrInconsistentParent = errors.New("inconsistent intermediate chunk")
)

// Shards lists the children of an intermediate chunk
type Shards struct {
	// Level of redundancy of the group
	Level Level
	// Data references, with their decryption key when encrypted
	Data []swarm.Reference
	// Parity chunk addresses
	Parities []swarm.Address
	// Span of the parent chunk
	Span uint64
}

// Addresses of data and parity chunks, data first
func (s Shards) Addresses() []swarm.Address {
	addrs := make([]swarm.Address, 0, len(s.Data)+len(s.Parities))
	for _, ref := range s.Data {
		addrs = append(addrs, ref.Address())
	}
	return append(addrs, s.Parities...)
}

// ParseShards decodes the children references of an intermediate chunk (span + payload).
//
// For encrypted tries, the chunk must be decrypted already.
func ParseShards(data []byte, encrypted bool) (Shards, error) {
	if len(data) < swarm.SpanSize {
		return Shards{}, swarm.ErrInvalidChunk
	}
	length, level := DecodeSpanLevel(data[:swarm.SpanSize])
	if length <= swarm.ChunkSize {
		return Shards{}, ErrInconsistentParent.WrapMessage("span %d is a leaf", length)
	}
	payload := data[swarm.SpanSize:]
	shardCnt, parityCnt := ReferenceCount(length, level, encrypted)
	refSize := RefSize(encrypted)
	if len(payload) < shardCnt*refSize+parityCnt*swarm.HashSize {
		return Shards{}, ErrInconsistentParent.WrapMessage("expected %d data and %d parity references in %d bytes", shardCnt, parityCnt, len(payload))
	}

	s := Shards{
		Level:    level,
		Span:     length,
		Data:     make([]swarm.Reference, 0, shardCnt),
		Parities: make([]swarm.Address, 0, parityCnt),
	}
	for i := 0; i < shardCnt; i++ {
		s.Data = append(s.Data, swarm.Reference(payload[i*refSize:(i+1)*refSize]))
	}
	offset := shardCnt * refSize
	for i := 0; i < parityCnt; i++ {
		s.Parities = append(s.Parities, swarm.MustNewAddress(payload[offset+i*swarm.HashSize:offset+(i+1)*swarm.HashSize]))
	}
	return s, nil
}

func padShard(data []byte) []byte {
	buf := make([]byte, swarm.ChunkWithSpanSize)
	copy(buf, data)
	return buf
}
