package redundancy

import (
	"github.com/oneconcern/swarmtrie/pkg/swarm"
)

// ReferenceCount returns the number of data and parity references held by an
// intermediate chunk spanning some content length.
//
// Every child of such a chunk spans ChildSpan bytes, except the last one.
func ReferenceCount(span uint64, level Level, encrypted bool) (shards int, parities int) {
	if span <= swarm.ChunkSize {
		return 0, 0
	}
	referenceSize := ChildSpan(span, level, encrypted)
	shards = int((span + referenceSize - 1) / referenceSize)
	parities = level.Parities(shards, encrypted)

	return shards, parities
}

// ChildSpan returns the span of every full child of an intermediate chunk
func ChildSpan(span uint64, level Level, encrypted bool) uint64 {
	branching := uint64(level.MaxShards(encrypted))
	branchSize := uint64(swarm.ChunkSize)
	referenceSize := uint64(swarm.ChunkSize)
	for branchSize < span {
		referenceSize = branchSize
		branchSize *= branching
	}
	return referenceSize
}

// RefSize is the size of a data reference: 64 bytes for encrypted content, 32 otherwise
func RefSize(encrypted bool) int {
	if encrypted {
		return swarm.EncryptedReferenceSize
	}
	return swarm.HashSize
}

// TrimChunkData removes the padding of a recovered chunk.
//
// Erasure coding operates on shards padded to the full chunk size: the length of
// a plain chunk is recovered from its span. Encrypted chunks are always full size.
func TrimChunkData(data []byte, encrypted bool) []byte {
	if encrypted || len(data) < swarm.SpanSize {
		return data
	}
	length, level := DecodeSpanLevel(data[:swarm.SpanSize])
	size := length
	if length > swarm.ChunkSize {
		shards, parities := ReferenceCount(length, level, false)
		size = uint64((shards + parities) * swarm.HashSize)
	}
	if end := swarm.SpanSize + size; end < uint64(len(data)) {
		return data[:end]
	}
	return data
}
