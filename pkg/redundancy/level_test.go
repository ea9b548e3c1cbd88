package redundancy

import (
	"testing"

	"github.com/oneconcern/swarmtrie/pkg/errors"
	"github.com/oneconcern/swarmtrie/pkg/swarm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErasureTables(t *testing.T) {
	for _, level := range []Level{MEDIUM, STRONG, INSANE, PARANOID} {
		for _, encrypted := range []bool{false, true} {
			shards := level.MaxShards(encrypted)
			parities := level.Parities(shards, encrypted)
			size := shards*RefSize(encrypted) + parities*swarm.HashSize
			assert.LessOrEqualf(t, size, swarm.ChunkSize, "%s (encrypted: %t): references do not fit in a chunk", level, encrypted)
			assert.Greater(t, parities, 0)
			assert.Equal(t, shards+parities, level.MaxChildren(encrypted))
		}
	}

	assert.Equal(t, 119, MEDIUM.GetMaxShards())
	assert.Equal(t, 59, MEDIUM.GetMaxEncShards())
	assert.Equal(t, 107, STRONG.GetMaxShards())
	assert.Equal(t, 97, INSANE.GetMaxShards())
	assert.Equal(t, 38, PARANOID.GetMaxShards())
	assert.Equal(t, 20, PARANOID.GetMaxEncShards())
	assert.Len(t, paranoidEt.shards, 37)

	assert.Equal(t, 0, NONE.GetParities(128))
	assert.Equal(t, swarm.Branches, NONE.GetMaxShards())
	assert.Equal(t, swarm.Branches/2, NONE.GetMaxEncShards())

	assert.Equal(t, 2, MEDIUM.GetParities(1))
	assert.Equal(t, 3, MEDIUM.GetParities(3))
	assert.Equal(t, 9, MEDIUM.GetParities(95))
	assert.Equal(t, 20, PARANOID.GetParities(1))
	assert.Equal(t, 24, PARANOID.GetEncParities(1))
}

func TestReplicaCount(t *testing.T) {
	assert.Equal(t, 0, NONE.GetReplicaCount())
	assert.Equal(t, 2, MEDIUM.GetReplicaCount())
	assert.Equal(t, 4, STRONG.GetReplicaCount())
	assert.Equal(t, 8, INSANE.GetReplicaCount())
	assert.Equal(t, 16, PARANOID.GetReplicaCount())
}

func TestParseLevel(t *testing.T) {
	l, err := ParseLevel("insane")
	require.NoError(t, err)
	assert.Equal(t, INSANE, l)

	l, err = ParseLevel("2")
	require.NoError(t, err)
	assert.Equal(t, STRONG, l)

	_, err = ParseLevel("extreme")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalidLevel))

	assert.Error(t, Level(5).Validate())
	assert.Equal(t, "Level(5)", Level(5).String())
}

func TestSpanLevel(t *testing.T) {
	span := EncodeSpanLevel(10000, INSANE)
	assert.True(t, IsLevelEncoded(span))

	length, level := DecodeSpanLevel(span)
	assert.Equal(t, uint64(10000), length)
	assert.Equal(t, INSANE, level)

	// decoding does not alter the input
	decoded, plain := DecodeSpan(span)
	assert.Equal(t, INSANE, decoded)
	assert.Equal(t, swarm.NewSpan(10000), plain)
	assert.True(t, IsLevelEncoded(span))

	span = EncodeSpanLevel(10000, NONE)
	assert.False(t, IsLevelEncoded(span))
	length, level = DecodeSpanLevel(span)
	assert.Equal(t, uint64(10000), length)
	assert.Equal(t, NONE, level)
}

func TestReferenceCount(t *testing.T) {
	shards, parities := ReferenceCount(10000, NONE, false)
	assert.Equal(t, 3, shards)
	assert.Equal(t, 0, parities)

	shards, parities = ReferenceCount(10000, MEDIUM, false)
	assert.Equal(t, 3, shards)
	assert.Equal(t, 3, parities)

	shards, parities = ReferenceCount(swarm.ChunkSize*swarm.Branches+1, NONE, false)
	assert.Equal(t, 2, shards)
	assert.Equal(t, 0, parities)
	assert.Equal(t, uint64(swarm.ChunkSize*swarm.Branches), ChildSpan(swarm.ChunkSize*swarm.Branches+1, NONE, false))

	shards, _ = ReferenceCount(swarm.ChunkSize*64+1, NONE, true)
	assert.Equal(t, 2, shards)

	shards, parities = ReferenceCount(swarm.ChunkSize, PARANOID, false)
	assert.Zero(t, shards)
	assert.Zero(t, parities)
}

func TestTrimChunkData(t *testing.T) {
	leaf := padShard(append(swarm.NewSpan(100), make([]byte, 100)...))
	assert.Len(t, TrimChunkData(leaf, false), swarm.SpanSize+100)
	assert.Len(t, TrimChunkData(leaf, true), swarm.ChunkWithSpanSize)

	span := EncodeSpanLevel(10000, MEDIUM)
	parent := padShard(span)
	assert.Len(t, TrimChunkData(parent, false), swarm.SpanSize+(3+3)*swarm.HashSize)
}
