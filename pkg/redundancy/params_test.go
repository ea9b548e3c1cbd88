package redundancy

import (
	"testing"

	"github.com/oneconcern/swarmtrie/pkg/errors"
	"github.com/oneconcern/swarmtrie/pkg/swarm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type parityRecorder struct {
	written int
	levels  []int
}

func (p *parityRecorder) write(data []byte) ([]byte, error) {
	p.written++
	return make([]byte, swarm.HashSize), nil
}

func (p *parityRecorder) callback(level int, _, _ []byte) error {
	p.levels = append(p.levels, level)
	return nil
}

func TestParamsEncodesFullGroups(t *testing.T) {
	rec := &parityRecorder{}
	params := NewParams(PARANOID, false, rec.write)
	chunk := append(swarm.NewSpan(4), 1, 2, 3, 4)

	for i := 0; i < params.MaxShards()-1; i++ {
		require.NoError(t, params.ChunkWrite(2, chunk, rec.callback))
	}
	assert.Zero(t, rec.written)

	require.NoError(t, params.ChunkWrite(2, chunk, rec.callback))
	assert.Equal(t, params.Parities(params.MaxShards()), rec.written)
	for _, level := range rec.levels {
		assert.Equal(t, 3, level)
	}

	// the level buffer has been reset
	require.NoError(t, params.Encode(2, rec.callback))
	assert.Equal(t, params.Parities(params.MaxShards()), rec.written)
}

func TestParamsCarrierChunk(t *testing.T) {
	rec := &parityRecorder{}
	params := NewParams(MEDIUM, false, rec.write)
	chunk := append(swarm.NewSpan(4), 1, 2, 3, 4)

	require.NoError(t, params.ChunkWrite(0, chunk, rec.callback))
	for level := 0; level < MaxTrieLevels-1; level++ {
		require.NoError(t, params.ElevateCarrierChunk(level, rec.callback))
	}
	root, err := params.GetRootData()
	require.NoError(t, err)
	assert.Equal(t, chunk, root)

	require.NoError(t, params.ChunkWrite(1, chunk, rec.callback))
	require.NoError(t, params.ChunkWrite(1, chunk, rec.callback))
	err = params.ElevateCarrierChunk(1, rec.callback)
	assert.True(t, errors.Is(err, ErrCarrierChunk))
}

func TestParamsNone(t *testing.T) {
	rec := &parityRecorder{}
	params := NewParams(NONE, false, rec.write)
	require.NoError(t, params.ChunkWrite(0, swarm.NewSpan(0), rec.callback))
	require.NoError(t, params.Encode(0, rec.callback))
	require.NoError(t, params.ElevateCarrierChunk(0, rec.callback))
	assert.Zero(t, rec.written)

	_, err := params.GetRootData()
	assert.True(t, errors.Is(err, ErrInvalidLevel))
}
