package cac

import (
	"testing"

	"github.com/oneconcern/swarmtrie/internal/rand"
	"github.com/oneconcern/swarmtrie/pkg/errors"
	"github.com/oneconcern/swarmtrie/pkg/swarm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	payload := rand.Bytes(1000)
	ch, err := New(payload)
	require.NoError(t, err)
	assert.Equal(t, uint64(1000), swarm.SpanLength(ch.Span()))
	assert.Equal(t, payload, ch.Payload())
	assert.True(t, Valid(ch))

	// same content, same address
	again, err := NewWithSpan(swarm.NewSpan(1000), payload)
	require.NoError(t, err)
	assert.Equal(t, ch.Address(), again.Address())

	tampered := swarm.NewChunk(ch.Address(), append(ch.Data()[:swarm.SpanSize:swarm.SpanSize], rand.Bytes(1000)...))
	assert.False(t, Valid(tampered))
	assert.False(t, Valid(swarm.NewChunk(ch.Address(), []byte{1})))
}

func TestTooLarge(t *testing.T) {
	_, err := New(make([]byte, swarm.ChunkSize+1))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrTooLarge))

	_, err = NewWithDataSpan([]byte{1, 2})
	require.Error(t, err)
}
