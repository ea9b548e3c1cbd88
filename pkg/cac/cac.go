// Package cac builds and validates content-addressed chunks
package cac

import (
	"github.com/oneconcern/swarmtrie/pkg/bmt"
	"github.com/oneconcern/swarmtrie/pkg/errors"
	"github.com/oneconcern/swarmtrie/pkg/swarm"
)

// ErrTooLarge is returned when the payload exceeds the chunk size
var ErrTooLarge = errors.New("chunk payload too large")

// New builds a chunk with a span equal to the payload length
func New(payload []byte) (*swarm.Chunk, error) {
	return NewWithSpan(swarm.NewSpan(uint64(len(payload))), payload)
}

// NewWithSpan builds a chunk from a span and a payload
func NewWithSpan(span, payload []byte) (*swarm.Chunk, error) {
	if len(payload) > swarm.ChunkSize {
		return nil, ErrTooLarge.WrapMessage("%d bytes", len(payload))
	}
	data := make([]byte, swarm.SpanSize+len(payload))
	copy(data, span[:swarm.SpanSize])
	copy(data[swarm.SpanSize:], payload)

	return NewWithDataSpan(data)
}

// NewWithDataSpan builds a chunk from some span-prefixed data
func NewWithDataSpan(data []byte) (*swarm.Chunk, error) {
	if len(data) < swarm.SpanSize {
		return nil, swarm.ErrInvalidChunk
	}
	if len(data) > swarm.ChunkWithSpanSize {
		return nil, ErrTooLarge.WrapMessage("%d bytes", len(data)-swarm.SpanSize)
	}
	addr, err := bmt.Sum(data[:swarm.SpanSize], data[swarm.SpanSize:])
	if err != nil {
		return nil, err
	}
	return swarm.NewChunk(addr, data), nil
}

// Valid checks that the chunk address is the BMT hash of its data
func Valid(ch *swarm.Chunk) bool {
	data := ch.Data()
	if len(data) < swarm.SpanSize || len(data) > swarm.ChunkWithSpanSize {
		return false
	}
	addr, err := bmt.Sum(data[:swarm.SpanSize], data[swarm.SpanSize:])
	return err == nil && addr == ch.Address()
}
