package chunkstore

import (
	"context"

	"github.com/oneconcern/swarmtrie/pkg/swarm"
)

// Getter retrieves chunks
type Getter interface {
	Get(context.Context, swarm.Address, ...GetOption) (*swarm.Chunk, error)
}

// BulkGetter retrieves many chunks at once, tolerating partial failures
type BulkGetter interface {
	Getter
	GetMany(context.Context, []swarm.Address, ...GetManyOption) (map[swarm.Address]*swarm.Chunk, error)
}

// Putter stores chunks
type Putter interface {
	Put(context.Context, *swarm.Chunk, ...PutOption) error
}

// PutterFunc adapts a function to the Putter interface
type PutterFunc func(context.Context, *swarm.Chunk, ...PutOption) error

// Put a chunk
func (f PutterFunc) Put(ctx context.Context, ch *swarm.Chunk, opts ...PutOption) error {
	return f(ctx, ch, opts...)
}

// Store is a chunk store
type Store interface {
	BulkGetter
	Putter
	Has(context.Context, swarm.Address) (bool, error)
	Delete(context.Context, swarm.Address) error
	Pins(context.Context) ([]swarm.Address, error)
	Unpin(context.Context, swarm.Address) error
	Stamp(context.Context, swarm.Address) ([]byte, error)
	String() string
}
