package replicas

import (
	"context"

	"github.com/oneconcern/swarmtrie/pkg/chunkstore"
	"github.com/oneconcern/swarmtrie/pkg/redundancy"
	"github.com/oneconcern/swarmtrie/pkg/soc"
	"github.com/oneconcern/swarmtrie/pkg/swarm"
	"golang.org/x/sync/errgroup"
)

// Putter stores the replicas of root chunks
type Putter struct {
	putter chunkstore.Putter
	level  redundancy.Level
	signer soc.Signer
}

// NewPutter builds a replica putter for some redundancy level
func NewPutter(p chunkstore.Putter, level redundancy.Level) *Putter {
	return &Putter{
		putter: p,
		level:  level,
		signer: Signer(),
	}
}

// Put stores the replicas of a root chunk, concurrently.
//
// The root chunk itself is not stored.
func (p *Putter) Put(ctx context.Context, root *swarm.Chunk, opts ...chunkstore.PutOption) error {
	headers := GenerateReplicaHeaders(root.Address(), p.level)

	g, gctx := errgroup.WithContext(ctx)
	for _, h := range headers {
		h := h
		g.Go(func() error {
			ch, err := soc.New(h.ID, root).Sign(p.signer)
			if err != nil {
				return err
			}
			return p.putter.Put(gctx, ch, opts...)
		})
	}
	return g.Wait()
}
