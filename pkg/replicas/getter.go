package replicas

import (
	"bytes"
	"context"

	"github.com/oneconcern/swarmtrie/pkg/chunkstore"
	"github.com/oneconcern/swarmtrie/pkg/chunkstore/status"
	"github.com/oneconcern/swarmtrie/pkg/errors"
	"github.com/oneconcern/swarmtrie/pkg/redundancy"
	"github.com/oneconcern/swarmtrie/pkg/soc"
	"github.com/oneconcern/swarmtrie/pkg/swarm"
	"go.uber.org/zap"
)

var _ chunkstore.Getter = &Getter{}

// Getter retrieves root chunks, falling back to their replicas when missing
type Getter struct {
	getter chunkstore.BulkGetter
	level  redundancy.Level
	l      *zap.Logger
}

// NewGetter builds a replica getter.
//
// The redundancy level of a missing root is unknown: replicas of all levels up to level are raced.
func NewGetter(g chunkstore.BulkGetter, level redundancy.Level, l *zap.Logger) *Getter {
	if l == nil {
		l = zap.NewNop()
	}
	return &Getter{getter: g, level: level, l: l}
}

// Get a root chunk, or one of its replicas
func (g *Getter) Get(ctx context.Context, addr swarm.Address, opts ...chunkstore.GetOption) (*swarm.Chunk, error) {
	ch, err := g.getter.Get(ctx, addr, opts...)
	if err == nil || g.level == redundancy.NONE || !errors.Is(err, status.ErrNotFound) {
		return ch, err
	}

	seen := make(map[swarm.Address]struct{})
	var candidates []swarm.Address
	for level := redundancy.MEDIUM; level <= g.level; level++ {
		for _, h := range GenerateReplicaHeaders(addr, level) {
			if _, ok := seen[h.Address]; ok {
				continue
			}
			seen[h.Address] = struct{}{}
			candidates = append(candidates, h.Address)
		}
	}

	found, _ := g.getter.GetMany(ctx, candidates, chunkstore.ReturnAfterSucceeded(1))
	for _, candidate := range candidates {
		replica, ok := found[candidate]
		if !ok {
			continue
		}
		s, err := soc.FromChunk(replica)
		if err != nil || s.WrappedChunk().Address() != addr || !bytes.Equal(s.Owner(), Owner()) {
			g.l.Warn("skipping invalid replica", zap.Stringer("address", candidate), zap.Error(err))
			continue
		}
		g.l.Debug("root chunk retrieved from replica", zap.Stringer("root", addr), zap.Stringer("replica", candidate))
		return swarm.NewChunk(addr, s.WrappedChunk().Data()), nil
	}

	return nil, err
}
