package mantaray

import (
	"bytes"
	"context"

	"github.com/oneconcern/swarmtrie/pkg/chunkstore"
	"github.com/oneconcern/swarmtrie/pkg/joiner"
	"github.com/oneconcern/swarmtrie/pkg/pipeline"
	"github.com/oneconcern/swarmtrie/pkg/redundancy"
	"github.com/oneconcern/swarmtrie/pkg/swarm"
)

// ChunkStore is what a LoadSaver needs to store nodes as content
type ChunkStore interface {
	chunkstore.BulkGetter
	chunkstore.Putter
}

var (
	_ LoadSaver        = &loadSaver{}
	_ AddressPredictor = &loadSaver{}
)

type loadSaver struct {
	store        ChunkStore
	encrypt      bool
	level        redundancy.Level
	pipelineOpts []pipeline.Option
	joinerOpts   []joiner.Option
}

// LoadSaverOption configures a LoadSaver
type LoadSaverOption func(*loadSaver)

// WithPipelineOptions configures the pipelines storing nodes
func WithPipelineOptions(opts ...pipeline.Option) LoadSaverOption {
	return func(ls *loadSaver) {
		ls.pipelineOpts = append(ls.pipelineOpts, opts...)
	}
}

// WithJoinerOptions configures the joiners reading nodes
func WithJoinerOptions(opts ...joiner.Option) LoadSaverOption {
	return func(ls *loadSaver) {
		ls.joinerOpts = append(ls.joinerOpts, opts...)
	}
}

// NewLoadSaver stores nodes as regular content in a chunk store
func NewLoadSaver(store ChunkStore, encrypt bool, level redundancy.Level, opts ...LoadSaverOption) LoadSaver {
	ls := &loadSaver{
		store:   store,
		encrypt: encrypt,
		level:   level,
	}
	for _, apply := range opts {
		apply(ls)
	}
	return ls
}

func (ls *loadSaver) Load(ctx context.Context, ref []byte) ([]byte, error) {
	return joiner.ReadAll(ctx, ls.store, swarm.Reference(ref), ls.joinerOpts...)
}

func (ls *loadSaver) Save(ctx context.Context, data []byte) ([]byte, error) {
	p := pipeline.NewPipelineBuilder(ctx, ls.store, ls.encrypt, ls.level, ls.pipelineOpts...)
	ref, err := pipeline.FeedPipeline(ctx, p, bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	return ref, nil
}

// AddressFunc computes node addresses as Save does. Encrypted nodes get random keys,
// so their address is unknown until saved.
func (ls *loadSaver) AddressFunc() func(context.Context, []byte) (swarm.Address, error) {
	if ls.encrypt {
		return nil
	}
	return pipeline.AddressFunc(ls.level)
}
