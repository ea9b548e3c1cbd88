package pipeline

import (
	"bytes"
	"context"
	"io"

	"github.com/oneconcern/swarmtrie/pkg/chunkstore"
	"github.com/oneconcern/swarmtrie/pkg/redundancy"
	"github.com/oneconcern/swarmtrie/pkg/replicas"
	"github.com/oneconcern/swarmtrie/pkg/swarm"
	"go.uber.org/zap"
)

// NewPipelineBuilder builds a pipeline storing content as a chunk trie
func NewPipelineBuilder(ctx context.Context, putter chunkstore.Putter, encrypt bool, level redundancy.Level, opts ...Option) Interface {
	o := defaultOptions(opts)

	// intermediate chunks are encrypted like leaves
	shortPipeline := func() (ChainWriter, *PipeWriteArgs) {
		result := &PipeWriteArgs{}
		var w ChainWriter = newBmtWriter(o.pool, newStoreWriter(ctx, putter, o.stamper, o.pin, newResultWriter(result)))
		if encrypt {
			w = newEncryptionWriter(o.encrypter, w)
		}
		return w, result
	}

	// parity chunks are never encrypted
	parityWriter := func(data []byte) ([]byte, error) {
		result := &PipeWriteArgs{}
		w := newBmtWriter(o.pool, newStoreWriter(ctx, putter, o.stamper, o.pin, newResultWriter(result)))
		if err := w.ChainWrite(&PipeWriteArgs{Span: data[:swarm.SpanSize], Data: data}); err != nil {
			return nil, err
		}
		return result.Ref, nil
	}

	var replicaPutter *replicas.Putter
	if o.replicas && level > redundancy.NONE {
		replicaPutter = replicas.NewPutter(putter, level)
	}

	trie := newHashTrieWriter(ctx, encrypt, redundancy.NewParams(level, encrypt, parityWriter), shortPipeline, replicaPutter, o.l)

	ordered := newResequencer(trie)
	var leaf ChainWriter = newBmtWriter(o.pool, newStoreWriter(ctx, putter, o.stamper, o.pin, ordered))
	if encrypt {
		leaf = newEncryptionWriter(o.encrypter, leaf)
	}

	return newChunkFeederWriter(swarm.ChunkSize, newParallelWriter(o.concurrency, leaf, ordered))
}

// FeedPipeline writes all content from a reader to a pipeline, and returns the root reference
func FeedPipeline(ctx context.Context, pipeline Interface, r io.Reader) (swarm.Reference, error) {
	buf := make([]byte, swarm.ChunkSize)
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		n, err := io.ReadFull(r, buf)
		if n > 0 {
			if _, werr := pipeline.Write(buf[:n]); werr != nil {
				return nil, werr
			}
		}
		if err == io.EOF || err == io.ErrUnexpectedEOF {
			break
		}
		if err != nil {
			return nil, err
		}
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	sum, err := pipeline.Sum()
	if err != nil {
		return nil, err
	}
	return swarm.Reference(sum), nil
}

// AddressOf computes the address of some plain content, without storing anything
func AddressOf(ctx context.Context, data []byte) (swarm.Address, error) {
	return AddressFunc(redundancy.NONE)(ctx, data)
}

// AddressFunc computes the address of some unencrypted content stored with a
// redundancy level, without storing anything
func AddressFunc(level redundancy.Level) func(context.Context, []byte) (swarm.Address, error) {
	discard := chunkstore.PutterFunc(func(context.Context, *swarm.Chunk, ...chunkstore.PutOption) error {
		return nil
	})
	return func(ctx context.Context, data []byte) (swarm.Address, error) {
		p := NewPipelineBuilder(ctx, discard, false, level, WithReplicas(false), WithLogger(zap.NewNop()))
		ref, err := FeedPipeline(ctx, p, bytes.NewReader(data))
		if err != nil {
			return swarm.ZeroAddress, err
		}
		return ref.Address(), nil
	}
}
