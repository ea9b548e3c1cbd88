package pipeline

import (
	"bytes"
	"context"
	"sync"
	"testing"

	"github.com/oneconcern/swarmtrie/internal/rand"
	"github.com/oneconcern/swarmtrie/pkg/cac"
	"github.com/oneconcern/swarmtrie/pkg/chunkstore"
	"github.com/oneconcern/swarmtrie/pkg/errors"
	"github.com/oneconcern/swarmtrie/pkg/postage"
	"github.com/oneconcern/swarmtrie/pkg/redundancy"
	"github.com/oneconcern/swarmtrie/pkg/replicas"
	"github.com/oneconcern/swarmtrie/pkg/soc"
	"github.com/oneconcern/swarmtrie/pkg/swarm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m, goleak.IgnoreTopFunction("go.opencensus.io/stats/view.(*worker).start"))
}

func feed(t testing.TB, store chunkstore.Putter, data []byte, encrypt bool, level redundancy.Level, opts ...Option) swarm.Reference {
	ctx := context.Background()
	ref, err := FeedPipeline(ctx, NewPipelineBuilder(ctx, store, encrypt, level, opts...), bytes.NewReader(data))
	require.NoError(t, err)
	return ref
}

func TestThreeLeaves(t *testing.T) {
	ctx := context.Background()
	store := chunkstore.NewInMemory()
	data := rand.Bytes(10000)

	ref := feed(t, store, data, false, redundancy.NONE)
	require.Len(t, ref, swarm.HashSize)

	root, err := store.Get(ctx, ref.Address())
	require.NoError(t, err)
	require.Len(t, root.Data(), swarm.SpanSize+3*swarm.HashSize)
	assert.Equal(t, uint64(10000), swarm.SpanLength(root.Span()))

	for i, size := range []int{4096, 4096, 1808} {
		addr := swarm.MustNewAddress(root.Payload()[i*swarm.HashSize : (i+1)*swarm.HashSize])
		leaf, err := store.Get(ctx, addr)
		require.NoError(t, err)
		assert.Equal(t, uint64(size), swarm.SpanLength(leaf.Span()))
		assert.Equal(t, data[i*4096:i*4096+size], leaf.Payload())
	}
}

func TestThreeLeavesWithParities(t *testing.T) {
	ctx := context.Background()
	store := chunkstore.NewInMemory()
	data := rand.Bytes(10000)

	ref := feed(t, store, data, false, redundancy.MEDIUM)

	root, err := store.Get(ctx, ref.Address())
	require.NoError(t, err)

	length, level := redundancy.DecodeSpanLevel(root.Span())
	assert.Equal(t, uint64(10000), length)
	assert.Equal(t, redundancy.MEDIUM, level)

	// MEDIUM adds 3 parities to 3 shards
	require.Len(t, root.Payload(), 6*swarm.HashSize)
	for i := 0; i < 6; i++ {
		has, err := store.Has(ctx, swarm.MustNewAddress(root.Payload()[i*swarm.HashSize:(i+1)*swarm.HashSize]))
		require.NoError(t, err)
		assert.True(t, has)
	}

	for _, h := range replicas.GenerateReplicaHeaders(ref.Address(), redundancy.MEDIUM) {
		replica, err := store.Get(ctx, h.Address)
		require.NoError(t, err)
		s, err := soc.FromChunk(replica)
		require.NoError(t, err)
		assert.Equal(t, root.Data(), s.WrappedChunk().Data())
	}
}

func TestSingleChunk(t *testing.T) {
	store := chunkstore.NewInMemory()

	for _, size := range []int{0, 1, 4096} {
		data := rand.Bytes(size)
		expected, err := cac.New(data)
		require.NoError(t, err)

		ref := feed(t, store, data, false, redundancy.NONE)
		assert.Equal(t, expected.Address(), ref.Address())

		// a single chunk is its own root, whatever the redundancy level
		ref = feed(t, store, data, false, redundancy.STRONG)
		assert.Equal(t, expected.Address(), ref.Address())
	}
}

func TestIdempotentHashing(t *testing.T) {
	store := chunkstore.NewInMemory()
	data := rand.Bytes(swarm.ChunkSize*swarm.Branches + 12345)

	first := feed(t, store, data, false, redundancy.NONE)
	second := feed(t, store, data, false, redundancy.NONE, WithConcurrency(1))
	assert.Equal(t, first, second)

	addr, err := AddressOf(context.Background(), data)
	require.NoError(t, err)
	assert.Equal(t, first.Address(), addr)

	// encrypted references are random
	enc := feed(t, store, data, true, redundancy.NONE)
	require.Len(t, enc, swarm.EncryptedReferenceSize)
	assert.NotEqual(t, first.Address(), enc.Address())
}

func TestTwoLevels(t *testing.T) {
	ctx := context.Background()
	store := chunkstore.NewInMemory()
	data := rand.Bytes(swarm.ChunkSize*swarm.Branches + 100)

	ref := feed(t, store, data, false, redundancy.NONE)
	root, err := store.Get(ctx, ref.Address())
	require.NoError(t, err)

	// one full intermediate chunk, and the last leaf carried over
	require.Len(t, root.Payload(), 2*swarm.HashSize)
	assert.Equal(t, uint64(len(data)), swarm.SpanLength(root.Span()))

	full, err := store.Get(ctx, swarm.MustNewAddress(root.Payload()[:swarm.HashSize]))
	require.NoError(t, err)
	assert.Equal(t, uint64(swarm.ChunkSize*swarm.Branches), swarm.SpanLength(full.Span()))
	assert.Len(t, full.Payload(), swarm.Branches*swarm.HashSize)

	carrier, err := store.Get(ctx, swarm.MustNewAddress(root.Payload()[swarm.HashSize:]))
	require.NoError(t, err)
	assert.Equal(t, data[len(data)-100:], carrier.Payload())
}

func TestStampingFailure(t *testing.T) {
	ctx := context.Background()
	store := chunkstore.NewInMemory()
	signer, err := soc.GenerateSigner()
	require.NoError(t, err)

	// room for 2 chunks only
	stamper, err := postage.NewBatchStamper(rand.Bytes(postage.BatchIDSize), 1, 0, signer)
	require.NoError(t, err)

	p := NewPipelineBuilder(ctx, store, false, redundancy.NONE, WithStamper(stamper))
	_, err = FeedPipeline(ctx, p, bytes.NewReader(rand.Bytes(10000)))
	require.Error(t, err)
	assert.True(t, errors.Is(err, postage.ErrBucketFull))
}

func TestStampedChunks(t *testing.T) {
	ctx := context.Background()
	store := chunkstore.NewInMemory()
	signer, err := soc.GenerateSigner()
	require.NoError(t, err)
	stamper, err := postage.NewBatchStamper(rand.Bytes(postage.BatchIDSize), postage.DefaultDepth, postage.DefaultBucketDepth, signer)
	require.NoError(t, err)

	ref := feed(t, store, rand.Bytes(5000), false, redundancy.NONE, WithStamper(stamper), WithPin(true))

	buf, err := store.Stamp(ctx, ref.Address())
	require.NoError(t, err)
	var stamp postage.Stamp
	require.NoError(t, stamp.UnmarshalBinary(buf))
	assert.True(t, stamper.Has(ref.Address()))

	pins, err := store.Pins(ctx)
	require.NoError(t, err)
	assert.Len(t, pins, 3)
}

func TestFeedCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := FeedPipeline(ctx, NewPipelineBuilder(ctx, chunkstore.NewInMemory(), false, redundancy.NONE), bytes.NewReader(rand.Bytes(100)))
	assert.ErrorIs(t, err, context.Canceled)
}

type collector struct {
	mu   sync.Mutex
	seqs []uint64
}

func (c *collector) ChainWrite(p *PipeWriteArgs) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.seqs = append(c.seqs, p.seq)
	return nil
}

func (c *collector) Sum() ([]byte, error) {
	return nil, nil
}

func TestResequencer(t *testing.T) {
	c := &collector{}
	r := newResequencer(c)

	for _, seq := range []uint64{2, 1, 4} {
		require.NoError(t, r.ChainWrite(&PipeWriteArgs{seq: seq}))
	}
	assert.Empty(t, c.seqs)

	require.NoError(t, r.ChainWrite(&PipeWriteArgs{seq: 0}))
	assert.Equal(t, []uint64{0, 1, 2}, c.seqs)

	_, err := r.Sum()
	assert.True(t, errors.Is(err, ErrInconsistentRefs))

	require.NoError(t, r.ChainWrite(&PipeWriteArgs{seq: 3}))
	assert.Equal(t, []uint64{0, 1, 2, 3, 4}, c.seqs)
	_, err = r.Sum()
	assert.NoError(t, err)
}
