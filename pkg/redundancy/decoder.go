package redundancy

import (
	"context"
	"sync"

	"github.com/oneconcern/swarmtrie/pkg/chunkstore"
	"github.com/oneconcern/swarmtrie/pkg/chunkstore/status"
	"github.com/oneconcern/swarmtrie/pkg/errors"
	"github.com/oneconcern/swarmtrie/pkg/swarm"
	"go.uber.org/zap"
)

var errRecovering = errors.New("recovery in progress")

var _ chunkstore.Getter = &Decoder{}

type future struct {
	done chan struct{}
	ch   *swarm.Chunk
	err  error
}

// Decoder retrieves the children of an intermediate chunk on demand.
//
// Every child is fetched at most once, even with concurrent callers. When a
// fetch fails and the strategy allows it, the decoder switches to recovery:
// pending fetches are cancelled, and the remaining data and parity shards are
// raced until enough are available to reconstruct the missing data.
type Decoder struct {
	*decoderOptions
	fetcher   chunkstore.BulkGetter
	encrypted bool
	shardCnt  int
	parityCnt int
	addrs     []swarm.Address
	index     map[swarm.Address]int

	// ctx is cancelled by Close. Single fetches run under fetchCtx, which is
	// cancelled as soon as recovery starts.
	ctx         context.Context
	closeFn     context.CancelFunc
	fetchCtx    context.Context
	cancelFetch context.CancelFunc

	mu         sync.Mutex
	buf        [][]byte
	futures    map[int]*future
	recovering bool

	recoverOnce sync.Once
	recovered   chan struct{}
	recoverErr  error
}

// NewDecoder builds a streaming decoder for the children of an intermediate chunk (span + payload).
//
// For encrypted tries, the chunk must be decrypted already.
func NewDecoder(fetcher chunkstore.BulkGetter, parent []byte, encrypted bool, opts ...DecoderOption) (*Decoder, error) {
	shards, err := ParseShards(parent, encrypted)
	if err != nil {
		return nil, err
	}
	return NewDecoderFromShards(fetcher, shards, encrypted, opts...), nil
}

// NewDecoderFromShards builds a streaming decoder for an explicit list of shards
func NewDecoderFromShards(fetcher chunkstore.BulkGetter, shards Shards, encrypted bool, opts ...DecoderOption) *Decoder {
	addrs := shards.Addresses()
	index := make(map[swarm.Address]int, len(addrs))
	for i := len(addrs) - 1; i >= 0; i-- {
		index[addrs[i]] = i
	}
	ctx, closeFn := context.WithCancel(context.Background())
	fetchCtx, cancelFetch := context.WithCancel(ctx)

	return &Decoder{
		decoderOptions: defaultDecoderOptions(opts),
		fetcher:        fetcher,
		encrypted:      encrypted,
		shardCnt:       len(shards.Data),
		parityCnt:      len(shards.Parities),
		addrs:          addrs,
		index:          index,
		ctx:            ctx,
		closeFn:        closeFn,
		fetchCtx:       fetchCtx,
		cancelFetch:    cancelFetch,
		buf:            make([][]byte, len(addrs)),
		futures:        make(map[int]*future, len(shards.Data)),
		recovered:      make(chan struct{}),
	}
}

// Get a data child of the parent chunk
func (d *Decoder) Get(ctx context.Context, addr swarm.Address, _ ...chunkstore.GetOption) (*swarm.Chunk, error) {
	i, ok := d.index[addr]
	if !ok || i >= d.shardCnt {
		return nil, status.ErrNotFound.WrapMessage("%s is not a data shard", addr)
	}

	f := d.future(i)
	select {
	case <-f.done:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	if f.err == nil {
		return f.ch, nil
	}

	if !d.strategy.allowsRecovery(d.fallback) || d.parityCnt == 0 {
		if d.strategy == StrategyProx && !d.fallback {
			return nil, ErrStrategyNotAllowed.Wrap(f.err)
		}
		return nil, f.err
	}

	d.recoverOnce.Do(func() {
		go d.recover(ctx)
	})
	select {
	case <-d.recovered:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	if d.recoverErr != nil {
		return nil, d.recoverErr
	}
	return d.shard(i)
}

// Close cancels pending fetches and any recovery in progress
func (d *Decoder) Close() error {
	d.closeFn()
	return nil
}

func (d *Decoder) future(i int) *future {
	d.mu.Lock()
	defer d.mu.Unlock()

	if f, ok := d.futures[i]; ok {
		return f
	}
	f := &future{done: make(chan struct{})}
	d.futures[i] = f

	if d.recovering {
		f.err = errRecovering
		close(f.done)
		return f
	}

	go d.fetch(i, f)
	return f
}

func (d *Decoder) fetch(i int, f *future) {
	defer close(f.done)

	ctx, cancel := context.WithTimeout(d.fetchCtx, d.timeout)
	defer cancel()

	ch, err := d.fetcher.Get(ctx, d.addrs[i])
	if err != nil {
		f.err = err
		if d.MetricsEnabled() {
			d.m.Chunks.Miss("stream")
		}
		return
	}
	f.ch = ch

	d.mu.Lock()
	fillShards(d.buf, d.addrs, map[swarm.Address]*swarm.Chunk{d.addrs[i]: ch})
	d.mu.Unlock()
}

// recover races the remaining shards, bounded by the strategy timeout. It is
// cancelled with the decoder, and with the caller that triggered it.
func (d *Decoder) recover(caller context.Context) {
	defer close(d.recovered)

	d.mu.Lock()
	d.recovering = true
	pending := make([]*future, 0, len(d.futures))
	for _, f := range d.futures {
		pending = append(pending, f)
	}
	d.mu.Unlock()

	// no point in racing single fetches once recovery has started
	d.cancelFetch()
	for _, f := range pending {
		<-f.done
	}

	ctx, cancel := context.WithTimeout(d.ctx, d.timeout)
	defer cancel()
	stop := context.AfterFunc(caller, cancel)
	defer stop()

	d.mu.Lock()
	need := d.shardCnt - availableShards(d.buf, len(d.addrs))
	missing, empty := missingShards(d.buf, d.addrs, len(d.addrs))
	d.mu.Unlock()

	if need > 0 {
		found, err := d.fetcher.GetMany(ctx, missing, raceOptions(need, empty, len(missing))...)

		d.mu.Lock()
		fillShards(d.buf, d.addrs, found)
		available := availableShards(d.buf, len(d.addrs))
		d.mu.Unlock()

		if available < d.shardCnt {
			recoverErr := ErrNotEnoughShards.WrapMessage("%d shards available, %d required", available, d.shardCnt)
			if err != nil {
				recoverErr = recoverErr.Wrap(err)
			}
			d.l.Warn("could not retrieve enough shards", zap.Int("shards", d.shardCnt), zap.Int("parities", d.parityCnt), zap.Error(recoverErr))
			d.recoverErr = recoverErr
			return
		}
	}

	d.mu.Lock()
	recovered, err := reconstruct(d.buf, d.addrs, d.shardCnt, d.parityCnt, d.encrypted)
	d.mu.Unlock()
	if err != nil {
		d.l.Warn("could not recover data shards", zap.Int("shards", d.shardCnt), zap.Int("parities", d.parityCnt), zap.Error(err))
		d.recoverErr = err
		return
	}

	if err = persist(ctx, d.putter, recovered); err != nil {
		d.l.Warn("could not persist recovered chunks", zap.Error(err))
	}
	if d.MetricsEnabled() {
		d.m.Chunks.Recover(len(recovered), "stream")
	}
	d.l.Debug("recovered data shards", zap.Int("recovered", len(recovered)), zap.Int("shards", d.shardCnt))
}

func (d *Decoder) shard(i int) (*swarm.Chunk, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.buf[i] == nil {
		return nil, ErrNotEnoughShards.WrapMessage("shard %d not available", i)
	}
	return swarm.NewChunk(d.addrs[i], TrimChunkData(d.buf[i], d.encrypted)), nil
}
