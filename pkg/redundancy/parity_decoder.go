package redundancy

import (
	"context"
	"sync"
	"time"

	"github.com/oneconcern/swarmtrie/pkg/chunkstore"
	"github.com/oneconcern/swarmtrie/pkg/swarm"
	"go.uber.org/zap"
)

// ParityDecoder recovers the data children of a single intermediate chunk.
//
// All shards are retrieved up front, following the configured strategy. The
// decoder is safe for concurrent use.
type ParityDecoder struct {
	*decoderOptions
	getter    chunkstore.BulkGetter
	encrypted bool
	shardCnt  int
	parityCnt int
	addrs     []swarm.Address

	mu        sync.Mutex
	buf       [][]byte
	recovered bool
}

// NewParityDecoder builds a decoder for the children of an intermediate chunk (span + payload).
//
// For encrypted tries, the chunk must be decrypted already.
func NewParityDecoder(getter chunkstore.BulkGetter, parent []byte, encrypted bool, opts ...DecoderOption) (*ParityDecoder, error) {
	shards, err := ParseShards(parent, encrypted)
	if err != nil {
		return nil, err
	}
	return NewParityDecoderFromShards(getter, shards, encrypted, opts...)
}

// NewParityDecoderFromShards builds a decoder for an explicit list of shards
func NewParityDecoderFromShards(getter chunkstore.BulkGetter, shards Shards, encrypted bool, opts ...DecoderOption) (*ParityDecoder, error) {
	if shards.Level == NONE || len(shards.Parities) == 0 {
		return nil, ErrInvalidLevel.WrapMessage("no parities to decode from")
	}
	addrs := shards.Addresses()
	return &ParityDecoder{
		decoderOptions: defaultDecoderOptions(opts),
		getter:         getter,
		encrypted:      encrypted,
		shardCnt:       len(shards.Data),
		parityCnt:      len(shards.Parities),
		addrs:          addrs,
		buf:            make([][]byte, len(addrs)),
	}, nil
}

// IsRecoveryPerformed tells if all data shards are available
func (d *ParityDecoder) IsRecoveryPerformed() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.recovered
}

// TryRecover retrieves shards and reconstructs missing data shards.
//
// Strategies are attempted in order, each within its own timeout. A failed
// attempt leaves the decoder in its previous state.
func (d *ParityDecoder) TryRecover(ctx context.Context) (err error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.recovered {
		return nil
	}

	defer func(t0 time.Time) {
		if d.MetricsEnabled() {
			d.m.Usage.UsedAll(t0, "TryRecover")(err)
		}
	}(time.Now())

	var lastErr error
	for _, strategy := range d.strategy.cascade(d.fallback) {
		snapshot := d.snapshot()

		sctx, cancel := context.WithTimeout(ctx, d.timeout)
		lastErr = d.run(sctx, strategy)
		cancel()

		if lastErr == nil {
			d.recovered = true
			return nil
		}

		d.buf = snapshot
		d.l.Debug("recovery strategy failed", zap.Stringer("strategy", strategy), zap.Error(lastErr))
		if ctx.Err() != nil {
			break
		}
	}

	return ErrNotEnoughShards.Wrap(lastErr)
}

func (d *ParityDecoder) snapshot() [][]byte {
	snapshot := make([][]byte, len(d.buf))
	copy(snapshot, d.buf)
	return snapshot
}

func (d *ParityDecoder) run(ctx context.Context, strategy Strategy) error {
	switch strategy {
	case StrategyNone, StrategyData:
		return d.fetchData(ctx)
	case StrategyProx:
		return ErrStrategyNotAllowed.WrapMessage(strategy.String())
	case StrategyRace:
		return d.race(ctx)
	default:
		return ErrInvalidStrategy.WrapMessage(strategy.String())
	}
}

// fetchData retrieves data shards only, and fails on the first missing one
func (d *ParityDecoder) fetchData(ctx context.Context) error {
	missing, _ := missingShards(d.buf, d.addrs, d.shardCnt)
	if len(missing) == 0 {
		return nil
	}
	found, err := d.getter.GetMany(ctx, missing, chunkstore.ReturnAfterFailed(1))
	fillShards(d.buf, d.addrs, found)
	if lacking := d.shardCnt - availableShards(d.buf, d.shardCnt); lacking > 0 {
		if err != nil {
			return ErrStrategyFailed.Wrap(err)
		}
		return ErrStrategyFailed.WrapMessage("%d data shards missing", lacking)
	}
	return nil
}

// race retrieves data and parity shards, until enough are available to decode
func (d *ParityDecoder) race(ctx context.Context) error {
	need := d.shardCnt - availableShards(d.buf, len(d.addrs))
	if need > 0 {
		missing, empty := missingShards(d.buf, d.addrs, len(d.addrs))
		found, err := d.getter.GetMany(ctx, missing, raceOptions(need, empty, len(missing))...)
		fillShards(d.buf, d.addrs, found)
		if available := availableShards(d.buf, len(d.addrs)); available < d.shardCnt {
			if err != nil {
				return ErrStrategyFailed.Wrap(err)
			}
			return ErrStrategyFailed.WrapMessage("%d shards available, %d required", available, d.shardCnt)
		}
	}

	// reconstruction works on copies, so that a failure leaves the buffer untouched
	work := make([][]byte, len(d.buf))
	for i, shard := range d.buf {
		if shard != nil {
			work[i] = append([]byte(nil), shard...)
		}
	}
	recovered, err := reconstruct(work, d.addrs, d.shardCnt, d.parityCnt, d.encrypted)
	if err != nil {
		return err
	}
	if err = persist(ctx, d.putter, recovered); err != nil {
		return err
	}
	for i := 0; i < d.shardCnt; i++ {
		d.buf[i] = work[i]
	}
	if d.MetricsEnabled() {
		d.m.Chunks.Recover(len(recovered), "decode")
	}
	d.l.Debug("recovered data shards", zap.Int("recovered", len(recovered)), zap.Int("shards", d.shardCnt))

	return nil
}

// Shard returns the data chunk at some index, once recovered
func (d *ParityDecoder) Shard(i int) (*swarm.Chunk, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if i < 0 || i >= d.shardCnt {
		return nil, ErrInconsistentParent.WrapMessage("no data shard %d", i)
	}
	if d.buf[i] == nil {
		return nil, ErrNotEnoughShards.WrapMessage("shard %d not available", i)
	}
	return swarm.NewChunk(d.addrs[i], TrimChunkData(d.buf[i], d.encrypted)), nil
}

// Chunks returns all data chunks, once recovered
func (d *ParityDecoder) Chunks() ([]*swarm.Chunk, error) {
	chunks := make([]*swarm.Chunk, 0, d.shardCnt)
	for i := 0; i < d.shardCnt; i++ {
		ch, err := d.Shard(i)
		if err != nil {
			return nil, err
		}
		chunks = append(chunks, ch)
	}
	return chunks, nil
}
