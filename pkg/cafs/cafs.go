package cafs

import (
	"context"
	"io"
	"time"

	"github.com/oneconcern/swarmtrie/pkg/chunkstore"
	"github.com/oneconcern/swarmtrie/pkg/chunkstore/status"
	"github.com/oneconcern/swarmtrie/pkg/dlogger"
	"github.com/oneconcern/swarmtrie/pkg/errors"
	"github.com/oneconcern/swarmtrie/pkg/joiner"
	"github.com/oneconcern/swarmtrie/pkg/metrics"
	"github.com/oneconcern/swarmtrie/pkg/pipeline"
	"github.com/oneconcern/swarmtrie/pkg/postage"
	"github.com/oneconcern/swarmtrie/pkg/redundancy"
	"github.com/oneconcern/swarmtrie/pkg/replicas"
	"github.com/oneconcern/swarmtrie/pkg/storage"
	"github.com/oneconcern/swarmtrie/pkg/swarm"
	"github.com/oneconcern/swarmtrie/pkg/traversal"
	"go.uber.org/zap"
)

// PutRes holds the result from a Put operation
type PutRes struct {
	Written int64           // bytes written
	Ref     swarm.Reference // the reference of the root chunk
	Session string          // the id of the upload session, as logged
	Found   bool            // the root chunk was already stored
}

// RepairRes holds the result from a Repair operation
type RepairRes struct {
	Recovered int             // number of chunks restored in the store
	Missing   []swarm.Address // chunks which could not be restored
}

// Fs implementations provide content-addressable filesystem operations
type Fs interface {
	Put(context.Context, io.Reader) (PutRes, error)
	Get(context.Context, swarm.Reference) (io.ReadCloser, error)
	GetAt(context.Context, swarm.Reference) (Reader, error)
	Has(context.Context, swarm.Reference, ...HasOption) (bool, []swarm.Address, error)
	Delete(context.Context, swarm.Reference) error
	Pin(context.Context, swarm.Reference) error
	Unpin(context.Context, swarm.Reference) error
	Pins(context.Context) ([]swarm.Address, error)
	Traverse(context.Context, swarm.Reference, traversal.Callbacks) error
	Repair(context.Context, swarm.Reference) (RepairRes, error)

	ManifestAdd(context.Context, swarm.Reference, ...ManifestEntry) (swarm.Reference, error)
	ManifestRemove(context.Context, swarm.Reference, ...string) (swarm.Reference, error)
	ManifestLookup(context.Context, swarm.Reference, string) (ManifestEntry, error)
	ManifestList(context.Context, swarm.Reference, string) ([]ManifestEntry, error)
}

var _ Fs = &defaultFs{}

func defaultsForFs() *defaultFs {
	return &defaultFs{
		level:             redundancy.NONE,
		strategy:          redundancy.DefaultStrategy,
		timeout:           redundancy.DefaultStrategyTimeout,
		stamper:           postage.NoopStamper{},
		concurrentFlushes: pipeline.DefaultConcurrency,
		decoderCacheSize:  joiner.DefaultDecoderCacheSize,
		l:                 dlogger.MustGetLogger("info"),
	}
}

// New creates a new instance of a content-addressable file system
func New(opts ...Option) (Fs, error) {
	f := defaultsForFs()
	for _, apply := range opts {
		apply(f)
	}

	if err := f.level.Validate(); err != nil {
		return nil, err
	}

	if f.store == nil {
		if f.backend == nil {
			f.store = chunkstore.NewInMemory(chunkstore.WithLogger(f.l))
		} else {
			var err error
			f.store, err = chunkstore.New(f.backend, chunkstore.WithLogger(f.l), chunkstore.WithMetrics(f.MetricsEnabled()))
			if err != nil {
				return nil, err
			}
		}
	}

	if f.MetricsEnabled() {
		f.m = f.EnsureMetrics("cafs", &M{}).(*M)
	}

	return f, nil
}

type defaultFs struct {
	backend storage.Store
	store   chunkstore.Store
	l       *zap.Logger

	// upload options
	encrypt           bool
	level             redundancy.Level
	stamper           postage.Stamper
	pin               bool
	concurrentFlushes int
	compactLevel      int

	// retrieval options
	strategy         redundancy.Strategy
	fallback         bool
	timeout          time.Duration
	decoderCacheSize int

	metrics.Enable
	m *M
}

func (d *defaultFs) pipelineOptions() []pipeline.Option {
	return []pipeline.Option{
		pipeline.WithStamper(d.stamper),
		pipeline.WithPin(d.pin),
		pipeline.WithConcurrency(d.concurrentFlushes),
		pipeline.WithLogger(d.l),
	}
}

func (d *defaultFs) joinerOptions() []joiner.Option {
	return []joiner.Option{
		joiner.WithStrategy(d.strategy),
		joiner.WithFallback(d.fallback),
		joiner.WithFetchTimeout(d.timeout),
		joiner.WithDecoderCacheSize(d.decoderCacheSize),
		joiner.WithPutter(d.store),
		joiner.WithLogger(d.l),
		joiner.WithMetrics(d.MetricsEnabled()),
	}
}

func (d *defaultFs) traverser() *traversal.Traverser {
	return traversal.New(d.store, traversal.WithLogger(d.l), traversal.WithJoinerOptions(d.joinerOptions()...))
}

func (d *defaultFs) Put(ctx context.Context, src io.Reader) (PutRes, error) {
	var (
		err     error
		written int64
		empty   PutRes
	)

	d.l.Debug("Start cafs Put")
	defer func(t0 time.Time) {
		if d.MetricsEnabled() {
			d.m.Usage.UsedAll(t0, "Put")(err)
			d.m.Volume.IO.IORecord(t0, "Put")(written, err)
		}
		d.l.Debug("End cafs Put")
	}(time.Now())

	w := d.writer(ctx)

	written, err = io.Copy(w, src)
	if err != nil {
		_ = w.Close()
		return empty, err
	}

	ref, err := w.Flush()
	if err != nil {
		_ = w.Close()
		return empty, err
	}

	if err = w.Close(); err != nil {
		return empty, err
	}

	found := w.existing.existed(ref.Address())
	if d.MetricsEnabled() {
		if found {
			d.m.Volume.Chunks.IncDuplicate("Put")
		} else {
			d.m.Volume.Chunks.IncRoot("Put")
		}
	}

	return PutRes{
		Written: written,
		Ref:     ref,
		Session: w.session.String(),
		Found:   found,
	}, nil
}

func (d *defaultFs) Get(ctx context.Context, ref swarm.Reference) (io.ReadCloser, error) {
	var err error

	d.l.Debug("Start cafs Get")
	defer func(t0 time.Time) {
		if d.MetricsEnabled() {
			d.m.Usage.UsedAll(t0, "Get")(err)
		}
		d.l.Debug("End cafs Get")
	}(time.Now())

	r, err := d.reader(ctx, ref)
	return r, err
}

func (d *defaultFs) GetAt(ctx context.Context, ref swarm.Reference) (Reader, error) {
	var err error

	d.l.Debug("Start cafs GetAt")
	defer func(t0 time.Time) {
		if d.MetricsEnabled() {
			d.m.Usage.UsedAll(t0, "GetAt")(err)
		}
		d.l.Debug("End cafs GetAt")
	}(time.Now())

	r, err := d.reader(ctx, ref)
	return r, err
}

// Has tells if the root chunk of some content is stored.
//
// With HasGatherIncomplete, all chunks are checked and the missing ones returned.
func (d *defaultFs) Has(ctx context.Context, ref swarm.Reference, cfgs ...HasOption) (bool, []swarm.Address, error) {
	var (
		opts hasOpts
		err  error
	)

	d.l.Debug("Start cafs Has")
	defer func(t0 time.Time) {
		if d.MetricsEnabled() {
			d.m.Usage.UsedAll(t0, "Has")(err)
		}
		d.l.Debug("End cafs Has")
	}(time.Now())

	for _, apply := range cfgs {
		apply(&opts)
	}

	if err = ref.Validate(); err != nil {
		return false, nil, err
	}

	has, err := d.store.Has(ctx, ref.Address())
	if err != nil {
		return false, nil, err
	}
	if !has || !opts.GatherIncomplete {
		return has, nil, nil
	}

	var missing []swarm.Address
	err = d.traverser().Traverse(ctx, ref, traversal.Callbacks{
		OnInvalid: func(addr swarm.Address, _ error) {
			missing = append(missing, addr)
		},
		OnNotFound: func(addr swarm.Address) {
			missing = append(missing, addr)
		},
	})
	if err != nil {
		return false, nil, err
	}
	if d.MetricsEnabled() {
		d.m.Volume.Chunks.Missing(len(missing), "Has")
	}
	return true, missing, nil
}

// forEachChunk applies some operation on every stored chunk of some content
func (d *defaultFs) forEachChunk(ctx context.Context, ref swarm.Reference, operation string, fn func(swarm.Address) error) error {
	visited := 0
	err := d.traverser().Traverse(ctx, ref, traversal.Callbacks{
		OnFound: func(v traversal.Visit) error {
			visited++
			return fn(v.Address)
		},
		OnNotFound: func(addr swarm.Address) {
			d.l.Warn("chunk not found", zap.String("operation", operation), zap.Stringer("address", addr), zap.Stringer("reference", ref))
		},
		OnInvalid: func(addr swarm.Address, err error) {
			d.l.Warn("invalid chunk", zap.String("operation", operation), zap.Stringer("address", addr), zap.Error(err))
		},
	})
	if d.MetricsEnabled() {
		d.m.Volume.Chunks.Visited(visited, operation)
	}
	return err
}

// Delete all the chunks of some content, including root replicas
func (d *defaultFs) Delete(ctx context.Context, ref swarm.Reference) error {
	var err error

	d.l.Debug("Start cafs Delete")
	defer func(t0 time.Time) {
		if d.MetricsEnabled() {
			d.m.Usage.UsedAll(t0, "Delete")(err)
		}
		d.l.Debug("End cafs Delete")
	}(time.Now())

	var chunks []swarm.Address
	err = d.forEachChunk(ctx, ref, "Delete", func(addr swarm.Address) error {
		chunks = append(chunks, addr)
		return nil
	})
	if err != nil {
		return err
	}

	// the level of a missing or encrypted root is unknown: replicas of all levels are removed
	seen := make(map[swarm.Address]struct{})
	for level := redundancy.MEDIUM; level <= redundancy.PARANOID; level++ {
		for _, h := range replicas.GenerateReplicaHeaders(ref.Address(), level) {
			if _, ok := seen[h.Address]; ok {
				continue
			}
			seen[h.Address] = struct{}{}
			chunks = append(chunks, h.Address)
		}
	}

	for _, addr := range chunks {
		if err = d.store.Delete(ctx, addr); err != nil {
			return err
		}
	}
	return nil
}

// Pin all the chunks of some content
func (d *defaultFs) Pin(ctx context.Context, ref swarm.Reference) error {
	var err error

	d.l.Debug("Start cafs Pin")
	defer func(t0 time.Time) {
		if d.MetricsEnabled() {
			d.m.Usage.UsedAll(t0, "Pin")(err)
		}
		d.l.Debug("End cafs Pin")
	}(time.Now())

	err = d.forEachChunk(ctx, ref, "Pin", func(addr swarm.Address) error {
		ch, gerr := d.store.Get(ctx, addr)
		if gerr != nil {
			return gerr
		}
		return d.store.Put(ctx, ch, chunkstore.Pin(true))
	})
	return err
}

// Unpin all the chunks of some content
func (d *defaultFs) Unpin(ctx context.Context, ref swarm.Reference) error {
	var err error

	d.l.Debug("Start cafs Unpin")
	defer func(t0 time.Time) {
		if d.MetricsEnabled() {
			d.m.Usage.UsedAll(t0, "Unpin")(err)
		}
		d.l.Debug("End cafs Unpin")
	}(time.Now())

	err = d.forEachChunk(ctx, ref, "Unpin", func(addr swarm.Address) error {
		return d.store.Unpin(ctx, addr)
	})
	return err
}

// Pins lists pinned chunks
func (d *defaultFs) Pins(ctx context.Context) ([]swarm.Address, error) {
	var err error

	d.l.Debug("Start cafs Pins")
	defer func(t0 time.Time) {
		if d.MetricsEnabled() {
			d.m.Usage.UsedAll(t0, "Pins")(err)
		}
		d.l.Debug("End cafs Pins")
	}(time.Now())

	pins, err := d.store.Pins(ctx)
	return pins, err
}

func (d *defaultFs) Traverse(ctx context.Context, ref swarm.Reference, cb traversal.Callbacks) error {
	var err error

	d.l.Debug("Start cafs Traverse")
	defer func(t0 time.Time) {
		if d.MetricsEnabled() {
			d.m.Usage.UsedAll(t0, "Traverse")(err)
		}
		d.l.Debug("End cafs Traverse")
	}(time.Now())

	err = d.traverser().Traverse(ctx, ref, cb)
	return err
}

// Repair restores missing chunks of some content: the root from its replicas,
// data chunks from the parities of their parent.
//
// Parents are visited before their children, so that recovered chunks are visited too.
func (d *defaultFs) Repair(ctx context.Context, ref swarm.Reference) (RepairRes, error) {
	var (
		err error
		res RepairRes
	)

	d.l.Debug("Start cafs Repair")
	defer func(t0 time.Time) {
		if d.MetricsEnabled() {
			d.m.Usage.UsedAll(t0, "Repair")(err)
			d.m.Volume.Chunks.Repaired(res.Recovered, "Repair")
			d.m.Volume.Chunks.Missing(len(res.Missing), "Repair")
		}
		d.l.Debug("End cafs Repair")
	}(time.Now())

	if err = ref.Validate(); err != nil {
		return res, err
	}

	restored, err := d.repairRoot(ctx, ref)
	if err != nil {
		return res, err
	}
	if restored {
		res.Recovered++
	}

	err = d.traverser().Traverse(ctx, ref, traversal.Callbacks{
		OnFound: func(v traversal.Visit) error {
			if v.Kind != traversal.KindIntermediate {
				return nil
			}
			n, rerr := d.repairChildren(ctx, v, ref.IsEncrypted())
			res.Recovered += n
			return rerr
		},
		OnInvalid: func(addr swarm.Address, _ error) {
			res.Missing = append(res.Missing, addr)
		},
		OnNotFound: func(addr swarm.Address) {
			res.Missing = append(res.Missing, addr)
		},
	})
	return res, err
}

func (d *defaultFs) repairRoot(ctx context.Context, ref swarm.Reference) (bool, error) {
	has, err := d.store.Has(ctx, ref.Address())
	if err != nil || has {
		return false, err
	}

	ch, err := replicas.NewGetter(d.store, redundancy.PARANOID, d.l).Get(ctx, ref.Address())
	if err != nil {
		if errors.Is(err, status.ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	d.l.Info("root chunk restored from replicas", zap.Stringer("reference", ref))
	return true, d.store.Put(ctx, ch, chunkstore.Pin(d.pin))
}

// repairChildren recovers the missing data children of an intermediate chunk
func (d *defaultFs) repairChildren(ctx context.Context, parent traversal.Visit, encrypted bool) (int, error) {
	shards, err := redundancy.ParseShards(parent.Data, encrypted)
	if err != nil || len(shards.Parities) == 0 {
		return 0, nil
	}

	missing := 0
	for _, r := range shards.Data {
		has, herr := d.store.Has(ctx, r.Address())
		if herr != nil {
			return 0, herr
		}
		if !has {
			missing++
		}
	}
	if missing == 0 {
		return 0, nil
	}

	dec, err := redundancy.NewParityDecoderFromShards(d.store, shards, encrypted,
		redundancy.WithStrategy(redundancy.StrategyRace),
		redundancy.WithFetchTimeout(d.timeout),
		redundancy.WithPutter(d.store),
		redundancy.WithLogger(d.l),
		redundancy.WithMetrics(d.MetricsEnabled()),
	)
	if err != nil {
		return 0, err
	}
	if err = dec.TryRecover(ctx); err != nil {
		d.l.Warn("could not repair chunks", zap.Stringer("parent", parent.Address), zap.Int("missing", missing), zap.Error(err))
		return 0, nil
	}
	d.l.Info("chunks repaired", zap.Stringer("parent", parent.Address), zap.Int("recovered", missing))
	return missing, nil
}
