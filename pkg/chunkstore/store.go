package chunkstore

import (
	"bytes"
	"context"
	"strings"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	lru "github.com/hashicorp/golang-lru"
	"github.com/oneconcern/swarmtrie/pkg/cac"
	"github.com/oneconcern/swarmtrie/pkg/chunkstore/status"
	"github.com/oneconcern/swarmtrie/pkg/errors"
	"github.com/oneconcern/swarmtrie/pkg/metrics"
	"github.com/oneconcern/swarmtrie/pkg/soc"
	"github.com/oneconcern/swarmtrie/pkg/storage"
	"github.com/oneconcern/swarmtrie/pkg/storage/localfs"
	storagestatus "github.com/oneconcern/swarmtrie/pkg/storage/status"
	"github.com/oneconcern/swarmtrie/pkg/swarm"
	"github.com/spf13/afero"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
)

const (
	chunksPrefix = "chunks/"
	stampsPrefix = "stamps/"
	pinsPrefix   = "pins/"
)

// M describes the metrics collected by the chunk store
type M struct {
	Usage  metrics.UsageMetrics `group:"usage"`
	Chunks metrics.ChunkMetrics `group:"chunks"`
}

var _ Store = &store{}

type store struct {
	backend     storage.Store
	l           *zap.Logger
	cache       *lru.Cache
	cacheSize   int
	group       singleflight.Group
	verify      bool
	retry       bool
	concurrency int

	metrics.Enable
	m *M
}

func defaultsForStore() *store {
	return &store{
		l:           zap.NewNop(),
		cacheSize:   DefaultCacheSize,
		verify:      true,
		retry:       true,
		concurrency: DefaultConcurrency,
	}
}

// New builds a chunk store on top of a storage backend
func New(backend storage.Store, opts ...Option) (Store, error) {
	s := defaultsForStore()
	s.backend = backend
	for _, apply := range opts {
		apply(s)
	}

	if entries := s.cacheSize / swarm.ChunkWithSpanSize; entries > 0 {
		var err error
		s.cache, err = lru.New(entries)
		if err != nil {
			return nil, err
		}
	}

	if s.MetricsEnabled() {
		s.m = s.EnsureMetrics("chunkstore", &M{}).(*M)
	}

	return s, nil
}

// NewInMemory builds a chunk store backed by an in-memory file system
func NewInMemory(opts ...Option) Store {
	s, err := New(localfs.New(afero.NewMemMapFs()), opts...)
	if err != nil {
		panic(err)
	}
	return s
}

func chunkKey(addr swarm.Address) string {
	h := addr.String()
	return chunksPrefix + h[:2] + "/" + h
}

func (s *store) String() string {
	return "chunkstore@" + s.backend.String()
}

func (s *store) Has(ctx context.Context, addr swarm.Address) (bool, error) {
	if s.cache != nil && s.cache.Contains(addr) {
		return true, nil
	}
	return s.backend.Has(ctx, chunkKey(addr))
}

func (s *store) Get(ctx context.Context, addr swarm.Address, opts ...GetOption) (*swarm.Chunk, error) {
	o := &getOptions{canCache: true}
	for _, apply := range opts {
		apply(o)
	}

	if s.cache != nil {
		if v, ok := s.cache.Get(addr); ok {
			return v.(*swarm.Chunk), nil
		}
	}

	// callers joined on a flight only give up on their own context
	readCtx := context.WithoutCancel(ctx)
	flight := s.group.DoChan(addr.String(), func() (interface{}, error) {
		return s.read(readCtx, addr)
	})

	var res singleflight.Result
	select {
	case res = <-flight:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	if res.Err != nil {
		if s.MetricsEnabled() && errors.Is(res.Err, status.ErrNotFound) {
			s.m.Chunks.Miss("get")
		}
		return nil, res.Err
	}
	ch := res.Val.(*swarm.Chunk)

	if o.canCache && s.cache != nil {
		s.cache.Add(addr, ch)
	}
	if s.MetricsEnabled() {
		s.m.Chunks.Inc(len(ch.Data()), "get")
	}
	return ch, nil
}

func (s *store) read(ctx context.Context, addr swarm.Address) (*swarm.Chunk, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := storage.ReadAll(ctx, s.backend, chunkKey(addr))
	if err != nil {
		if errors.Is(err, storagestatus.ErrNotExists) {
			return nil, status.ErrNotFound.WrapMessage(addr.String())
		}
		return nil, err
	}

	ch := swarm.NewChunk(addr, data)
	if s.verify && !cac.Valid(ch) && !soc.Valid(ch) {
		s.l.Warn("chunk does not match its address", zap.Stringer("address", addr))
		return nil, status.ErrMalformedChunk.WrapMessage(addr.String())
	}
	return ch, nil
}

// GetMany retrieves chunks concurrently.
//
// Chunks that cannot be retrieved are absent from the result. Fetching stops
// early when enough chunks have succeeded or failed, as set by the options.
func (s *store) GetMany(ctx context.Context, addrs []swarm.Address, opts ...GetManyOption) (map[swarm.Address]*swarm.Chunk, error) {
	o := &getManyOptions{canCache: true}
	for _, apply := range opts {
		apply(o)
	}

	fetchCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	var (
		mx        sync.Mutex
		succeeded int
		failed    int
		res       = make(map[swarm.Address]*swarm.Chunk, len(addrs))
	)

	var g errgroup.Group
	g.SetLimit(s.concurrency)

	for _, addr := range addrs {
		if fetchCtx.Err() != nil {
			break
		}
		addr := addr
		g.Go(func() error {
			ch, err := s.Get(fetchCtx, addr, CanCache(o.canCache))

			mx.Lock()
			defer mx.Unlock()

			if err != nil {
				failed++
				s.l.Debug("chunk fetch failed", zap.Stringer("address", addr), zap.Error(err))
				if o.returnAfterFailed > 0 && failed >= o.returnAfterFailed {
					cancel()
				}
				return nil
			}

			res[addr] = ch
			succeeded++
			if o.returnAfterSucceeded > 0 && succeeded >= o.returnAfterSucceeded {
				cancel()
			}
			return nil
		})
	}
	_ = g.Wait()

	return res, ctx.Err()
}

func (s *store) Put(ctx context.Context, ch *swarm.Chunk, opts ...PutOption) (err error) {
	o := &putOptions{}
	for _, apply := range opts {
		apply(o)
	}

	defer func(t0 time.Time) {
		if s.MetricsEnabled() {
			s.m.Usage.UsedAll(t0, "Put")(err)
		}
	}(time.Now())

	if err = ch.Validate(); err != nil {
		return status.ErrMalformedChunk.Wrap(err)
	}

	addr := ch.Address()
	found, err := s.backend.Has(ctx, chunkKey(addr))
	if err != nil {
		return err
	}

	if !found {
		if err = s.write(ctx, chunkKey(addr), ch.Data()); err != nil {
			return err
		}
		if s.MetricsEnabled() {
			s.m.Chunks.Inc(len(ch.Data()), "put")
		}
	}

	if stamp := ch.Stamp(); len(stamp) > 0 {
		if err = s.write(ctx, stampsPrefix+addr.String(), stamp); err != nil {
			return err
		}
	}

	if o.pin {
		if err = s.write(ctx, pinsPrefix+addr.String(), []byte{1}); err != nil {
			return err
		}
	}

	return nil
}

func (s *store) write(ctx context.Context, key string, content []byte) error {
	put := func() error {
		return s.backend.Put(ctx, key, bytes.NewReader(content), storage.OverWrite)
	}
	if !s.retry {
		return put()
	}

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = 10 * time.Millisecond
	bo.MaxElapsedTime = 2 * time.Second

	return backoff.RetryNotify(put, backoff.WithContext(bo, ctx), func(err error, d time.Duration) {
		s.l.Warn("retrying chunk store write", zap.String("key", key), zap.Duration("backoff", d), zap.Error(err))
	})
}

func (s *store) Delete(ctx context.Context, addr swarm.Address) error {
	if s.cache != nil {
		s.cache.Remove(addr)
	}
	if err := s.backend.Delete(ctx, stampsPrefix+addr.String()); err != nil {
		return err
	}
	if err := s.backend.Delete(ctx, pinsPrefix+addr.String()); err != nil {
		return err
	}
	return s.backend.Delete(ctx, chunkKey(addr))
}

func (s *store) Pins(ctx context.Context) ([]swarm.Address, error) {
	keys, err := s.backend.Keys(ctx)
	if err != nil {
		return nil, err
	}
	var pins []swarm.Address
	for _, key := range keys {
		if !strings.HasPrefix(key, pinsPrefix) {
			continue
		}
		addr, err := swarm.ParseHexAddress(strings.TrimPrefix(key, pinsPrefix))
		if err != nil {
			s.l.Warn("skipping invalid pin", zap.String("key", key))
			continue
		}
		pins = append(pins, addr)
	}
	return pins, nil
}

func (s *store) Unpin(ctx context.Context, addr swarm.Address) error {
	return s.backend.Delete(ctx, pinsPrefix+addr.String())
}

func (s *store) Stamp(ctx context.Context, addr swarm.Address) ([]byte, error) {
	stamp, err := storage.ReadAll(ctx, s.backend, stampsPrefix+addr.String())
	if err != nil {
		if errors.Is(err, storagestatus.ErrNotExists) {
			return nil, status.ErrNotFound.WrapMessage("stamp for %s", addr)
		}
		return nil, err
	}
	return stamp, nil
}
