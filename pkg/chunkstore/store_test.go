package chunkstore

import (
	"bytes"
	"context"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/oneconcern/swarmtrie/internal/rand"
	"github.com/oneconcern/swarmtrie/pkg/cac"
	"github.com/oneconcern/swarmtrie/pkg/chunkstore/status"
	"github.com/oneconcern/swarmtrie/pkg/errors"
	"github.com/oneconcern/swarmtrie/pkg/storage"
	"github.com/oneconcern/swarmtrie/pkg/storage/localfs"
	"github.com/oneconcern/swarmtrie/pkg/swarm"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func randomChunk(t testing.TB, size int) *swarm.Chunk {
	ch, err := cac.New(rand.Bytes(size))
	require.NoError(t, err)
	return ch
}

func TestPutGet(t *testing.T) {
	ctx := context.Background()
	s := NewInMemory()

	ch := randomChunk(t, 1000)
	require.NoError(t, s.Put(ctx, ch))

	has, err := s.Has(ctx, ch.Address())
	require.NoError(t, err)
	assert.True(t, has)

	got, err := s.Get(ctx, ch.Address())
	require.NoError(t, err)
	assert.Equal(t, ch.Data(), got.Data())

	_, err = s.Get(ctx, randomChunk(t, 10).Address())
	require.Error(t, err)
	assert.True(t, errors.Is(err, status.ErrNotFound))
	assert.Contains(t, s.String(), "localfs")
}

func TestPutIsIdempotent(t *testing.T) {
	ctx := context.Background()
	backend := localfs.New(afero.NewMemMapFs())
	s, err := New(backend, WithCacheSize(0))
	require.NoError(t, err)

	ch := randomChunk(t, 4096)
	require.NoError(t, s.Put(ctx, ch))
	keys, err := backend.Keys(ctx)
	require.NoError(t, err)
	require.Len(t, keys, 1)

	// overwrite the stored bytes: a second put must not write anything
	require.NoError(t, backend.Put(ctx, keys[0], bytes.NewReader([]byte("marker")), storage.OverWrite))
	require.NoError(t, s.Put(ctx, ch))

	b, err := storage.ReadAll(ctx, backend, keys[0])
	require.NoError(t, err)
	assert.Equal(t, "marker", string(b))

	// and the tampered chunk is rejected on read
	_, err = s.Get(ctx, ch.Address())
	require.Error(t, err)
	assert.True(t, errors.Is(err, status.ErrMalformedChunk))
}

func TestPinsAndStamps(t *testing.T) {
	ctx := context.Background()
	s := NewInMemory()

	pinned := randomChunk(t, 10).WithStamp([]byte("stamp"))
	other := randomChunk(t, 20)
	require.NoError(t, s.Put(ctx, pinned, Pin(true)))
	require.NoError(t, s.Put(ctx, other))

	pins, err := s.Pins(ctx)
	require.NoError(t, err)
	assert.Equal(t, []swarm.Address{pinned.Address()}, pins)

	stamp, err := s.Stamp(ctx, pinned.Address())
	require.NoError(t, err)
	assert.Equal(t, []byte("stamp"), stamp)

	_, err = s.Stamp(ctx, other.Address())
	assert.True(t, errors.Is(err, status.ErrNotFound))

	require.NoError(t, s.Unpin(ctx, pinned.Address()))
	pins, err = s.Pins(ctx)
	require.NoError(t, err)
	assert.Empty(t, pins)

	require.NoError(t, s.Delete(ctx, pinned.Address()))
	has, err := s.Has(ctx, pinned.Address())
	require.NoError(t, err)
	assert.False(t, has)
}

func TestGetMany(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreTopFunction("go.opencensus.io/stats/view.(*worker).start"))

	ctx := context.Background()
	s := NewInMemory(WithConcurrency(4), WithCacheSize(0))

	var addrs []swarm.Address
	for i := 0; i < 10; i++ {
		ch := randomChunk(t, 100+i)
		addrs = append(addrs, ch.Address())
		if i%3 == 0 {
			continue // missing
		}
		require.NoError(t, s.Put(ctx, ch))
	}

	res, err := s.GetMany(ctx, addrs)
	require.NoError(t, err)
	assert.Len(t, res, 6)

	res, err = s.GetMany(ctx, addrs, ReturnAfterSucceeded(2))
	require.NoError(t, err)
	assert.GreaterOrEqual(t, len(res), 2)

	res, err = s.GetMany(ctx, addrs[:1], ReturnAfterFailed(1))
	require.NoError(t, err)
	assert.Empty(t, res)

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	_, err = s.GetMany(cancelled, addrs)
	require.ErrorIs(t, err, context.Canceled)
}

func TestConcurrentGet(t *testing.T) {
	ctx := context.Background()
	s := NewInMemory(WithMetrics(true))
	ch := randomChunk(t, 2048)
	require.NoError(t, s.Put(ctx, ch, Pin(true)))

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			got, err := s.Get(ctx, ch.Address(), CanCache(false))
			assert.NoError(t, err)
			assert.Equal(t, ch.Address(), got.Address())
		}()
	}
	wg.Wait()
}

// gatedBackend holds reads until released, and honors cancellation meanwhile
type gatedBackend struct {
	storage.Store
	once    sync.Once
	started chan struct{}
	release chan struct{}
}

func (g *gatedBackend) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	g.once.Do(func() { close(g.started) })
	select {
	case <-g.release:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	return g.Store.Get(ctx, key)
}

func TestGetJoinedCallerOutlivesCancelledOne(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreTopFunction("go.opencensus.io/stats/view.(*worker).start"))

	ctx := context.Background()
	backend := &gatedBackend{
		Store:   localfs.New(afero.NewMemMapFs()),
		started: make(chan struct{}),
		release: make(chan struct{}),
	}
	s, err := New(backend, WithCacheSize(0))
	require.NoError(t, err)

	ch := randomChunk(t, 512)
	require.NoError(t, s.Put(ctx, ch))

	first, cancel := context.WithCancel(ctx)
	firstErr := make(chan error, 1)
	go func() {
		_, err := s.Get(first, ch.Address())
		firstErr <- err
	}()
	<-backend.started

	type result struct {
		ch  *swarm.Chunk
		err error
	}
	second := make(chan result, 1)
	go func() {
		got, err := s.Get(ctx, ch.Address())
		second <- result{ch: got, err: err}
	}()
	time.Sleep(20 * time.Millisecond)

	cancel()
	require.ErrorIs(t, <-firstErr, context.Canceled)

	close(backend.release)
	res := <-second
	require.NoError(t, res.err)
	assert.Equal(t, ch.Data(), res.ch.Data())
}

func TestPutInvalid(t *testing.T) {
	s := NewInMemory()
	err := s.Put(context.Background(), swarm.NewChunk(swarm.ZeroAddress, []byte{1}))
	require.Error(t, err)
	assert.True(t, errors.Is(err, status.ErrMalformedChunk))
}
