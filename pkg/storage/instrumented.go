// Copyright © 2018 One Concern

package storage

import (
	"context"
	"io"
	"time"

	"github.com/oneconcern/swarmtrie/pkg/metrics"
	"go.uber.org/zap"
)

// M describes the metrics collected on a storage backend
type M struct {
	Usage metrics.UsageMetrics `group:"usage"`
	IO    metrics.IOMetrics    `group:"io"`
}

// Instrument decorates a store with debug logging and metrics
func Instrument(l *zap.Logger, store Store) Store {
	return &instrumentedStore{
		store: store,
		l:     l.With(zap.String("storage", store.String())),
		m:     metrics.EnsureMetrics("storage", &M{}).(*M),
	}
}

type instrumentedStore struct {
	store Store
	l     *zap.Logger
	m     *M
}

func (i *instrumentedStore) Has(ctx context.Context, key string) (has bool, err error) {
	defer func(t0 time.Time) { i.m.Usage.UsedAll(t0, "Has")(err) }(time.Now())
	i.l.Debug("storage has", zap.String("key", key))

	return i.store.Has(ctx, key)
}

func (i *instrumentedStore) Get(ctx context.Context, key string) (rdr io.ReadCloser, err error) {
	defer func(t0 time.Time) { i.m.IO.IORecord(t0, "Get")(0, err) }(time.Now())
	i.l.Debug("storage get", zap.String("key", key))

	return i.store.Get(ctx, key)
}

func (i *instrumentedStore) Put(ctx context.Context, key string, rdr io.Reader, exclusive bool) (err error) {
	cr := &countingReader{r: rdr}
	defer func(t0 time.Time) { i.m.IO.IORecord(t0, "Put")(cr.n, err) }(time.Now())
	i.l.Debug("storage put", zap.String("key", key))

	return i.store.Put(ctx, key, cr, exclusive)
}

func (i *instrumentedStore) Delete(ctx context.Context, key string) (err error) {
	defer func(t0 time.Time) { i.m.Usage.UsedAll(t0, "Delete")(err) }(time.Now())
	i.l.Debug("storage delete", zap.String("key", key))

	return i.store.Delete(ctx, key)
}

func (i *instrumentedStore) Keys(ctx context.Context) (keys []string, err error) {
	defer func(t0 time.Time) { i.m.Usage.UsedAll(t0, "Keys")(err) }(time.Now())
	i.l.Debug("storage keys")

	return i.store.Keys(ctx)
}

func (i *instrumentedStore) Clear(ctx context.Context) (err error) {
	defer func(t0 time.Time) { i.m.Usage.UsedAll(t0, "Clear")(err) }(time.Now())
	i.l.Debug("storage clear")

	return i.store.Clear(ctx)
}

func (i *instrumentedStore) String() string {
	return i.store.String()
}

type countingReader struct {
	r io.Reader
	n int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += int64(n)
	return n, err
}
