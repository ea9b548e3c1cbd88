package cafs

import (
	"context"
	"io"
	"sync"

	"github.com/oneconcern/swarmtrie/pkg/chunkstore"
	"github.com/oneconcern/swarmtrie/pkg/errors"
	"github.com/oneconcern/swarmtrie/pkg/pipeline"
	"github.com/oneconcern/swarmtrie/pkg/swarm"
	"github.com/segmentio/ksuid"
	"go.uber.org/zap"
)

// ErrWriterClosed is returned when writing to a flushed or closed writer
var ErrWriterClosed = errors.New("writer is closed")

// Writer interface for a content addressable FS
type Writer interface {
	io.WriteCloser
	Flush() (swarm.Reference, error)
}

type fsWriter struct {
	session  ksuid.KSUID
	pipeline pipeline.Interface
	existing *existingTracker
	written  int64
	closed   bool
	l        *zap.Logger
}

func (d *defaultFs) writer(ctx context.Context) *fsWriter {
	session := ksuid.New()
	existing := &existingTracker{putter: d.store, has: d.store, found: make(map[swarm.Address]bool)}
	return &fsWriter{
		session:  session,
		existing: existing,
		pipeline: pipeline.NewPipelineBuilder(ctx, existing, d.encrypt, d.level, d.pipelineOptions()...),
		l:        d.l.With(zap.Stringer("session", session)),
	}
}

func (w *fsWriter) Write(p []byte) (int, error) {
	if w.closed {
		return 0, ErrWriterClosed
	}
	n, err := w.pipeline.Write(p)
	w.written += int64(n)
	return n, err
}

// Flush the remaining content and return the reference of the root chunk
func (w *fsWriter) Flush() (swarm.Reference, error) {
	if w.closed {
		return nil, ErrWriterClosed
	}
	w.closed = true

	sum, err := w.pipeline.Sum()
	if err != nil {
		return nil, err
	}
	ref := swarm.Reference(sum)
	w.l.Debug("cafs content flushed", zap.Int64("written", w.written), zap.Stringer("reference", ref))
	return ref, nil
}

func (w *fsWriter) Close() error {
	w.closed = true
	return nil
}

// existingTracker tells which chunks were already stored before being put
type existingTracker struct {
	putter chunkstore.Putter
	has    interface {
		Has(context.Context, swarm.Address) (bool, error)
	}

	mu    sync.Mutex
	found map[swarm.Address]bool
}

func (e *existingTracker) Put(ctx context.Context, ch *swarm.Chunk, opts ...chunkstore.PutOption) error {
	found, err := e.has.Has(ctx, ch.Address())
	if err != nil {
		return err
	}
	e.mu.Lock()
	if _, ok := e.found[ch.Address()]; !ok {
		e.found[ch.Address()] = found
	}
	e.mu.Unlock()
	return e.putter.Put(ctx, ch, opts...)
}

func (e *existingTracker) existed(addr swarm.Address) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.found[addr]
}
