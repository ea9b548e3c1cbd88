package pipeline

import (
	"github.com/oneconcern/swarmtrie/pkg/bmt"
	"github.com/oneconcern/swarmtrie/pkg/swarm"
)

type bmtWriter struct {
	pool *bmt.Pool
	next ChainWriter
}

// newBmtWriter hashes chunk data to compute the chunk address
func newBmtWriter(pool *bmt.Pool, next ChainWriter) ChainWriter {
	if pool == nil {
		pool = bmt.DefaultPool()
	}
	return &bmtWriter{pool: pool, next: next}
}

func (w *bmtWriter) ChainWrite(p *PipeWriteArgs) error {
	if len(p.Data) < swarm.SpanSize {
		return swarm.ErrInvalidChunk
	}
	addr, err := w.pool.Sum(p.Data[:swarm.SpanSize], p.Data[swarm.SpanSize:])
	if err != nil {
		return err
	}
	p.Ref = addr.Bytes()
	return w.next.ChainWrite(p)
}

func (w *bmtWriter) Sum() ([]byte, error) {
	return w.next.Sum()
}
