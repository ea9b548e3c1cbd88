package pipeline

import (
	"context"

	"github.com/oneconcern/swarmtrie/pkg/chunkstore"
	"github.com/oneconcern/swarmtrie/pkg/postage"
	"github.com/oneconcern/swarmtrie/pkg/swarm"
)

type storeWriter struct {
	ctx     context.Context
	putter  chunkstore.Putter
	stamper postage.Stamper
	pin     bool
	next    ChainWriter
}

// newStoreWriter stamps and stores chunks. next may be nil.
func newStoreWriter(ctx context.Context, putter chunkstore.Putter, stamper postage.Stamper, pin bool, next ChainWriter) ChainWriter {
	return &storeWriter{ctx: ctx, putter: putter, stamper: stamper, pin: pin, next: next}
}

func (w *storeWriter) ChainWrite(p *PipeWriteArgs) error {
	addr, err := swarm.NewAddress(p.Ref)
	if err != nil {
		return err
	}
	ch := swarm.NewChunk(addr, p.Data)

	if w.stamper != nil {
		stamp, err := w.stamper.Stamp(addr)
		if err != nil {
			return err
		}
		if stamp != nil {
			buf, err := stamp.MarshalBinary()
			if err != nil {
				return err
			}
			ch = ch.WithStamp(buf)
		}
	}

	if err = w.putter.Put(w.ctx, ch, chunkstore.Pin(w.pin)); err != nil {
		return err
	}
	if w.next == nil {
		return nil
	}
	return w.next.ChainWrite(p)
}

func (w *storeWriter) Sum() ([]byte, error) {
	if w.next == nil {
		return nil, nil
	}
	return w.next.Sum()
}
