package cafs

import (
	"context"
	"io"

	"github.com/oneconcern/swarmtrie/pkg/joiner"
	"github.com/oneconcern/swarmtrie/pkg/swarm"
)

// Reader reads back some content
type Reader interface {
	io.ReadSeeker
	io.ReaderAt
	io.Closer
	Size() int64
}

var _ Reader = &joiner.ChunkDataStream{}

func (d *defaultFs) reader(ctx context.Context, ref swarm.Reference) (Reader, error) {
	return joiner.New(ctx, d.store, ref, d.joinerOptions()...)
}
