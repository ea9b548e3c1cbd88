package pipeline

import (
	"github.com/oneconcern/swarmtrie/pkg/swarm"
)

// chunkFeeder slices content into leaf chunks
type chunkFeeder struct {
	size      int
	next      ChainWriter
	buffer    []byte
	bufferIdx int
	wrote     int64
	seq       uint64
}

// newChunkFeederWriter builds a feeder of chunks of some payload size
func newChunkFeederWriter(size int, next ChainWriter) Interface {
	return &chunkFeeder{
		size:   size,
		next:   next,
		buffer: make([]byte, size),
	}
}

// Write slices the input into chunks, and keeps the remainder for the next write
func (f *chunkFeeder) Write(b []byte) (int, error) {
	l := len(b)
	w := 0

	for w < l {
		n := copy(f.buffer[f.bufferIdx:], b[w:])
		f.bufferIdx += n
		w += n

		if f.bufferIdx == f.size {
			if err := f.flush(); err != nil {
				return w, err
			}
		}
	}
	return w, nil
}

func (f *chunkFeeder) flush() error {
	data := make([]byte, swarm.SpanSize+f.bufferIdx)
	span := swarm.NewSpan(uint64(f.bufferIdx))
	copy(data, span)
	copy(data[swarm.SpanSize:], f.buffer[:f.bufferIdx])

	args := &PipeWriteArgs{Span: span, Data: data, seq: f.seq}
	f.seq++
	f.wrote += int64(f.bufferIdx)
	f.bufferIdx = 0

	return f.next.ChainWrite(args)
}

// Sum flushes the remaining content, and returns the root reference.
//
// Empty content is represented by a single empty chunk.
func (f *chunkFeeder) Sum() ([]byte, error) {
	if f.bufferIdx != 0 || f.seq == 0 {
		if err := f.flush(); err != nil {
			return nil, err
		}
	}
	return f.next.Sum()
}
