package pipeline

import (
	"context"

	"github.com/oneconcern/swarmtrie/pkg/redundancy"
	"github.com/oneconcern/swarmtrie/pkg/replicas"
	"github.com/oneconcern/swarmtrie/pkg/swarm"
	"go.uber.org/zap"
)

const maxLevel = redundancy.MaxTrieLevels

// trieLevel accumulates the references of one level of the trie
type trieLevel struct {
	span       uint64
	dataRefs   []byte
	parityRefs []byte
	count      int
	parities   int
}

func (l *trieLevel) full(maxChildren int) bool {
	return l.count+l.parities == maxChildren
}

func (l *trieLevel) reset() {
	*l = trieLevel{dataRefs: l.dataRefs[:0], parityRefs: l.parityRefs[:0]}
}

// hashTrieWriter builds intermediate chunks from the references of their children.
//
// Level 1 holds references to leaf chunks, level i+1 references to the chunks
// wrapping level i. Whenever a level holds the maximum number of children, it
// is wrapped into a chunk referenced from the next level.
type hashTrieWriter struct {
	ctx         context.Context
	levels      [maxLevel + 1]trieLevel
	maxChildren int
	encrypted   bool
	params      redundancy.ParityGenerator
	pipeline    func() (ChainWriter, *PipeWriteArgs)
	replicas    *replicas.Putter
	l           *zap.Logger
}

func newHashTrieWriter(
	ctx context.Context,
	encrypted bool,
	params redundancy.ParityGenerator,
	pipeline func() (ChainWriter, *PipeWriteArgs),
	replicaPutter *replicas.Putter,
	l *zap.Logger,
) ChainWriter {
	return &hashTrieWriter{
		ctx:         ctx,
		maxChildren: params.Level().MaxChildren(encrypted),
		encrypted:   encrypted,
		params:      params,
		pipeline:    pipeline,
		replicas:    replicaPutter,
		l:           l,
	}
}

// ChainWrite appends a leaf chunk to level 1
func (h *hashTrieWriter) ChainWrite(p *PipeWriteArgs) error {
	if err := h.writeToIntermediateLevel(1, false, p.Span, p.Ref, p.Key); err != nil {
		return err
	}
	return h.params.ChunkWrite(0, p.Data, h.parityChunkFn)
}

func (h *hashTrieWriter) parityChunkFn(level int, span, ref []byte) error {
	return h.writeToIntermediateLevel(level, true, span, ref, nil)
}

func (h *hashTrieWriter) writeToIntermediateLevel(level int, parity bool, span, ref, key []byte) error {
	if level > maxLevel {
		return ErrTrieFull
	}
	l := &h.levels[level]
	if parity {
		l.parityRefs = append(l.parityRefs, ref...)
		l.parities++
	} else {
		length, _ := redundancy.DecodeSpanLevel(span)
		l.span += length
		l.dataRefs = append(l.dataRefs, ref...)
		l.dataRefs = append(l.dataRefs, key...)
		l.count++
	}

	if l.full(h.maxChildren) {
		return h.wrapFullLevel(level)
	}
	return nil
}

// wrapFullLevel builds the intermediate chunk of some level, and references it from the next level
func (h *hashTrieWriter) wrapFullLevel(level int) error {
	if level >= maxLevel {
		return ErrTrieFull
	}
	l := &h.levels[level]

	span := redundancy.EncodeSpanLevel(l.span, redundancy.NONE)
	if l.parities > 0 {
		redundancy.EncodeLevel(span, h.params.Level())
	}
	data := make([]byte, 0, swarm.SpanSize+len(l.dataRefs)+len(l.parityRefs))
	data = append(data, span...)
	data = append(data, l.dataRefs...)
	data = append(data, l.parityRefs...)

	writer, result := h.pipeline()
	if err := writer.ChainWrite(&PipeWriteArgs{Span: span, Data: data}); err != nil {
		return err
	}
	l.reset()

	if err := h.writeToIntermediateLevel(level+1, false, span, result.Ref, result.Key); err != nil {
		return err
	}
	return h.params.ChunkWrite(level, result.Data, h.parityChunkFn)
}

// Sum wraps all incomplete levels and returns the root reference.
//
// A level holding a single reference is not wrapped: the reference is elevated
// to the next level as a carrier chunk.
func (h *hashTrieWriter) Sum() ([]byte, error) {
	for i := 1; i < maxLevel; i++ {
		l := &h.levels[i]
		switch {
		case l.count == 0 && l.parities == 0:
			continue
		case l.full(h.maxChildren):
			if err := h.wrapFullLevel(i); err != nil {
				return nil, err
			}
		case l.count == 1 && l.parities == 0:
			span := swarm.NewSpan(l.span)
			ref := append([]byte(nil), l.dataRefs...)
			l.reset()
			if err := h.writeToIntermediateLevel(i+1, false, span, ref, nil); err != nil {
				return nil, err
			}
			if err := h.params.ElevateCarrierChunk(i-1, h.parityChunkFn); err != nil {
				return nil, err
			}
		default:
			if err := h.params.Encode(i-1, h.parityChunkFn); err != nil {
				return nil, err
			}
			if err := h.wrapFullLevel(i); err != nil {
				return nil, err
			}
		}
	}

	root := &h.levels[maxLevel]
	if root.count != 1 {
		return nil, ErrInconsistentRefs.WrapMessage("root level holds %d references", root.count)
	}
	ref := append([]byte(nil), root.dataRefs...)

	if h.params.Level() > redundancy.NONE && h.replicas != nil {
		if err := h.putReplicas(ref); err != nil {
			return nil, err
		}
	}
	return ref, nil
}

func (h *hashTrieWriter) putReplicas(ref []byte) error {
	data, err := h.params.GetRootData()
	if err != nil {
		return err
	}
	addr := swarm.Reference(ref).Address()
	h.l.Debug("storing root replicas", zap.Stringer("root", addr), zap.Stringer("level", h.params.Level()))

	return h.replicas.Put(h.ctx, swarm.NewChunk(addr, data))
}
