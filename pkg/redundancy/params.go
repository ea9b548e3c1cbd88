package redundancy

import (
	"github.com/klauspost/reedsolomon"
	"github.com/oneconcern/swarmtrie/pkg/errors"
	"github.com/oneconcern/swarmtrie/pkg/swarm"
)

// MaxTrieLevels is the maximum depth of a chunk trie
const MaxTrieLevels = 8

// ErrCarrierChunk is returned when a carrier chunk is elevated from a level holding several chunks
var ErrCarrierChunk = errors.New("carrier chunk should be the only chunk in its level")

// ParityWriter stores a parity chunk (span + payload) and returns its reference
type ParityWriter func(data []byte) ([]byte, error)

// ParityChunkCallback receives the reference of a parity chunk, to be recorded
// at the given trie level
type ParityChunkCallback func(level int, span, ref []byte) error

// ParityGenerator accumulates the chunks written at every level of a trie and
// emits parity chunks whenever a group of data shards is complete
type ParityGenerator interface {
	// ChunkWrite buffers a chunk at some level, and encodes parities when the level buffer is full
	ChunkWrite(level int, data []byte, callback ParityChunkCallback) error
	// Encode parities for the chunks currently buffered at some level
	Encode(level int, callback ParityChunkCallback) error
	// ElevateCarrierChunk moves the single chunk buffered at some level to the next one
	ElevateCarrierChunk(level int, callback ParityChunkCallback) error
	// GetRootData returns the data of the root chunk, once the trie is complete
	GetRootData() ([]byte, error)
	// Level of redundancy
	Level() Level
	// MaxShards is the number of data shards per group
	MaxShards() int
	// Parities for some number of data shards
	Parities(shards int) int
}

var _ ParityGenerator = &Params{}

// Params generates parities for a trie under construction
type Params struct {
	level     Level
	encrypted bool
	maxShards int
	buffer    [MaxTrieLevels][][]byte
	cursor    [MaxTrieLevels]int
	writer    ParityWriter
}

// NewParams builds a parity generator.
//
// Parity chunks are passed to writer, which is expected to hash and store them.
func NewParams(level Level, encrypted bool, writer ParityWriter) *Params {
	p := &Params{
		level:     level,
		encrypted: encrypted,
		maxShards: level.MaxShards(encrypted),
		writer:    writer,
	}
	if level == NONE {
		return p
	}
	for i := range p.buffer {
		p.buffer[i] = make([][]byte, p.maxShards)
		for j := range p.buffer[i] {
			p.buffer[i][j] = make([]byte, swarm.ChunkWithSpanSize)
		}
	}
	return p
}

// Level of redundancy
func (p *Params) Level() Level {
	return p.level
}

// MaxShards is the number of data shards per group
func (p *Params) MaxShards() int {
	return p.maxShards
}

// Parities for some number of data shards
func (p *Params) Parities(shards int) int {
	return p.level.Parities(shards, p.encrypted)
}

// ChunkWrite copies the chunk data into the buffer of some level.
// Parities are encoded as soon as the level holds MaxShards chunks.
func (p *Params) ChunkWrite(level int, data []byte, callback ParityChunkCallback) error {
	if p.level == NONE {
		return nil
	}
	if len(data) > swarm.ChunkWithSpanSize {
		return swarm.ErrInvalidChunk.WrapMessage("%d bytes", len(data))
	}

	slot := p.buffer[level][p.cursor[level]]
	n := copy(slot, data)
	for i := n; i < len(slot); i++ {
		slot[i] = 0
	}
	p.cursor[level]++

	if p.cursor[level] == p.maxShards {
		return p.encode(level, callback)
	}
	return nil
}

func (p *Params) encode(level int, callback ParityChunkCallback) error {
	shards := p.cursor[level]
	parities := p.Parities(shards)
	if parities == 0 {
		p.cursor[level] = 0
		return nil
	}

	enc, err := reedsolomon.New(shards, parities)
	if err != nil {
		return err
	}

	buf := make([][]byte, 0, shards+parities)
	buf = append(buf, p.buffer[level][:shards]...)
	for i := 0; i < parities; i++ {
		buf = append(buf, make([]byte, swarm.ChunkWithSpanSize))
	}
	if err = enc.Encode(buf); err != nil {
		return err
	}

	for i := shards; i < len(buf); i++ {
		ref, err := p.writer(buf[i])
		if err != nil {
			return err
		}
		if err = callback(level+1, buf[i][:swarm.SpanSize], ref); err != nil {
			return err
		}
	}
	p.cursor[level] = 0

	return nil
}

// Encode parities for an incomplete group of shards at some level
func (p *Params) Encode(level int, callback ParityChunkCallback) error {
	if p.level == NONE || p.cursor[level] == 0 {
		return nil
	}
	return p.encode(level, callback)
}

// ElevateCarrierChunk moves the single chunk of some level to the next level
func (p *Params) ElevateCarrierChunk(level int, callback ParityChunkCallback) error {
	if p.level == NONE {
		return nil
	}
	if p.cursor[level] != 1 {
		return ErrCarrierChunk.WrapMessage("level %d holds %d chunks", level, p.cursor[level])
	}
	p.cursor[level] = 0

	return p.ChunkWrite(level+1, p.buffer[level][0], callback)
}

// GetRootData returns the trimmed data of the root chunk
func (p *Params) GetRootData() ([]byte, error) {
	if p.level == NONE {
		return nil, ErrInvalidLevel.WrapMessage("no root data kept for %s", p.level)
	}
	data := p.buffer[MaxTrieLevels-1][0]
	root := make([]byte, len(data))
	copy(root, data)

	return TrimChunkData(root, p.encrypted), nil
}
