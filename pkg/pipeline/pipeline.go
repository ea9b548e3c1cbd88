// Package pipeline splits content into chunks and builds the chunk trie representing it.
//
// Content flows through a chain of writers:
//
//	feeder -> parallel leaves [encryption -> bmt -> store] -> resequencer -> hashtrie
//
// Leaf chunks are hashed and stored concurrently, then appended in order to the
// trie levels. Intermediate chunks are built by the hashtrie writer as levels
// fill up, with parity chunks inserted according to the redundancy level.
package pipeline

import (
	"io"

	"github.com/oneconcern/swarmtrie/pkg/errors"
)

var (
	// ErrTrieFull is returned when content exceeds the capacity of the trie levels
	ErrTrieFull = errors.New("trie full")

	// ErrInconsistentRefs is returned when the trie does not converge to a single root
	ErrInconsistentRefs = errors.New("inconsistent references")
)

// PipeWriteArgs carries a chunk through the writers of a pipeline
type PipeWriteArgs struct {
	// Ref is the chunk address
	Ref []byte
	// Key is the encryption key of the chunk, if any
	Key []byte
	// Span is the plain span of the chunk
	Span []byte
	// Data is the chunk (span + payload) as stored: encrypted, when encryption is on
	Data []byte

	seq uint64
}

// ChainWriter is a stage of a pipeline
type ChainWriter interface {
	ChainWrite(*PipeWriteArgs) error
	Sum() ([]byte, error)
}

// Interface of a pipeline: content is written, and Sum returns the root reference
type Interface interface {
	io.Writer
	Sum() ([]byte, error)
}
