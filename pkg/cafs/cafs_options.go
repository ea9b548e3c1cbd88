package cafs

import (
	"time"

	"github.com/oneconcern/swarmtrie/pkg/chunkstore"
	"github.com/oneconcern/swarmtrie/pkg/postage"
	"github.com/oneconcern/swarmtrie/pkg/redundancy"
	"github.com/oneconcern/swarmtrie/pkg/storage"
	"go.uber.org/zap"
)

type hasOpts struct {
	GatherIncomplete bool
	_                struct{} // disallow unkeyed usage
}

// HasOption is a functor used to set some options for the Has operation on this FS
type HasOption func(*hasOpts)

// HasGatherIncomplete checks all the chunks of the content, and reports the missing ones
func HasGatherIncomplete() HasOption {
	return func(opts *hasOpts) {
		opts.GatherIncomplete = true
	}
}

// Option to configure content addressable FS components
type Option func(*defaultFs)

// Backend specifies the backend store, wrapped as a chunk store
func Backend(store storage.Store) Option {
	return func(w *defaultFs) {
		w.backend = store
	}
}

// Chunks specifies the chunk store
func Chunks(store chunkstore.Store) Option {
	return func(w *defaultFs) {
		w.store = store
	}
}

// Encrypt enables content encryption
func Encrypt(enabled bool) Option {
	return func(w *defaultFs) {
		w.encrypt = enabled
	}
}

// Redundancy sets the erasure coding level of uploaded content
func Redundancy(level redundancy.Level) Option {
	return func(w *defaultFs) {
		w.level = level
	}
}

// Strategy sets how chunks are retrieved when reading redundant content
func Strategy(s redundancy.Strategy) Option {
	return func(w *defaultFs) {
		w.strategy = s
	}
}

// Fallback enables cascading to stronger retrieval strategies
func Fallback(enabled bool) Option {
	return func(w *defaultFs) {
		w.fallback = enabled
	}
}

// FetchTimeout bounds every recovery attempt
func FetchTimeout(d time.Duration) Option {
	return func(w *defaultFs) {
		if d > 0 {
			w.timeout = d
		}
	}
}

// Stamper sets the postage stamper for uploaded chunks
func Stamper(s postage.Stamper) Option {
	return func(w *defaultFs) {
		if s != nil {
			w.stamper = s
		}
	}
}

// PinUploads pins all uploaded chunks
func PinUploads(enabled bool) Option {
	return func(w *defaultFs) {
		w.pin = enabled
	}
}

// ConcurrentFlushes sets the number of chunks hashed and stored concurrently by a Put
func ConcurrentFlushes(concurrentFlushes int) Option {
	return func(w *defaultFs) {
		if concurrentFlushes > 0 {
			w.concurrentFlushes = concurrentFlushes
		}
	}
}

// CompactLevel sets the number of obfuscation keys tried for every manifest node.
//
// Compaction only applies when the stamper keeps track of its buckets.
func CompactLevel(level int) Option {
	return func(w *defaultFs) {
		w.compactLevel = level
	}
}

// DecoderCacheSize sets the number of redundancy decoders kept by every reader
func DecoderCacheSize(size int) Option {
	return func(w *defaultFs) {
		if size > 0 {
			w.decoderCacheSize = size
		}
	}
}

// Logger sets a logger for this store
func Logger(l *zap.Logger) Option {
	return func(w *defaultFs) {
		if l != nil {
			w.l = l
		}
	}
}

// WithMetrics toggles metrics collection
func WithMetrics(enabled bool) Option {
	return func(w *defaultFs) {
		w.EnableMetrics(enabled)
	}
}
