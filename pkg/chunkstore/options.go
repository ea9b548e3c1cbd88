package chunkstore

import (
	"github.com/docker/go-units"
	"go.uber.org/zap"
)

const (
	// DefaultCacheSize is the default size in bytes of the chunk LRU cache
	DefaultCacheSize = 16 * units.MiB

	// DefaultConcurrency bounds the number of parallel backend reads of GetMany
	DefaultConcurrency = 16
)

// Option configures the chunk store
type Option func(*store)

// WithLogger sets a logger
func WithLogger(l *zap.Logger) Option {
	return func(s *store) {
		if l != nil {
			s.l = l
		}
	}
}

// WithCacheSize sets the size in bytes of the LRU cache. Zero disables the cache.
func WithCacheSize(size int) Option {
	return func(s *store) {
		s.cacheSize = size
	}
}

// WithVerify validates chunks against their address when reading them
func WithVerify(enabled bool) Option {
	return func(s *store) {
		s.verify = enabled
	}
}

// WithConcurrency bounds the number of parallel reads
func WithConcurrency(n int) Option {
	return func(s *store) {
		if n > 0 {
			s.concurrency = n
		}
	}
}

// WithRetry retries failed writes with an exponential backoff
func WithRetry(enabled bool) Option {
	return func(s *store) {
		s.retry = enabled
	}
}

// WithMetrics toggles metrics collection
func WithMetrics(enabled bool) Option {
	return func(s *store) {
		s.EnableMetrics(enabled)
	}
}

type getOptions struct {
	canCache bool
}

// GetOption configures a single chunk retrieval
type GetOption func(*getOptions)

// CanCache tells if the retrieved chunk may be kept in cache
func CanCache(enabled bool) GetOption {
	return func(o *getOptions) {
		o.canCache = enabled
	}
}

type getManyOptions struct {
	returnAfterFailed    int
	returnAfterSucceeded int
	canCache             bool
}

// GetManyOption configures a bulk retrieval
type GetManyOption func(*getManyOptions)

// ReturnAfterFailed stops fetching when n chunks could not be retrieved
func ReturnAfterFailed(n int) GetManyOption {
	return func(o *getManyOptions) {
		o.returnAfterFailed = n
	}
}

// ReturnAfterSucceeded stops fetching when n chunks have been retrieved
func ReturnAfterSucceeded(n int) GetManyOption {
	return func(o *getManyOptions) {
		o.returnAfterSucceeded = n
	}
}

// CanCacheMany tells if the retrieved chunks may be kept in cache
func CanCacheMany(enabled bool) GetManyOption {
	return func(o *getManyOptions) {
		o.canCache = enabled
	}
}

type putOptions struct {
	pin bool
}

// PutOption configures a chunk write
type PutOption func(*putOptions)

// Pin the chunk, so it is reported by Pins
func Pin(enabled bool) PutOption {
	return func(o *putOptions) {
		o.pin = enabled
	}
}
