package joiner

import (
	"time"

	"github.com/oneconcern/swarmtrie/pkg/chunkstore"
	"github.com/oneconcern/swarmtrie/pkg/redundancy"
	"go.uber.org/zap"
)

// DefaultDecoderCacheSize is the number of parent chunks for which a redundancy decoder is kept
const DefaultDecoderCacheSize = 64

type options struct {
	strategy      redundancy.Strategy
	fallback      bool
	timeout       time.Duration
	replicaLevel  redundancy.Level
	decoderCache  int
	putter        chunkstore.Putter
	l             *zap.Logger
	enableMetrics bool
}

// Option configures a joiner
type Option func(*options)

func defaultOptions(opts []Option) *options {
	o := &options{
		strategy:     redundancy.DefaultStrategy,
		timeout:      redundancy.DefaultStrategyTimeout,
		replicaLevel: redundancy.PARANOID,
		decoderCache: DefaultDecoderCacheSize,
		l:            zap.NewNop(),
	}
	for _, apply := range opts {
		apply(o)
	}
	return o
}

// WithStrategy sets the strategy to retrieve the children of redundant chunks
func WithStrategy(s redundancy.Strategy) Option {
	return func(o *options) {
		o.strategy = s
	}
}

// WithFallback cascades through stronger strategies when chunks are missing
func WithFallback(enabled bool) Option {
	return func(o *options) {
		o.fallback = enabled
	}
}

// WithFetchTimeout bounds every recovery attempt
func WithFetchTimeout(d time.Duration) Option {
	return func(o *options) {
		o.timeout = d
	}
}

// WithReplicaLevel sets the highest redundancy level for which root replicas are looked up
func WithReplicaLevel(level redundancy.Level) Option {
	return func(o *options) {
		o.replicaLevel = level
	}
}

// WithDecoderCacheSize sets the number of redundancy decoders kept in cache
func WithDecoderCacheSize(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.decoderCache = n
		}
	}
}

// WithPutter persists chunks recovered from parities
func WithPutter(p chunkstore.Putter) Option {
	return func(o *options) {
		o.putter = p
	}
}

// WithLogger sets a logger
func WithLogger(l *zap.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.l = l
		}
	}
}

// WithMetrics toggles metrics collection of redundancy decoders
func WithMetrics(enabled bool) Option {
	return func(o *options) {
		o.enableMetrics = enabled
	}
}

func (o *options) decoderOptions() []redundancy.DecoderOption {
	return []redundancy.DecoderOption{
		redundancy.WithStrategy(o.strategy),
		redundancy.WithFallback(o.fallback),
		redundancy.WithFetchTimeout(o.timeout),
		redundancy.WithPutter(o.putter),
		redundancy.WithLogger(o.l),
		redundancy.WithMetrics(o.enableMetrics),
	}
}
