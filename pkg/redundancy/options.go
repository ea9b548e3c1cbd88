package redundancy

import (
	"time"

	"github.com/oneconcern/swarmtrie/pkg/chunkstore"
	"github.com/oneconcern/swarmtrie/pkg/metrics"
	"go.uber.org/zap"
)

// M describes the metrics collected by decoders
type M struct {
	Usage  metrics.UsageMetrics `group:"usage"`
	Chunks metrics.ChunkMetrics `group:"chunks"`
}

type decoderOptions struct {
	strategy Strategy
	fallback bool
	timeout  time.Duration
	putter   chunkstore.Putter
	l        *zap.Logger

	metrics.Enable
	m *M
}

// DecoderOption configures a redundancy decoder
type DecoderOption func(*decoderOptions)

func defaultDecoderOptions(opts []DecoderOption) *decoderOptions {
	o := &decoderOptions{
		strategy: DefaultStrategy,
		timeout:  DefaultStrategyTimeout,
		l:        zap.NewNop(),
	}
	for _, apply := range opts {
		apply(o)
	}
	if o.MetricsEnabled() {
		o.m = o.EnsureMetrics("redundancy", &M{}).(*M)
	}
	return o
}

// WithStrategy sets the retrieval strategy
func WithStrategy(s Strategy) DecoderOption {
	return func(o *decoderOptions) {
		o.strategy = s
	}
}

// WithFallback cascades through stronger strategies when one fails
func WithFallback(enabled bool) DecoderOption {
	return func(o *decoderOptions) {
		o.fallback = enabled
	}
}

// WithFetchTimeout bounds the duration of every strategy attempt
func WithFetchTimeout(d time.Duration) DecoderOption {
	return func(o *decoderOptions) {
		if d > 0 {
			o.timeout = d
		}
	}
}

// WithPutter persists recovered chunks
func WithPutter(p chunkstore.Putter) DecoderOption {
	return func(o *decoderOptions) {
		o.putter = p
	}
}

// WithLogger sets a logger
func WithLogger(l *zap.Logger) DecoderOption {
	return func(o *decoderOptions) {
		if l != nil {
			o.l = l
		}
	}
}

// WithMetrics toggles metrics collection
func WithMetrics(enabled bool) DecoderOption {
	return func(o *decoderOptions) {
		o.EnableMetrics(enabled)
	}
}
