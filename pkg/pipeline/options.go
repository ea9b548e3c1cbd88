package pipeline

import (
	"github.com/oneconcern/swarmtrie/pkg/bmt"
	"github.com/oneconcern/swarmtrie/pkg/encryption"
	"github.com/oneconcern/swarmtrie/pkg/postage"
	"go.uber.org/zap"
)

type options struct {
	stamper     postage.Stamper
	concurrency int
	pin         bool
	replicas    bool
	pool        *bmt.Pool
	encrypter   encryption.ChunkEncrypter
	l           *zap.Logger
}

// Option configures a pipeline
type Option func(*options)

func defaultOptions(opts []Option) *options {
	o := &options{
		concurrency: DefaultConcurrency,
		replicas:    true,
		l:           zap.NewNop(),
	}
	for _, apply := range opts {
		apply(o)
	}
	if o.encrypter == nil {
		o.encrypter = encryption.NewChunkEncrypter()
	}
	return o
}

// WithStamper stamps every chunk stored
func WithStamper(s postage.Stamper) Option {
	return func(o *options) {
		o.stamper = s
	}
}

// WithConcurrency bounds the number of leaf chunks processed in parallel
func WithConcurrency(n int) Option {
	return func(o *options) {
		o.concurrency = n
	}
}

// WithPin pins all chunks stored
func WithPin(enabled bool) Option {
	return func(o *options) {
		o.pin = enabled
	}
}

// WithReplicas stores dispersed replicas of the root chunk, for redundancy levels above NONE
func WithReplicas(enabled bool) Option {
	return func(o *options) {
		o.replicas = enabled
	}
}

// WithHasherPool sets the pool of BMT hashers
func WithHasherPool(pool *bmt.Pool) Option {
	return func(o *options) {
		o.pool = pool
	}
}

// WithEncrypter overrides the chunk encrypter
func WithEncrypter(e encryption.ChunkEncrypter) Option {
	return func(o *options) {
		o.encrypter = e
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
