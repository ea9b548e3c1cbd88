// Package config describes the settings of a content store, and how to build it.
package config

import (
	"encoding/hex"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/docker/go-units"
	"github.com/oneconcern/swarmtrie/pkg/cafs"
	"github.com/oneconcern/swarmtrie/pkg/chunkstore"
	"github.com/oneconcern/swarmtrie/pkg/errors"
	"github.com/oneconcern/swarmtrie/pkg/postage"
	"github.com/oneconcern/swarmtrie/pkg/redundancy"
	"github.com/oneconcern/swarmtrie/pkg/soc"
	"github.com/oneconcern/swarmtrie/pkg/storage"
	"github.com/oneconcern/swarmtrie/pkg/storage/bdgr"
	"github.com/oneconcern/swarmtrie/pkg/storage/localfs"
	"github.com/oneconcern/swarmtrie/pkg/storage/pbl"
	"github.com/spf13/afero"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"gopkg.in/yaml.v2"
)

// EnvPrefix is the prefix of environment variables overriding the configuration
const EnvPrefix = "SWARMTRIE"

// Supported store backends
const (
	BackendLocalFS = "localfs"
	BackendBadger  = "badger"
	BackendPebble  = "pebble"
	BackendMemory  = "memory"
)

var (
	// ErrInvalidConfig is returned when some setting cannot be used
	ErrInvalidConfig = errors.New("invalid configuration")
)

// Store settings
type Store struct {
	Backend   string `mapstructure:"backend" json:"backend" yaml:"backend"`
	Path      string `mapstructure:"path" json:"path,omitempty" yaml:"path,omitempty"`
	CacheSize string `mapstructure:"cache_size" json:"cache_size,omitempty" yaml:"cache_size,omitempty"`
}

// Redundancy settings, for uploads and retrievals
type Redundancy struct {
	Level        string        `mapstructure:"level" json:"level" yaml:"level"`
	Strategy     string        `mapstructure:"strategy" json:"strategy" yaml:"strategy"`
	Fallback     bool          `mapstructure:"fallback" json:"fallback" yaml:"fallback"`
	FetchTimeout time.Duration `mapstructure:"fetch_timeout" json:"fetch_timeout" yaml:"fetch_timeout"`
}

// Postage settings. A zero depth disables stamping.
type Postage struct {
	BatchID     string `mapstructure:"batch_id" json:"batch_id,omitempty" yaml:"batch_id,omitempty"`
	Depth       uint8  `mapstructure:"depth" json:"depth" yaml:"depth"`
	BucketDepth uint8  `mapstructure:"bucket_depth" json:"bucket_depth" yaml:"bucket_depth"`
	Key         string `mapstructure:"key" json:"key,omitempty" yaml:"key,omitempty"`
}

// Config for a content store
type Config struct {
	Store        Store      `mapstructure:"store" json:"store" yaml:"store"`
	Redundancy   Redundancy `mapstructure:"redundancy" json:"redundancy" yaml:"redundancy"`
	Postage      Postage    `mapstructure:"postage" json:"postage" yaml:"postage"`
	Encrypt      bool       `mapstructure:"encrypt" json:"encrypt" yaml:"encrypt"`
	CompactLevel int        `mapstructure:"compact_level" json:"compact_level" yaml:"compact_level"`
	Concurrency  int        `mapstructure:"concurrency" json:"concurrency" yaml:"concurrency"`
	LogLevel     string     `mapstructure:"log_level" json:"log_level" yaml:"log_level"`
	Metrics      bool       `mapstructure:"metrics" json:"metrics" yaml:"metrics"`
}

// Default configuration
func Default() Config {
	return Config{
		Store: Store{
			Backend:   BackendLocalFS,
			Path:      defaultPath(),
			CacheSize: "16MiB",
		},
		Redundancy: Redundancy{
			Level:        redundancy.NONE.String(),
			Strategy:     redundancy.StrategyData.String(),
			Fallback:     true,
			FetchTimeout: 30 * time.Second,
		},
		Postage: Postage{
			BucketDepth: 16,
		},
		CompactLevel: 0,
		Concurrency:  8,
		LogLevel:     "info",
	}
}

func defaultPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".swarmtrie"
	}
	return filepath.Join(home, ".swarmtrie", "chunks")
}

// SetDefaults registers the default configuration with viper, so every setting
// may be overridden from the environment
func SetDefaults(v *viper.Viper) {
	d := Default()
	v.SetDefault("store.backend", d.Store.Backend)
	v.SetDefault("store.path", d.Store.Path)
	v.SetDefault("store.cache_size", d.Store.CacheSize)
	v.SetDefault("redundancy.level", d.Redundancy.Level)
	v.SetDefault("redundancy.strategy", d.Redundancy.Strategy)
	v.SetDefault("redundancy.fallback", d.Redundancy.Fallback)
	v.SetDefault("redundancy.fetch_timeout", d.Redundancy.FetchTimeout)
	v.SetDefault("postage.batch_id", d.Postage.BatchID)
	v.SetDefault("postage.depth", d.Postage.Depth)
	v.SetDefault("postage.bucket_depth", d.Postage.BucketDepth)
	v.SetDefault("postage.key", d.Postage.Key)
	v.SetDefault("encrypt", d.Encrypt)
	v.SetDefault("compact_level", d.CompactLevel)
	v.SetDefault("concurrency", d.Concurrency)
	v.SetDefault("log_level", d.LogLevel)
	v.SetDefault("metrics", d.Metrics)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
}

// Load the configuration from viper
func Load(v *viper.Viper) (*Config, error) {
	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return nil, ErrInvalidConfig.Wrap(err)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// Validate the settings
func (c *Config) Validate() error {
	switch c.Store.Backend {
	case BackendMemory:
	case BackendLocalFS, BackendBadger, BackendPebble:
		if c.Store.Path == "" {
			return ErrInvalidConfig.WrapMessage("store backend %q requires a path", c.Store.Backend)
		}
	default:
		return ErrInvalidConfig.WrapMessage("unknown store backend %q", c.Store.Backend)
	}
	if _, err := c.CacheBytes(); err != nil {
		return err
	}
	if _, err := redundancy.ParseLevel(c.Redundancy.Level); err != nil {
		return ErrInvalidConfig.Wrap(err)
	}
	if _, err := redundancy.ParseStrategy(c.Redundancy.Strategy); err != nil {
		return ErrInvalidConfig.Wrap(err)
	}
	if c.Redundancy.FetchTimeout < 0 {
		return ErrInvalidConfig.WrapMessage("negative fetch timeout %v", c.Redundancy.FetchTimeout)
	}
	if c.Postage.Depth > 0 && c.Postage.BucketDepth > c.Postage.Depth {
		return ErrInvalidConfig.WrapMessage("bucket depth %d exceeds batch depth %d", c.Postage.BucketDepth, c.Postage.Depth)
	}
	if c.CompactLevel < 0 || c.CompactLevel > 1<<16 {
		return ErrInvalidConfig.WrapMessage("compact level %d", c.CompactLevel)
	}
	return nil
}

// CacheBytes returns the size of the chunk cache in bytes
func (c *Config) CacheBytes() (int, error) {
	if c.Store.CacheSize == "" {
		return 0, nil
	}
	size, err := units.RAMInBytes(c.Store.CacheSize)
	if err != nil || size < 0 {
		return 0, ErrInvalidConfig.WrapMessage("cache size %q", c.Store.CacheSize)
	}
	return int(size), nil
}

// YAML renders the configuration as a yaml document
func (c *Config) YAML() ([]byte, error) {
	return yaml.Marshal(c)
}

// Backend opens the storage backend for chunks. The returned closer releases embedded databases.
func (c *Config) Backend() (storage.Store, io.Closer, error) {
	switch c.Store.Backend {
	case BackendMemory:
		return localfs.New(afero.NewMemMapFs()), nopCloser{}, nil
	case BackendLocalFS:
		if err := os.MkdirAll(c.Store.Path, 0o700); err != nil {
			return nil, nil, err
		}
		s, err := localfs.NewAtomic(afero.NewBasePathFs(afero.NewOsFs(), c.Store.Path))
		if err != nil {
			return nil, nil, err
		}
		return s, nopCloser{}, nil
	case BackendBadger:
		s, err := bdgr.New(c.Store.Path)
		if err != nil {
			return nil, nil, err
		}
		return s, s, nil
	case BackendPebble:
		s, err := pbl.New(c.Store.Path)
		if err != nil {
			return nil, nil, err
		}
		return s, s, nil
	default:
		return nil, nil, ErrInvalidConfig.WrapMessage("unknown store backend %q", c.Store.Backend)
	}
}

// Stamper builds the postage stamper for uploads
func (c *Config) Stamper() (postage.Stamper, error) {
	if c.Postage.Depth == 0 {
		return postage.NoopStamper{}, nil
	}

	var (
		signer soc.Signer
		err    error
	)
	if c.Postage.Key == "" {
		signer, err = soc.GenerateSigner()
	} else {
		var seed []byte
		seed, err = hex.DecodeString(c.Postage.Key)
		if err != nil {
			return nil, ErrInvalidConfig.WrapMessage("postage key: %v", err)
		}
		signer, err = soc.NewSignerFromSeed(seed)
	}
	if err != nil {
		return nil, err
	}

	batchID, err := hex.DecodeString(c.Postage.BatchID)
	if err != nil {
		return nil, ErrInvalidConfig.WrapMessage("postage batch id: %v", err)
	}
	return postage.NewBatchStamper(batchID, c.Postage.Depth, c.Postage.BucketDepth, signer)
}

// Options translates the configuration into content store options.
//
// The caller closes the returned closer once done with the store.
func (c *Config) Options(l *zap.Logger) ([]cafs.Option, io.Closer, error) {
	if err := c.Validate(); err != nil {
		return nil, nil, err
	}
	level, _ := redundancy.ParseLevel(c.Redundancy.Level)
	strategy, _ := redundancy.ParseStrategy(c.Redundancy.Strategy)
	cacheSize, _ := c.CacheBytes()

	stamper, err := c.Stamper()
	if err != nil {
		return nil, nil, err
	}

	backend, closer, err := c.Backend()
	if err != nil {
		return nil, nil, err
	}
	if c.Metrics || l.Core().Enabled(zap.DebugLevel) {
		backend = storage.Instrument(l, backend)
	}

	chunks, err := chunkstore.New(backend,
		chunkstore.WithCacheSize(cacheSize),
		chunkstore.WithConcurrency(c.Concurrency),
		chunkstore.WithLogger(l),
		chunkstore.WithMetrics(c.Metrics),
	)
	if err != nil {
		_ = closer.Close()
		return nil, nil, err
	}

	return []cafs.Option{
		cafs.Chunks(chunks),
		cafs.Encrypt(c.Encrypt),
		cafs.Redundancy(level),
		cafs.Strategy(strategy),
		cafs.Fallback(c.Redundancy.Fallback),
		cafs.FetchTimeout(c.Redundancy.FetchTimeout),
		cafs.Stamper(stamper),
		cafs.CompactLevel(c.CompactLevel),
		cafs.ConcurrentFlushes(c.Concurrency),
		cafs.Logger(l),
		cafs.WithMetrics(c.Metrics),
	}, closer, nil
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
