package cache

import (
	"errors"
	"time"

	"github.com/goliatone/go-library-catalog/internal/cacheinfra"
)

// ErrNotFound is the default NotFound marker of services built by
// NewCacheService.
var ErrNotFound = errors.New("cache: record not found")

// Config is the read cache section of the application config.
type Config struct {
	Enabled              bool                `mapstructure:"enabled" yaml:"enabled"`
	Capacity             int                 `mapstructure:"capacity" yaml:"capacity"`
	NumShards            int                 `mapstructure:"num_shards" yaml:"num_shards"`
	TTL                  time.Duration       `mapstructure:"ttl" yaml:"ttl"`
	EvictionPercentage   int                 `mapstructure:"eviction_percentage" yaml:"eviction_percentage"`
	EarlyRefresh         *EarlyRefreshConfig `mapstructure:"early_refresh" yaml:"early_refresh,omitempty"`
	MissingRecordStorage bool                `mapstructure:"missing_record_storage" yaml:"missing_record_storage"`
	EvictionInterval     time.Duration       `mapstructure:"eviction_interval" yaml:"eviction_interval"`

	// NotFound overrides ErrNotFound, e.g. with catalog.ErrNotFound.
	NotFound error `mapstructure:"-" yaml:"-"`
}

// EarlyRefreshConfig mirrors the sturdyc early refresh options.
type EarlyRefreshConfig struct {
	MinAsyncRefreshTime time.Duration `mapstructure:"min_async" yaml:"min_async"`
	MaxAsyncRefreshTime time.Duration `mapstructure:"max_async" yaml:"max_async"`
	SyncRefreshTime     time.Duration `mapstructure:"sync" yaml:"sync"`
	RetryBaseDelay      time.Duration `mapstructure:"retry_base_delay" yaml:"retry_base_delay"`
}

// DefaultConfig returns an enabled cache with the sturdyc defaults.
func DefaultConfig() Config {
	cfg := fromInternal(cacheinfra.DefaultConfig())
	cfg.Enabled = true
	return cfg
}

// Validate checks the values used when the cache is enabled.
func (c Config) Validate() error {
	if !c.Enabled {
		return nil
	}
	return c.toInternal().Validate()
}

// NewCacheService builds the sturdyc backed service.
func NewCacheService(cfg Config) (CacheService, error) {
	svc, err := cacheinfra.NewSturdycService(cfg.toInternal())
	if err != nil {
		return nil, err
	}
	return svc, nil
}

func (c Config) toInternal() cacheinfra.Config {
	out := cacheinfra.Config{
		Capacity:             c.Capacity,
		NumShards:            c.NumShards,
		TTL:                  c.TTL,
		EvictionPercentage:   c.EvictionPercentage,
		MissingRecordStorage: c.MissingRecordStorage,
		EvictionInterval:     c.EvictionInterval,
		NotFound:             c.NotFound,
	}
	if out.NotFound == nil {
		out.NotFound = ErrNotFound
	}
	if c.EarlyRefresh != nil {
		out.EarlyRefresh = &cacheinfra.EarlyRefreshConfig{
			MinAsyncRefreshTime: c.EarlyRefresh.MinAsyncRefreshTime,
			MaxAsyncRefreshTime: c.EarlyRefresh.MaxAsyncRefreshTime,
			SyncRefreshTime:     c.EarlyRefresh.SyncRefreshTime,
			RetryBaseDelay:      c.EarlyRefresh.RetryBaseDelay,
		}
	}
	return out
}

func fromInternal(cfg cacheinfra.Config) Config {
	out := Config{
		Capacity:             cfg.Capacity,
		NumShards:            cfg.NumShards,
		TTL:                  cfg.TTL,
		EvictionPercentage:   cfg.EvictionPercentage,
		MissingRecordStorage: cfg.MissingRecordStorage,
		EvictionInterval:     cfg.EvictionInterval,
	}
	if cfg.EarlyRefresh != nil {
		out.EarlyRefresh = &EarlyRefreshConfig{
			MinAsyncRefreshTime: cfg.EarlyRefresh.MinAsyncRefreshTime,
			MaxAsyncRefreshTime: cfg.EarlyRefresh.MaxAsyncRefreshTime,
			SyncRefreshTime:     cfg.EarlyRefresh.SyncRefreshTime,
			RetryBaseDelay:      cfg.EarlyRefresh.RetryBaseDelay,
		}
	}
	return out
}
