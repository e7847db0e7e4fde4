package cacheinfra

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/viccon/sturdyc"
)

// Config holds the sturdyc settings of a cache service.
type Config struct {
	// Capacity is the maximum number of entries.
	Capacity int

	// NumShards splits the cache for concurrent access.
	NumShards int

	// TTL is how long an entry stays fresh.
	TTL time.Duration

	// EvictionPercentage is the share of entries dropped when the cache is full.
	EvictionPercentage int

	// EarlyRefresh refreshes hot entries in the background before they
	// expire. Nil disables it.
	EarlyRefresh *EarlyRefreshConfig

	// MissingRecordStorage remembers keys whose fetch reported NotFound so
	// repeated lookups of absent records do not reach the source.
	MissingRecordStorage bool

	// EvictionInterval is how often expired entries are swept. Zero keeps
	// the sturdyc default.
	EvictionInterval time.Duration

	// NotFound is the error fetch functions return for an absent record.
	// It is translated to and from sturdyc's missing record markers.
	NotFound error
}

// EarlyRefreshConfig mirrors sturdyc.WithEarlyRefreshes.
type EarlyRefreshConfig struct {
	MinAsyncRefreshTime time.Duration
	MaxAsyncRefreshTime time.Duration
	SyncRefreshTime     time.Duration
	RetryBaseDelay      time.Duration
}

// DefaultConfig is sized for catalog views: small, short lived entries.
func DefaultConfig() Config {
	return Config{
		Capacity:             4096,
		NumShards:            16,
		TTL:                  time.Minute,
		EvictionPercentage:   10,
		MissingRecordStorage: true,
	}
}

// Validate reports every invalid field.
func (c Config) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.Capacity, validation.Required, validation.Min(1)),
		validation.Field(&c.NumShards, validation.Required, validation.Min(1)),
		validation.Field(&c.TTL, validation.Required, validation.Min(time.Millisecond)),
		validation.Field(&c.EvictionPercentage, validation.Required, validation.Min(1), validation.Max(100)),
		validation.Field(&c.EvictionInterval, validation.Min(time.Duration(0))),
		validation.Field(&c.EarlyRefresh),
	)
}

// Validate implements validation.Validatable.
func (e EarlyRefreshConfig) Validate() error {
	return validation.ValidateStruct(&e,
		validation.Field(&e.MinAsyncRefreshTime, validation.Required, validation.Min(time.Duration(0))),
		validation.Field(&e.MaxAsyncRefreshTime, validation.Required, validation.Min(e.MinAsyncRefreshTime)),
		validation.Field(&e.SyncRefreshTime, validation.Required, validation.Min(e.MaxAsyncRefreshTime)),
		validation.Field(&e.RetryBaseDelay, validation.Min(time.Duration(0))),
	)
}

// ToSturdycOptions converts the optional settings. Capacity, shards, TTL and
// eviction percentage go to sturdyc.New directly.
func (c Config) ToSturdycOptions() []sturdyc.Option {
	var options []sturdyc.Option
	if c.EarlyRefresh != nil {
		options = append(options, sturdyc.WithEarlyRefreshes(
			c.EarlyRefresh.MinAsyncRefreshTime,
			c.EarlyRefresh.MaxAsyncRefreshTime,
			c.EarlyRefresh.SyncRefreshTime,
			c.EarlyRefresh.RetryBaseDelay,
		))
	}
	if c.MissingRecordStorage {
		options = append(options, sturdyc.WithMissingRecordStorage())
	}
	if c.EvictionInterval > 0 {
		options = append(options, sturdyc.WithEvictionInterval(c.EvictionInterval))
	}
	return options
}

// SturdycService is a cache.CacheService backed by a sturdyc client.
type SturdycService struct {
	client   *sturdyc.Client[entry]
	notFound error
}

// entry boxes cached values. sturdyc type-asserts every fetch result,
// including the zero value returned alongside an error, and a nil interface
// fails that assertion.
type entry struct {
	value any
}

// NewSturdycService validates cfg and builds the client.
func NewSturdycService(cfg Config) (*SturdycService, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("cacheinfra: invalid config: %w", err)
	}
	client := sturdyc.New[entry](
		cfg.Capacity,
		cfg.NumShards,
		cfg.TTL,
		cfg.EvictionPercentage,
		cfg.ToSturdycOptions()...,
	)
	return &SturdycService{client: client, notFound: cfg.NotFound}, nil
}

// ErrInvalidFetchFn is returned when GetOrFetch is not given a
// func(context.Context) (T, error).
var ErrInvalidFetchFn = errors.New("cacheinfra: fetchFn must have signature func(context.Context) (T, error)")

var (
	contextType = reflect.TypeOf((*context.Context)(nil)).Elem()
	errorType   = reflect.TypeOf((*error)(nil)).Elem()
)

func validateFetchFn(fetchFn any) error {
	if fetchFn == nil {
		return ErrInvalidFetchFn
	}
	t := reflect.TypeOf(fetchFn)
	if t.Kind() != reflect.Func || t.NumIn() != 1 || t.NumOut() != 2 {
		return ErrInvalidFetchFn
	}
	if !contextType.AssignableTo(t.In(0)) || !t.Out(1).Implements(errorType) {
		return ErrInvalidFetchFn
	}
	return nil
}

// GetOrFetch returns the cached value for key or calls fetchFn, which must
// be a func(context.Context) (T, error), and caches its result. Errors are
// not cached, except NotFound when missing record storage is on.
func (s *SturdycService) GetOrFetch(ctx context.Context, key string, fetchFn any) (any, error) {
	if err := validateFetchFn(fetchFn); err != nil {
		return nil, err
	}

	fetch := func(ctx context.Context) (entry, error) {
		v, err := callFetch(ctx, fetchFn)
		if err != nil {
			if s.notFound != nil && errors.Is(err, s.notFound) {
				return entry{}, sturdyc.ErrNotFound
			}
			return entry{}, err
		}
		return entry{value: v}, nil
	}

	e, err := s.client.GetOrFetch(ctx, key, fetch)
	if err != nil {
		if s.notFound != nil &&
			(errors.Is(err, sturdyc.ErrMissingRecord) || errors.Is(err, sturdyc.ErrNotFound)) {
			return nil, fmt.Errorf("%w: %s", s.notFound, key)
		}
		return nil, err
	}
	return e.value, nil
}

func callFetch(ctx context.Context, fetchFn any) (any, error) {
	if fn, ok := fetchFn.(func(context.Context) (any, error)); ok {
		return fn(ctx)
	}
	out := reflect.ValueOf(fetchFn).Call([]reflect.Value{reflect.ValueOf(ctx)})

	var err error
	if e := out[1]; !e.IsNil() {
		err = e.Interface().(error)
	}
	return out[0].Interface(), err
}

// Delete removes key.
func (s *SturdycService) Delete(_ context.Context, key string) error {
	s.client.Delete(key)
	return nil
}

// DeleteByPrefix removes every key starting with prefix.
func (s *SturdycService) DeleteByPrefix(_ context.Context, prefix string) error {
	for _, key := range s.client.ScanKeys() {
		if strings.HasPrefix(key, prefix) {
			s.client.Delete(key)
		}
	}
	return nil
}

// Size returns the number of stored entries.
func (s *SturdycService) Size() int {
	return s.client.Size()
}
