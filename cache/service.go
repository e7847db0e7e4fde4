package cache

import (
	"context"
	"fmt"
)

// KeySerializer builds a cache key from a namespace plus arbitrary args.
// Keys must be stable across calls and start with the namespace so that
// DeleteByPrefix can drop a whole namespace.
type KeySerializer interface {
	SerializeKey(namespace string, args ...any) string
}

// FetchFn loads a value from the source of truth.
type FetchFn[T any] func(ctx context.Context) (T, error)

// CacheService is the read-through cache used for catalog views.
type CacheService interface {
	GetOrFetch(ctx context.Context, key string, fetchFn any) (any, error)
	Delete(ctx context.Context, key string) error
	DeleteByPrefix(ctx context.Context, prefix string) error
}

// GetOrFetch is the typed form of CacheService.GetOrFetch.
func GetOrFetch[T any](ctx context.Context, service CacheService, key string, fetchFn FetchFn[T]) (T, error) {
	var zero T
	result, err := service.GetOrFetch(ctx, key, fetchFn)
	if err != nil {
		return zero, err
	}
	if result == nil {
		return zero, nil
	}
	v, ok := result.(T)
	if !ok {
		return zero, fmt.Errorf("cache: key %q holds %T, want %T", key, result, zero)
	}
	return v, nil
}
