package reqcache

import (
	"context"
	"fmt"
)

// Fetch adapts a typed fetch function to a Fetcher.
func Fetch[T any](fn func(ctx context.Context) (T, error)) Fetcher {
	return func(ctx context.Context) (any, error) {
		v, err := fn(ctx)
		if err != nil {
			return nil, err
		}
		return v, nil
	}
}

// Value extracts the data of snap as T.
func Value[T any](snap Snapshot) (T, error) {
	var zero T
	if !snap.HasData {
		return zero, ErrNoData
	}
	v, ok := snap.Data.(T)
	if !ok {
		return zero, fmt.Errorf("%w: key %q holds %T", ErrTypeMismatch, snap.Key, snap.Data)
	}
	return v, nil
}

// Get is the typed form of Store.Get.
func Get[T any](ctx context.Context, s *Store, key string, fn func(ctx context.Context) (T, error), opts Options) (T, error) {
	v, err := s.Get(ctx, key, Fetch(fn), opts)
	if err != nil {
		var zero T
		return zero, err
	}
	t, ok := v.(T)
	if !ok {
		var zero T
		return zero, fmt.Errorf("%w: key %q holds %T", ErrTypeMismatch, key, v)
	}
	return t, nil
}
