// Package flight deduplicates concurrent tile computations per key.
package flight

import (
	"context"

	"golang.org/x/sync/singleflight"
)

// Registry guarantees at most one in-flight computation per key. Concurrent
// callers for the same key share the first caller's pending result, and the
// key is forgotten the instant the computation settles, so a retry after
// failure always starts fresh.
//
// Construct one registry at process start and pass it by handle; separate
// instances do not share in-flight state.
type Registry struct {
	group singleflight.Group
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{}
}

// Do executes fn under key, or joins the in-flight execution for key if one
// exists. All joined callers receive the same result or the same error.
// shared reports whether the result was shared with other callers.
//
// If ctx ends while waiting, Do returns ctx.Err() immediately but the
// computation keeps running for the benefit of the remaining callers and
// still settles normally.
func (r *Registry) Do(ctx context.Context, key string, fn func() (interface{}, error)) (v interface{}, shared bool, err error) {
	ch := r.group.DoChan(key, fn)
	select {
	case res := <-ch:
		return res.Val, res.Shared, res.Err
	case <-ctx.Done():
		return nil, false, ctx.Err()
	}
}
