package resilience

import (
	"context"

	"golang.org/x/sync/singleflight"
)

// SingleFlight deduplicates concurrent calls for the same key and hands every
// caller the leader's typed result.
type SingleFlight[T any] struct {
	group singleflight.Group
}

func (g *SingleFlight[T]) Do(key string, fn func() (T, error)) (T, error, bool) {
	out, err, shared := g.group.Do(key, func() (any, error) {
		return fn()
	})
	value, _ := out.(T)
	return value, err, shared
}

// DoContext behaves like Do but stops waiting when ctx is done. The leader
// keeps running so later callers can still share its result.
func (g *SingleFlight[T]) DoContext(ctx context.Context, key string, fn func() (T, error)) (T, error, bool) {
	ch := g.group.DoChan(key, func() (any, error) {
		return fn()
	})

	select {
	case res := <-ch:
		value, _ := res.Val.(T)
		return value, res.Err, res.Shared
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err(), false
	}
}

// Forget drops the in-flight entry so the next call starts a fresh execution.
func (g *SingleFlight[T]) Forget(key string) {
	g.group.Forget(key)
}
