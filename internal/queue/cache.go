package queue

import "context"

// StatsCache stores computed statistics between mutations.
//
// Get reports whether key was found and decoded into dst, along with the
// cache generation it read. Set stores under that generation, so a value
// computed before an Invalidate is never served after it. Invalidate drops
// every cached value; it is called after each successful mutation.
type StatsCache interface {
	Get(ctx context.Context, key string, dst any) (found bool, generation string, err error)
	Set(ctx context.Context, key, generation string, value any) error
	Invalidate(ctx context.Context) error
}

type noopCache struct{}

func (noopCache) Get(context.Context, string, any) (bool, string, error) { return false, "", nil }
func (noopCache) Set(context.Context, string, string, any) error         { return nil }
func (noopCache) Invalidate(context.Context) error                       { return nil }
