// Package latency simulates network round-trip delays for the mock services.
package latency

import (
	"context"
	"math/rand"
	"sync"
	"time"
)

// Range is a uniform delay in [Min, Max]. The zero value never waits.
type Range struct {
	Min time.Duration
	Max time.Duration

	mu  sync.Mutex
	rnd *rand.Rand
}

func Fixed(d time.Duration) *Range {
	return &Range{Min: d, Max: d}
}

func Between(min, max time.Duration) *Range {
	if max < min {
		max = min
	}
	return &Range{Min: min, Max: max}
}

func (r *Range) next() time.Duration {
	if r.Max <= r.Min {
		return r.Min
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.rnd == nil {
		r.rnd = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return r.Min + time.Duration(r.rnd.Int63n(int64(r.Max-r.Min)+1))
}

// Wait blocks for the next delay or until ctx ends.
func (r *Range) Wait(ctx context.Context) error {
	if r == nil {
		return ctx.Err()
	}
	d := r.next()
	if d <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
