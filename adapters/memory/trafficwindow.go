package memory

import (
	"context"
	"sync"

	"github.com/zerotobillion/teapot-server/domain/brew"
	"github.com/zerotobillion/teapot-server/ports"
)

// secondBucket holds per-key counters for a single wall-clock second.
// counts is guarded by TrafficWindow.incrMu.
type secondBucket struct {
	counts map[brew.RequestKey]int
}

// TrafficWindow is the shared sliding one-second traffic counter.
//
// Three distinct locks decouple the phases of Increment so that
// increment throughput for existing seconds is not serialized behind
// eviction of stale ones: cleanup is opportunistic (TryLock, losers
// skip it for the call), bucket creation and the counter
// read-modify-write each take their own mutex. No lock is ever held
// across two phases, so the phases cannot deadlock against each other.
type TrafficWindow struct {
	clock ports.Clock

	cleanupMu sync.Mutex
	createMu  sync.Mutex
	incrMu    sync.Mutex

	// second (unix) -> *secondBucket; the map itself provides atomic
	// single-key load/store, mirroring the shared associative
	// structure the handlers go through.
	buckets sync.Map
}

// NewTrafficWindow creates a traffic window using the given clock.
func NewTrafficWindow(clock ports.Clock) *TrafficWindow {
	return &TrafficWindow{clock: clock}
}

// Increment bumps the key's counter for the current second and returns
// the new count. Stale buckets (second strictly before the current
// one) are evicted opportunistically on the way in.
func (w *TrafficWindow) Increment(ctx context.Context, key brew.RequestKey) (int, error) {
	sec := w.clock.Now().Unix()

	// Clear old seconds, but only if nobody else is already clearing.
	if w.cleanupMu.TryLock() {
		w.buckets.Range(func(k, _ any) bool {
			if k.(int64) < sec {
				w.buckets.Delete(k)
			}
			return true
		})
		w.cleanupMu.Unlock()
	}

	bucket := w.bucketFor(sec)

	w.incrMu.Lock()
	n := bucket.counts[key] + 1
	bucket.counts[key] = n
	w.incrMu.Unlock()

	return n, nil
}

// bucketFor fetches or creates the bucket for a second.
func (w *TrafficWindow) bucketFor(sec int64) *secondBucket {
	if v, ok := w.buckets.Load(sec); ok {
		return v.(*secondBucket)
	}

	w.createMu.Lock()
	defer w.createMu.Unlock()

	// Re-check under the creation lock; another handler may have won.
	if v, ok := w.buckets.Load(sec); ok {
		return v.(*secondBucket)
	}
	bucket := &secondBucket{counts: make(map[brew.RequestKey]int)}
	w.buckets.Store(sec, bucket)
	return bucket
}

// Seconds returns the number of second buckets held (for testing).
func (w *TrafficWindow) Seconds() int {
	n := 0
	w.buckets.Range(func(_, _ any) bool {
		n++
		return true
	})
	return n
}

// Count returns the key's counter within the current second without
// incrementing (for testing).
func (w *TrafficWindow) Count(key brew.RequestKey) int {
	v, ok := w.buckets.Load(w.clock.Now().Unix())
	if !ok {
		return 0
	}
	w.incrMu.Lock()
	defer w.incrMu.Unlock()
	return v.(*secondBucket).counts[key]
}

// Ensure interface compliance.
var _ ports.TrafficCounter = (*TrafficWindow)(nil)
