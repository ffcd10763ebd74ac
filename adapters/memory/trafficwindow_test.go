package memory_test

import (
	"context"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/zerotobillion/teapot-server/adapters/clock"
	"github.com/zerotobillion/teapot-server/adapters/memory"
	"github.com/zerotobillion/teapot-server/domain/brew"
)

var windowBase = time.Date(2024, 3, 1, 9, 30, 0, 0, time.UTC)

func TestTrafficWindow_SequentialIncrements(t *testing.T) {
	w := memory.NewTrafficWindow(clock.NewFake(windowBase))
	ctx := context.Background()
	key := brew.ResolveKey("10.0.0.1", "earl-grey")

	for want := 1; want <= 5; want++ {
		got, err := w.Increment(ctx, key)
		if err != nil {
			t.Fatalf("Increment failed: %v", err)
		}
		if got != want {
			t.Errorf("Increment = %d, want %d", got, want)
		}
	}
}

func TestTrafficWindow_KeysCountedSeparately(t *testing.T) {
	w := memory.NewTrafficWindow(clock.NewFake(windowBase))
	ctx := context.Background()

	a := brew.ResolveKey("10.0.0.1", "earl-grey")
	b := brew.ResolveKey("10.0.0.2", "earl-grey")

	w.Increment(ctx, a)
	w.Increment(ctx, a)

	if got, _ := w.Increment(ctx, b); got != 1 {
		t.Errorf("first increment for second key = %d, want 1", got)
	}
}

func TestTrafficWindow_ConcurrentIncrements_NoGapsNoDuplicates(t *testing.T) {
	w := memory.NewTrafficWindow(clock.NewFake(windowBase))
	ctx := context.Background()
	key := brew.ResolveKey("10.0.0.1", "earl-grey")

	const n = 100
	results := make([]int, n)
	var wg sync.WaitGroup

	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			v, err := w.Increment(ctx, key)
			if err != nil {
				t.Errorf("Increment failed: %v", err)
			}
			results[i] = v
		}(i)
	}
	wg.Wait()

	sort.Ints(results)
	for i, v := range results {
		if v != i+1 {
			t.Fatalf("returned values are not exactly 1..%d: position %d holds %d", n, i, v)
		}
	}
}

func TestTrafficWindow_NewSecondResetsCount(t *testing.T) {
	fake := clock.NewFake(windowBase)
	w := memory.NewTrafficWindow(fake)
	ctx := context.Background()
	key := brew.ResolveKey("10.0.0.1", "earl-grey")

	w.Increment(ctx, key)
	w.Increment(ctx, key)

	fake.Advance(time.Second)

	if got, _ := w.Increment(ctx, key); got != 1 {
		t.Errorf("count after second rollover = %d, want 1", got)
	}
}

func TestTrafficWindow_EvictsStaleSeconds(t *testing.T) {
	fake := clock.NewFake(windowBase)
	w := memory.NewTrafficWindow(fake)
	ctx := context.Background()
	key := brew.ResolveKey("10.0.0.1", "earl-grey")

	// Populate several distinct seconds.
	for i := 0; i < 4; i++ {
		w.Increment(ctx, key)
		fake.Advance(time.Second)
	}
	if w.Seconds() < 2 {
		t.Fatalf("expected multiple buckets before cleanup, got %d", w.Seconds())
	}

	// The next increment evicts everything strictly before now.
	w.Increment(ctx, key)

	if got := w.Seconds(); got != 1 {
		t.Errorf("window holds %d second buckets after cleanup, want 1", got)
	}
}

func TestTrafficWindow_CountDoesNotIncrement(t *testing.T) {
	w := memory.NewTrafficWindow(clock.NewFake(windowBase))
	ctx := context.Background()
	key := brew.ResolveKey("10.0.0.1", "earl-grey")

	w.Increment(ctx, key)
	w.Increment(ctx, key)

	if got := w.Count(key); got != 2 {
		t.Errorf("Count = %d, want 2", got)
	}
	if got := w.Count(key); got != 2 {
		t.Errorf("Count after Count = %d, want 2", got)
	}
}

func TestTrafficWindow_ConcurrentMixedSeconds(t *testing.T) {
	fake := clock.NewFake(windowBase)
	w := memory.NewTrafficWindow(fake)
	ctx := context.Background()

	// Concurrent increments across many keys with the clock advancing
	// in between must not race or panic; final window is one bucket.
	keys := []brew.RequestKey{
		brew.ResolveKey("10.0.0.1", "earl-grey"),
		brew.ResolveKey("10.0.0.2", "earl-grey"),
		brew.ResolveKey("10.0.0.3", "english-breakfast"),
	}

	var wg sync.WaitGroup
	for round := 0; round < 3; round++ {
		for _, k := range keys {
			for i := 0; i < 10; i++ {
				wg.Add(1)
				go func(k brew.RequestKey) {
					defer wg.Done()
					w.Increment(ctx, k)
				}(k)
			}
		}
		wg.Wait()
		fake.Advance(time.Second)
	}

	w.Increment(ctx, keys[0])
	if got := w.Seconds(); got != 1 {
		t.Errorf("window holds %d buckets, want 1", got)
	}
}
