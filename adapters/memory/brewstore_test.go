package memory_test

import (
	"context"
	"sync"
	"testing"

	"github.com/zerotobillion/teapot-server/adapters/memory"
	"github.com/zerotobillion/teapot-server/domain/brew"
)

func TestBrewStateStore_GetAbsent(t *testing.T) {
	store := memory.NewBrewStateStore(memory.BrewStateConfig{})
	ctx := context.Background()

	brewing, err := store.Get(ctx, brew.ResolveKey("10.0.0.1", "earl-grey"))
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if brewing {
		t.Error("absent key should read as false")
	}
}

func TestBrewStateStore_SetGet(t *testing.T) {
	store := memory.NewBrewStateStore(memory.BrewStateConfig{})
	ctx := context.Background()
	key := brew.ResolveKey("10.0.0.1", "earl-grey")

	if err := store.Set(ctx, key, true); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	brewing, err := store.Get(ctx, key)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if !brewing {
		t.Error("flag should be true after Set(true)")
	}

	if err := store.Set(ctx, key, false); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	brewing, _ = store.Get(ctx, key)
	if brewing {
		t.Error("flag should be false after Set(false)")
	}
}

func TestBrewStateStore_KeysAreIndependent(t *testing.T) {
	store := memory.NewBrewStateStore(memory.BrewStateConfig{})
	ctx := context.Background()

	a := brew.ResolveKey("10.0.0.1", "earl-grey")
	b := brew.ResolveKey("10.0.0.1", "english-breakfast")

	store.Set(ctx, a, true)

	if brewing, _ := store.Get(ctx, b); brewing {
		t.Error("setting one key must not affect another")
	}
	if store.Len() != 1 {
		t.Errorf("Len = %d, want 1", store.Len())
	}
}

func TestBrewStateStore_CompareAndSet(t *testing.T) {
	store := memory.NewBrewStateStore(memory.BrewStateConfig{})
	ctx := context.Background()
	key := brew.ResolveKey("10.0.0.1", "earl-grey")

	// Absent key compares equal to false.
	swapped, err := store.CompareAndSet(ctx, key, false, true)
	if err != nil {
		t.Fatalf("CompareAndSet failed: %v", err)
	}
	if !swapped {
		t.Fatal("first CAS false->true should succeed")
	}

	swapped, _ = store.CompareAndSet(ctx, key, false, true)
	if swapped {
		t.Error("second CAS false->true should fail while brewing")
	}

	swapped, _ = store.CompareAndSet(ctx, key, true, false)
	if !swapped {
		t.Error("CAS true->false should succeed")
	}
}

func TestBrewStateStore_ConcurrentCAS_SingleWinner(t *testing.T) {
	store := memory.NewBrewStateStore(memory.BrewStateConfig{NumShards: 4})
	ctx := context.Background()
	key := brew.ResolveKey("10.0.0.1", "earl-grey")

	const n = 64
	var wg sync.WaitGroup
	wins := make(chan struct{}, n)

	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if ok, _ := store.CompareAndSet(ctx, key, false, true); ok {
				wins <- struct{}{}
			}
		}()
	}
	wg.Wait()
	close(wins)

	won := 0
	for range wins {
		won++
	}
	if won != 1 {
		t.Errorf("exactly one CAS should win, got %d", won)
	}
}

func TestBrewStateStore_Clear(t *testing.T) {
	store := memory.NewBrewStateStore(memory.BrewStateConfig{})
	ctx := context.Background()

	store.Set(ctx, brew.ResolveKey("10.0.0.1", "earl-grey"), true)
	store.Clear()

	if store.Len() != 0 {
		t.Errorf("Len = %d after Clear, want 0", store.Len())
	}
}
