// Package memory provides in-memory implementations of the state
// store ports shared by all request handlers.
package memory

import (
	"context"
	"hash/fnv"
	"sync"

	"github.com/zerotobillion/teapot-server/domain/brew"
	"github.com/zerotobillion/teapot-server/ports"
)

// brewShard is a single shard of the brew state store.
type brewShard struct {
	mu    sync.RWMutex
	state map[brew.RequestKey]bool
}

// BrewStateStore is a sharded in-memory implementation of
// ports.BrewStateStore. Sharding reduces lock contention between
// unrelated keys; entries are never evicted (state lives for the
// process lifetime).
type BrewStateStore struct {
	shards    []*brewShard
	numShards int
}

// BrewStateConfig configures the brew state store.
type BrewStateConfig struct {
	NumShards int // Number of shards (default: 32)
}

// NewBrewStateStore creates a new sharded brew state store.
func NewBrewStateStore(cfg BrewStateConfig) *BrewStateStore {
	if cfg.NumShards <= 0 {
		cfg.NumShards = 32
	}

	s := &BrewStateStore{
		shards:    make([]*brewShard, cfg.NumShards),
		numShards: cfg.NumShards,
	}
	for i := range s.shards {
		s.shards[i] = &brewShard{state: make(map[brew.RequestKey]bool)}
	}
	return s
}

// getShard returns the shard for a given key using consistent hashing.
func (s *BrewStateStore) getShard(key brew.RequestKey) *brewShard {
	h := fnv.New32a()
	h.Write([]byte(key.String()))
	return s.shards[h.Sum32()%uint32(s.numShards)]
}

// Get returns the brewing flag for a key, false if absent.
func (s *BrewStateStore) Get(ctx context.Context, key brew.RequestKey) (bool, error) {
	shard := s.getShard(key)
	shard.mu.RLock()
	defer shard.mu.RUnlock()
	return shard.state[key], nil
}

// Set upserts the brewing flag for a key.
func (s *BrewStateStore) Set(ctx context.Context, key brew.RequestKey, brewing bool) error {
	shard := s.getShard(key)
	shard.mu.Lock()
	defer shard.mu.Unlock()
	shard.state[key] = brewing
	return nil
}

// CompareAndSet swaps old for new if the stored flag equals old.
// An absent key compares equal to false.
func (s *BrewStateStore) CompareAndSet(ctx context.Context, key brew.RequestKey, old, new bool) (bool, error) {
	shard := s.getShard(key)
	shard.mu.Lock()
	defer shard.mu.Unlock()

	if shard.state[key] != old {
		return false, nil
	}
	shard.state[key] = new
	return true, nil
}

// Len returns the total number of entries across all shards (for testing).
func (s *BrewStateStore) Len() int {
	total := 0
	for _, shard := range s.shards {
		shard.mu.RLock()
		total += len(shard.state)
		shard.mu.RUnlock()
	}
	return total
}

// Clear removes all state (for testing).
func (s *BrewStateStore) Clear() {
	for _, shard := range s.shards {
		shard.mu.Lock()
		shard.state = make(map[brew.RequestKey]bool)
		shard.mu.Unlock()
	}
}

// Ensure interface compliance.
var _ ports.BrewStateStore = (*BrewStateStore)(nil)
