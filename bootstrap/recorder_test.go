package bootstrap_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/zerotobillion/teapot-server/bootstrap"
	"github.com/zerotobillion/teapot-server/domain/brew"
)

// captureStore records batches it receives.
type captureStore struct {
	mu      sync.Mutex
	batches [][]brew.Event
}

func (s *captureStore) RecordBatch(_ context.Context, events []brew.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	batch := make([]brew.Event, len(events))
	copy(batch, events)
	s.batches = append(s.batches, batch)
	return nil
}

func (s *captureStore) total() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, b := range s.batches {
		n += len(b)
	}
	return n
}

func waitForTotal(t *testing.T, s *captureStore, want int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if s.total() >= want {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %d events, have %d", want, s.total())
}

func testEvent(id string) brew.Event {
	return brew.Event{
		ID:         id,
		Key:        "10.0.0.1/earl-grey",
		Variant:    "earl-grey",
		Action:     brew.ActionStart,
		Outcome:    brew.OutcomeAccepted,
		ClientAddr: "10.0.0.1",
		Timestamp:  time.Now().UTC(),
	}
}

func TestRecorderFlushesAtBatchSize(t *testing.T) {
	store := &captureStore{}
	r := bootstrap.NewBufferedEventRecorder(store, 3, time.Hour)
	defer r.Close()

	r.Record(testEvent("a"))
	r.Record(testEvent("b"))
	if store.total() != 0 {
		t.Errorf("premature flush: %d events", store.total())
	}

	r.Record(testEvent("c"))
	waitForTotal(t, store, 3)
}

func TestRecorderFlushOnDemand(t *testing.T) {
	store := &captureStore{}
	r := bootstrap.NewBufferedEventRecorder(store, 100, time.Hour)
	defer r.Close()

	r.Record(testEvent("a"))
	if err := r.Flush(context.Background()); err != nil {
		t.Fatalf("flush: %v", err)
	}
	waitForTotal(t, store, 1)
}

func TestRecorderCloseFlushesRemainder(t *testing.T) {
	store := &captureStore{}
	r := bootstrap.NewBufferedEventRecorder(store, 100, time.Hour)

	r.Record(testEvent("a"))
	r.Record(testEvent("b"))
	if err := r.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if store.total() != 2 {
		t.Errorf("events after close = %d, want 2", store.total())
	}

	// Second close is a no-op
	if err := r.Close(); err != nil {
		t.Errorf("second close: %v", err)
	}
}

func TestRecorderPeriodicFlush(t *testing.T) {
	store := &captureStore{}
	r := bootstrap.NewBufferedEventRecorder(store, 100, 20*time.Millisecond)
	defer r.Close()

	r.Record(testEvent("a"))
	waitForTotal(t, store, 1)
}

func TestNoopRecorder(t *testing.T) {
	var r bootstrap.NoopEventRecorder
	r.Record(testEvent("a"))
	if err := r.Flush(context.Background()); err != nil {
		t.Errorf("flush: %v", err)
	}
	if err := r.Close(); err != nil {
		t.Errorf("close: %v", err)
	}
}
