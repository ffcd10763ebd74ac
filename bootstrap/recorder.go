package bootstrap

import (
	"context"
	"sync"
	"time"

	"github.com/zerotobillion/teapot-server/domain/brew"
	"github.com/zerotobillion/teapot-server/ports"
)

// BufferedEventRecorder buffers brew events and writes them in batches
// to the store.
type BufferedEventRecorder struct {
	store         ports.EventStore
	buffer        []brew.Event
	mu            sync.Mutex
	batchSize     int
	flushInterval time.Duration
	stopCh        chan struct{}
	wg            sync.WaitGroup
	closeOnce     sync.Once
}

// NewBufferedEventRecorder creates a new buffered event recorder.
func NewBufferedEventRecorder(store ports.EventStore, batchSize int, flushInterval time.Duration) *BufferedEventRecorder {
	if batchSize == 0 {
		batchSize = 100
	}
	if flushInterval == 0 {
		flushInterval = 10 * time.Second
	}

	r := &BufferedEventRecorder{
		store:         store,
		buffer:        make([]brew.Event, 0, batchSize),
		batchSize:     batchSize,
		flushInterval: flushInterval,
		stopCh:        make(chan struct{}),
	}

	r.wg.Add(1)
	go r.flushLoop()

	return r
}

// Record queues a brew event for processing.
func (r *BufferedEventRecorder) Record(e brew.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.buffer = append(r.buffer, e)

	if len(r.buffer) >= r.batchSize {
		r.flushLocked(context.Background())
	}
}

// Flush forces immediate processing of queued events.
func (r *BufferedEventRecorder) Flush(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.flushLocked(ctx)
}

func (r *BufferedEventRecorder) flushLocked(ctx context.Context) error {
	if len(r.buffer) == 0 {
		return nil
	}

	events := make([]brew.Event, len(r.buffer))
	copy(events, r.buffer)
	r.buffer = r.buffer[:0]

	// Write in background to not block
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		r.store.RecordBatch(ctx, events)
	}()

	return nil
}

func (r *BufferedEventRecorder) flushLoop() {
	defer r.wg.Done()
	ticker := time.NewTicker(r.flushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			r.Flush(context.Background())
		case <-r.stopCh:
			return
		}
	}
}

// Close stops the recorder and flushes remaining events.
func (r *BufferedEventRecorder) Close() error {
	var err error
	r.closeOnce.Do(func() {
		close(r.stopCh)
		r.wg.Wait()

		// Final flush with timeout
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		r.mu.Lock()
		defer r.mu.Unlock()

		if len(r.buffer) > 0 {
			err = r.store.RecordBatch(ctx, r.buffer)
		}
	})
	return err
}

// Ensure interface compliance.
var _ ports.EventRecorder = (*BufferedEventRecorder)(nil)

// NoopEventRecorder discards events. Used when no database is
// configured.
type NoopEventRecorder struct{}

// Record discards the event.
func (NoopEventRecorder) Record(brew.Event) {}

// Flush is a no-op.
func (NoopEventRecorder) Flush(context.Context) error { return nil }

// Close is a no-op.
func (NoopEventRecorder) Close() error { return nil }

var _ ports.EventRecorder = NoopEventRecorder{}
