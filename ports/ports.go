// Package ports defines interfaces (contracts) between layers.
// These interfaces enable dependency injection and testability.
// Implementations live in adapters/.
package ports

import (
	"context"
	"time"

	"github.com/zerotobillion/teapot-server/domain/brew"
)

// -----------------------------------------------------------------------------
// Infrastructure Ports
// -----------------------------------------------------------------------------

// Clock abstracts time for testability.
type Clock interface {
	Now() time.Time
}

// IDGenerator generates unique identifiers.
type IDGenerator interface {
	New() string
}

// -----------------------------------------------------------------------------
// State Store Ports
// -----------------------------------------------------------------------------

// BrewStateStore holds the shared per-key brewing flag. An absent key
// reads as false. Single-key reads and writes are atomic; there is no
// multi-key transaction support.
type BrewStateStore interface {
	// Get returns the stored flag, or false if the key is absent.
	Get(ctx context.Context, key brew.RequestKey) (bool, error)

	// Set upserts the flag, visible to all handlers once it returns.
	Set(ctx context.Context, key brew.RequestKey, brewing bool) error

	// CompareAndSet atomically replaces old with new for the key and
	// reports whether the swap happened. An absent key compares equal
	// to false.
	CompareAndSet(ctx context.Context, key brew.RequestKey, old, new bool) (bool, error)
}

// TrafficCounter measures per-key traffic within the current wall-clock
// second.
type TrafficCounter interface {
	// Increment bumps the key's counter for the current second and
	// returns the new count. The call itself counts as traffic.
	Increment(ctx context.Context, key brew.RequestKey) (int, error)
}

// -----------------------------------------------------------------------------
// External Service Ports
// -----------------------------------------------------------------------------

// Notification is a completed-session message for the Notifier.
type Notification struct {
	Subject string
	Message string
}

// Notifier sends a completion message to the configured receivers. The
// implementation (SMTP, mock) is opaque to the state machine.
type Notifier interface {
	Send(ctx context.Context, n Notification) error
}

// -----------------------------------------------------------------------------
// Event Ports
// -----------------------------------------------------------------------------

// EventStore persists brew events in batches.
type EventStore interface {
	RecordBatch(ctx context.Context, events []brew.Event) error
}

// EventRecorder accepts brew events for async processing.
type EventRecorder interface {
	// Record queues an event for processing. Non-blocking.
	Record(event brew.Event)

	// Flush forces immediate processing of queued events.
	Flush(ctx context.Context) error

	// Close stops the recorder and flushes remaining events.
	Close() error
}
