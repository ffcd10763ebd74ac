package brew

import "time"

// Event records one protocol decision for the audit log (value type).
// Events are never read back to reconstruct brewing state.
type Event struct {
	ID         string
	Key        string // flat RequestKey form
	Variant    string
	Action     string // "start" or "stop"
	Outcome    string // "accepted", "finished", or a rejection code
	Count      int    // measured traffic count, 0 when ungated
	Threshold  int    // admission threshold in force, 0 when ungated
	ClientAddr string
	Contact    string
	Timestamp  time.Time
}

// Event actions
const (
	ActionStart = "start"
	ActionStop  = "stop"
)

// Success outcomes; rejections use the ErrorResponse code.
const (
	OutcomeAccepted = "accepted"
	OutcomeFinished = "finished"
)
