// Package events defines the event taxonomy shared by the reroll controller,
// its sinks and its observers.
package events

import (
	"time"

	"github.com/npratt/reroll/internal/normalize"
)

// EventType identifies the category and nature of an event.
type EventType string

const (
	// Run lifecycle events
	EventRunStart        EventType = "run.start"
	EventRunStateChanged EventType = "run.state_changed"
	EventRunEnd          EventType = "run.end"

	// Per-cycle events
	EventAttemptEnd EventType = "attempt.end"

	// Emergency stop
	EventKillSwitch EventType = "killswitch.tripped"

	// Error events
	EventError EventType = "error"
)

// Source constants identify the origin of events.
const (
	SourceInternal   = "reroll"
	SourceKillSwitch = "killswitch"
)

// Event is the base interface for all events in the system.
type Event interface {
	Type() EventType
	Timestamp() time.Time
	Source() string
}

// BaseEvent provides the common fields for all events.
type BaseEvent struct {
	EventType EventType `json:"type"`
	Time      time.Time `json:"timestamp"`
	Src       string    `json:"source"`
}

// Type returns the event type.
func (e BaseEvent) Type() EventType {
	return e.EventType
}

// Timestamp returns when the event occurred.
func (e BaseEvent) Timestamp() time.Time {
	return e.Time
}

// Source returns the origin of the event.
func (e BaseEvent) Source() string {
	return e.Src
}

// RunStartEvent is emitted when a run leaves idle.
type RunStartEvent struct {
	BaseEvent
	RunID   string   `json:"run_id"`
	Targets []string `json:"targets"`
	Region  string   `json:"region,omitempty"`
}

// RunStateChangedEvent is emitted on every run state transition.
type RunStateChangedEvent struct {
	BaseEvent
	RunID string `json:"run_id"`
	From  string `json:"from"`
	To    string `json:"to"`
}

// AttemptEndEvent records one completed reroll cycle.
type AttemptEndEvent struct {
	BaseEvent
	RunID      string                   `json:"run_id"`
	Attempt    int                      `json:"attempt"`
	RawLines   []string                 `json:"raw_lines"`
	Detected   []normalize.DetectedStat `json:"detected"`
	Matched    bool                     `json:"matched"`
	DurationMs int64                    `json:"duration_ms"`
}

// RunEndEvent is emitted once when a run reaches a terminal state.
type RunEndEvent struct {
	BaseEvent
	RunID      string                   `json:"run_id"`
	Status     string                   `json:"status"`
	Attempts   int                      `json:"attempts"`
	Detected   []normalize.DetectedStat `json:"detected,omitempty"`
	DurationMs int64                    `json:"duration_ms"`
	Error      string                   `json:"error,omitempty"`
}

// Matched reports whether the run ended because the targets were found.
func (e *RunEndEvent) Matched() bool {
	return e.Status == "stopped-matched"
}

// KillSwitchEvent is emitted when the emergency stop is tripped.
type KillSwitchEvent struct {
	BaseEvent
	RunID string `json:"run_id,omitempty"`
}

// Severity constants for error events.
const (
	SeverityWarning = "warning"
	SeverityError   = "error"
)

// ErrorEvent is emitted for any error condition.
type ErrorEvent struct {
	BaseEvent
	RunID    string `json:"run_id,omitempty"`
	Attempt  int    `json:"attempt,omitempty"`
	Kind     string `json:"kind,omitempty"`
	Message  string `json:"message"`
	Severity string `json:"severity"`
}

// NewEvent creates a BaseEvent with the given type and source.
func NewEvent(eventType EventType, source string) BaseEvent {
	return BaseEvent{
		EventType: eventType,
		Time:      time.Now(),
		Src:       source,
	}
}

// NewInternalEvent creates a BaseEvent originating from the controller.
func NewInternalEvent(eventType EventType) BaseEvent {
	return NewEvent(eventType, SourceInternal)
}

// RunID extracts the run ID from an event, if present.
func RunID(ev Event) string {
	switch e := ev.(type) {
	case *RunStartEvent:
		return e.RunID
	case *RunStateChangedEvent:
		return e.RunID
	case *AttemptEndEvent:
		return e.RunID
	case *RunEndEvent:
		return e.RunID
	case *KillSwitchEvent:
		return e.RunID
	case *ErrorEvent:
		return e.RunID
	default:
		return ""
	}
}
