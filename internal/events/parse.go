package events

import (
	"encoding/json"
	"log/slog"
)

// eventEnvelope is used for initial JSON parsing to determine event type.
type eventEnvelope struct {
	Type EventType `json:"type"`
}

// ParseEvent parses a JSON line from the session log into a typed Event.
// Returns nil with no error for unknown event types.
func ParseEvent(line []byte) (Event, error) {
	var envelope eventEnvelope
	if err := json.Unmarshal(line, &envelope); err != nil {
		return nil, err
	}

	var ev Event
	switch envelope.Type {
	case EventRunStart:
		ev = &RunStartEvent{}
	case EventRunStateChanged:
		ev = &RunStateChangedEvent{}
	case EventAttemptEnd:
		ev = &AttemptEndEvent{}
	case EventRunEnd:
		ev = &RunEndEvent{}
	case EventKillSwitch:
		ev = &KillSwitchEvent{}
	case EventError:
		ev = &ErrorEvent{}
	default:
		slog.Debug("unknown event type", "type", envelope.Type)
		return nil, nil
	}

	if err := json.Unmarshal(line, ev); err != nil {
		return nil, err
	}
	return ev, nil
}
