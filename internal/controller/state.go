package controller

import (
	"context"
	"fmt"
	"image"
	"slices"
	"time"

	"github.com/npratt/reroll/internal/geom"
	"github.com/npratt/reroll/internal/normalize"
	"github.com/npratt/reroll/internal/target"
)

// State represents the status of a run.
type State string

// Run states.
const (
	StateIdle      State = "idle"
	StateRunning   State = "running"
	StateStopping  State = "stopping"
	StateMatched   State = "stopped-matched"
	StateCancelled State = "stopped-cancelled"
	StateError     State = "stopped-error"
)

// Terminal reports whether s is one of the stopped states.
func (s State) Terminal() bool {
	switch s {
	case StateMatched, StateCancelled, StateError:
		return true
	}
	return false
}

// Clicker injects a single left click at a point relative to the target window.
type Clicker interface {
	Click(ctx context.Context, p geom.Point) error
}

// Capturer grabs a region of the target window.
type Capturer interface {
	Capture(ctx context.Context, region geom.Rect) (image.Image, error)
}

// Recognizer extracts text lines from an image, top to bottom.
type Recognizer interface {
	Recognize(ctx context.Context, img image.Image) ([]string, error)
}

// RunRequest describes one run.
type RunRequest struct {
	Selection  target.Selection
	Apply      geom.Point
	Change     geom.Point
	Region     geom.Rect
	Settle     time.Duration
	ClickDelay time.Duration
}

func (r RunRequest) validate() error {
	if r.Selection.Empty() {
		return target.ErrInvalidSelection
	}
	if r.Region.Empty() {
		return fmt.Errorf("%w: empty detection region %s", ErrInvalidRequest, r.Region)
	}
	if r.Settle < 0 || r.ClickDelay < 0 {
		return fmt.Errorf("%w: negative delay", ErrInvalidRequest)
	}
	return nil
}

// RunHandle identifies a run started by Start.
type RunHandle struct {
	ID string `json:"id"`
}

// Snapshot is a copy of a run's state.
type Snapshot struct {
	RunID        string                   `json:"run_id,omitempty"`
	Status       State                    `json:"status"`
	Targets      []string                 `json:"targets,omitempty"`
	Attempt      int                      `json:"attempt"`
	LastDetected []normalize.DetectedStat `json:"last_detected,omitempty"`
	LastRaw      []string                 `json:"last_raw,omitempty"`
	Error        *RunError                `json:"error,omitempty"`
	StartedAt    time.Time                `json:"started_at,omitzero"`
	EndedAt      time.Time                `json:"ended_at,omitzero"`
}

// Matched reports whether the run stopped on a match.
func (s Snapshot) Matched() bool {
	return s.Status == StateMatched
}

// Elapsed returns the run's duration so far.
func (s Snapshot) Elapsed() time.Duration {
	if s.StartedAt.IsZero() {
		return 0
	}
	if s.EndedAt.IsZero() {
		return time.Since(s.StartedAt)
	}
	return s.EndedAt.Sub(s.StartedAt)
}

func (s Snapshot) clone() Snapshot {
	c := s
	c.Targets = slices.Clone(s.Targets)
	c.LastDetected = slices.Clone(s.LastDetected)
	c.LastRaw = slices.Clone(s.LastRaw)
	if s.Error != nil {
		e := *s.Error
		c.Error = &e
	}
	return c
}
