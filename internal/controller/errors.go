package controller

import (
	"errors"
	"fmt"
)

var (
	// ErrRunAlreadyActive is returned by Start while another run is in progress.
	ErrRunAlreadyActive = errors.New("a run is already active")

	// ErrUnknownRun is returned for a RunHandle the controller never issued
	// or has already forgotten.
	ErrUnknownRun = errors.New("unknown run")

	// ErrInvalidRequest is returned by Start for a malformed RunRequest.
	ErrInvalidRequest = errors.New("invalid run request")
)

// Cycle error kinds. A CycleError always unwraps to exactly one of these.
var (
	ErrInjection = errors.New("injection")
	ErrCapture   = errors.New("capture")
	ErrOCR       = errors.New("ocr")
)

// CycleError records a collaborator failure inside one reroll cycle.
type CycleError struct {
	Attempt int
	Kind    error
	Err     error
}

func (e *CycleError) Error() string {
	return fmt.Sprintf("attempt %d: %v: %v", e.Attempt, e.Kind, e.Err)
}

// Unwrap exposes both the kind sentinel and the underlying cause.
func (e *CycleError) Unwrap() []error {
	return []error{e.Kind, e.Err}
}

// KindName returns the short name of the error kind ("injection", "capture", "ocr").
func (e *CycleError) KindName() string {
	if e.Kind == nil {
		return ""
	}
	return e.Kind.Error()
}

// RunError is the serialisable form of the error that ended a run.
type RunError struct {
	Attempt int    `json:"attempt"`
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

func (e *RunError) Error() string {
	if e.Kind == "" {
		return e.Message
	}
	return fmt.Sprintf("attempt %d %s: %s", e.Attempt, e.Kind, e.Message)
}

func newRunError(err error) *RunError {
	var ce *CycleError
	if errors.As(err, &ce) {
		return &RunError{Attempt: ce.Attempt, Kind: ce.KindName(), Message: ce.Err.Error()}
	}
	return &RunError{Message: err.Error()}
}

// guard runs fn, converting a panic into an error.
func guard(fn func() error) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("panic: %v", p)
		}
	}()
	return fn()
}
