// Package killswitch provides the process-wide emergency stop observed by the
// reroll loop.
package killswitch

import (
	"context"
	"sync"
)

// Listener watches an input source (a global hotkey, a terminal) and calls
// onTrip each time the user asks for an emergency stop. Listen blocks until
// ctx is cancelled.
type Listener interface {
	Listen(ctx context.Context, onTrip func()) error
}

// Switch is a resettable one-way flag. Trip may be called from any goroutine
// any number of times; Done is closed on the first Trip after a Reset.
type Switch struct {
	mu      sync.Mutex
	tripped bool
	done    chan struct{}
}

// New returns an untripped Switch.
func New() *Switch {
	return &Switch{done: make(chan struct{})}
}

// Trip sets the switch. It is idempotent.
func (s *Switch) Trip() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.tripped {
		return
	}
	s.tripped = true
	close(s.done)
}

// Tripped reports whether the switch is set.
func (s *Switch) Tripped() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tripped
}

// Done returns a channel closed when the switch trips. The channel belongs to
// the current arming; callers must fetch it again after Reset.
func (s *Switch) Done() <-chan struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.done
}

// Reset clears the switch for the next run.
func (s *Switch) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.tripped {
		return
	}
	s.tripped = false
	s.done = make(chan struct{})
}

// Watch runs l until ctx is cancelled, tripping s on every request.
func Watch(ctx context.Context, l Listener, s *Switch) error {
	return l.Listen(ctx, s.Trip)
}

// ListenerFunc adapts a function to the Listener interface.
type ListenerFunc func(ctx context.Context, onTrip func()) error

// Listen calls f.
func (f ListenerFunc) Listen(ctx context.Context, onTrip func()) error {
	return f(ctx, onTrip)
}
