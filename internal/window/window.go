// Package window locates the game window that clicks and captures target.
package window

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
)

// ErrNotFound is returned when no window has the configured class.
var ErrNotFound = errors.New("game window not found")

// ErrUnsupported is returned by backends unavailable on this platform.
var ErrUnsupported = errors.New("not supported on this platform")

// Candidate is a top-level window with the configured class.
type Candidate struct {
	Handle  uintptr
	Title   string
	Visible bool
}

// String returns a compact description for logs.
func (c Candidate) String() string {
	return fmt.Sprintf("%#x %q", c.Handle, c.Title)
}

// Lister returns the windows whose class is class.
type Lister func(ctx context.Context, class string) ([]Candidate, error)

// Pick chooses the game window among cands: the only one, else the first
// whose title contains title, else the first visible one, else the first.
func Pick(cands []Candidate, title string) (Candidate, error) {
	switch len(cands) {
	case 0:
		return Candidate{}, ErrNotFound
	case 1:
		return cands[0], nil
	}
	if title != "" {
		for _, c := range cands {
			if strings.Contains(c.Title, title) {
				return c, nil
			}
		}
	}
	for _, c := range cands {
		if c.Visible {
			return c, nil
		}
	}
	return cands[0], nil
}

// Finder resolves and caches the game window. Call Forget when the cached
// handle stops working.
type Finder struct {
	class string
	title string
	list  Lister

	mu     sync.Mutex
	cached *Candidate
}

// NewFinder creates a Finder for windows of class, preferring title.
func NewFinder(class, title string, list Lister) *Finder {
	return &Finder{class: class, title: title, list: list}
}

// Find returns the cached window or looks it up.
func (f *Finder) Find(ctx context.Context) (Candidate, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.cached != nil {
		return *f.cached, nil
	}

	cands, err := f.list(ctx, f.class)
	if err != nil {
		return Candidate{}, fmt.Errorf("list %q windows: %w", f.class, err)
	}
	c, err := Pick(cands, f.title)
	if err != nil {
		return Candidate{}, fmt.Errorf("%w: class %q", err, f.class)
	}
	f.cached = &c
	return c, nil
}

// Forget drops the cached window so the next Find looks it up again.
func (f *Finder) Forget() {
	f.mu.Lock()
	f.cached = nil
	f.mu.Unlock()
}
