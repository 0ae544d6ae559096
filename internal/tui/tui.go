// Package tui provides a terminal UI for following a reroll run using bubbletea.
package tui

import (
	"context"
	"errors"
	"io"
	"os"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/npratt/reroll/internal/catalog"
	"github.com/npratt/reroll/internal/events"
)

// TUI is the terminal UI for following a run.
type TUI struct {
	eventChan <-chan events.Event
	catalog   *catalog.Catalog
	onCancel  func()
	onQuit    func()
	exitOnEnd bool
	out       io.Writer
}

// Option configures the TUI.
type Option func(*TUI)

// New creates a new TUI with the given event channel and options.
func New(eventChan <-chan events.Event, opts ...Option) *TUI {
	t := &TUI{
		eventChan: eventChan,
		out:       os.Stdout,
	}

	for _, opt := range opts {
		opt(t)
	}

	return t
}

// WithCatalog sets the catalog used to group detected stats by polarity.
func WithCatalog(cat *catalog.Catalog) Option {
	return func(t *TUI) {
		t.catalog = cat
	}
}

// WithOnCancel sets the callback invoked when the user presses esc or 'c'.
func WithOnCancel(fn func()) Option {
	return func(t *TUI) {
		t.onCancel = fn
	}
}

// WithOnQuit sets the callback invoked when the user presses 'q'.
func WithOnQuit(fn func()) Option {
	return func(t *TUI) {
		t.onQuit = fn
	}
}

// WithExitOnEnd makes the TUI exit once the run reaches a terminal state.
func WithExitOnEnd(exit bool) Option {
	return func(t *TUI) {
		t.exitOnEnd = exit
	}
}

// WithOutput sets where the plain fallback writes. Defaults to stdout.
func WithOutput(w io.Writer) Option {
	return func(t *TUI) {
		t.out = w
	}
}

// Run starts the TUI and blocks until it exits. Without a usable terminal it
// falls back to line-by-line output.
func (t *TUI) Run(ctx context.Context) error {
	if !isTerminal() || terminalTooSmall() {
		return t.runSimple(ctx)
	}

	m := newModel(t.eventChan, t.catalog, t.onCancel, t.onQuit, t.exitOnEnd)

	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx))
	_, err := p.Run()
	if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		return nil
	}
	return err
}
