package tui

import (
	"context"
	"fmt"
	"os"

	"golang.org/x/term"

	"github.com/npratt/reroll/internal/events"
)

// isTerminal returns true if both stdout and stdin are TTYs.
func isTerminal() bool {
	return term.IsTerminal(int(os.Stdout.Fd())) && term.IsTerminal(int(os.Stdin.Fd()))
}

// terminalSize returns the current terminal width and height.
// Returns 0, 0 if the terminal size cannot be determined.
func terminalSize() (width, height int) {
	width, height, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil {
		return 0, 0
	}
	return width, height
}

// terminalTooSmall returns true if the terminal is below the minimum size.
func terminalTooSmall() bool {
	width, height := terminalSize()
	return width < minWidth || height < minHeight
}

// runSimple provides line-by-line output for non-interactive environments.
// Attempts are followed by their detected stats grouped by polarity. It exits
// when the channel closes, ctx is done, or the run ends with exitOnEnd set.
func (t *TUI) runSimple(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-t.eventChan:
			if !ok {
				return nil
			}

			if err := t.printEvent(event); err != nil {
				return err
			}

			if _, ended := event.(*events.RunEndEvent); ended && t.exitOnEnd {
				return nil
			}
		}
	}
}

func (t *TUI) printEvent(event events.Event) error {
	if events.Format(event) == "" {
		return nil
	}
	if _, err := fmt.Fprintln(t.out, events.FormatWithTimestamp(event)); err != nil {
		return err
	}

	var groups []Group
	switch e := event.(type) {
	case *events.AttemptEndEvent:
		groups = GroupDetected(t.catalog, e.Detected)
	case *events.RunEndEvent:
		if e.Matched() {
			groups = GroupDetected(t.catalog, e.Detected)
		}
	}
	for _, g := range groups {
		if _, err := fmt.Fprintf(t.out, "           %-10s %s\n", g.Label+":", events.FormatDetected(g.Stats)); err != nil {
			return err
		}
	}
	return nil
}
