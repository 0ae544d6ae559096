// Package notify announces matched runs on the terminal, Discord and Telegram.
package notify

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/npratt/reroll/internal/events"
	"github.com/npratt/reroll/internal/normalize"
)

// Message summarises a matched run.
type Message struct {
	RunID    string
	Targets  []string
	Detected []normalize.DetectedStat
	Attempts int
	Duration time.Duration
}

// Title is the one-line headline.
func (m Message) Title() string {
	return fmt.Sprintf("Reroll matched after %d attempts", m.Attempts)
}

// Text is the plain-text body used by chat backends.
func (m Message) Text() string {
	var b strings.Builder
	b.WriteString(m.Title())
	if len(m.Targets) > 0 {
		fmt.Fprintf(&b, "\nTargets: %s", strings.Join(m.Targets, ", "))
	}
	if len(m.Detected) > 0 {
		fmt.Fprintf(&b, "\nRolled: %s", events.FormatDetected(m.Detected))
	}
	fmt.Fprintf(&b, "\nTime: %s", m.Duration.Round(time.Second))
	return b.String()
}

// Notifier delivers a Message to one destination.
type Notifier interface {
	Name() string
	Notify(ctx context.Context, msg Message) error
}
