package notify

import (
	"context"
	"io"
)

// Bell rings the terminal bell.
type Bell struct {
	w io.Writer
}

// NewBell creates a Bell writing to w.
func NewBell(w io.Writer) *Bell {
	return &Bell{w: w}
}

// Name implements Notifier.
func (b *Bell) Name() string { return "bell" }

// Notify implements Notifier.
func (b *Bell) Notify(ctx context.Context, msg Message) error {
	_, err := io.WriteString(b.w, "\a")
	return err
}
