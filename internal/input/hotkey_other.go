//go:build !windows

package input

import (
	"context"
	"fmt"
	"time"

	"github.com/npratt/reroll/internal/window"
)

// HotkeyListener is only available on Windows; use the terminal listener.
type HotkeyListener struct{}

// NewHotkeyListener reports that global hotkeys are unsupported here.
func NewHotkeyListener(key string, interval time.Duration) (*HotkeyListener, error) {
	if _, err := KeyCode(key); err != nil {
		return nil, err
	}
	return nil, fmt.Errorf("global hotkey: %w", window.ErrUnsupported)
}

// Listen implements killswitch.Listener.
func (l *HotkeyListener) Listen(ctx context.Context, onTrip func()) error {
	<-ctx.Done()
	return nil
}
