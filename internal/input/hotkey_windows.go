//go:build windows

package input

import (
	"context"
	"time"

	"golang.org/x/sys/windows"
)

var (
	user32           = windows.NewLazySystemDLL("user32.dll")
	getAsyncKeyState = user32.NewProc("GetAsyncKeyState")
)

// HotkeyListener trips on a global key press, whichever window has focus.
type HotkeyListener struct {
	vk       int
	interval time.Duration
}

// NewHotkeyListener creates a listener for the named key.
func NewHotkeyListener(key string, interval time.Duration) (*HotkeyListener, error) {
	vk, err := KeyCode(key)
	if err != nil {
		return nil, err
	}
	if interval <= 0 {
		interval = 20 * time.Millisecond
	}
	return &HotkeyListener{vk: vk, interval: interval}, nil
}

// Listen implements killswitch.Listener.
func (l *HotkeyListener) Listen(ctx context.Context, onTrip func()) error {
	if err := getAsyncKeyState.Find(); err != nil {
		return err
	}
	return pollKey(ctx, l.interval, func() bool {
		ret, _, _ := getAsyncKeyState.Call(uintptr(l.vk))
		return ret&0x8000 != 0
	}, onTrip)
}
