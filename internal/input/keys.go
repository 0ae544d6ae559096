package input

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// virtualKeys maps kill-switch key names to Windows virtual-key codes.
var virtualKeys = map[string]int{
	"esc":       0x1B,
	"escape":    0x1B,
	"pause":     0x13,
	"end":       0x23,
	"home":      0x24,
	"insert":    0x2D,
	"delete":    0x2E,
	"scroll":    0x91,
	"space":     0x20,
	"backspace": 0x08,
}

// KeyCode resolves a key name such as "esc", "f12" or "x" to its virtual-key code.
func KeyCode(name string) (int, error) {
	key := strings.ToLower(strings.TrimSpace(name))
	if vk, ok := virtualKeys[key]; ok {
		return vk, nil
	}
	if n, ok := strings.CutPrefix(key, "f"); ok && n != "" {
		if i, err := strconv.Atoi(n); err == nil && i >= 1 && i <= 24 {
			return 0x70 + i - 1, nil
		}
	}
	if len(key) == 1 {
		c := key[0]
		switch {
		case c >= 'a' && c <= 'z':
			return int(c - 'a' + 'A'), nil
		case c >= '0' && c <= '9':
			return int(c), nil
		}
	}
	return 0, fmt.Errorf("unknown key %q", name)
}

// pollKey calls onTrip each time pressed goes from false to true. It checks
// every interval until ctx is cancelled.
func pollKey(ctx context.Context, interval time.Duration, pressed func() bool, onTrip func()) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	down := pressed()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			now := pressed()
			if now && !down {
				onTrip()
			}
			down = now
		}
	}
}
