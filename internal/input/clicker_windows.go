//go:build windows

package input

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/lxn/win"

	"github.com/npratt/reroll/internal/config"
	"github.com/npratt/reroll/internal/controller"
	"github.com/npratt/reroll/internal/geom"
	"github.com/npratt/reroll/internal/window"
)

const defaultBackend = config.BackendWindow

// buttonHold is how long the button stays down between the two messages.
const buttonHold = 50 * time.Millisecond

// WindowClicker sends mouse messages straight to the game window, so the
// cursor never moves and the game need not be focused.
type WindowClicker struct {
	finder *window.Finder
	logger *slog.Logger
}

func newWindowClicker(finder *window.Finder, logger *slog.Logger) (controller.Clicker, error) {
	return &WindowClicker{finder: finder, logger: logger}, nil
}

// Click implements controller.Clicker. p is relative to the client area.
func (c *WindowClicker) Click(ctx context.Context, p geom.Point) error {
	hwnd, err := c.handle(ctx)
	if err != nil {
		return err
	}

	lParam := uintptr(p.Y<<16 | p.X&0xFFFF)
	win.SendMessage(hwnd, win.WM_MOUSEMOVE, 0, lParam)
	win.SendMessage(hwnd, win.WM_LBUTTONDOWN, win.MK_LBUTTON, lParam)

	timer := time.NewTimer(buttonHold)
	defer timer.Stop()
	select {
	case <-timer.C:
	case <-ctx.Done():
	}
	// Always release, even when cancelled, so the game never sees a held button.
	win.SendMessage(hwnd, win.WM_LBUTTONUP, 0, lParam)

	c.logger.Debug("clicked", "point", p.String(), "hwnd", uintptr(hwnd))
	return ctx.Err()
}

// handle returns a live window handle, looking the window up again once if
// the cached one has closed.
func (c *WindowClicker) handle(ctx context.Context) (win.HWND, error) {
	for range 2 {
		w, err := c.finder.Find(ctx)
		if err != nil {
			return 0, err
		}
		hwnd := win.HWND(w.Handle)
		if win.IsWindow(hwnd) {
			return hwnd, nil
		}
		c.finder.Forget()
	}
	return 0, fmt.Errorf("%w: window closed", window.ErrNotFound)
}
