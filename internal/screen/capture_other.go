//go:build !windows

package screen

import (
	"fmt"
	"log/slog"

	"github.com/npratt/reroll/internal/config"
	"github.com/npratt/reroll/internal/window"
)

const defaultBackend = config.BackendExec

func newWindowCapturer(*window.Finder, *slog.Logger) (Capturer, error) {
	return nil, fmt.Errorf("capture backend %q: %w", config.BackendWindow, window.ErrUnsupported)
}
