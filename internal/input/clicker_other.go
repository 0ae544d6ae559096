//go:build !windows

package input

import (
	"fmt"
	"log/slog"

	"github.com/npratt/reroll/internal/config"
	"github.com/npratt/reroll/internal/controller"
	"github.com/npratt/reroll/internal/window"
)

const defaultBackend = config.BackendXdotool

func newWindowClicker(*window.Finder, *slog.Logger) (controller.Clicker, error) {
	return nil, fmt.Errorf("input backend %q: %w", config.BackendWindow, window.ErrUnsupported)
}
