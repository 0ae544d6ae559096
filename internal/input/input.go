// Package input injects clicks into the game window and listens for the
// kill-switch key.
package input

import (
	"fmt"
	"log/slog"

	"github.com/npratt/reroll/internal/config"
	"github.com/npratt/reroll/internal/controller"
	"github.com/npratt/reroll/internal/exec"
	"github.com/npratt/reroll/internal/window"
)

// NewClicker builds the click backend named by cfg.Input.Backend. Auto picks
// window messages on Windows and xdotool elsewhere.
func NewClicker(cfg *config.Config, runner exec.CommandRunner, logger *slog.Logger) (controller.Clicker, error) {
	if logger == nil {
		logger = slog.Default()
	}
	backend := cfg.Input.Backend
	if backend == config.BackendAuto {
		backend = defaultBackend
	}

	switch backend {
	case config.BackendWindow:
		finder := window.NewFinder(cfg.Game.WindowClass, cfg.Game.WindowTitle, window.SystemLister())
		return newWindowClicker(finder, logger)
	case config.BackendXdotool:
		finder := window.NewFinder(cfg.Game.WindowClass, cfg.Game.WindowTitle,
			window.XdotoolLister(runner, cfg.Input.Command))
		return NewXdotoolClicker(runner, cfg.Input.Command, finder, logger), nil
	default:
		return nil, fmt.Errorf("%w: unknown input backend %q", config.ErrInvalidConfig, backend)
	}
}
