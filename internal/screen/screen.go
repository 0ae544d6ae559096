// Package screen captures the stat region of the game window.
package screen

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/draw"
	"log/slog"

	"github.com/npratt/reroll/internal/config"
	"github.com/npratt/reroll/internal/exec"
	"github.com/npratt/reroll/internal/geom"
	"github.com/npratt/reroll/internal/window"
)

// ErrOutOfBounds is returned when the region does not fit the window.
var ErrOutOfBounds = errors.New("region outside window")

// Capturer grabs a window-relative region.
type Capturer interface {
	Capture(ctx context.Context, region geom.Rect) (image.Image, error)
}

// NewCapturer builds the backend named by cfg.Capture.Backend and wraps it in
// a SettledCapturer when stale retries are enabled. Auto picks PrintWindow on
// Windows and ImageMagick import elsewhere.
func NewCapturer(cfg *config.Config, runner exec.CommandRunner, logger *slog.Logger) (Capturer, error) {
	if logger == nil {
		logger = slog.Default()
	}
	backend := cfg.Capture.Backend
	if backend == config.BackendAuto {
		backend = defaultBackend
	}

	var base Capturer
	switch backend {
	case config.BackendWindow:
		finder := window.NewFinder(cfg.Game.WindowClass, cfg.Game.WindowTitle, window.SystemLister())
		c, err := newWindowCapturer(finder, logger)
		if err != nil {
			return nil, err
		}
		base = c
	case config.BackendExec:
		finder := window.NewFinder(cfg.Game.WindowClass, cfg.Game.WindowTitle,
			window.XdotoolLister(runner, cfg.Input.Command))
		base = NewImportCapturer(runner, cfg.Capture.Command, finder)
	default:
		return nil, fmt.Errorf("%w: unknown capture backend %q", config.ErrInvalidConfig, backend)
	}

	if cfg.Capture.StaleRetries <= 0 {
		return base, nil
	}
	return NewSettledCapturer(base, SettleOptions{
		Retries:     cfg.Capture.StaleRetries,
		MaxDistance: cfg.Capture.StaleDistance,
		RetryDelay:  cfg.Capture.RetryDelay,
	}, logger), nil
}

// crop copies region out of a full client-area image.
func crop(img image.Image, region geom.Rect) (image.Image, error) {
	r := region.Image().Add(img.Bounds().Min)
	if !r.In(img.Bounds()) {
		return nil, fmt.Errorf("%w: %s not in %dx%d", ErrOutOfBounds, region,
			img.Bounds().Dx(), img.Bounds().Dy())
	}
	out := image.NewRGBA(image.Rect(0, 0, r.Dx(), r.Dy()))
	draw.Draw(out, out.Bounds(), img, r.Min, draw.Src)
	return out, nil
}
