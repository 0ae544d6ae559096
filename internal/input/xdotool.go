package input

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/npratt/reroll/internal/exec"
	"github.com/npratt/reroll/internal/geom"
	"github.com/npratt/reroll/internal/window"
)

// XdotoolClicker clicks window-relative points with xdotool. Unlike window
// messages this moves the real pointer.
type XdotoolClicker struct {
	runner  exec.CommandRunner
	command string
	finder  *window.Finder
	logger  *slog.Logger
}

// NewXdotoolClicker creates an XdotoolClicker.
func NewXdotoolClicker(runner exec.CommandRunner, command string, finder *window.Finder, logger *slog.Logger) *XdotoolClicker {
	if command == "" {
		command = "xdotool"
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &XdotoolClicker{runner: runner, command: command, finder: finder, logger: logger}
}

// Click implements controller.Clicker.
func (c *XdotoolClicker) Click(ctx context.Context, p geom.Point) error {
	w, err := c.finder.Find(ctx)
	if err != nil {
		return err
	}

	id := window.ID(w)
	_, err = c.runner.Run(ctx, c.command,
		"mousemove", "--window", id, strconv.Itoa(p.X), strconv.Itoa(p.Y),
		"click", "--window", id, "1",
	)
	if err != nil {
		c.finder.Forget()
		return fmt.Errorf("click %s in window %s: %w", p, id, err)
	}
	c.logger.Debug("clicked", "point", p.String(), "window", id)
	return nil
}
