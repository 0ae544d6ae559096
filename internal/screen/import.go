package screen

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/png"

	"github.com/npratt/reroll/internal/exec"
	"github.com/npratt/reroll/internal/geom"
	"github.com/npratt/reroll/internal/window"
)

// ImportCapturer captures with ImageMagick's import on X11.
type ImportCapturer struct {
	runner  exec.CommandRunner
	command string
	finder  *window.Finder
}

// NewImportCapturer creates an ImportCapturer. A nil finder captures the root
// window, so the region is then in screen coordinates.
func NewImportCapturer(runner exec.CommandRunner, command string, finder *window.Finder) *ImportCapturer {
	if command == "" {
		command = "import"
	}
	return &ImportCapturer{runner: runner, command: command, finder: finder}
}

// Capture implements Capturer.
func (c *ImportCapturer) Capture(ctx context.Context, region geom.Rect) (image.Image, error) {
	target := "root"
	if c.finder != nil {
		w, err := c.finder.Find(ctx)
		if err != nil {
			return nil, err
		}
		target = window.ID(w)
	}

	geometry := fmt.Sprintf("%dx%d+%d+%d", region.Width(), region.Height(), region.Left, region.Top)
	out, err := c.runner.Run(ctx, c.command, "-silent", "-window", target, "-crop", geometry, "+repage", "png:-")
	if err != nil {
		if c.finder != nil {
			c.finder.Forget()
		}
		return nil, fmt.Errorf("capture %s: %w", region, err)
	}

	img, err := png.Decode(bytes.NewReader(out))
	if err != nil {
		return nil, fmt.Errorf("decode capture: %w", err)
	}
	// import clips the crop to the window instead of failing.
	if img.Bounds().Dx() != region.Width() || img.Bounds().Dy() != region.Height() {
		return nil, fmt.Errorf("%w: got %dx%d for %s", ErrOutOfBounds,
			img.Bounds().Dx(), img.Bounds().Dy(), region)
	}
	return img, nil
}
