package testutil

import (
	"context"
	"image"
	"image/color"
	"sync"

	"github.com/npratt/reroll/internal/geom"
)

// Clicker records every click. OnClick, when set, runs before the click is
// recorded; its error fails the click.
type Clicker struct {
	mu      sync.Mutex
	clicks  []geom.Point
	OnClick func(n int, p geom.Point) error
}

// Click implements controller.Clicker.
func (c *Clicker) Click(ctx context.Context, p geom.Point) error {
	c.mu.Lock()
	n := len(c.clicks) + 1
	hook := c.OnClick
	c.mu.Unlock()

	if hook != nil {
		if err := hook(n, p); err != nil {
			return err
		}
	}

	c.mu.Lock()
	c.clicks = append(c.clicks, p)
	c.mu.Unlock()
	return nil
}

// Clicks returns a copy of the recorded clicks.
func (c *Clicker) Clicks() []geom.Point {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]geom.Point(nil), c.clicks...)
}

// Capturer returns a blank image of the requested size. OnCapture, when set,
// can fail the n-th capture or block on ctx.
type Capturer struct {
	mu        sync.Mutex
	count     int
	OnCapture func(ctx context.Context, n int) error
}

// Capture implements controller.Capturer.
func (c *Capturer) Capture(ctx context.Context, region geom.Rect) (image.Image, error) {
	c.mu.Lock()
	c.count++
	n := c.count
	hook := c.OnCapture
	c.mu.Unlock()

	if hook != nil {
		if err := hook(ctx, n); err != nil {
			return nil, err
		}
	}
	return SolidImage(region.Width(), region.Height(), color.White), nil
}

// Count returns the number of Capture calls.
func (c *Capturer) Count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.count
}

// Recognizer replays scripted OCR output: the n-th call returns Script[n-1],
// and the last entry repeats once the script runs out.
type Recognizer struct {
	mu     sync.Mutex
	count  int
	Script [][]string
	Err    error
}

// Recognize implements controller.Recognizer.
func (r *Recognizer) Recognize(ctx context.Context, img image.Image) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.count++
	if r.Err != nil {
		return nil, r.Err
	}
	if len(r.Script) == 0 {
		return nil, nil
	}
	i := min(r.count, len(r.Script)) - 1
	return append([]string(nil), r.Script[i]...), nil
}

// SolidImage returns a w×h image filled with c.
func SolidImage(w, h int, c color.Color) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, c)
		}
	}
	return img
}
