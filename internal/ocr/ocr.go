// Package ocr turns a captured stat region into text lines using the
// tesseract command line tool.
package ocr

import (
	"context"
	"fmt"
	"image"
	"image/png"
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/nfnt/resize"

	"github.com/npratt/reroll/internal/exec"
)

// Options configures the tesseract invocation.
type Options struct {
	Command       string
	Language      string
	PageSegMode   int
	MinConfidence float64
	RowTolerance  int // in region pixels, before scaling
	Scale         float64
	Timeout       time.Duration
}

// Tesseract recognises text by running tesseract on a temporary PNG.
type Tesseract struct {
	runner exec.CommandRunner
	opts   Options
	logger *slog.Logger
}

// New creates a Tesseract recognizer.
func New(runner exec.CommandRunner, opts Options, logger *slog.Logger) *Tesseract {
	if logger == nil {
		logger = slog.Default()
	}
	if opts.Command == "" {
		opts.Command = "tesseract"
	}
	if opts.Scale < 1 {
		opts.Scale = 1
	}
	return &Tesseract{runner: runner, opts: opts, logger: logger}
}

// Recognize returns the text rows of img, top to bottom.
func (t *Tesseract) Recognize(ctx context.Context, img image.Image) ([]string, error) {
	img = t.upscale(img)

	path, err := writeTemp(img)
	if err != nil {
		return nil, err
	}
	defer func() { _ = os.Remove(path) }()

	if t.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, t.opts.Timeout)
		defer cancel()
	}

	out, err := t.runner.Run(ctx, t.opts.Command, t.args(path)...)
	if err != nil {
		return nil, fmt.Errorf("run tesseract: %w", err)
	}

	words, err := ParseTSV(out)
	if err != nil {
		return nil, err
	}
	kept := FilterConfidence(words, t.opts.MinConfidence)
	lines := GroupRows(kept, float64(t.opts.RowTolerance)*t.opts.Scale)

	t.logger.Debug("ocr complete", "words", len(words), "kept", len(kept), "lines", len(lines))
	return lines, nil
}

func (t *Tesseract) args(path string) []string {
	args := []string{path, "stdout"}
	if t.opts.Language != "" {
		args = append(args, "-l", t.opts.Language)
	}
	if t.opts.PageSegMode > 0 {
		args = append(args, "--psm", strconv.Itoa(t.opts.PageSegMode))
	}
	return append(args, "tsv")
}

// upscale enlarges small stat text, which tesseract reads poorly at native size.
func (t *Tesseract) upscale(img image.Image) image.Image {
	if t.opts.Scale <= 1 {
		return img
	}
	w := float64(img.Bounds().Dx()) * t.opts.Scale
	return resize.Resize(uint(w), 0, img, resize.Lanczos3)
}

func writeTemp(img image.Image) (string, error) {
	f, err := os.CreateTemp("", "reroll-ocr-*.png")
	if err != nil {
		return "", fmt.Errorf("create ocr image: %w", err)
	}
	if err := png.Encode(f, img); err != nil {
		_ = f.Close()
		_ = os.Remove(f.Name())
		return "", fmt.Errorf("encode ocr image: %w", err)
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(f.Name())
		return "", fmt.Errorf("close ocr image: %w", err)
	}
	return f.Name(), nil
}
