package screen

import (
	"context"
	"image"
	"log/slog"
	"sync"
	"time"

	"github.com/corona10/goimagehash"

	"github.com/npratt/reroll/internal/geom"
)

// SettleOptions bounds the recapture of unchanged frames.
type SettleOptions struct {
	Retries     int
	MaxDistance int // Hamming distance at or below which frames count as equal
	RetryDelay  time.Duration
}

// SettledCapturer recaptures while the frame is perceptually identical to the
// previous capture, which happens when the dialog has not redrawn yet. After
// Retries attempts the last frame is returned anyway, since a reroll can
// legitimately produce the same stats.
type SettledCapturer struct {
	inner  Capturer
	opts   SettleOptions
	logger *slog.Logger

	mu   sync.Mutex
	last *goimagehash.ImageHash
}

// NewSettledCapturer wraps inner.
func NewSettledCapturer(inner Capturer, opts SettleOptions, logger *slog.Logger) *SettledCapturer {
	if logger == nil {
		logger = slog.Default()
	}
	return &SettledCapturer{inner: inner, opts: opts, logger: logger}
}

// Capture implements Capturer.
func (s *SettledCapturer) Capture(ctx context.Context, region geom.Rect) (image.Image, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for retry := 0; ; retry++ {
		img, err := s.inner.Capture(ctx, region)
		if err != nil {
			return nil, err
		}

		hash, err := goimagehash.PerceptionHash(img)
		if err != nil {
			// Unhashable frames are passed through and reset the comparison.
			s.last = nil
			return img, nil
		}

		stale := s.same(hash)
		if !stale || retry >= s.opts.Retries {
			s.last = hash
			return img, nil
		}

		s.logger.Debug("frame unchanged, recapturing", "retry", retry+1)
		if err := sleep(ctx, s.opts.RetryDelay); err != nil {
			return nil, err
		}
	}
}

func (s *SettledCapturer) same(hash *goimagehash.ImageHash) bool {
	if s.last == nil {
		return false
	}
	dist, err := s.last.Distance(hash)
	if err != nil {
		return false
	}
	return dist <= s.opts.MaxDistance
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
