package controller

import (
	"context"
	"errors"
	"image"
	"time"

	"github.com/npratt/reroll/internal/events"
	"github.com/npratt/reroll/internal/geom"
	"github.com/npratt/reroll/internal/normalize"
	"github.com/npratt/reroll/internal/target"
)

// errInterrupted is returned by waits cut short by the kill switch.
var errInterrupted = errors.New("interrupted")

// loop runs cycles until the run reaches a terminal state.
func (c *Controller) loop(ctx context.Context, r *run) {
	defer close(r.done)
	defer r.cancel()

	for attempt := 1; ; attempt++ {
		if c.interrupted(ctx, r) {
			c.finish(r, StateCancelled, nil)
			return
		}

		matched, err := c.cycle(ctx, r, attempt)
		if err != nil {
			if c.interrupted(ctx, r) {
				// Collaborators aborted by the trip fail too; the trip wins.
				if !errors.Is(err, errInterrupted) {
					c.logger.Debug("cycle error after kill switch", "run_id", r.id, "attempt", attempt, "error", err)
				}
				c.stopping(r)
				c.finish(r, StateCancelled, nil)
				return
			}
			c.finish(r, StateError, err)
			return
		}
		if matched {
			c.finish(r, StateMatched, nil)
			return
		}
	}
}

// cycle performs one Apply/Change/capture/recognise pass and reports whether
// the selection is satisfied.
func (c *Controller) cycle(ctx context.Context, r *run, attempt int) (bool, error) {
	start := time.Now()

	if err := c.click(ctx, r.req.Apply); err != nil {
		return false, &CycleError{Attempt: attempt, Kind: ErrInjection, Err: err}
	}
	if err := c.wait(ctx, r, r.req.ClickDelay); err != nil {
		return false, err
	}
	if err := c.click(ctx, r.req.Change); err != nil {
		return false, &CycleError{Attempt: attempt, Kind: ErrInjection, Err: err}
	}
	if err := c.wait(ctx, r, r.req.Settle); err != nil {
		return false, err
	}

	var img image.Image
	err := guard(func() (err error) {
		img, err = c.capturer.Capture(ctx, r.req.Region)
		return err
	})
	if err != nil {
		return false, &CycleError{Attempt: attempt, Kind: ErrCapture, Err: err}
	}

	var lines []string
	err = guard(func() (err error) {
		lines, err = c.recognizer.Recognize(ctx, img)
		return err
	})
	if err != nil {
		return false, &CycleError{Attempt: attempt, Kind: ErrOCR, Err: err}
	}

	detected := c.normalizer.Normalize(lines)
	matched, err := target.Satisfied(detected, r.req.Selection)
	if err != nil {
		return false, err
	}

	c.record(r, attempt, lines, detected, matched, time.Since(start))
	return matched, nil
}

func (c *Controller) click(ctx context.Context, p geom.Point) error {
	return guard(func() error {
		return c.clicker.Click(ctx, p)
	})
}

// wait sleeps for d unless the kill switch trips first.
func (c *Controller) wait(ctx context.Context, r *run, d time.Duration) error {
	if c.interrupted(ctx, r) {
		return errInterrupted
	}
	if d <= 0 {
		return nil
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-r.tripped:
		return errInterrupted
	case <-ctx.Done():
		return errInterrupted
	}
}

func (c *Controller) interrupted(ctx context.Context, r *run) bool {
	select {
	case <-r.tripped:
		return true
	default:
	}
	return ctx.Err() != nil
}

func (c *Controller) record(r *run, attempt int, lines []string, detected []normalize.DetectedStat, matched bool, took time.Duration) {
	c.mu.Lock()
	r.snap.Attempt = attempt
	r.snap.LastRaw = lines
	r.snap.LastDetected = detected
	c.mu.Unlock()

	c.logger.Info("attempt complete",
		"run_id", r.id,
		"attempt", attempt,
		"detected", len(detected),
		"matched", matched,
		"duration", took,
	)
	c.emit(&events.AttemptEndEvent{
		BaseEvent:  events.NewInternalEvent(events.EventAttemptEnd),
		RunID:      r.id,
		Attempt:    attempt,
		RawLines:   lines,
		Detected:   detected,
		Matched:    matched,
		DurationMs: took.Milliseconds(),
	})
}

// stopping marks the transient state entered when a cycle is interrupted.
func (c *Controller) stopping(r *run) {
	c.mu.Lock()
	r.snap.Status = StateStopping
	c.mu.Unlock()

	c.logger.Info("stopping", "run_id", r.id)
	c.emitStateChange(r.id, StateRunning, StateStopping)
}

// finish moves r to a terminal state and emits the closing events.
func (c *Controller) finish(r *run, state State, cause error) {
	c.mu.Lock()
	from := r.snap.Status
	r.snap.Status = state
	r.snap.EndedAt = time.Now()
	if cause != nil {
		r.snap.Error = newRunError(cause)
		// A failed attempt still counts.
		if r.snap.Error.Attempt > r.snap.Attempt {
			r.snap.Attempt = r.snap.Error.Attempt
		}
	}
	snap := r.snap.clone()
	c.mu.Unlock()

	switch state {
	case StateError:
		c.logger.Error("run failed", "run_id", r.id, "attempt", snap.Error.Attempt, "error", cause)
		c.emit(&events.ErrorEvent{
			BaseEvent: events.NewInternalEvent(events.EventError),
			RunID:     r.id,
			Attempt:   snap.Error.Attempt,
			Kind:      snap.Error.Kind,
			Message:   snap.Error.Message,
			Severity:  events.SeverityError,
		})
	case StateCancelled:
		c.logger.Info("run cancelled", "run_id", r.id, "attempt", snap.Attempt)
		c.emit(&events.KillSwitchEvent{
			BaseEvent: events.NewEvent(events.EventKillSwitch, events.SourceKillSwitch),
			RunID:     r.id,
		})
	case StateMatched:
		c.logger.Info("targets matched", "run_id", r.id, "attempt", snap.Attempt)
	}

	c.emitStateChange(r.id, from, state)

	end := &events.RunEndEvent{
		BaseEvent:  events.NewInternalEvent(events.EventRunEnd),
		RunID:      r.id,
		Status:     string(state),
		Attempts:   snap.Attempt,
		Detected:   snap.LastDetected,
		DurationMs: snap.Elapsed().Milliseconds(),
	}
	if snap.Error != nil {
		end.Error = snap.Error.Error()
	}
	c.emit(end)
}
