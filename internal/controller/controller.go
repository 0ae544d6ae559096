// Package controller runs the reroll loop: it drives the dialog through its
// collaborators, feeds each capture to the normalizer and matcher, and stops on
// a match, a kill-switch trip or the first collaborator failure.
package controller

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/npratt/reroll/internal/events"
	"github.com/npratt/reroll/internal/killswitch"
	"github.com/npratt/reroll/internal/normalize"
)

// maxHistory bounds how many finished runs stay addressable by handle.
const maxHistory = 32

// Deps holds the controller's collaborators. Router and Logger are optional.
type Deps struct {
	Clicker    Clicker
	Capturer   Capturer
	Recognizer Recognizer
	Normalizer *normalize.Normalizer
	Switch     *killswitch.Switch
	Router     *events.Router
	Logger     *slog.Logger
}

// Controller owns at most one active run at a time.
type Controller struct {
	clicker    Clicker
	capturer   Capturer
	recognizer Recognizer
	normalizer *normalize.Normalizer
	sw         *killswitch.Switch
	router     *events.Router
	logger     *slog.Logger

	mu      sync.RWMutex
	current *run
	runs    map[string]*run
	order   []string
}

// run is the loop goroutine's private record. snap is guarded by Controller.mu.
type run struct {
	id      string
	req     RunRequest
	snap    Snapshot
	tripped <-chan struct{}
	cancel  context.CancelFunc
	done    chan struct{}
}

// ended reports whether the loop goroutine has returned. done is closed after
// run.end is emitted, so a terminal Status alone does not end the run.
func (r *run) ended() bool {
	select {
	case <-r.done:
		return true
	default:
		return false
	}
}

// New creates a Controller. A nil Switch gets a private one.
func New(deps Deps) *Controller {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	sw := deps.Switch
	if sw == nil {
		sw = killswitch.New()
	}
	return &Controller{
		clicker:    deps.Clicker,
		capturer:   deps.Capturer,
		recognizer: deps.Recognizer,
		normalizer: deps.Normalizer,
		sw:         sw,
		router:     deps.Router,
		logger:     logger,
		runs:       make(map[string]*run),
	}
}

// Start validates req and launches a run on its own goroutine. The run is
// detached from ctx's cancellation; stop it with RequestCancel.
func (c *Controller) Start(ctx context.Context, req RunRequest) (RunHandle, error) {
	if err := req.validate(); err != nil {
		return RunHandle{}, err
	}

	c.mu.Lock()
	if c.current != nil && !c.current.ended() {
		active := c.current.id
		c.mu.Unlock()
		c.logger.Warn("start rejected", "active_run", active)
		return RunHandle{}, fmt.Errorf("%w: %s", ErrRunAlreadyActive, active)
	}

	c.sw.Reset()
	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	r := &run{
		id:      uuid.NewString(),
		req:     req,
		tripped: c.sw.Done(),
		cancel:  cancel,
		done:    make(chan struct{}),
		snap: Snapshot{
			Status:    StateRunning,
			Targets:   targetStrings(req),
			StartedAt: time.Now(),
		},
	}
	r.snap.RunID = r.id
	c.remember(r)
	c.current = r
	c.mu.Unlock()

	c.logger.Info("run started", "run_id", r.id, "targets", req.Selection.String(), "region", req.Region.String())
	c.emit(&events.RunStartEvent{
		BaseEvent: events.NewInternalEvent(events.EventRunStart),
		RunID:     r.id,
		Targets:   r.snap.Targets,
		Region:    req.Region.String(),
	})
	c.emitStateChange(r.id, StateIdle, StateRunning)

	// Blocking collaborators observe the trip through runCtx.
	go func() {
		select {
		case <-r.tripped:
			cancel()
		case <-runCtx.Done():
		}
	}()
	go c.loop(runCtx, r)

	return RunHandle{ID: r.id}, nil
}

// remember stores r and forgets the oldest finished runs. Caller holds mu.
func (c *Controller) remember(r *run) {
	c.runs[r.id] = r
	c.order = append(c.order, r.id)
	for len(c.order) > maxHistory {
		old := c.order[0]
		c.order = c.order[1:]
		delete(c.runs, old)
	}
}

// RequestCancel trips the kill switch. It is safe from any goroutine and a
// no-op for the next run if nothing is active.
func (c *Controller) RequestCancel() {
	if !c.sw.Tripped() {
		c.logger.Info("cancel requested")
	}
	c.sw.Trip()
}

// Switch returns the kill switch the controller observes.
func (c *Controller) Switch() *killswitch.Switch {
	return c.sw
}

// Snapshot returns a copy of the state of run h.
func (c *Controller) Snapshot(h RunHandle) (Snapshot, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	r, ok := c.runs[h.ID]
	if !ok {
		return Snapshot{}, fmt.Errorf("%w: %s", ErrUnknownRun, h.ID)
	}
	return r.snap.clone(), nil
}

// Current returns a copy of the most recent run's state, or an idle snapshot
// before the first run.
func (c *Controller) Current() Snapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.current == nil {
		return Snapshot{Status: StateIdle}
	}
	return c.current.snap.clone()
}

// Active reports whether a run is in progress. A run stays active until its
// closing events have been emitted.
func (c *Controller) Active() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.current != nil && !c.current.ended()
}

// Wait blocks until run h ends or ctx is done.
func (c *Controller) Wait(ctx context.Context, h RunHandle) (Snapshot, error) {
	c.mu.RLock()
	r, ok := c.runs[h.ID]
	c.mu.RUnlock()
	if !ok {
		return Snapshot{}, fmt.Errorf("%w: %s", ErrUnknownRun, h.ID)
	}

	select {
	case <-r.done:
	case <-ctx.Done():
		return Snapshot{}, ctx.Err()
	}
	return c.Snapshot(h)
}

// Shutdown cancels the active run, if any, and waits for it to end.
func (c *Controller) Shutdown(ctx context.Context) error {
	c.mu.RLock()
	r := c.current
	c.mu.RUnlock()
	if r == nil {
		return nil
	}

	select {
	case <-r.done:
		return nil
	default:
	}

	c.RequestCancel()
	select {
	case <-r.done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("wait for run %s: %w", r.id, ctx.Err())
	}
}

func targetStrings(req RunRequest) []string {
	pairs := req.Selection.Pairs()
	out := make([]string, len(pairs))
	for i, p := range pairs {
		out[i] = p.String()
	}
	return out
}

// emit sends an event to the router if available.
func (c *Controller) emit(event events.Event) {
	if c.router != nil {
		c.router.Emit(event)
	}
}

func (c *Controller) emitStateChange(runID string, from, to State) {
	c.emit(&events.RunStateChangedEvent{
		BaseEvent: events.NewInternalEvent(events.EventRunStateChanged),
		RunID:     runID,
		From:      string(from),
		To:        string(to),
	})
}
