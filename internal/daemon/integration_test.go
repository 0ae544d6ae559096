package daemon

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/npratt/reroll/internal/catalog"
	"github.com/npratt/reroll/internal/config"
	"github.com/npratt/reroll/internal/controller"
	"github.com/npratt/reroll/internal/geom"
	"github.com/npratt/reroll/internal/killswitch"
	"github.com/npratt/reroll/internal/normalize"
	"github.com/npratt/reroll/internal/testutil"
)

type testDaemonEnv struct {
	cfg        *config.Config
	cat        *catalog.Catalog
	capturer   *testutil.Capturer
	controller *controller.Controller
	daemon     *Daemon
	client     *Client
}

func newTestDaemonEnv(t *testing.T, rec *testutil.Recognizer) *testDaemonEnv {
	t.Helper()

	cat, err := catalog.New([]catalog.StatDefinition{
		{Name: "PowerStrike", Polarity: catalog.Offensive, Variants: []string{"+3", "+5"}},
		{Name: "Heal", Polarity: catalog.Defensive, Variants: []string{"200", "400"}},
	})
	if err != nil {
		t.Fatal(err)
	}
	norm, err := normalize.New(cat, normalize.Options{})
	if err != nil {
		t.Fatal(err)
	}

	cfg := config.Default()
	cfg.Paths.Socket = shortSocketPath(t)
	cfg.Buttons.Apply = geom.Point{X: 100, Y: 200}
	cfg.Buttons.Change = geom.Point{X: 150, Y: 200}
	cfg.Region = geom.Rect{Left: 10, Top: 10, Right: 110, Bottom: 60}
	cfg.Timing.ClickDelay = 0
	cfg.Timing.Settle = 0
	cfg.Targets = []string{"PowerStrike=+5"}

	capturer := &testutil.Capturer{}
	ctrl := controller.New(controller.Deps{
		Clicker:    &testutil.Clicker{},
		Capturer:   capturer,
		Recognizer: rec,
		Normalizer: norm,
		Switch:     killswitch.New(),
	})
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = ctrl.Shutdown(ctx)
	})

	d := New(cfg, ctrl, cat, nil)
	return &testDaemonEnv{
		cfg:        cfg,
		cat:        cat,
		capturer:   capturer,
		controller: ctrl,
		daemon:     d,
		client:     NewClient(cfg.Paths.Socket),
	}
}

// waitStatus polls the daemon until the run reaches want.
func (e *testDaemonEnv) waitStatus(t *testing.T, want controller.State) *StatusResponse {
	t.Helper()
	var last *StatusResponse
	testutil.Eventually(t, 2*time.Second, func() bool {
		st, err := e.client.Status()
		if err != nil {
			return false
		}
		last = st
		return controller.State(st.Status) == want
	}, "run did not reach "+string(want))
	return last
}

func TestIntegration_StartMatches(t *testing.T) {
	env := newTestDaemonEnv(t, &testutil.Recognizer{Script: [][]string{
		{"Heal 200"},
		{"PowerStrike +3"},
		{"PowerStrike +5", "Heal 400"},
	}})
	startTestDaemon(t, env.daemon)

	runID, err := env.client.Start(nil)
	if err != nil {
		t.Fatalf("Start() error: %v", err)
	}
	if runID == "" {
		t.Fatal("expected run id")
	}

	st := env.waitStatus(t, controller.StateMatched)
	if st.Run.RunID != runID {
		t.Errorf("RunID = %s, want %s", st.Run.RunID, runID)
	}
	if st.Run.Attempt != 3 {
		t.Errorf("Attempt = %d, want 3", st.Run.Attempt)
	}
	if len(st.Run.Targets) != 1 || st.Run.Targets[0] != "PowerStrike=+5" {
		t.Errorf("Targets = %v", st.Run.Targets)
	}
	if st.StartTime == "" || st.Uptime == "" {
		t.Error("expected start time and uptime")
	}
}

func TestIntegration_StartOverridesTargets(t *testing.T) {
	env := newTestDaemonEnv(t, &testutil.Recognizer{Script: [][]string{
		{"PowerStrike +5"},
		{"Heal 400"},
	}})
	startTestDaemon(t, env.daemon)

	if _, err := env.client.Start([]string{"Heal=400"}); err != nil {
		t.Fatalf("Start() error: %v", err)
	}
	st := env.waitStatus(t, controller.StateMatched)
	if st.Run.Attempt != 2 {
		t.Errorf("Attempt = %d, want 2", st.Run.Attempt)
	}
}

func TestIntegration_StartRejectsUnknownStat(t *testing.T) {
	env := newTestDaemonEnv(t, &testutil.Recognizer{})
	startTestDaemon(t, env.daemon)

	_, err := env.client.Start([]string{"Flying=1"})
	if err == nil || !strings.Contains(err.Error(), "Flying") {
		t.Errorf("Start() error = %v, want unknown stat", err)
	}
}

func TestIntegration_CancelAndRejectConcurrentStart(t *testing.T) {
	blocked := make(chan struct{})
	env := newTestDaemonEnv(t, &testutil.Recognizer{Script: [][]string{{"Heal 200"}}})
	env.capturer.OnCapture = func(ctx context.Context, n int) error {
		if n == 1 {
			close(blocked)
		}
		<-ctx.Done()
		return ctx.Err()
	}
	startTestDaemon(t, env.daemon)

	if _, err := env.client.Start(nil); err != nil {
		t.Fatalf("Start() error: %v", err)
	}
	select {
	case <-blocked:
	case <-time.After(2 * time.Second):
		t.Fatal("capture never started")
	}

	_, err := env.client.Start(nil)
	if err == nil || !strings.Contains(err.Error(), controller.ErrRunAlreadyActive.Error()) {
		t.Errorf("second Start() error = %v, want already active", err)
	}

	if err := env.client.Cancel(); err != nil {
		t.Fatalf("Cancel() error: %v", err)
	}
	st := env.waitStatus(t, controller.StateCancelled)
	if st.Run.Error != nil {
		t.Errorf("cancelled run should carry no error, got %v", st.Run.Error)
	}
}

func TestIntegration_Catalog(t *testing.T) {
	env := newTestDaemonEnv(t, &testutil.Recognizer{})
	startTestDaemon(t, env.daemon)

	res, err := env.client.Catalog()
	if err != nil {
		t.Fatalf("Catalog() error: %v", err)
	}
	if len(res.Stats) != 2 {
		t.Fatalf("got %d stats, want 2", len(res.Stats))
	}
	if res.Stats[0].Name != "PowerStrike" || res.Stats[1].Polarity != catalog.Defensive {
		t.Errorf("Stats = %+v", res.Stats)
	}
}

func TestIntegration_StatusIdle(t *testing.T) {
	env := newTestDaemonEnv(t, &testutil.Recognizer{})
	startTestDaemon(t, env.daemon)

	st, err := env.client.Status()
	if err != nil {
		t.Fatalf("Status() error: %v", err)
	}
	if controller.State(st.Status) != controller.StateIdle {
		t.Errorf("Status = %s, want idle", st.Status)
	}
}

func TestIntegration_StopCancelsRun(t *testing.T) {
	env := newTestDaemonEnv(t, &testutil.Recognizer{Script: [][]string{{"Heal 200"}}})
	env.cfg.Timing.Settle = 50 * time.Millisecond
	errCh := startTestDaemon(t, env.daemon)

	runID, err := env.client.Start(nil)
	if err != nil {
		t.Fatalf("Start() error: %v", err)
	}
	if err := env.client.Stop(); err != nil {
		t.Fatalf("Stop() error: %v", err)
	}

	select {
	case <-errCh:
	case <-time.After(2 * time.Second):
		t.Fatal("daemon did not exit after stop")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	snap, err := env.controller.Wait(ctx, controller.RunHandle{ID: runID})
	if err != nil {
		t.Fatalf("Wait() error: %v", err)
	}
	if snap.Status != controller.StateCancelled {
		t.Errorf("Status = %s, want cancelled", snap.Status)
	}
	if env.client.IsRunning() {
		t.Error("client should see the daemon as stopped")
	}
}

func TestClient_NotRunning(t *testing.T) {
	client := NewClient(shortSocketPath(t))
	client.SetTimeout(200 * time.Millisecond)

	if client.IsRunning() {
		t.Error("IsRunning() should be false without a daemon")
	}
	_, err := client.Status()
	if err == nil || !strings.Contains(err.Error(), "daemon not running") {
		t.Errorf("Status() error = %v, want daemon not running", err)
	}
}

func TestClient_WrapConnError(t *testing.T) {
	c := NewClient("/nonexistent")
	err := c.wrapConnError(errors.New("boom"))
	if !strings.Contains(err.Error(), "connect to daemon: boom") {
		t.Errorf("wrapConnError = %v", err)
	}
}
