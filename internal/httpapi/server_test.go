package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/npratt/reroll/internal/catalog"
	"github.com/npratt/reroll/internal/config"
	"github.com/npratt/reroll/internal/controller"
	"github.com/npratt/reroll/internal/geom"
	"github.com/npratt/reroll/internal/killswitch"
	"github.com/npratt/reroll/internal/normalize"
	"github.com/npratt/reroll/internal/testutil"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type testEnv struct {
	ctrl     *controller.Controller
	capturer *testutil.Capturer
	handler  http.Handler
	srv      *Server
}

func newTestEnv(t *testing.T, script ...[]string) *testEnv {
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
	cfg.Buttons.Apply = geom.Point{X: 100, Y: 200}
	cfg.Buttons.Change = geom.Point{X: 150, Y: 200}
	cfg.Region = geom.Rect{Left: 10, Top: 10, Right: 110, Bottom: 60}
	cfg.Timing.ClickDelay = 0
	cfg.Timing.Settle = 0
	cfg.Targets = []string{"Heal=400"}

	capturer := &testutil.Capturer{}
	ctrl := controller.New(controller.Deps{
		Clicker:    &testutil.Clicker{},
		Capturer:   capturer,
		Recognizer: &testutil.Recognizer{Script: script},
		Normalizer: norm,
		Switch:     killswitch.New(),
	})
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = ctrl.Shutdown(ctx)
	})

	srv := NewServer("127.0.0.1:0", cfg, ctrl, cat, nil)
	return &testEnv{ctrl: ctrl, capturer: capturer, handler: srv.Handler(), srv: srv}
}

func (e *testEnv) do(t *testing.T, method, path, body string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, r)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	e.handler.ServeHTTP(w, req)

	var out map[string]any
	if w.Body.Len() > 0 {
		if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
			t.Fatalf("unmarshal %s: %v", w.Body.String(), err)
		}
	}
	return w, out
}

func (e *testEnv) wait(t *testing.T, id string) controller.Snapshot {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	snap, err := e.ctrl.Wait(ctx, controller.RunHandle{ID: id})
	if err != nil {
		t.Fatalf("Wait() error: %v", err)
	}
	return snap
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t)
	w, body := env.do(t, http.MethodGet, "/api/health", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if body["status"] != "ok" || body["active"] != false {
		t.Errorf("body = %v", body)
	}
}

func TestCatalog(t *testing.T) {
	env := newTestEnv(t)
	w, body := env.do(t, http.MethodGet, "/api/catalog", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	stats, ok := body["stats"].([]any)
	if !ok || len(stats) != 2 {
		t.Fatalf("stats = %v", body["stats"])
	}
	first := stats[0].(map[string]any)
	if first["name"] != "PowerStrike" || first["polarity"] != "offensive" {
		t.Errorf("first stat = %v", first)
	}
}

func TestStartRunAndStatus(t *testing.T) {
	env := newTestEnv(t, []string{"Heal 200"}, []string{"Heal 400"})

	w, body := env.do(t, http.MethodPost, "/api/runs", "")
	if w.Code != http.StatusAccepted {
		t.Fatalf("status = %d body = %v", w.Code, body)
	}
	id, _ := body["run_id"].(string)
	if id == "" {
		t.Fatalf("no run_id in %v", body)
	}
	snap := env.wait(t, id)
	if snap.Status != controller.StateMatched || snap.Attempt != 2 {
		t.Errorf("snapshot = %+v", snap)
	}

	w, body = env.do(t, http.MethodGet, "/api/runs/"+id, "")
	if w.Code != http.StatusOK || body["status"] != string(controller.StateMatched) {
		t.Errorf("GET run: %d %v", w.Code, body)
	}
	w, body = env.do(t, http.MethodGet, "/api/status", "")
	if w.Code != http.StatusOK || body["run_id"] != id {
		t.Errorf("GET status: %d %v", w.Code, body)
	}
}

func TestStartRunWithTargets(t *testing.T) {
	env := newTestEnv(t, []string{"PowerStrike +5"})

	w, body := env.do(t, http.MethodPost, "/api/runs", `{"targets":["PowerStrike=+5"]}`)
	if w.Code != http.StatusAccepted {
		t.Fatalf("status = %d body = %v", w.Code, body)
	}
	if snap := env.wait(t, body["run_id"].(string)); snap.Attempt != 1 {
		t.Errorf("Attempt = %d, want 1", snap.Attempt)
	}
}

func TestStartRunErrors(t *testing.T) {
	tests := []struct {
		name string
		body string
		want int
	}{
		{"malformed json", `{"targets":`, http.StatusBadRequest},
		{"unknown stat", `{"targets":["Flying=1"]}`, http.StatusBadRequest},
		{"bad pair", `{"targets":["Heal"]}`, http.StatusBadRequest},
		{"impossible value", `{"targets":["Heal=999"]}`, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)
			w, body := env.do(t, http.MethodPost, "/api/runs", tt.body)
			if w.Code != tt.want {
				t.Errorf("status = %d, want %d (body %v)", w.Code, tt.want, body)
			}
			if body["error"] == nil {
				t.Error("expected error message")
			}
		})
	}
}

func TestStartRunConflictAndCancel(t *testing.T) {
	env := newTestEnv(t, []string{"Heal 200"})
	blocked := make(chan struct{})
	env.capturer.OnCapture = func(ctx context.Context, n int) error {
		if n == 1 {
			close(blocked)
		}
		<-ctx.Done()
		return ctx.Err()
	}

	_, body := env.do(t, http.MethodPost, "/api/runs", "")
	id := body["run_id"].(string)
	<-blocked

	w, _ := env.do(t, http.MethodPost, "/api/runs", "")
	if w.Code != http.StatusConflict {
		t.Errorf("second start status = %d, want 409", w.Code)
	}

	w, _ = env.do(t, http.MethodPost, "/api/cancel", "")
	if w.Code != http.StatusAccepted {
		t.Errorf("cancel status = %d", w.Code)
	}
	if snap := env.wait(t, id); snap.Status != controller.StateCancelled {
		t.Errorf("Status = %s, want cancelled", snap.Status)
	}
}

func TestGetUnknownRun(t *testing.T) {
	env := newTestEnv(t)
	w, _ := env.do(t, http.MethodGet, "/api/runs/nope", "")
	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", w.Code)
	}
}

func TestServeShutsDownOnCancel(t *testing.T) {
	env := newTestEnv(t)
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- env.srv.serve(ctx, ln) }()

	resp, err := http.Post("http://"+ln.Addr().String()+"/api/cancel", "application/json", bytes.NewReader(nil))
	if err != nil {
		t.Fatalf("POST: %v", err)
	}
	_ = resp.Body.Close()
	if resp.StatusCode != http.StatusAccepted {
		t.Errorf("status = %d", resp.StatusCode)
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("serve() error: %v", err)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("serve did not return")
	}
}

func TestServeListenError(t *testing.T) {
	srv := NewServer("256.0.0.1:bad", config.Default(), nil, nil, nil)
	if err := srv.Serve(context.Background()); err == nil {
		t.Error("expected listen error")
	}
}
