package daemon

import (
	"os"
	"sync"
	"testing"

	"github.com/npratt/reroll/internal/config"
)

// shortSocketPath returns a socket path short enough for sun_path limits.
func shortSocketPath(t *testing.T) string {
	t.Helper()
	f, err := os.CreateTemp("", "sock")
	if err != nil {
		t.Fatalf("create temp file: %v", err)
	}
	path := f.Name()
	_ = f.Close()
	_ = os.Remove(path)
	t.Cleanup(func() { _ = os.Remove(path) })
	return path
}

func TestNew(t *testing.T) {
	cfg := config.Default()
	cfg.Paths.Socket = "/custom/path/reroll.sock"
	d := New(cfg, nil, nil, nil)

	if d.Running() {
		t.Error("daemon should not be running initially")
	}
	if d.SocketPath() != "/custom/path/reroll.sock" {
		t.Errorf("SocketPath() = %s", d.SocketPath())
	}
	if !d.StartTime().IsZero() {
		t.Error("StartTime() should be zero initially")
	}
	select {
	case <-d.StopRequested():
		t.Error("StopRequested should not be closed initially")
	default:
	}
}

func TestRequestStopIdempotent(t *testing.T) {
	d := New(config.Default(), nil, nil, nil)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			d.requestStop()
		}()
	}
	wg.Wait()

	select {
	case <-d.StopRequested():
	default:
		t.Error("StopRequested should be closed")
	}
}
