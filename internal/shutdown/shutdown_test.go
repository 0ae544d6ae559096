package shutdown

import (
	"context"
	"errors"
	"os"
	"sync/atomic"
	"testing"
	"time"
)

func TestRun_RunnerCompletes(t *testing.T) {
	sentinel := errors.New("boom")
	var shutdownCalled atomic.Bool

	err := run(context.Background(), nil, time.Second, make(chan os.Signal),
		func(ctx context.Context) error { return sentinel },
		func(ctx context.Context) error { shutdownCalled.Store(true); return nil },
	)

	if !errors.Is(err, sentinel) {
		t.Errorf("err = %v, want %v", err, sentinel)
	}
	if shutdownCalled.Load() {
		t.Error("shutdown should not run when the runner returns by itself")
	}
}

func TestRun_SignalCancelsRunner(t *testing.T) {
	sigChan := make(chan os.Signal, 1)
	sigChan <- os.Interrupt

	var shutdownCalled atomic.Bool
	err := run(context.Background(), nil, time.Second, sigChan,
		func(ctx context.Context) error {
			<-ctx.Done()
			return ctx.Err()
		},
		func(ctx context.Context) error {
			shutdownCalled.Store(true)
			return nil
		},
	)

	if err != nil {
		t.Errorf("err = %v, want nil for a cancelled runner", err)
	}
	if !shutdownCalled.Load() {
		t.Error("shutdown was not called")
	}
}

func TestRun_SignalReturnsRunnerError(t *testing.T) {
	sigChan := make(chan os.Signal, 1)
	sigChan <- os.Interrupt
	sentinel := errors.New("flush failed")

	err := run(context.Background(), nil, time.Second, sigChan,
		func(ctx context.Context) error {
			<-ctx.Done()
			return sentinel
		},
		func(ctx context.Context) error { return nil },
	)

	if !errors.Is(err, sentinel) {
		t.Errorf("err = %v, want %v", err, sentinel)
	}
}

func TestRun_ShutdownTimeout(t *testing.T) {
	sigChan := make(chan os.Signal, 1)
	sigChan <- os.Interrupt
	release := make(chan struct{})
	defer close(release)

	start := time.Now()
	err := run(context.Background(), nil, 50*time.Millisecond, sigChan,
		func(ctx context.Context) error {
			<-release
			return nil
		},
		func(ctx context.Context) error { return nil },
	)

	if err != nil {
		t.Errorf("err = %v, want nil after timeout", err)
	}
	if elapsed := time.Since(start); elapsed > 2*time.Second {
		t.Errorf("run took %v, want about the shutdown timeout", elapsed)
	}
}
