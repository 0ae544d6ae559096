package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/term"

	"github.com/npratt/reroll/internal/controller"
	"github.com/npratt/reroll/internal/input"
	"github.com/npratt/reroll/internal/killswitch"
	"github.com/npratt/reroll/internal/shutdown"
	"github.com/npratt/reroll/internal/tui"
)

// runShutdownTimeout bounds how long a signal waits for the loop to stop.
const runShutdownTimeout = 10 * time.Second

// errRunFailed marks a run that ended in stopped-error; the summary already
// carries the details.
var errRunFailed = errors.New("run failed")

// runForeground executes one run in this process, with the TUI when stdout is
// a terminal, and prints a summary when it ends.
func runForeground(cmd *cobra.Command, logger *slog.Logger, logLevel *slog.LevelVar) error {
	cfg, _, err := loadConfig(cmd.Flags(), viper.GetViper())
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	cat, err := loadCatalog(cfg)
	if err != nil {
		return err
	}
	req, err := controller.BuildRequest(cfg, cat, nil)
	if err != nil {
		return err
	}

	// Explicit flag wins over TTY detection.
	tuiEnabled := viper.GetBool(FlagTUI)
	if !cmd.Flags().Changed(FlagTUI) {
		tuiEnabled = term.IsTerminal(int(os.Stdout.Fd()))
	}

	runLogger := logger
	if tuiEnabled {
		tuiLog, err := SetupTUILogger(filepath.Dir(cfg.Paths.Log), logLevel, cfg.LogRotation)
		if err != nil {
			return err
		}
		defer func() { _ = tuiLog.Close() }()
		runLogger = tuiLog.Logger
		slog.SetDefault(runLogger)
	}

	ctx := cmd.Context()
	st, err := newStack(ctx, cfg, cat, os.Stderr, runLogger)
	if err != nil {
		return err
	}
	defer st.Close()

	watchCtx, stopWatch := context.WithCancel(ctx)
	defer stopWatch()
	if err := watchHotkey(watchCtx, cfg, st.ctrl.Switch(), runLogger); err != nil {
		return err
	}

	// Subscribe before Start so the run.start event is not missed.
	display := st.router.SubscribeBuffered(5000)
	defer st.router.Unsubscribe(display)

	var out io.Writer = os.Stdout
	restore := func() {}
	if !tuiEnabled && cfg.KillSwitch.Terminal && input.IsTerminal(os.Stdin) {
		r, err := input.MakeRaw(os.Stdin)
		if err != nil {
			runLogger.Warn("terminal kill switch unavailable", "error", err)
		} else {
			restore = r
			out = crlfWriter{w: os.Stdout}
			go func() {
				l := input.NewTerminalListener(os.Stdin)
				if err := killswitch.Watch(watchCtx, l, st.ctrl.Switch()); err != nil {
					runLogger.Error("terminal listener stopped", "error", err)
				}
			}()
			_, _ = fmt.Fprintln(out, "Press ESC to stop.")
		}
	}
	defer restore()

	h, err := st.ctrl.Start(ctx, req)
	if err != nil {
		return err
	}
	runLogger.Info("reroll starting",
		"run_id", h.ID,
		"targets", cfg.Targets,
		"region", cfg.Region.String(),
		"tui", tuiEnabled,
	)

	err = shutdown.RunWithGracefulShutdown(ctx, runLogger, runShutdownTimeout,
		func(runCtx context.Context) error {
			if tuiEnabled {
				app := tui.New(display,
					tui.WithCatalog(cat),
					tui.WithOnCancel(st.ctrl.RequestCancel),
					tui.WithExitOnEnd(true),
				)
				if err := app.Run(runCtx); err != nil {
					return err
				}
			} else {
				streamEvents(runCtx, out, display)
			}
			_, err := st.ctrl.Wait(runCtx, h)
			return err
		},
		func(shutdownCtx context.Context) error {
			return st.ctrl.Shutdown(shutdownCtx)
		},
	)
	if err != nil && !errors.Is(err, context.Canceled) {
		// The TUI failed; the run must not outlive the display.
		st.ctrl.RequestCancel()
	}

	waitCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), runShutdownTimeout)
	defer cancel()
	snap, werr := st.ctrl.Wait(waitCtx, h)
	stopWatch()
	restore()
	if werr != nil {
		return fmt.Errorf("wait for run: %w", werr)
	}

	printSummary(os.Stdout, snap, cat)
	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	if snap.Status == controller.StateError {
		return fmt.Errorf("%w: %s", errRunFailed, snap.Error)
	}
	return nil
}

// addRunFlags registers the per-run overrides shared by run and parse.
func addRunFlags(cmd *cobra.Command) {
	cmd.Flags().StringArray(FlagTargets, nil, `Target pair "Stat=Value"; repeat for several (overrides config)`)
	cmd.Flags().String(FlagCatalog, "", "Stat catalog YAML file (default: built-in)")
}
