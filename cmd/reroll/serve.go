package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/sync/errgroup"

	"github.com/npratt/reroll/internal/daemon"
	"github.com/npratt/reroll/internal/httpapi"
	"github.com/npratt/reroll/internal/shutdown"
)

// serveShutdownTimeout bounds how long serve waits for an active run to stop.
const serveShutdownTimeout = 10 * time.Second

// serve runs the controller behind the Unix socket and, when enabled, the
// HTTP API until a signal arrives or a client sends stop.
func serve(cmd *cobra.Command, logger *slog.Logger) error {
	cfg, projectRoot, err := loadConfig(cmd.Flags(), viper.GetViper())
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

	if viper.GetBool(FlagDaemon) {
		client := daemon.NewClient(cfg.Paths.Socket)
		if client.IsRunning() {
			return fmt.Errorf("daemon already running (socket: %s)", cfg.Paths.Socket)
		}

		shouldExit, _, err := daemon.Daemonize(cfg)
		if err != nil {
			return fmt.Errorf("daemonize: %w", err)
		}
		if shouldExit {
			return nil
		}
	}

	infoPath := daemon.DaemonInfoPath(projectRoot)
	if err := os.MkdirAll(filepath.Dir(infoPath), 0755); err != nil {
		return fmt.Errorf("create %s directory: %w", daemon.ProjectDir, err)
	}

	// A detached daemon has no terminal to ring.
	var bell io.Writer = os.Stderr
	if daemon.IsDaemonized() {
		bell = nil
	}

	ctx := cmd.Context()
	st, err := newStack(ctx, cfg, cat, bell, logger)
	if err != nil {
		return err
	}
	defer st.Close()

	logger.Info("reroll serving",
		"version", version,
		"socket", cfg.Paths.Socket,
		"log_file", cfg.Paths.Log,
		"state_file", cfg.Paths.State,
		"http", cfg.HTTP.Enabled,
		"daemon_mode", daemon.IsDaemonized(),
	)

	info := &daemon.DaemonInfo{
		SocketPath: cfg.Paths.Socket,
		LogPath:    cfg.Paths.Log,
		StatePath:  cfg.Paths.State,
		Catalog:    cfg.Catalog,
		Version:    version,
		StartTime:  time.Now(),
		PID:        os.Getpid(),
	}
	if cfg.HTTP.Enabled {
		info.HTTPAddr = cfg.HTTP.Addr
	}
	if err := daemon.WriteDaemonInfo(infoPath, info); err != nil {
		logger.Warn("failed to write daemon info", "error", err)
	}
	defer func() { _ = daemon.RemoveDaemonInfo(infoPath) }()

	sigCtx, stopSignals := signal.NotifyContext(ctx, shutdown.Signals...)
	defer stopSignals()
	serveCtx, cancel := context.WithCancel(sigCtx)
	defer cancel()

	if err := watchHotkey(serveCtx, cfg, st.ctrl.Switch(), logger); err != nil {
		return err
	}

	dmn := daemon.New(cfg, st.ctrl, cat, logger)
	g, gctx := errgroup.WithContext(serveCtx)
	g.Go(func() error {
		// A client stop ends Start without an error; take the HTTP API down too.
		defer cancel()
		return dmn.Start(gctx)
	})
	if cfg.HTTP.Enabled {
		srv := httpapi.NewServer(cfg.HTTP.Addr, cfg, st.ctrl, cat, logger)
		g.Go(func() error {
			return srv.Serve(gctx)
		})
	}
	err = g.Wait()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.WithoutCancel(ctx), serveShutdownTimeout)
	defer shutdownCancel()
	if serr := st.ctrl.Shutdown(shutdownCtx); serr != nil {
		logger.Warn("active run did not stop", "error", serr)
	}
	logger.Info("reroll stopped")
	return err
}
