package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"path/filepath"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/npratt/reroll/internal/catalog"
	"github.com/npratt/reroll/internal/config"
	"github.com/npratt/reroll/internal/controller"
	"github.com/npratt/reroll/internal/daemon"
	"github.com/npratt/reroll/internal/events"
	"github.com/npratt/reroll/internal/exec"
	"github.com/npratt/reroll/internal/geom"
	"github.com/npratt/reroll/internal/input"
	"github.com/npratt/reroll/internal/killswitch"
	"github.com/npratt/reroll/internal/normalize"
	"github.com/npratt/reroll/internal/notify"
	"github.com/npratt/reroll/internal/ocr"
	"github.com/npratt/reroll/internal/screen"
	"github.com/npratt/reroll/internal/window"
)

// loadConfig loads .env, the config files and REROLL_* variables, applies
// the flags explicitly set in flags and resolves paths against the project
// root, which it also returns.
func loadConfig(flags *pflag.FlagSet, v *viper.Viper) (*config.Config, string, error) {
	projectRoot := daemon.FindProjectRoot("")

	envFile := v.GetString(FlagEnvFile)
	if envFile == "" {
		envFile = filepath.Join(projectRoot, ".env")
	}
	if err := config.LoadDotEnv(envFile); err != nil {
		return nil, "", err
	}

	cfg, err := config.LoadConfig(v)
	if err != nil {
		return nil, "", fmt.Errorf("load config: %w", err)
	}

	if err := applyFlagOverrides(flags, cfg); err != nil {
		return nil, "", err
	}

	cfg.Paths, err = daemon.ResolvePaths(cfg.Paths, projectRoot)
	if err != nil {
		return nil, "", fmt.Errorf("resolve paths: %w", err)
	}
	if cfg.Catalog != "" && !filepath.IsAbs(cfg.Catalog) {
		cfg.Catalog = filepath.Join(projectRoot, cfg.Catalog)
	}

	return cfg, projectRoot, nil
}

// applyFlagOverrides copies the flags the user set onto cfg. Flags a command
// does not define are never Changed.
func applyFlagOverrides(flags *pflag.FlagSet, cfg *config.Config) error {
	var errs []error
	str := func(name string, dst *string) {
		if flags.Changed(name) {
			v, err := flags.GetString(name)
			errs = append(errs, err)
			*dst = v
		}
	}
	point := func(name string, dst *geom.Point) {
		if flags.Changed(name) {
			s, _ := flags.GetString(name)
			p, err := geom.ParsePoint(s)
			errs = append(errs, err)
			*dst = p
		}
	}

	str(FlagLogFile, &cfg.Paths.Log)
	str(FlagStateFile, &cfg.Paths.State)
	str(FlagSocketPath, &cfg.Paths.Socket)
	str(FlagCatalog, &cfg.Catalog)
	str(FlagCapture, &cfg.Capture.Backend)
	str(FlagInput, &cfg.Input.Backend)
	str(FlagHTTPAddr, &cfg.HTTP.Addr)
	point(FlagApply, &cfg.Buttons.Apply)
	point(FlagChange, &cfg.Buttons.Change)

	if flags.Changed(FlagRegion) {
		s, _ := flags.GetString(FlagRegion)
		r, err := geom.ParseRect(s)
		errs = append(errs, err)
		cfg.Region = r
	}
	if flags.Changed(FlagTargets) {
		targets, err := flags.GetStringArray(FlagTargets)
		errs = append(errs, err)
		cfg.Targets = targets
	}
	if flags.Changed(FlagSettle) {
		d, err := flags.GetDuration(FlagSettle)
		errs = append(errs, err)
		cfg.Timing.Settle = d
	}
	if flags.Changed(FlagClickDelay) {
		d, err := flags.GetDuration(FlagClickDelay)
		errs = append(errs, err)
		cfg.Timing.ClickDelay = d
	}
	if flags.Changed(FlagHTTP) {
		b, err := flags.GetBool(FlagHTTP)
		errs = append(errs, err)
		cfg.HTTP.Enabled = b
	}
	return errors.Join(errs...)
}

// loadCatalog returns the configured catalog or the built-in one.
func loadCatalog(cfg *config.Config) (*catalog.Catalog, error) {
	if cfg.Catalog == "" {
		return catalog.Default(), nil
	}
	return catalog.Load(cfg.Catalog)
}

// stack is a wired controller plus the sinks fed by its router.
type stack struct {
	router *events.Router
	ctrl   *controller.Controller
	sinks  []events.Sink
	cancel context.CancelFunc
	logger *slog.Logger
}

// newStack builds the platform backends for cfg, the controller and its event
// sinks. bell receives the match bell when notify.bell is set. Close the
// stack to flush the sinks.
func newStack(ctx context.Context, cfg *config.Config, cat *catalog.Catalog, bell io.Writer, logger *slog.Logger) (*stack, error) {
	runner := exec.NewExecRunner()

	clicker, err := input.NewClicker(cfg, runner, logger)
	if err != nil {
		return nil, fmt.Errorf("input backend: %w", err)
	}
	capturer, err := screen.NewCapturer(cfg, runner, logger)
	if err != nil {
		return nil, fmt.Errorf("capture backend: %w", err)
	}
	recognizer := ocr.New(runner, ocr.Options{
		Command:       cfg.OCR.Command,
		Language:      cfg.OCR.Language,
		PageSegMode:   cfg.OCR.PageSegMode,
		MinConfidence: cfg.OCR.MinConfidence,
		RowTolerance:  cfg.OCR.RowTolerance,
		Scale:         cfg.OCR.Scale,
		Timeout:       cfg.OCR.Timeout,
	}, logger)
	norm, err := normalize.New(cat, cfg.NormalizerOptions())
	if err != nil {
		return nil, fmt.Errorf("normalizer: %w", err)
	}

	router := events.NewRouter(events.DefaultBufferSize)
	ctrl := controller.New(controller.Deps{
		Clicker:    clicker,
		Capturer:   capturer,
		Recognizer: recognizer,
		Normalizer: norm,
		Switch:     killswitch.New(),
		Router:     router,
		Logger:     logger,
	})

	s := &stack{router: router, ctrl: ctrl, logger: logger}
	if err := s.startSinks(ctx, cfg, bell); err != nil {
		s.Close()
		return nil, err
	}
	return s, nil
}

// startSinks subscribes the event log, the state file and the notifiers.
// Sinks outlive ctx's cancellation so the final events of a run are written.
func (s *stack) startSinks(ctx context.Context, cfg *config.Config, bell io.Writer) error {
	sinkCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	s.cancel = cancel

	logSink := events.NewLogSink(cfg.Paths.Log)
	if err := logSink.Start(sinkCtx, s.router.Subscribe()); err != nil {
		return fmt.Errorf("start log sink: %w", err)
	}
	s.sinks = append(s.sinks, logSink)

	stateSink := events.NewStateSink(cfg.Paths.State)
	if err := stateSink.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		s.logger.Warn("failed to load state", "path", cfg.Paths.State, "error", err)
	}
	if err := stateSink.Start(sinkCtx, s.router.SubscribeBuffered(events.StateBufferSize)); err != nil {
		return fmt.Errorf("start state sink: %w", err)
	}
	s.sinks = append(s.sinks, stateSink)

	dispatcher := notify.FromConfig(cfg.Notify, bell, s.logger)
	if dispatcher.Len() > 0 {
		ch := s.router.SubscribeTypes(events.DefaultBufferSize, notify.Types()...)
		if err := dispatcher.Start(sinkCtx, ch); err != nil {
			return fmt.Errorf("start notifier: %w", err)
		}
		s.sinks = append(s.sinks, dispatcher)
	}
	return nil
}

// Close closes the router, lets every sink drain and stops it.
func (s *stack) Close() {
	s.router.Close()
	for _, sink := range s.sinks {
		if err := sink.Stop(); err != nil {
			s.logger.Warn("sink stop failed", "error", err)
		}
	}
	if s.cancel != nil {
		s.cancel()
	}
}

// watchHotkey trips sw on the global kill-switch key until ctx is done. It is
// a no-op where global hotkeys are unsupported.
func watchHotkey(ctx context.Context, cfg *config.Config, sw *killswitch.Switch, logger *slog.Logger) error {
	l, err := input.NewHotkeyListener(cfg.KillSwitch.Key, cfg.KillSwitch.PollInterval)
	if errors.Is(err, window.ErrUnsupported) {
		logger.Debug("global hotkey unavailable", "error", err)
		return nil
	}
	if err != nil {
		return fmt.Errorf("kill switch: %w", err)
	}
	go func() {
		if err := killswitch.Watch(ctx, l, sw); err != nil {
			logger.Error("hotkey listener stopped", "error", err)
		}
	}()
	return nil
}
