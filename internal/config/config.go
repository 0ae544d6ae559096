// Package config provides configuration types and defaults for reroll.
package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/npratt/reroll/internal/geom"
	"github.com/npratt/reroll/internal/normalize"
	"github.com/npratt/reroll/internal/target"
)

// Config holds all configuration for reroll.
type Config struct {
	Game        GameConfig        `yaml:"game" mapstructure:"game"`
	Buttons     ButtonsConfig     `yaml:"buttons" mapstructure:"buttons"`
	Region      geom.Rect         `yaml:"region" mapstructure:"region"` // Stat text area, client coordinates
	Timing      TimingConfig      `yaml:"timing" mapstructure:"timing"`
	Targets     []string          `yaml:"targets" mapstructure:"targets"` // "Stat=Variant" pairs, all must match
	Catalog     string            `yaml:"catalog" mapstructure:"catalog"` // YAML catalog file; empty uses the built-in Force Wings catalog
	Normalizer  NormalizerConfig  `yaml:"normalizer" mapstructure:"normalizer"`
	OCR         OCRConfig         `yaml:"ocr" mapstructure:"ocr"`
	Capture     CaptureConfig     `yaml:"capture" mapstructure:"capture"`
	Input       InputConfig       `yaml:"input" mapstructure:"input"`
	KillSwitch  KillSwitchConfig  `yaml:"killswitch" mapstructure:"killswitch"`
	Paths       PathsConfig       `yaml:"paths" mapstructure:"paths"`
	LogRotation LogRotationConfig `yaml:"log_rotation" mapstructure:"log_rotation"`
	HTTP        HTTPConfig        `yaml:"http" mapstructure:"http"`
	Notify      NotifyConfig      `yaml:"notify" mapstructure:"notify"`
}

// GameConfig identifies the game window.
type GameConfig struct {
	WindowClass string `yaml:"window_class" mapstructure:"window_class"`
	WindowTitle string `yaml:"window_title" mapstructure:"window_title"` // Preferred title when several windows share the class
}

// ButtonsConfig holds the dialog button positions.
type ButtonsConfig struct {
	Apply  geom.Point `yaml:"apply" mapstructure:"apply"`
	Change geom.Point `yaml:"change" mapstructure:"change"`
}

// TimingConfig holds the waits between the steps of one cycle.
type TimingConfig struct {
	ClickDelay time.Duration `yaml:"click_delay" mapstructure:"click_delay"` // Between Apply and Change
	Settle     time.Duration `yaml:"settle" mapstructure:"settle"`           // After Change, before capture
}

// NormalizerConfig holds the OCR confusion tables. An empty list disables a table.
type NormalizerConfig struct {
	Confusions      []normalize.Confusion `yaml:"confusions" mapstructure:"confusions"`
	ValueConfusions []normalize.Confusion `yaml:"value_confusions" mapstructure:"value_confusions"`
}

// OCRConfig holds Tesseract settings.
type OCRConfig struct {
	Command       string        `yaml:"command" mapstructure:"command"`
	Language      string        `yaml:"language" mapstructure:"language"`
	PageSegMode   int           `yaml:"psm" mapstructure:"psm"`
	MinConfidence float64       `yaml:"min_confidence" mapstructure:"min_confidence"` // 0-100, words below are dropped
	RowTolerance  int           `yaml:"row_tolerance" mapstructure:"row_tolerance"`   // Max y-centre distance in region pixels for words on one row
	Scale         float64       `yaml:"scale" mapstructure:"scale"`                   // Upscale factor applied before recognition
	Timeout       time.Duration `yaml:"timeout" mapstructure:"timeout"`
}

// CaptureConfig holds screen capture settings.
type CaptureConfig struct {
	Backend       string        `yaml:"backend" mapstructure:"backend"` // auto, window or exec
	Command       string        `yaml:"command" mapstructure:"command"` // exec backend tool (ImageMagick import)
	StaleRetries  int           `yaml:"stale_retries" mapstructure:"stale_retries"`
	StaleDistance int           `yaml:"stale_distance" mapstructure:"stale_distance"` // Max perceptual hash distance treated as unchanged
	RetryDelay    time.Duration `yaml:"retry_delay" mapstructure:"retry_delay"`
}

// InputConfig holds click injection settings.
type InputConfig struct {
	Backend string `yaml:"backend" mapstructure:"backend"` // auto, window or xdotool
	Command string `yaml:"command" mapstructure:"command"`
}

// KillSwitchConfig holds emergency stop settings.
type KillSwitchConfig struct {
	Key          string        `yaml:"key" mapstructure:"key"` // Global hotkey on Windows
	PollInterval time.Duration `yaml:"poll_interval" mapstructure:"poll_interval"`
	Terminal     bool          `yaml:"terminal" mapstructure:"terminal"` // ESC on the controlling terminal
}

// PathsConfig holds file paths for state, logs, and socket.
type PathsConfig struct {
	State  string `yaml:"state" mapstructure:"state"`
	Log    string `yaml:"log" mapstructure:"log"`
	Socket string `yaml:"socket" mapstructure:"socket"`
}

// LogRotationConfig holds settings for the TUI debug log rotation.
type LogRotationConfig struct {
	MaxSizeMB  int  `yaml:"max_size_mb" mapstructure:"max_size_mb"`
	MaxBackups int  `yaml:"max_backups" mapstructure:"max_backups"`
	MaxAgeDays int  `yaml:"max_age_days" mapstructure:"max_age_days"`
	Compress   bool `yaml:"compress" mapstructure:"compress"`
}

// HTTPConfig holds the optional HTTP API settings used by serve.
type HTTPConfig struct {
	Enabled bool   `yaml:"enabled" mapstructure:"enabled"`
	Addr    string `yaml:"addr" mapstructure:"addr"`
}

// NotifyConfig holds match notification settings. Secrets usually come from
// REROLL_NOTIFY_* variables in .env.
type NotifyConfig struct {
	Bell           bool          `yaml:"bell" mapstructure:"bell"`
	DiscordWebhook string        `yaml:"discord_webhook" mapstructure:"discord_webhook"`
	TelegramToken  string        `yaml:"telegram_token" mapstructure:"telegram_token"`
	TelegramChatID int64         `yaml:"telegram_chat_id" mapstructure:"telegram_chat_id"`
	Timeout        time.Duration `yaml:"timeout" mapstructure:"timeout"`
}

// Backend names shared by capture and input.
const (
	BackendAuto    = "auto"
	BackendWindow  = "window"
	BackendExec    = "exec"
	BackendXdotool = "xdotool"
)

// Default returns a Config with the values used by the original dialog layout.
func Default() *Config {
	return &Config{
		Game: GameConfig{
			WindowClass: "D3D Window",
			WindowTitle: "Cabal",
		},
		Timing: TimingConfig{
			ClickDelay: 800 * time.Millisecond,
			Settle:     time.Second,
		},
		Targets: []string{},
		Normalizer: NormalizerConfig{
			Confusions:      normalize.DefaultNameConfusions(),
			ValueConfusions: normalize.DefaultValueConfusions(),
		},
		OCR: OCRConfig{
			Command:       "tesseract",
			Language:      "eng",
			PageSegMode:   6,
			MinConfidence: 50,
			RowTolerance:  50,
			Scale:         2,
			Timeout:       15 * time.Second,
		},
		Capture: CaptureConfig{
			Backend:       BackendAuto,
			Command:       "import",
			StaleRetries:  2,
			StaleDistance: 0,
			RetryDelay:    250 * time.Millisecond,
		},
		Input: InputConfig{
			Backend: BackendAuto,
			Command: "xdotool",
		},
		KillSwitch: KillSwitchConfig{
			Key:          "esc",
			PollInterval: 20 * time.Millisecond,
			Terminal:     true,
		},
		Paths: PathsConfig{
			State:  ".reroll/state.json",
			Log:    ".reroll/reroll.log",
			Socket: ".reroll/reroll.sock",
		},
		LogRotation: LogRotationConfig{
			MaxSizeMB:  20,
			MaxBackups: 3,
			MaxAgeDays: 7,
			Compress:   true,
		},
		HTTP: HTTPConfig{
			Addr: "127.0.0.1:8765",
		},
		Notify: NotifyConfig{
			Bell:    true,
			Timeout: 10 * time.Second,
		},
	}
}

// ErrInvalidConfig wraps every validation failure.
var ErrInvalidConfig = errors.New("invalid config")

// Validate checks the settings a run depends on. Targets are checked
// separately against the catalog by Pairs and target.NewSelection.
func (c *Config) Validate() error {
	var errs []error
	add := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf("%w: "+format, append([]any{ErrInvalidConfig}, args...)...))
	}

	if c.Buttons.Apply.IsZero() {
		add("buttons.apply is not set")
	}
	if c.Buttons.Change.IsZero() {
		add("buttons.change is not set")
	}
	if c.Buttons.Apply.X < 0 || c.Buttons.Apply.Y < 0 || c.Buttons.Change.X < 0 || c.Buttons.Change.Y < 0 {
		add("button coordinates must not be negative")
	}
	if c.Region.Empty() {
		add("region %s has no area", c.Region)
	}
	if c.Region.Left < 0 || c.Region.Top < 0 {
		add("region %s starts outside the window", c.Region)
	}
	if c.Timing.ClickDelay < 0 || c.Timing.Settle < 0 {
		add("timings must not be negative")
	}
	if c.OCR.MinConfidence < 0 || c.OCR.MinConfidence > 100 {
		add("ocr.min_confidence %v outside 0-100", c.OCR.MinConfidence)
	}
	if c.OCR.Scale < 1 {
		add("ocr.scale %v must be at least 1", c.OCR.Scale)
	}
	if c.OCR.RowTolerance <= 0 {
		add("ocr.row_tolerance must be positive")
	}
	if c.Capture.StaleRetries < 0 {
		add("capture.stale_retries must not be negative")
	}
	switch c.Capture.Backend {
	case BackendAuto, BackendWindow, BackendExec:
	default:
		add("unknown capture backend %q", c.Capture.Backend)
	}
	switch c.Input.Backend {
	case BackendAuto, BackendWindow, BackendXdotool:
	default:
		add("unknown input backend %q", c.Input.Backend)
	}
	if c.Notify.TelegramToken != "" && c.Notify.TelegramChatID == 0 {
		add("notify.telegram_chat_id is required with a telegram token")
	}
	return errors.Join(errs...)
}

// Pairs parses the configured targets.
func (c *Config) Pairs() ([]target.Pair, error) {
	pairs := make([]target.Pair, 0, len(c.Targets))
	for _, s := range c.Targets {
		p, err := target.ParsePair(s)
		if err != nil {
			return nil, err
		}
		pairs = append(pairs, p)
	}
	return pairs, nil
}

// NormalizerOptions converts the confusion tables.
func (c *Config) NormalizerOptions() normalize.Options {
	return normalize.Options{
		NameConfusions:  c.Normalizer.Confusions,
		ValueConfusions: c.Normalizer.ValueConfusions,
	}
}
