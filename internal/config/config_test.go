package config

import (
	"errors"
	"strings"
	"testing"

	"github.com/npratt/reroll/internal/geom"
	"github.com/npratt/reroll/internal/target"
)

func validConfig() *Config {
	cfg := Default()
	cfg.Buttons.Apply = geom.Point{X: 410, Y: 520}
	cfg.Buttons.Change = geom.Point{X: 480, Y: 520}
	cfg.Region = geom.Rect{Left: 300, Top: 380, Right: 560, Bottom: 470}
	return cfg
}

func TestDefault(t *testing.T) {
	cfg := Default()
	if cfg.Capture.Backend != BackendAuto || cfg.Input.Backend != BackendAuto {
		t.Errorf("backends = %q/%q, want auto", cfg.Capture.Backend, cfg.Input.Backend)
	}
	if cfg.Targets == nil {
		t.Error("Targets is nil, want empty slice")
	}
	if cfg.HTTP.Enabled {
		t.Error("HTTP API should be off by default")
	}
	// Coordinates have no sensible default.
	if err := cfg.Validate(); err == nil {
		t.Error("Default() should not validate without buttons and region")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"valid", func(*Config) {}, ""},
		{"missing apply", func(c *Config) { c.Buttons.Apply = geom.Point{} }, "buttons.apply"},
		{"negative change", func(c *Config) { c.Buttons.Change = geom.Point{X: -1, Y: 5} }, "negative"},
		{"empty region", func(c *Config) { c.Region = geom.Rect{} }, "no area"},
		{"negative settle", func(c *Config) { c.Timing.Settle = -1 }, "timings"},
		{"confidence range", func(c *Config) { c.OCR.MinConfidence = 150 }, "min_confidence"},
		{"scale", func(c *Config) { c.OCR.Scale = 0.5 }, "scale"},
		{"capture backend", func(c *Config) { c.Capture.Backend = "gdi" }, "capture backend"},
		{"input backend", func(c *Config) { c.Input.Backend = "robot" }, "input backend"},
		{"telegram chat", func(c *Config) { c.Notify.TelegramToken = "t" }, "telegram_chat_id"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("Validate() = %v, want nil", err)
				}
				return
			}
			if err == nil {
				t.Fatalf("Validate() = nil, want error containing %q", tt.wantErr)
			}
			if !errors.Is(err, ErrInvalidConfig) {
				t.Errorf("error %v does not wrap ErrInvalidConfig", err)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate() = %v, want mention of %q", err, tt.wantErr)
			}
		})
	}
}

func TestPairs(t *testing.T) {
	cfg := validConfig()
	cfg.Targets = []string{"Crit. DMG=36%", "Absorb Damage=1,200"}

	pairs, err := cfg.Pairs()
	if err != nil {
		t.Fatalf("Pairs: %v", err)
	}
	want := []target.Pair{{Stat: "Crit. DMG", Variant: "36%"}, {Stat: "Absorb Damage", Variant: "1,200"}}
	for i := range want {
		if pairs[i] != want[i] {
			t.Errorf("pairs[%d] = %v, want %v", i, pairs[i], want[i])
		}
	}

	cfg.Targets = []string{"no separator"}
	if _, err := cfg.Pairs(); !errors.Is(err, target.ErrInvalidSelection) {
		t.Errorf("Pairs err = %v, want ErrInvalidSelection", err)
	}
}

func TestNormalizerOptions(t *testing.T) {
	cfg := Default()
	cfg.Normalizer.ValueConfusions = nil
	opts := cfg.NormalizerOptions()
	if len(opts.NameConfusions) == 0 {
		t.Error("name confusions lost")
	}
	if opts.ValueConfusions != nil {
		t.Error("nil value confusions should stay nil so defaults apply")
	}
}
