package testutil

import (
	"context"
	"errors"
	"image/color"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/npratt/reroll/internal/geom"
)

func TestMockRunner(t *testing.T) {
	t.Run("exact and prefix responses", func(t *testing.T) {
		m := NewMockRunner()
		m.SetResponse("tesseract", []string{"--version"}, []byte("tesseract 5.3"))
		m.SetResponse("xdotool", []string{"search"}, []byte("42\n"))

		out, err := m.Run(context.Background(), "tesseract", "--version")
		if err != nil || string(out) != "tesseract 5.3" {
			t.Errorf("Run = %q, %v", out, err)
		}
		out, err = m.Run(context.Background(), "xdotool", "search", "--class", "D3D Window")
		if err != nil || string(out) != "42\n" {
			t.Errorf("prefix Run = %q, %v", out, err)
		}
	})

	t.Run("error wins over response", func(t *testing.T) {
		m := NewMockRunner()
		boom := errors.New("boom")
		m.SetResponse("import", nil, []byte("ok"))
		m.SetError("import", nil, boom)
		if _, err := m.Run(context.Background(), "import"); !errors.Is(err, boom) {
			t.Errorf("err = %v, want boom", err)
		}
	})

	t.Run("unexpected command", func(t *testing.T) {
		m := NewMockRunner()
		if _, err := m.Run(context.Background(), "nope"); err == nil {
			t.Error("expected error")
		}
	})

	t.Run("handler", func(t *testing.T) {
		m := NewMockRunner()
		m.Handler = func(ctx context.Context, name string, args []string) ([]byte, error, bool) {
			return []byte(name), nil, name == "echo"
		}
		out, _ := m.Run(context.Background(), "echo", "x")
		if string(out) != "echo" {
			t.Errorf("handler output = %q", out)
		}
		if m.CallCount("echo") != 1 {
			t.Errorf("CallCount = %d", m.CallCount("echo"))
		}
	})

	t.Run("concurrent use", func(t *testing.T) {
		m := NewMockRunner()
		m.SetResponse("a", nil, nil)
		var wg sync.WaitGroup
		for i := 0; i < 50; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, _ = m.Run(context.Background(), "a")
			}()
		}
		wg.Wait()
		if len(m.Calls()) != 50 {
			t.Errorf("recorded %d calls, want 50", len(m.Calls()))
		}
	})
}

func TestFakes(t *testing.T) {
	t.Run("clicker hook", func(t *testing.T) {
		c := &Clicker{OnClick: func(n int, p geom.Point) error {
			if n == 2 {
				return errors.New("no window")
			}
			return nil
		}}
		_ = c.Click(context.Background(), geom.Point{X: 1, Y: 2})
		if err := c.Click(context.Background(), geom.Point{X: 3, Y: 4}); err == nil {
			t.Error("second click should fail")
		}
		if got := c.Clicks(); len(got) != 1 || got[0] != (geom.Point{X: 1, Y: 2}) {
			t.Errorf("Clicks = %v", got)
		}
	})

	t.Run("recognizer repeats last entry", func(t *testing.T) {
		r := &Recognizer{Script: [][]string{{"a"}, {"b"}}}
		var last []string
		for i := 0; i < 3; i++ {
			last, _ = r.Recognize(context.Background(), nil)
		}
		if len(last) != 1 || last[0] != "b" {
			t.Errorf("third call = %v", last)
		}
	})

	t.Run("capturer size", func(t *testing.T) {
		c := &Capturer{}
		img, err := c.Capture(context.Background(), geom.Rect{Left: 10, Top: 10, Right: 30, Bottom: 20})
		if err != nil {
			t.Fatal(err)
		}
		if b := img.Bounds(); b.Dx() != 20 || b.Dy() != 10 {
			t.Errorf("bounds = %v", b)
		}
		if c.Count() != 1 {
			t.Errorf("Count = %d", c.Count())
		}
	})

	t.Run("solid image", func(t *testing.T) {
		img := SolidImage(2, 2, color.Black)
		if r, g, b, _ := img.At(1, 1).RGBA(); r|g|b != 0 {
			t.Error("pixel not black")
		}
	})
}

func TestHelpers(t *testing.T) {
	dir := SetupProjectDir(t)
	if info, err := os.Stat(filepath.Join(dir, ".reroll")); err != nil || !info.IsDir() {
		t.Fatalf(".reroll missing: %v", err)
	}
	path := WriteFile(t, dir, "a/b.txt", "hello")
	if ReadFile(t, path) != "hello" {
		t.Error("round trip mismatch")
	}
}
