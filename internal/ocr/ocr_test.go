package ocr

import (
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"os"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/npratt/reroll/internal/testutil"
)

func TestTesseract_Recognize(t *testing.T) {
	var gotArgs []string
	var size image.Point
	runner := testutil.NewMockRunner()
	runner.Handler = func(ctx context.Context, name string, args []string) ([]byte, error, bool) {
		gotArgs = args
		f, err := os.Open(args[0])
		if err != nil {
			return nil, err, true
		}
		defer func() { _ = f.Close() }()
		cfg, err := png.DecodeConfig(f)
		if err != nil {
			return nil, err, true
		}
		size = image.Pt(cfg.Width, cfg.Height)
		return []byte(sampleTSV), nil, true
	}

	tess := New(runner, Options{
		Language:      "eng",
		PageSegMode:   6,
		MinConfidence: 50,
		RowTolerance:  25,
		Scale:         2,
		Timeout:       time.Second,
	}, nil)

	lines, err := tess.Recognize(context.Background(), testutil.SolidImage(100, 50, color.White))
	if err != nil {
		t.Fatalf("Recognize() error: %v", err)
	}
	if want := []string{"All Attack Up 45", "Heal"}; !reflect.DeepEqual(lines, want) {
		t.Errorf("Recognize() = %q, want %q", lines, want)
	}
	if size != image.Pt(200, 100) {
		t.Errorf("image size = %v, want 200x100", size)
	}
	if want := []string{"stdout", "-l", "eng", "--psm", "6", "tsv"}; !reflect.DeepEqual(gotArgs[1:], want) {
		t.Errorf("args = %q, want %q", gotArgs[1:], want)
	}
	if _, err := os.Stat(gotArgs[0]); !os.IsNotExist(err) {
		t.Error("temporary image should be removed")
	}

	calls := runner.Calls()
	if len(calls) != 1 || calls[0].Name != "tesseract" {
		t.Errorf("calls = %+v", calls)
	}
}

func TestTesseract_RecognizeNoScale(t *testing.T) {
	var size image.Point
	runner := testutil.NewMockRunner()
	runner.Handler = func(ctx context.Context, name string, args []string) ([]byte, error, bool) {
		f, err := os.Open(args[0])
		if err != nil {
			return nil, err, true
		}
		defer func() { _ = f.Close() }()
		cfg, _ := png.DecodeConfig(f)
		size = image.Pt(cfg.Width, cfg.Height)
		return nil, nil, true
	}

	lines, err := New(runner, Options{Command: "/opt/tesseract"}, nil).
		Recognize(context.Background(), testutil.SolidImage(30, 10, color.Black))
	if err != nil {
		t.Fatalf("Recognize() error: %v", err)
	}
	if len(lines) != 0 {
		t.Errorf("Recognize() = %q, want no lines", lines)
	}
	if size != image.Pt(30, 10) {
		t.Errorf("image size = %v, want 30x10", size)
	}
	if runner.Calls()[0].Name != "/opt/tesseract" {
		t.Errorf("command = %s", runner.Calls()[0].Name)
	}
}

func TestTesseract_RecognizeErrors(t *testing.T) {
	t.Run("command fails", func(t *testing.T) {
		boom := errors.New("tesseract: exit status 1: Error opening data file")
		runner := testutil.NewMockRunner()
		runner.SetError("tesseract", nil, boom)

		_, err := New(runner, Options{}, nil).Recognize(context.Background(), testutil.SolidImage(4, 4, color.White))
		if !errors.Is(err, boom) {
			t.Errorf("Recognize() error = %v, want %v", err, boom)
		}
	})

	t.Run("malformed output", func(t *testing.T) {
		runner := testutil.NewMockRunner()
		runner.SetResponse("tesseract", nil, []byte("5\t1\t1\t1\t1\t1\tx\t0\t1\t1\t90\tHeal\n"))

		_, err := New(runner, Options{}, nil).Recognize(context.Background(), testutil.SolidImage(4, 4, color.White))
		if err == nil || !strings.Contains(err.Error(), "tsv line 1") {
			t.Errorf("Recognize() error = %v", err)
		}
	})

	t.Run("timeout reaches runner", func(t *testing.T) {
		runner := testutil.NewMockRunner()
		runner.Handler = func(ctx context.Context, name string, args []string) ([]byte, error, bool) {
			<-ctx.Done()
			return nil, ctx.Err(), true
		}

		start := time.Now()
		_, err := New(runner, Options{Timeout: 20 * time.Millisecond}, nil).
			Recognize(context.Background(), testutil.SolidImage(4, 4, color.White))
		if !errors.Is(err, context.DeadlineExceeded) {
			t.Errorf("Recognize() error = %v, want deadline exceeded", err)
		}
		if time.Since(start) > time.Second {
			t.Error("timeout not applied")
		}
	})
}
