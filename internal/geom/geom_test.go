package geom

import (
	"image"
	"testing"
)

func TestRect(t *testing.T) {
	tests := []struct {
		name  string
		rect  Rect
		w, h  int
		empty bool
	}{
		{"normal", Rect{Left: 10, Top: 20, Right: 110, Bottom: 70}, 100, 50, false},
		{"zero", Rect{}, 0, 0, true},
		{"inverted", Rect{Left: 50, Top: 50, Right: 10, Bottom: 60}, -40, 10, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.rect.Width(); got != tt.w {
				t.Errorf("Width() = %d, want %d", got, tt.w)
			}
			if got := tt.rect.Height(); got != tt.h {
				t.Errorf("Height() = %d, want %d", got, tt.h)
			}
			if got := tt.rect.Empty(); got != tt.empty {
				t.Errorf("Empty() = %v, want %v", got, tt.empty)
			}
		})
	}
}

func TestRectImage(t *testing.T) {
	r := Rect{Left: 1, Top: 2, Right: 3, Bottom: 4}
	if got, want := r.Image(), image.Rect(1, 2, 3, 4); got != want {
		t.Errorf("Image() = %v, want %v", got, want)
	}
	if got := r.String(); got != "1,2 3,4" {
		t.Errorf("String() = %q", got)
	}
}

func TestPoint(t *testing.T) {
	if !(Point{}).IsZero() {
		t.Error("zero point should report IsZero")
	}
	p := Point{X: 640, Y: 480}
	if p.IsZero() {
		t.Error("non-zero point reported IsZero")
	}
	if got := p.String(); got != "640,480" {
		t.Errorf("String() = %q, want 640,480", got)
	}
}

func TestParsePoint(t *testing.T) {
	p, err := ParsePoint(" 120, 340 ")
	if err != nil || p != (Point{X: 120, Y: 340}) {
		t.Errorf("ParsePoint = %v, %v", p, err)
	}
	for _, bad := range []string{"", "1", "1,2,3", "a,b"} {
		if _, err := ParsePoint(bad); err == nil {
			t.Errorf("ParsePoint(%q) succeeded", bad)
		}
	}
}

func TestParseRect(t *testing.T) {
	want := Rect{Left: 1, Top: 2, Right: 30, Bottom: 40}
	for _, in := range []string{"1,2,30,40", "1,2 30,40", want.String()} {
		r, err := ParseRect(in)
		if err != nil || r != want {
			t.Errorf("ParseRect(%q) = %v, %v", in, r, err)
		}
	}
	if _, err := ParseRect("1,2,3"); err == nil {
		t.Error("short rect accepted")
	}
}
