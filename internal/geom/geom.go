// Package geom holds the coordinate types shared by the input, capture and
// controller packages. All coordinates are relative to the game client area.
package geom

import (
	"fmt"
	"image"
	"strconv"
	"strings"
)

// Point is a click target in client coordinates.
type Point struct {
	X int `yaml:"x" mapstructure:"x" json:"x"`
	Y int `yaml:"y" mapstructure:"y" json:"y"`
}

// String renders the point as "x,y".
func (p Point) String() string {
	return fmt.Sprintf("%d,%d", p.X, p.Y)
}

// IsZero reports whether the point was left unset.
func (p Point) IsZero() bool {
	return p.X == 0 && p.Y == 0
}

// Rect is a capture region in client coordinates. Right and Bottom are exclusive.
type Rect struct {
	Left   int `yaml:"left" mapstructure:"left" json:"left"`
	Top    int `yaml:"top" mapstructure:"top" json:"top"`
	Right  int `yaml:"right" mapstructure:"right" json:"right"`
	Bottom int `yaml:"bottom" mapstructure:"bottom" json:"bottom"`
}

// Width returns the horizontal extent of the region.
func (r Rect) Width() int { return r.Right - r.Left }

// Height returns the vertical extent of the region.
func (r Rect) Height() int { return r.Bottom - r.Top }

// Empty reports whether the region has no area.
func (r Rect) Empty() bool {
	return r.Width() <= 0 || r.Height() <= 0
}

// Image converts the region to an image.Rectangle.
func (r Rect) Image() image.Rectangle {
	return image.Rect(r.Left, r.Top, r.Right, r.Bottom)
}

// String renders the region as "left,top right,bottom".
func (r Rect) String() string {
	return fmt.Sprintf("%d,%d %d,%d", r.Left, r.Top, r.Right, r.Bottom)
}

// ParsePoint parses "x,y".
func ParsePoint(s string) (Point, error) {
	nums, err := parseInts(s, 2)
	if err != nil {
		return Point{}, fmt.Errorf("parse point %q: %w", s, err)
	}
	return Point{X: nums[0], Y: nums[1]}, nil
}

// ParseRect parses "left,top,right,bottom". The String form "l,t r,b" is
// accepted too.
func ParseRect(s string) (Rect, error) {
	fields := strings.FieldsFunc(s, func(r rune) bool { return r == ',' || r == ' ' })
	nums, err := parseInts(strings.Join(fields, ","), 4)
	if err != nil {
		return Rect{}, fmt.Errorf("parse region %q: %w", s, err)
	}
	return Rect{Left: nums[0], Top: nums[1], Right: nums[2], Bottom: nums[3]}, nil
}

func parseInts(s string, n int) ([]int, error) {
	parts := strings.Split(s, ",")
	if len(parts) != n {
		return nil, fmt.Errorf("want %d comma-separated integers", n)
	}
	out := make([]int, n)
	for i, p := range parts {
		v, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}
