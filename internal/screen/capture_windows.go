//go:build windows

package screen

import (
	"context"
	"fmt"
	"image"
	"log/slog"
	"unsafe"

	"github.com/lxn/win"
	"golang.org/x/sys/windows"

	"github.com/npratt/reroll/internal/config"
	"github.com/npratt/reroll/internal/geom"
	"github.com/npratt/reroll/internal/window"
)

const defaultBackend = config.BackendWindow

var (
	user32      = windows.NewLazySystemDLL("user32.dll")
	gdi32       = windows.NewLazySystemDLL("gdi32.dll")
	printWindow = user32.NewProc("PrintWindow")
	gdiFlush    = gdi32.NewProc("GdiFlush")
)

// pwClientOnlyFullContent asks PrintWindow for the client area including
// DirectX surfaces.
const pwClientOnlyFullContent = 3

// WindowCapturer renders the game's client area with PrintWindow, which works
// while the window is covered.
type WindowCapturer struct {
	finder *window.Finder
	logger *slog.Logger
}

func newWindowCapturer(finder *window.Finder, logger *slog.Logger) (Capturer, error) {
	return &WindowCapturer{finder: finder, logger: logger}, nil
}

// Capture implements Capturer.
func (c *WindowCapturer) Capture(ctx context.Context, region geom.Rect) (image.Image, error) {
	w, err := c.finder.Find(ctx)
	if err != nil {
		return nil, err
	}
	hwnd := win.HWND(w.Handle)
	if !win.IsWindow(hwnd) {
		c.finder.Forget()
		return nil, fmt.Errorf("%w: window closed", window.ErrNotFound)
	}

	img, err := printClient(hwnd)
	if err != nil {
		return nil, err
	}
	return crop(img, region)
}

// printClient copies the client area into a top-down 32-bit DIB.
func printClient(hwnd win.HWND) (*image.RGBA, error) {
	var rc win.RECT
	if !win.GetClientRect(hwnd, &rc) {
		return nil, fmt.Errorf("get client rect failed")
	}
	width, height := int(rc.Right-rc.Left), int(rc.Bottom-rc.Top)
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("window is minimised")
	}

	hdcScreen := win.GetDC(0)
	if hdcScreen == 0 {
		return nil, fmt.Errorf("get screen dc failed")
	}
	defer win.ReleaseDC(0, hdcScreen)

	hdcMem := win.CreateCompatibleDC(hdcScreen)
	if hdcMem == 0 {
		return nil, fmt.Errorf("create memory dc failed")
	}
	defer win.DeleteDC(hdcMem)

	bi := win.BITMAPINFOHEADER{
		BiSize:     uint32(unsafe.Sizeof(win.BITMAPINFOHEADER{})),
		BiWidth:    int32(width),
		BiHeight:   -int32(height),
		BiPlanes:   1,
		BiBitCount: 32,
	}
	var bits unsafe.Pointer
	hbm := win.CreateDIBSection(hdcScreen, &bi, win.DIB_RGB_COLORS, &bits, 0, 0)
	if hbm == 0 || bits == nil {
		return nil, fmt.Errorf("create dib section failed")
	}
	defer win.DeleteObject(win.HGDIOBJ(hbm))
	win.SelectObject(hdcMem, win.HGDIOBJ(hbm))

	if ret, _, err := printWindow.Call(uintptr(hwnd), uintptr(hdcMem), pwClientOnlyFullContent); ret == 0 {
		return nil, fmt.Errorf("print window: %w", err)
	}
	_, _, _ = gdiFlush.Call()

	n := width * height * 4
	src := unsafe.Slice((*byte)(bits), n)
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	copy(img.Pix, src)
	// BGRA to RGBA.
	for i := 0; i < n; i += 4 {
		img.Pix[i], img.Pix[i+2] = img.Pix[i+2], img.Pix[i]
		img.Pix[i+3] = 0xFF
	}
	return img, nil
}
