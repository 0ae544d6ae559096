//go:build windows

package window

import (
	"context"
	"syscall"
	"unsafe"

	"golang.org/x/sys/windows"
)

// SystemLister enumerates top-level windows through user32.
func SystemLister() Lister {
	return func(ctx context.Context, class string) ([]Candidate, error) {
		var cands []Candidate
		cb := syscall.NewCallback(func(hwnd windows.HWND, _ uintptr) uintptr {
			buf := make([]uint16, 256)
			n, err := windows.GetClassName(hwnd, &buf[0], int32(len(buf)))
			if err != nil || windows.UTF16ToString(buf[:n]) != class {
				return 1
			}
			title := make([]uint16, 256)
			tn, _ := windows.GetWindowText(hwnd, &title[0], int32(len(title)))
			cands = append(cands, Candidate{
				Handle:  uintptr(hwnd),
				Title:   windows.UTF16ToString(title[:tn]),
				Visible: windows.IsWindowVisible(hwnd),
			})
			return 1
		})
		if err := windows.EnumWindows(cb, unsafe.Pointer(nil)); err != nil {
			return nil, err
		}
		return cands, ctx.Err()
	}
}
