//go:build windows

package daemon

import (
	"syscall"

	"golang.org/x/sys/windows"
)

// detachAttrs starts the child without a console in its own process group.
func detachAttrs() *syscall.SysProcAttr {
	return &syscall.SysProcAttr{
		CreationFlags: windows.CREATE_NEW_PROCESS_GROUP | windows.DETACHED_PROCESS,
		HideWindow:    true,
	}
}
