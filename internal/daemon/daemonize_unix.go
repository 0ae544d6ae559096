//go:build !windows

package daemon

import "syscall"

// detachAttrs starts the child in a new session.
func detachAttrs() *syscall.SysProcAttr {
	return &syscall.SysProcAttr{Setsid: true}
}
