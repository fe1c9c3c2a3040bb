//go:build !windows

package core

import (
	"errors"

	"golang.org/x/sys/unix"
)

// lockOwnerRunning reports whether pid names a live process. A process owned
// by another user still holds its lock.
func lockOwnerRunning(pid int) bool {
	if pid <= 0 {
		return false
	}
	err := unix.Kill(pid, 0)
	return err == nil || errors.Is(err, unix.EPERM)
}
