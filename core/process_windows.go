//go:build windows

package core

import (
	"errors"

	"golang.org/x/sys/windows"
)

// exit code reported for processes that have not terminated
const stillActive = 259

// lockOwnerRunning reports whether pid names a live process.
func lockOwnerRunning(pid int) bool {
	if pid <= 0 {
		return false
	}
	h, err := windows.OpenProcess(windows.PROCESS_QUERY_LIMITED_INFORMATION, false, uint32(pid))
	if err != nil {
		return errors.Is(err, windows.ERROR_ACCESS_DENIED)
	}
	defer windows.CloseHandle(h)

	var code uint32
	if err := windows.GetExitCodeProcess(h, &code); err != nil {
		return false
	}
	return code == stillActive
}
