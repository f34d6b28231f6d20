//go:build windows

package pid

import "os"

// FindProcess opens a handle on Windows and fails for exited processes.
func processAlive(pid int) bool {
	process, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	_ = process.Release()

	return true
}
