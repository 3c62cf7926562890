//go:build windows

package generation

import (
	"errors"
	"os"

	"golang.org/x/sys/windows"
)

func lockShared(f *os.File) error {
	h := windows.Handle(f.Fd())
	var ol windows.Overlapped
	return windows.LockFileEx(h, 0, 0, 1, 0, &ol)
}

// tryLockExclusive replaces the lock held on f with an exclusive one
// without blocking. On failure the previous lock has been dropped.
func tryLockExclusive(f *os.File) error {
	h := windows.Handle(f.Fd())
	var ol windows.Overlapped
	_ = windows.UnlockFileEx(h, 0, 1, 0, &ol)
	err := windows.LockFileEx(h, windows.LOCKFILE_EXCLUSIVE_LOCK|windows.LOCKFILE_FAIL_IMMEDIATELY, 0, 1, 0, &ol)
	if err != nil {
		if errors.Is(err, windows.ERROR_LOCK_VIOLATION) {
			return errWouldBlock
		}
		return err
	}
	return nil
}

func unlockFile(f *os.File) error {
	h := windows.Handle(f.Fd())
	var ol windows.Overlapped
	return windows.UnlockFileEx(h, 0, 1, 0, &ol)
}
