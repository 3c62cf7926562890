package generation

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// LockFileName is the advisory lock file inside an index directory.
const LockFileName = "LOCK"

var errWouldBlock = errors.New("would block")

// FileLock is an advisory lock shared by every process that has an index
// directory open. Destructive operations need it exclusively.
type FileLock struct {
	f *os.File
}

// OpenLock opens the lock file in dir and takes a shared lock on it.
func OpenLock(dir string) (*FileLock, error) {
	f, err := os.OpenFile(filepath.Join(dir, LockFileName), os.O_CREATE|os.O_RDWR, 0o600)
	if err != nil {
		return nil, fmt.Errorf("open index lock: %w", err)
	}
	if err := lockShared(f); err != nil {
		f.Close()
		return nil, fmt.Errorf("lock index: %w", err)
	}
	return &FileLock{f: f}, nil
}

// WithExclusive runs fn while holding the lock exclusively and returns to a
// shared lock afterwards. It reports false without running fn when another
// process holds the lock.
func (l *FileLock) WithExclusive(fn func() error) (bool, error) {
	if err := tryLockExclusive(l.f); err != nil {
		if relockErr := lockShared(l.f); relockErr != nil {
			return false, fmt.Errorf("relock index: %w", relockErr)
		}
		if errors.Is(err, errWouldBlock) {
			return false, nil
		}
		return false, fmt.Errorf("lock index exclusively: %w", err)
	}

	fnErr := fn()
	if err := lockShared(l.f); err != nil && fnErr == nil {
		fnErr = fmt.Errorf("relock index: %w", err)
	}
	return true, fnErr
}

// Close releases the lock.
func (l *FileLock) Close() error {
	if l == nil || l.f == nil {
		return nil
	}
	_ = unlockFile(l.f)
	err := l.f.Close()
	l.f = nil
	return err
}
