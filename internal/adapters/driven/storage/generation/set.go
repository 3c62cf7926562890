// Package generation manages versioned on-disk index directories.
//
// Every rebuild writes a fresh generation directory next to the live one and
// then repoints the CURRENT file at it. Readers keep using the previous
// generation until the swap, so a failed or in-flight rebuild never exposes a
// partial index. Other processes sharing the directory pick up the new
// generation on their next read.
package generation

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/custodia-labs/docrag/internal/core/domain"
	"github.com/custodia-labs/docrag/internal/logger"
)

// CurrentFileName holds the name of the live generation.
const CurrentFileName = "CURRENT"

// Opener opens a handle onto a built generation directory.
type Opener[H io.Closer] func(path string) (H, error)

// Set tracks the live generation of an index directory.
type Set[H io.Closer] struct {
	dir    string
	prefix string
	open   Opener[H]
	lock   *FileLock

	writeMu sync.Mutex

	mu     sync.RWMutex
	active string
	handle H
	loaded bool
}

// Open prepares dir, takes the shared directory lock and loads the live
// generation if one exists.
func Open[H io.Closer](dir, prefix string, open Opener[H]) (*Set[H], error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create index directory: %w", err)
	}
	lock, err := OpenLock(dir)
	if err != nil {
		return nil, err
	}

	s := &Set[H]{dir: dir, prefix: prefix, open: open, lock: lock}
	if err := s.refresh(); err != nil {
		lock.Close()
		return nil, err
	}
	return s, nil
}

// Dir returns the index directory.
func (s *Set[H]) Dir() string { return s.dir }

// Active returns the name of the live generation, or "" when empty.
func (s *Set[H]) Active() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.active
}

// View calls fn with the live handle. ok is false when nothing has been
// built yet. The handle stays valid for the duration of fn.
func (s *Set[H]) View(fn func(h H, ok bool) error) error {
	if err := s.refresh(); err != nil {
		return err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return fn(s.handle, s.loaded)
}

// Rebuild builds a new generation with build and makes it live. build
// receives an empty directory. On failure the previous generation stays.
func (s *Set[H]) Rebuild(build func(path string) error) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	name := s.prefix + "-" + strconv.FormatInt(time.Now().UnixNano(), 10)
	path := filepath.Join(s.dir, name)
	if err := os.MkdirAll(path, 0o755); err != nil {
		return fmt.Errorf("create generation: %w", err)
	}
	if err := build(path); err != nil {
		os.RemoveAll(path)
		return err
	}

	h, err := s.open(path)
	if err != nil {
		os.RemoveAll(path)
		return fmt.Errorf("open generation: %w", err)
	}
	if err := writeCurrent(s.dir, name); err != nil {
		h.Close()
		os.RemoveAll(path)
		return err
	}

	s.mu.Lock()
	old, hadOld := s.handle, s.loaded
	s.handle, s.active, s.loaded = h, name, true
	s.mu.Unlock()

	if hadOld {
		if err := old.Close(); err != nil {
			logger.Warn("close previous index generation: %v", err)
		}
	}
	s.sweep(name)
	return nil
}

// Clear removes every generation. It fails with domain.ErrIndexBusy while a
// rebuild or read is in flight here, or while another process has the
// directory open.
func (s *Set[H]) Clear() error {
	if !s.writeMu.TryLock() {
		return domain.ErrIndexBusy
	}
	defer s.writeMu.Unlock()
	if !s.mu.TryLock() {
		return domain.ErrIndexBusy
	}
	defer s.mu.Unlock()

	acquired, err := s.lock.WithExclusive(func() error {
		if s.loaded {
			if err := s.handle.Close(); err != nil {
				logger.Warn("close index generation: %v", err)
			}
			var zero H
			s.handle, s.active, s.loaded = zero, "", false
		}
		if err := os.Remove(filepath.Join(s.dir, CurrentFileName)); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("remove %s: %w", CurrentFileName, err)
		}
		for _, name := range s.generations() {
			if err := os.RemoveAll(filepath.Join(s.dir, name)); err != nil {
				return fmt.Errorf("remove generation %s: %w", name, err)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	if !acquired {
		return domain.ErrIndexBusy
	}
	return nil
}

// Close releases the live handle and the directory lock.
func (s *Set[H]) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var err error
	if s.loaded {
		err = s.handle.Close()
		var zero H
		s.handle, s.active, s.loaded = zero, "", false
	}
	if lockErr := s.lock.Close(); lockErr != nil && err == nil {
		err = lockErr
	}
	return err
}

// refresh follows CURRENT when another process has swapped generations.
func (s *Set[H]) refresh() error {
	name, err := readCurrent(s.dir)
	if err != nil {
		return err
	}

	s.mu.RLock()
	same := name == s.active
	s.mu.RUnlock()
	if same {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	// A local Rebuild may have moved CURRENT since the first read.
	if name, err = readCurrent(s.dir); err != nil {
		return err
	}
	if name == s.active {
		return nil
	}

	var next H
	if name != "" {
		h, err := s.open(filepath.Join(s.dir, name))
		if err != nil {
			return fmt.Errorf("open generation %s: %w", name, err)
		}
		next = h
	}
	if s.loaded {
		if err := s.handle.Close(); err != nil {
			logger.Warn("close previous index generation: %v", err)
		}
	}
	s.handle, s.active, s.loaded = next, name, name != ""
	return nil
}

// sweep removes generations other than keep. Failures are logged only.
func (s *Set[H]) sweep(keep string) {
	for _, name := range s.generations() {
		if name == keep {
			continue
		}
		if err := os.RemoveAll(filepath.Join(s.dir, name)); err != nil {
			logger.Warn("remove stale index generation %s: %v", name, err)
		}
	}
}

func (s *Set[H]) generations() []string {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() && strings.HasPrefix(e.Name(), s.prefix+"-") {
			names = append(names, e.Name())
		}
	}
	return names
}

func readCurrent(dir string) (string, error) {
	data, err := os.ReadFile(filepath.Join(dir, CurrentFileName))
	if errors.Is(err, os.ErrNotExist) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("read %s: %w", CurrentFileName, err)
	}
	return strings.TrimSpace(string(data)), nil
}

// writeCurrent replaces CURRENT atomically.
func writeCurrent(dir, name string) error {
	tmp, err := os.CreateTemp(dir, CurrentFileName+".tmp-*")
	if err != nil {
		return fmt.Errorf("write %s: %w", CurrentFileName, err)
	}
	if _, err := tmp.WriteString(name + "\n"); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("write %s: %w", CurrentFileName, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("write %s: %w", CurrentFileName, err)
	}
	if err := os.Rename(tmp.Name(), filepath.Join(dir, CurrentFileName)); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("write %s: %w", CurrentFileName, err)
	}
	return nil
}
