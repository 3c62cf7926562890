// Package filesystem implements the corpus port over a local directory tree.
//
// Layout:
//
//	<root>/handbook.pdf          category General
//	<root>/Leave/leave_v2.pdf    category Leave
//	<root>/Leave/old/x.pdf       ignored (too deep)
package filesystem

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/custodia-labs/docrag/internal/core/domain"
	"github.com/custodia-labs/docrag/internal/core/ports/driven"
	"github.com/custodia-labs/docrag/internal/logger"
)

// Ensure Corpus implements the interface.
var _ driven.Corpus = (*Corpus)(nil)

// Corpus is a categorised document tree rooted at a directory.
type Corpus struct {
	root string
}

// New creates a corpus rooted at root. The directory is created on first use.
func New(root string) *Corpus {
	return &Corpus{root: filepath.Clean(root)}
}

// Root returns the corpus root path.
func (c *Corpus) Root() string {
	return c.root
}

// Walk lists every visible regular file at the root and one level below it,
// sorted by category then name.
func (c *Corpus) Walk(ctx context.Context) ([]domain.CorpusFile, error) {
	if err := os.MkdirAll(c.root, 0755); err != nil {
		return nil, fmt.Errorf("create corpus root: %w", err)
	}

	entries, err := os.ReadDir(c.root)
	if err != nil {
		return nil, fmt.Errorf("read corpus root: %w", err)
	}

	var files []domain.CorpusFile
	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if isHidden(entry.Name()) {
			continue
		}

		if entry.IsDir() {
			sub, err := c.walkCategory(entry.Name())
			if err != nil {
				return nil, err
			}
			files = append(files, sub...)
			continue
		}

		if f, ok := corpusFile(c.root, entry, domain.GeneralCategory); ok {
			files = append(files, f)
		}
	}

	sort.SliceStable(files, func(i, j int) bool {
		if files[i].Category != files[j].Category {
			return files[i].Category < files[j].Category
		}
		return files[i].Name < files[j].Name
	})
	return files, nil
}

func (c *Corpus) walkCategory(category string) ([]domain.CorpusFile, error) {
	dir := filepath.Join(c.root, category)
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read category %s: %w", category, err)
	}

	var files []domain.CorpusFile
	for _, entry := range entries {
		if entry.IsDir() || isHidden(entry.Name()) {
			continue
		}
		if f, ok := corpusFile(dir, entry, category); ok {
			files = append(files, f)
		}
	}
	return files, nil
}

// corpusFile describes a regular file. Symlinks are followed; anything that
// is not a regular file afterwards is skipped.
func corpusFile(dir string, entry os.DirEntry, category string) (domain.CorpusFile, bool) {
	path := filepath.Join(dir, entry.Name())
	info, err := os.Stat(path)
	if err != nil || !info.Mode().IsRegular() {
		return domain.CorpusFile{}, false
	}
	return domain.CorpusFile{
		Path:      path,
		Name:      entry.Name(),
		Category:  category,
		SizeBytes: info.Size(),
	}, true
}

// Open opens a corpus file and returns it with its size.
func (c *Corpus) Open(path string) (driven.ReadAtCloser, int64, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, 0, fmt.Errorf("%w: %s", domain.ErrNotFound, path)
		}
		return nil, 0, err
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, 0, err
	}
	return f, info.Size(), nil
}

// Save writes r to <root>/<category>/<filename>, replacing any existing file.
// The write goes through a temporary file so readers never see a partial
// document. Names that would escape the corpus are rejected.
func (c *Corpus) Save(ctx context.Context, category, filename string, r io.Reader) (string, error) {
	if err := checkName(filename); err != nil {
		return "", fmt.Errorf("%w: filename %q: %w", domain.ErrInvalidInput, filename, err)
	}

	dir := c.root
	if category != "" && category != domain.GeneralCategory {
		if err := checkName(category); err != nil {
			return "", fmt.Errorf("%w: category %q: %w", domain.ErrInvalidInput, category, err)
		}
		dir = filepath.Join(c.root, category)
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("create category directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".upload-*")
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := io.Copy(tmp, &ctxReader{ctx: ctx, r: r}); err != nil {
		tmp.Close()
		return "", fmt.Errorf("write upload: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("write upload: %w", err)
	}

	path := filepath.Join(dir, filename)
	if err := os.Rename(tmp.Name(), path); err != nil {
		return "", fmt.Errorf("store upload: %w", err)
	}
	return path, nil
}

// checkName accepts a single visible path element.
func checkName(name string) error {
	switch {
	case strings.TrimSpace(name) == "":
		return fmt.Errorf("empty name")
	case name == "." || name == "..":
		return fmt.Errorf("relative path element")
	case strings.ContainsAny(name, `/\`) || strings.ContainsRune(name, 0):
		return fmt.Errorf("path separators are not allowed")
	case filepath.VolumeName(name) != "":
		return fmt.Errorf("volume names are not allowed")
	case isHidden(name):
		return fmt.Errorf("hidden names are not allowed")
	}
	return nil
}

// ctxReader stops a copy once ctx is done.
type ctxReader struct {
	ctx context.Context
	r   io.Reader
}

func (c *ctxReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	return c.r.Read(p)
}

// Watch calls fn after changes under the root have been quiet for debounce.
// New category directories are watched as they appear.
func (c *Corpus) Watch(ctx context.Context, debounce time.Duration, fn func()) error {
	if err := os.MkdirAll(c.root, 0755); err != nil {
		return fmt.Errorf("create corpus root: %w", err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(c.root); err != nil {
		return fmt.Errorf("watch %s: %w", c.root, err)
	}
	entries, err := os.ReadDir(c.root)
	if err != nil {
		return fmt.Errorf("read corpus root: %w", err)
	}
	for _, entry := range entries {
		if entry.IsDir() && !isHidden(entry.Name()) {
			if err := watcher.Add(filepath.Join(c.root, entry.Name())); err != nil {
				logger.Warn("watch category %s: %v", entry.Name(), err)
			}
		}
	}

	var (
		mu    sync.Mutex
		timer *time.Timer
	)
	defer func() {
		mu.Lock()
		if timer != nil {
			timer.Stop()
		}
		mu.Unlock()
	}()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !c.relevant(event) {
				continue
			}
			if event.Has(fsnotify.Create) && filepath.Dir(event.Name) == c.root {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					if err := watcher.Add(event.Name); err != nil {
						logger.Warn("watch category %s: %v", event.Name, err)
					}
				}
			}
			logger.Debug("corpus change: %s", event)

			mu.Lock()
			if timer == nil {
				timer = time.AfterFunc(debounce, fn)
			} else {
				timer.Reset(debounce)
			}
			mu.Unlock()

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Warn("corpus watcher: %v", err)
		}
	}
}

// relevant reports whether an event can change the corpus listing.
// Permission changes and hidden paths (editor swap files, temp uploads) are ignored.
func (c *Corpus) relevant(event fsnotify.Event) bool {
	if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) &&
		!event.Has(fsnotify.Remove) && !event.Has(fsnotify.Rename) {
		return false
	}
	rel, err := filepath.Rel(c.root, event.Name)
	if err != nil || rel == "." || strings.HasPrefix(rel, "..") {
		return false
	}
	return !isHidden(rel)
}

// isHidden reports whether any element of path starts with a dot.
// "." and ".." are not hidden.
func isHidden(path string) bool {
	for _, part := range strings.FieldsFunc(path, func(r rune) bool { return r == '/' || r == '\\' }) {
		if part != "." && part != ".." && strings.HasPrefix(part, ".") {
			return true
		}
	}
	return false
}
