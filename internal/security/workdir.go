package security

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

var (
	ErrPathEscapes  = errors.New("path escapes working directory")
	ErrAbsolutePath = errors.New("absolute path outside working directory")
	ErrEmptyPath    = errors.New("empty path not allowed")
	ErrNotRegular   = errors.New("not a regular file")
	ErrTooLarge     = errors.New("file too large")
)

// Workdir confines consignment reads and writes to one directory tree.
// All file access goes through os.Root, so symlinks cannot lead outside it.
type Workdir struct {
	root *os.Root
	path string
}

// Open opens the working directory at dir
func Open(dir string) (*Workdir, error) {
	absPath, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to get absolute path: %w", err)
	}

	root, err := os.OpenRoot(absPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open working directory: %w", err)
	}

	return &Workdir{root: root, path: absPath}, nil
}

// Close releases the directory handle
func (w *Workdir) Close() error {
	if w.root != nil {
		return w.root.Close()
	}
	return nil
}

// Path returns the absolute path of the working directory
func (w *Workdir) Path() string {
	return w.path
}

// Clean turns a user-supplied path into a slash-separated path relative to
// the working directory. Absolute paths are accepted when they point inside it.
func (w *Workdir) Clean(userPath string) (string, error) {
	if userPath == "" {
		return "", ErrEmptyPath
	}

	if filepath.IsAbs(userPath) {
		rel, err := filepath.Rel(w.path, filepath.Clean(userPath))
		if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
			return "", fmt.Errorf("%w: %s", ErrAbsolutePath, userPath)
		}
		userPath = rel
	}

	// IsLocal rejects escaping paths and reserved names
	if !filepath.IsLocal(userPath) {
		return "", fmt.Errorf("%w: %s", ErrPathEscapes, userPath)
	}

	return filepath.ToSlash(filepath.Clean(userPath)), nil
}

// CleanStored validates a path read back from the stash index
func (w *Workdir) CleanStored(stored string) (string, error) {
	if filepath.IsAbs(filepath.FromSlash(stored)) {
		return "", fmt.Errorf("%w: %s", ErrPathEscapes, stored)
	}
	return w.Clean(filepath.FromSlash(stored))
}

// ReadFile reads a regular file of at most limit bytes
func (w *Workdir) ReadFile(path string, limit int64) ([]byte, error) {
	clean, err := w.Clean(path)
	if err != nil {
		return nil, err
	}

	f, err := w.root.Open(filepath.FromSlash(clean))
	if err != nil {
		return nil, err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, err
	}
	if !info.Mode().IsRegular() {
		return nil, fmt.Errorf("%w: %s", ErrNotRegular, clean)
	}
	if info.Size() > limit {
		return nil, fmt.Errorf("%w: %s is %d bytes, limit %d", ErrTooLarge, clean, info.Size(), limit)
	}

	data, err := io.ReadAll(io.LimitReader(f, limit+1))
	if err != nil {
		return nil, err
	}
	if int64(len(data)) > limit {
		return nil, fmt.Errorf("%w: %s grew past %d bytes", ErrTooLarge, clean, limit)
	}
	return data, nil
}

// WriteFile writes data to path, creating parent directories as needed
func (w *Workdir) WriteFile(path string, data []byte, perm os.FileMode) error {
	clean, err := w.Clean(path)
	if err != nil {
		return err
	}

	if err := w.mkdirParents(clean); err != nil {
		return err
	}

	f, err := w.root.OpenFile(filepath.FromSlash(clean), os.O_WRONLY|os.O_CREATE|os.O_TRUNC, perm)
	if err != nil {
		return err
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// mkdirParents creates every missing directory above the slash path clean
func (w *Workdir) mkdirParents(clean string) error {
	parts := strings.Split(clean, "/")
	for i := 1; i < len(parts); i++ {
		dir := filepath.Join(parts[:i]...)
		if err := w.root.Mkdir(dir, 0700); err != nil && !errors.Is(err, fs.ErrExist) {
			return fmt.Errorf("failed to create %s: %w", dir, err)
		}
	}
	return nil
}
