// Package repo serves files from a single flat repository directory.
package repo

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/Sentinel-Gate/filegate/internal/port/outbound"
)

var (
	// ErrInvalidRequest matches every rejected file request.
	ErrInvalidRequest = errors.New("invalid file request")

	// ErrInvalidName is returned for names that could escape the repository.
	ErrInvalidName = fmt.Errorf("%w: invalid name", ErrInvalidRequest)

	// ErrNotFound is returned when the name does not resolve to a servable file.
	ErrNotFound = fmt.Errorf("%w: not found", ErrInvalidRequest)
)

// Repository is a directory of flat, non-hidden regular files.
// Files are treated as read-only data managed outside the server.
type Repository struct {
	dir string
}

// New returns a Repository rooted at dir. The directory is not touched.
func New(dir string) *Repository {
	return &Repository{dir: dir}
}

// Dir returns the configured repository path.
func (r *Repository) Dir() string {
	return r.dir
}

// Ensure creates the repository directory if it does not exist.
func (r *Repository) Ensure() error {
	if err := os.MkdirAll(r.dir, 0o755); err != nil {
		return fmt.Errorf("create repository dir: %w", err)
	}
	return nil
}

// List returns the names of non-hidden regular files, sorted.
// A missing directory yields an empty list.
func (r *Repository) List() ([]string, error) {
	entries, err := os.ReadDir(r.dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("read repository dir: %w", err)
	}

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if strings.HasPrefix(e.Name(), ".") {
			continue
		}
		info, err := e.Info()
		if err != nil || !info.Mode().IsRegular() {
			continue
		}
		names = append(names, e.Name())
	}
	sort.Strings(names)
	return names, nil
}

// Open opens the named file for reading and returns its size.
// The name must not contain path separators, must not be hidden, and must
// resolve (after following symlinks) to a regular file directly inside the
// repository directory.
func (r *Repository) Open(name string) (io.ReadCloser, int64, error) {
	if err := validateName(name); err != nil {
		return nil, 0, err
	}

	root, err := filepath.Abs(r.dir)
	if err != nil {
		return nil, 0, fmt.Errorf("resolve repository dir: %w", err)
	}
	root, err = filepath.EvalSymlinks(root)
	if err != nil {
		return nil, 0, ErrNotFound
	}

	path, err := filepath.EvalSymlinks(filepath.Join(root, name))
	if err != nil {
		return nil, 0, ErrNotFound
	}
	if filepath.Dir(path) != root {
		return nil, 0, ErrInvalidName
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, 0, ErrNotFound
	}
	info, err := f.Stat()
	if err != nil || !info.Mode().IsRegular() {
		_ = f.Close()
		return nil, 0, ErrNotFound
	}
	return f, info.Size(), nil
}

// Compile-time interface verification.
var _ outbound.Repository = (*Repository)(nil)

func validateName(name string) error {
	switch {
	case name == "", name == ".", name == "..":
		return ErrInvalidName
	case strings.ContainsAny(name, `/\`):
		return ErrInvalidName
	case strings.ContainsRune(name, 0):
		return ErrInvalidName
	case strings.HasPrefix(name, "."):
		return ErrNotFound
	}
	return nil
}
