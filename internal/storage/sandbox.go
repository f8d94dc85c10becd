// Package storage keeps shared playlists on disk. Every file operation goes
// through an os.Root, so names can never reach outside the storage directory.
package storage

import (
	"crypto/rand"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// ErrEscapesSandbox is returned for names that are not local to the sandbox.
var ErrEscapesSandbox = errors.New("path escapes sandbox")

const (
	dirPerm  = 0o750
	filePerm = 0o640
)

// Sandbox confines file access to one directory.
type Sandbox struct {
	dir  string
	root *os.Root
}

// NewSandbox creates dir when missing and opens it as the sandbox root.
func NewSandbox(dir string) (*Sandbox, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("resolving %s: %w", dir, err)
	}
	if err := os.MkdirAll(abs, dirPerm); err != nil {
		return nil, fmt.Errorf("creating %s: %w", abs, err)
	}
	root, err := os.OpenRoot(abs)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", abs, err)
	}
	return &Sandbox{dir: abs, root: root}, nil
}

// BaseDir returns the absolute sandbox directory.
func (s *Sandbox) BaseDir() string { return s.dir }

// Close releases the root handle.
func (s *Sandbox) Close() error { return s.root.Close() }

// ResolvePath maps a local name to its absolute path. Absolute names and
// names that climb out with ".." fail with ErrEscapesSandbox.
func (s *Sandbox) ResolvePath(name string) (string, error) {
	if !filepath.IsLocal(name) {
		return "", fmt.Errorf("%w: %s", ErrEscapesSandbox, name)
	}
	return filepath.Join(s.dir, name), nil
}

// ReadFile returns the content of name. A missing file matches
// os.ErrNotExist.
func (s *Sandbox) ReadFile(name string) ([]byte, error) {
	if _, err := s.ResolvePath(name); err != nil {
		return nil, err
	}
	data, err := s.root.ReadFile(filepath.ToSlash(filepath.Clean(name)))
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", name, err)
	}
	return data, nil
}

// AtomicWrite stores data under name. Content lands in a hidden temporary
// file first and is renamed into place, so readers see all of it or none.
func (s *Sandbox) AtomicWrite(name string, data []byte) (err error) {
	if _, err := s.ResolvePath(name); err != nil {
		return err
	}
	name = filepath.Clean(name)

	if parent := filepath.Dir(name); parent != "." {
		if err := s.root.MkdirAll(parent, dirPerm); err != nil {
			return fmt.Errorf("creating %s: %w", parent, err)
		}
	}

	tmp := filepath.Join(filepath.Dir(name), "."+filepath.Base(name)+"."+rand.Text()[:8]+".tmp")
	f, err := s.root.OpenFile(tmp, os.O_CREATE|os.O_EXCL|os.O_WRONLY, filePerm)
	if err != nil {
		return fmt.Errorf("creating temporary file: %w", err)
	}
	defer func() {
		if err != nil {
			_ = s.root.Remove(tmp)
		}
	}()

	if _, err = f.Write(data); err == nil {
		err = f.Sync()
	}
	if closeErr := f.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		return fmt.Errorf("writing temporary file: %w", err)
	}

	if err = s.root.Rename(tmp, name); err != nil {
		return fmt.Errorf("moving %s into place: %w", name, err)
	}
	return nil
}
