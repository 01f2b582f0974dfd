package invoice

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// Sink stores rendered invoices by name.
type Sink interface {
	Create(name string) (Draft, error)
}

// Draft is an invoice being written. Nothing shows up under its name until
// Commit; Abort throws the draft away and leaves any stored invoice alone.
type Draft interface {
	io.Writer
	Commit() error
	Abort() error
}

// DirSink keeps invoices as files in one directory.
type DirSink struct {
	dir string
}

func NewDirSink(dir string) (*DirSink, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create invoice dir: %w", err)
	}
	return &DirSink{dir: dir}, nil
}

// Create opens a uniquely named temp file next to the final one, so
// concurrent renders of the same invoice never share a file handle.
func (s *DirSink) Create(name string) (Draft, error) {
	path, err := s.path(name)
	if err != nil {
		return nil, err
	}
	f, err := os.CreateTemp(s.dir, "."+name+".*")
	if err != nil {
		return nil, err
	}
	return &fileDraft{f: f, path: path}, nil
}

func (s *DirSink) path(name string) (string, error) {
	if name == "" || strings.ContainsAny(name, `/\`) || name == "." || name == ".." {
		return "", fmt.Errorf("invalid invoice name %q", name)
	}
	return filepath.Join(s.dir, name), nil
}

type fileDraft struct {
	f    *os.File
	path string
	done bool
}

func (d *fileDraft) Write(p []byte) (int, error) {
	return d.f.Write(p)
}

// Commit renames the draft over the final name. The rename is atomic, so
// readers see either the previous invoice or this one.
func (d *fileDraft) Commit() error {
	if d.done {
		return errors.New("invoice draft already closed")
	}
	d.done = true
	if err := d.f.Close(); err != nil {
		_ = os.Remove(d.f.Name())
		return err
	}
	if err := os.Chmod(d.f.Name(), 0o644); err != nil {
		_ = os.Remove(d.f.Name())
		return err
	}
	if err := os.Rename(d.f.Name(), d.path); err != nil {
		_ = os.Remove(d.f.Name())
		return err
	}
	return nil
}

func (d *fileDraft) Abort() error {
	if d.done {
		return nil
	}
	d.done = true
	closeErr := d.f.Close()
	if err := os.Remove(d.f.Name()); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return closeErr
}
