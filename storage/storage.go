// Package storage is the file backend behind the TFTP server: it resolves
// request filenames inside a root directory and hands out plain read/write
// handles. The protocol engine treats it as opaque.
package storage

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
)

var (
	ErrNotFound         = errors.New("file not found")
	ErrPermissionDenied = errors.New("permission denied")
)

// Store is what a transfer needs from the file system: open an existing file
// for a read transfer, create the destination of a write transfer. Chunked
// reads and per-block writes happen through the returned handles; closing a
// handle releases it.
type Store interface {
	OpenRead(name string) (io.ReadCloser, error)
	CreateWrite(name string) (io.WriteCloser, error)
}

// Dir serves files from a root directory.
type Dir struct {
	Root string
}

func NewDir(root string) (*Dir, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("root directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("root %q is not a directory", root)
	}
	return &Dir{Root: root}, nil
}

func (d *Dir) path(name string) string {
	if len(name) > 0 && name[0] == '/' {
		name = name[1:]
	}
	return filepath.Join(d.Root, name)
}

func (d *Dir) OpenRead(name string) (io.ReadCloser, error) {
	f, err := os.Open(d.path(name))
	if err != nil {
		return nil, mapError(err)
	}
	return f, nil
}

func (d *Dir) CreateWrite(name string) (io.WriteCloser, error) {
	f, err := os.Create(d.path(name))
	if err != nil {
		return nil, mapError(err)
	}
	return f, nil
}

func mapError(err error) error {
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return fmt.Errorf("%w: %v", ErrNotFound, err)
	case errors.Is(err, fs.ErrPermission):
		return fmt.Errorf("%w: %v", ErrPermissionDenied, err)
	default:
		return err
	}
}
