package storage

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestOpenRead(t *testing.T) {
	root := t.TempDir()
	content := []byte("hello tftp")
	if err := os.WriteFile(filepath.Join(root, "hello.txt"), content, 0o644); err != nil {
		t.Fatalf(`Error while preparing test file: %v`, err)
	}

	d, err := NewDir(root)
	if err != nil {
		t.Fatalf(`Error creating store: %v`, err)
	}

	f, err := d.OpenRead("hello.txt")
	if err != nil {
		t.Fatalf(`Error opening file: %v`, err)
	}
	defer f.Close()

	got, err := io.ReadAll(f)
	if err != nil {
		t.Fatalf(`Error reading file: %v`, err)
	}
	assert.Equal(t, content, got, "file content missmatch")
}

func TestOpenReadNotFound(t *testing.T) {
	d, err := NewDir(t.TempDir())
	if err != nil {
		t.Fatalf(`Error creating store: %v`, err)
	}

	_, err = d.OpenRead("missing.txt")
	assert.True(t, errors.Is(err, ErrNotFound), "expected ErrNotFound, got %v", err)
}

func TestCreateWrite(t *testing.T) {
	root := t.TempDir()
	d, err := NewDir(root)
	if err != nil {
		t.Fatalf(`Error creating store: %v`, err)
	}

	f, err := d.CreateWrite("upload.bin")
	if err != nil {
		t.Fatalf(`Error creating file: %v`, err)
	}
	if _, err := f.Write([]byte("block one")); err != nil {
		t.Fatalf(`Error writing file: %v`, err)
	}
	if err := f.Close(); err != nil {
		t.Fatalf(`Error closing file: %v`, err)
	}

	got, err := os.ReadFile(filepath.Join(root, "upload.bin"))
	if err != nil {
		t.Fatalf(`Error reading back file: %v`, err)
	}
	assert.Equal(t, []byte("block one"), got, "file content missmatch")
}

func TestLeadingSlashIsStripped(t *testing.T) {
	root := t.TempDir()
	if err := os.WriteFile(filepath.Join(root, "a.txt"), []byte("x"), 0o644); err != nil {
		t.Fatalf(`Error while preparing test file: %v`, err)
	}
	d, err := NewDir(root)
	if err != nil {
		t.Fatalf(`Error creating store: %v`, err)
	}

	f, err := d.OpenRead("/a.txt")
	if err != nil {
		t.Fatalf(`Error opening file with absolute request path: %v`, err)
	}
	f.Close()
}

func TestNewDirRequiresDirectory(t *testing.T) {
	_, err := NewDir(filepath.Join(t.TempDir(), "does-not-exist"))
	assert.Error(t, err, "missing root should be rejected")
}
