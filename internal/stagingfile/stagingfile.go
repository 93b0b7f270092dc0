// Copyright (c) The USB Secure Boot Tools Authors.
// Licensed under the MIT License.

// Package stagingfile tracks a transient file that an external tool will
// produce, guaranteeing it is removed on every exit path until it has been
// committed (relocated to its final home).
package stagingfile

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/archmediatools/usb-secureboot-tools/internal/file"
	"github.com/archmediatools/usb-secureboot-tools/internal/logger"
)

type File struct {
	path      string
	committed bool
}

// New acquires a staging path: the parent directory is created and any stale
// file from a previous interrupted run is removed.
func New(path string) (*File, error) {
	err := os.MkdirAll(filepath.Dir(path), 0o755)
	if err != nil {
		return nil, fmt.Errorf("failed to create staging directory (%s):\n%w", filepath.Dir(path), err)
	}

	err = file.RemoveFileIfExists(path)
	if err != nil {
		return nil, fmt.Errorf("failed to remove stale staging file (%s):\n%w", path, err)
	}

	return &File{
		path: path,
	}, nil
}

// Path returns the staging path.
func (f *File) Path() string {
	return f.path
}

// Commit marks the file as relocated; Close becomes a no-op.
func (f *File) Commit() {
	f.committed = true
}

// Close removes the staged file unless it was committed. Intended for defer;
// failures are only logged.
func (f *File) Close() {
	if f.committed {
		return
	}

	err := file.RemoveFileIfExists(f.path)
	if err != nil {
		logger.Log.Warnf("Failed to remove staging file (%s): %v", f.path, err)
		return
	}

	f.committed = true
}
