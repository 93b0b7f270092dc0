// Copyright (c) The USB Secure Boot Tools Authors.
// Licensed under the MIT License.

package file

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPathExists(t *testing.T) {
	tempDir := t.TempDir()

	exists, err := PathExists(tempDir)
	assert.NoError(t, err)
	assert.True(t, exists)

	exists, err = PathExists(filepath.Join(tempDir, "missing"))
	assert.NoError(t, err)
	assert.False(t, exists)
}

func TestDirExists(t *testing.T) {
	tempDir := t.TempDir()

	filePath := filepath.Join(tempDir, "file")
	err := os.WriteFile(filePath, []byte("data"), 0o644)
	assert.NoError(t, err)

	exists, err := DirExists(tempDir)
	assert.NoError(t, err)
	assert.True(t, exists)

	exists, err = DirExists(filePath)
	assert.NoError(t, err)
	assert.False(t, exists)
}

func TestRemoveFileIfExists(t *testing.T) {
	tempDir := t.TempDir()
	filePath := filepath.Join(tempDir, "file")

	err := os.WriteFile(filePath, []byte("data"), 0o644)
	assert.NoError(t, err)

	err = RemoveFileIfExists(filePath)
	assert.NoError(t, err)
	assert.NoFileExists(t, filePath)

	// Absent file is not an error.
	err = RemoveFileIfExists(filePath)
	assert.NoError(t, err)
}

func TestCopy(t *testing.T) {
	tempDir := t.TempDir()
	srcPath := filepath.Join(tempDir, "src")
	dstPath := filepath.Join(tempDir, "sub", "dir", "dst")

	err := os.WriteFile(srcPath, []byte("contents"), 0o600)
	assert.NoError(t, err)

	err = Copy(srcPath, dstPath)
	assert.NoError(t, err)

	contents, err := os.ReadFile(dstPath)
	assert.NoError(t, err)
	assert.Equal(t, "contents", string(contents))

	dstInfo, err := os.Stat(dstPath)
	assert.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), dstInfo.Mode().Perm())
}

func TestCopyOfDirectoryFails(t *testing.T) {
	tempDir := t.TempDir()

	err := Copy(tempDir, filepath.Join(tempDir, "dst"))
	assert.Error(t, err)
	assert.ErrorContains(t, err, "is not a file")
}

func TestMove(t *testing.T) {
	tempDir := t.TempDir()
	srcPath := filepath.Join(tempDir, "src")
	dstPath := filepath.Join(tempDir, "other", "dst")

	err := os.WriteFile(srcPath, []byte("contents"), 0o644)
	assert.NoError(t, err)

	err = Move(srcPath, dstPath)
	assert.NoError(t, err)

	assert.NoFileExists(t, srcPath)

	contents, err := os.ReadFile(dstPath)
	assert.NoError(t, err)
	assert.Equal(t, "contents", string(contents))
}

func TestMoveMissingSourceFails(t *testing.T) {
	tempDir := t.TempDir()

	err := Move(filepath.Join(tempDir, "missing"), filepath.Join(tempDir, "dst"))
	assert.Error(t, err)
}
