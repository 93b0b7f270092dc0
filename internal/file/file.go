// Copyright (c) The USB Secure Boot Tools Authors.
// Licensed under the MIT License.

// Package file provides small file manipulation helpers.
package file

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/archmediatools/usb-secureboot-tools/internal/logger"
)

// PathExists reports whether the path exists at all.
func PathExists(path string) (bool, error) {
	_, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return false, nil
		}

		return false, err
	}

	return true, nil
}

// DirExists reports whether the path exists and is a directory.
func DirExists(path string) (bool, error) {
	stat, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return false, nil
		}

		return false, err
	}

	return stat.IsDir(), nil
}

// RemoveFileIfExists deletes the file, tolerating it being absent.
func RemoveFileIfExists(path string) error {
	err := os.Remove(path)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}

	return nil
}

// CreateDestinationDir ensures the parent directory of a destination file
// exists.
func CreateDestinationDir(dst string, dirFileMode os.FileMode) error {
	dstDir := filepath.Dir(dst)
	return os.MkdirAll(dstDir, dirFileMode)
}

// Copy copies a regular file, preserving its permission bits and creating the
// destination directory if needed.
func Copy(src string, dst string) error {
	logger.Log.Debugf("Copying (%s) to (%s)", src, dst)

	srcFileInfo, err := os.Stat(src)
	if err != nil {
		return fmt.Errorf("failed to read source file info:\n%w", err)
	}

	if srcFileInfo.IsDir() {
		return fmt.Errorf("source (%s) is not a file", src)
	}

	srcFile, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("failed to open source file:\n%w", err)
	}
	defer srcFile.Close()

	err = CreateDestinationDir(dst, os.ModePerm)
	if err != nil {
		return fmt.Errorf("failed to create destination directory for (%s):\n%w", dst, err)
	}

	dstFile, err := os.OpenFile(dst, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, srcFileInfo.Mode())
	if err != nil {
		return fmt.Errorf("failed to create destination file:\n%w", err)
	}
	defer func() {
		if dstFile != nil {
			dstFile.Close()
		}
	}()

	// The permissions given to OpenFile are subject to umask.
	err = dstFile.Chmod(srcFileInfo.Mode())
	if err != nil {
		return fmt.Errorf("failed to set destination file permissions:\n%w", err)
	}

	// io.Copy uses the sendfile syscall where appropriate.
	_, err = io.Copy(dstFile, srcFile)
	if err != nil {
		return fmt.Errorf("failed to copy file:\n%w", err)
	}

	err = dstFile.Close()
	dstFile = nil
	if err != nil {
		return fmt.Errorf("failed to finalize destination file:\n%w", err)
	}

	return nil
}

// Move moves a file, falling back to copy-and-delete when the source and
// destination are on different filesystems.
func Move(src string, dst string) error {
	logger.Log.Debugf("Moving (%s) to (%s)", src, dst)

	err := CreateDestinationDir(dst, os.ModePerm)
	if err != nil {
		return fmt.Errorf("failed to create destination directory for (%s):\n%w", dst, err)
	}

	err = os.Rename(src, dst)
	if err == nil {
		return nil
	}

	// Rename fails with EXDEV across filesystems; anything is possible on
	// FAT. Retry as a copy.
	err = Copy(src, dst)
	if err != nil {
		return fmt.Errorf("failed to move (%s) to (%s):\n%w", src, dst, err)
	}

	err = os.Remove(src)
	if err != nil {
		return fmt.Errorf("failed to remove source file after move (%s):\n%w", src, err)
	}

	return nil
}

// CommandExists reports whether the named command can be found in PATH.
func CommandExists(command string) (bool, error) {
	_, err := exec.LookPath(command)
	if err != nil {
		if errors.Is(err, exec.ErrNotFound) {
			return false, nil
		}

		return false, err
	}

	return true, nil
}
