// Copyright (c) The USB Secure Boot Tools Authors.
// Licensed under the MIT License.

// Package safemount provides a scoped mount: acquire with NewMount, release
// with CleanClose on the success path, and keep a deferred Close as a
// best-effort safety net for failure paths.
package safemount

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/archmediatools/usb-secureboot-tools/internal/logger"
	"github.com/moby/sys/mountinfo"
	"golang.org/x/sys/unix"
)

const (
	unmountAttempts     = 3
	unmountRetryDelay   = 500 * time.Millisecond
	mountDirDefaultMode = 0o755
)

type Mount struct {
	target       string
	isMounted    bool
	deleteTarget bool
}

// NewMount creates the target directory (if requested) and mounts the device
// there. On failure, anything this call created is removed before returning.
func NewMount(devicePath string, target string, fstype string, flags uintptr, data string,
	makeAndDeleteDir bool,
) (*Mount, error) {
	mount := &Mount{
		target:       target,
		deleteTarget: makeAndDeleteDir,
	}

	err := mount.acquire(devicePath, fstype, flags, data, makeAndDeleteDir)
	if err != nil {
		mount.Close()
		return nil, err
	}

	return mount, nil
}

func (m *Mount) acquire(devicePath string, fstype string, flags uintptr, data string,
	makeDir bool,
) error {
	logger.Log.Debugf("Mounting (%s) at (%s)", devicePath, m.target)

	if makeDir {
		err := os.MkdirAll(m.target, mountDirDefaultMode)
		if err != nil {
			return fmt.Errorf("failed to create mount directory (%s):\n%w", m.target, err)
		}

		// A pre-existing directory is fine, but it must be empty: mounting
		// over content hides it and the directory is deleted on close.
		entries, err := os.ReadDir(m.target)
		if err != nil {
			return fmt.Errorf("failed to read mount directory (%s):\n%w", m.target, err)
		}
		if len(entries) > 0 {
			return fmt.Errorf("mount directory (%s) is not empty", m.target)
		}
	}

	err := unix.Mount(devicePath, m.target, fstype, flags, data)
	if err != nil {
		return fmt.Errorf("failed to mount (%s) at (%s):\n%w", devicePath, m.target, err)
	}

	m.isMounted = true
	return nil
}

// Target returns the mount's target directory.
func (m *Mount) Target() string {
	return m.target
}

// CleanClose unmounts and removes the target directory, returning an error on
// failure. Call on success paths so unmount failures are surfaced.
func (m *Mount) CleanClose() error {
	return m.close()
}

// Close releases the mount, only logging on failure. Safe to call multiple
// times, including after CleanClose; intended for defer.
func (m *Mount) Close() {
	err := m.close()
	if err != nil {
		logger.Log.Warnf("Failed to close mount (%s): %v", m.target, err)
	}
}

func (m *Mount) close() error {
	if m.isMounted {
		err := m.unmount()
		if err != nil {
			return err
		}

		m.isMounted = false
	}

	if m.deleteTarget {
		err := os.Remove(m.target)
		if err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("failed to remove mount directory (%s):\n%w", m.target, err)
		}

		m.deleteTarget = false
	}

	return nil
}

func (m *Mount) unmount() error {
	var err error
	for i := 0; i < unmountAttempts; i++ {
		if i > 0 {
			time.Sleep(unmountRetryDelay)
		}

		err = unix.Unmount(m.target, 0)
		if err == nil || !errors.Is(err, unix.EBUSY) {
			break
		}

		logger.Log.Debugf("Unmount of (%s) failed with EBUSY, retrying", m.target)
	}
	if err != nil {
		return fmt.Errorf("failed to unmount (%s):\n%w", m.target, err)
	}

	// Confirm the mount table no longer references the target.
	stillMounted, err := mountinfo.Mounted(m.target)
	if err != nil {
		return fmt.Errorf("failed to verify unmount of (%s):\n%w", m.target, err)
	}
	if stillMounted {
		return fmt.Errorf("mount target (%s) is still mounted after unmount", m.target)
	}

	logger.Log.Debugf("Unmounted (%s)", m.target)
	return nil
}
