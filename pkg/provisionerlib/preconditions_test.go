// Copyright (c) The USB Secure Boot Tools Authors.
// Licensed under the MIT License.

package provisionerlib

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidatePreconditionsNotRoot(t *testing.T) {
	config := DefaultConfig("/dev/sda")

	err := validatePreconditions(config, 1000)
	assert.Error(t, err)
	assert.ErrorIs(t, err, ErrPrecondition)
	assert.ErrorContains(t, err, "must be run as root")
}

func TestValidatePreconditionsNoDevice(t *testing.T) {
	config := DefaultConfig("")

	err := validatePreconditions(config, 0)
	assert.Error(t, err)
	assert.ErrorIs(t, err, ErrPrecondition)
	assert.ErrorContains(t, err, "no device specified")
}

func TestValidatePreconditionsNotABlockDevice(t *testing.T) {
	notADevice := filepath.Join(t.TempDir(), "not-a-device")
	err := os.WriteFile(notADevice, []byte("data"), 0o644)
	assert.NoError(t, err)

	config := DefaultConfig(notADevice)

	err = validatePreconditions(config, 0)
	assert.Error(t, err)
	assert.ErrorIs(t, err, ErrPrecondition)
	assert.ErrorContains(t, err, "is not a block device")
}

func TestValidatePreconditionsMissingDevice(t *testing.T) {
	config := DefaultConfig(filepath.Join(t.TempDir(), "missing"))

	err := validatePreconditions(config, 0)
	assert.Error(t, err)
	assert.ErrorIs(t, err, ErrPrecondition)
}
