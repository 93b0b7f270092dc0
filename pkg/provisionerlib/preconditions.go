// Copyright (c) The USB Secure Boot Tools Authors.
// Licensed under the MIT License.

package provisionerlib

import (
	"fmt"

	"github.com/archmediatools/usb-secureboot-tools/internal/diskutils"
	"github.com/archmediatools/usb-secureboot-tools/internal/file"
)

// validatePreconditions fails fast when the process lacks root privileges or
// the device argument is missing or not a block device. It has no side
// effects.
func validatePreconditions(config Config, euid int) error {
	if euid != 0 {
		return fmt.Errorf("%w:\n%s must be run as root (euid=%d)", ErrPrecondition, ToolName, euid)
	}

	if config.Device == "" {
		return fmt.Errorf("%w:\nno device specified", ErrPrecondition)
	}

	isBlockDevice, err := diskutils.IsBlockDevice(config.Device)
	if err != nil {
		return fmt.Errorf("%w:\n%w", ErrPrecondition, err)
	}
	if !isBlockDevice {
		return fmt.Errorf("%w:\n(%s) is not a block device", ErrPrecondition, config.Device)
	}

	for _, tool := range []string{config.UkifyTool, config.SignTool} {
		exists, err := file.CommandExists(tool)
		if err != nil {
			return fmt.Errorf("%w:\n%w", ErrPrecondition, err)
		}
		if !exists {
			return fmt.Errorf("%w:\nthe (%s) command is not available", ErrPrecondition, tool)
		}
	}

	return nil
}
