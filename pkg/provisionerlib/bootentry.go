// Copyright (c) The USB Secure Boot Tools Authors.
// Licensed under the MIT License.

package provisionerlib

import (
	"fmt"
	"os"
	"path/filepath"
)

// writeBootEntry writes the systemd-boot loader entry, unconditionally
// overwriting an existing entry file.
func writeBootEntry(entriesDir string, entryFile string, title string, efiPath string) error {
	err := os.MkdirAll(entriesDir, 0o755)
	if err != nil {
		return fmt.Errorf("failed to create entries directory (%s):\n%w", entriesDir, err)
	}

	entryPath := filepath.Join(entriesDir, entryFile)
	content := fmt.Sprintf("title %s\nefi %s\n", title, efiPath)

	err = os.WriteFile(entryPath, []byte(content), 0o644)
	if err != nil {
		return fmt.Errorf("failed to write boot entry (%s):\n%w", entryPath, err)
	}

	return nil
}
