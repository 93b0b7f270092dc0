// Copyright (c) The USB Secure Boot Tools Authors.
// Licensed under the MIT License.

package provisionerlib

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"go.opentelemetry.io/otel"

	"github.com/archmediatools/usb-secureboot-tools/internal/file"
	"github.com/archmediatools/usb-secureboot-tools/internal/logger"
)

// removeBundledSources deletes the raw kernel, initramfs and microcode files
// from the ESP. Their contents now live inside the bundle and the partition
// needs the space back before the bundle can be moved in. The AMD microcode
// file is optional on Intel-built media.
func (p *Provisioner) removeBundledSources(ctx context.Context, espDir string) error {
	_, span := otel.GetTracerProvider().Tracer(OtelTracerName).Start(ctx, "remove_bundled_sources")
	defer span.End()

	logger.Log.Infof("Removing bundled boot files from the EFI system partition")

	bootDir := filepath.Join(espDir, p.config.BootDir)

	requiredFiles := []string{
		p.config.KernelFile,
		p.config.InitramfsFile,
		p.config.IntelUcodeFile,
	}
	for _, name := range requiredFiles {
		path := filepath.Join(bootDir, name)
		err := os.Remove(path)
		if err != nil {
			return fmt.Errorf("failed to remove (%s):\n%w", path, err)
		}
	}

	amdUcodePath := filepath.Join(bootDir, p.config.AmdUcodeFile)
	err := file.RemoveFileIfExists(amdUcodePath)
	if err != nil {
		return fmt.Errorf("failed to remove (%s):\n%w", amdUcodePath, err)
	}

	return nil
}
