// Copyright (c) The USB Secure Boot Tools Authors.
// Licensed under the MIT License.

package provisionerlib

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.opentelemetry.io/otel"
	"gopkg.in/ini.v1"

	"github.com/archmediatools/usb-secureboot-tools/internal/file"
	"github.com/archmediatools/usb-secureboot-tools/internal/logger"
	"github.com/archmediatools/usb-secureboot-tools/internal/shell"
)

const ukifyConfName = "ukify.conf"

// buildBundle combines the kernel, initramfs, microcode and kernel command
// line into a single EFI executable at the staging path, outside the mounted
// ESP.
func (p *Provisioner) buildBundle(ctx context.Context, espDir string, stagedPath string) error {
	_, span := otel.GetTracerProvider().Tracer(OtelTracerName).Start(ctx, "bundle_boot_files")
	defer span.End()

	logger.Log.Infof("Bundling kernel, initramfs and microcode into (%s)", filepath.Base(stagedPath))

	bootDir := filepath.Join(espDir, p.config.BootDir)

	bootDirExists, err := file.DirExists(bootDir)
	if err != nil {
		return fmt.Errorf("failed to check boot directory (%s):\n%w", bootDir, err)
	}
	if !bootDirExists {
		return fmt.Errorf("boot directory (%s) not found on the EFI system partition", bootDir)
	}

	kernelPath := filepath.Join(bootDir, p.config.KernelFile)
	initramfsPath := filepath.Join(bootDir, p.config.InitramfsFile)
	intelUcodePath := filepath.Join(bootDir, p.config.IntelUcodeFile)
	amdUcodePath := filepath.Join(bootDir, p.config.AmdUcodeFile)

	for _, requiredPath := range []string{kernelPath, initramfsPath, intelUcodePath} {
		exists, err := file.PathExists(requiredPath)
		if err != nil {
			return fmt.Errorf("failed to check boot file (%s):\n%w", requiredPath, err)
		}
		if !exists {
			return fmt.Errorf("missing boot file (%s)", requiredPath)
		}
	}

	// Microcode initrds must precede the real initramfs so the CPU loads
	// them first.
	initrdPaths := []string{intelUcodePath}

	amdUcodeExists, err := file.PathExists(amdUcodePath)
	if err != nil {
		return fmt.Errorf("failed to check boot file (%s):\n%w", amdUcodePath, err)
	}
	if amdUcodeExists {
		initrdPaths = append(initrdPaths, amdUcodePath)
	}

	initrdPaths = append(initrdPaths, initramfsPath)

	cmdline, err := readCmdlineFile(p.config.CmdlineFile)
	if err != nil {
		return err
	}

	confPath := filepath.Join(p.config.StagingDir, ukifyConfName)
	err = writeUkifyConfig(confPath, kernelPath, initrdPaths, cmdline)
	if err != nil {
		return err
	}

	err = shell.NewExecBuilder(p.config.UkifyTool, "-c", confPath, "build",
		fmt.Sprintf("--output=%s", stagedPath)).
		Context(ctx).
		ErrorStderrLines(1).
		Execute()
	if err != nil {
		return fmt.Errorf("failed to build EFI bundle:\n%w", err)
	}

	return nil
}

func readCmdlineFile(path string) (string, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read kernel command line file (%s):\n%w", path, err)
	}

	cmdline := strings.TrimSpace(string(content))
	if cmdline == "" {
		return "", fmt.Errorf("kernel command line file (%s) is empty", path)
	}

	return cmdline, nil
}

func writeUkifyConfig(confPath string, kernelPath string, initrdPaths []string, cmdline string) error {
	cfg := ini.Empty()
	section, err := cfg.NewSection("UKI")
	if err != nil {
		return fmt.Errorf("failed to create INI section:\n%w", err)
	}

	_, err = section.NewKey("Linux", kernelPath)
	if err != nil {
		return fmt.Errorf("failed to add 'Linux' key to INI file:\n%w", err)
	}

	// ukify accepts a whitespace-separated list of initrds.
	_, err = section.NewKey("Initrd", strings.Join(initrdPaths, " "))
	if err != nil {
		return fmt.Errorf("failed to add 'Initrd' key to INI file:\n%w", err)
	}

	_, err = section.NewKey("Cmdline", cmdline)
	if err != nil {
		return fmt.Errorf("failed to add 'Cmdline' key to INI file:\n%w", err)
	}

	err = cfg.SaveTo(confPath)
	if err != nil {
		return fmt.Errorf("failed to save ukify config (%s):\n%w", confPath, err)
	}

	return nil
}
