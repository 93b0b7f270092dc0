// Copyright (c) The USB Secure Boot Tools Authors.
// Licensed under the MIT License.

// Package provisionerlib prepares an Arch Linux install medium for UEFI
// Secure Boot: it bundles the kernel, initramfs and microcode into a single
// EFI executable, signs the bundle and the bootloader, and writes the boot
// loader entry.
package provisionerlib

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.opentelemetry.io/otel"

	"github.com/archmediatools/usb-secureboot-tools/internal/diskutils"
	"github.com/archmediatools/usb-secureboot-tools/internal/file"
	"github.com/archmediatools/usb-secureboot-tools/internal/logger"
	"github.com/archmediatools/usb-secureboot-tools/internal/safemount"
	"github.com/archmediatools/usb-secureboot-tools/internal/stagingfile"
)

const OtelTracerName = "mediaprovisioner"

type Provisioner struct {
	config Config
}

func New(config Config) (*Provisioner, error) {
	err := config.IsValid()
	if err != nil {
		return nil, fmt.Errorf("invalid provisioner config:\n%w", err)
	}

	return &Provisioner{
		config: config,
	}, nil
}

// Provision runs the whole workflow against the configured device. The steps
// are strictly sequential; the first failure aborts the run. After the ESP
// has been mounted, every failure path still gets a best-effort unmount and
// mount directory removal, while the success and guard paths unmount
// strictly and surface unmount errors.
func (p *Provisioner) Provision(ctx context.Context) error {
	ctx, span := otel.GetTracerProvider().Tracer(OtelTracerName).Start(ctx, "provision_media")
	defer span.End()

	err := validatePreconditions(p.config, os.Geteuid())
	if err != nil {
		return err
	}

	partition, err := diskutils.FindPartitionOnDisk(p.config.Device, p.config.PartitionNum)
	if err != nil {
		return fmt.Errorf("%w:\n%w", ErrPartitionDiscovery, err)
	}

	if partition.PartitionTypeUuid != "" &&
		!strings.EqualFold(partition.PartitionTypeUuid, diskutils.EfiSystemPartitionTypeUuid) {
		logger.Log.Warnf("Partition (%s) does not have the EFI system partition type (found %s)",
			partition.Path, partition.PartitionTypeUuid)
	}

	logger.Log.Infof("Mounting (%s) at (%s)", partition.Path, p.config.MountDir)

	espMount, err := safemount.NewMount(partition.Path, p.config.MountDir, partition.FileSystemType,
		0, "", true)
	if err != nil {
		return fmt.Errorf("%w (%s):\n%w", ErrEspMount, partition.Path, err)
	}
	defer espMount.Close()

	espDir := espMount.Target()
	bundlePath := filepath.Join(espDir, p.config.BundlePath)

	// A bundle on the ESP means a previous run already prepared this
	// device. Refuse to overwrite it.
	alreadyPrepared, err := file.PathExists(bundlePath)
	if err != nil {
		return fmt.Errorf("failed to check for an existing bundle (%s):\n%w", bundlePath, err)
	}
	if alreadyPrepared {
		err = espMount.CleanClose()
		if err != nil {
			return fmt.Errorf("%w:\n%w", ErrEspUnmount, err)
		}

		return fmt.Errorf("%w (%s)", ErrMediaAlreadyPrepared, bundlePath)
	}

	// The staging directory also holds the generated ukify config; remove
	// the whole directory on every exit path.
	defer p.cleanupStagingDir()

	staged, err := stagingfile.New(p.config.StagedBundlePath())
	if err != nil {
		return fmt.Errorf("%w:\n%w", ErrBundleBuild, err)
	}
	defer staged.Close()

	err = p.buildBundle(ctx, espDir, staged.Path())
	if err != nil {
		return fmt.Errorf("%w:\n%w", ErrBundleBuild, err)
	}

	err = p.removeBundledSources(ctx, espDir)
	if err != nil {
		return fmt.Errorf("%w:\n%w", ErrSourceCleanup, err)
	}

	// Relocation must come after source cleanup: the partition does not
	// have room for the bundle and the raw files at the same time.
	err = file.Move(staged.Path(), bundlePath)
	if err != nil {
		return fmt.Errorf("%w:\n%w", ErrBundleRelocate, err)
	}
	staged.Commit()

	err = p.signEfiExecutable(ctx, bundlePath)
	if err != nil {
		return fmt.Errorf("%w:\n%w", ErrSign, err)
	}

	err = p.signEfiExecutable(ctx, filepath.Join(espDir, p.config.BootloaderPath))
	if err != nil {
		return fmt.Errorf("%w:\n%w", ErrSign, err)
	}

	err = writeBootEntry(filepath.Join(espDir, p.config.EntriesDir), p.config.EntryFile,
		p.config.EntryTitle, p.config.EntryEfiPath())
	if err != nil {
		return fmt.Errorf("%w:\n%w", ErrBootEntryWrite, err)
	}

	err = espMount.CleanClose()
	if err != nil {
		return fmt.Errorf("%w:\n%w", ErrEspUnmount, err)
	}

	logger.Log.Infof("Prepared Secure Boot install medium on (%s)", p.config.Device)
	return nil
}

func (p *Provisioner) cleanupStagingDir() {
	err := os.RemoveAll(p.config.StagingDir)
	if err != nil {
		logger.Log.Warnf("Failed to clean up staging directory (%s): %v", p.config.StagingDir, err)
	}
}
