// Copyright (c) The USB Secure Boot Tools Authors.
// Licensed under the MIT License.

package provisionerlib

import (
	"fmt"
	"path/filepath"
)

const (
	DefaultMountDir   = "/mnt/mediaprovisioner"
	DefaultStagingDir = "/tmp/mediaprovisioner"

	// Partition number of the ESP on an Arch Linux install medium.
	DefaultPartitionNum = 2

	// Paths relative to the mounted ESP.
	DefaultBootDir        = "arch/boot/x86_64"
	DefaultBundlePath     = "arch/boot/x86_64/linux.efi"
	DefaultBootloaderPath = "EFI/BOOT/BOOTx64.EFI"
	DefaultEntriesDir     = "loader/entries"

	DefaultKernelFile     = "vmlinuz-linux"
	DefaultInitramfsFile  = "initramfs-linux.img"
	DefaultIntelUcodeFile = "intel-ucode.img"
	DefaultAmdUcodeFile   = "amd-ucode.img"

	DefaultEntryFile  = "arch.conf"
	DefaultEntryTitle = "Arch Linux install medium (x86_64, UEFI, Secure Boot)"

	// Kernel command line file, resolved against the working directory.
	DefaultCmdlineFile = "cmdline.txt"

	DefaultUkifyTool = "ukify"
	DefaultSignTool  = "sbctl"

	stagedBundleName = "linux.efi"
)

// Config holds every path and tool name the workflow touches. All values are
// explicit so tests can substitute temporary mount and staging roots.
type Config struct {
	// Device is the block device of the install medium.
	Device string

	// MountDir is where the ESP is mounted for the duration of the run.
	MountDir string

	// StagingDir is where the bundle is built; it must be outside the
	// mounted ESP, which has no free space for a second copy.
	StagingDir string

	// PartitionNum is the 1-based partition number of the ESP.
	PartitionNum int

	// BootDir is the ESP-relative directory holding the raw boot files.
	BootDir string

	KernelFile     string
	InitramfsFile  string
	IntelUcodeFile string
	AmdUcodeFile   string

	// BundlePath is the ESP-relative destination of the signed bundle.
	BundlePath string

	// BootloaderPath is the ESP-relative path of the bootloader to sign.
	BootloaderPath string

	// EntriesDir and EntryFile locate the boot loader entry on the ESP.
	EntriesDir string
	EntryFile  string
	EntryTitle string

	// CmdlineFile is the kernel command line file to embed in the bundle.
	CmdlineFile string

	UkifyTool string
	SignTool  string
}

func DefaultConfig(device string) Config {
	return Config{
		Device:         device,
		MountDir:       DefaultMountDir,
		StagingDir:     DefaultStagingDir,
		PartitionNum:   DefaultPartitionNum,
		BootDir:        DefaultBootDir,
		KernelFile:     DefaultKernelFile,
		InitramfsFile:  DefaultInitramfsFile,
		IntelUcodeFile: DefaultIntelUcodeFile,
		AmdUcodeFile:   DefaultAmdUcodeFile,
		BundlePath:     DefaultBundlePath,
		BootloaderPath: DefaultBootloaderPath,
		EntriesDir:     DefaultEntriesDir,
		EntryFile:      DefaultEntryFile,
		EntryTitle:     DefaultEntryTitle,
		CmdlineFile:    DefaultCmdlineFile,
		UkifyTool:      DefaultUkifyTool,
		SignTool:       DefaultSignTool,
	}
}

func (c *Config) IsValid() error {
	if c.Device == "" {
		return fmt.Errorf("device must not be empty")
	}

	if c.MountDir == "" || !filepath.IsAbs(c.MountDir) {
		return fmt.Errorf("invalid mountDir value (%s): must be an absolute path", c.MountDir)
	}

	if c.StagingDir == "" || !filepath.IsAbs(c.StagingDir) {
		return fmt.Errorf("invalid stagingDir value (%s): must be an absolute path", c.StagingDir)
	}

	if c.PartitionNum < 1 {
		return fmt.Errorf("invalid partitionNum value (%d): must be >= 1", c.PartitionNum)
	}

	relativePaths := map[string]string{
		"bootDir":        c.BootDir,
		"bundlePath":     c.BundlePath,
		"bootloaderPath": c.BootloaderPath,
		"entriesDir":     c.EntriesDir,
	}
	for name, value := range relativePaths {
		if value == "" || filepath.IsAbs(value) {
			return fmt.Errorf("invalid %s value (%s): must be a relative path", name, value)
		}
	}

	requiredNames := map[string]string{
		"kernelFile":     c.KernelFile,
		"initramfsFile":  c.InitramfsFile,
		"intelUcodeFile": c.IntelUcodeFile,
		"amdUcodeFile":   c.AmdUcodeFile,
		"entryFile":      c.EntryFile,
		"entryTitle":     c.EntryTitle,
		"cmdlineFile":    c.CmdlineFile,
		"ukifyTool":      c.UkifyTool,
		"signTool":       c.SignTool,
	}
	for name, value := range requiredNames {
		if value == "" {
			return fmt.Errorf("%s must not be empty", name)
		}
	}

	return nil
}

// StagedBundlePath is the transient location the bundle is built at before
// relocation onto the ESP.
func (c *Config) StagedBundlePath() string {
	return filepath.Join(c.StagingDir, stagedBundleName)
}

// EntryEfiPath is the bundle path as referenced from the boot loader entry.
func (c *Config) EntryEfiPath() string {
	return "/" + filepath.ToSlash(c.BundlePath)
}
