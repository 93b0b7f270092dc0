// Copyright (c) The USB Secure Boot Tools Authors.
// Licensed under the MIT License.

package provisionerlib

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"gopkg.in/ini.v1"

	"github.com/archmediatools/usb-secureboot-tools/internal/logger"
)

func TestReadCmdlineFile(t *testing.T) {
	cmdlinePath := filepath.Join(t.TempDir(), "cmdline.txt")
	err := os.WriteFile(cmdlinePath, []byte("archisobasedir=arch archisolabel=ARCH_202608\n"), 0o644)
	assert.NoError(t, err)

	cmdline, err := readCmdlineFile(cmdlinePath)
	assert.NoError(t, err)
	assert.Equal(t, "archisobasedir=arch archisolabel=ARCH_202608", cmdline)
}

func TestReadCmdlineFileEmpty(t *testing.T) {
	cmdlinePath := filepath.Join(t.TempDir(), "cmdline.txt")
	err := os.WriteFile(cmdlinePath, []byte("\n"), 0o644)
	assert.NoError(t, err)

	_, err = readCmdlineFile(cmdlinePath)
	assert.Error(t, err)
	assert.ErrorContains(t, err, "is empty")
}

func TestReadCmdlineFileMissing(t *testing.T) {
	_, err := readCmdlineFile(filepath.Join(t.TempDir(), "missing.txt"))
	assert.Error(t, err)
	assert.ErrorContains(t, err, "failed to read kernel command line file")
}

func TestWriteUkifyConfig(t *testing.T) {
	confPath := filepath.Join(t.TempDir(), "ukify.conf")

	err := writeUkifyConfig(confPath, "/esp/arch/boot/x86_64/vmlinuz-linux",
		[]string{"/esp/arch/boot/x86_64/intel-ucode.img", "/esp/arch/boot/x86_64/initramfs-linux.img"},
		"archisobasedir=arch")
	assert.NoError(t, err)

	cfg, err := ini.Load(confPath)
	assert.NoError(t, err)

	section := cfg.Section("UKI")
	assert.Equal(t, "/esp/arch/boot/x86_64/vmlinuz-linux", section.Key("Linux").String())
	assert.Equal(t, "/esp/arch/boot/x86_64/intel-ucode.img /esp/arch/boot/x86_64/initramfs-linux.img",
		section.Key("Initrd").String())
	assert.Equal(t, "archisobasedir=arch", section.Key("Cmdline").String())
}

func TestBuildBundleMissingBootDir(t *testing.T) {
	espDir := t.TempDir()

	config := DefaultConfig("/dev/sda")
	config.StagingDir = t.TempDir()

	provisioner := &Provisioner{config: config}

	err := provisioner.buildBundle(t.Context(), espDir, config.StagedBundlePath())
	assert.Error(t, err)
	assert.ErrorContains(t, err, "not found on the EFI system partition")
}

func TestBuildBundleMissingKernel(t *testing.T) {
	hook := logger.NewMemoryLogHook()
	oldHooks := logger.Log.ReplaceHooks(logrus.LevelHooks{})
	logger.Log.AddHook(hook)
	t.Cleanup(func() {
		logger.Log.ReplaceHooks(oldHooks)
	})

	espDir := t.TempDir()
	bootDir := filepath.Join(espDir, DefaultBootDir)
	err := os.MkdirAll(bootDir, 0o755)
	assert.NoError(t, err)

	for _, name := range []string{DefaultInitramfsFile, DefaultIntelUcodeFile} {
		err = os.WriteFile(filepath.Join(bootDir, name), []byte("x"), 0o644)
		assert.NoError(t, err)
	}

	config := DefaultConfig("/dev/sda")
	config.StagingDir = t.TempDir()

	provisioner := &Provisioner{config: config}

	err = provisioner.buildBundle(t.Context(), espDir, config.StagedBundlePath())
	assert.Error(t, err)
	assert.ErrorContains(t, err, "missing boot file")
	assert.ErrorContains(t, err, DefaultKernelFile)

	var infoMessages []string
	for _, message := range hook.ConsumeMessages() {
		if message.Level == logrus.InfoLevel {
			infoMessages = append(infoMessages, message.Message)
		}
	}
	assert.Contains(t, infoMessages, "Bundling kernel, initramfs and microcode into (linux.efi)")
}
