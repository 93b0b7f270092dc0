// Copyright (c) The USB Secure Boot Tools Authors.
// Licensed under the MIT License.

package diskutils

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
)

const lsblkOutput = `{
   "blockdevices": [
      {"name": "sda", "path": "/dev/sda", "parttype": null, "fstype": null, "uuid": null,
       "mountpoint": null, "partuuid": null, "partlabel": null, "type": "disk", "size": 15931539456},
      {"name": "sda1", "path": "/dev/sda1", "parttype": "0fc63daf-8483-4772-8e79-3d69d8477de4",
       "fstype": "iso9660", "uuid": "2026-08-01-10-00-00-00", "mountpoint": null,
       "partuuid": "63b18f5e-01", "partlabel": null, "type": "part", "size": 1123024896},
      {"name": "sda2", "path": "/dev/sda2", "parttype": "c12a7328-f81f-11d2-ba4b-00a0c93ec93b",
       "fstype": "vfat", "uuid": "4BD9-3A78", "mountpoint": null,
       "partuuid": "63b18f5e-02", "partlabel": "ARCHISO_EFI", "type": "part", "size": 209715200}
   ]
}`

func TestParsePartitionInfo(t *testing.T) {
	partitions, err := parsePartitionInfo(lsblkOutput)
	assert.NoError(t, err)
	assert.Len(t, partitions, 3)

	assert.Equal(t, "/dev/sda2", partitions[2].Path)
	assert.Equal(t, "vfat", partitions[2].FileSystemType)
	assert.Equal(t, EfiSystemPartitionTypeUuid, partitions[2].PartitionTypeUuid)
	assert.Equal(t, "part", partitions[2].Type)
	assert.Equal(t, uint64(209715200), partitions[2].SizeInBytes)
}

func TestParsePartitionInfoEmpty(t *testing.T) {
	partitions, err := parsePartitionInfo("")
	assert.NoError(t, err)
	assert.Empty(t, partitions)
}

func TestParsePartitionInfoBadJson(t *testing.T) {
	_, err := parsePartitionInfo("not json")
	assert.Error(t, err)
}

func TestPartitionNumber(t *testing.T) {
	num, err := PartitionNumber("/dev/sda2")
	assert.NoError(t, err)
	assert.Equal(t, 2, num)

	num, err = PartitionNumber("/dev/nvme0n1p2")
	assert.NoError(t, err)
	assert.Equal(t, 2, num)

	num, err = PartitionNumber("/dev/loop0p12")
	assert.NoError(t, err)
	assert.Equal(t, 12, num)

	_, err = PartitionNumber("/dev/sda")
	assert.Error(t, err)
}

func TestIsBlockDeviceRegularFile(t *testing.T) {
	filePath := filepath.Join(t.TempDir(), "file")
	err := os.WriteFile(filePath, []byte("data"), 0o644)
	assert.NoError(t, err)

	isBlockDevice, err := IsBlockDevice(filePath)
	assert.NoError(t, err)
	assert.False(t, isBlockDevice)
}

func TestIsBlockDeviceMissingPath(t *testing.T) {
	_, err := IsBlockDevice(filepath.Join(t.TempDir(), "missing"))
	assert.Error(t, err)
}

func TestIsBlockDeviceCharDevice(t *testing.T) {
	// /dev/null is a character device, not a block device.
	isBlockDevice, err := IsBlockDevice("/dev/null")
	assert.NoError(t, err)
	assert.False(t, isBlockDevice)
}
