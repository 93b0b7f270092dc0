// Copyright (c) The USB Secure Boot Tools Authors.
// Licensed under the MIT License.

// Package diskutils queries disks and partitions on the host.
package diskutils

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"

	"github.com/archmediatools/usb-secureboot-tools/internal/shell"
	"golang.org/x/sys/unix"
)

type partitionInfoOutput struct {
	Devices []PartitionInfo `json:"blockdevices"`
}

type PartitionInfo struct {
	Name              string `json:"name"`       // Example: sda2
	Path              string `json:"path"`       // Example: /dev/sda2
	PartitionTypeUuid string `json:"parttype"`   // Example: c12a7328-f81f-11d2-ba4b-00a0c93ec93b
	FileSystemType    string `json:"fstype"`     // Example: vfat
	Uuid              string `json:"uuid"`       // Example: 4BD9-3A78
	PartUuid          string `json:"partuuid"`   // Example: 7b1367a6-5845-43f2-99b1-a742d873f590
	Mountpoint        string `json:"mountpoint"` // Example: /mnt/usb
	PartLabel         string `json:"partlabel"`  // Example: ARCHISO_EFI
	Type              string `json:"type"`       // Example: part
	SizeInBytes       uint64 `json:"size"`       // Example: 4096
}

// EfiSystemPartitionTypeUuid is the GPT partition type of an ESP.
const EfiSystemPartitionTypeUuid = "c12a7328-f81f-11d2-ba4b-00a0c93ec93b"

var partitionNumberRegex = regexp.MustCompile(`(\d+)$`)

// GetDiskPartitions lists the disk's partitions using lsblk.
func GetDiskPartitions(diskDevPath string) ([]PartitionInfo, error) {
	jsonString, _, err := shell.Execute("lsblk", diskDevPath, "--output",
		"NAME,PATH,PARTTYPE,FSTYPE,UUID,MOUNTPOINT,PARTUUID,PARTLABEL,TYPE,SIZE", "--bytes", "--json", "--list")
	if err != nil {
		return nil, fmt.Errorf("failed to list disk (%s) partitions:\n%w", diskDevPath, err)
	}

	partitions, err := parsePartitionInfo(jsonString)
	if err != nil {
		return nil, fmt.Errorf("failed to parse disk (%s) partitions JSON:\n%w", diskDevPath, err)
	}

	return partitions, nil
}

func parsePartitionInfo(jsonString string) ([]PartitionInfo, error) {
	var output partitionInfoOutput
	if jsonString != "" {
		err := json.Unmarshal([]byte(jsonString), &output)
		if err != nil {
			return nil, err
		}
	}

	return output.Devices, nil
}

// FindPartitionOnDisk returns the partition with the given 1-based number on
// the disk. Works for both `sda2` and `nvme0n1p2` style names, since the
// number is taken from the device path reported by lsblk.
func FindPartitionOnDisk(diskDevPath string, partitionNum int) (PartitionInfo, error) {
	partitions, err := GetDiskPartitions(diskDevPath)
	if err != nil {
		return PartitionInfo{}, err
	}

	for _, partition := range partitions {
		if partition.Type != "part" {
			continue
		}

		num, err := PartitionNumber(partition.Path)
		if err != nil {
			continue
		}

		if num == partitionNum {
			return partition, nil
		}
	}

	return PartitionInfo{}, fmt.Errorf("disk (%s) has no partition number (%d)", diskDevPath, partitionNum)
}

// PartitionNumber extracts the trailing partition number from a partition
// device path.
func PartitionNumber(partitionDevPath string) (int, error) {
	match := partitionNumberRegex.FindStringSubmatch(partitionDevPath)
	if match == nil {
		return 0, fmt.Errorf("device path (%s) has no partition number", partitionDevPath)
	}

	num, err := strconv.Atoi(match[1])
	if err != nil {
		return 0, fmt.Errorf("failed to parse partition number of (%s):\n%w", partitionDevPath, err)
	}

	return num, nil
}

// IsBlockDevice reports whether the path refers to a block device node.
func IsBlockDevice(path string) (bool, error) {
	stat := unix.Stat_t{}
	err := unix.Stat(path, &stat)
	if err != nil {
		return false, fmt.Errorf("failed to stat (%s):\n%w", path, err)
	}

	return stat.Mode&unix.S_IFMT == unix.S_IFBLK, nil
}
