// Copyright (c) The USB Secure Boot Tools Authors.
// Licensed under the MIT License.

// Package osinfo reports basic facts about the host OS.
package osinfo

import (
	"bufio"
	"os"
	"strings"
)

const osReleaseFile = "/etc/os-release"

// GetDistroAndVersion returns the host distro's name and version, falling
// back to placeholders when /etc/os-release is unavailable.
func GetDistroAndVersion() (string, string) {
	distro := "Unknown Distro"
	version := "Unknown Version"

	releaseFile, err := os.Open(osReleaseFile)
	if err != nil {
		return distro, version
	}
	defer releaseFile.Close()

	scanner := bufio.NewScanner(releaseFile)
	for scanner.Scan() {
		line := scanner.Text()

		key, value, found := strings.Cut(line, "=")
		if !found {
			continue
		}

		value = strings.Trim(value, `"`)

		switch key {
		case "NAME":
			distro = value
		case "VERSION_ID":
			version = value
		}
	}

	return distro, version
}
