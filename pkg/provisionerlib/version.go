// Copyright (c) The USB Secure Boot Tools Authors.
// Licensed under the MIT License.

package provisionerlib

const (
	ToolName    = "mediaprovisioner"
	ToolVersion = "0.3.0"
)
