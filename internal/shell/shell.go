// Copyright (c) The USB Secure Boot Tools Authors.
// Licensed under the MIT License.

// Package shell runs external tools, streaming their output into the log.
package shell

import (
	"math"

	"github.com/sirupsen/logrus"
)

// LogDisabledLevel silences a stream entirely.
const LogDisabledLevel = logrus.Level(math.MaxUint32)

// Execute runs the program and returns its full stdout and stderr.
func Execute(prog string, args ...string) (string, string, error) {
	return NewExecBuilder(prog, args...).ExecuteCaptureOutput()
}
