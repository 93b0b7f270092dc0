// Copyright (c) The USB Secure Boot Tools Authors.
// Licensed under the MIT License.

package main

import (
	"context"
	"os"
	"os/signal"

	"golang.org/x/sys/unix"
	"gopkg.in/alecthomas/kingpin.v2"

	"github.com/archmediatools/usb-secureboot-tools/internal/exe"
	"github.com/archmediatools/usb-secureboot-tools/internal/logger"
	"github.com/archmediatools/usb-secureboot-tools/internal/telemetry"
	"github.com/archmediatools/usb-secureboot-tools/pkg/provisionerlib"
)

var (
	app = kingpin.New("mediaprovisioner",
		"Prepares an Arch Linux USB install medium for UEFI Secure Boot.")

	device           = app.Arg("device", "Block device of the install medium (e.g. /dev/sda).").Required().String()
	disableTelemetry = app.Flag("disable-telemetry", "Disable telemetry collection.").Bool()
	logFlags         = exe.SetupLogFlags(app)
)

func main() {
	app.Version(provisionerlib.ToolVersion)
	kingpin.MustParse(app.Parse(os.Args[1:]))

	logger.InitBestEffort(logFlags)

	err := telemetry.InitTelemetry(*disableTelemetry, provisionerlib.ToolName, provisionerlib.ToolVersion)
	if err != nil {
		logger.Log.Warnf("Failed to initialize telemetry:\n%v", err)
	}

	// An interrupt cancels the context, which kills any running external
	// tool and unwinds the scoped mount and staging-file guards.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, unix.SIGTERM)
	defer stop()

	err = provisionMedia(ctx)

	telemetryErr := telemetry.ShutdownTelemetry(ctx)
	if telemetryErr != nil {
		logger.Log.Warnf("Failed to shut down telemetry:\n%v", telemetryErr)
	}

	if err != nil {
		logger.Log.Fatalf("Error: %v", err)
	}
}

func provisionMedia(ctx context.Context) error {
	config := provisionerlib.DefaultConfig(*device)

	provisioner, err := provisionerlib.New(config)
	if err != nil {
		return err
	}

	return provisioner.Provision(ctx)
}
