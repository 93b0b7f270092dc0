// Copyright (c) The USB Secure Boot Tools Authors.
// Licensed under the MIT License.

package provisionerlib

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"

	"github.com/archmediatools/usb-secureboot-tools/internal/logger"
	"github.com/archmediatools/usb-secureboot-tools/internal/shell"
)

// signEfiExecutable signs one EFI executable in place with the enrolled
// personal Secure Boot keys. The signing tool is assumed to be configured
// with valid keys; key provisioning is out of scope.
func (p *Provisioner) signEfiExecutable(ctx context.Context, path string) error {
	_, span := otel.GetTracerProvider().Tracer(OtelTracerName).Start(ctx, "sign_efi_executable")
	defer span.End()

	logger.Log.Infof("Signing (%s)", path)

	err := shell.NewExecBuilder(p.config.SignTool, "sign", path).
		Context(ctx).
		ErrorStderrLines(1).
		Execute()
	if err != nil {
		return fmt.Errorf("failed to sign (%s):\n%w", path, err)
	}

	return nil
}
