// Copyright (c) The USB Secure Boot Tools Authors.
// Licensed under the MIT License.

package provisionerlib

// ProvisionerError identifies a class of provisioning failure. The name is a
// stable identifier; the message is what users see.
type ProvisionerError struct {
	name    string
	message string
}

func NewProvisionerError(name string, message string) *ProvisionerError {
	return &ProvisionerError{
		name:    name,
		message: message,
	}
}

func (e *ProvisionerError) Error() string {
	return e.message
}

func (e *ProvisionerError) Name() string {
	return e.name
}

var (
	ErrPrecondition         = NewProvisionerError("Provision:Precondition", "precondition check failed")
	ErrPartitionDiscovery   = NewProvisionerError("Provision:PartitionDiscovery", "failed to locate the EFI system partition")
	ErrEspMount             = NewProvisionerError("Provision:EspMount", "failed to mount the EFI system partition")
	ErrMediaAlreadyPrepared = NewProvisionerError("Provision:AlreadyPrepared", "device already contains a signed bundle")
	ErrBundleBuild          = NewProvisionerError("Provision:BundleBuild", "failed to bundle the boot files into an EFI executable")
	ErrSourceCleanup        = NewProvisionerError("Provision:SourceCleanup", "failed to remove the bundled boot files")
	ErrBundleRelocate       = NewProvisionerError("Provision:BundleRelocate", "failed to move the bundle onto the EFI system partition")
	ErrSign                 = NewProvisionerError("Provision:Sign", "failed to sign EFI executable")
	ErrBootEntryWrite       = NewProvisionerError("Provision:BootEntryWrite", "failed to write the boot loader entry")
	ErrEspUnmount           = NewProvisionerError("Provision:EspUnmount", "failed to unmount the EFI system partition")
)
