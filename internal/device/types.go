package device

import (
	"context"
	"fmt"
	"strings"
)

// Operation names, as used in logs and errors.
const (
	OpBootFromURL      = "BootFromURL"
	OpConnect          = "Connect"
	OpColdBoot         = "ColdBoot"
	OpFirmwareUpgrade  = "FirmwareUpgrade"
	OpFirmwareDefaults = "FirmwareDefaults"
	OpLoadBFB          = "LoadBFB"
)

// Result is the outcome of a remote device operation.
type Result struct {
	Command  string
	ExitCode int
	Output   string
}

// OK reports whether the operation succeeded. A nil result is a success.
func (r *Result) OK() bool {
	return r == nil || r.ExitCode == 0
}

// FirmwareError reports a device operation that returned a non-zero status.
// It is unrecoverable: the device may be left half-flashed.
type FirmwareError struct {
	Node      string
	Operation string
	Result    *Result
}

func (e *FirmwareError) Error() string {
	code := -1
	if e.Result != nil {
		code = e.Result.ExitCode
	}
	return fmt.Sprintf("%s on %s failed with status %d", e.Operation, e.Node, code)
}

// Diagnostics returns the trimmed output of the failed operation.
func (e *FirmwareError) Diagnostics() string {
	if e.Result == nil {
		return ""
	}
	return strings.TrimSpace(e.Result.Output)
}

// Handle is one node plus its DPU for the duration of a single task.
type Handle interface {
	// Name returns the node name.
	Name() string

	// BootFromURL boots the node from the image at url via virtual media
	// and returns once the booted OS accepts SSH connections.
	BootFromURL(ctx context.Context, url string) error

	// Connect opens a shell on the booted node as user.
	Connect(ctx context.Context, user string) error

	// ColdBoot power-cycles the node, which also power-cycles the DPU.
	ColdBoot(ctx context.Context) error

	FirmwareUpgrade(ctx context.Context) (*Result, error)
	FirmwareDefaults(ctx context.Context) (*Result, error)
	LoadBFB(ctx context.Context) (*Result, error)

	// Close releases the shell, if any.
	Close() error
}
