// Package main is the entry point for the dpuprov CLI.
//
// dpuprov reprovisions the BlueField-2 DPUs of a worker fleet: it boots
// every node into a recovery image, flashes firmware and the BFB bundle,
// then switches the cards' operating mode through the cluster's
// MachineConfigPool.
//
// Commands: bfb, nicmode, run, version.
//
// For detailed usage information, run:
//
//	dpuprov --help
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/imamik/dpuprov/cmd/dpuprov/commands"
	"github.com/imamik/dpuprov/internal/device"
)

// Version information set by goreleaser at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// Exit statuses.
const (
	exitError    = 1
	exitFirmware = 2
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	commands.SetVersionInfo(version, commit, date)
	err := commands.Root().ExecuteContext(ctx)
	stop()

	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(exitCode(err))
	}
}

// exitCode maps a command error to the process exit status. A firmware
// failure may leave a card half-flashed and gets its own status.
func exitCode(err error) int {
	var fwErr *device.FirmwareError
	if errors.As(err, &fwErr) {
		return exitFirmware
	}
	return exitError
}
