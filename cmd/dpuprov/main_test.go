package main

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/imamik/dpuprov/internal/device"
)

func TestExitCode(t *testing.T) {
	fwErr := &device.FirmwareError{
		Node:      "worker-0",
		Operation: device.OpLoadBFB,
		Result:    &device.Result{ExitCode: 3},
	}

	tests := []struct {
		name string
		err  error
		want int
	}{
		{name: "firmware error", err: fwErr, want: exitFirmware},
		{name: "wrapped firmware error", err: fmt.Errorf("provisioning did not complete: %w", fwErr), want: exitFirmware},
		{name: "joined firmware error", err: errors.Join(errors.New("ssh: timeout"), fwErr), want: exitFirmware},
		{name: "transport error", err: errors.New("node worker-1: connection refused"), want: exitError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, exitCode(tt.err))
		})
	}
}
