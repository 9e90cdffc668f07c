package commands

import (
	"github.com/spf13/cobra"

	"github.com/imamik/dpuprov/cmd/dpuprov/handlers"
)

// NicMode returns the command for the mode switch phase.
func NicMode(opts *handlers.Options) *cobra.Command {
	return &cobra.Command{
		Use:   "nicmode",
		Short: "Switch the DPU mode through the MachineConfigPool",
		Long: `Switch every worker's DPU between dpu and nic mode.

The MachineConfigPool is applied, workers are labelled into it and the mode
switch MachineConfig is recreated. Once the pool has rolled out, every
worker is cold reset and the pool is awaited again.

Requires kubeconfig in the configuration file.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return handlers.NicMode(cmd.Context(), *opts)
		},
	}
}
