package commands

import (
	"github.com/spf13/cobra"

	"github.com/imamik/dpuprov/cmd/dpuprov/handlers"
)

// BFB returns the command for the BFB provisioning phase.
func BFB(opts *handlers.Options) *cobra.Command {
	return &cobra.Command{
		Use:   "bfb",
		Short: "Flash firmware and the BFB bundle on every DPU",
		Long: `Flash firmware and the BFB bundle on every worker's DPU.

Each worker is booted into the recovery image over its BMC. Firmware is
upgraded and reset to defaults, the node is cold booted, booted into the
recovery image again and the BFB bundle is loaded onto the card.

All workers run concurrently. A non-zero status from any firmware tool
stops every node before its next step.

Examples:
  # Reprovision the fleet in dpuprov.yaml
  dpuprov bfb

  # Skip the confirmation prompt
  dpuprov bfb -c lab.yaml --yes`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return handlers.BFB(cmd.Context(), *opts)
		},
	}
}
