package commands

import (
	"github.com/spf13/cobra"

	"github.com/imamik/dpuprov/cmd/dpuprov/handlers"
)

// Run returns the command running both phases.
func Run(opts *handlers.Options) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Run BFB provisioning followed by the mode switch",
		Long: `Run BFB provisioning on every worker, then switch the DPU mode.

The mode switch starts only after every worker finished provisioning.
Exits with status 2 when a firmware tool failed and a card may need manual
recovery, and with status 1 on any other error.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return handlers.Run(cmd.Context(), *opts)
		},
	}
}
