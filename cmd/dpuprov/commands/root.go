// Package commands defines the CLI command structure and flag bindings.
//
// This package contains cobra command definitions that handle argument parsing
// and flag binding. Command execution is delegated to handler functions in
// the handlers package.
package commands

import (
	"github.com/spf13/cobra"

	"github.com/imamik/dpuprov/cmd/dpuprov/handlers"
	"github.com/imamik/dpuprov/internal/config"
)

// Root returns the root command for the dpuprov CLI. The global flags are
// bound once and shared by every phase command.
func Root() *cobra.Command {
	opts := &handlers.Options{}

	cmd := &cobra.Command{
		Use:           "dpuprov",
		Short:         "Reprovision BlueField-2 DPUs across a worker fleet",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := cmd.PersistentFlags()
	flags.StringVarP(&opts.ConfigPath, "config", "c", config.DefaultConfigFilename, "Path to fleet configuration file")
	flags.BoolVarP(&opts.Yes, "yes", "y", false, "Skip the confirmation prompt")
	flags.StringVar(&opts.MetricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address (disabled if empty)")
	flags.BoolVarP(&opts.Verbose, "verbose", "v", false, "Enable debug logging")

	cmd.AddCommand(BFB(opts))
	cmd.AddCommand(NicMode(opts))
	cmd.AddCommand(Run(opts))
	cmd.AddCommand(Version())

	return cmd
}
