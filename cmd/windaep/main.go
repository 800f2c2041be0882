// Command windaep retrieves ERA5 wind data, estimates turbine annual energy
// production and builds analysis reports from the command line.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

// Version is set at compile time via ldflags.
var Version = "dev"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	err := newRootCmd().ExecuteContext(ctx)
	stop()
	if err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var opts globalOptions

	rootCmd := &cobra.Command{
		Use:           "windaep",
		Short:         "ERA5 wind analysis and annual energy production estimates",
		Version:       Version,
		SilenceUsage:  true,
	}
	rootCmd.PersistentFlags().StringVar(&opts.configPath, "config", os.Getenv("WINDAEP_CONFIG"), "YAML config file")
	rootCmd.PersistentFlags().StringVar(&opts.turbineFile, "turbine", "", "turbine YAML file (default: configured or embedded turbine)")
	rootCmd.PersistentFlags().Float64Var(&opts.vref, "vref", 0, "IEC reference wind speed in m/s (default: configured)")

	rootCmd.AddCommand(fetchCmd(&opts))
	rootCmd.AddCommand(estimateCmd(&opts))
	rootCmd.AddCommand(spatialCmd(&opts))
	rootCmd.AddCommand(sweepCmd(&opts))
	rootCmd.AddCommand(statsCmd(&opts))
	rootCmd.AddCommand(reportCmd(&opts))
	rootCmd.AddCommand(turbineCmd(&opts))
	rootCmd.AddCommand(tokenCmd(&opts))
	return rootCmd
}
