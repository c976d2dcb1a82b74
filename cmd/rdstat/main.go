package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/RyanBlaney/rdstat/logging"
)

func main() {
	_ = godotenv.Load()

	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// cliLogLevel is debug with --verbose, else LOG_LEVEL, else warn.
func cliLogLevel(verbose bool) (logging.Level, error) {
	if verbose {
		return logging.DebugLevel, nil
	}
	if name := os.Getenv("LOG_LEVEL"); name != "" {
		return logging.ParseLevel(name)
	}
	return logging.WarnLevel, nil
}

func newRootCmd() *cobra.Command {
	var verbose bool
	rootCmd := &cobra.Command{
		Use:           "rdstat",
		Short:         "Parse rd000 EEG captures and compare cohorts",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			level, err := cliLogLevel(verbose)
			if err != nil {
				return err
			}
			logging.SetLevel(level)
			return nil
		},
	}
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log debug output (overrides LOG_LEVEL)")

	rootCmd.AddCommand(
		newParseCmd(),
		newSummaryCmd(),
		newCompareCmd(),
	)
	return rootCmd
}
