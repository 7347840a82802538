// Package commands implements the preloadsim CLI.
package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"listpreload/cmd/preloadsim/commands/config"
)

var (
	// Version information injected at build time.
	Version = "dev"
	Commit  = "none"

	// Global flags.
	cfgFile string
)

var rootCmd = &cobra.Command{
	Use:   "preloadsim",
	Short: "Scroll-driven list preloading simulator",
	Long: `preloadsim drives a list preloader with scripted scroll sweeps over a
catalog of images, loading them through a bounded worker pool and
fingerprinting each one to detect duplicates.

Use "preloadsim [command] --help" for more information about a command.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		_, _ = fmt.Fprintf(cmd.OutOrStdout(), "preloadsim %s (%s)\n", Version, Commit)
	},
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// GetRootCmd returns the root command for testing purposes.
func GetRootCmd() *cobra.Command {
	return rootCmd
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: $XDG_CONFIG_HOME/listpreload/config.yaml)")

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(config.Cmd)

	rootCmd.CompletionOptions.DisableDefaultCmd = true
}
