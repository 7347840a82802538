package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"listpreload/internal/config"
)

var initForce bool

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a default configuration file",
	Long: `Write the default preloadsim configuration.

By default, the file is created at $XDG_CONFIG_HOME/listpreload/config.yaml.
Use --config to specify a custom path.

Examples:
  # Initialize with default location
  preloadsim init

  # Force overwrite an existing file
  preloadsim init --config ./sim.yaml --force`,
	RunE: runInit,
}

func init() {
	initCmd.Flags().BoolVar(&initForce, "force", false, "Force overwrite existing config file")
}

func runInit(cmd *cobra.Command, args []string) error {
	configPath := cfgFile
	if configPath == "" {
		configPath = config.GetDefaultConfigPath()
	}

	if _, err := os.Stat(configPath); err == nil && !initForce {
		return fmt.Errorf("configuration file already exists: %s (use --force to overwrite)", configPath)
	}

	if err := config.SaveConfig(config.GetDefaultConfig(), configPath); err != nil {
		return fmt.Errorf("failed to initialize config: %w", err)
	}

	_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Configuration file created at: %s\n", configPath)
	return nil
}
