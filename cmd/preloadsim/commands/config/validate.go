package config

import (
	"fmt"

	"github.com/spf13/cobra"

	"listpreload/internal/config"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate configuration file",
	Long: `Validate the preloadsim configuration file.

Checks for syntax errors and invalid values.

Examples:
  preloadsim config validate --config ./sim.yaml`,
	RunE: runConfigValidate,
}

func runConfigValidate(cmd *cobra.Command, args []string) error {
	configPath, _ := cmd.Flags().GetString("config")

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	displayPath := configPath
	if displayPath == "" {
		displayPath = config.GetDefaultConfigPath()
	}

	var warnings []string
	if cfg.Metrics.Enabled && cfg.Metrics.Addr == ":0" {
		warnings = append(warnings, "metrics listen on a random port")
	}
	if cfg.Loader.QueueSize < cfg.Preload.MaxPreload+1 {
		warnings = append(warnings, "loader queue is smaller than the preload target pool; loads will be dropped")
	}
	if cfg.Store.InMemory && cfg.Fingerprint.Enabled {
		warnings = append(warnings, "fingerprints are kept in memory and lost on exit")
	}

	out := cmd.OutOrStdout()
	_, _ = fmt.Fprintf(out, "Configuration file: %s\n", displayPath)
	_, _ = fmt.Fprintln(out, "Validation: OK")

	if len(warnings) > 0 {
		_, _ = fmt.Fprintln(out, "\nWarnings:")
		for _, w := range warnings {
			_, _ = fmt.Fprintf(out, "  - %s\n", w)
		}
	}

	_, _ = fmt.Fprintf(out, "\nConfiguration summary:\n")
	_, _ = fmt.Fprintf(out, "  Max preload:     %d\n", cfg.Preload.MaxPreload)
	_, _ = fmt.Fprintf(out, "  View size:       %dx%d\n", cfg.Preload.Width, cfg.Preload.Height)
	_, _ = fmt.Fprintf(out, "  Loader workers:  %d\n", cfg.Loader.Workers)
	_, _ = fmt.Fprintf(out, "  Fingerprinting:  %t\n", cfg.Fingerprint.Enabled)
	_, _ = fmt.Fprintf(out, "  Log backend:     %s\n", cfg.Logging.Backend)
	return nil
}
