package config

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"listpreload/internal/config"
)

var showOutput string

var showCmd = &cobra.Command{
	Use:   "show",
	Short: "Display the effective configuration",
	Long: `Display the configuration after defaults, file and environment are merged.

Examples:
  # Show as YAML
  preloadsim config show

  # Show as JSON
  preloadsim config show --output json`,
	RunE: runConfigShow,
}

func init() {
	showCmd.Flags().StringVarP(&showOutput, "output", "o", "yaml", "Output format (yaml|json)")
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	// Get config path from parent's persistent flag
	configPath, _ := cmd.Flags().GetString("config")

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	var data []byte
	switch showOutput {
	case "json":
		data, err = json.MarshalIndent(cfg, "", "  ")
		data = append(data, '\n')
	case "yaml":
		data, err = yaml.Marshal(cfg)
	default:
		return fmt.Errorf("unknown output format %q (want yaml or json)", showOutput)
	}
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}

	_, err = cmd.OutOrStdout().Write(data)
	return err
}
