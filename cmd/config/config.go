package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/vitalarbor/vitalarbor-go/internal/cli"
	"github.com/vitalarbor/vitalarbor-go/internal/conf"
)

const redacted = "[REDACTED]"

// Command creates the config command group.
func Command(app *cli.App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Create or inspect the configuration file",
	}
	cmd.AddCommand(initCommand(app), showCommand(app))
	return cmd
}

func initCommand(app *cli.App) *cobra.Command {
	var force, effective bool

	cmd := &cobra.Command{
		Use:   "init [PATH]",
		Short: "Write the default config.yaml",
		Long: `Write the commented default configuration to PATH, or to the user config
directory when PATH is omitted. With --effective the settings currently in
force (file, environment and flags merged) are written instead.`,
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := conf.DefaultConfigFile()
			if len(args) == 1 {
				path = args[0]
			}

			if _, err := os.Stat(path); err == nil && !force {
				return fmt.Errorf("%s already exists, use --force to overwrite", path)
			}

			if effective {
				if err := conf.SaveYAMLConfig(path, app.Settings); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", path)
				return nil
			}

			data, err := conf.DefaultConfigYAML()
			if err != nil {
				return fmt.Errorf("error reading default config: %w", err)
			}
			if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
				return fmt.Errorf("error creating config directory: %w", err)
			}
			if err := os.WriteFile(path, data, 0o644); err != nil {
				return fmt.Errorf("error writing config file: %w", err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", path)
			return nil
		},
	}
	cmd.Flags().BoolVarP(&force, "force", "f", false, "Overwrite an existing file")
	cmd.Flags().BoolVar(&effective, "effective", false, "Write the effective settings instead of the commented defaults")
	return cmd
}

func showCommand(app *cli.App) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the effective settings as YAML",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			settings := *app.Settings
			if settings.Telemetry.DSN != "" {
				settings.Telemetry.DSN = redacted
			}

			data, err := yaml.Marshal(&settings)
			if err != nil {
				return fmt.Errorf("error marshaling settings: %w", err)
			}
			_, err = cmd.OutOrStdout().Write(data)
			return err
		},
	}
}
