package commands

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/stacq-io/stacq/internal/constants"
)

// configKeys lists the settings the config command manages.
var configKeys = []string{"endpoint", "token", "output", "retry-max", "no-cache"}

// NewConfigCommand creates the config command group.
func NewConfigCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage CLI configuration",
		Long:  "Manage stacq CLI configuration persisted in ~/.stacq/config.yml",
	}

	cmd.AddCommand(newConfigShowCommand())
	cmd.AddCommand(newConfigSetCommand())
	cmd.AddCommand(newConfigUnsetCommand())

	return cmd
}

func newConfigShowCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show the resolved configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			resolved := make(map[string]any, len(configKeys))

			for _, key := range configKeys {
				value := viper.Get(key)
				if key == "token" && viper.GetString(key) != "" {
					value = "(set)"
				}

				resolved[key] = value
			}

			done, err := renderStructured(resolved)
			if done {
				return err
			}

			table := tablewriter.NewWriter(os.Stdout)
			table.Header("Setting", "Value")

			for _, key := range configKeys {
				_ = table.Append(key, fmt.Sprintf("%v", resolved[key]))
			}

			if err := table.Render(); err != nil {
				return fmt.Errorf("failed to render table: %w", err)
			}

			return nil
		},
	}
}

func newConfigSetCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "set KEY VALUE",
		Short: "Persist a configuration value",
		Long:  "Persist a configuration value; accepts \"KEY VALUE\" or \"KEY=VALUE\"",
		Args:  cobra.RangeArgs(1, constants.KeyValueSplitParts),
		RunE: func(cmd *cobra.Command, args []string) error {
			key, value, err := splitKeyValue(args)
			if err != nil {
				return err
			}

			if err := validateConfigValue(key, value); err != nil {
				return err
			}

			return updateConfigFile(func(settings map[string]any) {
				settings[key] = value
			})
		},
	}
}

func newConfigUnsetCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "unset KEY",
		Short: "Remove a persisted configuration value",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !isConfigKey(args[0]) {
				return fmt.Errorf("unknown setting %q, expected one of: %s", args[0], strings.Join(configKeys, ", "))
			}

			return updateConfigFile(func(settings map[string]any) {
				delete(settings, args[0])
			})
		},
	}
}

func splitKeyValue(args []string) (string, string, error) {
	if len(args) == constants.KeyValueSplitParts {
		return args[0], args[1], nil
	}

	parts := strings.SplitN(args[0], "=", constants.KeyValueSplitParts)
	if len(parts) != constants.KeyValueSplitParts {
		return "", "", fmt.Errorf("%w: %q", constants.ErrInvalidKeyValue, args[0])
	}

	return parts[0], parts[1], nil
}

func validateConfigValue(key, value string) error {
	if !isConfigKey(key) {
		return fmt.Errorf("unknown setting %q, expected one of: %s", key, strings.Join(configKeys, ", "))
	}

	if key == "output" && value != "table" && value != OutputFormatJSON && value != OutputFormatYAML {
		return fmt.Errorf("%w: %q", constants.ErrInvalidOutputFlag, value)
	}

	return nil
}

func isConfigKey(key string) bool {
	for _, known := range configKeys {
		if key == known {
			return true
		}
	}

	return false
}

// updateConfigFile applies a mutation to ~/.stacq/config.yml, creating
// the file if needed.
func updateConfigFile(mutate func(settings map[string]any)) error {
	home, err := os.UserHomeDir()
	if err != nil {
		return fmt.Errorf("failed to resolve home directory: %w", err)
	}

	configDir := filepath.Join(home, ".stacq")
	if err := os.MkdirAll(configDir, constants.ConfigDirPerm); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	configPath := filepath.Join(configDir, "config.yml")
	settings := map[string]any{}

	if data, err := os.ReadFile(configPath); err == nil {
		if err := yaml.Unmarshal(data, &settings); err != nil {
			return fmt.Errorf("failed to parse %s: %w", configPath, err)
		}
	}

	mutate(settings)

	data, err := yaml.Marshal(settings)
	if err != nil {
		return fmt.Errorf("failed to encode configuration: %w", err)
	}

	if err := os.WriteFile(configPath, data, constants.ConfigFilePerm); err != nil {
		return fmt.Errorf("failed to write %s: %w", configPath, err)
	}

	return nil
}
