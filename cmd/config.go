package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/PolarWolf314/kete/internal/configs"
	"github.com/PolarWolf314/kete/internal/ui"
	"github.com/spf13/cobra"
)

var configShowJSON bool

func init() {
	configShowCmd.Flags().BoolVar(&configShowJSON, "json", false, "output in JSON format")

	ConfigCmd.AddCommand(configShowCmd)
	ConfigCmd.AddCommand(configSetCmd)
}

// resetConfigCommandState resets the config commands' global state for testing.
func resetConfigCommandState() {
	configShowJSON = false
}

// ConfigCmd is the top-level config command.
var ConfigCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage kete configuration",
	Long: `Shows and changes the user configuration in config.toml.

Settings:
  keyring.path                 Keyring file (KETE_KEYRING overrides it)
  encrypt.default_chunk_size   Part size for a bare --split, e.g. 64MiB
  encrypt.default_recipient    Recipient used when encrypt gets no --recipient
  audit.enabled                Whether operations are written to the audit log

Examples:
  kete config show
  kete config set encrypt.default_recipient alice
  kete config set audit.enabled false`,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Display current configuration",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		Logger.Infof("Starting config show command")
		cfg, err := configs.EnsureUserConfig()
		if err != nil {
			return Logger.ErrorfAndReturn("Failed to load user config: %w", err)
		}
		Logger.Infof("User config loaded successfully (UUID: %s)", cfg.User.UUID)

		values := map[string]string{"user.uuid": cfg.User.UUID}
		for _, key := range configs.Keys {
			if values[key], err = cfg.Get(key); err != nil {
				return err
			}
		}

		if configShowJSON {
			output, err := json.MarshalIndent(values, "", "  ")
			if err != nil {
				return Logger.ErrorfAndReturn("Failed to marshal config to JSON: %w", err)
			}
			fmt.Println(string(output))
			return nil
		}

		fmt.Println(ui.Info.Sprint("User Configuration") + " (" + ui.Path.Sprint(configs.UserKeteSettings.ConfigPath()) + "):")
		fmt.Println()
		fmt.Printf("  %-28s %s\n", "user.uuid", ui.Muted.Sprint(cfg.User.UUID))
		for _, key := range configs.Keys {
			value := values[key]
			if value == "" {
				value = ui.Muted.Sprint("(default)")
			}
			fmt.Printf("  %-28s %s\n", key, value)
		}
		fmt.Printf("  %-28s %s\n", "keyring in use", ui.Path.Sprint(cfg.KeyringPath()))
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set KEY VALUE",
	Short: "Change a setting",
	Long: `Changes one setting and saves config.toml. An empty VALUE resets
keyring.path, encrypt.default_chunk_size and encrypt.default_recipient to
their defaults.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		Logger.Infof("Starting config set command")
		key, value := args[0], args[1]

		cfg, err := configs.EnsureUserConfig()
		if err != nil {
			return reportError(fmt.Errorf("failed to load user config: %w", err))
		}
		if err := cfg.Set(key, value); err != nil {
			return reportError(err)
		}
		if err := configs.SaveUserConfig(cfg); err != nil {
			return reportError(err)
		}
		Logger.Debugf("Saved %s=%q to %s", key, value, configs.UserKeteSettings.ConfigPath())

		printResult(ui.Success.Sprint("✓") + " " + ui.Highlight.Sprint(key) + " set to " + ui.Code.Sprint(value))
		return nil
	},
}
