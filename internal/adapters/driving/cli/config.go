package cli

import (
	"errors"
	"fmt"
	"slices"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/capshare/internal/core/services"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "View and change settings",
	Long: `View and change capshare settings.

Provider client ids come from the developer consoles:
  dropbox.client_id, googledrive.client_id

Client secrets are never written to the config file. Providers that
need one read it from the environment:
  CAPSHARE_DROPBOX_CLIENT_SECRET, CAPSHARE_GOOGLEDRIVE_CLIENT_SECRET

Examples:
  capshare config list
  capshare config set dropbox.client_id abc123
  capshare config set upload.chunk_size_kib 8192`,
}

var configListCmd = &cobra.Command{
	Use:   "list",
	Short: "Show all settings",
	RunE:  runConfigList,
}

var configGetCmd = &cobra.Command{
	Use:   "get <key>",
	Short: "Show one setting",
	Args:  cobra.ExactArgs(1),
	RunE:  runConfigGet,
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Change one setting",
	Args:  cobra.ExactArgs(2),
	RunE:  runConfigSet,
}

func init() {
	configCmd.AddCommand(configListCmd)
	configCmd.AddCommand(configGetCmd)
	configCmd.AddCommand(configSetCmd)
	rootCmd.AddCommand(configCmd)
}

func runConfigList(cmd *cobra.Command, _ []string) error {
	if settingsService == nil {
		return errors.New("settings service not configured")
	}

	for _, key := range settingsService.Keys() {
		value, ok := settingsService.Value(key)
		cmd.Printf("  %-28s %s\n", key, displayValue(key, value, ok))
	}
	return nil
}

func runConfigGet(cmd *cobra.Command, args []string) error {
	if settingsService == nil {
		return errors.New("settings service not configured")
	}

	key := args[0]
	if !knownKey(key) {
		return fmt.Errorf("unknown setting %q (see 'capshare config list')", key)
	}
	value, ok := settingsService.Value(key)
	cmd.Println(displayValue(key, value, ok))
	return nil
}

func runConfigSet(cmd *cobra.Command, args []string) error {
	if settingsService == nil {
		return errors.New("settings service not configured")
	}

	key, value := args[0], args[1]
	if services.IsSecret(key) {
		return fmt.Errorf("%s is not stored on disk; export %s instead", key, services.SecretEnvVar(key))
	}

	if err := settingsService.Set(key, value); err != nil {
		return fmt.Errorf("failed to set %s: %w", key, err)
	}
	cmd.Printf("Set %s = %s\n", key, displayValue(key, value, true))
	return nil
}

func knownKey(key string) bool {
	return slices.Contains(settingsService.Keys(), key)
}

// displayValue masks secrets and marks unset keys.
func displayValue(key, value string, ok bool) string {
	switch {
	case (!ok || value == "") && services.IsSecret(key):
		return "(not set, export " + services.SecretEnvVar(key) + ")"
	case !ok || value == "":
		return "(not set)"
	case services.IsSecret(key):
		return maskSecret(value)
	default:
		return value
	}
}

func maskSecret(secret string) string {
	if len(secret) <= 8 {
		return "****"
	}
	return secret[:4] + "..." + secret[len(secret)-4:]
}
