package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/capshare/internal/core/domain"
)

var targetCmd = &cobra.Command{
	Use:   "target",
	Short: "Manage export targets",
	Long: `A target binds an account to a destination folder and export options.

For Dropbox the folder is a path such as /Captures. For Google Drive it is
the ID of the parent folder; leave it empty to upload to My Drive.

Examples:
  capshare target add --account <account-id> --name Screenshots --folder /Captures --share --copy
  capshare target list
  capshare target remove <target-id>`,
}

var targetAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Add an export target",
	RunE:  runTargetAdd,
}

var targetListCmd = &cobra.Command{
	Use:   "list",
	Short: "List export targets",
	RunE:  runTargetList,
}

var targetRemoveCmd = &cobra.Command{
	Use:   "remove <target-id>",
	Short: "Remove an export target",
	Args:  cobra.ExactArgs(1),
	RunE:  runTargetRemove,
}

// Flags for target add.
var (
	targetAddAccount string
	targetAddName    string
	targetAddFolder  string
	targetAddShare   bool
	targetAddCopy    bool
)

func init() {
	targetAddCmd.Flags().StringVar(
		&targetAddAccount, "account", "", "Account ID to upload with (required)")
	targetAddCmd.Flags().StringVar(
		&targetAddName, "name", "", "Name for the target (required)")
	targetAddCmd.Flags().StringVar(
		&targetAddFolder, "folder", "", "Destination folder path or folder ID")
	targetAddCmd.Flags().BoolVar(
		&targetAddShare, "share", false, "Create a public link after each upload")
	targetAddCmd.Flags().BoolVar(
		&targetAddCopy, "copy", false, "Copy the link or path to the clipboard after each upload")
	_ = targetAddCmd.MarkFlagRequired("account")
	_ = targetAddCmd.MarkFlagRequired("name")

	targetCmd.AddCommand(targetAddCmd)
	targetCmd.AddCommand(targetListCmd)
	targetCmd.AddCommand(targetRemoveCmd)
	rootCmd.AddCommand(targetCmd)
}

func runTargetAdd(cmd *cobra.Command, _ []string) error {
	if targetService == nil {
		return errors.New("target service not configured")
	}

	target, err := targetService.Add(cmd.Context(), domain.Target{
		Name:         targetAddName,
		AccountID:    targetAddAccount,
		Folder:       targetAddFolder,
		Share:        targetAddShare,
		CopyLocation: targetAddCopy,
	})
	if err != nil {
		return fmt.Errorf("failed to add target: %w", err)
	}

	cmd.Printf("Target created: %s\n", target.ID)
	cmd.Printf("Upload with: capshare upload <file> --target %s\n", target.ID)
	return nil
}

func runTargetList(cmd *cobra.Command, _ []string) error {
	if targetService == nil {
		return errors.New("target service not configured")
	}

	targets, err := targetService.List(cmd.Context())
	if err != nil {
		return fmt.Errorf("failed to list targets: %w", err)
	}

	if len(targets) == 0 {
		cmd.Println("No targets configured.")
		return nil
	}

	cmd.Println("Targets:")
	for i := range targets {
		t := &targets[i]
		cmd.Printf("  %s\n", t.ID)
		cmd.Printf("    Name: %s\n", t.Name)
		cmd.Printf("    Provider: %s\n", t.Provider.DisplayName())
		cmd.Printf("    Account: %s\n", t.AccountID)
		if t.Folder != "" {
			cmd.Printf("    Folder: %s\n", t.Folder)
		}
		cmd.Printf("    Share: %t, Copy: %t\n", t.Share, t.CopyLocation)
	}
	return nil
}

func runTargetRemove(cmd *cobra.Command, args []string) error {
	if targetService == nil {
		return errors.New("target service not configured")
	}

	if err := targetService.Remove(cmd.Context(), args[0]); err != nil {
		return fmt.Errorf("failed to remove target: %w", err)
	}

	cmd.Printf("Removed target: %s\n", args[0])
	return nil
}
