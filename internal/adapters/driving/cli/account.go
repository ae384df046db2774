package cli

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/capshare/internal/core/domain"
)

var accountCmd = &cobra.Command{
	Use:   "account",
	Short: "Manage storage provider accounts",
	Long: `Connect, list, refresh and remove Dropbox and Google Drive accounts.

Connecting an account opens your browser on the provider's consent page and
waits for it to redirect back to a listener on localhost. On machines where
the browser cannot reach localhost, pass --paste and paste the address the
browser ends up on.

Examples:
  capshare account add dropbox
  capshare account add googledrive --paste
  capshare account list
  capshare account refresh <account-id>`,
}

var accountAddCmd = &cobra.Command{
	Use:   "add <provider>",
	Short: "Connect a new account",
	Long: `Connect a new account for a provider (dropbox or googledrive).

The provider's client id must be configured first, for example:
  capshare config set dropbox.client_id <app-key>`,
	Args: cobra.ExactArgs(1),
	RunE: runAccountAdd,
}

var accountAuthorizeCmd = &cobra.Command{
	Use:   "authorize <account-id>",
	Short: "Authorize an existing account again",
	Args:  cobra.ExactArgs(1),
	RunE:  runAccountAuthorize,
}

var accountListCmd = &cobra.Command{
	Use:   "list",
	Short: "List connected accounts",
	RunE:  runAccountList,
}

var accountRefreshCmd = &cobra.Command{
	Use:   "refresh <account-id>",
	Short: "Refresh an account's access token",
	Args:  cobra.ExactArgs(1),
	RunE:  runAccountRefresh,
}

var accountRemoveCmd = &cobra.Command{
	Use:   "remove <account-id>",
	Short: "Remove an account and its targets",
	Args:  cobra.ExactArgs(1),
	RunE:  runAccountRemove,
}

func init() {
	accountAddCmd.Flags().BoolVar(
		&pasteMode, "paste", false, "Paste the redirect address instead of listening on localhost")
	accountAuthorizeCmd.Flags().BoolVar(
		&pasteMode, "paste", false, "Paste the redirect address instead of listening on localhost")

	accountCmd.AddCommand(accountAddCmd)
	accountCmd.AddCommand(accountAuthorizeCmd)
	accountCmd.AddCommand(accountListCmd)
	accountCmd.AddCommand(accountRefreshCmd)
	accountCmd.AddCommand(accountRemoveCmd)
	rootCmd.AddCommand(accountCmd)
}

func runAccountAdd(cmd *cobra.Command, args []string) error {
	if accountService == nil {
		return errors.New("account service not configured")
	}

	provider := domain.ProviderType(strings.ToLower(args[0]))
	if !provider.IsValid() {
		return fmt.Errorf("unknown provider %q (expected %s or %s)",
			args[0], domain.ProviderDropbox, domain.ProviderGoogleDrive)
	}

	account, err := accountService.Create(cmd.Context(), provider)
	if err != nil {
		return fmt.Errorf("failed to create account: %w", err)
	}
	cmd.Printf("Created %s account %s\n", provider.DisplayName(), account.ID)

	return authorizeAccount(cmd, account.ID)
}

func runAccountAuthorize(cmd *cobra.Command, args []string) error {
	if accountService == nil {
		return errors.New("account service not configured")
	}
	return authorizeAccount(cmd, args[0])
}

// authorizeAccount runs the authorization flow until it finishes or the
// user interrupts it.
func authorizeAccount(cmd *cobra.Command, id string) error {
	cancel, stop := interruptCancellation()
	defer stop()

	account, err := accountService.Authorize(cmd.Context(), id, cancel)
	if err != nil {
		if errors.Is(err, domain.ErrCancelled) {
			return errors.New("authorization cancelled")
		}
		return fmt.Errorf("authorization failed (retry with 'capshare account authorize %s'): %w", id, err)
	}

	cmd.Printf("Authorized %s account as %s\n", account.Provider.DisplayName(), account.Identifier())
	return nil
}

func runAccountList(cmd *cobra.Command, _ []string) error {
	if accountService == nil {
		return errors.New("account service not configured")
	}

	accounts, err := accountService.List(cmd.Context())
	if err != nil {
		return fmt.Errorf("failed to list accounts: %w", err)
	}

	if len(accounts) == 0 {
		cmd.Println("No accounts connected.")
		cmd.Println("Connect one with: capshare account add <dropbox|googledrive>")
		return nil
	}

	cmd.Println("Accounts:")
	for i := range accounts {
		a := &accounts[i]
		cmd.Printf("  %s\n", a.ID)
		cmd.Printf("    Provider: %s\n", a.Provider.DisplayName())
		cmd.Printf("    Identity: %s\n", a.Identifier())
		cmd.Printf("    Status: %s\n", accountStatus(a))
		if len(a.Scopes) > 0 {
			cmd.Printf("    Scopes: %s\n", strings.Join(a.Scopes, ", "))
		}
	}
	return nil
}

// accountStatus describes whether an account can upload.
func accountStatus(a *domain.Account) string {
	switch {
	case !a.IsAuthorized() && a.HasRefreshToken():
		return "needs refresh"
	case !a.IsAuthorized():
		return "not authorized"
	default:
		return "authorized, token expires " + a.Expiry.Local().Format(time.RFC3339)
	}
}

func runAccountRefresh(cmd *cobra.Command, args []string) error {
	if accountService == nil {
		return errors.New("account service not configured")
	}

	account, err := accountService.Refresh(cmd.Context(), args[0])
	if err != nil {
		if errors.Is(err, domain.ErrReauthorizationRequired) {
			return fmt.Errorf("refresh failed (re-authorize with 'capshare account authorize %s'): %w", args[0], err)
		}
		return fmt.Errorf("refresh failed: %w", err)
	}

	cmd.Printf("Token for %s valid until %s\n", account.Identifier(), account.Expiry.Local().Format(time.RFC3339))
	return nil
}

func runAccountRemove(cmd *cobra.Command, args []string) error {
	if accountService == nil {
		return errors.New("account service not configured")
	}

	if err := accountService.Remove(cmd.Context(), args[0]); err != nil {
		return fmt.Errorf("failed to remove account: %w", err)
	}

	cmd.Printf("Removed account: %s\n", args[0])
	return nil
}

// AuthProgress returns an authorization state observer that prints the
// consent URL and the steps that follow it to w.
func AuthProgress(w io.Writer) func(state domain.AuthState, detail string) {
	return func(state domain.AuthState, detail string) {
		switch state {
		case domain.AuthStateAwaitingRedirect:
			fmt.Fprintf(w, "If your browser did not open, visit:\n\n  %s\n\n", detail)
			fmt.Fprintln(w, "Waiting for authorization...")
		case domain.AuthStateExchangingTokens:
			fmt.Fprintln(w, "Authorization code received, requesting tokens...")
		}
	}
}
