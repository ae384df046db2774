// Package cli provides the capshare command line interface.
package cli

import (
	"io"
	"os"
	"os/signal"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/custodia-labs/capshare/internal/core/domain"
	"github.com/custodia-labs/capshare/internal/core/ports/driven"
	"github.com/custodia-labs/capshare/internal/core/ports/driving"
	"github.com/custodia-labs/capshare/internal/logger"
)

// version is set at build time via -ldflags.
var version = "dev"

// Services holds the driving ports the commands call.
type Services struct {
	AccountService  driving.AccountService
	TargetService   driving.TargetService
	ExportService   driving.ExportService
	SettingsService driving.SettingsService
}

var (
	accountService  driving.AccountService
	targetService   driving.TargetService
	exportService   driving.ExportService
	settingsService driving.SettingsService
)

// pasteMode switches authorization to the copy/paste listener.
var pasteMode bool

// stdin is the reader the progress view reads keys from.
var stdin io.Reader = os.Stdin

// interactive reports whether progress can be drawn with the TUI.
var interactive = func(cmd *cobra.Command) bool {
	f, ok := cmd.OutOrStdout().(*os.File)
	return ok && term.IsTerminal(int(f.Fd())) && term.IsTerminal(int(os.Stdin.Fd()))
}

var verbose bool

var rootCmd = &cobra.Command{
	Use:   "capshare",
	Short: "Upload screen captures to cloud storage",
	Long: `capshare uploads screenshots and recordings to Dropbox or Google Drive,
optionally creates a public link, and copies the result to the clipboard.

Connect an account, bind it to a target folder, then upload:

  capshare account add dropbox
  capshare target add --account <account-id> --name Screenshots --folder /Captures --share --copy
  capshare upload shot.png --target <target-id>`,
	SilenceUsage: true,
	PersistentPreRun: func(_ *cobra.Command, _ []string) {
		if verbose {
			logger.SetVerbose(true)
		}
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
}

// SetServices injects the services used by the commands.
func SetServices(s Services) {
	accountService = s.AccountService
	targetService = s.TargetService
	exportService = s.ExportService
	settingsService = s.SettingsService
}

// SetVersion sets the version printed by the version command.
func SetVersion(v string) {
	version = v
}

// ListenerFactory returns a callback listener factory that uses paste
// while a command runs with --paste and loopback otherwise.
func ListenerFactory(loopback, paste driven.CallbackListenerFactory) driven.CallbackListenerFactory {
	return func(port int, state string, requiredScopes []string) driven.CallbackListener {
		if pasteMode {
			return paste(port, state, requiredScopes)
		}
		return loopback(port, state, requiredScopes)
	}
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// interruptCancellation returns a cancellation triggered by SIGINT and a
// function releasing the signal handler.
func interruptCancellation() (*domain.Cancellation, func()) {
	cancel := domain.NewCancellation()
	signals := make(chan os.Signal, 1)
	done := make(chan struct{})
	signal.Notify(signals, os.Interrupt)

	go func() {
		select {
		case <-signals:
			cancel.Cancel()
		case <-done:
		}
	}()

	return cancel, func() {
		signal.Stop(signals)
		close(done)
	}
}
