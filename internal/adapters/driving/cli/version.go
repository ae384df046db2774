package cli

import (
	"runtime"

	"github.com/spf13/cobra"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version and OAuth redirect URI",
	Long: `Print the capshare version.

The redirect URI is the address to register in the Dropbox and Google
developer consoles; it follows oauth.redirect_port.`,
	Run: runVersion,
}

func init() {
	rootCmd.AddCommand(versionCmd)
}

func runVersion(cmd *cobra.Command, _ []string) {
	cmd.Printf("capshare version %s (%s %s/%s)\n", version, runtime.Version(), runtime.GOOS, runtime.GOARCH)
	if settingsService == nil {
		return
	}
	if settings, err := settingsService.Get(); err == nil && settings.RedirectPort > 0 {
		cmd.Printf("redirect URI: http://localhost:%d\n", settings.RedirectPort)
	}
}
