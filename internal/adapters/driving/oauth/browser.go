package oauth

import (
	"fmt"
	"os/exec"
	"runtime"

	"github.com/custodia-labs/capshare/internal/core/ports/driven"
)

// Ensure Launcher implements the browser port.
var _ driven.BrowserLauncher = Launcher{}

// OpenBrowser opens the default browser to the given URL.
func OpenBrowser(url string) error {
	var cmd *exec.Cmd

	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", url)
	case "linux", "freebsd", "openbsd":
		cmd = exec.Command("xdg-open", url)
	case "windows":
		cmd = exec.Command("rundll32", "url.dll,FileProtocolHandler", url)
	default:
		return fmt.Errorf("unsupported platform: %s", runtime.GOOS)
	}

	return cmd.Start()
}

// Launcher opens URLs with the platform browser.
type Launcher struct{}

// Open implements driven.BrowserLauncher.
func (Launcher) Open(url string) error {
	return OpenBrowser(url)
}
