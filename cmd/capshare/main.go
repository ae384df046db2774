// Command capshare uploads screen captures to Dropbox and Google Drive.
package main

import (
	"fmt"
	"os"

	"github.com/custodia-labs/capshare/internal/adapters/driven/clipboard"
	"github.com/custodia-labs/capshare/internal/adapters/driven/config/file"
	oauthclient "github.com/custodia-labs/capshare/internal/adapters/driven/oauth"
	"github.com/custodia-labs/capshare/internal/adapters/driven/storage/sqlite"
	"github.com/custodia-labs/capshare/internal/adapters/driving/cli"
	"github.com/custodia-labs/capshare/internal/adapters/driving/oauth"
	"github.com/custodia-labs/capshare/internal/core/ports/driven"
	"github.com/custodia-labs/capshare/internal/core/services"
	"github.com/custodia-labs/capshare/internal/exporters"
	"github.com/custodia-labs/capshare/internal/exporters/dropbox"
	"github.com/custodia-labs/capshare/internal/exporters/googledrive"
	"github.com/custodia-labs/capshare/internal/logger"
)

// version is set at build time via -ldflags "-X main.version=...".
var version = "dev"

func main() {
	if err := run(); err != nil {
		os.Exit(1)
	}
}

func run() error {
	configStore, err := file.NewConfigStore("")
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		return err
	}
	settingsService := services.NewSettingsService(configStore)
	settings, err := settingsService.Get()
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid settings: %v\n", err)
		return err
	}
	logger.SetVerbose(settings.Verbose)

	store, err := sqlite.NewStore("")
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to open database: %v\n", err)
		return err
	}
	defer store.Close()

	// Uploads share one limiter so chunk requests and share calls are
	// paced together. Token calls are not rate limited.
	limiter := exporters.NewRateLimiter(settings.RequestsPerSecond)
	apiClient := exporters.NewHTTPClient(limiter, 0)

	registry := services.NewExporterRegistry(
		dropbox.New(dropbox.Options{HTTPClient: apiClient}),
		googledrive.New(googledrive.Options{HTTPClient: apiClient}),
	)

	clients := oauthclient.NewClientFactory(nil)
	listeners := cli.ListenerFactory(
		oauth.NewListenerFactory(),
		oauth.NewPasteListenerFactory(os.Stdin, os.Stdout),
	)
	flow := services.NewAuthorizationFlow(listeners, clients, oauth.Launcher{}, services.AuthorizationOptions{
		Port:    settings.RedirectPort,
		Timeout: settings.AuthTimeout,
	})
	flow.OnStateChange(cli.AuthProgress(os.Stderr))

	tokens := services.NewTokenManager(registry.ClientResolver(settingsService, clients))
	accountService := services.NewAccountService(
		store.AccountStore(), store.TargetStore(), registry, settingsService, flow, tokens)
	targetService := services.NewTargetService(store.TargetStore(), store.AccountStore())

	var clip driven.Clipboard
	if c := clipboard.New(); c.Available() {
		clip = c
	} else {
		logger.Debug("clipboard unavailable; locations will not be copied")
	}
	exportService := services.NewExportService(
		store.TargetStore(), accountService, store.ExportHistoryStore(), registry, settingsService, clip)

	cli.SetVersion(version)
	cli.SetServices(cli.Services{
		AccountService:  accountService,
		TargetService:   targetService,
		ExportService:   exportService,
		SettingsService: settingsService,
	})
	return cli.Execute()
}
