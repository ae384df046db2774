// Package driven defines the interfaces that core calls OUT to infrastructure.
//
// These are the "driven" or "secondary" ports in hexagonal architecture.
// Core services depend on these interfaces, and infrastructure adapters
// implement them.
//
// # Required Interfaces
//
// These must be provided for the application to function:
//
//   - AccountStore: Account and token persistence
//   - TargetStore: Export target persistence
//   - ExportHistoryStore: Export outcome persistence
//   - ConfigStore: Application configuration
//   - OAuthClient: Token endpoint and authorization URL for one provider
//   - CallbackListener: Captures the browser redirect
//   - Exporter: Provider configuration, profile lookup and upload transport
//
// # Optional Interfaces
//
// These can be nil - the application degrades gracefully:
//
//   - BrowserLauncher: Without it, the authorization URL is only surfaced to the observer.
//   - ProgressReporter: Without it, progress is not reported.
//   - Sharer: Without it, targets with sharing enabled keep the plain path.
//   - Clipboard: Without it, locations are never copied.
//
// # Import Rules
//
//   - Can Import: domain package only
//   - Cannot Import: Any adapter or exporter package
package driven
