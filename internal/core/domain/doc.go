// Package domain defines the core business entities for capshare.
//
// This package is part of the hexagonal architecture's innermost layer.
// It has NO external dependencies and defines the fundamental types:
//
//   - Account: An authorized connection to one storage provider
//   - Target: An exporter bound to an account plus export settings
//   - UploadSession: Transient state of one chunked upload
//   - ExportRecord: The outcome of exporting one capture
//
// # Architectural Position
//
// Domain is at the centre of the hexagon. It may only import
// the Go standard library. All other packages depend on domain,
// never the reverse.
//
// # Import Rules
//
//   - Can Import: Standard library only
//   - Cannot Import: Any internal/ package, any external dependency
package domain
