// Package exporters provides the cloud storage exporters a capture can be
// sent to, plus the HTTP plumbing they share.
//
// Each exporter composes three things behind driven.Exporter:
//   - OAuth configuration values (endpoints, scopes, extra auth parameters)
//   - a profile lookup used to label the authorized account
//   - an upload session transport driven by services.ChunkedUploadSession
//
// Exporters are registered with the ExporterRegistry at startup.
package exporters
