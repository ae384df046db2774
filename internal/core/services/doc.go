// Package services implements the driving port interfaces.
// Services contain the core business logic and orchestrate
// calls to driven ports (adapters): the authorization flow,
// token lifecycle, chunked upload session and export pipeline.
//
// Services depend on domain, ports, the logger and google/uuid.
package services
