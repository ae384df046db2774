package driving

import (
	"context"

	"github.com/custodia-labs/capshare/internal/core/domain"
	"github.com/custodia-labs/capshare/internal/core/ports/driven"
)

// ExportRequest describes one capture to export.
type ExportRequest struct {
	// CaptureID identifies the capture in the export history.
	// Defaults to the file path when empty.
	CaptureID string
	// FilePath is the local capture file.
	FilePath string
	// TargetID selects the destination.
	TargetID string
	// Name overrides the destination file name.
	Name string
}

// ExportService uploads captures to targets.
type ExportService interface {
	// Export uploads a capture, authorizing the target's account first when
	// it holds no tokens. Progress is reported through progress, which may be nil.
	Export(ctx context.Context, req ExportRequest, cancel *domain.Cancellation, progress driven.ProgressReporter) (*domain.ExportRecord, error)

	// History returns the export records of one capture.
	History(ctx context.Context, captureID string) ([]domain.ExportRecord, error)

	// Recent returns the most recent export records.
	Recent(ctx context.Context, limit int) ([]domain.ExportRecord, error)
}
