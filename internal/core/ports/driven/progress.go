package driven

import "github.com/custodia-labs/capshare/internal/core/domain"

// ProgressReporter receives export progress. Calls arrive on the
// goroutine running the export.
type ProgressReporter interface {
	ReportProgress(update domain.ProgressUpdate)
}

// ProgressFunc adapts a function to ProgressReporter.
type ProgressFunc func(update domain.ProgressUpdate)

// ReportProgress calls f.
func (f ProgressFunc) ReportProgress(update domain.ProgressUpdate) {
	f(update)
}

// Clipboard receives the location of a finished export.
type Clipboard interface {
	WriteText(text string) error
}
