// Package clipboard copies export locations to the system clipboard.
package clipboard

import (
	"errors"
	"fmt"

	"github.com/atotto/clipboard"

	"github.com/custodia-labs/capshare/internal/core/ports/driven"
)

// ErrUnsupported is returned when no clipboard utility is available
// (e.g. Linux without xclip, xsel or wl-copy).
var ErrUnsupported = errors.New("clipboard not available")

// Ensure System implements the clipboard port.
var _ driven.Clipboard = (*System)(nil)

// System writes to the system clipboard.
type System struct {
	write       func(string) error
	unsupported bool
}

// New returns a System clipboard.
func New() *System {
	return &System{write: clipboard.WriteAll, unsupported: clipboard.Unsupported}
}

// Available reports whether a clipboard utility was found.
func (s *System) Available() bool {
	return !s.unsupported
}

// WriteText replaces the clipboard contents.
func (s *System) WriteText(text string) error {
	if s.unsupported {
		return ErrUnsupported
	}
	if err := s.write(text); err != nil {
		return fmt.Errorf("write clipboard: %w", err)
	}
	return nil
}
