package googledrive

import (
	"errors"
	"fmt"
	"net/http"

	"google.golang.org/api/googleapi"

	"github.com/custodia-labs/capshare/internal/core/domain"
)

// IsUnauthorized returns true if the error indicates invalid credentials.
func IsUnauthorized(err error) bool {
	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		return gerr.Code == http.StatusUnauthorized
	}
	return false
}

// IsServerError returns true for 5xx answers.
func IsServerError(err error) bool {
	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		return gerr.Code >= 500
	}
	return false
}

// wrapError converts a Drive API failure into an ExportError of the given
// kind. The API message becomes the detail. Server errors during uploads
// also match domain.ErrResumeNotImplemented; 401s match domain.ErrAuthRequired.
func wrapError(kind error, op string, err error) error {
	if err == nil {
		return nil
	}

	var gerr *googleapi.Error
	if !errors.As(err, &gerr) {
		return domain.NewError(kind, op, err)
	}

	switch {
	case IsUnauthorized(err):
		err = fmt.Errorf("%w: %w", domain.ErrAuthRequired, err)
	case IsServerError(err) && kind == domain.ErrUpload:
		err = fmt.Errorf("%w: %w", domain.ErrResumeNotImplemented, err)
	}

	detail := gerr.Message
	if detail == "" {
		detail = gerr.Body
	}
	return domain.NewError(kind, op, err).WithDetail(detail)
}
