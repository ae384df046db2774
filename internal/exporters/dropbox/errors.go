package dropbox

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/custodia-labs/capshare/internal/core/domain"
)

var errUnexpectedStatus = errors.New("unexpected status")

// apiError builds the error for a non-2xx answer. The error_summary, or the
// raw body when it is not JSON, becomes the detail. Server errors during an
// upload also match domain.ErrResumeNotImplemented.
func apiError(kind error, op string, resp *response) *domain.ExportError {
	cause := errUnexpectedStatus
	switch {
	case resp.status == http.StatusUnauthorized:
		cause = domain.ErrAuthRequired
	case resp.status >= 500 && kind == domain.ErrUpload:
		cause = domain.ErrResumeNotImplemented
	}
	return domain.NewError(kind, op, fmt.Errorf("%w: status %d", cause, resp.status)).
		WithDetail(errorSummary(resp.body))
}

// errorSummary extracts the error_summary field Dropbox puts in error bodies.
func errorSummary(body []byte) string {
	if gjson.ValidBytes(body) {
		if summary := gjson.GetBytes(body, "error_summary").String(); summary != "" {
			return summary
		}
	}
	return strings.TrimSpace(string(body))
}

// errorTag returns the tag of the route error, e.g. "shared_link_already_exists".
func errorTag(body []byte) string {
	return gjson.GetBytes(body, "error.\\.tag").String()
}
