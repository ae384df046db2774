package dropbox

import (
	"net/url"
	"strings"
)

// WebURL returns the dropbox.com page of an uploaded path, for locations
// that are not shared.
func WebURL(path string) string {
	if path == "" {
		return "https://www.dropbox.com/home"
	}
	segments := strings.Split(strings.TrimPrefix(path, "/"), "/")
	for i, s := range segments {
		segments[i] = url.PathEscape(s)
	}
	return "https://www.dropbox.com/home/" + strings.Join(segments, "/")
}
