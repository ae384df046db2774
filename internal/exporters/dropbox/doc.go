// Package dropbox exports captures to Dropbox through upload sessions.
//
// Chunks go to the content host as start, append_v2 and finish calls with
// the call arguments in the Dropbox-API-Arg header. Argument values are
// built from the Dropbox SDK types so field names match the API.
package dropbox
