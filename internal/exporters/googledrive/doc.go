// Package googledrive exports captures to Google Drive.
//
// Bytes go through a resumable upload session: the session URI returned by
// the initiating request is the session id, and every chunk is a PUT with a
// Content-Range header. Profile lookups and sharing use the Drive v3 client.
package googledrive
