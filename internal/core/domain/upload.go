package domain

import "time"

// ChunkAlignment is the unit every upload chunk size must be a multiple of.
const ChunkAlignment = 256 * 1024

// DefaultChunkSize is used when no chunk size is configured.
const DefaultChunkSize = 16 * ChunkAlignment

// UploadCommit describes where and how the uploaded file is committed.
type UploadCommit struct {
	// Path is the destination path (or name for providers without paths).
	Path string
	// Folder is the destination folder for providers that address by ID.
	Folder string
	// Autorename resolves name conflicts by renaming instead of failing.
	Autorename bool
	// Mute suppresses provider-side notifications.
	Mute bool
}

// NewUploadCommit returns the commit used for captures: add mode,
// autorename on, notifications on.
func NewUploadCommit(path, folder string) UploadCommit {
	return UploadCommit{Path: path, Folder: folder, Autorename: true, Mute: false}
}

// UploadSession is the transient state of one chunked upload.
// It is never persisted.
type UploadSession struct {
	// ID is the provider session identifier (a session id or a session URI).
	ID string
	// Offset is the number of bytes the provider has acknowledged.
	Offset int64
	// TotalSize is the byte length of the whole file.
	TotalSize int64
	Commit    UploadCommit
}

// Remaining returns the bytes not yet sent.
func (s *UploadSession) Remaining() int64 {
	return s.TotalSize - s.Offset
}

// UploadResult is the provider's description of a committed file.
type UploadResult struct {
	// Path is the committed path (may differ from the requested one on autorename).
	Path string
	// ID is the provider's file identifier.
	ID   string
	Size int64
	// URL is a public link, set only when sharing was requested.
	URL string
}

// Location returns the public URL if there is one, otherwise the path.
func (r *UploadResult) Location() string {
	if r.URL != "" {
		return r.URL
	}
	return r.Path
}

// ExportRecord is the persisted outcome of exporting one capture.
type ExportRecord struct {
	ID        string       `json:"id"`
	CaptureID string       `json:"capture_id"`
	Exporter  ProviderType `json:"exporter"`
	TargetID  string       `json:"target_id"`
	// Location is the uploaded path, a public URL, or empty.
	Location string `json:"location,omitempty"`
	// MediaID is the provider file identifier.
	MediaID           string    `json:"media_id,omitempty"`
	CopiedToClipboard bool      `json:"copied_to_clipboard"`
	CreatedAt         time.Time `json:"created_at"`
}
