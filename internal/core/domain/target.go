package domain

// Target binds an exporter to an account and export settings.
// Targets are read-only to the export core.
type Target struct {
	// ID is the unique identifier (UUID).
	ID string `json:"id"`
	// Name is the user-facing label.
	Name string `json:"name"`
	// Provider identifies which exporter uploads for this target.
	Provider ProviderType `json:"provider"`
	// AccountID references the authorized account to upload with.
	AccountID string `json:"account_id"`
	// Folder is the destination folder (a Dropbox path or a Drive folder ID).
	Folder string `json:"folder,omitempty"`
	// Share creates a public link after upload.
	Share bool `json:"share"`
	// CopyLocation copies the resulting location to the clipboard.
	CopyLocation bool `json:"copy_location"`
}

// Validate checks required fields.
func (t *Target) Validate() error {
	if t.Name == "" || t.AccountID == "" || !t.Provider.IsValid() {
		return ErrInvalidInput
	}
	return nil
}
