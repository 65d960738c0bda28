package models

import "time"

// StoredFile is a document registered with the storage collaborator. Only
// metadata lives here; the bytes are served from Path by external storage.
type StoredFile struct {
	ID        string    `db:"id" json:"id"`
	OwnerID   string    `db:"owner_id" json:"owner_id"`
	Filename  string    `db:"filename" json:"filename"`
	Path      string    `db:"path" json:"path"`
	MimeType  string    `db:"mimetype" json:"mimetype"`
	SizeBytes int64     `db:"size_bytes" json:"size_bytes"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// FileDescriptor is the print-facing projection returned to the client.
type FileDescriptor struct {
	URL      string `json:"url"`
	Filename string `json:"filename"`
	MimeType string `json:"mimetype"`
}

// FileFilter captures criteria for listing stored files.
type FileFilter struct {
	OwnerID  string
	Search   string
	Page     int
	PageSize int
}
