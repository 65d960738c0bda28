package models

import "time"

// PrintLogEntry is one append-only record of a print attempt. Entries are
// written at most once per completed print and never updated.
type PrintLogEntry struct {
	ID             string    `db:"id" json:"id"`
	FileID         string    `db:"file_id" json:"file_id"`
	UserID         string    `db:"user_id" json:"user_id"`
	Filename       string    `db:"filename" json:"filename"`
	IPAddress      string    `db:"ip_address" json:"ip_address"`
	UserAgent      string    `db:"user_agent" json:"user_agent"`
	PrintTimestamp time.Time `db:"print_timestamp" json:"print_timestamp"`
}

// PrintLogDetail joins user and file details onto a log entry for the admin
// listing. The joined columns are nullable: the referenced user or file may
// have been deleted after the print happened.
type PrintLogDetail struct {
	PrintLogEntry
	UserName  *string `db:"user_name" json:"user_name,omitempty"`
	UserEmail *string `db:"user_email" json:"user_email,omitempty"`
	FilePath  *string `db:"file_path" json:"file_path,omitempty"`
}

// PrintLogFilter captures pagination for the admin audit listing.
type PrintLogFilter struct {
	Page     int
	PageSize int
}
