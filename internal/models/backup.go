package models

import "time"

// Backup storage adapters. Local backups live on the disk managed by the
// daemon next to the game server; s3 backups are shipped to off-box
// object storage.
const (
	BackupAdapterLocal = "local"
	BackupAdapterS3    = "s3"
)

// BackupNameMaxLength bounds user-supplied backup names.
const BackupNameMaxLength = 191

// Backup represents a server backup record. The UUID is the external
// handle shared with the daemon and API clients; it never changes once
// assigned. A backup is pending while CompletedAt is nil.
type Backup struct {
	ID           int64      `json:"-"`
	UUID         string     `json:"uuid"`
	ServerID     string     `json:"server_id"`
	Name         string     `json:"name"`
	Disk         string     `json:"disk"`
	IgnoredFiles []string   `json:"ignored_files"`
	Checksum     string     `json:"checksum,omitempty"`
	Bytes        int64      `json:"bytes"`
	IsSuccessful bool       `json:"is_successful"`
	CompletedAt  *time.Time `json:"completed_at,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	DeletedAt    *time.Time `json:"-"`
}

// IsPending reports whether the daemon is still working on this backup.
func (b *Backup) IsPending() bool {
	return b.CompletedAt == nil
}

// Restorable reports whether the backup may be used for a restore. Only
// an actively in-progress backup is blocked; completed failures carry a
// terminal state and are allowed through so the caller can decide.
func (b *Backup) Restorable() bool {
	return b.IsSuccessful || b.CompletedAt != nil
}
