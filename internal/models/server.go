package models

import "time"

// Exclusive transient server states. A nil status means the server is
// idle and new exclusive operations may begin.
const (
	ServerStatusInstalling      = "installing"
	ServerStatusRestoringBackup = "restoring_backup"
	ServerStatusSuspended       = "suspended"
)

// Server is the panel's view of a managed game server instance. Only
// the fields the backup lifecycle needs are modeled here.
type Server struct {
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	Status      *string    `json:"status"`
	BackupLimit int        `json:"backup_limit"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// IsIdle reports whether no exclusive operation is in progress.
func (s *Server) IsIdle() bool {
	return s.Status == nil
}
