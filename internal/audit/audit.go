package audit

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/warden-panel/warden/internal/database"
)

// Audited actions recorded by the backup lifecycle.
const (
	ActionBackupStarted         = "server:backup.started"
	ActionBackupCompleted       = "server:backup.completed"
	ActionBackupDeleted         = "server:backup.deleted"
	ActionBackupRestoreStarted  = "server:backup.restore_started"
	ActionBackupRestoreComplete = "server:backup.restore_completed"
)

// Entry is one audit log row. Metadata is filled in by the operation
// running inside the transaction, before the row is written.
type Entry struct {
	ID        int64                  `json:"id"`
	UUID      string                 `json:"uuid"`
	ServerID  string                 `json:"server_id,omitempty"`
	UserID    *int64                 `json:"user_id,omitempty"`
	Action    string                 `json:"action"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	CreatedAt time.Time              `json:"created_at"`
}

// Logger writes audit entries atomically with the domain mutations they
// describe: the caller's writes and the audit row commit together or
// not at all.
type Logger struct {
	db *database.DB
}

// NewLogger creates a new audit logger
func NewLogger(db *database.DB) *Logger {
	return &Logger{db: db}
}

// Transaction runs fn inside a single database transaction and records
// an audit entry for action in that same transaction. fn receives the
// transaction for its own writes plus the pending entry so it can attach
// metadata. If fn fails everything rolls back, including the audit row.
func (l *Logger) Transaction(ctx context.Context, action, serverID string, userID *int64, fn func(tx *sql.Tx, entry *Entry) error) error {
	entry := &Entry{
		UUID:      uuid.New().String(),
		ServerID:  serverID,
		UserID:    userID,
		Action:    action,
		Metadata:  make(map[string]interface{}),
		CreatedAt: time.Now(),
	}

	return l.db.WithTx(ctx, func(tx *sql.Tx) error {
		if err := fn(tx, entry); err != nil {
			return err
		}
		return l.insert(tx, entry)
	})
}

// Record writes a standalone audit entry outside any caller transaction.
func (l *Logger) Record(ctx context.Context, action, serverID string, userID *int64, metadata map[string]interface{}) error {
	entry := &Entry{
		UUID:      uuid.New().String(),
		ServerID:  serverID,
		UserID:    userID,
		Action:    action,
		Metadata:  metadata,
		CreatedAt: time.Now(),
	}

	return l.db.WithTx(ctx, func(tx *sql.Tx) error {
		return l.insert(tx, entry)
	})
}

func (l *Logger) insert(tx *sql.Tx, entry *Entry) error {
	metadataJSON, err := json.Marshal(entry.Metadata)
	if err != nil {
		return fmt.Errorf("failed to marshal audit metadata: %w", err)
	}

	query := `
		INSERT INTO audit_log (uuid, server_id, user_id, action, metadata, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`

	var serverID interface{}
	if entry.ServerID != "" {
		serverID = entry.ServerID
	}

	if _, err := tx.Exec(query,
		entry.UUID,
		serverID,
		entry.UserID,
		entry.Action,
		string(metadataJSON),
		entry.CreatedAt,
	); err != nil {
		return fmt.Errorf("failed to insert audit entry: %w", err)
	}

	return nil
}

// GetEntries retrieves audit entries, newest first. serverID and action
// filter when non-empty; limit caps the result when positive.
func (l *Logger) GetEntries(ctx context.Context, serverID, action string, limit int) ([]*Entry, error) {
	query := `
		SELECT id, uuid, server_id, user_id, action, metadata, created_at
		FROM audit_log
		WHERE 1=1
	`
	args := make([]interface{}, 0)

	if serverID != "" {
		query += " AND server_id = ?"
		args = append(args, serverID)
	}

	if action != "" {
		query += " AND action = ?"
		args = append(args, action)
	}

	query += " ORDER BY created_at DESC"

	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := l.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query audit entries: %w", err)
	}
	defer rows.Close()

	entries := make([]*Entry, 0)

	for rows.Next() {
		entry := &Entry{}
		var srvID sql.NullString
		var userID sql.NullInt64
		var metadataJSON sql.NullString

		if err := rows.Scan(
			&entry.ID,
			&entry.UUID,
			&srvID,
			&userID,
			&entry.Action,
			&metadataJSON,
			&entry.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan audit entry: %w", err)
		}

		if srvID.Valid {
			entry.ServerID = srvID.String
		}

		if userID.Valid {
			uid := userID.Int64
			entry.UserID = &uid
		}

		if metadataJSON.Valid && metadataJSON.String != "" {
			if err := json.Unmarshal([]byte(metadataJSON.String), &entry.Metadata); err != nil {
				log.Printf("[Audit] Failed to parse metadata for entry %s: %v", entry.UUID, err)
			}
		}

		entries = append(entries, entry)
	}

	return entries, rows.Err()
}
