package backup

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/warden-panel/warden/internal/models"
)

// Store persists backup records. Soft-deleted rows are invisible to
// every read path; they remain in the table for auditability only.
type Store struct {
	db *sql.DB
}

// NewStore creates a new backup store
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

const backupColumns = `
	id, uuid, server_id, name, disk, ignored_files, checksum,
	bytes, is_successful, completed_at, created_at, deleted_at
`

// Create inserts a pending backup record. When tx is non-nil the insert
// joins the caller's transaction.
func (s *Store) Create(ctx context.Context, tx *sql.Tx, b *models.Backup) error {
	ignoredJSON, err := json.Marshal(b.IgnoredFiles)
	if err != nil {
		return fmt.Errorf("failed to marshal ignored files: %w", err)
	}

	b.CreatedAt = time.Now()

	query := `
		INSERT INTO backups (uuid, server_id, name, disk, ignored_files, checksum, bytes, is_successful, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	args := []interface{}{
		b.UUID,
		b.ServerID,
		b.Name,
		b.Disk,
		string(ignoredJSON),
		b.Checksum,
		b.Bytes,
		b.IsSuccessful,
		b.CreatedAt,
	}

	var res sql.Result
	if tx != nil {
		res, err = tx.ExecContext(ctx, query, args...)
	} else {
		res, err = s.db.ExecContext(ctx, query, args...)
	}
	if err != nil {
		return fmt.Errorf("failed to insert backup: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to read backup id: %w", err)
	}
	b.ID = id

	return nil
}

// GetByUUID retrieves a live backup by its uuid.
func (s *Store) GetByUUID(ctx context.Context, uuid string) (*models.Backup, error) {
	query := `
		SELECT ` + backupColumns + `
		FROM backups
		WHERE uuid = ? AND deleted_at IS NULL
	`

	return scanBackup(s.db.QueryRowContext(ctx, query, uuid))
}

// ListForServer retrieves all live backups for a server, newest first.
func (s *Store) ListForServer(ctx context.Context, serverID string) ([]*models.Backup, error) {
	query := `
		SELECT ` + backupColumns + `
		FROM backups
		WHERE server_id = ? AND deleted_at IS NULL
		ORDER BY created_at DESC
	`

	rows, err := s.db.QueryContext(ctx, query, serverID)
	if err != nil {
		return nil, fmt.Errorf("failed to query backups: %w", err)
	}
	defer rows.Close()

	backups := make([]*models.Backup, 0)

	for rows.Next() {
		b, err := scanBackup(rows)
		if err != nil {
			return nil, err
		}
		backups = append(backups, b)
	}

	return backups, rows.Err()
}

// CountForServer counts live backups for a server. Pending backups
// count toward the limit; failed ones do not.
func (s *Store) CountForServer(ctx context.Context, serverID string) (int, error) {
	query := `
		SELECT COUNT(*)
		FROM backups
		WHERE server_id = ? AND deleted_at IS NULL
		  AND (completed_at IS NULL OR is_successful = 1)
	`

	var count int
	if err := s.db.QueryRowContext(ctx, query, serverID).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count backups: %w", err)
	}

	return count, nil
}

// MarkCompleted records the outcome of a backup exactly once. The guard
// on completed_at makes a duplicate callback lose the race and return
// ErrAlreadyCompleted instead of overwriting the first result.
func (s *Store) MarkCompleted(ctx context.Context, tx *sql.Tx, uuid string, successful bool, checksum string, bytes int64) error {
	query := `
		UPDATE backups
		SET is_successful = ?, checksum = ?, bytes = ?, completed_at = ?
		WHERE uuid = ? AND deleted_at IS NULL AND completed_at IS NULL
	`

	var res sql.Result
	var err error
	if tx != nil {
		res, err = tx.ExecContext(ctx, query, successful, checksum, bytes, time.Now(), uuid)
	} else {
		res, err = s.db.ExecContext(ctx, query, successful, checksum, bytes, time.Now(), uuid)
	}
	if err != nil {
		return fmt.Errorf("failed to complete backup: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read rows affected: %w", err)
	}

	if affected == 0 {
		if _, getErr := s.GetByUUID(ctx, uuid); getErr != nil {
			return getErr
		}
		return ErrAlreadyCompleted
	}

	return nil
}

// SoftDelete marks a backup deleted. When tx is non-nil the update joins
// the caller's transaction.
func (s *Store) SoftDelete(ctx context.Context, tx *sql.Tx, uuid string) error {
	query := `
		UPDATE backups
		SET deleted_at = ?
		WHERE uuid = ? AND deleted_at IS NULL
	`

	var res sql.Result
	var err error
	if tx != nil {
		res, err = tx.ExecContext(ctx, query, time.Now(), uuid)
	} else {
		res, err = s.db.ExecContext(ctx, query, time.Now(), uuid)
	}
	if err != nil {
		return fmt.Errorf("failed to delete backup: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read rows affected: %w", err)
	}

	if affected == 0 {
		return ErrNotFound
	}

	return nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanBackup(row rowScanner) (*models.Backup, error) {
	b := &models.Backup{}
	var ignoredJSON string
	var checksum sql.NullString
	var completedAt sql.NullTime
	var deletedAt sql.NullTime

	err := row.Scan(
		&b.ID,
		&b.UUID,
		&b.ServerID,
		&b.Name,
		&b.Disk,
		&ignoredJSON,
		&checksum,
		&b.Bytes,
		&b.IsSuccessful,
		&completedAt,
		&b.CreatedAt,
		&deletedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan backup: %w", err)
	}

	if ignoredJSON != "" {
		if err := json.Unmarshal([]byte(ignoredJSON), &b.IgnoredFiles); err != nil {
			return nil, fmt.Errorf("failed to parse ignored files for %s: %w", b.UUID, err)
		}
	}
	if b.IgnoredFiles == nil {
		b.IgnoredFiles = []string{}
	}

	if checksum.Valid {
		b.Checksum = checksum.String
	}
	if completedAt.Valid {
		t := completedAt.Time
		b.CompletedAt = &t
	}
	if deletedAt.Valid {
		t := deletedAt.Time
		b.DeletedAt = &t
	}

	return b, nil
}
