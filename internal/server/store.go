package server

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/warden-panel/warden/internal/models"
)

// ErrNotFound is returned when a server id does not exist.
var ErrNotFound = errors.New("server not found")

// ErrStatusConflict is returned when a conditional status update loses to
// a concurrent exclusive operation.
var ErrStatusConflict = errors.New("server status already set")

// Store persists server records.
type Store struct {
	db *sql.DB
}

// NewStore creates a new server store
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// Create inserts a server record.
func (s *Store) Create(ctx context.Context, srv *models.Server) error {
	now := time.Now()
	srv.CreatedAt = now
	srv.UpdatedAt = now

	query := `
		INSERT INTO servers (id, name, status, backup_limit, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`

	if _, err := s.db.ExecContext(ctx, query,
		srv.ID,
		srv.Name,
		srv.Status,
		srv.BackupLimit,
		srv.CreatedAt,
		srv.UpdatedAt,
	); err != nil {
		return fmt.Errorf("failed to insert server: %w", err)
	}

	return nil
}

// Get retrieves a server by id.
func (s *Store) Get(ctx context.Context, id string) (*models.Server, error) {
	query := `
		SELECT id, name, status, backup_limit, created_at, updated_at
		FROM servers
		WHERE id = ?
	`

	return scanServer(s.db.QueryRowContext(ctx, query, id))
}

// List retrieves all servers ordered by name.
func (s *Store) List(ctx context.Context) ([]*models.Server, error) {
	query := `
		SELECT id, name, status, backup_limit, created_at, updated_at
		FROM servers
		ORDER BY name
	`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query servers: %w", err)
	}
	defer rows.Close()

	servers := make([]*models.Server, 0)

	for rows.Next() {
		srv, err := scanServer(rows)
		if err != nil {
			return nil, err
		}
		servers = append(servers, srv)
	}

	return servers, rows.Err()
}

// SetStatusIfClear sets the server status only if no status is currently
// set. The condition and the write happen in one statement, so two
// concurrent callers cannot both win; the loser gets ErrStatusConflict.
// When tx is non-nil the update joins the caller's transaction.
func (s *Store) SetStatusIfClear(ctx context.Context, tx *sql.Tx, id, status string) error {
	query := `
		UPDATE servers
		SET status = ?, updated_at = ?
		WHERE id = ? AND status IS NULL
	`

	var res sql.Result
	var err error
	if tx != nil {
		res, err = tx.ExecContext(ctx, query, status, time.Now(), id)
	} else {
		res, err = s.db.ExecContext(ctx, query, status, time.Now(), id)
	}
	if err != nil {
		return fmt.Errorf("failed to update server status: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read rows affected: %w", err)
	}

	if affected == 0 {
		// Either the server is missing or another operation holds the
		// status. Distinguish so callers can report the right error.
		if _, getErr := s.Get(ctx, id); getErr != nil {
			return getErr
		}
		return ErrStatusConflict
	}

	return nil
}

// ClearStatus resets the server status to null, ending any exclusive
// operation. Clearing an already-clear status is not an error.
func (s *Store) ClearStatus(ctx context.Context, id string) error {
	query := `
		UPDATE servers
		SET status = NULL, updated_at = ?
		WHERE id = ?
	`

	res, err := s.db.ExecContext(ctx, query, time.Now(), id)
	if err != nil {
		return fmt.Errorf("failed to clear server status: %w", err)
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

func scanServer(row rowScanner) (*models.Server, error) {
	srv := &models.Server{}
	var status sql.NullString

	err := row.Scan(
		&srv.ID,
		&srv.Name,
		&status,
		&srv.BackupLimit,
		&srv.CreatedAt,
		&srv.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan server: %w", err)
	}

	if status.Valid {
		srv.Status = &status.String
	}

	return srv, nil
}
