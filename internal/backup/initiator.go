package backup

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/warden-panel/warden/internal/audit"
	"github.com/warden-panel/warden/internal/daemon"
	"github.com/warden-panel/warden/internal/models"
)

// Initiator reserves a backup record and instructs the daemon to begin a
// snapshot. The record is committed before the daemon is contacted, so a
// failed daemon call leaves a visible pending record rather than losing
// the attempt entirely.
type Initiator struct {
	store   *Store
	daemon  daemon.Client
	auditor *audit.Logger
	adapter string
}

// NewInitiator creates a new backup initiator. adapter is the storage
// adapter applied to new backups, from panel configuration.
func NewInitiator(store *Store, daemonClient daemon.Client, auditor *audit.Logger, adapter string) *Initiator {
	return &Initiator{
		store:   store,
		daemon:  daemonClient,
		auditor: auditor,
		adapter: adapter,
	}
}

// Initiate creates a pending backup for srv and asks the daemon to start
// it. name may be empty; ignoredRaw is newline-delimited glob patterns
// with blank lines dropped.
func (i *Initiator) Initiate(ctx context.Context, srv *models.Server, userID *int64, name, ignoredRaw string) (*models.Backup, error) {
	if len(name) > models.BackupNameMaxLength {
		return nil, &models.ValidationError{
			Field:   "name",
			Message: fmt.Sprintf("must be %d characters or fewer", models.BackupNameMaxLength),
		}
	}

	if name == "" {
		name = fmt.Sprintf("Backup at %s", time.Now().Format("2006-01-02 15:04:05"))
	}

	if srv.BackupLimit <= 0 {
		return nil, fmt.Errorf("%w: backups are disabled for this server", ErrTooManyBackups)
	}

	count, err := i.store.CountForServer(ctx, srv.ID)
	if err != nil {
		return nil, err
	}
	if count >= srv.BackupLimit {
		return nil, fmt.Errorf("%w: limit is %d", ErrTooManyBackups, srv.BackupLimit)
	}

	b := &models.Backup{
		UUID:         uuid.New().String(),
		ServerID:     srv.ID,
		Name:         name,
		Disk:         i.adapter,
		IgnoredFiles: splitIgnored(ignoredRaw),
	}

	// Commit the pending record on its own before the daemon is
	// involved. If the daemon call below fails, the record survives as
	// an orphaned pending entry that operators can see and clean up.
	if err := i.store.Create(ctx, nil, b); err != nil {
		return nil, err
	}

	err = i.auditor.Transaction(ctx, audit.ActionBackupStarted, srv.ID, userID, func(tx *sql.Tx, entry *audit.Entry) error {
		entry.Metadata["backup_uuid"] = b.UUID
		entry.Metadata["name"] = b.Name
		entry.Metadata["adapter"] = b.Disk

		return i.daemon.CreateBackup(ctx, srv.ID, b.UUID, b.Disk, b.IgnoredFiles)
	})
	if err != nil {
		log.Printf("[Backup] Daemon refused backup %s for server %s, record left pending: %v", b.UUID, srv.ID, err)
		return nil, err
	}

	log.Printf("[Backup] Started backup %s (%s) for server %s", b.UUID, b.Name, srv.ID)
	return b, nil
}

// splitIgnored turns raw newline-delimited glob input into an ordered
// pattern list, dropping blank entries.
func splitIgnored(raw string) []string {
	patterns := make([]string, 0)
	for _, line := range strings.Split(raw, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		patterns = append(patterns, line)
	}
	return patterns
}
