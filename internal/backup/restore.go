package backup

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"

	"github.com/warden-panel/warden/internal/audit"
	"github.com/warden-panel/warden/internal/daemon"
	"github.com/warden-panel/warden/internal/models"
	"github.com/warden-panel/warden/internal/server"
)

// Restorer drives a backup restore: it takes exclusive ownership of the
// server via the status field, then hands the work to the daemon. The
// daemon restores asynchronously; a later callback clears the status.
type Restorer struct {
	servers *server.Store
	links   *DownloadLinkIssuer
	daemon  daemon.Client
	auditor *audit.Logger
}

// NewRestorer creates a new backup restorer
func NewRestorer(servers *server.Store, links *DownloadLinkIssuer, daemonClient daemon.Client, auditor *audit.Logger) *Restorer {
	return &Restorer{
		servers: servers,
		links:   links,
		daemon:  daemonClient,
		auditor: auditor,
	}
}

// Restore starts restoring b onto srv. truncate wipes the server's files
// before the restore is applied. The status flip, the audit row and the
// daemon handoff commit together; if the daemon refuses, the server is
// left untouched and idle.
func (r *Restorer) Restore(ctx context.Context, srv *models.Server, b *models.Backup, userID *int64, truncate bool) error {
	if !srv.IsIdle() {
		return fmt.Errorf("%w: server status is %q", ErrConflict, *srv.Status)
	}

	if !b.Restorable() {
		return ErrNotRestorable
	}

	// For off-box backups the daemon needs a signed URL to pull the
	// archive. Acquire it before mutating anything so a storage failure
	// leaves no trace.
	var downloadURL string
	if b.Disk == models.BackupAdapterS3 {
		url, err := r.links.Issue(ctx, b)
		if err != nil {
			return err
		}
		downloadURL = url
	}

	err := r.auditor.Transaction(ctx, audit.ActionBackupRestoreStarted, srv.ID, userID, func(tx *sql.Tx, entry *audit.Entry) error {
		entry.Metadata["backup_uuid"] = b.UUID
		entry.Metadata["truncate"] = truncate

		// The conditional update is the real mutual exclusion; the idle
		// check above only gives callers a fast answer.
		if err := r.servers.SetStatusIfClear(ctx, tx, srv.ID, models.ServerStatusRestoringBackup); err != nil {
			if errors.Is(err, server.ErrStatusConflict) {
				return fmt.Errorf("%w: lost status race", ErrConflict)
			}
			return err
		}

		return r.daemon.RestoreBackup(ctx, srv.ID, b.UUID, downloadURL, truncate)
	})
	if err != nil {
		return err
	}

	log.Printf("[Backup] Restore of %s started on server %s (truncate=%v)", b.UUID, srv.ID, truncate)
	return nil
}
