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
)

// Deleter removes backups end to end: daemon artifacts, off-box objects,
// then the record itself. The whole operation is idempotent; deleting a
// backup whose artifacts are already gone still succeeds.
type Deleter struct {
	store   *Store
	storage ObjectStorage
	daemon  daemon.Client
	auditor *audit.Logger
}

// NewDeleter creates a new backup deleter
func NewDeleter(store *Store, storage ObjectStorage, daemonClient daemon.Client, auditor *audit.Logger) *Deleter {
	return &Deleter{
		store:   store,
		storage: storage,
		daemon:  daemonClient,
		auditor: auditor,
	}
}

// Delete removes b. The daemon call is advisory: the daemon being down
// must not strand off-box objects or block record deletion. An off-box
// storage failure other than not-found aborts before the record is
// touched, so no record is ever left pointing at a deleted object and
// no object is ever orphaned by a deleted record.
func (d *Deleter) Delete(ctx context.Context, b *models.Backup, userID *int64) error {
	if err := d.daemon.DeleteBackup(ctx, b.ServerID, b.UUID); err != nil {
		if errors.Is(err, daemon.ErrNotFound) {
			log.Printf("[Backup] Daemon has no artifacts for backup %s, continuing", b.UUID)
		} else {
			log.Printf("[Backup] Daemon cleanup for backup %s failed, continuing: %v", b.UUID, err)
		}
	}

	return d.auditor.Transaction(ctx, audit.ActionBackupDeleted, b.ServerID, userID, func(tx *sql.Tx, entry *audit.Entry) error {
		entry.Metadata["backup_uuid"] = b.UUID
		entry.Metadata["name"] = b.Name

		if b.Disk == models.BackupAdapterS3 {
			// An off-box record with no object storage wired (adapter
			// switched back to local) must fail, not panic; deleting the
			// record anyway would orphan the object.
			if d.storage == nil {
				return fmt.Errorf("%w: no object storage is configured", ErrStorage)
			}
			if err := d.storage.DeleteObject(ctx, b.ServerID, b.UUID); err != nil {
				return err
			}
		}

		// A record that is already soft-deleted is the outcome we want;
		// repeating the delete stays successful.
		if err := d.store.SoftDelete(ctx, tx, b.UUID); err != nil && !errors.Is(err, ErrNotFound) {
			return err
		}
		return nil
	})
}
