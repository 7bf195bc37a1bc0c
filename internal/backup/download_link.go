package backup

import (
	"context"
	"fmt"
	"time"

	"github.com/warden-panel/warden/internal/models"
)

// DownloadLinkIssuer hands out time-limited signed URLs for off-box
// backup archives. Local backups never get a URL; the daemon already
// holds their files.
type DownloadLinkIssuer struct {
	storage ObjectStorage
	expiry  time.Duration
}

// NewDownloadLinkIssuer creates a new download link issuer
func NewDownloadLinkIssuer(storage ObjectStorage, expiry time.Duration) *DownloadLinkIssuer {
	return &DownloadLinkIssuer{storage: storage, expiry: expiry}
}

// Issue returns a signed download URL for b.
func (i *DownloadLinkIssuer) Issue(ctx context.Context, b *models.Backup) (string, error) {
	if b.Disk != models.BackupAdapterS3 {
		return "", fmt.Errorf("%w: cannot issue download link for %q backup", ErrInvalidAdapter, b.Disk)
	}

	// Off-box records can outlive an adapter switch back to local, in
	// which case no object storage is wired at all.
	if i.storage == nil {
		return "", fmt.Errorf("%w: no object storage is configured", ErrInvalidAdapter)
	}

	return i.storage.PresignDownload(ctx, b.ServerID, b.UUID, i.expiry)
}
