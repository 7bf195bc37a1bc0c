package backup

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/warden-panel/warden/internal/audit"
	"github.com/warden-panel/warden/internal/database"
	"github.com/warden-panel/warden/internal/models"
)

// fakeDaemon records calls and returns configured errors.
type fakeDaemon struct {
	createErr  error
	deleteErr  error
	restoreErr error

	createCalls  int
	deleteCalls  int
	restoreCalls int

	lastIgnored  []string
	lastURL      string
	lastTruncate bool
}

func (f *fakeDaemon) CreateBackup(ctx context.Context, serverID, backupUUID, adapter string, ignoredFiles []string) error {
	f.createCalls++
	f.lastIgnored = ignoredFiles
	return f.createErr
}

func (f *fakeDaemon) DeleteBackup(ctx context.Context, serverID, backupUUID string) error {
	f.deleteCalls++
	return f.deleteErr
}

func (f *fakeDaemon) RestoreBackup(ctx context.Context, serverID, backupUUID, downloadURL string, truncate bool) error {
	f.restoreCalls++
	f.lastURL = downloadURL
	f.lastTruncate = truncate
	return f.restoreErr
}

// fakeStorage records deletions and hands out a canned presigned URL.
type fakeStorage struct {
	deleteErr  error
	presignErr error

	deleted   []string
	presigned int
	url       string
}

func (f *fakeStorage) DeleteObject(ctx context.Context, serverID, backupUUID string) error {
	if f.deleteErr != nil {
		return f.deleteErr
	}
	f.deleted = append(f.deleted, backupUUID)
	return nil
}

func (f *fakeStorage) PresignDownload(ctx context.Context, serverID, backupUUID string, expiry time.Duration) (string, error) {
	if f.presignErr != nil {
		return "", f.presignErr
	}
	f.presigned++
	if f.url != "" {
		return f.url, nil
	}
	return "https://storage.test/" + backupUUID, nil
}

func newTestDB(t *testing.T) *database.DB {
	t.Helper()

	db, err := database.NewDB(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if err := db.Migrate(); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}

	return db
}

func seedServer(t *testing.T, db *database.DB, id string, backupLimit int, status *string) *models.Server {
	t.Helper()

	if _, err := db.Exec(
		`INSERT INTO servers (id, name, status, backup_limit) VALUES (?, ?, ?, ?)`,
		id, "srv-"+id, status, backupLimit,
	); err != nil {
		t.Fatalf("failed to seed server: %v", err)
	}

	return &models.Server{ID: id, Name: "srv-" + id, Status: status, BackupLimit: backupLimit}
}

func countAuditRows(t *testing.T, db *database.DB, action string) int {
	t.Helper()

	var n int
	if err := db.QueryRow(`SELECT COUNT(*) FROM audit_log WHERE action = ?`, action).Scan(&n); err != nil {
		t.Fatalf("failed to count audit rows: %v", err)
	}
	return n
}

func newAuditor(db *database.DB) *audit.Logger {
	return audit.NewLogger(db)
}

func strPtr(s string) *string {
	return &s
}
