package backup

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/warden-panel/warden/internal/audit"
	"github.com/warden-panel/warden/internal/models"
)

func TestInitiateCreatesPendingRecord(t *testing.T) {
	db := newTestDB(t)
	srv := seedServer(t, db, "s1", 5, nil)

	dm := &fakeDaemon{}
	store := NewStore(db.DB)
	initiator := NewInitiator(store, dm, newAuditor(db), models.BackupAdapterS3)

	b, err := initiator.Initiate(context.Background(), srv, nil, "nightly", "*.log\ncache/\n\n")
	if err != nil {
		t.Fatalf("initiate failed: %v", err)
	}

	if b.UUID == "" {
		t.Fatal("expected a generated uuid")
	}
	if b.Name != "nightly" {
		t.Fatalf("expected name nightly, got %q", b.Name)
	}
	if b.Disk != models.BackupAdapterS3 {
		t.Fatalf("expected s3 adapter, got %q", b.Disk)
	}
	if b.IsSuccessful {
		t.Fatal("new backup must not be marked successful")
	}
	if b.CompletedAt != nil {
		t.Fatal("new backup must be pending")
	}
	if len(b.IgnoredFiles) != 2 || b.IgnoredFiles[0] != "*.log" || b.IgnoredFiles[1] != "cache/" {
		t.Fatalf("unexpected ignored files: %v", b.IgnoredFiles)
	}

	if dm.createCalls != 1 {
		t.Fatalf("expected one daemon call, got %d", dm.createCalls)
	}
	if len(dm.lastIgnored) != 2 {
		t.Fatalf("daemon did not receive ignore patterns: %v", dm.lastIgnored)
	}

	stored, err := store.GetByUUID(context.Background(), b.UUID)
	if err != nil {
		t.Fatalf("failed to load stored backup: %v", err)
	}
	if !stored.IsPending() {
		t.Fatal("stored backup should be pending")
	}

	if n := countAuditRows(t, db, audit.ActionBackupStarted); n != 1 {
		t.Fatalf("expected 1 audit row, got %d", n)
	}
}

func TestInitiateDefaultName(t *testing.T) {
	db := newTestDB(t)
	srv := seedServer(t, db, "s1", 5, nil)

	initiator := NewInitiator(NewStore(db.DB), &fakeDaemon{}, newAuditor(db), models.BackupAdapterLocal)

	b, err := initiator.Initiate(context.Background(), srv, nil, "", "")
	if err != nil {
		t.Fatalf("initiate failed: %v", err)
	}

	if !strings.HasPrefix(b.Name, "Backup at ") {
		t.Fatalf("expected derived default name, got %q", b.Name)
	}
	if len(b.IgnoredFiles) != 0 {
		t.Fatalf("expected no ignore patterns, got %v", b.IgnoredFiles)
	}
}

func TestInitiateRejectsLongName(t *testing.T) {
	db := newTestDB(t)
	srv := seedServer(t, db, "s1", 5, nil)

	dm := &fakeDaemon{}
	initiator := NewInitiator(NewStore(db.DB), dm, newAuditor(db), models.BackupAdapterLocal)

	_, err := initiator.Initiate(context.Background(), srv, nil, strings.Repeat("a", models.BackupNameMaxLength+1), "")

	var verr *models.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if dm.createCalls != 0 {
		t.Fatal("daemon must not be called for invalid input")
	}
}

func TestInitiateEnforcesBackupLimit(t *testing.T) {
	db := newTestDB(t)
	srv := seedServer(t, db, "s1", 1, nil)

	initiator := NewInitiator(NewStore(db.DB), &fakeDaemon{}, newAuditor(db), models.BackupAdapterLocal)

	if _, err := initiator.Initiate(context.Background(), srv, nil, "first", ""); err != nil {
		t.Fatalf("first initiate failed: %v", err)
	}

	_, err := initiator.Initiate(context.Background(), srv, nil, "second", "")
	if !errors.Is(err, ErrTooManyBackups) {
		t.Fatalf("expected ErrTooManyBackups, got %v", err)
	}
}

func TestInitiateZeroLimitDisablesBackups(t *testing.T) {
	db := newTestDB(t)
	srv := seedServer(t, db, "s1", 0, nil)

	initiator := NewInitiator(NewStore(db.DB), &fakeDaemon{}, newAuditor(db), models.BackupAdapterLocal)

	_, err := initiator.Initiate(context.Background(), srv, nil, "any", "")
	if !errors.Is(err, ErrTooManyBackups) {
		t.Fatalf("expected ErrTooManyBackups, got %v", err)
	}
}

func TestInitiateDaemonFailureLeavesPendingRecord(t *testing.T) {
	db := newTestDB(t)
	srv := seedServer(t, db, "s1", 5, nil)

	dm := &fakeDaemon{createErr: errors.New("dial refused")}
	store := NewStore(db.DB)
	initiator := NewInitiator(store, dm, newAuditor(db), models.BackupAdapterLocal)

	_, err := initiator.Initiate(context.Background(), srv, nil, "doomed", "")
	if err == nil {
		t.Fatal("expected daemon error to propagate")
	}

	// The pending record was committed before the daemon call and must
	// survive it; the audit row must not.
	backups, err := store.ListForServer(context.Background(), srv.ID)
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(backups) != 1 || !backups[0].IsPending() {
		t.Fatalf("expected one orphaned pending record, got %v", backups)
	}

	if n := countAuditRows(t, db, audit.ActionBackupStarted); n != 0 {
		t.Fatalf("expected no audit rows after rollback, got %d", n)
	}
}
