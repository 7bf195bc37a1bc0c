package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/warden-panel/warden/internal/audit"
	"github.com/warden-panel/warden/internal/backup"
	"github.com/warden-panel/warden/internal/config"
	"github.com/warden-panel/warden/internal/database"
	"github.com/warden-panel/warden/internal/models"
	"github.com/warden-panel/warden/internal/schedule"
	"github.com/warden-panel/warden/internal/server"
	"github.com/warden-panel/warden/internal/websocket"
)

const testCallbackToken = "remote-secret"

type stubDaemon struct {
	err error
}

func (s *stubDaemon) CreateBackup(ctx context.Context, serverID, backupUUID, adapter string, ignoredFiles []string) error {
	return s.err
}

func (s *stubDaemon) DeleteBackup(ctx context.Context, serverID, backupUUID string) error {
	return s.err
}

func (s *stubDaemon) RestoreBackup(ctx context.Context, serverID, backupUUID, downloadURL string, truncate bool) error {
	return s.err
}

type stubStorage struct{}

func (stubStorage) DeleteObject(ctx context.Context, serverID, backupUUID string) error {
	return nil
}

func (stubStorage) PresignDownload(ctx context.Context, serverID, backupUUID string, expiry time.Duration) (string, error) {
	return "https://storage.test/" + backupUUID, nil
}

type testEnv struct {
	router  http.Handler
	db      *database.DB
	backups *backup.Store
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db, err := database.NewDB(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if err := db.Migrate(); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte("hunter22"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("failed to hash password: %v", err)
	}
	if _, err := db.Exec(
		`INSERT INTO users (username, email, password_hash) VALUES ('admin', 'admin@test', ?)`,
		string(hash),
	); err != nil {
		t.Fatalf("failed to seed user: %v", err)
	}
	if _, err := db.Exec(`INSERT INTO servers (id, name, backup_limit) VALUES ('s1', 'one', 5)`); err != nil {
		t.Fatalf("failed to seed server: %v", err)
	}

	cfg := config.Defaults()
	cfg.Auth.JWTSecret = "test-secret"
	cfg.Daemon.CallbackToken = testCallbackToken

	auditor := audit.NewLogger(db)
	serverStore := server.NewStore(db.DB)
	backupStore := backup.NewStore(db.DB)
	dm := &stubDaemon{}
	links := backup.NewDownloadLinkIssuer(stubStorage{}, time.Minute)

	router := SetupRouter(cfg, db, Services{
		Servers:   serverStore,
		Backups:   backupStore,
		Schedules: schedule.NewStore(db.DB),
		Initiator: backup.NewInitiator(backupStore, dm, auditor, models.BackupAdapterS3),
		Deleter:   backup.NewDeleter(backupStore, stubStorage{}, dm, auditor),
		Restorer:  backup.NewRestorer(serverStore, links, dm, auditor),
		Links:     links,
		Auditor:   auditor,
		Hub:       websocket.NewHub(),
	})

	return &testEnv{router: router, db: db, backups: backupStore}
}

func (e *testEnv) request(t *testing.T, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("failed to encode body: %v", err)
		}
	}

	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func (e *testEnv) login(t *testing.T) string {
	t.Helper()

	w := e.request(t, http.MethodPost, "/api/client/auth/login", "", map[string]string{
		"username": "admin",
		"password": "hunter22",
	})
	if w.Code != http.StatusOK {
		t.Fatalf("login failed: %d %s", w.Code, w.Body.String())
	}

	var resp struct {
		Token string `json:"token"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode login response: %v", err)
	}
	return resp.Token
}

func TestLoginRejectsBadPassword(t *testing.T) {
	env := newTestEnv(t)

	w := env.request(t, http.MethodPost, "/api/client/auth/login", "", map[string]string{
		"username": "admin",
		"password": "wrong",
	})
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", w.Code)
	}
}

func TestBackupRoutesRequireAuth(t *testing.T) {
	env := newTestEnv(t)

	w := env.request(t, http.MethodGet, "/api/client/servers/s1/backups", "", nil)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", w.Code)
	}
}

func TestCreateAndCompleteBackup(t *testing.T) {
	env := newTestEnv(t)
	token := env.login(t)

	w := env.request(t, http.MethodPost, "/api/client/servers/s1/backups", token, map[string]string{
		"name":          "nightly",
		"ignored_files": "*.log\ncache/",
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("create failed: %d %s", w.Code, w.Body.String())
	}

	var created models.Backup
	if err := json.Unmarshal(w.Body.Bytes(), &created); err != nil {
		t.Fatalf("failed to decode backup: %v", err)
	}
	if created.CompletedAt != nil {
		t.Fatal("new backup must be pending")
	}

	// Daemon callback without the shared token is rejected.
	w = env.request(t, http.MethodPost, "/api/remote/backups/"+created.UUID, "", map[string]interface{}{
		"successful": true,
	})
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without callback token, got %d", w.Code)
	}

	w = env.request(t, http.MethodPost, "/api/remote/backups/"+created.UUID, testCallbackToken, map[string]interface{}{
		"successful": true,
		"checksum":   "sha1:abc",
		"bytes":      4096,
	})
	if w.Code != http.StatusNoContent {
		t.Fatalf("callback failed: %d %s", w.Code, w.Body.String())
	}

	// A duplicate callback must not overwrite the first result.
	w = env.request(t, http.MethodPost, "/api/remote/backups/"+created.UUID, testCallbackToken, map[string]interface{}{
		"successful": false,
	})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 on duplicate callback, got %d", w.Code)
	}

	got, err := env.backups.GetByUUID(context.Background(), created.UUID)
	if err != nil {
		t.Fatalf("failed to reload backup: %v", err)
	}
	if !got.IsSuccessful || got.Bytes != 4096 {
		t.Fatalf("first completion was overwritten: %+v", got)
	}
}

func TestCreateBackupConflictsWhileBusy(t *testing.T) {
	env := newTestEnv(t)
	token := env.login(t)

	if _, err := env.db.Exec(`UPDATE servers SET status = 'installing' WHERE id = 's1'`); err != nil {
		t.Fatalf("failed to set status: %v", err)
	}

	w := env.request(t, http.MethodPost, "/api/client/servers/s1/backups", token, map[string]string{})
	if w.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d %s", w.Code, w.Body.String())
	}
}

func TestRestoreCompleteCallbackClearsStatus(t *testing.T) {
	env := newTestEnv(t)

	if _, err := env.db.Exec(`UPDATE servers SET status = 'restoring_backup' WHERE id = 's1'`); err != nil {
		t.Fatalf("failed to set status: %v", err)
	}

	w := env.request(t, http.MethodPost, "/api/remote/servers/s1/restore-complete", testCallbackToken, map[string]interface{}{
		"successful": true,
	})
	if w.Code != http.StatusNoContent {
		t.Fatalf("callback failed: %d %s", w.Code, w.Body.String())
	}

	var status *string
	if err := env.db.QueryRow(`SELECT status FROM servers WHERE id = 's1'`).Scan(&status); err != nil {
		t.Fatalf("query failed: %v", err)
	}
	if status != nil {
		t.Fatalf("status must be cleared, got %q", *status)
	}
}

func TestDownloadLinkForOffBoxBackup(t *testing.T) {
	env := newTestEnv(t)
	token := env.login(t)

	w := env.request(t, http.MethodPost, "/api/client/servers/s1/backups", token, map[string]string{"name": "dl"})
	if w.Code != http.StatusCreated {
		t.Fatalf("create failed: %d", w.Code)
	}
	var created models.Backup
	if err := json.Unmarshal(w.Body.Bytes(), &created); err != nil {
		t.Fatalf("failed to decode backup: %v", err)
	}

	w = env.request(t, http.MethodGet, "/api/client/servers/s1/backups/"+created.UUID+"/download", token, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("download link failed: %d %s", w.Code, w.Body.String())
	}

	var resp struct {
		URL string `json:"url"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.URL != "https://storage.test/"+created.UUID {
		t.Fatalf("unexpected url %q", resp.URL)
	}
}
