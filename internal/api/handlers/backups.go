package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/warden-panel/warden/internal/api/middleware"
	"github.com/warden-panel/warden/internal/backup"
	"github.com/warden-panel/warden/internal/daemon"
	"github.com/warden-panel/warden/internal/models"
	"github.com/warden-panel/warden/internal/server"
	"github.com/warden-panel/warden/internal/websocket"
)

// BackupHandler drives the backup lifecycle over the client API.
type BackupHandler struct {
	servers   *server.Store
	backups   *backup.Store
	initiator *backup.Initiator
	deleter   *backup.Deleter
	restorer  *backup.Restorer
	links     *backup.DownloadLinkIssuer
	hub       *websocket.Hub
}

// NewBackupHandler creates a new backup handler
func NewBackupHandler(
	servers *server.Store,
	backups *backup.Store,
	initiator *backup.Initiator,
	deleter *backup.Deleter,
	restorer *backup.Restorer,
	links *backup.DownloadLinkIssuer,
	hub *websocket.Hub,
) *BackupHandler {
	return &BackupHandler{
		servers:   servers,
		backups:   backups,
		initiator: initiator,
		deleter:   deleter,
		restorer:  restorer,
		links:     links,
		hub:       hub,
	}
}

// ListBackups returns all live backups for a server
func (h *BackupHandler) ListBackups(c *gin.Context) {
	srv, ok := h.loadServer(c)
	if !ok {
		return
	}

	backups, err := h.backups.ListForServer(c.Request.Context(), srv.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"backups": backups,
		"limit":   srv.BackupLimit,
	})
}

// GetBackup returns a single backup
func (h *BackupHandler) GetBackup(c *gin.Context) {
	_, b, ok := h.loadBackup(c)
	if !ok {
		return
	}

	c.JSON(http.StatusOK, b)
}

// CreateBackup starts a new backup for a server
func (h *BackupHandler) CreateBackup(c *gin.Context) {
	srv, ok := h.loadServer(c)
	if !ok {
		return
	}

	if !srv.IsIdle() {
		c.JSON(http.StatusConflict, gin.H{"error": "Another operation is in progress on this server"})
		return
	}

	var req struct {
		Name         string `json:"name"`
		IgnoredFiles string `json:"ignored_files"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	b, err := h.initiator.Initiate(c.Request.Context(), srv, middleware.CurrentUserID(c), req.Name, req.IgnoredFiles)
	if err != nil {
		respondBackupError(c, err)
		return
	}

	h.hub.Publish(websocket.EventBackupStarted, srv.ID, b)

	c.JSON(http.StatusCreated, b)
}

// DeleteBackup removes a backup and its stored artifacts
func (h *BackupHandler) DeleteBackup(c *gin.Context) {
	srv, b, ok := h.loadBackup(c)
	if !ok {
		return
	}

	if err := h.deleter.Delete(c.Request.Context(), b, middleware.CurrentUserID(c)); err != nil {
		respondBackupError(c, err)
		return
	}

	h.hub.Publish(websocket.EventBackupDeleted, srv.ID, gin.H{"uuid": b.UUID})

	c.Status(http.StatusNoContent)
}

// RestoreBackup starts restoring a backup onto its server
func (h *BackupHandler) RestoreBackup(c *gin.Context) {
	srv, b, ok := h.loadBackup(c)
	if !ok {
		return
	}

	var req struct {
		Truncate bool `json:"truncate"`
	}
	// Body is optional; truncate defaults to false.
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}

	if err := h.restorer.Restore(c.Request.Context(), srv, b, middleware.CurrentUserID(c), req.Truncate); err != nil {
		respondBackupError(c, err)
		return
	}

	h.hub.Publish(websocket.EventRestoreStarted, srv.ID, gin.H{
		"uuid":     b.UUID,
		"truncate": req.Truncate,
	})

	c.Status(http.StatusAccepted)
}

// GetDownloadLink issues a signed download URL for an off-box backup
func (h *BackupHandler) GetDownloadLink(c *gin.Context) {
	_, b, ok := h.loadBackup(c)
	if !ok {
		return
	}

	url, err := h.links.Issue(c.Request.Context(), b)
	if err != nil {
		respondBackupError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"url": url})
}

func (h *BackupHandler) loadServer(c *gin.Context) (*models.Server, bool) {
	srv, err := h.servers.Get(c.Request.Context(), c.Param("server"))
	if errors.Is(err, server.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Server not found"})
		return nil, false
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return nil, false
	}
	return srv, true
}

// loadBackup resolves both path params and rejects a backup that does
// not belong to the server in the URL.
func (h *BackupHandler) loadBackup(c *gin.Context) (*models.Server, *models.Backup, bool) {
	srv, ok := h.loadServer(c)
	if !ok {
		return nil, nil, false
	}

	b, err := h.backups.GetByUUID(c.Request.Context(), c.Param("backup"))
	if errors.Is(err, backup.ErrNotFound) || (err == nil && b.ServerID != srv.ID) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Backup not found"})
		return nil, nil, false
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return nil, nil, false
	}

	return srv, b, true
}

// respondBackupError maps lifecycle errors onto HTTP responses.
func respondBackupError(c *gin.Context, err error) {
	var verr *models.ValidationError

	switch {
	case errors.As(err, &verr):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": verr.Error()})
	case errors.Is(err, backup.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Backup not found"})
	case errors.Is(err, backup.ErrConflict):
		c.JSON(http.StatusConflict, gin.H{"error": "Another operation is in progress on this server"})
	case errors.Is(err, backup.ErrNotRestorable):
		c.JSON(http.StatusBadRequest, gin.H{"error": "Backup has not completed and cannot be restored"})
	case errors.Is(err, backup.ErrTooManyBackups):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, backup.ErrInvalidAdapter):
		c.JSON(http.StatusBadRequest, gin.H{"error": "Backup adapter does not support this operation"})
	case errors.Is(err, daemon.ErrUnreachable), errors.Is(err, daemon.ErrRejected), errors.Is(err, daemon.ErrNotFound):
		c.JSON(http.StatusBadGateway, gin.H{"error": "Daemon request failed", "detail": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal error"})
	}
}
