package handlers

import (
	"database/sql"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/warden-panel/warden/internal/audit"
	"github.com/warden-panel/warden/internal/backup"
	"github.com/warden-panel/warden/internal/server"
	"github.com/warden-panel/warden/internal/websocket"
)

// RemoteHandler receives completion callbacks from the daemon. These
// routes are authenticated with the shared callback token, not user JWTs.
type RemoteHandler struct {
	servers *server.Store
	backups *backup.Store
	auditor *audit.Logger
	hub     *websocket.Hub
}

// NewRemoteHandler creates a new remote handler
func NewRemoteHandler(servers *server.Store, backups *backup.Store, auditor *audit.Logger, hub *websocket.Hub) *RemoteHandler {
	return &RemoteHandler{
		servers: servers,
		backups: backups,
		auditor: auditor,
		hub:     hub,
	}
}

// BackupCompleted records the outcome of a backup the daemon finished.
// The transition out of pending happens at most once; a duplicate
// callback is rejected without touching the first result.
func (h *RemoteHandler) BackupCompleted(c *gin.Context) {
	backupUUID := c.Param("backup")

	b, err := h.backups.GetByUUID(c.Request.Context(), backupUUID)
	if errors.Is(err, backup.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Backup not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	var req struct {
		Successful bool   `json:"successful"`
		Checksum   string `json:"checksum"`
		Bytes      int64  `json:"bytes"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	err = h.auditor.Transaction(c.Request.Context(), audit.ActionBackupCompleted, b.ServerID, nil, func(tx *sql.Tx, entry *audit.Entry) error {
		entry.Metadata["backup_uuid"] = b.UUID
		entry.Metadata["successful"] = req.Successful
		entry.Metadata["bytes"] = req.Bytes

		return h.backups.MarkCompleted(c.Request.Context(), tx, b.UUID, req.Successful, req.Checksum, req.Bytes)
	})
	if errors.Is(err, backup.ErrAlreadyCompleted) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Backup is already marked as completed"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update backup"})
		return
	}

	h.hub.Publish(websocket.EventBackupCompleted, b.ServerID, gin.H{
		"uuid":       b.UUID,
		"successful": req.Successful,
		"bytes":      req.Bytes,
	})

	c.Status(http.StatusNoContent)
}

// RestoreCompleted clears the restoring status once the daemon reports
// the restore finished, successfully or not.
func (h *RemoteHandler) RestoreCompleted(c *gin.Context) {
	serverID := c.Param("server")

	var req struct {
		Successful bool `json:"successful"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.servers.ClearStatus(c.Request.Context(), serverID); err != nil {
		if errors.Is(err, server.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Server not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update server"})
		return
	}

	if err := h.auditor.Record(c.Request.Context(), audit.ActionBackupRestoreComplete, serverID, nil, map[string]interface{}{
		"successful": req.Successful,
	}); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to record audit entry"})
		return
	}

	h.hub.Publish(websocket.EventStatusChanged, serverID, gin.H{
		"status":     nil,
		"successful": req.Successful,
	})

	c.Status(http.StatusNoContent)
}
