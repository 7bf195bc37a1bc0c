package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/warden-panel/warden/internal/audit"
	"github.com/warden-panel/warden/internal/server"
)

// ServerHandler exposes server records over the client API.
type ServerHandler struct {
	servers *server.Store
	auditor *audit.Logger
}

// NewServerHandler creates a new server handler
func NewServerHandler(servers *server.Store, auditor *audit.Logger) *ServerHandler {
	return &ServerHandler{servers: servers, auditor: auditor}
}

// ListServers returns all servers
func (h *ServerHandler) ListServers(c *gin.Context) {
	servers, err := h.servers.List(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"servers": servers})
}

// GetServer returns a single server
func (h *ServerHandler) GetServer(c *gin.Context) {
	srv, err := h.servers.Get(c.Request.Context(), c.Param("server"))
	if errors.Is(err, server.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Server not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	c.JSON(http.StatusOK, srv)
}

// GetServerActivity returns recent audit entries for a server
func (h *ServerHandler) GetServerActivity(c *gin.Context) {
	srv, err := h.servers.Get(c.Request.Context(), c.Param("server"))
	if errors.Is(err, server.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Server not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	limit := 50
	if raw := c.Query("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 && n <= 500 {
			limit = n
		}
	}

	entries, err := h.auditor.GetEntries(c.Request.Context(), srv.ID, c.Query("action"), limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"activity": entries})
}
