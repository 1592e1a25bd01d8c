package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"hostwatch/internal/audit"
	"hostwatch/internal/middleware"
)

const maxAuditLimit = 500

type AuditHandlers struct {
	store  audit.Store
	logger middleware.Logger
}

func NewAuditHandlers(store audit.Store, logger middleware.Logger) *AuditHandlers {
	return &AuditHandlers{store: store, logger: logger}
}

// Recent lists the newest audit events; ?limit caps the count.
func (h *AuditHandlers) Recent(c *gin.Context) {
	limit := 100
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a positive integer"})
			return
		}
		limit = min(n, maxAuditLimit)
	}
	events, err := h.store.Recent(c.Request.Context(), limit)
	if err != nil {
		h.logger.Errorf("Audit query failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load audit events"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"events": events})
}
