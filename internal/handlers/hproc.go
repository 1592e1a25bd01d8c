package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"hostwatch/internal/hostproc"
	"hostwatch/internal/middleware"
	"hostwatch/internal/models"
)

// HostProcesses is the host inspection and control surface the handlers use.
type HostProcesses interface {
	ListProcesses(ctx context.Context) ([]models.ProcessSnapshot, error)
	SystemMetrics(ctx context.Context) (models.SystemSnapshot, error)
	ProcessDetails(ctx context.Context, pid int32) (*models.ProcessDetails, error)
	Terminate(ctx context.Context, pid int32, actor string) (models.TerminateResult, error)
}

type HostProcessHandlers struct {
	service HostProcesses
	logger  middleware.Logger
}

func NewHostProcessHandlers(service HostProcesses, logger middleware.Logger) *HostProcessHandlers {
	return &HostProcessHandlers{service: service, logger: logger}
}

func (h *HostProcessHandlers) List(c *gin.Context) {
	procs, err := h.service.ListProcesses(c.Request.Context())
	if err != nil {
		h.unavailable(c, "list", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"processes": procs})
}

func (h *HostProcessHandlers) Metrics(c *gin.Context) {
	snap, err := h.service.SystemMetrics(c.Request.Context())
	if err != nil {
		h.unavailable(c, "metrics", err)
		return
	}
	c.JSON(http.StatusOK, snap)
}

func (h *HostProcessHandlers) Details(c *gin.Context) {
	pid, ok := middleware.ParsePID(c, "pid")
	if !ok {
		return
	}
	details, err := h.service.ProcessDetails(c.Request.Context(), pid)
	if err != nil {
		h.unavailable(c, "details", err)
		return
	}
	if details == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Process not found or access denied"})
		return
	}
	c.JSON(http.StatusOK, details)
}

func (h *HostProcessHandlers) Terminate(c *gin.Context) {
	pid, ok := middleware.ParsePID(c, "pid")
	if !ok {
		return
	}
	identity, _ := middleware.CurrentIdentity(c)
	actor := identity.Username
	if actor == "" {
		actor = identity.UserID
	}

	result, err := h.service.Terminate(c.Request.Context(), pid, actor)
	if err != nil {
		var denied *hostproc.TerminationDenied
		if errors.As(err, &denied) {
			c.JSON(http.StatusForbidden, gin.H{"error": denied.Reason, "pid": pid, "kind": denied.Kind})
			return
		}
		h.unavailable(c, "terminate", err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *HostProcessHandlers) unavailable(c *gin.Context, op string, err error) {
	if errors.Is(err, context.Canceled) {
		// Client went away; nothing to write.
		c.Abort()
		return
	}
	h.logger.Errorf("Host process %s failed: %v", op, err)
	c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Host process data unavailable"})
}
