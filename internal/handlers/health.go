package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"hostwatch/internal/version"
)

func Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "timestamp": time.Now().UTC().Format(time.RFC3339)})
}

func Healthz(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func Version(c *gin.Context) {
	c.JSON(http.StatusOK, version.Get())
}
