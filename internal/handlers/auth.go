package handlers

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"hostwatch/internal/middleware"
)

type AuthHandlers struct {
	authService *middleware.AuthService
	adminUser   string
	adminHash   string
	logger      middleware.Logger
}

type LoginRequest struct {
	Username string `json:"username" validate:"required,max=64"`
	Password string `json:"password" validate:"required,max=128"`
}

// NewAuthHandlers serves logins for the single configured admin account. An
// empty hash disables login.
func NewAuthHandlers(authService *middleware.AuthService, adminUser, adminHash string, logger middleware.Logger) *AuthHandlers {
	return &AuthHandlers{
		authService: authService,
		adminUser:   adminUser,
		adminHash:   adminHash,
		logger:      logger,
	}
}

func (h *AuthHandlers) APILogin(c *gin.Context) {
	if h.adminHash == "" {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Login is not configured"})
		return
	}
	var req LoginRequest
	if !middleware.BindJSON(c, &req) {
		return
	}
	username := strings.TrimSpace(req.Username)
	userOK := subtle.ConstantTimeCompare([]byte(username), []byte(h.adminUser)) == 1
	passOK := middleware.CheckPassword(req.Password, h.adminHash)
	if !userOK || !passOK {
		h.logger.Warnf("Login failed: user=%s ip=%s", username, c.ClientIP())
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid credentials"})
		return
	}

	token, err := h.authService.GenerateToken(username, username, []string{middleware.RoleAdmin})
	if err != nil {
		h.logger.Errorf("Token generation failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to generate token"})
		return
	}
	h.logger.Infof("Login succeeded: user=%s ip=%s", username, c.ClientIP())
	c.JSON(http.StatusOK, gin.H{
		"access_token": token,
		"token_type":   "bearer",
		"expires_in":   int(h.authService.TokenExpiry().Seconds()),
	})
}

// Me returns the caller's identity.
func (h *AuthHandlers) Me(c *gin.Context) {
	identity, ok := middleware.CurrentIdentity(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Not authenticated"})
		return
	}
	c.JSON(http.StatusOK, identity)
}
