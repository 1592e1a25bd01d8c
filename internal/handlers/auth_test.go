package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"hostwatch/internal/middleware"
	"hostwatch/internal/utils"
)

func newLoginRouter(t *testing.T, hash string) (*gin.Engine, *middleware.AuthService) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	auth := middleware.NewAuthService("login-secret", time.Hour)
	h := NewAuthHandlers(auth, "admin", hash, utils.NewLogger(""))
	r := gin.New()
	r.POST("/api/auth/login", h.APILogin)
	me := r.Group("/api")
	me.Use(auth.RequireAPIAuth())
	me.GET("/auth/me", h.Me)
	return r, auth
}

func postLogin(r http.Handler, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/api/auth/login", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestAPILogin(t *testing.T) {
	hash, err := middleware.HashPassword("correct-horse")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	r, auth := newLoginRouter(t, hash)

	if w := postLogin(r, `{"username":"admin","password":"wrong"}`); w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for bad password, got %d", w.Code)
	}
	if w := postLogin(r, `{"username":"root","password":"correct-horse"}`); w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for unknown user, got %d", w.Code)
	}
	if w := postLogin(r, `{"username":"admin"}`); w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for missing password, got %d", w.Code)
	}

	w := postLogin(r, `{"username":"admin","password":"correct-horse"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var body map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	token, _ := body["access_token"].(string)
	identity, err := auth.Resolve(token)
	if err != nil {
		t.Fatalf("issued token does not resolve: %v", err)
	}
	if identity.Username != "admin" || !identity.HasRole(middleware.RoleAdmin) {
		t.Fatalf("unexpected identity: %+v", identity)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/auth/me", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	me := httptest.NewRecorder()
	r.ServeHTTP(me, req)
	if me.Code != http.StatusOK || !strings.Contains(me.Body.String(), `"username":"admin"`) {
		t.Fatalf("unexpected /me response %d: %s", me.Code, me.Body.String())
	}
}

func TestAPILoginRejectsNearMissUsernames(t *testing.T) {
	hash, err := middleware.HashPassword("correct-horse")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	r, _ := newLoginRouter(t, hash)
	for _, user := range []string{"admi", "admin2", "Admin", ""} {
		body := `{"username":"` + user + `","password":"correct-horse"}`
		if w := postLogin(r, body); w.Code == http.StatusOK {
			t.Fatalf("username %q must not log in", user)
		}
	}
	if w := postLogin(r, `{"username":"  admin  ","password":"correct-horse"}`); w.Code != http.StatusOK {
		t.Fatalf("surrounding whitespace should be trimmed, got %d", w.Code)
	}
}

func TestAPILoginDisabledWithoutPassword(t *testing.T) {
	r, _ := newLoginRouter(t, "")
	if w := postLogin(r, `{"username":"admin","password":"x"}`); w.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 when login is not configured, got %d", w.Code)
	}
}
