package middleware_test

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"github.com/bitfantasy/nimo-qis/internal/middleware"
)

const testSecret = "middleware-test-secret"

func makeToken(t *testing.T, secret string, roles []string, perms ...string) string {
	t.Helper()
	claims := jwt.MapClaims{
		"uid":   "u-1",
		"name":  "Tester",
		"roles": roles,
		"perms": perms,
		"exp":   time.Now().Add(time.Hour).Unix(),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return token
}

func protectedRouter(extra ...gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	handlers := append([]gin.HandlerFunc{middleware.JWTAuth(testSecret)}, extra...)
	handlers = append(handlers, func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"user_id": c.GetString("user_id")})
	})
	r.GET("/protected", handlers...)
	return r
}

func doGet(r *gin.Engine, token string) *httptest.ResponseRecorder {
	req, _ := http.NewRequest(http.MethodGet, "/protected", nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestJWTAuth(t *testing.T) {
	r := protectedRouter()

	if w := doGet(r, ""); w.Code != http.StatusUnauthorized {
		t.Fatalf("missing token: expected 401, got %d", w.Code)
	}
	if w := doGet(r, makeToken(t, "wrong-secret", nil)); w.Code != http.StatusUnauthorized {
		t.Fatalf("bad signature: expected 401, got %d", w.Code)
	}
	if w := doGet(r, makeToken(t, testSecret, nil)); w.Code != http.StatusOK {
		t.Fatalf("valid token: expected 200, got %d: %s", w.Code, w.Body.String())
	}
}

func TestRequireRole(t *testing.T) {
	r := protectedRouter(middleware.RequireRole("qis_editor"))

	if w := doGet(r, makeToken(t, testSecret, []string{"qis_viewer"})); w.Code != http.StatusForbidden {
		t.Fatalf("wrong role: expected 403, got %d", w.Code)
	}
	if w := doGet(r, makeToken(t, testSecret, []string{"qis_editor"})); w.Code != http.StatusOK {
		t.Fatalf("matching role: expected 200, got %d", w.Code)
	}
	// qis_admin放行所有角色检查
	if w := doGet(r, makeToken(t, testSecret, []string{"qis_admin"})); w.Code != http.StatusOK {
		t.Fatalf("admin role: expected 200, got %d", w.Code)
	}
}

func TestRequirePermission(t *testing.T) {
	r := protectedRouter(middleware.RequirePermission("qis:record:export"))

	if w := doGet(r, makeToken(t, testSecret, nil, "qis:record:read")); w.Code != http.StatusForbidden {
		t.Fatalf("wrong permission: expected 403, got %d", w.Code)
	}
	if w := doGet(r, makeToken(t, testSecret, nil, "qis:record:export")); w.Code != http.StatusOK {
		t.Fatalf("matching permission: expected 200, got %d", w.Code)
	}
	// 通配权限放行所有检查
	if w := doGet(r, makeToken(t, testSecret, nil, "*")); w.Code != http.StatusOK {
		t.Fatalf("wildcard permission: expected 200, got %d", w.Code)
	}
}
