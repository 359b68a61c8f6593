package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
)

func TestIdentity(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(Identity())
	r.GET("/whoami", func(c *gin.Context) {
		c.String(http.StatusOK, UserID(c))
	})

	// Header present -> identity attached.
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	req.Header.Set("X-User-ID", "  u42  ") // trimmed
	r.ServeHTTP(w, req)
	if w.Body.String() != "u42" {
		t.Fatalf("identity = %q, want %q", w.Body.String(), "u42")
	}

	// No header -> empty identity, request still admitted.
	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/whoami", nil)
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("anonymous request must pass through, got %d", w.Code)
	}
	if w.Body.String() != "" {
		t.Fatalf("identity = %q, want empty", w.Body.String())
	}

	// Blank header is treated as absent.
	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/whoami", nil)
	req.Header.Set("X-User-ID", "   ")
	r.ServeHTTP(w, req)
	if w.Body.String() != "" {
		t.Fatalf("blank header must yield empty identity, got %q", w.Body.String())
	}
}

func TestUserID_NonString(t *testing.T) {
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Set(userIDKey, 123)
	if UserID(c) != "" {
		t.Fatal("non-string context value must read as empty")
	}
}
