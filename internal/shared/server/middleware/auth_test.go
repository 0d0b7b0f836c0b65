package middleware

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
)

type stubVerifier map[string]string

func (s stubVerifier) Verify(token string) (string, error) {
	if id, ok := s[token]; ok {
		return id, nil
	}
	return "", errors.New("invalid token")
}

func newAuthRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(Auth(stubVerifier{"good": "user-1"}))
	router.GET("/api/paper/my-papers", func(c *gin.Context) {
		c.String(http.StatusOK, UserIDFromContext(c))
	})
	router.OPTIONS("/api/paper/my-papers", func(c *gin.Context) {
		c.Status(http.StatusOK)
	})
	return router
}

func TestAuthAcceptsBearerAndBareTokens(t *testing.T) {
	router := newAuthRouter()
	for _, header := range []string{"Bearer good", "bearer good", "good"} {
		req := httptest.NewRequest(http.MethodGet, "/api/paper/my-papers", nil)
		req.Header.Set("Authorization", header)
		resp := httptest.NewRecorder()
		router.ServeHTTP(resp, req)

		if resp.Code != http.StatusOK {
			t.Fatalf("header %q: expected 200, got %d", header, resp.Code)
		}
		if resp.Body.String() != "user-1" {
			t.Fatalf("header %q: unexpected user id %q", header, resp.Body.String())
		}
	}
}

func TestAuthRejectsMissingOrInvalidToken(t *testing.T) {
	router := newAuthRouter()
	for _, header := range []string{"", "Bearer", "Bearer bad", "Basic good", "bad"} {
		req := httptest.NewRequest(http.MethodGet, "/api/paper/my-papers", nil)
		if header != "" {
			req.Header.Set("Authorization", header)
		}
		resp := httptest.NewRecorder()
		router.ServeHTTP(resp, req)

		if resp.Code != http.StatusUnauthorized {
			t.Fatalf("header %q: expected 401, got %d", header, resp.Code)
		}
	}
}

func TestAuthAllowsOptionsWithoutIdentity(t *testing.T) {
	router := newAuthRouter()
	req := httptest.NewRequest(http.MethodOptions, "/api/paper/my-papers", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", resp.Code)
	}
}
