package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"

	"github.com/druksewa/marketplace/internal/core/domain"
)

func signToken(t *testing.T, secret string, claims jwt.MapClaims) string {
	t.Helper()
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return signed
}

func runAuth(t *testing.T, header string) *domain.Session {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if header != "" {
		req.Header.Set("Authorization", header)
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	var got *domain.Session
	called := false
	handler := Auth("secret")(func(c echo.Context) error {
		called = true
		got = SessionFrom(c)
		return c.NoContent(http.StatusOK)
	})

	if err := handler(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if !called {
		t.Fatalf("next not called")
	}
	return got
}

func TestAuthMiddleware_ValidToken(t *testing.T) {
	now := time.Now()
	token := signToken(t, "secret", jwt.MapClaims{
		"sub":  "user-1",
		"role": "admin",
		"iat":  now.Unix(),
		"exp":  now.Add(time.Hour).Unix(),
	})

	sess := runAuth(t, "Bearer "+token)

	if sess == nil {
		t.Fatalf("session not set")
	}
	if sess.UserID != "user-1" || sess.Role != domain.RoleAdmin || sess.Token != token {
		t.Fatalf("unexpected session: %+v", sess)
	}
}

func TestAuthMiddleware_MissingHeader(t *testing.T) {
	if sess := runAuth(t, ""); sess != nil {
		t.Fatalf("expected no session, got %+v", sess)
	}
}

func TestAuthMiddleware_InvalidHeaderFormat(t *testing.T) {
	if sess := runAuth(t, "Token abc"); sess != nil {
		t.Fatalf("expected no session, got %+v", sess)
	}
}

func TestAuthMiddleware_InvalidToken(t *testing.T) {
	if sess := runAuth(t, "Bearer not-a-token"); sess != nil {
		t.Fatalf("expected no session, got %+v", sess)
	}
}

func TestAuthMiddleware_WrongSecret(t *testing.T) {
	token := signToken(t, "other", jwt.MapClaims{"sub": "user-1", "role": "admin"})

	if sess := runAuth(t, "Bearer "+token); sess != nil {
		t.Fatalf("expected no session, got %+v", sess)
	}
}

func TestAuthMiddleware_ExpiredToken(t *testing.T) {
	token := signToken(t, "secret", jwt.MapClaims{
		"sub":  "user-1",
		"role": "customer",
		"exp":  time.Now().Add(-time.Minute).Unix(),
	})

	if sess := runAuth(t, "Bearer "+token); sess != nil {
		t.Fatalf("expected no session, got %+v", sess)
	}
}

func TestAuthMiddleware_UnknownRole(t *testing.T) {
	token := signToken(t, "secret", jwt.MapClaims{"sub": "user-1", "role": "wizard"})

	if sess := runAuth(t, "Bearer "+token); sess != nil {
		t.Fatalf("expected no session, got %+v", sess)
	}
}
