package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/druksewa/marketplace/internal/core/domain"
)

func runGuard(t *testing.T, sess *domain.Session, roles ...domain.Role) (*httptest.ResponseRecorder, bool) {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	if sess != nil {
		c.Set(SessionKey, sess)
	}

	called := false
	handler := Guard(roles...)(func(c echo.Context) error {
		called = true
		return c.NoContent(http.StatusOK)
	})
	if err := handler(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	return rec, called
}

func decodeGuard(t *testing.T, rec *httptest.ResponseRecorder) guardResponse {
	t.Helper()
	var body guardResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	return body
}

func session(role domain.Role) *domain.Session {
	return &domain.Session{Token: "t", UserID: "u1", Role: role}
}

func TestGuard_AllowsMatchingRole(t *testing.T) {
	rec, called := runGuard(t, session(domain.RoleStaff), domain.RoleAdmin, domain.RoleStaff)

	if !called || rec.Code != http.StatusOK {
		t.Fatalf("expected next to run, got %d", rec.Code)
	}
}

func TestGuard_NoSessionRedirectsToLogin(t *testing.T) {
	rec, called := runGuard(t, nil, domain.RoleAdmin, domain.RoleStaff)

	if called {
		t.Fatalf("should not reach next handler")
	}
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
	if body := decodeGuard(t, rec); body.Redirect != "/admin/login" {
		t.Fatalf("expected admin login redirect, got %q", body.Redirect)
	}
}

func TestGuard_WrongRoleRedirectsHome(t *testing.T) {
	rec, called := runGuard(t, session(domain.RoleCustomer), domain.RoleAdmin, domain.RoleStaff)

	if called {
		t.Fatalf("should not reach next handler")
	}
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", rec.Code)
	}
	body := decodeGuard(t, rec)
	if body.Error != "forbidden" || body.Redirect != "/dashboard" {
		t.Fatalf("unexpected body: %+v", body)
	}
}

func TestGuard_AuthenticatedOnly(t *testing.T) {
	if _, called := runGuard(t, session(domain.RoleProvider)); !called {
		t.Fatalf("any session should pass")
	}

	rec, called := runGuard(t, nil)
	if called || rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without session, got %d", rec.Code)
	}
	if body := decodeGuard(t, rec); body.Redirect != "/signin" {
		t.Fatalf("expected /signin, got %q", body.Redirect)
	}
}
