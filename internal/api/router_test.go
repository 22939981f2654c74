package api

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"github.com/druksewa/marketplace/internal/api/handler"
	"github.com/druksewa/marketplace/internal/core/domain"
	"github.com/druksewa/marketplace/internal/core/ports"
)

const testSecret = "router-test-secret"

// queueOnlyService answers the admin queue and fails everything else.
type queueOnlyService struct {
	ports.ApplicationService
}

func (queueOnlyService) ListByStatus(ctx context.Context, status domain.ApplicationStatus) ([]*domain.ProviderApplication, error) {
	return []*domain.ProviderApplication{{ID: "a1", Status: status}}, nil
}

func (queueOnlyService) Current(ctx context.Context, userID string) (*domain.ProviderApplication, error) {
	return nil, domain.ErrApplicationNotFound
}

func (queueOnlyService) Directory(ctx context.Context, category string) ([]*ports.ProviderListing, error) {
	return []*ports.ProviderListing{{ApplicationID: "a9", Name: "Pema"}}, nil
}

// usersOnlyAuth answers the account listing and fails everything else.
type usersOnlyAuth struct {
	ports.AuthService
}

func (usersOnlyAuth) ListUsers(ctx context.Context, role domain.Role) ([]*domain.User, error) {
	return []*domain.User{{ID: "u1", Role: domain.RoleCustomer}}, nil
}

func newTestRouter(t *testing.T) http.Handler {
	t.Helper()
	return NewRouter(Dependencies{
		Auth:         usersOnlyAuth{},
		Applications: queueOnlyService{},
		HealthChecks: map[string]handler.HealthCheck{
			"mongodb": func(context.Context) error { return nil },
		},
		JWTSecret:  testSecret,
		Log:        zerolog.Nop(),
		Registerer: prometheus.NewRegistry(),
	})
}

func bearer(t *testing.T, userID string, role domain.Role) string {
	t.Helper()
	tkn := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":  userID,
		"role": string(role),
		"iat":  time.Now().Unix(),
		"exp":  time.Now().Add(time.Hour).Unix(),
	})
	signed, err := tkn.SignedString([]byte(testSecret))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return "Bearer " + signed
}

func do(t *testing.T, h http.Handler, method, path, auth string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(method, path, nil)
	if auth != "" {
		req.Header.Set("Authorization", auth)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	body := map[string]any{}
	raw, _ := io.ReadAll(rec.Body)
	_ = json.Unmarshal(raw, &body)
	return rec, body
}

func TestRouter_AdminQueueAccess(t *testing.T) {
	h := newTestRouter(t)

	tests := []struct {
		name     string
		auth     string
		want     int
		redirect string
	}{
		{"no session", "", http.StatusUnauthorized, "/admin/login"},
		{"customer session", bearer(t, "u1", domain.RoleCustomer), http.StatusForbidden, "/dashboard"},
		{"admin session", bearer(t, "admin-1", domain.RoleAdmin), http.StatusOK, ""},
		{"staff session", bearer(t, "staff-1", domain.RoleStaff), http.StatusOK, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, body := do(t, h, http.MethodGet, "/admin/providers/pending", tt.auth)
			if rec.Code != tt.want {
				t.Fatalf("expected %d, got %d (%v)", tt.want, rec.Code, body)
			}
			if tt.redirect != "" && body["redirect"] != tt.redirect {
				t.Fatalf("expected redirect %s, got %v", tt.redirect, body["redirect"])
			}
		})
	}
}

func TestRouter_ApplicantRoutes(t *testing.T) {
	h := newTestRouter(t)

	rec, body := do(t, h, http.MethodGet, "/providers/application", "")
	if rec.Code != http.StatusUnauthorized || body["redirect"] != "/signin" {
		t.Fatalf("expected 401 to /signin, got %d %v", rec.Code, body)
	}

	rec, _ = do(t, h, http.MethodGet, "/providers/application", bearer(t, "u1", domain.RoleCustomer))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 from the service, got %d", rec.Code)
	}

	rec, body = do(t, h, http.MethodPost, "/providers/application/withdraw", bearer(t, "admin-1", domain.RoleAdmin))
	if rec.Code != http.StatusForbidden || body["redirect"] != "/admin/dashboard" {
		t.Fatalf("expected 403 to admin home, got %d %v", rec.Code, body)
	}
}

func TestRouter_TamperedTokenIsAnonymous(t *testing.T) {
	h := newTestRouter(t)

	rec, _ := do(t, h, http.MethodGet, "/admin/providers/pending", bearer(t, "admin-1", domain.RoleAdmin)+"x")
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestRouter_HealthIsPublic(t *testing.T) {
	h := newTestRouter(t)

	rec, body := do(t, h, http.MethodGet, "/health/ready", "")
	if rec.Code != http.StatusOK || body["status"] != "ok" {
		t.Fatalf("expected ready, got %d %v", rec.Code, body)
	}
}

func TestRouter_ProviderDirectoryIsPublic(t *testing.T) {
	h := newTestRouter(t)

	for _, auth := range []string{"", bearer(t, "admin-1", domain.RoleAdmin)} {
		rec, body := do(t, h, http.MethodGet, "/providers?category=Plumber", auth)
		if rec.Code != http.StatusOK || body["count"] != float64(1) {
			t.Fatalf("expected the public directory, got %d %v", rec.Code, body)
		}
	}
}

func TestRouter_UserListingIsBackOffice(t *testing.T) {
	h := newTestRouter(t)

	tests := []struct {
		name string
		auth string
		want int
	}{
		{"no session", "", http.StatusUnauthorized},
		{"customer session", bearer(t, "u1", domain.RoleCustomer), http.StatusForbidden},
		{"admin session", bearer(t, "admin-1", domain.RoleAdmin), http.StatusOK},
		{"staff session", bearer(t, "staff-1", domain.RoleStaff), http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, body := do(t, h, http.MethodGet, "/users", tt.auth)
			if rec.Code != tt.want {
				t.Fatalf("expected %d, got %d (%v)", tt.want, rec.Code, body)
			}
		})
	}
}
