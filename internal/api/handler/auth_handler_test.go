package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/druksewa/marketplace/internal/api/middleware"
	"github.com/druksewa/marketplace/internal/core/domain"
	"github.com/druksewa/marketplace/internal/core/ports"
)

type stubAuthService struct {
	registerFn      func(ctx context.Context, in ports.RegisterInput) (*domain.User, error)
	verifyFn        func(ctx context.Context, email, code string) (*domain.User, error)
	loginFn         func(ctx context.Context, email, password string) (string, *domain.User, error)
	adminLoginFn    func(ctx context.Context, email, password string) (string, *domain.User, error)
	profileFn       func(ctx context.Context, userID string) (*domain.User, error)
	updateProfileFn func(ctx context.Context, userID string, upd ports.ProfileUpdate) (*domain.User, error)
	resendFn        func(ctx context.Context, email string) error
	listUsersFn     func(ctx context.Context, role domain.Role) ([]*domain.User, error)
}

func (s *stubAuthService) ResendOTP(ctx context.Context, email string) error {
	return s.resendFn(ctx, email)
}

func (s *stubAuthService) ListUsers(ctx context.Context, role domain.Role) ([]*domain.User, error) {
	return s.listUsersFn(ctx, role)
}

func (s *stubAuthService) Register(ctx context.Context, in ports.RegisterInput) (*domain.User, error) {
	return s.registerFn(ctx, in)
}

func (s *stubAuthService) VerifyOTP(ctx context.Context, email, code string) (*domain.User, error) {
	return s.verifyFn(ctx, email, code)
}

func (s *stubAuthService) Login(ctx context.Context, email, password string) (string, *domain.User, error) {
	return s.loginFn(ctx, email, password)
}

func (s *stubAuthService) AdminLogin(ctx context.Context, email, password string) (string, *domain.User, error) {
	return s.adminLoginFn(ctx, email, password)
}

func (s *stubAuthService) Profile(ctx context.Context, userID string) (*domain.User, error) {
	return s.profileFn(ctx, userID)
}

func (s *stubAuthService) UpdateProfile(ctx context.Context, userID string, upd ports.ProfileUpdate) (*domain.User, error) {
	return s.updateProfileFn(ctx, userID, upd)
}

func newTestEcho() *echo.Echo {
	e := echo.New()
	e.Validator = NewValidator()
	return e
}

func jsonContext(e *echo.Echo, method, target, body string) (echo.Context, *httptest.ResponseRecorder) {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

func withSession(c echo.Context, userID string, role domain.Role) {
	c.Set(middleware.SessionKey, &domain.Session{Token: "tkn", UserID: userID, Role: role})
}

func TestAuthHandler_Register_Success(t *testing.T) {
	e := newTestEcho()
	stub := &stubAuthService{
		registerFn: func(ctx context.Context, in ports.RegisterInput) (*domain.User, error) {
			if in.Name != "Pema" || in.Email != "pema@example.bt" || in.Phone != "17123456" {
				t.Fatalf("unexpected input: %+v", in)
			}
			return &domain.User{ID: "u1", Name: in.Name, Email: in.Email, Role: domain.RoleCustomer}, nil
		},
	}
	h := NewAuthHandler(stub)

	c, rec := jsonContext(e, http.MethodPost, "/auth/register",
		`{"name":"Pema","email":"pema@example.bt","phone":"17123456","password":"s3cretpass"}`)
	if err := h.Register(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", rec.Code)
	}

	var resp map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	user, ok := resp["user"].(map[string]any)
	if !ok || user["role"] != "customer" {
		t.Fatalf("unexpected user payload: %+v", resp)
	}
	if _, leaked := user["PasswordHash"]; leaked {
		t.Fatal("password hash must not be serialised")
	}
}

func TestAuthHandler_Register_ValidationFailure(t *testing.T) {
	e := newTestEcho()
	h := NewAuthHandler(&stubAuthService{
		registerFn: func(ctx context.Context, in ports.RegisterInput) (*domain.User, error) {
			t.Fatal("service must not be called on invalid input")
			return nil, nil
		},
	})

	c, _ := jsonContext(e, http.MethodPost, "/auth/register", `{"name":"","email":"nope","password":"short"}`)
	err := h.Register(c)

	var verr *domain.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	for _, field := range []string{"name", "email", "password"} {
		if !verr.Has(field) {
			t.Fatalf("expected violation for %s, got %v", field, verr.Fields)
		}
	}
}

func TestAuthHandler_Register_UserExists(t *testing.T) {
	e := newTestEcho()
	h := NewAuthHandler(&stubAuthService{
		registerFn: func(ctx context.Context, in ports.RegisterInput) (*domain.User, error) {
			return nil, domain.ErrUserExists
		},
	})

	c, _ := jsonContext(e, http.MethodPost, "/auth/register",
		`{"name":"Pema","email":"pema@example.bt","password":"s3cretpass"}`)
	if err := h.Register(c); !errors.Is(err, domain.ErrUserExists) {
		t.Fatalf("expected ErrUserExists, got %v", err)
	}
}

func TestAuthHandler_VerifyOTP_RejectsMalformedCode(t *testing.T) {
	e := newTestEcho()
	h := NewAuthHandler(&stubAuthService{})

	c, _ := jsonContext(e, http.MethodPost, "/auth/verify-otp", `{"email":"pema@example.bt","code":"12ab"}`)
	var verr *domain.ValidationError
	if err := h.VerifyOTP(c); !errors.As(err, &verr) || !verr.Has("code") {
		t.Fatalf("expected code violation, got %v", err)
	}
}

func TestAuthHandler_Login_ReturnsToken(t *testing.T) {
	e := newTestEcho()
	h := NewAuthHandler(&stubAuthService{
		loginFn: func(ctx context.Context, email, password string) (string, *domain.User, error) {
			return "jwt-token", &domain.User{ID: "u1", Email: email, Role: domain.RoleCustomer, Active: true}, nil
		},
	})

	c, rec := jsonContext(e, http.MethodPost, "/auth/login", `{"email":"pema@example.bt","password":"s3cretpass"}`)
	if err := h.Login(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}

	var resp authResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if resp.Token != "jwt-token" || resp.User == nil || resp.User.ID != "u1" {
		t.Fatalf("unexpected response: %+v", resp)
	}
}

func TestAuthHandler_AdminLogin_PropagatesInvalidCredential(t *testing.T) {
	e := newTestEcho()
	h := NewAuthHandler(&stubAuthService{
		adminLoginFn: func(ctx context.Context, email, password string) (string, *domain.User, error) {
			return "", nil, domain.ErrInvalidCredential
		},
	})

	c, _ := jsonContext(e, http.MethodPost, "/auth/admin/login", `{"email":"pema@example.bt","password":"whatever1"}`)
	if err := h.AdminLogin(c); !errors.Is(err, domain.ErrInvalidCredential) {
		t.Fatalf("expected ErrInvalidCredential, got %v", err)
	}
}

func TestAuthHandler_Profile_RequiresSession(t *testing.T) {
	e := newTestEcho()
	h := NewAuthHandler(&stubAuthService{})

	c, _ := jsonContext(e, http.MethodGet, "/auth/profile", "")
	if err := h.Profile(c); !errors.Is(err, domain.ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
}

func TestAuthHandler_UpdateProfile_PassesOnlySentFields(t *testing.T) {
	e := newTestEcho()
	h := NewAuthHandler(&stubAuthService{
		updateProfileFn: func(ctx context.Context, userID string, upd ports.ProfileUpdate) (*domain.User, error) {
			if userID != "u1" {
				t.Fatalf("unexpected user %q", userID)
			}
			if upd.Name == nil || *upd.Name != "Karma" || upd.Phone != nil {
				t.Fatalf("unexpected update: %+v", upd)
			}
			return &domain.User{ID: "u1", Name: *upd.Name}, nil
		},
	})

	c, rec := jsonContext(e, http.MethodPut, "/auth/update-profile", `{"name":"Karma"}`)
	withSession(c, "u1", domain.RoleCustomer)
	if err := h.UpdateProfile(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

func TestAuthHandler_ResendOTP(t *testing.T) {
	e := newTestEcho()
	var got string
	h := NewAuthHandler(&stubAuthService{
		resendFn: func(ctx context.Context, email string) error {
			got = email
			return nil
		},
	})

	c, rec := jsonContext(e, http.MethodPost, "/auth/resend-otp", `{"email":"pema@example.bt"}`)
	if err := h.ResendOTP(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d", rec.Code)
	}
	if got != "pema@example.bt" {
		t.Fatalf("unexpected email passed to service: %q", got)
	}
}

func TestAuthHandler_ResendOTP_InvalidEmail(t *testing.T) {
	e := newTestEcho()
	h := NewAuthHandler(&stubAuthService{
		resendFn: func(ctx context.Context, email string) error {
			t.Fatal("service must not be called on invalid input")
			return nil
		},
	})

	c, _ := jsonContext(e, http.MethodPost, "/auth/resend-otp", `{"email":"nope"}`)
	var verr *domain.ValidationError
	if err := h.ResendOTP(c); !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
}
