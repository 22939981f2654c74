package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"github.com/druksewa/marketplace/internal/core/domain"
	"github.com/druksewa/marketplace/internal/core/ports"
)

type stubUserRepo struct {
	mu    sync.Mutex
	users map[string]*domain.User
	next  int
}

func newStubUserRepo() *stubUserRepo {
	return &stubUserRepo{users: make(map[string]*domain.User)}
}

func cloneUser(u *domain.User) *domain.User {
	if u == nil {
		return nil
	}
	clone := *u
	return &clone
}

func (r *stubUserRepo) Create(_ context.Context, user *domain.User) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Email == user.Email {
			return nil, domain.ErrUserExists
		}
	}
	r.next++
	c := cloneUser(user)
	if c.ID == "" {
		c.ID = fmt.Sprintf("user-%d", r.next)
	}
	r.users[c.ID] = cloneUser(c)
	return c, nil
}

func (r *stubUserRepo) FindByEmail(_ context.Context, email string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Email == email {
			return cloneUser(u), nil
		}
	}
	return nil, domain.ErrUserNotFound
}

func (r *stubUserRepo) FindByID(_ context.Context, id string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	return cloneUser(u), nil
}

func (r *stubUserRepo) Activate(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return domain.ErrUserNotFound
	}
	u.Active = true
	return nil
}

func (r *stubUserRepo) UpdateProfile(_ context.Context, id string, upd ports.ProfileUpdate) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	if upd.Name != nil {
		u.Name = *upd.Name
	}
	if upd.Phone != nil {
		u.Phone = *upd.Phone
	}
	return cloneUser(u), nil
}

func (r *stubUserRepo) List(_ context.Context, role domain.Role) ([]*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*domain.User
	for _, u := range r.users {
		if role == "" || u.Role == role {
			out = append(out, cloneUser(u))
		}
	}
	return out, nil
}

func (r *stubUserRepo) AssignRole(_ context.Context, id string, from, to domain.Role) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return domain.ErrUserNotFound
	}
	if u.Role != from {
		return domain.ErrRoleLocked
	}
	u.Role = to
	return nil
}

type stubCodes struct {
	codes    map[string]string
	issueErr error
}

func newStubCodes() *stubCodes {
	return &stubCodes{codes: make(map[string]string)}
}

func (c *stubCodes) Issue(_ context.Context, email string) (string, error) {
	if c.issueErr != nil {
		return "", c.issueErr
	}
	c.codes[email] = "123456"
	return "123456", nil
}

func (c *stubCodes) Consume(_ context.Context, email, code string) (bool, error) {
	if c.codes[email] == "" || c.codes[email] != code {
		return false, nil
	}
	delete(c.codes, email)
	return true, nil
}

type stubDeliverer struct {
	mu        sync.Mutex
	delivered []ports.Delivery
}

func (d *stubDeliverer) Enqueue(del ports.Delivery) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.delivered = append(d.delivered, del)
}

func (d *stubDeliverer) count() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.delivered)
}

func newAuthSvc(repo *stubUserRepo, codes *stubCodes, del *stubDeliverer) *AuthService {
	return NewAuthService(repo, codes, del, "secret", time.Hour, zerolog.Nop())
}

func registerAndVerify(t *testing.T, svc *AuthService, email, password string) *domain.User {
	t.Helper()
	if _, err := svc.Register(context.Background(), ports.RegisterInput{Name: "Pema", Email: email, Password: password}); err != nil {
		t.Fatalf("register failed: %v", err)
	}
	user, err := svc.VerifyOTP(context.Background(), email, "123456")
	if err != nil {
		t.Fatalf("verify failed: %v", err)
	}
	return user
}

func TestAuthService_Register_Success(t *testing.T) {
	repo := newStubUserRepo()
	del := &stubDeliverer{}
	svc := newAuthSvc(repo, newStubCodes(), del)

	user, err := svc.Register(context.Background(), ports.RegisterInput{
		Name:     "Karma",
		Email:    " Karma@Example.com ",
		Password: "pass1234",
	})
	if err != nil {
		t.Fatalf("Register returned error: %v", err)
	}
	if user.PasswordHash == "pass1234" {
		t.Fatalf("expected password to be hashed")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte("pass1234")); err != nil {
		t.Fatalf("stored hash does not match password: %v", err)
	}
	if user.Role != domain.RoleCustomer {
		t.Fatalf("unexpected role: %s", user.Role)
	}
	if user.Active {
		t.Fatalf("new account must start inactive")
	}
	if user.Email != "karma@example.com" {
		t.Fatalf("expected normalized email, got %q", user.Email)
	}
	if del.count() != 1 {
		t.Fatalf("expected one verification delivery, got %d", del.count())
	}
}

func TestAuthService_Register_Validation(t *testing.T) {
	svc := newAuthSvc(newStubUserRepo(), newStubCodes(), &stubDeliverer{})

	_, err := svc.Register(context.Background(), ports.RegisterInput{Email: "not-an-email", Password: "short"})
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

func TestAuthService_Register_Duplicate(t *testing.T) {
	svc := newAuthSvc(newStubUserRepo(), newStubCodes(), &stubDeliverer{})
	in := ports.RegisterInput{Name: "Bob", Email: "bob@example.com", Password: "pass1234"}

	_, _ = svc.Register(context.Background(), in)
	if _, err := svc.Register(context.Background(), in); !errors.Is(err, domain.ErrUserExists) {
		t.Fatalf("expected ErrUserExists, got %v", err)
	}
}

func TestAuthService_Login_RequiresVerification(t *testing.T) {
	svc := newAuthSvc(newStubUserRepo(), newStubCodes(), &stubDeliverer{})
	_, _ = svc.Register(context.Background(), ports.RegisterInput{Name: "Dorji", Email: "dorji@example.com", Password: "pass1234"})

	if _, _, err := svc.Login(context.Background(), "dorji@example.com", "pass1234"); !errors.Is(err, domain.ErrAccountInactive) {
		t.Fatalf("expected ErrAccountInactive, got %v", err)
	}
}

func TestAuthService_VerifyOTP_WrongCode(t *testing.T) {
	svc := newAuthSvc(newStubUserRepo(), newStubCodes(), &stubDeliverer{})
	_, _ = svc.Register(context.Background(), ports.RegisterInput{Name: "Dorji", Email: "dorji@example.com", Password: "pass1234"})

	if _, err := svc.VerifyOTP(context.Background(), "dorji@example.com", "000000"); !errors.Is(err, domain.ErrInvalidOTP) {
		t.Fatalf("expected ErrInvalidOTP, got %v", err)
	}
}

func TestAuthService_VerifyOTP_CodeIsSingleUse(t *testing.T) {
	svc := newAuthSvc(newStubUserRepo(), newStubCodes(), &stubDeliverer{})
	registerAndVerify(t, svc, "tashi@example.com", "pass1234")

	if _, err := svc.VerifyOTP(context.Background(), "tashi@example.com", "123456"); !errors.Is(err, domain.ErrInvalidOTP) {
		t.Fatalf("expected reused code to be rejected, got %v", err)
	}
}

func TestAuthService_Login_Success(t *testing.T) {
	svc := newAuthSvc(newStubUserRepo(), newStubCodes(), &stubDeliverer{})
	registered := registerAndVerify(t, svc, "carol@example.com", "s3cret-pw")

	token, user, err := svc.Login(context.Background(), "carol@example.com", "s3cret-pw")
	if err != nil {
		t.Fatalf("login failed: %v", err)
	}
	if token == "" {
		t.Fatalf("expected token, got empty")
	}
	if user == nil || user.ID != registered.ID {
		t.Fatalf("unexpected user: %+v", user)
	}

	claims := jwt.MapClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(token *jwt.Token) (interface{}, error) {
		return []byte("secret"), nil
	})
	if err != nil || !parsed.Valid {
		t.Fatalf("token invalid: %v", err)
	}
	if claims["role"] != string(domain.RoleCustomer) {
		t.Fatalf("expected role %s, got %v", domain.RoleCustomer, claims["role"])
	}
	if claims["sub"] != registered.ID {
		t.Fatalf("expected sub %s, got %v", registered.ID, claims["sub"])
	}
}

func TestAuthService_Login_InvalidPassword(t *testing.T) {
	svc := newAuthSvc(newStubUserRepo(), newStubCodes(), &stubDeliverer{})
	registerAndVerify(t, svc, "dave@example.com", "goodpass")

	if _, _, err := svc.Login(context.Background(), "dave@example.com", "badpass1"); !errors.Is(err, domain.ErrInvalidCredential) {
		t.Fatalf("expected ErrInvalidCredential, got %v", err)
	}
}

func TestAuthService_Login_UnknownUser(t *testing.T) {
	svc := newAuthSvc(newStubUserRepo(), newStubCodes(), &stubDeliverer{})

	if _, _, err := svc.Login(context.Background(), "ghost@example.com", "pass1234"); !errors.Is(err, domain.ErrInvalidCredential) {
		t.Fatalf("expected ErrInvalidCredential, got %v", err)
	}
}

func TestAuthService_AdminLogin_RejectsCustomer(t *testing.T) {
	svc := newAuthSvc(newStubUserRepo(), newStubCodes(), &stubDeliverer{})
	registerAndVerify(t, svc, "eve@example.com", "pass1234")

	if _, _, err := svc.AdminLogin(context.Background(), "eve@example.com", "pass1234"); !errors.Is(err, domain.ErrInvalidCredential) {
		t.Fatalf("expected ErrInvalidCredential, got %v", err)
	}
}

func TestAuthService_AdminLogin_Staff(t *testing.T) {
	repo := newStubUserRepo()
	svc := newAuthSvc(repo, newStubCodes(), &stubDeliverer{})
	u := registerAndVerify(t, svc, "staff@example.com", "pass1234")
	repo.users[u.ID].Role = domain.RoleStaff

	_, user, err := svc.AdminLogin(context.Background(), "staff@example.com", "pass1234")
	if err != nil {
		t.Fatalf("admin login failed: %v", err)
	}
	if user.Role != domain.RoleStaff {
		t.Fatalf("unexpected role: %s", user.Role)
	}
}

func TestAuthService_UpdateProfile(t *testing.T) {
	svc := newAuthSvc(newStubUserRepo(), newStubCodes(), &stubDeliverer{})
	u := registerAndVerify(t, svc, "sonam@example.com", "pass1234")

	name := "  Sonam Wangmo "
	updated, err := svc.UpdateProfile(context.Background(), u.ID, ports.ProfileUpdate{Name: &name})
	if err != nil {
		t.Fatalf("update failed: %v", err)
	}
	if updated.Name != "Sonam Wangmo" {
		t.Fatalf("unexpected name %q", updated.Name)
	}

	blank := "   "
	if _, err := svc.UpdateProfile(context.Background(), u.ID, ports.ProfileUpdate{Name: &blank}); err == nil {
		t.Fatalf("expected validation error for blank name")
	}
}

func TestAuthService_SeedBackOffice(t *testing.T) {
	repo := newStubUserRepo()
	svc := newAuthSvc(repo, newStubCodes(), &stubDeliverer{})

	admin, err := svc.SeedBackOffice(context.Background(), "Ops", "ops@example.com", "adminpass1")
	if err != nil {
		t.Fatalf("seed failed: %v", err)
	}
	if admin.Role != domain.RoleAdmin || !admin.Active {
		t.Fatalf("expected active admin, got %+v", admin)
	}

	again, err := svc.SeedBackOffice(context.Background(), "Ops", "ops@example.com", "adminpass1")
	if err != nil || again.ID != admin.ID {
		t.Fatalf("expected the existing account back, got %+v %v", again, err)
	}

	if _, _, err := svc.AdminLogin(context.Background(), "ops@example.com", "adminpass1"); err != nil {
		t.Fatalf("seeded admin cannot log in: %v", err)
	}
}

func TestAuthService_SeedBackOffice_RefusesCustomerEmail(t *testing.T) {
	svc := newAuthSvc(newStubUserRepo(), newStubCodes(), &stubDeliverer{})
	registerAndVerify(t, svc, "karma@example.com", "pass1234")

	if _, err := svc.SeedBackOffice(context.Background(), "Karma", "karma@example.com", "adminpass1"); !errors.Is(err, domain.ErrRoleLocked) {
		t.Fatalf("expected ErrRoleLocked, got %v", err)
	}
}

func TestAuthService_ResendOTP_RecoversExpiredCode(t *testing.T) {
	repo := newStubUserRepo()
	codes := newStubCodes()
	del := &stubDeliverer{}
	svc := newAuthSvc(repo, codes, del)
	ctx := context.Background()

	if _, err := svc.Register(ctx, ports.RegisterInput{Name: "Sonam", Email: "sonam@example.com", Password: "pass1234"}); err != nil {
		t.Fatalf("register: %v", err)
	}
	delete(codes.codes, "sonam@example.com") // expired

	if _, err := svc.VerifyOTP(ctx, "sonam@example.com", "123456"); !errors.Is(err, domain.ErrInvalidOTP) {
		t.Fatalf("expected ErrInvalidOTP for the expired code, got %v", err)
	}
	if err := svc.ResendOTP(ctx, " Sonam@Example.com "); err != nil {
		t.Fatalf("resend: %v", err)
	}
	if del.count() != 2 {
		t.Fatalf("expected a second verification delivery, got %d", del.count())
	}
	if _, err := svc.VerifyOTP(ctx, "sonam@example.com", "123456"); err != nil {
		t.Fatalf("verify after resend: %v", err)
	}
	if _, _, err := svc.Login(ctx, "sonam@example.com", "pass1234"); err != nil {
		t.Fatalf("login after verification: %v", err)
	}
}

func TestAuthService_ResendOTP_AfterFailedIssue(t *testing.T) {
	codes := newStubCodes()
	codes.issueErr = errors.New("redis down")
	del := &stubDeliverer{}
	svc := newAuthSvc(newStubUserRepo(), codes, del)
	ctx := context.Background()

	if _, err := svc.Register(ctx, ports.RegisterInput{Name: "Tashi", Email: "tashi@example.com", Password: "pass1234"}); err != nil {
		t.Fatalf("register must succeed even when the code cannot be issued: %v", err)
	}
	if del.count() != 0 {
		t.Fatalf("nothing should be delivered without a code")
	}
	if err := svc.ResendOTP(ctx, "tashi@example.com"); err == nil {
		t.Fatalf("expected the issue failure to be reported")
	}

	codes.issueErr = nil
	if err := svc.ResendOTP(ctx, "tashi@example.com"); err != nil {
		t.Fatalf("resend: %v", err)
	}
	if del.count() != 1 {
		t.Fatalf("expected one delivery after recovery, got %d", del.count())
	}
}

func TestAuthService_ResendOTP_SilentForUnknownAndActive(t *testing.T) {
	repo := newStubUserRepo()
	del := &stubDeliverer{}
	svc := newAuthSvc(repo, newStubCodes(), del)
	registerAndVerify(t, svc, "active@example.com", "pass1234")
	sent := del.count()

	if err := svc.ResendOTP(context.Background(), "nobody@example.com"); err != nil {
		t.Fatalf("unknown email: %v", err)
	}
	if err := svc.ResendOTP(context.Background(), "active@example.com"); err != nil {
		t.Fatalf("active account: %v", err)
	}
	if del.count() != sent {
		t.Fatalf("no code may be sent for unknown or active accounts")
	}
}

func TestAuthService_ListUsers(t *testing.T) {
	repo := newStubUserRepo()
	repo.users["a"] = &domain.User{ID: "a", Role: domain.RoleAdmin}
	repo.users["c"] = &domain.User{ID: "c", Role: domain.RoleCustomer}
	repo.users["p"] = &domain.User{ID: "p", Role: domain.RoleProvider}
	svc := newAuthSvc(repo, newStubCodes(), &stubDeliverer{})
	ctx := context.Background()

	all, err := svc.ListUsers(ctx, "")
	if err != nil || len(all) != 3 {
		t.Fatalf("expected 3 users, got %d (%v)", len(all), err)
	}
	providers, err := svc.ListUsers(ctx, domain.RoleProvider)
	if err != nil || len(providers) != 1 || providers[0].ID != "p" {
		t.Fatalf("unexpected providers: %+v (%v)", providers, err)
	}

	_, err = svc.ListUsers(ctx, domain.Role("root"))
	var verr *domain.ValidationError
	if !errors.As(err, &verr) || !verr.Has("role") {
		t.Fatalf("expected a role violation, got %v", err)
	}
}
