package service

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"github.com/druksewa/marketplace/internal/core/domain"
	"github.com/druksewa/marketplace/internal/core/ports"
	"github.com/druksewa/marketplace/internal/metrics"
)

const minPasswordLength = 8

// AuthService implements registration, email verification and login.
type AuthService struct {
	repo      ports.UserRepository
	codes     ports.VerificationCodes
	deliverer ports.Deliverer
	jwtSecret string
	tokenTTL  time.Duration
	log       zerolog.Logger
}

func NewAuthService(
	repo ports.UserRepository,
	codes ports.VerificationCodes,
	deliverer ports.Deliverer,
	jwtSecret string,
	tokenTTL time.Duration,
	log zerolog.Logger,
) *AuthService {
	if tokenTTL <= 0 {
		tokenTTL = 24 * time.Hour
	}
	return &AuthService{
		repo:      repo,
		codes:     codes,
		deliverer: deliverer,
		jwtSecret: jwtSecret,
		tokenTTL:  tokenTTL,
		log:       log,
	}
}

// Register creates an inactive customer account and sends a verification
// code to the given email.
func (s *AuthService) Register(ctx context.Context, in ports.RegisterInput) (*domain.User, error) {
	email := normalizeEmail(in.Email)
	verr := domain.NewValidationError()
	if strings.TrimSpace(in.Name) == "" {
		verr.Add("name", "enter your name")
	}
	if _, err := mail.ParseAddress(email); err != nil {
		verr.Add("email", "enter a valid email address")
	}
	if len(in.Password) < minPasswordLength {
		verr.Add("password", fmt.Sprintf("password must be at least %d characters", minPasswordLength))
	}
	if err := verr.OrNil(); err != nil {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	user := &domain.User{
		Name:         strings.TrimSpace(in.Name),
		Email:        email,
		Phone:        strings.TrimSpace(in.Phone),
		PasswordHash: string(hash),
		Role:         domain.RoleCustomer,
		Active:       false,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	created, err := s.repo.Create(ctx, user)
	if err != nil {
		return nil, err
	}

	if err := s.sendCode(ctx, created.Email); err != nil {
		s.log.Warn().Err(err).Str("user_id", created.ID).Msg("failed to issue verification code")
	}

	s.log.Info().Str("user_id", created.ID).Msg("user registered")
	return created, nil
}

// SeedBackOffice makes sure an active admin account exists for email. An
// existing back-office account is returned unchanged; an existing account
// holding any other role is refused.
func (s *AuthService) SeedBackOffice(ctx context.Context, name, email, password string) (*domain.User, error) {
	email = normalizeEmail(email)
	existing, err := s.repo.FindByEmail(ctx, email)
	switch {
	case err == nil:
		if !existing.Role.IsBackOffice() {
			return nil, fmt.Errorf("seed admin %s: %w", email, domain.ErrRoleLocked)
		}
		return existing, nil
	case !errors.Is(err, domain.ErrUserNotFound):
		return nil, fmt.Errorf("seed admin: %w", err)
	}

	if len(password) < minPasswordLength {
		return nil, fmt.Errorf("seed admin: password must be at least %d characters", minPasswordLength)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	created, err := s.repo.Create(ctx, &domain.User{
		Name:         strings.TrimSpace(name),
		Email:        email,
		PasswordHash: string(hash),
		Role:         domain.RoleAdmin,
		Active:       true,
		CreatedAt:    now,
		UpdatedAt:    now,
	})
	if err != nil {
		return nil, fmt.Errorf("seed admin: %w", err)
	}

	s.log.Info().Str("user_id", created.ID).Msg("back-office account created")
	return created, nil
}

// VerifyOTP activates the account behind email when code matches.
func (s *AuthService) VerifyOTP(ctx context.Context, email, code string) (*domain.User, error) {
	email = normalizeEmail(email)
	if email == "" || code == "" {
		return nil, domain.ErrInvalidOTP
	}

	ok, err := s.codes.Consume(ctx, email, strings.TrimSpace(code))
	if err != nil {
		return nil, fmt.Errorf("verify otp: %w", err)
	}
	if !ok {
		metrics.VerificationCodesTotal.WithLabelValues("rejected").Inc()
		return nil, domain.ErrInvalidOTP
	}
	metrics.VerificationCodesTotal.WithLabelValues("verified").Inc()

	user, err := s.repo.FindByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if !user.Active {
		if err := s.repo.Activate(ctx, user.ID); err != nil {
			return nil, fmt.Errorf("verify otp: %w", err)
		}
		user.Active = true
	}

	s.log.Info().Str("user_id", user.ID).Msg("account verified")
	return user, nil
}

// ResendOTP issues a fresh verification code for an account that has not been
// verified yet. Unknown and already active addresses are accepted without a
// delivery so the endpoint does not reveal which emails are registered.
func (s *AuthService) ResendOTP(ctx context.Context, email string) error {
	email = normalizeEmail(email)
	user, err := s.repo.FindByEmail(ctx, email)
	if errors.Is(err, domain.ErrUserNotFound) {
		s.log.Debug().Msg("verification code requested for unknown email")
		return nil
	}
	if err != nil {
		return fmt.Errorf("resend otp: %w", err)
	}
	if user.Active {
		return nil
	}

	if err := s.sendCode(ctx, user.Email); err != nil {
		return fmt.Errorf("resend otp: %w", err)
	}
	s.log.Info().Str("user_id", user.ID).Msg("verification code reissued")
	return nil
}

// ListUsers returns the accounts holding role, or all accounts when role is empty.
func (s *AuthService) ListUsers(ctx context.Context, role domain.Role) ([]*domain.User, error) {
	if role != "" {
		if _, ok := domain.ParseRole(string(role)); !ok {
			verr := domain.NewValidationError()
			verr.Add("role", "unknown role "+string(role))
			return nil, verr
		}
	}
	users, err := s.repo.List(ctx, role)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	return users, nil
}

// Login authenticates a marketplace user and returns a signed session token.
func (s *AuthService) Login(ctx context.Context, email, password string) (string, *domain.User, error) {
	user, err := s.authenticate(ctx, email, password)
	if err != nil {
		return "", nil, err
	}

	token, err := s.generateToken(user)
	if err != nil {
		return "", nil, err
	}
	return token, user, nil
}

// AdminLogin is Login restricted to back-office roles.
func (s *AuthService) AdminLogin(ctx context.Context, email, password string) (string, *domain.User, error) {
	user, err := s.authenticate(ctx, email, password)
	if err != nil {
		return "", nil, err
	}
	if !user.Role.IsBackOffice() {
		s.log.Warn().Str("user_id", user.ID).Str("role", string(user.Role)).Msg("non back-office login attempt on admin surface")
		return "", nil, domain.ErrInvalidCredential
	}

	token, err := s.generateToken(user)
	if err != nil {
		return "", nil, err
	}
	return token, user, nil
}

func (s *AuthService) Profile(ctx context.Context, userID string) (*domain.User, error) {
	return s.repo.FindByID(ctx, userID)
}

func (s *AuthService) UpdateProfile(ctx context.Context, userID string, upd ports.ProfileUpdate) (*domain.User, error) {
	verr := domain.NewValidationError()
	if upd.Name != nil {
		name := strings.TrimSpace(*upd.Name)
		if name == "" {
			verr.Add("name", "enter your name")
		}
		upd.Name = &name
	}
	if upd.Phone != nil {
		phone := strings.TrimSpace(*upd.Phone)
		upd.Phone = &phone
	}
	if err := verr.OrNil(); err != nil {
		return nil, err
	}
	return s.repo.UpdateProfile(ctx, userID, upd)
}

func (s *AuthService) authenticate(ctx context.Context, email, password string) (*domain.User, error) {
	email = normalizeEmail(email)
	if email == "" || password == "" {
		return nil, domain.ErrInvalidCredential
	}

	user, err := s.repo.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return nil, domain.ErrInvalidCredential
		}
		return nil, err
	}

	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		return nil, domain.ErrInvalidCredential
	}
	if !user.Active {
		return nil, domain.ErrAccountInactive
	}
	return user, nil
}

func (s *AuthService) sendCode(ctx context.Context, email string) error {
	code, err := s.codes.Issue(ctx, email)
	if err != nil {
		return err
	}
	metrics.VerificationCodesTotal.WithLabelValues("issued").Inc()
	s.deliverer.Enqueue(ports.Delivery{
		Recipient: email,
		Subject:   "Verify your account",
		Body:      "Your verification code is " + code,
	})
	return nil
}

func (s *AuthService) generateToken(user *domain.User) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"sub":   user.ID,
		"email": user.Email,
		"role":  string(user.Role),
		"iat":   now.Unix(),
		"exp":   now.Add(s.tokenTTL).Unix(),
	}

	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return t.SignedString([]byte(s.jwtSecret))
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
