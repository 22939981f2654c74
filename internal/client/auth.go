package client

import (
	"context"
	"net/http"

	"github.com/druksewa/marketplace/internal/core/domain"
)

// SignUpInput is the account registration form.
type SignUpInput struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Phone    string `json:"phone,omitempty"`
	Password string `json:"password"`
}

type credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type userEnvelope struct {
	Message string       `json:"message,omitempty"`
	Token   string       `json:"token,omitempty"`
	User    *domain.User `json:"user"`
}

// SignIn authenticates a marketplace user and establishes the session.
func (c *Client) SignIn(ctx context.Context, email, password string) (*domain.Session, error) {
	return c.signIn(ctx, "/auth/login", email, password)
}

// AdminSignIn authenticates back-office staff and establishes the session.
func (c *Client) AdminSignIn(ctx context.Context, email, password string) (*domain.Session, error) {
	return c.signIn(ctx, "/auth/admin/login", email, password)
}

func (c *Client) signIn(ctx context.Context, path, email, password string) (*domain.Session, error) {
	req, err := jsonRequest(http.MethodPost, path, credentials{Email: email, Password: password}, false)
	if err != nil {
		return nil, err
	}

	var resp userEnvelope
	if err := c.do(ctx, req, &resp); err != nil {
		return nil, err
	}

	sess, err := c.sessions.Establish(ctx, &domain.CredentialResult{Token: resp.Token, User: resp.User})
	if err != nil {
		return nil, err
	}
	c.resetQueues()
	c.log.Info().Str("user_id", sess.UserID).Str("role", string(sess.Role)).Msg("signed in")
	return sess, nil
}

// SignUp registers an account. The account stays inactive until VerifyOTP.
func (c *Client) SignUp(ctx context.Context, in SignUpInput) (*domain.User, error) {
	req, err := jsonRequest(http.MethodPost, "/auth/register", in, false)
	if err != nil {
		return nil, err
	}
	var resp userEnvelope
	if err := c.do(ctx, req, &resp); err != nil {
		return nil, err
	}
	return resp.User, nil
}

// VerifyOTP confirms the email address with the code sent on sign-up.
func (c *Client) VerifyOTP(ctx context.Context, email, code string) (*domain.User, error) {
	req, err := jsonRequest(http.MethodPost, "/auth/verify-otp", map[string]string{"email": email, "code": code}, false)
	if err != nil {
		return nil, err
	}
	var resp userEnvelope
	if err := c.do(ctx, req, &resp); err != nil {
		return nil, err
	}
	return resp.User, nil
}

// ResendOTP asks for a new verification code when the previous one expired
// or was used up.
func (c *Client) ResendOTP(ctx context.Context, email string) error {
	req, err := jsonRequest(http.MethodPost, "/auth/resend-otp", map[string]string{"email": email}, false)
	if err != nil {
		return err
	}
	return c.do(ctx, req, nil)
}

// SignOut forgets the session and every cached view.
func (c *Client) SignOut(ctx context.Context) error {
	c.resetQueues()
	return c.sessions.Clear(ctx)
}

// RefreshProfile reloads the user record and stores it in the session.
func (c *Client) RefreshProfile(ctx context.Context) (*domain.User, error) {
	req, _ := jsonRequest(http.MethodGet, "/auth/profile", nil, true)
	var resp userEnvelope
	if err := c.do(ctx, req, &resp); err != nil {
		return nil, err
	}
	if err := c.sessions.UpdateUser(ctx, resp.User); err != nil {
		return nil, err
	}
	return resp.User, nil
}

// UpdateProfile changes name and/or phone. Nil leaves a field unchanged.
func (c *Client) UpdateProfile(ctx context.Context, name, phone *string) (*domain.User, error) {
	payload := map[string]*string{}
	if name != nil {
		payload["name"] = name
	}
	if phone != nil {
		payload["phone"] = phone
	}
	req, err := jsonRequest(http.MethodPut, "/auth/update-profile", payload, true)
	if err != nil {
		return nil, err
	}

	var resp userEnvelope
	if err := c.do(ctx, req, &resp); err != nil {
		return nil, err
	}
	if err := c.sessions.UpdateUser(ctx, resp.User); err != nil {
		return nil, err
	}
	return resp.User, nil
}
