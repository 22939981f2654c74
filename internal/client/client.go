// Package client talks to the marketplace backend on behalf of a
// presentation layer. It owns the local session, applies the document
// policy before any upload and keeps the last admin queue it fetched.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog"

	"github.com/druksewa/marketplace/internal/core/domain"
	"github.com/druksewa/marketplace/internal/session"
)

const (
	defaultTimeout   = 15 * time.Second
	defaultRetryWait = 300 * time.Millisecond
)

// Config configures a Client.
type Config struct {
	BaseURL string
	// Timeout bounds every HTTP attempt. Defaults to 15s.
	Timeout time.Duration
	// RetryWait is the pause before the single retry of a transient failure.
	RetryWait  time.Duration
	HTTPClient *http.Client
}

// Client is safe for concurrent use.
type Client struct {
	baseURL   string
	http      *http.Client
	retryWait time.Duration
	sessions  *session.Store
	log       zerolog.Logger

	mu     sync.Mutex
	queues map[domain.ApplicationStatus]*Queue
}

func New(cfg Config, sessions *session.Store, log zerolog.Logger) *Client {
	hc := cfg.HTTPClient
	if hc == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = defaultTimeout
		}
		hc = &http.Client{Timeout: timeout}
	}
	wait := cfg.RetryWait
	if wait <= 0 {
		wait = defaultRetryWait
	}
	return &Client{
		baseURL:   strings.TrimRight(cfg.BaseURL, "/"),
		http:      hc,
		retryWait: wait,
		sessions:  sessions,
		log:       log,
		queues:    make(map[domain.ApplicationStatus]*Queue),
	}
}

// Session returns the current session, or nil when signed out.
func (c *Client) Session(ctx context.Context) (*domain.Session, error) {
	return c.sessions.Current(ctx)
}

// request describes one backend call. body is re-read on every attempt.
type request struct {
	method      string
	path        string
	body        []byte
	contentType string
	// authed calls send the session token and clear the session on 401.
	authed bool
}

func jsonRequest(method, path string, payload any, authed bool) (request, error) {
	req := request{method: method, path: path, authed: authed}
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return req, fmt.Errorf("encode %s: %w", path, err)
		}
		req.body = data
		req.contentType = "application/json"
	}
	return req, nil
}

// do runs req, retrying once on a transient failure, and decodes a 2xx body
// into out. A response that arrives after ctx is done is discarded.
func (c *Client) do(ctx context.Context, req request, out any) error {
	_, err := c.doCounted(ctx, req, out)
	return err
}

// doCounted is do reporting how many attempts were sent.
func (c *Client) doCounted(ctx context.Context, req request, out any) (int, error) {
	var token string
	if req.authed {
		sess, err := c.sessions.Current(ctx)
		if err != nil {
			return 0, err
		}
		if sess == nil {
			return 0, domain.ErrUnauthorized
		}
		token = sess.Token
	}

	var b backoff.BackOff = backoff.NewConstantBackOff(c.retryWait)
	b = backoff.WithContext(backoff.WithMaxRetries(b, 1), ctx)

	var (
		raw      []byte
		attempts int
	)
	op := func() error {
		attempts++
		body, err := c.attempt(ctx, req, token)
		if err != nil {
			var netErr *NetworkError
			if errors.As(err, &netErr) {
				return err
			}
			return backoff.Permanent(err)
		}
		raw = body
		return nil
	}
	notify := func(err error, wait time.Duration) {
		c.log.Warn().Err(err).Str("path", req.path).Dur("retry_in", wait).Msg("transient failure, retrying")
	}

	err := backoff.RetryNotify(op, b, notify)
	if ctxErr := ctx.Err(); ctxErr != nil {
		return attempts, ctxErr
	}
	if err != nil {
		if req.authed && isAuthError(err) {
			c.dropSession(ctx, token)
		}
		return attempts, err
	}

	if out == nil || len(raw) == 0 {
		return attempts, nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return attempts, fmt.Errorf("decode %s: %w", req.path, err)
	}
	return attempts, nil
}

func (c *Client) attempt(ctx context.Context, req request, token string) ([]byte, error) {
	var body io.Reader
	if req.body != nil {
		body = bytes.NewReader(req.body)
	}
	httpReq, err := http.NewRequestWithContext(ctx, req.method, c.baseURL+req.path, body)
	if err != nil {
		return nil, fmt.Errorf("build %s: %w", req.path, err)
	}
	httpReq.Header.Set("Accept", "application/json")
	if req.contentType != "" {
		httpReq.Header.Set("Content-Type", req.contentType)
	}
	if token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.http.Do(httpReq)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, &NetworkError{Op: req.method + " " + req.path, Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &NetworkError{Op: req.method + " " + req.path, Err: err}
	}
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return raw, nil
	}
	return nil, decodeError(req, resp.StatusCode, raw)
}

// dropSession clears local state after the backend rejected token. A session
// established after the request was sent is left alone.
func (c *Client) dropSession(ctx context.Context, token string) {
	cleared, err := c.sessions.ClearIfToken(context.WithoutCancel(ctx), token)
	if err != nil {
		c.log.Error().Err(err).Msg("failed to clear session after 401")
		return
	}
	if !cleared {
		c.log.Debug().Msg("rejected token already replaced, session kept")
		return
	}
	c.resetQueues()
	c.log.Info().Msg("session expired, signed out")
}

func isAuthError(err error) bool {
	return errors.Is(err, domain.ErrUnauthorized) ||
		errors.Is(err, domain.ErrInvalidCredential) ||
		errors.Is(err, domain.ErrAccountInactive)
}
