package client

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"time"

	"github.com/druksewa/marketplace/internal/core/domain"
)

// Queue is an admin list of applications. Stale is set when the backend
// could not be reached and the last fetched copy is returned instead.
type Queue struct {
	Status       domain.ApplicationStatus
	Applications []*domain.ProviderApplication
	FetchedAt    time.Time
	Stale        bool
}

// Decision is the backend's answer to approve or reject. Applied is false
// when another decision won and Application holds that outcome.
type Decision struct {
	Application *domain.ProviderApplication `json:"application"`
	Applied     bool                        `json:"applied"`
}

// PendingQueue lists applications awaiting review.
func (c *Client) PendingQueue(ctx context.Context) (*Queue, error) {
	return c.queue(ctx, domain.StatusPending, "/admin/providers/pending")
}

// ApprovedQueue lists approved providers.
func (c *Client) ApprovedQueue(ctx context.Context) (*Queue, error) {
	return c.queue(ctx, domain.StatusApproved, "/admin/providers/approved")
}

// Approve approves application id.
func (c *Client) Approve(ctx context.Context, id string) (*Decision, error) {
	req, _ := jsonRequest(http.MethodPost, "/admin/providers/"+url.PathEscape(id)+"/approve", nil, true)
	return c.decide(ctx, req)
}

// Reject rejects application id with an optional reason shown to the applicant.
func (c *Client) Reject(ctx context.Context, id, reason string) (*Decision, error) {
	req, err := jsonRequest(http.MethodPost, "/admin/providers/"+url.PathEscape(id)+"/reject", map[string]string{"reason": reason}, true)
	if err != nil {
		return nil, err
	}
	return c.decide(ctx, req)
}

func (c *Client) decide(ctx context.Context, req request) (*Decision, error) {
	var d Decision
	if err := c.do(ctx, req, &d); err != nil {
		return nil, err
	}
	// The queues no longer match the backend.
	c.resetQueues()
	return &d, nil
}

func (c *Client) queue(ctx context.Context, status domain.ApplicationStatus, path string) (*Queue, error) {
	req, _ := jsonRequest(http.MethodGet, path, nil, true)

	var resp struct {
		Applications []*domain.ProviderApplication `json:"applications"`
	}
	err := c.do(ctx, req, &resp)

	var netErr *NetworkError
	if errors.As(err, &netErr) {
		if cached := c.cachedQueue(status); cached != nil {
			c.log.Warn().Err(err).Str("status", string(status)).Msg("backend unreachable, serving cached queue")
			cached.Stale = true
			return cached, nil
		}
	}
	if err != nil {
		return nil, err
	}

	q := &Queue{Status: status, Applications: resp.Applications, FetchedAt: time.Now().UTC()}
	c.mu.Lock()
	c.queues[status] = copyQueue(q)
	c.mu.Unlock()
	return q, nil
}

func (c *Client) cachedQueue(status domain.ApplicationStatus) *Queue {
	c.mu.Lock()
	defer c.mu.Unlock()
	q, ok := c.queues[status]
	if !ok {
		return nil
	}
	return copyQueue(q)
}

func (c *Client) resetQueues() {
	c.mu.Lock()
	c.queues = make(map[domain.ApplicationStatus]*Queue)
	c.mu.Unlock()
}

func copyQueue(q *Queue) *Queue {
	out := *q
	out.Applications = make([]*domain.ProviderApplication, len(q.Applications))
	for i, a := range q.Applications {
		out.Applications[i] = a.Clone()
	}
	return &out
}
