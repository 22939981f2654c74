package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/druksewa/marketplace/internal/core/domain"
)

type stubBus struct {
	listForFn     func(ctx context.Context, role domain.Role, afterSeq int64) ([]*domain.Notification, error)
	listForUserFn func(ctx context.Context, userID string, afterSeq int64) ([]*domain.Notification, error)
}

func (s *stubBus) Publish(ctx context.Context, n *domain.Notification) (*domain.Notification, error) {
	return n, nil
}

func (s *stubBus) ListFor(ctx context.Context, role domain.Role, afterSeq int64) ([]*domain.Notification, error) {
	return s.listForFn(ctx, role, afterSeq)
}

func (s *stubBus) ListForUser(ctx context.Context, userID string, afterSeq int64) ([]*domain.Notification, error) {
	return s.listForUserFn(ctx, userID, afterSeq)
}

func TestNotificationHandler_AdminReadsRoleLog(t *testing.T) {
	e := newTestEcho()
	bus := &stubBus{
		listForFn: func(ctx context.Context, role domain.Role, afterSeq int64) ([]*domain.Notification, error) {
			if role != domain.RoleAdmin || afterSeq != 3 {
				t.Fatalf("unexpected args %s %d", role, afterSeq)
			}
			return []*domain.Notification{{Seq: 4}, {Seq: 7}}, nil
		},
		listForUserFn: func(ctx context.Context, userID string, afterSeq int64) ([]*domain.Notification, error) {
			t.Fatal("staff must read the admin log")
			return nil, nil
		},
	}
	h := NewNotificationHandler(bus)

	c, rec := jsonContext(e, http.MethodGet, "/notifications?after=3", "")
	withSession(c, "staff-1", domain.RoleStaff)
	if err := h.List(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}

	var resp notificationListResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if resp.LastSeq != 7 || len(resp.Notifications) != 2 {
		t.Fatalf("unexpected response: %+v", resp)
	}
}

func TestNotificationHandler_ApplicantReadsOwnEntries(t *testing.T) {
	e := newTestEcho()
	bus := &stubBus{
		listForUserFn: func(ctx context.Context, userID string, afterSeq int64) ([]*domain.Notification, error) {
			if userID != "u1" || afterSeq != 0 {
				t.Fatalf("unexpected args %s %d", userID, afterSeq)
			}
			return nil, nil
		},
	}
	h := NewNotificationHandler(bus)

	c, rec := jsonContext(e, http.MethodGet, "/notifications", "")
	withSession(c, "u1", domain.RoleCustomer)
	if err := h.List(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}

	var resp notificationListResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if resp.Notifications == nil || resp.LastSeq != 0 {
		t.Fatalf("expected empty list with cursor 0, got %+v", resp)
	}
}

func TestNotificationHandler_RejectsBadCursor(t *testing.T) {
	e := newTestEcho()
	h := NewNotificationHandler(&stubBus{})

	c, _ := jsonContext(e, http.MethodGet, "/notifications?after=-1", "")
	withSession(c, "u1", domain.RoleCustomer)

	err := h.List(c)
	he, ok := err.(*echo.HTTPError)
	if !ok || he.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %v", err)
	}
}
