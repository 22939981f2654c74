package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/druksewa/marketplace/internal/core/domain"
	"github.com/druksewa/marketplace/internal/core/ports"
)

func TestAdminHandler_Pending_ListsQueue(t *testing.T) {
	e := newTestEcho()
	stub := &stubApplicationService{t: t}
	stub.listFn = func(ctx context.Context, status domain.ApplicationStatus) ([]*domain.ProviderApplication, error) {
		if status != domain.StatusPending {
			t.Fatalf("expected pending, got %s", status)
		}
		return []*domain.ProviderApplication{{ID: "a1"}, {ID: "a2"}}, nil
	}
	h := NewAdminHandler(stub)

	c, rec := jsonContext(e, http.MethodGet, "/admin/providers/pending", "")
	withSession(c, "admin-1", domain.RoleAdmin)
	if err := h.Pending(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}

	var resp applicationListResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if resp.Count != 2 || len(resp.Applications) != 2 {
		t.Fatalf("unexpected response: %+v", resp)
	}
}

func TestAdminHandler_Approved_EmptyQueueIsArray(t *testing.T) {
	e := newTestEcho()
	stub := &stubApplicationService{t: t}
	stub.listFn = func(ctx context.Context, status domain.ApplicationStatus) ([]*domain.ProviderApplication, error) {
		return nil, nil
	}
	h := NewAdminHandler(stub)

	c, rec := jsonContext(e, http.MethodGet, "/admin/providers/approved", "")
	if err := h.Approved(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if !strings.Contains(rec.Body.String(), `"applications":[]`) {
		t.Fatalf("expected empty array, got %s", rec.Body.String())
	}
}

func TestAdminHandler_Approve_ReportsNoOp(t *testing.T) {
	e := newTestEcho()
	stub := &stubApplicationService{t: t}
	stub.approveFn = func(ctx context.Context, adminID, id string) (*ports.Decision, error) {
		if adminID != "admin-1" || id != "a1" {
			t.Fatalf("unexpected args %q %q", adminID, id)
		}
		return &ports.Decision{
			Application: &domain.ProviderApplication{ID: id, Status: domain.StatusRejected},
			Applied:     false,
		}, nil
	}
	h := NewAdminHandler(stub)

	c, rec := jsonContext(e, http.MethodPost, "/admin/providers/a1/approve", "")
	c.SetParamNames("id")
	c.SetParamValues("a1")
	withSession(c, "admin-1", domain.RoleAdmin)
	if err := h.Approve(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}

	var resp decisionResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if resp.Applied || resp.Application.Status != domain.StatusRejected {
		t.Fatalf("expected no-op with the winner's state, got %+v", resp)
	}
}

func TestAdminHandler_Reject_ForwardsReason(t *testing.T) {
	e := newTestEcho()
	stub := &stubApplicationService{t: t}
	stub.rejectFn = func(ctx context.Context, adminID, id, reason string) (*ports.Decision, error) {
		if reason != "certificate unreadable" {
			t.Fatalf("unexpected reason %q", reason)
		}
		return &ports.Decision{
			Application: &domain.ProviderApplication{ID: id, Status: domain.StatusRejected, RejectReason: reason},
			Applied:     true,
		}, nil
	}
	h := NewAdminHandler(stub)

	c, rec := jsonContext(e, http.MethodPost, "/admin/providers/a1/reject", `{"reason":"certificate unreadable"}`)
	c.SetParamNames("id")
	c.SetParamValues("a1")
	withSession(c, "admin-1", domain.RoleAdmin)
	if err := h.Reject(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

func TestAdminHandler_Get_NotFound(t *testing.T) {
	e := newTestEcho()
	stub := &stubApplicationService{t: t}
	stub.getFn = func(ctx context.Context, id string) (*domain.ProviderApplication, error) {
		return nil, domain.ErrApplicationNotFound
	}
	h := NewAdminHandler(stub)

	c, _ := jsonContext(e, http.MethodGet, "/admin/providers/missing", "")
	c.SetParamNames("id")
	c.SetParamValues("missing")
	if err := h.Get(c); !errors.Is(err, domain.ErrApplicationNotFound) {
		t.Fatalf("expected ErrApplicationNotFound, got %v", err)
	}
}

func TestAdminHandler_Certificate_StreamsDocument(t *testing.T) {
	e := newTestEcho()
	stub := &stubApplicationService{t: t}
	stub.openFn = func(ctx context.Context, applicationID, documentID string) (io.ReadCloser, *domain.DocumentRef, error) {
		if applicationID != "a1" || documentID != "d1" {
			t.Fatalf("unexpected ids %q %q", applicationID, documentID)
		}
		ref := &domain.DocumentRef{ID: documentID, Filename: "licence.pdf", ContentType: "application/pdf"}
		return io.NopCloser(strings.NewReader("%PDF-1.4")), ref, nil
	}
	h := NewAdminHandler(stub)

	c, rec := jsonContext(e, http.MethodGet, "/admin/providers/a1/certificates/d1", "")
	c.SetParamNames("id", "docId")
	c.SetParamValues("a1", "d1")
	if err := h.Certificate(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if got := rec.Header().Get("Content-Type"); got != "application/pdf" {
		t.Fatalf("expected application/pdf, got %q", got)
	}
	if rec.Body.String() != "%PDF-1.4" {
		t.Fatalf("unexpected body %q", rec.Body.String())
	}
}
