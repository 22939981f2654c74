package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/druksewa/marketplace/internal/core/domain"
	"github.com/druksewa/marketplace/internal/core/policy"
	"github.com/druksewa/marketplace/internal/core/ports"
	"github.com/druksewa/marketplace/internal/metrics"
)

// ApplicationService runs the provider-application workflow: drafting,
// submission, admin decision, withdrawal and resubmission.
type ApplicationService struct {
	repo  ports.ApplicationRepository
	docs  ports.DocumentStore
	users ports.ApplicantAccounts
	bus   ports.NotificationBus
	log   zerolog.Logger
}

func NewApplicationService(
	repo ports.ApplicationRepository,
	docs ports.DocumentStore,
	users ports.ApplicantAccounts,
	bus ports.NotificationBus,
	log zerolog.Logger,
) *ApplicationService {
	return &ApplicationService{repo: repo, docs: docs, users: users, bus: bus, log: log}
}

// CreateDraft opens a new draft for userID. A user holds at most one draft or
// pending application at a time.
func (s *ApplicationService) CreateDraft(ctx context.Context, userID string, in ports.DraftInput) (*domain.ProviderApplication, error) {
	if err := s.ensureCanOpen(ctx, userID); err != nil {
		return nil, err
	}
	app := newDraft(userID, time.Now().UTC())
	applyDraftInput(app, in)

	if err := s.repo.Create(ctx, app); err != nil {
		return nil, err
	}
	s.log.Info().Str("application_id", app.ID).Str("user_id", userID).Msg("draft created")
	return app, nil
}

// UpdateDraft replaces the editable fields of the caller's draft.
func (s *ApplicationService) UpdateDraft(ctx context.Context, userID, id string, in ports.DraftInput) (*domain.ProviderApplication, error) {
	app, err := s.owned(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	if app.Status != domain.StatusDraft {
		return nil, &domain.ConflictError{ID: app.ID, Current: app.Status}
	}
	applyDraftInput(app, in)
	app.UpdatedAt = time.Now().UTC()
	return s.repo.UpdateDraft(ctx, app)
}

// AttachCertificates stores every file that passes the document policy and
// adds it to the draft. Rejected files are reported together as a
// ValidationError on the certificates field after the accepted ones are saved.
func (s *ApplicationService) AttachCertificates(ctx context.Context, userID, id string, files []ports.CertificateUpload) (*domain.ProviderApplication, error) {
	app, err := s.owned(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	if app.Status != domain.StatusDraft {
		return nil, &domain.ConflictError{ID: app.ID, Current: app.Status}
	}

	refs, verr, err := s.storeCertificates(ctx, userID, files)
	if err != nil {
		return nil, err
	}
	if len(refs) > 0 {
		app.Certificates = append(app.Certificates, refs...)
		app.UpdatedAt = time.Now().UTC()
		if app, err = s.repo.UpdateDraft(ctx, app); err != nil {
			return nil, err
		}
	}
	if err := verr.OrNil(); err != nil {
		return app, err
	}
	return app, nil
}

// Submit validates the caller's draft and moves it to pending.
func (s *ApplicationService) Submit(ctx context.Context, userID, id string) (*domain.ProviderApplication, error) {
	app, err := s.owned(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	return s.submit(ctx, app)
}

// Register fills the caller's draft from in, attaches files and submits.
// When no draft exists one is opened; a rejected application is carried
// forward as the new draft's predecessor.
func (s *ApplicationService) Register(ctx context.Context, userID string, in ports.DraftInput, files []ports.CertificateUpload) (*domain.ProviderApplication, error) {
	now := time.Now().UTC()
	current, err := s.repo.FindLatestByUser(ctx, userID)
	if err != nil && !errors.Is(err, domain.ErrApplicationNotFound) {
		return nil, err
	}

	var app *domain.ProviderApplication
	isNew := true
	switch {
	case current == nil:
		app = newDraft(userID, now)
	case current.Status == domain.StatusDraft:
		app, isNew = current, false
	case current.Status == domain.StatusPending:
		return nil, &domain.ConflictError{ID: current.ID, Current: current.Status}
	case current.Status == domain.StatusApproved:
		return nil, domain.ErrAlreadyProvider
	default:
		app = newDraft(userID, now)
		app.ResubmittedFrom = current.ID
	}
	applyDraftInput(app, in)

	refs, fileErrs, err := s.storeCertificates(ctx, userID, files)
	if err != nil {
		return nil, err
	}
	app.Certificates = append(app.Certificates, refs...)

	if isNew {
		if err := s.repo.Create(ctx, app); err != nil {
			return nil, err
		}
		s.log.Info().Str("application_id", app.ID).Str("user_id", userID).Msg("draft created")
	} else {
		app.UpdatedAt = now
		if app, err = s.repo.UpdateDraft(ctx, app); err != nil {
			return nil, err
		}
	}

	if !fileErrs.Empty() {
		if verr := policy.ValidateSubmission(app); verr != nil {
			var v *domain.ValidationError
			if errors.As(verr, &v) {
				mergeViolations(fileErrs, v)
			}
		}
		recordViolations(fileErrs)
		return app, fileErrs
	}
	return s.submit(ctx, app)
}

// Approve moves a pending application to approved and promotes its owner to
// provider. Deciding an application that already left pending is a no-op
// returning the current record.
func (s *ApplicationService) Approve(ctx context.Context, adminID, id string) (*ports.Decision, error) {
	return s.decide(ctx, domain.StatusChange{
		ID:       id,
		Expected: domain.StatusPending,
		Next:     domain.StatusApproved,
		At:       time.Now().UTC(),
		Actor:    adminID,
	})
}

// Reject moves a pending application to rejected. See Approve for repeated calls.
func (s *ApplicationService) Reject(ctx context.Context, adminID, id, reason string) (*ports.Decision, error) {
	return s.decide(ctx, domain.StatusChange{
		ID:           id,
		Expected:     domain.StatusPending,
		Next:         domain.StatusRejected,
		At:           time.Now().UTC(),
		Actor:        adminID,
		RejectReason: strings.TrimSpace(reason),
	})
}

// Withdraw returns the caller's pending application to draft. No
// administrator is notified.
func (s *ApplicationService) Withdraw(ctx context.Context, userID, id string) (*domain.ProviderApplication, error) {
	app, err := s.owned(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	if app.Status != domain.StatusPending {
		metrics.ApplicationTransitionsTotal.WithLabelValues(string(domain.StatusDraft), "conflict").Inc()
		return nil, &domain.ConflictError{ID: app.ID, Current: app.Status}
	}

	updated, swapped, err := s.repo.CompareAndSwapStatus(ctx, domain.StatusChange{
		ID:       app.ID,
		Expected: domain.StatusPending,
		Next:     domain.StatusDraft,
		At:       time.Now().UTC(),
		Actor:    userID,
	})
	if err != nil {
		return nil, err
	}
	if !swapped {
		metrics.ApplicationTransitionsTotal.WithLabelValues(string(domain.StatusDraft), "conflict").Inc()
		return nil, &domain.ConflictError{ID: updated.ID, Current: updated.Status}
	}
	metrics.ApplicationTransitionsTotal.WithLabelValues(string(domain.StatusDraft), "applied").Inc()
	s.log.Info().Str("application_id", app.ID).Str("user_id", userID).Msg("application withdrawn")
	return updated, nil
}

// Resubmit opens a new draft carrying the fields of a rejected application.
// The rejected record itself is left untouched.
func (s *ApplicationService) Resubmit(ctx context.Context, userID, id string) (*domain.ProviderApplication, error) {
	rejected, err := s.owned(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	if rejected.Status != domain.StatusRejected {
		return nil, &domain.ConflictError{ID: rejected.ID, Current: rejected.Status}
	}
	if err := s.ensureCanOpen(ctx, userID); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	app := newDraft(userID, now)
	app.Location = rejected.Location
	app.Categories = append([]domain.ServiceCategory(nil), rejected.Categories...)
	app.CitizenID = rejected.CitizenID
	app.Pricing = rejected.Pricing
	app.Certificates = append([]domain.DocumentRef(nil), rejected.Certificates...)
	app.ResubmittedFrom = rejected.ID

	if err := s.repo.Create(ctx, app); err != nil {
		return nil, err
	}
	s.log.Info().Str("application_id", app.ID).Str("resubmitted_from", rejected.ID).Msg("application reopened")
	return app, nil
}

// Current returns the caller's latest application.
func (s *ApplicationService) Current(ctx context.Context, userID string) (*domain.ProviderApplication, error) {
	return s.repo.FindLatestByUser(ctx, userID)
}

func (s *ApplicationService) Get(ctx context.Context, id string) (*domain.ProviderApplication, error) {
	return s.repo.FindByID(ctx, id)
}

func (s *ApplicationService) ListByStatus(ctx context.Context, status domain.ApplicationStatus) ([]*domain.ProviderApplication, error) {
	return s.repo.ListByStatus(ctx, status)
}

// Directory lists approved providers with their contact details. Providers
// whose account no longer exists are left out.
func (s *ApplicationService) Directory(ctx context.Context, category string) ([]*ports.ProviderListing, error) {
	var (
		apps []*domain.ProviderApplication
		err  error
	)
	category = strings.TrimSpace(category)
	if category == "" {
		apps, err = s.repo.ListByStatus(ctx, domain.StatusApproved)
	} else {
		c := domain.ServiceCategory(category)
		if !policy.IsServiceCategory(c) {
			verr := domain.NewValidationError()
			verr.Add("category", "unknown service category "+category)
			return nil, verr
		}
		apps, err = s.repo.ListByStatusInCategory(ctx, domain.StatusApproved, c)
	}
	if err != nil {
		return nil, err
	}

	out := make([]*ports.ProviderListing, 0, len(apps))
	for _, app := range apps {
		user, err := s.users.FindByID(ctx, app.UserID)
		if errors.Is(err, domain.ErrUserNotFound) {
			s.log.Warn().Str("application_id", app.ID).Str("user_id", app.UserID).Msg("approved provider has no account")
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("directory: %w", err)
		}
		out = append(out, &ports.ProviderListing{
			ApplicationID: app.ID,
			UserID:        app.UserID,
			Name:          user.Name,
			Phone:         user.Phone,
			Location:      app.Location,
			Categories:    app.Categories,
			Pricing:       app.Pricing,
		})
	}
	return out, nil
}

// OpenCertificate streams a certificate attached to the given application.
func (s *ApplicationService) OpenCertificate(ctx context.Context, applicationID, documentID string) (io.ReadCloser, *domain.DocumentRef, error) {
	app, err := s.repo.FindByID(ctx, applicationID)
	if err != nil {
		return nil, nil, err
	}
	for i := range app.Certificates {
		if app.Certificates[i].ID != documentID {
			continue
		}
		ref := app.Certificates[i]
		rc, err := s.docs.Open(ctx, documentID)
		if err != nil {
			return nil, nil, err
		}
		return rc, &ref, nil
	}
	return nil, nil, domain.ErrDocumentNotFound
}

func (s *ApplicationService) submit(ctx context.Context, app *domain.ProviderApplication) (*domain.ProviderApplication, error) {
	if app.Status != domain.StatusDraft {
		metrics.ApplicationTransitionsTotal.WithLabelValues(string(domain.StatusPending), "conflict").Inc()
		return nil, &domain.ConflictError{ID: app.ID, Current: app.Status}
	}
	if err := policy.ValidateSubmission(app); err != nil {
		var verr *domain.ValidationError
		if errors.As(err, &verr) {
			recordViolations(verr)
		}
		return app, err
	}

	updated, swapped, err := s.repo.CompareAndSwapStatus(ctx, domain.StatusChange{
		ID:       app.ID,
		Expected: domain.StatusDraft,
		Next:     domain.StatusPending,
		At:       time.Now().UTC(),
		Actor:    app.UserID,
	})
	if err != nil {
		return nil, err
	}
	if !swapped {
		metrics.ApplicationTransitionsTotal.WithLabelValues(string(domain.StatusPending), "conflict").Inc()
		return nil, &domain.ConflictError{ID: updated.ID, Current: updated.Status}
	}
	metrics.ApplicationTransitionsTotal.WithLabelValues(string(domain.StatusPending), "applied").Inc()

	s.notify(ctx, &domain.Notification{
		RecipientRole:        domain.RoleAdmin,
		Message:              fmt.Sprintf("New provider application from CID %s", updated.CitizenID),
		Kind:                 domain.KindInfo,
		RelatedApplicationID: updated.ID,
	})
	s.log.Info().Str("application_id", updated.ID).Str("user_id", updated.UserID).Msg("application submitted")
	return updated, nil
}

func (s *ApplicationService) decide(ctx context.Context, change domain.StatusChange) (*ports.Decision, error) {
	updated, swapped, err := s.repo.CompareAndSwapStatus(ctx, change)
	if err != nil {
		return nil, err
	}
	if !swapped {
		metrics.ApplicationTransitionsTotal.WithLabelValues(string(change.Next), "noop").Inc()
		s.log.Debug().
			Str("application_id", change.ID).
			Str("current", string(updated.Status)).
			Str("requested", string(change.Next)).
			Msg("decision skipped, application already left pending")
		return &ports.Decision{Application: updated, Applied: false}, nil
	}
	metrics.ApplicationTransitionsTotal.WithLabelValues(string(change.Next), "applied").Inc()

	n := &domain.Notification{
		RecipientRole:        domain.RoleCustomer,
		RecipientUserID:      updated.UserID,
		RelatedApplicationID: updated.ID,
	}
	switch change.Next {
	case domain.StatusApproved:
		if err := s.users.AssignRole(ctx, updated.UserID, domain.RoleCustomer, domain.RoleProvider); err != nil {
			s.log.Error().Err(err).Str("user_id", updated.UserID).Msg("failed to promote approved applicant")
		} else {
			n.RecipientRole = domain.RoleProvider
		}
		n.Kind = domain.KindSuccess
		n.Message = "Your provider application has been approved"
	case domain.StatusRejected:
		n.Kind = domain.KindError
		n.Message = "Your provider application has been rejected"
		if change.RejectReason != "" {
			n.Message += ": " + change.RejectReason
		}
	}
	s.notify(ctx, n)

	s.log.Info().
		Str("application_id", updated.ID).
		Str("status", string(updated.Status)).
		Str("decided_by", change.Actor).
		Msg("application decided")
	return &ports.Decision{Application: updated, Applied: true}, nil
}

// notify publishes n. The workflow has already committed, so a failure is
// logged and not returned.
func (s *ApplicationService) notify(ctx context.Context, n *domain.Notification) {
	if _, err := s.bus.Publish(ctx, n); err != nil {
		s.log.Warn().Err(err).Str("application_id", n.RelatedApplicationID).Msg("failed to publish notification")
	}
}

// owned loads id and hides it from anyone but its owner.
func (s *ApplicationService) owned(ctx context.Context, userID, id string) (*domain.ProviderApplication, error) {
	app, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if app.UserID != userID {
		return nil, domain.ErrApplicationNotFound
	}
	return app, nil
}

func (s *ApplicationService) ensureCanOpen(ctx context.Context, userID string) error {
	latest, err := s.repo.FindLatestByUser(ctx, userID)
	if errors.Is(err, domain.ErrApplicationNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	switch latest.Status {
	case domain.StatusDraft, domain.StatusPending:
		return domain.ErrActiveApplication
	case domain.StatusApproved:
		return domain.ErrAlreadyProvider
	default:
		return nil
	}
}

// storeCertificates applies the document policy to each file, re-checking the
// declared type against the file contents, and stores the accepted ones.
func (s *ApplicationService) storeCertificates(ctx context.Context, ownerID string, files []ports.CertificateUpload) ([]domain.DocumentRef, *domain.ValidationError, error) {
	verr := domain.NewValidationError()
	refs := make([]domain.DocumentRef, 0, len(files))

	for _, f := range files {
		if msg := policy.CheckDocument(f.Filename, f.ContentType, f.Size); msg != "" {
			verr.Add(policy.FieldCertificates, msg)
			metrics.CertificateUploadsTotal.WithLabelValues("rejected").Inc()
			continue
		}

		data, err := io.ReadAll(io.LimitReader(f.Body, policy.MaxDocumentSize+1))
		if err != nil {
			return nil, nil, fmt.Errorf("read certificate %s: %w", f.Filename, err)
		}
		detected := policy.DetectContentType(data)
		if msg := policy.CheckDocument(f.Filename, detected, int64(len(data))); msg != "" {
			verr.Add(policy.FieldCertificates, msg)
			metrics.CertificateUploadsTotal.WithLabelValues("rejected").Inc()
			continue
		}

		ref, err := s.docs.Put(ctx, ports.DocumentUpload{
			OwnerID:     ownerID,
			Filename:    f.Filename,
			ContentType: detected,
			Data:        data,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("store certificate %s: %w", f.Filename, err)
		}
		metrics.CertificateUploadsTotal.WithLabelValues("stored").Inc()
		refs = append(refs, ref)
	}
	return refs, verr, nil
}

func newDraft(userID string, now time.Time) *domain.ProviderApplication {
	return &domain.ProviderApplication{
		ID:        uuid.NewString(),
		UserID:    userID,
		Status:    domain.StatusDraft,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func applyDraftInput(app *domain.ProviderApplication, in ports.DraftInput) {
	app.Location = domain.Location{
		Dzongkhag: strings.TrimSpace(in.Dzongkhag),
		City:      strings.TrimSpace(in.City),
	}
	app.CitizenID = strings.TrimSpace(in.CitizenID)
	app.Pricing = domain.Pricing{
		Type:   domain.PricingType(strings.TrimSpace(in.PricingType)),
		Amount: in.PricingAmount,
	}

	seen := make(map[domain.ServiceCategory]bool, len(in.Categories))
	app.Categories = app.Categories[:0]
	for _, c := range in.Categories {
		cat := domain.ServiceCategory(strings.TrimSpace(c))
		if cat == "" || seen[cat] {
			continue
		}
		seen[cat] = true
		app.Categories = append(app.Categories, cat)
	}
}

func mergeViolations(dst, src *domain.ValidationError) {
	for field, msgs := range src.Fields {
		for _, m := range msgs {
			dst.Add(field, m)
		}
	}
}

func recordViolations(verr *domain.ValidationError) {
	for field := range verr.Fields {
		metrics.ApplicationValidationFailuresTotal.WithLabelValues(field).Inc()
	}
}
