package client

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strconv"
	"time"

	"github.com/druksewa/marketplace/internal/core/domain"
	"github.com/druksewa/marketplace/internal/core/policy"
)

// File is a certificate picked by the user.
type File struct {
	Name        string
	ContentType string
	Data        []byte
}

// ApplicationForm is everything the provider registration form collects.
type ApplicationForm struct {
	Dzongkhag     string
	City          string
	Categories    []domain.ServiceCategory
	CitizenID     string
	PricingType   domain.PricingType
	PricingAmount float64
	Files         []File
}

// SubmitApplication validates the form locally and, when it passes, uploads
// it to the backend in one request. Violations come back together as a
// *domain.ValidationError and nothing is sent.
func (c *Client) SubmitApplication(ctx context.Context, form ApplicationForm) (*domain.ProviderApplication, error) {
	if err := validateForm(form); err != nil {
		return nil, err
	}

	body, contentType, err := encodeForm(form)
	if err != nil {
		return nil, err
	}

	var app domain.ProviderApplication
	req := request{method: http.MethodPost, path: "/providers/register", body: body, contentType: contentType, authed: true}
	attempts, err := c.doCounted(ctx, req, &app)
	if err != nil {
		// A retried upload may have landed the first time; the backend then
		// answers the replay with a conflict on the now pending application.
		var conflict *domain.ConflictError
		if attempts > 1 && errors.As(err, &conflict) && conflict.Current == domain.StatusPending {
			current, cerr := c.CurrentApplication(ctx)
			if cerr == nil && current.ID == conflict.ID && current.Status == domain.StatusPending {
				c.log.Info().Str("application_id", current.ID).Msg("retried submission already accepted")
				return current, nil
			}
		}
		return nil, err
	}
	return &app, nil
}

// CurrentApplication returns the caller's latest application.
func (c *Client) CurrentApplication(ctx context.Context) (*domain.ProviderApplication, error) {
	return c.applicationCall(ctx, http.MethodGet, "/providers/application")
}

// Withdraw moves a pending application back to draft.
func (c *Client) Withdraw(ctx context.Context) (*domain.ProviderApplication, error) {
	return c.applicationCall(ctx, http.MethodPost, "/providers/application/withdraw")
}

// Resubmit opens a new draft from a rejected application.
func (c *Client) Resubmit(ctx context.Context) (*domain.ProviderApplication, error) {
	return c.applicationCall(ctx, http.MethodPost, "/providers/application/resubmit")
}

func (c *Client) applicationCall(ctx context.Context, method, path string) (*domain.ProviderApplication, error) {
	req, _ := jsonRequest(method, path, nil, true)
	var app domain.ProviderApplication
	if err := c.do(ctx, req, &app); err != nil {
		return nil, err
	}
	return &app, nil
}

// validateForm applies the submission rules to the form as it would be
// stored, files included.
func validateForm(form ApplicationForm) error {
	now := time.Now().UTC()
	app := &domain.ProviderApplication{
		Location:   domain.Location{Dzongkhag: form.Dzongkhag, City: form.City},
		Categories: form.Categories,
		CitizenID:  form.CitizenID,
		Pricing:    domain.Pricing{Type: form.PricingType, Amount: form.PricingAmount},
	}
	for _, f := range form.Files {
		app.Certificates = append(app.Certificates, domain.DocumentRef{
			Filename:    f.Name,
			ContentType: f.ContentType,
			Size:        int64(len(f.Data)),
			UploadedAt:  now,
		})
	}
	return policy.ValidateSubmission(app)
}

func encodeForm(form ApplicationForm) ([]byte, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	fields := [][2]string{
		{"dzongkhag", form.Dzongkhag},
		{"city", form.City},
		{"cid", form.CitizenID},
		{"pricingType", string(form.PricingType)},
		{"pricing", strconv.FormatFloat(form.PricingAmount, 'f', -1, 64)},
	}
	for _, cat := range form.Categories {
		fields = append(fields, [2]string{"category", string(cat)})
	}
	for _, f := range fields {
		if err := w.WriteField(f[0], f[1]); err != nil {
			return nil, "", fmt.Errorf("encode form: %w", err)
		}
	}

	for _, f := range form.Files {
		hdr := make(textproto.MIMEHeader)
		hdr.Set("Content-Disposition", fmt.Sprintf(`form-data; name="files"; filename=%q`, f.Name))
		hdr.Set("Content-Type", policy.NormalizeContentType(f.ContentType))
		part, err := w.CreatePart(hdr)
		if err != nil {
			return nil, "", fmt.Errorf("encode form: %w", err)
		}
		if _, err := part.Write(f.Data); err != nil {
			return nil, "", fmt.Errorf("encode form: %w", err)
		}
	}

	if err := w.Close(); err != nil {
		return nil, "", fmt.Errorf("encode form: %w", err)
	}
	return buf.Bytes(), w.FormDataContentType(), nil
}
