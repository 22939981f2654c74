package handler

import (
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/druksewa/marketplace/internal/core/domain"
	"github.com/druksewa/marketplace/internal/core/ports"
)

// ApplicationHandler serves the applicant's side of the provider workflow.
type ApplicationHandler struct {
	service ports.ApplicationService
}

func NewApplicationHandler(service ports.ApplicationService) *ApplicationHandler {
	return &ApplicationHandler{service: service}
}

// Directory handles GET /providers: the public list of approved providers.
//
// @Summary      Browse approved providers
// @Tags         providers
// @Produce      json
// @Param        category  query     string  false  "Only providers offering this category"
// @Success      200       {object}  providerListResponse
// @Failure      422       {object}  errorResponse
// @Router       /providers [get]
func (h *ApplicationHandler) Directory(c echo.Context) error {
	providers, err := h.service.Directory(c.Request().Context(), c.QueryParam("category"))
	if err != nil {
		return err
	}
	if providers == nil {
		providers = []*ports.ProviderListing{}
	}
	return c.JSON(http.StatusOK, providerListResponse{Providers: providers, Count: len(providers)})
}

// Register handles POST /providers/register: fills the draft from a
// multipart form, uploads the certificates and submits.
//
// @Summary      Apply to become a provider
// @Tags         providers
// @Accept       multipart/form-data
// @Produce      json
// @Security     BearerAuth
// @Param        dzongkhag    formData  string  true   "Dzongkhag"
// @Param        city         formData  string  true   "City"
// @Param        cid          formData  string  true   "11-digit citizen ID"
// @Param        pricingType  formData  string  true   "perHour or perJob"
// @Param        pricing      formData  number  true   "Pricing amount"
// @Param        category     formData  []string true  "Service categories" collectionFormat(multi)
// @Param        files        formData  file    true   "Certificates (JPG, PNG or PDF, 5MB max each)"
// @Success      201  {object}  domain.ProviderApplication
// @Failure      401  {object}  errorResponse
// @Failure      409  {object}  errorResponse
// @Failure      422  {object}  errorResponse
// @Router       /providers/register [post]
func (h *ApplicationHandler) Register(c echo.Context) error {
	sess, err := currentSession(c)
	if err != nil {
		return err
	}

	form, err := c.MultipartForm()
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid multipart form")
	}
	uploads, closeAll, err := openUploads(form.File["files"])
	if err != nil {
		return err
	}
	defer closeAll()

	app, err := h.service.Register(c.Request().Context(), sess.UserID, draftFromForm(form), uploads)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, app)
}

// Current handles GET /providers/application.
//
// @Summary      Caller's latest application
// @Tags         providers
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  domain.ProviderApplication
// @Failure      404  {object}  errorResponse
// @Router       /providers/application [get]
func (h *ApplicationHandler) Current(c echo.Context) error {
	sess, err := currentSession(c)
	if err != nil {
		return err
	}
	app, err := h.service.Current(c.Request().Context(), sess.UserID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, app)
}

// CreateDraft handles POST /providers/application.
//
// @Summary      Open a draft application
// @Tags         providers
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body  body      draftRequest  true  "Draft fields"
// @Success      201   {object}  domain.ProviderApplication
// @Failure      409   {object}  errorResponse
// @Router       /providers/application [post]
func (h *ApplicationHandler) CreateDraft(c echo.Context) error {
	sess, err := currentSession(c)
	if err != nil {
		return err
	}
	var req draftRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}

	app, err := h.service.CreateDraft(c.Request().Context(), sess.UserID, req.toInput())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, app)
}

// UpdateDraft handles PUT /providers/application.
//
// @Summary      Edit the draft application
// @Tags         providers
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body  body      draftRequest  true  "Draft fields"
// @Success      200   {object}  domain.ProviderApplication
// @Failure      404   {object}  errorResponse
// @Failure      409   {object}  errorResponse
// @Router       /providers/application [put]
func (h *ApplicationHandler) UpdateDraft(c echo.Context) error {
	sess, err := currentSession(c)
	if err != nil {
		return err
	}
	var req draftRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}

	return h.onCurrent(c, sess, func(id string) (*domain.ProviderApplication, error) {
		return h.service.UpdateDraft(c.Request().Context(), sess.UserID, id, req.toInput())
	})
}

// AttachCertificates handles POST /providers/application/certificates.
//
// @Summary      Upload certificates to the draft
// @Tags         providers
// @Accept       multipart/form-data
// @Produce      json
// @Security     BearerAuth
// @Param        files  formData  file  true  "Certificates"
// @Success      200    {object}  domain.ProviderApplication
// @Failure      409    {object}  errorResponse
// @Failure      422    {object}  errorResponse
// @Router       /providers/application/certificates [post]
func (h *ApplicationHandler) AttachCertificates(c echo.Context) error {
	sess, err := currentSession(c)
	if err != nil {
		return err
	}
	form, err := c.MultipartForm()
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid multipart form")
	}
	uploads, closeAll, err := openUploads(form.File["files"])
	if err != nil {
		return err
	}
	defer closeAll()

	return h.onCurrent(c, sess, func(id string) (*domain.ProviderApplication, error) {
		return h.service.AttachCertificates(c.Request().Context(), sess.UserID, id, uploads)
	})
}

// Submit handles POST /providers/application/submit.
//
// @Summary      Submit the draft for review
// @Tags         providers
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  domain.ProviderApplication
// @Failure      409  {object}  errorResponse
// @Failure      422  {object}  errorResponse
// @Router       /providers/application/submit [post]
func (h *ApplicationHandler) Submit(c echo.Context) error {
	sess, err := currentSession(c)
	if err != nil {
		return err
	}
	return h.onCurrent(c, sess, func(id string) (*domain.ProviderApplication, error) {
		return h.service.Submit(c.Request().Context(), sess.UserID, id)
	})
}

// Withdraw handles POST /providers/application/withdraw.
//
// @Summary      Withdraw a pending application back to draft
// @Tags         providers
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  domain.ProviderApplication
// @Failure      409  {object}  errorResponse
// @Router       /providers/application/withdraw [post]
func (h *ApplicationHandler) Withdraw(c echo.Context) error {
	sess, err := currentSession(c)
	if err != nil {
		return err
	}
	return h.onCurrent(c, sess, func(id string) (*domain.ProviderApplication, error) {
		return h.service.Withdraw(c.Request().Context(), sess.UserID, id)
	})
}

// Resubmit handles POST /providers/application/resubmit.
//
// @Summary      Start a new draft from a rejected application
// @Tags         providers
// @Produce      json
// @Security     BearerAuth
// @Success      201  {object}  domain.ProviderApplication
// @Failure      409  {object}  errorResponse
// @Router       /providers/application/resubmit [post]
func (h *ApplicationHandler) Resubmit(c echo.Context) error {
	sess, err := currentSession(c)
	if err != nil {
		return err
	}
	current, err := h.service.Current(c.Request().Context(), sess.UserID)
	if err != nil {
		return err
	}
	app, err := h.service.Resubmit(c.Request().Context(), sess.UserID, current.ID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, app)
}

// onCurrent resolves the caller's latest application and runs op on it.
func (h *ApplicationHandler) onCurrent(c echo.Context, sess *domain.Session, op func(id string) (*domain.ProviderApplication, error)) error {
	current, err := h.service.Current(c.Request().Context(), sess.UserID)
	if err != nil {
		return err
	}
	app, err := op(current.ID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, app)
}

func (r draftRequest) toInput() ports.DraftInput {
	return ports.DraftInput{
		Dzongkhag:     r.Dzongkhag,
		City:          r.City,
		Categories:    r.Categories,
		CitizenID:     r.CitizenID,
		PricingType:   r.PricingType,
		PricingAmount: r.PricingAmount,
	}
}

// draftFromForm reads the registration form. An unparsable pricing amount is
// left at zero and reported by submission validation.
func draftFromForm(form *multipart.Form) ports.DraftInput {
	first := func(key string) string {
		if v := form.Value[key]; len(v) > 0 {
			return strings.TrimSpace(v[0])
		}
		return ""
	}

	amount, _ := strconv.ParseFloat(first("pricing"), 64)
	categories := append([]string(nil), form.Value["category"]...)
	categories = append(categories, form.Value["categories"]...)

	return ports.DraftInput{
		Dzongkhag:     first("dzongkhag"),
		City:          first("city"),
		Categories:    categories,
		CitizenID:     first("cid"),
		PricingType:   first("pricingType"),
		PricingAmount: amount,
	}
}

// openUploads opens every file header. The returned func closes them all.
func openUploads(headers []*multipart.FileHeader) ([]ports.CertificateUpload, func(), error) {
	files := make([]multipart.File, 0, len(headers))
	closeAll := func() {
		for _, f := range files {
			_ = f.Close()
		}
	}

	uploads := make([]ports.CertificateUpload, 0, len(headers))
	for _, fh := range headers {
		f, err := fh.Open()
		if err != nil {
			closeAll()
			return nil, func() {}, echo.NewHTTPError(http.StatusBadRequest, "cannot read uploaded file "+fh.Filename)
		}
		files = append(files, f)
		uploads = append(uploads, ports.CertificateUpload{
			Filename:    fh.Filename,
			ContentType: fh.Header.Get(echo.HeaderContentType),
			Size:        fh.Size,
			Body:        f,
		})
	}
	return uploads, closeAll, nil
}
