package handler

import (
	"io"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/druksewa/marketplace/internal/core/domain"
	"github.com/druksewa/marketplace/internal/core/ports"
)

// AdminHandler serves the back-office review queue.
type AdminHandler struct {
	service ports.ApplicationService
}

func NewAdminHandler(service ports.ApplicationService) *AdminHandler {
	return &AdminHandler{service: service}
}

// Pending handles GET /admin/providers/pending.
//
// @Summary      Applications awaiting review
// @Tags         admin
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  applicationListResponse
// @Failure      401  {object}  errorResponse
// @Failure      403  {object}  errorResponse
// @Router       /admin/providers/pending [get]
func (h *AdminHandler) Pending(c echo.Context) error {
	return h.list(c, domain.StatusPending)
}

// Approved handles GET /admin/providers/approved.
//
// @Summary      Approved providers
// @Tags         admin
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  applicationListResponse
// @Router       /admin/providers/approved [get]
func (h *AdminHandler) Approved(c echo.Context) error {
	return h.list(c, domain.StatusApproved)
}

// Get handles GET /admin/providers/:id.
//
// @Summary      Application detail
// @Tags         admin
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Application ID"
// @Success      200  {object}  domain.ProviderApplication
// @Failure      404  {object}  errorResponse
// @Router       /admin/providers/{id} [get]
func (h *AdminHandler) Get(c echo.Context) error {
	app, err := h.service.Get(c.Request().Context(), c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, app)
}

// Approve handles POST /admin/providers/:id/approve. Approving an application
// that is no longer pending returns its current state with applied=false.
//
// @Summary      Approve an application
// @Tags         admin
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Application ID"
// @Success      200  {object}  decisionResponse
// @Failure      404  {object}  errorResponse
// @Router       /admin/providers/{id}/approve [post]
func (h *AdminHandler) Approve(c echo.Context) error {
	sess, err := currentSession(c)
	if err != nil {
		return err
	}
	d, err := h.service.Approve(c.Request().Context(), sess.UserID, c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, decisionResponse{Application: d.Application, Applied: d.Applied})
}

// Reject handles POST /admin/providers/:id/reject.
//
// @Summary      Reject an application
// @Tags         admin
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id    path      string         true   "Application ID"
// @Param        body  body      rejectRequest  false  "Reason shown to the applicant"
// @Success      200   {object}  decisionResponse
// @Failure      404   {object}  errorResponse
// @Router       /admin/providers/{id}/reject [post]
func (h *AdminHandler) Reject(c echo.Context) error {
	sess, err := currentSession(c)
	if err != nil {
		return err
	}
	var req rejectRequest
	if c.Request().ContentLength != 0 {
		if err := c.Bind(&req); err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
		}
	}

	d, err := h.service.Reject(c.Request().Context(), sess.UserID, c.Param("id"), req.Reason)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, decisionResponse{Application: d.Application, Applied: d.Applied})
}

// Certificate handles GET /admin/providers/:id/certificates/:docId.
//
// @Summary      Download a certificate
// @Tags         admin
// @Produce      application/octet-stream
// @Security     BearerAuth
// @Param        id     path  string  true  "Application ID"
// @Param        docId  path  string  true  "Document ID"
// @Success      200
// @Failure      404  {object}  errorResponse
// @Router       /admin/providers/{id}/certificates/{docId} [get]
func (h *AdminHandler) Certificate(c echo.Context) error {
	rc, ref, err := h.service.OpenCertificate(c.Request().Context(), c.Param("id"), c.Param("docId"))
	if err != nil {
		return err
	}
	defer rc.Close()

	c.Response().Header().Set(echo.HeaderContentDisposition, `inline; filename="`+ref.Filename+`"`)
	return c.Stream(http.StatusOK, ref.ContentType, io.Reader(rc))
}

func (h *AdminHandler) list(c echo.Context, status domain.ApplicationStatus) error {
	apps, err := h.service.ListByStatus(c.Request().Context(), status)
	if err != nil {
		return err
	}
	if apps == nil {
		apps = []*domain.ProviderApplication{}
	}
	return c.JSON(http.StatusOK, applicationListResponse{Applications: apps, Count: len(apps)})
}
