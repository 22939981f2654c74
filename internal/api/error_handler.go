package api

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/druksewa/marketplace/internal/core/domain"
)

// errorResponse is the canonical error envelope for all API errors.
type errorResponse struct {
	Error         string              `json:"error"`
	ID            string              `json:"id,omitempty"`
	Fields        map[string][]string `json:"fields,omitempty"`
	CurrentStatus string              `json:"current_status,omitempty"`
}

// NewHTTPErrorHandler returns an echo.HTTPErrorHandler that maps domain errors
// to status codes and hides unexpected failures behind a generic 500.
func NewHTTPErrorHandler(log zerolog.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		code, body := resolveError(err, log, c)
		if c.Request().Method == http.MethodHead {
			_ = c.NoContent(code)
			return
		}
		_ = c.JSON(code, body)
	}
}

// sentinelStatus maps domain sentinels to status codes. The sentinel's own
// text is the response message so clients can map it back.
var sentinelStatus = []struct {
	err  error
	code int
}{
	{domain.ErrInvalidCredential, http.StatusUnauthorized},
	{domain.ErrUnauthorized, http.StatusUnauthorized},
	{domain.ErrAccountInactive, http.StatusUnauthorized},
	{domain.ErrForbidden, http.StatusForbidden},
	{domain.ErrApplicationNotFound, http.StatusNotFound},
	{domain.ErrUserNotFound, http.StatusNotFound},
	{domain.ErrDocumentNotFound, http.StatusNotFound},
	{domain.ErrUserExists, http.StatusConflict},
	{domain.ErrActiveApplication, http.StatusConflict},
	{domain.ErrAlreadyProvider, http.StatusConflict},
	{domain.ErrInvalidTransition, http.StatusConflict},
	{domain.ErrRoleLocked, http.StatusConflict},
	{domain.ErrInvalidOTP, http.StatusBadRequest},
}

func resolveError(err error, log zerolog.Logger, c echo.Context) (int, errorResponse) {
	var he *echo.HTTPError
	if errors.As(err, &he) {
		return he.Code, errorResponse{Error: fmt.Sprintf("%v", he.Message)}
	}

	var verr *domain.ValidationError
	if errors.As(err, &verr) {
		return http.StatusUnprocessableEntity, errorResponse{Error: "validation failed", Fields: verr.Fields}
	}

	var cerr *domain.ConflictError
	if errors.As(err, &cerr) {
		return http.StatusConflict, errorResponse{Error: cerr.Error(), ID: cerr.ID, CurrentStatus: string(cerr.Current)}
	}

	for _, m := range sentinelStatus {
		if errors.Is(err, m.err) {
			return m.code, errorResponse{Error: m.err.Error()}
		}
	}

	log.Error().
		Err(err).
		Str("method", c.Request().Method).
		Str("path", c.Path()).
		Msg("unhandled error")

	return http.StatusInternalServerError, errorResponse{Error: "internal server error"}
}
