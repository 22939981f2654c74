package client

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/druksewa/marketplace/internal/core/domain"
)

// NetworkError is a transient transport failure. The client retries it once.
type NetworkError struct {
	Op  string
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("%s: network error: %v", e.Op, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// APIError is a backend response that maps to no domain error.
type APIError struct {
	Status   int
	Message  string
	Redirect string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("backend returned %d: %s", e.Status, e.Message)
}

type errorBody struct {
	Error         string              `json:"error"`
	ID            string              `json:"id"`
	Fields        map[string][]string `json:"fields"`
	CurrentStatus string              `json:"current_status"`
	Redirect      string              `json:"redirect"`
}

// knownErrors are matched against the backend's error message.
var knownErrors = []error{
	domain.ErrInvalidCredential,
	domain.ErrUnauthorized,
	domain.ErrAccountInactive,
	domain.ErrForbidden,
	domain.ErrApplicationNotFound,
	domain.ErrUserNotFound,
	domain.ErrDocumentNotFound,
	domain.ErrUserExists,
	domain.ErrActiveApplication,
	domain.ErrAlreadyProvider,
	domain.ErrInvalidTransition,
	domain.ErrRoleLocked,
	domain.ErrInvalidOTP,
}

func decodeError(req request, status int, raw []byte) error {
	var body errorBody
	_ = json.Unmarshal(raw, &body)

	switch status {
	case http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return &NetworkError{Op: req.method + " " + req.path, Err: fmt.Errorf("status %d", status)}
	case http.StatusUnprocessableEntity:
		if len(body.Fields) > 0 {
			return &domain.ValidationError{Fields: body.Fields}
		}
	case http.StatusConflict:
		if body.CurrentStatus != "" {
			if current, ok := domain.ParseStatus(body.CurrentStatus); ok {
				return &domain.ConflictError{ID: body.ID, Current: current}
			}
		}
	}

	for _, known := range knownErrors {
		if body.Error == known.Error() {
			return known
		}
	}

	switch status {
	case http.StatusUnauthorized:
		return domain.ErrUnauthorized
	case http.StatusForbidden:
		return domain.ErrForbidden
	}
	return &APIError{Status: status, Message: body.Error, Redirect: body.Redirect}
}
