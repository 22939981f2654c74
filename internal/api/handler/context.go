package handler

import (
	"github.com/labstack/echo/v4"

	"github.com/druksewa/marketplace/internal/api/middleware"
	"github.com/druksewa/marketplace/internal/core/domain"
)

// currentSession returns the session injected by the Auth middleware. Routes
// are guarded, so a missing session means the middleware chain is miswired;
// it is still answered with 401 rather than a panic.
func currentSession(c echo.Context) (*domain.Session, error) {
	sess := middleware.SessionFrom(c)
	if sess == nil || sess.UserID == "" {
		return nil, domain.ErrUnauthorized
	}
	return sess, nil
}
