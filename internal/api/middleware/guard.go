package middleware

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/druksewa/marketplace/internal/core/access"
	"github.com/druksewa/marketplace/internal/core/domain"
)

type guardResponse struct {
	Error    string `json:"error"`
	Redirect string `json:"redirect"`
}

// Guard admits the request when access.Authorize allows the session for any
// of roles. With no roles the route only requires a session.
//
// A missing session answers 401 with the login page to redirect to; a
// session with the wrong role answers 403 with that role's home surface.
func Guard(roles ...domain.Role) echo.MiddlewareFunc {
	if len(roles) == 0 {
		roles = []domain.Role{access.PublicRequirement}
	}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			sess := SessionFrom(c)

			var denied access.Decision
			for i, role := range roles {
				d := access.Authorize(role, sess)
				if d.Allowed() {
					return next(c)
				}
				if i == 0 {
					denied = d
				}
			}

			if denied.Reason == access.ReasonUnauthenticated {
				return c.JSON(http.StatusUnauthorized, guardResponse{Error: "authentication required", Redirect: denied.Target})
			}
			return c.JSON(http.StatusForbidden, guardResponse{Error: "forbidden", Redirect: denied.Target})
		}
	}
}
