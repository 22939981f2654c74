package middleware

import (
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"

	"github.com/druksewa/marketplace/internal/core/domain"
)

// SessionKey is the echo.Context key holding the caller's *domain.Session.
const SessionKey = "session"

// Auth validates the bearer JWT when one is sent and injects the resulting
// session into the context. Requests without a valid token pass through
// without a session; Guard decides whether that is acceptable.
func Auth(jwtSecret string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			authHeader := c.Request().Header.Get(echo.HeaderAuthorization)
			if authHeader == "" {
				return next(c)
			}

			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
				c.Logger().Debug("ignoring malformed authorization header")
				return next(c)
			}

			if sess, ok := parseSession(parts[1], jwtSecret); ok {
				c.Set(SessionKey, sess)
			}
			return next(c)
		}
	}
}

// SessionFrom returns the session injected by Auth, or nil.
func SessionFrom(c echo.Context) *domain.Session {
	sess, _ := c.Get(SessionKey).(*domain.Session)
	return sess
}

func parseSession(raw, jwtSecret string) (*domain.Session, bool) {
	claims := jwt.MapClaims{}
	tkn, err := jwt.ParseWithClaims(raw, claims, func(token *jwt.Token) (interface{}, error) {
		if token.Method.Alg() != jwt.SigningMethodHS256.Alg() {
			return nil, jwt.ErrTokenSignatureInvalid
		}
		return []byte(jwtSecret), nil
	})
	if err != nil || !tkn.Valid {
		return nil, false
	}

	sub, _ := claims["sub"].(string)
	rawRole, _ := claims["role"].(string)
	role, ok := domain.ParseRole(rawRole)
	if sub == "" || !ok {
		return nil, false
	}

	sess := &domain.Session{Token: raw, UserID: sub, Role: role}
	if iat, err := claims.GetIssuedAt(); err == nil && iat != nil {
		sess.IssuedAt = iat.Time.UTC()
	} else {
		sess.IssuedAt = time.Now().UTC()
	}
	return sess, true
}
