// Package middleware holds the Echo middleware shared by the routes.
package middleware

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/littlelemon/restaurant/internal/auth"
)

// AuthHeaderType is the scheme expected in the Authorization header:
// "Authorization: JWT <token>".
const AuthHeaderType = "JWT"

// JWTAuth returns an Echo middleware that rejects requests without a
// valid access token.  The token is handed to v as an opaque string;
// nothing is stored in the context.
func JWTAuth(v auth.TokenValidator) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			raw, ok := tokenFromHeader(c.Request().Header.Get(echo.HeaderAuthorization))
			if !ok {
				return unauthorized(c, "Authentication credentials were not provided.")
			}
			if err := v.Validate(raw); err != nil {
				return unauthorized(c, "Given token not valid for any token type")
			}
			return next(c)
		}
	}
}

// tokenFromHeader splits "JWT <token>".  The scheme is matched
// case-sensitively and exactly one token must follow it.
func tokenFromHeader(h string) (string, bool) {
	parts := strings.Fields(h)
	if len(parts) != 2 || parts[0] != AuthHeaderType {
		return "", false
	}
	return parts[1], true
}

func unauthorized(c echo.Context, msg string) error {
	c.Response().Header().Set(echo.HeaderWWWAuthenticate, AuthHeaderType+` realm="api"`)
	return c.JSON(http.StatusUnauthorized, echo.Map{"error": msg})
}
