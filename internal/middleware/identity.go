package middleware

import (
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/flavor-entertainers/booking-platform/internal/utils"
)

// UserID returns the authenticated user id, if any.
func UserID(c echo.Context) (uint64, bool) {
	id, ok := c.Get(CtxUserID).(uint64)
	return id, ok && id != 0
}

// Role returns the authenticated role or "".
func Role(c echo.Context) string {
	r, _ := c.Get(CtxRole).(string)
	return r
}

// identity is the user component of rate limit keys; "anon" for
// unauthenticated requests.  Global middleware runs before JWTAuth, so a
// valid bearer token is read directly when secret is set.
func identity(c echo.Context, secret string) string {
	if id, ok := UserID(c); ok {
		return strconv.FormatUint(id, 10)
	}
	if secret != "" {
		if raw, ok := bearerToken(c); ok {
			if claims, err := utils.ParseAccessToken(secret, raw); err == nil {
				return strconv.FormatUint(claims.UserID, 10)
			}
		}
	}
	return "anon"
}
