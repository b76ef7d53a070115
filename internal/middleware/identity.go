package middleware

import "github.com/labstack/echo/v4"

// Actor returns the authenticated subject stored by JWTAuth, or "" when
// the request is anonymous.  The value is opaque: it is recorded in audit
// fields as is.
func Actor(c echo.Context) string {
	if s, ok := c.Get(ActorKey).(string); ok {
		return s
	}
	return ""
}
