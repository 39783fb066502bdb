package middleware

import "github.com/labstack/echo/v4"

// Context keys written by JWTAuth.
const (
	ctxStaffID = "staff_id"
	ctxRole    = "role"
	ctxEmail   = "email"
)

// StaffID returns the authenticated staff id in decimal, or "" for guests.
func StaffID(c echo.Context) string {
	s, _ := c.Get(ctxStaffID).(string)
	return s
}

// Role returns the authenticated role, or "".
func Role(c echo.Context) string {
	s, _ := c.Get(ctxRole).(string)
	return s
}

// Actor names the caller in audit rows and logs.
func Actor(c echo.Context) string {
	if id := StaffID(c); id != "" {
		return "staff:" + id
	}
	return "guest"
}
