package handler

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"
)

// Pinger is anything Health can ping, such as *sql.DB.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// Health returns the liveness handler. With a non-nil db it also reports
// database reachability and answers 503 when the ping fails.
func Health(db Pinger) echo.HandlerFunc {
	return func(c echo.Context) error {
		if db == nil {
			return c.JSON(http.StatusOK, echo.Map{"status": "ok"})
		}
		ctx, cancel := reqCtx(c)
		defer cancel()
		if err := db.PingContext(ctx); err != nil {
			return c.JSON(http.StatusServiceUnavailable, echo.Map{"status": "degraded", "database": "unreachable"})
		}
		return c.JSON(http.StatusOK, echo.Map{"status": "ok", "database": "ok"})
	}
}
