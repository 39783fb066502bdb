package handler

import (
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/restaurant-frontdesk/internal/apperr"
)

// respondError writes the JSON body for a service error.
func respondError(c echo.Context, err error) error {
	var (
		verr   *apperr.ValidationError
		aerr   *apperr.AvailabilityError
		cerr   *apperr.ConflictError
		cutErr *apperr.CutoffError
		xerr   *apperr.ExternalSyncError
	)
	switch {
	case errors.As(err, &verr):
		return c.JSON(http.StatusBadRequest, echo.Map{"error": verr.Error(), "field": verr.Field})
	case errors.Is(err, apperr.ErrNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": "not found"})
	case errors.As(err, &aerr):
		return c.JSON(http.StatusConflict, echo.Map{
			"error":      aerr.Error(),
			"code":       "unavailable",
			"reason":     aerr.Reason,
			"date":       aerr.Date,
			"time":       aerr.Time,
			"party_size": aerr.PartySize,
		})
	case errors.As(err, &cerr):
		return c.JSON(http.StatusConflict, echo.Map{
			"error":     cerr.Error(),
			"code":      "conflict",
			"current":   cerr.Current,
			"requested": cerr.Requested,
		})
	case errors.As(err, &cutErr):
		return c.JSON(http.StatusUnprocessableEntity, echo.Map{
			"error":        cutErr.Error(),
			"code":         "cutoff",
			"deadline":     cutErr.Deadline.UTC().Format(time.RFC3339),
			"cutoff_hours": cutErr.CutoffHours,
			"contact":      echo.Map{"phone": cutErr.Phone, "email": cutErr.Email},
		})
	case errors.As(err, &xerr):
		return c.JSON(http.StatusBadGateway, echo.Map{"error": xerr.Error(), "code": "pos_unavailable"})
	}
	log.Printf("http: %s %s: %v", c.Request().Method, c.Path(), err)
	return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error"})
}

// ErrorHandler is installed as echo's HTTPErrorHandler. Echo's own errors
// (404 route, 405, bind failures) keep their status; anything else goes
// through respondError.
func ErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}
	var he *echo.HTTPError
	if errors.As(err, &he) {
		msg, ok := he.Message.(string)
		if !ok {
			msg = http.StatusText(he.Code)
		}
		_ = c.JSON(he.Code, echo.Map{"error": msg})
		return
	}
	_ = respondError(c, err)
}
