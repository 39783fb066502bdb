package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/restaurant-frontdesk/internal/model"
	"github.com/iliyamo/restaurant-frontdesk/internal/service"
)

// OverrideHandler is the manager's per-date calendar.
type OverrideHandler struct {
	Overrides *service.OverrideService
}

// Get handles GET /v1/staff/overrides/:date.
func (h *OverrideHandler) Get(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()
	o, err := h.Overrides.Get(ctx, c.Param("date"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, toOverride(o))
}

type overrideReq struct {
	Closed    bool    `json:"closed"`
	OpenTime  *string `json:"open_time" validate:"omitempty,clock"`
	CloseTime *string `json:"close_time" validate:"omitempty,clock"`
	MaxCovers *int    `json:"max_covers" validate:"omitempty,min=0"`
	Note      string  `json:"note" validate:"max=255"`
}

// Put handles PUT /v1/staff/overrides/:date.
func (h *OverrideHandler) Put(c echo.Context) error {
	var req overrideReq
	if err := bind(c, &req); err != nil {
		return respondError(c, err)
	}
	open, err := clockPtr(req.OpenTime)
	if err != nil {
		return respondError(c, err)
	}
	closeAt, err := clockPtr(req.CloseTime)
	if err != nil {
		return respondError(c, err)
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	o, err := h.Overrides.Put(ctx, model.DayOverride{
		Date:        c.Param("date"),
		Closed:      req.Closed,
		OpenMinute:  open,
		CloseMinute: closeAt,
		MaxCovers:   req.MaxCovers,
		Note:        req.Note,
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, toOverride(o))
}

// Delete handles DELETE /v1/staff/overrides/:date.
func (h *OverrideHandler) Delete(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()
	if err := h.Overrides.Delete(ctx, c.Param("date")); err != nil {
		return respondError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}
