package handler

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/restaurant-frontdesk/internal/model"
	"github.com/iliyamo/restaurant-frontdesk/internal/pos"
)

// TableLister reads the table registry.
type TableLister interface {
	List(ctx context.Context) ([]model.RestaurantTable, error)
}

// OccupancyLister reads the POS occupancy annotations.
type OccupancyLister interface {
	List(ctx context.Context) ([]model.TableCheck, error)
}

// FloorHandler shows tables with their open checks and drives POS sync.
type FloorHandler struct {
	TableList TableLister
	Occupancy OccupancyLister
	POS       *pos.Reconciler
}

// Tables handles GET /v1/staff/tables.
func (h *FloorHandler) Tables(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()
	ts, err := h.TableList.List(ctx)
	if err != nil {
		return respondError(c, err)
	}
	checks, err := h.Occupancy.List(ctx)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"tables": toTables(ts, checks)})
}

// Sync handles POST /v1/staff/pos/sync: one reconciliation cycle now.
func (h *FloorHandler) Sync(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout+pos.DefaultTimeout)
	defer cancel()
	res, err := h.POS.Run(ctx, "manual")
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, res)
}

// Status handles GET /v1/staff/pos/status.
func (h *FloorHandler) Status(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()
	st, err := h.POS.Status(ctx)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, syncPart{LastSyncAt: st.LastSyncAt, OpenChecks: st.OpenChecks, LastError: st.LastError})
}
