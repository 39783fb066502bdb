package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/restaurant-frontdesk/internal/model"
	"github.com/iliyamo/restaurant-frontdesk/internal/service"
)

// WaitlistHandler manages the walk-in queue.
type WaitlistHandler struct {
	Waitlist *service.WaitlistService
}

// List handles GET /v1/staff/waitlist. ?all=true includes every closed
// entry instead of the recent ones.
func (h *WaitlistHandler) List(c echo.Context) error {
	all := c.QueryParam("all") == "true"
	ctx, cancel := reqCtx(c)
	defer cancel()
	entries, err := h.Waitlist.List(ctx, all)
	if err != nil {
		return respondError(c, err)
	}
	out := make([]waitlistPart, 0, len(entries))
	for _, e := range entries {
		out = append(out, toWaitlist(e))
	}
	return c.JSON(http.StatusOK, echo.Map{"entries": out})
}

type waitlistAddReq struct {
	GuestName     string `json:"guest_name" validate:"required,max=120"`
	GuestPhone    string `json:"guest_phone" validate:"max=40"`
	GuestEmail    string `json:"guest_email" validate:"omitempty,email,max=190"`
	PartySize     int    `json:"party_size" validate:"required,min=1"`
	Notes         string `json:"notes" validate:"max=500"`
	QuotedMinutes *int   `json:"quoted_minutes" validate:"omitempty,min=0"`
}

// Add handles POST /v1/staff/waitlist.
func (h *WaitlistHandler) Add(c echo.Context) error {
	var req waitlistAddReq
	if err := bind(c, &req); err != nil {
		return respondError(c, err)
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	e, err := h.Waitlist.Add(ctx, service.AddRequest{
		GuestName:     req.GuestName,
		GuestPhone:    req.GuestPhone,
		GuestEmail:    req.GuestEmail,
		PartySize:     req.PartySize,
		Notes:         req.Notes,
		QuotedMinutes: req.QuotedMinutes,
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusCreated, toWaitlist(e))
}

// Notify handles POST /v1/staff/waitlist/:id/notify.
func (h *WaitlistHandler) Notify(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return respondError(c, err)
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	e, err := h.Waitlist.Notify(ctx, id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, toWaitlist(e))
}

type waitlistSeatReq struct {
	CreateReservation *bool   `json:"create_reservation"`
	TableID           *uint64 `json:"table_id"`
}

// Seat handles POST /v1/staff/waitlist/:id/seat. A seated walk-in
// reservation is created unless create_reservation is false.
func (h *WaitlistHandler) Seat(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return respondError(c, err)
	}
	var req waitlistSeatReq
	if err := bind(c, &req); err != nil {
		return respondError(c, err)
	}
	create := req.CreateReservation == nil || *req.CreateReservation
	ctx, cancel := reqCtx(c)
	defer cancel()
	res, err := h.Waitlist.Seat(ctx, id, create, req.TableID)
	if err != nil {
		return respondError(c, err)
	}
	body := echo.Map{"entry": toWaitlist(res.Entry)}
	if res.Reservation != nil {
		body["reservation"] = toReservation(*res.Reservation)
	}
	return c.JSON(http.StatusOK, body)
}

// Remove handles DELETE /v1/staff/waitlist/:id?reason=left|cancelled.
func (h *WaitlistHandler) Remove(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return respondError(c, err)
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	e, err := h.Waitlist.Remove(ctx, id, model.WaitlistStatus(c.QueryParam("reason")))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, toWaitlist(e))
}
