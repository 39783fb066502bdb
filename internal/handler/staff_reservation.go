package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/restaurant-frontdesk/internal/apperr"
	"github.com/iliyamo/restaurant-frontdesk/internal/localtime"
	"github.com/iliyamo/restaurant-frontdesk/internal/middleware"
	"github.com/iliyamo/restaurant-frontdesk/internal/model"
	"github.com/iliyamo/restaurant-frontdesk/internal/service"
)

// StaffHandler exposes the reservation book to front-of-house staff.
type StaffHandler struct {
	Slots        *service.AvailabilityService
	Reservations *service.ReservationService
	Self         *service.SelfService
}

type dateQuery struct {
	Date string `query:"date" json:"date" validate:"required,date"`
}

// List handles GET /v1/staff/reservations?date=.
func (h *StaffHandler) List(c echo.Context) error {
	var q dateQuery
	if err := bind(c, &q); err != nil {
		return respondError(c, err)
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	rs, err := h.Reservations.ListByDate(ctx, q.Date)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"date": q.Date, "reservations": toReservations(rs)})
}

type staffAvailabilityQuery struct {
	Date      string `query:"date" json:"date" validate:"required,date"`
	PartySize int    `query:"party_size" json:"party_size" validate:"required,min=1"`
	Exclude   uint64 `query:"exclude" json:"exclude"`
}

// Availability handles GET /v1/staff/availability. exclude leaves one
// reservation out so staff can see where it could move.
func (h *StaffHandler) Availability(c echo.Context) error {
	var q staffAvailabilityQuery
	if err := bind(c, &q); err != nil {
		return respondError(c, err)
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	slots, err := h.Slots.GetSlots(ctx, q.Date, q.PartySize, q.Exclude)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"date": q.Date, "party_size": q.PartySize, "slots": toSlots(slots)})
}

type staffCreateReq struct {
	Date       string  `json:"date" validate:"required,date"`
	Time       string  `json:"time" validate:"required,clock"`
	PartySize  int     `json:"party_size" validate:"required,min=1"`
	Source     string  `json:"source" validate:"omitempty,oneof=phone walkin widget"`
	GuestName  string  `json:"guest_name" validate:"required,max=120"`
	GuestPhone string  `json:"guest_phone" validate:"max=40"`
	GuestEmail string  `json:"guest_email" validate:"omitempty,email,max=190"`
	Notes      string  `json:"notes" validate:"max=500"`
	TableID    *uint64 `json:"table_id"`
	GuestID    *uint64 `json:"guest_id"`
	PreorderID *uint64 `json:"preorder_id"`
	PaymentRef *string `json:"payment_ref" validate:"omitempty,max=120"`
}

// Create handles POST /v1/staff/reservations. Staff bookings default to
// the phone source.
func (h *StaffHandler) Create(c echo.Context) error {
	var req staffCreateReq
	if err := bind(c, &req); err != nil {
		return respondError(c, err)
	}
	source := model.Source(req.Source)
	if source == "" {
		source = model.SourcePhone
	}
	start, _ := localtime.ParseClock(req.Time)
	ctx, cancel := reqCtx(c)
	defer cancel()
	r, err := h.Reservations.Create(ctx, service.CreateRequest{
		Date:       req.Date,
		Time:       start,
		PartySize:  req.PartySize,
		Source:     source,
		GuestName:  req.GuestName,
		GuestPhone: req.GuestPhone,
		GuestEmail: req.GuestEmail,
		Notes:      req.Notes,
		TableID:    req.TableID,
		GuestID:    req.GuestID,
		PreorderID: req.PreorderID,
		PaymentRef: req.PaymentRef,
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusCreated, toReservation(r))
}

// Get handles GET /v1/staff/reservations/:id.
func (h *StaffHandler) Get(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return respondError(c, err)
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	r, err := h.Reservations.Get(ctx, id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, toReservation(r))
}

// History handles GET /v1/staff/reservations/:id/history.
func (h *StaffHandler) History(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return respondError(c, err)
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	recs, err := h.Self.History(ctx, id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"reservation_id": id, "history": toAudit(recs)})
}

type editReq struct {
	Date       *string `json:"date" validate:"omitempty,date"`
	Time       *string `json:"time" validate:"omitempty,clock"`
	PartySize  *int    `json:"party_size" validate:"omitempty,min=1"`
	TableID    *uint64 `json:"table_id"`
	ClearTable bool    `json:"clear_table"`
	Notes      *string `json:"notes" validate:"omitempty,max=500"`
}

// Edit handles PATCH /v1/staff/reservations/:id.
func (h *StaffHandler) Edit(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return respondError(c, err)
	}
	var req editReq
	if err := bind(c, &req); err != nil {
		return respondError(c, err)
	}
	start, err := clockPtr(req.Time)
	if err != nil {
		return respondError(c, err)
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	r, err := h.Reservations.Edit(ctx, id, service.EditRequest{
		Date:       req.Date,
		Time:       start,
		PartySize:  req.PartySize,
		TableID:    req.TableID,
		ClearTable: req.ClearTable,
		Notes:      req.Notes,
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, toReservation(r))
}

type actionReq struct {
	Reason  string `json:"reason" validate:"max=500"`
	Note    string `json:"note" validate:"max=500"`
	Date    string `json:"date" validate:"omitempty,date"`
	Time    string `json:"time" validate:"omitempty,clock"`
	TableID uint64 `json:"table_id"`
}

// Action handles POST /v1/staff/reservations/:id/:action for every
// state-machine transition.
func (h *StaffHandler) Action(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return respondError(c, err)
	}
	var req actionReq
	if err := bind(c, &req); err != nil {
		return respondError(c, err)
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	var r model.Reservation
	switch action := c.Param("action"); action {
	case "approve":
		r, err = h.Reservations.Approve(ctx, id)
	case "decline":
		r, err = h.Reservations.Decline(ctx, id, req.Reason)
	case "counter-offer":
		if req.Date == "" || req.Time == "" {
			return respondError(c, apperr.Invalid("time", "date and time are required for a counter offer"))
		}
		start, _ := localtime.ParseClock(req.Time)
		r, err = h.Reservations.CounterOffer(ctx, id, req.Date, start, req.Note)
	case "confirm":
		r, err = h.Reservations.Confirm(ctx, id)
	case "arrive":
		r, err = h.Reservations.Arrive(ctx, id)
	case "seat":
		r, err = h.Reservations.Seat(ctx, id, req.TableID)
	case "complete":
		r, err = h.Reservations.Complete(ctx, id, middleware.Actor(c))
	case "no-show":
		r, err = h.Reservations.NoShow(ctx, id)
	case "cancel":
		r, err = h.Reservations.Cancel(ctx, id, req.Reason, middleware.Actor(c))
	default:
		return c.JSON(http.StatusNotFound, echo.Map{"error": "unknown action " + action})
	}
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, toReservation(r))
}
