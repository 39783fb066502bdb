package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/restaurant-frontdesk/internal/localtime"
	"github.com/iliyamo/restaurant-frontdesk/internal/model"
	"github.com/iliyamo/restaurant-frontdesk/internal/service"
)

const requestTimeout = 5 * time.Second

func reqCtx(c echo.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request().Context(), requestTimeout)
}

// PublicHandler serves the booking widget and guest self-service.
type PublicHandler struct {
	Availability *service.AvailabilityService
	Reservations *service.ReservationService
	Self         *service.SelfService
}

type availabilityQuery struct {
	Date      string `query:"date" json:"date" validate:"required,date"`
	PartySize int    `query:"party_size" json:"party_size" validate:"required,min=1"`
}

// GetAvailability handles GET /v1/availability?date=&party_size=.
func (h *PublicHandler) GetAvailability(c echo.Context) error {
	var q availabilityQuery
	if err := bind(c, &q); err != nil {
		return respondError(c, err)
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	slots, err := h.Availability.GetSlots(ctx, q.Date, q.PartySize, 0)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"date": q.Date, "party_size": q.PartySize, "slots": toSlots(slots)})
}

type widgetReservationReq struct {
	Date       string `json:"date" validate:"required,date"`
	Time       string `json:"time" validate:"required,clock"`
	PartySize  int    `json:"party_size" validate:"required,min=1"`
	GuestName  string `json:"guest_name" validate:"required,max=120"`
	GuestPhone string `json:"guest_phone" validate:"max=40"`
	GuestEmail string `json:"guest_email" validate:"omitempty,email,max=190"`
	Notes      string `json:"notes" validate:"max=500"`
}

// CreateReservation handles POST /v1/reservations from the booking widget.
func (h *PublicHandler) CreateReservation(c echo.Context) error {
	var req widgetReservationReq
	if err := bind(c, &req); err != nil {
		return respondError(c, err)
	}
	start, _ := localtime.ParseClock(req.Time)
	ctx, cancel := reqCtx(c)
	defer cancel()
	r, err := h.Reservations.Create(ctx, service.CreateRequest{
		Date:       req.Date,
		Time:       start,
		PartySize:  req.PartySize,
		Source:     model.SourceWidget,
		GuestName:  req.GuestName,
		GuestPhone: req.GuestPhone,
		GuestEmail: req.GuestEmail,
		Notes:      req.Notes,
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusCreated, toGuestReservation(r))
}

type credentialsReq struct {
	Code       string `json:"code" validate:"required"`
	PhoneLast4 string `json:"phone_last4" validate:"required,len=4,numeric"`
}

func (r credentialsReq) credentials() service.Credentials {
	return service.Credentials{Code: r.Code, PhoneLast4: r.PhoneLast4}
}

// Lookup handles POST /v1/self-service/lookup.
func (h *PublicHandler) Lookup(c echo.Context) error {
	var req credentialsReq
	if err := bind(c, &req); err != nil {
		return respondError(c, err)
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	r, err := h.Self.Lookup(ctx, req.credentials())
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, toGuestReservation(r))
}

type selfCancelReq struct {
	credentialsReq
	Reason string `json:"reason" validate:"max=500"`
}

// Cancel handles POST /v1/self-service/cancel.
func (h *PublicHandler) Cancel(c echo.Context) error {
	var req selfCancelReq
	if err := bind(c, &req); err != nil {
		return respondError(c, err)
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	r, err := h.Self.Cancel(ctx, req.credentials(), req.Reason)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, toGuestReservation(r))
}

type selfModifyReq struct {
	credentialsReq
	Date      string `json:"date" validate:"omitempty,date"`
	Time      string `json:"time" validate:"required,clock"`
	PartySize int    `json:"party_size" validate:"omitempty,min=1"`
}

// Modify handles POST /v1/self-service/modify.
func (h *PublicHandler) Modify(c echo.Context) error {
	var req selfModifyReq
	if err := bind(c, &req); err != nil {
		return respondError(c, err)
	}
	start, _ := localtime.ParseClock(req.Time)
	ctx, cancel := reqCtx(c)
	defer cancel()
	r, err := h.Self.Modify(ctx, req.credentials(), service.ModifyRequest{Date: req.Date, Time: start, PartySize: req.PartySize})
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, toGuestReservation(r))
}
