package service

import (
	"context"
	"crypto/subtle"
	"fmt"
	"log"
	"strings"
	"time"
	"unicode"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"github.com/iliyamo/restaurant-frontdesk/internal/apperr"
	"github.com/iliyamo/restaurant-frontdesk/internal/localtime"
	"github.com/iliyamo/restaurant-frontdesk/internal/model"
)

// Audit actions written by the gateway.
const (
	AuditSelfCancel = "self_service.cancel"
	AuditSelfModify = "self_service.modify"
)

// SelfService is the guest-facing gateway. Guests authenticate with the
// confirmation code and the last four digits of the booking phone number.
type SelfService struct {
	Reservations *ReservationService
	Settings     SettingsStore
	Audit        AuditStore
	SideEffects  Enqueuer
	Clock        clockwork.Clock
}

// Credentials identify a guest's booking.
type Credentials struct {
	Code       string
	PhoneLast4 string
}

// ModifyRequest is the guest's requested new slot.
type ModifyRequest struct {
	Date      string
	Time      int
	PartySize int
}

// blockedForGuest lists states a guest may no longer cancel from.
var blockedForGuest = map[model.ReservationStatus]bool{
	model.StatusArrived:   true,
	model.StatusSeated:    true,
	model.StatusCompleted: true,
	model.StatusNoShow:    true,
	model.StatusCancelled: true,
}

// Lookup returns the booking behind the credentials.
func (s *SelfService) Lookup(ctx context.Context, c Credentials) (model.Reservation, error) {
	return s.authenticate(ctx, c)
}

// Cancel cancels the guest's booking unless the party already arrived or
// the booking is closed.
func (s *SelfService) Cancel(ctx context.Context, c Credentials, reason string) (model.Reservation, error) {
	r, err := s.authenticate(ctx, c)
	if err != nil {
		return r, err
	}
	if blockedForGuest[r.Status] {
		return r, &apperr.ConflictError{Current: string(r.Status), Requested: string(model.StatusCancelled), Reason: "please contact the restaurant"}
	}
	if reason == "" {
		reason = "cancelled by guest"
	}
	out, err := s.Reservations.Cancel(ctx, r.ID, reason, "guest")
	if err != nil {
		return out, err
	}
	s.record(ctx, out, AuditSelfCancel, reason)
	return out, nil
}

// Modify moves the booking to a new slot. It is allowed only strictly before
// the cutoff, which is counted back from the booking's current start.
func (s *SelfService) Modify(ctx context.Context, c Credentials, req ModifyRequest) (model.Reservation, error) {
	r, err := s.authenticate(ctx, c)
	if err != nil {
		return r, err
	}
	if r.Status.Terminal() || r.Status == model.StatusArrived || r.Status == model.StatusSeated {
		return r, &apperr.ConflictError{Current: string(r.Status), Requested: "modify", Reason: "please contact the restaurant"}
	}
	st, err := s.Settings.Snapshot(ctx)
	if err != nil {
		return r, err
	}
	if err := s.checkCutoff(st, r); err != nil {
		return r, err
	}
	date, start, party := req.Date, req.Time, req.PartySize
	if date == "" {
		date = r.Date
	}
	if party == 0 {
		party = r.PartySize
	}
	out, err := s.Reservations.Edit(ctx, r.ID, EditRequest{Date: &date, Time: &start, PartySize: &party, OnGrid: true})
	if err != nil {
		return out, err
	}
	detail := fmt.Sprintf("%s %s party %d -> %s %s party %d",
		r.Date, localtime.FormatClock(r.Time), r.PartySize, out.Date, localtime.FormatClock(out.Time), out.PartySize)
	s.record(ctx, out, AuditSelfModify, detail)
	return out, nil
}

// History returns the audit trail of a reservation for staff.
func (s *SelfService) History(ctx context.Context, reservationID uint64) ([]model.AuditRecord, error) {
	return s.Audit.ListByReservation(ctx, reservationID)
}

// checkCutoff allows a change iff now < start - cutoff.
func (s *SelfService) checkCutoff(st model.Settings, r model.Reservation) error {
	start, err := r.StartAt(st.Location)
	if err != nil {
		return err
	}
	deadline := start.Add(-time.Duration(st.SelfServiceCutoffHours) * time.Hour)
	if s.Clock.Now().Before(deadline) {
		return nil
	}
	return &apperr.CutoffError{
		Deadline:    deadline,
		CutoffHours: st.SelfServiceCutoffHours,
		Phone:       st.RestaurantPhone,
		Email:       st.RestaurantEmail,
	}
}

// authenticate resolves the booking and compares the phone digits in
// constant time. Any mismatch reads as not found.
func (s *SelfService) authenticate(ctx context.Context, c Credentials) (model.Reservation, error) {
	code := NormalizeCode(c.Code)
	if len(code) != CodeLength {
		return model.Reservation{}, apperr.Invalid("code", "must be %d characters", CodeLength)
	}
	if len(c.PhoneLast4) != 4 || strings.IndexFunc(c.PhoneLast4, func(r rune) bool { return !unicode.IsDigit(r) }) >= 0 {
		return model.Reservation{}, apperr.Invalid("phone_last4", "must be 4 digits")
	}
	r, err := s.Reservations.GetByCode(ctx, code)
	if err != nil {
		return model.Reservation{}, err
	}
	want := lastDigits(r.GuestPhone, 4)
	if len(want) != 4 || subtle.ConstantTimeCompare([]byte(want), []byte(c.PhoneLast4)) != 1 {
		return model.Reservation{}, apperr.ErrNotFound
	}
	return r, nil
}

// record writes the audit entry and tells staff. Both are best effort.
func (s *SelfService) record(ctx context.Context, r model.Reservation, action, detail string) {
	if s.Audit != nil {
		rec := model.AuditRecord{
			ID:            uuid.NewString(),
			ReservationID: r.ID,
			Action:        action,
			Actor:         "guest",
			Detail:        detail,
			CreatedAt:     s.Clock.Now().UTC(),
		}
		if err := s.Audit.Record(context.WithoutCancel(ctx), rec); err != nil {
			log.Printf("selfservice: audit %s for reservation %d failed: %v", action, r.ID, err)
		}
	}
	dispatch(ctx, s.SideEffects, staffTask(action, r, detail))
}

func lastDigits(phone string, n int) string {
	var digits []rune
	for _, r := range phone {
		if unicode.IsDigit(r) {
			digits = append(digits, r)
		}
	}
	if len(digits) < n {
		return string(digits)
	}
	return string(digits[len(digits)-n:])
}
