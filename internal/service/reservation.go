package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jonboulle/clockwork"

	"github.com/iliyamo/restaurant-frontdesk/internal/apperr"
	"github.com/iliyamo/restaurant-frontdesk/internal/availability"
	"github.com/iliyamo/restaurant-frontdesk/internal/localtime"
	"github.com/iliyamo/restaurant-frontdesk/internal/model"
	"github.com/iliyamo/restaurant-frontdesk/internal/queue"
	"github.com/iliyamo/restaurant-frontdesk/internal/repository"
)

// ReservationService is the reservation state machine. Every write is a
// conditional update against the status it read, so two transitions on the
// same reservation cannot both succeed.
type ReservationService struct {
	Store        ReservationStore
	Tables       TableStore
	Settings     SettingsStore
	Availability *AvailabilityService
	SideEffects  Enqueuer
	Clock        clockwork.Clock
}

// CreateRequest is a new booking from the widget or from staff.
type CreateRequest struct {
	Date       string
	Time       int
	PartySize  int
	Source     model.Source
	GuestName  string
	GuestPhone string
	GuestEmail string
	Notes      string
	TableID    *uint64
	GuestID    *uint64
	PreorderID *uint64
	PaymentRef *string
}

// EditRequest changes a live booking. Nil fields are left alone.
type EditRequest struct {
	Date       *string
	Time       *int
	PartySize  *int
	TableID    *uint64
	ClearTable bool
	Notes      *string
	// OnGrid requires a changed start to be one of the target day's slots.
	OnGrid bool
}

// WalkIn is a party seated straight from the door or the waitlist.
type WalkIn struct {
	GuestName  string
	GuestPhone string
	GuestEmail string
	PartySize  int
	Notes      string
	TableID    *uint64
}

const maxCodeAttempts = 5

// Create validates the slot and stores a new reservation. Widget requests
// start pending unless auto-confirm is on; staff bookings start confirmed.
func (s *ReservationService) Create(ctx context.Context, req CreateRequest) (model.Reservation, error) {
	if !req.Source.Valid() {
		return model.Reservation{}, apperr.Invalid("source", "must be widget, phone or walkin")
	}
	if err := validateContact(req.GuestName, req.GuestPhone, req.GuestEmail); err != nil {
		return model.Reservation{}, err
	}
	st, err := s.Settings.Snapshot(ctx)
	if err != nil {
		return model.Reservation{}, err
	}
	avReq, err := s.Availability.check(ctx, st, req.Date, req.Time, req.PartySize, 0)
	if err != nil {
		return model.Reservation{}, err
	}
	if req.Source == model.SourceWidget && !avReq.OnGrid(req.Time) {
		return model.Reservation{}, offGrid(avReq)
	}

	now := s.Clock.Now().UTC()
	r := model.Reservation{
		Date:       req.Date,
		Time:       req.Time,
		Duration:   st.DiningDuration(req.PartySize),
		PartySize:  req.PartySize,
		Status:     model.StatusConfirmed,
		Source:     req.Source,
		GuestName:  strings.TrimSpace(req.GuestName),
		GuestPhone: strings.TrimSpace(req.GuestPhone),
		GuestEmail: strings.TrimSpace(req.GuestEmail),
		Notes:      req.Notes,
		GuestID:    req.GuestID,
		PreorderID: req.PreorderID,
		PaymentRef: req.PaymentRef,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if req.Source == model.SourceWidget && !st.AutoConfirmWidget {
		r.Status = model.StatusPending
	}
	switch {
	case req.TableID != nil:
		if err := s.checkTable(ctx, *req.TableID, r); err != nil {
			return model.Reservation{}, err
		}
		r.TableID = req.TableID
	case r.Status.HoldsTable():
		if t, ok := availability.FindTable(avReq, r.Time); ok {
			r.TableID = &t.ID
		}
	}

	if err := s.insert(ctx, &r); err != nil {
		return model.Reservation{}, err
	}
	if r.Source == model.SourceWidget {
		dispatch(ctx, s.SideEffects, staffTask("reservation.requested", r, ""))
	}
	return r, nil
}

// CreateSeatedWalkIn books a party that is already in the room. It enters
// the state machine directly as seated, today, starting now, and always at
// a table: without a free fitting one it fails with ReasonNoTable.
func (s *ReservationService) CreateSeatedWalkIn(ctx context.Context, w WalkIn) (model.Reservation, error) {
	if w.PartySize < 1 || w.PartySize > MaxPartySize {
		return model.Reservation{}, apperr.Invalid("party_size", "must be between 1 and %d", MaxPartySize)
	}
	if strings.TrimSpace(w.GuestName) == "" {
		return model.Reservation{}, apperr.Invalid("guest_name", "is required")
	}
	st, err := s.Settings.Snapshot(ctx)
	if err != nil {
		return model.Reservation{}, err
	}
	now := s.Clock.Now()
	utc := now.UTC()
	r := model.Reservation{
		Date:       localtime.Today(now, st.Location),
		Time:       localtime.MinuteOfDay(now, st.Location),
		Duration:   st.DiningDuration(w.PartySize),
		PartySize:  w.PartySize,
		Status:     model.StatusSeated,
		Source:     model.SourceWalkIn,
		GuestName:  strings.TrimSpace(w.GuestName),
		GuestPhone: strings.TrimSpace(w.GuestPhone),
		GuestEmail: strings.TrimSpace(w.GuestEmail),
		Notes:      w.Notes,
		ArrivedAt:  &utc,
		SeatedAt:   &utc,
		CreatedAt:  utc,
		UpdatedAt:  utc,
	}
	if w.TableID != nil {
		if err := s.checkTable(ctx, *w.TableID, r); err != nil {
			return model.Reservation{}, err
		}
		r.TableID = w.TableID
	} else {
		avReq, err := s.Availability.request(ctx, st, r.Date, r.PartySize, 0)
		if err != nil {
			return model.Reservation{}, err
		}
		t, ok := availability.FindTable(avReq, r.Time)
		if !ok {
			return model.Reservation{}, &apperr.AvailabilityError{Date: r.Date, Time: localtime.FormatClock(r.Time), PartySize: r.PartySize, Reason: apperr.ReasonNoTable}
		}
		r.TableID = &t.ID
	}
	if err := s.insert(ctx, &r); err != nil {
		return model.Reservation{}, err
	}
	return r, nil
}

func offGrid(req availability.Request) error {
	return apperr.Invalid("time", "must fall on a %d-minute slot from %s", req.Interval, localtime.FormatClock(req.Hours.Open))
}

func (s *ReservationService) insert(ctx context.Context, r *model.Reservation) error {
	var err error
	for i := 0; i < maxCodeAttempts; i++ {
		if r.Code, err = newCode(); err != nil {
			return err
		}
		err = s.Store.Create(ctx, r)
		if !errors.Is(err, repository.ErrDuplicateCode) {
			break
		}
	}
	if errors.Is(err, repository.ErrTableTaken) {
		return &apperr.AvailabilityError{Date: r.Date, Time: localtime.FormatClock(r.Time), PartySize: r.PartySize, Reason: apperr.ReasonTableTaken}
	}
	return err
}

// Get returns a reservation with lazy expiry applied to its status.
func (s *ReservationService) Get(ctx context.Context, id uint64) (model.Reservation, error) {
	r, err := s.Store.Get(ctx, id)
	if err != nil {
		return r, err
	}
	return s.withEffectiveStatus(ctx, r)
}

// GetByCode looks a reservation up by its confirmation code.
func (s *ReservationService) GetByCode(ctx context.Context, code string) (model.Reservation, error) {
	r, err := s.Store.GetByCode(ctx, NormalizeCode(code))
	if err != nil {
		return r, err
	}
	return s.withEffectiveStatus(ctx, r)
}

// ListByDate returns the day's reservations ordered by start time.
func (s *ReservationService) ListByDate(ctx context.Context, date string) ([]model.Reservation, error) {
	if _, err := localtime.ParseDate(date); err != nil {
		return nil, apperr.Invalid("date", "must be YYYY-MM-DD")
	}
	st, err := s.Settings.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	rs, err := s.Store.ListByDate(ctx, date)
	if err != nil {
		return nil, err
	}
	now := s.Clock.Now()
	for i := range rs {
		rs[i].Status = rs[i].EffectiveStatus(now, st.Location)
	}
	return rs, nil
}

func (s *ReservationService) withEffectiveStatus(ctx context.Context, r model.Reservation) (model.Reservation, error) {
	st, err := s.Settings.Snapshot(ctx)
	if err != nil {
		return r, err
	}
	r.Status = r.EffectiveStatus(s.Clock.Now(), st.Location)
	return r, nil
}

// Approve accepts a pending request and assigns a table when one is free.
func (s *ReservationService) Approve(ctx context.Context, id uint64) (model.Reservation, error) {
	return s.transition(ctx, id, model.StatusApproved, func(st model.Settings, r *model.Reservation) error {
		if r.TableID == nil {
			s.autoAssign(ctx, st, r)
		}
		return nil
	})
}

// Decline rejects a pending request.
func (s *ReservationService) Decline(ctx context.Context, id uint64, reason string) (model.Reservation, error) {
	r, err := s.transition(ctx, id, model.StatusDeclined, func(_ model.Settings, r *model.Reservation) error {
		r.CancelReason = reason
		return nil
	})
	if err == nil {
		dispatch(ctx, s.SideEffects, queue.NewTask(queue.KindCancelled, noticeFor(r, "declined: "+reason)))
	}
	return r, err
}

// CounterOffer proposes a different slot for a pending request. The new
// slot is validated like an edit.
func (s *ReservationService) CounterOffer(ctx context.Context, id uint64, date string, start int, note string) (model.Reservation, error) {
	r, err := s.transition(ctx, id, model.StatusCounterOffered, func(st model.Settings, r *model.Reservation) error {
		if _, err := s.Availability.check(ctx, st, date, start, r.PartySize, r.ID); err != nil {
			return err
		}
		r.Date, r.Time = date, start
		r.Duration = st.DiningDuration(r.PartySize)
		r.CounterOfferNote = note
		return nil
	})
	if err == nil {
		dispatch(ctx, s.SideEffects, queue.NewTask(queue.KindModified, noticeFor(r, "counter offer: "+note)))
	}
	return r, err
}

// Confirm records the guest's confirmation of an approved booking or their
// acceptance of a counter-offer.
func (s *ReservationService) Confirm(ctx context.Context, id uint64) (model.Reservation, error) {
	return s.transition(ctx, id, model.StatusConfirmed, func(st model.Settings, r *model.Reservation) error {
		if r.TableID == nil {
			s.autoAssign(ctx, st, r)
		}
		return nil
	})
}

// Arrive checks the party in.
func (s *ReservationService) Arrive(ctx context.Context, id uint64) (model.Reservation, error) {
	return s.transition(ctx, id, model.StatusArrived, func(_ model.Settings, r *model.Reservation) error {
		at := s.Clock.Now().UTC()
		r.ArrivedAt = &at
		return nil
	})
}

// Seat puts the party at tableID, or at its already assigned table when
// tableID is 0. The store re-checks that nobody holds the table for an
// overlapping interval.
func (s *ReservationService) Seat(ctx context.Context, id, tableID uint64) (model.Reservation, error) {
	return s.transition(ctx, id, model.StatusSeated, func(_ model.Settings, r *model.Reservation) error {
		if tableID == 0 {
			if r.TableID == nil {
				return apperr.Invalid("table_id", "is required to seat a party")
			}
			tableID = *r.TableID
		}
		if err := s.checkTable(ctx, tableID, *r); err != nil {
			return err
		}
		at := s.Clock.Now().UTC()
		r.TableID = &tableID
		r.SeatedAt = &at
		if r.ArrivedAt == nil {
			r.ArrivedAt = &at
		}
		return nil
	})
}

// Complete ends service for a seated party. actor names who closed it: a
// staff member or "pos".
func (s *ReservationService) Complete(ctx context.Context, id uint64, actor string) (model.Reservation, error) {
	r, err := s.transition(ctx, id, model.StatusCompleted, func(_ model.Settings, r *model.Reservation) error {
		at := s.Clock.Now().UTC()
		r.CompletedAt = &at
		return nil
	})
	if err == nil {
		s.queueGuestStats(ctx, r, actor)
	}
	return r, err
}

// NoShow marks a confirmed or approved guest who never came.
func (s *ReservationService) NoShow(ctx context.Context, id uint64) (model.Reservation, error) {
	r, err := s.transition(ctx, id, model.StatusNoShow, nil)
	if err == nil {
		s.queueGuestStats(ctx, r, "staff")
	}
	return r, err
}

// Cancel cancels any live reservation and releases its payment hold.
func (s *ReservationService) Cancel(ctx context.Context, id uint64, reason, actor string) (model.Reservation, error) {
	r, err := s.transition(ctx, id, model.StatusCancelled, func(_ model.Settings, r *model.Reservation) error {
		at := s.Clock.Now().UTC()
		r.CancelledAt = &at
		r.CancelReason = reason
		return nil
	})
	if err != nil {
		return r, err
	}
	if r.PaymentRef != nil && *r.PaymentRef != "" {
		t := queue.NewTask(queue.KindReleaseHold, noticeFor(r, ""))
		t.PaymentRef = *r.PaymentRef
		dispatch(ctx, s.SideEffects, t)
	}
	dispatch(ctx, s.SideEffects, queue.NewTask(queue.KindCancelled, noticeFor(r, fmt.Sprintf("cancelled by %s: %s", actor, reason))))
	return r, nil
}

// Edit changes date, time, party size or table of a live reservation. A
// changed slot is re-validated with the reservation's own interval left out.
func (s *ReservationService) Edit(ctx context.Context, id uint64, req EditRequest) (model.Reservation, error) {
	st, err := s.Settings.Snapshot(ctx)
	if err != nil {
		return model.Reservation{}, err
	}
	cur, err := s.Store.Get(ctx, id)
	if err != nil {
		return model.Reservation{}, err
	}
	eff := cur.EffectiveStatus(s.Clock.Now(), st.Location)
	if eff.Terminal() {
		return model.Reservation{}, &apperr.ConflictError{Current: string(eff), Requested: "edit", Reason: "reservation is closed"}
	}

	next := cur
	slotChanged := false
	if req.Date != nil && *req.Date != cur.Date {
		next.Date, slotChanged = *req.Date, true
	}
	if req.Time != nil && *req.Time != cur.Time {
		next.Time, slotChanged = *req.Time, true
	}
	if req.PartySize != nil && *req.PartySize != cur.PartySize {
		next.PartySize, slotChanged = *req.PartySize, true
	}
	if req.Notes != nil {
		next.Notes = *req.Notes
	}
	if slotChanged {
		next.Duration = st.DiningDuration(next.PartySize)
		avReq, err := s.Availability.check(ctx, st, next.Date, next.Time, next.PartySize, cur.ID)
		if err != nil {
			return model.Reservation{}, err
		}
		if req.OnGrid && !avReq.OnGrid(next.Time) {
			return model.Reservation{}, offGrid(avReq)
		}
		// Without an explicit table the assignment follows the new slot.
		if req.TableID == nil && !req.ClearTable && next.TableID != nil {
			next.TableID = nil
			if t, ok := availability.FindTable(avReq, next.Time); ok {
				next.TableID = &t.ID
			}
		}
	}
	switch {
	case req.ClearTable:
		next.TableID = nil
	case req.TableID != nil:
		if err := s.checkTable(ctx, *req.TableID, next); err != nil {
			return model.Reservation{}, err
		}
		next.TableID = req.TableID
	}
	next.UpdatedAt = s.Clock.Now().UTC()

	if err := s.Store.Update(ctx, next, cur.Status); err != nil {
		return model.Reservation{}, s.writeError(ctx, err, next, "edit")
	}
	if slotChanged {
		dispatch(ctx, s.SideEffects, queue.NewTask(queue.KindModified, noticeFor(next, "")))
	}
	return next, nil
}

// transition moves id to `to` after mutate adjusts the new row. The guard
// uses the effective status, so an expired request cannot be approved.
func (s *ReservationService) transition(ctx context.Context, id uint64, to model.ReservationStatus, mutate func(model.Settings, *model.Reservation) error) (model.Reservation, error) {
	st, err := s.Settings.Snapshot(ctx)
	if err != nil {
		return model.Reservation{}, err
	}
	cur, err := s.Store.Get(ctx, id)
	if err != nil {
		return model.Reservation{}, err
	}
	now := s.Clock.Now()
	eff := cur.EffectiveStatus(now, st.Location)
	if !model.CanTransition(eff, to) {
		return model.Reservation{}, &apperr.ConflictError{Current: string(eff), Requested: string(to)}
	}
	next := cur
	next.Status = to
	next.UpdatedAt = now.UTC()
	if mutate != nil {
		if err := mutate(st, &next); err != nil {
			return model.Reservation{}, err
		}
	}
	if err := s.Store.Update(ctx, next, cur.Status); err != nil {
		return model.Reservation{}, s.writeError(ctx, err, next, string(to))
	}
	return next, nil
}

func (s *ReservationService) writeError(ctx context.Context, err error, next model.Reservation, requested string) error {
	switch {
	case errors.Is(err, repository.ErrStaleStatus):
		latest, gerr := s.Store.Get(ctx, next.ID)
		if gerr != nil {
			return &apperr.ConflictError{Current: "unknown", Requested: requested, Reason: "reservation changed concurrently"}
		}
		return &apperr.ConflictError{Current: string(latest.Status), Requested: requested, Reason: "reservation changed concurrently"}
	case errors.Is(err, repository.ErrTableTaken):
		return &apperr.AvailabilityError{Date: next.Date, Time: localtime.FormatClock(next.Time), PartySize: next.PartySize, Reason: apperr.ReasonTableTaken}
	}
	return err
}

// checkTable verifies the table exists, is active and can hold the party.
func (s *ReservationService) checkTable(ctx context.Context, tableID uint64, r model.Reservation) error {
	t, err := s.Tables.Get(ctx, tableID)
	if errors.Is(err, apperr.ErrNotFound) {
		return apperr.Invalid("table_id", "table %d does not exist", tableID)
	}
	if err != nil {
		return err
	}
	if !t.IsActive {
		return &apperr.AvailabilityError{Date: r.Date, Time: localtime.FormatClock(r.Time), PartySize: r.PartySize, Reason: apperr.ReasonNoTable}
	}
	if r.PartySize > t.MaxCapacity {
		return &apperr.AvailabilityError{Date: r.Date, Time: localtime.FormatClock(r.Time), PartySize: r.PartySize, Reason: apperr.ReasonCapacity}
	}
	return nil
}

// autoAssign gives r the best free table for its interval, if any. Failure
// leaves the reservation unassigned.
func (s *ReservationService) autoAssign(ctx context.Context, st model.Settings, r *model.Reservation) {
	req, err := s.Availability.request(ctx, st, r.Date, r.PartySize, r.ID)
	if err != nil {
		return
	}
	req.Duration = r.Duration
	if t, ok := availability.FindTable(req, r.Time); ok {
		r.TableID = &t.ID
	}
}

func (s *ReservationService) queueGuestStats(ctx context.Context, r model.Reservation, actor string) {
	if r.GuestID == nil {
		return
	}
	t := queue.NewTask(queue.KindGuestStats, noticeFor(r, actor))
	t.GuestID = *r.GuestID
	dispatch(ctx, s.SideEffects, t)
}

// NormalizeCode upper-cases a confirmation code and strips separators.
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.NewReplacer(" ", "", "-", "").Replace(strings.TrimSpace(code)))
}

func validateContact(name, phone, email string) error {
	if strings.TrimSpace(name) == "" {
		return apperr.Invalid("guest_name", "is required")
	}
	if strings.TrimSpace(phone) == "" && strings.TrimSpace(email) == "" {
		return apperr.Invalid("guest_phone", "a phone number or email is required")
	}
	return nil
}
