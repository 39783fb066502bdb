package service

import (
	"context"
	"errors"
	"log"
	"strings"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/iliyamo/restaurant-frontdesk/internal/apperr"
	"github.com/iliyamo/restaurant-frontdesk/internal/model"
	"github.com/iliyamo/restaurant-frontdesk/internal/repository"
)

// WaitEstimator produces the wait shown for an active entry.
type WaitEstimator interface {
	Estimate(e model.WaitlistEntry) int
}

// StaticEstimator shows the value quoted when the entry was added.
type StaticEstimator struct{}

func (StaticEstimator) Estimate(e model.WaitlistEntry) int { return e.EstimatedWaitMinutes }

// SmartEstimator recomputes the wait from the live position. Parties above
// LargeParty wait an extra LargePartyExtra minutes for a bigger table.
type SmartEstimator struct {
	MinutesPerParty int
	LargeParty      int
	LargePartyExtra int
}

func (e SmartEstimator) Estimate(w model.WaitlistEntry) int {
	m := w.Position * e.MinutesPerParty
	if e.LargeParty > 0 && w.PartySize > e.LargeParty {
		m += e.LargePartyExtra
	}
	return m
}

// WaitlistService manages the walk-in queue.
type WaitlistService struct {
	Store        WaitlistStore
	Settings     SettingsStore
	Reservations *ReservationService
	Clock        clockwork.Clock
	// Estimator overrides the settings-driven choice when set.
	Estimator WaitEstimator
}

// AddRequest is a party joining the queue.
type AddRequest struct {
	GuestName     string
	GuestPhone    string
	GuestEmail    string
	PartySize     int
	Notes         string
	QuotedMinutes *int
}

// SeatResult is the outcome of seating a waitlist entry.
type SeatResult struct {
	Entry       model.WaitlistEntry
	Reservation *model.Reservation
}

// Add appends a party at the back of the queue.
func (s *WaitlistService) Add(ctx context.Context, req AddRequest) (model.WaitlistEntry, error) {
	if strings.TrimSpace(req.GuestName) == "" {
		return model.WaitlistEntry{}, apperr.Invalid("guest_name", "is required")
	}
	if req.PartySize < 1 || req.PartySize > MaxPartySize {
		return model.WaitlistEntry{}, apperr.Invalid("party_size", "must be between 1 and %d", MaxPartySize)
	}
	if req.QuotedMinutes != nil && *req.QuotedMinutes < 0 {
		return model.WaitlistEntry{}, apperr.Invalid("quoted_minutes", "must not be negative")
	}
	st, err := s.Settings.Snapshot(ctx)
	if err != nil {
		return model.WaitlistEntry{}, err
	}
	now := s.Clock.Now().UTC()
	e := model.WaitlistEntry{
		GuestName:  strings.TrimSpace(req.GuestName),
		GuestPhone: strings.TrimSpace(req.GuestPhone),
		GuestEmail: strings.TrimSpace(req.GuestEmail),
		PartySize:  req.PartySize,
		Notes:      req.Notes,
		Status:     model.WaitlistWaiting,
		QuotedAt:   now,
		UpdatedAt:  now,
	}
	if req.QuotedMinutes != nil {
		e.EstimatedWaitMinutes = *req.QuotedMinutes
	} else {
		ahead, err := s.activeCount(ctx, now)
		if err != nil {
			return model.WaitlistEntry{}, err
		}
		e.EstimatedWaitMinutes = st.WaitlistDefaultWait * (ahead + 1)
	}
	if err := s.Store.Add(ctx, &e); err != nil {
		return model.WaitlistEntry{}, err
	}
	e.EstimatedWaitMinutes = s.estimator(st).Estimate(e)
	return e, nil
}

// Get returns one entry.
func (s *WaitlistService) Get(ctx context.Context, id uint64) (model.WaitlistEntry, error) {
	return s.Store.Get(ctx, id)
}

// List returns active entries by position followed by entries closed within
// the visibility window. includeAll widens the window to everything.
func (s *WaitlistService) List(ctx context.Context, includeAll bool) ([]model.WaitlistEntry, error) {
	st, err := s.Settings.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	since := s.Clock.Now().UTC().Add(-time.Duration(st.WaitlistVisibleMinutes) * time.Minute)
	if includeAll {
		since = time.Time{}
	}
	entries, err := s.Store.List(ctx, since)
	if err != nil {
		return nil, err
	}
	est := s.estimator(st)
	for i := range entries {
		if entries[i].Status.Active() {
			entries[i].EstimatedWaitMinutes = est.Estimate(entries[i])
		}
	}
	return entries, nil
}

// Notify records that the party was told their table is ready. Notifying
// again refreshes the timestamp.
func (s *WaitlistService) Notify(ctx context.Context, id uint64) (model.WaitlistEntry, error) {
	e, err := s.Store.Get(ctx, id)
	if err != nil {
		return e, err
	}
	if !e.Status.Active() {
		return e, &apperr.ConflictError{Current: string(e.Status), Requested: string(model.WaitlistNotified)}
	}
	if err := s.Store.MarkNotified(ctx, id, s.Clock.Now().UTC()); err != nil {
		return e, s.closeError(ctx, err, id, model.WaitlistNotified)
	}
	return s.Store.Get(ctx, id)
}

// Seat removes the entry from the queue as seated. With createReservation
// it also books a seated walk-in reservation carrying the party's details.
func (s *WaitlistService) Seat(ctx context.Context, id uint64, createReservation bool, tableID *uint64) (SeatResult, error) {
	e, err := s.Store.Get(ctx, id)
	if err != nil {
		return SeatResult{}, err
	}
	if !e.Status.Active() {
		return SeatResult{}, &apperr.ConflictError{Current: string(e.Status), Requested: string(model.WaitlistSeated)}
	}

	var res *model.Reservation
	if createReservation {
		r, err := s.Reservations.CreateSeatedWalkIn(ctx, WalkIn{
			GuestName:  e.GuestName,
			GuestPhone: e.GuestPhone,
			GuestEmail: e.GuestEmail,
			PartySize:  e.PartySize,
			Notes:      e.Notes,
			TableID:    tableID,
		})
		if err != nil {
			return SeatResult{}, err
		}
		res = &r
	}

	var resID *uint64
	if res != nil {
		resID = &res.ID
	}
	if err := s.Store.Close(ctx, id, model.WaitlistSeated, s.Clock.Now().UTC(), resID); err != nil {
		if res != nil {
			if _, cerr := s.Reservations.Cancel(ctx, res.ID, "waitlist entry already closed", "system"); cerr != nil {
				log.Printf("waitlist: rollback of reservation %d failed: %v", res.ID, cerr)
			}
		}
		return SeatResult{}, s.closeError(ctx, err, id, model.WaitlistSeated)
	}
	out, err := s.Store.Get(ctx, id)
	if err != nil {
		return SeatResult{}, err
	}
	return SeatResult{Entry: out, Reservation: res}, nil
}

// Remove takes a party off the queue. status is left or cancelled.
func (s *WaitlistService) Remove(ctx context.Context, id uint64, status model.WaitlistStatus) (model.WaitlistEntry, error) {
	if status == "" {
		status = model.WaitlistCancelled
	}
	if status != model.WaitlistLeft && status != model.WaitlistCancelled {
		return model.WaitlistEntry{}, apperr.Invalid("reason", "must be left or cancelled")
	}
	if err := s.Store.Close(ctx, id, status, s.Clock.Now().UTC(), nil); err != nil {
		return model.WaitlistEntry{}, s.closeError(ctx, err, id, status)
	}
	return s.Store.Get(ctx, id)
}

func (s *WaitlistService) closeError(ctx context.Context, err error, id uint64, requested model.WaitlistStatus) error {
	if !errors.Is(err, repository.ErrStaleStatus) {
		return err
	}
	cur := "closed"
	if e, gerr := s.Store.Get(ctx, id); gerr == nil {
		cur = string(e.Status)
	}
	return &apperr.ConflictError{Current: cur, Requested: string(requested)}
}

func (s *WaitlistService) activeCount(ctx context.Context, now time.Time) (int, error) {
	entries, err := s.Store.List(ctx, now)
	if err != nil {
		return 0, err
	}
	n := 0
	for _, e := range entries {
		if e.Status.Active() {
			n++
		}
	}
	return n, nil
}

func (s *WaitlistService) estimator(st model.Settings) WaitEstimator {
	if s.Estimator != nil {
		return s.Estimator
	}
	if st.WaitlistSmartEstimate {
		return SmartEstimator{MinutesPerParty: st.WaitlistPerParty, LargeParty: 4, LargePartyExtra: 10}
	}
	return StaticEstimator{}
}
