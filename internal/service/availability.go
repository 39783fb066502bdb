package service

import (
	"context"
	"errors"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/iliyamo/restaurant-frontdesk/internal/apperr"
	"github.com/iliyamo/restaurant-frontdesk/internal/availability"
	"github.com/iliyamo/restaurant-frontdesk/internal/localtime"
	"github.com/iliyamo/restaurant-frontdesk/internal/model"
)

// MaxPartySize bounds a single booking.
const MaxPartySize = 50

// AvailabilityService loads everything the availability engine needs and
// asks it.
type AvailabilityService struct {
	Settings     SettingsStore
	Overrides    OverrideStore
	Tables       TableStore
	Reservations ReservationStore
	Clock        clockwork.Clock
}

// GetSlots returns every candidate start for date, ascending. excludeID
// (0 for none) is left out of the committed set so an edit can keep its
// own slot.
func (s *AvailabilityService) GetSlots(ctx context.Context, date string, party int, excludeID uint64) ([]availability.Slot, error) {
	st, err := s.Settings.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	req, err := s.request(ctx, st, date, party, excludeID)
	if err != nil {
		return nil, err
	}
	return availability.Slots(req), nil
}

// check validates one concrete start and returns the request it used so the
// caller can pick a table from the same view.
func (s *AvailabilityService) check(ctx context.Context, st model.Settings, date string, start, party int, excludeID uint64) (availability.Request, error) {
	req, err := s.request(ctx, st, date, party, excludeID)
	if err != nil {
		return req, err
	}
	if start < 0 || start >= localtime.MinutesPerDay {
		return req, apperr.Invalid("time", "must be between 00:00 and 23:59")
	}
	if reason := availability.Check(req, start); reason != "" {
		return req, &apperr.AvailabilityError{Date: date, Time: localtime.FormatClock(start), PartySize: party, Reason: reason}
	}
	return req, nil
}

func (s *AvailabilityService) request(ctx context.Context, st model.Settings, date string, party int, excludeID uint64) (availability.Request, error) {
	if _, err := localtime.ParseDate(date); err != nil {
		return availability.Request{}, apperr.Invalid("date", "must be YYYY-MM-DD")
	}
	if party < 1 || party > MaxPartySize {
		return availability.Request{}, apperr.Invalid("party_size", "must be between 1 and %d", MaxPartySize)
	}

	var override *model.DayOverride
	o, err := s.Overrides.Get(ctx, date)
	switch {
	case err == nil:
		override = &o
	case !errors.Is(err, apperr.ErrNotFound):
		return availability.Request{}, err
	}
	tables, err := s.Tables.List(ctx)
	if err != nil {
		return availability.Request{}, err
	}
	rs, err := s.Reservations.ListByDate(ctx, date)
	if err != nil {
		return availability.Request{}, err
	}

	now := s.Clock.Now()
	return availability.Request{
		Hours:     availability.EffectiveHours(st, date, override),
		Interval:  st.SlotInterval,
		PartySize: party,
		Duration:  st.DiningDuration(party),
		NotBefore: notBefore(date, now, st.Location),
		Tables:    tables,
		Bookings:  availability.Bookings(rs, excludeID, now, st.Location),
	}, nil
}

// notBefore blocks starts that already passed: everything on a past date,
// earlier minutes today, nothing on a future date.
func notBefore(date string, now time.Time, loc *time.Location) int {
	today := localtime.Today(now, loc)
	switch {
	case date < today:
		return localtime.MinutesPerDay + 1
	case date == today:
		return localtime.MinuteOfDay(now, loc)
	}
	return 0
}
