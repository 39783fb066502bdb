package service

import (
	"context"

	"github.com/iliyamo/restaurant-frontdesk/internal/apperr"
	"github.com/iliyamo/restaurant-frontdesk/internal/localtime"
	"github.com/iliyamo/restaurant-frontdesk/internal/model"
)

// OverrideService lets managers close a date or change its hours or covers
// cap. Availability picks overrides up on its next lookup.
type OverrideService struct {
	Store OverrideStore
}

// Get returns the override for date.
func (s *OverrideService) Get(ctx context.Context, date string) (model.DayOverride, error) {
	if _, err := localtime.ParseDate(date); err != nil {
		return model.DayOverride{}, apperr.Invalid("date", "must be YYYY-MM-DD")
	}
	return s.Store.Get(ctx, date)
}

// Put creates or replaces the override for o.Date.
func (s *OverrideService) Put(ctx context.Context, o model.DayOverride) (model.DayOverride, error) {
	if err := validateOverride(o); err != nil {
		return o, err
	}
	if err := s.Store.Put(ctx, o); err != nil {
		return o, err
	}
	return o, nil
}

// Delete removes the override so the date falls back to the defaults.
func (s *OverrideService) Delete(ctx context.Context, date string) error {
	if _, err := localtime.ParseDate(date); err != nil {
		return apperr.Invalid("date", "must be YYYY-MM-DD")
	}
	return s.Store.Delete(ctx, date)
}

func validateOverride(o model.DayOverride) error {
	if _, err := localtime.ParseDate(o.Date); err != nil {
		return apperr.Invalid("date", "must be YYYY-MM-DD")
	}
	for name, m := range map[string]*int{"open_time": o.OpenMinute, "close_time": o.CloseMinute} {
		if m != nil && (*m < 0 || *m > localtime.MinutesPerDay) {
			return apperr.Invalid(name, "out of range")
		}
	}
	if o.OpenMinute != nil && o.CloseMinute != nil && *o.OpenMinute >= *o.CloseMinute {
		return apperr.Invalid("close_time", "must be after open_time")
	}
	if o.MaxCovers != nil && *o.MaxCovers < 0 {
		return apperr.Invalid("max_covers", "must not be negative")
	}
	return nil
}
