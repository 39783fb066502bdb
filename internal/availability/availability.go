// Package availability computes bookable start times. Everything here is a
// pure function of its inputs: callers load settings, the day override,
// tables and the day's reservations, and pass them in.
package availability

import (
	"sort"
	"time"

	"github.com/iliyamo/restaurant-frontdesk/internal/apperr"
	"github.com/iliyamo/restaurant-frontdesk/internal/localtime"
	"github.com/iliyamo/restaurant-frontdesk/internal/model"
)

// Slot is one candidate start time.
type Slot struct {
	Time      int
	Available bool
}

// Hours are the effective operating parameters of one date.
type Hours struct {
	Closed    bool
	Open      int
	Close     int
	MaxCovers int
}

// Booking is the part of a reservation the engine needs.
type Booking struct {
	ID        uint64
	Start     int
	End       int
	PartySize int
	TableID   *uint64
}

func (b Booking) overlaps(start, end int) bool { return b.Start < end && start < b.End }

// Request describes one availability question for a single date.
type Request struct {
	Hours     Hours
	Interval  int
	PartySize int
	Duration  int
	// NotBefore marks starts earlier than this minute unavailable. Used for
	// today (current minute) and for past dates (MinutesPerDay).
	NotBefore int
	Tables    []model.RestaurantTable
	Bookings  []Booking
}

// EffectiveHours resolves settings and an optional override for date.
func EffectiveHours(s model.Settings, date string, o *model.DayOverride) Hours {
	h := Hours{Open: s.OpenMinute, Close: s.CloseMinute, MaxCovers: s.MaxCovers}
	if wd, err := localtime.Weekday(date); err == nil && s.ClosedWeekdays[wd] {
		h.Closed = true
	}
	if o == nil {
		return h
	}
	// An override for the date is authoritative, including reopening a
	// normally closed weekday.
	h.Closed = o.Closed
	if o.OpenMinute != nil {
		h.Open = *o.OpenMinute
	}
	if o.CloseMinute != nil {
		h.Close = *o.CloseMinute
	}
	if o.MaxCovers != nil {
		h.MaxCovers = *o.MaxCovers
	}
	return h
}

// Bookings converts the day's reservations into capacity holders, dropping
// anything that no longer holds capacity at now and the excluded id.
func Bookings(rs []model.Reservation, excludeID uint64, now time.Time, loc *time.Location) []Booking {
	out := make([]Booking, 0, len(rs))
	for _, r := range rs {
		if r.ID == excludeID && excludeID != 0 {
			continue
		}
		if !r.HoldsCapacity(now, loc) {
			continue
		}
		out = append(out, Booking{ID: r.ID, Start: r.Time, End: r.EndTime(), PartySize: r.PartySize, TableID: r.TableID})
	}
	return out
}

// OnGrid reports whether start is one of the candidate starts Slots would
// list for the date, counted from the effective open time.
func (r Request) OnGrid(start int) bool {
	return r.Interval > 0 && start >= r.Hours.Open && (start-r.Hours.Open)%r.Interval == 0
}

// Slots lists every candidate start from open (inclusive) to close
// (exclusive) at the request interval, ascending.
func Slots(req Request) []Slot {
	if req.Interval <= 0 {
		return nil
	}
	n := (req.Hours.Close - req.Hours.Open) / req.Interval
	if n < 0 {
		n = 0
	}
	out := make([]Slot, 0, n+1)
	for t := req.Hours.Open; t < req.Hours.Close; t += req.Interval {
		out = append(out, Slot{Time: t, Available: Check(req, t) == ""})
	}
	return out
}

// Check returns "" when a party can start at start, otherwise one of the
// apperr.Reason* values. start need not sit on the slot grid.
func Check(req Request, start int) string {
	end := start + req.Duration
	switch {
	case req.Hours.Closed:
		return apperr.ReasonClosed
	case start < req.NotBefore:
		return apperr.ReasonPast
	case start < req.Hours.Open || end > req.Hours.Close:
		return apperr.ReasonPastClose
	}
	if req.Hours.MaxCovers > 0 {
		covers := req.PartySize
		for _, b := range req.Bookings {
			if b.overlaps(start, end) {
				covers += b.PartySize
			}
		}
		if covers > req.Hours.MaxCovers {
			return apperr.ReasonCovers
		}
	}
	if _, ok := FindTable(req, start); !ok {
		return apperr.ReasonNoTable
	}
	return ""
}

// FindTable picks the smallest active table that fits the party and stays
// free for [start, start+duration), after tables held by overlapping
// assigned bookings are removed and overlapping unassigned bookings have
// each claimed one fitting table.
func FindTable(req Request, start int) (model.RestaurantTable, bool) {
	end := start + req.Duration
	free := freeTables(req, start, end)
	for _, t := range free {
		if t.Fits(req.PartySize) {
			return t, true
		}
	}
	return model.RestaurantTable{}, false
}

// freeTables returns active tables left over for the interval, smallest
// capacity first.
func freeTables(req Request, start, end int) []model.RestaurantTable {
	held := map[uint64]bool{}
	var floating []Booking
	for _, b := range req.Bookings {
		if !b.overlaps(start, end) {
			continue
		}
		if b.TableID != nil {
			held[*b.TableID] = true
		} else {
			floating = append(floating, b)
		}
	}

	tables := make([]model.RestaurantTable, 0, len(req.Tables))
	for _, t := range req.Tables {
		if t.IsActive && !held[t.ID] {
			tables = append(tables, t)
		}
	}
	sort.Slice(tables, func(i, j int) bool {
		if tables[i].MaxCapacity != tables[j].MaxCapacity {
			return tables[i].MaxCapacity < tables[j].MaxCapacity
		}
		if tables[i].Name != tables[j].Name {
			return tables[i].Name < tables[j].Name
		}
		return tables[i].ID < tables[j].ID
	})

	// Unassigned bookings claim tables largest party first.
	sort.SliceStable(floating, func(i, j int) bool { return floating[i].PartySize > floating[j].PartySize })
	for _, b := range floating {
		for i, t := range tables {
			if t.Fits(b.PartySize) {
				tables = append(tables[:i], tables[i+1:]...)
				break
			}
		}
	}
	return tables
}
