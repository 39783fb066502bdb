package model

import (
	"time"

	"github.com/iliyamo/restaurant-frontdesk/internal/localtime"
)

// Source records where a reservation came from.
type Source string

const (
	SourceWidget Source = "widget" // guest booking widget
	SourcePhone  Source = "phone"  // staff-entered booking
	SourceWalkIn Source = "walkin" // seated from the door or the waitlist
)

// Valid reports whether s is a known source.
func (s Source) Valid() bool {
	switch s {
	case SourceWidget, SourcePhone, SourceWalkIn:
		return true
	}
	return false
}

// Reservation is a single booking for a party on a restaurant-local date.
//
// Fields:
//
//	Date      – restaurant-local calendar date (YYYY-MM-DD).
//	Time      – start, minutes since local midnight.
//	Duration  – dining duration in minutes; EndTime() is derived from it.
//	TableID   – assigned table, nil until staff (or auto-assign) picks one.
//	GuestID   – linked guest profile in the CRM, if any.
//	PaymentRef – external payment hold, released on cancellation.
type Reservation struct {
	ID               uint64
	Code             string
	Date             string
	Time             int
	Duration         int
	PartySize        int
	Status           ReservationStatus
	Source           Source
	GuestName        string
	GuestPhone       string
	GuestEmail       string
	Notes            string
	TableID          *uint64
	GuestID          *uint64
	PreorderID       *uint64
	PaymentRef       *string
	CounterOfferNote string
	CancelReason     string
	ArrivedAt        *time.Time
	SeatedAt         *time.Time
	CompletedAt      *time.Time
	CancelledAt      *time.Time
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// EndTime is the minute-of-day at which the party is expected to leave.
func (r Reservation) EndTime() int { return r.Time + r.Duration }

// Overlaps reports whether the reservation's interval intersects
// [start, start+duration) on the same date. Touching intervals do not overlap.
func (r Reservation) Overlaps(date string, start, duration int) bool {
	return r.Date == date && r.Time < start+duration && start < r.EndTime()
}

// StartAt is the local instant the reservation begins.
func (r Reservation) StartAt(loc *time.Location) (time.Time, error) {
	return localtime.At(r.Date, r.Time, loc)
}

// EffectiveStatus applies lazy expiry: a pending request that nobody acted
// on expires when its start time passes, and an approved booking the guest
// never confirmed or arrived for expires at the end of its service day.
// The stored status is never rewritten by this.
func (r Reservation) EffectiveStatus(now time.Time, loc *time.Location) ReservationStatus {
	switch r.Status {
	case StatusPending:
		start, err := r.StartAt(loc)
		if err == nil && !now.Before(start) {
			return StatusExpired
		}
	case StatusApproved:
		midnight, err := localtime.At(r.Date, localtime.MinutesPerDay, loc)
		if err == nil && !now.Before(midnight) {
			return StatusExpired
		}
	}
	return r.Status
}

// HoldsCapacity reports whether the reservation, evaluated at now, still
// counts against covers and tables.
func (r Reservation) HoldsCapacity(now time.Time, loc *time.Location) bool {
	return r.EffectiveStatus(now, loc).HoldsCapacity()
}

// AuditRecord is a staff-facing trail entry for a guest-initiated change.
type AuditRecord struct {
	ID            string
	ReservationID uint64
	Action        string
	Actor         string
	Detail        string
	CreatedAt     time.Time
}
