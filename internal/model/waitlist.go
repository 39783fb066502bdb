package model

import "time"

// WaitlistStatus is the state of a waitlist entry.
type WaitlistStatus string

const (
	WaitlistWaiting   WaitlistStatus = "waiting"
	WaitlistNotified  WaitlistStatus = "notified"
	WaitlistSeated    WaitlistStatus = "seated"
	WaitlistLeft      WaitlistStatus = "left"
	WaitlistCancelled WaitlistStatus = "cancelled"
)

// Active entries hold a queue position.
func (s WaitlistStatus) Active() bool {
	return s == WaitlistWaiting || s == WaitlistNotified
}

// WaitlistEntry is a walk-in party waiting for a table. Position is 1-based
// and dense across active entries; closed entries keep position 0.
type WaitlistEntry struct {
	ID                   uint64
	GuestName            string
	GuestPhone           string
	GuestEmail           string
	PartySize            int
	Notes                string
	Status               WaitlistStatus
	Position             int
	EstimatedWaitMinutes int
	QuotedAt             time.Time
	NotifiedAt           *time.Time
	SeatedAt             *time.Time
	LeftAt               *time.Time
	ReservationID        *uint64
	UpdatedAt            time.Time
}
