// Package external declares the collaborators the engine notifies but does
// not own: the guest CRM, the payments provider and outbound messaging.
package external

import (
	"context"
	"log"
)

// GuestStats recomputes visit and no-show counters for a guest profile.
type GuestStats interface {
	UpdateStats(ctx context.Context, guestID uint64) error
}

// Payments releases pre-authorised payment holds.
type Payments interface {
	ReleaseHold(ctx context.Context, paymentRef string) error
}

// Notifier delivers guest and staff messages.
type Notifier interface {
	NotifyCancelled(ctx context.Context, n Notice) error
	NotifyModified(ctx context.Context, n Notice) error
	NotifyStaff(ctx context.Context, event string, n Notice) error
}

// Notice is the message payload; delivery channels pick what they need.
type Notice struct {
	ReservationID uint64 `json:"reservation_id"`
	Code          string `json:"code"`
	GuestName     string `json:"guest_name"`
	GuestPhone    string `json:"guest_phone"`
	GuestEmail    string `json:"guest_email"`
	Date          string `json:"date"`
	Time          string `json:"time"`
	PartySize     int    `json:"party_size"`
	Detail        string `json:"detail,omitempty"`
}

// LogPayments stands in for the billing system and only logs.
type LogPayments struct{}

func (LogPayments) ReleaseHold(_ context.Context, paymentRef string) error {
	log.Printf("payments: release hold ref=%s", paymentRef)
	return nil
}

// LogNotifier stands in for the email/SMS gateway and only logs.
type LogNotifier struct{}

func (LogNotifier) NotifyCancelled(_ context.Context, n Notice) error {
	log.Printf("notify: cancelled code=%s guest=%q date=%s time=%s", n.Code, n.GuestName, n.Date, n.Time)
	return nil
}

func (LogNotifier) NotifyModified(_ context.Context, n Notice) error {
	log.Printf("notify: modified code=%s guest=%q date=%s time=%s party=%d", n.Code, n.GuestName, n.Date, n.Time, n.PartySize)
	return nil
}

func (LogNotifier) NotifyStaff(_ context.Context, event string, n Notice) error {
	log.Printf("notify: staff event=%s code=%s detail=%q", event, n.Code, n.Detail)
	return nil
}
