package handler

import (
	"time"

	"github.com/iliyamo/restaurant-frontdesk/internal/availability"
	"github.com/iliyamo/restaurant-frontdesk/internal/localtime"
	"github.com/iliyamo/restaurant-frontdesk/internal/model"
)

// Response shapes. Times of day travel as "HH:MM", dates as YYYY-MM-DD.

type reservationPart struct {
	ID               uint64     `json:"id"`
	Code             string     `json:"code"`
	Date             string     `json:"date"`
	Time             string     `json:"time"`
	EndTime          string     `json:"end_time"`
	DurationMinutes  int        `json:"duration_minutes"`
	PartySize        int        `json:"party_size"`
	Status           string     `json:"status"`
	Source           string     `json:"source"`
	GuestName        string     `json:"guest_name"`
	GuestPhone       string     `json:"guest_phone,omitempty"`
	GuestEmail       string     `json:"guest_email,omitempty"`
	Notes            string     `json:"notes,omitempty"`
	TableID          *uint64    `json:"table_id"`
	CounterOfferNote string     `json:"counter_offer_note,omitempty"`
	CancelReason     string     `json:"cancel_reason,omitempty"`
	ArrivedAt        *time.Time `json:"arrived_at,omitempty"`
	SeatedAt         *time.Time `json:"seated_at,omitempty"`
	CompletedAt      *time.Time `json:"completed_at,omitempty"`
	CancelledAt      *time.Time `json:"cancelled_at,omitempty"`
	CreatedAt        time.Time  `json:"created_at"`
}

func toReservation(r model.Reservation) reservationPart {
	return reservationPart{
		ID:               r.ID,
		Code:             r.Code,
		Date:             r.Date,
		Time:             localtime.FormatClock(r.Time),
		EndTime:          localtime.FormatClock(r.EndTime()),
		DurationMinutes:  r.Duration,
		PartySize:        r.PartySize,
		Status:           string(r.Status),
		Source:           string(r.Source),
		GuestName:        r.GuestName,
		GuestPhone:       r.GuestPhone,
		GuestEmail:       r.GuestEmail,
		Notes:            r.Notes,
		TableID:          r.TableID,
		CounterOfferNote: r.CounterOfferNote,
		CancelReason:     r.CancelReason,
		ArrivedAt:        r.ArrivedAt,
		SeatedAt:         r.SeatedAt,
		CompletedAt:      r.CompletedAt,
		CancelledAt:      r.CancelledAt,
		CreatedAt:        r.CreatedAt,
	}
}

// toGuestReservation hides staff-only fields from self-service callers.
func toGuestReservation(r model.Reservation) reservationPart {
	p := toReservation(r)
	p.GuestPhone = ""
	p.TableID = nil
	p.ArrivedAt, p.SeatedAt, p.CompletedAt = nil, nil, nil
	return p
}

func toReservations(rs []model.Reservation) []reservationPart {
	out := make([]reservationPart, 0, len(rs))
	for _, r := range rs {
		out = append(out, toReservation(r))
	}
	return out
}

type slotPart struct {
	Time      string `json:"time"`
	Available bool   `json:"available"`
}

func toSlots(ss []availability.Slot) []slotPart {
	out := make([]slotPart, 0, len(ss))
	for _, s := range ss {
		out = append(out, slotPart{Time: localtime.FormatClock(s.Time), Available: s.Available})
	}
	return out
}

type checkPart struct {
	OrderID         string     `json:"order_id"`
	CheckTotalCents int64      `json:"check_total_cents"`
	BalanceDueCents int64      `json:"balance_due_cents"`
	ServerName      string     `json:"server_name,omitempty"`
	OpenedAt        *time.Time `json:"opened_at,omitempty"`
	SyncedAt        time.Time  `json:"synced_at"`
}

type tablePart struct {
	ID          uint64     `json:"id"`
	Name        string     `json:"name"`
	Section     string     `json:"section,omitempty"`
	MinCapacity int        `json:"min_capacity"`
	MaxCapacity int        `json:"max_capacity"`
	IsActive    bool       `json:"is_active"`
	Check       *checkPart `json:"open_check"`
}

func toTables(ts []model.RestaurantTable, checks []model.TableCheck) []tablePart {
	byTable := make(map[uint64]model.TableCheck, len(checks))
	for _, c := range checks {
		byTable[c.TableID] = c
	}
	out := make([]tablePart, 0, len(ts))
	for _, t := range ts {
		p := tablePart{ID: t.ID, Name: t.Name, Section: t.Section, MinCapacity: t.MinCapacity, MaxCapacity: t.MaxCapacity, IsActive: t.IsActive}
		if c, ok := byTable[t.ID]; ok && c.IsOpen {
			p.Check = &checkPart{
				OrderID:         c.OrderID,
				CheckTotalCents: c.CheckTotalCents,
				BalanceDueCents: c.BalanceDueCents,
				ServerName:      c.ServerName,
				OpenedAt:        c.OpenedAt,
				SyncedAt:        c.SyncedAt,
			}
		}
		out = append(out, p)
	}
	return out
}

type waitlistPart struct {
	ID                   uint64     `json:"id"`
	GuestName            string     `json:"guest_name"`
	GuestPhone           string     `json:"guest_phone,omitempty"`
	GuestEmail           string     `json:"guest_email,omitempty"`
	PartySize            int        `json:"party_size"`
	Notes                string     `json:"notes,omitempty"`
	Status               string     `json:"status"`
	Position             int        `json:"position"`
	EstimatedWaitMinutes int        `json:"estimated_wait_minutes"`
	QuotedAt             time.Time  `json:"quoted_at"`
	NotifiedAt           *time.Time `json:"notified_at,omitempty"`
	SeatedAt             *time.Time `json:"seated_at,omitempty"`
	LeftAt               *time.Time `json:"left_at,omitempty"`
	ReservationID        *uint64    `json:"reservation_id,omitempty"`
}

func toWaitlist(e model.WaitlistEntry) waitlistPart {
	return waitlistPart{
		ID:                   e.ID,
		GuestName:            e.GuestName,
		GuestPhone:           e.GuestPhone,
		GuestEmail:           e.GuestEmail,
		PartySize:            e.PartySize,
		Notes:                e.Notes,
		Status:               string(e.Status),
		Position:             e.Position,
		EstimatedWaitMinutes: e.EstimatedWaitMinutes,
		QuotedAt:             e.QuotedAt,
		NotifiedAt:           e.NotifiedAt,
		SeatedAt:             e.SeatedAt,
		LeftAt:               e.LeftAt,
		ReservationID:        e.ReservationID,
	}
}

type overridePart struct {
	Date      string  `json:"date"`
	Closed    bool    `json:"closed"`
	OpenTime  *string `json:"open_time"`
	CloseTime *string `json:"close_time"`
	MaxCovers *int    `json:"max_covers"`
	Note      string  `json:"note,omitempty"`
}

func toOverride(o model.DayOverride) overridePart {
	clock := func(m *int) *string {
		if m == nil {
			return nil
		}
		s := localtime.FormatClock(*m)
		return &s
	}
	return overridePart{Date: o.Date, Closed: o.Closed, OpenTime: clock(o.OpenMinute), CloseTime: clock(o.CloseMinute), MaxCovers: o.MaxCovers, Note: o.Note}
}

type auditPart struct {
	ID        string    `json:"id"`
	Action    string    `json:"action"`
	Actor     string    `json:"actor"`
	Detail    string    `json:"detail,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

func toAudit(rs []model.AuditRecord) []auditPart {
	out := make([]auditPart, 0, len(rs))
	for _, r := range rs {
		out = append(out, auditPart{ID: r.ID, Action: r.Action, Actor: r.Actor, Detail: r.Detail, CreatedAt: r.CreatedAt})
	}
	return out
}

type syncPart struct {
	LastSyncAt *time.Time `json:"last_sync_at"`
	OpenChecks int        `json:"open_checks"`
	LastError  string     `json:"last_error,omitempty"`
}
