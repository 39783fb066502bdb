// Package service holds the reservation engine: availability lookups, the
// reservation state machine, the waitlist and the guest self-service
// gateway. Persistence is reached through the interfaces below, satisfied by
// the MySQL repositories and by the in-memory store.
package service

import (
	"context"
	"time"

	"github.com/iliyamo/restaurant-frontdesk/internal/model"
	"github.com/iliyamo/restaurant-frontdesk/internal/queue"
)

// ReservationStore persists reservations.
//
// Create and Update enforce the table invariant: when the row holds its
// table (model.ReservationStatus.HoldsTable) the table must not carry an
// overlapping table-holding reservation, else repository.ErrTableTaken.
// Update is conditional on the stored status still being expect, else
// repository.ErrStaleStatus.
type ReservationStore interface {
	Create(ctx context.Context, r *model.Reservation) error
	Get(ctx context.Context, id uint64) (model.Reservation, error)
	GetByCode(ctx context.Context, code string) (model.Reservation, error)
	ListByDate(ctx context.Context, date string) ([]model.Reservation, error)
	Update(ctx context.Context, r model.Reservation, expect model.ReservationStatus) error
}

// TableStore reads the table registry.
type TableStore interface {
	List(ctx context.Context) ([]model.RestaurantTable, error)
	Get(ctx context.Context, id uint64) (model.RestaurantTable, error)
}

// OverrideStore manages per-date overrides.
type OverrideStore interface {
	Get(ctx context.Context, date string) (model.DayOverride, error)
	Put(ctx context.Context, o model.DayOverride) error
	Delete(ctx context.Context, date string) error
}

// SettingsStore yields the current configuration snapshot.
type SettingsStore interface {
	Snapshot(ctx context.Context) (model.Settings, error)
}

// WaitlistStore persists the waitlist. Add appends at max(active)+1 and
// Close renumbers the entries behind the closed one, each in one atomic
// unit. Close fails with repository.ErrStaleStatus when the entry is no
// longer active.
type WaitlistStore interface {
	Add(ctx context.Context, e *model.WaitlistEntry) error
	Get(ctx context.Context, id uint64) (model.WaitlistEntry, error)
	List(ctx context.Context, closedSince time.Time) ([]model.WaitlistEntry, error)
	MarkNotified(ctx context.Context, id uint64, at time.Time) error
	Close(ctx context.Context, id uint64, status model.WaitlistStatus, at time.Time, reservationID *uint64) error
}

// AuditStore records guest self-service actions.
type AuditStore interface {
	Record(ctx context.Context, a model.AuditRecord) error
	ListByReservation(ctx context.Context, reservationID uint64) ([]model.AuditRecord, error)
}

// Enqueuer hands a side-effect task to the background worker.
type Enqueuer interface {
	Enqueue(ctx context.Context, t queue.Task) error
}
