package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/restaurant-frontdesk/internal/model"
	"github.com/iliyamo/restaurant-frontdesk/internal/queue"
	"github.com/iliyamo/restaurant-frontdesk/internal/repository/memstore"
)

// recorder captures side-effect tasks instead of running them.
type recorder struct {
	mu    sync.Mutex
	tasks []queue.Task
}

func (r *recorder) Enqueue(_ context.Context, t queue.Task) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tasks = append(r.tasks, t)
	return nil
}

func (r *recorder) kinds() []queue.Kind {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]queue.Kind, 0, len(r.tasks))
	for _, t := range r.tasks {
		out = append(out, t.Kind)
	}
	return out
}

func (r *recorder) find(kind queue.Kind) (queue.Task, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, t := range r.tasks {
		if t.Kind == kind {
			return t, true
		}
	}
	return queue.Task{}, false
}

type fixture struct {
	clock  *clockwork.FakeClock
	store  *memstore.Store
	sidefx *recorder
	avail  *AvailabilityService
	res    *ReservationService
	wait   *WaitlistService
	self   *SelfService
	small  model.RestaurantTable
	large  model.RestaurantTable
}

// Monday 2026-03-02 10:00 UTC; service runs 17:00-22:00 in 15 minute slots.
var fixtureNow = time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		clock:  clockwork.NewFakeClockAt(fixtureNow),
		store:  memstore.New(),
		sidefx: &recorder{},
	}
	f.store.Settings().Set(model.KeyRestaurantPhone, "+1 555 000 1111")
	f.store.Settings().Set(model.KeyRestaurantEmail, "host@example.com")
	f.small = f.store.Tables().Add(model.RestaurantTable{Name: "1", MinCapacity: 1, MaxCapacity: 4, IsActive: true})
	f.large = f.store.Tables().Add(model.RestaurantTable{Name: "2", MinCapacity: 1, MaxCapacity: 6, IsActive: true})

	f.avail = &AvailabilityService{
		Settings:     f.store.Settings(),
		Overrides:    f.store.Overrides(),
		Tables:       f.store.Tables(),
		Reservations: f.store.Reservations(),
		Clock:        f.clock,
	}
	f.res = &ReservationService{
		Store:        f.store.Reservations(),
		Tables:       f.store.Tables(),
		Settings:     f.store.Settings(),
		Availability: f.avail,
		SideEffects:  f.sidefx,
		Clock:        f.clock,
	}
	f.wait = &WaitlistService{
		Store:        f.store.Waitlist(),
		Settings:     f.store.Settings(),
		Reservations: f.res,
		Clock:        f.clock,
	}
	f.self = &SelfService{
		Reservations: f.res,
		Settings:     f.store.Settings(),
		Audit:        f.store.Audit(),
		SideEffects:  f.sidefx,
		Clock:        f.clock,
	}
	return f
}

func (f *fixture) book(t *testing.T, date string, start, party int) model.Reservation {
	t.Helper()
	r, err := f.res.Create(context.Background(), CreateRequest{
		Date:       date,
		Time:       start,
		PartySize:  party,
		Source:     model.SourcePhone,
		GuestName:  "Ada Lovelace",
		GuestPhone: "+1 555 123 4567",
	})
	require.NoError(t, err)
	return r
}

func minutes(h, m int) int { return h*60 + m }
