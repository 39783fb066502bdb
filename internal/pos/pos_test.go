package pos

import (
	"bytes"
	"context"
	"errors"
	"log"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/restaurant-frontdesk/internal/apperr"
	"github.com/iliyamo/restaurant-frontdesk/internal/model"
	"github.com/iliyamo/restaurant-frontdesk/internal/repository/memstore"
	"github.com/iliyamo/restaurant-frontdesk/internal/service"
)

func TestCandidates(t *testing.T) {
	assert.Equal(t, []string{"T7", "7", "TABLE7"}, Candidates("T7"))

	c := Candidates("table 07")
	assert.Equal(t, "table 07", c[0])
	assert.Equal(t, "TABLE07", c[1])
	assert.Contains(t, c, "07")
	assert.Contains(t, c, "7")
	assert.Contains(t, c, "T7")

	assert.Equal(t, []string{"Bar", "BAR"}, Candidates("Bar"))
}

func TestTableIndexMatch(t *testing.T) {
	idx := NewTableIndex([]model.RestaurantTable{
		{ID: 1, Name: "7"},
		{ID: 2, Name: "Patio 2"},
		{ID: 4, Name: "9"},
		{ID: 3, Name: "9"},
		{ID: 5, Name: "T12"},
	})

	cases := map[string]uint64{
		"T7":       1,
		"Table 7":  1,
		"007":      1,
		"patio2":   2,
		"9":        3,
		"12":       5,
		"table-12": 5,
	}
	for label, want := range cases {
		got, ok := idx.Match(label)
		require.True(t, ok, label)
		assert.Equal(t, want, got, label)
	}

	_, ok := idx.Match("Bar 3")
	assert.False(t, ok)
}

type posFixture struct {
	clock *clockwork.FakeClock
	store *memstore.Store
	mock  *MockAdapter
	res   *service.ReservationService
	rec   *Reconciler
	seven model.RestaurantTable
}

func newPOSFixture(t *testing.T) *posFixture {
	t.Helper()
	f := &posFixture{
		clock: clockwork.NewFakeClockAt(time.Date(2026, 3, 2, 18, 0, 0, 0, time.UTC)),
		store: memstore.New(),
		mock:  NewMockAdapter(),
	}
	f.seven = f.store.Tables().Add(model.RestaurantTable{Name: "7", MinCapacity: 1, MaxCapacity: 4, IsActive: true})
	f.store.Tables().Add(model.RestaurantTable{Name: "8", MinCapacity: 1, MaxCapacity: 4, IsActive: true})

	avail := &service.AvailabilityService{
		Settings:     f.store.Settings(),
		Overrides:    f.store.Overrides(),
		Tables:       f.store.Tables(),
		Reservations: f.store.Reservations(),
		Clock:        f.clock,
	}
	f.res = &service.ReservationService{
		Store:        f.store.Reservations(),
		Tables:       f.store.Tables(),
		Settings:     f.store.Settings(),
		Availability: avail,
		Clock:        f.clock,
	}
	f.rec = &Reconciler{
		Adapters:     map[string]Adapter{"mock": f.mock},
		Tables:       f.store.Tables(),
		Occupancy:    f.store.Occupancy(),
		Settings:     f.store.Settings(),
		Reservations: f.res,
		Clock:        f.clock,
	}
	return f
}

func (f *posFixture) seatAtSeven(t *testing.T) model.Reservation {
	t.Helper()
	ctx := context.Background()
	r, err := f.res.Create(ctx, service.CreateRequest{
		Date: "2026-03-02", Time: 18 * 60, PartySize: 2,
		Source: model.SourcePhone, GuestName: "Ada", GuestPhone: "555",
	})
	require.NoError(t, err)
	r, err = f.res.Seat(ctx, r.ID, f.seven.ID)
	require.NoError(t, err)
	return r
}

func TestReconcileOpenCheckAnnotatesMatchedTable(t *testing.T) {
	f := newPOSFixture(t)
	ctx := context.Background()
	f.mock.Set(Snapshot{Open: []Check{{TableNumber: "T7", OrderID: "ord-1", TotalCents: 4200, BalanceDueCents: 4200}}})

	res, err := f.rec.Run(ctx, "manual")
	require.NoError(t, err)
	assert.Equal(t, []uint64{f.seven.ID}, res.Occupied)

	checks, err := f.store.Occupancy().List(ctx)
	require.NoError(t, err)
	require.Len(t, checks, 1)
	assert.Equal(t, f.seven.ID, checks[0].TableID)
	assert.Equal(t, int64(4200), checks[0].CheckTotalCents)
	assert.True(t, checks[0].IsOpen)

	st, err := f.rec.Status(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, st.OpenChecks)
	require.NotNil(t, st.LastSyncAt)
	assert.True(t, st.LastSyncAt.Equal(f.clock.Now()))
}

func TestReconcileClosedCheckCompletesSeatedParty(t *testing.T) {
	f := newPOSFixture(t)
	ctx := context.Background()
	r := f.seatAtSeven(t)

	f.mock.Set(Snapshot{Open: []Check{{TableNumber: "T7", OrderID: "ord-1", TotalCents: 4200}}})
	_, err := f.rec.Run(ctx, "timer")
	require.NoError(t, err)

	f.clock.Advance(time.Hour)
	closedAt := f.clock.Now()
	f.mock.Set(Snapshot{Closed: []Check{{TableNumber: "T7", OrderID: "ord-1", TotalCents: 4200, ClosedAt: &closedAt}}})
	res, err := f.rec.Run(ctx, "timer")
	require.NoError(t, err)
	assert.Equal(t, []uint64{r.ID}, res.Completed)

	got, err := f.res.Get(ctx, r.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusCompleted, got.Status)

	checks, err := f.store.Occupancy().List(ctx)
	require.NoError(t, err)
	assert.Empty(t, checks)
}

func TestReconcileIgnoresCheckClosedBeforeSeating(t *testing.T) {
	f := newPOSFixture(t)
	ctx := context.Background()
	earlier := f.clock.Now().Add(-30 * time.Minute)
	r := f.seatAtSeven(t)

	f.mock.Set(Snapshot{Closed: []Check{{TableNumber: "7", OrderID: "old", ClosedAt: &earlier}}})
	res, err := f.rec.Run(ctx, "timer")
	require.NoError(t, err)
	assert.Empty(t, res.Completed)

	got, err := f.res.Get(ctx, r.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusSeated, got.Status)
}

func TestReconcileSameCycleTurnKeepsAnnotation(t *testing.T) {
	f := newPOSFixture(t)
	ctx := context.Background()
	f.seatAtSeven(t)

	f.mock.Set(Snapshot{
		Open:   []Check{{TableNumber: "7", OrderID: "ord-2", TotalCents: 1500}},
		Closed: []Check{{TableNumber: "7", OrderID: "ord-1", TotalCents: 4200}},
	})
	res, err := f.rec.Run(ctx, "timer")
	require.NoError(t, err)
	assert.Len(t, res.Completed, 1)

	checks, err := f.store.Occupancy().List(ctx)
	require.NoError(t, err)
	require.Len(t, checks, 1)
	assert.Equal(t, "ord-2", checks[0].OrderID)
}

func TestReconcileIsIdempotent(t *testing.T) {
	f := newPOSFixture(t)
	ctx := context.Background()
	f.seatAtSeven(t)
	f.mock.Set(Snapshot{
		Open:   []Check{{TableNumber: "Table 8", OrderID: "ord-9", TotalCents: 990}},
		Closed: []Check{{TableNumber: "T7", OrderID: "ord-1"}},
	})

	_, err := f.rec.Run(ctx, "timer")
	require.NoError(t, err)
	first, err := f.store.Occupancy().List(ctx)
	require.NoError(t, err)

	res, err := f.rec.Run(ctx, "manual")
	require.NoError(t, err)
	assert.Empty(t, res.Completed)
	second, err := f.store.Occupancy().List(ctx)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestReconcileSweepsStaleAnnotations(t *testing.T) {
	f := newPOSFixture(t)
	ctx := context.Background()
	f.mock.Set(Snapshot{Open: []Check{{TableNumber: "7", OrderID: "a"}, {TableNumber: "8", OrderID: "b"}}})
	_, err := f.rec.Run(ctx, "timer")
	require.NoError(t, err)

	f.mock.Set(Snapshot{Open: []Check{{TableNumber: "8", OrderID: "b"}, {TableNumber: "Bar 1", OrderID: "c"}}})
	res, err := f.rec.Run(ctx, "timer")
	require.NoError(t, err)
	assert.Equal(t, []string{"Bar 1"}, res.Unmatched)

	checks, err := f.store.Occupancy().List(ctx)
	require.NoError(t, err)
	require.Len(t, checks, 1)
	assert.Equal(t, "b", checks[0].OrderID)
}

func TestReconcileFetchFailureLeavesState(t *testing.T) {
	f := newPOSFixture(t)
	ctx := context.Background()
	f.mock.Set(Snapshot{Open: []Check{{TableNumber: "7", OrderID: "a", TotalCents: 100}}})
	_, err := f.rec.Run(ctx, "timer")
	require.NoError(t, err)

	f.mock.Fail(errors.New("vendor down"))
	_, err = f.rec.Run(ctx, "manual")
	var serr *apperr.ExternalSyncError
	require.ErrorAs(t, err, &serr)
	assert.Equal(t, "mock", serr.Adapter)

	checks, err := f.store.Occupancy().List(ctx)
	require.NoError(t, err)
	require.Len(t, checks, 1)
	assert.Equal(t, "a", checks[0].OrderID)

	st, err := f.rec.Status(ctx)
	require.NoError(t, err)
	assert.Equal(t, "vendor down", st.LastError)
	assert.Equal(t, 1, st.OpenChecks)
}

func TestReconcileUnknownVendor(t *testing.T) {
	f := newPOSFixture(t)
	f.store.Settings().Set(model.KeyPOSVendor, "square")

	_, err := f.rec.Run(context.Background(), "manual")
	var serr *apperr.ExternalSyncError
	require.ErrorAs(t, err, &serr)
	assert.Equal(t, 0, f.mock.Calls())
}

func TestHTTPAdapterSync(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/locations/loc-1/checks", r.URL.Path)
		assert.Equal(t, "Bearer secret", r.Header.Get("authorization"))
		w.Header().Set("content-type", "application/json")
		switch r.URL.Query().Get("status") {
		case "open":
			_, _ = w.Write([]byte(`{"checks":[{"table_number":"T7","order_id":"o1","total":42.0,"server_name":"Sam","opened_at":"2026-03-02T18:05:00Z"}]}`))
		default:
			_, _ = w.Write([]byte(`{"checks":[{"table_number":"3","order_id":"o0","total":18.5,"balance_due":0,"closed_at":"2026-03-02T18:01:00Z"}]}`))
		}
	}))
	defer srv.Close()

	a := NewHTTPAdapter("generic")
	snap, err := a.Sync(context.Background(), Credentials{BaseURL: srv.URL, APIKey: "secret", LocationID: "loc-1"})
	require.NoError(t, err)
	require.Len(t, snap.Open, 1)
	require.Len(t, snap.Closed, 1)
	assert.Equal(t, int64(4200), snap.Open[0].TotalCents)
	assert.Equal(t, int64(4200), snap.Open[0].BalanceDueCents)
	assert.Equal(t, "Sam", snap.Open[0].ServerName)
	require.NotNil(t, snap.Open[0].OpenedAt)
	assert.Equal(t, int64(1850), snap.Closed[0].TotalCents)
	assert.Equal(t, int64(0), snap.Closed[0].BalanceDueCents)
	require.NotNil(t, snap.Closed[0].ClosedAt)
}

func TestHTTPAdapterErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusBadGateway)
	}))
	defer srv.Close()

	_, err := NewHTTPAdapter("generic").Sync(context.Background(), Credentials{BaseURL: srv.URL, LocationID: "x"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "502")
}

func TestSchedulerLifecycle(t *testing.T) {
	f := newPOSFixture(t)
	s, err := NewScheduler(f.rec, time.Minute, nil)
	require.NoError(t, err)
	s.Start()
	require.NoError(t, s.Shutdown())
}

// stalledAdapter never answers before the caller gives up.
type stalledAdapter struct{}

func (stalledAdapter) Name() string { return "stalled" }

func (stalledAdapter) Sync(ctx context.Context, _ Credentials) (Snapshot, error) {
	<-ctx.Done()
	return Snapshot{}, ctx.Err()
}

func TestReconcileFetchTimeoutLeavesState(t *testing.T) {
	f := newPOSFixture(t)
	ctx := context.Background()
	f.mock.Set(Snapshot{Open: []Check{{TableNumber: "7", OrderID: "a", TotalCents: 100}}})
	_, err := f.rec.Run(ctx, "timer")
	require.NoError(t, err)

	f.rec.Adapters["stalled"] = stalledAdapter{}
	f.rec.Timeout = 20 * time.Millisecond
	f.store.Settings().Set(model.KeyPOSVendor, "stalled")

	started := time.Now()
	_, err = f.rec.Run(ctx, "manual")
	var serr *apperr.ExternalSyncError
	require.ErrorAs(t, err, &serr)
	assert.Equal(t, "stalled", serr.Adapter)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(started), 5*time.Second)

	checks, err := f.store.Occupancy().List(ctx)
	require.NoError(t, err)
	require.Len(t, checks, 1)
	assert.Equal(t, "a", checks[0].OrderID)

	st, err := f.rec.Status(ctx)
	require.NoError(t, err)
	assert.Contains(t, st.LastError, context.DeadlineExceeded.Error())
	assert.Equal(t, 1, st.OpenChecks)
}

// brokenSettings fails every read, like an unreachable database.
type brokenSettings struct{ SettingsStore }

func (brokenSettings) Snapshot(context.Context) (model.Settings, error) {
	return model.Settings{}, errors.New("settings table unreachable")
}

func TestTimerCycleLogsFailures(t *testing.T) {
	f := newPOSFixture(t)
	f.rec.Settings = brokenSettings{f.store.Settings()}

	var buf bytes.Buffer
	log.SetOutput(&buf)
	defer log.SetOutput(os.Stderr)

	timerCycle(f.rec, time.Minute)
	assert.Contains(t, buf.String(), "pos-sync: timer cycle failed: settings table unreachable")
	assert.Equal(t, 0, f.mock.Calls())
}
