package availability

import (
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/restaurant-frontdesk/internal/apperr"
	"github.com/iliyamo/restaurant-frontdesk/internal/model"
)

func u64(v uint64) *uint64 { return &v }
func intp(v int) *int       { return &v }

func oneTableRequest(party int) Request {
	return Request{
		Hours:     Hours{Open: 17 * 60, Close: 22 * 60},
		Interval:  15,
		PartySize: party,
		Duration:  90,
		Tables:    []model.RestaurantTable{{ID: 1, Name: "1", MinCapacity: 2, MaxCapacity: 4, IsActive: true}},
	}
}

func availableSet(slots []Slot) map[int]bool {
	out := map[int]bool{}
	for _, s := range slots {
		out[s.Time] = s.Available
	}
	return out
}

func TestSingleTableScenario(t *testing.T) {
	req := oneTableRequest(2)
	req.Bookings = []Booking{{ID: 9, Start: 18 * 60, End: 19*60 + 30, PartySize: 3, TableID: u64(1)}}

	got := availableSet(Slots(req))
	for m := 18 * 60; m <= 19*60+15; m += 15 {
		assert.False(t, got[m], "start %d should be blocked", m)
	}
	for m := 19 * 60 + 30; m <= 20*60+30; m += 15 {
		assert.True(t, got[m], "start %d should be open", m)
	}
	// 17:00 runs into the 18:00 booking; 20:45 runs past the 22:00 close.
	assert.False(t, got[17*60])
	assert.False(t, got[20*60+45])
}

func TestUnassignedBookingStillConsumesTheTable(t *testing.T) {
	req := oneTableRequest(2)
	req.Bookings = []Booking{{ID: 9, Start: 18 * 60, End: 19*60 + 30, PartySize: 3}}

	assert.Equal(t, apperr.ReasonNoTable, Check(req, 18*60))
	assert.Equal(t, "", Check(req, 19*60+30))
}

func TestSlotsAreAscendingAndDeterministic(t *testing.T) {
	req := oneTableRequest(2)
	a := Slots(req)
	b := Slots(req)
	require.Equal(t, a, b)
	require.NotEmpty(t, a)
	assert.Equal(t, 17*60, a[0].Time)
	assert.Equal(t, 21*60+45, a[len(a)-1].Time)
	for i := 1; i < len(a); i++ {
		assert.Less(t, a[i-1].Time, a[i].Time)
	}
}

func TestClosedDayAndCoversCap(t *testing.T) {
	req := oneTableRequest(2)
	req.Hours.Closed = true
	for _, s := range Slots(req) {
		assert.False(t, s.Available)
	}
	assert.Equal(t, apperr.ReasonClosed, Check(req, 18*60))

	req = oneTableRequest(2)
	req.Tables = append(req.Tables, model.RestaurantTable{ID: 2, Name: "2", MinCapacity: 1, MaxCapacity: 6, IsActive: true})
	req.Hours.MaxCovers = 5
	req.Bookings = []Booking{{ID: 1, Start: 18 * 60, End: 19 * 60, PartySize: 4, TableID: u64(2)}}
	assert.Equal(t, apperr.ReasonCovers, Check(req, 18*60))
	req.PartySize = 1
	req.Tables[0].MinCapacity = 1
	assert.Equal(t, "", Check(req, 18*60))
}

func TestInactiveAndUnfittingTablesAreIgnored(t *testing.T) {
	req := oneTableRequest(6)
	assert.Equal(t, apperr.ReasonNoTable, Check(req, 18*60))

	req = oneTableRequest(2)
	req.Tables[0].IsActive = false
	assert.Equal(t, apperr.ReasonNoTable, Check(req, 18*60))
}

func TestNotBefore(t *testing.T) {
	req := oneTableRequest(2)
	req.NotBefore = 18 * 60
	assert.Equal(t, apperr.ReasonPast, Check(req, 17*60+45))
	assert.Equal(t, "", Check(req, 18*60))
}

func TestFindTablePrefersSmallestFit(t *testing.T) {
	req := oneTableRequest(2)
	req.Tables = []model.RestaurantTable{
		{ID: 1, Name: "big", MinCapacity: 1, MaxCapacity: 8, IsActive: true},
		{ID: 2, Name: "two", MinCapacity: 1, MaxCapacity: 2, IsActive: true},
		{ID: 3, Name: "four", MinCapacity: 1, MaxCapacity: 4, IsActive: true},
	}
	tbl, ok := FindTable(req, 18*60)
	require.True(t, ok)
	assert.Equal(t, uint64(2), tbl.ID)

	req.Bookings = []Booking{{ID: 1, Start: 18 * 60, End: 19 * 60, PartySize: 2, TableID: u64(2)}}
	tbl, ok = FindTable(req, 18*60)
	require.True(t, ok)
	assert.Equal(t, uint64(3), tbl.ID)
}

func TestEffectiveHoursUsesOverride(t *testing.T) {
	s := model.DefaultSettings()
	s.ClosedWeekdays = map[time.Weekday]bool{time.Saturday: true}

	h := EffectiveHours(s, "2024-06-01", nil) // a Saturday
	assert.True(t, h.Closed)

	h = EffectiveHours(s, "2024-06-01", &model.DayOverride{Date: "2024-06-01", OpenMinute: intp(12 * 60), MaxCovers: intp(40)})
	assert.False(t, h.Closed)
	assert.Equal(t, 12*60, h.Open)
	assert.Equal(t, s.CloseMinute, h.Close)
	assert.Equal(t, 40, h.MaxCovers)

	h = EffectiveHours(s, "2024-06-03", &model.DayOverride{Date: "2024-06-03", Closed: true})
	assert.True(t, h.Closed)
}

func TestBookingsDropsExcludedAndReleasedReservations(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	rs := []model.Reservation{
		{ID: 1, Date: "2024-06-01", Time: 18 * 60, Duration: 90, PartySize: 2, Status: model.StatusConfirmed},
		{ID: 2, Date: "2024-06-01", Time: 18 * 60, Duration: 90, PartySize: 2, Status: model.StatusCancelled},
		{ID: 3, Date: "2024-06-01", Time: 11 * 60, Duration: 90, PartySize: 2, Status: model.StatusPending},
		{ID: 4, Date: "2024-06-01", Time: 19 * 60, Duration: 90, PartySize: 4, Status: model.StatusPending},
	}
	got := Bookings(rs, 1, now, time.UTC)
	require.Len(t, got, 1)
	assert.Equal(t, uint64(4), got[0].ID)
}

// Every slot reported available must leave at least one fitting table with
// no overlapping assigned booking.
func TestAvailableSlotsNeverOverlapAssignedBookings(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	tables := []model.RestaurantTable{
		{ID: 1, Name: "1", MinCapacity: 1, MaxCapacity: 2, IsActive: true},
		{ID: 2, Name: "2", MinCapacity: 2, MaxCapacity: 4, IsActive: true},
		{ID: 3, Name: "3", MinCapacity: 4, MaxCapacity: 8, IsActive: true},
		{ID: 4, Name: "4", MinCapacity: 1, MaxCapacity: 4, IsActive: false},
	}
	for round := 0; round < 200; round++ {
		var bookings []Booking
		for i := 0; i < rng.Intn(8); i++ {
			start := 17*60 + 15*rng.Intn(16)
			tbl := tables[rng.Intn(3)]
			bookings = append(bookings, Booking{ID: uint64(i + 1), Start: start, End: start + 90, PartySize: tbl.MaxCapacity, TableID: u64(tbl.ID)})
		}
		party := 1 + rng.Intn(8)
		req := Request{Hours: Hours{Open: 17 * 60, Close: 22 * 60}, Interval: 15, PartySize: party, Duration: 90, Tables: tables, Bookings: bookings}

		for _, s := range Slots(req) {
			if !s.Available {
				continue
			}
			ok := false
			for _, tbl := range tables {
				if !tbl.IsActive || !tbl.Fits(party) {
					continue
				}
				clash := false
				for _, b := range bookings {
					if *b.TableID == tbl.ID && b.overlaps(s.Time, s.Time+90) {
						clash = true
					}
				}
				if !clash {
					ok = true
				}
			}
			require.True(t, ok, "round %d slot %d party %d", round, s.Time, party)
		}
	}
}
