package service

import (
	"context"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/restaurant-frontdesk/internal/apperr"
	"github.com/iliyamo/restaurant-frontdesk/internal/model"
)

func addParty(t *testing.T, f *fixture, name string, party int) model.WaitlistEntry {
	t.Helper()
	e, err := f.wait.Add(context.Background(), AddRequest{GuestName: name, GuestPhone: "555 0000", PartySize: party})
	require.NoError(t, err)
	return e
}

func activePositions(t *testing.T, f *fixture) map[uint64]int {
	t.Helper()
	entries, err := f.wait.List(context.Background(), false)
	require.NoError(t, err)
	out := map[uint64]int{}
	for _, e := range entries {
		if e.Status.Active() {
			out[e.ID] = e.Position
		}
	}
	return out
}

func TestWaitlistRemoveMiddleKeepsPositionsContiguous(t *testing.T) {
	f := newFixture(t)
	a := addParty(t, f, "A", 2)
	b := addParty(t, f, "B", 2)
	c := addParty(t, f, "C", 2)
	assert.Equal(t, []int{1, 2, 3}, []int{a.Position, b.Position, c.Position})
	assert.Equal(t, []int{15, 30, 45}, []int{a.EstimatedWaitMinutes, b.EstimatedWaitMinutes, c.EstimatedWaitMinutes})

	removed, err := f.wait.Remove(context.Background(), b.ID, model.WaitlistLeft)
	require.NoError(t, err)
	assert.Equal(t, model.WaitlistLeft, removed.Status)
	assert.NotNil(t, removed.LeftAt)

	assert.Equal(t, map[uint64]int{a.ID: 1, c.ID: 2}, activePositions(t, f))
}

func TestWaitlistClosedEntriesFadeOut(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := addParty(t, f, "A", 2)
	_, err := f.wait.Remove(ctx, a.ID, "")
	require.NoError(t, err)

	entries, err := f.wait.List(ctx, false)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, model.WaitlistCancelled, entries[0].Status)

	f.clock.Advance(6 * time.Minute)
	entries, err = f.wait.List(ctx, false)
	require.NoError(t, err)
	assert.Empty(t, entries)

	entries, err = f.wait.List(ctx, true)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestWaitlistRemoveTwiceConflicts(t *testing.T) {
	f := newFixture(t)
	a := addParty(t, f, "A", 2)
	_, err := f.wait.Remove(context.Background(), a.ID, model.WaitlistLeft)
	require.NoError(t, err)

	_, err = f.wait.Remove(context.Background(), a.ID, model.WaitlistCancelled)
	var cerr *apperr.ConflictError
	require.ErrorAs(t, err, &cerr)
	assert.Equal(t, "left", cerr.Current)

	_, err = f.wait.Remove(context.Background(), a.ID, model.WaitlistSeated)
	var verr *apperr.ValidationError
	require.ErrorAs(t, err, &verr)
}

func TestWaitlistNotifyKeepsPosition(t *testing.T) {
	f := newFixture(t)
	addParty(t, f, "A", 2)
	b := addParty(t, f, "B", 2)

	n, err := f.wait.Notify(context.Background(), b.ID)
	require.NoError(t, err)
	assert.Equal(t, model.WaitlistNotified, n.Status)
	assert.Equal(t, 2, n.Position)
	require.NotNil(t, n.NotifiedAt)
}

func TestWaitlistSeatCreatesWalkIn(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := addParty(t, f, "A", 3)
	b := addParty(t, f, "B", 2)

	res, err := f.wait.Seat(ctx, a.ID, true, nil)
	require.NoError(t, err)
	assert.Equal(t, model.WaitlistSeated, res.Entry.Status)
	require.NotNil(t, res.Reservation)
	assert.Equal(t, model.StatusSeated, res.Reservation.Status)
	assert.Equal(t, model.SourceWalkIn, res.Reservation.Source)
	assert.Equal(t, "A", res.Reservation.GuestName)
	require.NotNil(t, res.Entry.ReservationID)
	assert.Equal(t, res.Reservation.ID, *res.Entry.ReservationID)

	assert.Equal(t, map[uint64]int{b.ID: 1}, activePositions(t, f))

	_, err = f.wait.Seat(ctx, a.ID, false, nil)
	var cerr *apperr.ConflictError
	require.ErrorAs(t, err, &cerr)
}

func TestWaitlistSmartEstimate(t *testing.T) {
	f := newFixture(t)
	f.store.Settings().Set(model.KeyWaitlistSmartEstimate, "true")

	small := addParty(t, f, "A", 2)
	large := addParty(t, f, "B", 6)
	assert.Equal(t, 12, small.EstimatedWaitMinutes)
	assert.Equal(t, 2*12+10, large.EstimatedWaitMinutes)

	_, err := f.wait.Remove(context.Background(), small.ID, model.WaitlistLeft)
	require.NoError(t, err)
	got, err := f.wait.List(context.Background(), false)
	require.NoError(t, err)
	for _, e := range got {
		if e.ID == large.ID {
			assert.Equal(t, 12+10, e.EstimatedWaitMinutes)
		}
	}
}

func TestWaitlistQuotedWaitIsKept(t *testing.T) {
	f := newFixture(t)
	quoted := 40
	e, err := f.wait.Add(context.Background(), AddRequest{GuestName: "Q", PartySize: 2, QuotedMinutes: &quoted})
	require.NoError(t, err)
	assert.Equal(t, 40, e.EstimatedWaitMinutes)
}

func TestWaitlistPositionsContiguousUnderRandomOps(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	rng := rand.New(rand.NewSource(7))
	var live []uint64

	for i := 0; i < 200; i++ {
		switch op := rng.Intn(3); {
		case op == 0 || len(live) == 0:
			e := addParty(t, f, "P", 1+rng.Intn(6))
			live = append(live, e.ID)
		case op == 1:
			k := rng.Intn(len(live))
			_, err := f.wait.Remove(ctx, live[k], model.WaitlistLeft)
			require.NoError(t, err)
			live = append(live[:k], live[k+1:]...)
		default:
			k := rng.Intn(len(live))
			_, err := f.wait.Seat(ctx, live[k], false, nil)
			require.NoError(t, err)
			live = append(live[:k], live[k+1:]...)
		}

		pos := activePositions(t, f)
		require.Len(t, pos, len(live))
		seen := make([]bool, len(live)+1)
		for _, p := range pos {
			require.True(t, p >= 1 && p <= len(live), "position %d out of 1..%d", p, len(live))
			require.False(t, seen[p], "duplicate position %d", p)
			seen[p] = true
		}
	}
}

func TestWaitlistSeatWithoutFreeTableKeepsEntryQueued(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	for _, party := range []int{3, 5} {
		_, err := f.res.CreateSeatedWalkIn(ctx, WalkIn{GuestName: "Door", PartySize: party})
		require.NoError(t, err)
	}
	e := addParty(t, f, "Late", 2)

	_, err := f.wait.Seat(ctx, e.ID, true, nil)
	var aerr *apperr.AvailabilityError
	require.ErrorAs(t, err, &aerr)
	assert.Equal(t, apperr.ReasonNoTable, aerr.Reason)

	got, err := f.wait.Get(ctx, e.ID)
	require.NoError(t, err)
	assert.Equal(t, model.WaitlistWaiting, got.Status)
	assert.Equal(t, 1, got.Position)

	rs, err := f.res.ListByDate(ctx, "2026-03-02")
	require.NoError(t, err)
	require.Len(t, rs, 2)
	for _, r := range rs {
		assert.NotNil(t, r.TableID)
	}
}
