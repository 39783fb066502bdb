package queue

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/restaurant-frontdesk/internal/external"
)

type memDeduper struct {
	mu    sync.Mutex
	state map[string]ClaimState
}

func (d *memDeduper) Claim(_ context.Context, id string) (ClaimState, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.state == nil {
		d.state = map[string]ClaimState{}
	}
	if st, ok := d.state[id]; ok {
		if st == Completed {
			return Completed, nil
		}
		return InFlight, nil
	}
	d.state[id] = Claimed
	return Claimed, nil
}

func (d *memDeduper) Complete(_ context.Context, id string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.state[id] = Completed
	return nil
}

func (d *memDeduper) Release(_ context.Context, id string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.state, id)
	return nil
}

// expire drops a lease the way a lapsed TTL would.
func (d *memDeduper) expire(id string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.state[id] == Claimed {
		delete(d.state, id)
	}
}

type countingGuests struct {
	calls []uint64
	err   error
}

func (g *countingGuests) UpdateStats(_ context.Context, id uint64) error {
	g.calls = append(g.calls, id)
	return g.err
}

type countingPayments struct{ refs []string }

func (p *countingPayments) ReleaseHold(_ context.Context, ref string) error {
	p.refs = append(p.refs, ref)
	return nil
}

type failingEnqueuer struct{ err error }

func (f failingEnqueuer) Enqueue(context.Context, Task) error { return f.err }

func TestProcessorRunsEachTaskOnce(t *testing.T) {
	guests := &countingGuests{}
	p := &Processor{Guests: guests, Dedupe: &memDeduper{}}

	task := NewTask(KindGuestStats, external.Notice{ReservationID: 1})
	task.GuestID = 42
	require.NoError(t, p.Process(context.Background(), task))
	require.NoError(t, p.Process(context.Background(), task))

	assert.Equal(t, []uint64{42}, guests.calls)
}

func TestProcessorReleasesClaimOnFailure(t *testing.T) {
	guests := &countingGuests{err: errors.New("crm down")}
	p := &Processor{Guests: guests, Dedupe: &memDeduper{}}

	task := NewTask(KindGuestStats, external.Notice{})
	task.GuestID = 7
	assert.Error(t, p.Process(context.Background(), task))

	guests.err = nil
	require.NoError(t, p.Process(context.Background(), task))
	assert.Equal(t, []uint64{7, 7}, guests.calls)
}

func TestProcessorRedeliveryAfterCrashRunsOnceLeaseLapses(t *testing.T) {
	guests := &countingGuests{}
	dd := &memDeduper{}
	p := &Processor{Guests: guests, Dedupe: dd}

	task := NewTask(KindGuestStats, external.Notice{})
	task.GuestID = 9
	// a worker claimed the task and died before running it
	st, err := dd.Claim(context.Background(), task.ID)
	require.NoError(t, err)
	require.Equal(t, Claimed, st)

	assert.ErrorIs(t, p.Process(context.Background(), task), ErrInFlight)
	assert.Empty(t, guests.calls)

	dd.expire(task.ID)
	require.NoError(t, p.Process(context.Background(), task))
	assert.Equal(t, []uint64{9}, guests.calls)

	require.NoError(t, p.Process(context.Background(), task))
	assert.Equal(t, []uint64{9}, guests.calls)
}

func TestProcessorMarksCompletedOnlyAfterSuccess(t *testing.T) {
	guests := &countingGuests{err: errors.New("crm down")}
	dd := &memDeduper{}
	p := &Processor{Guests: guests, Dedupe: dd}

	task := NewTask(KindGuestStats, external.Notice{})
	task.GuestID = 3
	require.Error(t, p.Process(context.Background(), task))
	_, held := dd.state[task.ID]
	assert.False(t, held)

	guests.err = nil
	require.NoError(t, p.Process(context.Background(), task))
	assert.Equal(t, Completed, dd.state[task.ID])
}

func TestProcessorSkipsEmptyPaymentRef(t *testing.T) {
	pay := &countingPayments{}
	p := &Processor{Payments: pay}

	require.NoError(t, p.Process(context.Background(), NewTask(KindReleaseHold, external.Notice{})))
	task := NewTask(KindReleaseHold, external.Notice{})
	task.PaymentRef = "pi_123"
	require.NoError(t, p.Process(context.Background(), task))
	assert.Equal(t, []string{"pi_123"}, pay.refs)
}

func TestProcessorRejectsUnknownKind(t *testing.T) {
	p := &Processor{}
	assert.Error(t, p.Process(context.Background(), Task{ID: "x", Kind: "bogus"}))
}

func TestFallbackRunsInlineWhenBrokerFails(t *testing.T) {
	pay := &countingPayments{}
	f := Fallback{
		Primary:   failingEnqueuer{err: errors.New("dial tcp: refused")},
		Secondary: Inline{P: &Processor{Payments: pay}},
	}
	task := NewTask(KindReleaseHold, external.Notice{})
	task.PaymentRef = "pi_9"
	require.NoError(t, f.Enqueue(context.Background(), task))
	assert.Equal(t, []string{"pi_9"}, pay.refs)
}

func TestTaskRoundTripKeepsIdempotencyKey(t *testing.T) {
	task := NewTask(KindStaff, external.Notice{Code: "ABCD2345"})
	task.Event = "self_service.cancel"
	body, err := task.encode()
	require.NoError(t, err)
	got, err := decodeTask(body)
	require.NoError(t, err)
	assert.Equal(t, task.ID, got.ID)
	assert.Equal(t, KindStaff, got.Kind)
	assert.Equal(t, "ABCD2345", got.Notice.Code)
}
