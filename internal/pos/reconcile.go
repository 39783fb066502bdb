package pos

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/iliyamo/restaurant-frontdesk/internal/apperr"
	"github.com/iliyamo/restaurant-frontdesk/internal/localtime"
	"github.com/iliyamo/restaurant-frontdesk/internal/model"
)

// DefaultTimeout bounds one vendor fetch.
const DefaultTimeout = 10 * time.Second

// TableLister reads the table registry.
type TableLister interface {
	List(ctx context.Context) ([]model.RestaurantTable, error)
}

// OccupancyStore keeps one open-check annotation per table.
type OccupancyStore interface {
	List(ctx context.Context) ([]model.TableCheck, error)
	Upsert(ctx context.Context, c model.TableCheck) error
	Delete(ctx context.Context, tableID uint64) error
	DeleteExcept(ctx context.Context, keep []uint64) error
}

// SettingsStore supplies credentials and records the sync outcome.
type SettingsStore interface {
	Snapshot(ctx context.Context) (model.Settings, error)
	SaveSyncState(ctx context.Context, st model.SyncState) error
	SyncState(ctx context.Context) (model.SyncState, error)
}

// Reservations is the slice of the state machine the job drives.
type Reservations interface {
	ListByDate(ctx context.Context, date string) ([]model.Reservation, error)
	Complete(ctx context.Context, id uint64, actor string) (model.Reservation, error)
}

// Result summarizes one cycle.
type Result struct {
	Trigger    string    `json:"trigger"`
	Adapter    string    `json:"adapter"`
	SyncedAt   time.Time `json:"synced_at"`
	OpenChecks int       `json:"open_checks"`
	Closed     int       `json:"closed_checks"`
	Unmatched  []string  `json:"unmatched,omitempty"`
	Completed  []uint64  `json:"completed_reservations,omitempty"`
	Occupied   []uint64  `json:"occupied_tables"`
}

// Reconciler runs sync cycles. Cycles are serialized; each one recomputes
// the annotations from its own snapshot, so running one twice is harmless.
type Reconciler struct {
	Adapters     map[string]Adapter
	Tables       TableLister
	Occupancy    OccupancyStore
	Settings     SettingsStore
	Reservations Reservations
	Clock        clockwork.Clock
	Timeout      time.Duration

	mu sync.Mutex
}

// Run performs one cycle. trigger is "timer" or "manual" and only shows up
// in logs and the result. A failed fetch returns *apperr.ExternalSyncError
// and leaves the annotations as they were.
func (r *Reconciler) Run(ctx context.Context, trigger string) (Result, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	res := Result{Trigger: trigger, Occupied: []uint64{}}
	st, err := r.Settings.Snapshot(ctx)
	if err != nil {
		return res, err
	}
	adapter, ok := r.Adapters[st.POS.Vendor]
	if !ok {
		return res, r.fail(ctx, st.POS.Vendor, fmt.Errorf("no adapter registered for vendor %q", st.POS.Vendor))
	}
	res.Adapter = adapter.Name()

	timeout := r.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	fctx, cancel := context.WithTimeout(ctx, timeout)
	snap, err := adapter.Sync(fctx, st.POS)
	cancel()
	if err != nil {
		return res, r.fail(ctx, adapter.Name(), err)
	}

	tables, err := r.Tables.List(ctx)
	if err != nil {
		return res, err
	}
	idx := NewTableIndex(tables)
	now := r.Clock.Now().UTC()
	res.SyncedAt = now
	res.OpenChecks = len(snap.Open)
	res.Closed = len(snap.Closed)

	stillOpen := map[uint64]bool{}
	for _, c := range snap.Open {
		id, ok := idx.Match(c.TableNumber)
		if !ok {
			log.Printf("pos-sync: open check %s on %q matches no table", c.OrderID, c.TableNumber)
			res.Unmatched = append(res.Unmatched, c.TableNumber)
			continue
		}
		err := r.Occupancy.Upsert(ctx, model.TableCheck{
			TableID:         id,
			OrderID:         c.OrderID,
			CheckTotalCents: c.TotalCents,
			BalanceDueCents: c.BalanceDueCents,
			ServerName:      c.ServerName,
			OpenedAt:        c.OpenedAt,
			IsOpen:          true,
			SyncedAt:        now,
		})
		if err != nil {
			return res, err
		}
		if !stillOpen[id] {
			stillOpen[id] = true
			res.Occupied = append(res.Occupied, id)
		}
	}

	var seated []model.Reservation
	loaded := false
	done := map[uint64]bool{}
	for _, c := range snap.Closed {
		id, ok := idx.Match(c.TableNumber)
		if !ok {
			log.Printf("pos-sync: closed check %s on %q matches no table", c.OrderID, c.TableNumber)
			res.Unmatched = append(res.Unmatched, c.TableNumber)
			continue
		}
		if !loaded {
			if seated, err = r.seatedToday(ctx, st.Location); err != nil {
				return res, err
			}
			loaded = true
		}
		if target, ok := latestSeated(seated, id, done); ok && closedAfterSeating(c, target) {
			if _, err := r.Reservations.Complete(ctx, target.ID, "pos"); err != nil {
				var conflict *apperr.ConflictError
				if !errors.As(err, &conflict) {
					return res, err
				}
				log.Printf("pos-sync: reservation %d not completed: %v", target.ID, err)
			} else {
				res.Completed = append(res.Completed, target.ID)
			}
			done[target.ID] = true
		}
		if !stillOpen[id] {
			if err := r.Occupancy.Delete(ctx, id); err != nil {
				return res, err
			}
		}
	}

	if err := r.Occupancy.DeleteExcept(ctx, res.Occupied); err != nil {
		return res, err
	}
	if err := r.Settings.SaveSyncState(ctx, model.SyncState{LastSyncAt: &now, OpenChecks: len(snap.Open)}); err != nil {
		log.Printf("pos-sync: save sync state: %v", err)
	}
	log.Printf("pos-sync: %s cycle via %s: %d open, %d closed, %d completed, %d unmatched",
		trigger, res.Adapter, len(snap.Open), len(snap.Closed), len(res.Completed), len(res.Unmatched))
	return res, nil
}

// Status returns the persisted outcome of the last cycles.
func (r *Reconciler) Status(ctx context.Context) (model.SyncState, error) {
	return r.Settings.SyncState(ctx)
}

// fail records the error next to the previous successful sync and wraps it.
func (r *Reconciler) fail(ctx context.Context, adapter string, err error) error {
	log.Printf("pos-sync: fetch via %s failed: %v", adapter, err)
	prev, serr := r.Settings.SyncState(ctx)
	if serr == nil {
		prev.LastError = err.Error()
		if serr = r.Settings.SaveSyncState(ctx, prev); serr != nil {
			log.Printf("pos-sync: save sync state: %v", serr)
		}
	}
	return &apperr.ExternalSyncError{Adapter: adapter, Err: err}
}

func (r *Reconciler) seatedToday(ctx context.Context, loc *time.Location) ([]model.Reservation, error) {
	rs, err := r.Reservations.ListByDate(ctx, localtime.Today(r.Clock.Now(), loc))
	if err != nil {
		return nil, err
	}
	out := rs[:0]
	for _, x := range rs {
		if x.Status == model.StatusSeated && x.TableID != nil {
			out = append(out, x)
		}
	}
	return out, nil
}

// latestSeated picks the party seated most recently at tableID.
func latestSeated(rs []model.Reservation, tableID uint64, skip map[uint64]bool) (model.Reservation, bool) {
	var best model.Reservation
	found := false
	for _, x := range rs {
		if *x.TableID != tableID || skip[x.ID] {
			continue
		}
		if !found || seatedAt(x).After(seatedAt(best)) {
			best, found = x, true
		}
	}
	return best, found
}

// closedAfterSeating keeps an earlier party's check from completing the
// party now at the table.
func closedAfterSeating(c Check, r model.Reservation) bool {
	if c.ClosedAt == nil || r.SeatedAt == nil {
		return true
	}
	return !c.ClosedAt.Before(*r.SeatedAt)
}

func seatedAt(r model.Reservation) time.Time {
	if r.SeatedAt == nil {
		return time.Time{}
	}
	return *r.SeatedAt
}
