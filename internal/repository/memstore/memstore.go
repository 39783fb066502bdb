// Package memstore is an in-memory implementation of every store the engine
// uses. It follows the same contracts as the MySQL repositories (conditional
// updates, table overlap checks, atomic waitlist renumbering) under a single
// mutex, and backs the tests and APP_ENV=demo.
package memstore

import (
	"context"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/iliyamo/restaurant-frontdesk/internal/model"
	"github.com/iliyamo/restaurant-frontdesk/internal/repository"
)

// Store owns all state. Use the accessor methods to get a store per concern.
type Store struct {
	mu sync.Mutex

	reservations map[uint64]model.Reservation
	nextRes      uint64
	tables       map[uint64]model.RestaurantTable
	nextTable    uint64
	overrides    map[string]model.DayOverride
	settings     map[string]string
	waitlist     map[uint64]model.WaitlistEntry
	nextWait     uint64
	checks       map[uint64]model.TableCheck
	audit        []model.AuditRecord
	staff        map[string]model.StaffUser
	nextStaff    uint64
	guestStats   map[uint64]GuestStats
}

// GuestStats are the counters recomputed by Guests.UpdateStats.
type GuestStats struct {
	Visits  int
	NoShows int
}

// New returns an empty store.
func New() *Store {
	return &Store{
		reservations: map[uint64]model.Reservation{},
		tables:       map[uint64]model.RestaurantTable{},
		overrides:    map[string]model.DayOverride{},
		settings:     map[string]string{},
		waitlist:     map[uint64]model.WaitlistEntry{},
		checks:       map[uint64]model.TableCheck{},
		staff:        map[string]model.StaffUser{},
		guestStats:   map[uint64]GuestStats{},
	}
}

// Reservations is the reservation store view.
type Reservations struct{ s *Store }

// Tables is the table registry view.
type Tables struct{ s *Store }

// Overrides is the day override view.
type Overrides struct{ s *Store }

// Settings is the key/value settings view.
type Settings struct{ s *Store }

// Waitlist is the waitlist view.
type Waitlist struct{ s *Store }

// Occupancy is the POS occupancy annotation view.
type Occupancy struct{ s *Store }

// Audit is the self-service audit view.
type Audit struct{ s *Store }

// Staff is the staff account view.
type Staff struct{ s *Store }

// Guests recomputes guest counters.
type Guests struct{ s *Store }

func (s *Store) Reservations() *Reservations { return &Reservations{s} }
func (s *Store) Tables() *Tables             { return &Tables{s} }
func (s *Store) Overrides() *Overrides       { return &Overrides{s} }
func (s *Store) Settings() *Settings         { return &Settings{s} }
func (s *Store) Waitlist() *Waitlist         { return &Waitlist{s} }
func (s *Store) Occupancy() *Occupancy       { return &Occupancy{s} }
func (s *Store) Audit() *Audit               { return &Audit{s} }
func (s *Store) Staff() *Staff               { return &Staff{s} }
func (s *Store) Guests() *Guests             { return &Guests{s} }

// ---- reservations ----

func (v *Reservations) Create(_ context.Context, r *model.Reservation) error {
	s := v.s
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, other := range s.reservations {
		if other.Code == r.Code {
			return repository.ErrDuplicateCode
		}
	}
	if s.tableClash(*r) {
		return repository.ErrTableTaken
	}
	s.nextRes++
	r.ID = s.nextRes
	s.reservations[r.ID] = cloneReservation(*r)
	return nil
}

func (v *Reservations) Get(_ context.Context, id uint64) (model.Reservation, error) {
	s := v.s
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.reservations[id]
	if !ok {
		return model.Reservation{}, repository.ErrNotFound
	}
	return cloneReservation(r), nil
}

func (v *Reservations) GetByCode(_ context.Context, code string) (model.Reservation, error) {
	s := v.s
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range s.reservations {
		if r.Code == code {
			return cloneReservation(r), nil
		}
	}
	return model.Reservation{}, repository.ErrNotFound
}

func (v *Reservations) ListByDate(_ context.Context, date string) ([]model.Reservation, error) {
	s := v.s
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []model.Reservation{}
	for _, r := range s.reservations {
		if r.Date == date {
			out = append(out, cloneReservation(r))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Time != out[j].Time {
			return out[i].Time < out[j].Time
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (v *Reservations) Update(_ context.Context, r model.Reservation, expect model.ReservationStatus) error {
	s := v.s
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.reservations[r.ID]
	if !ok {
		return repository.ErrNotFound
	}
	if cur.Status != expect {
		return repository.ErrStaleStatus
	}
	if s.tableClash(r) {
		return repository.ErrTableTaken
	}
	s.reservations[r.ID] = cloneReservation(r)
	return nil
}

// tableClash reports whether r would share its table with an overlapping
// table-holding reservation. Caller holds mu.
func (s *Store) tableClash(r model.Reservation) bool {
	if r.TableID == nil || !r.Status.HoldsTable() {
		return false
	}
	for id, other := range s.reservations {
		if id == r.ID || other.TableID == nil || *other.TableID != *r.TableID || !other.Status.HoldsTable() {
			continue
		}
		if other.Overlaps(r.Date, r.Time, r.Duration) {
			return true
		}
	}
	return false
}

func cloneReservation(r model.Reservation) model.Reservation {
	r.TableID = cloneU64(r.TableID)
	r.GuestID = cloneU64(r.GuestID)
	r.PreorderID = cloneU64(r.PreorderID)
	if r.PaymentRef != nil {
		v := *r.PaymentRef
		r.PaymentRef = &v
	}
	r.ArrivedAt = cloneTime(r.ArrivedAt)
	r.SeatedAt = cloneTime(r.SeatedAt)
	r.CompletedAt = cloneTime(r.CompletedAt)
	r.CancelledAt = cloneTime(r.CancelledAt)
	return r
}

func cloneU64(p *uint64) *uint64 {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

func cloneTime(p *time.Time) *time.Time {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

// ---- tables ----

// Add registers a table and returns it with its ID.
func (v *Tables) Add(t model.RestaurantTable) model.RestaurantTable {
	s := v.s
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextTable++
	t.ID = s.nextTable
	s.tables[t.ID] = t
	return t
}

func (v *Tables) List(_ context.Context) ([]model.RestaurantTable, error) {
	s := v.s
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.RestaurantTable, 0, len(s.tables))
	for _, t := range s.tables {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (v *Tables) Get(_ context.Context, id uint64) (model.RestaurantTable, error) {
	s := v.s
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tables[id]
	if !ok {
		return model.RestaurantTable{}, repository.ErrNotFound
	}
	return t, nil
}

// ---- overrides ----

func (v *Overrides) Get(_ context.Context, date string) (model.DayOverride, error) {
	s := v.s
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.overrides[date]
	if !ok {
		return model.DayOverride{}, repository.ErrNotFound
	}
	return o, nil
}

func (v *Overrides) Put(_ context.Context, o model.DayOverride) error {
	s := v.s
	s.mu.Lock()
	defer s.mu.Unlock()
	s.overrides[o.Date] = o
	return nil
}

func (v *Overrides) Delete(_ context.Context, date string) error {
	s := v.s
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.overrides[date]; !ok {
		return repository.ErrNotFound
	}
	delete(s.overrides, date)
	return nil
}

// ---- settings ----

// Set writes one raw setting.
func (v *Settings) Set(key, value string) {
	s := v.s
	s.mu.Lock()
	defer s.mu.Unlock()
	s.settings[key] = value
}

func (v *Settings) Snapshot(_ context.Context) (model.Settings, error) {
	s := v.s
	s.mu.Lock()
	kv := make(map[string]string, len(s.settings))
	for k, val := range s.settings {
		kv[k] = val
	}
	s.mu.Unlock()
	return model.ParseSettings(kv)
}

func (v *Settings) SaveSyncState(_ context.Context, st model.SyncState) error {
	s := v.s
	s.mu.Lock()
	defer s.mu.Unlock()
	if st.LastSyncAt != nil {
		s.settings[model.KeyPOSLastSyncAt] = st.LastSyncAt.UTC().Format(time.RFC3339)
	}
	s.settings[model.KeyPOSOpenChecks] = strconv.Itoa(st.OpenChecks)
	s.settings[model.KeyPOSLastError] = st.LastError
	return nil
}

func (v *Settings) SyncState(_ context.Context) (model.SyncState, error) {
	s := v.s
	s.mu.Lock()
	defer s.mu.Unlock()
	return repository.ParseSyncState(s.settings), nil
}

// ---- waitlist ----

func (v *Waitlist) Add(_ context.Context, e *model.WaitlistEntry) error {
	s := v.s
	s.mu.Lock()
	defer s.mu.Unlock()
	max := 0
	for _, w := range s.waitlist {
		if w.Status.Active() && w.Position > max {
			max = w.Position
		}
	}
	s.nextWait++
	e.ID = s.nextWait
	e.Position = max + 1
	s.waitlist[e.ID] = *e
	return nil
}

func (v *Waitlist) Get(_ context.Context, id uint64) (model.WaitlistEntry, error) {
	s := v.s
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.waitlist[id]
	if !ok {
		return model.WaitlistEntry{}, repository.ErrNotFound
	}
	return e, nil
}

func (v *Waitlist) List(_ context.Context, closedSince time.Time) ([]model.WaitlistEntry, error) {
	s := v.s
	s.mu.Lock()
	defer s.mu.Unlock()
	var active, closed []model.WaitlistEntry
	for _, e := range s.waitlist {
		switch {
		case e.Status.Active():
			active = append(active, e)
		case !e.UpdatedAt.Before(closedSince):
			closed = append(closed, e)
		}
	}
	sort.Slice(active, func(i, j int) bool { return active[i].Position < active[j].Position })
	sort.Slice(closed, func(i, j int) bool { return closed[i].UpdatedAt.After(closed[j].UpdatedAt) })
	return append(active, closed...), nil
}

func (v *Waitlist) MarkNotified(_ context.Context, id uint64, at time.Time) error {
	s := v.s
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.waitlist[id]
	if !ok {
		return repository.ErrNotFound
	}
	if !e.Status.Active() {
		return repository.ErrStaleStatus
	}
	e.Status = model.WaitlistNotified
	e.NotifiedAt = &at
	e.UpdatedAt = at
	s.waitlist[id] = e
	return nil
}

func (v *Waitlist) Close(_ context.Context, id uint64, status model.WaitlistStatus, at time.Time, reservationID *uint64) error {
	s := v.s
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.waitlist[id]
	if !ok {
		return repository.ErrNotFound
	}
	if !e.Status.Active() {
		return repository.ErrStaleStatus
	}
	pos := e.Position
	e.Status = status
	e.Position = 0
	e.UpdatedAt = at
	e.ReservationID = cloneU64(reservationID)
	if status == model.WaitlistSeated {
		e.SeatedAt = &at
	} else {
		e.LeftAt = &at
	}
	s.waitlist[id] = e
	for wid, w := range s.waitlist {
		if w.Status.Active() && w.Position > pos {
			w.Position--
			s.waitlist[wid] = w
		}
	}
	return nil
}

// ---- occupancy ----

func (v *Occupancy) List(_ context.Context) ([]model.TableCheck, error) {
	s := v.s
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.TableCheck, 0, len(s.checks))
	for _, c := range s.checks {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].TableID < out[j].TableID })
	return out, nil
}

func (v *Occupancy) Upsert(_ context.Context, c model.TableCheck) error {
	s := v.s
	s.mu.Lock()
	defer s.mu.Unlock()
	s.checks[c.TableID] = c
	return nil
}

func (v *Occupancy) Delete(_ context.Context, tableID uint64) error {
	s := v.s
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.checks, tableID)
	return nil
}

func (v *Occupancy) DeleteExcept(_ context.Context, keep []uint64) error {
	s := v.s
	s.mu.Lock()
	defer s.mu.Unlock()
	k := make(map[uint64]bool, len(keep))
	for _, id := range keep {
		k[id] = true
	}
	for id := range s.checks {
		if !k[id] {
			delete(s.checks, id)
		}
	}
	return nil
}

// ---- audit ----

func (v *Audit) Record(_ context.Context, a model.AuditRecord) error {
	s := v.s
	s.mu.Lock()
	defer s.mu.Unlock()
	s.audit = append(s.audit, a)
	return nil
}

func (v *Audit) ListByReservation(_ context.Context, reservationID uint64) ([]model.AuditRecord, error) {
	s := v.s
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []model.AuditRecord{}
	for _, a := range s.audit {
		if a.ReservationID == reservationID {
			out = append(out, a)
		}
	}
	return out, nil
}

// ---- staff ----

func (v *Staff) Create(_ context.Context, email, passwordHash, role string) (uint64, error) {
	s := v.s
	s.mu.Lock()
	defer s.mu.Unlock()
	email = strings.ToLower(strings.TrimSpace(email))
	if _, ok := s.staff[email]; ok {
		return 0, repository.ErrEmailExists
	}
	s.nextStaff++
	now := time.Now().UTC()
	s.staff[email] = model.StaffUser{ID: s.nextStaff, Email: email, PasswordHash: passwordHash, Role: role, IsActive: true, CreatedAt: now, UpdatedAt: now}
	return s.nextStaff, nil
}

func (v *Staff) GetByEmail(_ context.Context, email string) (model.StaffUser, error) {
	s := v.s
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.staff[strings.ToLower(strings.TrimSpace(email))]
	if !ok {
		return model.StaffUser{}, repository.ErrNotFound
	}
	return u, nil
}

// ---- guests ----

func (v *Guests) UpdateStats(_ context.Context, guestID uint64) error {
	s := v.s
	s.mu.Lock()
	defer s.mu.Unlock()
	var st GuestStats
	for _, r := range s.reservations {
		if r.GuestID == nil || *r.GuestID != guestID {
			continue
		}
		switch r.Status {
		case model.StatusCompleted:
			st.Visits++
		case model.StatusNoShow:
			st.NoShows++
		}
	}
	s.guestStats[guestID] = st
	return nil
}

// Stats returns the last recomputed counters for a guest.
func (v *Guests) Stats(guestID uint64) GuestStats {
	s := v.s
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.guestStats[guestID]
}
