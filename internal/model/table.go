package model

import "time"

// RestaurantTable is a physical table. Reservations reference it by ID only.
type RestaurantTable struct {
	ID          uint64
	Name        string
	Section     string
	MinCapacity int
	MaxCapacity int
	IsActive    bool
}

// Fits reports whether a party of n can be seated at the table.
func (t RestaurantTable) Fits(n int) bool {
	return n >= t.MinCapacity && n <= t.MaxCapacity
}

// TableCheck is the occupancy annotation for a table with an open POS
// check. It is rewritten every reconciliation cycle and removed as soon as
// a cycle no longer reports the check open.
type TableCheck struct {
	TableID         uint64
	OrderID         string
	CheckTotalCents int64
	BalanceDueCents int64
	ServerName      string
	OpenedAt        *time.Time
	ClosedAt        *time.Time
	IsOpen          bool
	SyncedAt        time.Time
}

// SyncState is what the last POS reconciliation left behind for operators.
type SyncState struct {
	LastSyncAt *time.Time
	OpenChecks int
	LastError  string
}
