// Package pos reconciles the floor with the point-of-sale system. Vendor
// adapters normalize their payloads into Snapshot; the Reconciler matches
// checks to tables, keeps the occupancy annotations current and completes
// seated reservations whose check was closed.
package pos

import (
	"context"
	"time"

	"github.com/iliyamo/restaurant-frontdesk/internal/model"
)

// Credentials are the vendor connection details kept in settings.
type Credentials = model.POSCredentials

// Check is one POS tab as the adapters report it.
type Check struct {
	TableNumber     string
	OrderID         string
	TotalCents      int64
	BalanceDueCents int64
	ServerName      string
	OpenedAt        *time.Time
	ClosedAt        *time.Time
}

// Snapshot is everything a vendor reported in one fetch.
type Snapshot struct {
	Open   []Check
	Closed []Check
}

// Adapter fetches the current checks from one vendor.
type Adapter interface {
	Name() string
	Sync(ctx context.Context, creds Credentials) (Snapshot, error)
}
