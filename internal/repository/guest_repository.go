package repository

import (
	"context"
	"database/sql"
)

// GuestRepo maintains the counters on guest profiles.
type GuestRepo struct {
	db *sql.DB
}

func NewGuestRepo(db *sql.DB) *GuestRepo { return &GuestRepo{db: db} }

// UpdateStats recomputes visit and no-show counts from the reservations
// table.
func (r *GuestRepo) UpdateStats(ctx context.Context, guestID uint64) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE guests SET
		   visit_count   = (SELECT COUNT(*) FROM reservations WHERE guest_id = ? AND status = 'completed'),
		   no_show_count = (SELECT COUNT(*) FROM reservations WHERE guest_id = ? AND status = 'no_show')
		 WHERE id = ?`, guestID, guestID, guestID)
	return err
}
