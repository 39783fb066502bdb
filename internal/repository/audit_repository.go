package repository

import (
	"context"
	"database/sql"

	"github.com/iliyamo/restaurant-frontdesk/internal/model"
)

// AuditRepo keeps the staff-facing trail of guest self-service changes.
type AuditRepo struct {
	db *sql.DB
}

func NewAuditRepo(db *sql.DB) *AuditRepo { return &AuditRepo{db: db} }

func (r *AuditRepo) Record(ctx context.Context, a model.AuditRecord) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO reservation_audit (id, reservation_id, action, actor, detail, created_at) VALUES (?,?,?,?,?,?)`,
		a.ID, a.ReservationID, a.Action, a.Actor, a.Detail, a.CreatedAt)
	return err
}

func (r *AuditRepo) ListByReservation(ctx context.Context, reservationID uint64) ([]model.AuditRecord, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, reservation_id, action, actor, detail, created_at FROM reservation_audit
		 WHERE reservation_id = ? ORDER BY created_at, id`, reservationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]model.AuditRecord, 0)
	for rows.Next() {
		var a model.AuditRecord
		if err := rows.Scan(&a.ID, &a.ReservationID, &a.Action, &a.Actor, &a.Detail, &a.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}
