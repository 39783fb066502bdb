package repository

import (
	"context"
	"database/sql"
	"strings"

	"github.com/iliyamo/restaurant-frontdesk/internal/model"
)

// OccupancyRepo holds the POS open-check annotation per table.
type OccupancyRepo struct {
	db *sql.DB
}

func NewOccupancyRepo(db *sql.DB) *OccupancyRepo { return &OccupancyRepo{db: db} }

func (r *OccupancyRepo) List(ctx context.Context) ([]model.TableCheck, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT table_id, order_id, check_total_cents, balance_due_cents, server_name, opened_at, closed_at, is_open, synced_at
		 FROM table_checks ORDER BY table_id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]model.TableCheck, 0)
	for rows.Next() {
		var (
			c                  model.TableCheck
			openedAt, closedAt sql.NullTime
		)
		if err := rows.Scan(&c.TableID, &c.OrderID, &c.CheckTotalCents, &c.BalanceDueCents, &c.ServerName,
			&openedAt, &closedAt, &c.IsOpen, &c.SyncedAt); err != nil {
			return nil, err
		}
		c.OpenedAt = nullTime(openedAt)
		c.ClosedAt = nullTime(closedAt)
		out = append(out, c)
	}
	return out, rows.Err()
}

// Upsert overwrites the annotation of c.TableID in place.
func (r *OccupancyRepo) Upsert(ctx context.Context, c model.TableCheck) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO table_checks (table_id, order_id, check_total_cents, balance_due_cents, server_name, opened_at, closed_at, is_open, synced_at)
		 VALUES (?,?,?,?,?,?,?,?,?)
		 ON DUPLICATE KEY UPDATE order_id=VALUES(order_id), check_total_cents=VALUES(check_total_cents),
		 balance_due_cents=VALUES(balance_due_cents), server_name=VALUES(server_name), opened_at=VALUES(opened_at),
		 closed_at=VALUES(closed_at), is_open=VALUES(is_open), synced_at=VALUES(synced_at)`,
		c.TableID, c.OrderID, c.CheckTotalCents, c.BalanceDueCents, c.ServerName, c.OpenedAt, c.ClosedAt, c.IsOpen, c.SyncedAt)
	return err
}

func (r *OccupancyRepo) Delete(ctx context.Context, tableID uint64) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM table_checks WHERE table_id = ?`, tableID)
	return err
}

// DeleteExcept removes every annotation whose table is not in keep.
func (r *OccupancyRepo) DeleteExcept(ctx context.Context, keep []uint64) error {
	if len(keep) == 0 {
		_, err := r.db.ExecContext(ctx, `DELETE FROM table_checks`)
		return err
	}
	args := make([]any, len(keep))
	for i, id := range keep {
		args[i] = id
	}
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM table_checks WHERE table_id NOT IN (?`+strings.Repeat(",?", len(keep)-1)+`)`, args...)
	return err
}
