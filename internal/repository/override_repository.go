package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/iliyamo/restaurant-frontdesk/internal/localtime"
	"github.com/iliyamo/restaurant-frontdesk/internal/model"
)

// OverrideRepo stores per-date exceptions to the default hours.
type OverrideRepo struct {
	db *sql.DB
}

func NewOverrideRepo(db *sql.DB) *OverrideRepo { return &OverrideRepo{db: db} }

func (r *OverrideRepo) Get(ctx context.Context, date string) (model.DayOverride, error) {
	var (
		o                         model.DayOverride
		d                         time.Time
		openMin, closeMin, covers sql.NullInt64
	)
	err := r.db.QueryRowContext(ctx,
		`SELECT override_date, is_closed, open_minute, close_minute, max_covers, note FROM day_overrides WHERE override_date = ?`,
		date).Scan(&d, &o.Closed, &openMin, &closeMin, &covers, &o.Note)
	if errors.Is(err, sql.ErrNoRows) {
		return o, ErrNotFound
	}
	if err != nil {
		return o, err
	}
	o.Date = d.Format(localtime.DateLayout)
	o.OpenMinute = nullInt(openMin)
	o.CloseMinute = nullInt(closeMin)
	o.MaxCovers = nullInt(covers)
	return o, nil
}

// Put creates or replaces the override for o.Date.
func (r *OverrideRepo) Put(ctx context.Context, o model.DayOverride) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO day_overrides (override_date, is_closed, open_minute, close_minute, max_covers, note)
		 VALUES (?,?,?,?,?,?)
		 ON DUPLICATE KEY UPDATE is_closed=VALUES(is_closed), open_minute=VALUES(open_minute),
		 close_minute=VALUES(close_minute), max_covers=VALUES(max_covers), note=VALUES(note)`,
		o.Date, o.Closed, o.OpenMinute, o.CloseMinute, o.MaxCovers, o.Note)
	return err
}

func (r *OverrideRepo) Delete(ctx context.Context, date string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM day_overrides WHERE override_date = ?`, date)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func nullInt(v sql.NullInt64) *int {
	if !v.Valid {
		return nil
	}
	n := int(v.Int64)
	return &n
}
