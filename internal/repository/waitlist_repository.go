package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/iliyamo/restaurant-frontdesk/internal/model"
)

// WaitlistRepo stores the walk-in queue. Active positions are dense: Add
// appends behind the last active entry and Close shifts everyone behind the
// closed entry forward, each inside one transaction.
type WaitlistRepo struct {
	db *sql.DB
}

func NewWaitlistRepo(db *sql.DB) *WaitlistRepo { return &WaitlistRepo{db: db} }

const waitlistColumns = `id, guest_name, guest_phone, guest_email, party_size, notes, status, position,
	estimated_wait_minutes, quoted_at, notified_at, seated_at, left_at, reservation_id, updated_at`

const activeWaitlist = `status IN ('waiting','notified')`

func scanWaitlist(s rowScanner) (model.WaitlistEntry, error) {
	var (
		e                            model.WaitlistEntry
		status                       string
		notifiedAt, seatedAt, leftAt sql.NullTime
		reservationID                sql.NullInt64
	)
	err := s.Scan(&e.ID, &e.GuestName, &e.GuestPhone, &e.GuestEmail, &e.PartySize, &e.Notes, &status, &e.Position,
		&e.EstimatedWaitMinutes, &e.QuotedAt, &notifiedAt, &seatedAt, &leftAt, &reservationID, &e.UpdatedAt)
	if err != nil {
		return e, err
	}
	e.Status = model.WaitlistStatus(status)
	e.NotifiedAt = nullTime(notifiedAt)
	e.SeatedAt = nullTime(seatedAt)
	e.LeftAt = nullTime(leftAt)
	e.ReservationID = nullID(reservationID)
	return e, nil
}

// Add appends e and fills in its ID and position.
func (r *WaitlistRepo) Add(ctx context.Context, e *model.WaitlistEntry) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var last int
	if err := tx.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(position), 0) FROM waitlist_entries WHERE `+activeWaitlist+` FOR UPDATE`).Scan(&last); err != nil {
		return err
	}
	e.Position = last + 1
	res, err := tx.ExecContext(ctx,
		`INSERT INTO waitlist_entries (guest_name, guest_phone, guest_email, party_size, notes, status, position,
		 estimated_wait_minutes, quoted_at, updated_at) VALUES (?,?,?,?,?,?,?,?,?,?)`,
		e.GuestName, e.GuestPhone, e.GuestEmail, e.PartySize, e.Notes, string(e.Status), e.Position,
		e.EstimatedWaitMinutes, e.QuotedAt, e.UpdatedAt)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	e.ID = uint64(id)
	return nil
}

func (r *WaitlistRepo) Get(ctx context.Context, id uint64) (model.WaitlistEntry, error) {
	e, err := scanWaitlist(r.db.QueryRowContext(ctx, `SELECT `+waitlistColumns+` FROM waitlist_entries WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return e, ErrNotFound
	}
	return e, err
}

// List returns active entries by position, then entries closed at or after
// closedSince, newest first.
func (r *WaitlistRepo) List(ctx context.Context, closedSince time.Time) ([]model.WaitlistEntry, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+waitlistColumns+` FROM waitlist_entries
		 WHERE `+activeWaitlist+` OR updated_at >= ?
		 ORDER BY (`+activeWaitlist+`) DESC, position ASC, updated_at DESC`, closedSince)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]model.WaitlistEntry, 0)
	for rows.Next() {
		e, err := scanWaitlist(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (r *WaitlistRepo) MarkNotified(ctx context.Context, id uint64, at time.Time) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE waitlist_entries SET status='notified', notified_at=?, updated_at=? WHERE id=? AND `+activeWaitlist,
		at, at, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		if _, err := r.Get(ctx, id); err != nil {
			return err
		}
		return ErrStaleStatus
	}
	return nil
}

// Close ends an active entry with status and renumbers the queue.
func (r *WaitlistRepo) Close(ctx context.Context, id uint64, status model.WaitlistStatus, at time.Time, reservationID *uint64) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var (
		pos int
		cur string
	)
	err = tx.QueryRowContext(ctx, `SELECT position, status FROM waitlist_entries WHERE id = ? FOR UPDATE`, id).Scan(&pos, &cur)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return err
	}
	if !model.WaitlistStatus(cur).Active() {
		return ErrStaleStatus
	}

	col := "left_at"
	if status == model.WaitlistSeated {
		col = "seated_at"
	}
	if _, err := tx.ExecContext(ctx,
		`UPDATE waitlist_entries SET status=?, position=0, `+col+`=?, reservation_id=?, updated_at=? WHERE id=?`,
		string(status), at, reservationID, at, id); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx,
		`UPDATE waitlist_entries SET position = position - 1 WHERE `+activeWaitlist+` AND position > ?`, pos); err != nil {
		return err
	}
	return tx.Commit()
}
