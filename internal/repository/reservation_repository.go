package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/iliyamo/restaurant-frontdesk/internal/localtime"
	"github.com/iliyamo/restaurant-frontdesk/internal/model"
)

// ReservationRepo persists reservations. Writes that leave a reservation
// holding a table lock the table row first, so two transactions can never
// both pass the overlap check for the same table.
type ReservationRepo struct {
	db *sql.DB
}

// NewReservationRepo returns a new ReservationRepo bound to the given database.
func NewReservationRepo(db *sql.DB) *ReservationRepo { return &ReservationRepo{db: db} }

const reservationColumns = `id, code, res_date, res_time, duration, party_size, status, source,
	guest_name, guest_phone, guest_email, notes, table_id, guest_id, preorder_id, payment_ref,
	counter_offer_note, cancel_reason, arrived_at, seated_at, completed_at, cancelled_at,
	created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanReservation(s rowScanner) (model.Reservation, error) {
	var (
		r                                          model.Reservation
		date                                       time.Time
		status, source                             string
		notes, paymentRef                          sql.NullString
		tableID, guestID, preorderID               sql.NullInt64
		arrivedAt, seatedAt, completedAt, cancelAt sql.NullTime
	)
	err := s.Scan(&r.ID, &r.Code, &date, &r.Time, &r.Duration, &r.PartySize, &status, &source,
		&r.GuestName, &r.GuestPhone, &r.GuestEmail, &notes, &tableID, &guestID, &preorderID, &paymentRef,
		&r.CounterOfferNote, &r.CancelReason, &arrivedAt, &seatedAt, &completedAt, &cancelAt,
		&r.CreatedAt, &r.UpdatedAt)
	if err != nil {
		return r, err
	}
	r.Date = date.Format(localtime.DateLayout)
	r.Status = model.ReservationStatus(status)
	r.Source = model.Source(source)
	r.Notes = notes.String
	r.TableID = nullID(tableID)
	r.GuestID = nullID(guestID)
	r.PreorderID = nullID(preorderID)
	if paymentRef.Valid {
		ref := paymentRef.String
		r.PaymentRef = &ref
	}
	r.ArrivedAt = nullTime(arrivedAt)
	r.SeatedAt = nullTime(seatedAt)
	r.CompletedAt = nullTime(completedAt)
	r.CancelledAt = nullTime(cancelAt)
	return r, nil
}

// Create inserts r and fills in its ID.
func (r *ReservationRepo) Create(ctx context.Context, res *model.Reservation) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := lockAndCheckTable(ctx, tx, *res); err != nil {
		return err
	}
	const q = `INSERT INTO reservations (code, res_date, res_time, duration, party_size, status, source,
		guest_name, guest_phone, guest_email, notes, table_id, guest_id, preorder_id, payment_ref,
		counter_offer_note, cancel_reason, arrived_at, seated_at, completed_at, cancelled_at,
		created_at, updated_at)
		VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)`
	result, err := tx.ExecContext(ctx, q,
		res.Code, res.Date, res.Time, res.Duration, res.PartySize, string(res.Status), string(res.Source),
		res.GuestName, res.GuestPhone, res.GuestEmail, res.Notes, res.TableID, res.GuestID, res.PreorderID, res.PaymentRef,
		res.CounterOfferNote, res.CancelReason, res.ArrivedAt, res.SeatedAt, res.CompletedAt, res.CancelledAt,
		res.CreatedAt, res.UpdatedAt)
	if err != nil {
		if isDuplicateKey(err) {
			return ErrDuplicateCode
		}
		return err
	}
	id, err := result.LastInsertId()
	if err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	res.ID = uint64(id)
	return nil
}

// Get returns one reservation by id.
func (r *ReservationRepo) Get(ctx context.Context, id uint64) (model.Reservation, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+reservationColumns+` FROM reservations WHERE id = ?`, id)
	res, err := scanReservation(row)
	if errors.Is(err, sql.ErrNoRows) {
		return res, ErrNotFound
	}
	return res, err
}

// GetByCode returns one reservation by confirmation code.
func (r *ReservationRepo) GetByCode(ctx context.Context, code string) (model.Reservation, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+reservationColumns+` FROM reservations WHERE code = ?`, code)
	res, err := scanReservation(row)
	if errors.Is(err, sql.ErrNoRows) {
		return res, ErrNotFound
	}
	return res, err
}

// ListByDate returns every reservation of one date ordered by start time.
func (r *ReservationRepo) ListByDate(ctx context.Context, date string) ([]model.Reservation, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+reservationColumns+` FROM reservations WHERE res_date = ? ORDER BY res_time, id`, date)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]model.Reservation, 0)
	for rows.Next() {
		res, err := scanReservation(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, res)
	}
	return out, rows.Err()
}

// Update writes every mutable column of res, provided the stored status is
// still expect.
func (r *ReservationRepo) Update(ctx context.Context, res model.Reservation, expect model.ReservationStatus) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := lockAndCheckTable(ctx, tx, res); err != nil {
		return err
	}
	const q = `UPDATE reservations SET res_date=?, res_time=?, duration=?, party_size=?, status=?,
		notes=?, table_id=?, payment_ref=?, counter_offer_note=?, cancel_reason=?,
		arrived_at=?, seated_at=?, completed_at=?, cancelled_at=?, updated_at=?
		WHERE id=? AND status=?`
	result, err := tx.ExecContext(ctx, q,
		res.Date, res.Time, res.Duration, res.PartySize, string(res.Status),
		res.Notes, res.TableID, res.PaymentRef, res.CounterOfferNote, res.CancelReason,
		res.ArrivedAt, res.SeatedAt, res.CompletedAt, res.CancelledAt, res.UpdatedAt,
		res.ID, string(expect))
	if err != nil {
		return err
	}
	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		var cur string
		err := tx.QueryRowContext(ctx, `SELECT status FROM reservations WHERE id = ?`, res.ID).Scan(&cur)
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		if err != nil {
			return err
		}
		return ErrStaleStatus
	}
	return tx.Commit()
}

// lockAndCheckTable serializes writers per table and rejects an overlap with
// another table-holding reservation.
func lockAndCheckTable(ctx context.Context, tx *sql.Tx, res model.Reservation) error {
	if res.TableID == nil || !res.Status.HoldsTable() {
		return nil
	}
	var id uint64
	err := tx.QueryRowContext(ctx, `SELECT id FROM restaurant_tables WHERE id = ? FOR UPDATE`, *res.TableID).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return err
	}

	statuses := model.TableHoldingStatuses
	q := `SELECT COUNT(*) FROM reservations
		WHERE table_id = ? AND res_date = ? AND id <> ?
		AND res_time < ? AND ? < res_time + duration
		AND status IN (?` + strings.Repeat(",?", len(statuses)-1) + `)`
	args := []any{*res.TableID, res.Date, res.ID, res.Time + res.Duration, res.Time}
	for _, s := range statuses {
		args = append(args, string(s))
	}
	var n int
	if err := tx.QueryRowContext(ctx, q, args...).Scan(&n); err != nil {
		return err
	}
	if n > 0 {
		return ErrTableTaken
	}
	return nil
}

func nullID(v sql.NullInt64) *uint64 {
	if !v.Valid {
		return nil
	}
	id := uint64(v.Int64)
	return &id
}

func nullTime(v sql.NullTime) *time.Time {
	if !v.Valid {
		return nil
	}
	t := v.Time.UTC()
	return &t
}
