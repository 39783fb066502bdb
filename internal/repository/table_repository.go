package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/iliyamo/restaurant-frontdesk/internal/model"
)

// TableRepo reads the table registry. Tables are maintained by an admin
// tool; the engine only reads them.
type TableRepo struct {
	db *sql.DB
}

func NewTableRepo(db *sql.DB) *TableRepo { return &TableRepo{db: db} }

const tableColumns = `id, name, section, min_capacity, max_capacity, is_active`

// List returns every table, active or not, ordered by id.
func (r *TableRepo) List(ctx context.Context) ([]model.RestaurantTable, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+tableColumns+` FROM restaurant_tables ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]model.RestaurantTable, 0)
	for rows.Next() {
		var t model.RestaurantTable
		if err := rows.Scan(&t.ID, &t.Name, &t.Section, &t.MinCapacity, &t.MaxCapacity, &t.IsActive); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// Get returns one table.
func (r *TableRepo) Get(ctx context.Context, id uint64) (model.RestaurantTable, error) {
	var t model.RestaurantTable
	err := r.db.QueryRowContext(ctx, `SELECT `+tableColumns+` FROM restaurant_tables WHERE id = ?`, id).
		Scan(&t.ID, &t.Name, &t.Section, &t.MinCapacity, &t.MaxCapacity, &t.IsActive)
	if errors.Is(err, sql.ErrNoRows) {
		return t, ErrNotFound
	}
	return t, err
}
