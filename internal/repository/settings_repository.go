package repository

import (
	"context"
	"database/sql"
	"strconv"
	"time"

	"github.com/iliyamo/restaurant-frontdesk/internal/model"
)

// SettingsRepo reads the key/value settings table. Callers get an immutable
// model.Settings snapshot per call.
type SettingsRepo struct {
	db *sql.DB
}

func NewSettingsRepo(db *sql.DB) *SettingsRepo { return &SettingsRepo{db: db} }

func (r *SettingsRepo) raw(ctx context.Context) (map[string]string, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT setting_key, setting_value FROM settings`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	kv := map[string]string{}
	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			return nil, err
		}
		kv[k] = v
	}
	return kv, rows.Err()
}

func (r *SettingsRepo) Snapshot(ctx context.Context) (model.Settings, error) {
	kv, err := r.raw(ctx)
	if err != nil {
		return model.Settings{}, err
	}
	return model.ParseSettings(kv)
}

// Set writes one raw setting.
func (r *SettingsRepo) Set(ctx context.Context, key, value string) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO settings (setting_key, setting_value) VALUES (?, ?)
		 ON DUPLICATE KEY UPDATE setting_value = VALUES(setting_value)`, key, value)
	return err
}

// SaveSyncState records the POS sync outcome in one transaction.
func (r *SettingsRepo) SaveSyncState(ctx context.Context, st model.SyncState) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	kv := map[string]string{
		model.KeyPOSOpenChecks: strconv.Itoa(st.OpenChecks),
		model.KeyPOSLastError:  st.LastError,
	}
	if st.LastSyncAt != nil {
		kv[model.KeyPOSLastSyncAt] = st.LastSyncAt.UTC().Format(time.RFC3339)
	}
	for k, v := range kv {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO settings (setting_key, setting_value) VALUES (?, ?)
			 ON DUPLICATE KEY UPDATE setting_value = VALUES(setting_value)`, k, v); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (r *SettingsRepo) SyncState(ctx context.Context) (model.SyncState, error) {
	kv, err := r.raw(ctx)
	if err != nil {
		return model.SyncState{}, err
	}
	return ParseSyncState(kv), nil
}

// ParseSyncState reads the pos_* keys. Malformed values read as zero.
func ParseSyncState(kv map[string]string) model.SyncState {
	var st model.SyncState
	if v := kv[model.KeyPOSLastSyncAt]; v != "" {
		if t, err := time.Parse(time.RFC3339, v); err == nil {
			st.LastSyncAt = &t
		}
	}
	st.OpenChecks, _ = strconv.Atoi(kv[model.KeyPOSOpenChecks])
	st.LastError = kv[model.KeyPOSLastError]
	return st
}

// SetDefault writes key only when it has no value yet.
func (r *SettingsRepo) SetDefault(ctx context.Context, key, value string) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT IGNORE INTO settings (setting_key, setting_value) VALUES (?, ?)`, key, value)
	return err
}
