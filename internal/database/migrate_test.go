package database

import (
	"strings"
	"testing"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitStatements(t *testing.T) {
	got := splitStatements("CREATE TABLE a (id INT);\n\n CREATE TABLE b (id INT) ;\n")
	assert.Equal(t, []string{"CREATE TABLE a (id INT)", "CREATE TABLE b (id INT)"}, got)
}

func TestEmbeddedSchemaCreatesEveryTable(t *testing.T) {
	b, err := migrations.ReadFile("migrations/0001_init.sql")
	require.NoError(t, err)
	stmts := splitStatements(string(b))
	for _, table := range []string{"staff_users", "guests", "restaurant_tables", "reservations", "reservation_audit", "day_overrides", "settings", "waitlist_entries", "table_checks"} {
		found := false
		for _, s := range stmts {
			if strings.Contains(s, "CREATE TABLE IF NOT EXISTS "+table+" (") {
				found = true
			}
		}
		assert.True(t, found, table)
	}
}

func TestParamsDSN(t *testing.T) {
	dsn := Params{User: "fd", Pass: "p@ss", Host: "db", Port: "3306", Name: "frontdesk"}.DSN()
	cfg, err := mysql.ParseDSN(dsn)
	require.NoError(t, err)
	assert.Equal(t, "fd", cfg.User)
	assert.Equal(t, "p@ss", cfg.Passwd)
	assert.Equal(t, "db:3306", cfg.Addr)
	assert.Equal(t, "frontdesk", cfg.DBName)
	assert.True(t, cfg.ParseTime)
	assert.True(t, cfg.ClientFoundRows)
	assert.Equal(t, time.UTC, cfg.Loc)
	assert.Contains(t, dsn, "charset=utf8mb4")
}
