package database

import (
	"context"
	"database/sql"
	"fmt"
	"net"
	"time"

	"github.com/go-sql-driver/mysql"
)

// Params locate the reservation database.
type Params struct {
	User, Pass string
	Host, Port string
	Name       string
	MaxConns   int // 0 means 25
}

// DSN renders p for the MySQL driver. Times are stored and read as UTC;
// the restaurant zone is applied in the services. Affected-row counts
// report matched rows so a conditional UPDATE that writes identical values
// is not taken for a lost race.
func (p Params) DSN() string {
	cfg := mysql.NewConfig()
	cfg.User = p.User
	cfg.Passwd = p.Pass
	cfg.Net = "tcp"
	cfg.Addr = net.JoinHostPort(p.Host, p.Port)
	cfg.DBName = p.Name
	cfg.ParseTime = true
	cfg.Loc = time.UTC
	cfg.ClientFoundRows = true
	cfg.Params = map[string]string{"charset": "utf8mb4"}
	return cfg.FormatDSN()
}

// Open connects and pings with a bounded wait.
func Open(ctx context.Context, p Params) (*sql.DB, error) {
	db, err := sql.Open("mysql", p.DSN())
	if err != nil {
		return nil, err
	}
	n := p.MaxConns
	if n <= 0 {
		n = 25
	}
	db.SetMaxOpenConns(n)
	db.SetMaxIdleConns(n)
	db.SetConnMaxLifetime(30 * time.Minute)

	pctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping %s: %w", p.Host, err)
	}
	return db, nil
}
