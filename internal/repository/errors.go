// Package repository implements the MySQL-backed stores. The sentinel
// values below let services tell a lost race apart from a missing row;
// services translate them into apperr types before they reach handlers.
package repository

import (
	"errors"

	"github.com/go-sql-driver/mysql"

	"github.com/iliyamo/restaurant-frontdesk/internal/apperr"
)

// ErrNotFound is the same value as apperr.ErrNotFound so errors.Is matches
// on either side.
var ErrNotFound = apperr.ErrNotFound

// ErrStaleStatus is returned by conditional updates when the row's status
// is no longer the one the caller read.
var ErrStaleStatus = errors.New("stale status")

// ErrTableTaken is returned when a table-holding reservation would overlap
// another one on the same table.
var ErrTableTaken = errors.New("table already booked for that time")

// ErrDuplicateCode is returned when a confirmation code collides.
var ErrDuplicateCode = errors.New("duplicate confirmation code")

// ErrEmailExists is returned when a staff email is already registered.
var ErrEmailExists = errors.New("email already exists")

// isDuplicateKey reports MySQL error 1062.
func isDuplicateKey(err error) bool {
	var me *mysql.MySQLError
	return errors.As(err, &me) && me.Number == 1062
}
