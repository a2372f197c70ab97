// Package repository implements MySQL persistence for the booking
// platform.  The sentinel errors below let higher layers such as services
// and handlers distinguish failure scenarios without inspecting driver
// errors.
package repository

import (
	"errors"

	"github.com/go-sql-driver/mysql"
)

// ErrNotFound is returned when the requested row does not exist.
var ErrNotFound = errors.New("not found")

// ErrForbidden is returned when the caller attempts an operation on a
// resource they do not own.  Handlers translate this into HTTP 403.
var ErrForbidden = errors.New("forbidden")

// ErrConflict is returned when a delete or update cannot proceed because
// of dependent records, e.g. deleting a performer that still has bookings.
// Handlers translate this into HTTP 409.
var ErrConflict = errors.New("conflict")

// ErrStaleStatus is returned when a booking's status changed between the
// read and the compare-and-set write.  The transaction is rolled back and
// the caller may reload and retry.
var ErrStaleStatus = errors.New("booking status changed concurrently")

// ErrEmailExists is returned when registering an email that is taken.
var ErrEmailExists = errors.New("email already exists")

// isDuplicate reports whether err is a MySQL duplicate-key error (1062).
func isDuplicate(err error) bool {
	return mysqlErrno(err) == 1062
}

// isForeignKey reports whether err is a MySQL foreign-key violation
// (1451 on delete/update of a parent row, 1452 on insert of a child row).
func isForeignKey(err error) bool {
	n := mysqlErrno(err)
	return n == 1451 || n == 1452
}

func mysqlErrno(err error) uint16 {
	var me *mysql.MySQLError
	if errors.As(err, &me) {
		return me.Number
	}
	return 0
}
