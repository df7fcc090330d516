// Package repository defines error types that are reused across multiple
// repositories.  These sentinel values allow the service layer to
// distinguish between failure scenarios without inspecting driver errors.
package repository

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-sql-driver/mysql"
)

// ErrNotFound is returned when the addressed row does not exist (or is
// soft-deleted, for salons).  Services translate it into their own
// not-found kind.
var ErrNotFound = errors.New("not found")

// ErrDuplicate is returned when an insert would violate a unique key, such
// as a second principal with the same email or a salon reusing a VTA number.
var ErrDuplicate = errors.New("duplicate")

// ErrEmailNotOwner is returned when an owner email already belongs to a
// principal of another role.  It wraps ErrDuplicate.
var ErrEmailNotOwner = fmt.Errorf("%w: email belongs to a principal that is not a salon owner", ErrDuplicate)

// mysqlDuplicateEntry is ER_DUP_ENTRY.
const mysqlDuplicateEntry = 1062

// isDuplicate reports whether err is a MySQL unique-key violation.
func isDuplicate(err error) bool {
	if err == nil {
		return false
	}
	var me *mysql.MySQLError
	if errors.As(err, &me) {
		return me.Number == mysqlDuplicateEntry
	}
	return strings.Contains(strings.ToLower(err.Error()), "1062")
}

// normalizeEmail lower-cases and trims an address before it touches the DB.
func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
