package dbio

import (
	"database/sql"
	"database/sql/driver"
	"errors"
	"io"
	"net"
	"strings"

	"github.com/gnames/epidump/internal/ent/retry"
	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jinzhu/gorm"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// IsTransient reports whether the error is a lost connection, a lock
// timeout, a deadlock or a serialization failure, so the operation might
// succeed if repeated.
func IsTransient(err error) bool {
	return anyOf(err, transient)
}

// IsUniqueViolation reports whether the error is a duplicate key on a unique
// index.
func IsUniqueViolation(err error) bool {
	return anyOf(err, unique)
}

// Classify returns transient errors as they are and marks the rest as
// permanent for retry.
func Classify(err error) error {
	if err == nil || IsTransient(err) {
		return err
	}
	return retry.Permanent(err)
}

// anyOf applies the check to the error, or to each of the errors gorm
// accumulated.
func anyOf(err error, check func(error) bool) bool {
	if err == nil {
		return false
	}
	var errs gorm.Errors
	if errors.As(err, &errs) {
		for _, e := range errs {
			if check(e) {
				return true
			}
		}
		return false
	}
	return check(err)
}

func transient(err error) bool {
	if errors.Is(err, driver.ErrBadConn) ||
		errors.Is(err, mysql.ErrInvalidConn) ||
		errors.Is(err, sql.ErrConnDone) ||
		errors.Is(err, io.ErrUnexpectedEOF) {
		return true
	}

	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) {
		switch myErr.Number {
		// lock wait timeout, deadlock, too many connections,
		// server shutdown
		case 1205, 1213, 1040, 1053:
			return true
		}
		return false
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		if strings.HasPrefix(pgErr.Code, "08") {
			return true
		}
		switch pgErr.Code {
		case "40001", "40P01", "55P03", "57P01", "57P02", "57P03":
			return true
		}
		return false
	}
	if pgconn.Timeout(err) || pgconn.SafeToRetry(err) {
		return true
	}

	var sqErr *sqlite.Error
	if errors.As(err, &sqErr) {
		switch sqErr.Code() & 0xff {
		case sqlite3.SQLITE_BUSY, sqlite3.SQLITE_LOCKED:
			return true
		}
		return false
	}

	var netErr net.Error
	return errors.As(err, &netErr)
}

func unique(err error) bool {
	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) {
		return myErr.Number == 1062
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}

	var sqErr *sqlite.Error
	if errors.As(err, &sqErr) {
		switch sqErr.Code() {
		case sqlite3.SQLITE_CONSTRAINT_UNIQUE, sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY:
			return true
		case sqlite3.SQLITE_CONSTRAINT:
			// extended result codes are off
			return strings.Contains(sqErr.Error(), "UNIQUE")
		}
	}
	return false
}
