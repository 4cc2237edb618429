package repository

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"io"
	"net"
	"strings"
	"syscall"

	"github.com/go-sql-driver/mysql"
)

// Kind says whether a store failure is worth retrying elsewhere.
type Kind int

const (
	// KindPermanent covers failures another store would reproduce: missing
	// rows, constraint violations, bad input, cancelled requests.
	KindPermanent Kind = iota
	// KindTransient covers failures of the store itself: refused or broken
	// connections, timeouts, lock contention, connection exhaustion.
	KindTransient
)

func (k Kind) String() string {
	if k == KindTransient {
		return "transient"
	}
	return "permanent"
}

// ErrNotFound is returned by Update/Delete when the target does not exist.
var ErrNotFound = errors.New("not found")

var (
	// ErrConflict marks a write that clashes with existing rows: a duplicate
	// key, or a delete of a row still referenced elsewhere.
	ErrConflict = errors.New("conflict")
	// ErrInvalidReference marks a write naming a related row that does not exist.
	ErrInvalidReference = errors.New("invalid reference")
)

// Error is a classified store error.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Transient wraps err as a transient failure of op.
func Transient(op string, err error) error {
	return &Error{Kind: KindTransient, Op: op, Err: err}
}

// Permanent wraps err as a permanent failure of op.
func Permanent(op string, err error) error {
	return &Error{Kind: KindPermanent, Op: op, Err: err}
}

// NotFound is the permanent not-found error for op.
func NotFound(op string) error {
	return Permanent(op, ErrNotFound)
}

// KindOf returns the classification of err. Unclassified errors are permanent.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindPermanent
}

// IsTransient reports whether err was classified as transient.
func IsTransient(err error) bool {
	return err != nil && KindOf(err) == KindTransient
}

// MySQL server error numbers treated as transient.
var transientMySQLCodes = map[uint16]struct{}{
	1040: {}, // too many connections
	1053: {}, // server shutdown in progress
	1205: {}, // lock wait timeout
	1213: {}, // deadlock
	1317: {}, // query interrupted
	2002: {}, // can't connect (socket)
	2003: {}, // can't connect (tcp)
	2006: {}, // server has gone away
	2013: {}, // lost connection during query
}

func classifyMySQL(op string, err error) error {
	if err == nil {
		return nil
	}
	var classified *Error
	if errors.As(err, &classified) {
		return err
	}
	return &Error{Kind: mysqlKind(err), Op: op, Err: mysqlCause(err)}
}

// mysqlCause tags constraint violations so callers can tell them apart from
// store failures.
func mysqlCause(err error) error {
	var myErr *mysql.MySQLError
	if !errors.As(err, &myErr) {
		return err
	}
	switch myErr.Number {
	case 1062, 1451: // duplicate entry, row still referenced
		return fmt.Errorf("%w: %w", ErrConflict, err)
	case 1452: // foreign key target missing
		return fmt.Errorf("%w: %w", ErrInvalidReference, err)
	}
	return err
}

func mysqlKind(err error) Kind {
	if errors.Is(err, context.Canceled) {
		return KindPermanent
	}
	if errors.Is(err, context.DeadlineExceeded) ||
		errors.Is(err, driver.ErrBadConn) ||
		errors.Is(err, mysql.ErrInvalidConn) ||
		errors.Is(err, sql.ErrConnDone) ||
		errors.Is(err, io.ErrUnexpectedEOF) ||
		errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.EPIPE) {
		return KindTransient
	}

	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) {
		if _, ok := transientMySQLCodes[myErr.Number]; ok {
			return KindTransient
		}
		return KindPermanent
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return KindTransient
	}
	return KindPermanent
}

func classifySurreal(op string, err error) error {
	if err == nil {
		return nil
	}
	var classified *Error
	if errors.As(err, &classified) {
		return err
	}
	if errors.Is(err, context.Canceled) {
		return Permanent(op, err)
	}
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) ||
		errors.Is(err, io.EOF) ||
		errors.Is(err, io.ErrUnexpectedEOF) ||
		errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.ECONNRESET) ||
		errors.As(err, &netErr) ||
		strings.Contains(err.Error(), "connection closed") {
		return Transient(op, err)
	}
	return Permanent(op, err)
}
