package repository

import (
	"context"
	"errors"
	"net"

	"github.com/jackc/pgx/v5/pgconn"
)

// Storage errors fall into three classes. Transient failures are worth
// retrying; permanent failures indicate a deployment or query-shape defect
// and retrying them only burns the retry budget; everything else is
// unclassified and treated as permanent by callers.
//
// SQLSTATE classes:
//   08     connection exception
//   53     insufficient resources (e.g. too_many_connections)
//   57     operator intervention (57P01 admin shutdown, 57P03 cannot connect now)
//   40     transaction rollback (40001 serialization, 40P01 deadlock) - the
//          transaction did not commit, so re-running it is safe
//   42     syntax error / undefined column / undefined table
//   3D,3F  invalid catalog / schema name

// IsTransient reports whether err is likely to succeed on retry.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch class(pgErr.Code) {
		case "08", "53", "57":
			return true
		case "40":
			return true
		}
		return false
	}

	var connErr *pgconn.ConnectError
	if errors.As(err, &connErr) {
		return true
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}

	return false
}

// IsPermanent reports whether err can never succeed on retry: malformed
// queries, unknown columns or tables, a misspelled database name.
func IsPermanent(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch class(pgErr.Code) {
		case "42", "3D", "3F", "28":
			return true
		}
	}
	return false
}

// IsRolledBack reports whether err is a server-reported transaction rollback
// (SQLSTATE class 40: serialization failure, deadlock). The transaction is
// known not to have committed, so re-running it from the top is safe.
func IsRolledBack(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && class(pgErr.Code) == "40"
}

// IsUniqueViolation reports whether err is a unique-constraint violation
// (SQLSTATE 23505). A create racing another create loses here; callers
// surface it as "already exists", not as a failure.
func IsUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

// SafeToRetry reports whether err occurred before the request was ever sent
// to the server, meaning nothing can have committed. This is the only
// condition under which a write may be re-issued.
func SafeToRetry(err error) bool {
	return pgconn.SafeToRetry(err)
}

func class(code string) string {
	if len(code) < 2 {
		return code
	}
	return code[:2]
}
