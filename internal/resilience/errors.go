package resilience

import (
	"context"
	"errors"
	"net"
	"strings"
	"syscall"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/sells-group/provenance-cli/internal/model"
)

// UnavailableError marks a failed store call. It matches
// model.ErrStoreUnavailable under errors.Is and unwraps to the cause.
type UnavailableError struct {
	Op  string
	Err error
}

func (e *UnavailableError) Error() string {
	return "store unavailable: " + e.Op + ": " + e.Err.Error()
}

func (e *UnavailableError) Unwrap() error {
	return e.Err
}

// Is makes errors.Is(err, model.ErrStoreUnavailable) hold.
func (e *UnavailableError) Is(target error) bool {
	return target == model.ErrStoreUnavailable
}

// Unavailable wraps err as an UnavailableError for op. Nil errors, domain
// sentinels and caller cancellation pass through untouched.
func Unavailable(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, model.ErrNotFound) ||
		errors.Is(err, model.ErrPermissionDenied) ||
		errors.Is(err, context.Canceled) {
		return err
	}
	var ue *UnavailableError
	if errors.As(err, &ue) {
		return err
	}
	return &UnavailableError{Op: op, Err: err}
}

// pgTransientClasses are SQLSTATE classes that indicate the server, not the
// query, is at fault.
var pgTransientClasses = []string{
	"08", // connection exception
	"53", // insufficient resources
	"57", // operator intervention (admin shutdown, crash shutdown)
	"58", // system error
}

// IsTransient reports whether err indicates an unhealthy store rather than
// a bad request: connection failures, timeouts, resource exhaustion and
// busy SQLite databases.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		for _, class := range pgTransientClasses {
			if strings.HasPrefix(pgErr.Code, class) {
				return true
			}
		}
		return false
	}

	if pgconn.Timeout(err) {
		return true
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}

	if errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.ECONNABORTED) {
		return true
	}

	msg := strings.ToLower(err.Error())
	for _, p := range []string{
		"connection reset by peer",
		"broken pipe",
		"connection refused",
		"closed pool",
		"database is locked",
		"sql: database is closed",
		"i/o timeout",
	} {
		if strings.Contains(msg, p) {
			return true
		}
	}
	return false
}
