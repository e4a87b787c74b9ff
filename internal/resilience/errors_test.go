package resilience

import (
	"context"
	"errors"
	"fmt"
	"syscall"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"

	"github.com/sells-group/provenance-cli/internal/model"
)

func TestIsTransient(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"deadline", context.DeadlineExceeded, true},
		{"wrapped deadline", eris.Wrap(context.DeadlineExceeded, "store: get vehicle"), true},
		{"conn reset errno", fmt.Errorf("read: %w", syscall.ECONNRESET), true},
		{"conn refused message", errors.New("dial tcp 127.0.0.1:5432: connection refused"), true},
		{"sqlite busy", errors.New("database is locked (5) (SQLITE_BUSY)"), true},
		{"pg admin shutdown", &pgconn.PgError{Code: "57P01"}, true},
		{"pg too many connections", &pgconn.PgError{Code: "53300"}, true},
		{"pg connection failure", &pgconn.PgError{Code: "08006"}, true},
		{"pg unique violation", &pgconn.PgError{Code: "23505"}, false},
		{"pg syntax error", &pgconn.PgError{Code: "42601"}, false},
		{"plain", errors.New("no rows in result set"), false},
		{"not found", model.ErrNotFound, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsTransient(tt.err))
		})
	}
}

func TestUnavailable(t *testing.T) {
	cause := errors.New("connection refused")
	err := Unavailable("list evidence", cause)

	assert.ErrorIs(t, err, model.ErrStoreUnavailable)
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "list evidence")

	var ue *UnavailableError
	assert.True(t, errors.As(err, &ue))
	assert.Equal(t, "list evidence", ue.Op)

	// Already marked errors are not double wrapped.
	assert.Same(t, err, Unavailable("other", err))
}

func TestUnavailable_PassThrough(t *testing.T) {
	assert.NoError(t, Unavailable("op", nil))
	assert.ErrorIs(t, Unavailable("op", model.ErrNotFound), model.ErrNotFound)
	assert.NotErrorIs(t, Unavailable("op", model.ErrNotFound), model.ErrStoreUnavailable)
	assert.NotErrorIs(t, Unavailable("op", context.Canceled), model.ErrStoreUnavailable)
	assert.NotErrorIs(t, Unavailable("op", eris.Wrap(model.ErrPermissionDenied, "x")), model.ErrStoreUnavailable)
}
