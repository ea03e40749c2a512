package persistence

import (
	"context"
	"database/sql/driver"
	"errors"
	"fmt"
	"net"

	"github.com/erp/pricesync/internal/domain/shared"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

// PostgreSQL SQLSTATE codes the repositories classify
const (
	sqlStateUniqueViolation      = "23505"
	sqlStateSerializationFailure = "40001"
	sqlStateDeadlockDetected     = "40P01"
	sqlStateLockNotAvailable     = "55P03"
	sqlStateConnectionException  = "08"
)

// translateError maps driver and ORM errors onto the domain error taxonomy.
// Errors it does not recognize are wrapped with op and returned unchanged in kind.
func translateError(op string, err error) error {
	if err == nil {
		return nil
	}

	var domainErr *shared.DomainError
	if errors.As(err, &domainErr) {
		return err
	}

	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return shared.ErrNotFound
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return shared.ErrAlreadyExists
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, driver.ErrBadConn):
		return fmt.Errorf("%s: %w: %w", op, shared.ErrTransientIO, err)
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch {
		case pgErr.Code == sqlStateUniqueViolation:
			return shared.ErrAlreadyExists
		case pgErr.Code == sqlStateSerializationFailure,
			pgErr.Code == sqlStateDeadlockDetected,
			pgErr.Code == sqlStateLockNotAvailable:
			return fmt.Errorf("%s: %w: %s", op, shared.ErrConcurrencyConflict, pgErr.Message)
		case len(pgErr.Code) >= 2 && pgErr.Code[:2] == sqlStateConnectionException:
			return fmt.Errorf("%s: %w: %s", op, shared.ErrTransientIO, pgErr.Message)
		}
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return fmt.Errorf("%s: %w: %w", op, shared.ErrTransientIO, err)
	}

	return fmt.Errorf("%s: %w", op, err)
}
