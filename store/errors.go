package store

import (
	"context"
	"database/sql/driver"
	"errors"
	"fmt"
	"net"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"

	"watch-rewards-system/models"
)

// SQLSTATE invalid_text_representation.
const invalidTextRepresentation = "22P02"

// translate maps driver and gorm errors onto the ledger's error kinds. The
// original error stays in the chain for logging.
func translate(err error) error {
	if err == nil {
		return nil
	}
	switch {
	case errors.Is(err, models.ErrRecordNotFound),
		errors.Is(err, models.ErrDuplicateKey),
		errors.Is(err, models.ErrStoreUnavailable):
		return err
	case errors.Is(err, gorm.ErrRecordNotFound):
		return fmt.Errorf("%w: %w", models.ErrRecordNotFound, err)
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return fmt.Errorf("%w: %w", models.ErrDuplicateKey, err)
	case malformedKey(err):
		return fmt.Errorf("%w: %w", models.ErrRecordNotFound, err)
	case unavailable(err):
		return fmt.Errorf("%w: %w", models.ErrStoreUnavailable, err)
	}
	return err
}

// malformedKey reports a lookup value the column type cannot hold, such as a
// non-uuid string against a uuid column. No row can match it.
func malformedKey(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == invalidTextRepresentation
}

func unavailable(err error) bool {
	if errors.Is(err, context.Canceled) ||
		errors.Is(err, context.DeadlineExceeded) ||
		errors.Is(err, driver.ErrBadConn) ||
		errors.Is(err, gorm.ErrInvalidDB) {
		return true
	}
	var connectErr *pgconn.ConnectError
	if errors.As(err, &connectErr) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}
