// internal/repository/postgres/errors.go
package postgres

import (
	"errors"

	"github.com/lib/pq"

	"driverpay/internal/util"
)

// uniqueViolation is the PostgreSQL error code for unique-constraint
// violations. Repositories translate it into util.ErrDuplicateEntry so
// services can implement "insert; on duplicate, re-read" without knowing the
// driver.
const uniqueViolation = "23505"

func translateInsertErr(err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && string(pqErr.Code) == uniqueViolation {
		return util.ErrDuplicateEntry
	}
	return err
}
