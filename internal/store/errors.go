package store

import (
	"fmt"

	"queuesmart/backend/internal/domain"
)

// Storage sentinels share identity with the domain taxonomy so callers can
// match on either.
var (
	ErrConflict = domain.ErrConflict
	ErrNotFound = domain.ErrNotFound
)

// ErrDuplicateID is a primary-key collision, as opposed to a unique index
// on the row's contents.
var ErrDuplicateID = fmt.Errorf("%w: duplicate id", ErrConflict)
