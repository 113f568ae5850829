package store

import (
	"context"

	"queuesmart/backend/internal/domain"
)

// Directory is the read-only user and service catalogue owned outside the
// core.
type Directory interface {
	GetUser(ctx context.Context, id string) (domain.User, error)
	GetService(ctx context.Context, id string) (domain.Service, error)
}
