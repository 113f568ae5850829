package store

import (
	"context"

	"github.com/google/uuid"

	"queuesmart/backend/internal/domain"
)

type SlotFilter struct {
	StaffID       string
	FromDate      string
	ToDate        string
	OnlyAvailable bool
}

type AvailabilityRepository interface {
	CreateSlot(ctx context.Context, slot domain.AvailabilitySlot) (domain.AvailabilitySlot, error)
	// CreateSlots inserts in one transaction, skipping any slot whose
	// (staff, date, start) already exists. It returns the inserted slots.
	CreateSlots(ctx context.Context, slots []domain.AvailabilitySlot) ([]domain.AvailabilitySlot, error)
	DeleteSlot(ctx context.Context, staffID string, slotID uuid.UUID) error
	ToggleSlot(ctx context.Context, staffID string, slotID uuid.UUID) (domain.AvailabilitySlot, error)
	ListSlots(ctx context.Context, filter SlotFilter) ([]domain.AvailabilitySlot, error)
}
