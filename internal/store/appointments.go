package store

import (
	"context"

	"github.com/google/uuid"

	"queuesmart/backend/internal/domain"
)

// AppointmentTx is the view of the store inside one staff-locked
// transaction. Everything a transition reads or writes goes through it so
// the check and the write commit together.
type AppointmentTx interface {
	GetUser(ctx context.Context, id string) (domain.User, error)
	GetService(ctx context.Context, id string) (domain.Service, error)

	GetAppointment(ctx context.Context, id uuid.UUID) (domain.Appointment, error)
	InsertAppointment(ctx context.Context, appt domain.Appointment) (domain.Appointment, error)
	UpdateAppointment(ctx context.Context, appt domain.Appointment) (domain.Appointment, error)
	DeleteAppointment(ctx context.Context, id uuid.UUID) error

	ActiveAppointmentExists(ctx context.Context, staffID string, slot domain.SlotKey, exclude uuid.UUID) (bool, error)
	AvailableSlotExists(ctx context.Context, staffID string, slot domain.SlotKey) (bool, error)
	MaxApprovedQueueNumber(ctx context.Context, staffID string) (int, error)
	ListServing(ctx context.Context, staffID string) ([]domain.Appointment, error)
}

type AppointmentRepository interface {
	// InStaffTransaction runs fn in one transaction holding the locks of
	// every listed staff member.
	InStaffTransaction(ctx context.Context, staffIDs []string, fn func(ctx context.Context, tx AppointmentTx) error) error

	Get(ctx context.Context, id uuid.UUID) (domain.Appointment, error)
	ListByClient(ctx context.Context, clientID string) ([]domain.Appointment, error)
	ListByStaff(ctx context.Context, staffID string, status domain.Status) ([]domain.Appointment, error)
	ListByStaffDate(ctx context.Context, staffID, date string) ([]domain.Appointment, error)
	BookedSlots(ctx context.Context, staffID, fromDate string, exclude uuid.UUID) ([]domain.SlotKey, error)
}
