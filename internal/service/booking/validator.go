// Package booking decides whether a (service, staff, date, time) request
// may become a reservation.
package booking

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"queuesmart/backend/internal/domain"
	"queuesmart/backend/internal/store"
)

// Reader is the part of a staff-locked transaction the validator needs.
type Reader interface {
	GetUser(ctx context.Context, id string) (domain.User, error)
	GetService(ctx context.Context, id string) (domain.Service, error)
	ActiveAppointmentExists(ctx context.Context, staffID string, slot domain.SlotKey, exclude uuid.UUID) (bool, error)
	AvailableSlotExists(ctx context.Context, staffID string, slot domain.SlotKey) (bool, error)
}

type Request struct {
	ServiceID string
	StaffID   string
	Slot      domain.SlotKey
	// Exclude is skipped by the conflict check so an edit can keep its slot.
	Exclude uuid.UUID
}

// NewRequest normalizes raw input. It never touches the store.
func NewRequest(serviceID, staffID, date, clock string) (Request, error) {
	if serviceID == "" {
		return Request{}, domain.Invalid("service_id is required")
	}
	if staffID == "" {
		return Request{}, domain.Invalid("staff_id is required")
	}
	d, err := domain.ParseDate("date", date)
	if err != nil {
		return Request{}, err
	}
	t, err := domain.ParseClock("time", clock)
	if err != nil {
		return Request{}, err
	}
	return Request{ServiceID: serviceID, StaffID: staffID, Slot: domain.SlotKey{Date: d, Time: t}}, nil
}

// Result carries the directory records the checks resolved, so callers can
// build notification context without a second lookup.
type Result struct {
	Service domain.Service
	Staff   domain.User
}

type Validator struct{}

func NewValidator() *Validator {
	return &Validator{}
}

// Validate runs the checks in order and returns the first failure. It must
// run inside the transaction that creates or moves the appointment.
func (v *Validator) Validate(ctx context.Context, r Reader, req Request) (Result, error) {
	svc, err := r.GetService(ctx, req.ServiceID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return Result{}, domain.ErrServiceNotFound
		}
		return Result{}, err
	}
	if !svc.Bookable() {
		return Result{}, domain.ErrStaffDoesNotProvideService
	}
	staff, err := ResolveStaff(ctx, r, req.StaffID)
	if err != nil {
		return Result{}, err
	}
	if !svc.ProvidedBy(staff.ID) {
		return Result{}, domain.ErrStaffDoesNotProvideService
	}
	if err := v.CheckSlotFree(ctx, r, staff.ID, req.Slot, req.Exclude); err != nil {
		return Result{}, err
	}

	open, err := r.AvailableSlotExists(ctx, staff.ID, req.Slot)
	if err != nil {
		return Result{}, err
	}
	if !open {
		return Result{}, domain.ErrSlotUnavailable
	}
	return Result{Service: svc, Staff: staff}, nil
}

// CheckSlotFree fails with ErrSlotTaken when another active appointment
// holds the staff member's slot.
func (v *Validator) CheckSlotFree(ctx context.Context, r Reader, staffID string, slot domain.SlotKey, exclude uuid.UUID) error {
	taken, err := r.ActiveAppointmentExists(ctx, staffID, slot, exclude)
	if err != nil {
		return err
	}
	if taken {
		return domain.ErrSlotTaken
	}
	return nil
}

// ResolveStaff returns the user only when it is an active staff member.
func ResolveStaff(ctx context.Context, r Reader, staffID string) (domain.User, error) {
	u, err := r.GetUser(ctx, staffID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.User{}, domain.ErrStaffNotFound
		}
		return domain.User{}, err
	}
	if u.Role != domain.RoleStaff || !u.IsActive {
		return domain.User{}, domain.ErrStaffNotFound
	}
	return u, nil
}
