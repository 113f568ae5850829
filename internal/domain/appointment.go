package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

type Status string

const (
	StatusPending   Status = "pending"
	StatusApproved  Status = "approved"
	StatusRejected  Status = "rejected"
	StatusServing   Status = "serving"
	StatusCompleted Status = "completed"
)

// ActiveStatuses hold a staff member's (date, time) slot.
var ActiveStatuses = []Status{StatusPending, StatusApproved, StatusServing}

var transitions = map[Status][]Status{
	StatusPending:  {StatusApproved, StatusRejected, StatusPending},
	StatusRejected: {StatusPending},
	StatusApproved: {StatusServing},
	StatusServing:  {StatusCompleted},
}

func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusApproved, StatusRejected, StatusServing, StatusCompleted:
		return true
	}
	return false
}

func (s Status) CanTransitionTo(next Status) bool {
	for _, allowed := range transitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

func (s Status) Active() bool {
	return s == StatusPending || s == StatusApproved || s == StatusServing
}

func (s Status) Terminal() bool {
	return s == StatusCompleted
}

// Editable statuses may be moved to a new slot; the edit lands in pending.
func (s Status) Editable() bool {
	return s == StatusPending || s == StatusRejected
}

type Appointment struct {
	bun.BaseModel `bun:"table:appointments"`

	ID            uuid.UUID `bun:"id,pk,type:uuid"`
	ClientID      string    `bun:"client_id,notnull"`
	ServiceID     string    `bun:"service_id,notnull"`
	StaffID       string    `bun:"staff_id,notnull"`
	// BookedStaffID is the staff member the client asked for. Approval by
	// another provider moves StaffID but leaves this alone.
	BookedStaffID string    `bun:"booked_staff_id,notnull"`
	Date          string    `bun:"date,notnull"`
	Time          string    `bun:"time,notnull"`
	Status        Status    `bun:"status,notnull"`
	QueueNumber   *int      `bun:"queue_number"`
	CreatedAt     time.Time `bun:"created_at,notnull"`
	UpdatedAt     time.Time `bun:"updated_at,notnull"`
}

func (a *Appointment) BeforeAppendModel(ctx context.Context, query bun.Query) error {
	now := time.Now().UTC()
	switch query.(type) {
	case *bun.InsertQuery:
		if a.ID == uuid.Nil {
			id, err := uuid.NewV7()
			if err != nil {
				return err
			}
			a.ID = id
		}
		if a.BookedStaffID == "" {
			a.BookedStaffID = a.StaffID
		}
		if a.CreatedAt.IsZero() {
			a.CreatedAt = now
		}
		if a.UpdatedAt.IsZero() {
			a.UpdatedAt = now
		}
	case *bun.UpdateQuery:
		a.UpdatedAt = now
	}
	return nil
}

func (a Appointment) Slot() SlotKey {
	return SlotKey{Date: a.Date, Time: a.Time}
}

// Transition moves the appointment to next, refusing edges outside the
// lifecycle graph. The queue number is cleared whenever the appointment
// leaves the approved queue for pending.
func (a *Appointment) Transition(op string, next Status) error {
	if !a.Status.CanTransitionTo(next) {
		return &InvalidStateError{Op: op, From: a.Status}
	}
	a.Status = next
	if next == StatusPending {
		a.QueueNumber = nil
	}
	return nil
}
