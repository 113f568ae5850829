package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

const (
	DateLayout  = "2006-01-02"
	ClockLayout = "15:04"
)

// AvailabilitySlot is a staff-declared open window on one date. Booking
// never mutates it; occupancy is derived from active appointments.
type AvailabilitySlot struct {
	bun.BaseModel `bun:"table:availability_slots"`

	ID          uuid.UUID `bun:"id,pk,type:uuid"`
	StaffID     string    `bun:"staff_id,notnull"`
	Date        string    `bun:"date,notnull"`
	StartTime   string    `bun:"start_time,notnull"`
	EndTime     string    `bun:"end_time,notnull"`
	IsAvailable bool      `bun:"is_available,notnull"`
	CreatedAt   time.Time `bun:"created_at,notnull"`
}

func (s *AvailabilitySlot) BeforeAppendModel(ctx context.Context, query bun.Query) error {
	if _, ok := query.(*bun.InsertQuery); !ok {
		return nil
	}
	if s.ID == uuid.Nil {
		id, err := uuid.NewV7()
		if err != nil {
			return err
		}
		s.ID = id
	}
	if s.CreatedAt.IsZero() {
		s.CreatedAt = time.Now().UTC()
	}
	return nil
}

// SlotKey identifies a bookable (date, start) pair of one staff member.
type SlotKey struct {
	Date string
	Time string
}

// ParseDate normalizes a YYYY-MM-DD string.
func ParseDate(field, value string) (string, error) {
	if value == "" {
		return "", Invalid(field + " is required")
	}
	d, err := time.Parse(DateLayout, value)
	if err != nil {
		return "", Invalid(field + " must be YYYY-MM-DD")
	}
	return d.Format(DateLayout), nil
}

// ParseClock normalizes an HH:MM string. Seconds are accepted and dropped.
func ParseClock(field, value string) (string, error) {
	if value == "" {
		return "", Invalid(field + " is required")
	}
	t, err := time.Parse(ClockLayout, value)
	if err != nil {
		t, err = time.Parse("15:04:05", value)
		if err != nil {
			return "", Invalid(field + " must be HH:MM")
		}
	}
	return t.Format(ClockLayout), nil
}

// ParseRange validates a start/end pair and requires start < end.
func ParseRange(start, end string) (string, string, error) {
	s, err := ParseClock("start_time", start)
	if err != nil {
		return "", "", err
	}
	e, err := ParseClock("end_time", end)
	if err != nil {
		return "", "", err
	}
	if s >= e {
		return "", "", ErrInvalidRange
	}
	return s, e, nil
}
