package queue

import (
	"context"

	"queuesmart/backend/internal/domain"
)

type Lister interface {
	ListByStaff(ctx context.Context, staffID string, status domain.Status) ([]domain.Appointment, error)
	ListByStaffDate(ctx context.Context, staffID, date string) ([]domain.Appointment, error)
}

// Dashboard is one staff member's live queue.
type Dashboard struct {
	Pending  []domain.Appointment
	Approved []domain.Appointment
	Serving  *domain.Appointment
}

// Schedule groups one day of a staff member's appointments by status,
// each group ordered by time.
type Schedule struct {
	Date      string
	Pending   []domain.Appointment
	Approved  []domain.Appointment
	Serving   []domain.Appointment
	Completed []domain.Appointment
}

type Board struct {
	repo Lister
}

func NewBoard(repo Lister) *Board {
	return &Board{repo: repo}
}

func (b *Board) Dashboard(ctx context.Context, staffID string) (Dashboard, error) {
	pending, err := b.repo.ListByStaff(ctx, staffID, domain.StatusPending)
	if err != nil {
		return Dashboard{}, err
	}
	approved, err := b.repo.ListByStaff(ctx, staffID, domain.StatusApproved)
	if err != nil {
		return Dashboard{}, err
	}
	serving, err := b.repo.ListByStaff(ctx, staffID, domain.StatusServing)
	if err != nil {
		return Dashboard{}, err
	}

	d := Dashboard{
		Pending:  nonNil(pending),
		Approved: nonNil(approved),
	}
	if len(serving) > 0 {
		d.Serving = &serving[0]
	}
	return d, nil
}

func (b *Board) Schedule(ctx context.Context, staffID, date string) (Schedule, error) {
	rows, err := b.repo.ListByStaffDate(ctx, staffID, date)
	if err != nil {
		return Schedule{}, err
	}

	s := Schedule{
		Date:      date,
		Pending:   []domain.Appointment{},
		Approved:  []domain.Appointment{},
		Serving:   []domain.Appointment{},
		Completed: []domain.Appointment{},
	}
	for _, a := range rows {
		switch a.Status {
		case domain.StatusPending:
			s.Pending = append(s.Pending, a)
		case domain.StatusApproved:
			s.Approved = append(s.Approved, a)
		case domain.StatusServing:
			s.Serving = append(s.Serving, a)
		case domain.StatusCompleted:
			s.Completed = append(s.Completed, a)
		}
	}
	return s, nil
}

func nonNil(rows []domain.Appointment) []domain.Appointment {
	if rows == nil {
		return []domain.Appointment{}
	}
	return rows
}
