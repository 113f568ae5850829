// Package queue hands out per-staff queue numbers and reads the staff
// member's live queue.
package queue

import (
	"context"
)

// Reader is the transactional view the sequencer reads from.
type Reader interface {
	MaxApprovedQueueNumber(ctx context.Context, staffID string) (int, error)
}

// Sequencer computes the next number in a staff member's approved queue.
// Next must be called inside the same staff-locked transaction that writes
// the approval, otherwise two approvals can observe the same maximum.
type Sequencer struct{}

func NewSequencer() *Sequencer {
	return &Sequencer{}
}

func (s *Sequencer) Next(ctx context.Context, r Reader, staffID string) (int, error) {
	max, err := r.MaxApprovedQueueNumber(ctx, staffID)
	if err != nil {
		return 0, err
	}
	return max + 1, nil
}
