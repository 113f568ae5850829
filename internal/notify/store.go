package notify

import (
	"context"

	"queuesmart/backend/internal/domain"
)

type NotificationCreator interface {
	CreateNotification(ctx context.Context, n domain.Notification) (domain.Notification, error)
}

// StoreEmitter persists events into the recipient's in-app inbox.
type StoreEmitter struct {
	repo NotificationCreator
}

func NewStoreEmitter(repo NotificationCreator) *StoreEmitter {
	return &StoreEmitter{repo: repo}
}

func (e *StoreEmitter) Emit(ctx context.Context, ev domain.NotificationEvent) error {
	apptID := ev.AppointmentID
	_, err := e.repo.CreateNotification(ctx, domain.Notification{
		UserID:        ev.RecipientID,
		AppointmentID: &apptID,
		Kind:          ev.Kind,
		Message:       Render(ev),
		SentAt:        ev.OccurredAt,
	})
	return err
}
