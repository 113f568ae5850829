package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

type NotificationKind string

const (
	KindConfirmation NotificationKind = "confirmation"
	KindApproval     NotificationKind = "approval"
	KindRejection    NotificationKind = "rejection"
	KindReminder     NotificationKind = "reminder"
	KindCancellation NotificationKind = "cancellation"
	KindEdited       NotificationKind = "edited"
	KindBooking      NotificationKind = "booking"
	KindCompleted    NotificationKind = "completed"
)

// NotificationContext carries what a notifier needs to render a message.
// It is captured inside the transition so it survives row deletion.
type NotificationContext struct {
	ServiceName  string `json:"service_name"`
	ClientName   string `json:"client_name,omitempty"`
	StaffID      string `json:"staff_id,omitempty"`
	Date         string `json:"date"`
	Time         string `json:"time"`
	Status       Status `json:"status"`
	QueueNumber  *int   `json:"queue_number,omitempty"`
	PreviousDate string `json:"previous_date,omitempty"`
	PreviousTime string `json:"previous_time,omitempty"`
}

// NotificationEvent is produced by a committed transition. The core never
// persists it; delivery belongs to the configured emitters.
type NotificationEvent struct {
	ID            uuid.UUID           `json:"id"`
	RecipientID   string              `json:"recipient_id"`
	AppointmentID uuid.UUID           `json:"appointment_id"`
	Kind          NotificationKind    `json:"kind"`
	Context       NotificationContext `json:"context"`
	OccurredAt    time.Time           `json:"occurred_at"`
}

// Notification is the in-app inbox record written by the store emitter.
type Notification struct {
	bun.BaseModel `bun:"table:notifications"`

	ID            uuid.UUID        `bun:"id,pk,type:uuid"`
	UserID        string           `bun:"user_id,notnull"`
	AppointmentID *uuid.UUID       `bun:"appointment_id,type:uuid"`
	Kind          NotificationKind `bun:"kind,notnull"`
	Message       string           `bun:"message,notnull"`
	IsRead        bool             `bun:"is_read,notnull"`
	SentAt        time.Time        `bun:"sent_at,notnull"`
}

func (n *Notification) BeforeAppendModel(ctx context.Context, query bun.Query) error {
	if _, ok := query.(*bun.InsertQuery); !ok {
		return nil
	}
	if n.ID == uuid.Nil {
		id, err := uuid.NewV7()
		if err != nil {
			return err
		}
		n.ID = id
	}
	if n.SentAt.IsZero() {
		n.SentAt = time.Now().UTC()
	}
	return nil
}
