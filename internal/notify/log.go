package notify

import (
	"context"
	"log/slog"

	"queuesmart/backend/internal/domain"
)

// LogEmitter writes each event as a structured log line. It is the default
// sink when nothing else is configured.
type LogEmitter struct {
	log *slog.Logger
}

func NewLogEmitter(log *slog.Logger) *LogEmitter {
	return &LogEmitter{log: log.With(slog.String("component", "notify.log"))}
}

func (e *LogEmitter) Emit(ctx context.Context, ev domain.NotificationEvent) error {
	e.log.InfoContext(ctx, "notification",
		slog.String("event_id", ev.ID.String()),
		slog.String("kind", string(ev.Kind)),
		slog.String("recipient_id", ev.RecipientID),
		slog.String("appointment_id", ev.AppointmentID.String()),
		slog.String("message", Render(ev)),
	)
	return nil
}
