// Package notifications serves the in-app inbox the store emitter fills.
package notifications

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"queuesmart/backend/internal/domain"
	"queuesmart/backend/internal/store"
)

type Service struct {
	repo store.NotificationRepository
	log  *slog.Logger
}

func NewService(repo store.NotificationRepository, log *slog.Logger) *Service {
	if log == nil {
		log = slog.Default()
	}
	return &Service{
		repo: repo,
		log:  log.With(slog.String("component", "notifications")),
	}
}

type Inbox struct {
	Notifications []domain.Notification
	Unread        int
}

// List returns the caller's notifications newest first with the unread count.
func (s *Service) List(ctx context.Context, actor domain.Actor) (Inbox, error) {
	if actor.UserID == "" {
		return Inbox{}, domain.ErrForbidden
	}
	rows, err := s.repo.ListNotifications(ctx, actor.UserID)
	if err != nil {
		return Inbox{}, err
	}
	if rows == nil {
		rows = []domain.Notification{}
	}
	unread := 0
	for _, n := range rows {
		if !n.IsRead {
			unread++
		}
	}
	return Inbox{Notifications: rows, Unread: unread}, nil
}

func (s *Service) UnreadCount(ctx context.Context, actor domain.Actor) (int, error) {
	if actor.UserID == "" {
		return 0, domain.ErrForbidden
	}
	return s.repo.CountUnread(ctx, actor.UserID)
}

func (s *Service) MarkAllRead(ctx context.Context, actor domain.Actor) (int, error) {
	if actor.UserID == "" {
		return 0, domain.ErrForbidden
	}
	n, err := s.repo.MarkAllRead(ctx, actor.UserID)
	if err != nil {
		return 0, err
	}
	s.log.DebugContext(ctx, "notifications marked read", slog.String("user_id", actor.UserID), slog.Int("count", n))
	return n, nil
}

// Delete removes one of the caller's notifications. Someone else's
// notification reports ErrNotFound.
func (s *Service) Delete(ctx context.Context, actor domain.Actor, id uuid.UUID) error {
	if actor.UserID == "" {
		return domain.ErrForbidden
	}
	return s.repo.DeleteNotification(ctx, actor.UserID, id)
}
