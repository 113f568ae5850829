package store

import (
	"context"

	"github.com/google/uuid"

	"queuesmart/backend/internal/domain"
)

type NotificationRepository interface {
	CreateNotification(ctx context.Context, n domain.Notification) (domain.Notification, error)
	ListNotifications(ctx context.Context, userID string) ([]domain.Notification, error)
	CountUnread(ctx context.Context, userID string) (int, error)
	MarkAllRead(ctx context.Context, userID string) (int, error)
	DeleteNotification(ctx context.Context, userID string, id uuid.UUID) error
}
