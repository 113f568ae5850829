package sqlstore

import (
	"context"

	"github.com/google/uuid"

	"queuesmart/backend/internal/domain"
)

func (s *Store) CreateNotification(ctx context.Context, n domain.Notification) (domain.Notification, error) {
	m := n
	if _, err := s.db.NewInsert().Model(&m).Exec(ctx); err != nil {
		return domain.Notification{}, mapWriteError(err)
	}
	return m, nil
}

func (s *Store) ListNotifications(ctx context.Context, userID string) ([]domain.Notification, error) {
	var rows []domain.Notification
	err := s.db.NewSelect().
		Model(&rows).
		Where("user_id = ?", userID).
		OrderExpr("sent_at DESC, id DESC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (s *Store) CountUnread(ctx context.Context, userID string) (int, error) {
	return s.db.NewSelect().
		Model((*domain.Notification)(nil)).
		Where("user_id = ?", userID).
		Where("is_read = ?", false).
		Count(ctx)
}

func (s *Store) MarkAllRead(ctx context.Context, userID string) (int, error) {
	res, err := s.db.NewUpdate().
		Model((*domain.Notification)(nil)).
		Set("is_read = ?", true).
		Where("user_id = ?", userID).
		Where("is_read = ?", false).
		Exec(ctx)
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	return int(n), nil
}

func (s *Store) DeleteNotification(ctx context.Context, userID string, id uuid.UUID) error {
	res, err := s.db.NewDelete().
		Model((*domain.Notification)(nil)).
		Where("id = ?", id).
		Where("user_id = ?", userID).
		Exec(ctx)
	if err != nil {
		return err
	}
	return expectAffected(res)
}
