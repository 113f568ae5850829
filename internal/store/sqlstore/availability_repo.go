package sqlstore

import (
	"context"

	"github.com/google/uuid"
	"github.com/uptrace/bun"

	"queuesmart/backend/internal/domain"
	"queuesmart/backend/internal/store"
)

func (s *Store) CreateSlot(ctx context.Context, slot domain.AvailabilitySlot) (domain.AvailabilitySlot, error) {
	m := slot
	if _, err := s.db.NewInsert().Model(&m).Exec(ctx); err != nil {
		return domain.AvailabilitySlot{}, mapWriteError(err)
	}
	return m, nil
}

func (s *Store) CreateSlots(ctx context.Context, slots []domain.AvailabilitySlot) ([]domain.AvailabilitySlot, error) {
	out := make([]domain.AvailabilitySlot, 0, len(slots))
	err := s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		for _, slot := range slots {
			exists, err := tx.NewSelect().
				Model((*domain.AvailabilitySlot)(nil)).
				Where("staff_id = ?", slot.StaffID).
				Where("date = ?", slot.Date).
				Where("start_time = ?", slot.StartTime).
				Exists(ctx)
			if err != nil {
				return err
			}
			if exists {
				continue
			}
			m := slot
			if _, err := tx.NewInsert().Model(&m).Exec(ctx); err != nil {
				return mapWriteError(err)
			}
			out = append(out, m)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Store) DeleteSlot(ctx context.Context, staffID string, slotID uuid.UUID) error {
	res, err := s.db.NewDelete().
		Model((*domain.AvailabilitySlot)(nil)).
		Where("id = ?", slotID).
		Where("staff_id = ?", staffID).
		Exec(ctx)
	if err != nil {
		return err
	}
	return expectAffected(res)
}

func (s *Store) ToggleSlot(ctx context.Context, staffID string, slotID uuid.UUID) (domain.AvailabilitySlot, error) {
	var out domain.AvailabilitySlot
	err := s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		res, err := tx.NewUpdate().
			Model((*domain.AvailabilitySlot)(nil)).
			Set("is_available = NOT is_available").
			Where("id = ?", slotID).
			Where("staff_id = ?", staffID).
			Exec(ctx)
		if err != nil {
			return err
		}
		if err := expectAffected(res); err != nil {
			return err
		}
		return tx.NewSelect().
			Model(&out).
			Where("id = ?", slotID).
			Limit(1).
			Scan(ctx)
	})
	if err != nil {
		return domain.AvailabilitySlot{}, mapReadError(err)
	}
	return out, nil
}

func (s *Store) ListSlots(ctx context.Context, filter store.SlotFilter) ([]domain.AvailabilitySlot, error) {
	var rows []domain.AvailabilitySlot
	q := s.db.NewSelect().
		Model(&rows).
		Where("staff_id = ?", filter.StaffID)
	if filter.FromDate != "" {
		q = q.Where("date >= ?", filter.FromDate)
	}
	if filter.ToDate != "" {
		q = q.Where("date <= ?", filter.ToDate)
	}
	if filter.OnlyAvailable {
		q = q.Where("is_available = ?", true)
	}
	if err := q.OrderExpr("date ASC, start_time ASC").Scan(ctx); err != nil {
		return nil, err
	}
	return rows, nil
}
