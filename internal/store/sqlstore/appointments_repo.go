package sqlstore

import (
	"context"

	"github.com/google/uuid"
	"github.com/uptrace/bun"

	"queuesmart/backend/internal/domain"
	"queuesmart/backend/internal/store"
)

type appointmentTx struct {
	tx bun.Tx
}

var _ store.AppointmentTx = appointmentTx{}

func (s *Store) Get(ctx context.Context, id uuid.UUID) (domain.Appointment, error) {
	return getAppointment(ctx, s.db, id)
}

func (s *Store) ListByClient(ctx context.Context, clientID string) ([]domain.Appointment, error) {
	var rows []domain.Appointment
	err := s.db.NewSelect().
		Model(&rows).
		Where("client_id = ?", clientID).
		OrderExpr("created_at DESC, id DESC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (s *Store) ListByStaff(ctx context.Context, staffID string, status domain.Status) ([]domain.Appointment, error) {
	var rows []domain.Appointment
	q := s.db.NewSelect().
		Model(&rows).
		Where("staff_id = ?", staffID).
		Where("status = ?", status)
	switch status {
	case domain.StatusApproved:
		q = q.OrderExpr("queue_number ASC")
	case domain.StatusPending:
		q = q.OrderExpr("created_at DESC, id DESC")
	default:
		q = q.OrderExpr("date ASC, time ASC")
	}
	if err := q.Scan(ctx); err != nil {
		return nil, err
	}
	return rows, nil
}

func (s *Store) ListByStaffDate(ctx context.Context, staffID, date string) ([]domain.Appointment, error) {
	var rows []domain.Appointment
	err := s.db.NewSelect().
		Model(&rows).
		Where("staff_id = ?", staffID).
		Where("date = ?", date).
		OrderExpr("time ASC, created_at ASC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (s *Store) BookedSlots(ctx context.Context, staffID, fromDate string, exclude uuid.UUID) ([]domain.SlotKey, error) {
	var rows []domain.Appointment
	q := s.db.NewSelect().
		Model(&rows).
		Column("date", "time").
		Where("staff_id = ?", staffID).
		Where("status IN (?)", bun.In(domain.ActiveStatuses)).
		Where("date >= ?", fromDate)
	if exclude != uuid.Nil {
		q = q.Where("id <> ?", exclude)
	}
	if err := q.OrderExpr("date ASC, time ASC").Scan(ctx); err != nil {
		return nil, err
	}

	out := make([]domain.SlotKey, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.Slot())
	}
	return out, nil
}

func (r appointmentTx) GetUser(ctx context.Context, id string) (domain.User, error) {
	return getUser(ctx, r.tx, id)
}

func (r appointmentTx) GetService(ctx context.Context, id string) (domain.Service, error) {
	return getService(ctx, r.tx, id)
}

func (r appointmentTx) GetAppointment(ctx context.Context, id uuid.UUID) (domain.Appointment, error) {
	return getAppointment(ctx, r.tx, id)
}

func (r appointmentTx) InsertAppointment(ctx context.Context, appt domain.Appointment) (domain.Appointment, error) {
	m := appt
	if _, err := r.tx.NewInsert().Model(&m).Exec(ctx); err != nil {
		return domain.Appointment{}, mapWriteError(err)
	}
	return m, nil
}

func (r appointmentTx) UpdateAppointment(ctx context.Context, appt domain.Appointment) (domain.Appointment, error) {
	m := appt
	res, err := r.tx.NewUpdate().
		Model(&m).
		Column("service_id", "staff_id", "booked_staff_id", "date", "time", "status", "queue_number", "updated_at").
		WherePK().
		Exec(ctx)
	if err != nil {
		return domain.Appointment{}, mapWriteError(err)
	}
	if err := expectAffected(res); err != nil {
		return domain.Appointment{}, err
	}
	return m, nil
}

func (r appointmentTx) DeleteAppointment(ctx context.Context, id uuid.UUID) error {
	res, err := r.tx.NewDelete().
		Model((*domain.Appointment)(nil)).
		Where("id = ?", id).
		Exec(ctx)
	if err != nil {
		return err
	}
	return expectAffected(res)
}

func (r appointmentTx) ActiveAppointmentExists(ctx context.Context, staffID string, slot domain.SlotKey, exclude uuid.UUID) (bool, error) {
	q := r.tx.NewSelect().
		Model((*domain.Appointment)(nil)).
		Where("staff_id = ?", staffID).
		Where("date = ?", slot.Date).
		Where("time = ?", slot.Time).
		Where("status IN (?)", bun.In(domain.ActiveStatuses))
	if exclude != uuid.Nil {
		q = q.Where("id <> ?", exclude)
	}
	return q.Exists(ctx)
}

func (r appointmentTx) AvailableSlotExists(ctx context.Context, staffID string, slot domain.SlotKey) (bool, error) {
	return r.tx.NewSelect().
		Model((*domain.AvailabilitySlot)(nil)).
		Where("staff_id = ?", staffID).
		Where("date = ?", slot.Date).
		Where("start_time = ?", slot.Time).
		Where("is_available = ?", true).
		Exists(ctx)
}

func (r appointmentTx) MaxApprovedQueueNumber(ctx context.Context, staffID string) (int, error) {
	var max int
	err := r.tx.NewSelect().
		Model((*domain.Appointment)(nil)).
		ColumnExpr("COALESCE(MAX(queue_number), 0)").
		Where("staff_id = ?", staffID).
		Where("status = ?", domain.StatusApproved).
		Scan(ctx, &max)
	if err != nil {
		return 0, err
	}
	return max, nil
}

func (r appointmentTx) ListServing(ctx context.Context, staffID string) ([]domain.Appointment, error) {
	var rows []domain.Appointment
	err := r.tx.NewSelect().
		Model(&rows).
		Where("staff_id = ?", staffID).
		Where("status = ?", domain.StatusServing).
		OrderExpr("updated_at ASC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func getAppointment(ctx context.Context, db bun.IDB, id uuid.UUID) (domain.Appointment, error) {
	var m domain.Appointment
	err := db.NewSelect().
		Model(&m).
		Where("id = ?", id).
		Limit(1).
		Scan(ctx)
	if err != nil {
		return domain.Appointment{}, mapReadError(err)
	}
	return m, nil
}
