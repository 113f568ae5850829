package sqlstore

import (
	"context"

	"github.com/uptrace/bun"

	"queuesmart/backend/internal/domain"
)

func (s *Store) GetUser(ctx context.Context, id string) (domain.User, error) {
	return getUser(ctx, s.db, id)
}

func (s *Store) GetService(ctx context.Context, id string) (domain.Service, error) {
	return getService(ctx, s.db, id)
}

func getUser(ctx context.Context, db bun.IDB, id string) (domain.User, error) {
	var u domain.User
	err := db.NewSelect().
		Model(&u).
		Where("id = ?", id).
		Limit(1).
		Scan(ctx)
	if err != nil {
		return domain.User{}, mapReadError(err)
	}
	return u, nil
}

func getService(ctx context.Context, db bun.IDB, id string) (domain.Service, error) {
	var svc domain.Service
	err := db.NewSelect().
		Model(&svc).
		Where("id = ?", id).
		Limit(1).
		Scan(ctx)
	if err != nil {
		return domain.Service{}, mapReadError(err)
	}

	var staffIDs []string
	err = db.NewSelect().
		Model((*domain.ServiceStaff)(nil)).
		Column("staff_id").
		Where("service_id = ?", id).
		OrderExpr("staff_id ASC").
		Scan(ctx, &staffIDs)
	if err != nil {
		return domain.Service{}, err
	}
	svc.StaffIDs = staffIDs
	return svc, nil
}
