// Package testutil opens throwaway SQLite stores seeded with a small
// directory of users and services.
package testutil

import (
	"context"
	"testing"

	"github.com/uptrace/bun"

	"queuesmart/backend/internal/domain"
	"queuesmart/backend/internal/store/sqlite"
)

const (
	AdminID   = "admin-1"
	StaffA    = "staff-a"
	StaffB    = "staff-b"
	StaffIdle = "staff-idle"
	ClientA   = "client-a"
	ClientB   = "client-b"

	ServiceCut   = "svc-cut"
	ServiceColor = "svc-color"
	ServiceEmpty = "svc-empty"
)

func OpenSQLite(t *testing.T) *bun.DB {
	t.Helper()
	db, err := sqlite.Open(context.Background(), ":memory:")
	if err != nil {
		t.Fatalf("sqlite.Open error: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

// SeedDirectory inserts users and services:
//   - ServiceCut is provided by StaffA and StaffB
//   - ServiceColor is provided by StaffA only
//   - ServiceEmpty has no staff
//   - StaffIdle provides nothing
func SeedDirectory(t *testing.T, db bun.IDB) {
	t.Helper()
	ctx := context.Background()

	users := []domain.User{
		{ID: AdminID, Email: "admin@example.com", FirstName: "Ada", LastName: "Admin", Role: domain.RoleAdmin, IsActive: true},
		{ID: StaffA, Email: "sam@example.com", FirstName: "Sam", LastName: "Stylist", Role: domain.RoleStaff, IsActive: true},
		{ID: StaffB, Email: "bo@example.com", FirstName: "Bo", LastName: "Barber", Role: domain.RoleStaff, IsActive: true},
		{ID: StaffIdle, Email: "ida@example.com", FirstName: "Ida", LastName: "Idle", Role: domain.RoleStaff, IsActive: true},
		{ID: ClientA, Email: "cara@example.com", FirstName: "Cara", LastName: "Client", Role: domain.RoleClient, IsActive: true},
		{ID: ClientB, Email: "ben@example.com", FirstName: "Ben", LastName: "Booker", Role: domain.RoleClient, IsActive: true},
	}
	if _, err := db.NewInsert().Model(&users).Exec(ctx); err != nil {
		t.Fatalf("seed users: %v", err)
	}

	services := []domain.Service{
		{ID: ServiceCut, Name: "Haircut", DurationMinutes: 30},
		{ID: ServiceColor, Name: "Coloring", DurationMinutes: 90},
		{ID: ServiceEmpty, Name: "Massage", DurationMinutes: 60},
	}
	if _, err := db.NewInsert().Model(&services).Exec(ctx); err != nil {
		t.Fatalf("seed services: %v", err)
	}

	links := []domain.ServiceStaff{
		{ServiceID: ServiceCut, StaffID: StaffA},
		{ServiceID: ServiceCut, StaffID: StaffB},
		{ServiceID: ServiceColor, StaffID: StaffA},
	}
	if _, err := db.NewInsert().Model(&links).Exec(ctx); err != nil {
		t.Fatalf("seed service_staff: %v", err)
	}
}

// AddSlot inserts an available slot for staffID.
func AddSlot(t *testing.T, db bun.IDB, staffID, date, start, end string) domain.AvailabilitySlot {
	t.Helper()
	slot := domain.AvailabilitySlot{
		StaffID:     staffID,
		Date:        date,
		StartTime:   start,
		EndTime:     end,
		IsAvailable: true,
	}
	if _, err := db.NewInsert().Model(&slot).Exec(context.Background()); err != nil {
		t.Fatalf("seed slot: %v", err)
	}
	return slot
}
