package sqlstore

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"

	"queuesmart/backend/internal/domain"
	"queuesmart/backend/internal/store"
	"queuesmart/backend/internal/testutil"
)

func TestAvailability_CreateToggleDelete(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	slot, err := s.CreateSlot(ctx, domain.AvailabilitySlot{
		StaffID: testutil.StaffA, Date: "2024-06-01", StartTime: "10:00", EndTime: "10:30", IsAvailable: true,
	})
	if err != nil {
		t.Fatalf("CreateSlot error: %v", err)
	}
	if slot.ID == uuid.Nil {
		t.Fatalf("expected generated id")
	}

	toggled, err := s.ToggleSlot(ctx, testutil.StaffA, slot.ID)
	if err != nil {
		t.Fatalf("ToggleSlot error: %v", err)
	}
	if toggled.IsAvailable {
		t.Fatalf("IsAvailable = true after toggle, want false")
	}
	toggled, err = s.ToggleSlot(ctx, testutil.StaffA, slot.ID)
	if err != nil {
		t.Fatalf("ToggleSlot error: %v", err)
	}
	if !toggled.IsAvailable {
		t.Fatalf("IsAvailable = false after second toggle, want true")
	}

	if _, err := s.ToggleSlot(ctx, testutil.StaffB, slot.ID); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("ToggleSlot by other staff error = %v, want ErrNotFound", err)
	}
	if err := s.DeleteSlot(ctx, testutil.StaffB, slot.ID); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("DeleteSlot by other staff error = %v, want ErrNotFound", err)
	}
	if err := s.DeleteSlot(ctx, testutil.StaffA, slot.ID); err != nil {
		t.Fatalf("DeleteSlot error: %v", err)
	}
	if err := s.DeleteSlot(ctx, testutil.StaffA, slot.ID); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("second DeleteSlot error = %v, want ErrNotFound", err)
	}
}

func TestAvailability_ListSlotsFiltersAndOrders(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	testutil.AddSlot(t, s.db, testutil.StaffA, "2024-06-02", "09:00", "09:30")
	testutil.AddSlot(t, s.db, testutil.StaffA, "2024-06-01", "11:00", "11:30")
	testutil.AddSlot(t, s.db, testutil.StaffA, "2024-06-01", "10:00", "10:30")
	testutil.AddSlot(t, s.db, testutil.StaffA, "2024-05-31", "10:00", "10:30")
	testutil.AddSlot(t, s.db, testutil.StaffB, "2024-06-01", "10:00", "10:30")
	closed := testutil.AddSlot(t, s.db, testutil.StaffA, "2024-06-03", "10:00", "10:30")
	if _, err := s.ToggleSlot(ctx, testutil.StaffA, closed.ID); err != nil {
		t.Fatalf("ToggleSlot error: %v", err)
	}

	rows, err := s.ListSlots(ctx, store.SlotFilter{StaffID: testutil.StaffA, FromDate: "2024-06-01", OnlyAvailable: true})
	if err != nil {
		t.Fatalf("ListSlots error: %v", err)
	}
	want := []domain.SlotKey{
		{Date: "2024-06-01", Time: "10:00"},
		{Date: "2024-06-01", Time: "11:00"},
		{Date: "2024-06-02", Time: "09:00"},
	}
	if len(rows) != len(want) {
		t.Fatalf("len(rows) = %d, want %d", len(rows), len(want))
	}
	for i, r := range rows {
		if (domain.SlotKey{Date: r.Date, Time: r.StartTime}) != want[i] {
			t.Fatalf("rows[%d] = %s %s, want %v", i, r.Date, r.StartTime, want[i])
		}
	}

	all, err := s.ListSlots(ctx, store.SlotFilter{StaffID: testutil.StaffA, FromDate: "2024-06-01", ToDate: "2024-06-30"})
	if err != nil {
		t.Fatalf("ListSlots error: %v", err)
	}
	if len(all) != 4 {
		t.Fatalf("len(all) = %d, want 4", len(all))
	}
}

func TestAvailability_CreateSlotsSkipsExisting(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	testutil.AddSlot(t, s.db, testutil.StaffA, "2024-06-03", "09:00", "10:00")

	created, err := s.CreateSlots(ctx, []domain.AvailabilitySlot{
		{StaffID: testutil.StaffA, Date: "2024-06-03", StartTime: "09:00", EndTime: "10:00", IsAvailable: true},
		{StaffID: testutil.StaffA, Date: "2024-06-10", StartTime: "09:00", EndTime: "10:00", IsAvailable: true},
	})
	if err != nil {
		t.Fatalf("CreateSlots error: %v", err)
	}
	if len(created) != 1 || created[0].Date != "2024-06-10" {
		t.Fatalf("created = %+v, want only 2024-06-10", created)
	}
}
