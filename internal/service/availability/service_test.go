package availability

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"queuesmart/backend/internal/domain"
	"queuesmart/backend/internal/store"
	"queuesmart/backend/internal/store/sqlstore"
	"queuesmart/backend/internal/testutil"
)

var (
	staffA  = domain.Actor{UserID: testutil.StaffA, Role: domain.RoleStaff}
	staffB  = domain.Actor{UserID: testutil.StaffB, Role: domain.RoleStaff}
	clientA = domain.Actor{UserID: testutil.ClientA, Role: domain.RoleClient}
	admin   = domain.Actor{UserID: testutil.AdminID, Role: domain.RoleAdmin}
)

func newTestService(t *testing.T) (*Service, *sqlstore.Store) {
	t.Helper()
	db := testutil.OpenSQLite(t)
	testutil.SeedDirectory(t, db)
	repo := sqlstore.New(db)
	svc := NewService(repo, nil)
	svc.now = func() time.Time { return time.Date(2024, 6, 1, 8, 0, 0, 0, time.UTC) }
	return svc, repo
}

func bookAt(t *testing.T, repo *sqlstore.Store, staffID, date, clock string, status domain.Status) domain.Appointment {
	t.Helper()
	var out domain.Appointment
	err := repo.InStaffTransaction(context.Background(), []string{staffID}, func(ctx context.Context, tx store.AppointmentTx) error {
		var err error
		out, err = tx.InsertAppointment(ctx, domain.Appointment{
			ClientID: testutil.ClientA, ServiceID: testutil.ServiceCut, StaffID: staffID,
			Date: date, Time: clock, Status: status,
		})
		return err
	})
	if err != nil {
		t.Fatalf("insert appointment: %v", err)
	}
	return out
}

func TestAddSlot(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	slot, err := svc.AddSlot(ctx, staffA, SlotInput{Date: "2024-06-03", StartTime: "9:00", EndTime: "09:30:00"})
	if err != nil {
		t.Fatalf("AddSlot error: %v", err)
	}
	if slot.StaffID != testutil.StaffA || slot.StartTime != "09:00" || slot.EndTime != "09:30" || !slot.IsAvailable {
		t.Fatalf("slot = %+v, want normalized available slot of staff-a", slot)
	}

	closed := false
	slot, err = svc.AddSlot(ctx, staffA, SlotInput{Date: "2024-06-03", StartTime: "10:00", EndTime: "10:30", IsAvailable: &closed})
	if err != nil {
		t.Fatalf("AddSlot error: %v", err)
	}
	if slot.IsAvailable {
		t.Fatalf("IsAvailable = true, want false")
	}
}

func TestAddSlot_Rejects(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	cases := []struct {
		name  string
		actor domain.Actor
		in    SlotInput
		check func(error) bool
	}{
		{
			name:  "client",
			actor: clientA,
			in:    SlotInput{Date: "2024-06-03", StartTime: "09:00", EndTime: "09:30"},
			check: func(err error) bool { return errors.Is(err, domain.ErrForbidden) },
		},
		{
			name:  "admin",
			actor: admin,
			in:    SlotInput{Date: "2024-06-03", StartTime: "09:00", EndTime: "09:30"},
			check: func(err error) bool { return errors.Is(err, domain.ErrForbidden) },
		},
		{
			name:  "end before start",
			actor: staffA,
			in:    SlotInput{Date: "2024-06-03", StartTime: "10:00", EndTime: "09:30"},
			check: func(err error) bool { return errors.Is(err, domain.ErrInvalidRange) },
		},
		{
			name:  "equal bounds",
			actor: staffA,
			in:    SlotInput{Date: "2024-06-03", StartTime: "10:00", EndTime: "10:00"},
			check: func(err error) bool { return errors.Is(err, domain.ErrInvalidRange) },
		},
		{
			name:  "bad date",
			actor: staffA,
			in:    SlotInput{Date: "06/03/2024", StartTime: "09:00", EndTime: "09:30"},
			check: func(err error) bool {
				var vErr *domain.ValidationError
				return errors.As(err, &vErr)
			},
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := svc.AddSlot(ctx, tc.actor, tc.in); !tc.check(err) {
				t.Fatalf("AddSlot error = %v", err)
			}
		})
	}
}

func TestRemoveAndToggleSlot_OwnSlotsOnly(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	slot, err := svc.AddSlot(ctx, staffA, SlotInput{Date: "2024-06-03", StartTime: "09:00", EndTime: "09:30"})
	if err != nil {
		t.Fatalf("AddSlot error: %v", err)
	}

	if _, err := svc.ToggleSlot(ctx, clientA, slot.ID); !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("ToggleSlot by client error = %v, want ErrForbidden", err)
	}
	if _, err := svc.ToggleSlot(ctx, staffB, slot.ID); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("ToggleSlot by other staff error = %v, want ErrNotFound", err)
	}
	toggled, err := svc.ToggleSlot(ctx, staffA, slot.ID)
	if err != nil {
		t.Fatalf("ToggleSlot error: %v", err)
	}
	if toggled.IsAvailable {
		t.Fatalf("IsAvailable = true after toggle")
	}

	if err := svc.RemoveSlot(ctx, staffB, slot.ID); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("RemoveSlot by other staff error = %v, want ErrNotFound", err)
	}
	if err := svc.RemoveSlot(ctx, staffA, slot.ID); err != nil {
		t.Fatalf("RemoveSlot error: %v", err)
	}
	if err := svc.RemoveSlot(ctx, staffA, uuid.New()); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("RemoveSlot unknown error = %v, want ErrNotFound", err)
	}
}

func TestListAvailable_DefaultsToToday(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	if _, err := svc.ListAvailable(ctx, "", ""); err == nil {
		t.Fatalf("expected error for missing staff id")
	}

	empty, err := svc.ListAvailable(ctx, testutil.StaffA, "")
	if err != nil {
		t.Fatalf("ListAvailable error: %v", err)
	}
	if empty == nil || len(empty) != 0 {
		t.Fatalf("ListAvailable = %#v, want empty non-nil slice", empty)
	}

	for _, in := range []SlotInput{
		{Date: "2024-05-31", StartTime: "09:00", EndTime: "09:30"},
		{Date: "2024-06-01", StartTime: "09:00", EndTime: "09:30"},
		{Date: "2024-06-02", StartTime: "09:00", EndTime: "09:30"},
	} {
		if _, err := svc.AddSlot(ctx, staffA, in); err != nil {
			t.Fatalf("AddSlot error: %v", err)
		}
	}

	rows, err := svc.ListAvailable(ctx, testutil.StaffA, "")
	if err != nil {
		t.Fatalf("ListAvailable error: %v", err)
	}
	if len(rows) != 2 || rows[0].Date != "2024-06-01" || rows[1].Date != "2024-06-02" {
		t.Fatalf("ListAvailable = %+v, want today and tomorrow", rows)
	}

	rows, err = svc.ListAvailable(ctx, testutil.StaffA, "2024-06-02")
	if err != nil {
		t.Fatalf("ListAvailable error: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("len(rows) = %d, want 1", len(rows))
	}
}

func TestOpenSlots_HidesBookedSlots(t *testing.T) {
	svc, repo := newTestService(t)
	ctx := context.Background()

	for _, start := range []string{"09:00", "10:00", "11:00"} {
		if _, err := svc.AddSlot(ctx, staffA, SlotInput{Date: "2024-06-03", StartTime: start, EndTime: start[:3] + "30"}); err != nil {
			t.Fatalf("AddSlot error: %v", err)
		}
	}

	held := bookAt(t, repo, testutil.StaffA, "2024-06-03", "09:00", domain.StatusPending)
	bookAt(t, repo, testutil.StaffA, "2024-06-03", "10:00", domain.StatusRejected)
	bookAt(t, repo, testutil.StaffB, "2024-06-03", "11:00", domain.StatusPending)

	open, err := svc.OpenSlots(ctx, testutil.StaffA, "2024-06-01", uuid.Nil)
	if err != nil {
		t.Fatalf("OpenSlots error: %v", err)
	}
	if len(open) != 2 || open[0].StartTime != "10:00" || open[1].StartTime != "11:00" {
		t.Fatalf("OpenSlots = %+v, want 10:00 and 11:00", open)
	}

	open, err = svc.OpenSlots(ctx, testutil.StaffA, "2024-06-01", held.ID)
	if err != nil {
		t.Fatalf("OpenSlots error: %v", err)
	}
	if len(open) != 3 {
		t.Fatalf("OpenSlots with exclusion = %d slots, want 3", len(open))
	}
}

func TestAddWeekly_SkipsExistingDates(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	if _, err := svc.AddSlot(ctx, staffA, SlotInput{Date: "2024-06-05", StartTime: "09:00", EndTime: "12:00"}); err != nil {
		t.Fatalf("AddSlot error: %v", err)
	}

	// Mondays and Wednesdays from Mon 2024-06-03 through Sun 2024-06-16.
	created, err := svc.AddWeekly(ctx, staffA, WeeklyInput{
		StartDate: "2024-06-03",
		UntilDate: "2024-06-16",
		Weekdays:  []int16{3, 1},
		StartTime: "09:00",
		EndTime:   "12:00",
	})
	if err != nil {
		t.Fatalf("AddWeekly error: %v", err)
	}
	want := []string{"2024-06-03", "2024-06-10", "2024-06-12"}
	if len(created) != len(want) {
		t.Fatalf("created %d slots, want %d: %+v", len(created), len(want), created)
	}
	for i, s := range created {
		if s.Date != want[i] || s.StaffID != testutil.StaffA || !s.IsAvailable {
			t.Fatalf("created[%d] = %+v, want %s", i, s, want[i])
		}
	}

	if _, err := svc.AddWeekly(ctx, clientA, WeeklyInput{}); !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("AddWeekly by client error = %v, want ErrForbidden", err)
	}
	if _, err := svc.AddWeekly(ctx, staffA, WeeklyInput{
		StartDate: "2024-06-03", UntilDate: "2024-06-16", Weekdays: []int16{1}, StartTime: "12:00", EndTime: "09:00",
	}); !errors.Is(err, domain.ErrInvalidRange) {
		t.Fatalf("AddWeekly inverted range error = %v, want ErrInvalidRange", err)
	}
}

func TestMonthCalendar(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	add := func(date, start string, open bool) {
		t.Helper()
		if _, err := svc.AddSlot(ctx, staffA, SlotInput{Date: date, StartTime: start, EndTime: start[:3] + "30", IsAvailable: &open}); err != nil {
			t.Fatalf("AddSlot error: %v", err)
		}
	}
	add("2024-06-03", "09:00", true)
	add("2024-06-03", "10:00", true)
	add("2024-06-04", "09:00", false)
	add("2024-06-05", "09:00", true)
	add("2024-06-05", "10:00", false)
	add("2024-07-01", "09:00", true)

	cal, err := svc.MonthCalendar(ctx, staffA, 0, 0)
	if err != nil {
		t.Fatalf("MonthCalendar error: %v", err)
	}
	if cal.Year != 2024 || cal.Month != 6 || len(cal.Days) != 30 {
		t.Fatalf("calendar = %d-%d with %d days, want 2024-6 with 30", cal.Year, cal.Month, len(cal.Days))
	}

	wantStatus := map[string]DayStatus{
		"2024-06-01": DayNotSet,
		"2024-06-03": DayAvailable,
		"2024-06-04": DayOccupied,
		"2024-06-05": DayMixed,
		"2024-06-30": DayNotSet,
	}
	for _, day := range cal.Days {
		if want, ok := wantStatus[day.Date]; ok && day.Status != want {
			t.Fatalf("%s status = %s, want %s", day.Date, day.Status, want)
		}
		if day.Slots == nil {
			t.Fatalf("%s slots = nil, want empty slice", day.Date)
		}
	}
	if got := len(cal.Days[2].Slots); got != 2 {
		t.Fatalf("2024-06-03 has %d slots, want 2", got)
	}

	feb, err := svc.MonthCalendar(ctx, staffA, 2024, 2)
	if err != nil {
		t.Fatalf("MonthCalendar error: %v", err)
	}
	if len(feb.Days) != 29 {
		t.Fatalf("February 2024 has %d days, want 29", len(feb.Days))
	}

	if _, err := svc.MonthCalendar(ctx, staffA, 2024, 13); err == nil {
		t.Fatalf("expected error for month 13")
	}
	if _, err := svc.MonthCalendar(ctx, clientA, 2024, 6); !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("MonthCalendar by client error = %v, want ErrForbidden", err)
	}
}
