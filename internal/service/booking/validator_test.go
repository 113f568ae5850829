package booking

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"

	"queuesmart/backend/internal/domain"
	"queuesmart/backend/internal/store"
)

type fakeReader struct {
	getUserFn      func(ctx context.Context, id string) (domain.User, error)
	getServiceFn   func(ctx context.Context, id string) (domain.Service, error)
	activeExistsFn func(ctx context.Context, staffID string, slot domain.SlotKey, exclude uuid.UUID) (bool, error)
	slotExistsFn   func(ctx context.Context, staffID string, slot domain.SlotKey) (bool, error)
}

func (f *fakeReader) GetUser(ctx context.Context, id string) (domain.User, error) {
	if f.getUserFn == nil {
		panic("GetUser not configured")
	}
	return f.getUserFn(ctx, id)
}

func (f *fakeReader) GetService(ctx context.Context, id string) (domain.Service, error) {
	if f.getServiceFn == nil {
		panic("GetService not configured")
	}
	return f.getServiceFn(ctx, id)
}

func (f *fakeReader) ActiveAppointmentExists(ctx context.Context, staffID string, slot domain.SlotKey, exclude uuid.UUID) (bool, error) {
	if f.activeExistsFn == nil {
		panic("ActiveAppointmentExists not configured")
	}
	return f.activeExistsFn(ctx, staffID, slot, exclude)
}

func (f *fakeReader) AvailableSlotExists(ctx context.Context, staffID string, slot domain.SlotKey) (bool, error) {
	if f.slotExistsFn == nil {
		panic("AvailableSlotExists not configured")
	}
	return f.slotExistsFn(ctx, staffID, slot)
}

func happyReader() *fakeReader {
	return &fakeReader{
		getUserFn: func(ctx context.Context, id string) (domain.User, error) {
			return domain.User{ID: id, Role: domain.RoleStaff, IsActive: true}, nil
		},
		getServiceFn: func(ctx context.Context, id string) (domain.Service, error) {
			return domain.Service{ID: id, Name: "Haircut", StaffIDs: []string{"y"}}, nil
		},
		activeExistsFn: func(ctx context.Context, staffID string, slot domain.SlotKey, exclude uuid.UUID) (bool, error) {
			return false, nil
		},
		slotExistsFn: func(ctx context.Context, staffID string, slot domain.SlotKey) (bool, error) {
			return true, nil
		},
	}
}

func mustRequest(t *testing.T) Request {
	t.Helper()
	req, err := NewRequest("x", "y", "2024-06-01", "10:00")
	if err != nil {
		t.Fatalf("NewRequest error: %v", err)
	}
	return req
}

func TestNewRequest_Validation(t *testing.T) {
	cases := []struct {
		name                      string
		service, staff, date, clk string
		wantMsg                   string
	}{
		{"missing service", "", "y", "2024-06-01", "10:00", "service_id is required"},
		{"missing staff", "x", "", "2024-06-01", "10:00", "staff_id is required"},
		{"bad date", "x", "y", "06/01/2024", "10:00", "date must be YYYY-MM-DD"},
		{"bad time", "x", "y", "2024-06-01", "10am", "time must be HH:MM"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := NewRequest(tc.service, tc.staff, tc.date, tc.clk)
			var vErr *domain.ValidationError
			if !errors.As(err, &vErr) {
				t.Fatalf("error type = %T, want *domain.ValidationError", err)
			}
			if vErr.Error() != tc.wantMsg {
				t.Fatalf("error = %q, want %q", vErr.Error(), tc.wantMsg)
			}
		})
	}

	req, err := NewRequest("x", "y", "2024-06-01", "09:30:00")
	if err != nil {
		t.Fatalf("NewRequest error: %v", err)
	}
	if req.Slot.Time != "09:30" {
		t.Fatalf("time = %q, want %q", req.Slot.Time, "09:30")
	}
}

func TestValidate_Ok(t *testing.T) {
	res, err := NewValidator().Validate(context.Background(), happyReader(), mustRequest(t))
	if err != nil {
		t.Fatalf("Validate error: %v", err)
	}
	if res.Service.Name != "Haircut" || res.Staff.ID != "y" {
		t.Fatalf("result = %+v", res)
	}
}

func TestValidate_FailureOrder(t *testing.T) {
	cases := []struct {
		name  string
		tweak func(r *fakeReader)
		want  error
	}{
		{
			name: "service missing",
			tweak: func(r *fakeReader) {
				r.getServiceFn = func(ctx context.Context, id string) (domain.Service, error) {
					return domain.Service{}, store.ErrNotFound
				}
				r.getUserFn = nil
			},
			want: domain.ErrServiceNotFound,
		},
		{
			name: "service nobody performs",
			tweak: func(r *fakeReader) {
				r.getServiceFn = func(ctx context.Context, id string) (domain.Service, error) {
					return domain.Service{ID: id, Name: "Massage"}, nil
				}
				r.getUserFn = nil
				r.activeExistsFn = nil
			},
			want: domain.ErrStaffDoesNotProvideService,
		},
		{
			name: "staff missing",
			tweak: func(r *fakeReader) {
				r.getUserFn = func(ctx context.Context, id string) (domain.User, error) {
					return domain.User{}, store.ErrNotFound
				}
			},
			want: domain.ErrStaffNotFound,
		},
		{
			name: "user is a client",
			tweak: func(r *fakeReader) {
				r.getUserFn = func(ctx context.Context, id string) (domain.User, error) {
					return domain.User{ID: id, Role: domain.RoleClient, IsActive: true}, nil
				}
			},
			want: domain.ErrStaffNotFound,
		},
		{
			name: "staff inactive",
			tweak: func(r *fakeReader) {
				r.getUserFn = func(ctx context.Context, id string) (domain.User, error) {
					return domain.User{ID: id, Role: domain.RoleStaff}, nil
				}
			},
			want: domain.ErrStaffNotFound,
		},
		{
			name: "staff does not provide service",
			tweak: func(r *fakeReader) {
				r.getServiceFn = func(ctx context.Context, id string) (domain.Service, error) {
					return domain.Service{ID: id, StaffIDs: []string{"someone-else"}}, nil
				}
				r.activeExistsFn = nil
			},
			want: domain.ErrStaffDoesNotProvideService,
		},
		{
			name: "slot taken beats slot unavailable",
			tweak: func(r *fakeReader) {
				r.activeExistsFn = func(ctx context.Context, staffID string, slot domain.SlotKey, exclude uuid.UUID) (bool, error) {
					return true, nil
				}
				r.slotExistsFn = nil
			},
			want: domain.ErrSlotTaken,
		},
		{
			name: "no open slot",
			tweak: func(r *fakeReader) {
				r.slotExistsFn = func(ctx context.Context, staffID string, slot domain.SlotKey) (bool, error) {
					return false, nil
				}
			},
			want: domain.ErrSlotUnavailable,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := happyReader()
			tc.tweak(r)
			_, err := NewValidator().Validate(context.Background(), r, mustRequest(t))
			if !errors.Is(err, tc.want) {
				t.Fatalf("error = %v, want %v", err, tc.want)
			}
		})
	}
}

func TestValidate_PassesExclusionToConflictCheck(t *testing.T) {
	own := uuid.New()
	r := happyReader()
	var gotExclude uuid.UUID
	r.activeExistsFn = func(ctx context.Context, staffID string, slot domain.SlotKey, exclude uuid.UUID) (bool, error) {
		gotExclude = exclude
		return false, nil
	}

	req := mustRequest(t)
	req.Exclude = own
	if _, err := NewValidator().Validate(context.Background(), r, req); err != nil {
		t.Fatalf("Validate error: %v", err)
	}
	if gotExclude != own {
		t.Fatalf("exclude = %v, want %v", gotExclude, own)
	}
}

func TestValidate_ConflictErrorsAreConflicts(t *testing.T) {
	if !errors.Is(domain.ErrSlotTaken, domain.ErrConflict) || !errors.Is(domain.ErrSlotUnavailable, domain.ErrConflict) {
		t.Fatalf("slot errors must wrap ErrConflict")
	}
	if !errors.Is(domain.ErrStaffNotFound, store.ErrNotFound) {
		t.Fatalf("ErrStaffNotFound must match store.ErrNotFound")
	}
}
