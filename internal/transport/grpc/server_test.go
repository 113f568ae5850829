package grpc

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"testing"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"

	"queuesmart/backend/internal/api/dto"
	"queuesmart/backend/internal/auth"
	"queuesmart/backend/internal/domain"
	"queuesmart/backend/internal/notify"
	"queuesmart/backend/internal/service/appointments"
	"queuesmart/backend/internal/service/availability"
	"queuesmart/backend/internal/service/notifications"
	"queuesmart/backend/internal/store/sqlstore"
	"queuesmart/backend/internal/testutil"
)

type harness struct {
	conn   *grpc.ClientConn
	tokens *auth.TokenManager
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	db := testutil.OpenSQLite(t)
	testutil.SeedDirectory(t, db)
	repo := sqlstore.New(db)

	log := slog.New(slog.DiscardHandler)
	dispatcher := notify.NewDispatcher()
	dispatcher.Register("store", notify.NewStoreEmitter(repo))

	tokens := auth.NewTokenManager("test-secret", time.Hour, "queuesmart")
	srv := grpc.NewServer(grpc.ChainUnaryInterceptor(
		DefaultRequestTimeoutInterceptor(5*time.Second),
		AuthInterceptor(tokens, log),
	))
	RegisterQueueServiceServer(srv, NewQueueServer(
		appointments.NewService(repo, dispatcher, log),
		availability.NewService(repo, log),
		notifications.NewService(repo, log),
		log,
	))

	lis := bufconn.Listen(1 << 20)
	go func() { _ = srv.Serve(lis) }()
	t.Cleanup(srv.Stop)

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) { return lis.DialContext(ctx) }),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithDefaultCallOptions(grpc.CallContentSubtype(CodecName)),
	)
	if err != nil {
		t.Fatalf("grpc.NewClient error: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	return &harness{conn: conn, tokens: tokens}
}

func (h *harness) as(t *testing.T, userID string, role domain.Role) context.Context {
	t.Helper()
	token, _, err := h.tokens.Issue(domain.Actor{UserID: userID, Role: role})
	if err != nil {
		t.Fatalf("Issue error: %v", err)
	}
	return metadata.AppendToOutgoingContext(context.Background(), "authorization", "Bearer "+token)
}

func invoke[Resp any](ctx context.Context, h *harness, method string, req any) (*Resp, error) {
	out := new(Resp)
	if err := h.conn.Invoke(ctx, FullMethod(method), req, out); err != nil {
		return nil, err
	}
	return out, nil
}

func wantCode(t *testing.T, err error, want codes.Code) {
	t.Helper()
	if got := status.Code(err); got != want {
		t.Fatalf("code = %s (err %v), want %s", got, err, want)
	}
}

func TestQueueService_BookApproveServeFlow(t *testing.T) {
	h := newHarness(t)
	staff := h.as(t, testutil.StaffA, domain.RoleStaff)
	client := h.as(t, testutil.ClientA, domain.RoleClient)

	slot, err := invoke[dto.SlotResponse](staff, h, "AddSlot", &dto.SlotRequest{Date: "2030-01-07", StartTime: "10:00", EndTime: "10:30"})
	if err != nil {
		t.Fatalf("AddSlot error: %v", err)
	}
	if !slot.Slot.IsAvailable || slot.Slot.StaffID != testutil.StaffA {
		t.Fatalf("slot = %+v", slot.Slot)
	}

	open, err := invoke[dto.SlotList](context.Background(), h, "ListOpenSlots", &dto.ListSlotsRequest{StaffID: testutil.StaffA, FromDate: "2030-01-01"})
	if err != nil {
		t.Fatalf("ListOpenSlots error: %v", err)
	}
	if len(open.Slots) != 1 {
		t.Fatalf("open slots = %d, want 1", len(open.Slots))
	}

	created, err := invoke[dto.AppointmentResponse](client, h, "CreateAppointment", &dto.CreateAppointmentRequest{
		ServiceID: testutil.ServiceCut, StaffID: testutil.StaffA, Date: "2030-01-07", Time: "10:00",
	})
	if err != nil {
		t.Fatalf("CreateAppointment error: %v", err)
	}
	if created.Appointment.Status != domain.StatusPending || created.Appointment.QueueNumber != nil {
		t.Fatalf("created = %+v", created.Appointment)
	}

	open, err = invoke[dto.SlotList](context.Background(), h, "ListOpenSlots", &dto.ListSlotsRequest{StaffID: testutil.StaffA, FromDate: "2030-01-01"})
	if err != nil {
		t.Fatalf("ListOpenSlots error: %v", err)
	}
	if len(open.Slots) != 0 {
		t.Fatalf("open slots after booking = %d, want 0", len(open.Slots))
	}

	other := h.as(t, testutil.ClientB, domain.RoleClient)
	_, err = invoke[dto.AppointmentResponse](other, h, "CreateAppointment", &dto.CreateAppointmentRequest{
		ServiceID: testutil.ServiceCut, StaffID: testutil.StaffA, Date: "2030-01-07", Time: "10:00",
	})
	wantCode(t, err, codes.AlreadyExists)

	idReq := &dto.AppointmentIDRequest{AppointmentID: created.Appointment.ID}
	_, err = invoke[dto.AppointmentResponse](client, h, "ApproveAppointment", idReq)
	wantCode(t, err, codes.PermissionDenied)

	approved, err := invoke[dto.AppointmentResponse](staff, h, "ApproveAppointment", idReq)
	if err != nil {
		t.Fatalf("ApproveAppointment error: %v", err)
	}
	if approved.Appointment.QueueNumber == nil || *approved.Appointment.QueueNumber != 1 {
		t.Fatalf("queue number = %v, want 1", approved.Appointment.QueueNumber)
	}

	dash, err := invoke[dto.Dashboard](staff, h, "StaffDashboard", &dto.Empty{})
	if err != nil {
		t.Fatalf("StaffDashboard error: %v", err)
	}
	if len(dash.Approved) != 1 || dash.Serving != nil {
		t.Fatalf("dashboard = %+v", dash)
	}

	serving, err := invoke[dto.AppointmentResponse](staff, h, "ServeAppointment", idReq)
	if err != nil {
		t.Fatalf("ServeAppointment error: %v", err)
	}
	if serving.Appointment.Status != domain.StatusServing {
		t.Fatalf("status = %s, want serving", serving.Appointment.Status)
	}

	_, err = invoke[dto.Empty](client, h, "CancelAppointment", idReq)
	if err != nil {
		t.Fatalf("CancelAppointment of serving error: %v", err)
	}
	_, err = invoke[dto.AppointmentResponse](client, h, "GetAppointment", idReq)
	wantCode(t, err, codes.NotFound)

	inbox, err := invoke[dto.Inbox](client, h, "ListNotifications", &dto.Empty{})
	if err != nil {
		t.Fatalf("ListNotifications error: %v", err)
	}
	if inbox.Unread != 3 {
		t.Fatalf("client unread = %d, want 3 (confirmation, approval, reminder)", inbox.Unread)
	}
	marked, err := invoke[dto.MarkedRead](client, h, "MarkAllRead", &dto.Empty{})
	if err != nil {
		t.Fatalf("MarkAllRead error: %v", err)
	}
	if marked.Marked != 3 {
		t.Fatalf("marked = %d, want 3", marked.Marked)
	}
}

func TestQueueService_IdempotentCreate(t *testing.T) {
	h := newHarness(t)
	staff := h.as(t, testutil.StaffA, domain.RoleStaff)
	if _, err := invoke[dto.SlotResponse](staff, h, "AddSlot", &dto.SlotRequest{Date: "2030-01-07", StartTime: "10:00", EndTime: "10:30"}); err != nil {
		t.Fatalf("AddSlot error: %v", err)
	}

	client := metadata.AppendToOutgoingContext(h.as(t, testutil.ClientA, domain.RoleClient), "idempotency-key", "retry-1")
	req := &dto.CreateAppointmentRequest{ServiceID: testutil.ServiceCut, StaffID: testutil.StaffA, Date: "2030-01-07", Time: "10:00"}

	first, err := invoke[dto.AppointmentResponse](client, h, "CreateAppointment", req)
	if err != nil {
		t.Fatalf("CreateAppointment error: %v", err)
	}
	second, err := invoke[dto.AppointmentResponse](client, h, "CreateAppointment", req)
	if err != nil {
		t.Fatalf("replayed CreateAppointment error: %v", err)
	}
	if first.Appointment.ID != second.Appointment.ID {
		t.Fatalf("replay returned %s, want %s", second.Appointment.ID, first.Appointment.ID)
	}

	changed := *req
	changed.Time = "11:00"
	_, err = invoke[dto.AppointmentResponse](client, h, "CreateAppointment", &changed)
	wantCode(t, err, codes.FailedPrecondition)
}

func TestQueueService_AuthAndValidation(t *testing.T) {
	h := newHarness(t)

	_, err := invoke[dto.AppointmentList](context.Background(), h, "ListMyAppointments", &dto.Empty{})
	wantCode(t, err, codes.Unauthenticated)

	bad := metadata.AppendToOutgoingContext(context.Background(), "authorization", "Bearer not-a-token")
	_, err = invoke[dto.AppointmentList](bad, h, "ListMyAppointments", &dto.Empty{})
	wantCode(t, err, codes.Unauthenticated)

	client := h.as(t, testutil.ClientA, domain.RoleClient)
	mine, err := invoke[dto.AppointmentList](client, h, "ListMyAppointments", &dto.Empty{})
	if err != nil {
		t.Fatalf("ListMyAppointments error: %v", err)
	}
	if mine.Appointments == nil || len(mine.Appointments) != 0 {
		t.Fatalf("appointments = %#v, want empty list", mine.Appointments)
	}

	_, err = invoke[dto.AppointmentResponse](client, h, "ApproveAppointment", &dto.AppointmentIDRequest{AppointmentID: "nope"})
	wantCode(t, err, codes.InvalidArgument)

	_, err = invoke[dto.AppointmentResponse](client, h, "CreateAppointment", &dto.CreateAppointmentRequest{
		ServiceID: testutil.ServiceCut, StaffID: testutil.StaffA, Date: "2030-13-01", Time: "10:00",
	})
	wantCode(t, err, codes.InvalidArgument)

	_, err = invoke[dto.AppointmentResponse](client, h, "CreateAppointment", &dto.CreateAppointmentRequest{
		ServiceID: "svc-missing", StaffID: testutil.StaffA, Date: "2030-01-07", Time: "10:00",
	})
	wantCode(t, err, codes.NotFound)

	_, err = invoke[dto.AppointmentResponse](client, h, "CreateAppointment", &dto.CreateAppointmentRequest{
		ServiceID: testutil.ServiceCut, StaffID: testutil.StaffA, Date: "2030-01-07", Time: "10:00",
	})
	wantCode(t, err, codes.FailedPrecondition)

	staff := h.as(t, testutil.StaffA, domain.RoleStaff)
	_, err = invoke[dto.SlotResponse](staff, h, "AddSlot", &dto.SlotRequest{Date: "2030-01-07", StartTime: "11:00", EndTime: "10:00"})
	wantCode(t, err, codes.InvalidArgument)

	cal, err := invoke[dto.Calendar](staff, h, "AvailabilityCalendar", &dto.CalendarRequest{Year: 2030, Month: 2})
	if err != nil {
		t.Fatalf("AvailabilityCalendar error: %v", err)
	}
	if len(cal.Days) != 28 || cal.Days[0].Status != "not-set" {
		t.Fatalf("calendar = %d days, first %+v", len(cal.Days), cal.Days[0])
	}
}

func TestToStatus(t *testing.T) {
	log := slog.New(slog.DiscardHandler)
	cases := []struct {
		err  error
		want codes.Code
	}{
		{domain.Invalid("bad"), codes.InvalidArgument},
		{domain.ErrStaffDoesNotProvideService, codes.InvalidArgument},
		{domain.ErrForbidden, codes.PermissionDenied},
		{domain.ErrServiceNotFound, codes.NotFound},
		{domain.ErrSlotTaken, codes.AlreadyExists},
		{domain.ErrSlotUnavailable, codes.FailedPrecondition},
		{domain.ErrIdempotencyConflict, codes.FailedPrecondition},
		{&domain.InvalidStateError{Op: "approve", From: domain.StatusCompleted}, codes.FailedPrecondition},
		{context.DeadlineExceeded, codes.DeadlineExceeded},
		{errors.New("boom"), codes.Internal},
	}
	for _, tc := range cases {
		if got := status.Code(toStatus(log, tc.err)); got != tc.want {
			t.Fatalf("toStatus(%v) = %s, want %s", tc.err, got, tc.want)
		}
	}
	if msg := status.Convert(toStatus(log, errors.New("db password leaked"))).Message(); msg != "internal error" {
		t.Fatalf("internal message = %q", msg)
	}
}

func TestIdempotencyKey_ReadsHeadersAndTrims(t *testing.T) {
	ctx := metadata.NewIncomingContext(context.Background(), metadata.Pairs("idempotency-key", "  abc  "))
	if got := idempotencyKey(ctx); got != "abc" {
		t.Fatalf("idempotencyKey = %q, want %q", got, "abc")
	}

	ctx = metadata.NewIncomingContext(context.Background(), metadata.Pairs("x-idempotency-key", "xyz"))
	if got := idempotencyKey(ctx); got != "xyz" {
		t.Fatalf("idempotencyKey = %q, want %q", got, "xyz")
	}

	if got := idempotencyKey(context.Background()); got != "" {
		t.Fatalf("idempotencyKey without metadata = %q", got)
	}
}
