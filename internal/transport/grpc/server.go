package grpc

import (
	"context"
	"errors"
	"log/slog"

	"github.com/google/uuid"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"queuesmart/backend/internal/api/dto"
	"queuesmart/backend/internal/auth"
	"queuesmart/backend/internal/domain"
	"queuesmart/backend/internal/service/appointments"
	"queuesmart/backend/internal/service/availability"
	"queuesmart/backend/internal/service/notifications"
	"queuesmart/backend/internal/service/queue"
)

type appointmentsService interface {
	Create(ctx context.Context, actor domain.Actor, in appointments.CreateInput) (domain.Appointment, error)
	Edit(ctx context.Context, actor domain.Actor, id uuid.UUID, in appointments.EditInput) (domain.Appointment, error)
	Cancel(ctx context.Context, actor domain.Actor, id uuid.UUID) error
	Approve(ctx context.Context, actor domain.Actor, id uuid.UUID) (domain.Appointment, error)
	Reject(ctx context.Context, actor domain.Actor, id uuid.UUID) (domain.Appointment, error)
	MarkServing(ctx context.Context, actor domain.Actor, id uuid.UUID) (domain.Appointment, error)
	Complete(ctx context.Context, actor domain.Actor, id uuid.UUID) (domain.Appointment, error)
	Get(ctx context.Context, actor domain.Actor, id uuid.UUID) (domain.Appointment, error)
	ListMine(ctx context.Context, actor domain.Actor) ([]domain.Appointment, error)
	StaffDashboard(ctx context.Context, actor domain.Actor) (queue.Dashboard, error)
	DailySchedule(ctx context.Context, actor domain.Actor, date string) (queue.Schedule, error)
}

type availabilityService interface {
	ListAvailable(ctx context.Context, staffID, fromDate string) ([]domain.AvailabilitySlot, error)
	OpenSlots(ctx context.Context, staffID, fromDate string, exclude uuid.UUID) ([]domain.AvailabilitySlot, error)
	AddSlot(ctx context.Context, actor domain.Actor, in availability.SlotInput) (domain.AvailabilitySlot, error)
	AddWeekly(ctx context.Context, actor domain.Actor, in availability.WeeklyInput) ([]domain.AvailabilitySlot, error)
	ToggleSlot(ctx context.Context, actor domain.Actor, slotID uuid.UUID) (domain.AvailabilitySlot, error)
	RemoveSlot(ctx context.Context, actor domain.Actor, slotID uuid.UUID) error
	MonthCalendar(ctx context.Context, actor domain.Actor, year, month int) (availability.Calendar, error)
}

type notificationsService interface {
	List(ctx context.Context, actor domain.Actor) (notifications.Inbox, error)
	UnreadCount(ctx context.Context, actor domain.Actor) (int, error)
	MarkAllRead(ctx context.Context, actor domain.Actor) (int, error)
	Delete(ctx context.Context, actor domain.Actor, id uuid.UUID) error
}

type QueueServer struct {
	appts appointmentsService
	slots availabilityService
	inbox notificationsService
	log   *slog.Logger
}

func NewQueueServer(appts appointmentsService, slots availabilityService, inbox notificationsService, log *slog.Logger) *QueueServer {
	if log == nil {
		log = slog.Default()
	}
	return &QueueServer{
		appts: appts,
		slots: slots,
		inbox: inbox,
		log:   log.With(slog.String("component", "grpc.queue")),
	}
}

func (s *QueueServer) CreateAppointment(ctx context.Context, req *dto.CreateAppointmentRequest) (*dto.AppointmentResponse, error) {
	actor, log := s.call(ctx, "CreateAppointment")
	appt, err := s.appts.Create(ctx, actor, appointments.CreateInput{
		ClientID:       req.ClientID,
		ServiceID:      req.ServiceID,
		StaffID:        req.StaffID,
		Date:           req.Date,
		Time:           req.Time,
		IdempotencyKey: idempotencyKey(ctx),
	})
	if err != nil {
		return nil, toStatus(log, err)
	}
	log.Info("appointment created",
		slog.String("appointment_id", appt.ID.String()),
		slog.String("staff_id", appt.StaffID),
		slog.String("date", appt.Date),
		slog.String("time", appt.Time),
	)
	return &dto.AppointmentResponse{Appointment: dto.FromAppointment(appt)}, nil
}

func (s *QueueServer) EditAppointment(ctx context.Context, req *dto.EditAppointmentRequest) (*dto.AppointmentResponse, error) {
	actor, log := s.call(ctx, "EditAppointment")
	id, err := parseID("appointment_id", req.AppointmentID)
	if err != nil {
		return nil, toStatus(log, err)
	}
	appt, err := s.appts.Edit(ctx, actor, id, appointments.EditInput{
		ServiceID: req.ServiceID,
		StaffID:   req.StaffID,
		Date:      req.Date,
		Time:      req.Time,
	})
	if err != nil {
		return nil, toStatus(log, err)
	}
	return &dto.AppointmentResponse{Appointment: dto.FromAppointment(appt)}, nil
}

func (s *QueueServer) CancelAppointment(ctx context.Context, req *dto.AppointmentIDRequest) (*dto.Empty, error) {
	actor, log := s.call(ctx, "CancelAppointment")
	id, err := parseID("appointment_id", req.AppointmentID)
	if err != nil {
		return nil, toStatus(log, err)
	}
	if err := s.appts.Cancel(ctx, actor, id); err != nil {
		return nil, toStatus(log, err)
	}
	log.Info("appointment cancelled", slog.String("appointment_id", id.String()))
	return &dto.Empty{}, nil
}

func (s *QueueServer) ApproveAppointment(ctx context.Context, req *dto.AppointmentIDRequest) (*dto.AppointmentResponse, error) {
	return s.transition(ctx, "ApproveAppointment", req, s.appts.Approve)
}

func (s *QueueServer) RejectAppointment(ctx context.Context, req *dto.AppointmentIDRequest) (*dto.AppointmentResponse, error) {
	return s.transition(ctx, "RejectAppointment", req, s.appts.Reject)
}

func (s *QueueServer) ServeAppointment(ctx context.Context, req *dto.AppointmentIDRequest) (*dto.AppointmentResponse, error) {
	return s.transition(ctx, "ServeAppointment", req, s.appts.MarkServing)
}

func (s *QueueServer) CompleteAppointment(ctx context.Context, req *dto.AppointmentIDRequest) (*dto.AppointmentResponse, error) {
	return s.transition(ctx, "CompleteAppointment", req, s.appts.Complete)
}

func (s *QueueServer) GetAppointment(ctx context.Context, req *dto.AppointmentIDRequest) (*dto.AppointmentResponse, error) {
	return s.transition(ctx, "GetAppointment", req, s.appts.Get)
}

func (s *QueueServer) ListMyAppointments(ctx context.Context, _ *dto.Empty) (*dto.AppointmentList, error) {
	actor, log := s.call(ctx, "ListMyAppointments")
	rows, err := s.appts.ListMine(ctx, actor)
	if err != nil {
		return nil, toStatus(log, err)
	}
	return &dto.AppointmentList{Appointments: dto.FromAppointments(rows)}, nil
}

func (s *QueueServer) StaffDashboard(ctx context.Context, _ *dto.Empty) (*dto.Dashboard, error) {
	actor, log := s.call(ctx, "StaffDashboard")
	d, err := s.appts.StaffDashboard(ctx, actor)
	if err != nil {
		return nil, toStatus(log, err)
	}
	out := dto.FromDashboard(d)
	return &out, nil
}

func (s *QueueServer) DailySchedule(ctx context.Context, req *dto.ScheduleRequest) (*dto.Schedule, error) {
	actor, log := s.call(ctx, "DailySchedule")
	sched, err := s.appts.DailySchedule(ctx, actor, req.Date)
	if err != nil {
		return nil, toStatus(log, err)
	}
	out := dto.FromSchedule(sched)
	return &out, nil
}

func (s *QueueServer) ListSlots(ctx context.Context, req *dto.ListSlotsRequest) (*dto.SlotList, error) {
	_, log := s.call(ctx, "ListSlots")
	rows, err := s.slots.ListAvailable(ctx, req.StaffID, req.FromDate)
	if err != nil {
		return nil, toStatus(log, err)
	}
	return &dto.SlotList{Slots: dto.FromSlots(rows)}, nil
}

func (s *QueueServer) ListOpenSlots(ctx context.Context, req *dto.ListSlotsRequest) (*dto.SlotList, error) {
	_, log := s.call(ctx, "ListOpenSlots")
	var exclude uuid.UUID
	if req.ExcludeAppointmentID != "" {
		id, err := parseID("exclude_appointment_id", req.ExcludeAppointmentID)
		if err != nil {
			return nil, toStatus(log, err)
		}
		exclude = id
	}
	rows, err := s.slots.OpenSlots(ctx, req.StaffID, req.FromDate, exclude)
	if err != nil {
		return nil, toStatus(log, err)
	}
	return &dto.SlotList{Slots: dto.FromSlots(rows)}, nil
}

func (s *QueueServer) AddSlot(ctx context.Context, req *dto.SlotRequest) (*dto.SlotResponse, error) {
	actor, log := s.call(ctx, "AddSlot")
	slot, err := s.slots.AddSlot(ctx, actor, availability.SlotInput{
		Date:        req.Date,
		StartTime:   req.StartTime,
		EndTime:     req.EndTime,
		IsAvailable: req.IsAvailable,
	})
	if err != nil {
		return nil, toStatus(log, err)
	}
	log.Info("slot added", slog.String("slot_id", slot.ID.String()), slog.String("date", slot.Date))
	return &dto.SlotResponse{Slot: dto.FromSlot(slot)}, nil
}

func (s *QueueServer) AddWeeklySlots(ctx context.Context, req *dto.WeeklySlotsRequest) (*dto.SlotList, error) {
	actor, log := s.call(ctx, "AddWeeklySlots")
	rows, err := s.slots.AddWeekly(ctx, actor, availability.WeeklyInput{
		StartDate:   req.StartDate,
		UntilDate:   req.UntilDate,
		Weekdays:    req.Weekdays,
		Interval:    req.Interval,
		StartTime:   req.StartTime,
		EndTime:     req.EndTime,
		IsAvailable: req.IsAvailable,
	})
	if err != nil {
		return nil, toStatus(log, err)
	}
	return &dto.SlotList{Slots: dto.FromSlots(rows)}, nil
}

func (s *QueueServer) ToggleSlot(ctx context.Context, req *dto.SlotIDRequest) (*dto.SlotResponse, error) {
	actor, log := s.call(ctx, "ToggleSlot")
	id, err := parseID("slot_id", req.SlotID)
	if err != nil {
		return nil, toStatus(log, err)
	}
	slot, err := s.slots.ToggleSlot(ctx, actor, id)
	if err != nil {
		return nil, toStatus(log, err)
	}
	return &dto.SlotResponse{Slot: dto.FromSlot(slot)}, nil
}

func (s *QueueServer) RemoveSlot(ctx context.Context, req *dto.SlotIDRequest) (*dto.Empty, error) {
	actor, log := s.call(ctx, "RemoveSlot")
	id, err := parseID("slot_id", req.SlotID)
	if err != nil {
		return nil, toStatus(log, err)
	}
	if err := s.slots.RemoveSlot(ctx, actor, id); err != nil {
		return nil, toStatus(log, err)
	}
	return &dto.Empty{}, nil
}

func (s *QueueServer) AvailabilityCalendar(ctx context.Context, req *dto.CalendarRequest) (*dto.Calendar, error) {
	actor, log := s.call(ctx, "AvailabilityCalendar")
	cal, err := s.slots.MonthCalendar(ctx, actor, req.Year, req.Month)
	if err != nil {
		return nil, toStatus(log, err)
	}
	out := dto.FromCalendar(cal)
	return &out, nil
}

func (s *QueueServer) ListNotifications(ctx context.Context, _ *dto.Empty) (*dto.Inbox, error) {
	actor, log := s.call(ctx, "ListNotifications")
	in, err := s.inbox.List(ctx, actor)
	if err != nil {
		return nil, toStatus(log, err)
	}
	out := dto.FromInbox(in)
	return &out, nil
}

func (s *QueueServer) UnreadCount(ctx context.Context, _ *dto.Empty) (*dto.UnreadCount, error) {
	actor, log := s.call(ctx, "UnreadCount")
	n, err := s.inbox.UnreadCount(ctx, actor)
	if err != nil {
		return nil, toStatus(log, err)
	}
	return &dto.UnreadCount{Unread: n}, nil
}

func (s *QueueServer) MarkAllRead(ctx context.Context, _ *dto.Empty) (*dto.MarkedRead, error) {
	actor, log := s.call(ctx, "MarkAllRead")
	n, err := s.inbox.MarkAllRead(ctx, actor)
	if err != nil {
		return nil, toStatus(log, err)
	}
	return &dto.MarkedRead{Marked: n}, nil
}

func (s *QueueServer) DeleteNotification(ctx context.Context, req *dto.NotificationIDRequest) (*dto.Empty, error) {
	actor, log := s.call(ctx, "DeleteNotification")
	id, err := parseID("notification_id", req.NotificationID)
	if err != nil {
		return nil, toStatus(log, err)
	}
	if err := s.inbox.Delete(ctx, actor, id); err != nil {
		return nil, toStatus(log, err)
	}
	return &dto.Empty{}, nil
}

func (s *QueueServer) transition(ctx context.Context, rpc string, req *dto.AppointmentIDRequest, fn func(context.Context, domain.Actor, uuid.UUID) (domain.Appointment, error)) (*dto.AppointmentResponse, error) {
	actor, log := s.call(ctx, rpc)
	id, err := parseID("appointment_id", req.AppointmentID)
	if err != nil {
		return nil, toStatus(log, err)
	}
	appt, err := fn(ctx, actor, id)
	if err != nil {
		return nil, toStatus(log, err)
	}
	log.Debug("appointment returned",
		slog.String("appointment_id", appt.ID.String()),
		slog.String("status", string(appt.Status)),
	)
	return &dto.AppointmentResponse{Appointment: dto.FromAppointment(appt)}, nil
}

// call returns the actor the auth interceptor stored and a logger scoped to
// the RPC. Public RPCs see a zero actor.
func (s *QueueServer) call(ctx context.Context, rpc string) (domain.Actor, *slog.Logger) {
	actor, _ := auth.ActorFrom(ctx)
	log := s.log.With(slog.String("rpc", rpc))
	if actor.UserID != "" {
		log = log.With(slog.String("user_id", actor.UserID), slog.String("role", string(actor.Role)))
	}
	return actor, log
}

func parseID(field, value string) (uuid.UUID, error) {
	id, err := uuid.Parse(value)
	if err != nil {
		return uuid.Nil, domain.Invalid(field + " must be a UUID")
	}
	return id, nil
}

// toStatus maps domain errors onto gRPC codes. Unclassified errors are
// logged and hidden behind a generic message.
func toStatus(log *slog.Logger, err error) error {
	var vErr *domain.ValidationError
	switch {
	case errors.As(err, &vErr):
		log.Warn("invalid request", slog.Any("err", err))
		return status.Error(codes.InvalidArgument, vErr.Error())
	case errors.Is(err, domain.ErrForbidden):
		log.Info("permission denied")
		return status.Error(codes.PermissionDenied, "not allowed for this role")
	case errors.Is(err, domain.ErrNotFound):
		log.Info("not found", slog.Any("err", err))
		return status.Error(codes.NotFound, err.Error())
	case errors.Is(err, domain.ErrSlotTaken):
		log.Info("slot conflict")
		return status.Error(codes.AlreadyExists, "That time slot is already booked. Pick a different slot.")
	case errors.Is(err, domain.ErrIdempotencyConflict):
		log.Info("idempotency conflict")
		return status.Error(codes.FailedPrecondition, "This request key was already used for a different appointment. Try again.")
	case errors.Is(err, domain.ErrConflict), errors.Is(err, domain.ErrInvalidState):
		log.Info("precondition failed", slog.Any("err", err))
		return status.Error(codes.FailedPrecondition, err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		log.Warn("deadline exceeded")
		return status.Error(codes.DeadlineExceeded, "deadline exceeded")
	case errors.Is(err, context.Canceled):
		return status.Error(codes.Canceled, "request canceled")
	}
	log.Error("request failed", slog.Any("err", err))
	return status.Error(codes.Internal, "internal error")
}
