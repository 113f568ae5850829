package http

import (
	"context"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"queuesmart/backend/internal/api/dto"
	"queuesmart/backend/internal/domain"
	"queuesmart/backend/internal/service/appointments"
	"queuesmart/backend/internal/service/availability"
	"queuesmart/backend/internal/service/notifications"
	"queuesmart/backend/internal/service/queue"
)

type AppointmentsService interface {
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

type AvailabilityService interface {
	ListAvailable(ctx context.Context, staffID, fromDate string) ([]domain.AvailabilitySlot, error)
	OpenSlots(ctx context.Context, staffID, fromDate string, exclude uuid.UUID) ([]domain.AvailabilitySlot, error)
	AddSlot(ctx context.Context, actor domain.Actor, in availability.SlotInput) (domain.AvailabilitySlot, error)
	AddWeekly(ctx context.Context, actor domain.Actor, in availability.WeeklyInput) ([]domain.AvailabilitySlot, error)
	ToggleSlot(ctx context.Context, actor domain.Actor, slotID uuid.UUID) (domain.AvailabilitySlot, error)
	RemoveSlot(ctx context.Context, actor domain.Actor, slotID uuid.UUID) error
	MonthCalendar(ctx context.Context, actor domain.Actor, year, month int) (availability.Calendar, error)
}

type NotificationsService interface {
	List(ctx context.Context, actor domain.Actor) (notifications.Inbox, error)
	UnreadCount(ctx context.Context, actor domain.Actor) (int, error)
	MarkAllRead(ctx context.Context, actor domain.Actor) (int, error)
	Delete(ctx context.Context, actor domain.Actor, id uuid.UUID) error
}

type Handlers struct {
	appts AppointmentsService
	slots AvailabilityService
	inbox NotificationsService
}

func NewHandlers(appts AppointmentsService, slots AvailabilityService, inbox NotificationsService) *Handlers {
	return &Handlers{appts: appts, slots: slots, inbox: inbox}
}

// ListSlots GET /v1/staff/:staffId/slots.
func (h *Handlers) ListSlots(c *fiber.Ctx) error {
	rows, err := h.slots.ListAvailable(c.UserContext(), c.Params("staffId"), c.Query("from"))
	if err != nil {
		return err
	}
	return c.JSON(dto.SlotList{Slots: dto.FromSlots(rows)})
}

// ListOpenSlots GET /v1/staff/:staffId/open-slots.
func (h *Handlers) ListOpenSlots(c *fiber.Ctx) error {
	var exclude uuid.UUID
	if raw := c.Query("exclude"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			return badRequest("exclude must be a UUID")
		}
		exclude = id
	}
	rows, err := h.slots.OpenSlots(c.UserContext(), c.Params("staffId"), c.Query("from"), exclude)
	if err != nil {
		return err
	}
	return c.JSON(dto.SlotList{Slots: dto.FromSlots(rows)})
}

// CreateAppointment POST /v1/appointments.
func (h *Handlers) CreateAppointment(c *fiber.Ctx) error {
	var req dto.CreateAppointmentRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest("invalid payload")
	}
	appt, err := h.appts.Create(c.UserContext(), actorFrom(c), appointments.CreateInput{
		ClientID:       req.ClientID,
		ServiceID:      req.ServiceID,
		StaffID:        req.StaffID,
		Date:           req.Date,
		Time:           req.Time,
		IdempotencyKey: idempotencyKey(c),
	})
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(dto.AppointmentResponse{Appointment: dto.FromAppointment(appt)})
}

// ListAppointments GET /v1/appointments.
func (h *Handlers) ListAppointments(c *fiber.Ctx) error {
	rows, err := h.appts.ListMine(c.UserContext(), actorFrom(c))
	if err != nil {
		return err
	}
	return c.JSON(dto.AppointmentList{Appointments: dto.FromAppointments(rows)})
}

// GetAppointment GET /v1/appointments/:id.
func (h *Handlers) GetAppointment(c *fiber.Ctx) error {
	return h.transition(c, h.appts.Get)
}

// EditAppointment PUT /v1/appointments/:id.
func (h *Handlers) EditAppointment(c *fiber.Ctx) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	var req dto.EditAppointmentRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest("invalid payload")
	}
	appt, err := h.appts.Edit(c.UserContext(), actorFrom(c), id, appointments.EditInput{
		ServiceID: req.ServiceID,
		StaffID:   req.StaffID,
		Date:      req.Date,
		Time:      req.Time,
	})
	if err != nil {
		return err
	}
	return c.JSON(dto.AppointmentResponse{Appointment: dto.FromAppointment(appt)})
}

// CancelAppointment DELETE /v1/appointments/:id.
func (h *Handlers) CancelAppointment(c *fiber.Ctx) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	if err := h.appts.Cancel(c.UserContext(), actorFrom(c), id); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (h *Handlers) ApproveAppointment(c *fiber.Ctx) error {
	return h.transition(c, h.appts.Approve)
}

func (h *Handlers) RejectAppointment(c *fiber.Ctx) error {
	return h.transition(c, h.appts.Reject)
}

func (h *Handlers) ServeAppointment(c *fiber.Ctx) error {
	return h.transition(c, h.appts.MarkServing)
}

func (h *Handlers) CompleteAppointment(c *fiber.Ctx) error {
	return h.transition(c, h.appts.Complete)
}

// StaffDashboard GET /v1/staff/me/dashboard.
func (h *Handlers) StaffDashboard(c *fiber.Ctx) error {
	d, err := h.appts.StaffDashboard(c.UserContext(), actorFrom(c))
	if err != nil {
		return err
	}
	return c.JSON(dto.FromDashboard(d))
}

// DailySchedule GET /v1/staff/me/schedule?date=.
func (h *Handlers) DailySchedule(c *fiber.Ctx) error {
	s, err := h.appts.DailySchedule(c.UserContext(), actorFrom(c), c.Query("date"))
	if err != nil {
		return err
	}
	return c.JSON(dto.FromSchedule(s))
}

// AddSlot POST /v1/availability.
func (h *Handlers) AddSlot(c *fiber.Ctx) error {
	var req dto.SlotRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest("invalid payload")
	}
	slot, err := h.slots.AddSlot(c.UserContext(), actorFrom(c), availability.SlotInput{
		Date:        req.Date,
		StartTime:   req.StartTime,
		EndTime:     req.EndTime,
		IsAvailable: req.IsAvailable,
	})
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(dto.SlotResponse{Slot: dto.FromSlot(slot)})
}

// AddWeeklySlots POST /v1/availability/weekly.
func (h *Handlers) AddWeeklySlots(c *fiber.Ctx) error {
	var req dto.WeeklySlotsRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest("invalid payload")
	}
	rows, err := h.slots.AddWeekly(c.UserContext(), actorFrom(c), availability.WeeklyInput{
		StartDate:   req.StartDate,
		UntilDate:   req.UntilDate,
		Weekdays:    req.Weekdays,
		Interval:    req.Interval,
		StartTime:   req.StartTime,
		EndTime:     req.EndTime,
		IsAvailable: req.IsAvailable,
	})
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(dto.SlotList{Slots: dto.FromSlots(rows)})
}

// ToggleSlot POST /v1/availability/:id/toggle.
func (h *Handlers) ToggleSlot(c *fiber.Ctx) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	slot, err := h.slots.ToggleSlot(c.UserContext(), actorFrom(c), id)
	if err != nil {
		return err
	}
	return c.JSON(dto.SlotResponse{Slot: dto.FromSlot(slot)})
}

// RemoveSlot DELETE /v1/availability/:id.
func (h *Handlers) RemoveSlot(c *fiber.Ctx) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	if err := h.slots.RemoveSlot(c.UserContext(), actorFrom(c), id); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// AvailabilityCalendar GET /v1/availability/calendar?year=&month=.
func (h *Handlers) AvailabilityCalendar(c *fiber.Ctx) error {
	year := c.QueryInt("year", 0)
	month := c.QueryInt("month", 0)
	cal, err := h.slots.MonthCalendar(c.UserContext(), actorFrom(c), year, month)
	if err != nil {
		return err
	}
	return c.JSON(dto.FromCalendar(cal))
}

// ListNotifications GET /v1/notifications.
func (h *Handlers) ListNotifications(c *fiber.Ctx) error {
	in, err := h.inbox.List(c.UserContext(), actorFrom(c))
	if err != nil {
		return err
	}
	return c.JSON(dto.FromInbox(in))
}

// UnreadCount GET /v1/notifications/unread.
func (h *Handlers) UnreadCount(c *fiber.Ctx) error {
	n, err := h.inbox.UnreadCount(c.UserContext(), actorFrom(c))
	if err != nil {
		return err
	}
	return c.JSON(dto.UnreadCount{Unread: n})
}

// MarkAllRead POST /v1/notifications/read.
func (h *Handlers) MarkAllRead(c *fiber.Ctx) error {
	n, err := h.inbox.MarkAllRead(c.UserContext(), actorFrom(c))
	if err != nil {
		return err
	}
	return c.JSON(dto.MarkedRead{Marked: n})
}

// DeleteNotification DELETE /v1/notifications/:id.
func (h *Handlers) DeleteNotification(c *fiber.Ctx) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	if err := h.inbox.Delete(c.UserContext(), actorFrom(c), id); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (h *Handlers) transition(c *fiber.Ctx, fn func(context.Context, domain.Actor, uuid.UUID) (domain.Appointment, error)) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	appt, err := fn(c.UserContext(), actorFrom(c), id)
	if err != nil {
		return err
	}
	return c.JSON(dto.AppointmentResponse{Appointment: dto.FromAppointment(appt)})
}

func pathID(c *fiber.Ctx, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Params(name))
	if err != nil {
		return uuid.Nil, badRequest(name + " must be a UUID")
	}
	return id, nil
}
