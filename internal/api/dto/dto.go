// Package dto holds the JSON messages shared by the gRPC and HTTP surfaces.
package dto

import (
	"time"

	"queuesmart/backend/internal/domain"
	"queuesmart/backend/internal/service/availability"
	"queuesmart/backend/internal/service/notifications"
	"queuesmart/backend/internal/service/queue"
)

type Empty struct{}

type Appointment struct {
	ID          string        `json:"id"`
	ClientID    string        `json:"client_id"`
	ServiceID   string        `json:"service_id"`
	StaffID     string        `json:"staff_id"`
	Date        string        `json:"date"`
	Time        string        `json:"time"`
	Status      domain.Status `json:"status"`
	QueueNumber *int          `json:"queue_number"`
	CreatedAt   time.Time     `json:"created_at"`
	UpdatedAt   time.Time     `json:"updated_at"`
}

type Slot struct {
	ID          string    `json:"id"`
	StaffID     string    `json:"staff_id"`
	Date        string    `json:"date"`
	StartTime   string    `json:"start_time"`
	EndTime     string    `json:"end_time"`
	IsAvailable bool      `json:"is_available"`
	CreatedAt   time.Time `json:"created_at"`
}

type Notification struct {
	ID            string                  `json:"id"`
	AppointmentID *string                 `json:"appointment_id,omitempty"`
	Kind          domain.NotificationKind `json:"kind"`
	Message       string                  `json:"message"`
	IsRead        bool                    `json:"is_read"`
	SentAt        time.Time               `json:"sent_at"`
}

// Requests

type CreateAppointmentRequest struct {
	ClientID  string `json:"client_id,omitempty"`
	ServiceID string `json:"service_id"`
	StaffID   string `json:"staff_id"`
	Date      string `json:"date"`
	Time      string `json:"time"`
}

type EditAppointmentRequest struct {
	AppointmentID string `json:"appointment_id,omitempty"`
	ServiceID     string `json:"service_id"`
	StaffID       string `json:"staff_id"`
	Date          string `json:"date"`
	Time          string `json:"time"`
}

type AppointmentIDRequest struct {
	AppointmentID string `json:"appointment_id"`
}

type ScheduleRequest struct {
	Date string `json:"date,omitempty"`
}

type ListSlotsRequest struct {
	StaffID              string `json:"staff_id"`
	FromDate             string `json:"from_date,omitempty"`
	ExcludeAppointmentID string `json:"exclude_appointment_id,omitempty"`
}

type SlotRequest struct {
	Date        string `json:"date"`
	StartTime   string `json:"start_time"`
	EndTime     string `json:"end_time"`
	IsAvailable *bool  `json:"is_available,omitempty"`
}

type WeeklySlotsRequest struct {
	StartDate   string  `json:"start_date"`
	UntilDate   string  `json:"until_date"`
	Weekdays    []int16 `json:"weekdays"`
	Interval    int     `json:"interval,omitempty"`
	StartTime   string  `json:"start_time"`
	EndTime     string  `json:"end_time"`
	IsAvailable *bool   `json:"is_available,omitempty"`
}

type SlotIDRequest struct {
	SlotID string `json:"slot_id"`
}

type CalendarRequest struct {
	Year  int `json:"year,omitempty"`
	Month int `json:"month,omitempty"`
}

type NotificationIDRequest struct {
	NotificationID string `json:"notification_id"`
}

// Responses

type AppointmentResponse struct {
	Appointment Appointment `json:"appointment"`
}

type AppointmentList struct {
	Appointments []Appointment `json:"appointments"`
}

type Dashboard struct {
	Pending  []Appointment `json:"pending"`
	Approved []Appointment `json:"approved"`
	Serving  *Appointment  `json:"serving"`
}

type Schedule struct {
	Date      string        `json:"date"`
	Pending   []Appointment `json:"pending"`
	Approved  []Appointment `json:"approved"`
	Serving   []Appointment `json:"serving"`
	Completed []Appointment `json:"completed"`
}

type SlotResponse struct {
	Slot Slot `json:"slot"`
}

type SlotList struct {
	Slots []Slot `json:"slots"`
}

type CalendarDay struct {
	Date   string `json:"date"`
	Status string `json:"status"`
	Slots  []Slot `json:"slots"`
}

type Calendar struct {
	Year  int           `json:"year"`
	Month int           `json:"month"`
	Days  []CalendarDay `json:"days"`
}

type Inbox struct {
	Notifications []Notification `json:"notifications"`
	Unread        int            `json:"unread"`
}

type UnreadCount struct {
	Unread int `json:"unread"`
}

type MarkedRead struct {
	Marked int `json:"marked"`
}

func FromAppointment(a domain.Appointment) Appointment {
	return Appointment{
		ID:          a.ID.String(),
		ClientID:    a.ClientID,
		ServiceID:   a.ServiceID,
		StaffID:     a.StaffID,
		Date:        a.Date,
		Time:        a.Time,
		Status:      a.Status,
		QueueNumber: a.QueueNumber,
		CreatedAt:   a.CreatedAt,
		UpdatedAt:   a.UpdatedAt,
	}
}

func FromAppointments(rows []domain.Appointment) []Appointment {
	out := make([]Appointment, 0, len(rows))
	for _, a := range rows {
		out = append(out, FromAppointment(a))
	}
	return out
}

func FromSlot(s domain.AvailabilitySlot) Slot {
	return Slot{
		ID:          s.ID.String(),
		StaffID:     s.StaffID,
		Date:        s.Date,
		StartTime:   s.StartTime,
		EndTime:     s.EndTime,
		IsAvailable: s.IsAvailable,
		CreatedAt:   s.CreatedAt,
	}
}

func FromSlots(rows []domain.AvailabilitySlot) []Slot {
	out := make([]Slot, 0, len(rows))
	for _, s := range rows {
		out = append(out, FromSlot(s))
	}
	return out
}

func FromNotification(n domain.Notification) Notification {
	out := Notification{
		ID:      n.ID.String(),
		Kind:    n.Kind,
		Message: n.Message,
		IsRead:  n.IsRead,
		SentAt:  n.SentAt,
	}
	if n.AppointmentID != nil {
		id := n.AppointmentID.String()
		out.AppointmentID = &id
	}
	return out
}

func FromDashboard(d queue.Dashboard) Dashboard {
	out := Dashboard{
		Pending:  FromAppointments(d.Pending),
		Approved: FromAppointments(d.Approved),
	}
	if d.Serving != nil {
		s := FromAppointment(*d.Serving)
		out.Serving = &s
	}
	return out
}

func FromSchedule(s queue.Schedule) Schedule {
	return Schedule{
		Date:      s.Date,
		Pending:   FromAppointments(s.Pending),
		Approved:  FromAppointments(s.Approved),
		Serving:   FromAppointments(s.Serving),
		Completed: FromAppointments(s.Completed),
	}
}

func FromCalendar(c availability.Calendar) Calendar {
	out := Calendar{Year: c.Year, Month: c.Month, Days: make([]CalendarDay, 0, len(c.Days))}
	for _, d := range c.Days {
		out.Days = append(out.Days, CalendarDay{Date: d.Date, Status: string(d.Status), Slots: FromSlots(d.Slots)})
	}
	return out
}

func FromInbox(in notifications.Inbox) Inbox {
	out := Inbox{Notifications: make([]Notification, 0, len(in.Notifications)), Unread: in.Unread}
	for _, n := range in.Notifications {
		out.Notifications = append(out.Notifications, FromNotification(n))
	}
	return out
}
