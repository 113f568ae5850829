// Package notify delivers appointment notification events to the
// configured sinks.
package notify

import (
	"fmt"
	"time"

	"queuesmart/backend/internal/domain"
)

const displayDateLayout = "January 02, 2006"

// Render turns an event into the message shown in the inbox and sent to
// external channels.
func Render(ev domain.NotificationEvent) string {
	c := ev.Context
	when := displayDate(c.Date) + " at " + c.Time

	switch ev.Kind {
	case domain.KindConfirmation:
		return fmt.Sprintf("Your appointment for %s on %s has been booked. We will notify you when it's confirmed.", c.ServiceName, when)
	case domain.KindBooking:
		return fmt.Sprintf("New booking from %s for %s on %s", c.ClientName, c.ServiceName, when)
	case domain.KindApproval:
		msg := fmt.Sprintf("Great news! Your appointment for %s has been approved!", c.ServiceName)
		if c.QueueNumber != nil {
			msg += fmt.Sprintf(" Your queue number is #%d", *c.QueueNumber)
		}
		return msg
	case domain.KindRejection:
		return fmt.Sprintf("Unfortunately, your appointment for %s on %s has been rejected. Please book another time slot.", c.ServiceName, when)
	case domain.KindReminder:
		if c.QueueNumber == nil {
			return fmt.Sprintf("It's your turn! Your appointment for %s is now being served. Please come to the counter.", c.ServiceName)
		}
		return fmt.Sprintf("It's your turn! Queue #%d is now being served for %s. Please come to the counter.", *c.QueueNumber, c.ServiceName)
	case domain.KindCompleted:
		return fmt.Sprintf("Your appointment for %s has been completed. Thank you for visiting!", c.ServiceName)
	case domain.KindCancellation:
		return fmt.Sprintf("Appointment cancelled: %s cancelled their booking for %s on %s. Time slot is now available.", c.ClientName, c.ServiceName, when)
	case domain.KindEdited:
		before := displayDate(c.PreviousDate) + " at " + c.PreviousTime
		return fmt.Sprintf("Appointment modified: %s changed their %s appointment from %s to %s", c.ClientName, c.ServiceName, before, when)
	}
	return fmt.Sprintf("Your appointment for %s on %s was updated.", c.ServiceName, when)
}

// Subject is the short title used by channels that carry one.
func Subject(ev domain.NotificationEvent) string {
	switch ev.Kind {
	case domain.KindBooking:
		return "QueueSmart - New Appointment Booking"
	case domain.KindCancellation:
		return "QueueSmart - Appointment Cancelled"
	case domain.KindEdited:
		return "QueueSmart - Appointment Modified"
	}
	return "QueueSmart - Appointment " + titleCase(string(ev.Kind))
}

func displayDate(value string) string {
	d, err := time.Parse(domain.DateLayout, value)
	if err != nil {
		return value
	}
	return d.Format(displayDateLayout)
}

func titleCase(s string) string {
	if s == "" {
		return s
	}
	b := []byte(s)
	if b[0] >= 'a' && b[0] <= 'z' {
		b[0] -= 'a' - 'A'
	}
	return string(b)
}
