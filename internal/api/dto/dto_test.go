package dto

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/google/uuid"

	"queuesmart/backend/internal/domain"
	"queuesmart/backend/internal/service/queue"
)

func TestFromAppointment_JSONShape(t *testing.T) {
	n := 3
	appt := domain.Appointment{
		ID:          uuid.MustParse("00000000-0000-0000-0000-000000000007"),
		ClientID:    "client-a",
		ServiceID:   "svc-cut",
		StaffID:     "staff-a",
		Date:        "2024-06-03",
		Time:        "10:00",
		Status:      domain.StatusApproved,
		QueueNumber: &n,
	}

	raw, err := json.Marshal(FromAppointment(appt))
	if err != nil {
		t.Fatalf("Marshal error: %v", err)
	}
	for _, want := range []string{
		`"id":"00000000-0000-0000-0000-000000000007"`,
		`"staff_id":"staff-a"`,
		`"status":"approved"`,
		`"queue_number":3`,
	} {
		if !strings.Contains(string(raw), want) {
			t.Fatalf("json %s missing %s", raw, want)
		}
	}

	appt.QueueNumber = nil
	raw, _ = json.Marshal(FromAppointment(appt))
	if !strings.Contains(string(raw), `"queue_number":null`) {
		t.Fatalf("json %s should carry an explicit null queue number", raw)
	}
}

func TestFromDashboard_EmptyListsStayArrays(t *testing.T) {
	raw, err := json.Marshal(FromDashboard(queue.Dashboard{}))
	if err != nil {
		t.Fatalf("Marshal error: %v", err)
	}
	if got := string(raw); got != `{"pending":[],"approved":[],"serving":null}` {
		t.Fatalf("json = %s", got)
	}
}

func TestFromNotification_OptionalAppointment(t *testing.T) {
	id := uuid.New()
	out := FromNotification(domain.Notification{ID: uuid.New(), AppointmentID: &id, Kind: domain.KindApproval})
	if out.AppointmentID == nil || *out.AppointmentID != id.String() {
		t.Fatalf("AppointmentID = %v, want %s", out.AppointmentID, id)
	}
	out = FromNotification(domain.Notification{ID: uuid.New(), Kind: domain.KindReminder})
	if out.AppointmentID != nil {
		t.Fatalf("AppointmentID = %v, want nil", *out.AppointmentID)
	}
}
