package domain

import (
	"strings"

	"github.com/uptrace/bun"
)

// User is read from the external user directory. The core only relies on
// id, role and display fields.
type User struct {
	bun.BaseModel `bun:"table:users"`

	ID        string `bun:"id,pk"`
	Email     string `bun:"email,notnull"`
	FirstName string `bun:"first_name,notnull"`
	LastName  string `bun:"last_name,notnull"`
	Role      Role   `bun:"role,notnull"`
	Phone     string `bun:"phone"`
	IsActive  bool   `bun:"is_active,notnull"`
}

func (u User) FullName() string {
	return strings.TrimSpace(u.FirstName + " " + u.LastName)
}

type Service struct {
	bun.BaseModel `bun:"table:services"`

	ID              string `bun:"id,pk"`
	Name            string `bun:"name,notnull"`
	Description     string `bun:"description"`
	DurationMinutes int    `bun:"duration_minutes,notnull"`

	StaffIDs []string `bun:"-"`
}

func (s Service) ProvidedBy(staffID string) bool {
	for _, id := range s.StaffIDs {
		if id == staffID {
			return true
		}
	}
	return false
}

// Bookable is false for a service nobody performs.
func (s Service) Bookable() bool {
	return len(s.StaffIDs) > 0
}

type ServiceStaff struct {
	bun.BaseModel `bun:"table:service_staff"`

	ServiceID string `bun:"service_id,pk"`
	StaffID   string `bun:"staff_id,pk"`
}
