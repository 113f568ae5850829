package domain

type Role string

const (
	RoleAdmin  Role = "admin"
	RoleStaff  Role = "staff"
	RoleClient Role = "client"
)

func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleStaff, RoleClient:
		return true
	}
	return false
}

// Actor is the verified caller of an operation. Transports build it from a
// bearer token and pass it down explicitly.
type Actor struct {
	UserID string
	Role   Role
}

func (a Actor) IsAdmin() bool  { return a.Role == RoleAdmin }
func (a Actor) IsStaff() bool  { return a.Role == RoleStaff }
func (a Actor) IsClient() bool { return a.Role == RoleClient }

// IsStaffMember reports whether the actor is the given staff member.
func (a Actor) IsStaffMember(staffID string) bool {
	return a.Role == RoleStaff && a.UserID != "" && a.UserID == staffID
}
