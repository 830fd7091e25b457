package models

// Role is the account type assigned at signup.
type Role string

const (
	RoleMentor Role = "Mentor"
	RoleClient Role = "Client"
	RoleAdmin  Role = "Admin"
)

// Valid reports whether r is one of the three known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleMentor, RoleClient, RoleAdmin:
		return true
	}
	return false
}

// CanBook reports whether the role may create session bookings.
func (r Role) CanBook() bool { return r == RoleClient }

// CanManageSessions reports whether the role may reschedule or cancel sessions.
func (r Role) CanManageSessions() bool { return r == RoleMentor }

// CanPublish reports whether the role may create, edit, or delete articles.
func (r Role) CanPublish() bool { return r == RoleAdmin }
