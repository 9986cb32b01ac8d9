package service

import "strings"

// Roles recognised by the lifecycle.
const (
	RoleStudent      = "student"
	RoleAdmin        = "admin"
	RoleProgramAdmin = "program_admin"
)

// Actor is the authenticated account performing a lifecycle operation.
type Actor struct {
	ID   uint
	Role string
}

// IsStudent reports whether the actor acts as an applicant.
func (a Actor) IsStudent() bool {
	return normalizeRole(a.Role) == RoleStudent
}

// IsAdmin reports whether the actor holds a global or per-program admin role.
func (a Actor) IsAdmin() bool {
	role := normalizeRole(a.Role)
	return role == RoleAdmin || role == RoleProgramAdmin
}

// IsRecognised reports whether the role is one the lifecycle grants anything to.
func (a Actor) IsRecognised() bool {
	return a.IsStudent() || a.IsAdmin()
}

func normalizeRole(role string) string {
	return strings.ToLower(strings.TrimSpace(role))
}
