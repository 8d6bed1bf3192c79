package models

import (
	"time"

	"github.com/google/uuid"
)

// Role governs what an authenticated user may do.
type Role string

const (
	RoleAdmin      Role = "ADMIN"
	RoleSupervisor Role = "SUPERVISOR"
	RoleSchool     Role = "SCHOOL"
	RoleExecutive  Role = "EXECUTIVE"
)

// ValidRoles contains all valid role values.
var ValidRoles = []Role{RoleAdmin, RoleSupervisor, RoleSchool, RoleExecutive}

// IsValid reports whether r is one of the known roles.
func (r Role) IsValid() bool {
	for _, v := range ValidRoles {
		if v == r {
			return true
		}
	}
	return false
}

// User is an account that can sign in.
// AssignedSchoolIDs is only meaningful for SUPERVISOR accounts.
type User struct {
	ID                uuid.UUID   `json:"id"`
	Email             string      `json:"email"`
	Name              string      `json:"name"`
	Role              Role        `json:"role"`
	PasswordHash      string      `json:"-"`
	AssignedSchoolIDs []uuid.UUID `json:"assignedSchoolIds,omitempty"`
	CreatedAt         time.Time   `json:"createdAt"`
	UpdatedAt         time.Time   `json:"updatedAt"`
}

// UserSummary is the public projection of a user embedded in other records.
type UserSummary struct {
	ID    uuid.UUID `json:"id"`
	Name  string    `json:"name"`
	Email string    `json:"email"`
	Role  Role      `json:"role,omitempty"`
}

// Actor is the identity performing the current request.
type Actor struct {
	ID    uuid.UUID `json:"id"`
	Email string    `json:"email"`
	Name  string    `json:"name"`
	Role  Role      `json:"role"`
}

// ActorFromUser projects a stored user into a request actor.
func ActorFromUser(u *User) *Actor {
	return &Actor{ID: u.ID, Email: u.Email, Name: u.Name, Role: u.Role}
}
