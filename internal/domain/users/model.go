package users

import (
	"time"

	"github.com/google/uuid"
)

// Role of a signed-up account.
type Role string

const (
	RoleProvider Role = "provider"
	RolePatient  Role = "patient"
	RoleAdmin    Role = "admin"
)

// ValidRole reports whether r is one of the known roles.
func ValidRole(r Role) bool {
	switch r {
	case RoleProvider, RolePatient, RoleAdmin:
		return true
	}
	return false
}

// User is an account. Providers and admins authenticate by email;
// patients by full name. The case number links a patient account to its
// case records. New accounts start unapproved and cannot sign in until an
// admin approves them.
type User struct {
	ID           uuid.UUID `json:"id"`
	Role         Role      `json:"role"`
	Email        string    `json:"email,omitempty"`
	PasswordHash string    `json:"-"`
	FullName     string    `json:"full_name"`
	CaseNumber   string    `json:"case_number,omitempty"`
	Approved     bool      `json:"approved"`
	CreatedAt    time.Time `json:"created_at"`
}
