package domain

import "github.com/google/uuid"

// Role identifies what kind of user is acting on the system.
type Role string

const (
	RoleStudent Role = "student"
	RoleMentor  Role = "mentor"
	RoleAdmin   Role = "admin"
)

// IsValid returns true if the role is recognized.
func (r Role) IsValid() bool {
	switch r {
	case RoleStudent, RoleMentor, RoleAdmin:
		return true
	}
	return false
}

// Actor is the authenticated principal performing an operation.
type Actor struct {
	ID   uuid.UUID
	Role Role
}

// CurrencyIDR is the only currency the marketplace settles in.
const CurrencyIDR = "IDR"
