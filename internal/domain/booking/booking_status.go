package booking

import (
	"fmt"

	"github.com/mentorkita/service-booking/internal/domain"
)

// Status represents the current state of a booking in its lifecycle.
type Status string

const (
	StatusPending   Status = "pending"
	StatusConfirmed Status = "confirmed"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
	StatusRejected  Status = "rejected"
	StatusNoShow    Status = "no_show"
)

// validTransitions defines the state machine for booking status transitions,
// independent of who is acting.
var validTransitions = map[Status][]Status{
	StatusPending:   {StatusConfirmed, StatusCancelled, StatusRejected, StatusNoShow},
	StatusConfirmed: {StatusCompleted, StatusCancelled, StatusNoShow},
	StatusCompleted: {},
	StatusCancelled: {},
	StatusRejected:  {},
	StatusNoShow:    {},
}

// roleTransitions narrows the state machine per actor role. Admins bypass this
// table entirely: they may force any status from any state.
var roleTransitions = map[domain.Role]map[Status][]Status{
	domain.RoleStudent: {
		StatusPending:   {StatusCancelled},
		StatusConfirmed: {StatusCancelled},
	},
	domain.RoleMentor: {
		StatusPending:   {StatusConfirmed, StatusRejected, StatusNoShow},
		StatusConfirmed: {StatusCompleted, StatusCancelled, StatusNoShow},
	},
}

// IsValid returns true if the status is a recognized booking status.
func (s Status) IsValid() bool {
	_, exists := validTransitions[s]
	return exists
}

// CanTransitionTo returns true if a transition from this status to the target is allowed.
func (s Status) CanTransitionTo(target Status) bool {
	allowed, exists := validTransitions[s]
	if !exists {
		return false
	}
	for _, t := range allowed {
		if t == target {
			return true
		}
	}
	return false
}

// IsTerminal returns true if no further transitions are possible from this status.
func (s Status) IsTerminal() bool {
	allowed, exists := validTransitions[s]
	if !exists {
		return true
	}
	return len(allowed) == 0
}

// Blocks returns true if a booking in this status occupies its time slot.
// Terminal statuses release the slot.
func (s Status) Blocks() bool {
	return s == StatusPending || s == StatusConfirmed
}

// AllowedFor returns true if the role-gated transition table permits the given
// actor role to move a booking from this status to the target.
func (s Status) AllowedFor(role domain.Role, target Status) bool {
	if role == domain.RoleAdmin {
		return target.IsValid()
	}
	allowed, exists := roleTransitions[role]
	if !exists {
		return false
	}
	for _, t := range allowed[s] {
		if t == target {
			return true
		}
	}
	return false
}

// String returns the string representation of the status.
func (s Status) String() string {
	return string(s)
}

// ParseStatus converts a string to a Status, returning an error if invalid.
func ParseStatus(s string) (Status, error) {
	status := Status(s)
	if !status.IsValid() {
		return "", fmt.Errorf("invalid booking status: %s", s)
	}
	return status, nil
}
