package authz

import (
	"github.com/google/uuid"

	"github.com/mentorkita/service-booking/internal/domain"
)

// Action names the operations the policy gates.
type Action string

const (
	ActionViewBooking   Action = "booking.view"
	ActionCreateBooking Action = "booking.create"
	ActionDeleteBooking Action = "booking.delete"
	ActionManageWindows Action = "availability.manage"
	ActionCreatePayment Action = "payment.create"
	ActionViewPayment   Action = "payment.view"
	ActionRefundPayment Action = "payment.refund"
	ActionCreateReview  Action = "review.create"
	ActionManageReview  Action = "review.manage"
	ActionListAll       Action = "list.all"
)

// Resource identifies what an action targets: the owning student and the
// mentor side of the record. Zero UUIDs mean "no such party".
type Resource struct {
	StudentID uuid.UUID
	MentorID  uuid.UUID
}

// Authorizer decides whether an actor may perform an action on a resource.
type Authorizer interface {
	Can(actor domain.Actor, action Action, resource Resource) bool
}

// Policy is the default role policy: students act on their own records,
// mentors act on records attached to their profile, admins do everything.
type Policy struct{}

// NewPolicy returns the default Policy.
func NewPolicy() *Policy {
	return &Policy{}
}

// Can reports whether actor may perform action on resource.
func (p *Policy) Can(actor domain.Actor, action Action, resource Resource) bool {
	if actor.Role == domain.RoleAdmin {
		return true
	}

	switch action {
	case ActionViewBooking, ActionViewPayment:
		return p.isParty(actor, resource)
	case ActionCreateBooking, ActionCreatePayment, ActionCreateReview, ActionManageReview:
		return actor.Role == domain.RoleStudent && actor.ID == resource.StudentID
	case ActionManageWindows:
		return actor.Role == domain.RoleMentor && actor.ID == resource.MentorID
	case ActionDeleteBooking, ActionRefundPayment, ActionListAll:
		return false
	default:
		return false
	}
}

func (p *Policy) isParty(actor domain.Actor, resource Resource) bool {
	switch actor.Role {
	case domain.RoleStudent:
		return actor.ID == resource.StudentID
	case domain.RoleMentor:
		return actor.ID == resource.MentorID
	default:
		return false
	}
}
