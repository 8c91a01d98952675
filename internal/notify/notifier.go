package notify

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

// Event names emitted by the booking core.
const (
	EventBookingCreated = "booking.created"
	EventBookingUpdated = "booking.updated"
)

// BookingSnapshot is the booking representation carried in notifications.
type BookingSnapshot struct {
	ID               uuid.UUID `json:"id"`
	Code             string    `json:"code"`
	StudentID        uuid.UUID `json:"student_id"`
	MentorID         uuid.UUID `json:"mentor_id"`
	MentorProfileID  uuid.UUID `json:"mentor_profile_id"`
	Status           string    `json:"status"`
	ScheduledAt      string    `json:"scheduled_at"`
	DurationMinutes  int       `json:"duration_minutes"`
	TotalAmountCents int64     `json:"total_amount_cents"`
	Currency         string    `json:"currency"`
	Topic            string    `json:"topic"`
}

// StatusChangePayload is the payload of booking.created/booking.updated events.
type StatusChangePayload struct {
	OldStatus string          `json:"old_status,omitempty"`
	NewStatus string          `json:"new_status"`
	Booking   BookingSnapshot `json:"booking"`
}

// Notifier is the external notification sink. Delivery is fire-and-forget
// relative to the triggering transaction: implementations must never fail the
// caller, and callers must only notify after a successful commit.
type Notifier interface {
	Notify(ctx context.Context, eventName string, channels []string, payload interface{})
}

// MentorChannel is the private channel for one mentor user.
func MentorChannel(mentorID uuid.UUID) string {
	return fmt.Sprintf("mentor.%s", mentorID)
}

// StudentChannel is the private channel for one student user.
func StudentChannel(studentID uuid.UUID) string {
	return fmt.Sprintf("student.%s", studentID)
}
