package payment

import (
	"context"

	"github.com/google/uuid"
)

// Repository defines persistence operations for the Payment aggregate.
type Repository interface {
	// CreateForBooking inserts a pending payment after verifying, inside one
	// transaction with the booking row locked, that the amount equals the
	// booking's total and that no paid payment already exists for it.
	CreateForBooking(ctx context.Context, p *Payment) error

	// FindByID retrieves a payment by its unique identifier.
	FindByID(ctx context.Context, id uuid.UUID) (*Payment, error)

	// FindByCode retrieves a payment by its human-readable code.
	FindByCode(ctx context.Context, code string) (*Payment, error)

	// FindByBookingID retrieves the payment attached to a booking, or a
	// not-found error if none exists.
	FindByBookingID(ctx context.Context, bookingID uuid.UUID) (*Payment, error)

	// Update persists changes to an existing payment with optimistic locking.
	Update(ctx context.Context, p *Payment) error

	// FindByStudentID lists payments on bookings created by the student.
	FindByStudentID(ctx context.Context, studentID uuid.UUID, page, limit int) ([]*Payment, int64, error)

	// FindByMentorProfileID lists payments on bookings addressed to the mentor profile.
	FindByMentorProfileID(ctx context.Context, mentorProfileID uuid.UUID, page, limit int) ([]*Payment, int64, error)

	// ListAll retrieves all payments with pagination (admin).
	ListAll(ctx context.Context, page, limit int) ([]*Payment, int64, error)
}
