package review

import (
	"context"

	"github.com/google/uuid"
)

// Repository defines persistence operations for reviews. Every mutation runs
// in one transaction with the recomputation of the mentor profile's rating
// aggregate, so the denormalized average is never observably stale relative
// to the review set.
type Repository interface {
	// CreateWithAggregate verifies eligibility (parent booking completed, owned
	// by the review's student, no existing review), inserts the review, and
	// recomputes the mentor profile's rating aggregate, all in one transaction.
	CreateWithAggregate(ctx context.Context, r *Review) error

	// UpdateWithAggregate persists an edited review and recomputes the
	// aggregate in the same transaction.
	UpdateWithAggregate(ctx context.Context, r *Review) error

	// DeleteWithAggregate removes the review and recomputes the aggregate in
	// the same transaction.
	DeleteWithAggregate(ctx context.Context, id uuid.UUID) error

	// FindByID retrieves a review by its unique identifier.
	FindByID(ctx context.Context, id uuid.UUID) (*Review, error)

	// FindByBookingID retrieves the review attached to a booking, if any.
	FindByBookingID(ctx context.Context, bookingID uuid.UUID) (*Review, error)

	// FindByMentorProfileID lists a mentor's reviews, newest first.
	FindByMentorProfileID(ctx context.Context, mentorProfileID uuid.UUID, page, limit int) ([]*Review, int64, error)
}
