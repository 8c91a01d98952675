package booking

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Repository defines persistence operations for the Booking aggregate.
type Repository interface {
	// Reserve atomically validates the requested slot and inserts the booking:
	// the mentor's availability windows and existing slot-blocking bookings are
	// checked inside the same transaction that performs the insert, guarded
	// against concurrent reservations of the same slot. Returns a conflict
	// error if the slot is closed or already taken.
	Reserve(ctx context.Context, bk *Booking) error

	// FindByID retrieves a booking by its unique identifier.
	FindByID(ctx context.Context, id uuid.UUID) (*Booking, error)

	// FindByCode retrieves a booking by its human-readable code.
	FindByCode(ctx context.Context, code string) (*Booking, error)

	// FindConflict returns the first slot-blocking booking for the mentor whose
	// interval overlaps [start, end) under half-open semantics, or nil if the
	// slot is free. excludeID, when non-nil, is skipped (used when rescheduling).
	FindConflict(ctx context.Context, mentorProfileID uuid.UUID, start, end time.Time, excludeID *uuid.UUID) (*Booking, error)

	// Transition loads the booking with a row lock, applies mutate, and persists
	// the result in one transaction. The returned status is the pre-mutation one.
	Transition(ctx context.Context, id uuid.UUID, mutate func(*Booking) error) (*Booking, Status, error)

	// Update persists changes to an existing booking with optimistic locking.
	Update(ctx context.Context, bk *Booking) error

	// FindByStudentID retrieves bookings created by a student, with pagination.
	FindByStudentID(ctx context.Context, studentID uuid.UUID, filter ListFilter, page, limit int) ([]*Booking, int64, error)

	// FindByMentorProfileID retrieves bookings addressed to a mentor profile, with pagination.
	FindByMentorProfileID(ctx context.Context, mentorProfileID uuid.UUID, filter ListFilter, page, limit int) ([]*Booking, int64, error)

	// ListAll retrieves all bookings with pagination (admin).
	ListAll(ctx context.Context, filter ListFilter, page, limit int) ([]*Booking, int64, error)

	// HasPayment reports whether any payment row references the booking.
	HasPayment(ctx context.Context, id uuid.UUID) (bool, error)

	// Delete removes a booking. Callers must ensure no payment exists.
	Delete(ctx context.Context, id uuid.UUID) error
}

// ListFilter narrows booking listings.
type ListFilter struct {
	Status    *Status
	DateFrom  *time.Time
	DateUntil *time.Time
}
