package availability

import (
	"context"

	"github.com/google/uuid"
)

// Repository defines persistence operations for availability windows.
type Repository interface {
	// ReplaceForMentor atomically swaps the mentor's full availability set:
	// delete-all-then-insert-all in one transaction, so a partial failure never
	// leaves a mixed old/new schedule.
	ReplaceForMentor(ctx context.Context, mentorProfileID uuid.UUID, windows []*Window) error

	// FindForMentor retrieves all windows for a mentor, active or not.
	FindForMentor(ctx context.Context, mentorProfileID uuid.UUID) (WindowSet, error)

	// FindActiveForDay retrieves the mentor's active windows for one weekday.
	FindActiveForDay(ctx context.Context, mentorProfileID uuid.UUID, day Weekday) (WindowSet, error)
}
