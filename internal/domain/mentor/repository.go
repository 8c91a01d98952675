package mentor

import (
	"context"

	"github.com/google/uuid"
)

// Repository defines persistence operations for mentor profiles.
type Repository interface {
	// FindByID retrieves a mentor profile by its unique identifier.
	FindByID(ctx context.Context, id uuid.UUID) (*Profile, error)

	// FindByUserID retrieves the profile belonging to a mentor user.
	FindByUserID(ctx context.Context, userID uuid.UUID) (*Profile, error)

	// Save persists a new mentor profile.
	Save(ctx context.Context, p *Profile) error

	// Update persists changes to an existing mentor profile.
	Update(ctx context.Context, p *Profile) error

	// IncrementSessions bumps total_sessions when a booking completes.
	IncrementSessions(ctx context.Context, id uuid.UUID) error
}
