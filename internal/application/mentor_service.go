package application

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/mentorkita/service-booking/internal/domain"
	"github.com/mentorkita/service-booking/internal/domain/mentor"
)

// CreateProfileRequest holds the data needed to open a mentor profile.
type CreateProfileRequest struct {
	HourlyRateCents int64 `json:"hourly_rate_cents" binding:"required"`
}

// MentorProfileDTO is the response representation of a mentor profile.
type MentorProfileDTO struct {
	ID              uuid.UUID `json:"id"`
	UserID          uuid.UUID `json:"user_id"`
	HourlyRateCents int64     `json:"hourly_rate_cents"`
	Currency        string    `json:"currency"`
	Available       bool      `json:"available"`
	RatingAverage   float64   `json:"rating_average"`
	TotalReviews    int       `json:"total_reviews"`
	TotalSessions   int       `json:"total_sessions"`
	CreatedAt       time.Time `json:"created_at"`
}

// MentorService manages the slice of mentor profiles this service owns.
type MentorService struct {
	mentors mentor.Repository
	logger  *zap.Logger
}

// NewMentorService creates a new MentorService.
func NewMentorService(mentors mentor.Repository, logger *zap.Logger) *MentorService {
	return &MentorService{mentors: mentors, logger: logger}
}

// CreateProfile opens a mentor profile for the acting mentor.
func (s *MentorService) CreateProfile(ctx context.Context, actor domain.Actor, req CreateProfileRequest) (*MentorProfileDTO, error) {
	if actor.Role != domain.RoleMentor {
		return nil, domain.NewForbiddenError("only mentors can open a profile")
	}
	if _, err := s.mentors.FindByUserID(ctx, actor.ID); err == nil {
		return nil, domain.NewConflictError("mentor profile already exists")
	} else if !domain.IsCode(err, domain.CodeNotFound) {
		return nil, err
	}

	profile, err := mentor.NewProfile(actor.ID, req.HourlyRateCents)
	if err != nil {
		return nil, err
	}
	if err := s.mentors.Save(ctx, profile); err != nil {
		return nil, err
	}

	result := toProfileDTO(profile)
	return &result, nil
}

// UpdateProfileRequest holds the mentor-editable profile fields.
type UpdateProfileRequest struct {
	HourlyRateCents *int64 `json:"hourly_rate_cents"`
	Available       *bool  `json:"available"`
}

// UpdateProfile edits the acting mentor's rate or availability toggle.
func (s *MentorService) UpdateProfile(ctx context.Context, actor domain.Actor, req UpdateProfileRequest) (*MentorProfileDTO, error) {
	profile, err := s.mentors.FindByUserID(ctx, actor.ID)
	if err != nil {
		return nil, err
	}

	if req.HourlyRateCents != nil {
		if err := profile.SetHourlyRate(*req.HourlyRateCents); err != nil {
			return nil, err
		}
	}
	if req.Available != nil {
		profile.SetAvailable(*req.Available)
	}
	if err := s.mentors.Update(ctx, profile); err != nil {
		return nil, err
	}

	result := toProfileDTO(profile)
	return &result, nil
}

// GetProfile retrieves a mentor profile by ID. Public.
func (s *MentorService) GetProfile(ctx context.Context, mentorProfileID uuid.UUID) (*MentorProfileDTO, error) {
	profile, err := s.mentors.FindByID(ctx, mentorProfileID)
	if err != nil {
		return nil, err
	}
	result := toProfileDTO(profile)
	return &result, nil
}

// GetOwnProfile retrieves the acting mentor's profile.
func (s *MentorService) GetOwnProfile(ctx context.Context, actor domain.Actor) (*MentorProfileDTO, error) {
	profile, err := s.mentors.FindByUserID(ctx, actor.ID)
	if err != nil {
		return nil, err
	}
	result := toProfileDTO(profile)
	return &result, nil
}

// --- Helpers ---

func toProfileDTO(p *mentor.Profile) MentorProfileDTO {
	return MentorProfileDTO{
		ID:              p.ID(),
		UserID:          p.UserID(),
		HourlyRateCents: p.HourlyRateCents(),
		Currency:        p.Currency(),
		Available:       p.Available(),
		RatingAverage:   p.RatingAverage(),
		TotalReviews:    p.TotalReviews(),
		TotalSessions:   p.TotalSessions(),
		CreatedAt:       p.CreatedAt(),
	}
}
