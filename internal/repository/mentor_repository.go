package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/mentorkita/service-booking/internal/domain"
	"github.com/mentorkita/service-booking/internal/domain/mentor"
)

// MentorProfileModel is the GORM model for the mentor_profiles table.
type MentorProfileModel struct {
	ID              uuid.UUID `gorm:"type:uuid;primaryKey"`
	UserID          uuid.UUID `gorm:"type:uuid;uniqueIndex;not null"`
	HourlyRateCents int64     `gorm:"not null"`
	Currency        string    `gorm:"not null;size:3;default:'IDR'"`
	Available       bool      `gorm:"not null;default:true"`
	RatingAverage   float64   `gorm:"not null;default:0"`
	TotalReviews    int       `gorm:"not null;default:0"`
	TotalSessions   int       `gorm:"not null;default:0"`
	CreatedAt       time.Time `gorm:"not null"`
	UpdatedAt       time.Time `gorm:"not null"`
}

// TableName returns the table name for the GORM model.
func (MentorProfileModel) TableName() string {
	return "mentor_profiles"
}

// GormMentorRepository is the GORM-based implementation of mentor.Repository.
type GormMentorRepository struct {
	db *gorm.DB
}

// NewGormMentorRepository creates a new GormMentorRepository.
func NewGormMentorRepository(db *gorm.DB) *GormMentorRepository {
	return &GormMentorRepository{db: db}
}

// FindByID retrieves a mentor profile by its unique identifier.
func (r *GormMentorRepository) FindByID(ctx context.Context, id uuid.UUID) (*mentor.Profile, error) {
	var model MentorProfileModel
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.NewNotFoundError("MentorProfile", id.String())
		}
		return nil, fmt.Errorf("failed to find mentor profile by ID: %w", err)
	}
	return toDomainProfile(&model), nil
}

// FindByUserID retrieves the profile belonging to a mentor user.
func (r *GormMentorRepository) FindByUserID(ctx context.Context, userID uuid.UUID) (*mentor.Profile, error) {
	var model MentorProfileModel
	if err := r.db.WithContext(ctx).Where("user_id = ?", userID).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.NewNotFoundError("MentorProfile", userID.String())
		}
		return nil, fmt.Errorf("failed to find mentor profile by user: %w", err)
	}
	return toDomainProfile(&model), nil
}

// Save persists a new mentor profile.
func (r *GormMentorRepository) Save(ctx context.Context, p *mentor.Profile) error {
	model := &MentorProfileModel{
		ID:              p.ID(),
		UserID:          p.UserID(),
		HourlyRateCents: p.HourlyRateCents(),
		Currency:        p.Currency(),
		Available:       p.Available(),
		RatingAverage:   p.RatingAverage(),
		TotalReviews:    p.TotalReviews(),
		TotalSessions:   p.TotalSessions(),
		CreatedAt:       p.CreatedAt(),
		UpdatedAt:       p.UpdatedAt(),
	}
	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		return fmt.Errorf("failed to save mentor profile: %w", err)
	}
	return nil
}

// Update persists changes to an existing mentor profile.
func (r *GormMentorRepository) Update(ctx context.Context, p *mentor.Profile) error {
	result := r.db.WithContext(ctx).Model(&MentorProfileModel{}).
		Where("id = ?", p.ID()).
		Updates(map[string]interface{}{
			"hourly_rate_cents": p.HourlyRateCents(),
			"available":         p.Available(),
			"updated_at":        p.UpdatedAt(),
		})
	if result.Error != nil {
		return fmt.Errorf("failed to update mentor profile: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return domain.NewNotFoundError("MentorProfile", p.ID().String())
	}
	return nil
}

// IncrementSessions bumps total_sessions when a booking completes.
func (r *GormMentorRepository) IncrementSessions(ctx context.Context, id uuid.UUID) error {
	result := r.db.WithContext(ctx).Model(&MentorProfileModel{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"total_sessions": gorm.Expr("total_sessions + 1"),
			"updated_at":     time.Now().UTC(),
		})
	if result.Error != nil {
		return fmt.Errorf("failed to increment sessions: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return domain.NewNotFoundError("MentorProfile", id.String())
	}
	return nil
}

// --- Conversion Helpers ---

func toDomainProfile(m *MentorProfileModel) *mentor.Profile {
	return mentor.ReconstructProfile(
		m.ID,
		m.UserID,
		m.HourlyRateCents,
		m.Currency,
		m.Available,
		m.RatingAverage,
		m.TotalReviews,
		m.TotalSessions,
		m.CreatedAt,
		m.UpdatedAt,
	)
}
