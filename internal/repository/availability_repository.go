package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/mentorkita/service-booking/internal/domain/availability"
)

// AvailabilityWindowModel is the GORM model for the availability_windows table.
type AvailabilityWindowModel struct {
	ID              uuid.UUID `gorm:"type:uuid;primaryKey"`
	MentorProfileID uuid.UUID `gorm:"type:uuid;index;not null"`
	DayOfWeek       string    `gorm:"not null;size:10"`
	StartMinute     int       `gorm:"not null"`
	EndMinute       int       `gorm:"not null"`
	Active          bool      `gorm:"not null;default:true"`
	CreatedAt       time.Time `gorm:"not null"`
	UpdatedAt       time.Time `gorm:"not null"`
}

// TableName returns the table name for the GORM model.
func (AvailabilityWindowModel) TableName() string {
	return "availability_windows"
}

// GormAvailabilityRepository is the GORM-based implementation of availability.Repository.
type GormAvailabilityRepository struct {
	db *gorm.DB
}

// NewGormAvailabilityRepository creates a new GormAvailabilityRepository.
func NewGormAvailabilityRepository(db *gorm.DB) *GormAvailabilityRepository {
	return &GormAvailabilityRepository{db: db}
}

// ReplaceForMentor atomically swaps the mentor's full availability set.
// Delete-all-then-insert-all in one transaction, so a partial failure never
// leaves a mixed old/new schedule.
func (r *GormAvailabilityRepository) ReplaceForMentor(ctx context.Context, mentorProfileID uuid.UUID, windows []*availability.Window) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("mentor_profile_id = ?", mentorProfileID).
			Delete(&AvailabilityWindowModel{}).Error; err != nil {
			return fmt.Errorf("failed to clear availability windows: %w", err)
		}

		if len(windows) == 0 {
			return nil
		}

		now := time.Now().UTC()
		models := make([]AvailabilityWindowModel, len(windows))
		for i, w := range windows {
			models[i] = AvailabilityWindowModel{
				ID:              w.ID(),
				MentorProfileID: w.MentorProfileID(),
				DayOfWeek:       string(w.Day()),
				StartMinute:     w.StartMinute(),
				EndMinute:       w.EndMinute(),
				Active:          w.Active(),
				CreatedAt:       now,
				UpdatedAt:       now,
			}
		}
		if err := tx.Create(&models).Error; err != nil {
			return fmt.Errorf("failed to save availability windows: %w", err)
		}
		return nil
	})
}

// FindForMentor retrieves all windows for a mentor, active or not.
func (r *GormAvailabilityRepository) FindForMentor(ctx context.Context, mentorProfileID uuid.UUID) (availability.WindowSet, error) {
	var models []AvailabilityWindowModel
	if err := r.db.WithContext(ctx).
		Where("mentor_profile_id = ?", mentorProfileID).
		Order("day_of_week ASC, start_minute ASC").
		Find(&models).Error; err != nil {
		return nil, fmt.Errorf("failed to find availability windows: %w", err)
	}
	return toWindowSet(models), nil
}

// FindActiveForDay retrieves the mentor's active windows for one weekday.
func (r *GormAvailabilityRepository) FindActiveForDay(ctx context.Context, mentorProfileID uuid.UUID, day availability.Weekday) (availability.WindowSet, error) {
	var models []AvailabilityWindowModel
	if err := r.db.WithContext(ctx).
		Where("mentor_profile_id = ? AND day_of_week = ? AND active = ?", mentorProfileID, string(day), true).
		Order("start_minute ASC").
		Find(&models).Error; err != nil {
		return nil, fmt.Errorf("failed to find availability windows: %w", err)
	}
	return toWindowSet(models), nil
}

// --- Conversion Helpers ---

func toWindowSet(models []AvailabilityWindowModel) availability.WindowSet {
	windows := make(availability.WindowSet, len(models))
	for i, m := range models {
		windows[i] = toDomainWindow(&m)
	}
	return windows
}

func toDomainWindow(m *AvailabilityWindowModel) *availability.Window {
	return availability.ReconstructWindow(
		m.ID,
		m.MentorProfileID,
		availability.Weekday(m.DayOfWeek),
		m.StartMinute,
		m.EndMinute,
		m.Active,
	)
}
