package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/mentorkita/service-booking/internal/domain"
	bookingDomain "github.com/mentorkita/service-booking/internal/domain/booking"
	"github.com/mentorkita/service-booking/internal/domain/mentor"
	reviewDomain "github.com/mentorkita/service-booking/internal/domain/review"
)

// ReviewModel is the GORM model for the reviews table.
type ReviewModel struct {
	ID              uuid.UUID      `gorm:"type:uuid;primaryKey"`
	BookingID       uuid.UUID      `gorm:"type:uuid;uniqueIndex;not null"`
	StudentID       uuid.UUID      `gorm:"type:uuid;index;not null"`
	MentorID        uuid.UUID      `gorm:"type:uuid;index;not null"`
	MentorProfileID uuid.UUID      `gorm:"type:uuid;index;not null"`
	Rating          int            `gorm:"not null"`
	Comment         string         `gorm:"size:2000"`
	Aspects         datatypes.JSON `gorm:"type:jsonb"`
	Anonymous       bool           `gorm:"not null;default:false"`
	CreatedAt       time.Time      `gorm:"not null"`
	UpdatedAt       time.Time      `gorm:"not null"`
}

// TableName returns the table name for the GORM model.
func (ReviewModel) TableName() string {
	return "reviews"
}

// GormReviewRepository is the GORM-based implementation of review.Repository.
// Every mutation recomputes the mentor profile's denormalized rating aggregate
// in the same transaction.
type GormReviewRepository struct {
	db *gorm.DB
}

// NewGormReviewRepository creates a new GormReviewRepository.
func NewGormReviewRepository(db *gorm.DB) *GormReviewRepository {
	return &GormReviewRepository{db: db}
}

// CreateWithAggregate verifies eligibility, inserts the review, and recomputes
// the mentor profile's rating aggregate in one transaction.
func (r *GormReviewRepository) CreateWithAggregate(ctx context.Context, rv *reviewDomain.Review) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var bk BookingModel
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("id = ?", rv.BookingID()).First(&bk).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return domain.NewNotFoundError("Booking", rv.BookingID().String())
			}
			return fmt.Errorf("failed to lock booking: %w", err)
		}

		if bk.StudentID != rv.StudentID() {
			return domain.NewForbiddenError("only the booking's student may review it")
		}
		if bk.Status != string(bookingDomain.StatusCompleted) {
			return domain.NewInvalidStateErrorf("only completed sessions can be reviewed, booking is %s", bk.Status)
		}

		var existing int64
		if err := tx.Model(&ReviewModel{}).
			Where("booking_id = ?", rv.BookingID()).Count(&existing).Error; err != nil {
			return fmt.Errorf("failed to check existing review: %w", err)
		}
		if existing > 0 {
			return domain.NewConflictError("booking has already been reviewed")
		}

		model, err := toReviewModel(rv)
		if err != nil {
			return err
		}
		if err := tx.Create(model).Error; err != nil {
			return fmt.Errorf("failed to save review: %w", err)
		}

		return recomputeRatingAggregate(tx, rv.MentorProfileID())
	})
}

// UpdateWithAggregate persists an edited review and recomputes the aggregate
// in the same transaction.
func (r *GormReviewRepository) UpdateWithAggregate(ctx context.Context, rv *reviewDomain.Review) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		model, err := toReviewModel(rv)
		if err != nil {
			return err
		}

		result := tx.Model(&ReviewModel{}).
			Where("id = ?", rv.ID()).
			Updates(map[string]interface{}{
				"rating":     model.Rating,
				"comment":    model.Comment,
				"aspects":    model.Aspects,
				"updated_at": model.UpdatedAt,
			})
		if result.Error != nil {
			return fmt.Errorf("failed to update review: %w", result.Error)
		}
		if result.RowsAffected == 0 {
			return domain.NewNotFoundError("Review", rv.ID().String())
		}

		return recomputeRatingAggregate(tx, rv.MentorProfileID())
	})
}

// DeleteWithAggregate removes the review and recomputes the aggregate in the
// same transaction.
func (r *GormReviewRepository) DeleteWithAggregate(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var model ReviewModel
		if err := tx.Where("id = ?", id).First(&model).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return domain.NewNotFoundError("Review", id.String())
			}
			return fmt.Errorf("failed to find review: %w", err)
		}

		if err := tx.Where("id = ?", id).Delete(&ReviewModel{}).Error; err != nil {
			return fmt.Errorf("failed to delete review: %w", err)
		}

		return recomputeRatingAggregate(tx, model.MentorProfileID)
	})
}

// recomputeRatingAggregate rewrites the profile's denormalized average and
// count from the surviving review rows. Matches the domain rounding rule:
// mean rounded half up to 2 decimals, exactly 0 when no reviews remain.
func recomputeRatingAggregate(tx *gorm.DB, mentorProfileID uuid.UUID) error {
	var ratings []int
	if err := tx.Model(&ReviewModel{}).
		Where("mentor_profile_id = ?", mentorProfileID).
		Pluck("rating", &ratings).Error; err != nil {
		return fmt.Errorf("failed to load ratings: %w", err)
	}

	average, count := mentor.RatingAggregate(ratings)
	result := tx.Model(&MentorProfileModel{}).
		Where("id = ?", mentorProfileID).
		Updates(map[string]interface{}{
			"rating_average": average,
			"total_reviews":  count,
			"updated_at":     time.Now().UTC(),
		})
	if result.Error != nil {
		return fmt.Errorf("failed to update rating aggregate: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return domain.NewNotFoundError("MentorProfile", mentorProfileID.String())
	}
	return nil
}

// FindByID retrieves a review by its unique identifier.
func (r *GormReviewRepository) FindByID(ctx context.Context, id uuid.UUID) (*reviewDomain.Review, error) {
	var model ReviewModel
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.NewNotFoundError("Review", id.String())
		}
		return nil, fmt.Errorf("failed to find review by ID: %w", err)
	}
	return toDomainReview(&model)
}

// FindByBookingID retrieves the review attached to a booking, if any.
func (r *GormReviewRepository) FindByBookingID(ctx context.Context, bookingID uuid.UUID) (*reviewDomain.Review, error) {
	var model ReviewModel
	if err := r.db.WithContext(ctx).Where("booking_id = ?", bookingID).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.NewNotFoundError("Review", bookingID.String())
		}
		return nil, fmt.Errorf("failed to find review by booking: %w", err)
	}
	return toDomainReview(&model)
}

// FindByMentorProfileID lists a mentor's reviews, newest first.
func (r *GormReviewRepository) FindByMentorProfileID(ctx context.Context, mentorProfileID uuid.UUID, page, limit int) ([]*reviewDomain.Review, int64, error) {
	var total int64
	if err := r.db.WithContext(ctx).Model(&ReviewModel{}).
		Where("mentor_profile_id = ?", mentorProfileID).Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count reviews: %w", err)
	}

	var models []ReviewModel
	offset := (page - 1) * limit
	if err := r.db.WithContext(ctx).
		Where("mentor_profile_id = ?", mentorProfileID).
		Order("created_at DESC").
		Offset(offset).
		Limit(limit).
		Find(&models).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to list reviews: %w", err)
	}

	reviews := make([]*reviewDomain.Review, len(models))
	for i, m := range models {
		rv, err := toDomainReview(&m)
		if err != nil {
			return nil, 0, err
		}
		reviews[i] = rv
	}
	return reviews, total, nil
}

// --- Conversion Helpers ---

func toReviewModel(rv *reviewDomain.Review) (*ReviewModel, error) {
	var aspectsJSON datatypes.JSON
	if rv.Aspects() != nil {
		data, err := json.Marshal(rv.Aspects())
		if err != nil {
			return nil, fmt.Errorf("failed to marshal review aspects: %w", err)
		}
		aspectsJSON = data
	}

	return &ReviewModel{
		ID:              rv.ID(),
		BookingID:       rv.BookingID(),
		StudentID:       rv.StudentID(),
		MentorID:        rv.MentorID(),
		MentorProfileID: rv.MentorProfileID(),
		Rating:          rv.Rating(),
		Comment:         rv.Comment(),
		Aspects:         aspectsJSON,
		Anonymous:       rv.Anonymous(),
		CreatedAt:       rv.CreatedAt(),
		UpdatedAt:       rv.UpdatedAt(),
	}, nil
}

func toDomainReview(m *ReviewModel) (*reviewDomain.Review, error) {
	var aspects map[string]int
	if len(m.Aspects) > 0 {
		if err := json.Unmarshal(m.Aspects, &aspects); err != nil {
			return nil, fmt.Errorf("failed to unmarshal review aspects: %w", err)
		}
	}

	return reviewDomain.Reconstruct(
		m.ID,
		m.BookingID,
		m.StudentID,
		m.MentorID,
		m.MentorProfileID,
		m.Rating,
		m.Comment,
		aspects,
		m.Anonymous,
		m.CreatedAt,
		m.UpdatedAt,
	), nil
}
