package review

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/mentorkita/service-booking/internal/domain"
)

// Review belongs to exactly one completed booking and is written by its student.
type Review struct {
	id              uuid.UUID
	bookingID       uuid.UUID
	studentID       uuid.UUID
	mentorID        uuid.UUID
	mentorProfileID uuid.UUID
	rating          int
	comment         string
	aspects         map[string]int
	anonymous       bool
	createdAt       time.Time
	updatedAt       time.Time
}

// NewReview creates a validated review. Eligibility against the parent booking
// (completed, owned by the student, not yet reviewed) is enforced by the
// repository inside the same transaction that recomputes the rating aggregate.
func NewReview(
	bookingID uuid.UUID,
	studentID uuid.UUID,
	mentorID uuid.UUID,
	mentorProfileID uuid.UUID,
	rating int,
	comment string,
	aspects map[string]int,
	anonymous bool,
) (*Review, error) {
	if bookingID == uuid.Nil {
		return nil, domain.NewValidationError("booking ID is required")
	}
	if studentID == uuid.Nil {
		return nil, domain.NewValidationError("student ID is required")
	}
	if mentorProfileID == uuid.Nil {
		return nil, domain.NewValidationError("mentor profile ID is required")
	}
	if err := validateRating(rating); err != nil {
		return nil, err
	}
	for aspect, score := range aspects {
		if score < 1 || score > 5 {
			return nil, domain.NewValidationError(fmt.Sprintf("aspect %q score must be between 1 and 5", aspect))
		}
	}

	now := time.Now().UTC()
	return &Review{
		id:              uuid.New(),
		bookingID:       bookingID,
		studentID:       studentID,
		mentorID:        mentorID,
		mentorProfileID: mentorProfileID,
		rating:          rating,
		comment:         comment,
		aspects:         aspects,
		anonymous:       anonymous,
		createdAt:       now,
		updatedAt:       now,
	}, nil
}

// Reconstruct rebuilds a Review from persistence data (no validation).
func Reconstruct(
	id uuid.UUID,
	bookingID uuid.UUID,
	studentID uuid.UUID,
	mentorID uuid.UUID,
	mentorProfileID uuid.UUID,
	rating int,
	comment string,
	aspects map[string]int,
	anonymous bool,
	createdAt time.Time,
	updatedAt time.Time,
) *Review {
	return &Review{
		id:              id,
		bookingID:       bookingID,
		studentID:       studentID,
		mentorID:        mentorID,
		mentorProfileID: mentorProfileID,
		rating:          rating,
		comment:         comment,
		aspects:         aspects,
		anonymous:       anonymous,
		createdAt:       createdAt,
		updatedAt:       updatedAt,
	}
}

func validateRating(rating int) error {
	if rating < 1 || rating > 5 {
		return domain.NewValidationError("rating must be between 1 and 5")
	}
	return nil
}

// --- Getters ---

func (r *Review) ID() uuid.UUID              { return r.id }
func (r *Review) BookingID() uuid.UUID       { return r.bookingID }
func (r *Review) StudentID() uuid.UUID       { return r.studentID }
func (r *Review) MentorID() uuid.UUID        { return r.mentorID }
func (r *Review) MentorProfileID() uuid.UUID { return r.mentorProfileID }
func (r *Review) Rating() int                { return r.rating }
func (r *Review) Comment() string            { return r.comment }
func (r *Review) Aspects() map[string]int    { return r.aspects }
func (r *Review) Anonymous() bool            { return r.anonymous }
func (r *Review) CreatedAt() time.Time       { return r.createdAt }
func (r *Review) UpdatedAt() time.Time       { return r.updatedAt }

// --- Behavior ---

// Edit updates the review's rating, comment and aspect scores.
func (r *Review) Edit(rating int, comment string, aspects map[string]int) error {
	if err := validateRating(rating); err != nil {
		return err
	}
	for aspect, score := range aspects {
		if score < 1 || score > 5 {
			return domain.NewValidationError(fmt.Sprintf("aspect %q score must be between 1 and 5", aspect))
		}
	}
	r.rating = rating
	r.comment = comment
	r.aspects = aspects
	r.updatedAt = time.Now().UTC()
	return nil
}
