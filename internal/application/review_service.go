package application

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/mentorkita/service-booking/internal/authz"
	"github.com/mentorkita/service-booking/internal/domain"
	bookingDomain "github.com/mentorkita/service-booking/internal/domain/booking"
	reviewDomain "github.com/mentorkita/service-booking/internal/domain/review"
)

// CreateReviewRequest holds the data needed to review a completed session.
type CreateReviewRequest struct {
	BookingID uuid.UUID      `json:"booking_id" binding:"required"`
	Rating    int            `json:"rating" binding:"required"`
	Comment   string         `json:"comment"`
	Aspects   map[string]int `json:"aspects"`
	Anonymous bool           `json:"anonymous"`
}

// UpdateReviewRequest holds the editable review fields.
type UpdateReviewRequest struct {
	Rating  int            `json:"rating" binding:"required"`
	Comment string         `json:"comment"`
	Aspects map[string]int `json:"aspects"`
}

// ReviewDTO is the response representation of a review. The student's
// identity is withheld for anonymous reviews.
type ReviewDTO struct {
	ID              uuid.UUID      `json:"id"`
	BookingID       uuid.UUID      `json:"booking_id"`
	StudentID       *uuid.UUID     `json:"student_id,omitempty"`
	MentorProfileID uuid.UUID      `json:"mentor_profile_id"`
	Rating          int            `json:"rating"`
	Comment         string         `json:"comment,omitempty"`
	Aspects         map[string]int `json:"aspects,omitempty"`
	Anonymous       bool           `json:"anonymous"`
	CreatedAt       time.Time      `json:"created_at"`
	UpdatedAt       time.Time      `json:"updated_at"`
}

// ReviewService orchestrates review use cases. The repository keeps the
// mentor's rating aggregate in step with every mutation.
type ReviewService struct {
	reviews  reviewDomain.Repository
	bookings bookingDomain.Repository
	authz    authz.Authorizer
	logger   *zap.Logger
}

// NewReviewService creates a new ReviewService.
func NewReviewService(
	reviews reviewDomain.Repository,
	bookings bookingDomain.Repository,
	authorizer authz.Authorizer,
	logger *zap.Logger,
) *ReviewService {
	return &ReviewService{
		reviews:  reviews,
		bookings: bookings,
		authz:    authorizer,
		logger:   logger,
	}
}

// CreateReview records a review for the actor's completed booking and
// recomputes the mentor's rating aggregate.
func (s *ReviewService) CreateReview(ctx context.Context, actor domain.Actor, req CreateReviewRequest) (*ReviewDTO, error) {
	bk, err := s.bookings.FindByID(ctx, req.BookingID)
	if err != nil {
		return nil, err
	}
	if !s.authz.Can(actor, authz.ActionCreateReview, bookingResource(bk)) {
		return nil, domain.NewForbiddenError("only the booking's student may review it")
	}

	rv, err := reviewDomain.NewReview(
		bk.ID(),
		bk.StudentID(),
		bk.MentorID(),
		bk.MentorProfileID(),
		req.Rating,
		req.Comment,
		req.Aspects,
		req.Anonymous,
	)
	if err != nil {
		return nil, err
	}
	if err := s.reviews.CreateWithAggregate(ctx, rv); err != nil {
		return nil, err
	}

	result := toReviewDTO(rv, false)
	return &result, nil
}

// UpdateReview edits the actor's review and recomputes the aggregate.
func (s *ReviewService) UpdateReview(ctx context.Context, actor domain.Actor, reviewID uuid.UUID, req UpdateReviewRequest) (*ReviewDTO, error) {
	rv, err := s.reviews.FindByID(ctx, reviewID)
	if err != nil {
		return nil, err
	}
	if !s.authz.Can(actor, authz.ActionManageReview, authz.Resource{StudentID: rv.StudentID()}) {
		return nil, domain.NewForbiddenError("review does not belong to this user")
	}

	if err := rv.Edit(req.Rating, req.Comment, req.Aspects); err != nil {
		return nil, err
	}
	if err := s.reviews.UpdateWithAggregate(ctx, rv); err != nil {
		return nil, err
	}

	result := toReviewDTO(rv, false)
	return &result, nil
}

// DeleteReview removes the actor's review and recomputes the aggregate.
func (s *ReviewService) DeleteReview(ctx context.Context, actor domain.Actor, reviewID uuid.UUID) error {
	rv, err := s.reviews.FindByID(ctx, reviewID)
	if err != nil {
		return err
	}
	if !s.authz.Can(actor, authz.ActionManageReview, authz.Resource{StudentID: rv.StudentID()}) {
		return domain.NewForbiddenError("review does not belong to this user")
	}
	return s.reviews.DeleteWithAggregate(ctx, rv.ID())
}

// GetBookingReview retrieves the review attached to a booking.
func (s *ReviewService) GetBookingReview(ctx context.Context, bookingID uuid.UUID) (*ReviewDTO, error) {
	rv, err := s.reviews.FindByBookingID(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	result := toReviewDTO(rv, true)
	return &result, nil
}

// GetMentorReviews lists a mentor's reviews, newest first. Public.
func (s *ReviewService) GetMentorReviews(ctx context.Context, mentorProfileID uuid.UUID, page, limit int) (*domain.PaginatedResult[ReviewDTO], error) {
	reviews, total, err := s.reviews.FindByMentorProfileID(ctx, mentorProfileID, page, limit)
	if err != nil {
		return nil, err
	}

	dtos := make([]ReviewDTO, len(reviews))
	for i, rv := range reviews {
		dtos[i] = toReviewDTO(rv, true)
	}
	result := domain.NewPaginatedResult(dtos, total, page, limit)
	return &result, nil
}

// --- Helpers ---

// toReviewDTO converts a review; when public and the review is anonymous the
// student's identity is dropped.
func toReviewDTO(rv *reviewDomain.Review, public bool) ReviewDTO {
	dto := ReviewDTO{
		ID:              rv.ID(),
		BookingID:       rv.BookingID(),
		MentorProfileID: rv.MentorProfileID(),
		Rating:          rv.Rating(),
		Comment:         rv.Comment(),
		Aspects:         rv.Aspects(),
		Anonymous:       rv.Anonymous(),
		CreatedAt:       rv.CreatedAt(),
		UpdatedAt:       rv.UpdatedAt(),
	}
	if !public || !rv.Anonymous() {
		studentID := rv.StudentID()
		dto.StudentID = &studentID
	}
	return dto
}
