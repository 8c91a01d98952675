package application

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mentorkita/service-booking/internal/domain"
)

// completeBooking walks a fresh booking to completed via the mentor.
func (f *fixture) completeBooking(t *testing.T, scheduledAt time.Time) *BookingDTO {
	t.Helper()
	ctx := context.Background()
	dto := f.createBooking(t, scheduledAt, 60)
	_, err := f.bookingSvc.UpdateStatus(ctx, f.mentorActor, dto.ID, UpdateStatusRequest{Status: "confirmed"})
	require.NoError(t, err)
	completed, err := f.bookingSvc.UpdateStatus(ctx, f.mentorActor, dto.ID, UpdateStatusRequest{Status: "completed"})
	require.NoError(t, err)
	return completed
}

func TestCreateReviewUpdatesAggregate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	dto := f.completeBooking(t, in48h())

	_, err := f.reviewSvc.CreateReview(ctx, f.student, CreateReviewRequest{
		BookingID: dto.ID,
		Rating:    5,
		Comment:   "clear explanations",
		Aspects:   map[string]int{"communication": 5, "expertise": 4},
	})
	require.NoError(t, err)

	profile, err := f.mentorSvc.GetProfile(ctx, f.profile.ID())
	require.NoError(t, err)
	assert.Equal(t, 5.0, profile.RatingAverage)
	assert.Equal(t, 1, profile.TotalReviews)

	second := f.completeBooking(t, in48h().Add(3*time.Hour))
	_, err = f.reviewSvc.CreateReview(ctx, f.student, CreateReviewRequest{
		BookingID: second.ID,
		Rating:    4,
	})
	require.NoError(t, err)

	profile, err = f.mentorSvc.GetProfile(ctx, f.profile.ID())
	require.NoError(t, err)
	assert.Equal(t, 4.5, profile.RatingAverage)
	assert.Equal(t, 2, profile.TotalReviews)
}

func TestReviewRequiresCompletedOwnBooking(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	pending := f.createBooking(t, in48h(), 60)

	_, err := f.reviewSvc.CreateReview(ctx, f.student, CreateReviewRequest{BookingID: pending.ID, Rating: 5})
	require.Error(t, err)
	assert.True(t, domain.IsCode(err, domain.CodeInvalidState))

	completed := f.completeBooking(t, in48h().Add(3*time.Hour))
	outsider := domain.Actor{ID: uuid.New(), Role: domain.RoleStudent}
	_, err = f.reviewSvc.CreateReview(ctx, outsider, CreateReviewRequest{BookingID: completed.ID, Rating: 5})
	require.Error(t, err)
	assert.True(t, domain.IsCode(err, domain.CodeForbidden))
}

func TestSecondReviewForBookingRejected(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	dto := f.completeBooking(t, in48h())

	_, err := f.reviewSvc.CreateReview(ctx, f.student, CreateReviewRequest{BookingID: dto.ID, Rating: 5})
	require.NoError(t, err)

	_, err = f.reviewSvc.CreateReview(ctx, f.student, CreateReviewRequest{BookingID: dto.ID, Rating: 3})
	require.Error(t, err)
	assert.True(t, domain.IsCode(err, domain.CodeConflict))
}

func TestEditAndDeleteReviewRetriggerAggregate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	dto := f.completeBooking(t, in48h())

	rv, err := f.reviewSvc.CreateReview(ctx, f.student, CreateReviewRequest{BookingID: dto.ID, Rating: 5})
	require.NoError(t, err)

	_, err = f.reviewSvc.UpdateReview(ctx, f.student, rv.ID, UpdateReviewRequest{Rating: 3, Comment: "revised"})
	require.NoError(t, err)

	profile, err := f.mentorSvc.GetProfile(ctx, f.profile.ID())
	require.NoError(t, err)
	assert.Equal(t, 3.0, profile.RatingAverage)

	outsider := domain.Actor{ID: uuid.New(), Role: domain.RoleStudent}
	err = f.reviewSvc.DeleteReview(ctx, outsider, rv.ID)
	require.Error(t, err)
	assert.True(t, domain.IsCode(err, domain.CodeForbidden))

	require.NoError(t, f.reviewSvc.DeleteReview(ctx, f.student, rv.ID))

	profile, err = f.mentorSvc.GetProfile(ctx, f.profile.ID())
	require.NoError(t, err)
	assert.Equal(t, 0.0, profile.RatingAverage)
	assert.Equal(t, 0, profile.TotalReviews)
}

func TestAnonymousReviewHidesStudentPublicly(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	dto := f.completeBooking(t, in48h())

	_, err := f.reviewSvc.CreateReview(ctx, f.student, CreateReviewRequest{
		BookingID: dto.ID,
		Rating:    4,
		Anonymous: true,
	})
	require.NoError(t, err)

	listed, err := f.reviewSvc.GetMentorReviews(ctx, f.profile.ID(), 1, 20)
	require.NoError(t, err)
	require.Len(t, listed.Items, 1)
	assert.Nil(t, listed.Items[0].StudentID)
	assert.True(t, listed.Items[0].Anonymous)
}
