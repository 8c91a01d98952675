package booking

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/mentorkita/service-booking/internal/domain"
)

func newTestBooking(t *testing.T, scheduledAt time.Time) *Booking {
	t.Helper()
	bk, err := NewBooking(
		uuid.New(), uuid.New(), uuid.New(),
		scheduledAt, 60, 200000, "Go interview prep", "",
	)
	require.NoError(t, err)
	return bk
}

func TestNewBookingDefaults(t *testing.T) {
	scheduled := time.Now().Add(48 * time.Hour)
	bk := newTestBooking(t, scheduled)

	assert.Equal(t, StatusPending, bk.Status())
	assert.Equal(t, int64(200000), bk.TotalAmountCents())
	assert.Equal(t, domain.CurrencyIDR, bk.Currency())
	assert.Regexp(t, `^BK-\d{8}-[A-Z2-9]{6}$`, bk.Code())
	assert.Equal(t, scheduled.UTC().Add(time.Hour), bk.EndsAt())
}

func TestNewBookingValidation(t *testing.T) {
	_, err := NewBooking(uuid.Nil, uuid.New(), uuid.New(), time.Now(), 60, 1000, "topic", "")
	assert.True(t, domain.IsCode(err, domain.CodeValidation))

	_, err = NewBooking(uuid.New(), uuid.New(), uuid.New(), time.Now(), 0, 1000, "topic", "")
	assert.True(t, domain.IsCode(err, domain.CodeValidation))

	_, err = NewBooking(uuid.New(), uuid.New(), uuid.New(), time.Now(), 60, 1000, "", "")
	assert.True(t, domain.IsCode(err, domain.CodeValidation))
}

func TestOverlapsHalfOpen(t *testing.T) {
	start := time.Date(2026, 9, 1, 10, 0, 0, 0, time.UTC)
	bk := newTestBooking(t, start) // occupies [10:00, 11:00)

	assert.True(t, bk.Overlaps(start.Add(30*time.Minute), start.Add(90*time.Minute)))
	assert.True(t, bk.Overlaps(start.Add(-30*time.Minute), start.Add(30*time.Minute)))
	assert.True(t, bk.Overlaps(start.Add(-time.Hour), start.Add(2*time.Hour)))

	// Touching boundaries do not overlap.
	assert.False(t, bk.Overlaps(start.Add(time.Hour), start.Add(2*time.Hour)))
	assert.False(t, bk.Overlaps(start.Add(-time.Hour), start))
}

func TestCompletingPendingFailsForEveryActor(t *testing.T) {
	now := time.Now()
	for _, role := range []domain.Role{domain.RoleStudent, domain.RoleMentor} {
		bk := newTestBooking(t, now.Add(48*time.Hour))
		err := bk.TransitionTo(domain.Actor{ID: uuid.New(), Role: role}, StatusCompleted, "", now)
		assert.True(t, domain.IsCode(err, domain.CodeInvalidState), "role %s", role)
		assert.Equal(t, StatusPending, bk.Status())
	}
}

func TestStudentCancellationWindow(t *testing.T) {
	now := time.Now()
	student := domain.Actor{ID: uuid.New(), Role: domain.RoleStudent}

	// 23 hours ahead: inside the window, must fail.
	bk := newTestBooking(t, now.Add(23*time.Hour))
	_, err := bk.Confirm(now)
	require.NoError(t, err)
	err = bk.TransitionTo(student, StatusCancelled, "conflict came up", now)
	assert.True(t, domain.IsCode(err, domain.CodeInvalidState))
	assert.Equal(t, StatusConfirmed, bk.Status())

	// 25 hours ahead: outside the window, must succeed.
	bk = newTestBooking(t, now.Add(25*time.Hour))
	_, err = bk.Confirm(now)
	require.NoError(t, err)
	err = bk.TransitionTo(student, StatusCancelled, "conflict came up", now)
	require.NoError(t, err)
	assert.Equal(t, StatusCancelled, bk.Status())
	assert.Equal(t, "conflict came up", bk.CancelReason())
	require.NotNil(t, bk.CancelledAt())
}

func TestMentorLifecycle(t *testing.T) {
	now := time.Now()
	mentor := domain.Actor{ID: uuid.New(), Role: domain.RoleMentor}

	bk := newTestBooking(t, now.Add(48*time.Hour))
	require.NoError(t, bk.TransitionTo(mentor, StatusConfirmed, "", now))
	require.NoError(t, bk.TransitionTo(mentor, StatusCompleted, "", now))
	assert.Equal(t, StatusCompleted, bk.Status())

	// Terminal: nothing further for the mentor.
	err := bk.TransitionTo(mentor, StatusCancelled, "", now)
	assert.True(t, domain.IsCode(err, domain.CodeInvalidState))
}

func TestConfirmIsIdempotent(t *testing.T) {
	now := time.Now()
	bk := newTestBooking(t, now.Add(48*time.Hour))

	changed, err := bk.Confirm(now)
	require.NoError(t, err)
	assert.True(t, changed)

	changed, err = bk.Confirm(now)
	require.NoError(t, err)
	assert.False(t, changed)
	assert.Equal(t, StatusConfirmed, bk.Status())
}

func TestRepriceGuards(t *testing.T) {
	now := time.Now()
	bk := newTestBooking(t, now.Add(48*time.Hour))
	require.NoError(t, bk.Reprice(250000))
	assert.Equal(t, int64(250000), bk.TotalAmountCents())

	mentor := domain.Actor{ID: uuid.New(), Role: domain.RoleMentor}
	require.NoError(t, bk.TransitionTo(mentor, StatusRejected, "not my area", now))
	err := bk.Reprice(100)
	assert.True(t, domain.IsCode(err, domain.CodeInvalidState))
}
