package mentor

import (
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/mentorkita/service-booking/internal/domain"
)

// Profile is the slice of a mentor's profile this service owns: the hourly
// rate bookings are priced from, the availability toggle, and the denormalized
// rating aggregate maintained by the review repository.
type Profile struct {
	id              uuid.UUID
	userID          uuid.UUID
	hourlyRateCents int64
	currency        string
	available       bool
	ratingAverage   float64
	totalReviews    int
	totalSessions   int
	createdAt       time.Time
	updatedAt       time.Time
}

// NewProfile creates a mentor profile with an empty rating aggregate.
func NewProfile(userID uuid.UUID, hourlyRateCents int64) (*Profile, error) {
	if userID == uuid.Nil {
		return nil, domain.NewValidationError("user ID is required")
	}
	if hourlyRateCents < 0 {
		return nil, domain.NewValidationError("hourly rate cannot be negative")
	}
	now := time.Now().UTC()
	return &Profile{
		id:              uuid.New(),
		userID:          userID,
		hourlyRateCents: hourlyRateCents,
		currency:        domain.CurrencyIDR,
		available:       true,
		createdAt:       now,
		updatedAt:       now,
	}, nil
}

// ReconstructProfile rebuilds a Profile from persistence data (no validation).
func ReconstructProfile(
	id uuid.UUID,
	userID uuid.UUID,
	hourlyRateCents int64,
	currency string,
	available bool,
	ratingAverage float64,
	totalReviews int,
	totalSessions int,
	createdAt time.Time,
	updatedAt time.Time,
) *Profile {
	return &Profile{
		id:              id,
		userID:          userID,
		hourlyRateCents: hourlyRateCents,
		currency:        currency,
		available:       available,
		ratingAverage:   ratingAverage,
		totalReviews:    totalReviews,
		totalSessions:   totalSessions,
		createdAt:       createdAt,
		updatedAt:       updatedAt,
	}
}

func (p *Profile) ID() uuid.UUID          { return p.id }
func (p *Profile) UserID() uuid.UUID      { return p.userID }
func (p *Profile) HourlyRateCents() int64 { return p.hourlyRateCents }
func (p *Profile) Currency() string       { return p.currency }
func (p *Profile) Available() bool        { return p.available }
func (p *Profile) RatingAverage() float64 { return p.ratingAverage }
func (p *Profile) TotalReviews() int      { return p.totalReviews }
func (p *Profile) TotalSessions() int     { return p.totalSessions }
func (p *Profile) CreatedAt() time.Time   { return p.createdAt }
func (p *Profile) UpdatedAt() time.Time   { return p.updatedAt }

// SetHourlyRate changes the rate future bookings are priced from. Existing
// bookings keep their locked-in totals.
func (p *Profile) SetHourlyRate(hourlyRateCents int64) error {
	if hourlyRateCents < 0 {
		return domain.NewValidationError("hourly rate cannot be negative")
	}
	p.hourlyRateCents = hourlyRateCents
	p.updatedAt = time.Now().UTC()
	return nil
}

// SetAvailable toggles whether the mentor accepts new bookings.
func (p *Profile) SetAvailable(available bool) {
	p.available = available
	p.updatedAt = time.Now().UTC()
}

// RatingAggregate computes the denormalized average/count pair for a set of
// ratings. The average is the mean rounded half up to 2 decimals, and exactly
// 0 when the set is empty.
func RatingAggregate(ratings []int) (average float64, count int) {
	count = len(ratings)
	if count == 0 {
		return 0, 0
	}
	var sum int
	for _, r := range ratings {
		sum += r
	}
	average = math.Round(float64(sum)/float64(count)*100) / 100
	return average, count
}
