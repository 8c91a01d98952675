package booking

import "fmt"

// PricingStrategy defines the interface for calculating session prices.
type PricingStrategy interface {
	// Calculate returns the total price in cents for a session of the given
	// duration at the given hourly rate.
	Calculate(hourlyRateCents int64, durationMinutes int) (int64, error)
}

// HourlyPricingStrategy prices a session pro rata against the mentor's hourly rate.
type HourlyPricingStrategy struct{}

// NewHourlyPricingStrategy creates a new HourlyPricingStrategy.
func NewHourlyPricingStrategy() *HourlyPricingStrategy {
	return &HourlyPricingStrategy{}
}

// Calculate computes hourlyRate * durationMinutes / 60 in integer cents,
// rounding half up. Fixed-point arithmetic avoids floating drift on amounts.
func (s *HourlyPricingStrategy) Calculate(hourlyRateCents int64, durationMinutes int) (int64, error) {
	if hourlyRateCents < 0 {
		return 0, fmt.Errorf("hourly rate cannot be negative")
	}
	if durationMinutes <= 0 {
		return 0, fmt.Errorf("duration must be positive")
	}

	total := hourlyRateCents * int64(durationMinutes)
	quotient := total / 60
	if (total%60)*2 >= 60 {
		quotient++
	}
	return quotient, nil
}
