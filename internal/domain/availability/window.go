package availability

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/mentorkita/service-booking/internal/domain"
)

// Weekday is a lowercase day-of-week name as stored with availability windows.
type Weekday string

const (
	Monday    Weekday = "monday"
	Tuesday   Weekday = "tuesday"
	Wednesday Weekday = "wednesday"
	Thursday  Weekday = "thursday"
	Friday    Weekday = "friday"
	Saturday  Weekday = "saturday"
	Sunday    Weekday = "sunday"
)

// IsValid returns true if the weekday name is recognized.
func (w Weekday) IsValid() bool {
	switch w {
	case Monday, Tuesday, Wednesday, Thursday, Friday, Saturday, Sunday:
		return true
	}
	return false
}

// WeekdayOf maps a calendar date to its availability weekday name.
func WeekdayOf(date time.Time) Weekday {
	return Weekday(strings.ToLower(date.Weekday().String()))
}

// ParseWeekday converts a string to a Weekday, returning an error if invalid.
func ParseWeekday(s string) (Weekday, error) {
	w := Weekday(strings.ToLower(s))
	if !w.IsValid() {
		return "", fmt.Errorf("invalid day of week: %s", s)
	}
	return w, nil
}

// Window is one recurring weekly open interval in a mentor's schedule,
// expressed in minutes from midnight. Windows are soft-disabled via the
// active flag rather than always deleted.
type Window struct {
	id              uuid.UUID
	mentorProfileID uuid.UUID
	day             Weekday
	startMinute     int
	endMinute       int
	active          bool
}

// NewWindow creates a validated availability window.
func NewWindow(mentorProfileID uuid.UUID, day Weekday, startMinute, endMinute int, active bool) (*Window, error) {
	if mentorProfileID == uuid.Nil {
		return nil, domain.NewValidationError("mentor profile ID is required")
	}
	if !day.IsValid() {
		return nil, domain.NewValidationError(fmt.Sprintf("invalid day of week: %s", day))
	}
	if startMinute < 0 || startMinute >= 24*60 {
		return nil, domain.NewValidationError("start time is out of range")
	}
	if endMinute <= 0 || endMinute > 24*60 {
		return nil, domain.NewValidationError("end time is out of range")
	}
	if startMinute >= endMinute {
		return nil, domain.NewValidationError("start time must be before end time")
	}
	return &Window{
		id:              uuid.New(),
		mentorProfileID: mentorProfileID,
		day:             day,
		startMinute:     startMinute,
		endMinute:       endMinute,
		active:          active,
	}, nil
}

// ReconstructWindow rebuilds a Window from persistence data (no validation).
func ReconstructWindow(id, mentorProfileID uuid.UUID, day Weekday, startMinute, endMinute int, active bool) *Window {
	return &Window{
		id:              id,
		mentorProfileID: mentorProfileID,
		day:             day,
		startMinute:     startMinute,
		endMinute:       endMinute,
		active:          active,
	}
}

func (w *Window) ID() uuid.UUID              { return w.id }
func (w *Window) MentorProfileID() uuid.UUID { return w.mentorProfileID }
func (w *Window) Day() Weekday               { return w.day }
func (w *Window) StartMinute() int           { return w.startMinute }
func (w *Window) EndMinute() int             { return w.endMinute }
func (w *Window) Active() bool               { return w.active }

// Covers reports whether the requested interval [startMinute, startMinute+duration)
// lies fully within the window. Touching the window's end boundary exactly is
// allowed; exceeding it is not.
func (w *Window) Covers(startMinute, durationMinutes int) bool {
	if !w.active {
		return false
	}
	end := startMinute + durationMinutes
	return startMinute >= w.startMinute && end <= w.endMinute
}

// WindowSet is a mentor's full recurring schedule.
type WindowSet []*Window

// IsOpen reports whether the mentor accepts a session on the given date at
// startMinute for durationMinutes: some active window for that weekday must
// cover the whole requested interval. A mentor with zero active windows for
// the weekday is closed that day.
func (ws WindowSet) IsOpen(date time.Time, startMinute, durationMinutes int) bool {
	day := WeekdayOf(date)
	for _, w := range ws {
		if w.day == day && w.Covers(startMinute, durationMinutes) {
			return true
		}
	}
	return false
}
