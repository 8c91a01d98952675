package application

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/mentorkita/service-booking/internal/authz"
	"github.com/mentorkita/service-booking/internal/domain"
	"github.com/mentorkita/service-booking/internal/domain/availability"
	"github.com/mentorkita/service-booking/internal/domain/mentor"
)

// WindowInput is one availability window as submitted by the mentor.
// Times are wall-clock "HH:MM" strings.
type WindowInput struct {
	DayOfWeek string `json:"day_of_week" binding:"required"`
	StartTime string `json:"start_time" binding:"required"`
	EndTime   string `json:"end_time" binding:"required"`
	Active    *bool  `json:"active"`
}

// WindowDTO is the response representation of an availability window.
type WindowDTO struct {
	ID        uuid.UUID `json:"id"`
	DayOfWeek string    `json:"day_of_week"`
	StartTime string    `json:"start_time"`
	EndTime   string    `json:"end_time"`
	Active    bool      `json:"active"`
}

// AvailabilityService manages mentors' recurring weekly schedules.
type AvailabilityService struct {
	windows availability.Repository
	mentors mentor.Repository
	authz   authz.Authorizer
	logger  *zap.Logger
}

// NewAvailabilityService creates a new AvailabilityService.
func NewAvailabilityService(
	windows availability.Repository,
	mentors mentor.Repository,
	authorizer authz.Authorizer,
	logger *zap.Logger,
) *AvailabilityService {
	return &AvailabilityService{
		windows: windows,
		mentors: mentors,
		authz:   authorizer,
		logger:  logger,
	}
}

// ReplaceWindows swaps the mentor's full schedule for the submitted one in a
// single transaction. All windows are validated before anything is written.
func (s *AvailabilityService) ReplaceWindows(ctx context.Context, actor domain.Actor, mentorProfileID uuid.UUID, inputs []WindowInput) ([]WindowDTO, error) {
	profile, err := s.mentors.FindByID(ctx, mentorProfileID)
	if err != nil {
		return nil, err
	}
	if !s.authz.Can(actor, authz.ActionManageWindows, authz.Resource{MentorID: profile.UserID()}) {
		return nil, domain.NewForbiddenError("schedule does not belong to this user")
	}

	windows := make([]*availability.Window, len(inputs))
	for i, in := range inputs {
		day, err := availability.ParseWeekday(in.DayOfWeek)
		if err != nil {
			return nil, domain.NewValidationError(err.Error())
		}
		startMinute, err := parseClock(in.StartTime)
		if err != nil {
			return nil, err
		}
		endMinute, err := parseClock(in.EndTime)
		if err != nil {
			return nil, err
		}
		active := true
		if in.Active != nil {
			active = *in.Active
		}

		w, err := availability.NewWindow(mentorProfileID, day, startMinute, endMinute, active)
		if err != nil {
			return nil, err
		}
		windows[i] = w
	}

	if err := s.windows.ReplaceForMentor(ctx, mentorProfileID, windows); err != nil {
		return nil, err
	}

	dtos := make([]WindowDTO, len(windows))
	for i, w := range windows {
		dtos[i] = toWindowDTO(w)
	}
	return dtos, nil
}

// GetWindows retrieves a mentor's full schedule. Public.
func (s *AvailabilityService) GetWindows(ctx context.Context, mentorProfileID uuid.UUID) ([]WindowDTO, error) {
	windows, err := s.windows.FindForMentor(ctx, mentorProfileID)
	if err != nil {
		return nil, err
	}

	dtos := make([]WindowDTO, len(windows))
	for i, w := range windows {
		dtos[i] = toWindowDTO(w)
	}
	return dtos, nil
}

// IsOpen reports whether the mentor accepts a session on the given date at
// startTime ("HH:MM") for durationMinutes.
func (s *AvailabilityService) IsOpen(ctx context.Context, mentorProfileID uuid.UUID, date time.Time, startTime string, durationMinutes int) (bool, error) {
	if durationMinutes <= 0 {
		return false, domain.NewValidationError("duration must be positive")
	}
	startMinute, err := parseClock(startTime)
	if err != nil {
		return false, err
	}

	windows, err := s.windows.FindActiveForDay(ctx, mentorProfileID, availability.WeekdayOf(date))
	if err != nil {
		return false, err
	}
	return windows.IsOpen(date, startMinute, durationMinutes), nil
}

// --- Helpers ---

// parseClock converts "HH:MM" to minutes from midnight.
func parseClock(s string) (int, error) {
	t, err := time.Parse("15:04", s)
	if err != nil {
		return 0, domain.NewValidationError(fmt.Sprintf("invalid time %q, expected HH:MM", s))
	}
	return t.Hour()*60 + t.Minute(), nil
}

func formatClock(minute int) string {
	return fmt.Sprintf("%02d:%02d", minute/60, minute%60)
}

func toWindowDTO(w *availability.Window) WindowDTO {
	return WindowDTO{
		ID:        w.ID(),
		DayOfWeek: string(w.Day()),
		StartTime: formatClock(w.StartMinute()),
		EndTime:   formatClock(w.EndMinute()),
		Active:    w.Active(),
	}
}
