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

func TestReplaceWindowsSwapsSchedule(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	first, err := f.availSvc.ReplaceWindows(ctx, f.mentorActor, f.profile.ID(), []WindowInput{
		{DayOfWeek: "monday", StartTime: "09:00", EndTime: "12:00"},
		{DayOfWeek: "wednesday", StartTime: "14:00", EndTime: "17:00"},
	})
	require.NoError(t, err)
	assert.Len(t, first, 2)

	second, err := f.availSvc.ReplaceWindows(ctx, f.mentorActor, f.profile.ID(), []WindowInput{
		{DayOfWeek: "friday", StartTime: "10:00", EndTime: "11:30"},
	})
	require.NoError(t, err)
	assert.Len(t, second, 1)

	current, err := f.availSvc.GetWindows(ctx, f.profile.ID())
	require.NoError(t, err)
	require.Len(t, current, 1)
	assert.Equal(t, "friday", current[0].DayOfWeek)
	assert.Equal(t, "10:00", current[0].StartTime)
	assert.Equal(t, "11:30", current[0].EndTime)
}

func TestReplaceWindowsValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.availSvc.ReplaceWindows(ctx, f.mentorActor, f.profile.ID(), []WindowInput{
		{DayOfWeek: "funday", StartTime: "09:00", EndTime: "12:00"},
	})
	require.Error(t, err)
	assert.True(t, domain.IsCode(err, domain.CodeValidation))

	_, err = f.availSvc.ReplaceWindows(ctx, f.mentorActor, f.profile.ID(), []WindowInput{
		{DayOfWeek: "monday", StartTime: "12:00", EndTime: "09:00"},
	})
	require.Error(t, err)
	assert.True(t, domain.IsCode(err, domain.CodeValidation))

	_, err = f.availSvc.ReplaceWindows(ctx, f.mentorActor, f.profile.ID(), []WindowInput{
		{DayOfWeek: "monday", StartTime: "9am", EndTime: "12:00"},
	})
	require.Error(t, err)
	assert.True(t, domain.IsCode(err, domain.CodeValidation))
}

func TestReplaceWindowsOwnershipGate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	windows := []WindowInput{{DayOfWeek: "monday", StartTime: "09:00", EndTime: "12:00"}}

	otherMentor := domain.Actor{ID: uuid.New(), Role: domain.RoleMentor}
	_, err := f.availSvc.ReplaceWindows(ctx, otherMentor, f.profile.ID(), windows)
	require.Error(t, err)
	assert.True(t, domain.IsCode(err, domain.CodeForbidden))

	_, err = f.availSvc.ReplaceWindows(ctx, f.student, f.profile.ID(), windows)
	require.Error(t, err)
	assert.True(t, domain.IsCode(err, domain.CodeForbidden))

	_, err = f.availSvc.ReplaceWindows(ctx, f.admin, f.profile.ID(), windows)
	assert.NoError(t, err)
}

func TestIsOpenChecksWeekdayWindows(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	inactive := false
	_, err := f.availSvc.ReplaceWindows(ctx, f.mentorActor, f.profile.ID(), []WindowInput{
		{DayOfWeek: "monday", StartTime: "09:00", EndTime: "12:00"},
		{DayOfWeek: "tuesday", StartTime: "09:00", EndTime: "12:00", Active: &inactive},
	})
	require.NoError(t, err)

	monday := time.Date(2026, 9, 7, 0, 0, 0, 0, time.UTC)
	tuesday := monday.AddDate(0, 0, 1)

	open, err := f.availSvc.IsOpen(ctx, f.profile.ID(), monday, "09:00", 60)
	require.NoError(t, err)
	assert.True(t, open)

	// Touching the end boundary is allowed, exceeding it is not.
	open, err = f.availSvc.IsOpen(ctx, f.profile.ID(), monday, "11:00", 60)
	require.NoError(t, err)
	assert.True(t, open)

	open, err = f.availSvc.IsOpen(ctx, f.profile.ID(), monday, "11:30", 60)
	require.NoError(t, err)
	assert.False(t, open)

	// Inactive windows never open the day.
	open, err = f.availSvc.IsOpen(ctx, f.profile.ID(), tuesday, "09:00", 60)
	require.NoError(t, err)
	assert.False(t, open)

	// No windows at all for the weekday.
	open, err = f.availSvc.IsOpen(ctx, f.profile.ID(), monday.AddDate(0, 0, 3), "09:00", 60)
	require.NoError(t, err)
	assert.False(t, open)
}
