package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/mentorkita/service-booking/internal/domain"
	"github.com/mentorkita/service-booking/internal/domain/availability"
	bookingDomain "github.com/mentorkita/service-booking/internal/domain/booking"
)

// reserveRetries bounds retries of the reservation transaction on
// serialization failures.
const reserveRetries = 3

// Postgres error codes we translate into domain errors.
const (
	pgUniqueViolation    = "23505"
	pgExclusionViolation = "23P01"
	pgSerializationFail  = "40001"
	pgDeadlockDetected   = "40P01"
)

// BookingModel is the GORM model for the bookings table.
type BookingModel struct {
	ID               uuid.UUID  `gorm:"type:uuid;primaryKey"`
	Code             string     `gorm:"uniqueIndex;not null;size:20"`
	StudentID        uuid.UUID  `gorm:"type:uuid;index;not null"`
	MentorID         uuid.UUID  `gorm:"type:uuid;index;not null"`
	MentorProfileID  uuid.UUID  `gorm:"type:uuid;index;not null"`
	Status           string     `gorm:"not null;size:30;index"`
	ScheduledAt      time.Time  `gorm:"not null;index"`
	DurationMinutes  int        `gorm:"not null"`
	TotalAmountCents int64      `gorm:"not null"`
	Currency         string     `gorm:"not null;size:3;default:'IDR'"`
	Topic            string     `gorm:"not null;size:255"`
	StudentNotes     string     `gorm:"size:1000"`
	MentorNotes      string     `gorm:"size:1000"`
	MeetingLink      string     `gorm:"size:500"`
	CancelReason     string     `gorm:"size:500"`
	CancelledAt      *time.Time `gorm:""`
	Version          int64      `gorm:"not null;default:1"`
	CreatedAt        time.Time  `gorm:"not null"`
	UpdatedAt        time.Time  `gorm:"not null"`
}

// TableName returns the table name for the GORM model.
func (BookingModel) TableName() string {
	return "bookings"
}

// GormBookingRepository is the GORM-based implementation of booking.Repository.
type GormBookingRepository struct {
	db *gorm.DB
}

// NewGormBookingRepository creates a new GormBookingRepository.
func NewGormBookingRepository(db *gorm.DB) *GormBookingRepository {
	return &GormBookingRepository{db: db}
}

// Reserve atomically validates the requested slot and inserts the booking.
// A per-mentor advisory lock serializes concurrent reservations so that the
// availability and overlap checks and the insert see a consistent slot state;
// the exclusion constraint on bookings is the backstop should the lock ever
// be bypassed. Retries a bounded number of times on serialization failures.
func (r *GormBookingRepository) Reserve(ctx context.Context, bk *bookingDomain.Booking) error {
	var err error
	for attempt := 0; attempt < reserveRetries; attempt++ {
		err = r.reserveOnce(ctx, bk)
		if err == nil || !isSerializationError(err) {
			return err
		}
	}
	return err
}

func (r *GormBookingRepository) reserveOnce(ctx context.Context, bk *bookingDomain.Booking) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Exec(
			"SELECT pg_advisory_xact_lock(hashtext(?))",
			bk.MentorProfileID().String(),
		).Error; err != nil {
			return fmt.Errorf("failed to acquire reservation lock: %w", err)
		}

		open, err := slotIsOpen(tx, bk.MentorProfileID(), bk.ScheduledAt(), bk.DurationMinutes())
		if err != nil {
			return err
		}
		if !open {
			return domain.NewConflictError("mentor is not available at the requested time")
		}

		conflict, err := findConflictTx(tx, bk.MentorProfileID(), bk.ScheduledAt(), bk.EndsAt(), nil)
		if err != nil {
			return err
		}
		if conflict != nil {
			return domain.NewConflictError("the requested slot is already booked")
		}

		if err := tx.Create(toBookingModel(bk)).Error; err != nil {
			if isConstraintViolation(err) {
				return domain.NewConflictError("the requested slot is already booked")
			}
			return fmt.Errorf("failed to save booking: %w", err)
		}
		return nil
	})
}

// slotIsOpen checks the requested interval against the mentor's active
// availability windows for that weekday, evaluated in UTC.
func slotIsOpen(tx *gorm.DB, mentorProfileID uuid.UUID, scheduledAt time.Time, durationMinutes int) (bool, error) {
	start := scheduledAt.UTC()
	day := availability.WeekdayOf(start)

	var models []AvailabilityWindowModel
	if err := tx.
		Where("mentor_profile_id = ? AND day_of_week = ? AND active = ?", mentorProfileID, string(day), true).
		Find(&models).Error; err != nil {
		return false, fmt.Errorf("failed to load availability windows: %w", err)
	}

	windows := make(availability.WindowSet, len(models))
	for i, m := range models {
		windows[i] = toDomainWindow(&m)
	}
	startMinute := start.Hour()*60 + start.Minute()
	return windows.IsOpen(start, startMinute, durationMinutes), nil
}

// FindByID retrieves a booking by its unique identifier.
func (r *GormBookingRepository) FindByID(ctx context.Context, id uuid.UUID) (*bookingDomain.Booking, error) {
	var model BookingModel
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.NewNotFoundError("Booking", id.String())
		}
		return nil, fmt.Errorf("failed to find booking by ID: %w", err)
	}
	return toDomainBooking(&model)
}

// FindByCode retrieves a booking by its human-readable code.
func (r *GormBookingRepository) FindByCode(ctx context.Context, code string) (*bookingDomain.Booking, error) {
	var model BookingModel
	if err := r.db.WithContext(ctx).Where("code = ?", code).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.NewNotFoundError("Booking", code)
		}
		return nil, fmt.Errorf("failed to find booking by code: %w", err)
	}
	return toDomainBooking(&model)
}

// FindConflict returns the first slot-blocking booking overlapping [start, end).
func (r *GormBookingRepository) FindConflict(ctx context.Context, mentorProfileID uuid.UUID, start, end time.Time, excludeID *uuid.UUID) (*bookingDomain.Booking, error) {
	return findConflictTx(r.db.WithContext(ctx), mentorProfileID, start, end, excludeID)
}

func findConflictTx(tx *gorm.DB, mentorProfileID uuid.UUID, start, end time.Time, excludeID *uuid.UUID) (*bookingDomain.Booking, error) {
	blocking := []string{string(bookingDomain.StatusPending), string(bookingDomain.StatusConfirmed)}
	q := tx.
		Where("mentor_profile_id = ? AND status IN ?", mentorProfileID, blocking).
		Where("scheduled_at < ? AND scheduled_at + make_interval(mins => duration_minutes) > ?", end, start)
	if excludeID != nil {
		q = q.Where("id <> ?", *excludeID)
	}

	var model BookingModel
	if err := q.Order("scheduled_at ASC").First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find conflicting booking: %w", err)
	}
	return toDomainBooking(&model)
}

// Transition loads the booking with a row lock, applies mutate, and persists
// the result in one transaction. The returned status is the pre-mutation one.
func (r *GormBookingRepository) Transition(ctx context.Context, id uuid.UUID, mutate func(*bookingDomain.Booking) error) (*bookingDomain.Booking, bookingDomain.Status, error) {
	var (
		updated   *bookingDomain.Booking
		oldStatus bookingDomain.Status
	)
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var model BookingModel
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("id = ?", id).First(&model).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return domain.NewNotFoundError("Booking", id.String())
			}
			return fmt.Errorf("failed to lock booking: %w", err)
		}

		bk, err := toDomainBooking(&model)
		if err != nil {
			return err
		}
		oldStatus = bk.Status()

		if err := mutate(bk); err != nil {
			return err
		}
		bk.IncrementVersion()

		if err := tx.Model(&BookingModel{}).
			Where("id = ?", bk.ID()).
			Updates(bookingUpdateColumns(bk)).Error; err != nil {
			return fmt.Errorf("failed to update booking: %w", err)
		}
		updated = bk
		return nil
	})
	if err != nil {
		return nil, "", err
	}
	return updated, oldStatus, nil
}

// Update persists changes to an existing booking with optimistic locking.
func (r *GormBookingRepository) Update(ctx context.Context, bk *bookingDomain.Booking) error {
	// Only update if the version matches (current version - 1, since
	// IncrementVersion was already called on the aggregate).
	expectedVersion := bk.Version() - 1
	result := r.db.WithContext(ctx).
		Model(&BookingModel{}).
		Where("id = ? AND version = ?", bk.ID(), expectedVersion).
		Updates(bookingUpdateColumns(bk))

	if result.Error != nil {
		return fmt.Errorf("failed to update booking: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return domain.NewConflictError("booking was modified by another transaction")
	}
	return nil
}

// FindByStudentID retrieves bookings created by a student with pagination.
func (r *GormBookingRepository) FindByStudentID(ctx context.Context, studentID uuid.UUID, filter bookingDomain.ListFilter, page, limit int) ([]*bookingDomain.Booking, int64, error) {
	q := applyBookingFilter(r.db.WithContext(ctx).Model(&BookingModel{}), filter).
		Where("student_id = ?", studentID)
	return listBookings(q, page, limit)
}

// FindByMentorProfileID retrieves bookings addressed to a mentor profile with pagination.
func (r *GormBookingRepository) FindByMentorProfileID(ctx context.Context, mentorProfileID uuid.UUID, filter bookingDomain.ListFilter, page, limit int) ([]*bookingDomain.Booking, int64, error) {
	q := applyBookingFilter(r.db.WithContext(ctx).Model(&BookingModel{}), filter).
		Where("mentor_profile_id = ?", mentorProfileID)
	return listBookings(q, page, limit)
}

// ListAll retrieves all bookings with pagination (admin).
func (r *GormBookingRepository) ListAll(ctx context.Context, filter bookingDomain.ListFilter, page, limit int) ([]*bookingDomain.Booking, int64, error) {
	q := applyBookingFilter(r.db.WithContext(ctx).Model(&BookingModel{}), filter)
	return listBookings(q, page, limit)
}

// HasPayment reports whether any payment row references the booking.
func (r *GormBookingRepository) HasPayment(ctx context.Context, id uuid.UUID) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&PaymentModel{}).
		Where("booking_id = ?", id).Count(&count).Error; err != nil {
		return false, fmt.Errorf("failed to count booking payments: %w", err)
	}
	return count > 0, nil
}

// Delete removes a booking. Callers must ensure no payment exists.
func (r *GormBookingRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result := r.db.WithContext(ctx).Where("id = ?", id).Delete(&BookingModel{})
	if result.Error != nil {
		return fmt.Errorf("failed to delete booking: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return domain.NewNotFoundError("Booking", id.String())
	}
	return nil
}

// --- Query Helpers ---

func applyBookingFilter(q *gorm.DB, filter bookingDomain.ListFilter) *gorm.DB {
	if filter.Status != nil {
		q = q.Where("status = ?", string(*filter.Status))
	}
	if filter.DateFrom != nil {
		q = q.Where("scheduled_at >= ?", *filter.DateFrom)
	}
	if filter.DateUntil != nil {
		q = q.Where("scheduled_at < ?", *filter.DateUntil)
	}
	return q
}

func listBookings(q *gorm.DB, page, limit int) ([]*bookingDomain.Booking, int64, error) {
	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count bookings: %w", err)
	}

	var models []BookingModel
	offset := (page - 1) * limit
	if err := q.
		Order("scheduled_at DESC").
		Offset(offset).
		Limit(limit).
		Find(&models).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to list bookings: %w", err)
	}

	bookings := make([]*bookingDomain.Booking, len(models))
	for i, m := range models {
		bk, err := toDomainBooking(&m)
		if err != nil {
			return nil, 0, err
		}
		bookings[i] = bk
	}
	return bookings, total, nil
}

func isConstraintViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgUniqueViolation || pgErr.Code == pgExclusionViolation
	}
	return false
}

func isSerializationError(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgSerializationFail || pgErr.Code == pgDeadlockDetected
	}
	return false
}

// --- Conversion Helpers ---

func toBookingModel(bk *bookingDomain.Booking) *BookingModel {
	return &BookingModel{
		ID:               bk.ID(),
		Code:             bk.Code(),
		StudentID:        bk.StudentID(),
		MentorID:         bk.MentorID(),
		MentorProfileID:  bk.MentorProfileID(),
		Status:           string(bk.Status()),
		ScheduledAt:      bk.ScheduledAt(),
		DurationMinutes:  bk.DurationMinutes(),
		TotalAmountCents: bk.TotalAmountCents(),
		Currency:         bk.Currency(),
		Topic:            bk.Topic(),
		StudentNotes:     bk.StudentNotes(),
		MentorNotes:      bk.MentorNotes(),
		MeetingLink:      bk.MeetingLink(),
		CancelReason:     bk.CancelReason(),
		CancelledAt:      bk.CancelledAt(),
		Version:          bk.Version(),
		CreatedAt:        bk.CreatedAt(),
		UpdatedAt:        bk.UpdatedAt(),
	}
}

func bookingUpdateColumns(bk *bookingDomain.Booking) map[string]interface{} {
	return map[string]interface{}{
		"status":             string(bk.Status()),
		"scheduled_at":       bk.ScheduledAt(),
		"duration_minutes":   bk.DurationMinutes(),
		"total_amount_cents": bk.TotalAmountCents(),
		"mentor_notes":       bk.MentorNotes(),
		"meeting_link":       bk.MeetingLink(),
		"cancel_reason":      bk.CancelReason(),
		"cancelled_at":       bk.CancelledAt(),
		"version":            bk.Version(),
		"updated_at":         bk.UpdatedAt(),
	}
}

func toDomainBooking(m *BookingModel) (*bookingDomain.Booking, error) {
	status, err := bookingDomain.ParseStatus(m.Status)
	if err != nil {
		return nil, err
	}

	return bookingDomain.Reconstruct(
		m.ID,
		m.Code,
		m.StudentID,
		m.MentorID,
		m.MentorProfileID,
		status,
		m.ScheduledAt,
		m.DurationMinutes,
		m.TotalAmountCents,
		m.Currency,
		m.Topic,
		m.StudentNotes,
		m.MentorNotes,
		m.MeetingLink,
		m.CancelReason,
		m.CancelledAt,
		m.Version,
		m.CreatedAt,
		m.UpdatedAt,
	), nil
}
