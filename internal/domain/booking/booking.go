package booking

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"time"

	"github.com/google/uuid"
	"github.com/mentorkita/service-booking/internal/domain"
)

const bookingCodeChars = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

// StudentCancelWindow is how far before the scheduled time a student may still cancel.
const StudentCancelWindow = 24 * time.Hour

// Booking is the aggregate root for the booking domain. A booking is owned
// jointly by the student who created it and the mentor who responds to it.
type Booking struct {
	id              uuid.UUID
	code            string
	studentID       uuid.UUID
	mentorID        uuid.UUID
	mentorProfileID uuid.UUID
	status          Status

	scheduledAt     time.Time
	durationMinutes int

	totalAmountCents int64
	currency         string

	topic        string
	studentNotes string
	mentorNotes  string
	meetingLink  string

	cancelReason string
	cancelledAt  *time.Time

	version   int64
	createdAt time.Time
	updatedAt time.Time
}

// generateBookingCode creates a code in the format "BK-YYYYMMDD-XXXXXX".
func generateBookingCode(now time.Time) (string, error) {
	result := make([]byte, 6)
	for i := range result {
		n, err := rand.Int(rand.Reader, big.NewInt(int64(len(bookingCodeChars))))
		if err != nil {
			return "", fmt.Errorf("failed to generate booking code: %w", err)
		}
		result[i] = bookingCodeChars[n.Int64()]
	}
	return fmt.Sprintf("BK-%s-%s", now.Format("20060102"), string(result)), nil
}

// NewBooking creates a new Booking aggregate with status=pending.
// The total amount is locked in at creation and never silently recomputed.
func NewBooking(
	studentID uuid.UUID,
	mentorID uuid.UUID,
	mentorProfileID uuid.UUID,
	scheduledAt time.Time,
	durationMinutes int,
	totalAmountCents int64,
	topic string,
	studentNotes string,
) (*Booking, error) {
	if studentID == uuid.Nil {
		return nil, domain.NewValidationError("student ID is required")
	}
	if mentorID == uuid.Nil {
		return nil, domain.NewValidationError("mentor ID is required")
	}
	if mentorProfileID == uuid.Nil {
		return nil, domain.NewValidationError("mentor profile ID is required")
	}
	if scheduledAt.IsZero() {
		return nil, domain.NewValidationError("scheduled time is required")
	}
	if durationMinutes <= 0 {
		return nil, domain.NewValidationError("duration must be positive")
	}
	if totalAmountCents < 0 {
		return nil, domain.NewValidationError("total amount cannot be negative")
	}
	if topic == "" {
		return nil, domain.NewValidationError("session topic is required")
	}

	now := time.Now().UTC()
	code, err := generateBookingCode(now)
	if err != nil {
		return nil, err
	}

	return &Booking{
		id:               uuid.New(),
		code:             code,
		studentID:        studentID,
		mentorID:         mentorID,
		mentorProfileID:  mentorProfileID,
		status:           StatusPending,
		scheduledAt:      scheduledAt.UTC(),
		durationMinutes:  durationMinutes,
		totalAmountCents: totalAmountCents,
		currency:         domain.CurrencyIDR,
		topic:            topic,
		studentNotes:     studentNotes,
		version:          1,
		createdAt:        now,
		updatedAt:        now,
	}, nil
}

// Reconstruct rebuilds a Booking from persistence data (no validation).
func Reconstruct(
	id uuid.UUID,
	code string,
	studentID uuid.UUID,
	mentorID uuid.UUID,
	mentorProfileID uuid.UUID,
	status Status,
	scheduledAt time.Time,
	durationMinutes int,
	totalAmountCents int64,
	currency string,
	topic string,
	studentNotes string,
	mentorNotes string,
	meetingLink string,
	cancelReason string,
	cancelledAt *time.Time,
	version int64,
	createdAt time.Time,
	updatedAt time.Time,
) *Booking {
	return &Booking{
		id:               id,
		code:             code,
		studentID:        studentID,
		mentorID:         mentorID,
		mentorProfileID:  mentorProfileID,
		status:           status,
		scheduledAt:      scheduledAt,
		durationMinutes:  durationMinutes,
		totalAmountCents: totalAmountCents,
		currency:         currency,
		topic:            topic,
		studentNotes:     studentNotes,
		mentorNotes:      mentorNotes,
		meetingLink:      meetingLink,
		cancelReason:     cancelReason,
		cancelledAt:      cancelledAt,
		version:          version,
		createdAt:        createdAt,
		updatedAt:        updatedAt,
	}
}

// --- Getters ---

func (b *Booking) ID() uuid.UUID              { return b.id }
func (b *Booking) Code() string               { return b.code }
func (b *Booking) StudentID() uuid.UUID       { return b.studentID }
func (b *Booking) MentorID() uuid.UUID        { return b.mentorID }
func (b *Booking) MentorProfileID() uuid.UUID { return b.mentorProfileID }
func (b *Booking) Status() Status             { return b.status }
func (b *Booking) ScheduledAt() time.Time     { return b.scheduledAt }
func (b *Booking) DurationMinutes() int       { return b.durationMinutes }
func (b *Booking) TotalAmountCents() int64    { return b.totalAmountCents }
func (b *Booking) Currency() string           { return b.currency }
func (b *Booking) Topic() string              { return b.topic }
func (b *Booking) StudentNotes() string       { return b.studentNotes }
func (b *Booking) MentorNotes() string        { return b.mentorNotes }
func (b *Booking) MeetingLink() string        { return b.meetingLink }
func (b *Booking) CancelReason() string       { return b.cancelReason }
func (b *Booking) CancelledAt() *time.Time    { return b.cancelledAt }
func (b *Booking) Version() int64             { return b.version }
func (b *Booking) CreatedAt() time.Time       { return b.createdAt }
func (b *Booking) UpdatedAt() time.Time       { return b.updatedAt }

// EndsAt returns the exclusive end of the booked interval.
func (b *Booking) EndsAt() time.Time {
	return b.scheduledAt.Add(time.Duration(b.durationMinutes) * time.Minute)
}

// Overlaps reports whether the booked interval overlaps [start, end) under
// half-open semantics.
func (b *Booking) Overlaps(start, end time.Time) bool {
	return b.scheduledAt.Before(end) && b.EndsAt().After(start)
}

// --- Behavior ---

// CanBeCancelledAt reports whether a student-initiated cancellation is still
// permitted: the session must be more than 24 hours away and the booking must
// still occupy its slot.
func (b *Booking) CanBeCancelledAt(now time.Time) bool {
	return b.scheduledAt.After(now.Add(StudentCancelWindow)) && b.status.Blocks()
}

// TransitionTo moves the booking to the target status on behalf of the given
// actor, enforcing the role-gated transition table. Admins may force any
// status; students are additionally held to the 24-hour cancellation window.
func (b *Booking) TransitionTo(actor domain.Actor, target Status, reason string, now time.Time) error {
	if !target.IsValid() {
		return domain.NewValidationError(fmt.Sprintf("invalid booking status: %s", target))
	}
	if !b.status.AllowedFor(actor.Role, target) {
		return domain.NewInvalidStateError(string(b.status), string(target))
	}
	if actor.Role == domain.RoleStudent && target == StatusCancelled && !b.CanBeCancelledAt(now) {
		return domain.NewInvalidStateErrorf(
			"booking can only be cancelled more than %d hours before the scheduled time",
			int(StudentCancelWindow.Hours()))
	}

	b.status = target
	if target == StatusCancelled || target == StatusRejected {
		at := now.UTC()
		b.cancelledAt = &at
		b.cancelReason = reason
	}
	b.updatedAt = now.UTC()
	return nil
}

// Confirm moves a pending booking to confirmed. Used by the payment coupler,
// where confirmation is a side effect of a successful payment rather than a
// mentor action; an already-confirmed booking is left untouched.
func (b *Booking) Confirm(now time.Time) (changed bool, err error) {
	if b.status == StatusConfirmed {
		return false, nil
	}
	if b.status != StatusPending {
		return false, domain.NewInvalidStateError(string(b.status), string(StatusConfirmed))
	}
	b.status = StatusConfirmed
	b.updatedAt = now.UTC()
	return true, nil
}

// SetMeetingLink attaches the session's meeting link.
func (b *Booking) SetMeetingLink(link string) {
	b.meetingLink = link
	b.updatedAt = time.Now().UTC()
}

// SetMentorNotes records the mentor's notes for the session.
func (b *Booking) SetMentorNotes(notes string) {
	b.mentorNotes = notes
	b.updatedAt = time.Now().UTC()
}

// Reschedule moves the booking to a new slot. Only bookings still occupying
// their slot can move; callers re-run the availability and conflict checks for
// the new interval.
func (b *Booking) Reschedule(scheduledAt time.Time, durationMinutes int) error {
	if scheduledAt.IsZero() {
		return domain.NewValidationError("scheduled time is required")
	}
	if durationMinutes <= 0 {
		return domain.NewValidationError("duration must be positive")
	}
	if b.status.IsTerminal() {
		return domain.NewInvalidStateErrorf("cannot reschedule a %s booking", b.status)
	}
	b.scheduledAt = scheduledAt.UTC()
	b.durationMinutes = durationMinutes
	b.updatedAt = time.Now().UTC()
	return nil
}

// Reprice replaces the locked-in amount. Price is never recomputed implicitly;
// callers invoke this as a deliberate act after editing the duration.
func (b *Booking) Reprice(totalAmountCents int64) error {
	if totalAmountCents < 0 {
		return domain.NewValidationError("total amount cannot be negative")
	}
	if b.status.IsTerminal() {
		return domain.NewInvalidStateErrorf("cannot reprice a %s booking", b.status)
	}
	b.totalAmountCents = totalAmountCents
	b.updatedAt = time.Now().UTC()
	return nil
}

// IncrementVersion bumps the version for optimistic locking.
func (b *Booking) IncrementVersion() {
	b.version++
	b.updatedAt = time.Now().UTC()
}
