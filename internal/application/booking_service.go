package application

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/mentorkita/service-booking/internal/authz"
	"github.com/mentorkita/service-booking/internal/domain"
	bookingDomain "github.com/mentorkita/service-booking/internal/domain/booking"
	"github.com/mentorkita/service-booking/internal/domain/mentor"
	"github.com/mentorkita/service-booking/internal/notify"
)

// CreateBookingRequest holds the data needed to create a new booking.
type CreateBookingRequest struct {
	MentorProfileID uuid.UUID `json:"mentor_profile_id" binding:"required"`
	ScheduledAt     time.Time `json:"scheduled_at" binding:"required"`
	DurationMinutes int       `json:"duration_minutes" binding:"required"`
	Topic           string    `json:"topic" binding:"required"`
	StudentNotes    string    `json:"student_notes"`
}

// UpdateStatusRequest holds a requested status transition.
type UpdateStatusRequest struct {
	Status string `json:"status" binding:"required"`
	Reason string `json:"reason"`
}

// SessionDetailsRequest holds the mentor-editable session fields.
type SessionDetailsRequest struct {
	MeetingLink *string `json:"meeting_link"`
	MentorNotes *string `json:"mentor_notes"`
}

// RescheduleRequest moves a booking to a new slot.
type RescheduleRequest struct {
	ScheduledAt     time.Time `json:"scheduled_at" binding:"required"`
	DurationMinutes int       `json:"duration_minutes" binding:"required"`
}

// BookingDTO is the response representation of a booking.
type BookingDTO struct {
	ID               uuid.UUID  `json:"id"`
	Code             string     `json:"code"`
	StudentID        uuid.UUID  `json:"student_id"`
	MentorID         uuid.UUID  `json:"mentor_id"`
	MentorProfileID  uuid.UUID  `json:"mentor_profile_id"`
	Status           string     `json:"status"`
	ScheduledAt      time.Time  `json:"scheduled_at"`
	DurationMinutes  int        `json:"duration_minutes"`
	TotalAmountCents int64      `json:"total_amount_cents"`
	Currency         string     `json:"currency"`
	Topic            string     `json:"topic"`
	StudentNotes     string     `json:"student_notes,omitempty"`
	MentorNotes      string     `json:"mentor_notes,omitempty"`
	MeetingLink      string     `json:"meeting_link,omitempty"`
	CancelReason     string     `json:"cancel_reason,omitempty"`
	CancelledAt      *time.Time `json:"cancelled_at,omitempty"`
	Version          int64      `json:"version"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`
}

// ListBookingsQuery narrows booking listings.
type ListBookingsQuery struct {
	Status    *string
	DateFrom  *time.Time
	DateUntil *time.Time
}

// BookingService is the application service orchestrating booking use cases.
type BookingService struct {
	bookings bookingDomain.Repository
	mentors  mentor.Repository
	pricing  bookingDomain.PricingStrategy
	authz    authz.Authorizer
	notifier notify.Notifier
	logger   *zap.Logger
}

// NewBookingService creates a new BookingService.
func NewBookingService(
	bookings bookingDomain.Repository,
	mentors mentor.Repository,
	pricing bookingDomain.PricingStrategy,
	authorizer authz.Authorizer,
	notifier notify.Notifier,
	logger *zap.Logger,
) *BookingService {
	return &BookingService{
		bookings: bookings,
		mentors:  mentors,
		pricing:  pricing,
		authz:    authorizer,
		notifier: notifier,
		logger:   logger,
	}
}

// CreateBooking reserves a slot with the mentor for the requesting student.
// The price is computed from the mentor's current hourly rate and locked in.
func (s *BookingService) CreateBooking(ctx context.Context, actor domain.Actor, req CreateBookingRequest) (*BookingDTO, error) {
	if !s.authz.Can(actor, authz.ActionCreateBooking, authz.Resource{StudentID: actor.ID}) {
		return nil, domain.NewForbiddenError("only students can create bookings")
	}

	profile, err := s.mentors.FindByID(ctx, req.MentorProfileID)
	if err != nil {
		return nil, err
	}
	if !profile.Available() {
		return nil, domain.NewConflictError("mentor is not accepting bookings")
	}

	totalCents, err := s.pricing.Calculate(profile.HourlyRateCents(), req.DurationMinutes)
	if err != nil {
		return nil, err
	}

	bk, err := bookingDomain.NewBooking(
		actor.ID,
		profile.UserID(),
		profile.ID(),
		req.ScheduledAt,
		req.DurationMinutes,
		totalCents,
		req.Topic,
		req.StudentNotes,
	)
	if err != nil {
		return nil, err
	}

	if err := s.bookings.Reserve(ctx, bk); err != nil {
		return nil, err
	}

	s.notifyStatusChange(ctx, notify.EventBookingCreated, bk, "")

	result := toBookingDTO(bk)
	return &result, nil
}

// UpdateStatus transitions the booking on behalf of the actor, enforcing the
// role-gated transition table inside a row-locked read-modify-write.
func (s *BookingService) UpdateStatus(ctx context.Context, actor domain.Actor, bookingID uuid.UUID, req UpdateStatusRequest) (*BookingDTO, error) {
	target, err := bookingDomain.ParseStatus(req.Status)
	if err != nil {
		return nil, domain.NewValidationError(err.Error())
	}

	now := time.Now().UTC()
	bk, oldStatus, err := s.bookings.Transition(ctx, bookingID, func(bk *bookingDomain.Booking) error {
		if !s.authz.Can(actor, authz.ActionViewBooking, bookingResource(bk)) {
			return domain.NewForbiddenError("booking does not belong to this user")
		}
		return bk.TransitionTo(actor, target, req.Reason, now)
	})
	if err != nil {
		return nil, err
	}

	if oldStatus != bk.Status() {
		if bk.Status() == bookingDomain.StatusCompleted {
			if err := s.mentors.IncrementSessions(ctx, bk.MentorProfileID()); err != nil {
				s.logger.Error("failed to increment mentor sessions",
					zap.String("mentor_profile_id", bk.MentorProfileID().String()),
					zap.Error(err),
				)
			}
		}
		s.notifyStatusChange(ctx, notify.EventBookingUpdated, bk, oldStatus)
	}

	result := toBookingDTO(bk)
	return &result, nil
}

// UpdateSessionDetails lets the mentor attach a meeting link and notes.
func (s *BookingService) UpdateSessionDetails(ctx context.Context, actor domain.Actor, bookingID uuid.UUID, req SessionDetailsRequest) (*BookingDTO, error) {
	bk, _, err := s.bookings.Transition(ctx, bookingID, func(bk *bookingDomain.Booking) error {
		if actor.Role != domain.RoleAdmin && (actor.Role != domain.RoleMentor || actor.ID != bk.MentorID()) {
			return domain.NewForbiddenError("only the booking's mentor can edit session details")
		}
		if req.MeetingLink != nil {
			bk.SetMeetingLink(*req.MeetingLink)
		}
		if req.MentorNotes != nil {
			bk.SetMentorNotes(*req.MentorNotes)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	result := toBookingDTO(bk)
	return &result, nil
}

// Reschedule moves a pending booking to a new slot and reprices it from the
// mentor's current rate. The availability and conflict checks run before the
// write; the exclusion constraint on bookings backstops a lost race.
func (s *BookingService) Reschedule(ctx context.Context, actor domain.Actor, bookingID uuid.UUID, req RescheduleRequest) (*BookingDTO, error) {
	current, err := s.bookings.FindByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if !s.authz.Can(actor, authz.ActionCreateBooking, authz.Resource{StudentID: current.StudentID()}) {
		return nil, domain.NewForbiddenError("booking does not belong to this user")
	}
	if current.Status() != bookingDomain.StatusPending {
		return nil, domain.NewInvalidStateErrorf("only pending bookings can be rescheduled, booking is %s", current.Status())
	}

	profile, err := s.mentors.FindByID(ctx, current.MentorProfileID())
	if err != nil {
		return nil, err
	}
	totalCents, err := s.pricing.Calculate(profile.HourlyRateCents(), req.DurationMinutes)
	if err != nil {
		return nil, err
	}

	start := req.ScheduledAt.UTC()
	end := start.Add(time.Duration(req.DurationMinutes) * time.Minute)
	excludeID := current.ID()
	conflict, err := s.bookings.FindConflict(ctx, current.MentorProfileID(), start, end, &excludeID)
	if err != nil {
		return nil, err
	}
	if conflict != nil {
		return nil, domain.NewConflictError("the requested slot is already booked")
	}

	bk, oldStatus, err := s.bookings.Transition(ctx, bookingID, func(bk *bookingDomain.Booking) error {
		if bk.Status() != bookingDomain.StatusPending {
			return domain.NewInvalidStateErrorf("only pending bookings can be rescheduled, booking is %s", bk.Status())
		}
		if err := bk.Reschedule(start, req.DurationMinutes); err != nil {
			return err
		}
		return bk.Reprice(totalCents)
	})
	if err != nil {
		return nil, err
	}

	s.notifyStatusChange(ctx, notify.EventBookingUpdated, bk, oldStatus)

	result := toBookingDTO(bk)
	return &result, nil
}

// GetBooking retrieves a single booking by ID, scoped to its parties.
func (s *BookingService) GetBooking(ctx context.Context, actor domain.Actor, bookingID uuid.UUID) (*BookingDTO, error) {
	bk, err := s.bookings.FindByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if !s.authz.Can(actor, authz.ActionViewBooking, bookingResource(bk)) {
		return nil, domain.NewForbiddenError("booking does not belong to this user")
	}
	result := toBookingDTO(bk)
	return &result, nil
}

// GetBookingByCode retrieves a single booking by its human-readable code.
func (s *BookingService) GetBookingByCode(ctx context.Context, actor domain.Actor, code string) (*BookingDTO, error) {
	bk, err := s.bookings.FindByCode(ctx, code)
	if err != nil {
		return nil, err
	}
	if !s.authz.Can(actor, authz.ActionViewBooking, bookingResource(bk)) {
		return nil, domain.NewForbiddenError("booking does not belong to this user")
	}
	result := toBookingDTO(bk)
	return &result, nil
}

// GetStudentBookings retrieves the actor's own bookings as a student.
func (s *BookingService) GetStudentBookings(ctx context.Context, actor domain.Actor, query ListBookingsQuery, page, limit int) (*domain.PaginatedResult[BookingDTO], error) {
	filter, err := toListFilter(query)
	if err != nil {
		return nil, err
	}
	bookings, total, err := s.bookings.FindByStudentID(ctx, actor.ID, filter, page, limit)
	if err != nil {
		return nil, err
	}
	return paginateBookings(bookings, total, page, limit), nil
}

// GetMentorBookings retrieves bookings addressed to the actor's mentor profile.
func (s *BookingService) GetMentorBookings(ctx context.Context, actor domain.Actor, query ListBookingsQuery, page, limit int) (*domain.PaginatedResult[BookingDTO], error) {
	profile, err := s.mentors.FindByUserID(ctx, actor.ID)
	if err != nil {
		return nil, err
	}
	filter, err := toListFilter(query)
	if err != nil {
		return nil, err
	}
	bookings, total, err := s.bookings.FindByMentorProfileID(ctx, profile.ID(), filter, page, limit)
	if err != nil {
		return nil, err
	}
	return paginateBookings(bookings, total, page, limit), nil
}

// ListAllBookings returns a paginated list of all bookings (admin).
func (s *BookingService) ListAllBookings(ctx context.Context, actor domain.Actor, query ListBookingsQuery, page, limit int) (*domain.PaginatedResult[BookingDTO], error) {
	if !s.authz.Can(actor, authz.ActionListAll, authz.Resource{}) {
		return nil, domain.NewForbiddenError("admin access required")
	}
	filter, err := toListFilter(query)
	if err != nil {
		return nil, err
	}
	bookings, total, err := s.bookings.ListAll(ctx, filter, page, limit)
	if err != nil {
		return nil, err
	}
	return paginateBookings(bookings, total, page, limit), nil
}

// DeleteBooking hard-deletes a booking (admin). Bookings that ever had a
// payment are kept for the audit trail.
func (s *BookingService) DeleteBooking(ctx context.Context, actor domain.Actor, bookingID uuid.UUID) error {
	if !s.authz.Can(actor, authz.ActionDeleteBooking, authz.Resource{}) {
		return domain.NewForbiddenError("admin access required")
	}

	hasPayment, err := s.bookings.HasPayment(ctx, bookingID)
	if err != nil {
		return err
	}
	if hasPayment {
		return domain.NewConflictError("bookings with payments cannot be deleted")
	}
	return s.bookings.Delete(ctx, bookingID)
}

// --- Helpers ---

func bookingResource(bk *bookingDomain.Booking) authz.Resource {
	return authz.Resource{StudentID: bk.StudentID(), MentorID: bk.MentorID()}
}

func toListFilter(query ListBookingsQuery) (bookingDomain.ListFilter, error) {
	filter := bookingDomain.ListFilter{
		DateFrom:  query.DateFrom,
		DateUntil: query.DateUntil,
	}
	if query.Status != nil {
		status, err := bookingDomain.ParseStatus(*query.Status)
		if err != nil {
			return bookingDomain.ListFilter{}, domain.NewValidationError(err.Error())
		}
		filter.Status = &status
	}
	return filter, nil
}

func paginateBookings(bookings []*bookingDomain.Booking, total int64, page, limit int) *domain.PaginatedResult[BookingDTO] {
	dtos := make([]BookingDTO, len(bookings))
	for i, bk := range bookings {
		dtos[i] = toBookingDTO(bk)
	}
	result := domain.NewPaginatedResult(dtos, total, page, limit)
	return &result
}

func toBookingDTO(bk *bookingDomain.Booking) BookingDTO {
	return BookingDTO{
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

func toBookingSnapshot(bk *bookingDomain.Booking) notify.BookingSnapshot {
	return notify.BookingSnapshot{
		ID:               bk.ID(),
		Code:             bk.Code(),
		StudentID:        bk.StudentID(),
		MentorID:         bk.MentorID(),
		MentorProfileID:  bk.MentorProfileID(),
		Status:           string(bk.Status()),
		ScheduledAt:      bk.ScheduledAt().Format(time.RFC3339),
		DurationMinutes:  bk.DurationMinutes(),
		TotalAmountCents: bk.TotalAmountCents(),
		Currency:         bk.Currency(),
		Topic:            bk.Topic(),
	}
}

func (s *BookingService) notifyStatusChange(ctx context.Context, eventName string, bk *bookingDomain.Booking, oldStatus bookingDomain.Status) {
	channels := []string{
		notify.MentorChannel(bk.MentorID()),
		notify.StudentChannel(bk.StudentID()),
	}
	payload := notify.StatusChangePayload{
		OldStatus: string(oldStatus),
		NewStatus: string(bk.Status()),
		Booking:   toBookingSnapshot(bk),
	}
	s.notifier.Notify(ctx, eventName, channels, payload)
}
