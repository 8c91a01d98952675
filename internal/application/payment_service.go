package application

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/mentorkita/service-booking/internal/authz"
	"github.com/mentorkita/service-booking/internal/domain"
	bookingDomain "github.com/mentorkita/service-booking/internal/domain/booking"
	"github.com/mentorkita/service-booking/internal/domain/mentor"
	paymentDomain "github.com/mentorkita/service-booking/internal/domain/payment"
	"github.com/mentorkita/service-booking/internal/notify"
)

// RecordPaymentRequest holds the data needed to record a payment attempt.
type RecordPaymentRequest struct {
	BookingID   uuid.UUID `json:"booking_id" binding:"required"`
	AmountCents int64     `json:"amount_cents" binding:"required"`
	Method      string    `json:"method" binding:"required"`
}

// GatewayResult is a payment gateway's verdict on a payment attempt.
type GatewayResult struct {
	PaymentCode string          `json:"payment_code"`
	ExternalID  string          `json:"external_id"`
	Details     json.RawMessage `json:"details"`
}

// PaymentDTO is the response representation of a payment.
type PaymentDTO struct {
	ID          uuid.UUID       `json:"id"`
	Code        string          `json:"code"`
	BookingID   uuid.UUID       `json:"booking_id"`
	AmountCents int64           `json:"amount_cents"`
	Currency    string          `json:"currency"`
	Method      string          `json:"method"`
	Status      string          `json:"status"`
	ExternalID  string          `json:"external_id,omitempty"`
	Details     json.RawMessage `json:"details,omitempty"`
	PaidAt      *time.Time      `json:"paid_at,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// PaymentService couples payments to their bookings: a successful payment
// confirms the pending booking, a failed one leaves it untouched.
type PaymentService struct {
	payments paymentDomain.Repository
	bookings bookingDomain.Repository
	mentors  mentor.Repository
	authz    authz.Authorizer
	notifier notify.Notifier
	logger   *zap.Logger
}

// NewPaymentService creates a new PaymentService.
func NewPaymentService(
	payments paymentDomain.Repository,
	bookings bookingDomain.Repository,
	mentors mentor.Repository,
	authorizer authz.Authorizer,
	notifier notify.Notifier,
	logger *zap.Logger,
) *PaymentService {
	return &PaymentService{
		payments: payments,
		bookings: bookings,
		mentors:  mentors,
		authz:    authorizer,
		notifier: notifier,
		logger:   logger,
	}
}

// RecordPayment creates a pending payment for the actor's booking. The amount
// must match the booking's locked-in total; a booking that is already paid
// rejects further payments.
func (s *PaymentService) RecordPayment(ctx context.Context, actor domain.Actor, req RecordPaymentRequest) (*PaymentDTO, error) {
	bk, err := s.bookings.FindByID(ctx, req.BookingID)
	if err != nil {
		return nil, err
	}
	if !s.authz.Can(actor, authz.ActionCreatePayment, bookingResource(bk)) {
		return nil, domain.NewForbiddenError("booking does not belong to this user")
	}
	if bk.Status().IsTerminal() {
		return nil, domain.NewInvalidStateErrorf("cannot pay for a %s booking", bk.Status())
	}

	p, err := paymentDomain.NewPayment(req.BookingID, req.AmountCents, req.Method)
	if err != nil {
		return nil, err
	}
	if err := s.payments.CreateForBooking(ctx, p); err != nil {
		return nil, err
	}

	result := toPaymentDTO(p)
	return &result, nil
}

// HandleGatewaySuccess marks the payment paid and confirms its booking.
// Idempotent end to end: replaying the same gateway event changes nothing, so
// redelivered webhook messages are safe.
func (s *PaymentService) HandleGatewaySuccess(ctx context.Context, result GatewayResult) error {
	p, err := s.payments.FindByCode(ctx, result.PaymentCode)
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	changed, err := p.MarkPaid(result.ExternalID, result.Details, now)
	if err != nil {
		return err
	}
	if changed {
		p.IncrementVersion()
		if err := s.payments.Update(ctx, p); err != nil {
			return err
		}
	}

	bk, oldStatus, err := s.bookings.Transition(ctx, p.BookingID(), func(bk *bookingDomain.Booking) error {
		_, err := bk.Confirm(now)
		return err
	})
	if err != nil {
		return err
	}
	if oldStatus != bk.Status() {
		s.notifyBookingConfirmed(ctx, bk, oldStatus)
	}
	return nil
}

// HandleGatewayFailure marks the payment failed. The booking stays pending so
// the student can retry with another method.
func (s *PaymentService) HandleGatewayFailure(ctx context.Context, result GatewayResult) error {
	p, err := s.payments.FindByCode(ctx, result.PaymentCode)
	if err != nil {
		return err
	}
	if p.Status() == paymentDomain.StatusFailed {
		return nil
	}

	if err := p.MarkFailed(result.Details, time.Now().UTC()); err != nil {
		return err
	}
	p.IncrementVersion()
	return s.payments.Update(ctx, p)
}

// RefundPayment transitions a paid payment to refunded (admin).
func (s *PaymentService) RefundPayment(ctx context.Context, actor domain.Actor, paymentID uuid.UUID) (*PaymentDTO, error) {
	if !s.authz.Can(actor, authz.ActionRefundPayment, authz.Resource{}) {
		return nil, domain.NewForbiddenError("admin access required")
	}

	p, err := s.payments.FindByID(ctx, paymentID)
	if err != nil {
		return nil, err
	}
	if err := p.Refund(time.Now().UTC()); err != nil {
		return nil, err
	}
	p.IncrementVersion()
	if err := s.payments.Update(ctx, p); err != nil {
		return nil, err
	}

	result := toPaymentDTO(p)
	return &result, nil
}

// GetPayment retrieves a single payment, scoped to the booking's parties.
func (s *PaymentService) GetPayment(ctx context.Context, actor domain.Actor, paymentID uuid.UUID) (*PaymentDTO, error) {
	p, err := s.payments.FindByID(ctx, paymentID)
	if err != nil {
		return nil, err
	}
	bk, err := s.bookings.FindByID(ctx, p.BookingID())
	if err != nil {
		return nil, err
	}
	if !s.authz.Can(actor, authz.ActionViewPayment, bookingResource(bk)) {
		return nil, domain.NewForbiddenError("payment does not belong to this user")
	}

	result := toPaymentDTO(p)
	return &result, nil
}

// GetBookingPayment retrieves the payment attached to a booking.
func (s *PaymentService) GetBookingPayment(ctx context.Context, actor domain.Actor, bookingID uuid.UUID) (*PaymentDTO, error) {
	bk, err := s.bookings.FindByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if !s.authz.Can(actor, authz.ActionViewPayment, bookingResource(bk)) {
		return nil, domain.NewForbiddenError("booking does not belong to this user")
	}

	p, err := s.payments.FindByBookingID(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	result := toPaymentDTO(p)
	return &result, nil
}

// GetStudentPayments lists the actor's own payments as a student.
func (s *PaymentService) GetStudentPayments(ctx context.Context, actor domain.Actor, page, limit int) (*domain.PaginatedResult[PaymentDTO], error) {
	payments, total, err := s.payments.FindByStudentID(ctx, actor.ID, page, limit)
	if err != nil {
		return nil, err
	}
	return paginatePayments(payments, total, page, limit), nil
}

// GetMentorPayments lists payments on bookings addressed to the actor's profile.
func (s *PaymentService) GetMentorPayments(ctx context.Context, actor domain.Actor, page, limit int) (*domain.PaginatedResult[PaymentDTO], error) {
	profile, err := s.mentors.FindByUserID(ctx, actor.ID)
	if err != nil {
		return nil, err
	}
	payments, total, err := s.payments.FindByMentorProfileID(ctx, profile.ID(), page, limit)
	if err != nil {
		return nil, err
	}
	return paginatePayments(payments, total, page, limit), nil
}

// ListAllPayments returns a paginated list of all payments (admin).
func (s *PaymentService) ListAllPayments(ctx context.Context, actor domain.Actor, page, limit int) (*domain.PaginatedResult[PaymentDTO], error) {
	if !s.authz.Can(actor, authz.ActionListAll, authz.Resource{}) {
		return nil, domain.NewForbiddenError("admin access required")
	}
	payments, total, err := s.payments.ListAll(ctx, page, limit)
	if err != nil {
		return nil, err
	}
	return paginatePayments(payments, total, page, limit), nil
}

// --- Helpers ---

func (s *PaymentService) notifyBookingConfirmed(ctx context.Context, bk *bookingDomain.Booking, oldStatus bookingDomain.Status) {
	channels := []string{
		notify.MentorChannel(bk.MentorID()),
		notify.StudentChannel(bk.StudentID()),
	}
	payload := notify.StatusChangePayload{
		OldStatus: string(oldStatus),
		NewStatus: string(bk.Status()),
		Booking:   toBookingSnapshot(bk),
	}
	s.notifier.Notify(ctx, notify.EventBookingUpdated, channels, payload)
}

func paginatePayments(payments []*paymentDomain.Payment, total int64, page, limit int) *domain.PaginatedResult[PaymentDTO] {
	dtos := make([]PaymentDTO, len(payments))
	for i, p := range payments {
		dtos[i] = toPaymentDTO(p)
	}
	result := domain.NewPaginatedResult(dtos, total, page, limit)
	return &result
}

func toPaymentDTO(p *paymentDomain.Payment) PaymentDTO {
	return PaymentDTO{
		ID:          p.ID(),
		Code:        p.Code(),
		BookingID:   p.BookingID(),
		AmountCents: p.AmountCents(),
		Currency:    p.Currency(),
		Method:      p.Method(),
		Status:      string(p.Status()),
		ExternalID:  p.ExternalID(),
		Details:     p.Details(),
		PaidAt:      p.PaidAt(),
		CreatedAt:   p.CreatedAt(),
		UpdatedAt:   p.UpdatedAt(),
	}
}
