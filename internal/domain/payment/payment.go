package payment

import (
	"crypto/rand"
	"encoding/json"
	"fmt"
	"math/big"
	"time"

	"github.com/google/uuid"
	"github.com/mentorkita/service-booking/internal/domain"
)

const paymentCodeChars = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

// Status represents the state of a payment.
type Status string

const (
	StatusPending  Status = "pending"
	StatusPaid     Status = "paid"
	StatusFailed   Status = "failed"
	StatusRefunded Status = "refunded"
)

// IsValid returns true if the status is a recognized payment status.
func (s Status) IsValid() bool {
	switch s {
	case StatusPending, StatusPaid, StatusFailed, StatusRefunded:
		return true
	}
	return false
}

// ParseStatus converts a string to a Status, returning an error if invalid.
func ParseStatus(s string) (Status, error) {
	status := Status(s)
	if !status.IsValid() {
		return "", fmt.Errorf("invalid payment status: %s", s)
	}
	return status, nil
}

// Payment belongs to exactly one booking. Once paid it is immutable except
// for the refund transition.
type Payment struct {
	id          uuid.UUID
	code        string
	bookingID   uuid.UUID
	amountCents int64
	currency    string
	method      string
	status      Status
	externalID  string
	details     json.RawMessage
	paidAt      *time.Time
	version     int64
	createdAt   time.Time
	updatedAt   time.Time
}

// generatePaymentCode creates a code in the format "PAY-YYYYMMDD-XXXXXXXX".
func generatePaymentCode(now time.Time) (string, error) {
	result := make([]byte, 8)
	for i := range result {
		n, err := rand.Int(rand.Reader, big.NewInt(int64(len(paymentCodeChars))))
		if err != nil {
			return "", fmt.Errorf("failed to generate payment code: %w", err)
		}
		result[i] = paymentCodeChars[n.Int64()]
	}
	return fmt.Sprintf("PAY-%s-%s", now.Format("20060102"), string(result)), nil
}

// NewPayment creates a pending payment for a booking. The amount must equal
// the booking's locked-in total; that invariant is checked by the caller
// against the booking row inside the recording transaction.
func NewPayment(bookingID uuid.UUID, amountCents int64, method string) (*Payment, error) {
	if bookingID == uuid.Nil {
		return nil, domain.NewValidationError("booking ID is required")
	}
	if amountCents < 0 {
		return nil, domain.NewValidationError("amount cannot be negative")
	}
	if method == "" {
		return nil, domain.NewValidationError("payment method is required")
	}

	now := time.Now().UTC()
	code, err := generatePaymentCode(now)
	if err != nil {
		return nil, err
	}

	return &Payment{
		id:          uuid.New(),
		code:        code,
		bookingID:   bookingID,
		amountCents: amountCents,
		currency:    domain.CurrencyIDR,
		method:      method,
		status:      StatusPending,
		version:     1,
		createdAt:   now,
		updatedAt:   now,
	}, nil
}

// Reconstruct rebuilds a Payment from persistence data (no validation).
func Reconstruct(
	id uuid.UUID,
	code string,
	bookingID uuid.UUID,
	amountCents int64,
	currency string,
	method string,
	status Status,
	externalID string,
	details json.RawMessage,
	paidAt *time.Time,
	version int64,
	createdAt time.Time,
	updatedAt time.Time,
) *Payment {
	return &Payment{
		id:          id,
		code:        code,
		bookingID:   bookingID,
		amountCents: amountCents,
		currency:    currency,
		method:      method,
		status:      status,
		externalID:  externalID,
		details:     details,
		paidAt:      paidAt,
		version:     version,
		createdAt:   createdAt,
		updatedAt:   updatedAt,
	}
}

// --- Getters ---

func (p *Payment) ID() uuid.UUID            { return p.id }
func (p *Payment) Code() string             { return p.code }
func (p *Payment) BookingID() uuid.UUID     { return p.bookingID }
func (p *Payment) AmountCents() int64       { return p.amountCents }
func (p *Payment) Currency() string         { return p.currency }
func (p *Payment) Method() string           { return p.method }
func (p *Payment) Status() Status           { return p.status }
func (p *Payment) ExternalID() string       { return p.externalID }
func (p *Payment) Details() json.RawMessage { return p.details }
func (p *Payment) PaidAt() *time.Time       { return p.paidAt }
func (p *Payment) Version() int64           { return p.version }
func (p *Payment) CreatedAt() time.Time     { return p.createdAt }
func (p *Payment) UpdatedAt() time.Time     { return p.updatedAt }

// --- Behavior ---

// MarkPaid records a successful gateway result. Idempotent: an already-paid
// payment is left untouched and changed=false is returned. Payments that
// already failed or were refunded cannot become paid.
func (p *Payment) MarkPaid(externalID string, details json.RawMessage, now time.Time) (changed bool, err error) {
	switch p.status {
	case StatusPaid:
		return false, nil
	case StatusPending, StatusFailed:
		// Gateways may retry a previously failed charge.
	default:
		return false, domain.NewInvalidStateError(string(p.status), string(StatusPaid))
	}

	at := now.UTC()
	p.status = StatusPaid
	p.paidAt = &at
	if externalID != "" {
		p.externalID = externalID
	}
	if details != nil {
		p.details = details
	}
	p.updatedAt = at
	return true, nil
}

// MarkFailed records a failed gateway result. The associated booking is left
// untouched by the caller. A paid payment can never be marked failed.
func (p *Payment) MarkFailed(details json.RawMessage, now time.Time) error {
	if p.status == StatusPaid || p.status == StatusRefunded {
		return domain.NewInvalidStateError(string(p.status), string(StatusFailed))
	}
	p.status = StatusFailed
	if details != nil {
		p.details = details
	}
	p.updatedAt = now.UTC()
	return nil
}

// Refund transitions a paid payment to refunded, the only mutation allowed
// after payment.
func (p *Payment) Refund(now time.Time) error {
	if p.status != StatusPaid {
		return domain.NewInvalidStateError(string(p.status), string(StatusRefunded))
	}
	p.status = StatusRefunded
	p.updatedAt = now.UTC()
	return nil
}

// IncrementVersion bumps the version for optimistic locking.
func (p *Payment) IncrementVersion() {
	p.version++
	p.updatedAt = time.Now().UTC()
}
