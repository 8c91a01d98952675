package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/mentorkita/service-booking/internal/domain"
	paymentDomain "github.com/mentorkita/service-booking/internal/domain/payment"
)

// PaymentModel is the GORM model for the payments table.
type PaymentModel struct {
	ID          uuid.UUID      `gorm:"type:uuid;primaryKey"`
	Code        string         `gorm:"uniqueIndex;not null;size:25"`
	BookingID   uuid.UUID      `gorm:"type:uuid;index;not null"`
	AmountCents int64          `gorm:"not null"`
	Currency    string         `gorm:"not null;size:3;default:'IDR'"`
	Method      string         `gorm:"not null;size:50"`
	Status      string         `gorm:"not null;size:20;index"`
	ExternalID  string         `gorm:"size:100;index"`
	Details     datatypes.JSON `gorm:"type:jsonb"`
	PaidAt      *time.Time     `gorm:""`
	Version     int64          `gorm:"not null;default:1"`
	CreatedAt   time.Time      `gorm:"not null"`
	UpdatedAt   time.Time      `gorm:"not null"`
}

// TableName returns the table name for the GORM model.
func (PaymentModel) TableName() string {
	return "payments"
}

// GormPaymentRepository is the GORM-based implementation of payment.Repository.
type GormPaymentRepository struct {
	db *gorm.DB
}

// NewGormPaymentRepository creates a new GormPaymentRepository.
func NewGormPaymentRepository(db *gorm.DB) *GormPaymentRepository {
	return &GormPaymentRepository{db: db}
}

// CreateForBooking inserts a pending payment after verifying, with the booking
// row locked, that the amount equals the booking's locked-in total and that no
// paid payment already exists for it.
func (r *GormPaymentRepository) CreateForBooking(ctx context.Context, p *paymentDomain.Payment) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var bk BookingModel
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("id = ?", p.BookingID()).First(&bk).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return domain.NewNotFoundError("Booking", p.BookingID().String())
			}
			return fmt.Errorf("failed to lock booking: %w", err)
		}

		if p.AmountCents() != bk.TotalAmountCents {
			return domain.NewValidationError("payment amount does not match the booking total")
		}

		var paidCount int64
		if err := tx.Model(&PaymentModel{}).
			Where("booking_id = ? AND status = ?", p.BookingID(), string(paymentDomain.StatusPaid)).
			Count(&paidCount).Error; err != nil {
			return fmt.Errorf("failed to check existing payments: %w", err)
		}
		if paidCount > 0 {
			return domain.NewConflictError("booking is already paid")
		}

		if err := tx.Create(toPaymentModel(p)).Error; err != nil {
			return fmt.Errorf("failed to save payment: %w", err)
		}
		return nil
	})
}

// FindByID retrieves a payment by its unique identifier.
func (r *GormPaymentRepository) FindByID(ctx context.Context, id uuid.UUID) (*paymentDomain.Payment, error) {
	var model PaymentModel
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.NewNotFoundError("Payment", id.String())
		}
		return nil, fmt.Errorf("failed to find payment by ID: %w", err)
	}
	return toDomainPayment(&model)
}

// FindByCode retrieves a payment by its human-readable code.
func (r *GormPaymentRepository) FindByCode(ctx context.Context, code string) (*paymentDomain.Payment, error) {
	var model PaymentModel
	if err := r.db.WithContext(ctx).Where("code = ?", code).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.NewNotFoundError("Payment", code)
		}
		return nil, fmt.Errorf("failed to find payment by code: %w", err)
	}
	return toDomainPayment(&model)
}

// FindByBookingID retrieves the payment attached to a booking. When several
// attempts exist, the most recent one wins.
func (r *GormPaymentRepository) FindByBookingID(ctx context.Context, bookingID uuid.UUID) (*paymentDomain.Payment, error) {
	var model PaymentModel
	if err := r.db.WithContext(ctx).
		Where("booking_id = ?", bookingID).
		Order("created_at DESC").
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.NewNotFoundError("Payment", bookingID.String())
		}
		return nil, fmt.Errorf("failed to find payment by booking: %w", err)
	}
	return toDomainPayment(&model)
}

// Update persists changes to an existing payment with optimistic locking.
func (r *GormPaymentRepository) Update(ctx context.Context, p *paymentDomain.Payment) error {
	expectedVersion := p.Version() - 1
	result := r.db.WithContext(ctx).
		Model(&PaymentModel{}).
		Where("id = ? AND version = ?", p.ID(), expectedVersion).
		Updates(map[string]interface{}{
			"status":      string(p.Status()),
			"external_id": p.ExternalID(),
			"details":     datatypes.JSON(p.Details()),
			"paid_at":     p.PaidAt(),
			"version":     p.Version(),
			"updated_at":  p.UpdatedAt(),
		})

	if result.Error != nil {
		return fmt.Errorf("failed to update payment: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return domain.NewConflictError("payment was modified by another transaction")
	}
	return nil
}

// FindByStudentID lists payments on bookings created by the student.
func (r *GormPaymentRepository) FindByStudentID(ctx context.Context, studentID uuid.UUID, page, limit int) ([]*paymentDomain.Payment, int64, error) {
	q := r.db.WithContext(ctx).Model(&PaymentModel{}).
		Joins("JOIN bookings ON bookings.id = payments.booking_id").
		Where("bookings.student_id = ?", studentID)
	return listPayments(q, page, limit)
}

// FindByMentorProfileID lists payments on bookings addressed to the mentor profile.
func (r *GormPaymentRepository) FindByMentorProfileID(ctx context.Context, mentorProfileID uuid.UUID, page, limit int) ([]*paymentDomain.Payment, int64, error) {
	q := r.db.WithContext(ctx).Model(&PaymentModel{}).
		Joins("JOIN bookings ON bookings.id = payments.booking_id").
		Where("bookings.mentor_profile_id = ?", mentorProfileID)
	return listPayments(q, page, limit)
}

// ListAll retrieves all payments with pagination (admin).
func (r *GormPaymentRepository) ListAll(ctx context.Context, page, limit int) ([]*paymentDomain.Payment, int64, error) {
	q := r.db.WithContext(ctx).Model(&PaymentModel{})
	return listPayments(q, page, limit)
}

// --- Query Helpers ---

func listPayments(q *gorm.DB, page, limit int) ([]*paymentDomain.Payment, int64, error) {
	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count payments: %w", err)
	}

	var models []PaymentModel
	offset := (page - 1) * limit
	if err := q.
		Order("payments.created_at DESC").
		Offset(offset).
		Limit(limit).
		Find(&models).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to list payments: %w", err)
	}

	payments := make([]*paymentDomain.Payment, len(models))
	for i, m := range models {
		p, err := toDomainPayment(&m)
		if err != nil {
			return nil, 0, err
		}
		payments[i] = p
	}
	return payments, total, nil
}

// --- Conversion Helpers ---

func toPaymentModel(p *paymentDomain.Payment) *PaymentModel {
	return &PaymentModel{
		ID:          p.ID(),
		Code:        p.Code(),
		BookingID:   p.BookingID(),
		AmountCents: p.AmountCents(),
		Currency:    p.Currency(),
		Method:      p.Method(),
		Status:      string(p.Status()),
		ExternalID:  p.ExternalID(),
		Details:     datatypes.JSON(p.Details()),
		PaidAt:      p.PaidAt(),
		Version:     p.Version(),
		CreatedAt:   p.CreatedAt(),
		UpdatedAt:   p.UpdatedAt(),
	}
}

func toDomainPayment(m *PaymentModel) (*paymentDomain.Payment, error) {
	status, err := paymentDomain.ParseStatus(m.Status)
	if err != nil {
		return nil, err
	}

	return paymentDomain.Reconstruct(
		m.ID,
		m.Code,
		m.BookingID,
		m.AmountCents,
		m.Currency,
		m.Method,
		status,
		m.ExternalID,
		json.RawMessage(m.Details),
		m.PaidAt,
		m.Version,
		m.CreatedAt,
		m.UpdatedAt,
	), nil
}
