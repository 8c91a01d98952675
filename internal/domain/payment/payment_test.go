package payment

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/mentorkita/service-booking/internal/domain"
)

func TestNewPayment(t *testing.T) {
	p, err := NewPayment(uuid.New(), 150000, "bank_transfer")
	require.NoError(t, err)

	assert.Equal(t, StatusPending, p.Status())
	assert.Regexp(t, `^PAY-\d{8}-[A-Z2-9]{8}$`, p.Code())
	assert.Nil(t, p.PaidAt())

	_, err = NewPayment(uuid.Nil, 150000, "bank_transfer")
	assert.True(t, domain.IsCode(err, domain.CodeValidation))

	_, err = NewPayment(uuid.New(), 150000, "")
	assert.True(t, domain.IsCode(err, domain.CodeValidation))
}

func TestMarkPaidIsIdempotent(t *testing.T) {
	p, err := NewPayment(uuid.New(), 150000, "ewallet")
	require.NoError(t, err)

	now := time.Now()
	details := json.RawMessage(`{"gateway":"midtrans","ref":"tx-1"}`)

	changed, err := p.MarkPaid("ext-123", details, now)
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, StatusPaid, p.Status())
	assert.Equal(t, "ext-123", p.ExternalID())
	require.NotNil(t, p.PaidAt())
	firstPaidAt := *p.PaidAt()

	// Second delivery of the same webhook: no mutation at all.
	changed, err = p.MarkPaid("ext-456", nil, now.Add(time.Minute))
	require.NoError(t, err)
	assert.False(t, changed)
	assert.Equal(t, "ext-123", p.ExternalID())
	assert.Equal(t, firstPaidAt, *p.PaidAt())
}

func TestFailedPaymentCanRetrySuccessfully(t *testing.T) {
	p, err := NewPayment(uuid.New(), 150000, "ewallet")
	require.NoError(t, err)

	now := time.Now()
	require.NoError(t, p.MarkFailed(json.RawMessage(`{"reason":"insufficient funds"}`), now))
	assert.Equal(t, StatusFailed, p.Status())

	changed, err := p.MarkPaid("ext-retry", nil, now.Add(time.Hour))
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, StatusPaid, p.Status())
}

func TestPaidPaymentIsImmutableExceptRefund(t *testing.T) {
	p, err := NewPayment(uuid.New(), 150000, "credit_card")
	require.NoError(t, err)

	now := time.Now()
	_, err = p.MarkPaid("ext-1", nil, now)
	require.NoError(t, err)

	err = p.MarkFailed(nil, now)
	assert.True(t, domain.IsCode(err, domain.CodeInvalidState))

	require.NoError(t, p.Refund(now))
	assert.Equal(t, StatusRefunded, p.Status())

	// Refunded is terminal.
	_, err = p.MarkPaid("ext-2", nil, now)
	assert.True(t, domain.IsCode(err, domain.CodeInvalidState))
}

func TestRefundRequiresPaid(t *testing.T) {
	p, err := NewPayment(uuid.New(), 150000, "credit_card")
	require.NoError(t, err)

	err = p.Refund(time.Now())
	assert.True(t, domain.IsCode(err, domain.CodeInvalidState))
}
