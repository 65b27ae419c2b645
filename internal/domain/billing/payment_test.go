package billing

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewPayment(t *testing.T) {
	p, err := NewPayment("MTN-20260829-001", uuid.New(), decimal.NewFromInt(5000), PaymentMethodMoMo, time.Now())
	require.NoError(t, err)

	assert.Equal(t, PaymentStatusPending, p.Status)
	assert.Equal(t, PaymentMethodMoMo, p.Method)
	assert.Nil(t, p.InvoiceID)
}

func TestNewPayment_Validation(t *testing.T) {
	tests := []struct {
		name      string
		reference string
		customer  uuid.UUID
		amount    decimal.Decimal
		method    PaymentMethod
	}{
		{"empty reference", "", uuid.New(), decimal.NewFromInt(100), PaymentMethodCash},
		{"nil customer", "REF-1", uuid.Nil, decimal.NewFromInt(100), PaymentMethodCash},
		{"zero amount", "REF-2", uuid.New(), decimal.Zero, PaymentMethodCash},
		{"negative amount", "REF-3", uuid.New(), decimal.NewFromInt(-50), PaymentMethodCash},
		{"unknown method", "REF-4", uuid.New(), decimal.NewFromInt(100), PaymentMethod("barter")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewPayment(tt.reference, tt.customer, tt.amount, tt.method, time.Now())
			assert.Error(t, err)
		})
	}
}

func TestPayment_Lifecycle(t *testing.T) {
	p, err := NewPayment("IREMBO-777", uuid.New(), decimal.NewFromInt(3000), PaymentMethodIrembo, time.Now())
	require.NoError(t, err)

	require.NoError(t, p.MarkSuccessful())
	assert.Equal(t, PaymentStatusSuccessful, p.Status)
	assert.Len(t, p.GetDomainEvents(), 1)

	// settling twice is a no-op, not an error
	require.NoError(t, p.MarkSuccessful())
	assert.Len(t, p.GetDomainEvents(), 1)

	// a settled payment cannot fail
	assert.Error(t, p.MarkFailed("late rejection"))
}

func TestPayment_MarkFailed(t *testing.T) {
	p, err := NewPayment("MTN-9", uuid.New(), decimal.NewFromInt(3000), PaymentMethodMoMo, time.Now())
	require.NoError(t, err)

	require.NoError(t, p.MarkFailed("insufficient funds"))
	assert.Equal(t, PaymentStatusFailed, p.Status)
	assert.Equal(t, "insufficient funds", p.FailureNote)

	assert.Error(t, p.MarkSuccessful())
}

func TestPayment_CashAttachesCollector(t *testing.T) {
	collectorID := uuid.New()
	p, err := NewPayment("CASH-0012", uuid.New(), decimal.NewFromInt(5000), PaymentMethodCash, time.Now())
	require.NoError(t, err)

	p.AttachCollector(collectorID)
	require.NotNil(t, p.CollectorID)
	assert.Equal(t, collectorID, *p.CollectorID)
}
