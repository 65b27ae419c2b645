package billing

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testCustomer(t *testing.T) *Customer {
	t.Helper()
	c, err := NewCustomer(uuid.New(), "Mukamana Josiane", "+250788123456", "HP-0042", decimal.NewFromInt(5000))
	require.NoError(t, err)
	return c
}

func testInvoice(t *testing.T) *Invoice {
	t.Helper()
	inv, err := NewInvoice(testCustomer(t), 2026, time.August)
	require.NoError(t, err)
	return inv
}

func TestNewInvoice(t *testing.T) {
	cust := testCustomer(t)

	inv, err := NewInvoice(cust, 2026, time.August)
	require.NoError(t, err)

	assert.Equal(t, cust.ID, inv.CustomerID)
	assert.Equal(t, InvoiceStatusPending, inv.Status)
	assert.True(t, inv.Amount.Equal(decimal.NewFromInt(5000)))
	assert.True(t, inv.PaidAmount.IsZero())
	assert.Equal(t, time.Date(2026, time.August, 25, 0, 0, 0, 0, time.UTC), inv.DueDate)
	assert.Contains(t, inv.UID, "INV-")
	assert.Len(t, inv.GetDomainEvents(), 1)
}

func TestNewInvoice_ZeroFee(t *testing.T) {
	cust := testCustomer(t)
	cust.MonthlyFee = decimal.Zero

	_, err := NewInvoice(cust, 2026, time.August)
	assert.Error(t, err)
}

func TestEscalationStage_After(t *testing.T) {
	assert.True(t, StageField.After(StageVoice))
	assert.True(t, StageVoice.After(StageFinalNotice))
	assert.True(t, StageFinalNotice.After(StageDueReminder))
	assert.True(t, StageDueReminder.After(StageEarlyReminder))
	assert.False(t, StageEarlyReminder.After(StageDueReminder))
	assert.False(t, StageVoice.After(StageVoice))
}

func TestInvoice_Apply_Partial(t *testing.T) {
	inv := testInvoice(t)
	now := time.Now()

	credit, err := inv.Apply(decimal.NewFromInt(2000), now)
	require.NoError(t, err)

	assert.True(t, credit.IsZero())
	assert.True(t, inv.PaidAmount.Equal(decimal.NewFromInt(2000)))
	assert.True(t, inv.PartiallyPaid)
	assert.Equal(t, InvoiceStatusPending, inv.Status)
	assert.True(t, inv.Outstanding().Equal(decimal.NewFromInt(3000)))
}

func TestInvoice_Apply_FullSettlement(t *testing.T) {
	inv := testInvoice(t)
	now := time.Now()

	credit, err := inv.Apply(decimal.NewFromInt(5000), now)
	require.NoError(t, err)

	assert.True(t, credit.IsZero())
	assert.Equal(t, InvoiceStatusPaid, inv.Status)
	assert.False(t, inv.PartiallyPaid)
	assert.NotNil(t, inv.PaidAt)
	assert.True(t, inv.Outstanding().IsZero())
}

func TestInvoice_Apply_OverpaymentReturnsCredit(t *testing.T) {
	inv := testInvoice(t)
	now := time.Now()

	credit, err := inv.Apply(decimal.NewFromInt(7500), now)
	require.NoError(t, err)

	assert.True(t, credit.Equal(decimal.NewFromInt(2500)))
	// paid amount never exceeds the invoice amount
	assert.True(t, inv.PaidAmount.Equal(inv.Amount))
	assert.Equal(t, InvoiceStatusPaid, inv.Status)
}

func TestInvoice_Apply_ClosedInvoice(t *testing.T) {
	inv := testInvoice(t)
	now := time.Now()

	_, err := inv.Apply(decimal.NewFromInt(5000), now)
	require.NoError(t, err)

	_, err = inv.Apply(decimal.NewFromInt(100), now)
	assert.Error(t, err)
}

func TestInvoice_Apply_ClearsVoiceInFlight(t *testing.T) {
	inv := testInvoice(t)
	now := time.Now()

	require.NoError(t, inv.RecordReminder(StageFinalNotice, ChannelTagSMS, now))
	require.NoError(t, inv.InitiateVoice(now))
	require.True(t, inv.VoiceInFlight(now))

	_, err := inv.Apply(decimal.NewFromInt(5000), now.Add(time.Minute))
	require.NoError(t, err)

	assert.Equal(t, InvoiceStatusPaid, inv.Status)
	assert.Nil(t, inv.VoiceInitiatedAt)
}

func TestInvoice_RecordReminder_NoRepeat(t *testing.T) {
	inv := testInvoice(t)
	now := time.Now()

	require.NoError(t, inv.RecordReminder(StageEarlyReminder, ChannelTagSMS, now))
	assert.Equal(t, InvoiceStatusReminded, inv.Status)

	err := inv.RecordReminder(StageEarlyReminder, ChannelTagWhatsApp, now)
	assert.Error(t, err)
	assert.Len(t, inv.AttemptLog, 1)
}

func TestInvoice_RecordReminder_FinalNoticeGoesOverdue(t *testing.T) {
	inv := testInvoice(t)
	now := time.Now()

	require.NoError(t, inv.RecordReminder(StageEarlyReminder, ChannelTagSMS, now))
	require.NoError(t, inv.RecordReminder(StageDueReminder, ChannelTagSMS, now))
	require.NoError(t, inv.RecordReminder(StageFinalNotice, ChannelTagWhatsApp, now))

	assert.Equal(t, InvoiceStatusOverdue, inv.Status)
	assert.True(t, inv.HasSentVia(ChannelTagSMS))
	assert.True(t, inv.HasSentVia(ChannelTagWhatsApp))
	assert.Len(t, inv.SentVia, 2)
}

func TestInvoice_VoiceLifecycle(t *testing.T) {
	inv := testInvoice(t)
	start := time.Now()

	// voice requires OVERDUE
	assert.Error(t, inv.InitiateVoice(start))

	require.NoError(t, inv.RecordReminder(StageFinalNotice, ChannelTagSMS, start))
	require.NoError(t, inv.InitiateVoice(start))

	assert.True(t, inv.VoiceInFlight(start.Add(5*time.Minute)))
	assert.False(t, inv.VoiceDeadlinePassed(start.Add(5*time.Minute)))
	assert.False(t, inv.VoiceInFlight(start.Add(11*time.Minute)))
	assert.True(t, inv.VoiceDeadlinePassed(start.Add(11*time.Minute)))

	// second initiation is rejected
	assert.Error(t, inv.InitiateVoice(start))

	require.NoError(t, inv.CompleteVoiceAttempt(start.Add(11*time.Minute)))
	assert.Equal(t, InvoiceStatusVoiceAttempted, inv.Status)
	assert.Nil(t, inv.VoiceInitiatedAt)

	// already resolved
	assert.Error(t, inv.CompleteVoiceAttempt(start.Add(12*time.Minute)))
}

func TestInvoice_DispatchField(t *testing.T) {
	inv := testInvoice(t)
	now := time.Now()

	require.NoError(t, inv.RecordReminder(StageFinalNotice, ChannelTagSMS, now))
	require.NoError(t, inv.InitiateVoice(now))
	require.NoError(t, inv.CompleteVoiceAttempt(now.Add(time.Minute)))

	require.NoError(t, inv.DispatchField(now.Add(24*time.Hour)))
	assert.Equal(t, InvoiceStatusFieldDispatched, inv.Status)
	assert.True(t, inv.HasSentVia(ChannelTagFieldVisit))

	assert.Error(t, inv.DispatchField(now.Add(25*time.Hour)))
}

func TestInvoice_WriteOff(t *testing.T) {
	inv := testInvoice(t)
	now := time.Now()

	assert.Error(t, inv.WriteOff("", now))

	require.NoError(t, inv.WriteOff("customer relocated", now))
	assert.Equal(t, InvoiceStatusWrittenOff, inv.Status)

	assert.Error(t, inv.WriteOff("again", now))
	_, err := inv.Apply(decimal.NewFromInt(100), now)
	assert.Error(t, err)
}

func TestInvoice_DaysUntilDue(t *testing.T) {
	inv := testInvoice(t) // due 2026-08-25

	assert.Equal(t, 7, inv.DaysUntilDue(time.Date(2026, time.August, 18, 9, 30, 0, 0, time.UTC)))
	assert.Equal(t, 0, inv.DaysUntilDue(time.Date(2026, time.August, 25, 23, 0, 0, 0, time.UTC)))
	assert.Equal(t, -3, inv.DaysUntilDue(time.Date(2026, time.August, 28, 1, 0, 0, 0, time.UTC)))
	assert.Equal(t, 3, inv.DaysOverdue(time.Date(2026, time.August, 28, 1, 0, 0, 0, time.UTC)))
	assert.Equal(t, 0, inv.DaysOverdue(time.Date(2026, time.August, 20, 0, 0, 0, 0, time.UTC)))
}

func TestAttempts_ScanValue(t *testing.T) {
	now := time.Now().UTC().Truncate(time.Second)
	attempts := Attempts{{Stage: StageEarlyReminder, Channel: ChannelTagSMS, At: now}}

	val, err := attempts.Value()
	require.NoError(t, err)

	var decoded Attempts
	require.NoError(t, decoded.Scan(val))
	require.Len(t, decoded, 1)
	assert.Equal(t, StageEarlyReminder, decoded[0].Stage)

	var empty Attempts
	require.NoError(t, empty.Scan(nil))
	assert.Empty(t, empty)
}
