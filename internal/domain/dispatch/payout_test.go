package dispatch

import (
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewPayoutKey(t *testing.T) {
	k1, k2 := NewPayoutKey(), NewPayoutKey()
	assert.True(t, strings.HasPrefix(k1, "COMM-"))
	assert.NotEqual(t, k1, k2)
}

func TestNewPayout(t *testing.T) {
	p, err := NewPayout(uuid.New(), "+250788123456", decimal.NewFromInt(500))
	require.NoError(t, err)

	assert.Equal(t, PayoutStatusInitiated, p.Status)
	assert.True(t, strings.HasPrefix(p.IdempotencyKey, PayoutKeyPrefix))
	assert.False(t, p.Status.IsTerminal())
}

func TestNewPayout_Validation(t *testing.T) {
	_, err := NewPayout(uuid.Nil, "+250788123456", decimal.NewFromInt(500))
	assert.Error(t, err)

	_, err = NewPayout(uuid.New(), "0788123456", decimal.NewFromInt(500))
	assert.Error(t, err)

	_, err = NewPayout(uuid.New(), "+250788123456", decimal.Zero)
	assert.Error(t, err)
}

func TestPayout_Complete(t *testing.T) {
	p, err := NewPayout(uuid.New(), "+250788123456", decimal.NewFromInt(500))
	require.NoError(t, err)

	at := time.Now()
	require.NoError(t, p.Complete("MTN-REF-1", at))
	assert.Equal(t, PayoutStatusCompleted, p.Status)
	assert.True(t, p.Status.IsTerminal())

	// replayed webhook is a no-op
	require.NoError(t, p.Complete("MTN-REF-1", at.Add(time.Minute)))
	assert.Equal(t, at, *p.ResolvedAt)

	assert.Error(t, p.Fail("late rejection", at))
}

func TestPayout_Fail(t *testing.T) {
	p, err := NewPayout(uuid.New(), "+250788123456", decimal.NewFromInt(500))
	require.NoError(t, err)

	at := time.Now()
	require.NoError(t, p.Fail("account closed", at))
	assert.Equal(t, PayoutStatusFailed, p.Status)

	require.NoError(t, p.Fail("again", at))
	assert.Error(t, p.Complete("REF", at))
}

func TestPayout_StaleAfter(t *testing.T) {
	p, err := NewPayout(uuid.New(), "+250788123456", decimal.NewFromInt(500))
	require.NoError(t, err)

	assert.False(t, p.StaleAfter(time.Hour, p.InitiatedAt.Add(30*time.Minute)))
	assert.True(t, p.StaleAfter(time.Hour, p.InitiatedAt.Add(2*time.Hour)))

	require.NoError(t, p.Complete("REF", time.Now()))
	assert.False(t, p.StaleAfter(time.Hour, p.InitiatedAt.Add(2*time.Hour)))
}

func TestOutcome_Succeeded(t *testing.T) {
	assert.True(t, Outcome{Result: ResultDelivered}.Succeeded())
	assert.True(t, Outcome{Result: ResultDeferred}.Succeeded())
	assert.False(t, Outcome{Result: ResultFailed, Reason: "timeout"}.Succeeded())
}
