package billing

import (
	"crypto/rand"
	"database/sql/driver"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/highprosper/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// InvoiceStatus is the escalation state of an invoice
type InvoiceStatus string

const (
	InvoiceStatusPending         InvoiceStatus = "PENDING"
	InvoiceStatusReminded        InvoiceStatus = "REMINDED"
	InvoiceStatusOverdue         InvoiceStatus = "OVERDUE"
	InvoiceStatusVoiceAttempted  InvoiceStatus = "VOICE_ATTEMPTED"
	InvoiceStatusFieldDispatched InvoiceStatus = "FIELD_DISPATCHED"
	InvoiceStatusPaid            InvoiceStatus = "PAID"
	InvoiceStatusWrittenOff      InvoiceStatus = "WRITTEN_OFF"
)

// IsValid checks if the status is a known invoice status
func (s InvoiceStatus) IsValid() bool {
	switch s {
	case InvoiceStatusPending, InvoiceStatusReminded, InvoiceStatusOverdue,
		InvoiceStatusVoiceAttempted, InvoiceStatusFieldDispatched,
		InvoiceStatusPaid, InvoiceStatusWrittenOff:
		return true
	}
	return false
}

// String returns the string representation of InvoiceStatus
func (s InvoiceStatus) String() string {
	return string(s)
}

// IsClosed returns true when no further collection activity may happen
func (s InvoiceStatus) IsClosed() bool {
	return s == InvoiceStatusPaid || s == InvoiceStatusWrittenOff
}

// EscalationStage identifies one rung of the dunning ladder
type EscalationStage string

const (
	StageEarlyReminder EscalationStage = "early_reminder" // due date minus 7 days
	StageDueReminder   EscalationStage = "due_reminder"   // due date
	StageFinalNotice   EscalationStage = "final_notice"   // due date plus 3 days
	StageVoice         EscalationStage = "voice"
	StageField         EscalationStage = "field"
)

// rank orders stages so the sweep can pick the later one when two are
// simultaneously eligible.
func (s EscalationStage) rank() int {
	switch s {
	case StageEarlyReminder:
		return 1
	case StageDueReminder:
		return 2
	case StageFinalNotice:
		return 3
	case StageVoice:
		return 4
	case StageField:
		return 5
	}
	return 0
}

// After reports whether s is a later stage than other
func (s EscalationStage) After(other EscalationStage) bool {
	return s.rank() > other.rank()
}

// Channel tags recorded in an invoice's sent-via set
const (
	ChannelTagSMS        = "sms"
	ChannelTagVoiceCall  = "voice_call"
	ChannelTagWhatsApp   = "whatsapp"
	ChannelTagPush       = "push"
	ChannelTagFieldVisit = "field_visit"
)

// Attempt records one outbound action taken for an invoice
type Attempt struct {
	Stage   EscalationStage `json:"stage"`
	Channel string          `json:"channel"`
	At      time.Time       `json:"at"`
}

// Attempts is stored as JSONB alongside the invoice row
type Attempts []Attempt

// Value implements driver.Valuer for JSONB storage
func (a Attempts) Value() (driver.Value, error) {
	if a == nil {
		return "[]", nil
	}
	return json.Marshal(a)
}

// Scan implements sql.Scanner for JSONB storage
func (a *Attempts) Scan(value interface{}) error {
	if value == nil {
		*a = Attempts{}
		return nil
	}
	var bytes []byte
	switch v := value.(type) {
	case []byte:
		bytes = v
	case string:
		bytes = []byte(v)
	default:
		return errors.New("failed to scan Attempts: unsupported type")
	}
	if len(bytes) == 0 {
		*a = Attempts{}
		return nil
	}
	return json.Unmarshal(bytes, a)
}

// VoiceInFlightDeadline is how long a voice attempt may stay unresolved
// before the invoice falls back to VOICE_ATTEMPTED as if the call completed
// without payment.
const VoiceInFlightDeadline = 10 * time.Minute

// Invoice is a monthly charge owed by a customer and the aggregate the
// escalation machine runs against. One invoice exists per (customer, period).
type Invoice struct {
	shared.BaseAggregateRoot
	UID              string          `json:"uid"` // opaque external identifier
	CustomerID       uuid.UUID       `json:"customer_id"`
	Year             int             `json:"year"`
	Month            time.Month      `json:"month"`
	Amount           decimal.Decimal `json:"amount"`
	PaidAmount       decimal.Decimal `json:"paid_amount"`
	DueDate          time.Time       `json:"due_date"`
	Status           InvoiceStatus   `json:"status"`
	PartiallyPaid    bool            `json:"partially_paid"`
	SentVia          []string        `json:"sent_via" gorm:"-"`
	AttemptLog       Attempts        `json:"attempt_log"`
	PDFKey           string          `json:"pdf_key,omitempty"` // storage key of the printable copy
	VoiceInitiatedAt *time.Time      `json:"voice_initiated_at,omitempty"`
	PaidAt           *time.Time      `json:"paid_at,omitempty"`
	WriteOffReason   string          `json:"write_off_reason,omitempty"`
}

// DueDayOfMonth is the billing cycle's fixed due day
const DueDayOfMonth = 25

// NewInvoice creates the invoice for a customer's billing period. The due
// date is the 25th of that month.
func NewInvoice(customer *Customer, year int, month time.Month) (*Invoice, error) {
	if customer == nil {
		return nil, shared.NewDomainError("INVALID_CUSTOMER", "Customer cannot be nil")
	}
	if customer.MonthlyFee.LessThanOrEqual(decimal.Zero) {
		return nil, shared.NewDomainError("INVALID_FEE", "Customer has no positive monthly fee")
	}
	if month < time.January || month > time.December {
		return nil, shared.NewDomainError("INVALID_PERIOD", "Month out of range")
	}

	inv := &Invoice{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		UID:               newInvoiceUID(),
		CustomerID:        customer.ID,
		Year:              year,
		Month:             month,
		Amount:            customer.MonthlyFee,
		PaidAmount:        decimal.Zero,
		DueDate:           time.Date(year, month, DueDayOfMonth, 0, 0, 0, 0, time.UTC),
		Status:            InvoiceStatusPending,
		SentVia:           []string{},
		AttemptLog:        Attempts{},
	}
	inv.AddDomainEvent(NewInvoiceCreatedEvent(inv))
	return inv, nil
}

// newInvoiceUID mints the opaque identifier used on webhooks and USSD
func newInvoiceUID() string {
	var b [8]byte
	_, _ = rand.Read(b[:])
	return "INV-" + strings.ToUpper(hex.EncodeToString(b[:]))
}

// Outstanding is the amount still owed on this invoice
func (i *Invoice) Outstanding() decimal.Decimal {
	return i.Amount.Sub(i.PaidAmount)
}

// IsClosed reports whether the invoice accepts further collection activity
func (i *Invoice) IsClosed() bool {
	return i.Status.IsClosed()
}

// Apply credits a successful payment against the invoice. Payments beyond the
// outstanding balance are accepted; the excess is returned so the caller can
// carry it as customer credit (paid-amount never exceeds amount).
func (i *Invoice) Apply(amount decimal.Decimal, at time.Time) (credit decimal.Decimal, err error) {
	if i.IsClosed() {
		return decimal.Zero, shared.NewDomainError("INVALID_STATE", fmt.Sprintf("Cannot apply payment to %s invoice", i.Status))
	}
	if amount.LessThanOrEqual(decimal.Zero) {
		return decimal.Zero, shared.NewDomainError("INVALID_AMOUNT", "Payment amount must be positive")
	}

	outstanding := i.Outstanding()
	applied := amount
	if amount.GreaterThan(outstanding) {
		applied = outstanding
		credit = amount.Sub(outstanding)
	}

	i.PaidAmount = i.PaidAmount.Add(applied)

	if i.PaidAmount.GreaterThanOrEqual(i.Amount) {
		prev := i.Status
		i.Status = InvoiceStatusPaid
		i.PartiallyPaid = false
		i.PaidAt = &at
		i.VoiceInitiatedAt = nil
		i.AddDomainEvent(NewInvoicePaidEvent(i, prev))
	} else {
		i.PartiallyPaid = true
	}

	i.UpdatedAt = at
	i.IncrementVersion()
	return credit, nil
}

// HasAttempted reports whether a stage has already been executed
func (i *Invoice) HasAttempted(stage EscalationStage) bool {
	for _, a := range i.AttemptLog {
		if a.Stage == stage {
			return true
		}
	}
	return false
}

// HasSentVia reports whether a channel tag is present in the sent-via set
func (i *Invoice) HasSentVia(tag string) bool {
	for _, t := range i.SentVia {
		if t == tag {
			return true
		}
	}
	return false
}

// appendSentVia adds a channel tag once
func (i *Invoice) appendSentVia(tag string) {
	if !i.HasSentVia(tag) {
		i.SentVia = append(i.SentVia, tag)
	}
}

// RecordReminder records an SMS reminder attempt and advances the escalation
// state for the stage that was executed.
func (i *Invoice) RecordReminder(stage EscalationStage, channel string, at time.Time) error {
	if i.IsClosed() {
		return shared.NewDomainError("INVALID_STATE", "Invoice is closed")
	}
	if stage != StageEarlyReminder && stage != StageDueReminder && stage != StageFinalNotice {
		return shared.NewDomainError("INVALID_STAGE", "Not a reminder stage")
	}
	if i.HasAttempted(stage) {
		return shared.NewDomainError("DUPLICATE_ATTEMPT", fmt.Sprintf("Stage %s already attempted", stage))
	}

	i.AttemptLog = append(i.AttemptLog, Attempt{Stage: stage, Channel: channel, At: at})
	i.appendSentVia(channel)

	switch stage {
	case StageEarlyReminder:
		if i.Status == InvoiceStatusPending {
			i.Status = InvoiceStatusReminded
		}
	case StageDueReminder:
		if i.Status == InvoiceStatusPending {
			i.Status = InvoiceStatusReminded
		}
	case StageFinalNotice:
		prev := i.Status
		i.Status = InvoiceStatusOverdue
		i.AddDomainEvent(NewInvoiceOverdueEvent(i, prev))
	}

	i.UpdatedAt = at
	i.IncrementVersion()
	return nil
}

// InitiateVoice marks the start of a voice attempt. The invoice stays OVERDUE
// with an in-flight deadline; the provider callback or the timeout sweep
// resolves it.
func (i *Invoice) InitiateVoice(at time.Time) error {
	if i.Status != InvoiceStatusOverdue {
		return shared.NewDomainError("INVALID_STATE", fmt.Sprintf("Voice attempt requires OVERDUE, invoice is %s", i.Status))
	}
	if i.HasAttempted(StageVoice) {
		return shared.NewDomainError("DUPLICATE_ATTEMPT", "Voice stage already attempted")
	}
	i.AttemptLog = append(i.AttemptLog, Attempt{Stage: StageVoice, Channel: ChannelTagVoiceCall, At: at})
	i.appendSentVia(ChannelTagVoiceCall)
	i.VoiceInitiatedAt = &at
	i.UpdatedAt = at
	i.IncrementVersion()
	return nil
}

// VoiceInFlight reports whether a voice attempt is awaiting its callback
func (i *Invoice) VoiceInFlight(now time.Time) bool {
	return i.VoiceInitiatedAt != nil &&
		i.Status == InvoiceStatusOverdue &&
		now.Sub(*i.VoiceInitiatedAt) < VoiceInFlightDeadline
}

// VoiceDeadlinePassed reports whether an unresolved voice attempt has expired
func (i *Invoice) VoiceDeadlinePassed(now time.Time) bool {
	return i.VoiceInitiatedAt != nil &&
		i.Status == InvoiceStatusOverdue &&
		now.Sub(*i.VoiceInitiatedAt) >= VoiceInFlightDeadline
}

// CompleteVoiceAttempt resolves the voice attempt (from a provider callback
// or the deadline sweep) and moves the invoice to VOICE_ATTEMPTED.
func (i *Invoice) CompleteVoiceAttempt(at time.Time) error {
	if i.IsClosed() {
		return shared.NewDomainError("INVALID_STATE", "Invoice is closed")
	}
	if i.Status != InvoiceStatusOverdue || i.VoiceInitiatedAt == nil {
		return shared.NewDomainError("INVALID_STATE", "No voice attempt in flight")
	}
	prev := i.Status
	i.Status = InvoiceStatusVoiceAttempted
	i.VoiceInitiatedAt = nil
	i.UpdatedAt = at
	i.IncrementVersion()
	i.AddDomainEvent(NewInvoiceEscalatedEvent(i, prev, StageVoice))
	return nil
}

// DispatchField records that a field collector was sent
func (i *Invoice) DispatchField(at time.Time) error {
	if i.IsClosed() {
		return shared.NewDomainError("INVALID_STATE", "Invoice is closed")
	}
	if i.HasAttempted(StageField) {
		return shared.NewDomainError("DUPLICATE_ATTEMPT", "Field stage already attempted")
	}
	prev := i.Status
	i.AttemptLog = append(i.AttemptLog, Attempt{Stage: StageField, Channel: ChannelTagFieldVisit, At: at})
	i.appendSentVia(ChannelTagFieldVisit)
	i.Status = InvoiceStatusFieldDispatched
	i.UpdatedAt = at
	i.IncrementVersion()
	i.AddDomainEvent(NewInvoiceEscalatedEvent(i, prev, StageField))
	return nil
}

// WriteOff closes the invoice without payment
func (i *Invoice) WriteOff(reason string, at time.Time) error {
	if i.IsClosed() {
		return shared.NewDomainError("INVALID_STATE", "Invoice is already closed")
	}
	if reason == "" {
		return shared.NewDomainError("INVALID_REASON", "Write-off reason is required")
	}
	i.Status = InvoiceStatusWrittenOff
	i.WriteOffReason = reason
	i.VoiceInitiatedAt = nil
	i.UpdatedAt = at
	i.IncrementVersion()
	return nil
}

// DaysUntilDue returns due-date minus today in whole days (negative when
// overdue). Both dates are compared at midnight UTC.
func (i *Invoice) DaysUntilDue(now time.Time) int {
	due := time.Date(i.DueDate.Year(), i.DueDate.Month(), i.DueDate.Day(), 0, 0, 0, 0, time.UTC)
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	return int(due.Sub(today).Hours() / 24)
}

// DaysOverdue returns days past due (0 when not overdue)
func (i *Invoice) DaysOverdue(now time.Time) int {
	d := i.DaysUntilDue(now)
	if d >= 0 {
		return 0
	}
	return -d
}

// AttachPDF records the storage key of the rendered printable copy
func (i *Invoice) AttachPDF(key string) {
	i.PDFKey = key
	i.UpdatedAt = time.Now()
}

// PeriodKey returns the unique (customer, period) key in readable form
func (i *Invoice) PeriodKey() string {
	return fmt.Sprintf("%s/%04d-%02d", i.CustomerID, i.Year, int(i.Month))
}
