// Package dunning runs the escalation state machine over open invoices:
// scheduled reminder sweeps, voice attempts with their in-flight deadline,
// and field dispatch when everything else failed.
package dunning

import (
	"context"
	"errors"
	"time"

	"github.com/highprosper/backend/internal/domain/billing"
	"github.com/highprosper/backend/internal/domain/dispatch"
	"github.com/highprosper/backend/internal/domain/identity"
	"github.com/highprosper/backend/internal/domain/shared"
	"github.com/highprosper/backend/internal/infrastructure/channels"
	"github.com/highprosper/backend/internal/infrastructure/config"
	"go.uber.org/zap"
)

// Service drives per-invoice escalation. All methods are idempotent with
// respect to the invoice attempt log: a rerun never repeats a (stage,
// channel) pair.
type Service struct {
	invoices    billing.InvoiceRepository
	customers   billing.CustomerRepository
	dispatchers map[dispatch.Channel]dispatch.Dispatcher
	events      shared.EventPublisher
	cfg         config.BillingConfig
	logger      *zap.Logger
}

// NewService creates the dunning service. events may be nil.
func NewService(
	invoices billing.InvoiceRepository,
	customers billing.CustomerRepository,
	dispatchers map[dispatch.Channel]dispatch.Dispatcher,
	events shared.EventPublisher,
	cfg config.BillingConfig,
	logger *zap.Logger,
) *Service {
	return &Service{
		invoices:    invoices,
		customers:   customers,
		dispatchers: dispatchers,
		events:      events,
		cfg:         cfg,
		logger:      logger,
	}
}

// publishEvents flushes the invoice's recorded escalation events to the bus
func (s *Service) publishEvents(ctx context.Context, inv *billing.Invoice) {
	if s.events == nil {
		return
	}
	recorded := inv.GetDomainEvents()
	if len(recorded) == 0 {
		return
	}
	if err := s.events.Publish(ctx, recorded...); err != nil {
		s.logger.Warn("domain event publish failed",
			zap.String("uid", inv.UID), zap.Error(err))
	}
	inv.ClearDomainEvents()
}

// Sweep evaluates every open invoice against asOf: SMS reminders by days
// relative to due date, and field dispatch for invoices stuck in
// VOICE_ATTEMPTED past the grace window. One invoice's failure never blocks
// the rest.
func (s *Service) Sweep(ctx context.Context, asOf time.Time) error {
	open, err := s.invoices.FindOpen(ctx)
	if err != nil {
		return err
	}
	for i := range open {
		inv := &open[i]
		if err := s.sweepInvoice(ctx, inv, asOf); err != nil {
			s.logger.Error("sweep failed for invoice",
				zap.String("uid", inv.UID), zap.Error(err))
		}
	}
	return nil
}

func (s *Service) sweepInvoice(ctx context.Context, inv *billing.Invoice, asOf time.Time) error {
	if inv.IsClosed() {
		return nil
	}

	// unresolved voice attempts past the deadline resolve first, so the
	// same sweep can escalate to field
	if inv.VoiceDeadlinePassed(asOf) {
		if err := s.resolveVoice(ctx, inv, asOf); err != nil {
			return err
		}
	}

	if stage := eligibleReminderStage(inv, asOf, s.cfg); stage != "" {
		return s.sendReminder(ctx, inv, stage, asOf)
	}

	if s.fieldDue(inv, asOf) {
		return s.attemptField(ctx, inv, asOf)
	}
	return nil
}

// eligibleReminderStage picks the reminder stage to execute, if any. When
// several stages are simultaneously eligible (a sweep that skipped days),
// the later stage wins and earlier ones are abandoned.
func eligibleReminderStage(inv *billing.Invoice, asOf time.Time, cfg config.BillingConfig) billing.EscalationStage {
	remindable := inv.Status == billing.InvoiceStatusPending || inv.Status == billing.InvoiceStatusReminded
	if !remindable {
		return ""
	}
	d := inv.DaysUntilDue(asOf)

	if d <= -cfg.FinalNoticeDays && !inv.HasAttempted(billing.StageFinalNotice) {
		return billing.StageFinalNotice
	}
	if d <= 0 && !inv.HasAttempted(billing.StageDueReminder) {
		return billing.StageDueReminder
	}
	if d <= cfg.EarlyReminderDays && inv.Status == billing.InvoiceStatusPending &&
		!inv.HasAttempted(billing.StageEarlyReminder) {
		return billing.StageEarlyReminder
	}
	return ""
}

func reminderTemplate(stage billing.EscalationStage) string {
	switch stage {
	case billing.StageEarlyReminder:
		return channels.TemplateEarlyReminder
	case billing.StageDueReminder:
		return channels.TemplateDueReminder
	default:
		return channels.TemplateFinalNotice
	}
}

func (s *Service) sendReminder(ctx context.Context, inv *billing.Invoice, stage billing.EscalationStage, asOf time.Time) error {
	cust, err := s.customers.FindByID(ctx, inv.CustomerID)
	if err != nil {
		return err
	}
	sms, ok := s.dispatchers[dispatch.ChannelSMS]
	if !ok {
		return shared.NewDomainError("NO_DISPATCHER", "SMS dispatcher not configured")
	}

	outcome := sms.Attempt(ctx, s.target(cust), dispatch.Payload{
		TemplateKey: reminderTemplate(stage),
		Params:      s.params(inv, cust),
		InvoiceUID:  inv.UID,
	})
	if !outcome.Succeeded() {
		// a failed reminder does not advance the machine; tomorrow's
		// sweep tries again
		s.logger.Warn("reminder dispatch failed",
			zap.String("uid", inv.UID),
			zap.String("stage", string(stage)),
			zap.String("reason", outcome.Reason))
		return nil
	}

	if err := inv.RecordReminder(stage, billing.ChannelTagSMS, asOf); err != nil {
		return err
	}
	if err := s.invoices.Save(ctx, inv); err != nil {
		return err
	}
	s.publishEvents(ctx, inv)
	return nil
}

// SendVoiceReminders initiates voice calls for OVERDUE invoices that have not
// yet been called. The call outcome arrives later through the provider
// callback or the in-flight deadline.
func (s *Service) SendVoiceReminders(ctx context.Context, asOf time.Time) error {
	open, err := s.invoices.FindOpen(ctx)
	if err != nil {
		return err
	}
	voice, ok := s.dispatchers[dispatch.ChannelVoice]
	if !ok {
		return shared.NewDomainError("NO_DISPATCHER", "Voice dispatcher not configured")
	}

	for i := range open {
		inv := &open[i]
		if inv.Status != billing.InvoiceStatusOverdue ||
			inv.HasAttempted(billing.StageVoice) ||
			inv.VoiceInFlight(asOf) {
			continue
		}
		cust, err := s.customers.FindByID(ctx, inv.CustomerID)
		if err != nil {
			s.logger.Error("customer lookup failed for voice attempt",
				zap.String("uid", inv.UID), zap.Error(err))
			continue
		}

		outcome := voice.Attempt(ctx, s.target(cust), dispatch.Payload{
			TemplateKey: channels.TemplateVoiceScript,
			Params:      s.params(inv, cust),
			InvoiceUID:  inv.UID,
		})
		if !outcome.Succeeded() {
			s.logger.Warn("voice initiation failed",
				zap.String("uid", inv.UID), zap.String("reason", outcome.Reason))
			continue
		}
		if err := inv.InitiateVoice(asOf); err != nil {
			s.logger.Error("failed to record voice attempt",
				zap.String("uid", inv.UID), zap.Error(err))
			continue
		}
		if err := s.invoices.Save(ctx, inv); err != nil {
			s.logger.Error("failed to save voice attempt",
				zap.String("uid", inv.UID), zap.Error(err))
			continue
		}
		s.publishEvents(ctx, inv)
	}
	return nil
}

// HandleVoiceStatus processes the provider's call-completion callback. A
// payment that raced the call closes the invoice first; the callback is then
// a logged no-op.
func (s *Service) HandleVoiceStatus(ctx context.Context, invoiceUID, callStatus string, now time.Time) error {
	inv, err := s.invoices.FindByUID(ctx, invoiceUID)
	if err != nil {
		return err
	}
	if inv.IsClosed() {
		s.logger.Info("voice callback for closed invoice ignored",
			zap.String("uid", invoiceUID), zap.String("call_status", callStatus))
		return nil
	}
	if inv.VoiceInitiatedAt == nil || inv.Status != billing.InvoiceStatusOverdue {
		s.logger.Warn("voice callback with no attempt in flight",
			zap.String("uid", invoiceUID), zap.String("call_status", callStatus))
		return nil
	}
	s.logger.Info("voice call resolved",
		zap.String("uid", invoiceUID), zap.String("call_status", callStatus))
	return s.resolveVoice(ctx, inv, now)
}

// ExpireVoiceAttempts resolves voice attempts whose callback never arrived
// within the deadline, as if the call completed without payment.
func (s *Service) ExpireVoiceAttempts(ctx context.Context, now time.Time) error {
	inFlight, err := s.invoices.FindVoiceInFlight(ctx)
	if err != nil {
		return err
	}
	for i := range inFlight {
		inv := &inFlight[i]
		if !inv.VoiceDeadlinePassed(now) {
			continue
		}
		if err := s.resolveVoice(ctx, inv, now); err != nil {
			s.logger.Error("failed to expire voice attempt",
				zap.String("uid", inv.UID), zap.Error(err))
		}
	}
	return nil
}

// resolveVoice moves the invoice to VOICE_ATTEMPTED and immediately tries
// field dispatch. When no collector is in range the invoice stays in
// VOICE_ATTEMPTED and the daily sweep retries after the grace window.
func (s *Service) resolveVoice(ctx context.Context, inv *billing.Invoice, now time.Time) error {
	if err := inv.CompleteVoiceAttempt(now); err != nil {
		return err
	}
	if err := s.invoices.Save(ctx, inv); err != nil {
		return err
	}
	s.publishEvents(ctx, inv)
	return s.attemptField(ctx, inv, now)
}

// fieldDue reports whether a VOICE_ATTEMPTED invoice has waited out the
// post-voice grace window without payment.
func (s *Service) fieldDue(inv *billing.Invoice, asOf time.Time) bool {
	if inv.Status != billing.InvoiceStatusVoiceAttempted || inv.HasAttempted(billing.StageField) {
		return false
	}
	voicedAt := lastAttemptAt(inv, billing.StageVoice)
	if voicedAt.IsZero() {
		return true
	}
	return asOf.Sub(voicedAt) >= s.cfg.FieldDispatchAfter
}

func lastAttemptAt(inv *billing.Invoice, stage billing.EscalationStage) time.Time {
	var at time.Time
	for _, a := range inv.AttemptLog {
		if a.Stage == stage && a.At.After(at) {
			at = a.At
		}
	}
	return at
}

// attemptField routes a collector to the customer. Success marks the invoice
// FIELD_DISPATCHED; no-collector-in-range leaves it for a later sweep.
func (s *Service) attemptField(ctx context.Context, inv *billing.Invoice, now time.Time) error {
	if inv.HasAttempted(billing.StageField) {
		return nil
	}
	field, ok := s.dispatchers[dispatch.ChannelField]
	if !ok {
		return nil
	}
	cust, err := s.customers.FindByID(ctx, inv.CustomerID)
	if err != nil {
		return err
	}

	outcome := field.Attempt(ctx, s.target(cust), dispatch.Payload{
		TemplateKey: channels.TemplateFieldVisit,
		Params:      s.params(inv, cust),
		InvoiceUID:  inv.UID,
	})
	if !outcome.Succeeded() {
		if errors.Is(ctx.Err(), context.Canceled) {
			return ctx.Err()
		}
		s.logger.Warn("field dispatch not possible yet",
			zap.String("uid", inv.UID), zap.String("reason", outcome.Reason))
		return nil
	}

	if err := inv.DispatchField(now); err != nil {
		return err
	}
	if err := s.invoices.Save(ctx, inv); err != nil {
		return err
	}
	s.publishEvents(ctx, inv)
	return nil
}

func (s *Service) target(cust *billing.Customer) dispatch.Target {
	return dispatch.Target{Phone: cust.Phone, Locale: identity.LocaleForPhone(cust.Phone)}
}

func (s *Service) params(inv *billing.Invoice, cust *billing.Customer) map[string]string {
	return map[string]string{
		"name":     cust.DisplayName,
		"amount":   inv.Outstanding().StringFixed(0),
		"currency": s.cfg.Currency,
		"due_date": inv.DueDate.Format("2 Jan 2006"),
		"account":  cust.AccountCode,
	}
}
