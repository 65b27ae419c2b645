package dispatch

import (
	"context"
)

// Channel identifies an outbound delivery channel
type Channel string

const (
	ChannelSMS      Channel = "sms"
	ChannelVoice    Channel = "voice_call"
	ChannelWhatsApp Channel = "whatsapp"
	ChannelPush     Channel = "push"
	ChannelField    Channel = "field_visit"
	ChannelPayout   Channel = "momo_payout"
)

// Result classifies the provider's answer to a delivery attempt
type Result string

const (
	// ResultDelivered means the provider accepted and confirmed the message
	ResultDelivered Result = "delivered"
	// ResultDeferred means the provider accepted for later delivery (HTTP 202).
	// Deferred counts as success for escalation purposes.
	ResultDeferred Result = "deferred"
	// ResultFailed means the attempt did not reach the provider or was rejected
	ResultFailed Result = "failed"
)

// Outcome is what a dispatcher reports back for one attempt
type Outcome struct {
	Result     Result `json:"result"`
	Provider   string `json:"provider"` // which provider handled (or refused) the attempt
	ProviderID string `json:"provider_id,omitempty"`
	Reason     string `json:"reason,omitempty"` // failure detail, provider-facing
}

// Succeeded reports whether the attempt counts as sent
func (o Outcome) Succeeded() bool {
	return o.Result == ResultDelivered || o.Result == ResultDeferred
}

// Target is who an attempt is addressed to
type Target struct {
	Phone  string `json:"phone"` // E.164
	Locale string `json:"locale"`
}

// Payload is the channel-agnostic message content. Channels pick the fields
// they need; the invoice uid rides along for provider callbacks.
type Payload struct {
	TemplateKey string            `json:"template_key"`
	Params      map[string]string `json:"params,omitempty"`
	InvoiceUID  string            `json:"invoice_uid,omitempty"`
}

// Dispatcher sends one message over one channel. Implementations make at most
// one primary and one fallback provider call per attempt and never retry
// beyond that; retry policy belongs to the escalation sweep.
type Dispatcher interface {
	Channel() Channel
	Attempt(ctx context.Context, target Target, payload Payload) Outcome
}
