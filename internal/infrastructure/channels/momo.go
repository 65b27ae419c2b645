package channels

import (
	"context"
	"net/http"
	"strings"

	"github.com/highprosper/backend/internal/domain/dispatch"
	"github.com/highprosper/backend/internal/infrastructure/config"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// MoMoClient talks to the mobile-money disbursement API for collector
// commission payouts. The X-Reference-Id header carries our COMM idempotency
// key; the provider deduplicates on it, so resubmitting the same key never
// double-pays.
type MoMoClient struct {
	provider config.ProviderConfig
	client   *providerClient
	logger   *zap.Logger
}

// NewMoMoClient creates the disbursement client
func NewMoMoClient(cfg config.ChannelsConfig, logger *zap.Logger) *MoMoClient {
	return &MoMoClient{
		provider: cfg.MoMo,
		client:   newProviderClient(cfg.HTTPTimeout),
		logger:   logger,
	}
}

type disbursementRequest struct {
	Amount     string `json:"amount"`
	Currency   string `json:"currency"`
	PartyID    string `json:"partyId"` // MSISDN without the plus
	PayeeNote  string `json:"payeeNote"`
	ExternalID string `json:"externalId"`
}

type disbursementStatus struct {
	Status      string `json:"status"` // SUCCESSFUL, FAILED, PENDING
	FinancialID string `json:"financialTransactionId"`
	Reason      string `json:"reason"`
}

// Initiate submits a disbursement. A 202 means the provider accepted it for
// asynchronous processing; the webhook or the reconciliation sweep settles it.
func (c *MoMoClient) Initiate(ctx context.Context, idempotencyKey, phone string, amount decimal.Decimal, currency string) (dispatch.ProviderPayoutResult, error) {
	status, _, err := c.client.postJSON(ctx, c.provider, "/disbursement/v1_0/transfer", disbursementRequest{
		Amount:     amount.StringFixed(0),
		Currency:   currency,
		PartyID:    strings.TrimPrefix(phone, "+"),
		PayeeNote:  "High Prosper collector commission",
		ExternalID: idempotencyKey,
	}, map[string]string{"X-Reference-Id": idempotencyKey})
	if err != nil {
		return dispatch.ProviderPayoutResult{}, err
	}

	switch {
	case status == http.StatusAccepted:
		return dispatch.ProviderPayoutResult{Status: dispatch.ProviderPayoutAccepted}, nil
	case status == http.StatusConflict:
		// Key already known to the provider; the transfer is in flight or
		// settled. Query resolves the real state.
		return c.Query(ctx, idempotencyKey)
	case status >= 200 && status < 300:
		return dispatch.ProviderPayoutResult{Status: dispatch.ProviderPayoutAccepted}, nil
	default:
		return dispatch.ProviderPayoutResult{
			Status: dispatch.ProviderPayoutFailed,
			Reason: statusReason(status),
		}, nil
	}
}

// Query re-reads the state of a disbursement by its reference key
func (c *MoMoClient) Query(ctx context.Context, idempotencyKey string) (dispatch.ProviderPayoutResult, error) {
	var body disbursementStatus
	status, err := c.client.getJSON(ctx, c.provider, "/disbursement/v1_0/transfer/"+idempotencyKey, &body)
	if err != nil {
		return dispatch.ProviderPayoutResult{}, err
	}
	if status < 200 || status >= 300 {
		return dispatch.ProviderPayoutResult{}, &queryError{status: status}
	}

	switch strings.ToUpper(body.Status) {
	case "SUCCESSFUL":
		return dispatch.ProviderPayoutResult{Status: dispatch.ProviderPayoutCompleted, Ref: body.FinancialID}, nil
	case "FAILED":
		return dispatch.ProviderPayoutResult{Status: dispatch.ProviderPayoutFailed, Reason: body.Reason}, nil
	default:
		return dispatch.ProviderPayoutResult{Status: dispatch.ProviderPayoutAccepted}, nil
	}
}

type queryError struct {
	status int
}

func (e *queryError) Error() string {
	return statusReason(e.status)
}

var _ dispatch.PayoutClient = (*MoMoClient)(nil)
