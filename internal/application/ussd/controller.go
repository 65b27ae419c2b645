// Package ussd implements the synchronous menu controller the carrier calls
// for every digit a subscriber enters.
package ussd

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/highprosper/backend/internal/domain/billing"
	"github.com/highprosper/backend/internal/domain/identity"
	"github.com/highprosper/backend/internal/domain/shared"
	"github.com/highprosper/backend/internal/infrastructure/channels"
	"github.com/highprosper/backend/internal/infrastructure/config"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// sessionKeyPrefix namespaces sessions in the ephemeral store
const sessionKeyPrefix = "ussd_session_"

// agentLine is the number read out by the call-agent branch
const agentLine = "+250 788 300 300"

// Reference prefixes minted by the pay branches
const (
	refPrefixSubscription = "SUB-"
	refPrefixService      = "SRV-"
)

// Ledger is the slice of the billing service the controller needs
type Ledger interface {
	CustomerByPhone(ctx context.Context, phone string) (*billing.Customer, error)
	OutstandingForCustomer(ctx context.Context, customerID uuid.UUID) (decimal.Decimal, error)
	InitiatePayment(ctx context.Context, customerID uuid.UUID, reference string, amount decimal.Decimal, method billing.PaymentMethod) (*billing.Payment, error)
}

// session is the per-caller state between digits, serialized into the store
type session struct {
	MSISDN       string    `json:"msisdn"`
	Locale       string    `json:"locale"`
	LastActivity time.Time `json:"last_activity"`
}

// Controller handles one carrier callback per entered digit. Responses are
// plaintext: "CON <prompt>" keeps the session open, "END <message>" closes it.
type Controller struct {
	sessions shared.SessionStore
	ledger   Ledger
	ttl      time.Duration
	currency string
	payCode  string
	logger   *zap.Logger
}

// NewController creates the USSD controller
func NewController(sessions shared.SessionStore, ledger Ledger, ussdCfg config.USSDConfig, billingCfg config.BillingConfig, channelsCfg config.ChannelsConfig, logger *zap.Logger) *Controller {
	return &Controller{
		sessions: sessions,
		ledger:   ledger,
		ttl:      ussdCfg.SessionTTL,
		currency: billingCfg.Currency,
		payCode:  channelsCfg.MoMoPayCode,
		logger:   logger,
	}
}

// Handle processes one carrier callback. text is the cumulative input with
// digits separated by '*'; empty text is the first dial.
func (c *Controller) Handle(ctx context.Context, phoneNumber, text string) (string, error) {
	msisdn, err := identity.NormalizeMSISDN(phoneNumber)
	if err != nil {
		return end(prompt(identity.DefaultLocale, promptNoAccount, nil)), nil
	}
	locale := identity.LocaleForPhone(msisdn)

	sess, ok, err := c.loadSession(ctx, msisdn)
	if err != nil {
		return "", err
	}
	now := time.Now()

	if text == "" {
		// first dial always starts a fresh session
		sess = &session{MSISDN: msisdn, Locale: locale}
	} else if !ok || now.Sub(sess.LastActivity) > c.ttl {
		_ = c.sessions.Delete(ctx, sessionKey(msisdn))
		return end(channels.Render(locale, channels.TemplateSessionEnded, nil)), nil
	}

	sess.LastActivity = now
	if err := c.saveSession(ctx, sess); err != nil {
		return "", err
	}

	reply, final := c.route(ctx, sess, text)
	if final {
		_ = c.sessions.Delete(ctx, sessionKey(msisdn))
		return end(reply), nil
	}
	return con(reply), nil
}

// route walks the menu tree. Returns the reply body and whether the session
// ends here.
func (c *Controller) route(ctx context.Context, sess *session, text string) (string, bool) {
	if text == "" {
		return prompt(sess.Locale, promptMain, nil), false
	}
	steps := strings.Split(text, "*")

	cust, err := c.ledger.CustomerByPhone(ctx, sess.MSISDN)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return prompt(sess.Locale, promptNoAccount, nil), true
		}
		c.logger.Error("customer lookup failed in ussd", zap.Error(err))
		return prompt(sess.Locale, promptNoAccount, nil), true
	}

	switch steps[0] {
	case "1":
		return c.balance(ctx, sess, cust)
	case "2":
		return c.paySubscription(ctx, sess, cust, steps)
	case "3":
		return prompt(sess.Locale, promptIssue, nil), true
	case "4":
		return prompt(sess.Locale, promptAgent, map[string]string{"agent_line": agentLine}), true
	case "5":
		return prompt(sess.Locale, promptAccount, map[string]string{"account": cust.AccountCode}), true
	case "6":
		return c.payService(ctx, sess, cust, steps)
	default:
		return prompt(sess.Locale, promptInvalid, nil) + prompt(sess.Locale, promptMain, nil), false
	}
}

func (c *Controller) balance(ctx context.Context, sess *session, cust *billing.Customer) (string, bool) {
	outstanding, err := c.ledger.OutstandingForCustomer(ctx, cust.ID)
	if err != nil {
		c.logger.Error("balance lookup failed in ussd", zap.Error(err))
		return prompt(sess.Locale, promptInvalid, nil), true
	}
	return prompt(sess.Locale, promptBalance, map[string]string{
		"amount":   outstanding.StringFixed(0),
		"currency": c.currency,
	}), true
}

func (c *Controller) paySubscription(ctx context.Context, sess *session, cust *billing.Customer, steps []string) (string, bool) {
	outstanding, err := c.ledger.OutstandingForCustomer(ctx, cust.ID)
	if err != nil {
		c.logger.Error("balance lookup failed in ussd", zap.Error(err))
		return prompt(sess.Locale, promptInvalid, nil), true
	}
	if outstanding.LessThanOrEqual(decimal.Zero) {
		return prompt(sess.Locale, promptNoDebt, nil), true
	}

	params := map[string]string{
		"amount":   outstanding.StringFixed(0),
		"currency": c.currency,
	}
	switch len(steps) {
	case 1:
		return prompt(sess.Locale, promptConfirmPay, params), false
	case 2:
		switch steps[1] {
		case "1":
			return c.mintIntent(ctx, sess, cust, refPrefixSubscription, outstanding)
		case "2":
			return prompt(sess.Locale, promptCancelled, nil), true
		}
	}
	return prompt(sess.Locale, promptInvalid, nil) + prompt(sess.Locale, promptConfirmPay, params), false
}

func (c *Controller) payService(ctx context.Context, sess *session, cust *billing.Customer, steps []string) (string, bool) {
	switch len(steps) {
	case 1:
		return prompt(sess.Locale, promptAmount, nil), false
	case 2:
		amount, err := decimal.NewFromString(steps[1])
		if err != nil || amount.LessThanOrEqual(decimal.Zero) {
			return prompt(sess.Locale, promptBadAmount, nil) + "\n" + prompt(sess.Locale, promptAmount, nil), false
		}
		return c.mintIntent(ctx, sess, cust, refPrefixService, amount)
	}
	return prompt(sess.Locale, promptInvalid, nil), true
}

// mintIntent creates the pending payment and returns the mobile-money
// instructions with its short token. The dial string comes from channel
// config because every market has its own pay code.
func (c *Controller) mintIntent(ctx context.Context, sess *session, cust *billing.Customer, refPrefix string, amount decimal.Decimal) (string, bool) {
	token := newToken()
	if _, err := c.ledger.InitiatePayment(ctx, cust.ID, refPrefix+token, amount, billing.PaymentMethodMoMo); err != nil {
		c.logger.Error("failed to mint payment intent from ussd",
			zap.String("msisdn", sess.MSISDN), zap.Error(err))
		return prompt(sess.Locale, promptInvalid, nil), true
	}
	return channels.Render(sess.Locale, channels.TemplatePayInstruct, map[string]string{
		"amount":   amount.StringFixed(0),
		"currency": c.currency,
		"dial":     strings.ReplaceAll(c.payCode, "{account}", cust.AccountCode),
		"token":    token,
	}), true
}

// newToken mints the 8-hex-uppercase payment token
func newToken() string {
	var b [4]byte
	_, _ = rand.Read(b[:])
	return strings.ToUpper(hex.EncodeToString(b[:]))
}

func (c *Controller) loadSession(ctx context.Context, msisdn string) (*session, bool, error) {
	data, ok, err := c.sessions.Get(ctx, sessionKey(msisdn))
	if err != nil || !ok {
		return nil, false, err
	}
	var sess session
	if err := json.Unmarshal(data, &sess); err != nil {
		return nil, false, nil
	}
	return &sess, true, nil
}

func (c *Controller) saveSession(ctx context.Context, sess *session) error {
	data, err := json.Marshal(sess)
	if err != nil {
		return err
	}
	return c.sessions.Set(ctx, sessionKey(sess.MSISDN), data, c.ttl)
}

func sessionKey(msisdn string) string {
	return sessionKeyPrefix + msisdn
}

func con(body string) string { return "CON " + body }
func end(body string) string { return "END " + body }
