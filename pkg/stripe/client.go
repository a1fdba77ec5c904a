package stripe

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/stripe/stripe-go/v84"
	"github.com/stripe/stripe-go/v84/account"
	"github.com/stripe/stripe-go/v84/accountlink"
	"github.com/stripe/stripe-go/v84/paymentintent"
	"github.com/stripe/stripe-go/v84/webhook"

	"github.com/hirelocal/hirelocal-backend/pkg/config"
	pkgerrors "github.com/hirelocal/hirelocal-backend/pkg/errors"
	"github.com/hirelocal/hirelocal-backend/pkg/logger"
)

const (
	testEnv = "test"
	liveEnv = "live"
)

var (
	errAPIKeyRequired    = errors.New("stripe api key is required")
	errSecretRequired    = errors.New("stripe webhook secret is required")
	errReturnURLRequired = errors.New("stripe onboarding return url is required")
	errInvalidStripeEnv  = fmt.Errorf("stripe environment must be %q or %q", testEnv, liveEnv)
)

// Client wraps Stripe's Connect and PaymentIntent surface with centralized
// auth, logging, idempotency, and error mapping.
type Client struct {
	environment   string
	signingSecret string
	returnURL     string
	refreshURL    string
	logger        *logger.Logger
}

// NewClient initializes Stripe once with the configured secrets and env.
func NewClient(ctx context.Context, cfg config.StripeConfig, logg *logger.Logger) (*Client, error) {
	env, err := normalizeEnv(cfg.Environment())
	if err != nil {
		return nil, err
	}

	apiKey := strings.TrimSpace(cfg.APIKey)
	if apiKey == "" {
		return nil, errAPIKeyRequired
	}

	signingSecret := strings.TrimSpace(cfg.WebhookSecret)
	if signingSecret == "" {
		return nil, errSecretRequired
	}

	returnURL := strings.TrimSpace(cfg.OnboardingReturnURL)
	refreshURL := strings.TrimSpace(cfg.OnboardingRefreshURL)
	if returnURL == "" || refreshURL == "" {
		return nil, errReturnURLRequired
	}

	if err := validateAPIKey(env, apiKey); err != nil {
		return nil, err
	}

	stripe.Key = apiKey

	if logg != nil {
		logg.Info(ctx, fmt.Sprintf("stripe client initialized (%s)", env))
	}

	return &Client{
		environment:   env,
		signingSecret: signingSecret,
		returnURL:     returnURL,
		refreshURL:    refreshURL,
		logger:        logg,
	}, nil
}

// Environment reports the normalized Stripe environment in use.
func (c *Client) Environment() string {
	if c == nil {
		return ""
	}
	return c.environment
}

// SigningSecret returns the webhook signing secret.
func (c *Client) SigningSecret() string {
	if c == nil {
		return ""
	}
	return c.signingSecret
}

// CreateAccount opens an Express connected account for a provider. The
// provider id travels in metadata so webhook handlers can link the account
// back to its owner.
func (c *Client) CreateAccount(ctx context.Context, params AccountCreateParams) (*stripe.Account, error) {
	if err := params.validate(); err != nil {
		return nil, err
	}

	req := params.toStripeParams()
	req.Context = ctx
	req.SetIdempotencyKey(params.IdempotencyKey)
	c.log(ctx, "request", "create_account", map[string]any{
		"provider_id": params.ProviderID,
		"country":     params.CountryCode,
		"email":       params.Email,
	})

	acct, err := account.New(req)
	if err != nil {
		c.log(ctx, "error", "create_account", map[string]any{"error": err.Error()})
		return nil, c.mapStripeError(err, "create account")
	}

	c.log(ctx, "response", "create_account", map[string]any{"account_id": acct.ID})
	return acct, nil
}

// CreateAccountLink mints a hosted onboarding link for the account. Links
// are single use and expire server side; the caller's idempotency key makes
// a retried issuance replay the same link, and a refresh supplies a new key.
func (c *Client) CreateAccountLink(ctx context.Context, params AccountLinkParams) (*stripe.AccountLink, error) {
	if err := params.validate(); err != nil {
		return nil, err
	}

	req := &stripe.AccountLinkParams{
		Account:    stripe.String(params.AccountID),
		ReturnURL:  stripe.String(c.returnURL),
		RefreshURL: stripe.String(c.refreshURL),
		Type:       stripe.String("account_onboarding"),
	}
	req.Context = ctx
	req.SetIdempotencyKey(params.IdempotencyKey)
	c.log(ctx, "request", "create_account_link", map[string]any{"account_id": params.AccountID})

	link, err := accountlink.New(req)
	if err != nil {
		c.log(ctx, "error", "create_account_link", map[string]any{"error": err.Error()})
		return nil, c.mapStripeError(err, "create account link")
	}

	c.log(ctx, "response", "create_account_link", map[string]any{
		"account_id": params.AccountID,
		"expires_at": link.ExpiresAt,
	})
	return link, nil
}

// GetAccount fetches the current state of a connected account.
func (c *Client) GetAccount(ctx context.Context, accountID string) (*stripe.Account, error) {
	if strings.TrimSpace(accountID) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "account id is required")
	}

	req := &stripe.AccountParams{}
	req.Context = ctx
	c.log(ctx, "request", "get_account", map[string]any{"account_id": accountID})

	acct, err := account.GetByID(accountID, req)
	if err != nil {
		c.log(ctx, "error", "get_account", map[string]any{"error": err.Error()})
		return nil, c.mapStripeError(err, "get account")
	}

	c.log(ctx, "response", "get_account", map[string]any{"account_id": acct.ID})
	return acct, nil
}

// CreateDestinationCharge confirms a PaymentIntent that settles to the
// provider's connected account, retaining the platform fee. The caller
// supplies the idempotency key so retries of the same transaction never
// double charge.
func (c *Client) CreateDestinationCharge(ctx context.Context, params DestinationChargeParams) (*stripe.PaymentIntent, error) {
	if err := params.validate(); err != nil {
		return nil, err
	}

	req := params.toStripeParams()
	req.Context = ctx
	req.SetIdempotencyKey(params.IdempotencyKey)
	c.log(ctx, "request", "create_destination_charge", map[string]any{
		"booking_id":     params.BookingID,
		"transaction_id": params.TransactionID,
		"destination":    params.DestinationAccountID,
		"amount":         params.AmountCents,
		"fee":            params.FeeCents,
		"currency":       params.Currency,
	})

	intent, err := paymentintent.New(req)
	if err != nil {
		c.log(ctx, "error", "create_destination_charge", map[string]any{"error": err.Error()})
		return nil, c.mapStripeError(err, "create destination charge")
	}

	c.log(ctx, "response", "create_destination_charge", map[string]any{
		"payment_intent_id": intent.ID,
		"status":            string(intent.Status),
	})
	return intent, nil
}

// ConstructWebhookEvent verifies the signature header and decodes the event.
func (c *Client) ConstructWebhookEvent(payload []byte, sigHeader string) (stripe.Event, error) {
	event, err := webhook.ConstructEvent(payload, sigHeader, c.signingSecret)
	if err != nil {
		return stripe.Event{}, pkgerrors.Wrap(pkgerrors.CodeSignatureInvalid, err, "webhook signature verification failed")
	}
	return event, nil
}

func (c *Client) log(ctx context.Context, phase, op string, fields map[string]any) {
	if c == nil || c.logger == nil {
		return
	}
	logFields := map[string]any{
		"operation": op,
		"phase":     phase,
	}
	for k, v := range fields {
		logFields[k] = c.redact(k, v)
	}
	ctx = c.logger.WithFields(ctx, logFields)
	switch phase {
	case "error":
		c.logger.Error(ctx, fmt.Sprintf("stripe %s", op), errors.New(fmt.Sprint(fields["error"])))
	default:
		c.logger.Info(ctx, fmt.Sprintf("stripe %s", phase))
	}
}

func (c *Client) redact(key string, value any) any {
	lower := strings.ToLower(key)
	for _, sensitive := range []string{"card", "token", "secret", "email", "phone", "payment_method"} {
		if strings.Contains(lower, sensitive) {
			return "[REDACTED]"
		}
	}
	return value
}

func (c *Client) mapStripeError(err error, op string) error {
	if err == nil {
		return nil
	}
	var stripeErr *stripe.Error
	if errors.As(err, &stripeErr) {
		code := domainCodeForStripeError(stripeErr)
		return pkgerrors.Wrap(code, err, fmt.Sprintf("stripe %s failed", op))
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, fmt.Sprintf("stripe %s failed", op))
}

func domainCodeForStripeError(stripeErr *stripe.Error) pkgerrors.Code {
	switch {
	case stripeErr.Code == stripe.ErrorCodeCardDeclined,
		stripeErr.Code == stripe.ErrorCodeExpiredCard,
		stripeErr.Code == stripe.ErrorCodeIncorrectCVC,
		stripeErr.Type == stripe.ErrorTypeCard:
		return pkgerrors.CodeCardDeclined
	case stripeErr.Type == stripe.ErrorTypeIdempotency:
		return pkgerrors.CodeIdempotency
	}
	return domainCodeForStatus(stripeErr.HTTPStatusCode)
}

func domainCodeForStatus(status int) pkgerrors.Code {
	switch status {
	case http.StatusUnauthorized:
		return pkgerrors.CodeUnauthorized
	case http.StatusForbidden:
		return pkgerrors.CodeForbidden
	case http.StatusNotFound:
		return pkgerrors.CodeNotFound
	case http.StatusConflict:
		return pkgerrors.CodeConflict
	case http.StatusTooManyRequests:
		return pkgerrors.CodeRateLimit
	case http.StatusBadRequest:
		return pkgerrors.CodeValidation
	case http.StatusUnprocessableEntity:
		return pkgerrors.CodeStateConflict
	default:
		if status >= 400 && status < 500 {
			return pkgerrors.CodeValidation
		}
		return pkgerrors.CodeDependency
	}
}

func normalizeEnv(raw string) (string, error) {
	env := strings.TrimSpace(strings.ToLower(raw))
	if env == "" {
		env = testEnv
	}
	switch env {
	case testEnv, liveEnv:
		return env, nil
	default:
		return "", errInvalidStripeEnv
	}
}

func validateAPIKey(env, key string) error {
	switch env {
	case testEnv:
		if strings.HasPrefix(key, "sk_test") || strings.HasPrefix(key, "rk_test") {
			return nil
		}
		return fmt.Errorf("stripe environment %q requires a test secret key (sk_test/rk_test)", testEnv)
	case liveEnv:
		if strings.HasPrefix(key, "sk_live") || strings.HasPrefix(key, "rk_live") {
			return nil
		}
		return fmt.Errorf("stripe environment %q requires a live secret key (sk_live/rk_live)", liveEnv)
	default:
		return errInvalidStripeEnv
	}
}
