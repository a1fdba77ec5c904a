package stripe

import (
	"strings"

	"github.com/stripe/stripe-go/v84"

	pkgerrors "github.com/hirelocal/hirelocal-backend/pkg/errors"
)

// Metadata keys stamped on Stripe objects so webhook handlers can tie
// processor events back to marketplace rows.
const (
	MetadataProviderID    = "provider_id"
	MetadataBookingID     = "booking_id"
	MetadataTransactionID = "transaction_id"
)

// AccountCreateParams describes a new Express connected account.
type AccountCreateParams struct {
	ProviderID     string
	Email          string
	CountryCode    string
	IdempotencyKey string
}

func (p AccountCreateParams) validate() error {
	if strings.TrimSpace(p.ProviderID) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "provider id is required")
	}
	if strings.TrimSpace(p.CountryCode) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "country code is required")
	}
	if strings.TrimSpace(p.IdempotencyKey) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "idempotency key is required")
	}
	return nil
}

func (p AccountCreateParams) toStripeParams() *stripe.AccountParams {
	req := &stripe.AccountParams{
		Type:    stripe.String(string(stripe.AccountTypeExpress)),
		Country: stripe.String(p.CountryCode),
		Capabilities: &stripe.AccountCapabilitiesParams{
			CardPayments: &stripe.AccountCapabilitiesCardPaymentsParams{
				Requested: stripe.Bool(true),
			},
			Transfers: &stripe.AccountCapabilitiesTransfersParams{
				Requested: stripe.Bool(true),
			},
		},
	}
	if p.Email != "" {
		req.Email = stripe.String(p.Email)
	}
	req.AddMetadata(MetadataProviderID, p.ProviderID)
	return req
}

// AccountLinkParams requests a hosted onboarding link for a connected
// account.
type AccountLinkParams struct {
	AccountID      string
	IdempotencyKey string
}

func (p AccountLinkParams) validate() error {
	if strings.TrimSpace(p.AccountID) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "account id is required")
	}
	if strings.TrimSpace(p.IdempotencyKey) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "idempotency key is required")
	}
	return nil
}

// DestinationChargeParams describes a split payment settling to a connected
// account with the platform fee retained.
type DestinationChargeParams struct {
	AmountCents          int64
	FeeCents             int64
	Currency             string
	DestinationAccountID string
	PaymentMethodID      string
	BookingID            string
	TransactionID        string
	IdempotencyKey       string
}

func (p DestinationChargeParams) validate() error {
	if p.AmountCents <= 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "charge amount must be positive")
	}
	if p.FeeCents < 0 || p.FeeCents > p.AmountCents {
		return pkgerrors.New(pkgerrors.CodeValidation, "platform fee must be within [0, amount]")
	}
	if strings.TrimSpace(p.Currency) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "currency is required")
	}
	if strings.TrimSpace(p.DestinationAccountID) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "destination account id is required")
	}
	if strings.TrimSpace(p.PaymentMethodID) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "payment method id is required")
	}
	if strings.TrimSpace(p.BookingID) == "" || strings.TrimSpace(p.TransactionID) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "booking and transaction ids are required")
	}
	if strings.TrimSpace(p.IdempotencyKey) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "idempotency key is required")
	}
	return nil
}

func (p DestinationChargeParams) toStripeParams() *stripe.PaymentIntentParams {
	req := &stripe.PaymentIntentParams{
		Amount:               stripe.Int64(p.AmountCents),
		Currency:             stripe.String(strings.ToLower(p.Currency)),
		ApplicationFeeAmount: stripe.Int64(p.FeeCents),
		PaymentMethod:        stripe.String(p.PaymentMethodID),
		Confirm:              stripe.Bool(true),
		TransferData: &stripe.PaymentIntentTransferDataParams{
			Destination: stripe.String(p.DestinationAccountID),
		},
		AutomaticPaymentMethods: &stripe.PaymentIntentAutomaticPaymentMethodsParams{
			Enabled:        stripe.Bool(true),
			AllowRedirects: stripe.String("never"),
		},
	}
	req.AddMetadata(MetadataBookingID, p.BookingID)
	req.AddMetadata(MetadataTransactionID, p.TransactionID)
	return req
}
