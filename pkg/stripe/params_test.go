package stripe

import (
	"testing"

	pkgerrors "github.com/hirelocal/hirelocal-backend/pkg/errors"
)

func validChargeParams() DestinationChargeParams {
	return DestinationChargeParams{
		AmountCents:          12500,
		FeeCents:             1875,
		Currency:             "USD",
		DestinationAccountID: "acct_123",
		PaymentMethodID:      "pm_123",
		BookingID:            "5f0c1c8a-1111-4a2b-9c3d-000000000001",
		TransactionID:        "5f0c1c8a-1111-4a2b-9c3d-000000000002",
		IdempotencyKey:       "5f0c1c8a-1111-4a2b-9c3d-000000000002",
	}
}

func TestDestinationChargeParamsValidate(t *testing.T) {
	if err := validChargeParams().validate(); err != nil {
		t.Fatalf("expected valid params, got %v", err)
	}

	cases := map[string]func(*DestinationChargeParams){
		"zero amount":         func(p *DestinationChargeParams) { p.AmountCents = 0 },
		"negative fee":        func(p *DestinationChargeParams) { p.FeeCents = -1 },
		"fee exceeds amount":  func(p *DestinationChargeParams) { p.FeeCents = p.AmountCents + 1 },
		"missing currency":    func(p *DestinationChargeParams) { p.Currency = " " },
		"missing destination": func(p *DestinationChargeParams) { p.DestinationAccountID = "" },
		"missing method":      func(p *DestinationChargeParams) { p.PaymentMethodID = "" },
		"missing booking":     func(p *DestinationChargeParams) { p.BookingID = "" },
		"missing key":         func(p *DestinationChargeParams) { p.IdempotencyKey = "" },
	}
	for name, mutate := range cases {
		params := validChargeParams()
		mutate(&params)
		err := params.validate()
		if err == nil {
			t.Fatalf("%s: expected validation error", name)
		}
		if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeValidation {
			t.Fatalf("%s: expected validation code, got %v", name, err)
		}
	}
}

func TestDestinationChargeParamsMapping(t *testing.T) {
	params := validChargeParams()
	req := params.toStripeParams()

	if got := *req.Amount; got != params.AmountCents {
		t.Fatalf("expected amount %d, got %d", params.AmountCents, got)
	}
	if got := *req.ApplicationFeeAmount; got != params.FeeCents {
		t.Fatalf("expected fee %d, got %d", params.FeeCents, got)
	}
	if got := *req.Currency; got != "usd" {
		t.Fatalf("expected currency lowercased, got %q", got)
	}
	if got := *req.TransferData.Destination; got != params.DestinationAccountID {
		t.Fatalf("expected destination %q, got %q", params.DestinationAccountID, got)
	}
	if req.Metadata[MetadataBookingID] != params.BookingID {
		t.Fatalf("expected booking metadata, got %v", req.Metadata)
	}
	if req.Metadata[MetadataTransactionID] != params.TransactionID {
		t.Fatalf("expected transaction metadata, got %v", req.Metadata)
	}
	if req.Confirm == nil || !*req.Confirm {
		t.Fatal("expected confirm to be set")
	}
}

func TestAccountCreateParamsValidateAndMapping(t *testing.T) {
	params := AccountCreateParams{
		ProviderID:     "5f0c1c8a-1111-4a2b-9c3d-000000000003",
		Email:          "pro@example.com",
		CountryCode:    "US",
		IdempotencyKey: "account-create-5f0c1c8a-1111-4a2b-9c3d-000000000003",
	}
	if err := params.validate(); err != nil {
		t.Fatalf("expected valid params, got %v", err)
	}

	req := params.toStripeParams()
	if req.Metadata[MetadataProviderID] != params.ProviderID {
		t.Fatalf("expected provider metadata, got %v", req.Metadata)
	}
	if req.Capabilities == nil || req.Capabilities.CardPayments == nil || req.Capabilities.Transfers == nil {
		t.Fatal("expected both capabilities to be requested")
	}

	missingKey := params
	missingKey.IdempotencyKey = " "
	if err := missingKey.validate(); err == nil {
		t.Fatal("expected missing idempotency key to fail")
	}

	params.ProviderID = ""
	if err := params.validate(); err == nil {
		t.Fatal("expected missing provider id to fail")
	}
}

func TestAccountLinkParamsValidate(t *testing.T) {
	params := AccountLinkParams{
		AccountID:      "acct_123",
		IdempotencyKey: "account-link-acct_123",
	}
	if err := params.validate(); err != nil {
		t.Fatalf("expected valid params, got %v", err)
	}

	cases := map[string]func(*AccountLinkParams){
		"missing account": func(p *AccountLinkParams) { p.AccountID = "" },
		"missing key":     func(p *AccountLinkParams) { p.IdempotencyKey = " " },
	}
	for name, mutate := range cases {
		invalid := params
		mutate(&invalid)
		err := invalid.validate()
		if err == nil {
			t.Fatalf("%s: expected validation error", name)
		}
		if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeValidation {
			t.Fatalf("%s: expected validation code, got %v", name, err)
		}
	}
}
