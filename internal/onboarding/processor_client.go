package onboarding

import (
	"context"

	"github.com/stripe/stripe-go/v84"

	pkgstripe "github.com/hirelocal/hirelocal-backend/pkg/stripe"
)

// ProcessorClient is the subset of processor operations onboarding requires.
type ProcessorClient interface {
	CreateAccount(ctx context.Context, params pkgstripe.AccountCreateParams) (*stripe.Account, error)
	CreateAccountLink(ctx context.Context, params pkgstripe.AccountLinkParams) (*stripe.AccountLink, error)
	GetAccount(ctx context.Context, accountID string) (*stripe.Account, error)
}
