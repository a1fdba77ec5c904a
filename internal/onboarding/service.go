package onboarding

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/stripe/stripe-go/v84"
	"gorm.io/gorm"

	"github.com/hirelocal/hirelocal-backend/internal/accounts"
	"github.com/hirelocal/hirelocal-backend/pkg/config"
	"github.com/hirelocal/hirelocal-backend/pkg/db/models"
	"github.com/hirelocal/hirelocal-backend/pkg/enums"
	pkgerrors "github.com/hirelocal/hirelocal-backend/pkg/errors"
	"github.com/hirelocal/hirelocal-backend/pkg/logger"
	"github.com/hirelocal/hirelocal-backend/pkg/outbox"
	"github.com/hirelocal/hirelocal-backend/pkg/outbox/payloads"
	pkgstripe "github.com/hirelocal/hirelocal-backend/pkg/stripe"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxEmitter interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// StartResult is what a provider gets back from a start-onboarding call.
type StartResult struct {
	AccountID string
	Status    enums.OnboardingStatus
	URL       string
	ExpiresAt time.Time
	Reused    bool
}

// ServiceParams groups dependencies for the onboarding service.
type ServiceParams struct {
	Accounts          *accounts.Service
	Providers         ProviderRepository
	Processor         ProcessorClient
	TransactionRunner txRunner
	Outbox            outboxEmitter
	Payments          config.PaymentsConfig
	Logger            *logger.Logger
}

// Service drives providers through processor onboarding. Starting is
// idempotent: repeat calls reuse a still-valid stored link instead of
// minting a new one or opening a second processor account.
type Service struct {
	accounts *accounts.Service
	provider ProviderRepository
	proc     ProcessorClient
	txRunner txRunner
	outbox   outboxEmitter
	payments config.PaymentsConfig
	logg     *logger.Logger
}

// NewService builds an onboarding service.
func NewService(params ServiceParams) (*Service, error) {
	if params.Accounts == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "accounts service required")
	}
	if params.Providers == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "provider repo required")
	}
	if params.Processor == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "processor client required")
	}
	if params.TransactionRunner == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "transaction runner required")
	}
	if params.Outbox == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "outbox service required")
	}
	return &Service{
		accounts: params.Accounts,
		provider: params.Providers,
		proc:     params.Processor,
		txRunner: params.TransactionRunner,
		outbox:   params.Outbox,
		payments: params.Payments,
		logg:     params.Logger,
	}, nil
}

// StartOnboarding resolves the provider's connected account, opening one on
// the processor first if needed, and returns a usable onboarding link.
func (s *Service) StartOnboarding(ctx context.Context, providerID uuid.UUID) (*StartResult, error) {
	provider, err := s.provider.FindByID(ctx, providerID)
	if err != nil {
		return nil, err
	}
	if provider == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "provider not found")
	}
	if !provider.Active {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "provider is inactive")
	}

	account, err := s.accounts.GetByProvider(ctx, providerID)
	if err != nil {
		return nil, err
	}

	if account != nil && account.OnboardingStatus == enums.OnboardingStatusComplete {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "provider already onboarded")
	}

	now := time.Now().UTC()
	if account.HasValidLink(now, s.payments.LinkExpirySkew) {
		return &StartResult{
			AccountID: account.AccountID,
			Status:    account.OnboardingStatus,
			URL:       *account.OnboardingURL,
			ExpiresAt: *account.OnboardingURLExpiresAt,
			Reused:    true,
		}, nil
	}

	// A half-finished earlier start leaves the account row without a usable
	// link; the retry picks it up here instead of opening a second account.
	if account == nil {
		opened, err := s.proc.CreateAccount(ctx, pkgstripe.AccountCreateParams{
			ProviderID:     providerID.String(),
			Email:          provider.Email,
			CountryCode:    provider.CountryCode,
			IdempotencyKey: accountCreateKey(providerID),
		})
		if err != nil {
			return nil, err
		}
		account, err = s.accounts.CreateForProvider(ctx, providerID, opened.ID)
		if err != nil {
			return nil, err
		}
	}

	link, err := s.proc.CreateAccountLink(ctx, pkgstripe.AccountLinkParams{
		AccountID:      account.AccountID,
		IdempotencyKey: linkIssueKey(account),
	})
	if err != nil {
		return nil, err
	}
	expiresAt := time.Unix(link.ExpiresAt, 0).UTC()

	if err := s.txRunner.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.accounts.SaveLink(ctx, tx, account, link.URL, expiresAt); err != nil {
			return err
		}
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventAccountOnboardingStarted,
			AggregateType: enums.AggregateConnectedAccount,
			AggregateID:   account.ID,
			Data: payloads.AccountOnboardingStartedEvent{
				ProviderID:     providerID,
				AccountID:      account.AccountID,
				Status:         account.OnboardingStatus,
				LinkExpiresAt:  &expiresAt,
				ReusedOpenLink: false,
			},
			Version: 1,
		})
	}); err != nil {
		return nil, err
	}

	if s.logg != nil {
		logCtx := s.logg.WithProviderID(ctx, providerID.String())
		s.logg.Info(logCtx, "onboarding link issued")
	}

	return &StartResult{
		AccountID: account.AccountID,
		Status:    account.OnboardingStatus,
		URL:       link.URL,
		ExpiresAt: expiresAt,
	}, nil
}

// Status returns the provider's stored onboarding state.
func (s *Service) Status(ctx context.Context, providerID uuid.UUID) (*models.ConnectedAccount, error) {
	account, err := s.accounts.GetByProvider(ctx, providerID)
	if err != nil {
		return nil, err
	}
	if account == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "connected account not found")
	}
	return account, nil
}

// Reconcile pulls the processor's current account state and applies it as a
// capability snapshot. It backstops lost webhook deliveries; the snapshot is
// stamped with the fetch time so it still loses to any newer webhook.
func (s *Service) Reconcile(ctx context.Context, providerID uuid.UUID) (*models.ConnectedAccount, error) {
	account, err := s.accounts.GetByProvider(ctx, providerID)
	if err != nil {
		return nil, err
	}
	if account == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "connected account not found")
	}

	remote, err := s.proc.GetAccount(ctx, account.AccountID)
	if err != nil {
		return nil, err
	}

	snapshot := accounts.CapabilitySnapshot{
		ChargesEnabled:   remote.ChargesEnabled,
		PayoutsEnabled:   remote.PayoutsEnabled,
		DetailsSubmitted: remote.DetailsSubmitted,
		Disabled:         accountDisabled(remote),
		EventTime:        time.Now().UTC(),
	}

	var applied *models.ConnectedAccount
	if err := s.txRunner.WithTx(ctx, func(tx *gorm.DB) error {
		updated, changed, err := s.accounts.ApplyCapabilities(ctx, tx, account.AccountID, snapshot)
		if err != nil {
			return err
		}
		applied = updated
		if !changed {
			return nil
		}
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventAccountCapabilitiesSet,
			AggregateType: enums.AggregateConnectedAccount,
			AggregateID:   updated.ID,
			Data: payloads.AccountCapabilitiesSetEvent{
				ProviderID:     providerID,
				AccountID:      updated.AccountID,
				ChargesEnabled: updated.ChargesEnabled,
				PayoutsEnabled: updated.PayoutsEnabled,
				Status:         updated.OnboardingStatus,
				EventTime:      snapshot.EventTime,
			},
			Version: 1,
		})
	}); err != nil {
		return nil, err
	}

	return applied, nil
}

func accountDisabled(remote *stripe.Account) bool {
	return remote != nil && remote.Requirements != nil && remote.Requirements.DisabledReason != ""
}

// accountCreateKey pins account creation to the provider, so a retried start
// replays the processor's original response instead of opening a second,
// orphaned account.
func accountCreateKey(providerID uuid.UUID) string {
	return "account-create-" + providerID.String()
}

// linkIssueKey makes link issuance retry-safe without blocking refreshes: a
// retry of an interrupted issuance replays the same link, while refreshing an
// expired link rolls the key forward off the stored expiry.
func linkIssueKey(account *models.ConnectedAccount) string {
	if account.OnboardingURLExpiresAt == nil {
		return "account-link-" + account.AccountID
	}
	return fmt.Sprintf("account-link-%s-%d", account.AccountID, account.OnboardingURLExpiresAt.Unix())
}
