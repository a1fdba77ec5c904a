package accounts

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/hirelocal/hirelocal-backend/pkg/db/models"
	"github.com/hirelocal/hirelocal-backend/pkg/enums"
	pkgerrors "github.com/hirelocal/hirelocal-backend/pkg/errors"
	"github.com/hirelocal/hirelocal-backend/pkg/logger"
)

// CapabilitySnapshot is the processor's view of an account at a point in time.
// EventTime orders competing snapshots; the newest one wins.
type CapabilitySnapshot struct {
	ChargesEnabled   bool
	PayoutsEnabled   bool
	DetailsSubmitted bool
	Disabled         bool
	EventTime        time.Time
}

// ServiceParams groups dependencies for the accounts service.
type ServiceParams struct {
	Repo   Repository
	Logger *logger.Logger
}

// Service owns the connected account lifecycle. Capability flags and the
// onboarding status only move through here, so every caller gets the same
// transition rules.
type Service struct {
	repo Repository
	logg *logger.Logger
}

// NewService builds an accounts service.
func NewService(params ServiceParams) (*Service, error) {
	if params.Repo == nil {
		return nil, errors.New("repo is required")
	}
	return &Service{repo: params.Repo, logg: params.Logger}, nil
}

// GetByProvider returns the provider's connected account, or nil when the
// provider has not started onboarding.
func (s *Service) GetByProvider(ctx context.Context, providerID uuid.UUID) (*models.ConnectedAccount, error) {
	return s.repo.FindByProvider(ctx, providerID)
}

// GetByAccountID resolves a processor account id to the stored row.
func (s *Service) GetByAccountID(ctx context.Context, accountID string) (*models.ConnectedAccount, error) {
	return s.repo.FindByAccountID(ctx, accountID)
}

// CreateForProvider records a freshly opened processor account.
func (s *Service) CreateForProvider(ctx context.Context, providerID uuid.UUID, accountID string) (*models.ConnectedAccount, error) {
	if accountID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "account id is required")
	}
	account := &models.ConnectedAccount{
		ProviderID:       providerID,
		AccountID:        accountID,
		OnboardingStatus: enums.OnboardingStatusNotStarted,
	}
	if err := s.repo.Create(ctx, account); err != nil {
		return nil, err
	}
	return account, nil
}

// SaveLink stores a fresh onboarding link on the account and moves a
// not-started account to link_issued.
func (s *Service) SaveLink(ctx context.Context, tx *gorm.DB, account *models.ConnectedAccount, url string, expiresAt time.Time) error {
	if account == nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "account is required")
	}
	if url == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "onboarding url is required")
	}
	account.OnboardingURL = &url
	account.OnboardingURLExpiresAt = &expiresAt
	if account.OnboardingStatus == enums.OnboardingStatusNotStarted {
		account.OnboardingStatus = enums.OnboardingStatusLinkIssued
	}
	return s.repo.WithTx(tx).Update(ctx, account)
}

// ApplyCapabilities applies a processor snapshot to the stored account. Stale
// snapshots, ones not strictly newer than the last applied event, are dropped
// so out-of-order webhook deliveries cannot roll capabilities backward. The
// returned bool reports whether the row changed.
func (s *Service) ApplyCapabilities(ctx context.Context, tx *gorm.DB, accountID string, snapshot CapabilitySnapshot) (*models.ConnectedAccount, bool, error) {
	repo := s.repo.WithTx(tx)

	account, err := repo.FindByAccountID(ctx, accountID)
	if err != nil {
		return nil, false, err
	}
	if account == nil {
		return nil, false, pkgerrors.New(pkgerrors.CodeNotFound, "connected account not found")
	}

	if account.LastSyncedAt != nil && !snapshot.EventTime.After(*account.LastSyncedAt) {
		if s.logg != nil {
			logCtx := s.logg.WithFields(ctx, map[string]any{
				"account_id": accountID,
				"event_time": snapshot.EventTime,
				"synced_at":  *account.LastSyncedAt,
			})
			s.logg.Info(logCtx, "skipping stale capability snapshot")
		}
		return account, false, nil
	}

	account.ChargesEnabled = snapshot.ChargesEnabled
	account.PayoutsEnabled = snapshot.PayoutsEnabled
	account.DetailsSubmitted = snapshot.DetailsSubmitted
	account.OnboardingStatus = nextOnboardingStatus(account.OnboardingStatus, snapshot)
	eventTime := snapshot.EventTime
	account.LastSyncedAt = &eventTime

	if err := repo.Update(ctx, account); err != nil {
		return nil, false, err
	}
	return account, true, nil
}

// nextOnboardingStatus folds a snapshot into the status machine. Restriction
// can happen from any state; a restricted account recovers to complete only
// once both capabilities are granted again.
func nextOnboardingStatus(current enums.OnboardingStatus, snapshot CapabilitySnapshot) enums.OnboardingStatus {
	if snapshot.Disabled {
		return enums.OnboardingStatusRestricted
	}
	if snapshot.ChargesEnabled && snapshot.PayoutsEnabled {
		return enums.OnboardingStatusComplete
	}
	if current == enums.OnboardingStatusRestricted {
		return enums.OnboardingStatusRestricted
	}
	if snapshot.DetailsSubmitted {
		return enums.OnboardingStatusInProgress
	}
	return current
}
