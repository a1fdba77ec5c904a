package payments

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/hirelocal/hirelocal-backend/api/middleware"
	"github.com/hirelocal/hirelocal-backend/api/responses"
	"github.com/hirelocal/hirelocal-backend/internal/onboarding"
	"github.com/hirelocal/hirelocal-backend/pkg/db/models"
	pkgerrors "github.com/hirelocal/hirelocal-backend/pkg/errors"
	"github.com/hirelocal/hirelocal-backend/pkg/logger"
)

// OnboardingService is the onboarding surface the routing layer consumes.
type OnboardingService interface {
	StartOnboarding(ctx context.Context, providerID uuid.UUID) (*onboarding.StartResult, error)
	Status(ctx context.Context, providerID uuid.UUID) (*models.ConnectedAccount, error)
	Reconcile(ctx context.Context, providerID uuid.UUID) (*models.ConnectedAccount, error)
}

type onboardingLinkResponse struct {
	AccountID string    `json:"account_id"`
	Status    string    `json:"status"`
	URL       string    `json:"url"`
	ExpiresAt time.Time `json:"expires_at"`
	Reused    bool      `json:"reused"`
}

type accountStatusResponse struct {
	AccountID        string     `json:"account_id"`
	Status           string     `json:"status"`
	ChargesEnabled   bool       `json:"charges_enabled"`
	PayoutsEnabled   bool       `json:"payouts_enabled"`
	DetailsSubmitted bool       `json:"details_submitted"`
	LastSyncedAt     *time.Time `json:"last_synced_at,omitempty"`
}

// resolveProviderID pulls the provider scope from the access token claims.
func resolveProviderID(r *http.Request) (uuid.UUID, error) {
	raw := middleware.ProviderIDFromContext(r.Context())
	if raw == "" {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeForbidden, "provider scope required")
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeForbidden, err, "invalid provider scope")
	}
	return id, nil
}

func StartOnboarding(svc OnboardingService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "onboarding service unavailable"))
			return
		}

		providerID, err := resolveProviderID(r)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		result, err := svc.StartOnboarding(ctx, providerID)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		responses.WriteSuccess(w, onboardingLinkResponse{
			AccountID: result.AccountID,
			Status:    string(result.Status),
			URL:       result.URL,
			ExpiresAt: result.ExpiresAt,
			Reused:    result.Reused,
		})
	}
}

func OnboardingStatus(svc OnboardingService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "onboarding service unavailable"))
			return
		}

		providerID, err := resolveProviderID(r)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		account, err := svc.Status(ctx, providerID)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		responses.WriteSuccess(w, toAccountStatusResponse(account))
	}
}

// ReconcileOnboarding forces a poll of the processor account. It backstops
// missed webhook deliveries for providers stuck mid-onboarding.
func ReconcileOnboarding(svc OnboardingService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "onboarding service unavailable"))
			return
		}

		providerID, err := resolveProviderID(r)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		account, err := svc.Reconcile(ctx, providerID)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		responses.WriteSuccess(w, toAccountStatusResponse(account))
	}
}

func toAccountStatusResponse(account *models.ConnectedAccount) accountStatusResponse {
	return accountStatusResponse{
		AccountID:        account.AccountID,
		Status:           string(account.OnboardingStatus),
		ChargesEnabled:   account.ChargesEnabled,
		PayoutsEnabled:   account.PayoutsEnabled,
		DetailsSubmitted: account.DetailsSubmitted,
		LastSyncedAt:     account.LastSyncedAt,
	}
}
