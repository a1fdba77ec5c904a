package controllers

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/hirelocal/hirelocal-backend/api/responses"
	"github.com/hirelocal/hirelocal-backend/api/validators"
	"github.com/hirelocal/hirelocal-backend/internal/listings"
	"github.com/hirelocal/hirelocal-backend/pkg/db/models"
	pkgerrors "github.com/hirelocal/hirelocal-backend/pkg/errors"
	"github.com/hirelocal/hirelocal-backend/pkg/logger"
)

// ListingsService is the catalog read surface the routing layer consumes.
type ListingsService interface {
	Browse(ctx context.Context, params listings.BrowseParams) (*listings.ListingPage, error)
	ListByProvider(ctx context.Context, providerID uuid.UUID) ([]models.ServiceListing, error)
}

type listingResponse struct {
	ID         string    `json:"id"`
	ProviderID string    `json:"provider_id"`
	Title      string    `json:"title"`
	Category   string    `json:"category"`
	PriceCents int64     `json:"price_cents"`
	CreatedAt  time.Time `json:"created_at"`
}

type listingPageResponse struct {
	Listings []listingResponse `json:"listings"`
	Cursor   string            `json:"cursor"`
}

func BrowseListings(svc ListingsService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "listings service unavailable"))
			return
		}

		limit, err := validators.ParseQueryInt(r, "limit", 0, 1, 100)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		page, err := svc.Browse(ctx, listings.BrowseParams{
			Category: strings.TrimSpace(r.URL.Query().Get("category")),
			Limit:    limit,
			Cursor:   strings.TrimSpace(r.URL.Query().Get("cursor")),
		})
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		payload := listingPageResponse{
			Listings: make([]listingResponse, len(page.Items)),
			Cursor:   page.Cursor,
		}
		for i, listing := range page.Items {
			payload.Listings[i] = toListingResponse(listing)
		}
		responses.WriteSuccess(w, payload)
	}
}

func ProviderListings(svc ListingsService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "listings service unavailable"))
			return
		}

		providerID, err := uuid.Parse(chi.URLParam(r, "providerID"))
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid provider id"))
			return
		}

		rows, err := svc.ListByProvider(ctx, providerID)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		payload := make([]listingResponse, len(rows))
		for i, listing := range rows {
			payload[i] = toListingResponse(listing)
		}
		responses.WriteSuccess(w, payload)
	}
}

func toListingResponse(listing models.ServiceListing) listingResponse {
	return listingResponse{
		ID:         listing.ID.String(),
		ProviderID: listing.ProviderID.String(),
		Title:      listing.Title,
		Category:   listing.Category,
		PriceCents: listing.PriceCents,
		CreatedAt:  listing.CreatedAt,
	}
}
