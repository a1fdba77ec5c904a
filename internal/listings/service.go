package listings

import (
	"context"

	"github.com/google/uuid"

	"github.com/hirelocal/hirelocal-backend/pkg/db/models"
	pkgerrors "github.com/hirelocal/hirelocal-backend/pkg/errors"
	"github.com/hirelocal/hirelocal-backend/pkg/pagination"
)

// Service exposes the listing read surface consumed by the routing layer.
type Service struct {
	repo Repository
}

func NewService(repo Repository) (*Service, error) {
	if repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "listings repo required")
	}
	return &Service{repo: repo}, nil
}

func (s *Service) GetListing(ctx context.Context, id uuid.UUID) (*models.ServiceListing, error) {
	listing, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if listing == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "listing not found")
	}
	return listing, nil
}

func (s *Service) ListByProvider(ctx context.Context, providerID uuid.UUID) ([]models.ServiceListing, error) {
	if providerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "provider id is required")
	}
	return s.repo.ListActiveByProvider(ctx, providerID)
}

// BrowseParams configures paginated catalog browsing.
type BrowseParams struct {
	Category string
	Limit    int
	Cursor   string
}

// ListingPage is one page of the active catalog.
type ListingPage struct {
	Items  []models.ServiceListing
	Cursor string
}

// Browse pages through active listings, newest first.
func (s *Service) Browse(ctx context.Context, params BrowseParams) (*ListingPage, error) {
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}

	rows, next, err := s.repo.List(ctx, ListQuery{
		Category: params.Category,
		Limit:    params.Limit,
		Cursor:   cursor,
	})
	if err != nil {
		return nil, err
	}

	page := &ListingPage{Items: rows}
	if next != nil {
		page.Cursor = pagination.EncodeCursor(*next)
	}
	return page, nil
}
