package listings

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/hirelocal/hirelocal-backend/pkg/db/models"
	pkgerrors "github.com/hirelocal/hirelocal-backend/pkg/errors"
	"github.com/hirelocal/hirelocal-backend/pkg/pagination"
)

type stubRepo struct {
	listings []models.ServiceListing
	lastList ListQuery
}

func (s *stubRepo) FindByID(ctx context.Context, id uuid.UUID) (*models.ServiceListing, error) {
	for i := range s.listings {
		if s.listings[i].ID == id {
			return &s.listings[i], nil
		}
	}
	return nil, nil
}

func (s *stubRepo) ListActiveByProvider(ctx context.Context, providerID uuid.UUID) ([]models.ServiceListing, error) {
	var rows []models.ServiceListing
	for _, listing := range s.listings {
		if listing.ProviderID == providerID && listing.Active {
			rows = append(rows, listing)
		}
	}
	return rows, nil
}

func (s *stubRepo) List(ctx context.Context, params ListQuery) ([]models.ServiceListing, *pagination.Cursor, error) {
	s.lastList = params
	limit := pagination.NormalizeLimit(params.Limit)
	if len(s.listings) > limit {
		last := s.listings[limit-1]
		return s.listings[:limit], &pagination.Cursor{CreatedAt: last.CreatedAt, ID: last.ID}, nil
	}
	return s.listings, nil, nil
}

func TestGetListing(t *testing.T) {
	listing := models.ServiceListing{ID: uuid.New(), Title: "Gutter cleaning", Active: true}
	svc, err := NewService(&stubRepo{listings: []models.ServiceListing{listing}})
	if err != nil {
		t.Fatalf("service: %v", err)
	}

	got, err := svc.GetListing(context.Background(), listing.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Title != "Gutter cleaning" {
		t.Fatalf("title = %q", got.Title)
	}

	if _, err := svc.GetListing(context.Background(), uuid.New()); pkgerrors.As(err).Code() != pkgerrors.CodeNotFound {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestListByProviderFiltersInactive(t *testing.T) {
	providerID := uuid.New()
	repo := &stubRepo{listings: []models.ServiceListing{
		{ID: uuid.New(), ProviderID: providerID, Active: true},
		{ID: uuid.New(), ProviderID: providerID, Active: false},
		{ID: uuid.New(), ProviderID: uuid.New(), Active: true},
	}}
	svc, _ := NewService(repo)

	rows, err := svc.ListByProvider(context.Background(), providerID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("rows = %d, want 1", len(rows))
	}

	if _, err := svc.ListByProvider(context.Background(), uuid.Nil); pkgerrors.As(err).Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestBrowsePaginates(t *testing.T) {
	var rows []models.ServiceListing
	base := time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 30; i++ {
		rows = append(rows, models.ServiceListing{
			ID:        uuid.New(),
			Active:    true,
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		})
	}
	repo := &stubRepo{listings: rows}
	svc, _ := NewService(repo)

	page, err := svc.Browse(context.Background(), BrowseParams{Limit: 25})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(page.Items) != 25 {
		t.Fatalf("items = %d, want 25", len(page.Items))
	}
	if page.Cursor == "" {
		t.Fatal("expected a next cursor")
	}

	next, err := pagination.ParseCursor(page.Cursor)
	if err != nil {
		t.Fatalf("cursor round trip: %v", err)
	}
	if next.ID != rows[24].ID {
		t.Fatalf("cursor id = %s, want %s", next.ID, rows[24].ID)
	}

	if _, err := svc.Browse(context.Background(), BrowseParams{Cursor: "not-a-cursor"}); pkgerrors.As(err).Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error for bad cursor, got %v", err)
	}
}
