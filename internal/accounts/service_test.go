package accounts

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/hirelocal/hirelocal-backend/pkg/db/models"
	"github.com/hirelocal/hirelocal-backend/pkg/enums"
	pkgerrors "github.com/hirelocal/hirelocal-backend/pkg/errors"
)

type stubRepo struct {
	accounts map[string]*models.ConnectedAccount
	updated  []*models.ConnectedAccount
	created  []*models.ConnectedAccount
}

func newStubRepo(accounts ...*models.ConnectedAccount) *stubRepo {
	repo := &stubRepo{accounts: map[string]*models.ConnectedAccount{}}
	for _, account := range accounts {
		repo.accounts[account.AccountID] = account
	}
	return repo
}

func (s *stubRepo) WithTx(tx *gorm.DB) Repository { return s }

func (s *stubRepo) Create(ctx context.Context, account *models.ConnectedAccount) error {
	s.created = append(s.created, account)
	s.accounts[account.AccountID] = account
	return nil
}

func (s *stubRepo) Update(ctx context.Context, account *models.ConnectedAccount) error {
	s.updated = append(s.updated, account)
	s.accounts[account.AccountID] = account
	return nil
}

func (s *stubRepo) FindByProvider(ctx context.Context, providerID uuid.UUID) (*models.ConnectedAccount, error) {
	for _, account := range s.accounts {
		if account.ProviderID == providerID {
			return account, nil
		}
	}
	return nil, nil
}

func (s *stubRepo) FindByAccountID(ctx context.Context, accountID string) (*models.ConnectedAccount, error) {
	return s.accounts[accountID], nil
}

func TestApplyCapabilitiesUpdatesAndStamps(t *testing.T) {
	account := &models.ConnectedAccount{
		ProviderID:       uuid.New(),
		AccountID:        "acct_1",
		OnboardingStatus: enums.OnboardingStatusLinkIssued,
	}
	repo := newStubRepo(account)
	svc, _ := NewService(ServiceParams{Repo: repo})

	eventTime := time.Now().UTC()
	got, changed, err := svc.ApplyCapabilities(context.Background(), nil, "acct_1", CapabilitySnapshot{
		ChargesEnabled:   true,
		PayoutsEnabled:   true,
		DetailsSubmitted: true,
		EventTime:        eventTime,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !changed {
		t.Fatal("expected the snapshot to apply")
	}
	if got.OnboardingStatus != enums.OnboardingStatusComplete {
		t.Fatalf("expected complete, got %s", got.OnboardingStatus)
	}
	if got.LastSyncedAt == nil || !got.LastSyncedAt.Equal(eventTime) {
		t.Fatalf("expected last synced at %v, got %v", eventTime, got.LastSyncedAt)
	}
	if len(repo.updated) != 1 {
		t.Fatalf("expected one update, got %d", len(repo.updated))
	}
}

func TestApplyCapabilitiesDropsStaleSnapshots(t *testing.T) {
	synced := time.Now().UTC()
	account := &models.ConnectedAccount{
		AccountID:        "acct_1",
		ChargesEnabled:   true,
		PayoutsEnabled:   true,
		OnboardingStatus: enums.OnboardingStatusComplete,
		LastSyncedAt:     &synced,
	}
	repo := newStubRepo(account)
	svc, _ := NewService(ServiceParams{Repo: repo})

	for name, eventTime := range map[string]time.Time{
		"older": synced.Add(-time.Minute),
		"equal": synced,
	} {
		got, changed, err := svc.ApplyCapabilities(context.Background(), nil, "acct_1", CapabilitySnapshot{
			ChargesEnabled: false,
			PayoutsEnabled: false,
			EventTime:      eventTime,
		})
		if err != nil {
			t.Fatalf("%s: unexpected error: %v", name, err)
		}
		if changed {
			t.Fatalf("%s: expected stale snapshot to be dropped", name)
		}
		if !got.ChargesEnabled || got.OnboardingStatus != enums.OnboardingStatusComplete {
			t.Fatalf("%s: expected row untouched, got %+v", name, got)
		}
	}
	if len(repo.updated) != 0 {
		t.Fatalf("expected no updates, got %d", len(repo.updated))
	}
}

func TestApplyCapabilitiesUnknownAccount(t *testing.T) {
	svc, _ := NewService(ServiceParams{Repo: newStubRepo()})
	_, _, err := svc.ApplyCapabilities(context.Background(), nil, "acct_missing", CapabilitySnapshot{
		EventTime: time.Now(),
	})
	if err == nil {
		t.Fatal("expected error for unknown account")
	}
	if pkgerrors.As(err).Code() != pkgerrors.CodeNotFound {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestNextOnboardingStatusTransitions(t *testing.T) {
	cases := []struct {
		name     string
		current  enums.OnboardingStatus
		snapshot CapabilitySnapshot
		want     enums.OnboardingStatus
	}{
		{
			name:     "disabled restricts from complete",
			current:  enums.OnboardingStatusComplete,
			snapshot: CapabilitySnapshot{Disabled: true, ChargesEnabled: true, PayoutsEnabled: true},
			want:     enums.OnboardingStatusRestricted,
		},
		{
			name:     "disabled restricts from link issued",
			current:  enums.OnboardingStatusLinkIssued,
			snapshot: CapabilitySnapshot{Disabled: true},
			want:     enums.OnboardingStatusRestricted,
		},
		{
			name:     "both capabilities complete onboarding",
			current:  enums.OnboardingStatusInProgress,
			snapshot: CapabilitySnapshot{ChargesEnabled: true, PayoutsEnabled: true},
			want:     enums.OnboardingStatusComplete,
		},
		{
			name:     "restricted recovers only with both capabilities",
			current:  enums.OnboardingStatusRestricted,
			snapshot: CapabilitySnapshot{ChargesEnabled: true, PayoutsEnabled: true},
			want:     enums.OnboardingStatusComplete,
		},
		{
			name:     "restricted stays restricted on partial recovery",
			current:  enums.OnboardingStatusRestricted,
			snapshot: CapabilitySnapshot{ChargesEnabled: true, DetailsSubmitted: true},
			want:     enums.OnboardingStatusRestricted,
		},
		{
			name:     "details submitted moves to in progress",
			current:  enums.OnboardingStatusLinkIssued,
			snapshot: CapabilitySnapshot{DetailsSubmitted: true},
			want:     enums.OnboardingStatusInProgress,
		},
		{
			name:     "no signal keeps current state",
			current:  enums.OnboardingStatusLinkIssued,
			snapshot: CapabilitySnapshot{},
			want:     enums.OnboardingStatusLinkIssued,
		},
	}
	for _, tc := range cases {
		if got := nextOnboardingStatus(tc.current, tc.snapshot); got != tc.want {
			t.Fatalf("%s: expected %s, got %s", tc.name, tc.want, got)
		}
	}
}

func TestSaveLinkIssuesStatus(t *testing.T) {
	account := &models.ConnectedAccount{
		AccountID:        "acct_1",
		OnboardingStatus: enums.OnboardingStatusNotStarted,
	}
	repo := newStubRepo(account)
	svc, _ := NewService(ServiceParams{Repo: repo})

	expires := time.Now().Add(10 * time.Minute)
	if err := svc.SaveLink(context.Background(), nil, account, "https://onboard.example/a1", expires); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if account.OnboardingStatus != enums.OnboardingStatusLinkIssued {
		t.Fatalf("expected link_issued, got %s", account.OnboardingStatus)
	}
	if account.OnboardingURL == nil || *account.OnboardingURL != "https://onboard.example/a1" {
		t.Fatal("expected link stored on row")
	}

	// A later link refresh must not regress an in-progress account.
	account.OnboardingStatus = enums.OnboardingStatusInProgress
	if err := svc.SaveLink(context.Background(), nil, account, "https://onboard.example/a2", expires); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if account.OnboardingStatus != enums.OnboardingStatusInProgress {
		t.Fatalf("expected in_progress preserved, got %s", account.OnboardingStatus)
	}
}
